package usecase

import (
	"context"

	"swapmart/internal/domain/entity"
	"swapmart/internal/domain/repository"
	"swapmart/internal/infrastructure/livefeed"
	"swapmart/internal/infrastructure/ratelimit"
	"swapmart/pkg/errors"
	"swapmart/pkg/logger"
)

// offerSummaryContent is the fixed human-readable body synthesized for offer
// messages. Offers never carry caller-provided text.
const offerSummaryContent = "Offer made"

// MessageUseCase is the message pipeline: validation, ordered append, and the
// fan-out that follows a committed write.
type MessageUseCase struct {
	conversationRepo repository.ConversationRepository
	notifier         *NotificationUseCase
	feed             *livefeed.Publisher
	rateLimiter      *ratelimit.RateLimiter
}

func NewMessageUseCase(
	conversationRepo repository.ConversationRepository,
	notifier *NotificationUseCase,
	feed *livefeed.Publisher,
) *MessageUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &MessageUseCase{
		conversationRepo: conversationRepo,
		notifier:         notifier,
		feed:             feed,
		rateLimiter:      rateLimiter,
	}
}

type SendMessageInput struct {
	Content  string
	Type     string
	Metadata *entity.OfferMetadata
}

// SendMessage validates and appends one message. The append and the owning
// conversation's counter/pointer update commit as one transactional unit, so
// a reader who observes the bumped unread counter always sees the message.
// The caller always gets a confirmed message or an explicit error.
func (uc *MessageUseCase) SendMessage(ctx context.Context, conversationID, senderID string, input SendMessageInput) (*entity.Message, error) {
	if allowed, _ := uc.rateLimiter.Allow(senderID, "send_message"); !allowed {
		return nil, errors.TooManyRequests("You are sending messages too quickly")
	}

	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(senderID) {
		return nil, errors.NotParticipant(senderID, conversationID)
	}

	messageType := input.Type
	if messageType == "" {
		messageType = entity.MessageTypeText
	}

	switch messageType {
	case entity.MessageTypeText, entity.MessageTypeImage, entity.MessageTypeFile:
		if input.Content == "" {
			return nil, errors.BadRequest("Message content is required", nil)
		}
		// Structured payloads only ride on offers.
		input.Metadata = nil
	case entity.MessageTypeOffer:
		if err := validateOfferMetadata(input.Metadata); err != nil {
			return nil, err
		}
	default:
		return nil, errors.BadRequest("Unknown message type", nil)
	}

	message := &entity.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Type:           messageType,
		Content:        input.Content,
		Metadata:       input.Metadata,
	}

	message, _, err = uc.conversationRepo.AppendMessage(ctx, message)
	if err != nil {
		return nil, err
	}

	uc.feed.PublishConversation(ctx, conversationID)
	uc.dispatchArrivalNotification(conversation, message)

	return message, nil
}

// SendOfferMessage appends a structured offer. Content is always the fixed
// summary string; a plain-text override is not accepted here.
func (uc *MessageUseCase) SendOfferMessage(ctx context.Context, conversationID, senderID string, offer entity.OfferMetadata) (*entity.Message, error) {
	if offer.Status == "" {
		offer.Status = entity.OfferStatusPending
	}

	return uc.SendMessage(ctx, conversationID, senderID, SendMessageInput{
		Content:  offerSummaryContent,
		Type:     entity.MessageTypeOffer,
		Metadata: &offer,
	})
}

// EditMessage rewrites a message body and marks it edited. Only the sender
// may edit, and tombstoned messages are not editable.
func (uc *MessageUseCase) EditMessage(ctx context.Context, conversationID, messageID, userID, newContent string) (*entity.Message, error) {
	if newContent == "" {
		return nil, errors.BadRequest("Message content is required", nil)
	}

	message, err := uc.conversationRepo.GetMessageByID(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if message.IsDeleted {
		return nil, errors.NotFound("Message", nil)
	}
	if message.SenderID != userID {
		return nil, errors.Forbidden("Only the sender can edit a message", nil)
	}
	if message.Type == entity.MessageTypeOffer {
		return nil, errors.BadRequest("Offer messages cannot be edited", nil)
	}

	isEdited := true
	err = uc.conversationRepo.PatchMessage(ctx, conversationID, messageID, repository.MessagePatch{
		Content:  &newContent,
		IsEdited: &isEdited,
	})
	if err != nil {
		return nil, err
	}

	message.Content = newContent
	message.IsEdited = true

	uc.feed.PublishConversation(ctx, conversationID)

	return message, nil
}

// DeleteMessage tombstones a message. The record stays put, filtered out of
// normal reads; unread counters are not retroactively adjusted. Only the
// sender can delete, and deleting twice is a no-op.
func (uc *MessageUseCase) DeleteMessage(ctx context.Context, conversationID, messageID, userID string) error {
	message, err := uc.conversationRepo.GetMessageByID(ctx, conversationID, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != userID {
		return errors.Forbidden("Only the sender can delete a message", nil)
	}
	if message.IsDeleted {
		return nil
	}

	isDeleted := true
	err = uc.conversationRepo.PatchMessage(ctx, conversationID, messageID, repository.MessagePatch{
		IsDeleted: &isDeleted,
	})
	if err != nil {
		return err
	}

	uc.feed.PublishConversation(ctx, conversationID)
	return nil
}

// ListMessages returns the newest limit messages in chronological order,
// tombstones excluded.
func (uc *MessageUseCase) ListMessages(ctx context.Context, userID, conversationID string, limit int) ([]*entity.Message, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.NotParticipant(userID, conversationID)
	}

	return uc.conversationRepo.ListMessages(ctx, conversationID, limit)
}

// Subscribe attaches a live feed to the conversation. Snapshots follow every
// mutation until the subscription is cancelled.
func (uc *MessageUseCase) Subscribe(ctx context.Context, userID, conversationID string) (*livefeed.Subscription, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.NotParticipant(userID, conversationID)
	}

	return uc.feed.SubscribeConversation(ctx, conversationID)
}

// AcceptOffer flips a pending offer to accepted. Only the recipient may act
// on an offer.
func (uc *MessageUseCase) AcceptOffer(ctx context.Context, conversationID, messageID, userID string) (*entity.Message, error) {
	return uc.resolveOffer(ctx, conversationID, messageID, userID, entity.OfferStatusAccepted)
}

// RejectOffer flips a pending offer to rejected.
func (uc *MessageUseCase) RejectOffer(ctx context.Context, conversationID, messageID, userID string) (*entity.Message, error) {
	return uc.resolveOffer(ctx, conversationID, messageID, userID, entity.OfferStatusRejected)
}

func (uc *MessageUseCase) resolveOffer(ctx context.Context, conversationID, messageID, userID, newStatus string) (*entity.Message, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.NotParticipant(userID, conversationID)
	}

	message, err := uc.conversationRepo.GetMessageByID(ctx, conversationID, messageID)
	if err != nil {
		return nil, err
	}
	if message.IsDeleted || message.Type != entity.MessageTypeOffer || message.Metadata == nil {
		return nil, errors.BadRequest("Message is not an offer", nil)
	}
	if message.Metadata.Status != entity.OfferStatusPending {
		return nil, errors.BadRequest("Offer is not pending", nil)
	}
	if message.SenderID == userID {
		return nil, errors.Forbidden("Only the offer recipient can accept or reject it", nil)
	}

	metadata := *message.Metadata
	metadata.Status = newStatus

	err = uc.conversationRepo.PatchMessage(ctx, conversationID, messageID, repository.MessagePatch{
		Metadata: &metadata,
	})
	if err != nil {
		return nil, err
	}

	message.Metadata = &metadata

	uc.feed.PublishConversation(ctx, conversationID)

	statusText := "Your offer was " + newStatus
	go func() {
		if _, err := uc.notifier.NotifyBarter(context.Background(), message.SenderID, conversationID, statusText); err != nil {
			logger.Warn("Barter notification failed for conversation %s: %v", conversationID, err)
		}
	}()

	return message, nil
}

// dispatchArrivalNotification records the offline copy of a delivered
// message. Best-effort and off the send path: a notification failure never
// fails the send.
func (uc *MessageUseCase) dispatchArrivalNotification(conversation *entity.Conversation, message *entity.Message) {
	recipientID := conversation.OtherParticipant(message.SenderID)
	if recipientID == "" {
		return
	}

	go func() {
		ctx := context.Background()
		var err error
		if message.Type == entity.MessageTypeOffer {
			_, err = uc.notifier.NotifyOffer(ctx, recipientID, message.SenderID, conversation.ID, message.Metadata)
		} else {
			_, err = uc.notifier.NotifyNewMessage(ctx, recipientID, message.SenderID, conversation.ID, message.Content)
		}
		if err != nil {
			logger.Warn("Arrival notification failed for conversation %s: %v", conversation.ID, err)
		}
	}()
}

func validateOfferMetadata(metadata *entity.OfferMetadata) error {
	if metadata == nil {
		return errors.InvalidMetadata("offer messages require offer metadata")
	}
	if metadata.OfferType == "" {
		return errors.InvalidMetadata("offer metadata requires an offer type")
	}
	if metadata.OfferValue <= 0 {
		return errors.InvalidMetadata("offer metadata requires a positive offer value")
	}
	return nil
}

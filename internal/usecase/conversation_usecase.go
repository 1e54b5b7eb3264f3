package usecase

import (
	"context"
	"sort"

	"swapmart/internal/domain/entity"
	"swapmart/internal/domain/repository"
	"swapmart/internal/infrastructure/livefeed"
	"swapmart/internal/infrastructure/ratelimit"
	"swapmart/pkg/errors"
	"swapmart/pkg/logger"
)

// ConversationUseCase owns conversation lifecycle and the unread counters.
// All counter mutations flow through here or through the message pipeline's
// append transaction; nothing else writes those fields.
type ConversationUseCase struct {
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	feed             *livefeed.Publisher
	rateLimiter      *ratelimit.RateLimiter
}

func NewConversationUseCase(
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	feed *livefeed.Publisher,
) *ConversationUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ConversationUseCase{
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		feed:             feed,
		rateLimiter:      rateLimiter,
	}
}

// CreateConversation creates a new active conversation between exactly two
// distinct users. Participants are sorted before storage so lookups are
// order-independent.
//
// Callers are expected to FindConversation first. Two racing creators can
// still both miss and both create; the duplicate-active-conversation artifact
// is accepted eventual-consistency behavior, not silently repaired.
func (uc *ConversationUseCase) CreateConversation(ctx context.Context, participants []string, itemID string) (*entity.Conversation, error) {
	if len(participants) != 2 {
		return nil, errors.InvalidParticipants("a conversation requires exactly two participants")
	}
	if participants[0] == participants[1] {
		return nil, errors.InvalidParticipants("a conversation requires two distinct participants")
	}
	for _, p := range participants {
		if p == "" {
			return nil, errors.InvalidParticipants("participant ids must not be empty")
		}
	}

	sorted := make([]string, 2)
	copy(sorted, participants)
	sort.Strings(sorted)

	conversation := &entity.Conversation{
		Participants: sorted,
		ItemID:       itemID,
		UnreadCount:  map[string]int{sorted[0]: 0, sorted[1]: 0},
		IsActive:     true,
	}

	if err := uc.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, err
	}

	return conversation, nil
}

// FindConversation looks up the active conversation for a participant pair
// and item bucket. The empty itemID is its own bucket.
func (uc *ConversationUseCase) FindConversation(ctx context.Context, participants []string, itemID string) (*entity.Conversation, error) {
	if len(participants) != 2 || participants[0] == participants[1] {
		return nil, errors.InvalidParticipants("a conversation requires exactly two distinct participants")
	}
	return uc.conversationRepo.FindByParticipants(ctx, participants, itemID)
}

// StartConversation is the find-or-create entry point used by the HTTP
// surface: reuse the existing active conversation when one exists, otherwise
// create it.
func (uc *ConversationUseCase) StartConversation(ctx context.Context, userID, recipientID, itemID string) (*entity.Conversation, error) {
	if allowed, _ := uc.rateLimiter.Allow(userID, "start_conversation"); !allowed {
		return nil, errors.TooManyRequests("You are starting conversations too quickly")
	}
	if userID == recipientID {
		return nil, errors.InvalidParticipants("you cannot start a conversation with yourself")
	}

	participants := []string{userID, recipientID}

	existing, err := uc.conversationRepo.FindByParticipants(ctx, participants, itemID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	return uc.CreateConversation(ctx, participants, itemID)
}

// ConversationView decorates a conversation with the counterpart's display
// data for list and detail reads.
type ConversationView struct {
	*entity.Conversation
	OtherUser *entity.User `json:"other_user,omitempty"`
}

func (uc *ConversationUseCase) GetConversation(ctx context.Context, userID, conversationID string) (*ConversationView, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.NotParticipant(userID, conversationID)
	}
	return uc.view(ctx, userID, conversation), nil
}

func (uc *ConversationUseCase) ListConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationView, int64, error) {
	conversations, total, err := uc.conversationRepo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	views := make([]*ConversationView, 0, len(conversations))
	for _, conversation := range conversations {
		views = append(views, uc.view(ctx, userID, conversation))
	}
	return views, total, nil
}

// view resolves the other participant's profile, degrading to a bare
// conversation when identity lookup fails.
func (uc *ConversationUseCase) view(ctx context.Context, userID string, conversation *entity.Conversation) *ConversationView {
	v := &ConversationView{Conversation: conversation}

	otherID := conversation.OtherParticipant(userID)
	if otherID == "" {
		return v
	}

	other, err := uc.userRepo.GetByID(ctx, otherID)
	if err != nil {
		logger.Warn("Failed to resolve user %s for conversation %s: %v", otherID, conversation.ID, err)
		return v
	}
	v.OtherUser = other
	return v
}

// IncrementUnread bumps every participant's counter except the sender's.
// The message pipeline folds this delta into its append transaction; this
// entry point covers counter corrections without an accompanying message.
func (uc *ConversationUseCase) IncrementUnread(ctx context.Context, conversationID, exceptUserID string) error {
	_, err := uc.conversationRepo.IncrementUnread(ctx, conversationID, exceptUserID)
	return err
}

// MarkRead zeroes the caller's unread counter and flags the other party's
// messages read. The counter reset is the authoritative badge value and
// commits first; the per-message flags are best-effort detail whose partial
// failure is logged, never surfaced.
func (uc *ConversationUseCase) MarkRead(ctx context.Context, conversationID, userID string) (*entity.Conversation, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.NotParticipant(userID, conversationID)
	}

	conversation, err = uc.conversationRepo.ResetUnread(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	if _, err := uc.conversationRepo.MarkMessagesRead(ctx, conversationID, userID); err != nil {
		logger.Warn("Read-flag sweep failed for conversation %s: %v", conversationID, err)
	}

	uc.feed.PublishConversation(ctx, conversationID)

	return conversation, nil
}

// ArchiveConversation soft-deletes the conversation. Messages stay in place;
// the thread just stops matching active lookups.
func (uc *ConversationUseCase) ArchiveConversation(ctx context.Context, userID, conversationID string) error {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return errors.NotParticipant(userID, conversationID)
	}

	return uc.conversationRepo.SetActive(ctx, conversationID, false)
}

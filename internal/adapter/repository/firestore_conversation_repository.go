package repository

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"swapmart/internal/domain/entity"
	"swapmart/internal/domain/repository"
	"swapmart/pkg/errors"
	"swapmart/pkg/logger"
)

type firestoreConversationRepository struct {
	client *firestore.Client
}

func NewFirestoreConversationRepository(client *firestore.Client) repository.ConversationRepository {
	return &firestoreConversationRepository{
		client: client,
	}
}

func (r *firestoreConversationRepository) conversations() *firestore.CollectionRef {
	return r.client.Collection("conversations")
}

func (r *firestoreConversationRepository) messages(conversationID string) *firestore.CollectionRef {
	return r.conversations().Doc(conversationID).Collection("messages")
}

func (r *firestoreConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}

	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now

	_, err := r.conversations().Doc(conversation.ID).Set(ctx, conversation)
	if err != nil {
		return mapStoreError("Failed to create conversation", err)
	}

	return nil
}

func (r *firestoreConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	var conversation entity.Conversation

	err := withReadRetry(ctx, func() error {
		doc, err := r.conversations().Doc(id).Get(ctx)
		if err != nil {
			return err
		}
		return doc.DataTo(&conversation)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, mapStoreError("Failed to get conversation", err)
	}

	return &conversation, nil
}

func (r *firestoreConversationRepository) FindByParticipants(ctx context.Context, participants []string, itemID string) (*entity.Conversation, error) {
	sorted := make([]string, len(participants))
	copy(sorted, participants)
	sort.Strings(sorted)

	query := r.conversations().
		Where("participants", "==", sorted).
		Where("itemId", "==", itemID).
		Where("isActive", "==", true).
		Limit(1)

	var conversation entity.Conversation
	err := withReadRetry(ctx, func() error {
		iter := query.Documents(ctx)
		defer iter.Stop()

		doc, err := iter.Next()
		if err != nil {
			return err
		}
		return doc.DataTo(&conversation)
	})
	if err != nil {
		if err == iterator.Done {
			return nil, errors.NotFound("Conversation", nil)
		}
		return nil, mapStoreError("Failed to find conversation", err)
	}

	return &conversation, nil
}

func (r *firestoreConversationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	query := r.conversations().
		Where("participants", "array-contains", userID).
		Where("isActive", "==", true).
		OrderBy("updatedAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, mapStoreError("Failed to list conversations", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var conversations []*entity.Conversation
	for i := start; i < end; i++ {
		var conversation entity.Conversation
		if err := allDocs[i].DataTo(&conversation); err != nil {
			logger.Warn("Skipping malformed conversation document for user %s: %v", userID, err)
			continue
		}
		conversations = append(conversations, &conversation)
	}

	return conversations, total, nil
}

func (r *firestoreConversationRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.conversations().Doc(id).Update(ctx, []firestore.Update{
		{Path: "isActive", Value: active},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Conversation", err)
		}
		return mapStoreError("Failed to update conversation", err)
	}
	return nil
}

// AppendMessage writes the message and the conversation's counter/pointer
// delta inside one transaction. The Firestore client retries the transaction
// on contention; once it gives up the whole unit is rolled back, so no
// message can land with stale counters.
func (r *firestoreConversationRepository) AppendMessage(ctx context.Context, message *entity.Message) (*entity.Message, *entity.Conversation, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	convRef := r.conversations().Doc(message.ConversationID)
	msgRef := r.messages(message.ConversationID).Doc(message.ID)

	var conversation entity.Conversation

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(convRef)
		if err != nil {
			return err
		}
		if err := doc.DataTo(&conversation); err != nil {
			return err
		}

		// Clock authority is this service, never the caller; seq makes the
		// order total under identical timestamps.
		now := time.Now()
		message.CreatedAt = now
		message.Seq = conversation.MessageSeq + 1

		if conversation.UnreadCount == nil {
			conversation.UnreadCount = make(map[string]int)
		}
		for _, participantID := range conversation.Participants {
			if participantID != message.SenderID {
				conversation.UnreadCount[participantID]++
			}
		}

		conversation.MessageSeq = message.Seq
		conversation.LastMessage = message.Summary()
		conversation.Version++
		conversation.UpdatedAt = now

		if err := tx.Set(msgRef, message); err != nil {
			return err
		}
		return tx.Set(convRef, &conversation)
	})
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound:
			return nil, nil, errors.NotFound("Conversation", err)
		case codes.Aborted:
			return nil, nil, errors.ConflictRetryExhausted("Gave up appending message after repeated conflicts", err)
		}
		return nil, nil, mapStoreError("Failed to append message", err)
	}

	return message, &conversation, nil
}

func (r *firestoreConversationRepository) IncrementUnread(ctx context.Context, conversationID, exceptUserID string) (*entity.Conversation, error) {
	convRef := r.conversations().Doc(conversationID)

	var conversation entity.Conversation

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(convRef)
		if err != nil {
			return err
		}
		if err := doc.DataTo(&conversation); err != nil {
			return err
		}

		if conversation.UnreadCount == nil {
			conversation.UnreadCount = make(map[string]int)
		}
		for _, participantID := range conversation.Participants {
			if participantID != exceptUserID {
				conversation.UnreadCount[participantID]++
			}
		}
		conversation.Version++
		conversation.UpdatedAt = time.Now()

		return tx.Set(convRef, &conversation)
	})
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound:
			return nil, errors.NotFound("Conversation", err)
		case codes.Aborted:
			return nil, errors.ConflictRetryExhausted("Gave up incrementing unread counters after repeated conflicts", err)
		}
		return nil, mapStoreError("Failed to increment unread counters", err)
	}

	return &conversation, nil
}

func (r *firestoreConversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) (*entity.Conversation, error) {
	convRef := r.conversations().Doc(conversationID)

	var conversation entity.Conversation

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(convRef)
		if err != nil {
			return err
		}
		if err := doc.DataTo(&conversation); err != nil {
			return err
		}

		if conversation.UnreadCount == nil {
			conversation.UnreadCount = make(map[string]int)
		}
		conversation.UnreadCount[userID] = 0
		conversation.Version++
		conversation.UpdatedAt = time.Now()

		return tx.Set(convRef, &conversation)
	})
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound:
			return nil, errors.NotFound("Conversation", err)
		case codes.Aborted:
			return nil, errors.ConflictRetryExhausted("Gave up resetting unread counter after repeated conflicts", err)
		}
		return nil, mapStoreError("Failed to reset unread counter", err)
	}

	return &conversation, nil
}

func (r *firestoreConversationRepository) GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	var message entity.Message

	err := withReadRetry(ctx, func() error {
		doc, err := r.messages(conversationID).Doc(messageID).Get(ctx)
		if err != nil {
			return err
		}
		return doc.DataTo(&message)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, mapStoreError("Failed to get message", err)
	}

	return &message, nil
}

// ListMessages reads the newest window descending, then reverses so the
// caller receives chronological order.
func (r *firestoreConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	query := r.messages(conversationID).
		Where("isDeleted", "==", false).
		OrderBy("createdAt", firestore.Desc).
		OrderBy("seq", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []*entity.Message
	err := withReadRetry(ctx, func() error {
		messages = messages[:0]

		iter := query.Documents(ctx)
		defer iter.Stop()

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return err
			}

			var message entity.Message
			if err := doc.DataTo(&message); err != nil {
				return err
			}
			messages = append(messages, &message)
		}
		return nil
	})
	if err != nil {
		return nil, mapStoreError("Failed to list messages", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *firestoreConversationRepository) PatchMessage(ctx context.Context, conversationID, messageID string, patch repository.MessagePatch) error {
	updates := messagePatchUpdates(patch)
	if len(updates) == 0 {
		return nil
	}

	_, err := r.messages(conversationID).Doc(messageID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Message", err)
		}
		return mapStoreError("Failed to patch message", err)
	}
	return nil
}

func (r *firestoreConversationRepository) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int, error) {
	iter := r.messages(conversationID).Where("isRead", "==", false).Documents(ctx)
	defer iter.Stop()

	flipped := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return flipped, mapStoreError("Failed to scan unread messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message document in conversation %s: %v", conversationID, err)
			continue
		}
		if message.SenderID == readerID {
			continue
		}

		if _, err := doc.Ref.Update(ctx, []firestore.Update{{Path: "isRead", Value: true}}); err != nil {
			// Per-message flags are best-effort; the counter reset already
			// committed.
			logger.Warn("Failed to flag message %s read in conversation %s: %v", message.ID, conversationID, err)
			continue
		}
		flipped++
	}

	return flipped, nil
}

func messagePatchUpdates(patch repository.MessagePatch) []firestore.Update {
	var updates []firestore.Update
	if patch.Content != nil {
		updates = append(updates, firestore.Update{Path: "content", Value: *patch.Content})
	}
	if patch.IsRead != nil {
		updates = append(updates, firestore.Update{Path: "isRead", Value: *patch.IsRead})
	}
	if patch.IsEdited != nil {
		updates = append(updates, firestore.Update{Path: "isEdited", Value: *patch.IsEdited})
	}
	if patch.IsDeleted != nil {
		updates = append(updates, firestore.Update{Path: "isDeleted", Value: *patch.IsDeleted})
	}
	if patch.Metadata != nil {
		updates = append(updates, firestore.Update{Path: "metadata", Value: patch.Metadata})
	}
	return updates
}

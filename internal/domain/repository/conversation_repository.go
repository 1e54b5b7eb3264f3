package repository

import (
	"context"

	"swapmart/internal/domain/entity"
)

// MessagePatch is a field-level update request for a message. A nil field is
// left untouched; a non-nil field is written as-is.
type MessagePatch struct {
	Content   *string
	IsRead    *bool
	IsEdited  *bool
	IsDeleted *bool
	Metadata  *entity.OfferMetadata
}

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)

	// FindByParticipants matches the sorted participant pair, itemID and
	// isActive=true. itemID "" is its own bucket.
	FindByParticipants(ctx context.Context, participants []string, itemID string) (*entity.Conversation, error)

	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error)
	SetActive(ctx context.Context, id string, active bool) error

	// AppendMessage appends the message and applies the unread/last-message
	// delta to the owning conversation in one transaction, so a reader never
	// observes the incremented counters without the message. The store assigns
	// ID, CreatedAt and Seq.
	AppendMessage(ctx context.Context, message *entity.Message) (*entity.Message, *entity.Conversation, error)

	// IncrementUnread bumps the counter of every participant except
	// exceptUserID under the conversation's revision guard. AppendMessage
	// folds the same delta into its own transaction; this standalone form
	// serves counter corrections that carry no message.
	IncrementUnread(ctx context.Context, conversationID, exceptUserID string) (*entity.Conversation, error)

	// ResetUnread zeroes the caller's unread counter. Together with
	// AppendMessage and IncrementUnread it is the only write path for that
	// field.
	ResetUnread(ctx context.Context, conversationID, userID string) (*entity.Conversation, error)

	GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error)

	// ListMessages returns the newest limit non-deleted messages in ascending
	// (createdAt, seq) order. limit <= 0 means no cap.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error)

	PatchMessage(ctx context.Context, conversationID, messageID string, patch MessagePatch) error

	// MarkMessagesRead flips isRead on unread messages not sent by readerID.
	// Best-effort detail behind the authoritative unread counter.
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int, error)
}

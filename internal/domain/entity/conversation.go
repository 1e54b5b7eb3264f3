package entity

import "time"

// MessageSummary is the denormalized last-message pointer kept on a
// conversation so list views never fan out into the messages subcollection.
type MessageSummary struct {
	Content   string    `json:"content" firestore:"content"`
	Type      string    `json:"type" firestore:"type"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

// Conversation is the thread between exactly two users, optionally scoped to
// one marketplace item. Participants are stored sorted so lookups are a plain
// equality match.
type Conversation struct {
	ID           string          `json:"id" firestore:"id"`
	Participants []string        `json:"participants" firestore:"participants"`
	ItemID       string          `json:"item_id,omitempty" firestore:"itemId"`
	LastMessage  *MessageSummary `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	UnreadCount  map[string]int  `json:"unread_count" firestore:"unreadCount"`
	IsActive     bool            `json:"is_active" firestore:"isActive"`

	// MessageSeq is the per-conversation insertion counter; it advances inside
	// the same transaction that appends a message, so (CreatedAt, Seq) gives a
	// total order even when sender clocks collide.
	MessageSeq int64 `json:"-" firestore:"messageSeq"`

	// Version gates conditional writes to the unread counters and last-message
	// pointer.
	Version int64 `json:"-" firestore:"version"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID. Empty when
// userID is not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

package entity

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
	MessageTypeOffer = "offer"
)

const (
	OfferStatusPending  = "pending"
	OfferStatusAccepted = "accepted"
	OfferStatusRejected = "rejected"
)

// OfferMetadata is the structured payload carried by offer messages.
type OfferMetadata struct {
	OfferType     string     `json:"offer_type" firestore:"offerType"`
	OfferValue    float64    `json:"offer_value" firestore:"offerValue"`
	OfferedPrice  float64    `json:"offered_price,omitempty" firestore:"offeredPrice,omitempty"`
	OriginalPrice float64    `json:"original_price,omitempty" firestore:"originalPrice,omitempty"`
	OfferItems    []string   `json:"offer_items,omitempty" firestore:"offerItems,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty" firestore:"expiresAt,omitempty"`
	Status        string     `json:"status" firestore:"status"`
}

type Message struct {
	ID             string         `json:"id" firestore:"id"`
	ConversationID string         `json:"conversation_id" firestore:"conversationId"`
	SenderID       string         `json:"sender_id" firestore:"senderId"`
	Type           string         `json:"type" firestore:"type"`
	Content        string         `json:"content" firestore:"content"`
	Metadata       *OfferMetadata `json:"metadata,omitempty" firestore:"metadata,omitempty"`

	// Seq is assigned transactionally from the conversation's insertion
	// counter and breaks CreatedAt ties.
	Seq int64 `json:"seq" firestore:"seq"`

	IsRead    bool `json:"is_read" firestore:"isRead"`
	IsEdited  bool `json:"is_edited" firestore:"isEdited"`
	IsDeleted bool `json:"is_deleted" firestore:"isDeleted"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

// Summary projects the message into the denormalized pointer stored on its
// conversation.
func (m *Message) Summary() *MessageSummary {
	return &MessageSummary{
		Content:   m.Content,
		Type:      m.Type,
		SenderID:  m.SenderID,
		CreatedAt: m.CreatedAt,
	}
}

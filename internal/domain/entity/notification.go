package entity

import "time"

const (
	NotificationTypeMessage     = "message"
	NotificationTypeOffer       = "offer"
	NotificationTypeSystem      = "system"
	NotificationTypeTransaction = "transaction"
	NotificationTypeBarter      = "barter"
)

const (
	NotificationPriorityLow    = "low"
	NotificationPriorityNormal = "normal"
	NotificationPriorityHigh   = "high"
	NotificationPriorityUrgent = "urgent"
)

// Notification is a single-recipient feed record. Broadcasts are modeled as N
// independent records, never as one record with many recipients.
type Notification struct {
	ID           string                 `json:"id" firestore:"id"`
	UserID       string                 `json:"user_id" firestore:"userId"`
	Type         string                 `json:"type" firestore:"type"`
	Title        string                 `json:"title" firestore:"title"`
	Message      string                 `json:"message" firestore:"message"`
	Data         map[string]interface{} `json:"data,omitempty" firestore:"data,omitempty"`
	IsRead       bool                   `json:"is_read" firestore:"isRead"`
	IsDeleted    bool                   `json:"is_deleted" firestore:"isDeleted"`
	IsActionable bool                   `json:"is_actionable" firestore:"isActionable"`
	ActionURL    string                 `json:"action_url,omitempty" firestore:"actionUrl,omitempty"`
	Priority     string                 `json:"priority" firestore:"priority"`
	CreatedAt    time.Time              `json:"created_at" firestore:"createdAt"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty" firestore:"expiresAt,omitempty"`
}

// Expired reports whether the record is past its expiry at the given instant.
// Records without an expiry never expire.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && n.ExpiresAt.Before(now)
}

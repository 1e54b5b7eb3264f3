package repository

import (
	"context"
	"time"

	"swapmart/internal/domain/entity"
)

// NotificationPatch is a field-level update request for a notification.
// Records are only ever mutated to flip read or deleted flags.
type NotificationPatch struct {
	IsRead    *bool
	IsDeleted *bool
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByID(ctx context.Context, id string) (*entity.Notification, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	Patch(ctx context.Context, id string, patch NotificationPatch) error

	// MarkAllRead flips every record unread as of the read snapshot. Returns
	// the number flipped.
	MarkAllRead(ctx context.Context, userID string) (int, error)

	// SoftDeleteExpired tombstones records with expiresAt before now, skipping
	// ones already deleted, and returns the count it flipped.
	SoftDeleteExpired(ctx context.Context, now time.Time) (int, error)
}

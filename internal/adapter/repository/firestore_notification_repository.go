package repository

import (
	"context"
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

type firestoreNotificationRepository struct {
	client *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) repository.NotificationRepository {
	return &firestoreNotificationRepository{
		client: client,
	}
}

func (r *firestoreNotificationRepository) notifications() *firestore.CollectionRef {
	return r.client.Collection("notifications")
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	notification.CreatedAt = time.Now()

	_, err := r.notifications().Doc(notification.ID).Set(ctx, notification)
	if err != nil {
		return mapStoreError("Failed to create notification", err)
	}

	return nil
}

func (r *firestoreNotificationRepository) GetByID(ctx context.Context, id string) (*entity.Notification, error) {
	var notification entity.Notification

	err := withReadRetry(ctx, func() error {
		doc, err := r.notifications().Doc(id).Get(ctx)
		if err != nil {
			return err
		}
		return doc.DataTo(&notification)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Notification", err)
		}
		return nil, mapStoreError("Failed to get notification", err)
	}

	// Tombstoned records read as gone, same as the list queries.
	if notification.IsDeleted {
		return nil, errors.NotFound("Notification", nil)
	}

	return &notification, nil
}

func (r *firestoreNotificationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, int64, error) {
	query := r.notifications().
		Where("userId", "==", userID).
		Where("isDeleted", "==", false).
		OrderBy("createdAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, mapStoreError("Failed to list notifications", err)
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

	var notifications []*entity.Notification
	for i := start; i < end; i++ {
		var notification entity.Notification
		if err := allDocs[i].DataTo(&notification); err != nil {
			logger.Warn("Skipping malformed notification document for user %s: %v", userID, err)
			continue
		}
		notifications = append(notifications, &notification)
	}

	return notifications, total, nil
}

func (r *firestoreNotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	query := r.notifications().
		Where("userId", "==", userID).
		Where("isRead", "==", false).
		Where("isDeleted", "==", false)

	count := 0
	err := withReadRetry(ctx, func() error {
		count = 0

		iter := query.Documents(ctx)
		defer iter.Stop()

		for {
			_, err := iter.Next()
			if err == iterator.Done {
				return nil
			}
			if err != nil {
				return err
			}
			count++
		}
	})
	if err != nil {
		return 0, mapStoreError("Failed to count unread notifications", err)
	}

	return count, nil
}

func (r *firestoreNotificationRepository) Patch(ctx context.Context, id string, patch repository.NotificationPatch) error {
	var updates []firestore.Update
	if patch.IsRead != nil {
		updates = append(updates, firestore.Update{Path: "isRead", Value: *patch.IsRead})
	}
	if patch.IsDeleted != nil {
		updates = append(updates, firestore.Update{Path: "isDeleted", Value: *patch.IsDeleted})
	}
	if len(updates) == 0 {
		return nil
	}

	_, err := r.notifications().Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Notification", err)
		}
		return mapStoreError("Failed to patch notification", err)
	}
	return nil
}

// MarkAllRead flips the records unread as of this scan. Notifications created
// while the loop runs are deliberately not chased.
func (r *firestoreNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	iter := r.notifications().
		Where("userId", "==", userID).
		Where("isRead", "==", false).
		Where("isDeleted", "==", false).
		Documents(ctx)
	defer iter.Stop()

	flipped := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return flipped, mapStoreError("Failed to scan unread notifications", err)
		}

		if _, err := doc.Ref.Update(ctx, []firestore.Update{{Path: "isRead", Value: true}}); err != nil {
			logger.Warn("Failed to mark notification %s read: %v", doc.Ref.ID, err)
			continue
		}
		flipped++
	}

	return flipped, nil
}

func (r *firestoreNotificationRepository) SoftDeleteExpired(ctx context.Context, now time.Time) (int, error) {
	iter := r.notifications().
		Where("expiresAt", "<", now).
		Where("isDeleted", "==", false).
		Documents(ctx)
	defer iter.Stop()

	deleted := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, mapStoreError("Failed to scan expired notifications", err)
		}

		if _, err := doc.Ref.Update(ctx, []firestore.Update{{Path: "isDeleted", Value: true}}); err != nil {
			logger.Warn("Failed to soft-delete expired notification %s: %v", doc.Ref.ID, err)
			continue
		}
		deleted++
	}

	return deleted, nil
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"swapmart/internal/domain/entity"
	"swapmart/internal/domain/repository"
	"swapmart/internal/infrastructure/livefeed"
	"swapmart/pkg/errors"
	"swapmart/pkg/logger"
)

// NotificationUseCase builds and stores notification records for marketplace
// events. The typed builders are thin constructors over Notify that fix the
// title/message templates and action URL shape; none of them is a separate
// state machine.
type NotificationUseCase struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	feed             *livefeed.Publisher
}

func NewNotificationUseCase(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	feed *livefeed.Publisher,
) *NotificationUseCase {
	return &NotificationUseCase{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		feed:             feed,
	}
}

type NotifyInput struct {
	Title        string
	Message      string
	Data         map[string]interface{}
	IsActionable bool
	ActionURL    string
	Priority     string
	ExpiresAt    *time.Time
}

// Notify constructs and inserts one record for one recipient. Broadcasts are
// N independent Notify calls. The only failure mode is the store itself.
func (uc *NotificationUseCase) Notify(ctx context.Context, userID, notificationType string, input NotifyInput) (*entity.Notification, error) {
	priority := input.Priority
	if priority == "" {
		priority = entity.NotificationPriorityNormal
	}

	notification := &entity.Notification{
		UserID:       userID,
		Type:         notificationType,
		Title:        input.Title,
		Message:      input.Message,
		Data:         input.Data,
		IsActionable: input.IsActionable,
		ActionURL:    input.ActionURL,
		Priority:     priority,
		ExpiresAt:    input.ExpiresAt,
	}

	if err := uc.notificationRepo.Create(ctx, notification); err != nil {
		return nil, err
	}

	uc.feed.PublishNotifications(ctx, userID)

	return notification, nil
}

// NotifyNewMessage records a message-arrival notification for the recipient.
// Independent of the live feed's own delivery: this is the offline/other-
// surface copy.
func (uc *NotificationUseCase) NotifyNewMessage(ctx context.Context, recipientID, senderID, conversationID, preview string) (*entity.Notification, error) {
	sender := uc.displayName(ctx, senderID)

	return uc.Notify(ctx, recipientID, entity.NotificationTypeMessage, NotifyInput{
		Title:   fmt.Sprintf("New message from %s", sender),
		Message: preview,
		Data: map[string]interface{}{
			"conversation_id": conversationID,
			"sender_id":       senderID,
		},
		IsActionable: true,
		ActionURL:    fmt.Sprintf("/conversations/%s", conversationID),
	})
}

func (uc *NotificationUseCase) NotifyOffer(ctx context.Context, recipientID, senderID, conversationID string, offer *entity.OfferMetadata) (*entity.Notification, error) {
	sender := uc.displayName(ctx, senderID)

	data := map[string]interface{}{
		"conversation_id": conversationID,
		"sender_id":       senderID,
	}
	if offer != nil {
		data["offer_type"] = offer.OfferType
		data["offer_value"] = offer.OfferValue
	}

	return uc.Notify(ctx, recipientID, entity.NotificationTypeOffer, NotifyInput{
		Title:        fmt.Sprintf("%s made you an offer", sender),
		Message:      "Open the conversation to review the offer",
		Data:         data,
		IsActionable: true,
		ActionURL:    fmt.Sprintf("/conversations/%s", conversationID),
		Priority:     entity.NotificationPriorityHigh,
	})
}

func (uc *NotificationUseCase) NotifySystem(ctx context.Context, userID, title, message string, expiresAt *time.Time) (*entity.Notification, error) {
	return uc.Notify(ctx, userID, entity.NotificationTypeSystem, NotifyInput{
		Title:     title,
		Message:   message,
		ExpiresAt: expiresAt,
	})
}

func (uc *NotificationUseCase) NotifyTransaction(ctx context.Context, userID, orderID, statusText string) (*entity.Notification, error) {
	return uc.Notify(ctx, userID, entity.NotificationTypeTransaction, NotifyInput{
		Title:   "Order update",
		Message: statusText,
		Data: map[string]interface{}{
			"order_id": orderID,
		},
		IsActionable: true,
		ActionURL:    fmt.Sprintf("/orders/%s", orderID),
	})
}

func (uc *NotificationUseCase) NotifyBarter(ctx context.Context, userID, conversationID, statusText string) (*entity.Notification, error) {
	return uc.Notify(ctx, userID, entity.NotificationTypeBarter, NotifyInput{
		Title:   "Barter update",
		Message: statusText,
		Data: map[string]interface{}{
			"conversation_id": conversationID,
		},
		IsActionable: true,
		ActionURL:    fmt.Sprintf("/conversations/%s", conversationID),
		Priority:     entity.NotificationPriorityHigh,
	})
}

func (uc *NotificationUseCase) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, int64, error) {
	return uc.notificationRepo.ListByUserID(ctx, userID, limit, offset)
}

func (uc *NotificationUseCase) UnreadCount(ctx context.Context, userID string) (int, error) {
	return uc.notificationRepo.CountUnread(ctx, userID)
}

func (uc *NotificationUseCase) MarkRead(ctx context.Context, userID, notificationID string) error {
	notification, err := uc.notificationRepo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return errors.Forbidden("Notification belongs to another user", nil)
	}

	isRead := true
	if err := uc.notificationRepo.Patch(ctx, notificationID, repository.NotificationPatch{IsRead: &isRead}); err != nil {
		return err
	}

	uc.feed.PublishNotifications(ctx, userID)
	return nil
}

// MarkAllRead flips every record unread as of the read snapshot. Records
// arriving while the sweep runs are not chased; the next call catches them.
func (uc *NotificationUseCase) MarkAllRead(ctx context.Context, userID string) (int, error) {
	flipped, err := uc.notificationRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return flipped, err
	}

	uc.feed.PublishNotifications(ctx, userID)
	return flipped, nil
}

func (uc *NotificationUseCase) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	notification, err := uc.notificationRepo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return errors.Forbidden("Notification belongs to another user", nil)
	}

	isDeleted := true
	if err := uc.notificationRepo.Patch(ctx, notificationID, repository.NotificationPatch{IsDeleted: &isDeleted}); err != nil {
		return err
	}

	uc.feed.PublishNotifications(ctx, userID)
	return nil
}

// CleanupExpired tombstones past-expiry records. Idempotent per record, so
// overlapping runs are harmless and a second pass over the same data reports
// zero.
func (uc *NotificationUseCase) CleanupExpired(ctx context.Context) (int, error) {
	return uc.notificationRepo.SoftDeleteExpired(ctx, time.Now())
}

// StartCleanupJob runs CleanupExpired on a ticker until the context ends.
func (uc *NotificationUseCase) StartCleanupJob(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				count, err := uc.CleanupExpired(ctx)
				if err != nil {
					logger.Error("Notification cleanup failed: %v", err)
					continue
				}
				if count > 0 {
					logger.Info("Notification cleanup removed %d expired records", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Subscribe attaches a live feed to the user's notification set.
func (uc *NotificationUseCase) Subscribe(ctx context.Context, userID string) (*livefeed.Subscription, error) {
	return uc.feed.SubscribeNotifications(ctx, userID)
}

// displayName resolves a user id to a human-readable name, degrading to the
// raw id. Identity failures never block delivery.
func (uc *NotificationUseCase) displayName(ctx context.Context, userID string) string {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil || user.Username == "" {
		return userID
	}
	return user.Username
}

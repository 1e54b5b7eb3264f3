package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapmart/internal/domain/entity"
	"swapmart/pkg/errors"
)

func newNotificationFixture(users ...*entity.User) (*NotificationUseCase, *fakeNotificationRepo) {
	conversationRepo := newFakeConversationRepo()
	notificationRepo := newFakeNotificationRepo()
	feed := newTestFeed(conversationRepo, notificationRepo)
	uc := NewNotificationUseCase(notificationRepo, newFakeUserRepo(users...), feed)
	return uc, notificationRepo
}

func TestNotifyDefaults(t *testing.T) {
	uc, _ := newNotificationFixture()

	notification, err := uc.Notify(context.Background(), "alice", entity.NotificationTypeSystem, NotifyInput{
		Title:   "Maintenance",
		Message: "Back at noon",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, notification.ID)
	assert.Equal(t, "alice", notification.UserID)
	assert.Equal(t, entity.NotificationPriorityNormal, notification.Priority)
	assert.False(t, notification.IsRead)
	assert.False(t, notification.CreatedAt.IsZero())
}

func TestNotifyNewMessageResolvesSenderName(t *testing.T) {
	uc, _ := newNotificationFixture(&entity.User{ID: "bob", Username: "Bob"})

	notification, err := uc.NotifyNewMessage(context.Background(), "alice", "bob", "conv-1", "see you at 5")
	require.NoError(t, err)

	assert.Equal(t, entity.NotificationTypeMessage, notification.Type)
	assert.Equal(t, "New message from Bob", notification.Title)
	assert.Equal(t, "see you at 5", notification.Message)
	assert.True(t, notification.IsActionable)
	assert.Equal(t, "/conversations/conv-1", notification.ActionURL)
	assert.Equal(t, "conv-1", notification.Data["conversation_id"])
}

func TestNotifyNewMessageFallsBackToRawID(t *testing.T) {
	uc, _ := newNotificationFixture()

	notification, err := uc.NotifyNewMessage(context.Background(), "alice", "ghost-user", "conv-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "New message from ghost-user", notification.Title)
}

func TestNotifyOffer(t *testing.T) {
	uc, _ := newNotificationFixture(&entity.User{ID: "bob", Username: "Bob"})

	notification, err := uc.NotifyOffer(context.Background(), "alice", "bob", "conv-1", &entity.OfferMetadata{
		OfferType:  "money",
		OfferValue: 500,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.NotificationTypeOffer, notification.Type)
	assert.Equal(t, entity.NotificationPriorityHigh, notification.Priority)
	assert.Equal(t, "money", notification.Data["offer_type"])
	assert.EqualValues(t, 500, notification.Data["offer_value"])
}

func TestNotifyTransactionAndBarter(t *testing.T) {
	uc, _ := newNotificationFixture()
	ctx := context.Background()

	txn, err := uc.NotifyTransaction(ctx, "alice", "order-7", "Your order shipped")
	require.NoError(t, err)
	assert.Equal(t, "/orders/order-7", txn.ActionURL)
	assert.Equal(t, "order-7", txn.Data["order_id"])

	barter, err := uc.NotifyBarter(ctx, "alice", "conv-3", "Your offer was accepted")
	require.NoError(t, err)
	assert.Equal(t, "/conversations/conv-3", barter.ActionURL)
	assert.Equal(t, entity.NotificationPriorityHigh, barter.Priority)
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	uc, _ := newNotificationFixture()
	ctx := context.Background()

	first, err := uc.NotifySystem(ctx, "alice", "One", "first", nil)
	require.NoError(t, err)
	_, err = uc.NotifySystem(ctx, "alice", "Two", "second", nil)
	require.NoError(t, err)
	_, err = uc.NotifySystem(ctx, "bob", "Other", "not alice's", nil)
	require.NoError(t, err)

	count, err := uc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, uc.MarkRead(ctx, "alice", first.ID))

	count, err = uc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkReadOwnership(t *testing.T) {
	uc, _ := newNotificationFixture()
	ctx := context.Background()

	notification, err := uc.NotifySystem(ctx, "alice", "Private", "alice only", nil)
	require.NoError(t, err)

	err = uc.MarkRead(ctx, "bob", notification.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	err = uc.MarkRead(ctx, "alice", "missing-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestMarkAllRead(t *testing.T) {
	uc, _ := newNotificationFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := uc.NotifySystem(ctx, "alice", "Batch", "item", nil)
		require.NoError(t, err)
	}

	flipped, err := uc.MarkAllRead(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, flipped)

	// Everything already read; the second sweep finds nothing.
	flipped, err = uc.MarkAllRead(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, flipped)
}

func TestDeleteNotification(t *testing.T) {
	uc, _ := newNotificationFixture()
	ctx := context.Background()

	notification, err := uc.NotifySystem(ctx, "alice", "Temp", "to delete", nil)
	require.NoError(t, err)

	err = uc.DeleteNotification(ctx, "bob", notification.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	require.NoError(t, uc.DeleteNotification(ctx, "alice", notification.ID))

	listed, total, err := uc.ListNotifications(ctx, "alice", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, listed)

	// A tombstoned notification reads as gone everywhere, not just in lists.
	err = uc.MarkRead(ctx, "alice", notification.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))

	err = uc.DeleteNotification(ctx, "alice", notification.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestCleanupExpired(t *testing.T) {
	uc, repo := newNotificationFixture()
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	_, err := uc.NotifySystem(ctx, "alice", "Stale", "expired", &past)
	require.NoError(t, err)
	_, err = uc.NotifySystem(ctx, "alice", "Fresh", "still valid", &future)
	require.NoError(t, err)
	_, err = uc.NotifySystem(ctx, "alice", "Forever", "no expiry", nil)
	require.NoError(t, err)

	removed, err := uc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Idempotent: a second pass over the same data reports zero.
	removed, err = uc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	listed, _, err := repo.ListByUserID(ctx, "alice", 10, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestListNotificationsPagination(t *testing.T) {
	uc, _ := newNotificationFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := uc.NotifySystem(ctx, "alice", "Page", "item", nil)
		require.NoError(t, err)
	}

	page, total, err := uc.ListNotifications(ctx, "alice", 2, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page, 2)

	tail, _, err := uc.ListNotifications(ctx, "alice", 2, 4)
	require.NoError(t, err)
	assert.Len(t, tail, 1)
}

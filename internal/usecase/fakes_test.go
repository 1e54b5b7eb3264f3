package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"swapmart/internal/domain/entity"
	"swapmart/internal/domain/repository"
	"swapmart/internal/infrastructure/livefeed"
	"swapmart/pkg/errors"
)

// fakeConversationRepo is an in-memory ConversationRepository. Mutations run
// under one lock, mirroring the transactional guarantees of the real store.
type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	nextID        int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
	}
}

func (r *fakeConversationRepo) Create(ctx context.Context, conversation *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	conversation.ID = fmt.Sprintf("conv-%d", r.nextID)
	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now

	stored := *conversation
	r.conversations[conversation.ID] = &stored
	return nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(id)
}

func (r *fakeConversationRepo) getLocked(id string) (*entity.Conversation, error) {
	conversation, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	clone := *conversation
	clone.UnreadCount = copyCounts(conversation.UnreadCount)
	return &clone, nil
}

func (r *fakeConversationRepo) FindByParticipants(ctx context.Context, participants []string, itemID string) (*entity.Conversation, error) {
	sorted := make([]string, len(participants))
	copy(sorted, participants)
	sort.Strings(sorted)

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, conversation := range r.conversations {
		if !conversation.IsActive || conversation.ItemID != itemID {
			continue
		}
		if len(conversation.Participants) == len(sorted) &&
			conversation.Participants[0] == sorted[0] &&
			conversation.Participants[1] == sorted[1] {
			return r.getLocked(id)
		}
	}
	return nil, errors.NotFound("Conversation", nil)
}

func (r *fakeConversationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*entity.Conversation
	for id, conversation := range r.conversations {
		if conversation.IsActive && conversation.HasParticipant(userID) {
			clone, _ := r.getLocked(id)
			matched = append(matched, clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeConversationRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.conversations[id]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	conversation.IsActive = active
	conversation.UpdatedAt = time.Now()
	return nil
}

func (r *fakeConversationRepo) AppendMessage(ctx context.Context, message *entity.Message) (*entity.Message, *entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.conversations[message.ConversationID]
	if !ok {
		return nil, nil, errors.NotFound("Conversation", nil)
	}

	now := time.Now()
	conversation.MessageSeq++
	conversation.Version++
	conversation.UpdatedAt = now

	stored := *message
	stored.ID = fmt.Sprintf("msg-%d", conversation.MessageSeq)
	stored.Seq = conversation.MessageSeq
	stored.CreatedAt = now

	for _, p := range conversation.Participants {
		if p != message.SenderID {
			conversation.UnreadCount[p]++
		}
	}
	conversation.LastMessage = stored.Summary()

	r.messages[message.ConversationID] = append(r.messages[message.ConversationID], &stored)

	result := stored
	convClone, _ := r.getLocked(conversation.ID)
	return &result, convClone, nil
}

func (r *fakeConversationRepo) IncrementUnread(ctx context.Context, conversationID, exceptUserID string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.conversations[conversationID]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	for _, p := range conversation.Participants {
		if p != exceptUserID {
			conversation.UnreadCount[p]++
		}
	}
	conversation.Version++
	conversation.UpdatedAt = time.Now()
	return r.getLocked(conversationID)
}

func (r *fakeConversationRepo) ResetUnread(ctx context.Context, conversationID, userID string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversation, ok := r.conversations[conversationID]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	conversation.UnreadCount[userID] = 0
	conversation.Version++
	conversation.UpdatedAt = time.Now()
	return r.getLocked(conversationID)
}

func (r *fakeConversationRepo) GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, message := range r.messages[conversationID] {
		if message.ID == messageID {
			clone := *message
			return &clone, nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}

func (r *fakeConversationRepo) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var visible []*entity.Message
	for _, message := range r.messages[conversationID] {
		if !message.IsDeleted {
			clone := *message
			visible = append(visible, &clone)
		}
	}
	sort.Slice(visible, func(i, j int) bool {
		if visible[i].CreatedAt.Equal(visible[j].CreatedAt) {
			return visible[i].Seq < visible[j].Seq
		}
		return visible[i].CreatedAt.Before(visible[j].CreatedAt)
	})

	if limit > 0 && len(visible) > limit {
		visible = visible[len(visible)-limit:]
	}
	return visible, nil
}

func (r *fakeConversationRepo) PatchMessage(ctx context.Context, conversationID, messageID string, patch repository.MessagePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, message := range r.messages[conversationID] {
		if message.ID != messageID {
			continue
		}
		if patch.Content != nil {
			message.Content = *patch.Content
		}
		if patch.IsRead != nil {
			message.IsRead = *patch.IsRead
		}
		if patch.IsEdited != nil {
			message.IsEdited = *patch.IsEdited
		}
		if patch.IsDeleted != nil {
			message.IsDeleted = *patch.IsDeleted
		}
		if patch.Metadata != nil {
			clone := *patch.Metadata
			message.Metadata = &clone
		}
		return nil
	}
	return errors.NotFound("Message", nil)
}

func (r *fakeConversationRepo) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flipped := 0
	for _, message := range r.messages[conversationID] {
		if message.SenderID != readerID && !message.IsRead {
			message.IsRead = true
			flipped++
		}
	}
	return flipped, nil
}

func copyCounts(counts map[string]int) map[string]int {
	clone := make(map[string]int, len(counts))
	for k, v := range counts {
		clone[k] = v
	}
	return clone
}

// fakeNotificationRepo is an in-memory NotificationRepository.
type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications []*entity.Notification
	nextID        int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	notification.ID = fmt.Sprintf("notif-%d", r.nextID)
	notification.CreatedAt = time.Now()

	stored := *notification
	r.notifications = append(r.notifications, &stored)
	return nil
}

func (r *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, notification := range r.notifications {
		if notification.ID == id && !notification.IsDeleted {
			clone := *notification
			return &clone, nil
		}
	}
	return nil, errors.NotFound("Notification", nil)
}

func (r *fakeNotificationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*entity.Notification
	for _, notification := range r.notifications {
		if notification.UserID == userID && !notification.IsDeleted {
			clone := *notification
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, notification := range r.notifications {
		if notification.UserID == userID && !notification.IsRead && !notification.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) Patch(ctx context.Context, id string, patch repository.NotificationPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, notification := range r.notifications {
		if notification.ID != id {
			continue
		}
		if patch.IsRead != nil {
			notification.IsRead = *patch.IsRead
		}
		if patch.IsDeleted != nil {
			notification.IsDeleted = *patch.IsDeleted
		}
		return nil
	}
	return errors.NotFound("Notification", nil)
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flipped := 0
	for _, notification := range r.notifications {
		if notification.UserID == userID && !notification.IsRead && !notification.IsDeleted {
			notification.IsRead = true
			flipped++
		}
	}
	return flipped, nil
}

func (r *fakeNotificationRepo) SoftDeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flipped := 0
	for _, notification := range r.notifications {
		if !notification.IsDeleted && notification.Expired(now) {
			notification.IsDeleted = true
			flipped++
		}
	}
	return flipped, nil
}

// fakeUserRepo is an in-memory read-only UserRepository.
type fakeUserRepo struct {
	users map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*entity.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	clone := *user
	return &clone, nil
}

func newTestFeed(conversationRepo *fakeConversationRepo, notificationRepo *fakeNotificationRepo) *livefeed.Publisher {
	return livefeed.NewPublisher(
		func(ctx context.Context, conversationID string) ([]*entity.Message, error) {
			return conversationRepo.ListMessages(ctx, conversationID, 0)
		},
		func(ctx context.Context, userID string) ([]*entity.Notification, error) {
			notifications, _, err := notificationRepo.ListByUserID(ctx, userID, 0, 0)
			return notifications, err
		},
	)
}

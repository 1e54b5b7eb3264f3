package livefeed

import (
	"context"
	"sync"

	"swapmart/internal/domain/entity"
	"swapmart/pkg/logger"
)

// Snapshot is one full-state delivery. Snapshots always carry the complete
// current list for their topic, never a diff, so edits and tombstones can
// never be merged out of order by a consumer.
type Snapshot struct {
	ConversationID string                 `json:"conversation_id,omitempty"`
	UserID         string                 `json:"user_id,omitempty"`
	Messages       []*entity.Message      `json:"messages,omitempty"`
	Notifications  []*entity.Notification `json:"notifications,omitempty"`

	// Err is set at most once, on the final snapshot before the subscription
	// closes.
	Err string `json:"error,omitempty"`
}

// Subscription is a live feed handle. C closes after Cancel or after an error
// snapshot has been delivered.
type Subscription struct {
	C <-chan Snapshot

	cancelOnce sync.Once
	cancel     func()
}

// Cancel tears the subscription down and releases its resources. Safe to call
// more than once.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(s.cancel)
}

// MessageLoader fetches the current ordered message list of a conversation.
type MessageLoader func(ctx context.Context, conversationID string) ([]*entity.Message, error)

// NotificationLoader fetches the current notification list of a user.
type NotificationLoader func(ctx context.Context, userID string) ([]*entity.Notification, error)

type subscriber struct {
	mu      sync.Mutex
	ch      chan Snapshot
	closed  bool
	lastVer uint64
}

// Publisher fans full-state snapshots out to conversation and notification
// feed subscribers. Each mutation triggers a reload and a fresh snapshot per
// subscriber; a slow consumer is conflated down to the newest state rather
// than blocking senders. A per-topic version counter orders deliveries so a
// snapshot from an older load can never displace a newer one.
type Publisher struct {
	loadMessages      MessageLoader
	loadNotifications NotificationLoader

	mu               sync.RWMutex
	conversationSubs map[string]map[*subscriber]struct{}
	notificationSubs map[string]map[*subscriber]struct{}
	conversationVers map[string]uint64
	notificationVers map[string]uint64
}

func NewPublisher(loadMessages MessageLoader, loadNotifications NotificationLoader) *Publisher {
	return &Publisher{
		loadMessages:      loadMessages,
		loadNotifications: loadNotifications,
		conversationSubs:  make(map[string]map[*subscriber]struct{}),
		notificationSubs:  make(map[string]map[*subscriber]struct{}),
		conversationVers:  make(map[string]uint64),
		notificationVers:  make(map[string]uint64),
	}
}

// SubscribeConversation attaches to a conversation feed. The current full
// message list is delivered as the first snapshot. The subscriber is
// registered before the load runs, so a mutation committing during the load
// still fans out here; the version guard then drops the older initial
// snapshot instead of letting it displace that fresher delivery.
func (p *Publisher) SubscribeConversation(ctx context.Context, conversationID string) (*Subscription, error) {
	sub := p.register(p.conversationSubs, conversationID)
	ver := p.nextVersion(p.conversationVers, conversationID)

	messages, err := p.loadMessages(ctx, conversationID)
	if err != nil {
		p.detach(p.conversationSubs, p.conversationVers, conversationID, sub)
		return nil, err
	}

	sub.push(Snapshot{ConversationID: conversationID, Messages: messages}, ver)

	return &Subscription{
		C: sub.ch,
		cancel: func() {
			p.detach(p.conversationSubs, p.conversationVers, conversationID, sub)
		},
	}, nil
}

// SubscribeNotifications attaches to a user's notification feed with the same
// register-then-load contract.
func (p *Publisher) SubscribeNotifications(ctx context.Context, userID string) (*Subscription, error) {
	sub := p.register(p.notificationSubs, userID)
	ver := p.nextVersion(p.notificationVers, userID)

	notifications, err := p.loadNotifications(ctx, userID)
	if err != nil {
		p.detach(p.notificationSubs, p.notificationVers, userID, sub)
		return nil, err
	}

	sub.push(Snapshot{UserID: userID, Notifications: notifications}, ver)

	return &Subscription{
		C: sub.ch,
		cancel: func() {
			p.detach(p.notificationSubs, p.notificationVers, userID, sub)
		},
	}, nil
}

// PublishConversation reloads the conversation's messages and delivers a
// fresh snapshot to every subscriber. A load failure is reported once per
// subscriber, which then counts as cancelled.
func (p *Publisher) PublishConversation(ctx context.Context, conversationID string) {
	p.mu.RLock()
	n := len(p.conversationSubs[conversationID])
	p.mu.RUnlock()
	if n == 0 {
		return
	}

	ver := p.nextVersion(p.conversationVers, conversationID)

	messages, err := p.loadMessages(ctx, conversationID)
	if err != nil {
		logger.Error("Live feed reload failed for conversation %s: %v", conversationID, err)
		p.fail(p.conversationSubs, p.conversationVers, conversationID, Snapshot{ConversationID: conversationID, Err: err.Error()}, ver)
		return
	}

	p.fanout(p.conversationSubs, conversationID, Snapshot{ConversationID: conversationID, Messages: messages}, ver)
}

// PublishNotifications mirrors PublishConversation for a user's feed.
func (p *Publisher) PublishNotifications(ctx context.Context, userID string) {
	p.mu.RLock()
	n := len(p.notificationSubs[userID])
	p.mu.RUnlock()
	if n == 0 {
		return
	}

	ver := p.nextVersion(p.notificationVers, userID)

	notifications, err := p.loadNotifications(ctx, userID)
	if err != nil {
		logger.Error("Live feed reload failed for user %s notifications: %v", userID, err)
		p.fail(p.notificationSubs, p.notificationVers, userID, Snapshot{UserID: userID, Err: err.Error()}, ver)
		return
	}

	p.fanout(p.notificationSubs, userID, Snapshot{UserID: userID, Notifications: notifications}, ver)
}

func (p *Publisher) register(subs map[string]map[*subscriber]struct{}, topic string) *subscriber {
	sub := &subscriber{ch: make(chan Snapshot, 1)}

	p.mu.Lock()
	set, ok := subs[topic]
	if !ok {
		set = make(map[*subscriber]struct{})
		subs[topic] = set
	}
	set[sub] = struct{}{}
	p.mu.Unlock()

	return sub
}

// nextVersion stamps one reload. Versions are claimed before the load runs,
// so fanout order between racing reloads is resolved at the subscriber.
func (p *Publisher) nextVersion(vers map[string]uint64, topic string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	vers[topic]++
	return vers[topic]
}

func (p *Publisher) detach(subs map[string]map[*subscriber]struct{}, vers map[string]uint64, topic string, sub *subscriber) {
	p.mu.Lock()
	set, ok := subs[topic]
	if !ok {
		p.mu.Unlock()
		return
	}
	if _, ok := set[sub]; !ok {
		p.mu.Unlock()
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(subs, topic)
		delete(vers, topic)
	}
	p.mu.Unlock()

	sub.close()
}

func (p *Publisher) fanout(subs map[string]map[*subscriber]struct{}, topic string, snapshot Snapshot, ver uint64) {
	p.mu.RLock()
	targets := make([]*subscriber, 0, len(subs[topic]))
	for sub := range subs[topic] {
		targets = append(targets, sub)
	}
	p.mu.RUnlock()

	for _, sub := range targets {
		sub.push(snapshot, ver)
	}
}

func (p *Publisher) fail(subs map[string]map[*subscriber]struct{}, vers map[string]uint64, topic string, snapshot Snapshot, ver uint64) {
	p.mu.Lock()
	targets := make([]*subscriber, 0, len(subs[topic]))
	for sub := range subs[topic] {
		targets = append(targets, sub)
	}
	delete(subs, topic)
	delete(vers, topic)
	p.mu.Unlock()

	for _, sub := range targets {
		sub.push(snapshot, ver)
		sub.close()
	}
}

// push delivers latest-wins: if the subscriber has not drained the previous
// snapshot it is replaced, never queued behind. A snapshot stamped older than
// the last delivery is dropped outright.
func (s *subscriber) push(snapshot Snapshot, ver uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || ver < s.lastVer {
		return
	}
	s.lastVer = ver

	for {
		select {
		case s.ch <- snapshot:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

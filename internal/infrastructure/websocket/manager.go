package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"swapmart/internal/infrastructure/livefeed"
	"swapmart/pkg/logger"
)

// ConversationSubscriber attaches a participant-gated live feed to a
// conversation.
type ConversationSubscriber func(ctx context.Context, userID, conversationID string) (*livefeed.Subscription, error)

// NotificationSubscriber attaches a live feed to a user's notification set.
type NotificationSubscriber func(ctx context.Context, userID string) (*livefeed.Subscription, error)

// Client is one WebSocket connection. A connection carries the user's
// notification feed plus any conversation feeds joined over it.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	mu       sync.Mutex
	subs     map[string]*livefeed.Subscription
	torn     bool
	done     chan struct{}
	doneOnce sync.Once
}

// Manager owns the connection registry and the live feed bridging.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex

	subscribeConversation ConversationSubscriber
	subscribeNotification NotificationSubscriber
}

func NewManager(subscribeConversation ConversationSubscriber, subscribeNotification NotificationSubscriber) *Manager {
	return &Manager{
		clients:               make(map[string]*Client),
		Register:              make(chan *Client),
		Unregister:            make(chan *Client),
		subscribeConversation: subscribeConversation,
		subscribeNotification: subscribeNotification,
	}
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 16),
		subs:   make(map[string]*livefeed.Subscription),
		done:   make(chan struct{}),
	}
}

// Start runs the registry loop until the context ends.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if old, ok := m.clients[client.UserID]; ok {
					old.teardown()
				}
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				logger.Info("Client registered: %s", client.UserID)

				// Off the registry loop: the attach reads from the store and
				// must not stall register/unregister processing.
				go m.attachNotificationFeed(ctx, client)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if current, ok := m.clients[client.UserID]; ok && current == client {
					delete(m.clients, client.UserID)
				}
				client.teardown()
				m.mutex.Unlock()
				logger.Info("Client unregistered: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToUser pushes a raw frame to a connected user. No-op when offline: the
// notification record is their offline copy.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	client, ok := m.clients[userID]
	m.mutex.RUnlock()

	if !ok {
		return
	}

	select {
	case client.Send <- message:
	default:
		logger.Warn("Dropping frame for slow client %s", userID)
	}
}

// addSubscription adopts a feed, replacing any previous one under the same
// key. A subscription arriving after teardown is cancelled on the spot.
func (c *Client) addSubscription(key string, sub *livefeed.Subscription) (accepted bool) {
	c.mu.Lock()
	if c.torn {
		c.mu.Unlock()
		sub.Cancel()
		return false
	}
	if old, ok := c.subs[key]; ok {
		old.Cancel()
	}
	c.subs[key] = sub
	c.mu.Unlock()
	return true
}

func (c *Client) removeSubscription(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.subs[key]; ok {
		sub.Cancel()
		delete(c.subs, key)
	}
}

// teardown cancels every feed held by the connection and signals the write
// pump to stop. Idempotent; cancelling a cancelled subscription is a no-op.
func (c *Client) teardown() {
	c.mu.Lock()
	c.torn = true
	for key, sub := range c.subs {
		sub.Cancel()
		delete(c.subs, key)
	}
	c.mu.Unlock()
	c.doneOnce.Do(func() { close(c.done) })
}

// ReadPump reads frames from the connection until it drops.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error for %s: %v", c.UserID, err)
			}
			break
		}

		m.HandleClientMessage(c, message)
	}
}

// WritePump drains the send channel onto the connection. The send channel is
// never closed; teardown signals done instead so feed pumps can keep using a
// non-blocking send safely.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		select {
		case message := <-c.Send:
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket write error for %s: %v", c.UserID, err)
				return
			}
		case <-c.done:
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

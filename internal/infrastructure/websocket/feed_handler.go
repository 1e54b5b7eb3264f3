package websocket

import (
	"context"
	"encoding/json"
	"time"

	"swapmart/internal/infrastructure/livefeed"
	"swapmart/pkg/logger"
)

const (
	frameTypePing              = "ping"
	frameTypePong              = "pong"
	frameTypeError             = "error"
	frameTypeJoinConversation  = "join_conversation"
	frameTypeLeaveConversation = "leave_conversation"
	frameTypeConversationFeed  = "conversation_feed"
	frameTypeNotificationFeed  = "notification_feed"
)

// Frame is the wire envelope for both directions.
type Frame struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      string      `json:"timestamp"`
}

// HandleClientMessage dispatches one inbound frame.
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		logger.Warn("WebSocket: malformed frame from %s: %v", client.UserID, err)
		m.sendError(client, "Invalid message format")
		return
	}

	switch frame.Type {
	case frameTypePing:
		m.send(client, Frame{Type: frameTypePong})

	case frameTypeJoinConversation:
		m.handleJoinConversation(client, frame.ConversationID)

	case frameTypeLeaveConversation:
		if frame.ConversationID != "" {
			client.removeSubscription("conversation:" + frame.ConversationID)
		}

	default:
		logger.Warn("WebSocket: unknown frame type %q from %s", frame.Type, client.UserID)
		m.sendError(client, "Unknown message type")
	}
}

// handleJoinConversation attaches the conversation's live feed to the
// connection. The first snapshot carries the full current message list;
// later snapshots follow every mutation.
func (m *Manager) handleJoinConversation(client *Client, conversationID string) {
	if conversationID == "" {
		m.sendError(client, "conversation_id is required")
		return
	}

	sub, err := m.subscribeConversation(context.Background(), client.UserID, conversationID)
	if err != nil {
		logger.Warn("WebSocket: subscribe failed for %s on conversation %s: %v", client.UserID, conversationID, err)
		m.sendError(client, "Could not join conversation")
		return
	}

	if client.addSubscription("conversation:"+conversationID, sub) {
		go m.pump(client, sub, frameTypeConversationFeed)
	}
}

// attachNotificationFeed wires the user's notification feed to a freshly
// registered connection.
func (m *Manager) attachNotificationFeed(ctx context.Context, client *Client) {
	sub, err := m.subscribeNotification(ctx, client.UserID)
	if err != nil {
		logger.Warn("WebSocket: notification subscribe failed for %s: %v", client.UserID, err)
		m.sendError(client, "Could not attach notification feed")
		return
	}

	if client.addSubscription("notifications", sub) {
		go m.pump(client, sub, frameTypeNotificationFeed)
	}
}

// pump forwards snapshots until the subscription closes. A snapshot carrying
// an error is the feed's final delivery; the client decides whether to
// resubscribe.
func (m *Manager) pump(client *Client, sub *livefeed.Subscription, frameType string) {
	for snapshot := range sub.C {
		m.send(client, Frame{
			Type:           frameType,
			ConversationID: snapshot.ConversationID,
			Data:           snapshot,
		})
		if snapshot.Err != "" {
			return
		}
	}
}

func (m *Manager) send(client *Client, frame Frame) {
	frame.Timestamp = time.Now().UTC().Format(time.RFC3339)

	raw, err := json.Marshal(frame)
	if err != nil {
		logger.Error("WebSocket: failed to marshal %s frame: %v", frame.Type, err)
		return
	}

	select {
	case client.Send <- raw:
	default:
		logger.Warn("Dropping %s frame for slow client %s", frame.Type, client.UserID)
	}
}

func (m *Manager) sendError(client *Client, message string) {
	m.send(client, Frame{Type: frameTypeError, Data: map[string]string{"message": message}})
}

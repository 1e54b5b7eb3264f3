package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"swapmart/internal/domain/entity"
	"swapmart/internal/usecase"
	"swapmart/pkg/response"
	"swapmart/pkg/utils"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
	messageUseCase      *usecase.MessageUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase, messageUseCase *usecase.MessageUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
		messageUseCase:      messageUseCase,
	}
}

type startConversationRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	ItemID      string `json:"item_id"`
}

type sendMessageRequest struct {
	Content  string                `json:"content"`
	Type     string                `json:"type" validate:"omitempty,oneof=text image file offer"`
	Metadata *entity.OfferMetadata `json:"metadata,omitempty"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type offerActionRequest struct {
	MessageID string `json:"message_id" validate:"required"`
}

// StartConversation finds or creates the conversation between the caller and
// the recipient for an item bucket.
func (h *ConversationHandler) StartConversation(c echo.Context) error {
	var req startConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conversation, err := h.conversationUseCase.StartConversation(c.Request().Context(), userID, req.RecipientID, req.ItemID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, conversation)
}

// ListConversations returns the caller's conversations, most recent first.
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	userID := c.Get("uid").(string)
	pagination := utils.GetPaginationParams(c)

	conversations, total, err := h.conversationUseCase.ListConversations(c.Request().Context(), userID, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, conversations, total, pagination.PageSize, pagination.Offset)
}

func (h *ConversationHandler) GetConversation(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	conversation, err := h.conversationUseCase.GetConversation(c.Request().Context(), userID, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversation)
}

// MarkConversationRead zeroes the caller's unread counter.
func (h *ConversationHandler) MarkConversationRead(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	conversation, err := h.conversationUseCase.MarkRead(c.Request().Context(), conversationID, userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversation)
}

// ArchiveConversation deactivates the thread without touching its messages.
func (h *ConversationHandler) ArchiveConversation(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.conversationUseCase.ArchiveConversation(c.Request().Context(), userID, conversationID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Conversation archived"})
}

// SendMessage appends a message to the conversation. Offers carry structured
// metadata; the other types carry plain content.
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	var (
		message *entity.Message
		err     error
	)
	if req.Type == entity.MessageTypeOffer {
		var offer entity.OfferMetadata
		if req.Metadata != nil {
			offer = *req.Metadata
		}
		message, err = h.messageUseCase.SendOfferMessage(c.Request().Context(), conversationID, userID, offer)
	} else {
		message, err = h.messageUseCase.SendMessage(c.Request().Context(), conversationID, userID, usecase.SendMessageInput{
			Content: req.Content,
			Type:    req.Type,
		})
	}
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// ListMessages returns the newest messages in chronological order.
func (h *ConversationHandler) ListMessages(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	limit := 0
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	messages, err := h.messageUseCase.ListMessages(c.Request().Context(), userID, conversationID, limit)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

func (h *ConversationHandler) EditMessage(c echo.Context) error {
	conversationID := c.Param("id")
	messageID := c.Param("messageId")
	userID := c.Get("uid").(string)

	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.messageUseCase.EditMessage(c.Request().Context(), conversationID, messageID, userID, req.Content)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *ConversationHandler) DeleteMessage(c echo.Context) error {
	conversationID := c.Param("id")
	messageID := c.Param("messageId")
	userID := c.Get("uid").(string)

	if err := h.messageUseCase.DeleteMessage(c.Request().Context(), conversationID, messageID, userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Message deleted"})
}

func (h *ConversationHandler) AcceptOffer(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	var req offerActionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.messageUseCase.AcceptOffer(c.Request().Context(), conversationID, req.MessageID, userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *ConversationHandler) RejectOffer(c echo.Context) error {
	conversationID := c.Param("id")
	userID := c.Get("uid").(string)

	var req offerActionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.messageUseCase.RejectOffer(c.Request().Context(), conversationID, req.MessageID, userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

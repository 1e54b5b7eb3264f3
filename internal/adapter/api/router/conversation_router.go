package router

import (
	"github.com/labstack/echo/v4"

	"swapmart/internal/adapter/api/handler"
	"swapmart/internal/adapter/api/middleware"
)

// SetupConversationRouter mounts the conversation and message endpoints.
func SetupConversationRouter(e *echo.Echo, conversationHandler *handler.ConversationHandler, authMiddleware *middleware.AuthMiddleware) {
	conversationGroup := e.Group("/v1/conversations")
	conversationGroup.Use(authMiddleware.Authenticate)

	// Conversation management
	conversationGroup.POST("", conversationHandler.StartConversation)
	conversationGroup.GET("", conversationHandler.ListConversations)
	conversationGroup.GET("/:id", conversationHandler.GetConversation)
	conversationGroup.PUT("/:id/read", conversationHandler.MarkConversationRead)
	conversationGroup.DELETE("/:id", conversationHandler.ArchiveConversation)

	// Message management
	conversationGroup.POST("/:id/messages", conversationHandler.SendMessage)
	conversationGroup.GET("/:id/messages", conversationHandler.ListMessages)
	conversationGroup.PUT("/:id/messages/:messageId", conversationHandler.EditMessage)
	conversationGroup.DELETE("/:id/messages/:messageId", conversationHandler.DeleteMessage)

	// Offer system
	conversationGroup.POST("/:id/messages/accept-offer", conversationHandler.AcceptOffer)
	conversationGroup.POST("/:id/messages/reject-offer", conversationHandler.RejectOffer)
}

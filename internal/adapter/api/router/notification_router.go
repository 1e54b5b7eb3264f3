package router

import (
	"github.com/labstack/echo/v4"

	"swapmart/internal/adapter/api/handler"
	"swapmart/internal/adapter/api/middleware"
)

// SetupNotificationRouter mounts the notification endpoints.
func SetupNotificationRouter(e *echo.Echo, notificationHandler *handler.NotificationHandler, authMiddleware *middleware.AuthMiddleware) {
	notificationGroup := e.Group("/v1/notifications")
	notificationGroup.Use(authMiddleware.Authenticate)

	notificationGroup.GET("", notificationHandler.ListNotifications)
	notificationGroup.GET("/unread-count", notificationHandler.UnreadCount)
	notificationGroup.PUT("/:id/read", notificationHandler.MarkRead)
	notificationGroup.PUT("/read-all", notificationHandler.MarkAllRead)
	notificationGroup.DELETE("/:id", notificationHandler.DeleteNotification)
}

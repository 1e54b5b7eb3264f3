package handler

import (
	"github.com/labstack/echo/v4"

	"swapmart/internal/usecase"
	"swapmart/pkg/response"
	"swapmart/pkg/utils"
)

type NotificationHandler struct {
	notificationUseCase *usecase.NotificationUseCase
}

func NewNotificationHandler(notificationUseCase *usecase.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
	}
}

// ListNotifications returns the caller's notifications, newest first.
func (h *NotificationHandler) ListNotifications(c echo.Context) error {
	userID := c.Get("uid").(string)
	pagination := utils.GetPaginationParams(c)

	notifications, total, err := h.notificationUseCase.ListNotifications(c.Request().Context(), userID, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, notifications, total, pagination.PageSize, pagination.Offset)
}

// UnreadCount returns the caller's badge value.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	userID := c.Get("uid").(string)

	count, err := h.notificationUseCase.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"unread_count": count})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	notificationID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.notificationUseCase.MarkRead(c.Request().Context(), userID, notificationID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Notification marked as read"})
}

// MarkAllRead flips every unread notification and reports how many flipped.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	userID := c.Get("uid").(string)

	count, err := h.notificationUseCase.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"marked_read": count})
}

func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	notificationID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.notificationUseCase.DeleteNotification(c.Request().Context(), userID, notificationID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Notification deleted"})
}

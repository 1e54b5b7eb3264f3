package router

import (
	"github.com/labstack/echo/v4"

	"swapmart/internal/adapter/api/handler"
)

// SetupWebSocketRouter mounts the live feed endpoint. Auth happens inside the
// handler via the token query parameter.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}

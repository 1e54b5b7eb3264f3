package router

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SetupHealthRouter exposes the liveness probe.
func SetupHealthRouter(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "Server is running",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
}

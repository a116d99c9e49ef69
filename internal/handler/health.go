package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health is used by load balancers and monitoring. It pings the database
// and answers 503 when the ping fails.
func (h *Handler) Health(c echo.Context) error {
	if h.DB == nil {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "status": "ok"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		h.Log.Warn("health check: database ping failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"success": false, "status": "degraded", "database": "down"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "status": "ok", "database": "up"})
}

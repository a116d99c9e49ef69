package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type orderReq struct {
	CustomerID flexID `json:"customer_id"`
	PackageID  flexID `json:"package_id"`
}

// ListPackages: GET /api/packages. Active packages by priority.
func (h *Handler) ListPackages(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	pkgs, err := h.Commerce.ListActivePackages(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"packages": pkgs})
}

// CreateOrder: POST /api/orders.
func (h *Handler) CreateOrder(c echo.Context) error {
	var req orderReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	o, err := h.Commerce.CreateOrder(ctx, int64(req.CustomerID), int64(req.PackageID))
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"order": o})
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Admin dashboard views. The router puts all of them behind JWTAuth and
// RequireRole(ADMIN).

// AdminMaps: GET /api/admin/maps, every map with its owner.
func (h *Handler) AdminMaps(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	maps, err := h.Maps.ListForAdmin(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"maps": maps})
}

// AdminOrders: GET /api/admin/orders, all orders, newest first.
func (h *Handler) AdminOrders(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	orders, err := h.Admins.ListOrders(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"orders": orders})
}

// AdminCustomers: GET /api/admin/customers.
func (h *Handler) AdminCustomers(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	customers, err := h.Admins.ListCustomers(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"customers": customers})
}

// AdminPackages: GET /api/admin/packages, including inactive ones.
func (h *Handler) AdminPackages(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	pkgs, err := h.Admins.ListPackages(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"packages": pkgs})
}

// AdminStats: GET /api/admin/stats, dashboard counters.
func (h *Handler) AdminStats(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	stats, err := h.Admins.Stats(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"stats": stats})
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetCustomer: GET /api/customer/:customer_id.
func (h *Handler) GetCustomer(c echo.Context) error {
	id, valid := pathID(c, "customer_id")
	if !valid {
		return badRequest(c, "invalid customer_id")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	cust, err := h.Accounts.Get(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"customer": cust})
}

// CustomerMaps: GET /api/customer/:customer_id/maps.
func (h *Handler) CustomerMaps(c echo.Context) error {
	id, valid := pathID(c, "customer_id")
	if !valid {
		return badRequest(c, "invalid customer_id")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	maps, err := h.Accounts.ListMaps(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"maps": maps})
}

// CustomerZones: GET /api/customer/:customer_id/zones.
func (h *Handler) CustomerZones(c echo.Context) error {
	id, valid := pathID(c, "customer_id")
	if !valid {
		return badRequest(c, "invalid customer_id")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	zones, err := h.Zones.ListByCustomer(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"zones": zones})
}

// CustomerOrders: GET /api/customer/:customer_id/orders.
func (h *Handler) CustomerOrders(c echo.Context) error {
	id, valid := pathID(c, "customer_id")
	if !valid {
		return badRequest(c, "invalid customer_id")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	orders, err := h.Commerce.CustomerOrderHistory(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"orders": orders})
}

// CustomerPackage: GET /api/customer/:customer_id/package.
func (h *Handler) CustomerPackage(c echo.Context) error {
	id, valid := pathID(c, "customer_id")
	if !valid {
		return badRequest(c, "invalid customer_id")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	pkg, err := h.Commerce.CustomerCurrentPackage(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"package": pkg})
}

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mapit/internal/service"
)

type mapReq struct {
	Title       string          `json:"title"`
	CustomerID  flexID          `json:"customer_id"`
	Description *string         `json:"description"`
	Country     *string         `json:"country"`
	MapData     json.RawMessage `json:"map_data"`
	MapBounds   json.RawMessage `json:"map_bounds"`
	Active      *bool           `json:"active"`
	MapCode     string          `json:"map_code"`
}

// CreateMap: POST /api/map.
func (h *Handler) CreateMap(c echo.Context) error {
	var req mapReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	m, err := h.Maps.Create(ctx, service.CreateMapInput{
		Title:       req.Title,
		CustomerID:  int64(req.CustomerID),
		Description: req.Description,
		Country:     req.Country,
		MapData:     present(req.MapData),
		MapBounds:   present(req.MapBounds),
		Active:      req.Active,
		MapCode:     req.MapCode,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"map": m})
}

// UpdateMap: PUT /api/map/:map_id. The body names the owning customer.
func (h *Handler) UpdateMap(c echo.Context) error {
	id, valid := pathID(c, "map_id")
	if !valid {
		return badRequest(c, "invalid map_id")
	}
	var req mapReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	m, err := h.Maps.Update(ctx, id, service.UpdateMapInput{
		Title:       req.Title,
		CustomerID:  int64(req.CustomerID),
		Description: req.Description,
		Country:     req.Country,
		MapData:     present(req.MapData),
		MapBounds:   present(req.MapBounds),
		Active:      req.Active,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"record": m})
}

// GetMap: GET /api/map/:map_id.
func (h *Handler) GetMap(c echo.Context) error {
	id, valid := pathID(c, "map_id")
	if !valid {
		return badRequest(c, "invalid map_id")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	m, err := h.Maps.Get(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"map": m})
}

// GetMapByCode: GET /api/map/code/:code.
func (h *Handler) GetMapByCode(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	m, err := h.Maps.GetByCode(ctx, c.Param("code"))
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"map": m})
}

// DeleteMap: DELETE /api/map/:map_id[?customer_id=]. With customer_id the
// map must belong to that customer.
func (h *Handler) DeleteMap(c echo.Context) error {
	id, valid := pathID(c, "map_id")
	if !valid {
		return badRequest(c, "invalid map_id")
	}
	var owner *int64
	if raw := c.QueryParam("customer_id"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return badRequest(c, "invalid customer_id")
		}
		owner = &n
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Maps.Delete(ctx, id, owner); err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "map deleted"})
}

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/mapit/internal/service"
)

type zoneReq struct {
	ID          string          `json:"id"`
	MapID       flexID          `json:"map_id"`
	Name        *string         `json:"name"`
	Color       *string         `json:"color"`
	Coordinates json.RawMessage `json:"coordinates"`
	CustomerID  flexID          `json:"customer_id"`
}

type bulkReq struct {
	MapID flexID    `json:"map_id"`
	Zones []zoneReq `json:"zones"`
}

// mapID returns the one map the batch targets. Entries may omit map_id
// but must not name a map other than the batch's. Zero is left for the
// service to reject.
func (r bulkReq) mapID() (int64, error) {
	id := r.MapID
	for _, z := range r.Zones {
		switch {
		case z.MapID <= 0:
		case id <= 0:
			id = z.MapID
		case z.MapID != id:
			return 0, service.Validation("all zones must belong to the same map")
		}
	}
	return int64(id), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// zoneID parses :id. Ids that are not UUIDs cannot exist.
func zoneID(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	return id, err == nil
}

// ListZones: GET /api/zones?map_id=.
func (h *Handler) ListZones(c echo.Context) error {
	mapID, err := strconv.ParseInt(c.QueryParam("map_id"), 10, 64)
	if err != nil || mapID <= 0 {
		return badRequest(c, "map_id query parameter is required")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	zones, err := h.Zones.ListByMap(ctx, mapID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"zones": zones})
}

// GetZone: GET /api/zones/:id.
func (h *Handler) GetZone(c echo.Context) error {
	id, valid := zoneID(c)
	if !valid {
		return h.fail(c, service.NotFound("zone not found"))
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	z, err := h.Zones.Get(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"zone": z})
}

// CreateZone: POST /api/zones.
func (h *Handler) CreateZone(c echo.Context) error {
	var req zoneReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	z, err := h.Zones.Create(ctx, service.CreateZoneInput{
		MapID:       int64(req.MapID),
		Name:        deref(req.Name),
		Color:       deref(req.Color),
		Coordinates: present(req.Coordinates),
		CustomerID:  req.CustomerID.ptr(),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusCreated, echo.Map{"zone": z})
}

// UpdateZone: PUT /api/zones/:id. Omitted fields keep their value.
func (h *Handler) UpdateZone(c echo.Context) error {
	id, valid := zoneID(c)
	if !valid {
		return h.fail(c, service.NotFound("zone not found"))
	}
	var req zoneReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	z, err := h.Zones.Update(ctx, id, service.UpdateZoneInput{
		Name:        req.Name,
		Color:       req.Color,
		Coordinates: present(req.Coordinates),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"zone": z})
}

// DeleteZone: DELETE /api/zones/:id.
func (h *Handler) DeleteZone(c echo.Context) error {
	id, valid := zoneID(c)
	if !valid {
		return h.fail(c, service.NotFound("zone not found"))
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Zones.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{"message": "zone deleted"})
}

// BulkSaveZones: POST /api/zones/bulk with {zones: [...]}. The map comes
// from the top-level map_id or, when that is absent, from the entries.
func (h *Handler) BulkSaveZones(c echo.Context) error {
	var req bulkReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	mapID, err := req.mapID()
	if err != nil {
		return h.fail(c, err)
	}
	entries := make([]service.BulkZone, len(req.Zones))
	for i, z := range req.Zones {
		entries[i] = service.BulkZone{
			ID:          z.ID,
			Name:        deref(z.Name),
			Color:       deref(z.Color),
			Coordinates: present(z.Coordinates),
			CustomerID:  z.CustomerID.ptr(),
		}
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	zones, err := h.Zones.BulkSave(ctx, mapID, entries)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{
		"zones":   zones,
		"message": strconv.Itoa(len(zones)) + " zones saved",
	})
}

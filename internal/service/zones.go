package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/mapit/internal/model"
	"github.com/iliyamo/mapit/internal/repository"
)

// CreateZoneInput carries the fields of POST /api/zones. CustomerID falls
// back to the map owner.
type CreateZoneInput struct {
	MapID       int64
	Name        string
	Color       string
	Coordinates json.RawMessage
	CustomerID  *int64
}

// UpdateZoneInput is a partial update; nil fields keep their value.
type UpdateZoneInput struct {
	Name        *string
	Color       *string
	Coordinates json.RawMessage
}

// BulkZone is one entry of a bulk save. An empty, "temp..." or non-UUID
// ID marks a zone drawn on the client that has not been stored yet.
type BulkZone struct {
	ID          string
	Name        string
	Color       string
	Coordinates json.RawMessage
	CustomerID  *int64
}

// ZoneService implements zones.
type ZoneService struct {
	db    *sql.DB
	zones *repository.ZoneRepo
	maps  *repository.MapRepo
	log   *slog.Logger
}

// NewZoneService builds a ZoneService over db.
func NewZoneService(db *sql.DB, log *slog.Logger) *ZoneService {
	return &ZoneService{
		db:    db,
		zones: repository.NewZoneRepo(db),
		maps:  repository.NewMapRepo(db),
		log:   log.With("component", "zones"),
	}
}

// ListByMap returns the zones of a map, oldest first.
func (s *ZoneService) ListByMap(ctx context.Context, mapID int64) ([]model.Zone, error) {
	if mapID <= 0 {
		return nil, Validation("map_id is required")
	}
	out, err := s.zones.ListByMap(ctx, mapID)
	return out, fromRepo(err, "list zones", msgMapNotFound)
}

// ListByCustomer returns the zones attributed to a customer.
func (s *ZoneService) ListByCustomer(ctx context.Context, customerID int64) ([]model.Zone, error) {
	out, err := s.zones.ListByCustomer(ctx, customerID)
	return out, fromRepo(err, "list zones", msgCustomerNotFound)
}

// Get returns one zone.
func (s *ZoneService) Get(ctx context.Context, id uuid.UUID) (*model.Zone, error) {
	z, err := s.zones.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "get zone", msgZoneNotFound)
	}
	return z, nil
}

// Create stores a zone. Without a customer id the zone is attributed to
// the map owner.
func (s *ZoneService) Create(ctx context.Context, in CreateZoneInput) (*model.Zone, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	if in.MapID <= 0 || in.Name == "" || in.Color == "" || len(in.Coordinates) == 0 {
		return nil, Validation("map_id, name, color and coordinates are required")
	}
	if err := validCoordinates(in.Coordinates); err != nil {
		return nil, err
	}
	customerID := in.CustomerID
	if customerID == nil {
		owner, err := s.maps.OwnerOf(ctx, in.MapID)
		if err != nil {
			return nil, fromRepo(err, "resolve map owner", msgMapNotFound)
		}
		customerID = &owner
	}
	z := &model.Zone{
		ID:          uuid.New(),
		MapID:       in.MapID,
		CustomerID:  customerID,
		Name:        in.Name,
		Color:       in.Color,
		Coordinates: in.Coordinates,
	}
	if err := s.zones.Create(ctx, z); err != nil {
		return nil, fromRepo(err, "create zone", zoneRefMessage(err))
	}
	return z, nil
}

// Update applies a partial update; omitted fields are left untouched.
func (s *ZoneService) Update(ctx context.Context, id uuid.UUID, in UpdateZoneInput) (*model.Zone, error) {
	patch := repository.ZonePatch{Coordinates: in.Coordinates}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, Validation("name must not be empty")
		}
		patch.Name = &name
	}
	if in.Color != nil {
		color := strings.TrimSpace(*in.Color)
		if color == "" {
			return nil, Validation("color must not be empty")
		}
		patch.Color = &color
	}
	if len(in.Coordinates) > 0 {
		if err := validCoordinates(in.Coordinates); err != nil {
			return nil, err
		}
	}
	z, err := s.zones.Update(ctx, id, patch)
	if err != nil {
		return nil, fromRepo(err, "update zone", msgZoneNotFound)
	}
	return z, nil
}

// Delete removes a zone.
func (s *ZoneService) Delete(ctx context.Context, id uuid.UUID) error {
	return fromRepo(s.zones.Delete(ctx, id), "delete zone", msgZoneNotFound)
}

// BulkSave inserts new zones and updates stored ones of a map in a single
// transaction. Any failing entry rolls back the whole batch. The result
// follows the order of the input.
func (s *ZoneService) BulkSave(ctx context.Context, mapID int64, entries []BulkZone) ([]model.Zone, error) {
	if mapID <= 0 {
		return nil, Validation("map_id is required")
	}
	if len(entries) == 0 {
		return nil, Validation("zones must be a non-empty array")
	}
	for i := range entries {
		e := &entries[i]
		e.Name = strings.TrimSpace(e.Name)
		e.Color = strings.TrimSpace(e.Color)
		if e.Name == "" || e.Color == "" || len(e.Coordinates) == 0 {
			return nil, Validation("zone %d: name, color and coordinates are required", i)
		}
		if err := validCoordinates(e.Coordinates); err != nil {
			return nil, annotate(err, i)
		}
	}

	out := make([]model.Zone, 0, len(entries))
	var inserted, updated int
	err := repository.InTx(ctx, s.db, func(tx *sql.Tx) error {
		zones := s.zones.WithTx(tx)
		owner, err := s.maps.WithTx(tx).OwnerOf(ctx, mapID)
		if err != nil {
			return fromRepo(err, "resolve map owner", msgMapNotFound)
		}
		for i, e := range entries {
			customerID := e.CustomerID
			if customerID == nil {
				customerID = &owner
			}
			if id, stored := storedZoneID(e.ID); stored {
				name, color := e.Name, e.Color
				z, err := zones.UpdateInMap(ctx, id, mapID, repository.ZonePatch{
					Name: &name, Color: &color, Coordinates: e.Coordinates,
				})
				if err != nil {
					return annotate(fromRepo(err, "bulk update zone", msgZoneNotFound), i)
				}
				out = append(out, *z)
				updated++
				continue
			}
			z := model.Zone{
				ID:          uuid.New(),
				MapID:       mapID,
				CustomerID:  customerID,
				Name:        e.Name,
				Color:       e.Color,
				Coordinates: e.Coordinates,
			}
			if err := zones.Create(ctx, &z); err != nil {
				return annotate(fromRepo(err, "bulk insert zone", zoneRefMessage(err)), i)
			}
			out = append(out, z)
			inserted++
		}
		return nil
	})
	if err != nil {
		s.log.Warn("bulk save rolled back", "map_id", mapID, "zones", len(entries), "error", err)
		return nil, err
	}
	s.log.Info("bulk save committed", "map_id", mapID, "inserted", inserted, "updated", updated)
	return out, nil
}

// zoneRefMessage names the parent row a failed zone insert points at.
func zoneRefMessage(err error) string {
	if repository.Violates(err, repository.ZoneCustomerFK) {
		return msgCustomerNotFound
	}
	return msgMapNotFound
}

// storedZoneID reports whether a client id refers to a stored zone.
func storedZoneID(raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "temp") {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// annotate prefixes the client-facing message with the failing entry.
func annotate(err error, index int) error {
	var se *Error
	if !errors.As(err, &se) {
		return err
	}
	cp := *se
	cp.Message = "zone " + strconv.Itoa(index) + ": " + se.Message
	return &cp
}

// validCoordinates accepts any non-empty JSON array. Vertex pairs, ring
// closure and self-intersection are not checked.
func validCoordinates(raw json.RawMessage) error {
	var pts []json.RawMessage
	if err := json.Unmarshal(raw, &pts); err != nil {
		return Validation("coordinates must be a JSON array")
	}
	if len(pts) == 0 {
		return Validation("coordinates must not be empty")
	}
	return nil
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/iliyamo/mapit/internal/model"
	"github.com/iliyamo/mapit/internal/repository"
	"github.com/iliyamo/mapit/internal/utils"
)

// CreateMapInput carries the fields of POST /api/map. Active defaults to
// true and MapCode is generated when empty.
type CreateMapInput struct {
	Title       string
	CustomerID  int64
	Description *string
	Country     *string
	MapData     json.RawMessage
	MapBounds   json.RawMessage
	Active      *bool
	MapCode     string
}

// UpdateMapInput carries the fields of PUT /api/map/:map_id. Title and
// CustomerID are required; nil fields keep their value.
type UpdateMapInput struct {
	Title       string
	CustomerID  int64
	Description *string
	Country     *string
	MapData     json.RawMessage
	MapBounds   json.RawMessage
	Active      *bool
}

// mapCodeAttempts bounds regeneration after a map code collision.
const mapCodeAttempts = 3

// MapService implements maps. map.customer_id is the owner; the
// customer_map row is written in the same transaction.
type MapService struct {
	db   *sql.DB
	maps *repository.MapRepo
	log  *slog.Logger
}

// NewMapService builds a MapService over db.
func NewMapService(db *sql.DB, log *slog.Logger) *MapService {
	return &MapService{db: db, maps: repository.NewMapRepo(db), log: log.With("component", "maps")}
}

// Create inserts a map and its owner access row atomically.
func (s *MapService) Create(ctx context.Context, in CreateMapInput) (*model.Map, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || in.CustomerID <= 0 {
		return nil, Validation("title and customer_id are required")
	}
	if err := validJSON("map_data", in.MapData); err != nil {
		return nil, err
	}
	if err := validJSON("map_bounds", in.MapBounds); err != nil {
		return nil, err
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	generated := strings.TrimSpace(in.MapCode) == ""

	for attempt := 1; ; attempt++ {
		m := &model.Map{
			Title:       in.Title,
			Description: in.Description,
			MapCode:     strings.TrimSpace(in.MapCode),
			CustomerID:  in.CustomerID,
			Country:     in.Country,
			MapData:     in.MapData,
			MapBounds:   in.MapBounds,
			Active:      active,
		}
		if generated {
			code, err := utils.NewMapCode()
			if err != nil {
				return nil, Server("generate map code", err)
			}
			m.MapCode = code
		}
		err := repository.InTx(ctx, s.db, func(tx *sql.Tx) error {
			repo := s.maps.WithTx(tx)
			if err := repo.Create(ctx, m); err != nil {
				return err
			}
			return repo.GrantAccess(ctx, m.CustomerID, m.ID, model.AccessOwner)
		})
		if err == nil {
			s.log.Info("map created", "map_id", m.ID, "customer_id", m.CustomerID, "map_code", m.MapCode)
			return m, nil
		}
		if generated && errors.Is(err, repository.ErrConflict) && attempt < mapCodeAttempts {
			continue
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, Conflict("map code already exists")
		}
		return nil, fromRepo(err, "create map", msgCustomerNotFound)
	}
}

// Update patches a map owned by in.CustomerID. Missing and foreign maps
// produce the same error.
func (s *MapService) Update(ctx context.Context, mapID int64, in UpdateMapInput) (*model.Map, error) {
	in.Title = strings.TrimSpace(in.Title)
	if mapID <= 0 {
		return nil, Validation("invalid map_id")
	}
	if in.Title == "" || in.CustomerID <= 0 {
		return nil, Validation("title and customer_id are required")
	}
	if err := validJSON("map_data", in.MapData); err != nil {
		return nil, err
	}
	if err := validJSON("map_bounds", in.MapBounds); err != nil {
		return nil, err
	}
	m, err := s.maps.UpdateOwned(ctx, mapID, in.CustomerID, repository.MapPatch{
		Title:       &in.Title,
		Description: in.Description,
		Country:     in.Country,
		MapData:     in.MapData,
		MapBounds:   in.MapBounds,
		Active:      in.Active,
	})
	if err != nil {
		return nil, fromRepo(err, "update map", msgMapNotOwned)
	}
	return m, nil
}

// Get returns a map by id.
func (s *MapService) Get(ctx context.Context, mapID int64) (*model.Map, error) {
	m, err := s.maps.GetByID(ctx, mapID)
	if err != nil {
		return nil, fromRepo(err, "get map", msgMapNotFound)
	}
	return m, nil
}

// GetByCode returns a map by its shareable code.
func (s *MapService) GetByCode(ctx context.Context, code string) (*model.Map, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, Validation("map code is required")
	}
	m, err := s.maps.GetByCode(ctx, code)
	if err != nil {
		return nil, fromRepo(err, "get map", msgMapNotFound)
	}
	return m, nil
}

// Delete removes a map with its zones and access rows. When customerID is
// set the map must belong to that customer.
func (s *MapService) Delete(ctx context.Context, mapID int64, customerID *int64) error {
	notFound := msgMapNotFound
	if customerID != nil {
		notFound = msgMapNotOwned
	}
	err := repository.InTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.maps.WithTx(tx)
		if customerID != nil {
			owner, err := repo.OwnerOf(ctx, mapID)
			if err != nil {
				return err
			}
			if owner != *customerID {
				return repository.ErrForbidden
			}
		}
		return repo.DeleteCascade(ctx, mapID)
	})
	if err != nil {
		return fromRepo(err, "delete map", notFound)
	}
	s.log.Info("map deleted", "map_id", mapID)
	return nil
}

// ListForAdmin returns every map with owner details and zone counts.
func (s *MapService) ListForAdmin(ctx context.Context) ([]model.AdminMapSummary, error) {
	out, err := s.maps.ListAll(ctx)
	return out, fromRepo(err, "list maps", msgMapNotFound)
}

// validJSON rejects a present but malformed JSON document.
func validJSON(field string, raw json.RawMessage) error {
	if len(raw) == 0 || json.Valid(raw) {
		return nil
	}
	return Validation("%s must be valid JSON", field)
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/iliyamo/mapit/internal/model"
)

// ZoneRepo provides CRUD operations for zones. Coordinates are stored as
// jsonb exactly as received.
type ZoneRepo struct{ db DBTX }

// NewZoneRepo returns a new ZoneRepo bound to the given handle.
func NewZoneRepo(db DBTX) *ZoneRepo { return &ZoneRepo{db: db} }

// WithTx returns a copy of the repository bound to tx.
func (r *ZoneRepo) WithTx(tx *sql.Tx) *ZoneRepo { return &ZoneRepo{db: tx} }

// ZonePatch lists the updatable zone fields. Nil or empty fields keep their
// previous value.
type ZonePatch struct {
	Name        *string
	Color       *string
	Coordinates json.RawMessage
}

// ZoneCustomerFK is the foreign key from zones.customer_id to customer.
const ZoneCustomerFK = "zones_customer_id_fkey"

const zoneColumns = `id, map_id, customer_id, name, color, coordinates, created_at, updated_at`

func scanZone(row interface{ Scan(...any) error }) (*model.Zone, error) {
	var (
		z      model.Zone
		cust   sql.NullInt64
		coords []byte
	)
	if err := row.Scan(&z.ID, &z.MapID, &cust, &z.Name, &z.Color, &coords, &z.CreatedAt, &z.UpdatedAt); err != nil {
		return nil, err
	}
	z.CustomerID = nullInt64(cust)
	z.Coordinates = rawJSON(coords)
	return &z, nil
}

// Create inserts a zone. The caller assigns ID.
func (r *ZoneRepo) Create(ctx context.Context, z *model.Zone) error {
	const q = `INSERT INTO zones (id, map_id, customer_id, name, color, coordinates)
	           VALUES ($1, $2, $3, $4, $5, $6::jsonb)
	           RETURNING ` + zoneColumns
	created, err := scanZone(r.db.QueryRowContext(ctx, q,
		z.ID, z.MapID, z.CustomerID, z.Name, z.Color, jsonArg(z.Coordinates)))
	if err != nil {
		return translate(err)
	}
	*z = *created
	return nil
}

// GetByID fetches a zone.
func (r *ZoneRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Zone, error) {
	z, err := scanZone(r.db.QueryRowContext(ctx, `SELECT `+zoneColumns+` FROM zones WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return z, nil
}

// ListByMap returns the zones of a map oldest first, the order in which the
// client redraws them.
func (r *ZoneRepo) ListByMap(ctx context.Context, mapID int64) ([]model.Zone, error) {
	return r.list(ctx, `SELECT `+zoneColumns+` FROM zones WHERE map_id = $1 ORDER BY created_at ASC, id ASC`, mapID)
}

// ListByCustomer returns every zone attributed to a customer, grouped by
// map and oldest first within a map.
func (r *ZoneRepo) ListByCustomer(ctx context.Context, customerID int64) ([]model.Zone, error) {
	return r.list(ctx, `SELECT `+zoneColumns+` FROM zones WHERE customer_id = $1 ORDER BY map_id, created_at ASC, id ASC`, customerID)
}

func (r *ZoneRepo) list(ctx context.Context, q string, arg any) ([]model.Zone, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []model.Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *z)
	}
	return out, rows.Err()
}

// Update applies a partial update. ErrNotFound is returned when the zone
// does not exist.
func (r *ZoneRepo) Update(ctx context.Context, id uuid.UUID, p ZonePatch) (*model.Zone, error) {
	return r.update(ctx, id, nil, p)
}

// UpdateInMap is Update restricted to zones of mapID.
func (r *ZoneRepo) UpdateInMap(ctx context.Context, id uuid.UUID, mapID int64, p ZonePatch) (*model.Zone, error) {
	return r.update(ctx, id, &mapID, p)
}

func (r *ZoneRepo) update(ctx context.Context, id uuid.UUID, mapID *int64, p ZonePatch) (*model.Zone, error) {
	const q = `UPDATE zones SET
	               name        = COALESCE($3::text, name),
	               color       = COALESCE($4::text, color),
	               coordinates = COALESCE($5::jsonb, coordinates),
	               updated_at  = NOW()
	           WHERE id = $1 AND ($2::integer IS NULL OR map_id = $2)
	           RETURNING ` + zoneColumns
	z, err := scanZone(r.db.QueryRowContext(ctx, q, id, mapID, p.Name, p.Color, jsonArg(p.Coordinates)))
	if err != nil {
		return nil, translate(err)
	}
	return z, nil
}

// Delete removes a zone, returning ErrNotFound when it does not exist.
func (r *ZoneRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

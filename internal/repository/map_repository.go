// Package repository contains data access logic separated from HTTP handlers.
// This file holds the Map repository. map.customer_id is the authoritative
// owner; customer_map rows are written next to it in the same transaction
// and carry the access level.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/iliyamo/mapit/internal/model"
)

// MapRepo encapsulates all queries on the `map` and `customer_map` tables.
type MapRepo struct{ db DBTX }

// NewMapRepo constructs a MapRepo with the provided handle, which may be
// the pool or a transaction.
func NewMapRepo(db DBTX) *MapRepo { return &MapRepo{db: db} }

// WithTx returns a copy of the repository bound to tx.
func (r *MapRepo) WithTx(tx *sql.Tx) *MapRepo { return &MapRepo{db: tx} }

// MapPatch lists the updatable map fields. Nil fields keep their value.
type MapPatch struct {
	Title       *string
	Description *string
	Country     *string
	MapData     json.RawMessage
	MapBounds   json.RawMessage
	Active      *bool
}

func mapColumns(alias string) string {
	cols := []string{"map_id", "title", "description", "map_code", "customer_id", "country",
		"map_data", "map_bounds", "active", "created_at", "updated_at"}
	if alias == "" {
		return strings.Join(cols, ", ")
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// mapScan holds nullable columns while scanning a map row.
type mapScan struct {
	m         model.Map
	desc      sql.NullString
	country   sql.NullString
	mapData   []byte
	mapBounds []byte
}

func (s *mapScan) dest(extra ...any) []any {
	d := []any{&s.m.ID, &s.m.Title, &s.desc, &s.m.MapCode, &s.m.CustomerID, &s.country,
		&s.mapData, &s.mapBounds, &s.m.Active, &s.m.CreatedAt, &s.m.UpdatedAt}
	return append(d, extra...)
}

func (s *mapScan) result() model.Map {
	m := s.m
	m.Description = nullString(s.desc)
	m.Country = nullString(s.country)
	m.MapData = rawJSON(s.mapData)
	m.MapBounds = rawJSON(s.mapBounds)
	return m
}

// Create inserts the map row. The caller supplies MapCode.
func (r *MapRepo) Create(ctx context.Context, m *model.Map) error {
	const q = `INSERT INTO map (title, description, map_code, customer_id, country, map_data, map_bounds, active)
	           VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8)
	           RETURNING ` // columns appended below
	var s mapScan
	err := r.db.QueryRowContext(ctx, q+mapColumns(""),
		m.Title, m.Description, m.MapCode, m.CustomerID, m.Country,
		jsonArg(m.MapData), jsonArg(m.MapBounds), m.Active,
	).Scan(s.dest()...)
	if err != nil {
		return translate(err)
	}
	*m = s.result()
	return nil
}

// GrantAccess records an access level for a customer on a map. An
// existing row for the pair is updated in place.
func (r *MapRepo) GrantAccess(ctx context.Context, customerID, mapID int64, level string) error {
	const q = `INSERT INTO customer_map (customer_id, map_id, access_level)
	           VALUES ($1, $2, $3)
	           ON CONFLICT (customer_id, map_id) DO UPDATE SET access_level = EXCLUDED.access_level`
	_, err := r.db.ExecContext(ctx, q, customerID, mapID, level)
	return translate(err)
}

// GetByID fetches a map regardless of owner.
func (r *MapRepo) GetByID(ctx context.Context, id int64) (*model.Map, error) {
	var s mapScan
	err := r.db.QueryRowContext(ctx, `SELECT `+mapColumns("")+` FROM map WHERE map_id = $1`, id).Scan(s.dest()...)
	if err != nil {
		return nil, translate(err)
	}
	m := s.result()
	return &m, nil
}

// GetByCode fetches a map by its shareable code.
func (r *MapRepo) GetByCode(ctx context.Context, code string) (*model.Map, error) {
	var s mapScan
	err := r.db.QueryRowContext(ctx, `SELECT `+mapColumns("")+` FROM map WHERE map_code = $1`, code).Scan(s.dest()...)
	if err != nil {
		return nil, translate(err)
	}
	m := s.result()
	return &m, nil
}

// OwnerOf returns the owning customer of a map.
func (r *MapRepo) OwnerOf(ctx context.Context, mapID int64) (int64, error) {
	var owner int64
	err := r.db.QueryRowContext(ctx, `SELECT customer_id FROM map WHERE map_id = $1`, mapID).Scan(&owner)
	return owner, translate(err)
}

// UpdateOwned applies a patch to a map owned by customerID. A map that does
// not exist and a map owned by someone else both yield ErrNotFound.
func (r *MapRepo) UpdateOwned(ctx context.Context, mapID, customerID int64, p MapPatch) (*model.Map, error) {
	const q = `UPDATE map SET
	               title       = COALESCE($3::text, title),
	               description = COALESCE($4::text, description),
	               country     = COALESCE($5::text, country),
	               map_data    = COALESCE($6::jsonb, map_data),
	               map_bounds  = COALESCE($7::jsonb, map_bounds),
	               active      = COALESCE($8::boolean, active),
	               updated_at  = NOW()
	           WHERE map_id = $1 AND customer_id = $2
	           RETURNING `
	var s mapScan
	err := r.db.QueryRowContext(ctx, q+mapColumns(""),
		mapID, customerID, p.Title, p.Description, p.Country,
		jsonArg(p.MapData), jsonArg(p.MapBounds), p.Active,
	).Scan(s.dest()...)
	if err != nil {
		return nil, translate(err)
	}
	m := s.result()
	return &m, nil
}

// DeleteCascade removes a map's zones, its customer_map rows and the map
// itself. Run it inside a transaction so no orphan survives a failure.
func (r *MapRepo) DeleteCascade(ctx context.Context, mapID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM zones WHERE map_id = $1`, mapID); err != nil {
		return translate(err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM customer_map WHERE map_id = $1`, mapID); err != nil {
		return translate(err)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM map WHERE map_id = $1`, mapID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByCustomer returns the customer's maps with their zone counts,
// newest first.
func (r *MapRepo) ListByCustomer(ctx context.Context, customerID int64) ([]model.MapSummary, error) {
	q := `SELECT ` + mapColumns("m") + `, COUNT(z.id)
	      FROM map m
	      LEFT JOIN zones z ON z.map_id = m.map_id
	      WHERE m.customer_id = $1
	      GROUP BY m.map_id
	      ORDER BY m.created_at DESC, m.map_id DESC`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []model.MapSummary{}
	for rows.Next() {
		var s mapScan
		var count int
		if err := rows.Scan(s.dest(&count)...); err != nil {
			return nil, err
		}
		out = append(out, model.MapSummary{Map: s.result(), ZoneCount: count})
	}
	return out, rows.Err()
}

// ListAll returns every map with owner details and zone count for the
// admin dashboard, newest first.
func (r *MapRepo) ListAll(ctx context.Context) ([]model.AdminMapSummary, error) {
	q := `SELECT ` + mapColumns("m") + `, COUNT(z.id), c.first_name, c.last_name, c.email
	      FROM map m
	      JOIN customer c ON c.customer_id = m.customer_id
	      LEFT JOIN zones z ON z.map_id = m.map_id
	      GROUP BY m.map_id, c.customer_id
	      ORDER BY m.created_at DESC, m.map_id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []model.AdminMapSummary{}
	for rows.Next() {
		var s mapScan
		var a model.AdminMapSummary
		if err := rows.Scan(s.dest(&a.ZoneCount, &a.OwnerFirstName, &a.OwnerLastName, &a.OwnerEmail)...); err != nil {
			return nil, err
		}
		a.Map = s.result()
		out = append(out, a)
	}
	return out, rows.Err()
}

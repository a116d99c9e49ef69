package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/mapit/internal/model"
)

// PackageRepo reads the package catalog.
type PackageRepo struct{ db DBTX }

// NewPackageRepo returns a new PackageRepo bound to the given handle.
func NewPackageRepo(db DBTX) *PackageRepo { return &PackageRepo{db: db} }

// WithTx returns a copy of the repository bound to tx.
func (r *PackageRepo) WithTx(tx *sql.Tx) *PackageRepo { return &PackageRepo{db: tx} }

const packageColumns = `package_id, name, price, allowed_maps, priority, active`

func scanPackage(row interface{ Scan(...any) error }, p *model.Package) error {
	return row.Scan(&p.ID, &p.Name, &p.Price, &p.AllowedMaps, &p.Priority, &p.Active)
}

// Create inserts a package.
func (r *PackageRepo) Create(ctx context.Context, p *model.Package) error {
	const q = `INSERT INTO packages (name, price, allowed_maps, priority, active)
	           VALUES ($1, $2, $3, $4, $5)
	           RETURNING ` + packageColumns
	return translate(scanPackage(r.db.QueryRowContext(ctx, q, p.Name, p.Price, p.AllowedMaps, p.Priority, p.Active), p))
}

// GetByID fetches a package whether or not it is active.
func (r *PackageRepo) GetByID(ctx context.Context, id int64) (*model.Package, error) {
	var p model.Package
	if err := scanPackage(r.db.QueryRowContext(ctx, `SELECT `+packageColumns+` FROM packages WHERE package_id = $1`, id), &p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// ListActive returns active packages ordered by priority.
func (r *PackageRepo) ListActive(ctx context.Context) ([]model.Package, error) {
	return r.list(ctx, `SELECT `+packageColumns+` FROM packages WHERE active ORDER BY priority, package_id`)
}

// ListAll returns the whole catalog, inactive packages included.
func (r *PackageRepo) ListAll(ctx context.Context) ([]model.Package, error) {
	return r.list(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY priority, package_id`)
}

func (r *PackageRepo) list(ctx context.Context, q string) ([]model.Package, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []model.Package{}
	for rows.Next() {
		var p model.Package
		if err := scanPackage(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

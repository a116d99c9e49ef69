package repository

import (
	"context"
	"errors"

	"github.com/iliyamo/mapit/internal/model"
)

// AdminRepo persists the `admin` table.
type AdminRepo struct{ db DBTX }

// NewAdminRepo returns a new AdminRepo bound to the given handle.
func NewAdminRepo(db DBTX) *AdminRepo { return &AdminRepo{db: db} }

const adminColumns = `admin_id, first_name, last_name, email, password_hash, last_login, created_at`

func scanAdmin(row interface{ Scan(...any) error }, a *model.Admin) error {
	return row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PasswordHash, &a.LastLogin, &a.CreatedAt)
}

// Create inserts an admin with an already hashed credential.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	a.Email = NormalizeEmail(a.Email)
	const q = `INSERT INTO admin (first_name, last_name, email, password_hash)
	           VALUES ($1, $2, $3, $4)
	           RETURNING ` + adminColumns
	if err := scanAdmin(r.db.QueryRowContext(ctx, q, a.FirstName, a.LastName, a.Email, a.PasswordHash), a); err != nil {
		err = translate(err)
		if errors.Is(err, ErrConflict) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches an admin by normalized email.
func (r *AdminRepo) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var a model.Admin
	err := scanAdmin(r.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admin WHERE email = $1 LIMIT 1`, NormalizeEmail(email)), &a)
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// TouchLastLogin stamps last_login with the database clock and returns the
// new value on the admin.
func (r *AdminRepo) TouchLastLogin(ctx context.Context, a *model.Admin) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE admin SET last_login = NOW() WHERE admin_id = $1 RETURNING last_login`, a.ID).Scan(&a.LastLogin)
	return translate(err)
}

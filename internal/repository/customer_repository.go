package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/mapit/internal/model"
)

// CustomerRepo persists the `customer` table.
type CustomerRepo struct{ db DBTX }

// NewCustomerRepo returns a new CustomerRepo bound to the given handle.
func NewCustomerRepo(db DBTX) *CustomerRepo { return &CustomerRepo{db: db} }

// WithTx returns a copy of the repository bound to tx.
func (r *CustomerRepo) WithTx(tx *sql.Tx) *CustomerRepo { return &CustomerRepo{db: tx} }

// ErrEmailExists is returned by Create when the email is already registered.
var ErrEmailExists = errors.New("email already exists")

const customerColumns = `customer_id, first_name, last_name, email, password_hash, registration_date`

func scanCustomer(row interface{ Scan(...any) error }, c *model.Customer) error {
	return row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.PasswordHash, &c.RegistrationDate)
}

// NormalizeEmail trims and lower-cases an address the same way for
// registration and lookup.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create inserts a customer with an already hashed credential and fills in
// the generated id and registration date.
func (r *CustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	c.Email = NormalizeEmail(c.Email)
	const q = `INSERT INTO customer (first_name, last_name, email, password_hash)
	           VALUES ($1, $2, $3, $4)
	           RETURNING ` + customerColumns
	err := scanCustomer(r.db.QueryRowContext(ctx, q, c.FirstName, c.LastName, c.Email, c.PasswordHash), c)
	if err != nil {
		err = translate(err)
		if errors.Is(err, ErrConflict) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a customer by normalized email.
func (r *CustomerRepo) GetByEmail(ctx context.Context, email string) (*model.Customer, error) {
	var c model.Customer
	err := scanCustomer(r.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customer WHERE email = $1 LIMIT 1`,
		NormalizeEmail(email)), &c)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// GetByID fetches a customer by id.
func (r *CustomerRepo) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	err := scanCustomer(r.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customer WHERE customer_id = $1`, id), &c)
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// UpdatePasswordHash replaces the stored credential.
func (r *CustomerRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE customer SET password_hash = $1 WHERE customer_id = $2`, hash, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWithCounts returns every customer with the number of maps and orders,
// newest registration first.
func (r *CustomerRepo) ListWithCounts(ctx context.Context) ([]model.CustomerSummary, error) {
	const q = `SELECT c.customer_id, c.first_name, c.last_name, c.email, c.password_hash, c.registration_date,
	                  (SELECT COUNT(*) FROM map m WHERE m.customer_id = c.customer_id),
	                  (SELECT COUNT(*) FROM orders o WHERE o.customer_id = c.customer_id)
	           FROM customer c
	           ORDER BY c.registration_date DESC, c.customer_id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	out := []model.CustomerSummary{}
	for rows.Next() {
		var s model.CustomerSummary
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.PasswordHash, &s.RegistrationDate,
			&s.MapCount, &s.OrderCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

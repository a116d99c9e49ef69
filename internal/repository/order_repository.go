package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/mapit/internal/model"
)

// OrderRepo persists package purchases.
type OrderRepo struct{ db DBTX }

// NewOrderRepo returns a new OrderRepo bound to the given handle.
func NewOrderRepo(db DBTX) *OrderRepo { return &OrderRepo{db: db} }

// WithTx returns a copy of the repository bound to tx.
func (r *OrderRepo) WithTx(tx *sql.Tx) *OrderRepo { return &OrderRepo{db: tx} }

const orderColumns = `o.id, o.customer_id, o.package_id, p.name, o.date_time, o.total, o.status, o.created_at, o.updated_at`

func orderDest(o *model.Order, extra ...any) []any {
	d := []any{&o.ID, &o.CustomerID, &o.PackageID, &o.PackageName, &o.DateTime, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt}
	return append(d, extra...)
}

// Create inserts an order and fills in the generated fields. Total and
// Status must be set by the caller.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	const q = `WITH o AS (
	               INSERT INTO orders (customer_id, package_id, total, status)
	               VALUES ($1, $2, $3, $4)
	               RETURNING *
	           )
	           SELECT ` + orderColumns + ` FROM o JOIN packages p ON p.package_id = o.package_id`
	err := r.db.QueryRowContext(ctx, q, o.CustomerID, o.PackageID, o.Total, o.Status).Scan(orderDest(o)...)
	return translate(err)
}

// ListByCustomer returns a customer's orders newest first.
func (r *OrderRepo) ListByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	const q = `SELECT ` + orderColumns + `
	           FROM orders o JOIN packages p ON p.package_id = o.package_id
	           WHERE o.customer_id = $1
	           ORDER BY o.date_time DESC, o.id DESC`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(orderDest(&o)...); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CurrentPackage returns the package of the customer's most recent
// completed order.
func (r *OrderRepo) CurrentPackage(ctx context.Context, customerID int64) (*model.CurrentPackage, error) {
	const q = `SELECT p.package_id, p.name, p.price, p.allowed_maps, p.priority, p.active, o.id, o.date_time
	           FROM orders o JOIN packages p ON p.package_id = o.package_id
	           WHERE o.customer_id = $1 AND o.status = $2
	           ORDER BY o.date_time DESC, o.id DESC
	           LIMIT 1`
	var cp model.CurrentPackage
	err := r.db.QueryRowContext(ctx, q, customerID, model.OrderCompleted).Scan(
		&cp.ID, &cp.Name, &cp.Price, &cp.AllowedMaps, &cp.Priority, &cp.Active, &cp.OrderID, &cp.PurchasedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &cp, nil
}

// ListAll returns every order with customer details, newest first.
func (r *OrderRepo) ListAll(ctx context.Context) ([]model.AdminOrder, error) {
	const q = `SELECT ` + orderColumns + `, c.first_name, c.last_name, c.email
	           FROM orders o
	           JOIN packages p ON p.package_id = o.package_id
	           JOIN customer c ON c.customer_id = o.customer_id
	           ORDER BY o.date_time DESC, o.id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	out := []model.AdminOrder{}
	for rows.Next() {
		var a model.AdminOrder
		if err := rows.Scan(orderDest(&a.Order, &a.CustomerFirstName, &a.CustomerLastName, &a.CustomerEmail)...); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats aggregates dashboard counters in one round trip.
func (r *OrderRepo) Stats(ctx context.Context) (*model.Stats, error) {
	const q = `SELECT
	               (SELECT COUNT(*) FROM customer),
	               (SELECT COUNT(*) FROM map),
	               (SELECT COUNT(*) FROM map WHERE active),
	               (SELECT COUNT(*) FROM zones),
	               (SELECT COUNT(*) FROM orders),
	               (SELECT COUNT(*) FROM orders WHERE status = $1),
	               (SELECT COALESCE(SUM(total), 0) FROM orders WHERE status = $1)`
	var s model.Stats
	err := r.db.QueryRowContext(ctx, q, model.OrderCompleted).Scan(
		&s.Customers, &s.Maps, &s.ActiveMaps, &s.Zones, &s.Orders, &s.CompletedOrders, &s.Revenue)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

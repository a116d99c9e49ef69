package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/iliyamo/mapit/internal/model"
	"github.com/iliyamo/mapit/internal/repository"
)

// CommerceService implements the package catalog and orders. There is no
// payment step: orders are completed when they are created.
type CommerceService struct {
	customers *repository.CustomerRepo
	packages  *repository.PackageRepo
	orders    *repository.OrderRepo
	events    EventPublisher
	log       *slog.Logger
}

// NewCommerceService builds the package and order service.
func NewCommerceService(db *sql.DB, events EventPublisher, log *slog.Logger) *CommerceService {
	if events == nil {
		events = NopPublisher{}
	}
	return &CommerceService{
		customers: repository.NewCustomerRepo(db),
		packages:  repository.NewPackageRepo(db),
		orders:    repository.NewOrderRepo(db),
		events:    events,
		log:       log.With("component", "commerce"),
	}
}

// ListActivePackages returns the active catalog ordered by priority.
func (s *CommerceService) ListActivePackages(ctx context.Context) ([]model.Package, error) {
	out, err := s.packages.ListActive(ctx)
	return out, fromRepo(err, "list packages", msgPackageNotFound)
}

// CreateOrder records a completed purchase at the package's current price.
func (s *CommerceService) CreateOrder(ctx context.Context, customerID, packageID int64) (*model.Order, error) {
	if customerID <= 0 || packageID <= 0 {
		return nil, Validation("customer_id and package_id are required")
	}
	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, fromRepo(err, "create order", msgCustomerNotFound)
	}
	pkg, err := activePackage(ctx, s.packages, packageID)
	if err != nil {
		return nil, err
	}
	o := &model.Order{
		CustomerID: customerID,
		PackageID:  pkg.ID,
		Total:      pkg.Price,
		Status:     model.OrderCompleted,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fromRepo(err, "create order", msgCustomerNotFound)
	}
	s.log.Info("order completed", "order_id", o.ID, "customer_id", customerID, "package_id", pkg.ID)
	publishOrderCompleted(ctx, s.events, s.log, o, pkg, c.Email, sourceOrder)
	return o, nil
}

// CustomerOrderHistory returns a customer's orders, newest first.
func (s *CommerceService) CustomerOrderHistory(ctx context.Context, customerID int64) ([]model.Order, error) {
	out, err := s.orders.ListByCustomer(ctx, customerID)
	return out, fromRepo(err, "list orders", msgCustomerNotFound)
}

// CustomerCurrentPackage returns the package of the most recent completed
// order.
func (s *CommerceService) CustomerCurrentPackage(ctx context.Context, customerID int64) (*model.CurrentPackage, error) {
	cp, err := s.orders.CurrentPackage(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound(msgCurrentPkgNotFound)
	}
	if err != nil {
		return nil, fromRepo(err, "current package", msgCurrentPkgNotFound)
	}
	return cp, nil
}

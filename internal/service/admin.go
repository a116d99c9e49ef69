package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/iliyamo/mapit/internal/model"
	"github.com/iliyamo/mapit/internal/repository"
	"github.com/iliyamo/mapit/internal/utils"
)

// AdminService implements admin accounts and the dashboard views other
// than the map list, which MapService.ListForAdmin serves.
type AdminService struct {
	admins     *repository.AdminRepo
	customers  *repository.CustomerRepo
	orders     *repository.OrderRepo
	packages   *repository.PackageRepo
	verifiers  utils.VerifierChain
	bcryptCost int
	log        *slog.Logger
}

// NewAdminService builds the admin login and dashboard service.
func NewAdminService(db *sql.DB, bcryptCost int, log *slog.Logger) *AdminService {
	return &AdminService{
		admins:     repository.NewAdminRepo(db),
		customers:  repository.NewCustomerRepo(db),
		orders:     repository.NewOrderRepo(db),
		packages:   repository.NewPackageRepo(db),
		verifiers:  utils.StrictVerifiers(),
		bcryptCost: bcryptCost,
		log:        log.With("component", "admin"),
	}
}

// Login accepts bcrypt credentials only and stamps last_login.
func (s *AdminService) Login(ctx context.Context, email, password string) (*model.Admin, error) {
	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, Validation("email and password are required")
	}
	a, err := s.admins.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fromRepo(err, "admin login", "admin not found")
	}
	if !s.verifiers.Verify(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if err := s.admins.TouchLastLogin(ctx, a); err != nil {
		return nil, fromRepo(err, "admin login", "admin not found")
	}
	s.log.Info("admin logged in", "admin_id", a.ID)
	return a, nil
}

// Create adds an admin account.
func (s *AdminService) Create(ctx context.Context, firstName, lastName, email, password string) (*model.Admin, error) {
	a := &model.Admin{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     repository.NormalizeEmail(email),
	}
	if a.FirstName == "" || a.LastName == "" || a.Email == "" || password == "" {
		return nil, Validation("first_name, last_name, email and password are required")
	}
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, Server("hash password", err)
	}
	a.PasswordHash = hash
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, fromRepo(err, "create admin", "admin not found")
	}
	s.log.Info("admin created", "admin_id", a.ID)
	return a, nil
}

// ListOrders returns every order with customer details.
func (s *AdminService) ListOrders(ctx context.Context) ([]model.AdminOrder, error) {
	out, err := s.orders.ListAll(ctx)
	return out, fromRepo(err, "list orders", "order not found")
}

// ListCustomers returns every customer with map and order counts.
func (s *AdminService) ListCustomers(ctx context.Context) ([]model.CustomerSummary, error) {
	out, err := s.customers.ListWithCounts(ctx)
	return out, fromRepo(err, "list customers", msgCustomerNotFound)
}

// ListPackages returns the whole catalog, inactive packages included.
func (s *AdminService) ListPackages(ctx context.Context) ([]model.Package, error) {
	out, err := s.packages.ListAll(ctx)
	return out, fromRepo(err, "list packages", msgPackageNotFound)
}

// Stats returns the dashboard counters.
func (s *AdminService) Stats(ctx context.Context) (*model.Stats, error) {
	out, err := s.orders.Stats(ctx)
	return out, fromRepo(err, "stats", "stats unavailable")
}

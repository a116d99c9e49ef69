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

// RegisterInput carries the fields of POST /api/register.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	PackageID *int64
}

// Registration is the outcome of Register. Order is nil when no package
// was selected.
type Registration struct {
	Customer *model.Customer
	Order    *model.Order
}

// CustomerService implements customer accounts.
type CustomerService struct {
	db         *sql.DB
	customers  *repository.CustomerRepo
	maps       *repository.MapRepo
	packages   *repository.PackageRepo
	orders     *repository.OrderRepo
	events     EventPublisher
	verifiers  utils.VerifierChain
	bcryptCost int
	log        *slog.Logger
}

// NewCustomerService builds the account service. events receives an
// order event when registration includes a package.
func NewCustomerService(db *sql.DB, events EventPublisher, bcryptCost int, log *slog.Logger) *CustomerService {
	if events == nil {
		events = NopPublisher{}
	}
	return &CustomerService{
		db:         db,
		customers:  repository.NewCustomerRepo(db),
		maps:       repository.NewMapRepo(db),
		packages:   repository.NewPackageRepo(db),
		orders:     repository.NewOrderRepo(db),
		events:     events,
		verifiers:  utils.LegacyVerifiers(),
		bcryptCost: bcryptCost,
		log:        log.With("component", "customers"),
	}
}

// Register creates a customer. With a package the order is written in the
// same transaction, so an unknown package leaves no customer behind.
func (s *CustomerService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = repository.NormalizeEmail(in.Email)
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Password == "" {
		return nil, Validation("first_name, last_name, email and password are required")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, Validation("invalid email")
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, Server("hash password", err)
	}

	out := &Registration{Customer: &model.Customer{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	}}
	var pkg *model.Package
	err = repository.InTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.customers.WithTx(tx).Create(ctx, out.Customer); err != nil {
			return fromRepo(err, "register", msgCustomerNotFound)
		}
		if in.PackageID == nil {
			return nil
		}
		p, err := activePackage(ctx, s.packages.WithTx(tx), *in.PackageID)
		if err != nil {
			return err
		}
		pkg = p
		out.Order = &model.Order{
			CustomerID: out.Customer.ID,
			PackageID:  pkg.ID,
			Total:      pkg.Price,
			Status:     model.OrderCompleted,
		}
		return fromRepo(s.orders.WithTx(tx).Create(ctx, out.Order), "create order", msgPackageNotFound)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("customer registered", "customer_id", out.Customer.ID, "with_package", out.Order != nil)
	if out.Order != nil {
		publishOrderCompleted(ctx, s.events, s.log, out.Order, pkg, out.Customer.Email, sourceRegistration)
	}
	return out, nil
}

// Login verifies the credential against the legacy verifier chain. A
// legacy credential that matches is replaced by a bcrypt hash.
func (s *CustomerService) Login(ctx context.Context, email, password string) (*model.Customer, error) {
	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, Validation("email and password are required")
	}
	c, err := s.customers.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fromRepo(err, "login", msgCustomerNotFound)
	}
	v := s.verifiers.Match(c.PasswordHash, password)
	if v == nil {
		return nil, ErrInvalidCredentials
	}
	if v.Name() != (utils.BcryptVerifier{}).Name() {
		s.upgradeCredential(ctx, c, password, v.Name())
	}
	return c, nil
}

func (s *CustomerService) upgradeCredential(ctx context.Context, c *model.Customer, password, scheme string) {
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err == nil {
		err = s.customers.UpdatePasswordHash(ctx, c.ID, hash)
	}
	if err != nil {
		s.log.Warn("legacy credential upgrade failed", "customer_id", c.ID, "scheme", scheme, "error", err)
		return
	}
	c.PasswordHash = hash
	s.log.Info("legacy credential upgraded", "customer_id", c.ID, "scheme", scheme)
}

// Get returns a customer profile.
func (s *CustomerService) Get(ctx context.Context, id int64) (*model.Customer, error) {
	c, err := s.customers.GetByID(ctx, id)
	return c, fromRepo(err, "get customer", msgCustomerNotFound)
}

// ListMaps returns the customer's maps with zone counts, newest first. An
// unknown customer yields an empty list.
func (s *CustomerService) ListMaps(ctx context.Context, customerID int64) ([]model.MapSummary, error) {
	out, err := s.maps.ListByCustomer(ctx, customerID)
	return out, fromRepo(err, "list maps", msgCustomerNotFound)
}

// activePackage loads a package and rejects inactive ones with the same
// not-found error as a missing package.
func activePackage(ctx context.Context, repo *repository.PackageRepo, id int64) (*model.Package, error) {
	pkg, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "get package", msgPackageNotFound)
	}
	if !pkg.Active {
		return nil, NotFound(msgPackageNotFound)
	}
	return pkg, nil
}

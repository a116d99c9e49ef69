package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/mapit/internal/model"
	"github.com/iliyamo/mapit/internal/service"
)

// Service contracts used by the handlers. The *service types satisfy
// them; tests substitute fakes.

type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.Registration, error)
	Login(ctx context.Context, email, password string) (*model.Customer, error)
	Get(ctx context.Context, id int64) (*model.Customer, error)
	ListMaps(ctx context.Context, customerID int64) ([]model.MapSummary, error)
}

type Admins interface {
	Login(ctx context.Context, email, password string) (*model.Admin, error)
	ListOrders(ctx context.Context) ([]model.AdminOrder, error)
	ListCustomers(ctx context.Context) ([]model.CustomerSummary, error)
	ListPackages(ctx context.Context) ([]model.Package, error)
	Stats(ctx context.Context) (*model.Stats, error)
}

type Maps interface {
	Create(ctx context.Context, in service.CreateMapInput) (*model.Map, error)
	Update(ctx context.Context, mapID int64, in service.UpdateMapInput) (*model.Map, error)
	Get(ctx context.Context, mapID int64) (*model.Map, error)
	GetByCode(ctx context.Context, code string) (*model.Map, error)
	Delete(ctx context.Context, mapID int64, customerID *int64) error
	ListForAdmin(ctx context.Context) ([]model.AdminMapSummary, error)
}

type Zones interface {
	ListByMap(ctx context.Context, mapID int64) ([]model.Zone, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]model.Zone, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Zone, error)
	Create(ctx context.Context, in service.CreateZoneInput) (*model.Zone, error)
	Update(ctx context.Context, id uuid.UUID, in service.UpdateZoneInput) (*model.Zone, error)
	Delete(ctx context.Context, id uuid.UUID) error
	BulkSave(ctx context.Context, mapID int64, entries []service.BulkZone) ([]model.Zone, error)
}

type Commerce interface {
	ListActivePackages(ctx context.Context) ([]model.Package, error)
	CreateOrder(ctx context.Context, customerID, packageID int64) (*model.Order, error)
	CustomerOrderHistory(ctx context.Context, customerID int64) ([]model.Order, error)
	CustomerCurrentPackage(ctx context.Context, customerID int64) (*model.CurrentPackage, error)
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

var (
	_ Accounts = (*service.CustomerService)(nil)
	_ Admins   = (*service.AdminService)(nil)
	_ Maps     = (*service.MapService)(nil)
	_ Zones    = (*service.ZoneService)(nil)
	_ Commerce = (*service.CommerceService)(nil)
)

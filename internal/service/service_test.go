package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/mapit/internal/database/dbtest"
	"github.com/iliyamo/mapit/internal/model"
	"github.com/iliyamo/mapit/internal/queue"
	"github.com/iliyamo/mapit/internal/repository"
	"github.com/iliyamo/mapit/internal/utils"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.OrderCompletedEvent
	err    error
}

func (p *recordingPublisher) PublishOrderCompleted(_ context.Context, ev queue.OrderCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type fixture struct {
	db        *sql.DB
	events    *recordingPublisher
	customers *CustomerService
	admins    *AdminService
	maps      *MapService
	zones     *ZoneService
	commerce  *CommerceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := &recordingPublisher{}
	return &fixture{
		db:        db,
		events:    pub,
		customers: NewCustomerService(db, pub, bcrypt.MinCost, log),
		admins:    NewAdminService(db, bcrypt.MinCost, log),
		maps:      NewMapService(db, log),
		zones:     NewZoneService(db, log),
		commerce:  NewCommerceService(db, pub, log),
	}
}

func (f *fixture) register(t *testing.T, email string) *model.Customer {
	t.Helper()
	reg, err := f.customers.Register(context.Background(), RegisterInput{
		FirstName: "Alice", LastName: "A", Email: email, Password: "Secret123",
	})
	require.NoError(t, err)
	return reg.Customer
}

func (f *fixture) createMap(t *testing.T, customerID int64, title string) *model.Map {
	t.Helper()
	m, err := f.maps.Create(context.Background(), CreateMapInput{Title: title, CustomerID: customerID})
	require.NoError(t, err)
	return m
}

func (f *fixture) createPackage(t *testing.T, name string, price float64, active bool) *model.Package {
	t.Helper()
	p := &model.Package{Name: name, Price: price, AllowedMaps: 5, Priority: 1, Active: active}
	require.NoError(t, repository.NewPackageRepo(f.db).Create(context.Background(), p))
	return p
}

func (f *fixture) count(t *testing.T, q string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRowContext(context.Background(), q, args...).Scan(&n))
	return n
}

var square = json.RawMessage(`[[0,0],[0,1],[1,1],[1,0],[0,0]]`)

func TestEndToEndCustomerMapZone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.customers.Register(ctx, RegisterInput{
		FirstName: "Alice", LastName: "A", Email: "alice@example.com", Password: "Secret123",
	})
	require.NoError(t, err)
	assert.Nil(t, reg.Order)
	alice := reg.Customer

	m, err := f.maps.Create(ctx, CreateMapInput{Title: "M1", CustomerID: alice.ID})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(m.MapCode, utils.MapCodePrefix))
	assert.True(t, m.Active)

	z, err := f.zones.Create(ctx, CreateZoneInput{MapID: m.ID, Name: "Z1", Color: "#ff0000", Coordinates: square})
	require.NoError(t, err)
	require.NotNil(t, z.CustomerID)
	assert.Equal(t, alice.ID, *z.CustomerID)

	maps, err := f.customers.ListMaps(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, maps, 1)
	assert.Equal(t, m.ID, maps[0].ID)
	assert.Equal(t, 1, maps[0].ZoneCount)

	listed, err := f.zones.ListByMap(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].CustomerID)
	assert.Equal(t, alice.ID, *listed[0].CustomerID)
	assert.JSONEq(t, string(square), string(listed[0].Coordinates))

	level := f.count(t, `SELECT COUNT(*) FROM customer_map WHERE customer_id = $1 AND map_id = $2 AND access_level = 'owner'`, alice.ID, m.ID)
	assert.Equal(t, 1, level)
}

func TestRegisterDuplicateEmailIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "Bob@Example.com")

	_, err := f.customers.Register(ctx, RegisterInput{
		FirstName: "Bob", LastName: "B", Email: "  bob@EXAMPLE.com ", Password: "x",
	})
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM customer WHERE email = 'bob@example.com'`))
}

func TestRegisterValidatesBeforeDatabase(t *testing.T) {
	f := newFixture(t)
	_, err := f.customers.Register(context.Background(), RegisterInput{FirstName: " ", LastName: "A", Email: "a@b.c", Password: "p"})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, 0, f.count(t, `SELECT COUNT(*) FROM customer`))
}

func TestRegisterWithPackageCreatesCompletedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pkg := f.createPackage(t, "Standard", 9.99, true)

	reg, err := f.customers.Register(ctx, RegisterInput{
		FirstName: "Carol", LastName: "C", Email: "carol@example.com", Password: "pw", PackageID: &pkg.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, reg.Order)
	assert.Equal(t, model.OrderCompleted, reg.Order.Status)
	assert.InDelta(t, 9.99, reg.Order.Total, 0.001)
	assert.Equal(t, "Standard", reg.Order.PackageName)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, sourceRegistration, f.events.events[0].Source)
	assert.Equal(t, "carol@example.com", f.events.events[0].CustomerEmail)
}

func TestRegisterWithUnknownPackageRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inactive := f.createPackage(t, "Retired", 1, false)
	missing := int64(9999)

	for _, id := range []*int64{&missing, &inactive.ID} {
		_, err := f.customers.Register(ctx, RegisterInput{
			FirstName: "Dan", LastName: "D", Email: "dan@example.com", Password: "pw", PackageID: id,
		})
		require.Error(t, err)
		assert.Equal(t, KindNotFound, KindOf(err))
	}
	assert.Equal(t, 0, f.count(t, `SELECT COUNT(*) FROM customer`))
	assert.Empty(t, f.events.events)
}

func TestLoginSameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice@example.com")

	c, err := f.customers.Login(ctx, " ALICE@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", c.Email)

	_, wrong := f.customers.Login(ctx, "alice@example.com", "nope")
	_, unknown := f.customers.Login(ctx, "nobody@example.com", "Secret123")
	require.Error(t, wrong)
	require.Error(t, unknown)
	assert.Equal(t, KindUnauthorized, KindOf(wrong))
	assert.Equal(t, wrong.Error(), unknown.Error())
}

func TestLoginUpgradesLegacyCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	legacy := map[string]string{
		"b64@example.com":   base64.StdEncoding.EncodeToString([]byte("Secret123")),
		"plain@example.com": "Secret123",
	}
	for email, stored := range legacy {
		_, err := f.db.ExecContext(ctx,
			`INSERT INTO customer (first_name, last_name, email, password_hash) VALUES ('L', 'G', $1, $2)`, email, stored)
		require.NoError(t, err)
	}

	for email := range legacy {
		_, err := f.customers.Login(ctx, email, "Secret123")
		require.NoError(t, err, email)

		var hash string
		require.NoError(t, f.db.QueryRowContext(ctx, `SELECT password_hash FROM customer WHERE email = $1`, email).Scan(&hash))
		assert.True(t, utils.IsBcryptHash(hash), email)

		_, err = f.customers.Login(ctx, email, "Secret123")
		assert.NoError(t, err, email)
	}
}

func TestAdminLoginIsBcryptOnlyAndStampsLastLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.admins.Create(ctx, "Root", "Admin", "Root@Example.com", "Adm1n!")
	require.NoError(t, err)
	assert.Nil(t, a.LastLogin)

	got, err := f.admins.Login(ctx, "root@example.com", "Adm1n!")
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)

	_, err = f.db.ExecContext(ctx,
		`INSERT INTO admin (first_name, last_name, email, password_hash) VALUES ('P', 'T', 'plain@example.com', 'Adm1n!')`)
	require.NoError(t, err)
	_, err = f.admins.Login(ctx, "plain@example.com", "Adm1n!")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = f.admins.Create(ctx, "Root", "Again", "root@example.com", "x")
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestMapCreateUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	_, err := f.maps.Create(context.Background(), CreateMapInput{Title: "Nowhere", CustomerID: 4242})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, 0, f.count(t, `SELECT COUNT(*) FROM map`))
}

func TestMapCreateDuplicateCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	_, err := f.maps.Create(ctx, CreateMapInput{Title: "A", CustomerID: alice.ID, MapCode: "MAP-SHARED"})
	require.NoError(t, err)
	_, err = f.maps.Create(ctx, CreateMapInput{Title: "B", CustomerID: alice.ID, MapCode: "MAP-SHARED"})
	assert.Equal(t, KindConflict, KindOf(err))

	m, err := f.maps.GetByCode(ctx, "MAP-SHARED")
	require.NoError(t, err)
	assert.Equal(t, "A", m.Title)
}

func TestMapUpdateRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	mallory := f.register(t, "mallory@example.com")
	m := f.createMap(t, alice.ID, "Original")

	_, foreign := f.maps.Update(ctx, m.ID, UpdateMapInput{Title: "Stolen", CustomerID: mallory.ID})
	_, missing := f.maps.Update(ctx, m.ID+100, UpdateMapInput{Title: "Ghost", CustomerID: alice.ID})
	for _, err := range []error{foreign, missing} {
		require.Error(t, err)
		assert.Equal(t, KindNotFound, KindOf(err))
		assert.Equal(t, msgMapNotOwned, err.(*Error).Message)
	}

	country := "NL"
	active := false
	updated, err := f.maps.Update(ctx, m.ID, UpdateMapInput{
		Title: "Renamed", CustomerID: alice.ID, Country: &country, Active: &active,
		MapData: json.RawMessage(`{"zoom":7}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	require.NotNil(t, updated.Country)
	assert.Equal(t, "NL", *updated.Country)
	assert.False(t, updated.Active)
	assert.JSONEq(t, `{"zoom":7}`, string(updated.MapData))
	assert.Equal(t, m.MapCode, updated.MapCode)
}

func TestMapDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	m := f.createMap(t, alice.ID, "Doomed")
	for _, name := range []string{"a", "b"} {
		_, err := f.zones.Create(ctx, CreateZoneInput{MapID: m.ID, Name: name, Color: "#000", Coordinates: square})
		require.NoError(t, err)
	}

	other := alice.ID + 1
	err := f.maps.Delete(ctx, m.ID, &other)
	assert.Equal(t, KindNotFound, KindOf(err))

	require.NoError(t, f.maps.Delete(ctx, m.ID, &alice.ID))
	zones, err := f.zones.ListByMap(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, zones)
	assert.Equal(t, 0, f.count(t, `SELECT COUNT(*) FROM customer_map WHERE map_id = $1`, m.ID))

	err = f.maps.Delete(ctx, m.ID, nil)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestMapListForAdmin(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com")
	f.createMap(t, alice.ID, "First")
	second := f.createMap(t, alice.ID, "Second")

	out, err := f.maps.ListForAdmin(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, second.ID, out[0].ID)
	assert.Equal(t, "alice@example.com", out[0].OwnerEmail)
}

func TestZoneCreateResolvesOwnerAndRejectsUnknownMap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.zones.Create(ctx, CreateZoneInput{MapID: 77, Name: "z", Color: "#fff", Coordinates: square})
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.zones.Create(ctx, CreateZoneInput{MapID: 77, Name: "z", Color: "#fff", Coordinates: json.RawMessage(`[]`)})
	assert.Equal(t, KindValidation, KindOf(err))
	_, err = f.zones.Create(ctx, CreateZoneInput{MapID: 77, Name: "z", Color: "#fff", Coordinates: json.RawMessage(`{"a":1}`)})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestZoneCreateUnknownCustomerNamesCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	m := f.createMap(t, alice.ID, "M")
	ghost := int64(9999)

	_, err := f.zones.Create(ctx, CreateZoneInput{MapID: m.ID, Name: "z", Color: "#fff", Coordinates: square, CustomerID: &ghost})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, msgCustomerNotFound, err.(*Error).Message)

	_, err = f.zones.BulkSave(ctx, m.ID, []BulkZone{
		{ID: "temp-a", Name: "a", Color: "#111", Coordinates: square},
		{ID: "temp-b", Name: "b", Color: "#222", Coordinates: square, CustomerID: &ghost},
	})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Contains(t, err.(*Error).Message, msgCustomerNotFound)
	assert.Equal(t, 0, f.count(t, `SELECT COUNT(*) FROM zones WHERE map_id = $1`, m.ID))
}

func TestZonePartialUpdateKeepsOmittedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	m := f.createMap(t, alice.ID, "M")
	z, err := f.zones.Create(ctx, CreateZoneInput{MapID: m.ID, Name: "Old", Color: "#123456", Coordinates: square})
	require.NoError(t, err)

	name := "X"
	got, err := f.zones.Update(ctx, z.ID, UpdateZoneInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "X", got.Name)
	assert.Equal(t, "#123456", got.Color)
	assert.JSONEq(t, string(square), string(got.Coordinates))

	_, err = f.zones.Update(ctx, uuid.New(), UpdateZoneInput{Name: &name})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestZoneDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	m := f.createMap(t, alice.ID, "M")
	z, err := f.zones.Create(ctx, CreateZoneInput{MapID: m.ID, Name: "Z", Color: "#fff", Coordinates: square})
	require.NoError(t, err)

	require.NoError(t, f.zones.Delete(ctx, z.ID))
	assert.Equal(t, KindNotFound, KindOf(f.zones.Delete(ctx, z.ID)))
	_, err = f.zones.Get(ctx, z.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestBulkSaveInsertsAndUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	m := f.createMap(t, alice.ID, "M")
	existing, err := f.zones.Create(ctx, CreateZoneInput{MapID: m.ID, Name: "Keep", Color: "#111", Coordinates: square})
	require.NoError(t, err)

	out, err := f.zones.BulkSave(ctx, m.ID, []BulkZone{
		{ID: "temp-1", Name: "New1", Color: "#222", Coordinates: square},
		{ID: existing.ID.String(), Name: "Kept", Color: "#333", Coordinates: square},
		{Name: "New2", Color: "#444", Coordinates: square},
	})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.NotEqual(t, uuid.Nil, out[0].ID)
	assert.Equal(t, existing.ID, out[1].ID)
	assert.Equal(t, "Kept", out[1].Name)
	require.NotNil(t, out[2].CustomerID)
	assert.Equal(t, alice.ID, *out[2].CustomerID)

	all, err := f.zones.ListByMap(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := f.zones.ListByCustomer(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestBulkSaveIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	m := f.createMap(t, alice.ID, "M")
	seed, err := f.zones.Create(ctx, CreateZoneInput{MapID: m.ID, Name: "Seed", Color: "#000", Coordinates: square})
	require.NoError(t, err)
	before := f.count(t, `SELECT COUNT(*) FROM zones WHERE map_id = $1`, m.ID)

	batches := map[string][]BulkZone{
		"name too long for column": {
			{ID: "temp-a", Name: "one", Color: "#111", Coordinates: square},
			{ID: "temp-b", Name: strings.Repeat("n", 300), Color: "#222", Coordinates: square},
			{ID: "temp-c", Name: "three", Color: "#333", Coordinates: square},
		},
		"unknown stored id": {
			{ID: seed.ID.String(), Name: "renamed", Color: "#111", Coordinates: square},
			{ID: uuid.NewString(), Name: "ghost", Color: "#222", Coordinates: square},
			{ID: "temp-c", Name: "three", Color: "#333", Coordinates: square},
		},
	}
	for name, batch := range batches {
		_, err := f.zones.BulkSave(ctx, m.ID, batch)
		require.Error(t, err, name)
		assert.Contains(t, err.(*Error).Message, "zone 1", name)
		assert.Equal(t, before, f.count(t, `SELECT COUNT(*) FROM zones WHERE map_id = $1`, m.ID), name)
	}

	got, err := f.zones.Get(ctx, seed.ID)
	require.NoError(t, err)
	assert.Equal(t, "Seed", got.Name)
}

func TestBulkSaveValidatesEveryEntryFirst(t *testing.T) {
	f := newFixture(t)
	_, err := f.zones.BulkSave(context.Background(), 1, []BulkZone{
		{Name: "ok", Color: "#fff", Coordinates: square},
		{Name: "", Color: "#fff", Coordinates: square},
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.zones.BulkSave(context.Background(), 1, nil)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestOrdersAndCurrentPackage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	basic := f.createPackage(t, "Basic", 0, true)
	premium := f.createPackage(t, "Premium", 29.99, true)
	retired := f.createPackage(t, "Retired", 5, false)

	_, err := f.commerce.CustomerCurrentPackage(ctx, alice.ID)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.commerce.CreateOrder(ctx, alice.ID, basic.ID)
	require.NoError(t, err)
	o, err := f.commerce.CreateOrder(ctx, alice.ID, premium.ID)
	require.NoError(t, err)
	assert.InDelta(t, 29.99, o.Total, 0.001)
	assert.Equal(t, model.OrderCompleted, o.Status)

	_, err = f.db.ExecContext(ctx, `UPDATE packages SET price = 49.99 WHERE package_id = $1`, premium.ID)
	require.NoError(t, err)

	_, err = f.commerce.CreateOrder(ctx, alice.ID, retired.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
	_, err = f.commerce.CreateOrder(ctx, 999, basic.ID)
	assert.Equal(t, KindNotFound, KindOf(err))

	history, err := f.commerce.CustomerOrderHistory(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Premium", history[0].PackageName)
	assert.InDelta(t, 29.99, history[0].Total, 0.001)

	cur, err := f.commerce.CustomerCurrentPackage(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, premium.ID, cur.ID)
	assert.Equal(t, o.ID, cur.OrderID)

	pkgs, err := f.commerce.ListActivePackages(ctx)
	require.NoError(t, err)
	assert.Len(t, pkgs, 2)
	assert.Len(t, f.events.events, 2)

	stats, err := f.admins.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Customers)
	assert.Equal(t, 2, stats.CompletedOrders)
	assert.InDelta(t, 29.99, stats.Revenue, 0.001)
}

func TestPublishFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	alice := f.register(t, "alice@example.com")
	pkg := f.createPackage(t, "Basic", 0, true)

	_, err := f.commerce.CreateOrder(context.Background(), alice.ID, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(t, `SELECT COUNT(*) FROM orders`))
}

package provision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suteetoe/pos-service/internal/identity"
	"github.com/suteetoe/pos-service/internal/model"
	"github.com/suteetoe/pos-service/pkg/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeAdmin records created databases and can simulate pre-existing ones.
type fakeAdmin struct {
	created   []string
	existing  map[string]bool
	createErr error
}

func (f *fakeAdmin) CreateDatabase(ctx context.Context, name string) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.existing[name] {
		return ErrDatabaseExists
	}
	if f.existing == nil {
		f.existing = make(map[string]bool)
	}
	f.existing[name] = true
	f.created = append(f.created, name)
	return nil
}

type fakeSchema struct {
	migrated   int
	seeded     int
	migrateErr error
	seedErr    error
}

func (f *fakeSchema) Migrate(ctx context.Context, db *gorm.DB) error {
	if f.migrateErr != nil {
		return f.migrateErr
	}
	f.migrated++
	return nil
}

func (f *fakeSchema) SeedDefaults(ctx context.Context, db *gorm.DB) error {
	if f.seedErr != nil {
		return f.seedErr
	}
	f.seeded++
	return nil
}

type fakeDirWriter struct {
	tenants   []*model.Tenant
	domains   map[string]uint
	createErr error
}

func (f *fakeDirWriter) CreateTenant(ctx context.Context, tenant *model.Tenant, domains []string) error {
	if f.createErr != nil {
		return f.createErr
	}
	tenant.ID = uint(len(f.tenants) + 1)
	f.tenants = append(f.tenants, tenant)
	if f.domains == nil {
		f.domains = make(map[string]uint)
	}
	for _, d := range domains {
		f.domains[d] = tenant.ID
	}
	return nil
}

// fakeCentralUsers implements identity.CentralStore.
type fakeCentralUsers struct {
	users map[string]*model.CentralUser
}

func (f *fakeCentralUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCentralUsers) CreateUser(ctx context.Context, u *model.CentralUser) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeCentralUsers) DeleteUser(ctx context.Context, id string) error {
	delete(f.users, id)
	return nil
}

func (f *fakeCentralUsers) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return nil
}

// fakeTenantUsers implements identity.TenantStore.
type fakeTenantUsers struct {
	users     map[string]*model.TenantUser
	createErr error
}

func (f *fakeTenantUsers) CreateUser(ctx context.Context, u *model.TenantUser) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeTenantUsers) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return nil
}

type fixture struct {
	prov    *Provisioner
	admin   *fakeAdmin
	schema  *fakeSchema
	dir     *fakeDirWriter
	central *fakeCentralUsers
	tenants *fakeTenantUsers
	opens   []string
}

func newFixture() *fixture {
	f := &fixture{
		admin:   &fakeAdmin{},
		schema:  &fakeSchema{},
		dir:     &fakeDirWriter{},
		central: &fakeCentralUsers{users: make(map[string]*model.CentralUser)},
		tenants: &fakeTenantUsers{users: make(map[string]*model.TenantUser)},
	}
	cfg := &config.DBConfig{
		Host:           "localhost",
		Port:           "5432",
		User:           "postgres",
		Password:       "password",
		DBName:         "pos_center",
		SSLMode:        "disable",
		TenantDBPrefix: "pos_shop_",
	}
	f.prov = &Provisioner{
		cfg:    cfg,
		admin:  f.admin,
		schema: f.schema,
		dir:    f.dir,
		bridge: identity.NewBridgeWithStore(f.central, zap.NewNop()),
		open: func(dsn string) (*gorm.DB, error) {
			f.opens = append(f.opens, dsn)
			return &gorm.DB{}, nil
		},
		tenantStores: func(db *gorm.DB) identity.TenantStore {
			return f.tenants
		},
		log: zap.NewNop(),
	}
	return f
}

func TestProvisionHappyPath(t *testing.T) {
	f := newFixture()

	result, err := f.prov.Provision(context.Background(), Request{
		Name:   "Shop A",
		Slug:   "shop-a",
		Domain: "shop-a.example.com",
	})
	require.NoError(t, err)

	// Database name derived deterministically from the slug.
	require.Equal(t, []string{"pos_shop_shop_a"}, f.admin.created)
	require.Equal(t, "pos_shop_shop_a", result.Tenant.DBName)

	// DSN differs from the central DSN only in the database-name segment.
	require.Equal(t,
		"host=localhost port=5432 user=postgres password=password dbname=pos_shop_shop_a sslmode=disable",
		result.Tenant.DSN)

	require.Equal(t, 1, f.schema.migrated)
	require.Equal(t, 1, f.schema.seeded)
	require.Len(t, f.dir.tenants, 1)
	require.Equal(t, result.Tenant.ID, f.dir.domains["shop-a.example.com"])
	require.True(t, result.Tenant.Active)

	// Owner mirrored with the same identifier, password generated.
	require.Len(t, f.central.users, 1)
	require.Contains(t, f.tenants.users, result.Owner.ID)
	require.Equal(t, "owner@shop-a", result.Owner.Username)
	require.NotEmpty(t, result.OwnerPassword)
}

func TestProvisionValidatesInput(t *testing.T) {
	f := newFixture()

	_, err := f.prov.Provision(context.Background(), Request{Slug: "shop-a", Domain: "d"})
	require.Error(t, err)

	_, err = f.prov.Provision(context.Background(), Request{Name: "Shop", Slug: "Shop_A!", Domain: "d"})
	require.Error(t, err)
	require.Empty(t, f.admin.created)
}

func TestProvisionIdempotentOnExistingDatabase(t *testing.T) {
	f := newFixture()
	f.admin.existing = map[string]bool{"pos_shop_shop_a": true}

	result, err := f.prov.Provision(context.Background(), Request{
		Name:   "Shop A",
		Slug:   "shop-a",
		Domain: "shop-a.example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Tenant)
	// No second database was created.
	require.Empty(t, f.admin.created)
	require.Equal(t, 1, f.schema.migrated)
}

func TestProvisionDatabaseCreationFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.admin.createErr = errors.New("permission denied")

	_, err := f.prov.Provision(context.Background(), Request{
		Name:   "Shop A",
		Slug:   "shop-a",
		Domain: "shop-a.example.com",
	})
	require.Error(t, err)
	require.Empty(t, f.opens)
	require.Empty(t, f.dir.tenants)
}

func TestProvisionMigrationFailureLeavesNoDirectoryRecord(t *testing.T) {
	f := newFixture()
	f.schema.migrateErr = errors.New("migration failed")

	_, err := f.prov.Provision(context.Background(), Request{
		Name:   "Shop A",
		Slug:   "shop-a",
		Domain: "shop-a.example.com",
	})
	require.Error(t, err)
	// The half-migrated database stays unregistered for manual inspection.
	require.Empty(t, f.dir.tenants)
	require.Empty(t, f.central.users)
}

func TestProvisionDirectoryFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.dir.createErr = errors.New("unique violation")

	_, err := f.prov.Provision(context.Background(), Request{
		Name:   "Shop A",
		Slug:   "shop-a",
		Domain: "shop-a.example.com",
	})
	require.Error(t, err)
	require.Empty(t, f.central.users)
	require.Empty(t, f.tenants.users)
}

func TestProvisionOwnerMirrorFailureCompensatesCentral(t *testing.T) {
	f := newFixture()
	f.tenants.createErr = errors.New("duplicate employee code")

	_, err := f.prov.Provision(context.Background(), Request{
		Name:   "Shop A",
		Slug:   "shop-a",
		Domain: "shop-a.example.com",
	})
	require.Error(t, err)

	// The central owner credential must not survive the failed mirror.
	require.Empty(t, f.central.users)
	// The directory record from step 3 remains; re-run is an operator action.
	require.Len(t, f.dir.tenants, 1)
}

func TestProvisionSeedFailureIsBestEffort(t *testing.T) {
	f := newFixture()
	f.schema.seedErr = errors.New("seed failed")

	result, err := f.prov.Provision(context.Background(), Request{
		Name:   "Shop A",
		Slug:   "shop-a",
		Domain: "shop-a.example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Tenant)
	require.Len(t, f.central.users, 1)
}

func TestProvisionHonorsExplicitOwnerCredentials(t *testing.T) {
	f := newFixture()

	result, err := f.prov.Provision(context.Background(), Request{
		Name:          "Shop A",
		Slug:          "shop-a",
		Domain:        "shop-a.example.com",
		OwnerUsername: "boss",
		OwnerPassword: "chosen-password",
	})
	require.NoError(t, err)
	require.Equal(t, "boss", result.Owner.Username)
	// Caller-chosen passwords are never echoed back.
	require.Empty(t, result.OwnerPassword)
}

func TestDBNameForSlug(t *testing.T) {
	f := newFixture()
	require.Equal(t, "pos_shop_shop_a", f.prov.DBNameForSlug("shop-a"))
	require.Equal(t, "pos_shop_corner123", f.prov.DBNameForSlug("corner123"))
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/pos-service/internal/directory"
	"github.com/suteetoe/pos-service/internal/model"
	"github.com/suteetoe/pos-service/internal/tenantdb"
	"gorm.io/gorm"
)

// fakeDirectory maps domains to tenants in memory.
type fakeDirectory struct {
	byDomain map[string]*model.Tenant
	byID     map[uint]*model.Tenant
}

func (f *fakeDirectory) FindTenantByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	t, ok := f.byDomain[domain]
	if !ok || !t.Active {
		return nil, directory.ErrTenantNotFound
	}
	return t, nil
}

func (f *fakeDirectory) FindTenantByID(ctx context.Context, id uint) (*model.Tenant, error) {
	t, ok := f.byID[id]
	if !ok || !t.Active {
		return nil, directory.ErrTenantNotFound
	}
	return t, nil
}

func (f *fakeDirectory) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	return nil, nil
}

func (f *fakeDirectory) SetTenantActive(ctx context.Context, id uint, active bool) (*model.Tenant, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, directory.ErrTenantNotFound
	}
	t.Active = active
	return t, nil
}

func newResolverFixture() (*fakeDirectory, *tenantdb.Cache) {
	shopA := &model.Tenant{ID: 1, Slug: "shop-a", DSN: "dsn-a", Active: true}
	shopB := &model.Tenant{ID: 2, Slug: "shop-b", DSN: "dsn-b", Active: true}
	closed := &model.Tenant{ID: 3, Slug: "closed", DSN: "dsn-c", Active: false}
	dir := &fakeDirectory{
		byDomain: map[string]*model.Tenant{
			"shop-a.example.com": shopA,
			"shop-b.example.com": shopB,
			"closed.example.com": closed,
		},
		byID: map[uint]*model.Tenant{1: shopA, 2: shopB, 3: closed},
	}
	cache := tenantdb.NewCache(dir, func(dsn string) (*gorm.DB, error) {
		return &gorm.DB{}, nil
	})
	return dir, cache
}

func resolveRequest(t *testing.T, dir directory.Directory, cache *tenantdb.Cache, header, host string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	if header != "" {
		req.Header.Set(TenantDomainHeader, header)
	}
	req.Host = host
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var resolved echo.Context
	mw := TenantResolver(dir, cache, nil)
	handler := mw(func(c echo.Context) error {
		resolved = c
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, resolved
}

func TestResolverAttachesTenantHandle(t *testing.T) {
	dir, cache := newResolverFixture()

	rec, c := resolveRequest(t, dir, cache, "shop-a.example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, c)

	db, ok := TenantDB(c)
	require.True(t, ok)
	require.NotNil(t, db)

	id, ok := TenantID(c)
	require.True(t, ok)
	require.Equal(t, uint(1), id)
}

func TestResolverDistinctTenantsGetDistinctHandles(t *testing.T) {
	dir, cache := newResolverFixture()

	_, cA := resolveRequest(t, dir, cache, "shop-a.example.com", "")
	_, cB := resolveRequest(t, dir, cache, "shop-b.example.com", "")

	dbA, _ := TenantDB(cA)
	dbB, _ := TenantDB(cB)
	require.NotSame(t, dbA, dbB)
}

func TestResolverHeaderPreferredOverHost(t *testing.T) {
	dir, cache := newResolverFixture()

	_, c := resolveRequest(t, dir, cache, "shop-b.example.com", "shop-a.example.com")
	id, ok := TenantID(c)
	require.True(t, ok)
	require.Equal(t, uint(2), id)
}

func TestResolverFallsBackToHost(t *testing.T) {
	dir, cache := newResolverFixture()

	// Port must be stripped before the domain comparison.
	_, c := resolveRequest(t, dir, cache, "", "shop-a.example.com:8080")
	id, ok := TenantID(c)
	require.True(t, ok)
	require.Equal(t, uint(1), id)
}

func TestResolverMissingKey(t *testing.T) {
	dir, cache := newResolverFixture()

	rec, resolved := resolveRequest(t, dir, cache, "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Nil(t, resolved)
}

func TestResolverUnknownDomainAddsNothingToCache(t *testing.T) {
	dir, cache := newResolverFixture()

	rec, resolved := resolveRequest(t, dir, cache, "unknown.example.com", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Nil(t, resolved)
	require.Equal(t, 0, cache.Len())
}

func TestResolverInactiveTenantLooksLikeUnknown(t *testing.T) {
	dir, cache := newResolverFixture()

	recUnknown, _ := resolveRequest(t, dir, cache, "unknown.example.com", "")
	recInactive, _ := resolveRequest(t, dir, cache, "closed.example.com", "")

	require.Equal(t, http.StatusNotFound, recUnknown.Code)
	require.Equal(t, http.StatusNotFound, recInactive.Code)
	// Identical bodies: callers cannot tell the two cases apart.
	require.JSONEq(t, recUnknown.Body.String(), recInactive.Body.String())
}

func TestResolverDeactivationAffectsNewResolutions(t *testing.T) {
	dir, cache := newResolverFixture()

	rec, _ := resolveRequest(t, dir, cache, "shop-a.example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := dir.SetTenantActive(context.Background(), 1, false)
	require.NoError(t, err)

	rec, _ = resolveRequest(t, dir, cache, "shop-a.example.com", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolverSkipsAllowListedPaths(t *testing.T) {
	dir, cache := newResolverFixture()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = ""
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := TenantResolver(dir, cache, []string{"/health"})
	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

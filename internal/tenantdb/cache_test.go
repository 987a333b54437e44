package tenantdb

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suteetoe/pos-service/internal/directory"
	"github.com/suteetoe/pos-service/internal/model"
	"gorm.io/gorm"
)

// fakeDirectory implements directory.Directory over a map.
type fakeDirectory struct {
	tenants map[uint]*model.Tenant
}

func (f *fakeDirectory) FindTenantByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	return nil, directory.ErrTenantNotFound
}

func (f *fakeDirectory) FindTenantByID(ctx context.Context, id uint) (*model.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok || !t.Active {
		return nil, directory.ErrTenantNotFound
	}
	return t, nil
}

func (f *fakeDirectory) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	return nil, nil
}

func (f *fakeDirectory) SetTenantActive(ctx context.Context, id uint, active bool) (*model.Tenant, error) {
	return nil, directory.ErrTenantNotFound
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{tenants: map[uint]*model.Tenant{
		1: {ID: 1, Slug: "shop-a", DBName: "pos_shop_shop_a", DSN: "dsn-a", Active: true},
		2: {ID: 2, Slug: "shop-b", DBName: "pos_shop_shop_b", DSN: "dsn-b", Active: true},
		3: {ID: 3, Slug: "shop-c", DBName: "pos_shop_shop_c", DSN: "dsn-c", Active: false},
	}}
}

func TestGetHandleReusesSameHandle(t *testing.T) {
	opens := 0
	cache := NewCache(newFakeDirectory(), func(dsn string) (*gorm.DB, error) {
		opens++
		return &gorm.DB{}, nil
	})

	first, err := cache.GetHandle(context.Background(), 1)
	require.NoError(t, err)
	second, err := cache.GetHandle(context.Background(), 1)
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Equal(t, 1, opens)
	require.Equal(t, 1, cache.Len())
}

func TestGetHandleIsolatesTenants(t *testing.T) {
	dsns := make(map[string]*gorm.DB)
	cache := NewCache(newFakeDirectory(), func(dsn string) (*gorm.DB, error) {
		db := &gorm.DB{}
		dsns[dsn] = db
		return db, nil
	})

	a, err := cache.GetHandle(context.Background(), 1)
	require.NoError(t, err)
	b, err := cache.GetHandle(context.Background(), 2)
	require.NoError(t, err)

	require.NotSame(t, a, b)
	require.Same(t, dsns["dsn-a"], a)
	require.Same(t, dsns["dsn-b"], b)
}

func TestGetHandleConcurrentFirstAccessOpensOnce(t *testing.T) {
	var opens int32
	cache := NewCache(newFakeDirectory(), func(dsn string) (*gorm.DB, error) {
		atomic.AddInt32(&opens, 1)
		return &gorm.DB{}, nil
	})

	const n = 50
	handles := make([]*gorm.DB, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = cache.GetHandle(context.Background(), 1)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
	}

	require.Equal(t, int32(1), atomic.LoadInt32(&opens))
	for i := 1; i < n; i++ {
		require.Same(t, handles[0], handles[i])
	}
}

func TestGetHandleOpenFailureNotCached(t *testing.T) {
	calls := 0
	cache := NewCache(newFakeDirectory(), func(dsn string) (*gorm.DB, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection refused")
		}
		return &gorm.DB{}, nil
	})

	_, err := cache.GetHandle(context.Background(), 1)
	require.Error(t, err)
	require.Equal(t, 0, cache.Len())

	// The next request retries from scratch.
	db, err := cache.GetHandle(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, db)
	require.Equal(t, 2, calls)
}

func TestGetHandleInactiveTenant(t *testing.T) {
	cache := NewCache(newFakeDirectory(), func(dsn string) (*gorm.DB, error) {
		t.Fatal("opener must not be called for an inactive tenant")
		return nil, nil
	})

	_, err := cache.GetHandle(context.Background(), 3)
	require.ErrorIs(t, err, directory.ErrTenantNotFound)
	require.Equal(t, 0, cache.Len())
}

func TestInvalidateDropsHandle(t *testing.T) {
	opens := 0
	cache := NewCache(newFakeDirectory(), func(dsn string) (*gorm.DB, error) {
		opens++
		return &gorm.DB{}, nil
	})

	first, err := cache.GetHandle(context.Background(), 1)
	require.NoError(t, err)

	cache.Invalidate(1)
	require.Equal(t, 0, cache.Len())

	second, err := cache.GetHandle(context.Background(), 1)
	require.NoError(t, err)
	require.NotSame(t, first, second)
	require.Equal(t, 2, opens)
}

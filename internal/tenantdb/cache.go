package tenantdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/suteetoe/pos-service/internal/directory"
	"gorm.io/gorm"
)

// Opener opens a database handle for a DSN.
type Opener func(dsn string) (*gorm.DB, error)

// Cache holds at most one live database handle per tenant for the lifetime of
// the process. Entries are created lazily on first resolution and never
// evicted; a changed connection string therefore requires Invalidate or a
// process restart.
type Cache struct {
	mu      sync.RWMutex
	handles map[uint]*gorm.DB
	dir     directory.Directory
	open    Opener
}

// NewCache creates an empty cache. The opener is called once per tenant on
// first access.
func NewCache(dir directory.Directory, open Opener) *Cache {
	return &Cache{
		handles: make(map[uint]*gorm.DB),
		dir:     dir,
		open:    open,
	}
}

// GetHandle returns the live handle for the tenant, opening it on first use.
// Concurrent first access is serialized behind the write lock with a
// double-check, so exactly one handle is opened per tenant. Open failures
// propagate to the caller and cache nothing; the next request retries from
// scratch.
func (c *Cache) GetHandle(ctx context.Context, tenantID uint) (*gorm.DB, error) {
	c.mu.RLock()
	db, ok := c.handles[tenantID]
	c.mu.RUnlock()
	if ok {
		return db, nil
	}

	tenant, err := c.dir.FindTenantByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if db, ok := c.handles[tenantID]; ok {
		return db, nil
	}

	db, err = c.open(tenant.DSN)
	if err != nil {
		return nil, fmt.Errorf("open tenant database %q: %w", tenant.DBName, err)
	}
	c.handles[tenantID] = db
	return db, nil
}

// Invalidate drops the cached handle for a tenant. Called on tenant deletion;
// the next GetHandle re-resolves and reopens.
func (c *Cache) Invalidate(tenantID uint) {
	c.mu.Lock()
	delete(c.handles, tenantID)
	c.mu.Unlock()
}

// Len reports the number of cached handles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}

package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/suteetoe/pos-service/internal/model"
	"gorm.io/gorm"
)

// ErrTenantNotFound is returned for unknown tenants and, deliberately, for
// deactivated ones: callers must not be able to tell the two apart.
var ErrTenantNotFound = errors.New("tenant not found")

// Directory is the authoritative lookup of tenant metadata in the central
// database. Lookup methods treat inactive tenants as not-found.
type Directory interface {
	FindTenantByDomain(ctx context.Context, domain string) (*model.Tenant, error)
	FindTenantByID(ctx context.Context, id uint) (*model.Tenant, error)
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	SetTenantActive(ctx context.Context, id uint, active bool) (*model.Tenant, error)
}

// GormDirectory implements Directory against the central database. It never
// touches tenant databases.
type GormDirectory struct {
	db *gorm.DB
}

// New creates a directory backed by the central database handle.
func New(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

// FindTenantByDomain resolves a domain string to its owning tenant.
func (d *GormDirectory) FindTenantByDomain(ctx context.Context, domain string) (*model.Tenant, error) {
	var td model.TenantDomain
	if err := d.db.WithContext(ctx).Where("domain = ?", domain).First(&td).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("domain lookup: %w", err)
	}
	return d.FindTenantByID(ctx, td.TenantID)
}

// FindTenantByID loads a tenant record, rejecting inactive tenants.
func (d *GormDirectory) FindTenantByID(ctx context.Context, id uint) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := d.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("tenant lookup: %w", err)
	}
	if !tenant.Active {
		return nil, ErrTenantNotFound
	}
	return &tenant, nil
}

// ListTenants returns all tenants, most recently created first. Inactive
// tenants are included; this is the administrative view.
func (d *GormDirectory) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	if err := d.db.WithContext(ctx).Preload("Domains").Order("created_at DESC").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("tenant listing: %w", err)
	}
	return tenants, nil
}

// SetTenantActive flips the active flag. The change affects all new
// resolutions immediately; already-cached connection handles stay usable
// until process restart.
func (d *GormDirectory) SetTenantActive(ctx context.Context, id uint, active bool) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := d.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("tenant lookup: %w", err)
	}
	if err := d.db.WithContext(ctx).Model(&tenant).Update("active", active).Error; err != nil {
		return nil, fmt.Errorf("tenant update: %w", err)
	}
	tenant.Active = active
	return &tenant, nil
}

// CreateTenant inserts the tenant and its domains in one central transaction.
func (d *GormDirectory) CreateTenant(ctx context.Context, tenant *model.Tenant, domains []string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return fmt.Errorf("tenant record: %w", err)
		}
		for _, domain := range domains {
			td := model.TenantDomain{Domain: domain, TenantID: tenant.ID}
			if err := tx.Create(&td).Error; err != nil {
				return fmt.Errorf("domain record %q: %w", domain, err)
			}
			tenant.Domains = append(tenant.Domains, td)
		}
		return nil
	})
}

// DeleteTenant removes the tenant record and cascades to its domains. The
// underlying tenant database is intentionally left in place for manual
// cleanup.
func (d *GormDirectory) DeleteTenant(ctx context.Context, id uint) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant model.Tenant
		if err := tx.First(&tenant, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTenantNotFound
			}
			return fmt.Errorf("tenant lookup: %w", err)
		}
		if err := tx.Where("tenant_id = ?", id).Delete(&model.TenantDomain{}).Error; err != nil {
			return fmt.Errorf("domain cascade: %w", err)
		}
		if err := tx.Delete(&tenant).Error; err != nil {
			return fmt.Errorf("tenant delete: %w", err)
		}
		return nil
	})
}

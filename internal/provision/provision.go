package provision

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suteetoe/pos-service/internal/directory"
	"github.com/suteetoe/pos-service/internal/identity"
	"github.com/suteetoe/pos-service/internal/model"
	"github.com/suteetoe/pos-service/internal/tenantdb"
	"github.com/suteetoe/pos-service/pkg/config"
	"github.com/suteetoe/pos-service/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrDatabaseExists signals that the tenant database already exists. The
// workflow treats it as success so that provisioning can be re-run after a
// partial prior failure.
var ErrDatabaseExists = errors.New("database already exists")

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// DatabaseCreator creates a physical database on the cluster.
type DatabaseCreator interface {
	CreateDatabase(ctx context.Context, name string) error
}

// SchemaManager migrates and seeds a freshly created tenant database.
type SchemaManager interface {
	// Migrate applies the tenant schema. Failure aborts the workflow.
	Migrate(ctx context.Context, db *gorm.DB) error
	// SeedDefaults inserts default payment methods and store settings.
	// Best-effort: failures are logged, never rolled back.
	SeedDefaults(ctx context.Context, db *gorm.DB) error
}

// directoryWriter is the slice of the tenant directory the workflow needs.
type directoryWriter interface {
	CreateTenant(ctx context.Context, tenant *model.Tenant, domains []string) error
}

// Request is the administrative provisioning input.
type Request struct {
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Domain        string `json:"domain"`
	OwnerName     string `json:"owner_name,omitempty"`
	OwnerUsername string `json:"owner_username,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
}

// Result is what a successful provisioning run returns. OwnerPassword is set
// only when the workflow generated one.
type Result struct {
	Tenant        *model.Tenant      `json:"tenant"`
	Owner         *model.CentralUser `json:"owner"`
	OwnerPassword string             `json:"owner_password,omitempty"`
}

// Provisioner orchestrates tenant creation: database, schema, directory
// record, owner identity, seed defaults. There is no automatic retry; a
// failed run is recovered by re-running, relying on the idempotent
// database-creation step.
type Provisioner struct {
	cfg          *config.DBConfig
	admin        DatabaseCreator
	open         tenantdb.Opener
	schema       SchemaManager
	dir          directoryWriter
	bridge       *identity.Bridge
	tenantStores func(*gorm.DB) identity.TenantStore
	log          *zap.Logger
}

// New wires a provisioner against the central database handle.
func New(cfg *config.DBConfig, centralDB *gorm.DB, open tenantdb.Opener, log *zap.Logger) *Provisioner {
	return &Provisioner{
		cfg:          cfg,
		admin:        &pgDatabaseCreator{db: centralDB},
		open:         open,
		schema:       &gormSchemaManager{},
		dir:          directory.New(centralDB),
		bridge:       identity.NewBridge(centralDB, log),
		tenantStores: identity.NewTenantStore,
		log:          log,
	}
}

// DBNameForSlug derives the tenant database name deterministically from the
// slug. The mapping never changes once a tenant is provisioned.
func (p *Provisioner) DBNameForSlug(slug string) string {
	return p.cfg.TenantDBPrefix + strings.ReplaceAll(slug, "-", "_")
}

// Provision runs the full workflow. Failures after the database-creation step
// leave a migrated-but-unregistered database behind for manual inspection
// rather than silently referencing half-initialized state.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*Result, error) {
	defer func(start time.Time) {
		prometheus.ProvisionDuration.Observe(time.Since(start).Seconds())
	}(time.Now())

	if req.Name == "" || req.Slug == "" || req.Domain == "" {
		return nil, errors.New("name, slug and domain are required")
	}
	if !slugPattern.MatchString(req.Slug) {
		return nil, fmt.Errorf("invalid slug %q", req.Slug)
	}

	dbName := p.DBNameForSlug(req.Slug)

	// Step 1: create the database. Already-exists is success so a partial
	// prior run can be repeated.
	switch err := p.admin.CreateDatabase(ctx, dbName); {
	case err == nil:
		prometheus.RecordProvisionStep("create_database", "ok")
	case errors.Is(err, ErrDatabaseExists):
		p.log.Info("tenant database already exists, continuing", zap.String("db_name", dbName))
		prometheus.RecordProvisionStep("create_database", "exists")
	default:
		prometheus.RecordProvisionStep("create_database", "error")
		return nil, fmt.Errorf("create database %q: %w", dbName, err)
	}

	// Step 2: migrate the schema. Fatal on failure; the unregistered
	// database is left behind on purpose.
	dsn := p.cfg.DSNFor(dbName)
	tenantDB, err := p.open(dsn)
	if err != nil {
		prometheus.RecordProvisionStep("migrate", "error")
		return nil, fmt.Errorf("open tenant database %q: %w", dbName, err)
	}
	if err := p.schema.Migrate(ctx, tenantDB); err != nil {
		prometheus.RecordProvisionStep("migrate", "error")
		return nil, fmt.Errorf("migrate tenant database %q: %w", dbName, err)
	}
	prometheus.RecordProvisionStep("migrate", "ok")

	// Step 3: register the tenant and its domain in the directory.
	tenant := &model.Tenant{
		Name:   req.Name,
		Slug:   req.Slug,
		DBName: dbName,
		DSN:    dsn,
		Active: true,
	}
	if err := p.dir.CreateTenant(ctx, tenant, []string{req.Domain}); err != nil {
		prometheus.RecordProvisionStep("directory_record", "error")
		return nil, fmt.Errorf("directory record: %w", err)
	}
	prometheus.RecordProvisionStep("directory_record", "ok")

	// Step 4: default owner identity, central first then mirrored into the
	// tenant database with the same identifier. The bridge compensates the
	// central write if the mirror fails.
	ownerUsername := req.OwnerUsername
	if ownerUsername == "" {
		ownerUsername = "owner@" + req.Slug
	}
	ownerPassword := req.OwnerPassword
	generated := false
	if ownerPassword == "" {
		ownerPassword = uuid.NewString()
		generated = true
	}
	owner, _, err := p.bridge.CreateEmployee(ctx, p.tenantStores(tenantDB), tenant.ID, identity.EmployeeInput{
		Username:     ownerUsername,
		Password:     ownerPassword,
		Role:         "owner",
		EmployeeCode: "OWNER",
		FullName:     req.OwnerName,
	})
	if err != nil {
		prometheus.RecordProvisionStep("owner_identity", "error")
		return nil, fmt.Errorf("owner identity: %w", err)
	}
	prometheus.RecordProvisionStep("owner_identity", "ok")

	// Step 5: seed defaults, best-effort.
	if err := p.schema.SeedDefaults(ctx, tenantDB); err != nil {
		p.log.Warn("seeding tenant defaults failed",
			zap.String("db_name", dbName),
			zap.Error(err))
		prometheus.RecordProvisionStep("seed_defaults", "error")
	} else {
		prometheus.RecordProvisionStep("seed_defaults", "ok")
	}

	p.log.Info("tenant provisioned",
		zap.Uint("tenant_id", tenant.ID),
		zap.String("slug", tenant.Slug),
		zap.String("db_name", dbName),
		zap.String("domain", req.Domain))

	result := &Result{Tenant: tenant, Owner: owner}
	if generated {
		result.OwnerPassword = ownerPassword
	}
	return result, nil
}

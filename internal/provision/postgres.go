package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/suteetoe/pos-service/internal/model"
	"gorm.io/gorm"
)

// SQLSTATE for duplicate_database.
const pgDuplicateDatabase = "42P04"

// pgDatabaseCreator issues CREATE DATABASE through the central handle. The
// database name is always derived from a validated slug, never from raw
// caller input.
type pgDatabaseCreator struct {
	db *gorm.DB
}

func (c *pgDatabaseCreator) CreateDatabase(ctx context.Context, name string) error {
	err := c.db.WithContext(ctx).Exec(fmt.Sprintf(`CREATE DATABASE "%s"`, name)).Error
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateDatabase {
		return ErrDatabaseExists
	}
	return err
}

// gormSchemaManager applies the tenant schema and seed rows with gorm.
type gormSchemaManager struct{}

func (m *gormSchemaManager) Migrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(model.TenantModels()...)
}

// SeedDefaults inserts the default payment methods and store settings.
// FirstOrCreate keeps re-runs from duplicating rows.
func (m *gormSchemaManager) SeedDefaults(ctx context.Context, db *gorm.DB) error {
	methods := []model.PaymentMethod{
		{Code: "cash", Name: "Cash", Active: true},
		{Code: "card", Name: "Credit/Debit Card", Active: true},
		{Code: "qr", Name: "QR Payment", Active: true},
	}
	for _, pm := range methods {
		if err := db.WithContext(ctx).Where("code = ?", pm.Code).FirstOrCreate(&pm).Error; err != nil {
			return fmt.Errorf("payment method %q: %w", pm.Code, err)
		}
	}

	settings := []model.StoreSetting{
		{Key: "currency", Value: "THB"},
		{Key: "receipt_footer", Value: "Thank you"},
		{Key: "low_stock_threshold", Value: "5"},
	}
	for _, s := range settings {
		if err := db.WithContext(ctx).Where("key = ?", s.Key).FirstOrCreate(&s).Error; err != nil {
			return fmt.Errorf("store setting %q: %w", s.Key, err)
		}
	}
	return nil
}

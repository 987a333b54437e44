package database

import (
	"fmt"

	"github.com/suteetoe/pos-service/internal/model"
	"github.com/suteetoe/pos-service/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a PostgreSQL connection for the given DSN with the pool settings
// from config. Used both for the central database and for tenant databases.
func Open(dsn string, dbConfig *config.DBConfig) (*gorm.DB, error) {
	pgConfig := postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	db, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: logger.Default.LogMode(dbConfig.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	if dbConfig.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
	}
	if dbConfig.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
	}
	if dbConfig.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	}

	return db, nil
}

// InitCentral opens the central management database and migrates the
// directory and identity tables. Tenant databases are never migrated here;
// that happens in the provisioning workflow.
func InitCentral(dbConfig *config.DBConfig) (*gorm.DB, error) {
	db, err := Open(dbConfig.DSN(), dbConfig)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(model.CentralModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate central database: %w", err)
	}

	return db, nil
}

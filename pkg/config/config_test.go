package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDSNForSubstitutesOnlyDatabaseName(t *testing.T) {
	cfg := DBConfig{
		Host:     "db.internal",
		Port:     "5432",
		User:     "pos",
		Password: "secret",
		DBName:   "pos_center",
		SSLMode:  "require",
	}

	central := cfg.DSN()
	tenant := cfg.DSNFor("pos_shop_shop_a")

	require.Equal(t, "host=db.internal port=5432 user=pos password=secret dbname=pos_center sslmode=require", central)
	require.Equal(t, "host=db.internal port=5432 user=pos password=secret dbname=pos_shop_shop_a sslmode=require", tenant)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "pos_center", cfg.DB.DBName)
	require.Equal(t, "pos_shop_", cfg.DB.TenantDBPrefix)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, 24, cfg.JWT.ExpirationHours)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_NAME", "pos_central_test")
	t.Setenv("DB_TENANT_PREFIX", "shop_")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOGIN_RATE_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "pos_central_test", cfg.DB.DBName)
	require.Equal(t, "shop_", cfg.DB.TenantDBPrefix)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, 2.5, cfg.RateLimit.LoginRPS)
}

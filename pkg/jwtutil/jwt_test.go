package jwtutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	token, err := util.GenerateToken("user-1", "root", "superadmin")
	require.NoError(t, err)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "root", claims.Username)
	require.Equal(t, "superadmin", claims.Role)
	require.Nil(t, claims.TenantID)
}

func TestTokenCarriesTenantContext(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	tenantID := uint(42)
	token, err := util.GenerateTokenWithTenant("user-2", "alice", "staff", &tenantID, "Shop A")
	require.NoError(t, err)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.TenantID)
	require.Equal(t, uint(42), *claims.TenantID)
	require.Equal(t, "Shop A", claims.TenantName)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	issuer := NewJWTUtil(&JWTConfig{SigningKey: "key-one", ExpirationHours: 1})
	verifier := NewJWTUtil(&JWTConfig{SigningKey: "key-two", ExpirationHours: 1})

	token, err := issuer.GenerateToken("user-1", "root", "superadmin")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "test-key", ExpirationHours: -1})

	token, err := util.GenerateToken("user-1", "root", "superadmin")
	require.NoError(t, err)

	_, err = util.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "test-key", ExpirationHours: 1})

	_, err := util.ValidateToken("not.a.token")
	require.Error(t, err)
}

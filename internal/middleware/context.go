package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/pos-service/pkg/jwtutil"
	"gorm.io/gorm"
)

// Context keys set by the resolver and the authentication gate.
const (
	ContextTenantDB   = "tenant_db"
	ContextTenantID   = "tenant_id"
	ContextTenantSlug = "tenant_slug"
	ContextUser       = "user"
)

// TenantDB returns the database handle resolved for this request. Handlers
// must only ever touch tenant data through this handle.
func TenantDB(c echo.Context) (*gorm.DB, bool) {
	db, ok := c.Get(ContextTenantDB).(*gorm.DB)
	return db, ok
}

// TenantID returns the tenant resolved for this request.
func TenantID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ContextTenantID).(uint)
	return id, ok
}

// User returns the verified identity attached by the authentication gate.
func User(c echo.Context) (*jwtutil.UserClaims, bool) {
	claims, ok := c.Get(ContextUser).(*jwtutil.UserClaims)
	return claims, ok
}

// pathAllowed reports whether path is on an allow-list, by exact match or by
// prefix for entries ending in "/".
func pathAllowed(path string, allowed []string) bool {
	for _, p := range allowed {
		if p == path {
			return true
		}
		if len(p) > 0 && p[len(p)-1] == '/' && len(path) > len(p) && path[:len(p)] == p {
			return true
		}
	}
	return false
}

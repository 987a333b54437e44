package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/pos-service/internal/directory"
	"github.com/suteetoe/pos-service/pkg/jwtutil"
	"github.com/suteetoe/pos-service/pkg/logger"
	"github.com/suteetoe/pos-service/prometheus"
	"go.uber.org/zap"
)

// AuthGate validates the bearer token and re-checks the token's tenant
// against the directory at request time, so a credential issued before its
// tenant was deactivated stops working immediately. Paths on the allow-list
// (login, tenant-status probe, health check) bypass the gate entirely.
func AuthGate(jwt *jwtutil.JWTUtil, dir directory.Directory, skipPaths []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if pathAllowed(c.Request().URL.Path, skipPaths) {
				return next(c)
			}

			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := jwt.ValidateToken(parts[1])
			if err != nil {
				log.Warn("invalid JWT token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid or expired token"})
			}

			if claims.TenantID != nil {
				// The tenant must still be active now, not just at issuance.
				if _, err := dir.FindTenantByID(c.Request().Context(), *claims.TenantID); err != nil {
					if err == directory.ErrTenantNotFound {
						log.Warn("token for missing or inactive tenant",
							zap.String("user_id", claims.UserID),
							zap.Uint("tenant_id", *claims.TenantID))
						prometheus.RecordAuthError("tenant_inactive")
						return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
					}
					log.Error("tenant check failed", zap.Error(err))
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
				}

				// A token for one tenant must never act on another tenant's
				// resolved handle.
				if resolvedID, ok := TenantID(c); ok && resolvedID != *claims.TenantID {
					log.Warn("token tenant does not match resolved tenant",
						zap.Uint("token_tenant_id", *claims.TenantID),
						zap.Uint("resolved_tenant_id", resolvedID))
					prometheus.RecordAuthError("tenant_mismatch")
					return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
				}
			}

			c.Set(ContextUser, claims)
			return next(c)
		}
	}
}

// RequireRole rejects requests whose verified identity does not carry the
// given role. Used for the super-admin surface.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := User(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}
			if claims.Role != role {
				prometheus.RecordAuthError("role_denied")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
			}
			return next(c)
		}
	}
}

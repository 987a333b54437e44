package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/pos-service/internal/directory"
	"github.com/suteetoe/pos-service/internal/tenantdb"
	"github.com/suteetoe/pos-service/pkg/logger"
	"github.com/suteetoe/pos-service/prometheus"
	"go.uber.org/zap"
)

// TenantDomainHeader names the tenant's domain explicitly; when absent the
// request's host name is used instead.
const TenantDomainHeader = "X-Tenant-Domain"

// TenantResolver determines the acting tenant for every request outside the
// allow-list and attaches that tenant's database handle to the context. It is
// a strict gate: a request that cannot be resolved never reaches a handler.
//
// Unknown domains and deactivated tenants produce the same not-found
// response so that callers cannot probe tenant existence or activation state.
func TenantResolver(dir directory.Directory, cache *tenantdb.Cache, skipPaths []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if pathAllowed(c.Request().URL.Path, skipPaths) {
				return next(c)
			}

			log := logger.FromEcho(c)

			key := c.Request().Header.Get(TenantDomainHeader)
			if key == "" {
				key = hostWithoutPort(c.Request().Host)
			}
			if key == "" {
				prometheus.RecordResolution("missing_key")
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant could not be determined"})
			}

			tenant, err := dir.FindTenantByDomain(c.Request().Context(), key)
			if err != nil {
				if err == directory.ErrTenantNotFound {
					log.Warn("tenant resolution failed", zap.String("domain", key))
					prometheus.RecordResolution("not_found")
					return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
				}
				log.Error("tenant directory lookup failed", zap.String("domain", key), zap.Error(err))
				prometheus.RecordResolution("directory_error")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}

			db, err := cache.GetHandle(c.Request().Context(), tenant.ID)
			if err != nil {
				if err == directory.ErrTenantNotFound {
					prometheus.RecordResolution("not_found")
					return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
				}
				log.Error("tenant handle acquisition failed", zap.Uint("tenant_id", tenant.ID), zap.Error(err))
				prometheus.RecordResolution("handle_error")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}

			c.Set(ContextTenantDB, db)
			c.Set(ContextTenantID, tenant.ID)
			c.Set(ContextTenantSlug, tenant.Slug)
			prometheus.RecordResolution("ok")
			prometheus.SetCachedHandles(cache.Len())

			return next(c)
		}
	}
}

func hostWithoutPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.TrimSpace(host)
}

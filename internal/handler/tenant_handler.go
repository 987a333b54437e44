package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/pos-service/internal/directory"
	"github.com/suteetoe/pos-service/internal/provision"
	"github.com/suteetoe/pos-service/internal/tenantdb"
	"github.com/suteetoe/pos-service/pkg/logger"
	"github.com/suteetoe/pos-service/prometheus"
	"go.uber.org/zap"
)

// TenantHandler is the super-admin surface for tenant lifecycle management.
type TenantHandler struct {
	prov  *provision.Provisioner
	dir   *directory.GormDirectory
	cache *tenantdb.Cache
}

// NewTenantHandler creates the tenant administration handler.
func NewTenantHandler(prov *provision.Provisioner, dir *directory.GormDirectory, cache *tenantdb.Cache) *TenantHandler {
	return &TenantHandler{prov: prov, dir: dir, cache: cache}
}

// Provision creates a new tenant end to end. Failures are reported with a
// generic message; step detail stays in the server log.
func (h *TenantHandler) Provision(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("provision")

	var req provision.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	result, err := h.prov.Provision(c.Request().Context(), req)
	if err != nil {
		log.Error("tenant provisioning failed",
			zap.String("slug", req.Slug),
			zap.String("domain", req.Domain),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant provisioning failed"})
	}

	return c.JSON(http.StatusCreated, result)
}

// List returns all tenants, most recently created first.
func (h *TenantHandler) List(c echo.Context) error {
	prometheus.RecordTenantOperation("list")

	tenants, err := h.dir.ListTenants(c.Request().Context())
	if err != nil {
		logger.FromEcho(c).Error("tenant listing failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, tenants)
}

// SetActive flips a tenant's active flag. Deactivation takes effect for all
// new resolutions immediately; already-open handles stay usable until the
// process restarts.
func (h *TenantHandler) SetActive(c echo.Context) error {
	log := logger.FromEcho(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "active flag is required"})
	}

	if *req.Active {
		prometheus.RecordTenantOperation("activate")
	} else {
		prometheus.RecordTenantOperation("deactivate")
	}

	tenant, err := h.dir.SetTenantActive(c.Request().Context(), uint(id), *req.Active)
	if err != nil {
		if errors.Is(err, directory.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("tenant activation update failed", zap.Uint64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	log.Info("tenant active flag updated",
		zap.Uint("tenant_id", tenant.ID),
		zap.Bool("active", tenant.Active))

	return c.JSON(http.StatusOK, tenant)
}

// Delete removes the directory record and its domains and drops the cached
// handle. The underlying tenant database is left in place for manual cleanup.
func (h *TenantHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordTenantOperation("delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid tenant ID"})
	}

	if err := h.dir.DeleteTenant(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, directory.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		log.Error("tenant deletion failed", zap.Uint64("id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	h.cache.Invalidate(uint(id))
	prometheus.SetCachedHandles(h.cache.Len())

	log.Info("tenant deleted", zap.Uint64("tenant_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "tenant deleted"})
}

package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/pos-service/internal/directory"
	"github.com/suteetoe/pos-service/internal/middleware"
	"github.com/suteetoe/pos-service/internal/model"
	"github.com/suteetoe/pos-service/pkg/jwtutil"
	"github.com/suteetoe/pos-service/pkg/logger"
	"github.com/suteetoe/pos-service/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler serves login and the unauthenticated tenant-status probe. Login
// always authenticates against the central directory; the tenant database is
// never consulted for credentials.
type AuthHandler struct {
	central *gorm.DB
	dir     directory.Directory
	jwt     *jwtutil.JWTUtil
}

// NewAuthHandler creates the authentication handler.
func NewAuthHandler(central *gorm.DB, dir directory.Directory, jwt *jwtutil.JWTUtil) *AuthHandler {
	return &AuthHandler{central: central, dir: dir, jwt: jwt}
}

// Login authenticates a username/password pair and issues a token carrying
// the user's tenant association, if any. A user whose tenant is missing or
// deactivated cannot log in.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var user model.CentralUser
	result := h.central.WithContext(c.Request().Context()).
		Where("LOWER(username) = LOWER(?)", req.Username).
		First(&user)
	if result.Error != nil {
		log.Warn("login failed: user not found", zap.String("username", req.Username))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Warn("login failed: bad password", zap.String("username", req.Username))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if !user.Active {
		prometheus.RecordAuthError("user_inactive")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var tenantName string
	if user.TenantID != nil {
		tenant, err := h.dir.FindTenantByID(c.Request().Context(), *user.TenantID)
		if err != nil {
			if err == directory.ErrTenantNotFound {
				log.Warn("login rejected: tenant missing or inactive",
					zap.String("username", req.Username),
					zap.Uint("tenant_id", *user.TenantID))
				prometheus.RecordAuthError("tenant_inactive")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
			}
			log.Error("tenant check failed during login", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
		tenantName = tenant.Name
	}

	now := time.Now()
	if err := h.central.WithContext(c.Request().Context()).
		Model(&user).Update("last_login_at", now).Error; err != nil {
		log.Warn("failed to record last login", zap.Error(err))
	}

	token, err := h.jwt.GenerateTokenWithTenant(user.ID, user.Username, user.Role, user.TenantID, tenantName)
	if err != nil {
		log.Error("failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("user logged in",
		zap.String("username", user.Username),
		zap.String("role", user.Role))

	response := echo.Map{
		"token": token,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	}
	if user.TenantID != nil {
		response["tenant"] = map[string]interface{}{
			"id":   *user.TenantID,
			"name": tenantName,
		}
	}
	return c.JSON(http.StatusOK, response)
}

// TenantStatus is the unauthenticated probe: it reports whether the domain
// carried by the request resolves to an active tenant. Unknown and
// deactivated tenants are both reported as not found.
func (h *AuthHandler) TenantStatus(c echo.Context) error {
	key := c.Request().Header.Get(middleware.TenantDomainHeader)
	if key == "" {
		key = c.QueryParam("domain")
	}
	if key == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant could not be determined"})
	}

	tenant, err := h.dir.FindTenantByDomain(c.Request().Context(), key)
	if err != nil {
		if err == directory.ErrTenantNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		logger.FromEcho(c).Error("tenant status probe failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"active": true,
		"name":   tenant.Name,
		"slug":   tenant.Slug,
	})
}

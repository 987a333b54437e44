package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/pos-service/internal/identity"
	"github.com/suteetoe/pos-service/internal/middleware"
	"github.com/suteetoe/pos-service/pkg/logger"
	"go.uber.org/zap"
)

// SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// EmployeeHandler creates and maintains employee identities through the
// cross-database identity bridge.
type EmployeeHandler struct {
	bridge *identity.Bridge
}

// NewEmployeeHandler creates the employee handler.
func NewEmployeeHandler(bridge *identity.Bridge) *EmployeeHandler {
	return &EmployeeHandler{bridge: bridge}
}

// Create creates an employee: central record first, then the tenant-local
// mirror with the same identifier. A tenant-side failure rolls the central
// record back and is reported to the caller.
func (h *EmployeeHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := middleware.TenantDB(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	tenantID, _ := middleware.TenantID(c)

	var req struct {
		Username     string `json:"username"`
		Password     string `json:"password"`
		Role         string `json:"role"`
		EmployeeCode string `json:"employee_code"`
		FullName     string `json:"full_name"`
		Phone        string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Username == "" || req.Password == "" || req.EmployeeCode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, password and employee_code are required"})
	}
	if req.Role == "" {
		req.Role = "staff"
	}

	central, local, err := h.bridge.CreateEmployee(c.Request().Context(), identity.NewTenantStore(db), tenantID, identity.EmployeeInput{
		Username:     req.Username,
		Password:     req.Password,
		Role:         req.Role,
		EmployeeCode: req.EmployeeCode,
		FullName:     req.FullName,
		Phone:        req.Phone,
	})
	if err != nil {
		if errors.Is(err, identity.ErrUsernameTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already taken"})
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return c.JSON(http.StatusConflict, echo.Map{"error": "employee code already in use"})
		}
		log.Error("employee creation failed",
			zap.Uint("tenant_id", tenantID),
			zap.String("username", req.Username),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "employee creation failed"})
	}

	log.Info("employee created",
		zap.Uint("tenant_id", tenantID),
		zap.String("user_id", central.ID),
		zap.String("employee_code", local.EmployeeCode))

	return c.JSON(http.StatusCreated, echo.Map{
		"user":     central,
		"employee": local,
	})
}

// ChangePassword updates the caller's own password: central hash first, then
// the tenant-local mirror.
func (h *EmployeeHandler) ChangePassword(c echo.Context) error {
	log := logger.FromEcho(c)

	db, ok := middleware.TenantDB(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	claims, ok := middleware.User(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
	}

	var req struct {
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_password is required"})
	}

	if err := h.bridge.ChangePassword(c.Request().Context(), identity.NewTenantStore(db), claims.UserID, req.NewPassword); err != nil {
		log.Error("password change failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password change failed"})
	}

	log.Info("password changed", zap.String("user_id", claims.UserID))
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

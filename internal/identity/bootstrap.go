package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/suteetoe/pos-service/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// EnsureSuperAdmin creates the system-wide super-admin account on first
// startup. Super-admins have no tenant association and exist only in the
// central database. Returns false if an account with that username already
// existed.
func EnsureSuperAdmin(ctx context.Context, centralDB *gorm.DB, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, errors.New("username and password are required")
	}

	var existing model.CentralUser
	err := centralDB.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", username).
		First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("super-admin lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("password hash: %w", err)
	}

	admin := model.CentralUser{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         "superadmin",
		TenantID:     nil,
		Active:       true,
	}
	if err := centralDB.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, fmt.Errorf("super-admin create: %w", err)
	}
	return true, nil
}

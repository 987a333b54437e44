package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/suteetoe/pos-service/internal/model"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrUsernameTaken is returned when the requested username already exists in
// the central directory. The comparison is case-insensitive and system-wide.
var ErrUsernameTaken = errors.New("username already taken")

// CentralStore is the central database's view of identities.
type CentralStore interface {
	UsernameExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, u *model.CentralUser) error
	DeleteUser(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// TenantStore is one tenant database's view of identities. A TenantStore is
// built per request from the resolved tenant handle.
type TenantStore interface {
	CreateUser(ctx context.Context, u *model.TenantUser) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// EmployeeInput carries everything needed to create one employee identity in
// both databases.
type EmployeeInput struct {
	Username     string
	Password     string
	Role         string
	EmployeeCode string
	FullName     string
	Phone        string
}

// Bridge keeps a single identity mirrored between the central directory and a
// tenant's own database. The two writes span two databases and cannot share a
// transaction, so the bridge runs them as a saga with a compensating delete.
type Bridge struct {
	central CentralStore
	log     *zap.Logger
}

// NewBridge creates a bridge writing centrally through the given handle.
func NewBridge(centralDB *gorm.DB, log *zap.Logger) *Bridge {
	return NewBridgeWithStore(NewCentralStore(centralDB), log)
}

// NewBridgeWithStore creates a bridge over an explicit central store.
func NewBridgeWithStore(central CentralStore, log *zap.Logger) *Bridge {
	return &Bridge{central: central, log: log}
}

// CreateEmployee creates the central record first, then mirrors it into the
// tenant database reusing the same identifier and the same password hash. If
// the tenant-side write fails the central record is deleted again and the
// tenant-side error is returned: no orphaned login credential may remain.
func (b *Bridge) CreateEmployee(ctx context.Context, tenants TenantStore, tenantID uint, in EmployeeInput) (*model.CentralUser, *model.TenantUser, error) {
	taken, err := b.central.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, nil, fmt.Errorf("username check: %w", err)
	}
	if taken {
		return nil, nil, ErrUsernameTaken
	}

	// Hash exactly once; both copies carry the same credential material.
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("password hash: %w", err)
	}

	central := &model.CentralUser{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         in.Role,
		TenantID:     &tenantID,
		Active:       true,
	}
	if err := b.central.CreateUser(ctx, central); err != nil {
		return nil, nil, fmt.Errorf("central user: %w", err)
	}

	local := &model.TenantUser{
		ID:           central.ID,
		EmployeeCode: in.EmployeeCode,
		FullName:     in.FullName,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Role:         in.Role,
		Active:       true,
	}
	if err := tenants.CreateUser(ctx, local); err != nil {
		// Compensate: the central credential must not outlive the failed
		// tenant-side mirror.
		if delErr := b.central.DeleteUser(ctx, central.ID); delErr != nil {
			b.log.Error("compensating delete of central user failed; manual cleanup required",
				zap.String("user_id", central.ID),
				zap.Error(delErr))
		}
		return nil, nil, err
	}

	return central, local, nil
}

// ChangePassword re-hashes once and updates the central record first, since
// login authenticates against the central hash, then mirrors the new hash to
// the tenant copy. A failed mirror write is logged rather than rolled back;
// the central hash is authoritative.
func (b *Bridge) ChangePassword(ctx context.Context, tenants TenantStore, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("password hash: %w", err)
	}

	if err := b.central.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("central password update: %w", err)
	}

	if err := tenants.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		b.log.Warn("tenant-side password mirror failed; copies will drift until next change",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return nil
}

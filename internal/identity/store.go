package identity

import (
	"context"
	"fmt"

	"github.com/suteetoe/pos-service/internal/model"
	"gorm.io/gorm"
)

// gormCentralStore implements CentralStore against the central database.
type gormCentralStore struct {
	db *gorm.DB
}

// NewCentralStore returns the central-database identity store.
func NewCentralStore(db *gorm.DB) CentralStore {
	return &gormCentralStore{db: db}
}

func (s *gormCentralStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.CentralUser{}).
		Where("LOWER(username) = LOWER(?)", username).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *gormCentralStore) CreateUser(ctx context.Context, u *model.CentralUser) error {
	return s.db.WithContext(ctx).Create(u).Error
}

// DeleteUser removes the record outright. This is the compensating action of
// the identity saga, so a soft delete is not enough: the username must become
// available again immediately.
func (s *gormCentralStore) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&model.CentralUser{}).Error
}

func (s *gormCentralStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res := s.db.WithContext(ctx).Model(&model.CentralUser{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("central user %s not found", id)
	}
	return nil
}

// gormTenantStore implements TenantStore against one tenant database.
type gormTenantStore struct {
	db *gorm.DB
}

// NewTenantStore returns the identity store for a resolved tenant handle.
func NewTenantStore(db *gorm.DB) TenantStore {
	return &gormTenantStore{db: db}
}

func (s *gormTenantStore) CreateUser(ctx context.Context, u *model.TenantUser) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *gormTenantStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res := s.db.WithContext(ctx).Model(&model.TenantUser{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("tenant user %s not found", id)
	}
	return nil
}

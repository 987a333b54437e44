package model

import (
	"time"

	"gorm.io/gorm"
)

// Tenant represents one isolated shop registered in the central database.
// Each tenant owns a dedicated database; DBName is derived from the slug at
// provisioning time and never changes afterwards.
type Tenant struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Slug      string         `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	DBName    string         `json:"db_name" gorm:"type:varchar(100);not null"`
	DSN       string         `json:"-" gorm:"type:text;not null"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Domains []TenantDomain `json:"domains,omitempty" gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
}

// TenantDomain maps a routable hostname (or logical key) to exactly one tenant.
type TenantDomain struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Domain    string    `json:"domain" gorm:"type:varchar(255);uniqueIndex;not null"`
	TenantID  uint      `json:"tenant_id" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// CentralUser is the single source of truth for login credentials and role.
// TenantID is nil for system-wide super-admins. The ID is shared verbatim
// with the mirrored TenantUser record in the tenant's own database so that
// tenant-local foreign keys resolve without a cross-database join.
type CentralUser struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string         `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	PasswordHash string         `json:"-" gorm:"type:varchar(255);not null"`
	Role         string         `json:"role" gorm:"type:varchar(50);not null;default:'staff'"`
	TenantID     *uint          `json:"tenant_id,omitempty" gorm:"index"`
	Active       bool           `json:"active" gorm:"default:true"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// CentralModels lists every model migrated into the central database.
func CentralModels() []interface{} {
	return []interface{}{&Tenant{}, &TenantDomain{}, &CentralUser{}}
}

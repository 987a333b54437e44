package model

import (
	"time"

	"gorm.io/gorm"
)

// TenantUser is the per-tenant-database copy of an identity. Its ID always
// equals the CentralUser ID it mirrors; profile fields live only here.
type TenantUser struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	EmployeeCode string         `json:"employee_code" gorm:"type:varchar(50);uniqueIndex;not null"`
	FullName     string         `json:"full_name" gorm:"type:varchar(150)"`
	Phone        string         `json:"phone" gorm:"type:varchar(30)"`
	AvatarURL    string         `json:"avatar_url" gorm:"type:text"`
	PasswordHash string         `json:"-" gorm:"type:varchar(255);not null"`
	Role         string         `json:"role" gorm:"type:varchar(50);not null;default:'staff'"`
	Active       bool           `json:"active" gorm:"default:true"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// Category groups products within one shop.
type Category struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Product is a sellable item in one shop's catalog.
type Product struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	SKU        string         `json:"sku" gorm:"type:varchar(64);uniqueIndex;not null"`
	Name       string         `json:"name" gorm:"type:varchar(150);not null"`
	CategoryID *uint          `json:"category_id,omitempty" gorm:"index"`
	Price      float64        `json:"price" gorm:"not null"`
	StockQty   int            `json:"stock_qty" gorm:"not null;default:0"`
	CreatedBy  string         `json:"created_by" gorm:"type:uuid;index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// StockMovement is the ledger of stock changes. Quantity is signed: negative
// for sales, positive for restocks and adjustments.
type StockMovement struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ProductID uint      `json:"product_id" gorm:"index;not null"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	Reason    string    `json:"reason" gorm:"type:varchar(50);not null"`
	SaleID    *uint     `json:"sale_id,omitempty" gorm:"index"`
	CreatedBy string    `json:"created_by" gorm:"type:uuid;index"`
	CreatedAt time.Time `json:"created_at"`
}

// Sale is one completed checkout.
type Sale struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Total           float64   `json:"total" gorm:"not null"`
	PaymentMethodID uint      `json:"payment_method_id" gorm:"index;not null"`
	CreatedBy       string    `json:"created_by" gorm:"type:uuid;index"`
	CreatedAt       time.Time `json:"created_at"`

	Items []SaleItem `json:"items,omitempty" gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// SaleItem is one line of a sale.
type SaleItem struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	SaleID    uint    `json:"sale_id" gorm:"index;not null"`
	ProductID uint    `json:"product_id" gorm:"index;not null"`
	Quantity  int     `json:"quantity" gorm:"not null"`
	UnitPrice float64 `json:"unit_price" gorm:"not null"`
	LineTotal float64 `json:"line_total" gorm:"not null"`
}

// Bill is the customer-facing receipt issued for a sale.
type Bill struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	SaleID   uint      `json:"sale_id" gorm:"uniqueIndex;not null"`
	BillNo   string    `json:"bill_no" gorm:"type:varchar(40);uniqueIndex;not null"`
	Amount   float64   `json:"amount" gorm:"not null"`
	IssuedAt time.Time `json:"issued_at"`
}

// PaymentMethod is a way the shop accepts payment.
type PaymentMethod struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"type:varchar(30);uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreSetting is one key/value configuration entry for the shop.
type StoreSetting struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Key       string    `json:"key" gorm:"type:varchar(100);uniqueIndex;not null"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantModels lists every model migrated into each tenant database.
func TenantModels() []interface{} {
	return []interface{}{
		&TenantUser{}, &Category{}, &Product{}, &StockMovement{},
		&Sale{}, &SaleItem{}, &Bill{}, &PaymentMethod{}, &StoreSetting{},
	}
}

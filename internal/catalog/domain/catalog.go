package domain

import (
	"time"
)

// StockType distinguishes SKUs that carry a finite count from those that never run out
type StockType string

const (
	StockLimited   StockType = "LIMITED"
	StockUnlimited StockType = "UNLIMITED"
)

// Valid reports whether t is one of the known stock types
func (t StockType) Valid() bool {
	return t == StockLimited || t == StockUnlimited
}

// Category groups services for storefront navigation
type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	Slug      string    `json:"slug" gorm:"size:120;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Category) TableName() string {
	return "categories"
}

// Service is a game or digital service offered by an upstream provider
type Service struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Provider    string    `json:"provider" gorm:"size:64;not null;uniqueIndex:idx_services_provider_external,priority:1"`
	ExternalID  string    `json:"external_id" gorm:"size:191;not null;uniqueIndex:idx_services_provider_external,priority:2"`
	Name        string    `json:"name" gorm:"not null"`
	Description *string   `json:"description,omitempty"`
	Logo        *string   `json:"logo,omitempty"`
	CategoryID  uint      `json:"category_id" gorm:"not null;index"`
	Category    Category  `json:"category" gorm:"foreignKey:CategoryID"`
	IsActive    bool      `json:"is_active" gorm:"not null"`
	Products    []Product `json:"products" gorm:"foreignKey:ServiceID"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Service) TableName() string {
	return "services"
}

// Product is a purchasable SKU of a service. Prices are integer minor units.
type Product struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	ServiceID       uint       `json:"service_id" gorm:"not null;uniqueIndex:idx_products_service_sku,priority:1"`
	SKU             string     `json:"sku" gorm:"size:191;not null;uniqueIndex:idx_products_service_sku,priority:2"`
	Name            string     `json:"name" gorm:"not null"`
	Price           int64      `json:"price" gorm:"not null"`
	BuyPrice        int64      `json:"buy_price" gorm:"not null"`
	StockType       StockType  `json:"stock_type" gorm:"size:16;not null"`
	StockCount      *int64     `json:"stock_count"`
	IsActive        bool       `json:"is_active" gorm:"not null;index"`
	SortOrder       int        `json:"sort_order" gorm:"not null"`
	LastStockSyncAt *time.Time `json:"last_stock_sync_at" gorm:"index"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName specifies the table name
func (Product) TableName() string {
	return "products"
}

// Profit is derived on every read and never persisted
func (p *Product) Profit() int64 {
	return p.Price - p.BuyPrice
}

// IsAvailable checks if the product can be sold right now
func (p *Product) IsAvailable() bool {
	if !p.IsActive {
		return false
	}
	if p.StockType == StockLimited {
		return p.StockCount != nil && *p.StockCount > 0
	}
	return true
}

// ProductActive applies the activity rule: a product is inactive when the
// upstream marks it unavailable or when it is LIMITED and sold out.
func ProductActive(available bool, stockType StockType, stockCount *int64) bool {
	if !available {
		return false
	}
	if stockType == StockLimited && (stockCount == nil || *stockCount <= 0) {
		return false
	}
	return true
}

// StockStats aggregates availability over the store
type StockStats struct {
	TotalServices int64      `json:"totalServices"`
	TotalProducts int64      `json:"totalProducts"`
	TotalStock    int64      `json:"totalStock"`
	LastSyncTime  *time.Time `json:"lastSyncTime"`
	PendingSync   int        `json:"pendingSync"`
}

// ServiceFilter narrows catalog reads
type ServiceFilter struct {
	Provider   string
	ActiveOnly bool
}

// SnapshotKey names the cached read for this filter
func (f ServiceFilter) SnapshotKey() string {
	key := "all"
	if f.Provider != "" {
		key = f.Provider
	}
	if f.ActiveOnly {
		key += ":active"
	}
	return key
}

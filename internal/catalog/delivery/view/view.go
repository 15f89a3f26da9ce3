// Package view holds the read models the catalog exposes over HTTP and gRPC.
package view

import (
	"time"

	"github.com/tair/catalog-sync/internal/catalog/domain"
)

// CategoryView is the storefront shape of a category
type CategoryView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProductView is the storefront shape of a product; profit is computed here
type ProductView struct {
	ID              uint             `json:"id"`
	Name            string           `json:"name"`
	Price           int64            `json:"price"`
	BuyPrice        int64            `json:"buyPrice"`
	Profit          int64            `json:"profit"`
	SKU             string           `json:"sku"`
	Category        string           `json:"category"`
	IsActive        bool             `json:"isActive"`
	SortOrder       int              `json:"sortOrder"`
	StockType       domain.StockType `json:"stockType"`
	StockCount      *int64           `json:"stockCount"`
	LastStockSyncAt *time.Time       `json:"lastStockSyncAt,omitempty"`
}

// ServiceView is the storefront shape of a service with its products
type ServiceView struct {
	ID          uint          `json:"id"`
	Provider    string        `json:"provider"`
	ExternalID  string        `json:"externalId"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Logo        *string       `json:"logo"`
	Category    CategoryView  `json:"category"`
	IsActive    bool          `json:"isActive"`
	Products    []ProductView `json:"products"`
}

func FromServices(services []domain.Service) []ServiceView {
	views := make([]ServiceView, 0, len(services))
	for _, s := range services {
		views = append(views, FromService(s))
	}
	return views
}

func FromService(s domain.Service) ServiceView {
	products := make([]ProductView, 0, len(s.Products))
	for i := range s.Products {
		p := &s.Products[i]
		products = append(products, ProductView{
			ID:              p.ID,
			Name:            p.Name,
			Price:           p.Price,
			BuyPrice:        p.BuyPrice,
			Profit:          p.Profit(),
			SKU:             p.SKU,
			Category:        s.Category.Slug,
			IsActive:        p.IsActive,
			SortOrder:       p.SortOrder,
			StockType:       p.StockType,
			StockCount:      p.StockCount,
			LastStockSyncAt: p.LastStockSyncAt,
		})
	}

	return ServiceView{
		ID:          s.ID,
		Provider:    s.Provider,
		ExternalID:  s.ExternalID,
		Name:        s.Name,
		Description: s.Description,
		Logo:        s.Logo,
		Category: CategoryView{
			ID:   s.Category.ID,
			Name: s.Category.Name,
			Slug: s.Category.Slug,
		},
		IsActive: s.IsActive,
		Products: products,
	}
}

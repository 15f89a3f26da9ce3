package domain

import (
	"context"
	"sort"
)

// ServiceDTO is one service as reported by the upstream, before validation
type ServiceDTO struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	Logo        *string      `json:"logo"`
	Category    string       `json:"category"`
	Products    []ProductDTO `json:"products"`
}

// ProductDTO is one SKU as reported by the upstream
type ProductDTO struct {
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	BuyPrice  int64  `json:"buy_price"`
	StockType string `json:"stock_type"`
	Stock     *int64 `json:"stock"`
	Available *bool  `json:"available"`
	SortOrder *int   `json:"sort_order"`
}

// ProviderCredentials is what the upstream client needs to reach one provider
type ProviderCredentials struct {
	ProviderID string
	BaseURL    string
	Username   string
	APIKey     string
}

// ProviderConfig describes a configured upstream source
type ProviderConfig struct {
	ID       string
	Name     string
	BaseURL  string
	Username string
	APIKey   string
}

// Credentials extracts the client-facing part of the config
func (p ProviderConfig) Credentials() ProviderCredentials {
	return ProviderCredentials{
		ProviderID: p.ID,
		BaseURL:    p.BaseURL,
		Username:   p.Username,
		APIKey:     p.APIKey,
	}
}

// UpstreamClient fetches a provider's full catalog
type UpstreamClient interface {
	FetchCatalog(ctx context.Context, creds ProviderCredentials) ([]ServiceDTO, error)
}

// ProviderRegistry is the fixed set of providers known at startup
type ProviderRegistry struct {
	byID map[string]ProviderConfig
	ids  []string
}

// NewProviderRegistry indexes providers by id; later duplicates win
func NewProviderRegistry(providers []ProviderConfig) *ProviderRegistry {
	r := &ProviderRegistry{byID: make(map[string]ProviderConfig, len(providers))}
	for _, p := range providers {
		if _, dup := r.byID[p.ID]; !dup {
			r.ids = append(r.ids, p.ID)
		}
		r.byID[p.ID] = p
	}
	sort.Strings(r.ids)
	return r
}

// Lookup returns the provider with the given id
func (r *ProviderRegistry) Lookup(id string) (ProviderConfig, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// IDs returns provider ids in stable order
func (r *ProviderRegistry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

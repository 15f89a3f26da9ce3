package domain

import (
	"fmt"
	"strings"
)

// NormalizedService is a validated ServiceDTO ready to be written
type NormalizedService struct {
	ExternalID  string
	Name        string
	Description *string
	Logo        *string
	Category    CategoryDefinition
	Products    []NormalizedProduct
}

// NormalizedProduct is a validated ProductDTO with the stock invariant applied
type NormalizedProduct struct {
	SKU        string
	Name       string
	Price      int64
	BuyPrice   int64
	StockType  StockType
	StockCount *int64
	IsActive   bool
	SortOrder  int
}

// NormalizeService validates one upstream service on its own. A returned
// error wraps ErrInvalidServiceRecord and means the whole service must be
// skipped; diagnostics are recoverable notes.
func NormalizeService(dto ServiceDTO, mapper *CategoryMapper) (*NormalizedService, []string, error) {
	var diagnostics []string

	externalID := strings.TrimSpace(dto.ID)
	if externalID == "" {
		return nil, nil, fmt.Errorf("%w: missing service id", ErrInvalidServiceRecord)
	}
	name := strings.TrimSpace(dto.Name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: service %s has no name", ErrInvalidServiceRecord, externalID)
	}

	category, mapped := mapper.Map(dto.Category)
	if !mapped {
		diagnostics = append(diagnostics, fmt.Sprintf(
			"service %s: category %q is not mapped, using %q", externalID, dto.Category, category.Slug))
	}

	seen := make(map[string]struct{}, len(dto.Products))
	products := make([]NormalizedProduct, 0, len(dto.Products))
	for i, p := range dto.Products {
		np, notes, err := normalizeProduct(externalID, i, p)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := seen[np.SKU]; dup {
			return nil, nil, fmt.Errorf("%w: service %s lists sku %s twice", ErrInvalidServiceRecord, externalID, np.SKU)
		}
		seen[np.SKU] = struct{}{}
		diagnostics = append(diagnostics, notes...)
		products = append(products, np)
	}

	return &NormalizedService{
		ExternalID:  externalID,
		Name:        name,
		Description: trimOptional(dto.Description),
		Logo:        trimOptional(dto.Logo),
		Category:    category,
		Products:    products,
	}, diagnostics, nil
}

func normalizeProduct(serviceID string, index int, p ProductDTO) (NormalizedProduct, []string, error) {
	var notes []string

	sku := strings.TrimSpace(p.SKU)
	if sku == "" {
		return NormalizedProduct{}, nil, fmt.Errorf("%w: service %s product #%d has no sku", ErrInvalidServiceRecord, serviceID, index)
	}
	if p.Price < 0 || p.BuyPrice < 0 {
		return NormalizedProduct{}, nil, fmt.Errorf("%w: service %s sku %s has a negative price", ErrInvalidServiceRecord, serviceID, sku)
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = sku
		notes = append(notes, fmt.Sprintf("service %s: sku %s has no name, using the sku", serviceID, sku))
	}

	stockType := StockType(strings.ToUpper(strings.TrimSpace(p.StockType)))
	if stockType == "" {
		if p.Stock == nil {
			stockType = StockUnlimited
		} else {
			stockType = StockLimited
		}
	}
	if !stockType.Valid() {
		return NormalizedProduct{}, nil, fmt.Errorf("%w: service %s sku %s has unknown stock type %q", ErrInvalidServiceRecord, serviceID, sku, p.StockType)
	}

	var stockCount *int64
	switch stockType {
	case StockLimited:
		if p.Stock == nil {
			return NormalizedProduct{}, nil, fmt.Errorf("%w: service %s sku %s is LIMITED without a stock count", ErrInvalidServiceRecord, serviceID, sku)
		}
		if *p.Stock < 0 {
			return NormalizedProduct{}, nil, fmt.Errorf("%w: service %s sku %s has negative stock", ErrInvalidServiceRecord, serviceID, sku)
		}
		count := *p.Stock
		stockCount = &count
	case StockUnlimited:
		if p.Stock != nil {
			notes = append(notes, fmt.Sprintf("service %s: sku %s is UNLIMITED, dropping stock count", serviceID, sku))
		}
	}

	available := true
	if p.Available != nil {
		available = *p.Available
	}
	sortOrder := index
	if p.SortOrder != nil {
		sortOrder = *p.SortOrder
	}

	return NormalizedProduct{
		SKU:        sku,
		Name:       name,
		Price:      p.Price,
		BuyPrice:   p.BuyPrice,
		StockType:  stockType,
		StockCount: stockCount,
		IsActive:   ProductActive(available, stockType, stockCount),
		SortOrder:  sortOrder,
	}, notes, nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

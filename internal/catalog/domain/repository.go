package domain

import "context"

// CatalogRepository defines the contract for catalog data access
type CatalogRepository interface {
	// WithinTransaction runs fn against a repository bound to one transaction.
	// Any error returned by fn rolls everything back.
	WithinTransaction(ctx context.Context, fn func(tx CatalogRepository) error) error

	UpsertCategory(ctx context.Context, def CategoryDefinition) (*Category, error)
	FindService(ctx context.Context, provider, externalID string) (*Service, error)
	SaveService(ctx context.Context, service *Service) error
	FindProductsByService(ctx context.Context, serviceID uint) ([]Product, error)
	SaveProduct(ctx context.Context, product *Product) error

	// RetireProducts deactivates active products of provider's services whose
	// ids are not in keepIDs, leaving services in skipExternalIDs alone.
	RetireProducts(ctx context.Context, provider string, keepIDs []uint, skipExternalIDs []string) (int64, error)
	// RetireServices deactivates active services of provider not in keepExternalIDs.
	RetireServices(ctx context.Context, provider string, keepExternalIDs []string) (int64, error)

	ListServices(ctx context.Context, filter ServiceFilter) ([]Service, error)
	Stats(ctx context.Context) (*StockStats, error)
	Ping(ctx context.Context) error
}

package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/catalog-sync/internal/catalog/domain"
)

var tracer = otel.Tracer("catalog-repository")

// TracingCatalogRepository wraps a CatalogRepository with spans
type TracingCatalogRepository struct {
	next domain.CatalogRepository
}

// NewTracingCatalogRepository creates a new repository with tracing
func NewTracingCatalogRepository(next domain.CatalogRepository) *TracingCatalogRepository {
	return &TracingCatalogRepository{next: next}
}

func (r *TracingCatalogRepository) WithinTransaction(ctx context.Context, fn func(tx domain.CatalogRepository) error) error {
	ctx, span := tracer.Start(ctx, "repository.Transaction")
	defer span.End()

	err := r.next.WithinTransaction(ctx, func(tx domain.CatalogRepository) error {
		return fn(&TracingCatalogRepository{next: tx})
	})
	addDBErrorToSpan(span, err)
	return err
}

func (r *TracingCatalogRepository) UpsertCategory(ctx context.Context, def domain.CategoryDefinition) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "repository.UpsertCategory",
		trace.WithAttributes(attribute.String("category.slug", def.Slug)),
	)
	defer span.End()

	category, err := r.next.UpsertCategory(ctx, def)
	if err != nil {
		addDBErrorToSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("category.id", int(category.ID)))
	return category, nil
}

func (r *TracingCatalogRepository) FindService(ctx context.Context, provider, externalID string) (*domain.Service, error) {
	ctx, span := tracer.Start(ctx, "repository.FindService",
		trace.WithAttributes(
			attribute.String("service.provider", provider),
			attribute.String("service.external_id", externalID),
		),
	)
	defer span.End()

	service, err := r.next.FindService(ctx, provider, externalID)
	if err != nil {
		addDBErrorToSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("service.id", int(service.ID)))
	return service, nil
}

func (r *TracingCatalogRepository) SaveService(ctx context.Context, service *domain.Service) error {
	ctx, span := tracer.Start(ctx, "repository.SaveService",
		trace.WithAttributes(
			attribute.String("service.provider", service.Provider),
			attribute.String("service.external_id", service.ExternalID),
			attribute.Bool("service.is_active", service.IsActive),
		),
	)
	defer span.End()

	err := r.next.SaveService(ctx, service)
	addDBErrorToSpan(span, err)
	return err
}

func (r *TracingCatalogRepository) FindProductsByService(ctx context.Context, serviceID uint) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "repository.FindProductsByService",
		trace.WithAttributes(attribute.Int("service.id", int(serviceID))),
	)
	defer span.End()

	products, err := r.next.FindProductsByService(ctx, serviceID)
	if err != nil {
		addDBErrorToSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(products)))
	return products, nil
}

func (r *TracingCatalogRepository) SaveProduct(ctx context.Context, product *domain.Product) error {
	ctx, span := tracer.Start(ctx, "repository.SaveProduct",
		trace.WithAttributes(
			attribute.String("product.sku", product.SKU),
			attribute.Int64("product.price", product.Price),
			attribute.String("product.stock_type", string(product.StockType)),
		),
	)
	defer span.End()

	err := r.next.SaveProduct(ctx, product)
	addDBErrorToSpan(span, err)
	return err
}

func (r *TracingCatalogRepository) RetireProducts(ctx context.Context, provider string, keepIDs []uint, skipExternalIDs []string) (int64, error) {
	ctx, span := tracer.Start(ctx, "repository.RetireProducts",
		trace.WithAttributes(
			attribute.String("service.provider", provider),
			attribute.Int("products.kept", len(keepIDs)),
			attribute.Int("services.skipped", len(skipExternalIDs)),
		),
	)
	defer span.End()

	n, err := r.next.RetireProducts(ctx, provider, keepIDs, skipExternalIDs)
	addDBErrorToSpan(span, err)
	span.SetAttributes(attribute.Int64("products.retired", n))
	return n, err
}

func (r *TracingCatalogRepository) RetireServices(ctx context.Context, provider string, keepExternalIDs []string) (int64, error) {
	ctx, span := tracer.Start(ctx, "repository.RetireServices",
		trace.WithAttributes(
			attribute.String("service.provider", provider),
			attribute.Int("services.kept", len(keepExternalIDs)),
		),
	)
	defer span.End()

	n, err := r.next.RetireServices(ctx, provider, keepExternalIDs)
	addDBErrorToSpan(span, err)
	span.SetAttributes(attribute.Int64("services.retired", n))
	return n, err
}

func (r *TracingCatalogRepository) ListServices(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error) {
	ctx, span := tracer.Start(ctx, "repository.ListServices",
		trace.WithAttributes(
			attribute.String("query.provider", filter.Provider),
			attribute.Bool("query.active_only", filter.ActiveOnly),
		),
	)
	defer span.End()

	services, err := r.next.ListServices(ctx, filter)
	if err != nil {
		addDBErrorToSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(services)))
	return services, nil
}

func (r *TracingCatalogRepository) Stats(ctx context.Context) (*domain.StockStats, error) {
	ctx, span := tracer.Start(ctx, "repository.Stats")
	defer span.End()

	stats, err := r.next.Stats(ctx)
	if err != nil {
		addDBErrorToSpan(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("stats.total_services", stats.TotalServices),
		attribute.Int64("stats.total_products", stats.TotalProducts),
		attribute.Int64("stats.total_stock", stats.TotalStock),
	)
	return stats, nil
}

func (r *TracingCatalogRepository) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "repository.Ping")
	defer span.End()

	err := r.next.Ping(ctx)
	addDBErrorToSpan(span, err)
	return err
}

// Helper function to add database error details to span
func addDBErrorToSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/pkg/logger"
)

var tracer = otel.Tracer("catalog-sync")

// RunSyncCommand represents the command to reconcile one provider
type RunSyncCommand struct {
	ProviderID  string
	TriggeredBy string
}

// RunSyncHandler handles the run sync command
type RunSyncHandler struct {
	repo      domain.CatalogRepository
	upstream  domain.UpstreamClient
	providers *domain.ProviderRegistry
	mapper    *domain.CategoryMapper
	locker    domain.SyncLocker
	snapshots domain.SnapshotCache
	publisher domain.EventPublisher
	history   *domain.SyncHistory
	now       func() time.Time
}

// NewRunSyncHandler creates a new run sync handler
func NewRunSyncHandler(
	repo domain.CatalogRepository,
	upstream domain.UpstreamClient,
	providers *domain.ProviderRegistry,
	mapper *domain.CategoryMapper,
	locker domain.SyncLocker,
	snapshots domain.SnapshotCache,
	publisher domain.EventPublisher,
	history *domain.SyncHistory,
) *RunSyncHandler {
	if snapshots == nil {
		snapshots = domain.NopSnapshotCache{}
	}
	if publisher == nil {
		publisher = domain.NopEventPublisher{}
	}
	if history == nil {
		history = domain.NewSyncHistory()
	}
	return &RunSyncHandler{
		repo:      repo,
		upstream:  upstream,
		providers: providers,
		mapper:    mapper,
		locker:    locker,
		snapshots: snapshots,
		publisher: publisher,
		history:   history,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// syncPlan is the validated upstream catalog for one pass
type syncPlan struct {
	services []*domain.NormalizedService
	observed []string
	skipped  []string
}

type applyCounts struct {
	services        int
	products        int
	productsRetired int64
	servicesRetired int64
}

// Handle executes the run sync command. A held lock is not an error: the
// result comes back with status in_progress. Failures return both the
// classified result and the error.
func (h *RunSyncHandler) Handle(ctx context.Context, cmd RunSyncCommand) (*domain.SyncResult, error) {
	provider, ok := h.providers.Lookup(cmd.ProviderID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, cmd.ProviderID)
	}

	// callers cannot abort a started sync, but their trace carries on
	ctx = context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "sync.RunSync",
		trace.WithAttributes(
			attribute.String("provider.id", provider.ID),
			attribute.String("sync.triggered_by", cmd.TriggeredBy),
		),
	)
	defer span.End()

	log := logger.ForProvider(ctx, provider.ID)
	result := domain.NewSyncResult(provider.ID, h.now())

	release, acquired, err := h.locker.TryAcquire(ctx, provider.ID)
	if err != nil {
		return h.fail(ctx, span, result, err)
	}
	if !acquired {
		result.Status = domain.SyncInProgress
		result.FinishedAt = h.now()
		syncRuns.WithLabelValues(provider.ID, string(result.Status), "").Inc()
		span.SetAttributes(attribute.String("sync.status", string(result.Status)))
		log.Info().Str("triggered_by", cmd.TriggeredBy).Msg("Sync already running, not starting another")
		return result, nil
	}
	defer release()

	syncsInFlight.Inc()
	defer syncsInFlight.Dec()

	log.Info().Str("triggered_by", cmd.TriggeredBy).Msg("Sync started")

	dtos, err := h.upstream.FetchCatalog(ctx, provider.Credentials())
	if err != nil {
		return h.fail(ctx, span, result, fmt.Errorf("fetch catalog: %w", err))
	}

	plan := h.plan(ctx, result, dtos)
	syncedAt := h.now()

	var counts applyCounts
	err = h.repo.WithinTransaction(ctx, func(tx domain.CatalogRepository) error {
		var err error
		counts, err = h.apply(ctx, tx, provider.ID, plan, syncedAt)
		return err
	})
	if err != nil {
		return h.fail(ctx, span, result, fmt.Errorf("%w: %w", domain.ErrStore, err))
	}

	result.Status = domain.SyncCompleted
	result.ServicesUpserted = counts.services
	result.ProductsUpserted = counts.products
	result.ProductsRetired = counts.productsRetired
	result.ServicesRetired = counts.servicesRetired
	result.FinishedAt = h.now()

	h.snapshots.Invalidate(ctx)
	if err := h.publisher.PublishCatalogSynced(ctx, result); err != nil {
		log.Warn().Err(err).Msg("Failed to publish catalog synced event")
	}
	h.record(result)

	span.SetAttributes(
		attribute.String("sync.status", string(result.Status)),
		attribute.Int("sync.services_upserted", result.ServicesUpserted),
		attribute.Int("sync.products_upserted", result.ProductsUpserted),
		attribute.Int64("sync.products_retired", result.ProductsRetired),
		attribute.Int64("sync.services_retired", result.ServicesRetired),
		attribute.Int("sync.skipped", len(result.Skipped)),
	)
	log.Info().
		Int("services_upserted", result.ServicesUpserted).
		Int("products_upserted", result.ProductsUpserted).
		Int64("products_retired", result.ProductsRetired).
		Int64("services_retired", result.ServicesRetired).
		Int("skipped", len(result.Skipped)).
		Dur("duration", result.Duration()).
		Msg("Sync completed")

	return result, nil
}

func (h *RunSyncHandler) fail(ctx context.Context, span trace.Span, result *domain.SyncResult, err error) (*domain.SyncResult, error) {
	result.ServicesUpserted = 0
	result.ProductsUpserted = 0
	result.ProductsRetired = 0
	result.ServicesRetired = 0
	result.Fail(err, h.now())
	h.record(result)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(
		attribute.String("sync.status", string(result.Status)),
		attribute.String("sync.error_kind", string(result.ErrorKind)),
	)
	logger.ForProvider(ctx, result.ProviderID).Error().
		Err(err).
		Str("error_kind", string(result.ErrorKind)).
		Msg("Sync failed, store left untouched")

	return result, err
}

func (h *RunSyncHandler) record(result *domain.SyncResult) {
	h.history.Record(result)

	syncRuns.WithLabelValues(result.ProviderID, string(result.Status), string(result.ErrorKind)).Inc()
	syncDuration.WithLabelValues(result.ProviderID).Observe(result.Duration().Seconds())
	if result.Status == domain.SyncCompleted {
		productsUpserted.WithLabelValues(result.ProviderID).Add(float64(result.ProductsUpserted))
		productsRetired.WithLabelValues(result.ProviderID).Add(float64(result.ProductsRetired))
		servicesSkipped.WithLabelValues(result.ProviderID).Add(float64(len(result.Skipped)))
	}
}

// plan validates every upstream service on its own. Rejected services are
// reported and still count as observed so nothing of theirs is retired.
func (h *RunSyncHandler) plan(ctx context.Context, result *domain.SyncResult, dtos []domain.ServiceDTO) syncPlan {
	log := logger.ForProvider(ctx, result.ProviderID)

	// stored ids are trimmed, so duplicates and retirement use the trimmed form
	occurrences := make(map[string]int, len(dtos))
	for _, dto := range dtos {
		occurrences[strings.TrimSpace(dto.ID)]++
	}

	var plan syncPlan
	seen := make(map[string]struct{}, len(dtos))
	for _, dto := range dtos {
		id := strings.TrimSpace(dto.ID)
		if id != "" {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				plan.observed = append(plan.observed, id)
			}
		}

		var (
			normalized *domain.NormalizedService
			notes      []string
			err        error
		)
		if id != "" && occurrences[id] > 1 {
			err = fmt.Errorf("%w: service id %s listed %d times", domain.ErrInvalidServiceRecord, id, occurrences[id])
		} else {
			normalized, notes, err = domain.NormalizeService(dto, h.mapper)
		}

		if err != nil {
			result.Skipped = append(result.Skipped, domain.SkippedService{
				ExternalID: id,
				Name:       dto.Name,
				Reason:     err.Error(),
			})
			if id != "" {
				plan.skipped = append(plan.skipped, id)
			}
			log.Warn().Err(err).Str("external_id", id).Msg("Skipping invalid upstream service")
			continue
		}

		result.Diagnostics = append(result.Diagnostics, notes...)
		plan.services = append(plan.services, normalized)
	}

	return plan
}

func (h *RunSyncHandler) apply(ctx context.Context, tx domain.CatalogRepository, providerID string, plan syncPlan, syncedAt time.Time) (applyCounts, error) {
	var counts applyCounts
	categories := make(map[string]uint)
	var touched []uint

	for _, ns := range plan.services {
		categoryID, ok := categories[ns.Category.Slug]
		if !ok {
			category, err := tx.UpsertCategory(ctx, ns.Category)
			if err != nil {
				return counts, fmt.Errorf("upsert category %s: %w", ns.Category.Slug, err)
			}
			categoryID = category.ID
			categories[ns.Category.Slug] = categoryID
		}

		service, err := tx.FindService(ctx, providerID, ns.ExternalID)
		isNew := errors.Is(err, domain.ErrNotFound)
		if err != nil && !isNew {
			return counts, fmt.Errorf("find service %s: %w", ns.ExternalID, err)
		}
		if isNew {
			service = &domain.Service{Provider: providerID, ExternalID: ns.ExternalID}
		}

		if applyService(service, ns, categoryID) || isNew {
			if err := tx.SaveService(ctx, service); err != nil {
				return counts, fmt.Errorf("save service %s: %w", ns.ExternalID, err)
			}
		}

		bySKU := make(map[string]*domain.Product)
		if !isNew {
			existing, err := tx.FindProductsByService(ctx, service.ID)
			if err != nil {
				return counts, fmt.Errorf("load products of %s: %w", ns.ExternalID, err)
			}
			for i := range existing {
				bySKU[existing[i].SKU] = &existing[i]
			}
		}

		for _, np := range ns.Products {
			product, found := bySKU[np.SKU]
			if !found {
				product = &domain.Product{ServiceID: service.ID, SKU: np.SKU}
			}
			if applyProduct(product, np, syncedAt) || !found {
				if err := tx.SaveProduct(ctx, product); err != nil {
					return counts, fmt.Errorf("save product %s/%s: %w", ns.ExternalID, np.SKU, err)
				}
			}
			touched = append(touched, product.ID)
			counts.products++
		}
		counts.services++
	}

	var err error
	counts.productsRetired, err = tx.RetireProducts(ctx, providerID, touched, plan.skipped)
	if err != nil {
		return counts, fmt.Errorf("retire products: %w", err)
	}
	counts.servicesRetired, err = tx.RetireServices(ctx, providerID, plan.observed)
	if err != nil {
		return counts, fmt.Errorf("retire services: %w", err)
	}

	return counts, nil
}

// applyService copies upstream fields onto s and reports whether anything changed
func applyService(s *domain.Service, ns *domain.NormalizedService, categoryID uint) bool {
	changed := false
	if s.Name != ns.Name {
		s.Name = ns.Name
		changed = true
	}
	if !sameString(s.Description, ns.Description) {
		s.Description = ns.Description
		changed = true
	}
	if !sameString(s.Logo, ns.Logo) {
		s.Logo = ns.Logo
		changed = true
	}
	if s.CategoryID != categoryID {
		s.CategoryID = categoryID
		changed = true
	}
	if !s.IsActive {
		s.IsActive = true
		changed = true
	}
	return changed
}

// applyProduct copies upstream fields onto p. The stock timestamp moves only
// when the count itself changes; a new row with a count counts as a change.
func applyProduct(p *domain.Product, np domain.NormalizedProduct, syncedAt time.Time) bool {
	changed := false
	if p.Name != np.Name {
		p.Name = np.Name
		changed = true
	}
	if p.Price != np.Price {
		p.Price = np.Price
		changed = true
	}
	if p.BuyPrice != np.BuyPrice {
		p.BuyPrice = np.BuyPrice
		changed = true
	}
	if p.StockType != np.StockType {
		p.StockType = np.StockType
		changed = true
	}
	if !sameCount(p.StockCount, np.StockCount) {
		p.StockCount = copyCount(np.StockCount)
		ts := syncedAt
		p.LastStockSyncAt = &ts
		changed = true
	}
	if p.IsActive != np.IsActive {
		p.IsActive = np.IsActive
		changed = true
	}
	if p.SortOrder != np.SortOrder {
		p.SortOrder = np.SortOrder
		changed = true
	}
	return changed
}

func sameCount(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyCount(c *int64) *int64 {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

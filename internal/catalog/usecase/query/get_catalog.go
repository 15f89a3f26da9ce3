package query

import (
	"context"
	"fmt"

	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/internal/catalog/usecase/command"
	"github.com/tair/catalog-sync/pkg/logger"
)

// ReadMode selects how fresh a catalog read must be
type ReadMode string

const (
	ModeCached ReadMode = "CACHED"
	ModeFresh  ReadMode = "FRESH"
)

// Syncer runs a sync pass; satisfied by *command.RunSyncHandler
type Syncer interface {
	Handle(ctx context.Context, cmd command.RunSyncCommand) (*domain.SyncResult, error)
}

// GetCatalogQuery represents the query to read the catalog
type GetCatalogQuery struct {
	Mode       ReadMode
	ProviderID string // Optional: one provider only
	ActiveOnly bool
	// Fallback turns an empty CACHED read into a FRESH one
	Fallback bool
}

// GetCatalogHandler handles get catalog query
type GetCatalogHandler struct {
	repo      domain.CatalogRepository
	syncer    Syncer
	providers *domain.ProviderRegistry
	snapshots domain.SnapshotCache
}

// NewGetCatalogHandler creates a new get catalog handler
func NewGetCatalogHandler(repo domain.CatalogRepository, syncer Syncer, providers *domain.ProviderRegistry, snapshots domain.SnapshotCache) *GetCatalogHandler {
	if snapshots == nil {
		snapshots = domain.NopSnapshotCache{}
	}
	return &GetCatalogHandler{repo: repo, syncer: syncer, providers: providers, snapshots: snapshots}
}

// Handle executes the get catalog query
func (h *GetCatalogHandler) Handle(ctx context.Context, q GetCatalogQuery) ([]domain.Service, error) {
	if q.ProviderID != "" {
		if _, ok := h.providers.Lookup(q.ProviderID); !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, q.ProviderID)
		}
	}
	filter := domain.ServiceFilter{Provider: q.ProviderID, ActiveOnly: q.ActiveOnly}

	if q.Mode == ModeFresh {
		return h.fresh(ctx, filter)
	}

	services, err := h.cached(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 && q.Fallback {
		logger.Info(ctx).Str("provider", q.ProviderID).Msg("Cached catalog empty, falling back to fresh read")
		return h.fresh(ctx, filter)
	}
	return services, nil
}

// cached never reaches the sync engine or the upstream
func (h *GetCatalogHandler) cached(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error) {
	key := filter.SnapshotKey()
	services, generation, ok := h.snapshots.Get(ctx, key)
	if ok {
		return services, nil
	}

	services, err := h.repo.ListServices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	// a sync committed meanwhile bumps the generation and this Set is dropped
	h.snapshots.Set(ctx, key, generation, services)
	return services, nil
}

func (h *GetCatalogHandler) fresh(ctx context.Context, filter domain.ServiceFilter) ([]domain.Service, error) {
	providers := h.providers.IDs()
	if filter.Provider != "" {
		providers = []string{filter.Provider}
	}

	for _, id := range providers {
		result, err := h.syncer.Handle(ctx, command.RunSyncCommand{ProviderID: id, TriggeredBy: "fresh-read"})
		if err != nil {
			return nil, fmt.Errorf("%w: sync %s: %w", domain.ErrCatalogUnavailable, id, err)
		}
		if result.Status == domain.SyncInProgress {
			logger.Debug(ctx).Str("provider", id).Msg("Sync in progress elsewhere, reading store as is")
		}
	}

	services, err := h.repo.ListServices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	return services, nil
}

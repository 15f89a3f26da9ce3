package query

import (
	"context"
	"fmt"

	"github.com/tair/catalog-sync/internal/catalog/domain"
)

// GetStatsHandler handles get stats query
type GetStatsHandler struct {
	repo   domain.CatalogRepository
	locker domain.SyncLocker
}

// NewGetStatsHandler creates a new get stats handler
func NewGetStatsHandler(repo domain.CatalogRepository, locker domain.SyncLocker) *GetStatsHandler {
	return &GetStatsHandler{repo: repo, locker: locker}
}

// Handle executes the get stats query. pendingSync is read from the lock
// backend on every call.
func (h *GetStatsHandler) Handle(ctx context.Context) (*domain.StockStats, error) {
	stats, err := h.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog stats: %w", err)
	}

	inFlight, err := h.locker.InFlight(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync locks: %w", err)
	}
	stats.PendingSync = len(inFlight)

	return stats, nil
}

package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/catalog-sync/internal/catalog/domain"
)

// ProviderSyncStatus describes one configured provider
type ProviderSyncStatus struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	InFlight   bool               `json:"inFlight"`
	LastResult *domain.SyncResult `json:"lastResult"`
}

// SyncStatus is the status report for operators
type SyncStatus struct {
	LastSyncTime *time.Time           `json:"lastSyncTime"`
	PendingSync  int                  `json:"pendingSync"`
	InFlight     []string             `json:"inFlight"`
	Providers    []ProviderSyncStatus `json:"providers"`
}

// GetSyncStatusHandler handles get sync status query
type GetSyncStatusHandler struct {
	repo      domain.CatalogRepository
	locker    domain.SyncLocker
	providers *domain.ProviderRegistry
	history   *domain.SyncHistory
}

// NewGetSyncStatusHandler creates a new get sync status handler
func NewGetSyncStatusHandler(repo domain.CatalogRepository, locker domain.SyncLocker, providers *domain.ProviderRegistry, history *domain.SyncHistory) *GetSyncStatusHandler {
	return &GetSyncStatusHandler{repo: repo, locker: locker, providers: providers, history: history}
}

// Handle executes the get sync status query
func (h *GetSyncStatusHandler) Handle(ctx context.Context) (*SyncStatus, error) {
	stats, err := h.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get last sync time: %w", err)
	}

	inFlight, err := h.locker.InFlight(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync locks: %w", err)
	}
	running := make(map[string]bool, len(inFlight))
	for _, id := range inFlight {
		running[id] = true
	}

	status := &SyncStatus{
		LastSyncTime: stats.LastSyncTime,
		PendingSync:  len(inFlight),
		InFlight:     inFlight,
		Providers:    []ProviderSyncStatus{},
	}
	for _, id := range h.providers.IDs() {
		p, _ := h.providers.Lookup(id)
		entry := ProviderSyncStatus{ID: p.ID, Name: p.Name, InFlight: running[id]}
		if last, ok := h.history.Last(id); ok {
			entry.LastResult = last
		}
		status.Providers = append(status.Providers, entry)
	}

	return status, nil
}

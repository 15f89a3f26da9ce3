package domain

import (
	"context"
	"sync"
	"time"
)

// SyncStatus is the outcome of one RunSync call
type SyncStatus string

const (
	SyncCompleted  SyncStatus = "completed"
	SyncInProgress SyncStatus = "in_progress"
	SyncFailed     SyncStatus = "failed"
)

// SkippedService records an upstream service that failed validation
type SkippedService struct {
	ExternalID string `json:"externalId"`
	Name       string `json:"name,omitempty"`
	Reason     string `json:"reason"`
}

// SyncResult reports what a sync pass did
type SyncResult struct {
	ProviderID       string           `json:"providerId"`
	Status           SyncStatus       `json:"status"`
	ServicesUpserted int              `json:"servicesUpserted"`
	ProductsUpserted int              `json:"productsUpserted"`
	ProductsRetired  int64            `json:"productsRetired"`
	ServicesRetired  int64            `json:"servicesRetired"`
	Skipped          []SkippedService `json:"skipped"`
	Diagnostics      []string         `json:"diagnostics"`
	ErrorKind        ErrorKind        `json:"errorKind,omitempty"`
	Error            string           `json:"error,omitempty"`
	StartedAt        time.Time        `json:"startedAt"`
	FinishedAt       time.Time        `json:"finishedAt"`
}

// NewSyncResult starts an empty result for provider
func NewSyncResult(providerID string, startedAt time.Time) *SyncResult {
	return &SyncResult{
		ProviderID:  providerID,
		Skipped:     []SkippedService{},
		Diagnostics: []string{},
		StartedAt:   startedAt,
	}
}

// Fail marks the result failed and classifies err
func (r *SyncResult) Fail(err error, finishedAt time.Time) {
	r.Status = SyncFailed
	r.ErrorKind = ErrorKindOf(err)
	r.Error = err.Error()
	r.FinishedAt = finishedAt
}

// Duration is zero until the pass finishes
func (r *SyncResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncLocker grants at most one sync per provider at a time. TryAcquire
// never blocks: acquired=false means another holder is running.
type SyncLocker interface {
	TryAcquire(ctx context.Context, providerID string) (release func(), acquired bool, err error)
	InFlight(ctx context.Context) ([]string, error)
}

// EventPublisher announces completed syncs to other services
type EventPublisher interface {
	PublishCatalogSynced(ctx context.Context, result *SyncResult) error
}

// NopEventPublisher drops every event
type NopEventPublisher struct{}

func (NopEventPublisher) PublishCatalogSynced(context.Context, *SyncResult) error { return nil }

// SnapshotCache holds serialized read results in front of the store.
// Implementations log their own failures and never fail a read.
type SnapshotCache interface {
	// Get returns a stored read. On a miss it returns the generation that a
	// following Set must present.
	Get(ctx context.Context, key string) (services []Service, generation int64, ok bool)
	// Set stores services unless Invalidate ran after generation was read
	Set(ctx context.Context, key string, generation int64, services []Service)
	Invalidate(ctx context.Context)
}

// NopSnapshotCache always misses
type NopSnapshotCache struct{}

func (NopSnapshotCache) Get(context.Context, string) ([]Service, int64, bool) { return nil, 0, false }
func (NopSnapshotCache) Set(context.Context, string, int64, []Service)        {}
func (NopSnapshotCache) Invalidate(context.Context)                           {}

// SyncHistory keeps the last result per provider for this process only
type SyncHistory struct {
	mu   sync.RWMutex
	last map[string]SyncResult
}

func NewSyncHistory() *SyncHistory {
	return &SyncHistory{last: make(map[string]SyncResult)}
}

// Record stores a finished result. In-progress answers are not recorded
// since they describe someone else's run.
func (h *SyncHistory) Record(result *SyncResult) {
	if result == nil || result.Status == SyncInProgress {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[result.ProviderID] = *result
}

// Last returns the most recent finished result for provider
func (h *SyncHistory) Last(providerID string) (*SyncResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.last[providerID]
	if !ok {
		return nil, false
	}
	return &r, true
}

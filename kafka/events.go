package kafka

import "time"

// CatalogSyncedEvent announces a completed sync pass
type CatalogSyncedEvent struct {
	EventID          string    `json:"event_id"`
	EventType        string    `json:"event_type"`
	ProviderID       string    `json:"provider_id"`
	ServicesUpserted int       `json:"services_upserted"`
	ProductsUpserted int       `json:"products_upserted"`
	ProductsRetired  int64     `json:"products_retired"`
	ServicesRetired  int64     `json:"services_retired"`
	Skipped          int       `json:"skipped"`
	Timestamp        time.Time `json:"timestamp"`
}

// SyncRequestedEvent asks the catalog service to sync a provider
type SyncRequestedEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	ProviderID string    `json:"provider_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeCatalogSynced = "catalog.synced"
	EventTypeSyncRequested = "catalog.sync_requested"
)

// Kafka topics
const (
	TopicCatalogSynced = "catalog-synced"
	TopicSyncRequested = "catalog-sync-requested"
)

package catalog

import (
	"gorm.io/gorm"

	"github.com/tair/catalog-sync/internal/catalog/delivery/grpc"
	"github.com/tair/catalog-sync/internal/catalog/delivery/http"
	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/internal/catalog/repository"
	"github.com/tair/catalog-sync/internal/catalog/usecase/command"
	"github.com/tair/catalog-sync/internal/catalog/usecase/query"
)

// Dependencies are the pieces built from configuration before injection
type Dependencies struct {
	DB        *gorm.DB
	Upstream  domain.UpstreamClient
	Providers *domain.ProviderRegistry
	Mapper    *domain.CategoryMapper
	Locker    domain.SyncLocker
	Snapshots domain.SnapshotCache
	Publisher domain.EventPublisher
}

// Service is the assembled catalog service
type Service struct {
	HTTPHandler *http.CatalogHandler
	GRPCServer  *grpc.CatalogServer
	Sync        *command.RunSyncHandler
	Stats       *query.GetStatsHandler
}

// ProvideCatalogRepository provides the traced gorm repository
func ProvideCatalogRepository(db *gorm.DB) domain.CatalogRepository {
	return repository.NewTracingCatalogRepository(repository.NewGormCatalogRepository(db))
}

func ProvideSyncHistory() *domain.SyncHistory {
	return domain.NewSyncHistory()
}

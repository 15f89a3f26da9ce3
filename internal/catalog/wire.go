//go:build wireinject
// +build wireinject

package catalog

import (
	"github.com/google/wire"

	"github.com/tair/catalog-sync/internal/catalog/delivery/grpc"
	"github.com/tair/catalog-sync/internal/catalog/delivery/http"
	"github.com/tair/catalog-sync/internal/catalog/usecase/command"
	"github.com/tair/catalog-sync/internal/catalog/usecase/query"
)

// DependencySet exposes the externally built pieces to the injector
var DependencySet = wire.NewSet(
	wire.FieldsOf(new(Dependencies), "DB", "Upstream", "Providers", "Mapper", "Locker", "Snapshots", "Publisher"),
)

// UsecaseSet builds the command and query handlers
var UsecaseSet = wire.NewSet(
	ProvideCatalogRepository,
	ProvideSyncHistory,
	command.NewRunSyncHandler,
	wire.Bind(new(query.Syncer), new(*command.RunSyncHandler)),
	query.NewGetCatalogHandler,
	query.NewGetStatsHandler,
	query.NewGetSyncStatusHandler,
)

// InitializeService wires the catalog handlers and delivery adapters
func InitializeService(deps Dependencies) (*Service, error) {
	wire.Build(
		DependencySet,
		UsecaseSet,
		http.NewCatalogHandler,
		grpc.NewCatalogServer,
		wire.Struct(new(Service), "*"),
	)
	return nil, nil
}

package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
// @Summary Swagger documentation
// @Description Swagger API documentation
// @Tags Swagger
// @Success 200 {string} string "Swagger UI"
// @Router /swagger/ [get]
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// GetCatalog godoc
// @Summary Read the storefront catalog
// @Description Cached reads come from the local store only. cached=false syncs every provider (or the one named) before reading.
// @Tags Catalog
// @Produce json
// @Param cached query bool false "Read from the local store only (default true)"
// @Param provider query string false "Provider filter"
// @Param fallback query bool false "Fall back to a fresh read when the cached catalog is empty"
// @Param active query bool false "Only active services and products"
// @Success 200 {array} view.ServiceView
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /api/catalog [get]
func (h *CatalogHandler) GetCatalogDoc() {}

// GetStats godoc
// @Summary Catalog stock statistics
// @Description Aggregate counts over the local store plus the number of syncs in flight (Admin only)
// @Tags Catalog
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.StockStats
// @Failure 401 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Router /api/catalog/stats [get]
func (h *CatalogHandler) GetStatsDoc() {}

// RunSync godoc
// @Summary Synchronize one provider
// @Description Pulls the provider catalog and reconciles the local store. A concurrent sync for the same provider yields status in_progress (Admin only)
// @Tags Sync
// @Security BearerAuth
// @Produce json
// @Param provider path string true "Provider ID"
// @Success 200 {object} domain.SyncResult
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 500 {object} domain.SyncResult
// @Failure 502 {object} domain.SyncResult
// @Failure 503 {object} domain.SyncResult
// @Router /api/catalog/sync/{provider} [post]
func (h *CatalogHandler) RunSyncDoc() {}

// GetSyncStatus godoc
// @Summary Sync status per provider
// @Description Live lock state and the last result recorded by this process for each provider (Admin only)
// @Tags Sync
// @Security BearerAuth
// @Produce json
// @Success 200 {object} query.SyncStatus
// @Router /api/catalog/sync/status [get]
func (h *CatalogHandler) GetSyncStatusDoc() {}

// HealthCheck godoc
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Router /health [get]
func (h *CatalogHandler) HealthCheckDoc() {}

// ReadyCheck godoc
// @Summary Readiness probe
// @Description Fails while the catalog store is unreachable
// @Tags Health
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /ready [get]
func (h *CatalogHandler) ReadyCheckDoc() {}

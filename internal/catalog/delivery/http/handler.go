package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/catalog-sync/internal/catalog/delivery/view"
	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/internal/catalog/usecase/command"
	"github.com/tair/catalog-sync/internal/catalog/usecase/query"
	"github.com/tair/catalog-sync/pkg/logger"
)

var (
	requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_service_requests_total",
			Help: "Total number of requests to catalog service",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_service_request_duration_seconds",
			Help:    "Duration of catalog service requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// p50/p90/p95/p99 client-side quantiles
	requestSummary = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "catalog_service_request_duration_summary",
			Help: "Summary of request durations with percentiles",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.95: 0.01,
				0.99: 0.001,
			},
			MaxAge: 10 * time.Minute,
		},
		[]string{"method", "endpoint"},
	)

	totalProducts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_service_total_products",
			Help: "Total number of products in the catalog store",
		},
	)
)

func init() {
	prometheus.MustRegister(requestCounter, requestLatency, requestSummary, totalProducts)
}

// CatalogHandler serves the storefront catalog and the admin sync endpoints
type CatalogHandler struct {
	syncHandler *command.RunSyncHandler

	catalogHandler *query.GetCatalogHandler
	statsHandler   *query.GetStatsHandler
	statusHandler  *query.GetSyncStatusHandler

	repo domain.CatalogRepository
}

// NewCatalogHandler wires the command and query handlers into HTTP endpoints
func NewCatalogHandler(
	syncHandler *command.RunSyncHandler,
	catalogHandler *query.GetCatalogHandler,
	statsHandler *query.GetStatsHandler,
	statusHandler *query.GetSyncStatusHandler,
	repo domain.CatalogRepository,
) *CatalogHandler {
	return &CatalogHandler{
		syncHandler:    syncHandler,
		catalogHandler: catalogHandler,
		statsHandler:   statsHandler,
		statusHandler:  statusHandler,
		repo:           repo,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (h *CatalogHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
		requestLatency.WithLabelValues(r.Method, endpoint).Observe(duration)
		requestSummary.WithLabelValues(r.Method, endpoint).Observe(duration)
	}
}

func (h *CatalogHandler) RegisterRoutes(router *mux.Router) {
	// storefront
	router.HandleFunc("/api/catalog", h.metricsMiddleware("/api/catalog", h.GetCatalog)).Methods("GET")

	// admin
	router.HandleFunc("/api/catalog/stats", h.metricsMiddleware("/api/catalog/stats", AdminMiddleware(h.GetStats))).Methods("GET")
	router.HandleFunc("/api/catalog/sync/status", h.metricsMiddleware("/api/catalog/sync/status", AdminMiddleware(h.GetSyncStatus))).Methods("GET")
	router.HandleFunc("/api/catalog/sync/{provider}", h.metricsMiddleware("/api/catalog/sync/{provider}", AdminMiddleware(h.RunSync))).Methods("POST")
}

// GetCatalog handles GET /api/catalog
func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	mode := query.ModeCached
	if v := params.Get("cached"); v != "" {
		cached, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid cached parameter")
			return
		}
		if !cached {
			mode = query.ModeFresh
		}
	}

	fallback, ok := boolParam(w, params.Get("fallback"), "fallback")
	if !ok {
		return
	}
	activeOnly, ok := boolParam(w, params.Get("active"), "active")
	if !ok {
		return
	}

	services, err := h.catalogHandler.Handle(r.Context(), query.GetCatalogQuery{
		Mode:       mode,
		ProviderID: params.Get("provider"),
		ActiveOnly: activeOnly,
		Fallback:   fallback,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownProvider):
			respondError(w, http.StatusNotFound, "Unknown provider")
		case errors.Is(err, domain.ErrCatalogUnavailable):
			logger.Warn(r.Context()).Err(err).Msg("Fresh catalog read failed")
			respondError(w, http.StatusServiceUnavailable, "catalog temporarily unavailable")
		default:
			logger.Error(r.Context()).Err(err).Msg("Failed to read catalog")
			respondError(w, http.StatusInternalServerError, "Failed to read catalog")
		}
		return
	}

	respondJSON(w, http.StatusOK, view.FromServices(services))
}

// GetStats handles GET /api/catalog/stats
func (h *CatalogHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsHandler.Handle(r.Context())
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Failed to compute catalog stats")
		respondError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	totalProducts.Set(float64(stats.TotalProducts))
	respondJSON(w, http.StatusOK, stats)
}

// GetSyncStatus handles GET /api/catalog/sync/status
func (h *CatalogHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.statusHandler.Handle(r.Context())
	if err != nil {
		logger.Error(r.Context()).Err(err).Msg("Failed to read sync status")
		respondError(w, http.StatusInternalServerError, "Failed to read sync status")
		return
	}

	respondJSON(w, http.StatusOK, status)
}

// RunSync handles POST /api/catalog/sync/{provider}
func (h *CatalogHandler) RunSync(w http.ResponseWriter, r *http.Request) {
	providerID := mux.Vars(r)["provider"]

	triggeredBy, _ := r.Context().Value(UsernameKey).(string)
	result, err := h.syncHandler.Handle(r.Context(), command.RunSyncCommand{
		ProviderID:  providerID,
		TriggeredBy: triggeredBy,
	})
	if result == nil {
		if errors.Is(err, domain.ErrUnknownProvider) {
			respondError(w, http.StatusNotFound, "Unknown provider")
			return
		}
		logger.Error(r.Context()).Err(err).Str("provider", providerID).Msg("Sync could not start")
		respondError(w, http.StatusInternalServerError, "Sync could not start")
		return
	}

	respondJSON(w, syncStatusCode(result), result)
}

// syncStatusCode maps a sync outcome onto an HTTP status; the body is always the result
func syncStatusCode(result *domain.SyncResult) int {
	if result.Status != domain.SyncFailed {
		return http.StatusOK
	}

	switch result.ErrorKind {
	case domain.ErrorKindUpstreamUnavailable, domain.ErrorKindLock:
		return http.StatusServiceUnavailable
	case domain.ErrorKindUpstreamAuth, domain.ErrorKindUpstreamMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RegisterHealthCheck registers liveness and readiness probes
func (h *CatalogHandler) RegisterHealthCheck(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Catalog service is healthy",
		})
	}).Methods("GET")

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := h.repo.Ping(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "Database unavailable",
			})
			return
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Catalog service is ready",
		})
	}).Methods("GET")
}

func boolParam(w http.ResponseWriter, raw, name string) (bool, bool) {
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return false, false
	}
	return v, true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/catalog-sync/internal/catalog/catalogtest"
	"github.com/tair/catalog-sync/internal/catalog/delivery/view"
	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/internal/catalog/repository"
	"github.com/tair/catalog-sync/internal/catalog/synclock"
	"github.com/tair/catalog-sync/internal/catalog/usecase/command"
	"github.com/tair/catalog-sync/internal/catalog/usecase/query"
	"github.com/tair/catalog-sync/pkg/auth"
)

type testServer struct {
	router   *mux.Router
	upstream *catalogtest.FakeUpstream
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	auth.SetSecret("handler-test-secret")

	repo := repository.NewGormCatalogRepository(catalogtest.NewDB(t))
	upstream := catalogtest.NewFakeUpstream()
	locker := synclock.NewMemoryLocker()
	history := domain.NewSyncHistory()
	providers := domain.NewProviderRegistry([]domain.ProviderConfig{
		{ID: "vip", Name: "VIP Reseller", BaseURL: "http://vip.invalid"},
	})
	mapper := domain.NewCategoryMapper(map[string]domain.CategoryDefinition{
		"games": {Slug: "games", Name: "Games"},
	}, domain.CategoryDefinition{})

	syncHandler := command.NewRunSyncHandler(repo, upstream, providers, mapper, locker, nil, nil, history)
	handler := NewCatalogHandler(
		syncHandler,
		query.NewGetCatalogHandler(repo, syncHandler, providers, nil),
		query.NewGetStatsHandler(repo, locker),
		query.NewGetSyncStatusHandler(repo, locker, providers, history),
		repo,
	)

	router := mux.NewRouter()
	RegisterMiddlewares(router, &MiddlewareConfig{EnableRecovery: true})
	handler.RegisterRoutes(router)
	handler.RegisterHealthCheck(router)

	return &testServer{router: router, upstream: upstream}
}

func (s *testServer) do(t *testing.T, method, target, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if role != "" {
		token, err := auth.GenerateToken(7, "ops", role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func gameCatalog() []domain.ServiceDTO {
	return []domain.ServiceDTO{{
		ID:       "ml",
		Name:     "Mobile Legends",
		Category: "Games",
		Products: []domain.ProductDTO{
			{SKU: "ML-86", Name: "86 Diamonds", Price: 20000, BuyPrice: 18500, StockType: "UNLIMITED"},
			{SKU: "ML-172", Name: "172 Diamonds", Price: 40000, BuyPrice: 37000, StockType: "LIMITED", Stock: catalogtest.Int64(5)},
		},
	}}
}

func TestGetCatalog_EmptyStoreReturnsEmptyArray(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/catalog?cached=true", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Equal(t, 0, s.upstream.Calls("vip"))
}

func TestGetCatalog_AfterSync(t *testing.T) {
	s := newTestServer(t)
	s.upstream.SetCatalog("vip", gameCatalog())

	rec := s.do(t, http.MethodPost, "/api/catalog/sync/vip", auth.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result domain.SyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.SyncCompleted, result.Status)
	assert.Equal(t, 2, result.ProductsUpserted)

	rec = s.do(t, http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var services []view.ServiceView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	require.Len(t, services, 1)
	assert.Equal(t, "games", services[0].Category.Slug)
	require.Len(t, services[0].Products, 2)

	byKey := map[string]view.ProductView{}
	for _, p := range services[0].Products {
		byKey[p.SKU] = p
	}
	assert.Equal(t, int64(1500), byKey["ML-86"].Profit)
	assert.Nil(t, byKey["ML-86"].StockCount)
	assert.Equal(t, domain.StockLimited, byKey["ML-172"].StockType)
	assert.Equal(t, int64(5), *byKey["ML-172"].StockCount)
	assert.Equal(t, "games", byKey["ML-172"].Category)
}

func TestGetCatalog_BadParams(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/catalog?cached=maybe", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/catalog?fallback=x", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/catalog?provider=nope", "").Code)
}

func TestGetCatalog_FreshFailureIsServiceUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.upstream.SetError("vip", fmt.Errorf("%w: connection refused", domain.ErrUpstreamUnavailable))

	rec := s.do(t, http.MethodGet, "/api/catalog?cached=false", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "catalog temporarily unavailable", body.Error)
}

func TestGetCatalog_FallbackSyncsWhenEmpty(t *testing.T) {
	s := newTestServer(t)
	s.upstream.SetCatalog("vip", gameCatalog())

	rec := s.do(t, http.MethodGet, "/api/catalog?fallback=true", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var services []view.ServiceView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	assert.Len(t, services, 1)
	assert.Equal(t, 1, s.upstream.Calls("vip"))
}

func TestAdminRoutes_RequireAdminToken(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/catalog/stats", "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/catalog/stats", "user").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/api/catalog/sync/vip", "user").Code)
	assert.Equal(t, 0, s.upstream.Calls("vip"))

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/stats", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetStats(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/catalog/stats", auth.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalServices":0,"totalProducts":0,"totalStock":0,"lastSyncTime":null,"pendingSync":0}`, rec.Body.String())

	s.upstream.SetCatalog("vip", gameCatalog())
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/catalog/sync/vip", auth.RoleAdmin).Code)

	rec = s.do(t, http.MethodGet, "/api/catalog/stats", auth.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.StockStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalServices)
	assert.Equal(t, int64(2), stats.TotalProducts)
	assert.Equal(t, int64(5), stats.TotalStock)
	assert.NotNil(t, stats.LastSyncTime)
}

func TestRunSync_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind domain.ErrorKind
	}{
		{"upstream unavailable", domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, domain.ErrorKindUpstreamUnavailable},
		{"upstream auth", domain.ErrUpstreamAuth, http.StatusBadGateway, domain.ErrorKindUpstreamAuth},
		{"upstream malformed", domain.ErrUpstreamMalformed, http.StatusBadGateway, domain.ErrorKindUpstreamMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.upstream.SetError("vip", fmt.Errorf("%w: test", tt.err))

			rec := s.do(t, http.MethodPost, "/api/catalog/sync/vip", auth.RoleAdmin)

			require.Equal(t, tt.wantCode, rec.Code)
			var result domain.SyncResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			assert.Equal(t, domain.SyncFailed, result.Status)
			assert.Equal(t, tt.wantKind, result.ErrorKind)
		})
	}
}

func TestRunSync_UnknownProvider(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/catalog/sync/nope", auth.RoleAdmin)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSyncStatus(t *testing.T) {
	s := newTestServer(t)
	s.upstream.SetCatalog("vip", gameCatalog())
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/catalog/sync/vip", auth.RoleAdmin).Code)

	rec := s.do(t, http.MethodGet, "/api/catalog/sync/status", auth.RoleAdmin)

	require.Equal(t, http.StatusOK, rec.Code)
	var status query.SyncStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "vip", status.Providers[0].ID)
	require.NotNil(t, status.Providers[0].LastResult)
	assert.Equal(t, domain.SyncCompleted, status.Providers[0].LastResult.Status)
	assert.Equal(t, 0, status.PendingSync)
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/ready", "").Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

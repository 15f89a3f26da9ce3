package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/catalog-sync/internal/catalog/domain"
)

const catalogJSON = `{"services":[{"id":"ml","name":"Mobile Legends","category":"Games","products":[
	{"sku":"ml-86","name":"86 Diamonds","price":20000,"buy_price":18000,"stock_type":"UNLIMITED","available":true}
]}]}`

func newTestClient(retries int) *UpstreamClient {
	return NewUpstreamClientWithHTTP(Config{
		Timeout:      200 * time.Millisecond,
		MaxRetries:   retries,
		RetryBackoff: 10 * time.Millisecond,
	}, http.DefaultClient)
}

func creds(url string) domain.ProviderCredentials {
	return domain.ProviderCredentials{ProviderID: "vip", BaseURL: url, Username: "reseller", APIKey: "secret"}
}

func TestFetchCatalogSendsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/catalog", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "reseller", r.Header.Get("X-Reseller-Username"))
		w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	services, err := newTestClient(1).FetchCatalog(context.Background(), creds(srv.URL+"/"))
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "ml", services[0].ID)
	require.Len(t, services[0].Products, 1)
	assert.Equal(t, int64(18000), services[0].Products[0].BuyPrice)
}

func TestFetchCatalogRetriesOnceOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(catalogJSON))
	}))
	defer srv.Close()

	services, err := newTestClient(1).FetchCatalog(context.Background(), creds(srv.URL))
	require.NoError(t, err)
	assert.Len(t, services, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchCatalogGivesUpAfterRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(1).FetchCatalog(context.Background(), creds(srv.URL))
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchCatalogTimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestClient(1).FetchCatalog(context.Background(), creds(srv.URL))
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchCatalogDoesNotRetryAuthOrMalformed(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) }, domain.ErrUpstreamAuth},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) }, domain.ErrUpstreamAuth},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) }, domain.ErrUpstreamMalformed},
		{"missing services", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"data":[]}`)) }, domain.ErrUpstreamMalformed},
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }, domain.ErrUpstreamMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			_, err := newTestClient(1).FetchCatalog(context.Background(), creds(srv.URL))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestFetchCatalogEmptyServicesIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"services":[]}`))
	}))
	defer srv.Close()

	services, err := newTestClient(0).FetchCatalog(context.Background(), creds(srv.URL))
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestFetchCatalogConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(1).FetchCatalog(context.Background(), creds(url))
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

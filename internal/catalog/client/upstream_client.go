package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/pkg/logger"
)

const (
	catalogPath         = "/catalog"
	usernameHeader      = "X-Reseller-Username"
	defaultMaxBodyBytes = 32 << 20
)

var upstreamRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_upstream_requests_total",
		Help: "Upstream catalog fetch attempts by provider and outcome",
	},
	[]string{"provider", "outcome"},
)

func init() {
	prometheus.MustRegister(upstreamRequests)
}

// Config controls timeouts and retries for upstream calls
type Config struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	MaxBodyBytes int64
}

// UpstreamClient talks to the reseller catalog API over HTTP
type UpstreamClient struct {
	httpClient *http.Client
	cfg        Config
	tracer     trace.Tracer
}

// NewUpstreamClient creates a client with an instrumented transport
func NewUpstreamClient(cfg Config) *UpstreamClient {
	return NewUpstreamClientWithHTTP(cfg, &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

// NewUpstreamClientWithHTTP lets callers supply the http.Client
func NewUpstreamClientWithHTTP(cfg Config, httpClient *http.Client) *UpstreamClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &UpstreamClient{
		httpClient: httpClient,
		cfg:        cfg,
		tracer:     otel.Tracer("catalog-upstream-client"),
	}
}

type catalogResponse struct {
	Services *[]domain.ServiceDTO `json:"services"`
}

// FetchCatalog downloads the provider's full catalog. Transient failures
// are retried up to MaxRetries times with a fixed backoff; auth and
// malformed responses return at once.
func (c *UpstreamClient) FetchCatalog(ctx context.Context, creds domain.ProviderCredentials) ([]domain.ServiceDTO, error) {
	ctx, span := c.tracer.Start(ctx, "upstream.FetchCatalog",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("provider.id", creds.ProviderID)),
	)
	defer span.End()

	log := logger.ForProvider(ctx, creds.ProviderID)
	attempts := c.cfg.MaxRetries + 1

	for attempt := 1; ; attempt++ {
		services, err := c.fetchOnce(ctx, creds)
		if err == nil {
			upstreamRequests.WithLabelValues(creds.ProviderID, "ok").Inc()
			span.SetAttributes(
				attribute.Int("upstream.attempts", attempt),
				attribute.Int("result.services", len(services)),
			)
			return services, nil
		}

		upstreamRequests.WithLabelValues(creds.ProviderID, string(domain.ErrorKindOf(err))).Inc()

		if !errors.Is(err, domain.ErrUpstreamUnavailable) || attempt >= attempts {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.Int("upstream.attempts", attempt))
			return nil, err
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", c.cfg.RetryBackoff).
			Msg("Upstream fetch failed, retrying")

		timer := time.NewTimer(c.cfg.RetryBackoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, ctx.Err())
		}
	}
}

func (c *UpstreamClient) fetchOnce(ctx context.Context, creds domain.ProviderCredentials) ([]domain.ServiceDTO, error) {
	if creds.BaseURL == "" {
		return nil, fmt.Errorf("provider %s has no base url configured", creds.ProviderID)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(creds.BaseURL, "/") + catalogPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)
	if creds.Username != "" {
		req.Header.Set(usernameHeader, creds.Username)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		// drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrUpstreamUnavailable, err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrUpstreamMalformed, c.cfg.MaxBodyBytes)
	}

	var payload catalogResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamMalformed, err)
	}
	if payload.Services == nil {
		return nil, fmt.Errorf("%w: missing services field", domain.ErrUpstreamMalformed)
	}

	return *payload.Services, nil
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamAuth, code)
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: status %d", domain.ErrUpstreamUnavailable, code)
	default:
		return fmt.Errorf("%w: unexpected status %s", domain.ErrUpstreamMalformed, strconv.Itoa(code))
	}
}

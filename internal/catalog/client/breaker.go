package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/pkg/logger"
)

// CircuitState represents the state of a circuit breaker
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

var circuitOpen = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "catalog_upstream_circuit_open",
		Help: "1 while the upstream circuit for a provider is open",
	},
	[]string{"provider"},
)

func init() {
	prometheus.MustRegister(circuitOpen)
}

// CircuitBreaker stops calling a provider after repeated availability
// failures and lets one trial call through once the cooldown has passed.
type CircuitBreaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failures        int
	lastStateChange time.Time
	trialInFlight   bool
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:            name,
		maxFailures:     maxFailures,
		cooldown:        cooldown,
		now:             time.Now,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// allow reports whether a call may proceed, moving open to half-open after
// the cooldown. Half-open admits a single trial; trial tells the caller it
// holds that slot.
func (cb *CircuitBreaker) allow() (ok, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.lastStateChange) >= cb.cooldown {
		cb.transition(StateHalfOpen)
		logger.Logger.Info().Str("circuit", cb.name).Msg("Circuit breaker transitioning to half-open")
	}

	switch cb.state {
	case StateClosed:
		return true, false
	case StateHalfOpen:
		if cb.trialInFlight {
			return false, false
		}
		cb.trialInFlight = true
		return true, true
	default:
		return false, false
	}
}

// record counts the outcome of a call that allow let through
func (cb *CircuitBreaker) record(failed, trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if trial {
		cb.trialInFlight = false
	}

	if !failed {
		if cb.state == StateHalfOpen {
			logger.Logger.Info().Str("circuit", cb.name).Msg("Circuit breaker closed after successful recovery")
		}
		cb.failures = 0
		cb.transition(StateClosed)
		return
	}

	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		cb.transition(StateOpen)
		logger.Logger.Warn().Str("circuit", cb.name).Msg("Circuit breaker reopened after half-open failure")
	case cb.failures >= cb.maxFailures:
		cb.transition(StateOpen)
		logger.Logger.Error().
			Str("circuit", cb.name).
			Int("failures", cb.failures).
			Int("threshold", cb.maxFailures).
			Msg("Circuit breaker opened")
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	if cb.state == to {
		return
	}
	cb.state = to
	cb.lastStateChange = cb.now()

	open := 0.0
	if to == StateOpen {
		open = 1
	}
	circuitOpen.WithLabelValues(cb.name).Set(open)
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// BreakerClient guards an UpstreamClient with one circuit breaker per provider.
// Only availability failures trip the circuit; auth and payload errors are
// configuration problems that retrying later will not fix.
type BreakerClient struct {
	next        domain.UpstreamClient
	maxFailures int
	cooldown    time.Duration

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

func NewBreakerClient(next domain.UpstreamClient, maxFailures int, cooldown time.Duration) *BreakerClient {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &BreakerClient{
		next:        next,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		breakers:    make(map[string]*CircuitBreaker),
	}
}

// Breaker returns the breaker for providerID, creating it on first use
func (c *BreakerClient) Breaker(providerID string) *CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cb, ok := c.breakers[providerID]; ok {
		return cb
	}
	cb := NewCircuitBreaker(providerID, c.maxFailures, c.cooldown)
	c.breakers[providerID] = cb
	return cb
}

func (c *BreakerClient) FetchCatalog(ctx context.Context, creds domain.ProviderCredentials) ([]domain.ServiceDTO, error) {
	cb := c.Breaker(creds.ProviderID)
	ok, trial := cb.allow()
	if !ok {
		return nil, fmt.Errorf("%w: circuit %s for provider %s", domain.ErrUpstreamUnavailable, cb.State(), creds.ProviderID)
	}

	services, err := c.next.FetchCatalog(ctx, creds)
	cb.record(errors.Is(err, domain.ErrUpstreamUnavailable), trial)
	return services, err
}

package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/catalog-sync/internal/catalog/catalogtest"
	"github.com/tair/catalog-sync/internal/catalog/domain"
)

func TestBreakerClient_OpensAfterFailures(t *testing.T) {
	upstream := catalogtest.NewFakeUpstream()
	upstream.SetError("vip", fmt.Errorf("%w: 503", domain.ErrUpstreamUnavailable))
	c := NewBreakerClient(upstream, 2, time.Minute)
	creds := domain.ProviderCredentials{ProviderID: "vip"}

	for i := 0; i < 2; i++ {
		_, err := c.FetchCatalog(context.Background(), creds)
		require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	}
	assert.Equal(t, StateOpen, c.Breaker("vip").State())

	_, err := c.FetchCatalog(context.Background(), creds)
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, 2, upstream.Calls("vip"))

	// other providers are unaffected
	assert.Equal(t, StateClosed, c.Breaker("digi").State())
}

func TestBreakerClient_HalfOpenRecovery(t *testing.T) {
	upstream := catalogtest.NewFakeUpstream()
	upstream.SetError("vip", fmt.Errorf("%w: timeout", domain.ErrUpstreamUnavailable))
	c := NewBreakerClient(upstream, 1, time.Minute)
	creds := domain.ProviderCredentials{ProviderID: "vip"}

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := c.Breaker("vip")
	cb.now = func() time.Time { return clock }

	_, _ = c.FetchCatalog(context.Background(), creds)
	require.Equal(t, StateOpen, cb.State())

	clock = clock.Add(time.Minute)
	upstream.SetCatalog("vip", []domain.ServiceDTO{})

	_, err := c.FetchCatalog(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerClient_HalfOpenFailureReopens(t *testing.T) {
	upstream := catalogtest.NewFakeUpstream()
	upstream.SetError("vip", fmt.Errorf("%w: timeout", domain.ErrUpstreamUnavailable))
	c := NewBreakerClient(upstream, 1, time.Minute)
	creds := domain.ProviderCredentials{ProviderID: "vip"}

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := c.Breaker("vip")
	cb.now = func() time.Time { return clock }

	_, _ = c.FetchCatalog(context.Background(), creds)
	clock = clock.Add(2 * time.Minute)
	_, _ = c.FetchCatalog(context.Background(), creds)

	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, 2, upstream.Calls("vip"))
}

func TestBreakerClient_AuthErrorsDoNotTrip(t *testing.T) {
	upstream := catalogtest.NewFakeUpstream()
	upstream.SetError("vip", fmt.Errorf("%w: 401", domain.ErrUpstreamAuth))
	c := NewBreakerClient(upstream, 1, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := c.FetchCatalog(context.Background(), domain.ProviderCredentials{ProviderID: "vip"})
		assert.True(t, errors.Is(err, domain.ErrUpstreamAuth))
	}
	assert.Equal(t, StateClosed, c.Breaker("vip").State())
	assert.Equal(t, 3, upstream.Calls("vip"))
}

func TestCircuitBreaker_HalfOpenAdmitsOneTrial(t *testing.T) {
	cb := NewCircuitBreaker("vip", 1, time.Minute)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return clock }

	ok, trial := cb.allow()
	require.True(t, ok)
	require.False(t, trial)
	cb.record(true, trial)
	require.Equal(t, StateOpen, cb.State())

	clock = clock.Add(time.Minute)
	ok, trial = cb.allow()
	require.True(t, ok)
	require.True(t, trial)
	assert.Equal(t, StateHalfOpen, cb.State())

	ok, _ = cb.allow()
	assert.False(t, ok, "second caller must wait for the trial")

	cb.record(false, true)
	assert.Equal(t, StateClosed, cb.State())
	ok, trial = cb.allow()
	assert.True(t, ok)
	assert.False(t, trial)
}

// gatedUpstream fails until opened, then blocks each call until released
type gatedUpstream struct {
	mu      sync.Mutex
	open    bool
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (u *gatedUpstream) FetchCatalog(ctx context.Context, creds domain.ProviderCredentials) ([]domain.ServiceDTO, error) {
	u.mu.Lock()
	u.calls++
	open := u.open
	u.mu.Unlock()

	if !open {
		return nil, fmt.Errorf("%w: 503", domain.ErrUpstreamUnavailable)
	}
	u.entered <- struct{}{}
	<-u.release
	return []domain.ServiceDTO{}, nil
}

func TestBreakerClient_ConcurrentCallersFailFastDuringTrial(t *testing.T) {
	upstream := &gatedUpstream{entered: make(chan struct{}), release: make(chan struct{})}
	c := NewBreakerClient(upstream, 1, time.Minute)
	creds := domain.ProviderCredentials{ProviderID: "vip"}

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := c.Breaker("vip")
	cb.now = func() time.Time { return clock }

	_, _ = c.FetchCatalog(context.Background(), creds)
	require.Equal(t, StateOpen, cb.State())

	clock = clock.Add(time.Minute)
	upstream.mu.Lock()
	upstream.open = true
	upstream.mu.Unlock()

	trialErr := make(chan error, 1)
	go func() {
		_, err := c.FetchCatalog(context.Background(), creds)
		trialErr <- err
	}()
	<-upstream.entered

	_, err := c.FetchCatalog(context.Background(), creds)
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "half-open")

	close(upstream.release)
	require.NoError(t, <-trialErr)
	assert.Equal(t, StateClosed, cb.State())

	upstream.mu.Lock()
	assert.Equal(t, 2, upstream.calls)
	upstream.mu.Unlock()
}

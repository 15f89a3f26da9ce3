// Package synclock provides the per-provider try-locks that keep at most
// one sync running for each provider.
package synclock

import (
	"context"
	"sort"
	"sync"
)

// MemoryLocker holds locks in process memory. It only protects a single
// instance of the service.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) TryAcquire(_ context.Context, providerID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[providerID]; busy {
		return nil, false, nil
	}
	l.held[providerID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, providerID)
			l.mu.Unlock()
		})
	}
	return release, true, nil
}

func (l *MemoryLocker) InFlight(context.Context) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.held))
	for id := range l.held {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

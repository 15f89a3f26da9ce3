package synclock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/pkg/logger"
)

const DefaultKeyPrefix = "catalog:sync-lock:"

// releaseScript deletes the lock only while we still own it
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// extendScript pushes the expiry out only while we still own the lock
var extendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// RedisLocker shares locks between instances. The TTL bounds how long a
// crashed holder can block a provider; a live holder renews it every
// renewEvery until release, so a long sync keeps its lock.
type RedisLocker struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	renewEvery time.Duration
}

func NewRedisLocker(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLocker {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, renewEvery: ttl / 3}
}

func (l *RedisLocker) key(providerID string) string {
	return l.prefix + providerID
}

func (l *RedisLocker) TryAcquire(ctx context.Context, providerID string) (func(), bool, error) {
	token := uuid.NewString()
	key := l.key(providerID)

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrSyncLockUnavailable, err)
	}
	if !ok {
		return nil, false, nil
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go l.heartbeat(ctx, providerID, key, token, stop, stopped)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-stopped

			// release must survive a cancelled caller
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				logger.ForProvider(ctx, providerID).Error().Err(err).Msg("Failed to release sync lock")
			}
		})
	}
	return release, true, nil
}

// heartbeat renews the lock until stop closes or ownership is lost
func (l *RedisLocker) heartbeat(ctx context.Context, providerID, key, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(l.renewEvery)
	defer ticker.Stop()

	log := logger.ForProvider(ctx, providerID)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			renewCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.renewEvery)
			held, err := extendScript.Run(renewCtx, l.client, []string{key}, token, l.ttl.Milliseconds()).Int()
			cancel()
			switch {
			case err != nil:
				log.Warn().Err(err).Msg("Failed to renew sync lock")
			case held == 0:
				log.Error().Msg("Sync lock lost while the sync was still running")
				return
			}
		}
	}
}

func (l *RedisLocker) InFlight(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		ids    []string
	)
	for {
		keys, next, err := l.client.Scan(ctx, cursor, l.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSyncLockUnavailable, err)
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, l.prefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if ids == nil {
		ids = []string{}
	}
	sort.Strings(ids)
	return ids, nil
}

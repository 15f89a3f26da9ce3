package synclock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/catalog-sync/internal/catalog/domain"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client, "", time.Minute), mr
}

func lockers(t *testing.T) map[string]domain.SyncLocker {
	redisLocker, _ := newRedisLocker(t)
	return map[string]domain.SyncLocker{
		"memory": NewMemoryLocker(),
		"redis":  redisLocker,
	}
}

func TestTryAcquireIsExclusivePerProvider(t *testing.T) {
	for name, locker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			release, ok, err := locker.TryAcquire(ctx, "a")
			require.NoError(t, err)
			require.True(t, ok)

			_, ok, err = locker.TryAcquire(ctx, "a")
			require.NoError(t, err)
			assert.False(t, ok)

			releaseB, ok, err := locker.TryAcquire(ctx, "b")
			require.NoError(t, err)
			assert.True(t, ok)

			inFlight, err := locker.InFlight(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, inFlight)

			release()
			release()
			releaseB()

			inFlight, err = locker.InFlight(ctx)
			require.NoError(t, err)
			assert.Empty(t, inFlight)

			_, ok, err = locker.TryAcquire(ctx, "a")
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestConcurrentAcquireHasOneWinner(t *testing.T) {
	for name, locker := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			var (
				wg      sync.WaitGroup
				winners atomic.Int32
			)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, ok, err := locker.TryAcquire(context.Background(), "a")
					assert.NoError(t, err)
					if ok {
						winners.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), winners.Load())
		})
	}
}

func TestRedisReleaseDoesNotDropForeignLock(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	release, ok, err := locker.TryAcquire(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	// our lease expires and someone else takes the provider
	mr.FastForward(2 * time.Minute)
	_, ok, err = locker.TryAcquire(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	release()
	assert.True(t, mr.Exists(DefaultKeyPrefix+"a"))
}

func TestRedisUnavailable(t *testing.T) {
	locker, mr := newRedisLocker(t)
	mr.Close()

	_, _, err := locker.TryAcquire(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrSyncLockUnavailable)

	_, err = locker.InFlight(context.Background())
	assert.ErrorIs(t, err, domain.ErrSyncLockUnavailable)
}

func TestRedisLockIsRenewedWhileHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := NewRedisLocker(client, "", 300*time.Millisecond)
	ctx := context.Background()

	release, ok, err := locker.TryAcquire(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	// well past the TTL in redis time, renewed in between
	for i := 0; i < 4; i++ {
		mr.FastForward(200 * time.Millisecond)
		require.True(t, mr.Exists(DefaultKeyPrefix+"a"), "lock expired on round %d", i)
		time.Sleep(250 * time.Millisecond)
	}

	_, ok, err = locker.TryAcquire(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists(DefaultKeyPrefix+"a"))
}

func TestRedisLockRenewalStopsOnceLost(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := NewRedisLocker(client, "", 300*time.Millisecond)

	release, ok, err := locker.TryAcquire(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	// another owner holds the key now; its lease must stay untouched
	require.NoError(t, mr.Set(DefaultKeyPrefix+"a", "someone-else"))
	time.Sleep(250 * time.Millisecond)

	assert.Zero(t, mr.TTL(DefaultKeyPrefix+"a"))
	got, err := mr.Get(DefaultKeyPrefix + "a")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

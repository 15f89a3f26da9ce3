package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/catalog-sync/internal/catalog/domain"
)

func newCache(t *testing.T) (*RedisSnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSnapshotCache(client, time.Minute), mr
}

func TestSnapshotRoundTrip(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	_, generation, ok := c.Get(ctx, "all")
	assert.False(t, ok)
	assert.Zero(t, generation)

	count := int64(4)
	c.Set(ctx, "all", generation, []domain.Service{{
		ID: 1, Provider: "vip", ExternalID: "ml", Name: "Mobile Legends",
		Category: domain.Category{Slug: "games"},
		Products: []domain.Product{{SKU: "ml-86", Price: 10, BuyPrice: 8, StockType: domain.StockLimited, StockCount: &count}},
	}})

	services, _, ok := c.Get(ctx, "all")
	require.True(t, ok)
	require.Len(t, services, 1)
	assert.Equal(t, "games", services[0].Category.Slug)
	assert.Equal(t, int64(4), *services[0].Products[0].StockCount)
}

func TestSnapshotEmptyListIsAHit(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	c.Set(ctx, "vip", 0, []domain.Service{})
	services, _, ok := c.Get(ctx, "vip")
	assert.True(t, ok)
	assert.Empty(t, services)
}

func TestSnapshotInvalidateDropsAllKeys(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("unrelated", "x"))

	c.Set(ctx, "all", 0, []domain.Service{})
	c.Set(ctx, "vip", 0, []domain.Service{})
	c.Invalidate(ctx)

	_, generation, ok := c.Get(ctx, "all")
	assert.False(t, ok)
	assert.Equal(t, int64(1), generation)
	_, _, ok = c.Get(ctx, "vip")
	assert.False(t, ok)
	assert.True(t, mr.Exists("unrelated"))
}

func TestSnapshotCorruptEntryIsAMiss(t *testing.T) {
	c, mr := newCache(t)
	require.NoError(t, mr.Set(DefaultKeyPrefix+"all", "{not json"))

	_, _, ok := c.Get(context.Background(), "all")
	assert.False(t, ok)
	assert.False(t, mr.Exists(DefaultKeyPrefix+"all"))
}

func TestSnapshotRedisDownIsAMiss(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()

	ctx := context.Background()
	_, generation, ok := c.Get(ctx, "all")
	assert.False(t, ok)
	c.Set(ctx, "all", generation, []domain.Service{})
	c.Invalidate(ctx)
}

func TestSnapshotReadBeforeInvalidateIsNotStored(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	// miss, then a sync lands before the reader writes back what it loaded
	_, generation, ok := c.Get(ctx, "all")
	require.False(t, ok)
	c.Invalidate(ctx)
	c.Set(ctx, "all", generation, []domain.Service{{ExternalID: "stale"}})

	assert.False(t, mr.Exists(DefaultKeyPrefix+"all"))

	_, generation, ok = c.Get(ctx, "all")
	require.False(t, ok)
	c.Set(ctx, "all", generation, []domain.Service{{ExternalID: "current"}})

	services, _, ok := c.Get(ctx, "all")
	require.True(t, ok)
	require.Len(t, services, 1)
	assert.Equal(t, "current", services[0].ExternalID)
}

func TestSnapshotUnreadableGenerationIsNotStored(t *testing.T) {
	c, mr := newCache(t)
	require.NoError(t, mr.Set(DefaultGenerationKey, "garbage"))
	ctx := context.Background()

	_, generation, ok := c.Get(ctx, "all")
	assert.False(t, ok)
	c.Set(ctx, "all", generation, []domain.Service{})
	assert.False(t, mr.Exists(DefaultKeyPrefix+"all"))
}

package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/pkg/logger"
)

const (
	DefaultKeyPrefix     = "catalog:snapshot:"
	DefaultGenerationKey = "catalog:snapshot-generation"
)

// noGeneration is handed out when the generation could not be read. It never
// matches a stored counter, so the following Set is dropped.
const noGeneration int64 = -1

// setScript writes the snapshot only while the generation is still the one
// the reader saw before going to the store
var setScript = redis.NewScript(`
	local current = redis.call("GET", KEYS[1])
	if not current then
		current = "0"
	end
	if current ~= ARGV[1] then
		return 0
	end
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
	return 1
`)

// RedisSnapshotCache keeps serialized catalog reads in redis. Every failure
// is logged and treated as a miss so reads fall through to the store.
type RedisSnapshotCache struct {
	client        redis.UniversalClient
	prefix        string
	generationKey string
	ttl           time.Duration
}

func NewRedisSnapshotCache(client redis.UniversalClient, ttl time.Duration) *RedisSnapshotCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSnapshotCache{
		client:        client,
		prefix:        DefaultKeyPrefix,
		generationKey: DefaultGenerationKey,
		ttl:           ttl,
	}
}

func (c *RedisSnapshotCache) Get(ctx context.Context, key string) ([]domain.Service, int64, bool) {
	values, err := c.client.MGet(ctx, c.generationKey, c.prefix+key).Result()
	if err != nil {
		logger.Warn(ctx).Err(err).Str("cache_key", key).Msg("Catalog snapshot read failed")
		return nil, noGeneration, false
	}

	generation, err := parseGeneration(values[0])
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("Unreadable catalog snapshot generation")
		return nil, noGeneration, false
	}

	raw, ok := values[1].(string)
	if !ok {
		logger.Debug(ctx).Str("cache_key", key).Int64("generation", generation).Msg("Catalog snapshot miss")
		return nil, generation, false
	}

	var services []domain.Service
	if err := json.Unmarshal([]byte(raw), &services); err != nil {
		logger.Warn(ctx).Err(err).Str("cache_key", key).Msg("Discarding corrupt catalog snapshot")
		c.client.Del(ctx, c.prefix+key)
		return nil, generation, false
	}

	logger.Debug(ctx).Str("cache_key", key).Int("services", len(services)).Msg("Catalog snapshot hit")
	return services, generation, true
}

func parseGeneration(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func (c *RedisSnapshotCache) Set(ctx context.Context, key string, generation int64, services []domain.Service) {
	if generation == noGeneration {
		return
	}
	raw, err := json.Marshal(services)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("Failed to encode catalog snapshot")
		return
	}

	stored, err := setScript.Run(ctx, c.client,
		[]string{c.generationKey, c.prefix + key},
		strconv.FormatInt(generation, 10), raw, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		logger.Warn(ctx).Err(err).Str("cache_key", key).Msg("Failed to store catalog snapshot")
		return
	}
	if stored == 0 {
		logger.Debug(ctx).Str("cache_key", key).Int64("generation", generation).Msg("Catalog changed during read, snapshot not stored")
		return
	}
	logger.Debug(ctx).Str("cache_key", key).Dur("ttl", c.ttl).Int("size", len(raw)).Msg("Catalog snapshot stored")
}

// Invalidate bumps the generation, which fences off reads still in flight,
// then drops every snapshot. A completed sync of one provider also changes
// the "all" view, so all keys go.
func (c *RedisSnapshotCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.generationKey).Err(); err != nil {
		logger.Warn(ctx).Err(err).Msg("Failed to bump catalog snapshot generation")
	}

	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn(ctx).Err(err).Msg("Failed to scan catalog snapshots")
		return
	}

	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn(ctx).Err(err).Msg("Failed to invalidate catalog snapshots")
		return
	}
	logger.Info(ctx).Int("count", len(keys)).Msg("Catalog snapshots invalidated")
}

package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tair/catalog-sync/internal/catalog/cache"
	"github.com/tair/catalog-sync/internal/catalog/client"
	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/internal/catalog/repository"
	"github.com/tair/catalog-sync/internal/catalog/synclock"
	"github.com/tair/catalog-sync/internal/config"
	"github.com/tair/catalog-sync/kafka"
	"github.com/tair/catalog-sync/pkg/database"
	"github.com/tair/catalog-sync/pkg/logger"
)

// Infrastructure holds the connections a catalog process keeps open
type Infrastructure struct {
	DB      *gorm.DB
	Catalog *config.CatalogFile

	// nil when REDIS_ADDR is empty
	Redis redis.UniversalClient
	// nil when KAFKA_BROKERS is empty or the caller opted out
	Publisher *kafka.Publisher
}

// OpenInfrastructure connects to the store and, when configured, redis and kafka
func OpenInfrastructure(ctx context.Context, cfg *config.Config, withKafka bool) (*Infrastructure, error) {
	catalogFile, err := config.LoadCatalogFile(cfg.Sync.CatalogFile)
	if err != nil {
		return nil, err
	}

	db, err := database.NewGormConnection(database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	infra := &Infrastructure{DB: db, Catalog: catalogFile}

	if cfg.Redis.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			rdb.Close()
			infra.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		infra.Redis = rdb
		logger.Logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	if withKafka && cfg.Kafka.KafkaEnabled() {
		publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, kafka.Topics{
			Synced:        cfg.Kafka.SyncedTopic,
			SyncRequested: cfg.Kafka.RequestTopic,
		})
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Publisher = publisher
	}

	return infra, nil
}

// Migrate creates or updates the catalog tables
func (i *Infrastructure) Migrate() error {
	return repository.NewGormCatalogRepository(i.DB).AutoMigrate()
}

// Dependencies picks the lock backend, snapshot cache and event publisher
// matching cfg and what was opened.
func (i *Infrastructure) Dependencies(cfg *config.Config) Dependencies {
	var upstream domain.UpstreamClient = client.NewUpstreamClient(client.Config{
		Timeout:      cfg.Upstream.Timeout,
		MaxRetries:   cfg.Upstream.MaxRetries,
		RetryBackoff: cfg.Upstream.RetryBackoff,
	})
	if cfg.Upstream.BreakerFailures > 0 {
		upstream = client.NewBreakerClient(upstream, cfg.Upstream.BreakerFailures, cfg.Upstream.BreakerCooldown)
	}

	deps := Dependencies{
		DB:        i.DB,
		Upstream:  upstream,
		Providers: domain.NewProviderRegistry(i.Catalog.ProviderConfigs()),
		Mapper:    i.Catalog.CategoryMapper(),
		Locker:    synclock.NewMemoryLocker(),
		Snapshots: domain.NopSnapshotCache{},
		Publisher: domain.NopEventPublisher{},
	}

	if i.Redis != nil {
		deps.Snapshots = cache.NewRedisSnapshotCache(i.Redis, cfg.Redis.CacheTTL)
		if cfg.Sync.LockBackend == config.LockBackendRedis {
			deps.Locker = synclock.NewRedisLocker(i.Redis, synclock.DefaultKeyPrefix, cfg.Sync.LockTTL)
		}
	}
	if i.Publisher != nil {
		deps.Publisher = i.Publisher
	}
	return deps
}

// Close releases every connection that was opened
func (i *Infrastructure) Close() {
	if i.Publisher != nil {
		if err := i.Publisher.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("Failed to close Kafka publisher")
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			logger.Logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	if sqlDB, err := i.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

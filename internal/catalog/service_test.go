package catalog

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/catalog-sync/internal/catalog/cache"
	"github.com/tair/catalog-sync/internal/catalog/catalogtest"
	"github.com/tair/catalog-sync/internal/catalog/domain"
	"github.com/tair/catalog-sync/internal/catalog/synclock"
	"github.com/tair/catalog-sync/internal/catalog/usecase/command"
	"github.com/tair/catalog-sync/internal/config"
)

const testCatalogFile = `
providers:
  - id: vip
    base_url: http://vip.invalid
categories:
  mappings:
    Games: {slug: games, name: Games}
`

func TestInitializeService(t *testing.T) {
	db := catalogtest.NewDB(t)
	upstream := catalogtest.NewFakeUpstream()
	upstream.SetCatalog("vip", []domain.ServiceDTO{{
		ID:       "ml",
		Name:     "Mobile Legends",
		Category: "games",
		Products: []domain.ProductDTO{
			{SKU: "ML-5", Name: "5 Diamonds", Price: 1500, BuyPrice: 1300, StockType: "LIMITED", Stock: catalogtest.Int64(9)},
		},
	}})
	publisher := &catalogtest.RecordingPublisher{}

	svc, err := InitializeService(Dependencies{
		DB:        db,
		Upstream:  upstream,
		Providers: domain.NewProviderRegistry([]domain.ProviderConfig{{ID: "vip", BaseURL: "http://vip.invalid"}}),
		Mapper:    domain.NewCategoryMapper(nil, domain.CategoryDefinition{}),
		Locker:    synclock.NewMemoryLocker(),
		Snapshots: domain.NopSnapshotCache{},
		Publisher: publisher,
	})
	require.NoError(t, err)
	require.NotNil(t, svc.HTTPHandler)
	require.NotNil(t, svc.GRPCServer)

	result, err := svc.Sync.Handle(context.Background(), command.RunSyncCommand{ProviderID: "vip"})
	require.NoError(t, err)
	assert.Equal(t, domain.SyncCompleted, result.Status)
	assert.Equal(t, 1, publisher.Count())

	stats, err := svc.Stats.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalProducts)
	assert.Equal(t, int64(9), stats.TotalStock)
}

func TestInfrastructureDependencies(t *testing.T) {
	catalogFile, err := config.ParseCatalogFile([]byte(testCatalogFile))
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Sync.LockBackend = config.LockBackendMemory

	t.Run("without redis", func(t *testing.T) {
		infra := &Infrastructure{DB: catalogtest.NewDB(t), Catalog: catalogFile}

		deps := infra.Dependencies(cfg)

		assert.IsType(t, &synclock.MemoryLocker{}, deps.Locker)
		assert.IsType(t, domain.NopSnapshotCache{}, deps.Snapshots)
		assert.IsType(t, domain.NopEventPublisher{}, deps.Publisher)
		_, ok := deps.Providers.Lookup("vip")
		assert.True(t, ok)
		def, matched := deps.Mapper.Map("GAMES")
		assert.True(t, matched)
		assert.Equal(t, "games", def.Slug)
	})

	t.Run("with redis lock backend", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })

		redisCfg := *cfg
		redisCfg.Sync.LockBackend = config.LockBackendRedis
		infra := &Infrastructure{DB: catalogtest.NewDB(t), Catalog: catalogFile, Redis: rdb}

		deps := infra.Dependencies(&redisCfg)

		assert.IsType(t, &synclock.RedisLocker{}, deps.Locker)
		assert.IsType(t, &cache.RedisSnapshotCache{}, deps.Snapshots)
	})
}

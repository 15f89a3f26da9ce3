package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/catalog-sync/internal/catalog/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "catalog-service", cfg.App.Name)
	assert.Equal(t, "8081", cfg.Server.HTTPPort)
	assert.Equal(t, 8*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 1, cfg.Upstream.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Upstream.RetryBackoff)
	assert.Equal(t, 5, cfg.Upstream.BreakerFailures)
	assert.Equal(t, 30*time.Second, cfg.Upstream.BreakerCooldown)
	assert.Equal(t, LockBackendMemory, cfg.Sync.LockBackend)
	assert.False(t, cfg.Redis.RedisEnabled())
	assert.False(t, cfg.Kafka.KafkaEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("UPSTREAM_RETRY_BACKOFF", "2s")
	t.Setenv("UPSTREAM_MAX_RETRIES", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SYNC_LOCK_BACKEND", "Redis")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Upstream.RetryBackoff)
	assert.Equal(t, 3, cfg.Upstream.MaxRetries)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, LockBackendRedis, cfg.Sync.LockBackend)
}

func TestRedisLockRequiresAddress(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SYNC_LOCK_BACKEND", "redis")

	_, err := Load()
	assert.Error(t, err)
}

func TestDotEnvIsLoaded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CATALOG_FILE=/etc/catalog.yaml\n"), 0o600))
	t.Chdir(dir)
	// godotenv sets the variable for the whole process
	t.Setenv("CATALOG_FILE", "")
	os.Unsetenv("CATALOG_FILE")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/etc/catalog.yaml", cfg.Sync.CatalogFile)
}

const sampleCatalog = `
providers:
  - id: vip
    name: VIP Reseller
    base_url: https://vip.example.com/api
    username: ${TEST_VIP_USER}
    api_key: ${TEST_VIP_KEY}
  - id: digi
    base_url: https://digi.example.com
categories:
  default:
    slug: other
    name: Other
  mappings:
    Mobile Games: {slug: mobile-games, name: Mobile Games}
    PC Games: {slug: pc-games, name: PC Games}
`

func TestParseCatalogFile(t *testing.T) {
	t.Setenv("TEST_VIP_USER", "reseller")
	t.Setenv("TEST_VIP_KEY", "k-123")

	file, err := ParseCatalogFile([]byte(sampleCatalog))
	require.NoError(t, err)

	providers := file.ProviderConfigs()
	require.Len(t, providers, 2)
	assert.Equal(t, "k-123", providers[0].APIKey)
	assert.Equal(t, "reseller", providers[0].Username)
	assert.Equal(t, "digi", providers[1].Name)

	mapper := file.CategoryMapper()
	def, ok := mapper.Map("mobile games")
	assert.True(t, ok)
	assert.Equal(t, "mobile-games", def.Slug)
	def, ok = mapper.Map("Console")
	assert.False(t, ok)
	assert.Equal(t, domain.CategoryDefinition{Slug: "other", Name: "Other"}, def)
}

func TestParseCatalogFileRejects(t *testing.T) {
	tests := map[string]string{
		"missing id":       "providers:\n  - base_url: http://x\n",
		"missing base url": "providers:\n  - id: x\n",
		"duplicate":        "providers:\n  - {id: x, base_url: http://x}\n  - {id: x, base_url: http://y}\n",
		"mapping no slug":  "categories:\n  mappings:\n    Games: {name: Games}\n",
		"not yaml":         "providers: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalogFile([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogFileMissing(t *testing.T) {
	_, err := LoadCatalogFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

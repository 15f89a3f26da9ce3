package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Upstream UpstreamConfig
	Sync     SyncConfig
	Auth     AuthConfig
	Tracing  TracingConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"catalog-service"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// ServerConfig holds HTTP and gRPC listener settings.
type ServerConfig struct {
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8081"`
	GRPCPort        string        `envconfig:"GRPC_PORT" default:"9091"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds catalog store connection settings.
type DatabaseConfig struct {
	Driver          string        `envconfig:"DB_DRIVER" default:"postgres"`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            string        `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"postgres"`
	Password        string        `envconfig:"DB_PASSWORD" default:"postgres"`
	Name            string        `envconfig:"DB_NAME" default:"catalogdb"`
	SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds redis settings. An empty address disables redis.
type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:""`
	Password string        `envconfig:"REDIS_PASSWORD" default:""`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`
}

// KafkaConfig holds messaging settings. No brokers disables kafka.
type KafkaConfig struct {
	Brokers      []string `envconfig:"KAFKA_BROKERS"`
	GroupID      string   `envconfig:"KAFKA_GROUP_ID" default:"catalog-service"`
	SyncedTopic  string   `envconfig:"KAFKA_SYNCED_TOPIC" default:"catalog-synced"`
	RequestTopic string   `envconfig:"KAFKA_SYNC_REQUEST_TOPIC" default:"catalog-sync-requested"`
}

// UpstreamConfig controls calls to the reseller API.
type UpstreamConfig struct {
	Timeout      time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"8s"`
	MaxRetries   int           `envconfig:"UPSTREAM_MAX_RETRIES" default:"1"`
	RetryBackoff time.Duration `envconfig:"UPSTREAM_RETRY_BACKOFF" default:"500ms"`

	// zero failures disables the circuit breaker
	BreakerFailures int           `envconfig:"UPSTREAM_BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"UPSTREAM_BREAKER_COOLDOWN" default:"30s"`
}

// SyncConfig selects the lock backend and the catalog file.
type SyncConfig struct {
	LockBackend string        `envconfig:"SYNC_LOCK_BACKEND" default:"memory"`
	LockTTL     time.Duration `envconfig:"SYNC_LOCK_TTL" default:"2m"`
	CatalogFile string        `envconfig:"CATALOG_FILE" default:"configs/catalog.yaml"`
}

// AuthConfig holds the shared secret used to verify admin tokens.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" default:""`
}

// TracingConfig controls the Jaeger exporter.
type TracingConfig struct {
	Enabled        bool    `envconfig:"TRACING_ENABLED" default:"false"`
	JaegerEndpoint string  `envconfig:"JAEGER_ENDPOINT" default:"http://localhost:14268/api/traces"`
	SampleRatio    float64 `envconfig:"TRACING_SAMPLE_RATIO" default:"1"`
}

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// RedisEnabled reports whether a redis address was configured.
func (r *RedisConfig) RedisEnabled() bool {
	return r.Addr != ""
}

// KafkaEnabled reports whether any broker was configured.
func (k *KafkaConfig) KafkaEnabled() bool {
	return len(k.Brokers) > 0
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) validate() error {
	c.Sync.LockBackend = strings.ToLower(c.Sync.LockBackend)
	switch c.Sync.LockBackend {
	case LockBackendMemory:
	case LockBackendRedis:
		if !c.Redis.RedisEnabled() {
			return fmt.Errorf("SYNC_LOCK_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown SYNC_LOCK_BACKEND %q", c.Sync.LockBackend)
	}

	if c.Upstream.MaxRetries < 0 {
		return fmt.Errorf("UPSTREAM_MAX_RETRIES must not be negative")
	}
	if c.Upstream.BreakerFailures < 0 {
		return fmt.Errorf("UPSTREAM_BREAKER_FAILURES must not be negative")
	}
	if c.Upstream.RetryBackoff < 0 {
		return fmt.Errorf("UPSTREAM_RETRY_BACKOFF must not be negative")
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the momentum service
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env string // development, staging, production

	// Storage
	Database DatabaseConfig
	Redis    RedisConfig
	Store    StoreConfig

	// Scoring pipeline
	Provider  ProviderConfig
	Cache     CacheConfig
	Batch     BatchConfig
	Scheduler SchedulerConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	Prefix   string
}

// StoreConfig selects the durable score store (tier 2)
type StoreConfig struct {
	Backend string // postgres, redis, none
}

// ProviderConfig holds live market data provider settings (tier 3)
type ProviderConfig struct {
	ChartBaseURL        string
	FundamentalsBaseURL string
	BenchmarkTicker     string
	LookbackDays        int
	FetchTimeout        time.Duration
	RequestsPerSecond   int
	BreakerFailures     uint32
	BreakerCooldown     time.Duration
}

// CacheConfig holds tier-1 and write-back settings
type CacheConfig struct {
	TTL            time.Duration
	Tier3Workers   int
	WriteQueueSize int
	WriteWorkers   int
	WriteTimeout   time.Duration
	BenchmarkTTL   time.Duration
}

// BatchConfig holds batch coordinator defaults
type BatchConfig struct {
	MaxWorkers  int
	BatchSize   int
	ItemTimeout time.Duration
}

// SchedulerConfig holds periodic snapshot settings
type SchedulerConfig struct {
	RefreshSchedule string
	SweepSchedule   string
	WatchlistPath   string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env: getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Prefix:   getEnv("REDIS_PREFIX", "momentum"),
		},

		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "postgres"),
		},

		Provider: ProviderConfig{
			ChartBaseURL:        getEnv("PROVIDER_CHART_URL", "https://query1.finance.yahoo.com"),
			FundamentalsBaseURL: getEnv("PROVIDER_FUNDAMENTALS_URL", "https://finviz.com"),
			BenchmarkTicker:     getEnv("BENCHMARK_TICKER", "SPY"),
			LookbackDays:        getEnvAsInt("PROVIDER_LOOKBACK_DAYS", 400),
			FetchTimeout:        getEnvAsDuration("PROVIDER_FETCH_TIMEOUT", "15s"),
			RequestsPerSecond:   getEnvAsInt("PROVIDER_RPS", 5),
			BreakerFailures:     uint32(getEnvAsInt("PROVIDER_BREAKER_FAILURES", 5)),
			BreakerCooldown:     getEnvAsDuration("PROVIDER_BREAKER_COOLDOWN", "30s"),
		},

		Cache: CacheConfig{
			TTL:            getEnvAsDuration("CACHE_TTL", "15m"),
			Tier3Workers:   getEnvAsInt("CACHE_TIER3_WORKERS", 8),
			WriteQueueSize: getEnvAsInt("CACHE_WRITE_QUEUE", 256),
			WriteWorkers:   getEnvAsInt("CACHE_WRITE_WORKERS", 2),
			WriteTimeout:   getEnvAsDuration("CACHE_WRITE_TIMEOUT", "5s"),
			BenchmarkTTL:   getEnvAsDuration("CACHE_BENCHMARK_TTL", "1h"),
		},

		Batch: BatchConfig{
			MaxWorkers:  getEnvAsInt("BATCH_MAX_WORKERS", 10),
			BatchSize:   getEnvAsInt("BATCH_SIZE", 20),
			ItemTimeout: getEnvAsDuration("BATCH_ITEM_TIMEOUT", "30s"),
		},

		Scheduler: SchedulerConfig{
			RefreshSchedule: getEnv("REFRESH_SCHEDULE", "0 30 16 * * MON-FRI"),
			SweepSchedule:   getEnv("SWEEP_SCHEDULE", "0 */5 * * * *"),
			WatchlistPath:   getEnv("WATCHLIST_PATH", "config/watchlist.yaml"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Store.Backend {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("REDIS_ENABLED must be true when STORE_BACKEND=redis")
		}
	case "none":
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: postgres, redis, none")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.Batch.MaxWorkers <= 0 || c.Batch.BatchSize <= 0 {
		return fmt.Errorf("BATCH_MAX_WORKERS and BATCH_SIZE must be positive")
	}
	if c.Provider.BenchmarkTicker == "" {
		return fmt.Errorf("BENCHMARK_TICKER is required")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

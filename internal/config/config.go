package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// JSON-RPC fetch configuration
	RPC RPCConfig

	// Pools API configuration
	Pools PoolsConfig

	// Token data output configuration
	Output OutputConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Metrics configuration
	Metrics MetricsConfig

	// Logging configuration
	Log LogConfig
}

// RPCConfig holds JSON-RPC endpoint and batching settings
type RPCConfig struct {
	URL            string        `envconfig:"ETH_RPC_URL" default:""`
	ChainID        int64         `envconfig:"ETH_CHAIN_ID" default:"1"`
	BatchSize      int           `envconfig:"ETH_BATCH_SIZE" default:"50"`
	BatchSleep     time.Duration `envconfig:"ETH_BATCH_SLEEP" default:"0s"`
	MaxRetries     int           `envconfig:"ETH_MAX_RETRIES" default:"6"`
	BackoffInitial time.Duration `envconfig:"ETH_BACKOFF_INITIAL" default:"500ms"`
	BackoffMax     time.Duration `envconfig:"ETH_BACKOFF_MAX" default:"8s"`
	RequestTimeout time.Duration `envconfig:"ETH_REQUEST_TIMEOUT" default:"45s"`
}

// PoolsConfig holds settings for the top-pools harvester
type PoolsConfig struct {
	APIKey         string        `envconfig:"COINGECKO_API_KEY" default:""`
	APIBase        string        `envconfig:"COINGECKO_API_BASE" default:"https://pro-api.coingecko.com/api/v3/onchain"`
	Networks       []string      `envconfig:"POOLS_NETWORKS" default:"eth:1,base:8453"`
	MaxPools       int           `envconfig:"POOLS_MAX_POOLS" default:"1000"`
	PerPage        int           `envconfig:"POOLS_PER_PAGE" default:"20"`
	DelayEvery     int           `envconfig:"POOLS_DELAY_EVERY" default:"5"`
	Delay          time.Duration `envconfig:"POOLS_DELAY" default:"2s"`
	RequestTimeout time.Duration `envconfig:"POOLS_REQUEST_TIMEOUT" default:"20s"`
}

// OutputConfig holds settings for the on-disk lookup tables
type OutputConfig struct {
	Root            string  `envconfig:"TOKENDATA_ROOT" default:"."`
	ChainIDs        []int64 `envconfig:"TOKENDATA_CHAIN_IDS" default:"1,8453"`
	Pretty          bool    `envconfig:"TOKENDATA_PRETTY" default:"false"`
	IconURLTemplate string  `envconfig:"TOKENDATA_ICON_URL_TEMPLATE" default:"https://assets.smold.app/api/token/%d/%s/logo-128.png"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"tokendata"`
	Password        string        `envconfig:"DB_PASSWORD" default:"tokendata"`
	Name            string        `envconfig:"DB_NAME" default:"tokendata"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD" default:""`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"REDIS_TTL" default:"24h"`
}

// APIConfig holds lookup API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
}

// MetricsConfig holds Prometheus push settings for batch runs
type MetricsConfig struct {
	PushgatewayURL string `envconfig:"METRICS_PUSHGATEWAY_URL" default:""`
	Job            string `envconfig:"METRICS_JOB" default:"tokendata"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Network pairs a pools API network slug with the chain directory it feeds
type Network struct {
	Slug    string
	ChainID int64
}

// ParseNetworks parses "slug:chainID" pairs, keeping their order
func ParseNetworks(pairs []string) ([]Network, error) {
	networks := make([]Network, 0, len(pairs))
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		slug, chain, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(slug) == "" {
			return nil, fmt.Errorf("invalid network %q: expected slug:chainID", pair)
		}

		chainID, err := strconv.ParseInt(strings.TrimSpace(chain), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain ID in network %q: %w", pair, err)
		}

		networks = append(networks, Network{Slug: strings.TrimSpace(slug), ChainID: chainID})
	}
	return networks, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

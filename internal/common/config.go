// Package common provides shared utilities for tradesim
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for tradesim
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Providers   ProvidersConfig `toml:"providers"`
	Trading     TradingConfig   `toml:"trading"`
	Feed        FeedConfig      `toml:"feed"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds SurrealDB connection configuration.
type StorageConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ProvidersConfig holds quote provider client configurations, in chain order.
type ProvidersConfig struct {
	Finnhub    ProviderConfig `toml:"finnhub"`
	TwelveData ProviderConfig `toml:"twelvedata"`
	Yahoo      ProviderConfig `toml:"yahoo"`
}

// ProviderConfig holds a single upstream quote API configuration
type ProviderConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the per-call timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// TradingConfig holds order execution parameters
type TradingConfig struct {
	FeeRate          float64 `toml:"fee_rate"`          // fraction of total amount, e.g. 0.001
	MaxOrderQuantity int64   `toml:"max_order_quantity"`
	StartingBalance  float64 `toml:"starting_balance"` // cash granted to a new portfolio
}

// FeedConfig holds price polling configuration
type FeedConfig struct {
	PollInterval       string `toml:"poll_interval"`
	StalenessThreshold string `toml:"staleness_threshold"`
}

// GetPollInterval parses and returns the per-symbol poll interval
func (c *FeedConfig) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetStalenessThreshold parses and returns the cached-price staleness threshold
func (c *FeedConfig) GetStalenessThreshold() time.Duration {
	d, err := time.ParseDuration(c.StalenessThreshold)
	if err != nil {
		return 2 * time.Minute
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000",
			Namespace: "tradesim",
			Database:  "tradesim",
			Username:  "root",
			Password:  "root",
		},
		Providers: ProvidersConfig{
			Finnhub: ProviderConfig{
				BaseURL:   "https://finnhub.io/api/v1",
				RateLimit: 10,
				Timeout:   "10s",
			},
			TwelveData: ProviderConfig{
				BaseURL:   "https://api.twelvedata.com",
				RateLimit: 5,
				Timeout:   "10s",
			},
			Yahoo: ProviderConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "10s",
			},
		},
		Trading: TradingConfig{
			FeeRate:          0.001,
			MaxOrderQuantity: 10000,
			StartingBalance:  100000,
		},
		Feed: FeedConfig{
			PollInterval:       "5s",
			StalenessThreshold: "2m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TRADESIM_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("TRADESIM_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("TRADESIM_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("TRADESIM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if addr := os.Getenv("TRADESIM_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}
	if ns := os.Getenv("TRADESIM_STORAGE_NAMESPACE"); ns != "" {
		config.Storage.Namespace = ns
	}
	if db := os.Getenv("TRADESIM_STORAGE_DATABASE"); db != "" {
		config.Storage.Database = db
	}
	if user := os.Getenv("TRADESIM_STORAGE_USERNAME"); user != "" {
		config.Storage.Username = user
	}
	if pass := os.Getenv("TRADESIM_STORAGE_PASSWORD"); pass != "" {
		config.Storage.Password = pass
	}

	if v := os.Getenv("TRADESIM_POLL_INTERVAL"); v != "" {
		config.Feed.PollInterval = v
	}
	if v := os.Getenv("TRADESIM_STALENESS_THRESHOLD"); v != "" {
		config.Feed.StalenessThreshold = v
	}

	if v := os.Getenv("TRADESIM_FEE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			config.Trading.FeeRate = f
		}
	}
	if v := os.Getenv("TRADESIM_MAX_ORDER_QUANTITY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			config.Trading.MaxOrderQuantity = n
		}
	}
	if v := os.Getenv("TRADESIM_STARTING_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			config.Trading.StartingBalance = f
		}
	}
}

// ResolveAPIKey resolves a provider API key from the environment with a config fallback.
func ResolveAPIKey(name string, fallback string) string {
	keyToEnvMapping := map[string][]string{
		"finnhub_api_key":    {"FINNHUB_API_KEY", "TRADESIM_FINNHUB_API_KEY"},
		"twelvedata_api_key": {"TWELVEDATA_API_KEY", "TRADESIM_TWELVEDATA_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue
			}
		}
	}

	return fallback
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

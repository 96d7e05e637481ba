// Package app wires configuration, storage, clients, and services into a
// single application core shared by the server binary and tests.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/tradesim/internal/clients/finnhub"
	"github.com/bobmcallan/tradesim/internal/clients/twelvedata"
	"github.com/bobmcallan/tradesim/internal/clients/yahoo"
	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/services/feed"
	"github.com/bobmcallan/tradesim/internal/services/pricecache"
	"github.com/bobmcallan/tradesim/internal/services/quote"
	"github.com/bobmcallan/tradesim/internal/services/trading"
	"github.com/bobmcallan/tradesim/internal/services/valuation"
	"github.com/bobmcallan/tradesim/internal/services/watchlist"
	"github.com/bobmcallan/tradesim/internal/storage/surrealdb"
)

// App holds all initialized services, clients, and storage.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	QuoteService     interfaces.QuoteService
	PriceCache       interfaces.PriceCache
	FeedService      interfaces.FeedService
	TradingService   interfaces.TradingService
	ValuationService interfaces.ValuationService
	WatchlistService interfaces.WatchlistService
	StartupTime      time.Time
}

// resolveProviderKey resolves a provider API key in priority order:
// environment, config file, then the system_kv table so keys can be set at
// runtime without a restart-and-edit cycle.
func resolveProviderKey(kv interfaces.SystemKVStore, name, configValue string) string {
	if key := common.ResolveAPIKey(name, configValue); key != "" {
		return key
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if key, err := kv.Get(ctx, name); err == nil && key != "" {
		return key
	}
	return ""
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, the provider chain, and every service.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load configuration - check provided path, TRADESIM_CONFIG, then binary dir, then fallback
	binDir := getBinaryDir()
	if configPath == "" {
		configPath = os.Getenv("TRADESIM_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "tradesim.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/tradesim.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Build the provider chain in failover order. Keyed providers without a
	// key are left out of the chain; Yahoo needs no key and always anchors it.
	var providers []interfaces.QuoteProvider

	finnhubKey := resolveProviderKey(storageManager.SystemKV(), "finnhub_api_key", config.Providers.Finnhub.APIKey)
	if finnhubKey != "" {
		providers = append(providers, finnhub.NewClient(finnhubKey,
			finnhub.WithBaseURL(config.Providers.Finnhub.BaseURL),
			finnhub.WithRateLimit(config.Providers.Finnhub.RateLimit),
			finnhub.WithTimeout(config.Providers.Finnhub.GetTimeout()),
			finnhub.WithLogger(logger),
		))
	} else {
		logger.Warn().Msg("Finnhub API key not configured - provider skipped")
	}

	twelveDataKey := resolveProviderKey(storageManager.SystemKV(), "twelvedata_api_key", config.Providers.TwelveData.APIKey)
	if twelveDataKey != "" {
		providers = append(providers, twelvedata.NewClient(twelveDataKey,
			twelvedata.WithBaseURL(config.Providers.TwelveData.BaseURL),
			twelvedata.WithRateLimit(config.Providers.TwelveData.RateLimit),
			twelvedata.WithTimeout(config.Providers.TwelveData.GetTimeout()),
			twelvedata.WithLogger(logger),
		))
	} else {
		logger.Warn().Msg("Twelve Data API key not configured - provider skipped")
	}

	providers = append(providers, yahoo.NewClient(
		yahoo.WithBaseURL(config.Providers.Yahoo.BaseURL),
		yahoo.WithRateLimit(config.Providers.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Providers.Yahoo.GetTimeout()),
		yahoo.WithLogger(logger),
	))

	quoteService := quote.NewService(logger, quote.DefaultCallTimeout, providers...)
	priceCache := pricecache.NewCache(config.Feed.GetStalenessThreshold(), logger)
	feedService := feed.NewService(quoteService, priceCache, config.Feed.GetPollInterval(), logger)
	tradingService := trading.NewService(storageManager.PortfolioStore(), priceCache, &config.Trading, logger)
	valuationService := valuation.NewService(priceCache, logger)
	watchlistService := watchlist.NewService(tradingService, storageManager.PortfolioStore(), logger)

	app := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		QuoteService:     quoteService,
		PriceCache:       priceCache,
		FeedService:      feedService,
		TradingService:   tradingService,
		ValuationService: valuationService,
		WatchlistService: watchlistService,
		StartupTime:      time.Now(),
	}

	logger.Info().
		Str("version", common.GetVersion()).
		Str("environment", config.Environment).
		Int("providers", len(providers)).
		Dur("startup", time.Since(startupStart)).
		Msg("Application initialized")

	return app, nil
}

// Close stops the feed pollers and releases storage connections.
func (a *App) Close() error {
	a.FeedService.Close()
	if err := a.Storage.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close storage")
		return err
	}
	return nil
}

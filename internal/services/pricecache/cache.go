// Package pricecache holds the last-known-good price snapshot per symbol.
package pricecache

import (
	"sync"
	"time"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

// DefaultFallbackEstimates is the static last-resort price table used by the
// order path when a symbol has never been quoted. Estimates, never live data.
var DefaultFallbackEstimates = map[string]float64{
	"AAPL":    175,
	"MSFT":    370,
	"GOOGL":   140,
	"AMZN":    150,
	"TSLA":    250,
	"NVDA":    480,
	"META":    350,
	"BTC-USD": 43000,
	"ETH-USD": 2200,
}

// Cache is a concurrency-safe snapshot store. Entries are immutable and
// atomically swapped, so reads on one symbol never contend with writes on
// another.
type Cache struct {
	entries   sync.Map // symbol -> *models.PriceSnapshot
	staleness time.Duration

	fallbackMu sync.RWMutex
	fallback   map[string]float64

	logger *common.Logger
	now    func() time.Time // injectable clock for testing
}

// NewCache creates a price cache. Entries older than staleness are re-tagged
// as cached when resolved for the order path.
func NewCache(staleness time.Duration, logger *common.Logger) *Cache {
	return &Cache{
		staleness: staleness,
		fallback:  DefaultFallbackEstimates,
		logger:    logger,
		now:       time.Now,
	}
}

// SetFallbackEstimates replaces the static estimate table. Safe to call
// while pollers are resolving.
func (c *Cache) SetFallbackEstimates(estimates map[string]float64) {
	c.fallbackMu.Lock()
	c.fallback = estimates
	c.fallbackMu.Unlock()
}

func (c *Cache) fallbackEstimate(symbol string) (float64, bool) {
	c.fallbackMu.RLock()
	price, ok := c.fallback[symbol]
	c.fallbackMu.RUnlock()
	return price, ok
}

// Put replaces the cached snapshot for its symbol.
func (c *Cache) Put(snapshot *models.PriceSnapshot) {
	if snapshot == nil || snapshot.Symbol == "" {
		return
	}
	c.entries.Store(models.NormalizeSymbol(snapshot.Symbol), snapshot)
}

// Get returns the cached snapshot and its age, or nil if none exists.
func (c *Cache) Get(symbol string) (*models.PriceSnapshot, time.Duration) {
	value, ok := c.entries.Load(models.NormalizeSymbol(symbol))
	if !ok {
		return nil, 0
	}
	snapshot := value.(*models.PriceSnapshot)
	return snapshot, snapshot.Age(c.now())
}

// Resolve returns a usable price for the order path. A cached entry within
// the staleness threshold keeps its tag; older entries are re-tagged cached
// so consumers can show a delayed indicator. A symbol with no entry at all
// falls back to the static estimate table, tagged fallback. No usable price
// yields a QuoteUnavailableError.
func (c *Cache) Resolve(symbol string) (*models.PriceSnapshot, error) {
	symbol = models.NormalizeSymbol(symbol)

	if snapshot, age := c.Get(symbol); snapshot.Usable() {
		if age > c.staleness {
			return snapshot.WithSource(models.PriceSourceCached), nil
		}
		return snapshot, nil
	}

	if price, ok := c.fallbackEstimate(symbol); ok && price > 0 {
		c.logger.Warn().
			Str("symbol", symbol).
			Float64("estimate", price).
			Msg("No cached price, using fallback estimate")
		return &models.PriceSnapshot{
			Symbol:     symbol,
			Price:      price,
			CapturedAt: c.now(),
			Source:     models.PriceSourceFallback,
		}, nil
	}

	return nil, &models.QuoteUnavailableError{Symbol: symbol}
}

// Symbols returns the symbols currently held in the cache.
func (c *Cache) Symbols() []string {
	var symbols []string
	c.entries.Range(func(key, _ any) bool {
		symbols = append(symbols, key.(string))
		return true
	})
	return symbols
}

// Ensure Cache implements PriceCache
var _ interfaces.PriceCache = (*Cache)(nil)

// Package interfaces defines service contracts for tradesim
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/tradesim/internal/models"
)

// QuoteService walks the ordered provider chain and returns the first
// successful quote, tagged live.
type QuoteService interface {
	// FetchQuote tries each provider in order; all failing yields a
	// QuoteUnavailableError
	FetchQuote(ctx context.Context, symbol string) (*models.PriceSnapshot, error)
}

// PriceCache holds the last-known-good snapshot per symbol.
type PriceCache interface {
	// Put replaces the cached snapshot for its symbol
	Put(snapshot *models.PriceSnapshot)

	// Get returns the cached snapshot and its age, or nil if none exists
	Get(symbol string) (*models.PriceSnapshot, time.Duration)

	// Resolve returns a usable price for the order path: the cached entry
	// (re-tagged cached when older than the staleness threshold), else a
	// static fallback estimate, else a QuoteUnavailableError.
	Resolve(symbol string) (*models.PriceSnapshot, error)
}

// Subscriber receives price updates for symbols it is registered for.
// Deliver must not block: implementations buffer or drop.
type Subscriber interface {
	ID() string
	Deliver(update models.PriceUpdate)
}

// FeedService owns the subscriber registry and the per-symbol pollers.
// Subscribing a symbol with no prior subscribers starts its poller;
// removing the last subscriber stops it.
type FeedService interface {
	Subscribe(subscriber Subscriber, symbol string)
	Unsubscribe(subscriber Subscriber, symbol string)
	UnsubscribeAll(subscriber Subscriber)

	// ActiveSymbols returns the symbols currently being polled
	ActiveSymbols() []string

	// SubscriberCount returns the number of subscribers for a symbol
	SubscriberCount(symbol string) int

	// Close stops all pollers
	Close()
}

// TradingService validates and applies orders against the portfolio ledger.
// Orders for one user are serialized; different users proceed in parallel.
type TradingService interface {
	// PlaceOrder executes a BUY/SELL atomically against the user's portfolio
	PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error)

	// GetPortfolio returns the user's ledger, creating it lazily with the
	// configured starting balance on first access
	GetPortfolio(ctx context.Context, userID string) (*models.Portfolio, error)

	// GetTransactions returns the user's ordered transaction log
	GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
}

// ValuationService derives current value and P&L from the price cache at
// read time. Results are never persisted as authoritative state.
type ValuationService interface {
	ValuePortfolio(portfolio *models.Portfolio) *models.PortfolioValuation
	Summarize(portfolio *models.Portfolio) *models.PortfolioSummary
}

// WatchlistService manages the per-user symbol watchlist on the ledger.
type WatchlistService interface {
	List(ctx context.Context, userID string) ([]string, error)
	Add(ctx context.Context, userID, symbol string) ([]string, error)
	Remove(ctx context.Context, userID, symbol string) ([]string, error)
}

// Package watchlist manages the per-user symbol watchlist on the ledger.
package watchlist

import (
	"context"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

// Service stores the watchlist on the portfolio record, so list membership
// survives restarts along with the rest of the ledger.
type Service struct {
	trading interfaces.TradingService
	store   interfaces.PortfolioStore
	logger  *common.Logger
}

// NewService creates a watchlist service. The trading service is used for
// lazy portfolio creation so watchlist access follows the same first-touch
// semantics as orders.
func NewService(trading interfaces.TradingService, store interfaces.PortfolioStore, logger *common.Logger) *Service {
	return &Service{trading: trading, store: store, logger: logger}
}

// List returns the user's watched symbols.
func (s *Service) List(ctx context.Context, userID string) ([]string, error) {
	portfolio, err := s.trading.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	return watchlistOf(portfolio), nil
}

// Add puts a symbol on the watchlist and returns the updated list. Adding a
// symbol already present is a no-op.
func (s *Service) Add(ctx context.Context, userID, symbol string) ([]string, error) {
	if models.NormalizeSymbol(symbol) == "" {
		return nil, &models.InvalidOrderError{Reason: "symbol is required"}
	}

	portfolio, err := s.trading.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}

	if portfolio.AddWatch(symbol) {
		if err := s.store.Save(ctx, portfolio); err != nil {
			return nil, &models.PersistenceError{Op: "save watchlist", Err: err}
		}
		s.logger.Info().Str("user_id", userID).Str("symbol", models.NormalizeSymbol(symbol)).Msg("Added to watchlist")
	}
	return watchlistOf(portfolio), nil
}

// Remove takes a symbol off the watchlist and returns the updated list.
// Removing an absent symbol is a no-op.
func (s *Service) Remove(ctx context.Context, userID, symbol string) ([]string, error) {
	portfolio, err := s.trading.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}

	if portfolio.RemoveWatch(symbol) {
		if err := s.store.Save(ctx, portfolio); err != nil {
			return nil, &models.PersistenceError{Op: "save watchlist", Err: err}
		}
		s.logger.Info().Str("user_id", userID).Str("symbol", models.NormalizeSymbol(symbol)).Msg("Removed from watchlist")
	}
	return watchlistOf(portfolio), nil
}

// watchlistOf returns a non-nil copy so handlers marshal [] instead of null.
func watchlistOf(portfolio *models.Portfolio) []string {
	symbols := make([]string, len(portfolio.Watchlist))
	copy(symbols, portfolio.Watchlist)
	return symbols
}

// Ensure Service implements WatchlistService
var _ interfaces.WatchlistService = (*Service)(nil)

// Package trading validates and executes orders against the portfolio ledger.
package trading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

// Service executes orders. Orders for the same user are serialized through a
// per-user mutex; orders for different users proceed in parallel. Each order
// reloads the ledger from storage, applies the transaction, and saves, so a
// failed save leaves no partial effect.
type Service struct {
	portfolios interfaces.PortfolioStore
	cache      interfaces.PriceCache
	logger     *common.Logger

	feeRate          float64
	maxOrderQuantity int64
	startingBalance  float64

	userLocks sync.Map // userID -> *sync.Mutex
	now       func() time.Time
}

// NewService creates a trading service using the given trading parameters.
func NewService(portfolios interfaces.PortfolioStore, cache interfaces.PriceCache, cfg *common.TradingConfig, logger *common.Logger) *Service {
	return &Service{
		portfolios:       portfolios,
		cache:            cache,
		logger:           logger,
		feeRate:          cfg.FeeRate,
		maxOrderQuantity: cfg.MaxOrderQuantity,
		startingBalance:  cfg.StartingBalance,
		now:              time.Now,
	}
}

func (s *Service) lockUser(userID string) *sync.Mutex {
	lock, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// PlaceOrder validates, prices, and executes one order atomically.
func (s *Service) PlaceOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	symbol := models.NormalizeSymbol(req.Symbol)

	lock := s.lockUser(req.UserID)
	lock.Lock()
	defer lock.Unlock()

	portfolio, err := s.loadOrCreate(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	// One price resolution per order; every amount below derives from it.
	snapshot, err := s.cache.Resolve(symbol)
	if err != nil {
		return nil, err
	}

	if req.OrderType == models.OrderTypeLimit {
		if err := checkLimit(req, snapshot.Price); err != nil {
			return nil, err
		}
	}

	total := float64(req.Quantity) * snapshot.Price
	txn := &models.Transaction{
		OrderID:     uuid.New().String(),
		Symbol:      symbol,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Price:       snapshot.Price,
		TotalAmount: total,
		Fees:        total * s.feeRate,
		Timestamp:   s.now(),
		Status:      models.TransactionStatusExecuted,
	}

	if err := portfolio.Apply(txn); err != nil {
		return nil, err
	}

	if err := s.portfolios.Save(ctx, portfolio); err != nil {
		return nil, &models.PersistenceError{Op: "save portfolio", Err: err}
	}

	s.logger.Info().
		Str("user_id", req.UserID).
		Str("order_id", txn.OrderID).
		Str("symbol", symbol).
		Str("type", string(txn.Type)).
		Int64("quantity", txn.Quantity).
		Float64("price", txn.Price).
		Str("price_source", string(snapshot.Source)).
		Float64("new_balance", portfolio.Balance).
		Msg("Order executed")

	return &models.OrderResult{Transaction: *txn, NewBalance: portfolio.Balance}, nil
}

func (s *Service) validateRequest(req *models.OrderRequest) error {
	if req == nil {
		return &models.InvalidOrderError{Reason: "empty order request"}
	}
	if req.UserID == "" {
		return &models.InvalidOrderError{Reason: "user_id is required"}
	}
	if models.NormalizeSymbol(req.Symbol) == "" {
		return &models.InvalidOrderError{Reason: "symbol is required"}
	}
	if req.Type != models.TradeTypeBuy && req.Type != models.TradeTypeSell {
		return &models.InvalidOrderError{Reason: fmt.Sprintf("unknown trade type %q", req.Type)}
	}
	if req.Quantity <= 0 {
		return &models.InvalidOrderError{Reason: "quantity must be a positive whole number"}
	}
	if req.Quantity > s.maxOrderQuantity {
		return &models.InvalidOrderError{Reason: fmt.Sprintf("quantity exceeds maximum of %d", s.maxOrderQuantity)}
	}
	switch req.OrderType {
	case models.OrderTypeMarket:
		// LimitPrice is ignored for market orders.
	case models.OrderTypeLimit:
		if req.LimitPrice == nil || *req.LimitPrice <= 0 {
			return &models.InvalidOrderError{Reason: "limit orders require a positive limit_price"}
		}
	default:
		return &models.InvalidOrderError{Reason: fmt.Sprintf("unknown order type %q", req.OrderType)}
	}
	return nil
}

// checkLimit gates execution against the current price. BUY executes only at
// or below the limit, SELL only at or above it. The executed price is always
// the current price, not the limit.
func checkLimit(req *models.OrderRequest, price float64) error {
	limit := *req.LimitPrice
	switch req.Type {
	case models.TradeTypeBuy:
		if price > limit {
			return &models.InvalidOrderError{
				Reason: fmt.Sprintf("current price %.2f is above buy limit %.2f", price, limit),
			}
		}
	case models.TradeTypeSell:
		if price < limit {
			return &models.InvalidOrderError{
				Reason: fmt.Sprintf("current price %.2f is below sell limit %.2f", price, limit),
			}
		}
	}
	return nil
}

// GetPortfolio returns the user's ledger, creating and persisting a fresh one
// with the starting balance on first access.
func (s *Service) GetPortfolio(ctx context.Context, userID string) (*models.Portfolio, error) {
	if userID == "" {
		return nil, &models.InvalidOrderError{Reason: "user_id is required"}
	}

	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	return s.loadOrCreate(ctx, userID)
}

// GetTransactions returns the user's transaction log in execution order.
func (s *Service) GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	portfolio, err := s.GetPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	return portfolio.Transactions, nil
}

// loadOrCreate fetches the ledger, lazily creating it on first access.
// Caller holds the user lock.
func (s *Service) loadOrCreate(ctx context.Context, userID string) (*models.Portfolio, error) {
	portfolio, err := s.portfolios.Get(ctx, userID)
	if err == nil {
		return portfolio, nil
	}
	if !errors.Is(err, interfaces.ErrPortfolioNotFound) {
		return nil, &models.PersistenceError{Op: "load portfolio", Err: err}
	}

	portfolio = models.NewPortfolio(userID, s.startingBalance)
	if err := s.portfolios.Save(ctx, portfolio); err != nil {
		return nil, &models.PersistenceError{Op: "create portfolio", Err: err}
	}
	s.logger.Info().
		Str("user_id", userID).
		Float64("starting_balance", s.startingBalance).
		Msg("Created portfolio")
	return portfolio, nil
}

// Ensure Service implements TradingService
var _ interfaces.TradingService = (*Service)(nil)

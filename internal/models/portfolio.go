// Package models defines data structures for tradesim
package models

import (
	"strings"
	"time"
)

// TradeType is the direction of an order
type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

// OrderType selects how the execution price is determined. MARKET orders
// execute at the current cached price; LIMIT orders use the limit price only
// to decide whether to execute at all; the executed price still comes from
// the cache.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// TransactionStatusExecuted is the only terminal state. Orders in this
// simulator are atomic and synchronous, with no partial or pending fills.
const TransactionStatusExecuted = "EXECUTED"

// Transaction records a single executed order. Append-only; never mutated
// after creation.
type Transaction struct {
	OrderID     string    `json:"order_id"`
	Symbol      string    `json:"symbol"`
	Type        TradeType `json:"type"`
	Quantity    int64     `json:"quantity"`
	Price       float64   `json:"price"`        // execution price at execution time
	TotalAmount float64   `json:"total_amount"` // quantity × price
	Fees        float64   `json:"fees"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
}

// Holding represents an open position. Quantity and AvgPrice are
// authoritative; the Current*/PnL fields are derived by the valuation
// service at read time and never trusted from storage.
type Holding struct {
	Symbol        string    `json:"symbol"`
	Quantity      int64     `json:"quantity"`
	AvgPrice      float64   `json:"avg_price"`      // weighted average cost
	TotalInvested float64   `json:"total_invested"` // avg_price × quantity, kept in sync on every mutation
	LastUpdated   time.Time `json:"last_updated"`

	// Derived fields, refreshed by the valuation service. Not authoritative.
	CurrentPrice float64     `json:"current_price,omitempty"`
	CurrentValue float64     `json:"current_value,omitempty"`
	PnL          float64     `json:"pnl,omitempty"`
	PnLPct       float64     `json:"pnl_pct,omitempty"`
	PriceSource  PriceSource `json:"price_source,omitempty"`
}

// Portfolio is the authoritative ledger for one user: cash balance, open
// holdings, the append-only transaction log, and the watchlist.
type Portfolio struct {
	UserID       string              `json:"user_id"`
	Balance      float64             `json:"balance"`
	Holdings     map[string]*Holding `json:"holdings"`
	Transactions []Transaction       `json:"transactions"`
	Watchlist    []string            `json:"watchlist"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewPortfolio creates an empty portfolio with the given starting cash balance.
func NewPortfolio(userID string, startingBalance float64) *Portfolio {
	now := time.Now()
	return &Portfolio{
		UserID:       userID,
		Balance:      startingBalance,
		Holdings:     make(map[string]*Holding),
		Transactions: []Transaction{},
		Watchlist:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Holding returns the open position for a symbol, or nil.
func (p *Portfolio) Holding(symbol string) *Holding {
	if p.Holdings == nil {
		return nil
	}
	return p.Holdings[NormalizeSymbol(symbol)]
}

// Apply mutates the portfolio according to an executed transaction and
// appends it to the log. The same code path serves live execution and
// replaying a transaction log from an empty portfolio, so replay always
// reproduces the exact current balance and holdings.
func (p *Portfolio) Apply(txn *Transaction) error {
	symbol := NormalizeSymbol(txn.Symbol)
	if p.Holdings == nil {
		p.Holdings = make(map[string]*Holding)
	}

	switch txn.Type {
	case TradeTypeBuy:
		cost := txn.TotalAmount + txn.Fees
		if p.Balance < cost {
			return &InsufficientFundsError{Required: cost, Available: p.Balance}
		}
		p.Balance -= cost

		if h, ok := p.Holdings[symbol]; ok {
			newQuantity := h.Quantity + txn.Quantity
			newInvested := h.TotalInvested + txn.TotalAmount
			h.AvgPrice = newInvested / float64(newQuantity)
			h.Quantity = newQuantity
			h.TotalInvested = newInvested
			h.LastUpdated = txn.Timestamp
		} else {
			p.Holdings[symbol] = &Holding{
				Symbol:        symbol,
				Quantity:      txn.Quantity,
				AvgPrice:      txn.Price,
				TotalInvested: txn.TotalAmount,
				LastUpdated:   txn.Timestamp,
			}
		}

	case TradeTypeSell:
		h, ok := p.Holdings[symbol]
		if !ok {
			return &InsufficientHoldingsError{Symbol: symbol, Required: txn.Quantity, Available: 0}
		}
		if h.Quantity < txn.Quantity {
			return &InsufficientHoldingsError{Symbol: symbol, Required: txn.Quantity, Available: h.Quantity}
		}
		p.Balance += txn.TotalAmount - txn.Fees

		// Reduce cost basis proportionally; avgPrice is unchanged by a sell.
		h.TotalInvested -= h.AvgPrice * float64(txn.Quantity)
		h.Quantity -= txn.Quantity
		h.LastUpdated = txn.Timestamp
		if h.Quantity <= 0 {
			delete(p.Holdings, symbol)
		}

	default:
		return &InvalidOrderError{Reason: "unknown transaction type: " + string(txn.Type)}
	}

	p.Transactions = append(p.Transactions, *txn)
	p.UpdatedAt = txn.Timestamp
	return nil
}

// Replay reconstructs a portfolio from its transaction log, starting from an
// empty portfolio with the given starting balance.
func Replay(userID string, startingBalance float64, transactions []Transaction) (*Portfolio, error) {
	p := NewPortfolio(userID, startingBalance)
	for i := range transactions {
		txn := transactions[i]
		if err := p.Apply(&txn); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Watches returns true if the symbol is on the watchlist.
func (p *Portfolio) Watches(symbol string) bool {
	symbol = NormalizeSymbol(symbol)
	for _, s := range p.Watchlist {
		if s == symbol {
			return true
		}
	}
	return false
}

// AddWatch adds a symbol to the watchlist. Returns false if already present.
func (p *Portfolio) AddWatch(symbol string) bool {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" || p.Watches(symbol) {
		return false
	}
	p.Watchlist = append(p.Watchlist, symbol)
	return true
}

// RemoveWatch removes a symbol from the watchlist. Returns false if absent.
func (p *Portfolio) RemoveWatch(symbol string) bool {
	symbol = NormalizeSymbol(symbol)
	for i, s := range p.Watchlist {
		if s == symbol {
			p.Watchlist = append(p.Watchlist[:i], p.Watchlist[i+1:]...)
			return true
		}
	}
	return false
}

// NormalizeSymbol uppercases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// OrderRequest is the inbound order placement payload.
type OrderRequest struct {
	UserID     string    `json:"user_id"`
	Symbol     string    `json:"symbol"`
	Type       TradeType `json:"type"`
	Quantity   int64     `json:"quantity"`
	OrderType  OrderType `json:"order_type"`
	LimitPrice *float64  `json:"limit_price,omitempty"`
}

// OrderResult is returned to the caller after a successful execution.
type OrderResult struct {
	Transaction Transaction `json:"transaction"`
	NewBalance  float64     `json:"new_balance"`
}

// PortfolioValuation is the read-time derivation of a portfolio's current
// worth. Never persisted; only balance, holdings, and transactions are
// authoritative.
type PortfolioValuation struct {
	UserID            string    `json:"user_id"`
	Balance           float64   `json:"balance"`
	Holdings          []Holding `json:"holdings"`
	TotalInvested     float64   `json:"total_invested"`
	TotalCurrentValue float64   `json:"total_current_value"`
	TotalPnL          float64   `json:"total_pnl"`
	TotalPnLPct       float64   `json:"total_pnl_pct"`
	TotalValue        float64   `json:"total_value"` // balance + total current value
	ComputedAt        time.Time `json:"computed_at"`
}

// PortfolioSummary is the aggregate view served to portfolio list screens.
type PortfolioSummary struct {
	Balance           float64 `json:"balance"`
	TotalInvested     float64 `json:"total_invested"`
	CurrentValue      float64 `json:"current_value"`
	TotalPnL          float64 `json:"total_pnl"`
	TotalPnLPct       float64 `json:"total_pnl_pct"`
	HoldingsCount     int     `json:"holdings_count"`
	TransactionsCount int     `json:"transactions_count"`
}

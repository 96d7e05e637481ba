// Package models defines data structures for tradesim
package models

import "fmt"

// Error kinds surfaced in the error payload of order and quote responses.
const (
	ErrKindQuoteUnavailable     = "QUOTE_UNAVAILABLE"
	ErrKindInvalidOrder         = "INVALID_ORDER"
	ErrKindInsufficientFunds    = "INSUFFICIENT_FUNDS"
	ErrKindInsufficientHoldings = "INSUFFICIENT_HOLDINGS"
	ErrKindPersistence          = "PERSISTENCE_FAILURE"
)

// QuoteUnavailableError indicates all providers failed and no usable cache or
// fallback entry exists for the symbol.
type QuoteUnavailableError struct {
	Symbol string
}

func (e *QuoteUnavailableError) Error() string {
	return fmt.Sprintf("no usable price available for %s", e.Symbol)
}

// Kind returns the error taxonomy tag.
func (e *QuoteUnavailableError) Kind() string { return ErrKindQuoteUnavailable }

// InvalidOrderError indicates the order was rejected during validation.
type InvalidOrderError struct {
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return "invalid order: " + e.Reason
}

// Kind returns the error taxonomy tag.
func (e *InvalidOrderError) Kind() string { return ErrKindInvalidOrder }

// InsufficientFundsError reports how much cash the order needed versus what
// the portfolio holds.
type InsufficientFundsError struct {
	Required  float64
	Available float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: required %.2f, available %.2f", e.Required, e.Available)
}

// Kind returns the error taxonomy tag.
func (e *InsufficientFundsError) Kind() string { return ErrKindInsufficientFunds }

// InsufficientHoldingsError reports how many shares the sell needed versus
// what the portfolio holds.
type InsufficientHoldingsError struct {
	Symbol    string
	Required  int64
	Available int64
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("insufficient shares of %s: required %d, available %d", e.Symbol, e.Required, e.Available)
}

// Kind returns the error taxonomy tag.
func (e *InsufficientHoldingsError) Kind() string { return ErrKindInsufficientHoldings }

// PersistenceError indicates a ledger write failed. The order that triggered
// it has no effect: either the whole update is durable or none of it is.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Kind returns the error taxonomy tag.
func (e *PersistenceError) Kind() string { return ErrKindPersistence }

// KindedError is implemented by every error in the taxonomy.
type KindedError interface {
	error
	Kind() string
}

// Package interfaces defines service contracts for tradesim
package interfaces

import (
	"context"

	"github.com/bobmcallan/tradesim/internal/models"
)

// QuoteProvider is a single upstream quote API normalized to the common
// snapshot shape. Providers are stateless; each call carries its own timeout
// via the context and a failed call is never retried within the same call.
type QuoteProvider interface {
	// Name identifies the provider in logs and diagnostics
	Name() string

	// FetchQuote retrieves the current quote for a symbol
	FetchQuote(ctx context.Context, symbol string) (*models.PriceSnapshot, error)
}

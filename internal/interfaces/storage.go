// Package interfaces defines service contracts for tradesim
package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/tradesim/internal/models"
)

// ErrPortfolioNotFound is returned by PortfolioStore.Get when no ledger
// exists for the user yet. Callers create one lazily.
var ErrPortfolioNotFound = errors.New("portfolio not found")

// StorageManager coordinates all storage backends
type StorageManager interface {
	PortfolioStore() PortfolioStore
	SystemKV() SystemKVStore

	// Lifecycle
	Close() error
}

// PortfolioStore persists the per-user ledger. Save is all-or-nothing: a
// failed save leaves the previously durable state intact.
type PortfolioStore interface {
	Get(ctx context.Context, userID string) (*models.Portfolio, error)
	Save(ctx context.Context, portfolio *models.Portfolio) error
	Delete(ctx context.Context, userID string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

// SystemKVStore holds system-level key-value settings (non-user-scoped).
type SystemKVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Package quote walks an ordered chain of upstream providers and returns the
// first successful quote.
package quote

import (
	"context"
	"time"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

// DefaultCallTimeout bounds each individual provider call so a hung upstream
// cannot starve the poll loop.
const DefaultCallTimeout = 10 * time.Second

// Service implements QuoteService over an ordered provider chain.
type Service struct {
	providers []interfaces.QuoteProvider
	timeout   time.Duration
	logger    *common.Logger
}

// NewService creates a quote service. Providers are tried in the order given;
// the first success wins.
func NewService(logger *common.Logger, timeout time.Duration, providers ...interfaces.QuoteProvider) *Service {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Service{
		providers: providers,
		timeout:   timeout,
		logger:    logger,
	}
}

// FetchQuote tries each provider in order with a hard per-call timeout.
// A provider that times out or returns malformed data is treated as failed
// and the next provider is tried; there is no retry within the same call. If
// all providers fail the caller gets a QuoteUnavailableError and decides
// whether cache or fallback data can serve instead.
func (s *Service) FetchQuote(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	symbol = models.NormalizeSymbol(symbol)

	for _, provider := range s.providers {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		snapshot, err := provider.FetchQuote(callCtx, symbol)
		cancel()

		if err != nil {
			s.logger.Debug().
				Err(err).
				Str("provider", provider.Name()).
				Str("symbol", symbol).
				Msg("Quote provider failed, trying next")
			continue
		}
		if !snapshot.Usable() {
			s.logger.Debug().
				Str("provider", provider.Name()).
				Str("symbol", symbol).
				Msg("Quote provider returned unusable price, trying next")
			continue
		}

		live := snapshot.WithSource(models.PriceSourceLive)
		s.logger.Debug().
			Str("provider", provider.Name()).
			Str("symbol", symbol).
			Float64("price", live.Price).
			Msg("Quote fetched")
		return live, nil
	}

	return nil, &models.QuoteUnavailableError{Symbol: symbol}
}

// Ensure Service implements QuoteService
var _ interfaces.QuoteService = (*Service)(nil)

// Package valuation derives current portfolio value and P&L at read time.
package valuation

import (
	"sort"
	"time"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

// Service computes valuations from the price cache. A holding whose symbol
// has no cached price is valued at its average cost, so a cold cache reports
// zero P&L rather than a phantom loss.
type Service struct {
	cache  interfaces.PriceCache
	logger *common.Logger
	now    func() time.Time
}

// NewService creates a valuation service backed by the given price cache.
func NewService(cache interfaces.PriceCache, logger *common.Logger) *Service {
	return &Service{cache: cache, logger: logger, now: time.Now}
}

// ValuePortfolio values every holding at the best available price and
// aggregates the totals. The input portfolio is not mutated.
func (s *Service) ValuePortfolio(portfolio *models.Portfolio) *models.PortfolioValuation {
	valuation := &models.PortfolioValuation{
		UserID:     portfolio.UserID,
		Balance:    portfolio.Balance,
		Holdings:   make([]models.Holding, 0, len(portfolio.Holdings)),
		ComputedAt: s.now(),
	}

	for _, h := range portfolio.Holdings {
		valued := s.valueHolding(h)
		valuation.Holdings = append(valuation.Holdings, valued)
		valuation.TotalInvested += valued.TotalInvested
		valuation.TotalCurrentValue += valued.CurrentValue
	}
	sort.Slice(valuation.Holdings, func(i, j int) bool {
		return valuation.Holdings[i].Symbol < valuation.Holdings[j].Symbol
	})

	valuation.TotalPnL = valuation.TotalCurrentValue - valuation.TotalInvested
	if valuation.TotalInvested > 0 {
		valuation.TotalPnLPct = valuation.TotalPnL / valuation.TotalInvested * 100
	}
	valuation.TotalValue = valuation.Balance + valuation.TotalCurrentValue
	return valuation
}

// Summarize returns the aggregate view for a portfolio list screen.
func (s *Service) Summarize(portfolio *models.Portfolio) *models.PortfolioSummary {
	valuation := s.ValuePortfolio(portfolio)
	return &models.PortfolioSummary{
		Balance:           valuation.Balance,
		TotalInvested:     valuation.TotalInvested,
		CurrentValue:      valuation.TotalCurrentValue,
		TotalPnL:          valuation.TotalPnL,
		TotalPnLPct:       valuation.TotalPnLPct,
		HoldingsCount:     len(portfolio.Holdings),
		TransactionsCount: len(portfolio.Transactions),
	}
}

func (s *Service) valueHolding(h *models.Holding) models.Holding {
	valued := *h

	price := h.AvgPrice
	source := models.PriceSourceFallback
	if snapshot, _ := s.cache.Get(h.Symbol); snapshot.Usable() {
		price = snapshot.Price
		source = snapshot.Source
	}

	valued.CurrentPrice = price
	valued.CurrentValue = price * float64(h.Quantity)
	valued.PnL = valued.CurrentValue - h.TotalInvested
	if h.TotalInvested > 0 {
		valued.PnLPct = valued.PnL / h.TotalInvested * 100
	}
	valued.PriceSource = source
	return valued
}

// Ensure Service implements ValuationService
var _ interfaces.ValuationService = (*Service)(nil)

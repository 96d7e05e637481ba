package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/models"
	"github.com/bobmcallan/tradesim/internal/services/pricecache"
)

func newTestService() (*Service, *pricecache.Cache) {
	logger := common.NewSilentLogger()
	cache := pricecache.NewCache(2*time.Minute, logger)
	return NewService(cache, logger), cache
}

func buildPortfolio() *models.Portfolio {
	p := models.NewPortfolio("u1", 100000)
	p.Balance = 50000
	p.Holdings["AAPL"] = &models.Holding{
		Symbol:        "AAPL",
		Quantity:      10,
		AvgPrice:      150,
		TotalInvested: 1500,
	}
	p.Holdings["MSFT"] = &models.Holding{
		Symbol:        "MSFT",
		Quantity:      5,
		AvgPrice:      300,
		TotalInvested: 1500,
	}
	p.Transactions = make([]models.Transaction, 3)
	return p
}

func TestValuePortfolioWithCachedPrices(t *testing.T) {
	svc, cache := newTestService()
	cache.Put(&models.PriceSnapshot{Symbol: "AAPL", Price: 180, CapturedAt: time.Now(), Source: models.PriceSourceLive})
	cache.Put(&models.PriceSnapshot{Symbol: "MSFT", Price: 270, CapturedAt: time.Now(), Source: models.PriceSourceLive})

	valuation := svc.ValuePortfolio(buildPortfolio())

	require.Len(t, valuation.Holdings, 2)
	aapl := valuation.Holdings[0]
	assert.Equal(t, "AAPL", aapl.Symbol)
	assert.Equal(t, 180.0, aapl.CurrentPrice)
	assert.Equal(t, 1800.0, aapl.CurrentValue)
	assert.InDelta(t, 300.0, aapl.PnL, 1e-9)
	assert.InDelta(t, 20.0, aapl.PnLPct, 1e-9)
	assert.Equal(t, models.PriceSourceLive, aapl.PriceSource)

	msft := valuation.Holdings[1]
	assert.InDelta(t, -150.0, msft.PnL, 1e-9)

	assert.InDelta(t, 3000.0, valuation.TotalInvested, 1e-9)
	assert.InDelta(t, 3150.0, valuation.TotalCurrentValue, 1e-9)
	assert.InDelta(t, 150.0, valuation.TotalPnL, 1e-9)
	assert.InDelta(t, 5.0, valuation.TotalPnLPct, 1e-9)
	assert.InDelta(t, 53150.0, valuation.TotalValue, 1e-9)
}

func TestValuePortfolioColdCacheUsesAvgPrice(t *testing.T) {
	svc, _ := newTestService()

	valuation := svc.ValuePortfolio(buildPortfolio())

	for _, h := range valuation.Holdings {
		assert.Equal(t, h.AvgPrice, h.CurrentPrice)
		assert.InDelta(t, 0.0, h.PnL, 1e-9)
		assert.Equal(t, models.PriceSourceFallback, h.PriceSource)
	}
	assert.InDelta(t, 0.0, valuation.TotalPnL, 1e-9)
}

func TestValuePortfolioDoesNotMutateInput(t *testing.T) {
	svc, cache := newTestService()
	cache.Put(&models.PriceSnapshot{Symbol: "AAPL", Price: 180, CapturedAt: time.Now(), Source: models.PriceSourceLive})

	portfolio := buildPortfolio()
	svc.ValuePortfolio(portfolio)

	assert.Zero(t, portfolio.Holdings["AAPL"].CurrentPrice)
	assert.Zero(t, portfolio.Holdings["AAPL"].PnL)
}

func TestValueEmptyPortfolio(t *testing.T) {
	svc, _ := newTestService()
	portfolio := models.NewPortfolio("u1", 100000)

	valuation := svc.ValuePortfolio(portfolio)
	assert.Empty(t, valuation.Holdings)
	assert.Zero(t, valuation.TotalPnLPct)
	assert.InDelta(t, 100000.0, valuation.TotalValue, 1e-9)
}

func TestSummarize(t *testing.T) {
	svc, cache := newTestService()
	cache.Put(&models.PriceSnapshot{Symbol: "AAPL", Price: 180, CapturedAt: time.Now(), Source: models.PriceSourceLive})
	cache.Put(&models.PriceSnapshot{Symbol: "MSFT", Price: 270, CapturedAt: time.Now(), Source: models.PriceSourceLive})

	summary := svc.Summarize(buildPortfolio())
	assert.Equal(t, 50000.0, summary.Balance)
	assert.InDelta(t, 3150.0, summary.CurrentValue, 1e-9)
	assert.InDelta(t, 150.0, summary.TotalPnL, 1e-9)
	assert.Equal(t, 2, summary.HoldingsCount)
	assert.Equal(t, 3, summary.TransactionsCount)
}

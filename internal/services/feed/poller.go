package feed

import (
	"context"
	"time"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

// poller fetches one symbol on a fixed interval, refreshes the cache, and
// emits an update when the price moves. One poller runs per active symbol.
type poller struct {
	symbol   string
	interval time.Duration
	quotes   interfaces.QuoteService
	cache    interfaces.PriceCache
	emit     func(models.PriceUpdate)
	logger   *common.Logger

	cancel context.CancelFunc
	done   chan struct{}

	lastPrice  float64
	lastChange float64
	emitted    bool
}

func newPoller(symbol string, interval time.Duration, quotes interfaces.QuoteService, cache interfaces.PriceCache, emit func(models.PriceUpdate), logger *common.Logger) *poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{
		symbol:   symbol,
		interval: interval,
		quotes:   quotes,
		cache:    cache,
		emit:     emit,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go p.run(ctx)
	return p
}

func (p *poller) run(ctx context.Context) {
	defer close(p.done)

	// Immediate first fetch so new subscribers see a price without waiting
	// a full interval.
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *poller) poll(ctx context.Context) {
	snapshot, err := p.quotes.FetchQuote(ctx, p.symbol)
	if err != nil {
		// Keep the last cached price and try again next tick.
		p.logger.Warn().Err(err).Str("symbol", p.symbol).Msg("Poll failed")
		return
	}

	// A fetch that completed after the poller was stopped must not leak
	// into the cache or out to subscribers.
	select {
	case <-ctx.Done():
		return
	default:
	}

	p.cache.Put(snapshot)

	if p.emitted && snapshot.Price == p.lastPrice && snapshot.Change == p.lastChange {
		return
	}
	p.lastPrice = snapshot.Price
	p.lastChange = snapshot.Change
	p.emitted = true

	p.emit(snapshot.Update())
}

// stop cancels the poll loop and waits for it to exit.
func (p *poller) stop() {
	p.cancel()
	<-p.done
}

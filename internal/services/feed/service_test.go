package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/models"
	"github.com/bobmcallan/tradesim/internal/services/pricecache"
)

// stubQuotes serves a settable price and counts fetches.
type stubQuotes struct {
	mu     sync.Mutex
	price  float64
	change float64
	calls  int
}

func (s *stubQuotes) FetchQuote(_ context.Context, symbol string) (*models.PriceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return &models.PriceSnapshot{
		Symbol:     models.NormalizeSymbol(symbol),
		Price:      s.price,
		Change:     s.change,
		CapturedAt: time.Now(),
		Source:     models.PriceSourceLive,
	}, nil
}

func (s *stubQuotes) setPrice(price, change float64) {
	s.mu.Lock()
	s.price = price
	s.change = change
	s.mu.Unlock()
}

func (s *stubQuotes) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingSubscriber buffers delivered updates on a channel.
type recordingSubscriber struct {
	id      string
	updates chan models.PriceUpdate
	dropped atomic.Int64
}

func newRecordingSubscriber(id string) *recordingSubscriber {
	return &recordingSubscriber{id: id, updates: make(chan models.PriceUpdate, 64)}
}

func (r *recordingSubscriber) ID() string { return r.id }

func (r *recordingSubscriber) Deliver(update models.PriceUpdate) {
	select {
	case r.updates <- update:
	default:
		r.dropped.Add(1)
	}
}

// waitForPrice drains updates until one carries the given price.
func (r *recordingSubscriber) waitForPrice(t *testing.T, price float64) models.PriceUpdate {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case update := <-r.updates:
			if update.Price == price {
				return update
			}
		case <-deadline:
			t.Fatalf("timed out waiting for price %v", price)
			return models.PriceUpdate{}
		}
	}
}

func (r *recordingSubscriber) waitForUpdate(t *testing.T) models.PriceUpdate {
	t.Helper()
	select {
	case update := <-r.updates:
		return update
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for price update")
		return models.PriceUpdate{}
	}
}

func newTestService(quotes *stubQuotes, interval time.Duration) *Service {
	logger := common.NewSilentLogger()
	cache := pricecache.NewCache(2*time.Minute, logger)
	return NewService(quotes, cache, interval, logger)
}

func TestSubscribeStartsPoller(t *testing.T) {
	quotes := &stubQuotes{price: 100}
	svc := newTestService(quotes, 10*time.Millisecond)
	defer svc.Close()

	sub := newRecordingSubscriber("client-1")
	svc.Subscribe(sub, "aapl")

	update := sub.waitForUpdate(t)
	assert.Equal(t, "AAPL", update.Symbol)
	assert.Equal(t, 100.0, update.Price)
	assert.Equal(t, []string{"AAPL"}, svc.ActiveSymbols())
	assert.Equal(t, 1, svc.SubscriberCount("AAPL"))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	quotes := &stubQuotes{price: 100}
	svc := newTestService(quotes, time.Hour)
	defer svc.Close()

	sub := newRecordingSubscriber("client-1")
	svc.Subscribe(sub, "AAPL")
	svc.Subscribe(sub, "AAPL")

	assert.Equal(t, 1, svc.SubscriberCount("AAPL"))
	assert.Len(t, svc.ActiveSymbols(), 1)
}

func TestSecondSubscriberSharesPoller(t *testing.T) {
	quotes := &stubQuotes{price: 100}
	svc := newTestService(quotes, 10*time.Millisecond)
	defer svc.Close()

	first := newRecordingSubscriber("client-1")
	second := newRecordingSubscriber("client-2")
	svc.Subscribe(first, "AAPL")
	first.waitForUpdate(t)

	svc.Subscribe(second, "AAPL")
	assert.Len(t, svc.ActiveSymbols(), 1)
	assert.Equal(t, 2, svc.SubscriberCount("AAPL"))

	quotes.setPrice(101, 1)
	update := second.waitForPrice(t, 101)
	assert.Equal(t, 1.0, update.Change)
}

func TestNoEmitWhenPriceUnchanged(t *testing.T) {
	quotes := &stubQuotes{price: 100}
	svc := newTestService(quotes, 5*time.Millisecond)
	defer svc.Close()

	sub := newRecordingSubscriber("client-1")
	svc.Subscribe(sub, "AAPL")
	sub.waitForUpdate(t)

	// Several poll cycles at the same price produce no further updates.
	require.Eventually(t, func() bool {
		return quotes.callCount() >= 5
	}, 2*time.Second, time.Millisecond)
	assert.Empty(t, sub.updates)

	quotes.setPrice(102, 2)
	update := sub.waitForUpdate(t)
	assert.Equal(t, 102.0, update.Price)
}

func TestUnsubscribeLastStopsPoller(t *testing.T) {
	quotes := &stubQuotes{price: 100}
	svc := newTestService(quotes, 5*time.Millisecond)
	defer svc.Close()

	sub := newRecordingSubscriber("client-1")
	svc.Subscribe(sub, "AAPL")
	sub.waitForUpdate(t)

	svc.Unsubscribe(sub, "AAPL")
	assert.Empty(t, svc.ActiveSymbols())
	assert.Equal(t, 0, svc.SubscriberCount("AAPL"))

	// No fetches once the poller has stopped.
	stopped := quotes.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, quotes.callCount())
}

func TestUnsubscribeKeepsPollerForRemaining(t *testing.T) {
	quotes := &stubQuotes{price: 100}
	svc := newTestService(quotes, 10*time.Millisecond)
	defer svc.Close()

	first := newRecordingSubscriber("client-1")
	second := newRecordingSubscriber("client-2")
	svc.Subscribe(first, "AAPL")
	svc.Subscribe(second, "AAPL")
	first.waitForUpdate(t)

	svc.Unsubscribe(first, "AAPL")
	assert.Equal(t, []string{"AAPL"}, svc.ActiveSymbols())

	// second may still hold the initial price-100 emission; drain until the
	// new price comes through.
	quotes.setPrice(105, 5)
	update := second.waitForPrice(t, 105)
	assert.Equal(t, 5.0, update.Change)
}

func TestUnsubscribeUnknownPairIsNoop(t *testing.T) {
	quotes := &stubQuotes{price: 100}
	svc := newTestService(quotes, time.Hour)
	defer svc.Close()

	sub := newRecordingSubscriber("client-1")
	svc.Unsubscribe(sub, "AAPL")
	assert.Empty(t, svc.ActiveSymbols())
}

func TestUnsubscribeAll(t *testing.T) {
	quotes := &stubQuotes{price: 100}
	svc := newTestService(quotes, 10*time.Millisecond)
	defer svc.Close()

	sub := newRecordingSubscriber("client-1")
	other := newRecordingSubscriber("client-2")
	svc.Subscribe(sub, "AAPL")
	svc.Subscribe(sub, "MSFT")
	svc.Subscribe(other, "AAPL")

	svc.UnsubscribeAll(sub)
	assert.Equal(t, []string{"AAPL"}, svc.ActiveSymbols())
	assert.Equal(t, 1, svc.SubscriberCount("AAPL"))
	assert.Equal(t, 0, svc.SubscriberCount("MSFT"))
}

func TestCloseStopsEverything(t *testing.T) {
	quotes := &stubQuotes{price: 100}
	svc := newTestService(quotes, 5*time.Millisecond)

	sub := newRecordingSubscriber("client-1")
	svc.Subscribe(sub, "AAPL")
	sub.waitForUpdate(t)

	svc.Close()
	assert.Empty(t, svc.ActiveSymbols())

	// New subscriptions after Close are rejected.
	svc.Subscribe(sub, "MSFT")
	assert.Equal(t, 0, svc.SubscriberCount("MSFT"))
}

func TestPollerRefreshesCache(t *testing.T) {
	quotes := &stubQuotes{price: 210}
	logger := common.NewSilentLogger()
	cache := pricecache.NewCache(2*time.Minute, logger)
	svc := NewService(quotes, cache, 10*time.Millisecond, logger)
	defer svc.Close()

	sub := newRecordingSubscriber("client-1")
	svc.Subscribe(sub, "AAPL")
	sub.waitForUpdate(t)

	snapshot, _ := cache.Get("AAPL")
	require.NotNil(t, snapshot)
	assert.Equal(t, 210.0, snapshot.Price)
	assert.Equal(t, models.PriceSourceLive, snapshot.Source)
}

func TestSlowSubscriberDoesNotStallOthers(t *testing.T) {
	quotes := &stubQuotes{price: 100}
	svc := newTestService(quotes, 5*time.Millisecond)
	defer svc.Close()

	// Unbuffered channel with no reader: every delivery drops.
	slow := &recordingSubscriber{id: "slow", updates: make(chan models.PriceUpdate)}
	healthy := newRecordingSubscriber("healthy")
	svc.Subscribe(slow, "AAPL")
	svc.Subscribe(healthy, "AAPL")

	// Keep the price moving so every poll emits an update.
	price := 100.0
	require.Eventually(t, func() bool {
		price++
		quotes.setPrice(price, price-100)
		return slow.dropped.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	healthy.waitForUpdate(t)
	assert.Equal(t, 2, svc.SubscriberCount("AAPL"))
}

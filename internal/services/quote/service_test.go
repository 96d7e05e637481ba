package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/models"
)

type stubProvider struct {
	name     string
	snapshot *models.PriceSnapshot
	err      error
	delay    time.Duration
	calls    int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) FetchQuote(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	p.calls++
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.snapshot, nil
}

func snap(symbol string, price float64) *models.PriceSnapshot {
	return &models.PriceSnapshot{Symbol: symbol, Price: price, CapturedAt: time.Now()}
}

func TestFetchQuote_FirstSuccessWins(t *testing.T) {
	primary := &stubProvider{name: "primary", snapshot: snap("AAPL", 178.72)}
	secondary := &stubProvider{name: "secondary", snapshot: snap("AAPL", 179)}

	svc := NewService(common.NewSilentLogger(), time.Second, primary, secondary)
	got, err := svc.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 178.72, got.Price)
	assert.Equal(t, models.PriceSourceLive, got.Source)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls, "secondary should not be called when primary succeeds")
}

func TestFetchQuote_FailoverOrder(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("boom")}
	secondary := &stubProvider{name: "secondary", snapshot: snap("AAPL", 0)} // malformed: no price
	tertiary := &stubProvider{name: "tertiary", snapshot: snap("AAPL", 178)}

	svc := NewService(common.NewSilentLogger(), time.Second, primary, secondary, tertiary)
	got, err := svc.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 178.0, got.Price)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
	assert.Equal(t, 1, tertiary.calls)
}

func TestFetchQuote_TimeoutTreatedAsFailure(t *testing.T) {
	slow := &stubProvider{name: "slow", snapshot: snap("AAPL", 178), delay: 500 * time.Millisecond}
	fast := &stubProvider{name: "fast", snapshot: snap("AAPL", 179)}

	svc := NewService(common.NewSilentLogger(), 20*time.Millisecond, slow, fast)
	got, err := svc.FetchQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 179.0, got.Price, "timed-out provider should fail over to the next")
}

func TestFetchQuote_AllFailReturnsQuoteUnavailable(t *testing.T) {
	a := &stubProvider{name: "a", err: errors.New("down")}
	b := &stubProvider{name: "b", err: errors.New("down too")}

	svc := NewService(common.NewSilentLogger(), time.Second, a, b)
	_, err := svc.FetchQuote(context.Background(), "AAPL")

	var unavailable *models.QuoteUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "AAPL", unavailable.Symbol)
}

func TestFetchQuote_NormalizesSymbol(t *testing.T) {
	primary := &stubProvider{name: "primary", snapshot: snap("AAPL", 178)}
	svc := NewService(common.NewSilentLogger(), time.Second, primary)

	got, err := svc.FetchQuote(context.Background(), "  aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
}

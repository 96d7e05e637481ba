// Package models defines data structures for tradesim
package models

import "time"

// PriceSource tags the provenance of a price snapshot so consumers can
// distinguish live data from delayed or estimated prices.
type PriceSource string

const (
	PriceSourceLive     PriceSource = "live"
	PriceSourceCached   PriceSource = "cached"
	PriceSourceFallback PriceSource = "fallback"
)

// PriceSnapshot holds a single point-in-time price reading for a symbol.
// Snapshots are immutable once created; a new snapshot replaces the cached
// one for a symbol.
type PriceSnapshot struct {
	Symbol     string      `json:"symbol"`
	Price      float64     `json:"price"`
	Change     float64     `json:"change"`     // absolute change from previous close
	ChangePct  float64     `json:"change_pct"` // percentage change from previous close
	Volume     int64       `json:"volume"`
	DayHigh    float64     `json:"day_high"`
	DayLow     float64     `json:"day_low"`
	OpenPrice  float64     `json:"open_price"`
	PrevClose  float64     `json:"prev_close"`
	CapturedAt time.Time   `json:"captured_at"`
	Source     PriceSource `json:"source"`
}

// Usable returns true when the snapshot carries a price an order can execute at.
func (s *PriceSnapshot) Usable() bool {
	return s != nil && s.Price > 0
}

// Age returns how long ago the snapshot was captured.
func (s *PriceSnapshot) Age(now time.Time) time.Duration {
	if s == nil || s.CapturedAt.IsZero() {
		return 0
	}
	return now.Sub(s.CapturedAt)
}

// WithSource returns a copy of the snapshot re-tagged with the given source.
func (s *PriceSnapshot) WithSource(source PriceSource) *PriceSnapshot {
	if s == nil {
		return nil
	}
	copied := *s
	copied.Source = source
	return &copied
}

// PriceUpdate is the outbound event pushed to all current subscribers of a
// symbol when its price changes.
type PriceUpdate struct {
	Symbol    string      `json:"symbol"`
	Price     float64     `json:"price"`
	Change    float64     `json:"change"`
	ChangePct float64     `json:"change_percent"`
	Volume    int64       `json:"volume"`
	High      float64     `json:"high"`
	Low       float64     `json:"low"`
	Open      float64     `json:"open"`
	Timestamp time.Time   `json:"timestamp"`
	Source    PriceSource `json:"source"`
}

// Update converts a snapshot into its outbound event form.
func (s *PriceSnapshot) Update() PriceUpdate {
	return PriceUpdate{
		Symbol:    s.Symbol,
		Price:     s.Price,
		Change:    s.Change,
		ChangePct: s.ChangePct,
		Volume:    s.Volume,
		High:      s.DayHigh,
		Low:       s.DayLow,
		Open:      s.OpenPrice,
		Timestamp: s.CapturedAt,
		Source:    s.Source,
	}
}

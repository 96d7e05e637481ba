// Package feed manages the subscriber registry and per-symbol price pollers.
package feed

import (
	"sync"
	"time"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

// Service tracks which subscribers want which symbols and keeps exactly one
// poller alive per symbol with at least one subscriber. The first subscriber
// to a symbol starts its poller; removing the last one stops it.
type Service struct {
	quotes   interfaces.QuoteService
	cache    interfaces.PriceCache
	interval time.Duration
	logger   *common.Logger

	mu          sync.RWMutex
	subscribers map[string]map[string]interfaces.Subscriber // symbol -> subscriber id -> subscriber
	symbolsByID map[string]map[string]struct{}              // subscriber id -> symbols
	pollers     map[string]*poller
	closed      bool
}

// NewService creates a feed service. No pollers run until the first Subscribe.
func NewService(quotes interfaces.QuoteService, cache interfaces.PriceCache, interval time.Duration, logger *common.Logger) *Service {
	return &Service{
		quotes:      quotes,
		cache:       cache,
		interval:    interval,
		logger:      logger,
		subscribers: make(map[string]map[string]interfaces.Subscriber),
		symbolsByID: make(map[string]map[string]struct{}),
		pollers:     make(map[string]*poller),
	}
}

// Subscribe registers the subscriber for a symbol. Subscribing twice to the
// same symbol is a no-op. The first subscription for a symbol starts its
// poller.
func (s *Service) Subscribe(subscriber interfaces.Subscriber, symbol string) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	subs, ok := s.subscribers[symbol]
	if !ok {
		subs = make(map[string]interfaces.Subscriber)
		s.subscribers[symbol] = subs
	}
	if _, exists := subs[subscriber.ID()]; exists {
		return
	}
	subs[subscriber.ID()] = subscriber

	symbols, ok := s.symbolsByID[subscriber.ID()]
	if !ok {
		symbols = make(map[string]struct{})
		s.symbolsByID[subscriber.ID()] = symbols
	}
	symbols[symbol] = struct{}{}

	if len(subs) == 1 {
		s.logger.Info().Str("symbol", symbol).Msg("Starting price poller")
		s.pollers[symbol] = newPoller(symbol, s.interval, s.quotes, s.cache, s.broadcastFunc(symbol), s.logger)
	}
}

// Unsubscribe removes the subscriber from a symbol. Removing the last
// subscriber stops the symbol's poller. Unknown pairs are a no-op.
func (s *Service) Unsubscribe(subscriber interfaces.Subscriber, symbol string) {
	symbol = models.NormalizeSymbol(symbol)

	s.mu.Lock()
	stopped := s.removeLocked(subscriber.ID(), symbol)
	s.mu.Unlock()

	if stopped != nil {
		stopped.stop()
	}
}

// UnsubscribeAll removes the subscriber from every symbol it follows. Called
// when a client disconnects.
func (s *Service) UnsubscribeAll(subscriber interfaces.Subscriber) {
	s.mu.Lock()
	var stopped []*poller
	for symbol := range s.symbolsByID[subscriber.ID()] {
		if p := s.removeLocked(subscriber.ID(), symbol); p != nil {
			stopped = append(stopped, p)
		}
	}
	s.mu.Unlock()

	for _, p := range stopped {
		p.stop()
	}
}

// removeLocked detaches one (subscriber, symbol) pair and returns the poller
// to stop when the symbol has no subscribers left. Caller holds the lock.
func (s *Service) removeLocked(subscriberID, symbol string) *poller {
	subs, ok := s.subscribers[symbol]
	if !ok {
		return nil
	}
	if _, exists := subs[subscriberID]; !exists {
		return nil
	}
	delete(subs, subscriberID)

	if symbols, ok := s.symbolsByID[subscriberID]; ok {
		delete(symbols, symbol)
		if len(symbols) == 0 {
			delete(s.symbolsByID, subscriberID)
		}
	}

	if len(subs) > 0 {
		return nil
	}
	delete(s.subscribers, symbol)
	p := s.pollers[symbol]
	delete(s.pollers, symbol)
	s.logger.Info().Str("symbol", symbol).Msg("Stopping price poller")
	return p
}

// ActiveSymbols returns the symbols currently being polled.
func (s *Service) ActiveSymbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	symbols := make([]string, 0, len(s.pollers))
	for symbol := range s.pollers {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// SubscriberCount returns the number of subscribers for a symbol.
func (s *Service) SubscriberCount(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers[models.NormalizeSymbol(symbol)])
}

// Close stops every poller and rejects further subscriptions.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pollers := make([]*poller, 0, len(s.pollers))
	for _, p := range s.pollers {
		pollers = append(pollers, p)
	}
	s.pollers = make(map[string]*poller)
	s.subscribers = make(map[string]map[string]interfaces.Subscriber)
	s.symbolsByID = make(map[string]map[string]struct{})
	s.mu.Unlock()

	for _, p := range pollers {
		p.stop()
	}
}

// broadcastFunc returns the emit callback for a symbol's poller. The
// subscriber set is copied under the read lock and delivery happens outside
// it, so a slow subscriber never blocks registration or other symbols.
func (s *Service) broadcastFunc(symbol string) func(models.PriceUpdate) {
	return func(update models.PriceUpdate) {
		s.mu.RLock()
		targets := make([]interfaces.Subscriber, 0, len(s.subscribers[symbol]))
		for _, sub := range s.subscribers[symbol] {
			targets = append(targets, sub)
		}
		s.mu.RUnlock()

		for _, sub := range targets {
			sub.Deliver(update)
		}
	}
}

// Ensure Service implements FeedService
var _ interfaces.FeedService = (*Service)(nil)

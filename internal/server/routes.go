package server

import (
	"net/http"
	"strings"
	"time"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Orders
	mux.HandleFunc("/api/orders", s.handleOrderPlace)

	// Portfolios
	mux.HandleFunc("/api/portfolios/", s.routePortfolios)

	// Market Data
	mux.HandleFunc("/api/market/quote/", s.handleMarketQuote)
	mux.HandleFunc("/api/market/stream", s.handleMarketStream)
}

// routePortfolios dispatches /api/portfolios/{userId}/* to the appropriate handler.
func (s *Server) routePortfolios(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/portfolios/")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "user id is required in path")
		return
	}

	parts := strings.Split(path, "/")
	userID := parts[0]

	switch {
	case len(parts) == 1:
		s.handlePortfolioGet(w, r, userID)
	case len(parts) == 2 && parts[1] == "summary":
		s.handlePortfolioSummary(w, r, userID)
	case len(parts) == 2 && parts[1] == "transactions":
		s.handlePortfolioTransactions(w, r, userID)
	case len(parts) == 2 && parts[1] == "watchlist":
		s.handleWatchlist(w, r, userID)
	case len(parts) == 3 && parts[1] == "watchlist":
		s.handleWatchlistSymbol(w, r, userID, parts[2])
	default:
		WriteError(w, http.StatusNotFound, "Unknown portfolio endpoint")
	}
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

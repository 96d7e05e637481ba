package server

import (
	"net/http"
	"time"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/models"
)

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.app.StartupTime).String(),
		"symbols": s.app.FeedService.ActiveSymbols(),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// handleOrderPlace handles POST /api/orders.
func (s *Server) handleOrderPlace(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req models.OrderRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.OrderType == "" {
		req.OrderType = models.OrderTypeMarket
	}

	result, err := s.app.TradingService.PlaceOrder(r.Context(), &req)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

// handlePortfolioGet handles GET /api/portfolios/{userId}. The returned
// holdings carry current values derived from the price cache.
func (s *Server) handlePortfolioGet(w http.ResponseWriter, r *http.Request, userID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	portfolio, err := s.app.TradingService.GetPortfolio(r.Context(), userID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.app.ValuationService.ValuePortfolio(portfolio))
}

// handlePortfolioSummary handles GET /api/portfolios/{userId}/summary.
func (s *Server) handlePortfolioSummary(w http.ResponseWriter, r *http.Request, userID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	portfolio, err := s.app.TradingService.GetPortfolio(r.Context(), userID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.app.ValuationService.Summarize(portfolio))
}

// handlePortfolioTransactions handles GET /api/portfolios/{userId}/transactions.
func (s *Server) handlePortfolioTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	transactions, err := s.app.TradingService.GetTransactions(r.Context(), userID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      userID,
		"transactions": transactions,
	})
}

// watchlistResponse is the payload for all watchlist operations.
type watchlistResponse struct {
	UserID    string   `json:"user_id"`
	Watchlist []string `json:"watchlist"`
}

// handleWatchlist handles GET/POST /api/portfolios/{userId}/watchlist.
func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		symbols, err := s.app.WatchlistService.List(r.Context(), userID)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, watchlistResponse{UserID: userID, Watchlist: symbols})

	case http.MethodPost:
		var req struct {
			Symbol string `json:"symbol"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		symbols, err := s.app.WatchlistService.Add(r.Context(), userID, req.Symbol)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, watchlistResponse{UserID: userID, Watchlist: symbols})

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleWatchlistSymbol handles DELETE /api/portfolios/{userId}/watchlist/{symbol}.
func (s *Server) handleWatchlistSymbol(w http.ResponseWriter, r *http.Request, userID, symbol string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	symbols, err := s.app.WatchlistService.Remove(r.Context(), userID, symbol)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, watchlistResponse{UserID: userID, Watchlist: symbols})
}

// handleMarketQuote handles GET /api/market/quote/{symbol}. Serves the cached
// snapshot when fresh, fetching on demand when the cache is cold or stale;
// ?refresh=true forces a provider fetch. A provider failure degrades to
// whatever the cache can still resolve.
func (s *Server) handleMarketQuote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := models.NormalizeSymbol(PathParam(r, "/api/market/quote/", ""))
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}

	refresh := r.URL.Query().Get("refresh") == "true"
	if !refresh {
		snapshot, _ := s.app.PriceCache.Get(symbol)
		if snapshot.Usable() && common.IsFresh(snapshot.CapturedAt, s.app.Config.Feed.GetStalenessThreshold()) {
			WriteJSON(w, http.StatusOK, snapshot)
			return
		}
	}

	snapshot, err := s.app.QuoteService.FetchQuote(r.Context(), symbol)
	if err != nil {
		if stale, rerr := s.app.PriceCache.Resolve(symbol); rerr == nil {
			WriteJSON(w, http.StatusOK, stale)
			return
		}
		WriteDomainError(w, err)
		return
	}
	s.app.PriceCache.Put(snapshot)
	WriteJSON(w, http.StatusOK, snapshot)
}

// Package yahoo provides a client for the Yahoo Finance chart API
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the QuoteProvider interface using the public Yahoo
// Finance chart endpoint. No API key is required.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Yahoo Finance API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Name identifies this provider in logs
func (c *Client) Name() string { return "yahoo" }

// chartResponse is the subset of the v8 chart payload the snapshot needs.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol              string  `json:"symbol"`
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				RegularMarketVolume int64   `json:"regularMarketVolume"`
				RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
				ChartPreviousClose  float64 `json:"chartPreviousClose"`
				RegularMarketTime   int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Open []float64 `json:"open"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchQuote retrieves the current quote for a symbol
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; tradesim/1.0)")

	c.logger.Debug().Str("symbol", symbol).Msg("Yahoo Finance chart request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   "/v8/finance/chart",
		}
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if chart.Chart.Error != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    chart.Chart.Error.Description,
			Endpoint:   "/v8/finance/chart",
		}
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo returned no result for %s", symbol)
	}

	meta := chart.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("yahoo returned no price for %s", symbol)
	}

	var change, changePct float64
	if meta.ChartPreviousClose > 0 {
		change = meta.RegularMarketPrice - meta.ChartPreviousClose
		changePct = change / meta.ChartPreviousClose * 100
	}

	var openPrice float64
	if quotes := chart.Chart.Result[0].Indicators.Quote; len(quotes) > 0 && len(quotes[0].Open) > 0 {
		openPrice = quotes[0].Open[0]
	}

	capturedAt := time.Now()
	if meta.RegularMarketTime > 0 {
		capturedAt = time.Unix(meta.RegularMarketTime, 0)
	}

	return &models.PriceSnapshot{
		Symbol:     models.NormalizeSymbol(symbol),
		Price:      meta.RegularMarketPrice,
		Change:     change,
		ChangePct:  changePct,
		Volume:     meta.RegularMarketVolume,
		DayHigh:    meta.RegularMarketDayHigh,
		DayLow:     meta.RegularMarketDayLow,
		OpenPrice:  openPrice,
		PrevClose:  meta.ChartPreviousClose,
		CapturedAt: capturedAt,
	}, nil
}

// Ensure Client implements QuoteProvider
var _ interfaces.QuoteProvider = (*Client)(nil)

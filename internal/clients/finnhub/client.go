// Package finnhub provides a client for the Finnhub quote API
package finnhub

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
	DefaultBaseURL   = "https://finnhub.io/api/v1"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the QuoteProvider interface against Finnhub
type Client struct {
	baseURL    string
	apiKey     string
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

// NewClient creates a new Finnhub client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
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
	return fmt.Sprintf("Finnhub API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Name identifies this provider in logs
func (c *Client) Name() string { return "finnhub" }

// quoteResponse is the Finnhub /quote payload: current price, change,
// percent change, day high/low/open, and previous close.
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePct     float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// FetchQuote retrieves the current quote for a symbol
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("token", c.apiKey)

	reqURL := fmt.Sprintf("%s/quote?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("symbol", symbol).Msg("Finnhub quote request")

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
			Endpoint:   "/quote",
		}
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Finnhub returns an all-zero payload for unknown symbols
	if quote.Current <= 0 {
		return nil, fmt.Errorf("finnhub returned no price for %s", symbol)
	}

	capturedAt := time.Now()
	if quote.Timestamp > 0 {
		capturedAt = time.Unix(quote.Timestamp, 0)
	}

	return &models.PriceSnapshot{
		Symbol:     models.NormalizeSymbol(symbol),
		Price:      quote.Current,
		Change:     quote.Change,
		ChangePct:  quote.ChangePct,
		DayHigh:    quote.High,
		DayLow:     quote.Low,
		OpenPrice:  quote.Open,
		PrevClose:  quote.PreviousClose,
		CapturedAt: capturedAt,
	}, nil
}

// Ensure Client implements QuoteProvider
var _ interfaces.QuoteProvider = (*Client)(nil)

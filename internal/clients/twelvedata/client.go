// Package twelvedata provides a client for the Twelve Data quote API
package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/tradesim/internal/common"
	"github.com/bobmcallan/tradesim/internal/interfaces"
	"github.com/bobmcallan/tradesim/internal/models"
)

const (
	DefaultBaseURL   = "https://api.twelvedata.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// flexFloat64 handles JSON values that may be either a number or a string.
// Twelve Data returns all numeric quote fields as strings.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// Client implements the QuoteProvider interface against Twelve Data
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

// NewClient creates a new Twelve Data client
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
	return fmt.Sprintf("Twelve Data API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Name identifies this provider in logs
func (c *Client) Name() string { return "twelvedata" }

// quoteResponse is the Twelve Data /quote payload. Error responses come back
// with HTTP 200 and a code/message pair, so both shapes are decoded.
type quoteResponse struct {
	Symbol        string      `json:"symbol"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	Volume        flexFloat64 `json:"volume"`
	PreviousClose flexFloat64 `json:"previous_close"`
	Change        flexFloat64 `json:"change"`
	PercentChange flexFloat64 `json:"percent_change"`
	Code          int         `json:"code,omitempty"`
	Message       string      `json:"message,omitempty"`
}

// FetchQuote retrieves the current quote for a symbol
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s/quote?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("symbol", symbol).Msg("Twelve Data quote request")

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

	if quote.Code != 0 && quote.Code != http.StatusOK {
		return nil, &APIError{
			StatusCode: quote.Code,
			Message:    quote.Message,
			Endpoint:   "/quote",
		}
	}

	if quote.Close <= 0 {
		return nil, fmt.Errorf("twelvedata returned no price for %s", symbol)
	}

	return &models.PriceSnapshot{
		Symbol:     models.NormalizeSymbol(symbol),
		Price:      float64(quote.Close),
		Change:     float64(quote.Change),
		ChangePct:  float64(quote.PercentChange),
		Volume:     int64(quote.Volume),
		DayHigh:    float64(quote.High),
		DayLow:     float64(quote.Low),
		OpenPrice:  float64(quote.Open),
		PrevClose:  float64(quote.PreviousClose),
		CapturedAt: time.Now(),
	}, nil
}

// Ensure Client implements QuoteProvider
var _ interfaces.QuoteProvider = (*Client)(nil)

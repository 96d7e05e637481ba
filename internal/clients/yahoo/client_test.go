package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const chartPayload = `{
	"chart": {
		"result": [{
			"meta": {
				"symbol": "MSFT",
				"regularMarketPrice": 374.58,
				"regularMarketVolume": 17107500,
				"regularMarketDayHigh": 376.19,
				"regularMarketDayLow": 372.31,
				"chartPreviousClose": 373.26,
				"regularMarketTime": 1703275200
			},
			"indicators": {"quote": [{"open": [373.86]}]}
		}],
		"error": null
	}
}`

func TestFetchQuote_ParsesChartMeta(t *testing.T) {
	var capturedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chartPayload))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	snapshot, err := client.FetchQuote(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("FetchQuote failed: %v", err)
	}

	if !strings.HasSuffix(capturedPath, "/v8/finance/chart/MSFT") {
		t.Errorf("unexpected path: %s", capturedPath)
	}
	if snapshot.Price != 374.58 {
		t.Errorf("expected price 374.58, got %.2f", snapshot.Price)
	}
	if snapshot.PrevClose != 373.26 {
		t.Errorf("expected prev close 373.26, got %.2f", snapshot.PrevClose)
	}
	// change derived from previous close
	wantChange := 374.58 - 373.26
	if diff := snapshot.Change - wantChange; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected change %.2f, got %.2f", wantChange, snapshot.Change)
	}
	if snapshot.OpenPrice != 373.86 {
		t.Errorf("expected open 373.86, got %.2f", snapshot.OpenPrice)
	}
	if snapshot.Volume != 17107500 {
		t.Errorf("expected volume 17107500, got %d", snapshot.Volume)
	}
}

func TestFetchQuote_ChartErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.FetchQuote(context.Background(), "BOGUS")
	if err == nil {
		t.Fatal("expected error for chart error payload, got nil")
	}
	if _, ok := err.(*APIError); !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
}

func TestFetchQuote_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.FetchQuote(context.Background(), "MSFT"); err == nil {
		t.Fatal("expected error for empty result, got nil")
	}
}

// Package nse implements the MarketDataClient port against the NSE public
// chart endpoints.
package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/gopalvishwakrma/dojialert/internal/domain/model"
	"github.com/gopalvishwakrma/dojialert/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MarketDataClient = (*Client)(nil)

// userAgent mimics a desktop browser; the endpoints reject unknown clients.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxLoggedBody bounds how much of a response body is echoed into debug logs.
const maxLoggedBody = 200

// Client fetches intraday tick series. Each FetchTicks call uses a fresh
// cookie jar: the quote page is requested first to obtain session cookies,
// then the chart API is queried with them.
type Client struct {
	baseURL   string
	transport http.RoundTripper
	timeout   time.Duration
	exchange  *time.Location
}

// NewClient creates a Client with the following transport stack:
//  1. httpcache (in-memory conditional request caching)
//  2. net/http default transport
//
// exchange is the location whose wall clock the chart timestamps encode.
func NewClient(baseURL string, timeout time.Duration, exchange *time.Location) *Client {
	return &Client{
		baseURL:   baseURL,
		transport: httpcache.NewMemoryCacheTransport(),
		timeout:   timeout,
		exchange:  exchange,
	}
}

// NewClientWithTransport creates a Client with a custom transport.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithTransport(baseURL string, transport http.RoundTripper, exchange *time.Location) *Client {
	return &Client{
		baseURL:   baseURL,
		transport: transport,
		timeout:   5 * time.Second,
		exchange:  exchange,
	}
}

// chartResponse mirrors the chart-databyindex payload. The misspelled key is
// the upstream field name.
type chartResponse struct {
	GraphData [][2]float64 `json:"grapthData"`
}

// FetchTicks primes session cookies for symbol, then retrieves its chart series.
func (c *Client) FetchTicks(ctx context.Context, symbol string) ([]model.Tick, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	httpClient := &http.Client{
		Transport: c.transport,
		Jar:       jar,
		Timeout:   c.timeout,
	}

	primeURL := c.baseURL + "/get-quotes/equity?" + url.Values{"symbol": {symbol}}.Encode()
	status, body, err := c.get(ctx, httpClient, primeURL)
	if err != nil {
		return nil, fmt.Errorf("prime cookies for %s: %w", symbol, err)
	}
	slog.Debug("prime response", "symbol", symbol, "status", status, "body", truncate(body))

	chartURL := c.baseURL + "/api/chart-databyindex?" + url.Values{"index": {symbol + "EQN"}}.Encode()
	status, body, err = c.get(ctx, httpClient, chartURL)
	if err != nil {
		return nil, fmt.Errorf("fetch chart for %s: %w", symbol, err)
	}
	slog.Debug("chart response", "symbol", symbol, "status", status, "body", truncate(body))

	if status != http.StatusOK {
		return nil, fmt.Errorf("fetch chart for %s: non-200 status code: %d", symbol, status)
	}

	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode chart for %s: %w", symbol, err)
	}
	if len(payload.GraphData) == 0 {
		return nil, fmt.Errorf("chart for %s: %w", symbol, model.ErrNoTicks)
	}

	ticks := make([]model.Tick, 0, len(payload.GraphData))
	for _, point := range payload.GraphData {
		ticks = append(ticks, model.Tick{
			At:    c.wallClock(int64(point[0])),
			Price: point[1],
		})
	}
	return ticks, nil
}

// wallClock converts an epoch-millisecond timestamp whose UTC rendering is the
// exchange's wall-clock time into that wall time in the exchange location.
func (c *Client) wallClock(ms int64) time.Time {
	utc := time.UnixMilli(ms).UTC()
	y, mo, d := utc.Date()
	h, mi, s := utc.Clock()
	return time.Date(y, mo, d, h, mi, s, utc.Nanosecond(), c.exchange)
}

func (c *Client) get(ctx context.Context, httpClient *http.Client, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody])
	}
	return string(body)
}

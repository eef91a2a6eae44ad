package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"texas-tradem/internal/config"

	"github.com/valyala/fasthttp"
)

// ErrMissingAPIKey marks a request attempted without a configured
// AlphaVantage credential. The key is server-held and never reaches callers.
var ErrMissingAPIKey = errors.New("alphavantage api key not configured")

// UpstreamError reports a failed or unusable AlphaVantage response.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("alphavantage HTTP %d", e.StatusCode)
	}
	return "alphavantage: " + e.Detail
}

type AlphaVantageClient struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
}

func NewAlphaVantageClient(cfg *config.Config) *AlphaVantageClient {
	return &AlphaVantageClient{
		baseURL: cfg.AlphaVantageBaseURL,
		apiKey:  cfg.AlphaVantageKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

type WeeklyBar struct {
	Close string `json:"4. close"`
}

type WeeklyAdjustedResponse struct {
	// Date string "2006-01-02" to bar, unordered as received.
	Series map[string]WeeklyBar `json:"Weekly Adjusted Time Series"`
}

// WeeklyAdjusted fetches the raw weekly-adjusted closing series for a symbol.
// A response without the series payload is an upstream error carrying the raw
// body for diagnosis.
func (c *AlphaVantageClient) WeeklyAdjusted(ctx context.Context, symbol string) (*WeeklyAdjustedResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	requestURL := fmt.Sprintf(
		"%s/query?function=TIME_SERIES_WEEKLY_ADJUSTED&symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey),
	)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, &UpstreamError{Detail: err.Error()}
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, &UpstreamError{Detail: err.Error()}
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode()}
	}

	var result WeeklyAdjustedResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, &UpstreamError{Detail: "malformed response: " + err.Error()}
	}
	if result.Series == nil {
		return nil, &UpstreamError{Detail: "no weekly series in response: " + truncate(resp.Body(), 200)}
	}
	return &result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

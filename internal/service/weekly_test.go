package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"texas-tradem/internal/api"
	"texas-tradem/internal/config"

	"github.com/rs/zerolog"
)

// weeklyUpstream serves an AlphaVantage-shaped weekly-adjusted payload.
func weeklyUpstream(t *testing.T, closes map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") != "TIME_SERIES_WEEKLY_ADJUSTED" {
			t.Errorf("unexpected function %q", r.URL.Query().Get("function"))
		}
		series := make(map[string]map[string]string, len(closes))
		for date, close := range closes {
			series[date] = map[string]string{"4. close": close}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"Weekly Adjusted Time Series": series})
	}))
}

func newWeeklyService(baseURL, key string) *WeeklyService {
	cfg := &config.Config{AlphaVantageBaseURL: baseURL, AlphaVantageKey: key}
	return NewWeeklyService(api.NewAlphaVantageClient(cfg), zerolog.Nop())
}

// twelveWeeks returns closes compounding 10% per week across twelve Fridays,
// so every percent change is exactly 10 after rounding.
func twelveWeeks() (map[string]string, []int) {
	dates := []string{
		"2024-01-05", "2024-01-12", "2024-01-19", "2024-01-26",
		"2024-02-02", "2024-02-09", "2024-02-16", "2024-02-23",
		"2024-03-01", "2024-03-08", "2024-03-15", "2024-03-22",
	}
	closes := make(map[string]string, len(dates))
	price := 100.0
	for _, d := range dates {
		closes[d] = fmt.Sprintf("%.4f", price)
		price *= 1.1
	}
	// Week-of-year of the later date of the last ten consecutive pairs.
	weeks := []int{3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	return closes, weeks
}

func TestSeriesTruncatesToTenMostRecent(t *testing.T) {
	closes, wantWeeks := twelveWeeks()
	upstream := weeklyUpstream(t, closes)
	defer upstream.Close()

	svc := newWeeklyService(upstream.URL, "test-key")
	series, err := svc.Series(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}

	if len(series.Changes) != 10 || len(series.Weeks) != 10 {
		t.Fatalf("got %d changes / %d weeks, want 10/10", len(series.Changes), len(series.Weeks))
	}
	for i, c := range series.Changes {
		if c != 10.0 {
			t.Errorf("change[%d] = %v, want 10.0", i, c)
		}
	}
	for i, w := range series.Weeks {
		if w != wantWeeks[i] {
			t.Errorf("week[%d] = %d, want %d", i, w, wantWeeks[i])
		}
	}
	if series.LastUpdated.IsZero() {
		t.Error("LastUpdated not stamped")
	}
}

func TestSeriesRoundsToTwoDecimals(t *testing.T) {
	upstream := weeklyUpstream(t, map[string]string{
		"2024-01-05": "300",
		"2024-01-12": "301", // +0.333...%
	})
	defer upstream.Close()

	svc := newWeeklyService(upstream.URL, "test-key")
	series, err := svc.Series(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(series.Changes) != 1 || series.Changes[0] != 0.33 {
		t.Fatalf("changes = %v, want [0.33]", series.Changes)
	}
}

func TestSeriesSortsUnorderedDates(t *testing.T) {
	upstream := weeklyUpstream(t, map[string]string{
		"2024-01-19": "121",
		"2024-01-05": "100",
		"2024-01-12": "110",
	})
	defer upstream.Close()

	svc := newWeeklyService(upstream.URL, "test-key")
	series, err := svc.Series(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	want := []float64{10.0, 10.0}
	if len(series.Changes) != len(want) {
		t.Fatalf("changes = %v, want %v", series.Changes, want)
	}
	for i := range want {
		if series.Changes[i] != want[i] {
			t.Errorf("change[%d] = %v, want %v", i, series.Changes[i], want[i])
		}
	}
}

func TestSeriesSkipsUnparsableCloses(t *testing.T) {
	upstream := weeklyUpstream(t, map[string]string{
		"2024-01-05": "100",
		"2024-01-12": "not-a-number",
		"2024-01-19": "121",
	})
	defer upstream.Close()

	svc := newWeeklyService(upstream.URL, "test-key")
	series, err := svc.Series(context.Background(), "TSLA")
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	// 100 -> 121 once the bad point drops out.
	if len(series.Changes) != 1 || series.Changes[0] != 21.0 {
		t.Fatalf("changes = %v, want [21]", series.Changes)
	}
}

func TestSeriesRequiresTwoPoints(t *testing.T) {
	upstream := weeklyUpstream(t, map[string]string{"2024-01-05": "100"})
	defer upstream.Close()

	svc := newWeeklyService(upstream.URL, "test-key")
	if _, err := svc.Series(context.Background(), "IBM"); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("got %v, want ErrInsufficientData", err)
	}
}

func TestSeriesMissingAPIKey(t *testing.T) {
	svc := newWeeklyService("http://unused.invalid", "")
	if _, err := svc.Series(context.Background(), "AAPL"); !errors.Is(err, api.ErrMissingAPIKey) {
		t.Fatalf("got %v, want ErrMissingAPIKey", err)
	}
}

func TestSeriesUpstreamHTTPError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	svc := newWeeklyService(upstream.URL, "test-key")
	_, err := svc.Series(context.Background(), "AAPL")
	var upstreamErr *api.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("got %v, want UpstreamError", err)
	}
	if upstreamErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", upstreamErr.StatusCode)
	}
}

func TestSeriesNoSeriesPayload(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"Note": "call frequency exceeded"})
	}))
	defer upstream.Close()

	svc := newWeeklyService(upstream.URL, "test-key")
	_, err := svc.Series(context.Background(), "AAPL")
	var upstreamErr *api.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("got %v, want UpstreamError", err)
	}
}

func TestWeekOfYear(t *testing.T) {
	cases := []struct {
		date string
		want int
	}{
		{"2024-01-01", 1},
		{"2024-01-07", 1},
		{"2024-01-08", 2},
		{"2024-03-22", 12},
		{"2024-12-31", 53},
	}
	for _, tc := range cases {
		tm, err := time.ParseInLocation("2006-01-02", tc.date, time.UTC)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.date, err)
		}
		if got := weekOfYear(tm); got != tc.want {
			t.Errorf("weekOfYear(%s) = %d, want %d", tc.date, got, tc.want)
		}
	}
}

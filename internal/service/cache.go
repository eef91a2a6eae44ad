package service

import (
	"context"
	"sync"

	"texas-tradem/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// SeriesFetcher produces the aggregated weekly series for a ticker.
type SeriesFetcher interface {
	Series(ctx context.Context, symbol string) (domain.WeeklySeries, error)
}

// WeeklyCache holds one series per ticker. Hits never touch the network;
// misses share a single in-flight fetch per ticker. Failures and empty
// results are never cached, so the next request retries.
type WeeklyCache struct {
	mu      sync.RWMutex
	entries map[string]domain.WeeklySeries

	group   singleflight.Group
	fetcher SeriesFetcher
	logger  zerolog.Logger
}

func NewWeeklyCache(fetcher SeriesFetcher, logger zerolog.Logger) *WeeklyCache {
	return &WeeklyCache{
		entries: make(map[string]domain.WeeklySeries),
		fetcher: fetcher,
		logger:  logger,
	}
}

func (c *WeeklyCache) Get(ctx context.Context, ticker string) (domain.WeeklySeries, error) {
	c.mu.RLock()
	entry, ok := c.entries[ticker]
	c.mu.RUnlock()
	if ok && len(entry.Changes) > 0 {
		c.logger.Debug().Str("ticker", ticker).Msg("weekly cache hit")
		return entry, nil
	}

	v, err, _ := c.group.Do(ticker, func() (interface{}, error) {
		// A concurrent caller may have filled the entry while this one
		// waited on the flight group.
		c.mu.RLock()
		entry, ok := c.entries[ticker]
		c.mu.RUnlock()
		if ok && len(entry.Changes) > 0 {
			return entry, nil
		}

		series, err := c.fetcher.Series(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if len(series.Changes) > 0 {
			c.mu.Lock()
			c.entries[ticker] = series
			c.mu.Unlock()
		}
		return series, nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("ticker", ticker).Msg("weekly series unavailable")
		return domain.WeeklySeries{}, err
	}
	return v.(domain.WeeklySeries), nil
}

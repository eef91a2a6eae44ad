package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"texas-tradem/internal/api"
	"texas-tradem/internal/constants"
	"texas-tradem/internal/domain"

	"github.com/rs/zerolog"
)

// ErrInsufficientData marks an upstream series with fewer than two usable
// chronological points.
var ErrInsufficientData = errors.New("not enough weekly points")

// WeeklyService turns the raw weekly-adjusted closing series into the
// week-over-week percentage changes the detail popup charts.
type WeeklyService struct {
	av     *api.AlphaVantageClient
	logger zerolog.Logger
}

func NewWeeklyService(av *api.AlphaVantageClient, logger zerolog.Logger) *WeeklyService {
	return &WeeklyService{av: av, logger: logger}
}

type weeklyPoint struct {
	date  time.Time
	close float64
}

// Series fetches and aggregates the weekly series for a symbol: closes sorted
// chronologically, consecutive percent changes rounded to two decimals, the
// week-of-year of each change's later date, truncated to the most recent ten.
func (s *WeeklyService) Series(ctx context.Context, symbol string) (domain.WeeklySeries, error) {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	s.logger.Debug().Str("symbol", symbol).Msg("fetching weekly series")

	resp, err := s.av.WeeklyAdjusted(apiCtx, symbol)
	if err != nil {
		return domain.WeeklySeries{}, fmt.Errorf("weekly series for %s: %w", symbol, err)
	}

	points := make([]weeklyPoint, 0, len(resp.Series))
	for date, bar := range resp.Series {
		t, err := time.ParseInLocation("2006-01-02", date, time.UTC)
		if err != nil {
			continue
		}
		c, err := strconv.ParseFloat(bar.Close, 64)
		if err != nil || math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		points = append(points, weeklyPoint{date: t, close: c})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].date.Before(points[j].date) })

	if len(points) < constants.MinWeeklyPoints {
		return domain.WeeklySeries{}, fmt.Errorf("weekly series for %s: %w", symbol, ErrInsufficientData)
	}

	changes := make([]float64, 0, len(points)-1)
	weeks := make([]int, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]
		pct := (curr.close - prev.close) / prev.close * 100
		changes = append(changes, math.Round(pct*100)/100)
		weeks = append(weeks, weekOfYear(curr.date))
	}

	if len(changes) > constants.WeeklySeriesMaxLen {
		changes = changes[len(changes)-constants.WeeklySeriesMaxLen:]
		weeks = weeks[len(weeks)-constants.WeeklySeriesMaxLen:]
	}

	s.logger.Debug().Str("symbol", symbol).Int("points", len(changes)).Msg("weekly series aggregated")
	return domain.WeeklySeries{
		Changes:     changes,
		Weeks:       weeks,
		LastUpdated: time.Now(),
	}, nil
}

// weekOfYear counts UTC-midnight days since Jan 1, divided by seven, one
// based. Not ISO-8601; this matches the chart's labeling scheme.
func weekOfYear(t time.Time) int {
	return (t.YearDay()-1)/7 + 1
}

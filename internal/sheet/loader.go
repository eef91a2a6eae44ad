package sheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"texas-tradem/internal/config"
	"texas-tradem/internal/constants"
	"texas-tradem/internal/domain"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Loader fetches the deck feed: a CSV export whose column roles are sniffed
// by header name with positional fallbacks. It yields at most 52 cards.
type Loader struct {
	url    string
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewLoader(cfg *config.Config, logger zerolog.Logger) *Loader {
	return &Loader{
		url: cfg.SheetURL,
		client: &fasthttp.Client{
			ReadTimeout:         constants.DeckFeedTimeout,
			WriteTimeout:        constants.DeckFeedTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (l *Loader) Load(ctx context.Context) ([]domain.Card, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(l.url)
	req.Header.SetMethod(fasthttp.MethodGet)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := l.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("deck feed fetch failed: %w", err)
		}
	} else {
		if err := l.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("deck feed fetch failed: %w", err)
		}
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("deck feed HTTP %d", resp.StatusCode())
	}

	cards, err := ParseCards(resp.Body())
	if err != nil {
		return nil, err
	}

	l.logger.Info().Int("cards", len(cards)).Msg("deck feed loaded")
	return cards, nil
}

type columnKeys struct {
	ticker, suit, rank, ytd, weekly, price, flag, mcap int
}

var (
	tickerRe = regexp.MustCompile(`(?i)ticker|symbol`)
	suitRe   = regexp.MustCompile(`(?i)suit`)
	rankRe   = regexp.MustCompile(`(?i)rank|card`)
	ytdRe    = regexp.MustCompile(`(?i)ytd`)
	weeklyRe = regexp.MustCompile(`(?i)week|1w|wtd`)
	priceRe  = regexp.MustCompile(`(?i)price|last|close`)
	mcapRe   = regexp.MustCompile(`(?i)mkt|market.?cap|mcap`)
)

// ParseCards maps CSV bytes to cards. Individual unparsable numeric cells
// become absent values; only rows with an empty ticker are dropped.
func ParseCards(data []byte) ([]domain.Card, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("deck feed parse failed: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	headers := records[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	keys := detectColumns(headers)

	rows := records[1:]
	if len(rows) > constants.DeckSizeLimit {
		rows = rows[:constants.DeckSizeLimit]
	}

	var cards []domain.Card
	for idx, row := range rows {
		ticker := cell(row, keys.ticker)
		if ticker == "" {
			continue
		}

		flagRaw := cell(row, keys.flag)
		cards = append(cards, domain.Card{
			ID:         idx,
			Ticker:     ticker,
			Rank:       cell(row, keys.rank),
			Suit:       normalizeSuit(cell(row, keys.suit)),
			YTD:        parsePercent(cell(row, keys.ytd)),
			Weekly:     parsePercent(cell(row, keys.weekly)),
			Price:      parseMoney(cell(row, keys.price)),
			HasFlag:    flagRaw != "",
			FlagLabel:  flagRaw,
			MarketCapB: parseMarketCapB(cell(row, keys.mcap)),
		})
	}
	return cards, nil
}

// detectColumns resolves column roles by header-name pattern, falling back to
// the feed's known positions for the unnamed numeric columns.
func detectColumns(headers []string) columnKeys {
	keys := columnKeys{
		ticker: findHeader(headers, tickerRe),
		suit:   findHeader(headers, suitRe),
		rank:   findHeader(headers, rankRe),
		ytd:    findHeader(headers, ytdRe),
		weekly: findHeader(headers, weeklyRe),
		price:  findHeader(headers, priceRe),
		flag:   -1,
		mcap:   findHeader(headers, mcapRe),
	}
	if keys.ticker < 0 {
		keys.ticker = 0
	}
	for i, h := range headers {
		if strings.EqualFold(h, "flag") {
			keys.flag = i
			break
		}
	}

	if keys.weekly < 0 && len(headers) > 15 {
		keys.weekly = 15
	}
	if keys.ytd < 0 && len(headers) > 16 {
		keys.ytd = 16
	}
	if keys.price < 0 && len(headers) > 4 {
		keys.price = 4
	}
	if keys.mcap < 0 && len(headers) > 10 {
		keys.mcap = 10
	}
	return keys
}

func findHeader(headers []string, re *regexp.Regexp) int {
	for i, h := range headers {
		if re.MatchString(h) {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func normalizeSuit(raw string) domain.Suit {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case s == string(domain.SuitHearts) || strings.HasPrefix(s, "H"):
		return domain.SuitHearts
	case s == string(domain.SuitDiamonds) || strings.HasPrefix(s, "D"):
		return domain.SuitDiamonds
	case s == string(domain.SuitClubs) || strings.HasPrefix(s, "C"):
		return domain.SuitClubs
	default:
		return domain.SuitSpades
	}
}

func parsePercent(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
	if err != nil {
		return nil
	}
	return &v
}

var nonNumericRe = regexp.MustCompile(`[^0-9.\-]`)

func parseMoney(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(nonNumericRe.ReplaceAllString(raw, ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseMarketCapB normalizes market cap to billions: raw values at or above
// 1e9 are taken as dollars, smaller ones as already-in-billions.
func parseMarketCapB(raw string) *float64 {
	v := parseMoney(raw)
	if v == nil {
		return nil
	}
	if *v >= 1e9 {
		b := *v / 1e9
		return &b
	}
	return v
}

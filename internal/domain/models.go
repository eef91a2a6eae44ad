package domain

import (
	"time"
)

// Mode selects whether a card's year-to-date or latest weekly percentage
// contributes to a player's score.
type Mode string

const (
	ModeYTD    Mode = "YTD"
	ModeWeekly Mode = "WEEKLY"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeYTD:
		return ModeYTD, true
	case ModeWeekly:
		return ModeWeekly, true
	}
	return "", false
}

type Suit string

const (
	SuitSpades   Suit = "♠"
	SuitHearts   Suit = "♥"
	SuitDiamonds Suit = "♦"
	SuitClubs    Suit = "♣"
)

// Card is one entry of the playable deck. Numeric fields are nil when the
// feed had no usable value for that column; a nil value scores as zero.
type Card struct {
	ID         int      `json:"id"`
	Ticker     string   `json:"ticker"`
	Rank       string   `json:"rank"`
	Suit       Suit     `json:"suit"`
	YTD        *float64 `json:"ytd"`
	Weekly     *float64 `json:"weekly"`
	Price      *float64 `json:"price"`
	HasFlag    bool     `json:"has_flag"`
	FlagLabel  string   `json:"flag_label"`
	MarketCapB *float64 `json:"market_cap_b"`
}

// Value is the card's contribution to a hand score under the given mode.
func (c Card) Value(mode Mode) float64 {
	v := c.YTD
	if mode == ModeWeekly {
		v = c.Weekly
	}
	if v == nil {
		return 0
	}
	return *v
}

type PlayerID string

const (
	PlayerYou       PlayerID = "bb"
	PlayerDealer    PlayerID = "ai"
	PlayerHedgeFund PlayerID = "hf"
)

// Player carries a seat's hand, bankroll and per-round resolution state.
// Score is always derived from the hand, never stored.
type Player struct {
	ID      PlayerID `json:"id"`
	Name    string   `json:"name"`
	Hand    []Card   `json:"hand"`
	Balance int      `json:"balance"`
	Active  bool     `json:"active"`

	R1Resolved bool `json:"r1_resolved"`
	R1Lost     bool `json:"r1_lost"`
	R2Resolved bool `json:"r2_resolved"`
	R2Lost     bool `json:"r2_lost"`

	HitLockedR1 bool `json:"hit_locked_r1"`
	HitLockedR2 bool `json:"hit_locked_r2"`
}

// Score sums the hand's card values under the given mode.
func (p *Player) Score(mode Mode) float64 {
	var total float64
	for _, c := range p.Hand {
		total += c.Value(mode)
	}
	return total
}

// WeeklySeries is a ticker's recent week-over-week percentage changes,
// oldest to newest, at most ten entries. Weeks holds the week-of-year of
// each change, parallel to Changes.
type WeeklySeries struct {
	Changes     []float64 `json:"changes"`
	Weeks       []int     `json:"weeks"`
	LastUpdated time.Time `json:"last_updated"`
}

// Subscription is the persisted record that bypasses the free-session gate
// until Expiry.
type Subscription struct {
	Expiry time.Time `json:"expiry"`
}

func (s Subscription) ValidAt(now time.Time) bool {
	return now.Before(s.Expiry)
}

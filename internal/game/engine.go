package game

import (
	"context"
	"errors"
	"math"
	"sync"

	"texas-tradem/internal/constants"
	"texas-tradem/internal/deck"
	"texas-tradem/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// ErrUnknownPlayer is returned for a hit on a player id outside the table.
var ErrUnknownPlayer = errors.New("unknown player")

// BalanceStore persists the per-player bankroll between settlements.
type BalanceStore interface {
	Load(ctx context.Context) (map[domain.PlayerID]int, error)
	Save(ctx context.Context, balances map[domain.PlayerID]int) error
}

// SessionGuard gates every game-mutating action.
type SessionGuard interface {
	Check() error
}

// Engine is the three-round state machine. It owns the table: deck, players,
// round progression and stake settlement. All game conditions short of a
// locked session degrade to no-ops or flagged losses rather than errors.
type Engine struct {
	mu    sync.Mutex
	cards []domain.Card
	deck  *deck.Manager

	players  []*domain.Player
	round    int
	gameOver bool
	mode     domain.Mode
	dealID   string

	gate   SessionGuard
	store  BalanceStore
	logger zerolog.Logger
}

func NewEngine(d *deck.Manager, gate SessionGuard, store BalanceStore, logger zerolog.Logger) *Engine {
	return &Engine{
		deck: d,
		players: []*domain.Player{
			{ID: domain.PlayerYou, Name: "You", Balance: constants.StartBalance, Active: true},
			{ID: domain.PlayerDealer, Name: "Dealer", Balance: constants.StartBalance, Active: true},
			{ID: domain.PlayerHedgeFund, Name: "Hedge Fund", Balance: constants.StartBalance, Active: true},
		},
		round:  1,
		mode:   domain.ModeYTD,
		gate:   gate,
		store:  store,
		logger: logger,
	}
}

// LoadBalances applies stored balances over the compiled-in start balance.
// Players missing from the stored mapping keep the default.
func (e *Engine) LoadBalances(ctx context.Context) {
	stored, err := e.store.Load(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("failed to load balances, starting fresh")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.players {
		if balance, ok := stored[p.ID]; ok {
			p.Balance = balance
		}
	}
}

// SetCards installs the loaded card set used by every subsequent deal.
func (e *Engine) SetCards(cards []domain.Card) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cards = cards
}

// Cards returns the loaded card set.
func (e *Engine) Cards() []domain.Card {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Card, len(e.cards))
	copy(out, e.cards)
	return out
}

// Deal starts a fresh game: reshuffled deck, two round-robin passes of one
// card per player, round and per-round flags reset. Prior game outcome is
// irrelevant. An empty card set makes it a no-op.
func (e *Engine) Deal(ctx context.Context) error {
	if err := e.gate.Check(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.cards) == 0 {
		e.logger.Warn().Msg("deal requested with no cards loaded")
		return nil
	}

	if id, err := gonanoid.New(); err == nil {
		e.dealID = id
	}

	e.deck.Reset(e.cards)
	for _, p := range e.players {
		p.Hand = nil
	}
	for pass := 0; pass < constants.DealPasses; pass++ {
		for _, p := range e.players {
			if card, ok := e.deck.Draw(); ok {
				p.Hand = append(p.Hand, card)
			}
		}
	}
	e.resetRoundState()

	e.logger.Info().Str("deal_id", e.dealID).Msg("new hand dealt")
	return nil
}

// Hit draws one card for the player, subject to the round's hit rules. Busts
// in round 1 are soft (flagged, charged at settlement); busts in round 2
// deactivate the player immediately. Round 3 allows no hits.
func (e *Engine) Hit(ctx context.Context, id domain.PlayerID) error {
	if err := e.gate.Check(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gameOver {
		return nil
	}
	p := e.find(id)
	if p == nil {
		return ErrUnknownPlayer
	}

	switch e.round {
	case 1:
		if p.HitLockedR1 {
			return nil
		}
	case 2:
		if p.HitLockedR2 || p.R2Lost || !p.Active {
			return nil
		}
	default:
		return nil
	}
	if len(p.Hand) >= constants.MaxHandSize {
		return nil
	}

	card, ok := e.deck.Draw()
	if !ok {
		return nil
	}
	p.Hand = append(p.Hand, card)

	score := p.Score(e.mode)
	switch {
	case e.round == 1 && math.Abs(score) > constants.BustLimitRound1:
		p.HitLockedR1 = true
		p.R1Lost = true
		e.logger.Info().Str("player", string(id)).Float64("score", score).Msg("round 1 bust")
	case e.round == 2 && math.Abs(score) > constants.BustLimitRound2:
		p.HitLockedR2 = true
		p.R2Lost = true
		p.Active = false
		e.logger.Info().Str("player", string(id)).Float64("score", score).Msg("round 2 bust, player out")
	}
	return nil
}

// AdvanceRound settles the current round and moves to the next; settling
// round 3 ends the game. Advancing a finished game is a no-op until the next
// deal.
func (e *Engine) AdvanceRound(ctx context.Context) error {
	if err := e.gate.Check(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gameOver {
		return nil
	}

	switch e.round {
	case 1:
		e.settleRound1(ctx)
		e.round = 2
	case 2:
		e.settleRound2(ctx)
		e.round = 3
	case 3:
		e.settleRound3(ctx)
		e.gameOver = true
	}

	e.logger.Info().Int("round", e.round).Bool("game_over", e.gameOver).Msg("round advanced")
	return nil
}

// SetMode switches the scoring mode. Display-level, not gated.
func (e *Engine) SetMode(mode domain.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

func (e *Engine) settleRound1(ctx context.Context) {
	for _, p := range e.players {
		if p.R1Resolved {
			continue
		}
		if math.Abs(p.Score(e.mode)) > constants.BustLimitRound1 || p.R1Lost {
			p.Balance -= constants.StakeRound1
			p.R1Lost = true
		}
		p.R1Resolved = true
	}
	e.persistBalances(ctx)
}

func (e *Engine) settleRound2(ctx context.Context) {
	for _, p := range e.players {
		if p.R2Resolved {
			continue
		}
		if math.Abs(p.Score(e.mode)) > constants.BustLimitRound2 || p.R2Lost {
			p.Balance -= constants.StakeRound2
			p.R2Lost = true
			p.Active = false
		}
		p.R2Resolved = true
	}
	e.persistBalances(ctx)
}

// settleRound3 pays the final stake. Every qualifying player tied at the
// maximum score wins the full stake and every other qualifier pays it, so a
// multi-way tie need not balance to zero. With no qualifiers no money moves.
func (e *Engine) settleRound3(ctx context.Context) {
	var qualifiers []*domain.Player
	for _, p := range e.players {
		if p.Active && len(p.Hand) > 0 {
			qualifiers = append(qualifiers, p)
		}
	}
	if len(qualifiers) == 0 {
		e.logger.Info().Msg("no qualifying players, final round unsettled")
		e.persistBalances(ctx)
		return
	}

	maxScore := math.Inf(-1)
	for _, p := range qualifiers {
		if s := p.Score(e.mode); s > maxScore {
			maxScore = s
		}
	}
	for _, p := range qualifiers {
		if p.Score(e.mode) == maxScore {
			p.Balance += constants.StakeRound3
		} else {
			p.Balance -= constants.StakeRound3
		}
	}
	e.persistBalances(ctx)
}

// persistBalances is best-effort: the in-memory balances stay authoritative
// for the running session when storage fails.
func (e *Engine) persistBalances(ctx context.Context) {
	balances := make(map[domain.PlayerID]int, len(e.players))
	for _, p := range e.players {
		balances[p.ID] = p.Balance
	}
	if err := e.store.Save(ctx, balances); err != nil {
		e.logger.Warn().Err(err).Msg("failed to persist balances")
	}
}

func (e *Engine) resetRoundState() {
	e.round = 1
	e.gameOver = false
	for _, p := range e.players {
		p.Active = true
		p.R1Resolved, p.R1Lost = false, false
		p.R2Resolved, p.R2Lost = false, false
		p.HitLockedR1, p.HitLockedR2 = false, false
	}
}

func (e *Engine) find(id domain.PlayerID) *domain.Player {
	for _, p := range e.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerView is a player plus their derived score under the active mode.
type PlayerView struct {
	domain.Player
	Score float64 `json:"score"`
}

type Snapshot struct {
	DealID   string       `json:"deal_id"`
	Round    int          `json:"round"`
	GameOver bool         `json:"game_over"`
	Mode     domain.Mode  `json:"mode"`
	Players  []PlayerView `json:"players"`
}

// Snapshot returns a copy of the table for rendering.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		DealID:   e.dealID,
		Round:    e.round,
		GameOver: e.gameOver,
		Mode:     e.mode,
		Players:  make([]PlayerView, 0, len(e.players)),
	}
	for _, p := range e.players {
		view := PlayerView{Player: *p, Score: p.Score(e.mode)}
		view.Hand = make([]domain.Card, len(p.Hand))
		copy(view.Hand, p.Hand)
		snap.Players = append(snap.Players, view)
	}
	return snap
}

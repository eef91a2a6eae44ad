package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"texas-tradem/internal/constants"
	"texas-tradem/internal/domain"

	"github.com/rs/zerolog"
)

// ErrLocked is returned by Check when the free window has elapsed and no
// subscription covers the action. Callers surface the blocking prompt and do
// nothing else; the gate never queues or retries blocked actions.
var ErrLocked = errors.New("session locked")

// SubscriptionStore persists the subscription record across restarts.
type SubscriptionStore interface {
	Get(ctx context.Context) (*domain.Subscription, error)
	Put(ctx context.Context, sub domain.Subscription) error
}

// Gate is the free-session countdown guarding every game-mutating action.
// The countdown runs as a cancellable repeating task (Run); a valid
// subscription makes the gate pass unconditionally until its expiry lapses,
// after which free-running behavior resumes.
type Gate struct {
	mu         sync.Mutex
	remaining  int // seconds left in the free window
	locked     bool
	subscribed bool
	expiry     time.Time

	store  SubscriptionStore
	logger zerolog.Logger
	now    func() time.Time
}

type Status struct {
	Remaining  int        `json:"remaining"`
	Locked     bool       `json:"locked"`
	Subscribed bool       `json:"subscribed"`
	Expiry     *time.Time `json:"expiry,omitempty"`
}

func NewGate(store SubscriptionStore, logger zerolog.Logger) *Gate {
	return &Gate{
		remaining: int(constants.FreeSessionDuration.Seconds()),
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// Restore adopts a previously persisted, still-valid subscription. Called
// once at startup.
func (g *Gate) Restore(ctx context.Context) {
	sub, err := g.store.Get(ctx)
	if err != nil {
		g.logger.Warn().Err(err).Msg("failed to load subscription")
		return
	}
	if sub == nil || !sub.ValidAt(g.now()) {
		return
	}

	g.mu.Lock()
	g.subscribed = true
	g.expiry = sub.Expiry
	g.locked = false
	g.mu.Unlock()

	g.logger.Info().Time("expiry", sub.Expiry).Msg("subscription restored")
}

// Check reports synchronously whether a mutating action may proceed.
func (g *Gate) Check() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.subscribedLocked() {
		return nil
	}
	if g.locked {
		return ErrLocked
	}
	return nil
}

// Restart begins a new free session: full countdown, lock cleared.
func (g *Gate) Restart() {
	g.mu.Lock()
	g.remaining = int(constants.FreeSessionDuration.Seconds())
	g.locked = false
	g.mu.Unlock()

	g.logger.Info().Msg("free session restarted")
}

// Subscribe activates a subscription expiring one month out and persists it.
// Persistence is best-effort; the in-memory subscription stands either way.
func (g *Gate) Subscribe(ctx context.Context) Status {
	expiry := g.now().AddDate(0, constants.SubscriptionMonths, 0)

	g.mu.Lock()
	g.subscribed = true
	g.expiry = expiry
	g.locked = false
	g.mu.Unlock()

	if err := g.store.Put(ctx, domain.Subscription{Expiry: expiry}); err != nil {
		g.logger.Warn().Err(err).Msg("failed to persist subscription")
	}

	g.logger.Info().Time("expiry", expiry).Msg("subscription activated")
	return g.Status()
}

// Tick advances the countdown by one second. A valid subscription or an
// already-locked gate makes it a no-op.
func (g *Gate) Tick() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.subscribedLocked() || g.locked {
		return
	}

	g.remaining--
	if g.remaining <= 0 {
		g.remaining = 0
		g.locked = true
		g.logger.Info().Msg("free session elapsed, gate locked")
	}
}

// Run drives the countdown until ctx is cancelled. Start and stop ride the
// application lifecycle.
func (g *Gate) Run(ctx context.Context) {
	ticker := time.NewTicker(constants.GateTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Tick()
		}
	}
}

func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := Status{
		Remaining:  g.remaining,
		Locked:     g.locked,
		Subscribed: g.subscribedLocked(),
	}
	if s.Subscribed {
		expiry := g.expiry
		s.Expiry = &expiry
	}
	return s
}

// subscribedLocked also lapses an expired subscription back to free-running.
// Callers must hold g.mu.
func (g *Gate) subscribedLocked() bool {
	if !g.subscribed {
		return false
	}
	if g.now().Before(g.expiry) {
		return true
	}
	g.subscribed = false
	g.logger.Info().Time("expiry", g.expiry).Msg("subscription lapsed, free session resumes")
	return false
}

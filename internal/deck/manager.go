package deck

import (
	"math/rand"
	"time"

	"texas-tradem/internal/domain"
)

// Manager owns the playable card order and the draw cursor. It is not safe
// for concurrent use; the game engine serializes access.
type Manager struct {
	cards  []domain.Card
	cursor int
	rng    *rand.Rand
}

func NewManager() *Manager {
	return NewManagerWithSource(rand.NewSource(time.Now().UnixNano()))
}

func NewManagerWithSource(src rand.Source) *Manager {
	return &Manager{rng: rand.New(src)}
}

// Reset installs a fresh copy of the card set, shuffles it and rewinds the
// draw cursor.
func (m *Manager) Reset(cards []domain.Card) {
	m.cards = make([]domain.Card, len(cards))
	copy(m.cards, cards)
	m.shuffle()
	m.cursor = 0
}

// Draw returns the next card. An exhausted deck is reshuffled in place and
// drawing restarts from the top; there is no discard pile, so a card can
// recur sooner than a full cycle. Only an empty card set reports no card.
func (m *Manager) Draw() (domain.Card, bool) {
	if len(m.cards) == 0 {
		return domain.Card{}, false
	}
	if m.cursor >= len(m.cards) {
		m.shuffle()
		m.cursor = 0
	}
	card := m.cards[m.cursor]
	m.cursor++
	return card, true
}

// Size reports how many cards are in the managed set.
func (m *Manager) Size() int {
	return len(m.cards)
}

// Fisher-Yates.
func (m *Manager) shuffle() {
	for i := len(m.cards) - 1; i > 0; i-- {
		j := m.rng.Intn(i + 1)
		m.cards[i], m.cards[j] = m.cards[j], m.cards[i]
	}
}

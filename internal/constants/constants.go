package constants

import "time"

// Game rules.
const (
	StartBalance = 235

	StakeRound1 = 20
	StakeRound2 = 30
	StakeRound3 = 50

	BustLimitRound1 = 21.0
	BustLimitRound2 = 25.0

	MaxHandSize   = 5
	DealPasses    = 2
	DeckSizeLimit = 52
)

// Session gate.
const (
	FreeSessionDuration = 5 * time.Minute
	GateTickInterval    = 1 * time.Second
	SubscriptionMonths  = 1
)

// Weekly series aggregation.
const (
	WeeklySeriesMaxLen = 10
	MinWeeklyPoints    = 2
)

const (
	ExternalAPITimeout = 10 * time.Second
	RequestTimeout     = 30 * time.Second
	DeckFeedTimeout    = 15 * time.Second
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

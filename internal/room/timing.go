package room

import "time"

// Compile-time timing constants, authoritative per spec.md §6. These are
// never environment-configurable — spec.md §9 is explicit that the only
// process-wide configuration is this set of compile-time values.
const (
	PenaltyDuration          = 3000 * time.Millisecond
	ArbitrationWindow        = 100 * time.Millisecond
	ReconnectGracePeriod     = 5000 * time.Millisecond
	HostReconnectGracePeriod = 300000 * time.Millisecond
	WaitingGracePeriod       = 300000 * time.Millisecond
	RoomTimeout              = 1800000 * time.Millisecond
	RejoinWindow             = 1800000 * time.Millisecond
	CountdownSeconds         = 5
	RoundTransitionDelay     = 3500 * time.Millisecond
	SoloRejoinBootDelay      = 100 * time.Millisecond

	MaxMatchAttemptsPerSecond = 10
	MaxPlayers                = 8
	MinPlayers                = 2
	MaxNameLength             = 50
	SymbolsPerCard            = 8
	TotalSymbols              = 57
	DeckOrder                 = 7
)

const oneSecond = time.Second

// Game duration presets (spec.md §3 Configuration.gameDuration).
const (
	GameDurationShort  = 10
	GameDurationMedium = 25
	GameDurationLong   = 50
)

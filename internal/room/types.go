package room

import (
	"time"

	"dobble-room-server/internal/protocol"
)

// Phase is the room's top-level state label.
type Phase = string

const (
	PhaseWaiting   Phase = protocol.PhaseWaiting
	PhaseCountdown Phase = protocol.PhaseCountdown
	PhasePlaying   Phase = protocol.PhasePlaying
	PhaseRoundEnd  Phase = protocol.PhaseRoundEnd
	PhaseGameOver  Phase = protocol.PhaseGameOver
)

// Card is a deck card: a stable id and its fixed-size symbol set. Cards
// are created once at game start and never mutated afterward.
type Card struct {
	ID      string
	Symbols []int
}

// HasSymbol reports whether the card carries the given symbol id.
func (c Card) HasSymbol(symbolID int) bool {
	for _, s := range c.Symbols {
		if s == symbolID {
			return true
		}
	}
	return false
}

// Player is a room participant. ID is the only stable identity and
// persists across reconnects; ConnectionID is a transport artifact that
// is rebound on reconnect and never leaked into client payloads or game
// logic beyond the Room's own bookkeeping.
type Player struct {
	ID           string
	ConnectionID string
	Name         string
	Status       string // protocol.StatusConnected | StatusDisconnected
	CardStack    []string
	IsHost       bool
	JoinedAt     time.Time
	LastSeen     time.Time
}

// TopCardID returns the id of the player's top card, or "" if empty.
func (p *Player) TopCardID() string {
	if len(p.CardStack) == 0 {
		return ""
	}
	return p.CardStack[0]
}

// PopTopCard removes and returns the top card id.
func (p *Player) PopTopCard() string {
	if len(p.CardStack) == 0 {
		return ""
	}
	top := p.CardStack[0]
	p.CardStack = p.CardStack[1:]
	return top
}

// MatchAttempt is one submission collected during an arbitration window.
type MatchAttempt struct {
	PlayerID        string
	SymbolID        int
	ClientTimestamp int64
	ServerTimestamp time.Time
}

// PendingArbitration exists only during the <=100ms window after the
// first valid match of a round.
type PendingArbitration struct {
	RoundNumber int
	WindowStart time.Time
	Attempts    []MatchAttempt
	timer       Timer
}

// DisconnectedPlayerInfo tracks when a still-present player disconnected,
// for grace-period bookkeeping.
type DisconnectedPlayerInfo struct {
	DisconnectedAt time.Time
}

// Config mirrors spec.md's Configuration data model.
type Config = protocol.RoomConfig

// DefaultConfig is applied when the first-ever player joins a room.
func DefaultConfig() Config {
	return Config{
		CardLayout:   protocol.CardLayoutChaotic,
		CardSetID:    "classic",
		GameDuration: GameDurationMedium,
	}
}

// Game end reasons.
const (
	ReasonStackEmptied       = protocol.ReasonStackEmptied
	ReasonLastPlayerStanding = protocol.ReasonLastPlayerStanding
)

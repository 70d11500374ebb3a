package room

import (
	"time"

	"dobble-room-server/internal/protocol"
)

// store is the sole owner of a Room's data (spec.md §4.1). Every field
// any other part of the Room touches lives here; nothing outside this
// file holds a durable reference to these collections. It is a pure
// data holder: no I/O, no timers, no network calls.
type store struct {
	phase  Phase
	hostID string
	config Config

	roomExpiresAt time.Time
	roundNumber   int

	centerCard           *Card
	fullDeck             map[string]Card // id -> card, for O(1) lookup by id
	roundWinnerID        string
	roundMatchedSymbolID int

	lastGameEndReason string
	lastWinnerID      string
	lastWinnerName    string

	rejoinWindowEndsAt time.Time
	playersWantRematch map[string]bool

	players              map[string]*Player
	playerOrder          []string // insertion order; also host-reassignment order
	connectionToPlayerID map[string]string
	disconnectedPlayers  map[string]DisconnectedPlayerInfo
	penalties            map[string]time.Time // playerID -> penaltyUntil

	pendingArbitration *PendingArbitration
}

func newStore() *store {
	s := &store{
		phase:  PhaseWaiting,
		config: DefaultConfig(),
	}
	s.resetAll()
	return s
}

// resetGameState clears deck, centre card, round state, penalties and
// the rematch set, but keeps players (spec.md §4.1).
func (s *store) resetGameState() {
	s.roundNumber = 0
	s.centerCard = nil
	s.fullDeck = make(map[string]Card)
	s.roundWinnerID = ""
	s.roundMatchedSymbolID = -1
	s.pendingArbitration = nil
	s.penalties = make(map[string]time.Time)
	s.playersWantRematch = make(map[string]bool)
}

// resetAll clears players and config in addition to game state
// (spec.md §4.1) — used when a destroyed/expired room is recycled.
func (s *store) resetAll() {
	s.resetGameState()
	s.hostID = ""
	s.config = DefaultConfig()
	s.players = make(map[string]*Player)
	s.playerOrder = nil
	s.connectionToPlayerID = make(map[string]string)
	s.disconnectedPlayers = make(map[string]DisconnectedPlayerInfo)
	s.lastGameEndReason = ""
	s.lastWinnerID = ""
	s.lastWinnerName = ""
}

func (s *store) connectedCount() int {
	n := 0
	for _, p := range s.players {
		if p.Status == protocol.StatusConnected {
			n++
		}
	}
	return n
}

func (s *store) isRoomFull() bool       { return len(s.players) >= MaxPlayers }
func (s *store) hasEnoughPlayers() bool { return s.connectedCount() >= MinPlayers }

func (s *store) isNameTaken(name string) bool {
	for _, p := range s.players {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (s *store) getCardByID(id string) (Card, bool) {
	c, ok := s.fullDeck[id]
	return c, ok
}

// getAllPlayersRemaining returns every player's current hand size in
// join order, used for the round_start fan-out's allPlayersRemaining
// vector.
func (s *store) getAllPlayersRemaining() []playerCardCount {
	out := make([]playerCardCount, 0, len(s.playerOrder))
	for _, id := range s.playerOrder {
		if p, ok := s.players[id]; ok {
			out = append(out, playerCardCount{PlayerID: p.ID, CardsRemaining: len(p.CardStack)})
		}
	}
	return out
}

type playerCardCount struct {
	PlayerID       string
	CardsRemaining int
}

// addPlayer inserts a brand-new player and tracks insertion order.
func (s *store) addPlayer(p *Player) {
	s.players[p.ID] = p
	s.playerOrder = append(s.playerOrder, p.ID)
	s.connectionToPlayerID[p.ConnectionID] = p.ID
}

// removePlayer deletes a player from every structure it may appear in.
func (s *store) removePlayer(playerID string) {
	if p, ok := s.players[playerID]; ok {
		delete(s.connectionToPlayerID, p.ConnectionID)
	}
	delete(s.players, playerID)
	delete(s.disconnectedPlayers, playerID)
	delete(s.penalties, playerID)
	delete(s.playersWantRematch, playerID)
	for i, id := range s.playerOrder {
		if id == playerID {
			s.playerOrder = append(s.playerOrder[:i], s.playerOrder[i+1:]...)
			break
		}
	}
}

// firstRemainingPlayerID returns the earliest-joined still-present
// player, used for deterministic host reassignment.
func (s *store) firstRemainingPlayerID() string {
	if len(s.playerOrder) == 0 {
		return ""
	}
	return s.playerOrder[0]
}

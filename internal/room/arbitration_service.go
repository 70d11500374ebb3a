package room

import (
	"time"

	"dobble-room-server/internal/protocol"
)

// onMatchAttempt implements spec.md §4.5's Match handling + §4.4's
// validation pipeline: resolve player, validate symbol, rate limit,
// require Playing with a non-empty hand and no active penalty, then
// validate the match itself.
func (r *Room) onMatchAttempt(connID string, env protocol.Envelope) {
	playerID := r.playerIDFor(connID)
	if playerID == "" {
		return
	}
	var req protocol.MatchAttemptRequest
	if err := protocol.Decode(env, &req); err != nil {
		return // malformed JSON: logged-and-dropped validation failure
	}
	if req.SymbolID < 0 || req.SymbolID >= TotalSymbols {
		return // out-of-range symbol id: validation failure, silent drop
	}

	if !r.limiter.Allow(playerID) {
		return // silent drop, spec.md §4.4/§9 rate limiting
	}

	if r.store.phase != PhasePlaying {
		return
	}
	p, ok := r.store.players[playerID]
	if !ok || len(p.CardStack) == 0 {
		return
	}

	if until, inPenalty := r.store.penalties[playerID]; inPenalty {
		if r.clock.Now().Before(until) {
			r.sendErr(playerID, protocol.ErrInPenalty, "in penalty")
			return
		}
		delete(r.store.penalties, playerID)
	}

	topCard, ok := r.store.getCardByID(p.TopCardID())
	if !ok {
		return
	}
	center := r.store.centerCard
	if center == nil {
		return
	}

	if !topCard.HasSymbol(req.SymbolID) || !center.HasSymbol(req.SymbolID) {
		r.applyPenalty(playerID)
		return
	}

	r.submitValidMatch(playerID, req.SymbolID, req.ClientTimestamp)
}

// applyPenalty implements spec.md §4.4 Penalty.
func (r *Room) applyPenalty(playerID string) {
	until := r.clock.Now().Add(PenaltyDuration)
	r.store.penalties[playerID] = until
	r.sendPenalty(playerID, PenaltyDuration.Milliseconds(), "invalid_match")
}

// submitValidMatch implements spec.md §4.4's Arbitration window: the
// first valid match in a round opens a 100ms collection window;
// further valid matches append until it closes.
func (r *Room) submitValidMatch(playerID string, symbolID int, clientTimestamp int64) {
	s := r.store
	attempt := MatchAttempt{
		PlayerID:        playerID,
		SymbolID:        symbolID,
		ClientTimestamp: clientTimestamp,
		ServerTimestamp: r.clock.Now(),
	}

	if s.pendingArbitration == nil || s.pendingArbitration.RoundNumber != s.roundNumber {
		s.pendingArbitration = &PendingArbitration{
			RoundNumber: s.roundNumber,
			WindowStart: r.clock.Now(),
			Attempts:    []MatchAttempt{attempt},
		}
		s.pendingArbitration.timer = r.postTimer(ArbitrationWindow, r.onArbitrationWindowClosed)
		return
	}

	s.pendingArbitration.Attempts = append(s.pendingArbitration.Attempts, attempt)
}

// onArbitrationWindowClosed resolves the pending arbitration by server
// timestamp, breaking ties uniformly at random (never by client
// timestamp), per spec.md §4.4/§9.
func (r *Room) onArbitrationWindowClosed() {
	s := r.store
	pa := s.pendingArbitration
	if pa == nil {
		return
	}
	s.pendingArbitration = nil
	if pa.RoundNumber != s.roundNumber || s.phase != PhasePlaying {
		return
	}
	if len(pa.Attempts) == 0 {
		return
	}

	winner := resolveArbitrationWinner(pa.Attempts, r.rand)
	r.processRoundWin(winner.PlayerID, winner.SymbolID)
}

// resolveArbitrationWinner sorts by server arrival time and breaks any
// tie for earliest timestamp uniformly at random.
func resolveArbitrationWinner(attempts []MatchAttempt, rnd RandSource) MatchAttempt {
	best := attempts[0]
	tied := []MatchAttempt{best}
	for _, a := range attempts[1:] {
		switch {
		case a.ServerTimestamp.Before(best.ServerTimestamp):
			best = a
			tied = []MatchAttempt{a}
		case a.ServerTimestamp.Equal(best.ServerTimestamp):
			tied = append(tied, a)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}
	return tied[rnd.Intn(len(tied))]
}

// clearArbitrationAndPenalties implements spec.md §4.4 Clearing, used
// on every path into GameOver.
func (r *Room) clearArbitrationAndPenalties() {
	s := r.store
	if s.pendingArbitration != nil {
		if s.pendingArbitration.timer != nil {
			s.pendingArbitration.timer.Stop()
		}
		s.pendingArbitration = nil
	}
	s.penalties = make(map[string]time.Time)
}

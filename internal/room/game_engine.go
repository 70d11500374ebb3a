package room

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"dobble-room-server/internal/protocol"
)

// onSetConfig implements spec.md §4.5 Configuration: host-only, only in
// Waiting or GameOver.
func (r *Room) onSetConfig(connID string, env protocol.Envelope) {
	requesterID := r.playerIDFor(connID)
	if requesterID == "" || requesterID != r.store.hostID {
		r.sendErrToConn(connID, protocol.ErrNotHost, "only the host may change config")
		return
	}
	if r.store.phase != PhaseWaiting && r.store.phase != PhaseGameOver {
		r.sendErr(requesterID, protocol.ErrInvalidState, "cannot change config now")
		return
	}
	var req protocol.SetConfigRequest
	if err := protocol.Decode(env, &req); err != nil {
		return
	}
	r.store.config = req.Config
	r.broadcastConfigUpdated()
}

// onStartGame implements spec.md §4.5 Configuration/Start game: host
// only, requires connectedCount >= 2, Waiting -> Countdown.
func (r *Room) onStartGame(connID string, env protocol.Envelope) {
	requesterID := r.playerIDFor(connID)
	if requesterID == "" || requesterID != r.store.hostID {
		r.sendErrToConn(connID, protocol.ErrNotHost, "only the host may start the game")
		return
	}
	if r.store.phase != PhaseWaiting {
		r.sendErr(requesterID, protocol.ErrInvalidState, "game already started")
		return
	}
	if !r.store.hasEnoughPlayers() {
		r.sendErr(requesterID, protocol.ErrInvalidState, "need at least 2 connected players")
		return
	}
	var req protocol.StartGameRequest
	if err := protocol.Decode(env, &req); err == nil && req.Config != nil {
		r.store.config = *req.Config
		r.broadcastConfigUpdated()
	}
	r.startCountdown()
}

// resolveSymbols implements step 1 of spec.md §4.5 Start game: custom
// symbols (if correctly sized) take precedence over the catalog lookup.
func (r *Room) resolveSymbols() ([]int, bool) {
	cfg := r.store.config
	if len(cfg.CustomSymbols) == TotalSymbols {
		return cfg.CustomSymbols, true
	}
	return r.catalog.Resolve(cfg.CardSetID)
}

// startGameplay implements the remainder of spec.md §4.5 Start game:
// deck generation, truncation, shuffle, deal, and the first round_start.
func (r *Room) startGameplay() {
	s := r.store

	symbols, ok := r.resolveSymbols()
	if !ok {
		r.log.Error("unresolvable symbol set, aborting start", zap.String("cardSetId", s.config.CardSetID))
		r.cancelCountdown()
		return
	}

	cards, err := r.deckFunc(DeckOrder, symbols)
	if err != nil {
		r.log.Error("deck generation failed", zap.Error(err))
		r.cancelCountdown()
		return
	}

	deckSize := s.config.GameDuration
	if deckSize > len(cards) {
		deckSize = len(cards)
	}
	cards = cards[:deckSize]
	r.rand.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })

	s.fullDeck = make(map[string]Card, len(cards))
	for _, c := range cards {
		s.fullDeck[c.ID] = c
	}

	center := cards[0]
	s.centerCard = &center
	remaining := cards[1:]

	connected := make([]*Player, 0, len(s.playerOrder))
	for _, id := range s.playerOrder {
		if p, ok := s.players[id]; ok && p.Status == protocol.StatusConnected {
			connected = append(connected, p)
		}
	}
	perPlayer := 0
	if len(connected) > 0 {
		perPlayer = len(remaining) / len(connected)
	}

	idx := 0
	for _, p := range connected {
		hand := make([]string, 0, perPlayer)
		for i := 0; i < perPlayer; i++ {
			hand = append(hand, remaining[idx].ID)
			idx++
		}
		p.CardStack = hand
	}

	s.phase = PhasePlaying
	s.roundNumber = 1
	s.penalties = make(map[string]time.Time)

	r.sendRoundStart()
}

// processRoundWin implements spec.md §4.5 Process round win, triggered
// by Arbitration's callback.
func (r *Room) processRoundWin(winnerID string, symbolID int) {
	s := r.store
	winner, ok := s.players[winnerID]
	if !ok {
		return
	}

	s.phase = PhaseRoundEnd
	s.roundWinnerID = winnerID
	s.roundMatchedSymbolID = symbolID

	newCenterID := winner.PopTopCard()
	if newCenterID != "" {
		if c, ok := s.getCardByID(newCenterID); ok {
			s.centerCard = &c
		}
	}

	r.broadcastRoundWinner(winnerID, winner.Name, symbolID, len(winner.CardStack))

	if len(winner.CardStack) == 0 {
		r.endGame(ReasonStackEmptied, winnerID)
		return
	}

	r.scheduleRoundTransition()
}

// nextRound implements spec.md §4.5 Next round.
func (r *Room) nextRound() {
	s := r.store
	if s.phase != PhaseRoundEnd {
		return // defensive: endGame may have already cancelled this timer
	}
	s.roundNumber++
	s.roundWinnerID = ""
	s.roundMatchedSymbolID = -1
	s.phase = PhasePlaying
	r.sendRoundStart()
}

// onPlayerCountChanged implements spec.md §4.5 Player removal while
// playing.
func (r *Room) onPlayerCountChanged() {
	s := r.store
	connected := s.connectedCount()

	switch s.phase {
	case PhaseCountdown:
		if connected < MinPlayers {
			r.cancelCountdown()
		}
	case PhasePlaying, PhaseRoundEnd:
		if connected < MinPlayers {
			r.endGameLastPlayerStanding()
		}
	case PhaseWaiting, PhaseGameOver:
		// no-op
	}
}

// endGameLastPlayerStanding implements the last-player-standing branch:
// the sole survivor's stack is emptied to reflect the win.
func (r *Room) endGameLastPlayerStanding() {
	s := r.store
	var survivorID string
	for _, id := range s.playerOrder {
		if p, ok := s.players[id]; ok && p.Status == protocol.StatusConnected {
			survivorID = id
			break
		}
	}
	if survivorID != "" {
		s.players[survivorID].CardStack = nil
	}
	r.endGame(ReasonLastPlayerStanding, survivorID)
}

// endGame implements spec.md §4.5 End game.
func (r *Room) endGame(reason, winnerID string) {
	s := r.store
	if r.roundEndTimer != nil {
		r.roundEndTimer.Stop()
		r.roundEndTimer = nil
	}
	r.clearArbitrationAndPenalties()

	s.phase = PhaseGameOver
	s.lastGameEndReason = reason

	standings := make([]protocol.FinalStanding, 0, len(s.playerOrder))
	for _, id := range s.playerOrder {
		p, ok := s.players[id]
		if !ok {
			continue
		}
		standings = append(standings, protocol.FinalStanding{
			PlayerID:       p.ID,
			PlayerName:     p.Name,
			CardsRemaining: len(p.CardStack),
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].CardsRemaining < standings[j].CardsRemaining
	})

	if winnerID == "" && len(standings) > 0 {
		winnerID = standings[0].PlayerID
	}
	winnerName := ""
	if p, ok := s.players[winnerID]; ok {
		winnerName = p.Name
	}
	s.lastWinnerID = winnerID
	s.lastWinnerName = winnerName

	r.armRejoinWindow()

	r.broadcastGameOver(protocol.GameOverEvent{
		WinnerID:       winnerID,
		WinnerName:     winnerName,
		FinalStandings: standings,
		Reason:         reason,
		RejoinWindowMs: RejoinWindow.Milliseconds(),
	})
}

// onPlayAgain implements spec.md §4.5 Rematch.
func (r *Room) onPlayAgain(connID string, _ protocol.Envelope) {
	playerID := r.playerIDFor(connID)
	if playerID == "" {
		return
	}
	if r.store.phase != PhaseGameOver || r.isRejoinWindowExpired() {
		r.sendErr(playerID, protocol.ErrInvalidState, "rejoin window closed")
		return
	}
	r.store.playersWantRematch[playerID] = true
	r.broadcastPlayAgainAck(playerID)

	optedIn := 0
	for id := range r.store.playersWantRematch {
		if p, ok := r.store.players[id]; ok && p.Status == protocol.StatusConnected {
			optedIn++
		}
	}
	if optedIn >= 2 {
		r.expireRejoinWindowNow()
	}
}

// resolveRematch implements the rejoin-window-expiry branch of
// spec.md §4.5 Rematch.
func (r *Room) resolveRematch() {
	s := r.store
	rematching := make([]string, 0, len(s.playersWantRematch))
	for id := range s.playersWantRematch {
		if p, ok := s.players[id]; ok && p.Status == protocol.StatusConnected {
			rematching = append(rematching, id)
		}
	}

	switch len(rematching) {
	case 0:
		// spec.md §4.5 Rematch: "reset for a new game" — the room stays
		// alive, empty, waiting for fresh joins, not torn down.
		r.broadcastRoomExpired("no_rematch")
		r.closeAllConnections()
		r.performFullReset()
		r.armRoomTimeout()
	case 1:
		solo := rematching[0]
		r.sendSoloRejoinBoot(solo, "not enough players for a rematch")
		soloConnID := s.players[solo].ConnectionID
		r.postTimer(SoloRejoinBootDelay, func() {
			if sender, ok := r.connections[soloConnID]; ok {
				sender.Close()
				delete(r.connections, soloConnID)
			}
		})
		// Same as the no-rematch branch: nobody is carrying on, so reset
		// now rather than leaving the room stuck in GameOver with no
		// armed timer once the solo connection drains.
		r.performFullReset()
		r.armRoomTimeout()
	default:
		r.keepOnlyPlayers(rematching)
		s.resetGameState()
		if s.hostID == "" || !containsString(rematching, s.hostID) {
			if newHostID := s.firstRemainingPlayerID(); newHostID != "" {
				if p, ok := s.players[newHostID]; ok {
					for _, other := range s.players {
						other.IsHost = false
					}
					p.IsHost = true
					s.hostID = newHostID
				}
			}
		}
		s.phase = PhaseWaiting
		r.armRoomTimeout()
		r.broadcastRoomReset()
		for _, id := range s.playerOrder {
			r.sendRoomState(id)
		}
	}
}

// keepOnlyPlayers closes and removes every player not in keep, used
// when resolving a rematch with >=2 opt-ins.
func (r *Room) keepOnlyPlayers(keep []string) {
	keepSet := make(map[string]bool, len(keep))
	for _, id := range keep {
		keepSet[id] = true
	}
	s := r.store
	for _, id := range append([]string{}, s.playerOrder...) {
		if keepSet[id] {
			continue
		}
		p, ok := s.players[id]
		if !ok {
			continue
		}
		if sender, ok := r.connections[p.ConnectionID]; ok {
			sender.Close()
			delete(r.connections, p.ConnectionID)
		}
		s.removePlayer(id)
	}
}

// closeAllConnections closes and forgets every connection the room
// currently tracks. Used only where spec.md calls for closing
// everyone's transport (no-rematch); the join-time reset path must
// leave the about-to-join connection alone.
func (r *Room) closeAllConnections() {
	for connID, s := range r.connections {
		s.Close()
		delete(r.connections, connID)
	}
}

// performFullReset implements the "Game Engine performs a full reset"
// clause of spec.md §4.2 Join, and the no-rematch/solo-rematch branches
// of §4.5 Rematch. It clears store state only; closing connections (if
// required) is the caller's responsibility.
func (r *Room) performFullReset() {
	r.store.resetAll()
	r.store.phase = PhaseWaiting
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

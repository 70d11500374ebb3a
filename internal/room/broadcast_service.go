package room

import (
	"dobble-room-server/internal/protocol"
)

// mustEnvelope marshals a payload this package fully controls. A failure
// here means one of our own event structs stopped being JSON-encodable,
// which is a programming error, not a runtime condition to recover from.
func mustEnvelope(msgType string, payload interface{}) protocol.Envelope {
	env, err := protocol.NewEnvelope(msgType, payload)
	if err != nil {
		panic("room: payload not encodable: " + err.Error())
	}
	return env
}

// playerView projects a Player into its client-safe shape. The full
// hand is never revealed to anyone but the owner (spec.md §4.6).
func (r *Room) playerView(p *Player, viewerID string) protocol.PlayerView {
	return protocol.PlayerView{
		ID:             p.ID,
		Name:           p.Name,
		Status:         p.Status,
		CardsRemaining: len(p.CardStack),
		IsHost:         p.IsHost,
		IsYou:          p.ID == viewerID,
	}
}

func (r *Room) playerViews(viewerID string) []protocol.PlayerView {
	out := make([]protocol.PlayerView, 0, len(r.store.playerOrder))
	for _, id := range r.store.playerOrder {
		if p, ok := r.store.players[id]; ok {
			out = append(out, r.playerView(p, viewerID))
		}
	}
	return out
}

func cardView(c Card) protocol.CardView {
	return protocol.CardView{ID: c.ID, Symbols: c.Symbols}
}

// penaltyRemainingMs computes time left on a player's penalty, clamped
// to zero, evaluated at send time per spec.md §4.6.
func (r *Room) penaltyRemainingMs(playerID string) int64 {
	until, ok := r.store.penalties[playerID]
	if !ok {
		return 0
	}
	remaining := until.Sub(r.clock.Now()).Milliseconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// roomStateFor builds the personalised room_state snapshot for one
// recipient (spec.md §4.6's Personalised row).
func (r *Room) roomStateFor(p *Player) protocol.RoomStateEvent {
	s := r.store
	ev := protocol.RoomStateEvent{
		Phase:              s.phase,
		RoomID:             r.id,
		Players:            r.playerViews(p.ID),
		Config:             s.config,
		RoundNumber:        s.roundNumber,
		YourCardsRemaining: len(p.CardStack),
		PenaltyRemainingMs: r.penaltyRemainingMs(p.ID),
		LastGameEndReason:  s.lastGameEndReason,
		LastWinnerID:       s.lastWinnerID,
		LastWinnerName:     s.lastWinnerName,
	}
	if s.centerCard != nil {
		cv := cardView(*s.centerCard)
		ev.CenterCard = &cv
	}
	if topID := p.TopCardID(); topID != "" {
		if c, ok := s.getCardByID(topID); ok {
			cv := cardView(c)
			ev.YourCard = &cv
		}
	}
	if s.phase == PhaseGameOver && !s.rejoinWindowEndsAt.IsZero() {
		remaining := s.rejoinWindowEndsAt.Sub(r.clock.Now()).Milliseconds()
		if remaining > 0 {
			ev.RejoinWindowEndsIn = remaining
		}
	}
	return ev
}

// sendRoomState sends a fresh personalised snapshot to one player.
func (r *Room) sendRoomState(playerID string) {
	p, ok := r.store.players[playerID]
	if !ok {
		return
	}
	r.sendTo(playerID, mustEnvelope(protocol.TypeRoomState, r.roomStateFor(p)))
}

// broadcastPlayerJoined sends every existing connection a personalised
// player_joined with isYou rendered from their own identity, then sends
// the new player their own room_state.
func (r *Room) broadcastPlayerJoined(newPlayerID string) {
	for _, id := range r.store.playerOrder {
		if id == newPlayerID {
			continue
		}
		p := r.store.players[id]
		viewer := p
		np := r.store.players[newPlayerID]
		r.sendTo(id, mustEnvelope(protocol.TypePlayerJoined, protocol.PlayerJoinedEvent{
			Player: r.playerView(np, viewer.ID),
		}))
	}
	r.sendRoomState(newPlayerID)
}

func (r *Room) broadcastAll(env protocol.Envelope) {
	for _, id := range r.store.playerOrder {
		r.sendTo(id, env)
	}
}

func (r *Room) broadcastPlayerLeft(playerID string) {
	r.broadcastAll(mustEnvelope(protocol.TypePlayerLeft, protocol.PlayerLeftEvent{PlayerID: playerID}))
}

func (r *Room) broadcastPlayerDisconnected(playerID string) {
	r.broadcastAll(mustEnvelope(protocol.TypePlayerDisconnected, protocol.PlayerDisconnectedEvent{PlayerID: playerID}))
}

func (r *Room) broadcastPlayerReconnected(playerID string) {
	r.broadcastAll(mustEnvelope(protocol.TypePlayerReconnected, protocol.PlayerReconnectedEvent{PlayerID: playerID}))
}

func (r *Room) broadcastConfigUpdated() {
	r.broadcastAll(mustEnvelope(protocol.TypeConfigUpdated, protocol.ConfigUpdatedEvent{Config: r.store.config}))
}

func (r *Room) broadcastCountdown(seconds int) {
	r.broadcastAll(mustEnvelope(protocol.TypeCountdown, protocol.CountdownEvent{Seconds: seconds}))
}

func (r *Room) broadcastHostChanged(playerID string) {
	r.broadcastAll(mustEnvelope(protocol.TypeHostChanged, protocol.HostChangedEvent{PlayerID: playerID}))
}

func (r *Room) broadcastRoundWinner(winnerID, winnerName string, symbolID, cardsRemaining int) {
	r.broadcastAll(mustEnvelope(protocol.TypeRoundWinner, protocol.RoundWinnerEvent{
		WinnerID:             winnerID,
		WinnerName:           winnerName,
		MatchedSymbolID:      symbolID,
		WinnerCardsRemaining: cardsRemaining,
	}))
}

func (r *Room) broadcastGameOver(ev protocol.GameOverEvent) {
	r.broadcastAll(mustEnvelope(protocol.TypeGameOver, ev))
}

func (r *Room) broadcastRoomExpired(reason string) {
	r.broadcastAll(mustEnvelope(protocol.TypeRoomExpired, protocol.RoomExpiredEvent{Reason: reason}))
}

func (r *Room) broadcastPlayAgainAck(playerID string) {
	r.broadcastAll(mustEnvelope(protocol.TypePlayAgainAck, protocol.PlayAgainAckEvent{PlayerID: playerID}))
}

func (r *Room) broadcastRoomReset() {
	r.broadcastAll(mustEnvelope(protocol.TypeRoomReset, nil))
}

// sendRoundStart sends every connected player their own personalised
// round_start view (spec.md §4.5 step 6 / §4.6's Per-player row).
func (r *Room) sendRoundStart() {
	s := r.store
	if s.centerCard == nil {
		r.log.Warn("sendRoundStart with nil centerCard")
		return
	}
	center := cardView(*s.centerCard)
	allRemaining := s.getAllPlayersRemaining()
	allView := make([]protocol.PlayerCardCount, len(allRemaining))
	for i, pc := range allRemaining {
		allView[i] = protocol.PlayerCardCount{PlayerID: pc.PlayerID, CardsRemaining: pc.CardsRemaining}
	}
	for _, id := range s.playerOrder {
		p, ok := s.players[id]
		if !ok || p.Status != protocol.StatusConnected {
			continue
		}
		topID := p.TopCardID()
		c, ok := s.getCardByID(topID)
		if !ok {
			continue
		}
		r.sendTo(p.ID, mustEnvelope(protocol.TypeRoundStart, protocol.RoundStartEvent{
			CenterCard:          center,
			YourCard:            cardView(c),
			YourCardsRemaining:  len(p.CardStack),
			AllPlayersRemaining: allView,
			RoundNumber:         s.roundNumber,
		}))
	}
}

func (r *Room) sendYouAreHost(playerID string) {
	r.sendTo(playerID, mustEnvelope(protocol.TypeYouAreHost, nil))
}

func (r *Room) sendPong(playerID string, clientTimestamp int64) {
	r.sendTo(playerID, mustEnvelope(protocol.TypePong, protocol.PongEvent{
		ServerTimestamp: r.clock.Now().UnixMilli(),
		ClientTimestamp: clientTimestamp,
	}))
}

func (r *Room) sendPenalty(playerID string, durationMs int64, reason string) {
	r.sendTo(playerID, mustEnvelope(protocol.TypePenalty, protocol.PenaltyEvent{
		ServerTimestamp: r.clock.Now().UnixMilli(),
		DurationMs:      durationMs,
		Reason:          reason,
	}))
}

func (r *Room) sendSoloRejoinBoot(playerID, message string) {
	r.sendTo(playerID, mustEnvelope(protocol.TypeSoloRejoinBoot, protocol.SoloRejoinBootEvent{Message: message}))
}

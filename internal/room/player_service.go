package room

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dobble-room-server/internal/identity"
	"dobble-room-server/internal/protocol"
)

// onJoin implements spec.md §4.2 Join.
func (r *Room) onJoin(connID string, env protocol.Envelope) {
	var req protocol.JoinRequest
	if err := protocol.Decode(env, &req); err != nil {
		r.log.Debug("malformed join", zap.String("conn", connID), zap.Error(err))
		return
	}

	s := r.store

	// Idempotent for a connection already mapped to a player.
	if existingID, ok := s.connectionToPlayerID[connID]; ok {
		_ = existingID
		r.sendRoomState(s.connectionToPlayerID[connID])
		return
	}

	if s.isRoomFull() {
		r.sendErrToConn(connID, protocol.ErrRoomFull, "room is full")
		return
	}

	if s.phase != PhaseWaiting {
		canJoin := s.phase == PhaseGameOver && (len(s.players) == 0 || r.isRejoinWindowExpired())
		if !canJoin {
			r.sendErrToConn(connID, protocol.ErrGameInProgress, "game already in progress")
			return
		}
		r.performFullReset()
	}

	name := identity.Sanitize(req.PlayerName)
	name = identity.Unique(name, func(candidate string) bool { return s.isNameTaken(candidate) })

	p := &Player{
		ID:           uuid.NewString(),
		ConnectionID: connID,
		Name:         name,
		Status:       protocol.StatusConnected,
		JoinedAt:     r.clock.Now(),
		LastSeen:     r.clock.Now(),
	}

	isFirst := len(s.players) == 0
	if isFirst {
		p.IsHost = true
		s.hostID = p.ID
		s.config = DefaultConfig()
	}

	s.addPlayer(p)

	if isFirst {
		r.armRoomTimeout()
	}

	r.broadcastPlayerJoined(p.ID)

	if isFirst {
		r.sendYouAreHost(p.ID)
	}

	r.log.Info("player joined", zap.String("playerId", p.ID), zap.String("name", p.Name))
}

// onReconnect implements spec.md §4.2 Reconnect for the in-band path.
func (r *Room) onReconnect(connID string, env protocol.Envelope) {
	var req protocol.ReconnectRequest
	if err := protocol.Decode(env, &req); err != nil {
		r.log.Debug("malformed reconnect", zap.String("conn", connID), zap.Error(err))
		return
	}
	r.reconnectPlayer(connID, req.PlayerID)
}

// reconnectPlayer is shared by the in-band reconnect path and the
// connect-time query-parameter path (driven by the transport/hub).
func (r *Room) reconnectPlayer(connID, playerID string) {
	s := r.store

	p, known := s.players[playerID]
	if !known {
		r.sendErrToConn(connID, protocol.ErrPlayerNotFound, "no such player")
		return
	}

	if _, disconnected := s.disconnectedPlayers[playerID]; disconnected {
		if t, ok := r.graceTimers[playerID]; ok {
			t.Stop()
			delete(r.graceTimers, playerID)
		}
		delete(s.disconnectedPlayers, playerID)
		delete(s.connectionToPlayerID, p.ConnectionID)
		p.ConnectionID = connID
		p.Status = protocol.StatusConnected
		p.LastSeen = r.clock.Now()
		s.connectionToPlayerID[connID] = p.ID

		r.broadcastPlayerReconnected(p.ID)
		r.sendRoomState(p.ID)
		r.log.Info("player reconnected", zap.String("playerId", p.ID))
		return
	}

	// Known and already connected: duplicate session, rebind silently.
	delete(s.connectionToPlayerID, p.ConnectionID)
	p.ConnectionID = connID
	p.LastSeen = r.clock.Now()
	s.connectionToPlayerID[connID] = p.ID
	r.sendRoomState(p.ID)
}

// handleConnectionDropped is called when the transport reports a
// connection dropped, implementing spec.md §4.2 Disconnect.
func (r *Room) handleConnectionDropped(connID string) {
	delete(r.connections, connID)

	s := r.store
	playerID, ok := s.connectionToPlayerID[connID]
	if !ok {
		return
	}
	p, ok := s.players[playerID]
	if !ok {
		return
	}

	p.Status = protocol.StatusDisconnected
	delete(s.connectionToPlayerID, connID)
	s.disconnectedPlayers[playerID] = DisconnectedPlayerInfo{DisconnectedAt: r.clock.Now()}

	r.broadcastPlayerDisconnected(playerID)

	grace := r.graceDurationFor(p)
	r.graceTimers[playerID] = r.postTimer(grace, func() {
		r.onGraceExpired(playerID)
	})
}

// graceDurationFor picks the grace window per spec.md §4.2's table.
func (r *Room) graceDurationFor(p *Player) time.Duration {
	if p.IsHost {
		return HostReconnectGracePeriod
	}
	if r.store.phase == PhaseWaiting {
		return WaitingGracePeriod
	}
	return ReconnectGracePeriod
}

// onGraceExpired removes a still-disconnected player once its grace
// timer fires. The callback re-checks the player is still disconnected
// before acting, per spec.md §4.3/§5.
func (r *Room) onGraceExpired(playerID string) {
	delete(r.graceTimers, playerID)
	s := r.store
	if _, stillDisconnected := s.disconnectedPlayers[playerID]; !stillDisconnected {
		return
	}
	r.removePlayer(playerID)
}

// removePlayer implements spec.md §4.2 Remove, including deterministic
// host reassignment and notifying the Game Engine of the new count.
func (r *Room) removePlayer(playerID string) {
	s := r.store
	p, ok := s.players[playerID]
	if !ok {
		return
	}
	wasHost := p.IsHost

	s.removePlayer(playerID)
	r.broadcastPlayerLeft(playerID)

	if wasHost {
		s.hostID = ""
		if newHostID := s.firstRemainingPlayerID(); newHostID != "" {
			newHost := s.players[newHostID]
			newHost.IsHost = true
			s.hostID = newHost.ID
			r.sendYouAreHost(newHost.ID)
			r.broadcastHostChanged(newHost.ID)
		}
	}

	r.onPlayerCountChanged()
	r.log.Info("player removed", zap.String("playerId", playerID))
}

// onLeave handles a client-initiated "leave" — always routes to Remove.
func (r *Room) onLeave(connID string, _ protocol.Envelope) {
	playerID := r.playerIDFor(connID)
	if playerID == "" {
		return
	}
	delete(r.connections, connID)
	r.removePlayer(playerID)
}

// onKickPlayer implements spec.md §4.2 Kick: host-only, routes to Remove.
func (r *Room) onKickPlayer(connID string, env protocol.Envelope) {
	requesterID := r.playerIDFor(connID)
	if requesterID == "" || requesterID != r.store.hostID {
		r.sendErrToConn(connID, protocol.ErrNotHost, "only the host may kick")
		return
	}
	var req protocol.KickPlayerRequest
	if err := protocol.Decode(env, &req); err != nil {
		return
	}
	if _, ok := r.store.players[req.PlayerID]; !ok {
		r.sendErr(requesterID, protocol.ErrPlayerNotFound, "no such player")
		return
	}
	r.removePlayer(req.PlayerID)
}

// onPing answers a heartbeat with a pong carrying both timestamps.
func (r *Room) onPing(connID string, env protocol.Envelope) {
	playerID := r.playerIDFor(connID)
	if playerID == "" {
		return
	}
	var req protocol.PingRequest
	if err := protocol.Decode(env, &req); err != nil {
		return
	}
	if p, ok := r.store.players[playerID]; ok {
		p.LastSeen = r.clock.Now()
	}
	r.sendPong(playerID, req.Timestamp)
}

func (r *Room) isRejoinWindowExpired() bool {
	if r.store.rejoinWindowEndsAt.IsZero() {
		return true
	}
	return !r.clock.Now().Before(r.store.rejoinWindowEndsAt)
}

package room

// This file owns the named deferred callbacks spec.md §4.3 calls the
// Timer Service: roomTimeout, countdown, roundEnd and rejoinWindow.
// gracePeriod[playerId] handles live in player_service.go next to the
// disconnect/reconnect logic they serve. Every callback re-checks
// phase/state before acting, since it only ever races state up to the
// actor boundary (spec.md §5).

// armRoomTimeout (re)starts the lobby-expiry timer. Called on the first
// join and again whenever countdown is cancelled back to Waiting.
func (r *Room) armRoomTimeout() {
	if r.roomTimeoutTimer != nil {
		r.roomTimeoutTimer.Stop()
	}
	r.store.roomExpiresAt = r.clock.Now().Add(RoomTimeout)
	r.roomTimeoutTimer = r.postTimer(RoomTimeout, r.onRoomTimeout)
}

// onRoomTimeout implements spec.md §4.5 Lobby expiry.
func (r *Room) onRoomTimeout() {
	if r.store.phase != PhaseWaiting {
		return
	}
	r.broadcastRoomExpired("lobby_timeout")
	r.Stop()
}

// isCountdownActive reports whether a countdown timer is currently armed.
func (r *Room) isCountdownActive() bool {
	return r.countdownTimer != nil
}

// startCountdown begins the self-rescheduling countdown ticker
// described in spec.md §4.3/§4.5.
func (r *Room) startCountdown() {
	if r.roomTimeoutTimer != nil {
		r.roomTimeoutTimer.Stop()
		r.roomTimeoutTimer = nil
	}
	r.store.phase = PhaseCountdown
	r.countdownValue = CountdownSeconds
	r.broadcastCountdown(r.countdownValue)
	r.scheduleCountdownTick()
}

func (r *Room) scheduleCountdownTick() {
	r.countdownTimer = r.postTimer(oneSecond, r.onCountdownTick)
}

func (r *Room) onCountdownTick() {
	if r.store.phase != PhaseCountdown {
		return
	}
	r.countdownValue--
	if r.countdownValue > 0 {
		r.broadcastCountdown(r.countdownValue)
		r.scheduleCountdownTick()
		return
	}

	r.countdownTimer = nil
	if r.store.hasEnoughPlayers() {
		r.startGameplay()
		return
	}
	r.cancelCountdown()
}

// cancelCountdown implements the cancellation path of spec.md §4.5
// Countdown: broadcast seconds:-1 and re-arm the lobby timer.
func (r *Room) cancelCountdown() {
	if r.countdownTimer != nil {
		r.countdownTimer.Stop()
		r.countdownTimer = nil
	}
	r.store.phase = PhaseWaiting
	r.broadcastCountdown(-1)
	r.armRoomTimeout()
}

// scheduleRoundTransition arms the delay between a round win and the
// next round's deal (spec.md §4.5 Process round win).
func (r *Room) scheduleRoundTransition() {
	if r.roundEndTimer != nil {
		r.roundEndTimer.Stop()
	}
	r.roundEndTimer = r.postTimer(RoundTransitionDelay, r.onRoundTransition)
}

func (r *Room) onRoundTransition() {
	r.roundEndTimer = nil
	r.nextRound()
}

// isRejoinWindowActive matches spec.md §4.3's named predicate.
func (r *Room) isRejoinWindowActive() bool {
	return !r.isRejoinWindowExpired()
}

// armRejoinWindow starts the post-game-over rejoin window.
func (r *Room) armRejoinWindow() {
	if r.rejoinWindowTimer != nil {
		r.rejoinWindowTimer.Stop()
	}
	r.store.rejoinWindowEndsAt = r.clock.Now().Add(RejoinWindow)
	r.rejoinWindowTimer = r.postTimer(RejoinWindow, r.onRejoinWindowExpired)
}

// expireRejoinWindowNow is used to trigger early expiry once >=2
// players have opted into a rematch (spec.md §4.5 Rematch).
func (r *Room) expireRejoinWindowNow() {
	if r.rejoinWindowTimer != nil {
		r.rejoinWindowTimer.Stop()
		r.rejoinWindowTimer = nil
	}
	r.onRejoinWindowExpired()
}

func (r *Room) onRejoinWindowExpired() {
	if r.store.phase != PhaseGameOver {
		return
	}
	r.rejoinWindowTimer = nil
	r.resolveRematch()
}

package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dobble-room-server/internal/protocol"
)

// playerIDByName is a white-box lookup, mirroring the pattern already used
// in room_test.go's reconnect test: production clients never learn ids by
// name, tests reach into the store directly.
func playerIDByName(r *Room, name string) string {
	for id, p := range r.store.players {
		if p.Name == name {
			return id
		}
	}
	return ""
}

// sharedSymbol returns the one symbol id two Dobble cards always have in
// common.
func sharedSymbol(t *testing.T, a, b Card) int {
	t.Helper()
	for _, s := range a.Symbols {
		if b.HasSymbol(s) {
			return s
		}
	}
	t.Fatal("no shared symbol between cards, deck generation is broken")
	return -1
}

// absentSymbol returns a symbol id that belongs to neither card, guaranteed
// to fail match validation.
func absentSymbol(t *testing.T, cards ...Card) int {
	t.Helper()
	for s := 0; s < TotalSymbols; s++ {
		inAny := false
		for _, c := range cards {
			if c.HasSymbol(s) {
				inAny = true
				break
			}
		}
		if !inAny {
			return s
		}
	}
	t.Fatal("every symbol is in one of the given cards")
	return -1
}

// startTwoPlayerGame joins Alice and Bob, starts the game and drives the
// countdown to completion, leaving the room in PhasePlaying round 1.
func startTwoPlayerGame(t *testing.T, r *Room, clock *fakeClock) (alice, bob *fakeSender) {
	t.Helper()
	alice = joinPlayer(t, r, "conn-a", "Alice")
	bob = joinPlayer(t, r, "conn-b", "Bob")

	r.Submit("conn-a", mustEnvelope(protocol.TypeStartGame, protocol.StartGameRequest{}))
	sync(t, r)

	for i := 0; i < CountdownSeconds; i++ {
		clock.Advance(oneSecond)
		sync(t, r)
	}

	stats, _ := r.Stats()
	require.Equal(t, PhasePlaying, stats.Phase)
	return alice, bob
}

func TestMatchAttempt_CorrectSymbolResolvesRoundAndAdvances(t *testing.T) {
	r, clock := newTestRoom()
	defer r.Stop()

	alice, _ := startTwoPlayerGame(t, r, clock)

	aliceID := playerIDByName(r, "Alice")
	require.NotEmpty(t, aliceID)
	aliceCard, ok := r.store.getCardByID(r.store.players[aliceID].TopCardID())
	require.True(t, ok)
	symbol := sharedSymbol(t, aliceCard, *r.store.centerCard)

	r.Submit("conn-a", mustEnvelope(protocol.TypeMatchAttempt, protocol.MatchAttemptRequest{SymbolID: symbol}))
	sync(t, r)

	// The arbitration window is still open; round_winner hasn't fired yet.
	_, ok = alice.last(protocol.TypeRoundWinner)
	assert.False(t, ok, "round_winner must wait for the arbitration window to close")

	clock.Advance(ArbitrationWindow)
	sync(t, r)

	env, ok := alice.last(protocol.TypeRoundWinner)
	require.True(t, ok)
	var ev protocol.RoundWinnerEvent
	require.NoError(t, protocol.Decode(env, &ev))
	assert.Equal(t, aliceID, ev.WinnerID)
	assert.Equal(t, symbol, ev.MatchedSymbolID)

	stats, _ := r.Stats()
	assert.Equal(t, PhaseRoundEnd, stats.Phase)

	clock.Advance(RoundTransitionDelay)
	sync(t, r)

	stats, _ = r.Stats()
	assert.Equal(t, PhasePlaying, stats.Phase)
	assert.Equal(t, 2, stats.RoundNumber)
}

func TestMatchAttempt_WrongSymbolAppliesPenaltyThenExpires(t *testing.T) {
	r, clock := newTestRoom()
	defer r.Stop()

	alice, _ := startTwoPlayerGame(t, r, clock)

	aliceID := playerIDByName(r, "Alice")
	aliceCard, ok := r.store.getCardByID(r.store.players[aliceID].TopCardID())
	require.True(t, ok)
	center := *r.store.centerCard
	wrong := absentSymbol(t, aliceCard, center)

	r.Submit("conn-a", mustEnvelope(protocol.TypeMatchAttempt, protocol.MatchAttemptRequest{SymbolID: wrong}))
	sync(t, r)

	env, ok := alice.last(protocol.TypePenalty)
	require.True(t, ok)
	var pen protocol.PenaltyEvent
	require.NoError(t, protocol.Decode(env, &pen))
	assert.Equal(t, PenaltyDuration.Milliseconds(), pen.DurationMs)

	// Still in penalty: a correct attempt now is rejected, not scored.
	symbol := sharedSymbol(t, aliceCard, center)
	r.Submit("conn-a", mustEnvelope(protocol.TypeMatchAttempt, protocol.MatchAttemptRequest{SymbolID: symbol}))
	sync(t, r)

	errEnv, ok := alice.last(protocol.TypeError)
	require.True(t, ok)
	var errEv protocol.ErrorEvent
	require.NoError(t, protocol.Decode(errEnv, &errEv))
	assert.Equal(t, protocol.ErrInPenalty, errEv.Code)

	// Once the penalty expires, the same correct attempt is accepted.
	clock.Advance(PenaltyDuration + time.Millisecond)
	sync(t, r)

	r.Submit("conn-a", mustEnvelope(protocol.TypeMatchAttempt, protocol.MatchAttemptRequest{SymbolID: symbol}))
	sync(t, r)
	clock.Advance(ArbitrationWindow)
	sync(t, r)

	_, ok = alice.last(protocol.TypeRoundWinner)
	assert.True(t, ok, "a valid attempt after penalty expiry must be scored")
}

func TestPlayerCountChanged_LastPlayerStandingEndsGame(t *testing.T) {
	r, clock := newTestRoom()
	defer r.Stop()

	alice, _ := startTwoPlayerGame(t, r, clock)

	r.Submit("conn-b", mustEnvelope(protocol.TypeLeave, nil))
	sync(t, r)

	stats, _ := r.Stats()
	assert.Equal(t, PhaseGameOver, stats.Phase)

	env, ok := alice.last(protocol.TypeGameOver)
	require.True(t, ok)
	var ev protocol.GameOverEvent
	require.NoError(t, protocol.Decode(env, &ev))
	assert.Equal(t, protocol.ReasonLastPlayerStanding, ev.Reason)
	assert.Equal(t, playerIDByName(r, "Alice"), ev.WinnerID)
}

// forceGameOver jumps the room straight to GameOver with an open rejoin
// window, standing in for a full played-out game so the rematch flow can
// be exercised without grinding through every round. Done between synced
// mailbox round-trips, so the actor goroutine is idle and the subsequent
// channel send establishes the happens-before edge the Go memory model
// requires.
func forceGameOver(t *testing.T, r *Room, clock *fakeClock) {
	t.Helper()
	sync(t, r)
	r.store.phase = PhaseGameOver
	r.store.lastGameEndReason = ReasonStackEmptied
	r.armRejoinWindow()
}

func TestRematch_BothOptInResetsRoom(t *testing.T) {
	r, clock := newTestRoom()
	defer r.Stop()

	alice := joinPlayer(t, r, "conn-a", "Alice")
	_ = joinPlayer(t, r, "conn-b", "Bob")
	forceGameOver(t, r, clock)

	r.Submit("conn-a", mustEnvelope(protocol.TypePlayAgain, nil))
	sync(t, r)

	ackEnv, ok := alice.last(protocol.TypePlayAgainAck)
	require.True(t, ok)
	var ack protocol.PlayAgainAckEvent
	require.NoError(t, protocol.Decode(ackEnv, &ack))
	assert.Equal(t, playerIDByName(r, "Alice"), ack.PlayerID)

	stats, _ := r.Stats()
	assert.Equal(t, PhaseGameOver, stats.Phase, "one opt-in must not yet trigger the reset")

	r.Submit("conn-b", mustEnvelope(protocol.TypePlayAgain, nil))
	sync(t, r)

	stats, _ = r.Stats()
	assert.Equal(t, PhaseWaiting, stats.Phase)
	assert.Equal(t, 2, stats.PlayerCount)

	_, ok = alice.last(protocol.TypeRoomReset)
	assert.True(t, ok)
}

func TestRematch_NoOptInResetsAndRearmsRoomTimeout(t *testing.T) {
	r, clock := newTestRoom()
	defer r.Stop()

	alice := joinPlayer(t, r, "conn-a", "Alice")
	bob := joinPlayer(t, r, "conn-b", "Bob")
	forceGameOver(t, r, clock)

	clock.Advance(RejoinWindow)
	sync(t, r)

	env, ok := alice.last(protocol.TypeRoomExpired)
	require.True(t, ok)
	var ev protocol.RoomExpiredEvent
	require.NoError(t, protocol.Decode(env, &ev))
	assert.Equal(t, "no_rematch", ev.Reason)

	assert.True(t, bob.closed, "no-rematch must close every connection")
	assert.True(t, alice.closed)

	stats, _ := r.Stats()
	assert.Equal(t, PhaseWaiting, stats.Phase)
	assert.Equal(t, 0, stats.PlayerCount)

	// The room timeout must have been re-armed; advancing past it stops
	// the room's actor goroutine rather than leaving it stuck forever.
	// Not using the sync() barrier here: once the timeout fires and the
	// room stops itself, a queued Stats() round-trip may or may not still
	// get serviced before teardown, so wait on Done() directly instead.
	clock.Advance(RoomTimeout + time.Second)

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("room did not shut down after the re-armed lobby timeout expired")
	}
}

func TestRematch_SoloOptInBootsAndResetsRoom(t *testing.T) {
	r, clock := newTestRoom()
	defer r.Stop()

	alice := joinPlayer(t, r, "conn-a", "Alice")
	_ = joinPlayer(t, r, "conn-b", "Bob")
	forceGameOver(t, r, clock)

	r.Submit("conn-a", mustEnvelope(protocol.TypePlayAgain, nil))
	sync(t, r)

	clock.Advance(RejoinWindow)
	sync(t, r)

	env, ok := alice.last(protocol.TypeSoloRejoinBoot)
	require.True(t, ok)
	var ev protocol.SoloRejoinBootEvent
	require.NoError(t, protocol.Decode(env, &ev))

	stats, _ := r.Stats()
	assert.Equal(t, PhaseWaiting, stats.Phase)
	assert.Equal(t, 0, stats.PlayerCount)
	assert.False(t, alice.closed, "the solo connection closes only after its boot delay")

	clock.Advance(SoloRejoinBootDelay)
	sync(t, r)
	assert.True(t, alice.closed)
}

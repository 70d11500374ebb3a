package room

import (
	"time"

	"go.uber.org/zap"

	"dobble-room-server/internal/applog"
	"dobble-room-server/internal/protocol"
	"dobble-room-server/internal/ratelimit"
)

// inboundKind tags what a mailbox message carries.
type inboundKind int

const (
	inboundClientMsg inboundKind = iota
	inboundJoin
	inboundDisconnect
	inboundTimerFire
	inboundStats
)

// Stats is a point-in-time snapshot safe to read outside the actor
// goroutine, used by the Hub's admin surface.
type Stats struct {
	ID             string
	Phase          string
	PlayerCount    int
	ConnectedCount int
	RoundNumber    int
}

// inbound is the single message shape the Room's actor loop ever reads.
// Every external event — a client envelope, a connection drop, a fired
// timer — is funneled through this mailbox so the Room's state is only
// ever touched from one goroutine (spec.md §5).
type inbound struct {
	kind inboundKind

	// inboundClientMsg / inboundJoin / inboundDisconnect
	connID string
	env    protocol.Envelope

	// inboundJoin
	sender Sender

	// inboundTimerFire
	fire func()

	// inboundStats
	statsReply chan Stats
}

// Room is a single game's authoritative actor: one goroutine owns every
// field reachable from store, the timer bookkeeping below, and the
// connection table. Nothing outside Run (and the thin Attach/Detach/
// Submit/Stop senders below) may read or write Room state.
type Room struct {
	id  string
	log *zap.Logger

	store *store

	clock Clock
	rand  RandSource

	catalog  SymbolCatalog
	limiter  *ratelimit.Limiter
	deckFunc func(order int, symbols []int) ([]Card, error)

	connections map[string]Sender // connID -> Sender

	// named timer handles, spec.md §4.3
	roomTimeoutTimer  Timer
	countdownTimer    Timer
	roundEndTimer     Timer
	rejoinWindowTimer Timer
	graceTimers       map[string]Timer // playerID -> grace timer
	countdownValue    int

	mailbox chan inbound
	done    chan struct{}
	onEmpty func(roomID string) // invoked from Run goroutine when the room should be reaped
}

// NewRoom constructs a Room in PhaseWaiting. onEmpty is called (from the
// Room's own goroutine) when the room has expired and should be removed
// from the owning registry.
func NewRoom(id string, clock Clock, randSrc RandSource, catalog SymbolCatalog, onEmpty func(string)) *Room {
	return &Room{
		id:          id,
		log:         applog.Room(id),
		store:       newStore(),
		clock:       clock,
		rand:        randSrc,
		catalog:     catalog,
		deckFunc:    generateCards,
		limiter:     ratelimit.New(ratelimit.Config{WindowMs: 1000, MaxRequests: MaxMatchAttemptsPerSecond}),
		connections: make(map[string]Sender),
		graceTimers: make(map[string]Timer),
		mailbox:     make(chan inbound, 64),
		done:        make(chan struct{}),
		onEmpty:     onEmpty,
	}
}

// ID returns the room's identifier.
func (r *Room) ID() string { return r.id }

// Done is closed once the room's actor loop has exited, so an owning
// registry (the Hub) knows when it is safe to forget this Room.
func (r *Room) Done() <-chan struct{} { return r.done }

// Run drains the mailbox until Stop is called or the room reaps itself.
// It must be started in its own goroutine; it is the only goroutine
// ever allowed to touch r.store or r.connections.
func (r *Room) Run() {
	r.armRoomTimeout()
	for {
		select {
		case msg, ok := <-r.mailbox:
			if !ok {
				r.teardown()
				return
			}
			r.handle(msg)
		case <-r.done:
			r.teardown()
			return
		}
	}
}

func (r *Room) handle(msg inbound) {
	switch msg.kind {
	case inboundJoin:
		r.connections[msg.connID] = msg.sender
	case inboundDisconnect:
		r.handleConnectionDropped(msg.connID)
	case inboundClientMsg:
		r.dispatch(msg.connID, msg.env)
	case inboundTimerFire:
		msg.fire()
	case inboundStats:
		msg.statsReply <- Stats{
			ID:             r.id,
			Phase:          r.store.phase,
			PlayerCount:    len(r.store.players),
			ConnectedCount: r.store.connectedCount(),
			RoundNumber:    r.store.roundNumber,
		}
	}
}

// Stats returns a point-in-time snapshot, fetched by round-tripping
// through the actor's own mailbox so it never races store access. ok is
// false if the room has already shut down.
func (r *Room) Stats() (Stats, bool) {
	reply := make(chan Stats, 1)
	select {
	case r.mailbox <- inbound{kind: inboundStats, statsReply: reply}:
	case <-r.done:
		return Stats{}, false
	}
	select {
	case s := <-reply:
		return s, true
	case <-r.done:
		return Stats{}, false
	}
}

func (r *Room) teardown() {
	r.stopAllTimers()
	for _, s := range r.connections {
		s.Close()
	}
	if r.onEmpty != nil {
		r.onEmpty(r.id)
	}
}

// Submit enqueues an inbound client envelope. Safe to call from any
// goroutine (the transport's read pump). Never blocks on game logic —
// only on mailbox backpressure, which signals a wedged room.
func (r *Room) Submit(connID string, env protocol.Envelope) {
	select {
	case r.mailbox <- inbound{kind: inboundClientMsg, connID: connID, env: env}:
	case <-r.done:
	}
}

// Attach registers a connection's Sender before any envelope from it is
// submitted, so the actor loop can reach it for fan-out.
func (r *Room) Attach(connID string, s Sender) {
	select {
	case r.mailbox <- inbound{kind: inboundJoin, connID: connID, sender: s}:
	case <-r.done:
	}
}

// Detach tells the room a connection has dropped at the transport
// level (spec.md §4.2 disconnect handling).
func (r *Room) Detach(connID string) {
	select {
	case r.mailbox <- inbound{kind: inboundDisconnect, connID: connID}:
	case <-r.done:
	}
}

// Stop shuts the actor loop down and releases every timer and sender it
// owns. Idempotent.
func (r *Room) Stop() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

// postTimer schedules fn to run on the Room's own goroutine after d,
// re-entering through the mailbox so it can never race store access.
// This is how every named timer in spec.md §4.3 is realized: the
// goroutine outside Run only ever calls back in through this channel.
func (r *Room) postTimer(d time.Duration, fn func()) Timer {
	return r.clock.AfterFunc(d, func() {
		select {
		case r.mailbox <- inbound{kind: inboundTimerFire, fire: fn}:
		case <-r.done:
		}
	})
}

func (r *Room) stopAllTimers() {
	stop := func(t Timer) {
		if t != nil {
			t.Stop()
		}
	}
	stop(r.roomTimeoutTimer)
	stop(r.countdownTimer)
	stop(r.roundEndTimer)
	stop(r.rejoinWindowTimer)
	for _, t := range r.graceTimers {
		stop(t)
	}
	r.graceTimers = make(map[string]Timer)
	if r.store.pendingArbitration != nil {
		stop(r.store.pendingArbitration.timer)
	}
}

// dispatch routes one client envelope to the matching handler. Unknown
// connIDs and malformed payloads are logged and dropped rather than
// crashing the room — one bad client must never take the room down.
func (r *Room) dispatch(connID string, env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeJoin:
		r.onJoin(connID, env)
	case protocol.TypeReconnect:
		r.onReconnect(connID, env)
	case protocol.TypeSetConfig:
		r.onSetConfig(connID, env)
	case protocol.TypeStartGame:
		r.onStartGame(connID, env)
	case protocol.TypeMatchAttempt:
		r.onMatchAttempt(connID, env)
	case protocol.TypeLeave:
		r.onLeave(connID, env)
	case protocol.TypeKickPlayer:
		r.onKickPlayer(connID, env)
	case protocol.TypePing:
		r.onPing(connID, env)
	case protocol.TypePlayAgain:
		r.onPlayAgain(connID, env)
	default:
		r.log.Debug("unknown envelope type", zap.String("type", env.Type), zap.String("conn", connID))
	}
}

// playerIDFor resolves a connection to its current player, or "" if the
// connection hasn't joined yet.
func (r *Room) playerIDFor(connID string) string {
	return r.store.connectionToPlayerID[connID]
}

func (r *Room) sendTo(playerID string, env protocol.Envelope) {
	p, ok := r.store.players[playerID]
	if !ok {
		return
	}
	s, ok := r.connections[p.ConnectionID]
	if !ok {
		return
	}
	s.Send(env)
}

func (r *Room) sendErr(playerID string, code protocol.ErrorCode, message string) {
	r.sendTo(playerID, mustEnvelope(protocol.TypeError, protocol.ErrorEvent{Code: code, Message: message}))
}

func (r *Room) sendErrToConn(connID string, code protocol.ErrorCode, message string) {
	s, ok := r.connections[connID]
	if !ok {
		return
	}
	s.Send(mustEnvelope(protocol.TypeError, protocol.ErrorEvent{Code: code, Message: message}))
}


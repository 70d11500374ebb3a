// Package hub owns the room registry: creating rooms, upgrading
// WebSocket connections and routing them to the right room's mailbox,
// and the admin HTTP surface (/health, /stats). It is the process-wide
// analogue of the teacher's GameServer, generalised from one global
// room table to many independent per-game Rooms.
package hub

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dobble-room-server/internal/applog"
	"dobble-room-server/internal/config"
	"dobble-room-server/internal/protocol"
	"dobble-room-server/internal/ratelimit"
	"dobble-room-server/internal/room"
	"dobble-room-server/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub is the process-wide room registry and connection router.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room

	cfg     *config.Config
	log     *zap.Logger
	catalog room.SymbolCatalog

	connLimiter *ratelimit.Limiter

	stopSweep chan struct{}
}

// New builds a Hub ready to serve rooms under the given configuration.
func New(cfg *config.Config) *Hub {
	h := &Hub{
		rooms:       make(map[string]*room.Room),
		cfg:         cfg,
		log:         applog.Get(),
		catalog:     room.NewDefaultCatalog(),
		connLimiter: ratelimit.New(ratelimit.Config{WindowMs: 1000, MaxRequests: 20}),
		stopSweep:   make(chan struct{}),
	}
	go h.sweepLoop()
	return h
}

// CreateRoom allocates a fresh room, registers it, and starts its actor
// goroutine. Returns nil if the process is already hosting MaxRooms.
func (h *Hub) CreateRoom() *room.Room {
	id := generateRoomCode()

	h.mu.Lock()
	if len(h.rooms) >= h.cfg.MaxRooms {
		h.mu.Unlock()
		h.log.Warn("room creation refused, at capacity", zap.Int("maxRooms", h.cfg.MaxRooms))
		return nil
	}
	for h.rooms[id] != nil {
		id = generateRoomCode()
	}
	r := room.NewRoom(id, room.NewRealClock(), room.NewRealRand(), h.catalog, h.onRoomEmpty)
	h.rooms[id] = r
	h.mu.Unlock()

	go r.Run()
	h.log.Info("room created", zap.String("roomId", id))
	return r
}

func (h *Hub) onRoomEmpty(id string) {
	h.mu.Lock()
	delete(h.rooms, id)
	h.mu.Unlock()
	h.log.Info("room removed", zap.String("roomId", id))
}

// getRoom looks up a registered room by id.
func (h *Hub) getRoom(id string) (*room.Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

// HandleWebSocket upgrades the connection and attaches it to the room
// named by the "roomId" path variable. The room must already exist
// (allocated through CreateRoomHandler); an unknown id gets a 404 and
// no room is created here.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	remoteKey := req.RemoteAddr
	if !h.connLimiter.Allow(remoteKey) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}

	roomID := mux.Vars(req)["roomId"]
	r, ok := h.getRoom(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	c := transport.NewConnection(connID, conn, r, applog.RoomConn(roomID, connID))
	r.Attach(connID, c)

	if reconnectID := req.URL.Query().Get("reconnectId"); reconnectID != "" {
		r.Submit(connID, mustEnvelope(protocol.TypeReconnect, protocol.ReconnectRequest{PlayerID: reconnectID}))
	}

	go c.WritePump()
	c.ReadPump()
}

// CreateRoomHandler is a thin HTTP endpoint so a lobby/matchmaking
// front-end (out of scope per spec.md §1) can allocate a room and learn
// its id before directing a client to the WebSocket endpoint.
func (h *Hub) CreateRoomHandler(w http.ResponseWriter, _ *http.Request) {
	r := h.CreateRoom()
	if r == nil {
		http.Error(w, "server at capacity", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"roomId": r.ID()})
}

// HealthHandler answers a liveness probe.
func (h *Hub) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// StatsHandler reports room counts and a per-room snapshot, useful for
// dashboards and smoke tests.
func (h *Hub) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.rooms))
	rs := make([]*room.Room, 0, len(h.rooms))
	for id, r := range h.rooms {
		ids = append(ids, id)
		rs = append(rs, r)
	}
	h.mu.RUnlock()

	type roomStat struct {
		RoomID      string `json:"roomId"`
		Phase       string `json:"phase"`
		Players     int    `json:"players"`
		Connected   int    `json:"connected"`
		RoundNumber int    `json:"roundNumber"`
	}
	out := make([]roomStat, 0, len(rs))
	for _, r := range rs {
		if s, ok := r.Stats(); ok {
			out = append(out, roomStat{
				RoomID:      s.ID,
				Phase:       s.Phase,
				Players:     s.PlayerCount,
				Connected:   s.ConnectedCount,
				RoundNumber: s.RoundNumber,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"roomCount": len(ids),
		"rooms":     out,
	})
}

// Router builds the full mux for cmd/server to serve.
func (h *Hub) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.StatsHandler).Methods(http.MethodGet)
	r.HandleFunc("/rooms", h.CreateRoomHandler).Methods(http.MethodPost)
	r.HandleFunc("/ws/{roomId}", h.HandleWebSocket)
	return r
}

// sweepLoop periodically evicts rooms whose actor goroutine has already
// exited (a lobby timeout firing in Waiting, including the one re-armed
// after a no-rematch reset), per spec.md §9's "rooms are ephemeral."
func (h *Hub) sweepLoop() {
	interval := h.cfg.RoomSweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.sweepOnce()
		case <-h.stopSweep:
			return
		}
	}
}

func (h *Hub) sweepOnce() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, r := range h.rooms {
		select {
		case <-r.Done():
			delete(h.rooms, id)
		default:
		}
	}
}

// Shutdown stops every room and the sweep loop.
func (h *Hub) Shutdown() {
	close(h.stopSweep)
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.rooms {
		r.Stop()
	}
}

func generateRoomCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, 5)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

func mustEnvelope(msgType string, payload interface{}) protocol.Envelope {
	env, err := protocol.NewEnvelope(msgType, payload)
	if err != nil {
		panic("hub: payload not encodable: " + err.Error())
	}
	return env
}

// Package transport adapts a gorilla/websocket connection to the
// room.Sender seam: ReadPump decodes inbound frames and hands them to a
// Room's mailbox, WritePump serialises outbound envelopes and drives
// the ping/pong keepalive. Neither pump ever touches Room state
// directly (dobble-room-server/internal/room owns that single-threaded).
package transport

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dobble-room-server/internal/protocol"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	maxMsgBytes = 8192
	sendBufSize = 64
)

// RoomMailbox is the subset of *room.Room a Connection needs, kept as
// an interface so this package does not import room (avoiding a cycle;
// the hub wires the concrete type in).
type RoomMailbox interface {
	Submit(connID string, env protocol.Envelope)
	Detach(connID string)
}

// Connection wraps one client's WebSocket and implements room.Sender.
type Connection struct {
	id   string
	conn *websocket.Conn
	room RoomMailbox
	log  *zap.Logger

	send chan protocol.Envelope
}

// NewConnection wires a fresh upgraded socket to its owning room.
func NewConnection(id string, conn *websocket.Conn, room RoomMailbox, log *zap.Logger) *Connection {
	return &Connection{
		id:   id,
		conn: conn,
		room: room,
		log:  log,
		send: make(chan protocol.Envelope, sendBufSize),
	}
}

// Send queues an envelope for delivery. Never blocks: a full buffer
// means a wedged client, and the message is dropped rather than
// stalling the Room's actor loop (spec.md §5's fire-and-forget send).
func (c *Connection) Send(env protocol.Envelope) {
	select {
	case c.send <- env:
	default:
		c.log.Warn("send buffer full, dropping message", zap.String("type", env.Type))
	}
}

// Close tears down the outbound channel; WritePump notices and closes
// the socket.
func (c *Connection) Close() {
	defer func() { recover() }() // tolerate a double Close
	close(c.send)
}

// ReadPump decodes inbound frames and submits them to the room until
// the socket errors or closes.
func (c *Connection) ReadPump() {
	defer func() {
		c.room.Detach(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read error", zap.Error(err))
			}
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Debug("malformed envelope", zap.Error(err))
			continue
		}
		c.room.Submit(c.id, env)
	}
}

// WritePump serialises queued envelopes to the socket and sends
// periodic pings, per the keepalive discipline spec.md §5 delegates to
// the transport.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			raw, err := json.Marshal(env)
			if err != nil {
				c.log.Error("envelope marshal failed", zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Package protocol defines the wire format between a Room and its clients:
// the envelope shape, the catalog of message types, and the request/event
// payloads carried inside it.
package protocol

import "encoding/json"

// Envelope is the unified message format for every WebSocket frame in
// either direction.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an Envelope of the given type. A
// marshal failure here means a server-side payload type is broken, not
// something a caller can recover from, so it is surfaced as an error
// rather than silently dropped.
func NewEnvelope(msgType string, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: msgType, Payload: raw}, nil
}

// Decode unmarshals an envelope's payload into dst.
func Decode(env Envelope, dst interface{}) error {
	return json.Unmarshal(env.Payload, dst)
}

// Client -> Server message types.
const (
	TypeJoin          = "join"
	TypeReconnect     = "reconnect"
	TypeSetConfig     = "set_config"
	TypeStartGame     = "start_game"
	TypeMatchAttempt  = "match_attempt"
	TypeLeave         = "leave"
	TypeKickPlayer    = "kick_player"
	TypePing          = "ping"
	TypePlayAgain     = "play_again"
)

// Server -> Client message types.
const (
	TypeRoomState          = "room_state"
	TypePlayerJoined       = "player_joined"
	TypePlayerLeft         = "player_left"
	TypePlayerDisconnected = "player_disconnected"
	TypePlayerReconnected  = "player_reconnected"
	TypeConfigUpdated      = "config_updated"
	TypeCountdown          = "countdown"
	TypeRoundStart         = "round_start"
	TypeRoundWinner        = "round_winner"
	TypeGameOver           = "game_over"
	TypePenalty            = "penalty"
	TypeRoomExpired        = "room_expired"
	TypeHostChanged        = "host_changed"
	TypeError              = "error"
	TypePong               = "pong"
	TypeYouAreHost         = "you_are_host"
	TypePlayAgainAck       = "play_again_ack"
	TypeSoloRejoinBoot     = "solo_rejoin_boot"
	TypeRoomReset          = "room_reset"
)

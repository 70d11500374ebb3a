package protocol

// JoinRequest is the payload of a "join" message.
type JoinRequest struct {
	PlayerName string `json:"playerName"`
}

// ReconnectRequest is the payload of an in-band "reconnect" message.
type ReconnectRequest struct {
	PlayerID string `json:"playerId"`
}

// SetConfigRequest is the payload of a "set_config" message.
type SetConfigRequest struct {
	Config RoomConfig `json:"config"`
}

// StartGameRequest is the payload of a "start_game" message.
type StartGameRequest struct {
	Config *RoomConfig `json:"config,omitempty"`
}

// MatchAttemptRequest is the payload of a "match_attempt" message.
type MatchAttemptRequest struct {
	SymbolID        int   `json:"symbolId"`
	ClientTimestamp int64 `json:"clientTimestamp"`
}

// KickPlayerRequest is the payload of a "kick_player" message.
type KickPlayerRequest struct {
	PlayerID string `json:"playerId"`
}

// PingRequest is the payload of a "ping" message.
type PingRequest struct {
	Timestamp int64 `json:"timestamp"`
}

// RoomConfig mirrors spec.md's Configuration data model.
type RoomConfig struct {
	CardLayout   string   `json:"cardLayout"`
	CardSetID    string   `json:"cardSetId"`
	GameDuration int      `json:"gameDuration"`
	CustomSymbols []int   `json:"customSymbols,omitempty"`
}

const (
	CardLayoutOrderly = "orderly"
	CardLayoutChaotic = "chaotic"
)

package room

import "dobble-room-server/internal/protocol"

// Sender is the transport-facing seam a Room uses to talk back to one
// connection. The Room never blocks on it: a slow/full client is the
// transport's problem, not the actor's (spec.md §5).
type Sender interface {
	Send(env protocol.Envelope)
	Close()
}

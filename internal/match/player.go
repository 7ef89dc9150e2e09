package match

import (
	"time"

	"matchcoordinator/internal/scheduler"
)

// Socket is the narrow handle a ServerGame holds onto a connected
// player's transport. The concrete implementation lives in
// internal/transport; this package only needs to notify and detach.
type Socket interface {
	// SendJSON delivers a single outbound message under the given route
	// ("game" or "general") and action (e.g. "move", "opponentafk").
	// Implementations must preserve per-socket send order (spec §5).
	SendJSON(route, action string, payload any) error
	Close() error
}

// DisconnectState is the per-color cushion/auto-resign timer bookkeeping
// from spec §3. The three fields besides StartID are jointly defined or
// jointly undefined.
type DisconnectState struct {
	StartID       scheduler.Handle // the 5s cushion timer, independent lifetime
	TimeoutID     scheduler.Handle // the auto-resign timer
	TimeToAutoLoss *time.Time
	WasByChoice    *bool
}

// Armed reports whether the auto-resign timer has actually started
// (TimeToAutoLoss defined), as opposed to only the cushion being pending.
func (d DisconnectState) Armed() bool {
	return d.TimeToAutoLoss != nil
}

// PlayerData is one color's seat in a match (spec §3).
type PlayerData struct {
	Identifier PlayerIdentity
	Socket     Socket // nil when disconnected

	LastOfferPly *int

	Disconnect DisconnectState
}

package match

import (
	"time"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/scheduler"
)

// Publicity is whether a match is discoverable/joinable by spectators or
// resync-by-id lookups outside its two participants.
type Publicity int

const (
	Public Publicity = iota
	Private
)

// MatchInfo is the server-only bookkeeping alongside a BaseGame (spec §3).
type MatchInfo struct {
	ID         int64
	TimeCreated time.Time
	TimeEnded   *time.Time

	Publicity Publicity
	Rated     bool

	PlayerData map[clock.Color]*PlayerData

	AutoTimeLossTimeoutID   scheduler.Handle
	AutoAFKResignTimeoutID  scheduler.Handle
	AutoAFKResignTime       *time.Time
	DrawOfferState          *clock.Color
	DeleteTimeoutID         scheduler.Handle

	// PositionPasted is a one-way latch (spec §9 open question #3): once
	// true, the game must never be persisted on deletion (invariant 7).
	PositionPasted bool
}

// NewMatchInfo builds the match bookkeeping for a freshly created game.
func NewMatchInfo(id int64, publicity Publicity, rated bool, now time.Time) *MatchInfo {
	return &MatchInfo{
		ID:          id,
		TimeCreated: now,
		Publicity:   publicity,
		Rated:       rated,
		PlayerData:  make(map[clock.Color]*PlayerData, 2),
	}
}

// Opponent returns the color on the other side of c. Panics on Neutral,
// matching clock.Color.Invert.
func Opponent(c clock.Color) clock.Color { return c.Invert() }

// ServerGame bundles the variant-agnostic game state with its match
// bookkeeping, keyed by MatchInfo.ID in the registry (spec §3).
type ServerGame struct {
	Base  *BaseGame
	Match *MatchInfo
}

// State is the ServerGame lifecycle state from spec §4.8's state machine.
type State int

const (
	StateRunning State = iota
	StateConcluded
	StateDeleted
)

// State reports which of RUNNING/CONCLUDED/DELETED the game is in. DELETED
// is only meaningful to callers holding a reference after the registry has
// already dropped the game; the registry itself never hands one out.
func (g *ServerGame) State() State {
	switch {
	case g.Base.Conclusion == nil:
		return StateRunning
	case g.Match.DeleteTimeoutID == nil:
		return StateDeleted
	default:
		return StateConcluded
	}
}

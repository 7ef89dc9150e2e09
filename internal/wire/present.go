package wire

import (
	"time"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
)

// ParticipantStates builds the participantState slice sent on joingame and
// gameupdate, shared by the registry's broadcasts and the router's resync.
func ParticipantStates(g *match.ServerGame) []ParticipantState {
	states := make([]ParticipantState, 0, len(g.Match.PlayerData))
	for color, pd := range g.Match.PlayerData {
		states = append(states, ParticipantState{
			Color:        color,
			DisplayName:  pd.Identifier.DisplayName(),
			IsMember:     pd.Identifier.IsMember(),
			Disconnected: pd.Disconnect.Armed(),
		})
	}
	return states
}

// ClockValuesFor snapshots g's clocks as of now, or nil for an untimed game.
func ClockValuesFor(g *match.ServerGame, now time.Time) *ClockValues {
	if g.Base.Untimed() {
		return nil
	}
	snap := clock.Snapshot(g.Base, now)
	values := make(map[string]int64, len(snap.Clocks))
	for c, v := range snap.Clocks {
		values[c.String()] = v
	}
	return &ClockValues{Clocks: values, ColorTicking: snap.ColorTicking}
}

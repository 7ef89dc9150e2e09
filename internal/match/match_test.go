package match_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
)

func newGame(timed bool) *match.BaseGame {
	var clocks *clock.Clocks
	if timed {
		clocks = clock.NewClocks(60_000, 2_000)
	}
	return match.NewBaseGame("chess", match.GameRules{
		TurnOrder: []clock.Color{clock.White, clock.Black},
	}, map[string]string{}, clocks)
}

func TestConclude_Idempotent(t *testing.T) {
	g := newGame(false)
	victor := clock.White
	g.Conclude(match.Conclusion{Victor: &victor, Condition: match.ConditionResignation}, time.Now())
	first := g.Conclusion
	g.Conclude(match.Conclusion{Victor: nil, Condition: match.ConditionAborted}, time.Now())
	require.Same(t, first, g.Conclusion)
}

func TestResignableAndAbortable(t *testing.T) {
	g := newGame(false)
	require.True(t, g.Abortable())
	require.False(t, g.Resignable())

	g.AppendMove(match.Move{Compact: "1,2>1,3"}, time.Now())
	require.True(t, g.Abortable())
	require.False(t, g.Resignable())

	g.AppendMove(match.Move{Compact: "6,7>6,6"}, time.Now())
	require.False(t, g.Abortable())
	require.True(t, g.Resignable())
	require.True(t, g.BorderlineResignable())
}

func TestDrawOffer_Throttle(t *testing.T) {
	g := newGame(false)
	m := match.NewMatchInfo(1, match.Public, false, time.Now())
	m.PlayerData[clock.White] = &match.PlayerData{Identifier: match.NewGuest("w")}
	m.PlayerData[clock.Black] = &match.PlayerData{Identifier: match.NewGuest("b")}

	g.AppendMove(match.Move{Compact: "a"}, time.Now())
	g.AppendMove(match.Move{Compact: "b"}, time.Now())

	require.True(t, match.DrawOpen(g, m, clock.White))
	require.True(t, match.DrawIsOpen(m))
	require.True(t, match.DrawHasOpenBy(m, clock.White))

	match.DrawClose(m)

	// Offering again immediately (0 new plies) must be throttled.
	require.True(t, match.DrawTooFast(g, m, clock.White))
	require.False(t, match.DrawOpen(g, m, clock.White))

	g.AppendMove(match.Move{Compact: "c"}, time.Now())
	g.AppendMove(match.Move{Compact: "d"}, time.Now())
	require.False(t, match.DrawTooFast(g, m, clock.White))
	require.True(t, match.DrawOpen(g, m, clock.White))
}

func TestIdentityEquality(t *testing.T) {
	a := match.NewMember("u1", "alice")
	b := match.NewMember("u1", "alice2")
	require.True(t, a.Equal(b), "members compare by user id only")

	g1 := match.NewGuest("br1")
	g2 := match.NewGuest("br1")
	require.True(t, g1.Equal(g2))
	require.False(t, a.Equal(g1))
}

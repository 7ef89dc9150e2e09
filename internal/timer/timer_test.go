package timer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
	"matchcoordinator/internal/scheduler"
	"matchcoordinator/internal/timer"
)

type fakeSocket struct {
	sent []sentMsg
}

type sentMsg struct {
	route, action string
	payload       any
}

func (s *fakeSocket) SendJSON(route, action string, payload any) error {
	s.sent = append(s.sent, sentMsg{route, action, payload})
	return nil
}
func (s *fakeSocket) Close() error { return nil }

func newUntimedGame() *match.ServerGame {
	base := match.NewBaseGame("chess", match.GameRules{
		TurnOrder: []clock.Color{clock.White, clock.Black},
	}, nil, nil)
	base.AppendMove(match.Move{Compact: "1"}, time.Now())
	base.AppendMove(match.Move{Compact: "2"}, time.Now())
	// Now resignable (2 plies) and it's White's turn again? Turn order
	// White,Black: after 2 moves whosTurn = order[2%2]=White.
	m := match.NewMatchInfo(1, match.Public, false, time.Now())
	white := &fakeSocket{}
	black := &fakeSocket{}
	m.PlayerData[clock.White] = &match.PlayerData{Identifier: match.NewGuest("w"), Socket: white}
	m.PlayerData[clock.Black] = &match.PlayerData{Identifier: match.NewGuest("b"), Socket: black}
	return &match.ServerGame{Base: base, Match: m}
}

func TestOnAFK_NotifiesOpponentAndResignsAfterDeadline(t *testing.T) {
	v := scheduler.NewVirtual(time.Unix(0, 0))
	e := timer.New(v, nil, timer.Config{})
	g := newUntimedGame()

	var resignedWinner *clock.Color
	ok := e.OnAFK(g, clock.White, func(sg *match.ServerGame, winner clock.Color) {
		resignedWinner = &winner
	})
	require.True(t, ok)

	blackSock := g.Match.PlayerData[clock.Black].Socket.(*fakeSocket)
	require.Len(t, blackSock.sent, 1)
	require.Equal(t, "opponentafk", blackSock.sent[0].action)

	v.Advance(19 * time.Second)
	require.Nil(t, resignedWinner)
	v.Advance(2 * time.Second)
	require.NotNil(t, resignedWinner)
	require.Equal(t, clock.Black, *resignedWinner)
}

func TestOnAFKReturn_CancelsAndNotifies(t *testing.T) {
	v := scheduler.NewVirtual(time.Unix(0, 0))
	e := timer.New(v, nil, timer.Config{})
	g := newUntimedGame()

	e.OnAFK(g, clock.White, func(*match.ServerGame, clock.Color) { t.Fatal("must not fire") })
	ok := e.OnAFKReturn(g, clock.White)
	require.True(t, ok)

	blackSock := g.Match.PlayerData[clock.Black].Socket.(*fakeSocket)
	require.Len(t, blackSock.sent, 2)
	require.Equal(t, "opponentafkreturn", blackSock.sent[1].action)

	v.Advance(30 * time.Second)
	require.Nil(t, g.Match.AutoAFKResignTimeoutID)
}

func TestDisconnect_NotByChoiceUsesCushionThenLongTimeout(t *testing.T) {
	v := scheduler.NewVirtual(time.Unix(0, 0))
	e := timer.New(v, nil, timer.Config{})
	g := newUntimedGame()

	var resignedWinner *clock.Color
	e.OnSocketClosed(g, clock.White, true, func(sg *match.ServerGame, winner clock.Color) {
		resignedWinner = &winner
	})

	// Cushion hasn't fired yet: opponent shouldn't have a message yet.
	blackSock := g.Match.PlayerData[clock.Black].Socket.(*fakeSocket)
	require.Empty(t, blackSock.sent)

	v.Advance(5 * time.Second) // cushion fires, arms the 60s not-by-choice timer
	require.Len(t, blackSock.sent, 1)
	require.Equal(t, "opponentdisconnect", blackSock.sent[0].action)
	payload := blackSock.sent[0].payload.(map[string]any)
	require.Equal(t, int64(60_000), payload["millisUntilAutoDisconnectResign"])
	require.Equal(t, false, payload["wasByChoice"])

	v.Advance(59 * time.Second)
	require.Nil(t, resignedWinner)
	v.Advance(2 * time.Second)
	require.NotNil(t, resignedWinner)
	require.Equal(t, clock.Black, *resignedWinner)
}

func TestDisconnect_ByChoiceStartsImmediatelyWith20s(t *testing.T) {
	v := scheduler.NewVirtual(time.Unix(0, 0))
	e := timer.New(v, nil, timer.Config{})
	g := newUntimedGame()

	e.OnSocketClosed(g, clock.White, false, func(*match.ServerGame, clock.Color) {})

	blackSock := g.Match.PlayerData[clock.Black].Socket.(*fakeSocket)
	require.Len(t, blackSock.sent, 1)
	payload := blackSock.sent[0].payload.(map[string]any)
	require.Equal(t, int64(20_000), payload["millisUntilAutoDisconnectResign"])
}

func TestCancelDisconnectTimer_NotifiesOnlyIfArmed(t *testing.T) {
	v := scheduler.NewVirtual(time.Unix(0, 0))
	e := timer.New(v, nil, timer.Config{})
	g := newUntimedGame()

	// Not-by-choice: cushion pending, timer not armed yet.
	e.OnSocketClosed(g, clock.White, true, func(*match.ServerGame, clock.Color) {})
	e.CancelDisconnectTimer(g, clock.White, false)
	blackSock := g.Match.PlayerData[clock.Black].Socket.(*fakeSocket)
	require.Empty(t, blackSock.sent, "cushion-only cancel must not notify")

	// By-choice: timer armed immediately.
	e.OnSocketClosed(g, clock.White, false, func(*match.ServerGame, clock.Color) {})
	e.CancelDisconnectTimer(g, clock.White, false)
	require.Len(t, blackSock.sent, 2)
	require.Equal(t, "opponentdisconnect", blackSock.sent[0].action)
	require.Equal(t, "opponentdisconnectreturn", blackSock.sent[1].action)
}

func TestDisconnect_AdoptsAFKDeadlineWithoutExtending(t *testing.T) {
	v := scheduler.NewVirtual(time.Unix(0, 0))
	e := timer.New(v, nil, timer.Config{})
	g := newUntimedGame()

	// White is AFK with a 20s deadline.
	e.OnAFK(g, clock.White, func(*match.ServerGame, clock.Color) {})

	v.Advance(5 * time.Second) // 15s left on the AFK clock

	var resignedAt time.Time
	e.OnSocketClosed(g, clock.White, false, func(*match.ServerGame, clock.Color) {
		resignedAt = v.Now()
	})
	// AFK timer should have been absorbed.
	require.Nil(t, g.Match.AutoAFKResignTimeoutID)

	v.Advance(14 * time.Second)
	require.True(t, resignedAt.IsZero())
	v.Advance(2 * time.Second)
	require.False(t, resignedAt.IsZero())
	// Deadline must equal the inherited AFK deadline (t=20s), not a fresh
	// 20s-by-choice timer from t=5s (which would fire at t=25s).
	require.Equal(t, time.Unix(20, 0), resignedAt)
}

func TestScheduleTimeLoss_FiresAtRemainingTime(t *testing.T) {
	v := scheduler.NewVirtual(time.Unix(0, 0))
	e := timer.New(v, nil, timer.Config{})

	base := match.NewBaseGame("chess", match.GameRules{
		TurnOrder: []clock.Color{clock.White, clock.Black},
	}, nil, clock.NewClocks(5_000, 0))
	base.AppendMove(match.Move{Compact: "1"}, v.Now())
	base.AppendMove(match.Move{Compact: "2"}, v.Now()) // ply 2 arms White's turn-start snapshot

	m := match.NewMatchInfo(2, match.Public, false, v.Now())
	m.PlayerData[clock.White] = &match.PlayerData{Identifier: match.NewGuest("w")}
	m.PlayerData[clock.Black] = &match.PlayerData{Identifier: match.NewGuest("b")}
	g := &match.ServerGame{Base: base, Match: m}

	var winner *clock.Color
	e.ScheduleTimeLoss(g, func(sg *match.ServerGame, w clock.Color) { winner = &w })

	v.Advance(4 * time.Second)
	require.Nil(t, winner)
	v.Advance(1 * time.Second)
	require.NotNil(t, winner)
	require.Equal(t, clock.Black, *winner)
}

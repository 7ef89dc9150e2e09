package router_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/gamecount"
	"matchcoordinator/internal/index"
	"matchcoordinator/internal/match"
	"matchcoordinator/internal/registry"
	"matchcoordinator/internal/repo/memory"
	"matchcoordinator/internal/router"
	"matchcoordinator/internal/rules"
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

func (s *fakeSocket) last() sentMsg { return s.sent[len(s.sent)-1] }

type fakeSub struct{}

func (fakeSub) BroadcastGameCount(int64) {}

func newHarness(t *testing.T) (*router.Router, *registry.Registry, *scheduler.Virtual) {
	t.Helper()
	sched := scheduler.NewVirtual(time.Unix(0, 0))
	idx := index.New()
	counter := gamecount.New(fakeSub{})
	timers := timer.New(sched, nil, timer.Config{})
	repo := memory.New()
	reg := registry.New(idx, counter, timers, sched, repo, repo, nil, nil)
	rt := router.New(reg, rules.ChessAdapter{}, nil)
	return rt, reg, sched
}

func newGame(t *testing.T, reg *registry.Registry, white, black *fakeSocket) *match.ServerGame {
	t.Helper()
	g, err := reg.CreateGame(context.Background(), registry.CreateGameParams{
		Variant: "chess",
		Rules:   match.GameRules{TurnOrder: []clock.Color{clock.White, clock.Black}},
		Metadata: map[string]string{},
		Rated:    true,
		Identities: map[clock.Color]match.PlayerIdentity{
			clock.White: match.NewMember("u1", "alice"),
			clock.Black: match.NewMember("u2", "bob"),
		},
		Sockets: map[clock.Color]match.Socket{
			clock.White: white,
			clock.Black: black,
		},
	})
	require.NoError(t, err)
	return g
}

func sessionFor(g *match.ServerGame, color clock.Color, sock match.Socket) *router.Session {
	s := &router.Session{Identity: g.Match.PlayerData[color].Identifier, Socket: sock}
	s.Subscribe(g.Match.ID, color)
	return s
}

func movePayload(move string, moveNumber int) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{"move": move, "moveNumber": moveNumber})
	return raw
}

func TestSubmitMove_LegalMoveAdvancesTurnAndNotifiesOpponent(t *testing.T) {
	rt, reg, _ := newHarness(t)
	white, black := &fakeSocket{}, &fakeSocket{}
	g := newGame(t, reg, white, black)
	sWhite := sessionFor(g, clock.White, white)

	rt.Dispatch(sWhite, "game", "submitmove", movePayload("2,2>2,4", 1))

	require.Len(t, g.Base.Moves, 1)
	last := black.last()
	require.Equal(t, "move", last.action)
}

func TestSubmitMove_WrongTurnIsRejected(t *testing.T) {
	rt, reg, _ := newHarness(t)
	white, black := &fakeSocket{}, &fakeSocket{}
	g := newGame(t, reg, white, black)
	sBlack := sessionFor(g, clock.Black, black)

	rt.Dispatch(sBlack, "game", "submitmove", movePayload("7,7>7,5", 1))

	require.Empty(t, g.Base.Moves)
	require.Equal(t, "printerror", black.last().action)
}

func TestSubmitMove_StaleMoveNumberTriggersResync(t *testing.T) {
	rt, reg, _ := newHarness(t)
	white, black := &fakeSocket{}, &fakeSocket{}
	g := newGame(t, reg, white, black)
	sWhite := sessionFor(g, clock.White, white)

	rt.Dispatch(sWhite, "game", "submitmove", movePayload("2,2>2,4", 2))

	require.Empty(t, g.Base.Moves)
	require.Equal(t, "gameupdate", white.last().action)
}

func TestSubmitMove_MalformedNotationIsRejectedWithoutCrashing(t *testing.T) {
	rt, reg, _ := newHarness(t)
	white, black := &fakeSocket{}, &fakeSocket{}
	g := newGame(t, reg, white, black)
	sWhite := sessionFor(g, clock.White, white)

	rt.Dispatch(sWhite, "game", "submitmove", movePayload("not-a-move", 1))

	require.Empty(t, g.Base.Moves)
	require.Equal(t, "notifyerror", white.last().action)
}

func TestAbort_BeforeSecondMoveConcludesAborted(t *testing.T) {
	rt, reg, _ := newHarness(t)
	white, black := &fakeSocket{}, &fakeSocket{}
	g := newGame(t, reg, white, black)
	sWhite := sessionFor(g, clock.White, white)

	rt.Dispatch(sWhite, "game", "abort", nil)

	require.Equal(t, match.ConditionAborted, g.Base.Conclusion.Condition)
}

func TestResign_AfterThreePliesAwardsOpponent(t *testing.T) {
	rt, reg, _ := newHarness(t)
	white, black := &fakeSocket{}, &fakeSocket{}
	g := newGame(t, reg, white, black)
	sWhite := sessionFor(g, clock.White, white)
	sBlack := sessionFor(g, clock.Black, black)

	rt.Dispatch(sWhite, "game", "submitmove", movePayload("2,2>2,4", 1))
	rt.Dispatch(sBlack, "game", "submitmove", movePayload("7,7>7,5", 2))
	rt.Dispatch(sWhite, "game", "submitmove", movePayload("7,1>6,3", 3))

	rt.Dispatch(sBlack, "game", "resign", nil)

	require.Equal(t, match.ConditionResignation, g.Base.Conclusion.Condition)
	require.Equal(t, clock.White, *g.Base.Conclusion.Victor)
}

func TestDrawFlow_OfferThenAcceptConcludesAgreement(t *testing.T) {
	rt, reg, _ := newHarness(t)
	white, black := &fakeSocket{}, &fakeSocket{}
	g := newGame(t, reg, white, black)
	sWhite := sessionFor(g, clock.White, white)
	sBlack := sessionFor(g, clock.Black, black)

	rt.Dispatch(sWhite, "game", "submitmove", movePayload("2,2>2,4", 1))
	rt.Dispatch(sBlack, "game", "submitmove", movePayload("7,7>7,5", 2))
	rt.Dispatch(sWhite, "game", "submitmove", movePayload("7,1>6,3", 3))
	rt.Dispatch(sBlack, "game", "submitmove", movePayload("2,8>3,6", 4))

	rt.Dispatch(sWhite, "game", "offerdraw", nil)
	require.Equal(t, "drawoffer", black.last().action)

	rt.Dispatch(sBlack, "game", "acceptdraw", nil)

	require.Equal(t, match.ConditionAgreement, g.Base.Conclusion.Condition)
	require.Equal(t, clock.Neutral, *g.Base.Conclusion.Victor)
}

func TestPaste_OnlyAllowedForPrivateCasualGames(t *testing.T) {
	rt, reg, _ := newHarness(t)
	white, black := &fakeSocket{}, &fakeSocket{}
	g := newGame(t, reg, white, black)
	sWhite := sessionFor(g, clock.White, white)

	rt.Dispatch(sWhite, "game", "paste", nil)

	require.False(t, g.Match.PositionPasted, "rated public games must reject paste")
	require.Equal(t, "printerror", white.last().action)
}

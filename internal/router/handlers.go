package router

import (
	"context"
	"encoding/json"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
	"matchcoordinator/internal/registry"
	"matchcoordinator/internal/wire"
)

// handleJoinGame implements spec §4.8's joingame: fetch by the socket's
// identity and, if it is seated in a live game, (re)subscribe it there.
func (rt *Router) handleJoinGame(s *Session) {
	gameID, ok := rt.reg.Index().GameIDOf(s.Identity)
	if !ok {
		rt.noGame(s)
		return
	}

	err := rt.reg.WithGame(gameID, func(g *match.ServerGame) error {
		color, ok := seatOf(g, s.Identity)
		if !ok {
			return registry.ErrNoSuchGame
		}
		pd := g.Match.PlayerData[color]
		pd.Socket = s.Socket
		s.Subscribe(gameID, color)

		payload := wire.JoinGamePayload{
			Metadata:         g.Base.Metadata,
			YouAreColor:      color,
			GameConclusion:   g.Base.Conclusion,
			Moves:            g.Base.Moves,
			ParticipantState: wire.ParticipantStates(g),
			ClockValues:      wire.ClockValuesFor(g, rt.reg.Now()),
		}
		_ = s.Socket.SendJSON(wire.RouteGame, wire.OutJoinGame, payload)

		wt := g.Base.WhosTurn()
		if wt != nil && *wt == color {
			rt.reg.Timers().OnAFKReturn(g, color)
		}
		rt.reg.Timers().CancelDisconnectTimer(g, color, false)
		return nil
	})
	if err != nil {
		rt.noGame(s)
	}
}

func seatOf(g *match.ServerGame, identity match.PlayerIdentity) (clock.Color, bool) {
	for color, pd := range g.Match.PlayerData {
		if pd.Identifier.Equal(identity) {
			return color, true
		}
	}
	return clock.Neutral, false
}

// handleRemoveFromPlayersInActiveGames implements spec §4.6/§4.8.
func (rt *Router) handleRemoveFromPlayersInActiveGames(s *Session) {
	if s.subscription == nil {
		return
	}
	sub := *s.subscription
	_ = rt.reg.WithGame(sub.gameID, func(g *match.ServerGame) error {
		rt.reg.OnRequestRemovalFromPlayersInActiveGames(g, sub.color)
		return nil
	})
	s.unsubscribe()
}

type resyncRequest struct {
	GameID int64 `json:"gameId"`
}

// handleResync implements spec §4.8's resync: prefer the live registry,
// falling back to the terminal persisted record, else "nogame".
func (rt *Router) handleResync(s *Session, raw json.RawMessage) {
	var req resyncRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		rt.hackLog(s, "malformed resync payload")
		rt.noGame(s)
		return
	}

	err := rt.reg.WithGame(req.GameID, func(g *match.ServerGame) error {
		color, ok := seatOf(g, s.Identity)
		if !ok {
			return registry.ErrNoSuchGame
		}
		s.Subscribe(req.GameID, color)
		rt.reg.Timers().CancelDisconnectTimer(g, color, false)

		payload := wire.JoinGamePayload{
			Metadata:         g.Base.Metadata,
			YouAreColor:      color,
			GameConclusion:   g.Base.Conclusion,
			Moves:            g.Base.Moves,
			ParticipantState: wire.ParticipantStates(g),
			ClockValues:      wire.ClockValuesFor(g, rt.reg.Now()),
		}
		_ = s.Socket.SendJSON(wire.RouteGame, wire.OutJoinGame, payload)
		return nil
	})
	if err == nil {
		return
	}

	data, found, getErr := rt.reg.GetGameData(context.Background(), req.GameID, nil)
	if getErr != nil || !found {
		rt.noGame(s)
		return
	}
	_ = s.Socket.SendJSON(wire.RouteGame, wire.OutLoggedGameInfo, data)
}

// handleAbort implements spec §4.8's abort.
func (rt *Router) handleAbort(s *Session) {
	rt.withSubscribedGame(s, func(g *match.ServerGame, color clock.Color) {
		if g.Base.Over() {
			return
		}
		if !g.Base.Abortable() && !g.Base.BorderlineResignable() {
			rt.printError(s, "this game can no longer be aborted")
			return
		}
		if g.Base.BorderlineResignable() {
			rt.log.Info("borderline-resignable abort", "game_id", g.Match.ID, "color", color)
		}
		rt.reg.SetGameConclusion(g, match.Conclusion{Condition: match.ConditionAborted}, rt.reg.Now())
	})
}

// handleResign implements spec §4.8's resign.
func (rt *Router) handleResign(s *Session) {
	rt.withSubscribedGame(s, func(g *match.ServerGame, color clock.Color) {
		if g.Base.Over() || !g.Base.Resignable() {
			rt.printError(s, "this game cannot be resigned")
			return
		}
		victor := color.Invert()
		rt.reg.SetGameConclusion(g, match.Conclusion{Victor: &victor, Condition: match.ConditionResignation}, rt.reg.Now())
	})
}

// handleOfferDraw implements spec §4.2/§4.8's offerdraw.
func (rt *Router) handleOfferDraw(s *Session) {
	rt.withSubscribedGame(s, func(g *match.ServerGame, color clock.Color) {
		if !match.DrawOpen(g.Base, g.Match, color) {
			rt.printError(s, "a draw offer is not available right now")
			return
		}
		opponent := g.Match.PlayerData[color.Invert()]
		if opponent.Socket != nil {
			_ = opponent.Socket.SendJSON(wire.RouteGame, wire.OutDrawOffer, nil)
		}
	})
}

// handleAcceptDraw implements spec §4.8's acceptdraw.
func (rt *Router) handleAcceptDraw(s *Session) {
	rt.withSubscribedGame(s, func(g *match.ServerGame, color clock.Color) {
		if g.Base.Over() || !match.DrawIsOpen(g.Match) || match.DrawHasOpenBy(g.Match, color) {
			rt.printError(s, "there is no draw offer to accept")
			return
		}
		match.DrawClose(g.Match)
		neutral := clock.Neutral
		rt.reg.SetGameConclusion(g, match.Conclusion{Victor: &neutral, Condition: match.ConditionAgreement}, rt.reg.Now())
	})
}

// handleDeclineDraw implements spec §4.8's declinedraw. A move submitted
// while an offer is open declines it too, inline in submitMoveLocked.
func (rt *Router) handleDeclineDraw(s *Session) {
	rt.withSubscribedGame(s, func(g *match.ServerGame, color clock.Color) {
		if !match.DrawHasOpenBy(g.Match, color.Invert()) {
			return
		}
		match.DrawClose(g.Match)
		opponent := g.Match.PlayerData[color.Invert()]
		if opponent.Socket != nil {
			_ = opponent.Socket.SendJSON(wire.RouteGame, wire.OutDeclineDraw, nil)
		}
	})
}

// handleAFK implements spec §4.5's onAFK.
func (rt *Router) handleAFK(s *Session) {
	rt.withSubscribedGame(s, func(g *match.ServerGame, color clock.Color) {
		rt.reg.Timers().OnAFK(g, color, rt.reg.OnAbandon())
	})
}

// handleAFKReturn implements spec §4.5's onAFKReturn.
func (rt *Router) handleAFKReturn(s *Session) {
	rt.withSubscribedGame(s, func(g *match.ServerGame, color clock.Color) {
		rt.reg.Timers().OnAFKReturn(g, color)
	})
}

type reportRequest struct {
	Reason              string `json:"reason"`
	OpponentsMoveNumber int    `json:"opponentsMoveNumber"`
}

// handleReport implements spec §4.8's report: pops the perpetrating move,
// notifies both sides, and aborts the game.
func (rt *Router) handleReport(s *Session, raw json.RawMessage) {
	var req reportRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		rt.hackLog(s, "malformed report payload")
		return
	}

	rt.withSubscribedGame(s, func(g *match.ServerGame, color clock.Color) {
		if g.Match.Publicity == match.Private {
			rt.printError(s, "private games cannot be reported")
			return
		}
		if req.OpponentsMoveNumber <= 0 || req.OpponentsMoveNumber > len(g.Base.Moves) {
			rt.hackLog(s, "report targets a move that doesn't exist", "moveNumber", req.OpponentsMoveNumber)
			return
		}
		reportedMove := g.Base.Moves[req.OpponentsMoveNumber-1]
		reportedColor := g.Base.Rules.TurnOrder[(req.OpponentsMoveNumber-1)%len(g.Base.Rules.TurnOrder)]
		if reportedColor == color {
			rt.printError(s, "you cannot report your own move")
			return
		}

		g.Base.Moves = g.Base.Moves[:req.OpponentsMoveNumber-1]
		rt.log.Warn("move reported and removed", "game_id", g.Match.ID, "move", reportedMove.Compact, "reason", req.Reason)

		for _, pd := range g.Match.PlayerData {
			if pd.Socket != nil {
				_ = pd.Socket.SendJSON(wire.RouteGeneral, wire.OutNotify, map[string]string{"text": "a move was reported and the game has ended"})
			}
		}
		rt.reg.SetGameConclusion(g, match.Conclusion{Condition: match.ConditionAborted}, rt.reg.Now())
	})
}

// handlePaste implements spec §4.8's paste: a one-way latch that exempts
// the game from persistence when it eventually deletes.
func (rt *Router) handlePaste(s *Session) {
	rt.withSubscribedGame(s, func(g *match.ServerGame, color clock.Color) {
		_ = color
		if g.Match.Publicity != match.Private || g.Match.Rated {
			rt.printError(s, "this game cannot be pasted")
			return
		}
		g.Match.PositionPasted = true
	})
}

// HandleDisconnect implements spec §4.5 step 1's trigger: an established
// socket closing while still subscribed to a game. notByChoice distinguishes
// an abnormal close (the 5s cushion applies) from a normal one.
func (rt *Router) HandleDisconnect(s *Session, notByChoice bool) {
	if s.subscription == nil {
		return
	}
	sub := *s.subscription
	_ = rt.reg.WithGame(sub.gameID, func(g *match.ServerGame) error {
		pd := g.Match.PlayerData[sub.color]
		if pd.Socket != s.Socket {
			return nil
		}
		pd.Socket = nil
		rt.reg.Timers().OnSocketClosed(g, sub.color, notByChoice, rt.reg.OnAbandon())
		return nil
	})
}

// withSubscribedGame runs fn inside the game the session is subscribed to,
// sending "nogame" if the session has no subscription or the game is gone.
func (rt *Router) withSubscribedGame(s *Session, fn func(g *match.ServerGame, color clock.Color)) {
	if s.subscription == nil {
		rt.noGame(s)
		return
	}
	sub := *s.subscription
	err := rt.reg.WithGame(sub.gameID, func(g *match.ServerGame) error {
		fn(g, sub.color)
		return nil
	})
	if err != nil {
		rt.noGame(s)
	}
}

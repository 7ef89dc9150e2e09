// Package router dispatches decoded inbound websocket frames to the move-
// submission and game-lifecycle handlers spec §4.7/§4.8 describe, replacing
// a switch-over-strings dispatcher with typed payloads per action (spec §9
// "Dynamic dispatch in the router").
package router

import (
	"encoding/json"
	"log/slog"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
	"matchcoordinator/internal/registry"
	"matchcoordinator/internal/rules"
	"matchcoordinator/internal/wire"
)

// Session is the router-visible state of one connected socket: the
// identity it authenticated as and, once joined, which game/color it is
// subscribed to. Spec §9's "cyclic references" note: this only ever holds
// a {gameId,color} back-reference, never the game object itself.
type Session struct {
	Identity match.PlayerIdentity
	Socket   match.Socket

	subscription *subscription
}

type subscription struct {
	gameID int64
	color  clock.Color
}

// Subscribe attaches the session to a live game/color, e.g. after
// createGame or a successful joingame.
func (s *Session) Subscribe(gameID int64, color clock.Color) {
	s.subscription = &subscription{gameID: gameID, color: color}
}

func (s *Session) unsubscribe() {
	s.subscription = nil
}

// Router is the single dispatcher handed every decoded frame for a session.
type Router struct {
	reg      *registry.Registry
	legality rules.LegalityAdapter
	log      *slog.Logger
}

func New(reg *registry.Registry, legality rules.LegalityAdapter, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{reg: reg, legality: legality, log: log}
}

// Dispatch routes one inbound frame to its handler (spec §6's action table).
func (rt *Router) Dispatch(s *Session, route, action string, payload json.RawMessage) {
	if route != wire.RouteGame {
		rt.log.Warn("unknown inbound route", "route", route)
		return
	}

	switch action {
	case wire.ActionSubmitMove:
		rt.handleSubmitMove(s, payload)
	case wire.ActionJoinGame:
		rt.handleJoinGame(s)
	case wire.ActionRemoveFromPlayersInActiveGames:
		rt.handleRemoveFromPlayersInActiveGames(s)
	case wire.ActionResync:
		rt.handleResync(s, payload)
	case wire.ActionAbort:
		rt.handleAbort(s)
	case wire.ActionResign:
		rt.handleResign(s)
	case wire.ActionOfferDraw:
		rt.handleOfferDraw(s)
	case wire.ActionAcceptDraw:
		rt.handleAcceptDraw(s)
	case wire.ActionDeclineDraw:
		rt.handleDeclineDraw(s)
	case wire.ActionAFK:
		rt.handleAFK(s)
	case wire.ActionAFKReturn:
		rt.handleAFKReturn(s)
	case wire.ActionReport:
		rt.handleReport(s, payload)
	case wire.ActionPaste:
		rt.handlePaste(s)
	default:
		rt.log.Warn("unknown inbound action", "action", action)
	}
}

func (rt *Router) printError(s *Session, text string) {
	_ = s.Socket.SendJSON(wire.RouteGeneral, wire.OutPrintError, map[string]string{"text": text})
}

func (rt *Router) notifyError(s *Session, key string) {
	_ = s.Socket.SendJSON(wire.RouteGeneral, wire.OutNotifyError, map[string]string{"key": key})
}

func (rt *Router) hackLog(s *Session, reason string, fields ...any) {
	args := append([]any{"hack", true, "identity", s.Identity.DisplayName(), "reason", reason}, fields...)
	rt.log.Warn("tampered or malformed client message", args...)
}

func (rt *Router) noGame(s *Session) {
	_ = s.Socket.SendJSON(wire.RouteGame, wire.OutNoGame, nil)
}

// Package timer implements the AFK/disconnect/time-loss timer engine
// (spec §4.5): the only source of wall-clock-driven resignation in the
// coordinator besides the move clock itself.
package timer

import (
	"log/slog"
	"time"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
	"matchcoordinator/internal/scheduler"
	"matchcoordinator/internal/wire"
)

// Defaults from spec §4.5 / §6. They must match the client's copies;
// Config lets the operator's TOML file override them per-deployment.
const (
	DisconnectForgiveness = 5 * time.Second
	AutoResignByChoice    = 20 * time.Second
	AutoResignNotByChoice = 60 * time.Second
	AFKAutoResign         = 20 * time.Second
)

// Config holds the Engine's tunable durations. A zero field falls back to
// the spec default for that field, so the zero Config is the spec's
// defaults, matching the teacher's "a missing config key falls back" idiom
// (internal/config.Load).
type Config struct {
	DisconnectForgiveness time.Duration
	AutoResignByChoice    time.Duration
	AutoResignNotByChoice time.Duration
	AFKAutoResign         time.Duration
}

func (c Config) withDefaults() Config {
	if c.DisconnectForgiveness <= 0 {
		c.DisconnectForgiveness = DisconnectForgiveness
	}
	if c.AutoResignByChoice <= 0 {
		c.AutoResignByChoice = AutoResignByChoice
	}
	if c.AutoResignNotByChoice <= 0 {
		c.AutoResignNotByChoice = AutoResignNotByChoice
	}
	if c.AFKAutoResign <= 0 {
		c.AFKAutoResign = AFKAutoResign
	}
	return c
}

// Engine schedules and cancels the resignation timers for every live game.
// Callers (internal/registry, internal/router) must hold the per-game
// critical section around any Engine call on a given *match.ServerGame, so
// a late timer fire and a concurrent handler never race (spec §5).
type Engine struct {
	sched scheduler.Scheduler
	log   *slog.Logger
	cfg   Config
}

// New builds an Engine backed by sched, logging through log (or a default
// logger if log is nil). cfg's zero value is the spec's default durations.
func New(sched scheduler.Scheduler, log *slog.Logger, cfg Config) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{sched: sched, log: log, cfg: cfg.withDefaults()}
}

// OnSocketClosed begins the disconnect flow for color when its socket
// unexpectedly closes (spec §4.5 step 1). onResign is invoked with the
// winner's color if the auto-resign timer ever fires.
func (e *Engine) OnSocketClosed(g *match.ServerGame, color clock.Color, notByChoice bool, onResign func(*match.ServerGame, clock.Color)) {
	if g.Base.Over() {
		return
	}
	pd := g.Match.PlayerData[color]
	if notByChoice {
		handle := e.sched.Schedule(e.cfg.DisconnectForgiveness, func() {
			e.startDisconnectTimer(g, color, notByChoice, onResign)
		})
		pd.Disconnect.StartID = handle
		return
	}
	e.startDisconnectTimer(g, color, notByChoice, onResign)
}

// startDisconnectTimer arms the auto-resign timer for color, adopting a
// running AFK deadline for the same color when one exists (spec §4.5
// step 2, the "adoption lemma" of spec §8).
func (e *Engine) startDisconnectTimer(g *match.ServerGame, color clock.Color, notByChoice bool, onResign func(*match.ServerGame, clock.Color)) {
	if g.Base.Over() {
		return
	}
	now := e.sched.Now()

	defaultDur := e.cfg.AutoResignByChoice
	if notByChoice && g.Base.Resignable() {
		defaultDur = e.cfg.AutoResignNotByChoice
	}
	deadline := now.Add(defaultDur)

	wt := g.Base.WhosTurn()
	afkRunning := g.Match.AutoAFKResignTimeoutID != nil
	if wt != nil && *wt == color && afkRunning {
		afkDeadline := *g.Match.AutoAFKResignTime
		if afkDeadline.Before(deadline) {
			deadline = afkDeadline
		}
		e.CancelAutoAFKResignTimer(g, false)
	}

	wasByChoice := !notByChoice
	handle := e.sched.Schedule(deadline.Sub(now), func() {
		onResign(g, color.Invert())
	})

	pd := g.Match.PlayerData[color]
	pd.Disconnect.TimeoutID = handle
	deadlineCopy := deadline
	pd.Disconnect.TimeToAutoLoss = &deadlineCopy
	wbc := wasByChoice
	pd.Disconnect.WasByChoice = &wbc

	e.notifyOpponent(g, color, wire.OutOpponentDisconnect, map[string]any{
		"millisUntilAutoDisconnectResign": deadline.Sub(now).Milliseconds(),
		"wasByChoice":                     wasByChoice,
	})
}

// CancelDisconnectTimer clears color's disconnect bookkeeping (spec §4.5
// step 3). If the auto-resign timer had actually started, the opponent is
// notified unless dontNotifyOpponent is set.
func (e *Engine) CancelDisconnectTimer(g *match.ServerGame, color clock.Color, dontNotifyOpponent bool) {
	pd := g.Match.PlayerData[color]
	wasArmed := pd.Disconnect.Armed()

	if pd.Disconnect.StartID != nil {
		pd.Disconnect.StartID.Cancel()
	}
	if pd.Disconnect.TimeoutID != nil {
		pd.Disconnect.TimeoutID.Cancel()
	}
	pd.Disconnect.StartID = nil
	pd.Disconnect.TimeoutID = nil
	pd.Disconnect.TimeToAutoLoss = nil
	pd.Disconnect.WasByChoice = nil

	if wasArmed && !dontNotifyOpponent {
		e.notifyOpponent(g, color, wire.OutOpponentDisconnectRtn, nil)
	}
}

// CancelDisconnectTimers clears both colors' disconnect timers without
// notifying either opponent (spec §4.5 step 4), used on conclusion.
func (e *Engine) CancelDisconnectTimers(g *match.ServerGame) {
	e.CancelDisconnectTimer(g, clock.White, true)
	e.CancelDisconnectTimer(g, clock.Black, true)
}

// OnAFK starts the AFK auto-resign timer for color (spec §4.5's untimed
// AFK flow). It reports false and does nothing if a precondition fails.
func (e *Engine) OnAFK(g *match.ServerGame, color clock.Color, onAbandon func(*match.ServerGame, clock.Color)) bool {
	if !e.afkPreconditions(g, color) {
		return false
	}
	if g.Match.PlayerData[color].Disconnect.Armed() {
		return false
	}

	now := e.sched.Now()
	deadline := now.Add(e.cfg.AFKAutoResign)
	handle := e.sched.Schedule(e.cfg.AFKAutoResign, func() {
		onAbandon(g, color.Invert())
	})
	g.Match.AutoAFKResignTimeoutID = handle
	g.Match.AutoAFKResignTime = &deadline

	e.notifyOpponent(g, color, wire.OutOpponentAFK, map[string]any{
		"millisUntilAutoAFKResign": e.cfg.AFKAutoResign.Milliseconds(),
	})
	return true
}

// OnAFKReturn cancels an active AFK timer for color and notifies the
// opponent (spec §4.5). It is a no-op if no AFK timer is running.
func (e *Engine) OnAFKReturn(g *match.ServerGame, color clock.Color) bool {
	if !e.afkPreconditions(g, color) {
		return false
	}
	if g.Match.AutoAFKResignTimeoutID == nil {
		return false
	}
	e.CancelAutoAFKResignTimer(g, true)
	return true
}

func (e *Engine) afkPreconditions(g *match.ServerGame, color clock.Color) bool {
	if g.Base.Over() || !g.Base.Untimed() || !g.Base.Resignable() {
		return false
	}
	wt := g.Base.WhosTurn()
	return wt != nil && *wt == color
}

// CancelAutoAFKResignTimer clears the AFK timer fields. When alertOpponent
// is set and a timer was actually running, the opponent of whosTurn
// receives "opponentafkreturn" (spec §4.5).
func (e *Engine) CancelAutoAFKResignTimer(g *match.ServerGame, alertOpponent bool) {
	wasSet := g.Match.AutoAFKResignTimeoutID != nil
	if wasSet {
		g.Match.AutoAFKResignTimeoutID.Cancel()
	}
	g.Match.AutoAFKResignTimeoutID = nil
	g.Match.AutoAFKResignTime = nil

	if !wasSet || !alertOpponent {
		return
	}
	wt := g.Base.WhosTurn()
	if wt == nil {
		e.log.Error("afk timer cancelled with no whosTurn set", "game_id", g.Match.ID)
		return
	}
	e.notifyOpponent(g, *wt, wire.OutOpponentAFKReturn, nil)
}

// ScheduleTimeLoss arms the resign-on-time timer after a clock push in a
// timed game, cancelling any previous one first (spec §4.5's "Resign-on-
// time path").
func (e *Engine) ScheduleTimeLoss(g *match.ServerGame, onTimeLoss func(*match.ServerGame, clock.Color)) {
	e.CancelTimeLoss(g.Match)

	if g.Base.Over() || g.Base.Untimed() || !g.Base.Resignable() {
		return
	}
	c := g.Base.Clocks()
	if c.TimeRemainAtTurnStart == nil {
		return
	}
	remain := *c.TimeRemainAtTurnStart
	if remain < 0 {
		remain = 0
	}
	wt := g.Base.WhosTurn()
	if wt == nil {
		return
	}
	color := *wt
	g.Match.AutoTimeLossTimeoutID = e.sched.Schedule(time.Duration(remain)*time.Millisecond, func() {
		onTimeLoss(g, color.Invert())
	})
}

// CancelTimeLoss cancels the resign-on-time timer, if any.
func (e *Engine) CancelTimeLoss(m *match.MatchInfo) {
	if m.AutoTimeLossTimeoutID != nil {
		m.AutoTimeLossTimeoutID.Cancel()
		m.AutoTimeLossTimeoutID = nil
	}
}

// CancelAll cancels every timer on g: time-loss, AFK, and both disconnect
// timers, without notifying anyone (spec §4.6 onGameConclusion).
func (e *Engine) CancelAll(g *match.ServerGame) {
	e.CancelTimeLoss(g.Match)
	e.CancelAutoAFKResignTimer(g, false)
	e.CancelDisconnectTimers(g)
}

func (e *Engine) notifyOpponent(g *match.ServerGame, color clock.Color, action string, payload any) {
	opp := g.Match.PlayerData[color.Invert()]
	if opp == nil || opp.Socket == nil {
		return
	}
	if err := opp.Socket.SendJSON(wire.RouteGame, action, payload); err != nil {
		e.log.Warn("failed to notify opponent", "game_id", g.Match.ID, "action", action, "error", err)
	}
}

// Package registry is the MatchRegistry & Lifecycle component (spec §4.6):
// it owns every live ServerGame, the active-games counter, and the player
// index, and is the only place createGame/deleteGame/onGameConclusion run.
// Grounded on the teacher's MatchStorage (server/game/storage.go) map-plus-
// mutex shape, generalized from a single global mutex to one coarse lock
// per game (spec §5) so unrelated games never serialize behind each other.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/gamecount"
	"matchcoordinator/internal/index"
	"matchcoordinator/internal/match"
	"matchcoordinator/internal/repo"
	"matchcoordinator/internal/scheduler"
	"matchcoordinator/internal/timer"
	"matchcoordinator/internal/wire"
)

// deleteCushion is timeBeforeGameDeletionMillis from spec §4.6: the grace
// window clients have to see a result or dispute it before deleteGame runs.
const deleteCushion = 8 * time.Second

type entry struct {
	mu   sync.Mutex
	game *match.ServerGame
}

// Registry is the process-wide singleton spec §9's "Global mutable state"
// note asks for: it replaces module-level maps with an object passed to
// handlers, so tests can stand up independent registries.
type Registry struct {
	mu    sync.RWMutex
	games map[int64]*entry

	index    *index.Index
	counter  *gamecount.Counter
	timers   *timer.Engine
	sched    scheduler.Scheduler
	gameRepo repo.GameRepository
	unlogged repo.UnloggedGamesSink
	abuse    repo.RatingAbuseMonitor
	log      *slog.Logger
}

func New(idx *index.Index, counter *gamecount.Counter, timers *timer.Engine, sched scheduler.Scheduler, gameRepo repo.GameRepository, unlogged repo.UnloggedGamesSink, abuse repo.RatingAbuseMonitor, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		games:    map[int64]*entry{},
		index:    idx,
		counter:  counter,
		timers:   timers,
		sched:    sched,
		gameRepo: gameRepo,
		unlogged: unlogged,
		abuse:    abuse,
		log:      log,
	}
}

// Timers exposes the shared timer engine so the router can drive
// AFK/disconnect transitions that live outside the lifecycle methods above.
func (r *Registry) Timers() *timer.Engine { return r.timers }

// Index exposes the shared active-players index for lookups the router
// needs (e.g. joingame's "fetch by socket's identity").
func (r *Registry) Index() *index.Index { return r.index }

// OnAbandon exposes the disconnect/AFK-expiry resignation callback so the
// router can arm the AFK timer itself (spec §4.5's onAFK).
func (r *Registry) OnAbandon() func(*match.ServerGame, clock.Color) {
	return r.makeOnResign()
}

// ActiveGames reports the live GameCount, backing the health endpoint.
func (r *Registry) ActiveGames() int64 { return r.counter.Load() }

// Now returns the scheduler's notion of the current time, so callers
// outside the registry compute elapsed time against the same clock the
// timers use (real wall time in production, virtual time in tests).
func (r *Registry) Now() time.Time { return r.sched.Now() }

// GetGameData reaches past the live registry into the persistence layer,
// backing resync's terminal-record fallback (spec §4.8).
func (r *Registry) GetGameData(ctx context.Context, id int64, cols []string) (map[string]any, bool, error) {
	return r.gameRepo.GetGameData(ctx, id, cols)
}

// CreateGameParams is createGame's input (spec §4.6): identities are
// mandatory, sockets optional — an absent socket begins life disconnected.
type CreateGameParams struct {
	Variant    string
	Rules      match.GameRules
	Metadata   map[string]string
	Clocks     *clock.Clocks
	Publicity  match.Publicity
	Rated      bool
	Identities map[clock.Color]match.PlayerIdentity
	Sockets    map[clock.Color]match.Socket
}

// CreateGame implements spec §4.6's createGame.
func (r *Registry) CreateGame(ctx context.Context, p CreateGameParams) (*match.ServerGame, error) {
	now := r.sched.Now()

	id, err := r.mintUniqueGameID(ctx)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	base := match.NewBaseGame(p.Variant, p.Rules, p.Metadata, p.Clocks)
	info := match.NewMatchInfo(id, p.Publicity, p.Rated, now)
	for color, identity := range p.Identities {
		info.PlayerData[color] = &match.PlayerData{Identifier: identity}
	}
	game := &match.ServerGame{Base: base, Match: info}

	for color, pd := range info.PlayerData {
		socket := p.Sockets[color]
		if socket != nil {
			pd.Socket = socket
			r.sendJoinGame(game, color)
			continue
		}
		r.timers.OnSocketClosed(game, color, false, r.makeOnResign())
	}

	for _, identity := range p.Identities {
		r.index.Add(identity, id)
	}

	r.mu.Lock()
	r.games[id] = &entry{game: game}
	r.mu.Unlock()

	r.counter.Increment()
	r.log.Info("game created", "game_id", id, "variant", p.Variant, "rated", p.Rated)
	return game, nil
}

func (r *Registry) mintUniqueGameID(ctx context.Context) (int64, error) {
	for range 20 {
		id, err := r.gameRepo.GenUniqueGameID(ctx)
		if err != nil {
			return 0, err
		}
		r.mu.RLock()
		_, taken := r.games[id]
		r.mu.RUnlock()
		if !taken {
			return id, nil
		}
	}
	return 0, fmt.Errorf("registry: could not mint a game id unique in the live registry")
}

// WithGame acquires the per-game critical section for id and runs fn inside
// it, the single coarse lock spec §5 requires so move submission, timer
// fires, and every handler for one game serialize against each other.
func (r *Registry) WithGame(id int64, fn func(*match.ServerGame) error) error {
	r.mu.RLock()
	e, ok := r.games[id]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSuchGame
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.game)
}

// ErrNoSuchGame is returned by WithGame when id is not (or no longer) live.
var ErrNoSuchGame = fmt.Errorf("registry: no such active game")

// SetGameConclusion implements spec §4.6's setGameConclusion: idempotent
// with respect to activeGames, since BaseGame.Conclude is itself idempotent.
func (r *Registry) SetGameConclusion(g *match.ServerGame, c match.Conclusion, now time.Time) {
	alreadyOver := g.Base.Over()
	g.Base.Conclude(c, now)
	if alreadyOver {
		return
	}

	g.Base.Metadata["Result"] = pgnResult(c)
	g.Base.Metadata["Termination"] = string(c.Condition)

	r.onGameConclusion(g, now)
}

func pgnResult(c match.Conclusion) string {
	switch {
	case c.Victor == nil:
		return "*"
	case *c.Victor == clock.White:
		return "1-0"
	case *c.Victor == clock.Black:
		return "0-1"
	default:
		return "1/2-1/2"
	}
}

// onGameConclusion implements spec §4.6's onGameConclusion.
func (r *Registry) onGameConclusion(g *match.ServerGame, now time.Time) {
	r.counter.Decrement()
	r.timers.CancelAll(g)
	match.DrawClose(g.Match)

	if g.Match.TimeEnded == nil {
		te := now
		g.Match.TimeEnded = &te
	}

	r.broadcastGameUpdate(g)

	gameID := g.Match.ID
	g.Match.DeleteTimeoutID = r.sched.Schedule(deleteCushion, func() {
		_ = r.WithGame(gameID, func(live *match.ServerGame) error {
			r.deleteGame(context.Background(), live)
			return nil
		})
	})
}

// OnRequestRemovalFromPlayersInActiveGames implements spec §4.6's handler of
// the same name: once both players have acknowledged a conclusion, deletion
// no longer waits for the 8s cushion.
func (r *Registry) OnRequestRemovalFromPlayersInActiveGames(g *match.ServerGame, color clock.Color) {
	if !g.Base.Over() {
		return
	}
	identity := g.Match.PlayerData[color].Identifier
	r.index.Remove(identity, g.Match.ID)

	opponent := g.Match.PlayerData[color.Invert()]
	if r.index.HasSeenConclusion(g.Match.ID, opponent.Identifier) {
		if g.Match.DeleteTimeoutID != nil {
			g.Match.DeleteTimeoutID.Cancel()
		}
		r.deleteGame(context.Background(), g)
	}
}

// deleteGame implements spec §4.6's deleteGame. The caller must already
// hold g's critical section; the registry-map removal happens first so no
// concurrent handler can re-enter this game id while persistence runs.
func (r *Registry) deleteGame(ctx context.Context, g *match.ServerGame) {
	r.mu.Lock()
	delete(r.games, g.Match.ID)
	r.mu.Unlock()
	// A concluded game with no delete timer reports StateDeleted.
	g.Match.DeleteTimeoutID = nil

	finished := toFinishedGame(g)

	var updates []repo.RatingUpdate
	if !g.Match.PositionPasted {
		var err error
		updates, err = r.gameRepo.LogGameAtomically(ctx, finished)
		if err != nil {
			r.log.Warn("game log transaction rolled back", "game_id", g.Match.ID, "error", err)
			if recErr := r.unlogged.RecordUnlogged(ctx, finished, err); recErr != nil {
				r.log.Error("failed to record unlogged game", "game_id", g.Match.ID, "error", recErr)
			}
			updates = nil
		} else if len(updates) > 0 {
			r.broadcastRatingChanges(g, updates)
		}
	}

	for color, pd := range g.Match.PlayerData {
		r.index.Remove(pd.Identifier, g.Match.ID)
		if pd.Socket != nil {
			if err := pd.Socket.SendJSON(wire.RouteGame, wire.OutUnsub, nil); err != nil {
				r.log.Warn("failed to notify socket of unsub", "game_id", g.Match.ID, "color", color, "error", err)
			}
			pd.Socket = nil
		}
	}

	if r.abuse != nil {
		r.abuse.Observe(ctx, finished, updates)
	}
}

func toFinishedGame(g *match.ServerGame) repo.FinishedGame {
	players := make(map[clock.Color]match.PlayerIdentity, len(g.Match.PlayerData))
	for c, pd := range g.Match.PlayerData {
		players[c] = pd.Identifier
	}
	timeEnded := g.Match.TimeCreated
	if g.Match.TimeEnded != nil {
		timeEnded = *g.Match.TimeEnded
	}
	conclusion := match.Conclusion{Condition: match.ConditionAborted}
	if g.Base.Conclusion != nil {
		conclusion = *g.Base.Conclusion
	}
	return repo.FinishedGame{
		ID:          g.Match.ID,
		Variant:     g.Base.Variant,
		Metadata:    g.Base.Metadata,
		Moves:       g.Base.Moves,
		Conclusion:  conclusion,
		Rated:       g.Match.Rated,
		Publicity:   g.Match.Publicity,
		TimeCreated: g.Match.TimeCreated,
		TimeEnded:   timeEnded,
		Players:     players,
	}
}

// LogAllGames implements spec §4.6's shutdown path: every active game not
// already over is aborted and broadcast, then deleted in sequence. Spec §9
// notes the source awaits these serially; this preserves that ordering.
func (r *Registry) LogAllGames(ctx context.Context, now time.Time) {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.games))
	for _, e := range r.games {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		g := e.game
		if !g.Base.Over() {
			r.SetGameConclusion(g, match.Conclusion{Condition: match.ConditionAborted}, now)
		}
		if g.Match.DeleteTimeoutID != nil {
			g.Match.DeleteTimeoutID.Cancel()
		}
		r.deleteGame(ctx, g)
		e.mu.Unlock()
	}
}

// BroadcastGameRestarting implements spec §4.6's broadcastGameRestarting.
func (r *Registry) BroadcastGameRestarting(timeToRestart time.Time) {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.games))
	for _, e := range r.games {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	ts := timeToRestart.UnixMilli()
	for _, e := range entries {
		e.mu.Lock()
		for color, pd := range e.game.Match.PlayerData {
			if pd.Socket == nil {
				continue
			}
			if err := pd.Socket.SendJSON(wire.RouteGame, wire.OutServerRestart, map[string]int64{"ts": ts}); err != nil {
				r.log.Warn("failed to notify socket of restart", "game_id", e.game.Match.ID, "color", color, "error", err)
			}
		}
		e.mu.Unlock()
	}
}

// makeOnResign returns the callback the timer engine invokes when a
// disconnect or AFK timeout expires, closing the loop back into
// SetGameConclusion under the game's own critical section.
func (r *Registry) makeOnResign() func(*match.ServerGame, clock.Color) {
	return func(g *match.ServerGame, victor clock.Color) {
		_ = r.WithGame(g.Match.ID, func(live *match.ServerGame) error {
			condition := match.ConditionDisconnect
			if live.Base.Abortable() {
				r.SetGameConclusion(live, match.Conclusion{Condition: match.ConditionAborted}, r.sched.Now())
				return nil
			}
			v := victor
			r.SetGameConclusion(live, match.Conclusion{Victor: &v, Condition: condition}, r.sched.Now())
			return nil
		})
	}
}

func (r *Registry) sendJoinGame(g *match.ServerGame, color clock.Color) {
	pd := g.Match.PlayerData[color]
	if pd.Socket == nil {
		return
	}
	payload := wire.JoinGamePayload{
		Metadata:         g.Base.Metadata,
		YouAreColor:      color,
		GameConclusion:   g.Base.Conclusion,
		Moves:            g.Base.Moves,
		ParticipantState: wire.ParticipantStates(g),
		ClockValues:      wire.ClockValuesFor(g, r.sched.Now()),
	}
	if err := pd.Socket.SendJSON(wire.RouteGame, wire.OutJoinGame, payload); err != nil {
		r.log.Warn("failed to send joingame", "game_id", g.Match.ID, "color", color, "error", err)
	}
}

func (r *Registry) broadcastGameUpdate(g *match.ServerGame) {
	payload := wire.GameUpdatePayload{
		GameConclusion:   g.Base.Conclusion,
		Moves:            g.Base.Moves,
		ParticipantState: wire.ParticipantStates(g),
		ClockValues:      wire.ClockValuesFor(g, r.sched.Now()),
	}
	for color, pd := range g.Match.PlayerData {
		if pd.Socket == nil {
			continue
		}
		if err := pd.Socket.SendJSON(wire.RouteGame, wire.OutGameUpdate, payload); err != nil {
			r.log.Warn("failed to broadcast gameupdate", "game_id", g.Match.ID, "color", color, "error", err)
		}
	}
}

func (r *Registry) broadcastRatingChanges(g *match.ServerGame, updates []repo.RatingUpdate) {
	perColor := make(map[string]wire.PerColorRatingChange, len(updates))
	for _, u := range updates {
		var change wire.PerColorRatingChange
		change.NewRating.Value = u.After.Value
		change.NewRating.Confident = u.Confident
		change.Change = u.After.Value - u.Before.Value
		perColor[u.Color.String()] = change
	}
	payload := wire.GameRatingChangePayload{PerColor: perColor}
	for color, pd := range g.Match.PlayerData {
		if pd.Socket == nil {
			continue
		}
		if err := pd.Socket.SendJSON(wire.RouteGame, wire.OutGameRatingChange, payload); err != nil {
			r.log.Warn("failed to broadcast rating change", "game_id", g.Match.ID, "color", color, "error", err)
		}
	}
}


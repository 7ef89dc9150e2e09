// Package repo defines the narrow persistence boundary spec §6 calls out:
// games, player_games, player_stats, and leaderboard tables reached only
// through these interfaces, with the atomicity contract enforced by the
// concrete implementation rather than by internal/registry.
package repo

import (
	"context"
	"time"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
	"matchcoordinator/internal/rating"
)

// FinishedGame is everything the persistence layer needs to write a
// concluded ServerGame: the move list, metadata, and participant
// identities, flattened out of the in-memory representation.
type FinishedGame struct {
	ID          int64
	Variant     string
	Metadata    map[string]string
	Moves       []match.Move
	Conclusion  match.Conclusion
	Rated       bool
	Publicity   match.Publicity
	TimeCreated time.Time
	TimeEnded   time.Time
	Players     map[clock.Color]match.PlayerIdentity
}

// RatingUpdate is what a rated, successfully logged game reports back per
// player, which the registry forwards to clients as "gameratingchange".
type RatingUpdate struct {
	Color     clock.Color
	Before    rating.Player
	After     rating.Player
	Confident bool
}

// GameRepository is the games/player_games/player_stats/leaderboard
// transaction boundary (spec §6). LogGameAtomically must either commit
// every table's write or none of them.
type GameRepository interface {
	// GenUniqueGameID mints an id unique across both the live registry
	// (which the caller also checks) and the persistent id space.
	GenUniqueGameID(ctx context.Context) (int64, error)

	// LogGameAtomically persists a finished game and, for rated games,
	// recomputes and stores both players' ratings. On any failure the
	// whole transaction must roll back; the caller is responsible for
	// routing the game to the unlogged-games sink in that case.
	LogGameAtomically(ctx context.Context, g FinishedGame) ([]RatingUpdate, error)

	// GetGameData fetches a terminal game record for resync fallback
	// (spec §4.8 "resync"), projecting only the requested columns.
	GetGameData(ctx context.Context, id int64, cols []string) (map[string]any, bool, error)

	// GetEloOfPlayerInLeaderboard backs rated-game metadata (WhiteElo/
	// BlackElo) at createGame time (spec §4.6 step 2).
	GetEloOfPlayerInLeaderboard(ctx context.Context, userID string, leaderboardID string) (rating.Player, error)
}

// UnloggedGamesSink records a finished game's raw text when the logging
// transaction rolls back (spec §4.6 step 2, §7.6), so it isn't silently
// lost even though it never reached the games table.
type UnloggedGamesSink interface {
	RecordUnlogged(ctx context.Context, g FinishedGame, cause error) error
}

// RatingAbuseMonitor is the external fraud-detection collaborator invoked
// after deleteGame finishes releasing in-memory state (spec §4.6 step 5);
// it runs outside the logging transaction.
type RatingAbuseMonitor interface {
	Observe(ctx context.Context, g FinishedGame, updates []RatingUpdate)
}

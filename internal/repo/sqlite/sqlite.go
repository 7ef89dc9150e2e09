// Package sqlite is the modernc.org/sqlite-backed GameRepository. The
// teacher's own persistence layer runs through a sqlc-generated db package
// that isn't part of this retrieval pack, so this reimplements it by hand
// against database/sql directly, keeping the teacher's main.go idiom of
// embedding schema.sql and running it with ExecContext at startup.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	_ "modernc.org/sqlite"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
	"matchcoordinator/internal/rating"
	"matchcoordinator/internal/repo"
)

//go:embed schema.sql
var schema string

type Repo struct {
	db *sql.DB
}

// Open mirrors main.go's sql.Open("sqlite", path) + schema ExecContext.
func Open(ctx context.Context, path string) (*Repo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}

func (r *Repo) GenUniqueGameID(ctx context.Context) (int64, error) {
	for range 20 {
		n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
		if err != nil {
			return 0, err
		}
		id := n.Int64()
		var exists int
		err = r.db.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return id, nil
		}
		if err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("sqlite: could not mint a unique game id after 20 attempts")
}

func (r *Repo) LogGameAtomically(ctx context.Context, g repo.FinishedGame) ([]repo.RatingUpdate, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	movesJSON, err := json.Marshal(g.Moves)
	if err != nil {
		return nil, err
	}
	metaJSON, err := json.Marshal(g.Metadata)
	if err != nil {
		return nil, err
	}

	var victorColor *string
	if g.Conclusion.Victor != nil {
		s := g.Conclusion.Victor.String()
		victorColor = &s
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO games (id, variant, rated, publicity, time_created, time_ended, victor_color, condition, moves_json, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Variant, boolToInt(g.Rated), string(g.Publicity),
		g.TimeCreated.UnixMilli(), g.TimeEnded.UnixMilli(),
		victorColor, string(g.Conclusion.Condition), string(movesJSON), string(metaJSON))
	if err != nil {
		return nil, fmt.Errorf("insert game: %w", err)
	}

	var updates []repo.RatingUpdate
	for color, player := range g.Players {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO player_games (game_id, color, user_id, browser_id, username)
			VALUES (?, ?, ?, ?, ?)`,
			fmt.Sprint(g.ID), color.String(), nullIfEmpty(player.UserID), nullIfEmpty(player.BrowserID), player.Username)
		if err != nil {
			return nil, fmt.Errorf("insert player_games: %w", err)
		}

		if !player.IsMember() {
			continue
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO player_stats (user_id, games_played, wins, losses, draws)
			VALUES (?, 1, 0, 0, 0)
			ON CONFLICT(user_id) DO UPDATE SET games_played = games_played + 1`,
			player.UserID); err != nil {
			return nil, fmt.Errorf("upsert player_stats: %w", err)
		}

		if err := bumpOutcomeColumn(ctx, tx, player.UserID, color, g.Conclusion); err != nil {
			return nil, err
		}

		if !g.Rated {
			continue
		}
		update, err := r.applyRating(ctx, tx, g, color, player)
		if err != nil {
			return nil, err
		}
		updates = append(updates, update)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updates, nil
}

func bumpOutcomeColumn(ctx context.Context, tx *sql.Tx, userID string, color clock.Color, c match.Conclusion) error {
	col := "draws"
	if c.Victor != nil && *c.Victor != clock.Neutral {
		if *c.Victor == color {
			col = "wins"
		} else {
			col = "losses"
		}
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE player_stats SET %s = %s + 1 WHERE user_id = ?`, col, col), userID)
	return err
}

func (r *Repo) applyRating(ctx context.Context, tx *sql.Tx, g repo.FinishedGame, color clock.Color, player match.PlayerIdentity) (repo.RatingUpdate, error) {
	leaderboardID := g.Variant
	before, err := queryRating(ctx, tx, player.UserID, leaderboardID)
	if err != nil {
		return repo.RatingUpdate{}, err
	}

	opponent := g.Players[color.Invert()]
	oppBefore, err := queryRating(ctx, tx, opponent.UserID, leaderboardID)
	if err != nil {
		return repo.RatingUpdate{}, err
	}

	score := 0.5
	if g.Conclusion.Victor != nil {
		switch {
		case *g.Conclusion.Victor == color:
			score = 1
		case *g.Conclusion.Victor == clock.Neutral:
			score = 0.5
		default:
			score = 0
		}
	}

	after := rating.NewRating(before, []rating.Result{{Opponent: oppBefore, Score: score}})

	_, err = tx.ExecContext(ctx, `
		INSERT INTO leaderboard_ratings (user_id, leaderboard_id, value, rd)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, leaderboard_id) DO UPDATE SET value = excluded.value, rd = excluded.rd`,
		player.UserID, leaderboardID, after.Value, after.RD)
	if err != nil {
		return repo.RatingUpdate{}, fmt.Errorf("upsert rating: %w", err)
	}

	return repo.RatingUpdate{
		Color:     color,
		Before:    before,
		After:     after,
		Confident: after.RD <= rating.MinRD*2,
	}, nil
}

func queryRating(ctx context.Context, tx *sql.Tx, userID, leaderboardID string) (rating.Player, error) {
	var p rating.Player
	err := tx.QueryRowContext(ctx, `SELECT value, rd FROM leaderboard_ratings WHERE user_id = ? AND leaderboard_id = ?`,
		userID, leaderboardID).Scan(&p.Value, &p.RD)
	if errors.Is(err, sql.ErrNoRows) {
		return rating.Player{Value: 1500, RD: rating.DefaultConfidence}, nil
	}
	return p, err
}

func (r *Repo) GetEloOfPlayerInLeaderboard(ctx context.Context, userID string, leaderboardID string) (rating.Player, error) {
	var p rating.Player
	err := r.db.QueryRowContext(ctx, `SELECT value, rd FROM leaderboard_ratings WHERE user_id = ? AND leaderboard_id = ?`,
		userID, leaderboardID).Scan(&p.Value, &p.RD)
	if errors.Is(err, sql.ErrNoRows) {
		return rating.Player{Value: 1500, RD: rating.DefaultConfidence}, nil
	}
	return p, err
}

func (r *Repo) GetGameData(ctx context.Context, id int64, cols []string) (map[string]any, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT variant, rated, publicity, time_created, time_ended, victor_color, condition, moves_json, metadata_json FROM games WHERE id = ?`, id)

	var variant, publicity, condition, movesJSON, metaJSON string
	var rated int
	var timeCreated, timeEnded int64
	var victorColor *string
	err := row.Scan(&variant, &rated, &publicity, &timeCreated, &timeEnded, &victorColor, &condition, &movesJSON, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	full := map[string]any{
		"variant":      variant,
		"rated":        rated == 1,
		"publicity":    publicity,
		"timeCreated":  time.UnixMilli(timeCreated),
		"timeEnded":    time.UnixMilli(timeEnded),
		"victorColor":  victorColor,
		"condition":    condition,
		"movesJSON":    movesJSON,
		"metadataJSON": metaJSON,
	}
	if len(cols) == 0 {
		return full, true, nil
	}
	projected := make(map[string]any, len(cols))
	for _, c := range cols {
		projected[c] = full[c]
	}
	return projected, true, nil
}

func (r *Repo) RecordUnlogged(ctx context.Context, g repo.FinishedGame, cause error) error {
	payload, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO unlogged_games (recorded_at, cause, payload_json) VALUES (?, ?, ?)`,
		time.Now().UnixMilli(), cause.Error(), string(payload))
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Package memory is an in-memory repo.GameRepository used by the registry's
// tests, mirroring game/storage.go's map-plus-mutex shape rather than
// standing up sqlite for unit tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/rating"
	"matchcoordinator/internal/repo"
)

type Repo struct {
	mu       sync.Mutex
	nextID   int64
	games    map[int64]repo.FinishedGame
	ratings  map[string]rating.Player
	unlogged []repo.FinishedGame
	FailNext bool
}

func New() *Repo {
	return &Repo{
		games:   map[int64]repo.FinishedGame{},
		ratings: map[string]rating.Player{},
	}
}

func (r *Repo) GenUniqueGameID(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID, nil
}

func (r *Repo) LogGameAtomically(ctx context.Context, g repo.FinishedGame) ([]repo.RatingUpdate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailNext {
		r.FailNext = false
		return nil, fmt.Errorf("memory repo: simulated write failure")
	}

	r.games[g.ID] = g

	var updates []repo.RatingUpdate
	if !g.Rated {
		return nil, nil
	}
	for color, player := range g.Players {
		if !player.IsMember() {
			continue
		}
		key := player.UserID + "/" + g.Variant
		before, ok := r.ratings[key]
		if !ok {
			before = rating.Player{Value: 1500, RD: rating.DefaultConfidence}
		}

		opp := g.Players[color.Invert()]
		oppKey := opp.UserID + "/" + g.Variant
		oppBefore, ok := r.ratings[oppKey]
		if !ok {
			oppBefore = rating.Player{Value: 1500, RD: rating.DefaultConfidence}
		}

		score := 0.5
		if g.Conclusion.Victor != nil && *g.Conclusion.Victor != clock.Neutral {
			if *g.Conclusion.Victor == color {
				score = 1
			} else {
				score = 0
			}
		}

		after := rating.NewRating(before, []rating.Result{{Opponent: oppBefore, Score: score}})
		r.ratings[key] = after
		updates = append(updates, repo.RatingUpdate{Color: color, Before: before, After: after})
	}
	return updates, nil
}

func (r *Repo) GetGameData(ctx context.Context, id int64, cols []string) (map[string]any, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return nil, false, nil
	}
	return map[string]any{"variant": g.Variant, "condition": g.Conclusion.Condition}, true, nil
}

func (r *Repo) GetEloOfPlayerInLeaderboard(ctx context.Context, userID string, leaderboardID string) (rating.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.ratings[userID+"/"+leaderboardID]
	if !ok {
		return rating.Player{Value: 1500, RD: rating.DefaultConfidence}, nil
	}
	return p, nil
}

func (r *Repo) RecordUnlogged(ctx context.Context, g repo.FinishedGame, cause error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unlogged = append(r.unlogged, g)
	return nil
}

func (r *Repo) Unlogged() []repo.FinishedGame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repo.FinishedGame(nil), r.unlogged...)
}

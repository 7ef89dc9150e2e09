package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matchcoordinator/internal/clock"
	"matchcoordinator/internal/match"
	"matchcoordinator/internal/repo"
	"matchcoordinator/internal/repo/memory"
)

func finishedGame(id int64, rated bool) repo.FinishedGame {
	victor := clock.White
	return repo.FinishedGame{
		ID:          id,
		Variant:     "chess",
		Rated:       rated,
		Publicity:   match.Public,
		TimeCreated: time.Unix(0, 0),
		TimeEnded:   time.Unix(60, 0),
		Conclusion:  match.Conclusion{Victor: &victor, Condition: match.ConditionCheckmate},
		Players: map[clock.Color]match.PlayerIdentity{
			clock.White: match.NewMember("u1", "alice"),
			clock.Black: match.NewMember("u2", "bob"),
		},
	}
}

func TestLogGameAtomically_RatedUpdatesBothPlayers(t *testing.T) {
	r := memory.New()
	updates, err := r.LogGameAtomically(context.Background(), finishedGame(1, true))
	require.NoError(t, err)
	require.Len(t, updates, 2)

	for _, u := range updates {
		if u.Color == clock.White {
			require.Greater(t, u.After.Value, u.Before.Value)
		} else {
			require.Less(t, u.After.Value, u.Before.Value)
		}
	}
}

func TestLogGameAtomically_UnratedSkipsRatingUpdates(t *testing.T) {
	r := memory.New()
	updates, err := r.LogGameAtomically(context.Background(), finishedGame(1, false))
	require.NoError(t, err)
	require.Empty(t, updates)
}

func TestLogGameAtomically_FailureLeavesNoPartialWrite(t *testing.T) {
	r := memory.New()
	r.FailNext = true
	_, err := r.LogGameAtomically(context.Background(), finishedGame(1, true))
	require.Error(t, err)

	_, ok, err := r.GetGameData(context.Background(), 1, nil)
	require.NoError(t, err)
	require.False(t, ok, "a failed log must not leave a partially committed game behind")
}

func TestGenUniqueGameID_Increments(t *testing.T) {
	r := memory.New()
	a, err := r.GenUniqueGameID(context.Background())
	require.NoError(t, err)
	b, err := r.GenUniqueGameID(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"matchcoordinator/internal/repo/sqlite"
)

func TestAccounts_CreateGetByUsernameAndID_RoundTrip(t *testing.T) {
	repo, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer repo.Close()

	accounts := sqlite.NewAccounts(repo)

	created, err := accounts.Create(context.Background(), "alice", "hashed-password")
	require.NoError(t, err)
	require.NotEmpty(t, created.UserID)
	require.Equal(t, "alice", created.Username)

	byUsername, err := accounts.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, created.UserID, byUsername.UserID)

	byID, err := accounts.GetByID(context.Background(), created.UserID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)
}

func TestAccounts_GetByUsername_NotFoundReturnsErrNoRows(t *testing.T) {
	repo, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer repo.Close()

	accounts := sqlite.NewAccounts(repo)

	_, err = accounts.GetByUsername(context.Background(), "nobody")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAccounts_Create_DuplicateUsernameFails(t *testing.T) {
	repo, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer repo.Close()

	accounts := sqlite.NewAccounts(repo)

	_, err = accounts.Create(context.Background(), "alice", "hash1")
	require.NoError(t, err)

	_, err = accounts.Create(context.Background(), "alice", "hash2")
	require.Error(t, err)
}

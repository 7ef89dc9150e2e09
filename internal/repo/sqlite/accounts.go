package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"matchcoordinator/internal/auth"
)

// Accounts is the sqlite-backed auth.AccountStore, querying the same
// "users" table the teacher's sqlc-generated db.Queries wrapped, minted
// ids generated with google/uuid rather than sqlite's rowid since a
// member's id also has to serve as their leaderboard_ratings foreign key.
type Accounts struct {
	db *sql.DB
}

func NewAccounts(r *Repo) *Accounts {
	return &Accounts{db: r.db}
}

func (a *Accounts) GetByUsername(ctx context.Context, username string) (auth.Account, error) {
	return a.scanOne(ctx, `SELECT id, username, password_hash FROM users WHERE username = ?`, username)
}

func (a *Accounts) GetByID(ctx context.Context, id string) (auth.Account, error) {
	return a.scanOne(ctx, `SELECT id, username, password_hash FROM users WHERE id = ?`, id)
}

func (a *Accounts) scanOne(ctx context.Context, query string, arg string) (auth.Account, error) {
	var acc auth.Account
	err := a.db.QueryRowContext(ctx, query, arg).Scan(&acc.UserID, &acc.Username, &acc.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, sql.ErrNoRows
	}
	if err != nil {
		return auth.Account{}, err
	}
	return acc, nil
}

func (a *Accounts) Create(ctx context.Context, username, passwordHash string) (auth.Account, error) {
	id := uuid.NewString()
	_, err := a.db.ExecContext(ctx, `INSERT INTO users (id, username, password_hash) VALUES (?, ?, ?)`, id, username, passwordHash)
	if err != nil {
		return auth.Account{}, err
	}
	return auth.Account{UserID: id, Username: username, PasswordHash: passwordHash}, nil
}

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"matchcoordinator/internal/auth"
	"matchcoordinator/internal/gamecount"
	"matchcoordinator/internal/httpapi"
	"matchcoordinator/internal/index"
	"matchcoordinator/internal/registry"
	"matchcoordinator/internal/repo/memory"
	"matchcoordinator/internal/router"
	"matchcoordinator/internal/rules"
	"matchcoordinator/internal/scheduler"
	"matchcoordinator/internal/timer"
)

type fakeStore struct {
	byUsername map[string]auth.Account
	byID       map[string]auth.Account
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byUsername: map[string]auth.Account{}, byID: map[string]auth.Account{}}
}

func (f *fakeStore) GetByUsername(ctx context.Context, username string) (auth.Account, error) {
	a, ok := f.byUsername[username]
	if !ok {
		return auth.Account{}, errors.New("not found")
	}
	return a, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (auth.Account, error) {
	a, ok := f.byID[id]
	if !ok {
		return auth.Account{}, errors.New("not found")
	}
	return a, nil
}

func (f *fakeStore) Create(ctx context.Context, username, passwordHash string) (auth.Account, error) {
	f.nextID++
	a := auth.Account{UserID: "u" + string(rune('0'+f.nextID)), Username: username, PasswordHash: passwordHash}
	f.byUsername[username] = a
	f.byID[a.UserID] = a
	return a, nil
}

func newServer(t *testing.T) (*httpapi.Server, *auth.Authenticator) {
	t.Helper()
	store := newFakeStore()
	a := auth.New([]byte("test-secret"), store)

	sched := scheduler.NewVirtual(time.Unix(0, 0))
	idx := index.New()
	counter := gamecount.New(nil)
	timers := timer.New(sched, nil, timer.Config{})
	repo := memory.New()
	reg := registry.New(idx, counter, timers, sched, repo, repo, nil, nil)
	rt := router.New(reg, rules.ChessAdapter{}, nil)

	return httpapi.NewServer(a, store, reg, rt, nil), a
}

func TestRegisterAndLogin_RoundTrips(t *testing.T) {
	srv, _ := newServer(t)

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "hunter2"})
	req := httptest.NewRequest("POST", "/users", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	require.Equal(t, 201, rec.Code)

	req = httptest.NewRequest("POST", "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
}

func TestLogin_WrongPasswordRejected(t *testing.T) {
	srv, _ := newServer(t)

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "hunter2"})
	req := httptest.NewRequest("POST", "/users", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Echo.ServeHTTP(httptest.NewRecorder(), req)

	badBody, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	req = httptest.NewRequest("POST", "/auth/login", bytes.NewReader(badBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	require.Equal(t, 401, rec.Code)
}

func TestGuestLogin_MintsUsableToken(t *testing.T) {
	srv, _ := newServer(t)

	req := httptest.NewRequest("POST", "/auth/guest", nil)
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
}

func TestAcceptInvite_RequiresAuth(t *testing.T) {
	srv, _ := newServer(t)

	req := httptest.NewRequest("POST", "/game/invites/accept", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	require.Equal(t, 401, rec.Code)
}

func TestAcceptInvite_CreatesLiveGame(t *testing.T) {
	srv, a := newServer(t)

	token, err := a.GuestToken("browser-1")
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]any{
		"variant":         "chess",
		"rated":           false,
		"private":         false,
		"untimed":         true,
		"startTimeMillis": 0,
		"incrementMillis": 0,
		"opponent": map[string]any{
			"browserId": "browser-2",
			"isMember":  false,
		},
	})
	req := httptest.NewRequest("POST", "/game/invites/accept", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	require.Equal(t, 201, rec.Code)

	var resp struct {
		GameID int64 `json:"gameId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotZero(t, resp.GameID)
}

func TestHealth_ReportsActiveGameCount(t *testing.T) {
	srv, _ := newServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var resp struct {
		ActiveGames int64 `json:"activeGames"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(0), resp.ActiveGames)
}

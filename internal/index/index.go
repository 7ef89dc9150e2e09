// Package index implements the bidirectional active-players index (spec
// §4.3): which identity is currently seated in which game, so the invite
// matchmaker can refuse to start a second game for a busy player.
package index

import (
	"sync"

	"matchcoordinator/internal/match"
)

// Index is the process-wide ActivePlayersIndex singleton.
type Index struct {
	mu           sync.RWMutex
	memberInGame map[string]int64
	browserInGame map[string]int64
}

// New builds an empty index.
func New() *Index {
	return &Index{
		memberInGame:  make(map[string]int64),
		browserInGame: make(map[string]int64),
	}
}

// Add records that identity is now seated in gameID. Identity trumps
// browser: a signed-in member is only ever tracked in the member map.
func (ix *Index) Add(identity match.PlayerIdentity, gameID int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if identity.IsMember() {
		ix.memberInGame[identity.UserID] = gameID
	} else {
		ix.browserInGame[identity.BrowserID] = gameID
	}
}

// Remove clears identity's entry only if it still points at gameID,
// so a racing "speedy rejoin" into a different game is never clobbered
// (spec §4.3).
func (ix *Index) Remove(identity match.PlayerIdentity, gameID int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if identity.IsMember() {
		if ix.memberInGame[identity.UserID] == gameID {
			delete(ix.memberInGame, identity.UserID)
		}
		return
	}
	if ix.browserInGame[identity.BrowserID] == gameID {
		delete(ix.browserInGame, identity.BrowserID)
	}
}

// IsBusy reports whether identity currently has an active game.
func (ix *Index) IsBusy(identity match.PlayerIdentity) bool {
	_, ok := ix.GameIDOf(identity)
	return ok
}

// GameIDOf returns the game identity is currently seated in, if any.
func (ix *Index) GameIDOf(identity match.PlayerIdentity) (int64, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if identity.IsMember() {
		id, ok := ix.memberInGame[identity.UserID]
		return id, ok
	}
	id, ok := ix.browserInGame[identity.BrowserID]
	return id, ok
}

// HasSeenConclusion reports whether identity has already been removed
// from matchID's entry (i.e. they are no longer indexed under matchID),
// meaning they have acknowledged the conclusion (spec §4.3).
func (ix *Index) HasSeenConclusion(matchID int64, identity match.PlayerIdentity) bool {
	id, ok := ix.GameIDOf(identity)
	if !ok {
		return true
	}
	return id != matchID
}

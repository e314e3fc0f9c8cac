package main

import (
	"sync"
	"time"
)

const maxSessions = 100

// SessionIdleTimeout is how long an empty, never-started session may linger
// before the janitor reclaims it. Variable so tests can shorten it.
var SessionIdleTimeout = 2 * time.Minute

// Session represents a joinable match
type Session struct {
	ID         string
	Name       string
	Game       *Game
	lastActive time.Time
}

// SessionManager handles creation, lookup and reclamation of sessions
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	db        *DB
	analytics *Analytics

	janitorStop chan struct{}
	janitorOnce sync.Once
}

// NewSessionManager creates a new SessionManager and starts its janitor
func NewSessionManager(db *DB, analytics *Analytics) *SessionManager {
	sm := &SessionManager{
		sessions:    make(map[string]*Session),
		db:          db,
		analytics:   analytics,
		janitorStop: make(chan struct{}),
	}
	go sm.janitor()
	return sm
}

// Stop terminates the janitor and destroys all sessions
func (sm *SessionManager) Stop() {
	sm.janitorOnce.Do(func() { close(sm.janitorStop) })
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, sess := range sm.sessions {
		sess.Game.Destroy()
		delete(sm.sessions, id)
	}
}

// CreateSession creates a new match session. Returns nil if the session
// limit is reached.
func (sm *SessionManager) CreateSession(name string, cfg GameConfig, initial []InitialPlayer) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= maxSessions {
		return nil
	}

	id := GenerateUUID()
	game := NewGame(id, name, cfg, initial, sm.db, sm.analytics, sm.reclaim)
	sess := &Session{
		ID:         id,
		Name:       name,
		Game:       game,
		lastActive: time.Now(),
	}
	sm.sessions[id] = sess
	go game.Run()
	return sess
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// MarkActive refreshes a session's idle clock
func (sm *SessionManager) MarkActive(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sess, ok := sm.sessions[id]; ok {
		sess.lastActive = time.Now()
	}
}

// RemovePlayer removes a player from a session, reclaiming the session if
// it becomes empty.
func (sm *SessionManager) RemovePlayer(sessionID, playerID string) {
	sm.mu.RLock()
	sess, ok := sm.sessions[sessionID]
	sm.mu.RUnlock()
	if !ok {
		return
	}
	sess.Game.RemovePlayer(playerID)

	if sess.Game.PlayerCount() == 0 {
		sm.reclaim(sessionID)
	}
}

// reclaim destroys a session and removes it from the registry. It is also
// the session-ended callback every Game receives, invoked once when the
// game enters finished.
func (sm *SessionManager) reclaim(sessionID string) {
	sm.mu.Lock()
	sess, ok := sm.sessions[sessionID]
	if ok {
		delete(sm.sessions, sessionID)
	}
	sm.mu.Unlock()
	if ok {
		sess.Game.Destroy()
	}
}

// ListSessions returns info about all active sessions
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make([]SessionInfo, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		list = append(list, SessionInfo{
			ID:      sess.ID,
			Name:    sess.Name,
			Players: sess.Game.PlayerCount(),
			Phase:   sess.Game.Phase().String(),
		})
	}
	return list
}

// janitor periodically reclaims idle, empty sessions
func (sm *SessionManager) janitor() {
	ticker := time.NewTicker(SessionIdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sm.sweepIdle()
		case <-sm.janitorStop:
			return
		}
	}
}

func (sm *SessionManager) sweepIdle() {
	cutoff := time.Now().Add(-SessionIdleTimeout)
	sm.mu.RLock()
	var stale []string
	for id, sess := range sm.sessions {
		if sess.Game.PlayerCount() == 0 && sess.lastActive.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	sm.mu.RUnlock()
	for _, id := range stale {
		sm.reclaim(id)
	}
}

package main

import (
	"sync"
)

const (
	maxConnections      = 1000
	maxConnectionsPerIP = 10
)

// Hub tracks connected clients and owns the shared server-side services
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byIP    map[string]int

	sessions  *SessionManager
	db        *DB
	auth      *Auth
	analytics *Analytics
	cfg       GameConfig
}

// NewHub creates a Hub wired to the given database and analytics sink
func NewHub(db *DB, analytics *Analytics, cfg GameConfig) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		byIP:      make(map[string]int),
		sessions:  NewSessionManager(db, analytics),
		db:        db,
		auth:      NewAuth(db),
		analytics: analytics,
		cfg:       cfg,
	}
}

// Register admits a client, enforcing total and per-IP connection limits.
// Returns false when a limit is hit.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= maxConnections {
		return false
	}
	if h.byIP[c.ip] >= maxConnectionsPerIP {
		return false
	}
	h.clients[c] = struct{}{}
	h.byIP[c.ip]++
	return true
}

// Unregister removes a client from the registry
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if h.byIP[c.ip] <= 1 {
		delete(h.byIP, c.ip)
	} else {
		h.byIP[c.ip]--
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OnlineUsers returns the account IDs of all authenticated clients
func (h *Hub) OnlineUsers() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]int64, 0)
	for c := range h.clients {
		if id := c.AuthID(); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Shutdown closes all client connections and stops the session manager
func (h *Hub) Shutdown() {
	h.mu.Lock()
	for c := range h.clients {
		c.Close()
	}
	h.clients = make(map[*Client]struct{})
	h.byIP = make(map[string]int)
	h.mu.Unlock()

	h.sessions.Stop()
}

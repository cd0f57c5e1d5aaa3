package mcp

import (
	"sort"
	"sync"
)

// SessionRegistry maps MCP client sessions to the resolver sessions they opened.
type SessionRegistry struct {
	mu     sync.RWMutex
	owners map[string]string // resolver session ID → client session ID
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{owners: make(map[string]string)}
}

// Register records that clientID opened sessionID.
func (r *SessionRegistry) Register(clientID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[sessionID] = clientID
}

// OwnerOf returns the client that opened sessionID, if known.
func (r *SessionRegistry) OwnerOf(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cid, ok := r.owners[sessionID]
	return cid, ok
}

// Forget drops the mapping for a closed resolver session.
func (r *SessionRegistry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.owners, sessionID)
}

// Release removes and returns, sorted, every resolver session opened by clientID.
func (r *SessionRegistry) Release(clientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for sid, cid := range r.owners {
		if cid == clientID {
			out = append(out, sid)
			delete(r.owners, sid)
		}
	}
	sort.Strings(out)
	return out
}

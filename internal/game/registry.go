package game

import "sync"

// Registry is the in-process bidirectional map between transport
// connection IDs and authenticated user IDs. It is ephemeral state,
// rebuilt from authenticate messages after a restart, and is owned by
// the application rather than held as a package global so it can be
// tested in isolation and swapped for a distributed registry later.
//
// A user opening a second connection replaces their previous binding
// (last-write-wins); the old socket stays open but no longer receives
// direct sends.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]uint
	byUser map[uint]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]uint),
		byUser: make(map[uint]string),
	}
}

// Bind associates a connection with a user, replacing any previous
// binding for that user.
func (r *Registry) Bind(connID string, userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byUser[userID]; ok && prev != connID {
		delete(r.byConn, prev)
	}
	r.byConn[connID] = userID
	r.byUser[userID] = connID
}

// UnbindConn removes the binding for a connection, if any. Called on
// transport disconnect; it never touches room membership.
func (r *Registry) UnbindConn(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
	}
}

// UserID returns the user bound to a connection.
func (r *Registry) UserID(connID string) (uint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byConn[connID]
	return userID, ok
}

// ConnID returns the live connection for a user.
func (r *Registry) ConnID(userID uint) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

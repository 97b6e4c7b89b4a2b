// Package runtime holds the live routing core: the session registry,
// the fan-out broadcaster, the event dispatcher and the per-connection
// lifecycle. It contains no feature logic and no storage access.
package runtime

import (
	"chat-relay/contract"
	"sync"
)

type connSet map[contract.Conn]struct{}

// Registry is the bidirectional map between user identities and their
// live connections. A user with several devices has several entries in
// its set; the user disappears from connsByUser the moment the set
// empties, which makes IsOnline a pure existence check.
//
// Both maps are guarded by the same mutex so Bind and Unbind stay
// atomic with respect to each other.
type Registry struct {
	mu          sync.RWMutex
	connsByUser map[string]connSet
	userByConn  map[contract.Conn]string
}

func NewRegistry() *Registry {
	return &Registry{
		connsByUser: make(map[string]connSet),
		userByConn:  make(map[contract.Conn]string),
	}
}

// Bind associates a connection with a user identity. It returns true
// only when this is the user's first live connection, i.e. the online
// presence transition. Binding an extra device is presence-neutral.
// A connection already bound to another identity is rebound.
func (r *Registry) Bind(userID string, conn contract.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.userByConn[conn]; ok && previous != userID {
		r.removeLocked(previous, conn)
	}

	set, existed := r.connsByUser[userID]
	if !existed {
		set = make(connSet)
		r.connsByUser[userID] = set
	}
	set[conn] = struct{}{}
	r.userByConn[conn] = userID

	return !existed
}

// Unbind removes a connection. It returns the identity it was bound to,
// whether that identity just went offline (last device gone), and
// whether the connection was bound at all. Unbinding an unknown
// connection is a no-op; unauthenticated connections close this way.
func (r *Registry) Unbind(conn contract.Conn) (string, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.userByConn[conn]
	if !ok {
		return "", false, false
	}
	offline := r.removeLocked(userID, conn)
	return userID, offline, true
}

// removeLocked deletes one binding and reports whether the identity's
// set emptied. Caller holds the write lock.
func (r *Registry) removeLocked(userID string, conn contract.Conn) bool {
	delete(r.userByConn, conn)
	set, ok := r.connsByUser[userID]
	if !ok {
		return false
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(r.connsByUser, userID)
		return true
	}
	return false
}

// UserFor resolves the identity bound to a connection.
func (r *Registry) UserFor(conn contract.Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.userByConn[conn]
	return userID, ok
}

// ConnectionsFor returns a snapshot of the user's live connections.
// The slice is safe to range over while other goroutines mutate the
// registry; deliveries against it are best-effort.
func (r *Registry) ConnectionsFor(userID string) []contract.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.connsByUser[userID]
	if !ok {
		return nil
	}
	conns := make([]contract.Conn, 0, len(set))
	for conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.connsByUser[userID]
	return ok
}

// OnlineUsers returns a snapshot of every identity with a live connection.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]string, 0, len(r.connsByUser))
	for userID := range r.connsByUser {
		users = append(users, userID)
	}
	return users
}

// ConnectionCount returns the total number of bound connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userByConn)
}

// Package relay is the presence registry and live event relay.
//
// A Registry maps user ids to their live connection. A Relay pushes events to
// whoever is online and dispatches inbound events from a connection. Both are
// plain values owned by the process wiring; there is no package state.
package relay

import (
	"sync"
)

// Conn is one live client connection.
type Conn interface {
	// ID identifies the connection handle, unique per process.
	ID() string
	// Send queues ev for the client without blocking. An error means the
	// event was not queued (buffer full or connection closed).
	Send(ev Event) error
	Close() error
}

// Registry is the userID -> connection presence map.
// Register and Unregister are its only mutators.
type Registry struct {
	mu    sync.RWMutex
	conns map[uint64]Conn
	// onChange receives the entry count after every mutation.
	onChange func(n int)
}

// NewRegistry creates an empty registry. onChange may be nil.
func NewRegistry(onChange func(n int)) *Registry {
	return &Registry{conns: make(map[uint64]Conn), onChange: onChange}
}

// Register binds userID to conn. A newer registration replaces an older
// one; the older handle is left open and is removed by its own Unregister.
func (r *Registry) Register(userID uint64, conn Conn) {
	r.mu.Lock()
	r.conns[userID] = conn
	n := len(r.conns)
	r.mu.Unlock()
	r.changed(n)
}

// Unregister removes every entry that points at conn. Entries for the same
// user held by a different handle are kept.
func (r *Registry) Unregister(conn Conn) []uint64 {
	r.mu.Lock()
	var removed []uint64
	for userID, c := range r.conns {
		if c.ID() == conn.ID() {
			delete(r.conns, userID)
			removed = append(removed, userID)
		}
	}
	n := len(r.conns)
	r.mu.Unlock()

	if len(removed) > 0 {
		r.changed(n)
	}
	return removed
}

// Lookup returns the live connection of userID.
func (r *Registry) Lookup(userID uint64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// Len is the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close closes every registered connection and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[uint64]Conn)
	r.mu.Unlock()

	closed := make(map[string]struct{}, len(conns))
	for _, c := range conns {
		if _, ok := closed[c.ID()]; ok {
			continue
		}
		closed[c.ID()] = struct{}{}
		_ = c.Close()
	}
	r.changed(0)
}

func (r *Registry) changed(n int) {
	if r.onChange != nil {
		r.onChange(n)
	}
}

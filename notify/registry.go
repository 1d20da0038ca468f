package notify

import "sync"

// Registry maps authenticated identities to their live connections. One
// identity may hold several connections (multiple tabs or devices); an
// identity with zero connections is pruned immediately and never lingers.
//
// Mutations are serialized under the lock; reads hand out snapshots so
// broadcast socket writes never run while holding the registry lock.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[*Conn]struct{})}
}

// Register adds a connection to its identity's set, creating the set when
// this is the identity's first connection.
func (r *Registry) Register(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[c.Identity]
	if !ok {
		set = make(map[*Conn]struct{})
		r.conns[c.Identity] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a connection from its identity's set. Removing a
// connection that was never registered is a no-op, and the identity entry is
// deleted as soon as its set empties.
func (r *Registry) Unregister(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[c.Identity]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, c.Identity)
	}
}

// Snapshot returns the identity's current connections as a read-only copy.
// An unknown identity yields an empty slice, not an error.
func (r *Registry) Snapshot(identity string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[identity]
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// All returns a snapshot of every registered connection across identities
func (r *Registry) All() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Conn, 0)
	for _, set := range r.conns {
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the total number of registered connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.conns {
		n += len(set)
	}
	return n
}

// IdentityCount returns the number of identities with at least one connection
func (r *Registry) IdentityCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

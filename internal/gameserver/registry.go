package gameserver

import "sync"

// Holder identifies a live connection within this process.
type Holder struct {
	Instance int
	Conn     uint32
}

// Registry maps a user id to the one connection allowed to hold its session.
type Registry struct {
	mu     sync.Mutex
	byUser map[string]Holder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]Holder)}
}

// Claim makes h the holder of userID and returns the previous holder, if any.
func (r *Registry) Claim(userID string, h Holder) (Holder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, had := r.byUser[userID]
	r.byUser[userID] = h
	if had && prev == h {
		return Holder{}, false
	}
	return prev, had
}

// Release drops the claim of userID only if h still holds it.
func (r *Registry) Release(userID string, h Holder) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUser[userID]; ok && cur == h {
		delete(r.byUser, userID)
		return true
	}
	return false
}

// Lookup returns the current holder of userID.
func (r *Registry) Lookup(userID string) (Holder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byUser[userID]
	return h, ok
}

// Len returns the number of claimed sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

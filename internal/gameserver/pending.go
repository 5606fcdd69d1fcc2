package gameserver

import (
	"context"
	"sync"
)

// pendingSaves tracks writes in flight per key so a reader can wait for the
// latest state to reach storage before loading it.
type pendingSaves struct {
	mu sync.Mutex
	m  map[string]*pendingSave
}

type pendingSave struct {
	n    int
	done chan struct{}
}

func newPendingSaves() *pendingSaves {
	return &pendingSaves{m: make(map[string]*pendingSave)}
}

// begin marks a save of key as started. The returned func ends it and may be
// called more than once.
func (ps *pendingSaves) begin(key string) func() {
	ps.mu.Lock()
	e, ok := ps.m[key]
	if !ok {
		e = &pendingSave{done: make(chan struct{})}
		ps.m[key] = e
	}
	e.n++
	ps.mu.Unlock()

	return sync.OnceFunc(func() {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		e.n--
		if e.n == 0 {
			close(e.done)
			if ps.m[key] == e {
				delete(ps.m, key)
			}
		}
	})
}

// wait blocks until no save of key is in flight.
func (ps *pendingSaves) wait(ctx context.Context, key string) error {
	for {
		ps.mu.Lock()
		e, ok := ps.m[key]
		ps.mu.Unlock()
		if !ok {
			return nil
		}
		select {
		case <-e.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

package gameserver

import (
	"sync"
	"time"
)

type cooldownKey struct {
	command string
	conn    Holder
}

type cooldownRecord struct {
	uses    int
	started time.Time
}

// Cooldowns rate-limits chat commands per (command, connection). A record is
// removed by a timer once its window has passed, but only if it is still the
// record the timer was armed for.
type Cooldowns struct {
	mu      sync.Mutex
	records map[cooldownKey]*cooldownRecord
	window  time.Duration
	uses    int
	now     func() time.Time
}

// NewCooldowns allows uses invocations per window.
func NewCooldowns(window time.Duration, uses int) *Cooldowns {
	return &Cooldowns{
		records: make(map[cooldownKey]*cooldownRecord),
		window:  window,
		uses:    max(uses, 1),
		now:     time.Now,
	}
}

// Use records one invocation. When the limit is reached it returns false and
// how long until the window ends.
func (c *Cooldowns) Use(command string, conn Holder) (bool, time.Duration) {
	if c.window <= 0 {
		return true, 0
	}
	key := cooldownKey{command: command, conn: conn}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[key]
	if ok && now.Sub(rec.started) >= c.window {
		delete(c.records, key)
		ok = false
	}
	if !ok {
		rec = &cooldownRecord{uses: 1, started: now}
		c.records[key] = rec
		time.AfterFunc(c.window, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.records[key] == rec {
				delete(c.records, key)
			}
		})
		return true, 0
	}
	if rec.uses >= c.uses {
		return false, rec.started.Add(c.window).Sub(now)
	}
	rec.uses++
	return true, 0
}

// Clear forgets every record of conn.
func (c *Cooldowns) Clear(conn Holder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.records {
		if k.conn == conn {
			delete(c.records, k)
		}
	}
}

// Len returns the number of live records.
func (c *Cooldowns) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

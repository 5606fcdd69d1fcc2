package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner is anything with expired entries to drop.
type Cleaner interface {
	Cleanup() int
	Len() int
}

// Sweep runs Cleanup on every named cleaner each interval until ctx is done.
func Sweep(ctx context.Context, interval time.Duration, cleaners map[string]Cleaner) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name, c := range cleaners {
				if n := c.Cleanup(); n > 0 {
					slog.Debug("cache cleanup", "cache", name, "removed", n, "remaining", c.Len())
				}
			}
		}
	}
}

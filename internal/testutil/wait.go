package testutil

import (
	"testing"
	"time"
)

// WaitFor опрашивает check, пока он не вернёт true, и валит тест по
// истечении timeout. Используется вместо time.Sleep при работе с
// воркерами и транспортом.
func WaitFor(t testing.TB, check func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for !check() {
		select {
		case <-deadline.C:
			t.Fatalf("condition not met within %v", timeout)
		case <-ticker.C:
		}
	}
}

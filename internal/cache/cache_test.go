package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCache_GetSet(t *testing.T) {
	c := New(Options[string, int]{TTL: time.Hour, Capacity: 10})

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c.Set("a", 2)
	v, _ = c.Get("a")
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestCache_TTLIgnoresAccess(t *testing.T) {
	clock := newFakeClock()
	var evicted []string
	c := New(Options[string, int]{
		TTL: time.Hour,
		Now: clock.Now,
		OnEvict: func(k string, _ int) {
			evicted = append(evicted, k)
		},
	})

	c.Set("a", 1)
	for range 6 {
		clock.Advance(10 * time.Minute)
		_, ok := c.Get("a")
		require.True(t, ok, "entry is live at exactly TTL")
	}

	clock.Advance(time.Nanosecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry evicted on lookup")
	assert.Equal(t, []string{"a"}, evicted)
}

func TestCache_LRUEvictsOldestAccess(t *testing.T) {
	clock := newFakeClock()
	c := New(Options[int, string]{TTL: time.Hour, Capacity: 3, Now: clock.Now})

	for i := 1; i <= 3; i++ {
		c.Set(i, fmt.Sprint(i))
		clock.Advance(time.Second)
	}
	// 1 becomes the most recent, 2 the oldest
	_, _ = c.Get(1)
	clock.Advance(time.Second)

	c.Set(4, "4")

	_, ok := c.Get(2)
	assert.False(t, ok, "least recently accessed entry evicted")
	for _, k := range []int{1, 3, 4} {
		_, ok := c.Get(k)
		assert.True(t, ok, "key %d kept", k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestCache_OverwriteAtCapacityDoesNotEvict(t *testing.T) {
	c := New(Options[int, int]{Capacity: 2})
	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(2, 20)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(1)
	assert.True(t, ok)
}

func TestCache_CapacityOneKeepsNewest(t *testing.T) {
	c := New(Options[int, int]{Capacity: 1})
	c.Set(1, 1)
	c.Set(2, 2)

	_, ok := c.Get(2)
	assert.True(t, ok, "just-inserted entry is never the victim")
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestCache_Modify(t *testing.T) {
	clock := newFakeClock()
	c := New(Options[string, int]{TTL: time.Minute, Now: clock.Now})

	assert.False(t, c.Modify("missing", func(v int) int { return v + 1 }))

	c.Set("a", 1)
	assert.True(t, c.Modify("a", func(v int) int { return v + 1 }))
	v, _ := c.Get("a")
	assert.Equal(t, 2, v)

	clock.Advance(2 * time.Minute)
	assert.False(t, c.Modify("a", func(v int) int { return v + 1 }))
	assert.Equal(t, 0, c.Len())
}

func TestCache_ModifyConcurrent(t *testing.T) {
	c := New(Options[string, int]{})
	c.Set("n", 0)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Modify("n", func(v int) int { return v + 1 })
			}
		}()
	}
	wg.Wait()

	v, _ := c.Get("n")
	assert.Equal(t, 5000, v)
}

func TestCache_ModifyAfterConcurrentDelete(t *testing.T) {
	c := New(Options[string, int]{TTL: time.Hour, Capacity: 10})
	c.Set("a", 1)

	held := make(chan struct{})
	release := make(chan struct{})
	go c.View("a", func(int) {
		close(held)
		<-release
	})
	<-held

	result := make(chan bool, 1)
	go func() { result <- c.Modify("a", func(v int) int { return v + 1 }) }()
	time.Sleep(20 * time.Millisecond)
	require.True(t, c.Delete("a"))
	close(release)

	assert.False(t, <-result, "a removed entry is not patched")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_CloneIsolatesReaders(t *testing.T) {
	c := New(Options[string, []int]{
		Clone: func(v []int) []int { return append([]int(nil), v...) },
	})
	c.Set("a", []int{1, 2})

	got, _ := c.Get("a")
	got[0] = 99

	again, _ := c.Get("a")
	assert.Equal(t, []int{1, 2}, again)
}

func TestCache_AllSkipsExpiredWithoutEvicting(t *testing.T) {
	clock := newFakeClock()
	c := New(Options[string, int]{TTL: time.Minute, Now: clock.Now})

	c.Set("old", 1)
	clock.Advance(2 * time.Minute)
	c.Set("new", 2)

	got := map[string]int{}
	for k, v := range c.All() {
		got[k] = v
	}

	assert.Equal(t, map[string]int{"new": 2}, got)
	assert.Equal(t, 2, c.Len(), "All does not evict")
}

func TestCache_Cleanup(t *testing.T) {
	clock := newFakeClock()
	c := New(Options[string, int]{TTL: time.Minute, Now: clock.Now})

	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(30 * time.Second)
	c.Set("c", 3)
	clock.Advance(45 * time.Second)

	assert.Equal(t, 2, c.Cleanup())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("c")
	assert.True(t, ok)
}

func TestCache_RenewExtendsTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(Options[string, int]{TTL: time.Minute, Now: clock.Now})

	c.Set("a", 1)
	clock.Advance(50 * time.Second)
	require.True(t, c.Renew("a"))
	clock.Advance(50 * time.Second)

	_, ok := c.Get("a")
	assert.True(t, ok)
	assert.False(t, c.Renew("missing"))
}

func TestCache_Delete(t *testing.T) {
	c := New(Options[string, int]{})
	c.Set("a", 1)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 0, c.Len())
}

func TestCache_View(t *testing.T) {
	c := New(Options[string, *int]{})
	n := 5
	c.Set("a", &n)

	var seen int
	assert.True(t, c.View("a", func(v *int) { seen = *v }))
	assert.Equal(t, 5, seen)
	assert.False(t, c.View("b", func(*int) {}))
}

package transport

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDPool_LowestFirst(t *testing.T) {
	p := NewIDPool()
	for want := uint32(1); want <= 5; want++ {
		assert.Equal(t, want, p.Acquire())
	}

	p.Release(4)
	p.Release(2)
	p.Release(3)

	assert.Equal(t, uint32(2), p.Acquire())
	assert.Equal(t, uint32(3), p.Acquire())
	assert.Equal(t, uint32(4), p.Acquire())
	assert.Equal(t, uint32(6), p.Acquire())
}

func TestIDPool_Concurrent(t *testing.T) {
	p := NewIDPool()
	var (
		mu   sync.Mutex
		seen = make(map[uint32]bool)
		wg   sync.WaitGroup
	)
	for range 50 {
		wg.Go(func() {
			id := p.Acquire()
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[id], "id %d handed out twice", id)
			seen[id] = true
		})
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

type sink struct {
	mu      sync.Mutex
	batches [][][]byte
	err     error
}

func (s *sink) write(batch [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([][]byte(nil), batch...))
	return s.err
}

func (s *sink) frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]byte
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func TestOutbox_DeliversInOrder(t *testing.T) {
	var s sink
	o := NewOutbox(16, s.write)

	// queued before the pump starts, so they arrive as one batch
	for i := range 3 {
		require.NoError(t, o.Push([]byte{byte(i)}))
	}
	done := make(chan error, 1)
	go func() { done <- o.Run() }()

	require.Eventually(t, func() bool { return len(s.frames()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, [][]byte{{0}, {1}, {2}}, s.frames())
	s.mu.Lock()
	assert.Len(t, s.batches, 1)
	s.mu.Unlock()

	o.Close()
	assert.NoError(t, <-done)
	assert.ErrorIs(t, o.Push([]byte{9}), ErrClosed)
}

func TestOutbox_Full(t *testing.T) {
	o := NewOutbox(2, func([][]byte) error { return nil })
	require.NoError(t, o.Push([]byte{1}))
	require.NoError(t, o.Push([]byte{2}))
	assert.ErrorIs(t, o.Push([]byte{3}), ErrQueueFull)
}

func TestOutbox_FlushOnClose(t *testing.T) {
	var s sink
	o := NewOutbox(4, s.write)
	require.NoError(t, o.Push([]byte{1}))
	require.NoError(t, o.Push([]byte{2}))
	o.Close()
	<-o.Done()

	assert.NoError(t, o.Run())
	assert.Len(t, s.frames(), 2)
}

func TestOutbox_WriteError(t *testing.T) {
	boom := errors.New("boom")
	s := sink{err: boom}
	o := NewOutbox(4, s.write)
	require.NoError(t, o.Push([]byte{1}))
	assert.ErrorIs(t, o.Run(), boom)
}

func TestBytePool(t *testing.T) {
	p := NewBytePool(8)
	b := p.Get(4)
	assert.Len(t, b, 4)
	p.Put(b)

	big := p.Get(64)
	assert.Len(t, big, 64)
	p.Put(nil)
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "connect", EventConnect.String())
	assert.Equal(t, "receive", EventReceive.String())
	assert.Equal(t, "disconnect", EventDisconnect.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}

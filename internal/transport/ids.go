package transport

import (
	"container/heap"
	"sync"
)

// IDPool hands out connection ids starting at 1, always reusing the lowest
// released id first.
type IDPool struct {
	mu   sync.Mutex
	free idHeap
	next uint32
}

// NewIDPool creates an empty pool.
func NewIDPool() *IDPool {
	return &IDPool{next: 1}
}

// Acquire returns the lowest id not in use.
func (p *IDPool) Acquire() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.free.Len() > 0 {
		return heap.Pop(&p.free).(uint32)
	}
	id := p.next
	p.next++
	return id
}

// Release returns id to the pool. Releasing an id twice is a caller bug.
func (p *IDPool) Release(id uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	heap.Push(&p.free, id)
}

type idHeap []uint32

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(uint32)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

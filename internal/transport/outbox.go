package transport

import "sync"

// Outbox is a bounded per-connection send queue drained by a single pump
// goroutine. Frames queued together are handed to the writer as one batch.
type Outbox struct {
	ch        chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
	write     func(batch [][]byte) error
}

// NewOutbox creates an outbox holding up to size frames.
func NewOutbox(size int, write func(batch [][]byte) error) *Outbox {
	if size <= 0 {
		size = 256
	}
	return &Outbox{
		ch:      make(chan []byte, size),
		closeCh: make(chan struct{}),
		write:   write,
	}
}

// Push queues a frame without blocking.
func (o *Outbox) Push(frame []byte) error {
	select {
	case <-o.closeCh:
		return ErrClosed
	default:
	}
	select {
	case o.ch <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run writes queued frames until Close or a write error. Frames still queued
// at Close are flushed first.
func (o *Outbox) Run() error {
	batch := make([][]byte, 0, 64)
	for {
		select {
		case frame := <-o.ch:
			batch = append(batch[:0], frame)
			for range len(o.ch) {
				batch = append(batch, <-o.ch)
			}
			if err := o.write(batch); err != nil {
				return err
			}
		case <-o.closeCh:
			return o.flush(batch)
		}
	}
}

func (o *Outbox) flush(batch [][]byte) error {
	batch = batch[:0]
	for {
		select {
		case frame := <-o.ch:
			batch = append(batch, frame)
		default:
			if len(batch) == 0 {
				return nil
			}
			return o.write(batch)
		}
	}
}

// Close stops the pump. Safe to call multiple times.
func (o *Outbox) Close() {
	o.closeOnce.Do(func() { close(o.closeCh) })
}

// Done is closed once Close has been called.
func (o *Outbox) Done() <-chan struct{} {
	return o.closeCh
}

// Package udp is a datagram transport for game clients.
//
// Every datagram starts with a two byte header: op, channel. A client opens a
// connection with OpConnect and is answered with OpConnect followed by its
// connection id (u32 LE). Game frames travel as OpData, one frame per
// datagram. OpPing is echoed back. Either side may send OpDisconnect.
// Connections that stay silent longer than the idle timeout are dropped.
package udp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/growgo/internal/transport"
)

// Datagram ops.
const (
	OpConnect    byte = 1
	OpData       byte = 2
	OpDisconnect byte = 3
	OpPing       byte = 4
)

const (
	HeaderSize    = 2
	MaxDatagram   = 64 * 1024
	eventsBacklog = 1024
)

// Options configures a Host.
type Options struct {
	SendQueueSize int
	IdleTimeout   time.Duration
}

type peer struct {
	id       uint32
	addr     net.Addr
	channel  uint8
	lastSeen atomic.Int64
	out      *transport.Outbox
	stopped  chan struct{} // closed when the write pump exits
}

// Host serves game clients over UDP.
type Host struct {
	addr string
	opts Options

	conn   net.PacketConn
	events chan transport.Event
	ready  chan struct{}
	done   chan struct{}

	ids  *transport.IDPool
	pool *transport.BytePool

	mu     sync.Mutex
	byID   map[uint32]*peer
	byAddr map[string]*peer

	now func() time.Time
}

var _ transport.Host = (*Host)(nil)

// New creates a host that will listen on addr once Run is called.
func New(addr string, opts Options) *Host {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	return &Host{
		addr:   addr,
		opts:   opts,
		events: make(chan transport.Event, eventsBacklog),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
		ids:    transport.NewIDPool(),
		pool:   transport.NewBytePool(1024),
		byID:   make(map[uint32]*peer),
		byAddr: make(map[string]*peer),
		now:    time.Now,
	}
}

// Events delivers connection events. The channel is never closed.
func (h *Host) Events() <-chan transport.Event {
	return h.events
}

// Ready is closed once the socket is bound.
func (h *Host) Ready() <-chan struct{} {
	return h.ready
}

// Addr returns the bound address. Valid after Ready.
func (h *Host) Addr() net.Addr {
	return h.conn.LocalAddr()
}

// Run listens until ctx is cancelled.
func (h *Host) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.conn = conn
	close(h.ready)
	slog.Info("udp host listening", "address", conn.LocalAddr())

	var wg sync.WaitGroup
	wg.Go(func() {
		<-ctx.Done()
		conn.Close()
	})
	wg.Go(func() { h.reapIdle(ctx) })

	err = h.readLoop(ctx)

	close(h.done)
	h.dropAll()
	wg.Wait()
	return err
}

func (h *Host) readLoop(ctx context.Context) error {
	buf := make([]byte, MaxDatagram)
	for {
		n, addr, err := h.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("reading datagram: %w", err)
		}
		if n < HeaderSize {
			continue
		}
		h.handle(addr, buf[0], buf[1], buf[HeaderSize:n])
	}
}

func (h *Host) handle(addr net.Addr, op, channel byte, payload []byte) {
	key := addr.String()

	h.mu.Lock()
	p := h.byAddr[key]
	h.mu.Unlock()

	if p != nil {
		p.lastSeen.Store(h.now().UnixNano())
	}

	switch op {
	case OpConnect:
		if p == nil {
			p = h.accept(addr, channel)
		}
		h.writeControl(addr, OpConnect, p.channel, binary.LittleEndian.AppendUint32(nil, p.id))
	case OpData:
		if p == nil {
			h.writeControl(addr, OpDisconnect, channel, nil)
			return
		}
		data := make([]byte, len(payload))
		copy(data, payload)
		h.emit(transport.Event{Kind: transport.EventReceive, Conn: p.id, Channel: channel, Data: data, Addr: key})
	case OpPing:
		if p != nil {
			h.writeControl(addr, OpPing, channel, nil)
		}
	case OpDisconnect:
		if p != nil {
			h.drop(p.id, false)
		}
	default:
		slog.Debug("unknown udp op", "op", op, "addr", key)
	}
}

func (h *Host) accept(addr net.Addr, channel uint8) *peer {
	p := &peer{
		id:      h.ids.Acquire(),
		addr:    addr,
		channel: channel,
		stopped: make(chan struct{}),
	}
	p.lastSeen.Store(h.now().UnixNano())
	p.out = transport.NewOutbox(h.opts.SendQueueSize, func(batch [][]byte) error {
		return h.writeData(p, batch)
	})

	h.mu.Lock()
	h.byID[p.id] = p
	h.byAddr[addr.String()] = p
	h.mu.Unlock()

	go func() {
		err := p.out.Run()
		close(p.stopped)
		if err != nil {
			slog.Warn("udp write failed", "conn", p.id, "error", err)
			h.drop(p.id, true)
		}
	}()

	slog.Debug("udp peer connected", "conn", p.id, "addr", addr)
	h.emit(transport.Event{Kind: transport.EventConnect, Conn: p.id, Channel: channel, Addr: addr.String()})
	return p
}

func (h *Host) writeData(p *peer, batch [][]byte) error {
	for _, frame := range batch {
		buf := h.pool.Get(HeaderSize + len(frame))
		buf[0] = OpData
		buf[1] = p.channel
		copy(buf[HeaderSize:], frame)
		_, err := h.conn.WriteTo(buf, p.addr)
		h.pool.Put(buf)
		if err != nil {
			return fmt.Errorf("writing to %s: %w", p.addr, err)
		}
	}
	return nil
}

func (h *Host) writeControl(addr net.Addr, op, channel byte, body []byte) {
	buf := append([]byte{op, channel}, body...)
	if _, err := h.conn.WriteTo(buf, addr); err != nil {
		slog.Debug("udp control write failed", "addr", addr, "op", op, "error", err)
	}
}

// Send queues frames for conn. A full queue drops the connection.
func (h *Host) Send(conn uint32, frames ...[]byte) error {
	h.mu.Lock()
	p := h.byID[conn]
	h.mu.Unlock()
	if p == nil {
		return fmt.Errorf("conn %d: %w", conn, transport.ErrUnknownConn)
	}
	for _, f := range frames {
		if err := p.out.Push(f); err != nil {
			if errors.Is(err, transport.ErrQueueFull) {
				slog.Warn("send queue full, disconnecting slow client", "conn", conn)
				h.drop(conn, true)
			}
			return fmt.Errorf("conn %d: %w", conn, err)
		}
	}
	return nil
}

// Disconnect flushes queued frames, tells the client and removes the connection.
func (h *Host) Disconnect(conn uint32) error {
	if !h.drop(conn, true) {
		return fmt.Errorf("conn %d: %w", conn, transport.ErrUnknownConn)
	}
	return nil
}

// drop removes the peer and emits EventDisconnect. notify sends OpDisconnect
// to the client.
func (h *Host) drop(conn uint32, notify bool) bool {
	h.mu.Lock()
	p := h.byID[conn]
	if p != nil {
		delete(h.byID, conn)
		delete(h.byAddr, p.addr.String())
	}
	h.mu.Unlock()
	if p == nil {
		return false
	}

	p.out.Close()
	if notify {
		<-p.stopped
		h.writeControl(p.addr, OpDisconnect, p.channel, nil)
	}
	slog.Debug("udp peer disconnected", "conn", p.id, "addr", p.addr)
	// The disconnect must be queued before the id can be handed out again.
	h.emit(transport.Event{Kind: transport.EventDisconnect, Conn: p.id, Channel: p.channel, Addr: p.addr.String()})
	h.ids.Release(p.id)
	return true
}

func (h *Host) dropAll() {
	h.mu.Lock()
	ids := make([]uint32, 0, len(h.byID))
	for id := range h.byID {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.drop(id, true)
	}
}

func (h *Host) reapIdle(ctx context.Context) {
	tick := time.NewTicker(max(h.opts.IdleTimeout/4, 10*time.Millisecond))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			cutoff := h.now().Add(-h.opts.IdleTimeout).UnixNano()
			var idle []uint32
			h.mu.Lock()
			for id, p := range h.byID {
				if p.lastSeen.Load() < cutoff {
					idle = append(idle, id)
				}
			}
			h.mu.Unlock()
			for _, id := range idle {
				slog.Info("udp peer timed out", "conn", id)
				h.drop(id, true)
			}
		}
	}
}

func (h *Host) emit(ev transport.Event) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

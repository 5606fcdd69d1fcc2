package testutil

import (
	"context"
	"sync"

	"github.com/udisondev/growgo/internal/transport"
)

// FakeHost: in-memory transport.Host для unit тестов сервера.
// Записывает отправленные фреймы и отключения, события подаются тестом.
type FakeHost struct {
	events chan transport.Event

	mu           sync.Mutex
	open         map[uint32]bool
	sent         map[uint32][][]byte
	disconnected []uint32
}

// NewFakeHost создаёт FakeHost с буферизированным каналом событий.
func NewFakeHost() *FakeHost {
	return &FakeHost{
		events: make(chan transport.Event, 256),
		open:   make(map[uint32]bool),
		sent:   make(map[uint32][][]byte),
	}
}

// Run блокируется до отмены ctx.
func (h *FakeHost) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Events возвращает канал событий.
func (h *FakeHost) Events() <-chan transport.Event {
	return h.events
}

// Send записывает фреймы для conn.
func (h *FakeHost) Send(conn uint32, frames ...[]byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open[conn] {
		return transport.ErrUnknownConn
	}
	h.sent[conn] = append(h.sent[conn], frames...)
	return nil
}

// Disconnect закрывает conn и эмитит ровно одно EventDisconnect.
func (h *FakeHost) Disconnect(conn uint32) error {
	h.mu.Lock()
	if !h.open[conn] {
		h.mu.Unlock()
		return transport.ErrUnknownConn
	}
	delete(h.open, conn)
	h.disconnected = append(h.disconnected, conn)
	h.mu.Unlock()

	h.events <- transport.Event{Kind: transport.EventDisconnect, Conn: conn}
	return nil
}

// Connect эмулирует подключение клиента.
func (h *FakeHost) Connect(conn uint32) {
	h.mu.Lock()
	h.open[conn] = true
	h.mu.Unlock()
	h.events <- transport.Event{Kind: transport.EventConnect, Conn: conn, Addr: "127.0.0.1:0"}
}

// Receive эмулирует входящий фрейм.
func (h *FakeHost) Receive(conn uint32, data []byte) {
	h.events <- transport.Event{Kind: transport.EventReceive, Conn: conn, Data: data}
}

// Sent возвращает копию фреймов, отправленных conn.
func (h *FakeHost) Sent(conn uint32) [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.sent[conn]...)
}

// Reset очищает записанные фреймы conn.
func (h *FakeHost) Reset(conn uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sent, conn)
}

// Disconnected возвращает conn, отключённые через Disconnect.
func (h *FakeHost) Disconnected() []uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]uint32(nil), h.disconnected...)
}

// IsOpen сообщает, подключён ли conn.
func (h *FakeHost) IsOpen(conn uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open[conn]
}

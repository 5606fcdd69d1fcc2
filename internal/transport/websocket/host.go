// Package websocket serves game clients over WebSocket, one binary message
// per frame.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/growgo/internal/transport"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	eventsBacklog  = 1024
)

// Path is the upgrade endpoint.
const Path = "/ws"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	id   uint32
	conn *websocket.Conn
	out  *transport.Outbox
	addr string
	once sync.Once
}

// Host is a WebSocket transport.
type Host struct {
	addr          string
	sendQueueSize int

	ln     net.Listener
	events chan transport.Event
	ready  chan struct{}
	done   chan struct{}
	ids    *transport.IDPool

	mu      sync.Mutex
	clients map[uint32]*client
}

var _ transport.Host = (*Host)(nil)

// New creates a host that will listen on addr once Run is called.
func New(addr string, sendQueueSize int) *Host {
	return &Host{
		addr:          addr,
		sendQueueSize: sendQueueSize,
		events:        make(chan transport.Event, eventsBacklog),
		ready:         make(chan struct{}),
		done:          make(chan struct{}),
		ids:           transport.NewIDPool(),
		clients:       make(map[uint32]*client),
	}
}

// Events delivers connection events. The channel is never closed.
func (h *Host) Events() <-chan transport.Event { return h.events }

// Ready is closed once the listener is bound.
func (h *Host) Ready() <-chan struct{} { return h.ready }

// Addr returns the bound address. Valid after Ready.
func (h *Host) Addr() net.Addr { return h.ln.Addr() }

// Run serves HTTP upgrades until ctx is cancelled.
func (h *Host) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc(Path, h.serveWS)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	close(h.ready)
	slog.Info("websocket host listening", "address", ln.Addr())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			close(h.done)
			return fmt.Errorf("serving websocket: %w", err)
		}
	}

	close(h.done)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	h.mu.Lock()
	all := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.Unlock()
	for _, c := range all {
		h.drop(c)
	}
	return nil
}

func (h *Host) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		id:   h.ids.Acquire(),
		conn: conn,
		addr: r.RemoteAddr,
	}
	c.out = transport.NewOutbox(h.sendQueueSize, func(batch [][]byte) error {
		for _, frame := range batch {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return err
			}
		}
		return nil
	})

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.emit(transport.Event{Kind: transport.EventConnect, Conn: c.id, Addr: c.addr})
	go h.writePump(c)
	h.readPump(c)
}

func (h *Host) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read failed", "conn", c.id, "error", err)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		h.emit(transport.Event{Kind: transport.EventReceive, Conn: c.id, Data: data, Addr: c.addr})
	}
}

func (h *Host) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- c.out.Run() }()

	for {
		select {
		case err := <-errCh:
			if err != nil {
				slog.Debug("websocket write failed", "conn", c.id, "error", err)
			} else {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
			}
			c.conn.Close()
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.out.Close()
			}
		}
	}
}

// Send queues frames for conn. A full queue drops the connection.
func (h *Host) Send(conn uint32, frames ...[]byte) error {
	h.mu.Lock()
	c := h.clients[conn]
	h.mu.Unlock()
	if c == nil {
		return fmt.Errorf("conn %d: %w", conn, transport.ErrUnknownConn)
	}
	for _, f := range frames {
		if err := c.out.Push(f); err != nil {
			if errors.Is(err, transport.ErrQueueFull) {
				slog.Warn("send queue full, disconnecting slow client", "conn", conn)
				h.drop(c)
			}
			return fmt.Errorf("conn %d: %w", conn, err)
		}
	}
	return nil
}

// Disconnect flushes queued frames and closes the connection.
func (h *Host) Disconnect(conn uint32) error {
	h.mu.Lock()
	c := h.clients[conn]
	h.mu.Unlock()
	if c == nil {
		return fmt.Errorf("conn %d: %w", conn, transport.ErrUnknownConn)
	}
	h.drop(c)
	return nil
}

// drop is idempotent per client. The write pump closes the socket after
// flushing, which in turn ends the read pump.
func (h *Host) drop(c *client) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()

		c.out.Close()
		h.emit(transport.Event{Kind: transport.EventDisconnect, Conn: c.id, Addr: c.addr})
		h.ids.Release(c.id)
	})
}

func (h *Host) emit(ev transport.Event) {
	select {
	case h.events <- ev:
	case <-h.done:
	}
}

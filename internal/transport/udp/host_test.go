package udp

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/growgo/internal/transport"
)

func startHost(t *testing.T, opts Options) *Host {
	t.Helper()
	h := New("127.0.0.1:0", opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("host did not stop")
		}
	})

	select {
	case <-h.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("host not ready")
	}
	return h
}

type client struct {
	t    *testing.T
	conn net.PacketConn
	host net.Addr
}

func dial(t *testing.T, h *Host) *client {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn, host: h.Addr()}
}

func (c *client) send(op, channel byte, payload []byte) {
	c.t.Helper()
	_, err := c.conn.WriteTo(append([]byte{op, channel}, payload...), c.host)
	require.NoError(c.t, err)
}

func (c *client) recv() (op, channel byte, payload []byte) {
	c.t.Helper()
	buf := make([]byte, MaxDatagram)
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := c.conn.ReadFrom(buf)
	require.NoError(c.t, err)
	require.GreaterOrEqual(c.t, n, HeaderSize)
	return buf[0], buf[1], buf[HeaderSize:n]
}

func (c *client) connect() uint32 {
	c.t.Helper()
	c.send(OpConnect, 0, nil)
	op, _, payload := c.recv()
	require.Equal(c.t, OpConnect, op)
	require.Len(c.t, payload, 4)
	return binary.LittleEndian.Uint32(payload)
}

func nextEvent(t *testing.T, h *Host) transport.Event {
	t.Helper()
	select {
	case ev := <-h.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
		return transport.Event{}
	}
}

func TestHost_ConnectReceiveSend(t *testing.T) {
	h := startHost(t, Options{SendQueueSize: 8})
	c := dial(t, h)

	id := c.connect()
	assert.Equal(t, uint32(1), id)
	ev := nextEvent(t, h)
	assert.Equal(t, transport.EventConnect, ev.Kind)
	assert.Equal(t, id, ev.Conn)

	c.send(OpData, 0, []byte("hello"))
	ev = nextEvent(t, h)
	assert.Equal(t, transport.EventReceive, ev.Kind)
	assert.Equal(t, []byte("hello"), ev.Data)

	require.NoError(t, h.Send(id, []byte("one"), []byte("two")))
	for _, want := range []string{"one", "two"} {
		op, _, payload := c.recv()
		assert.Equal(t, OpData, op)
		assert.Equal(t, want, string(payload))
	}

	// repeated connect is answered with the same id
	assert.Equal(t, id, c.connect())
}

func TestHost_Ping(t *testing.T) {
	h := startHost(t, Options{})
	c := dial(t, h)
	c.connect()
	nextEvent(t, h)

	c.send(OpPing, 0, nil)
	op, _, _ := c.recv()
	assert.Equal(t, OpPing, op)
}

func TestHost_DataWithoutConnect(t *testing.T) {
	h := startHost(t, Options{})
	c := dial(t, h)

	c.send(OpData, 0, []byte("x"))
	op, _, _ := c.recv()
	assert.Equal(t, OpDisconnect, op)
	select {
	case ev := <-h.Events():
		t.Fatalf("unexpected event %v", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHost_IDReuseLowestFirst(t *testing.T) {
	h := startHost(t, Options{})
	clients := make([]*client, 3)
	for i := range clients {
		clients[i] = dial(t, h)
		assert.Equal(t, uint32(i+1), clients[i].connect())
		nextEvent(t, h)
	}

	clients[0].send(OpDisconnect, 0, nil)
	ev := nextEvent(t, h)
	assert.Equal(t, transport.EventDisconnect, ev.Kind)
	assert.Equal(t, uint32(1), ev.Conn)

	require.NoError(t, h.Disconnect(2))
	ev = nextEvent(t, h)
	assert.Equal(t, transport.EventDisconnect, ev.Kind)
	op, _, _ := clients[1].recv()
	assert.Equal(t, OpDisconnect, op)

	fresh := dial(t, h)
	assert.Equal(t, uint32(1), fresh.connect())
	another := dial(t, h)
	assert.Equal(t, uint32(2), another.connect())
}

func TestHost_ReusedIDDisconnectComesFirst(t *testing.T) {
	for range 20 {
		h := startHost(t, Options{})
		old := dial(t, h)
		id := old.connect()
		nextEvent(t, h)

		go func() { _ = h.Disconnect(id) }()
		fresh := dial(t, h)
		freshID := fresh.connect()

		disconnectAt, connectAt := -1, -1
		for i := range 2 {
			ev := nextEvent(t, h)
			switch {
			case ev.Kind == transport.EventDisconnect && ev.Conn == id:
				disconnectAt = i
			case ev.Kind == transport.EventConnect && ev.Conn == freshID:
				connectAt = i
			}
		}
		require.GreaterOrEqual(t, disconnectAt, 0)
		require.GreaterOrEqual(t, connectAt, 0)
		if freshID == id {
			assert.Less(t, disconnectAt, connectAt, "id %d reused before its disconnect was queued", id)
		}
	}
}

func TestHost_DisconnectFlushesFirst(t *testing.T) {
	h := startHost(t, Options{SendQueueSize: 8})
	c := dial(t, h)
	id := c.connect()
	nextEvent(t, h)

	require.NoError(t, h.Send(id, []byte("bye")))
	require.NoError(t, h.Disconnect(id))

	op, _, payload := c.recv()
	assert.Equal(t, OpData, op)
	assert.Equal(t, "bye", string(payload))
	op, _, _ = c.recv()
	assert.Equal(t, OpDisconnect, op)

	assert.ErrorIs(t, h.Disconnect(id), transport.ErrUnknownConn)
	assert.ErrorIs(t, h.Send(id, []byte("late")), transport.ErrUnknownConn)
}

func TestHost_IdleTimeout(t *testing.T) {
	h := startHost(t, Options{IdleTimeout: 100 * time.Millisecond})
	c := dial(t, h)
	id := c.connect()
	nextEvent(t, h)

	ev := nextEvent(t, h)
	assert.Equal(t, transport.EventDisconnect, ev.Kind)
	assert.Equal(t, id, ev.Conn)
	op, _, _ := c.recv()
	assert.Equal(t, OpDisconnect, op)
}

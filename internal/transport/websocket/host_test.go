package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/growgo/internal/transport"
)

func startHost(t *testing.T) *Host {
	t.Helper()
	h := New("127.0.0.1:0", 16)
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

func dialWS(t *testing.T, h *Host) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+h.Addr().String()+Path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
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

func TestHost_RoundTrip(t *testing.T) {
	h := startHost(t)
	conn := dialWS(t, h)

	ev := nextEvent(t, h)
	require.Equal(t, transport.EventConnect, ev.Kind)
	id := ev.Conn
	assert.Equal(t, uint32(1), id)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 0, 0, 0}))
	ev = nextEvent(t, h)
	assert.Equal(t, transport.EventReceive, ev.Kind)
	assert.Equal(t, []byte{1, 0, 0, 0}, ev.Data)

	// text messages are not frames
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hi")))

	require.NoError(t, h.Send(id, []byte("a"), []byte("b")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for _, want := range []string{"a", "b"} {
		mt, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.BinaryMessage, mt)
		assert.Equal(t, want, string(data))
	}
}

func TestHost_Disconnect(t *testing.T) {
	h := startHost(t)
	conn := dialWS(t, h)
	id := nextEvent(t, h).Conn

	require.NoError(t, h.Send(id, []byte("last")))
	require.NoError(t, h.Disconnect(id))

	ev := nextEvent(t, h)
	assert.Equal(t, transport.EventDisconnect, ev.Kind)
	assert.Equal(t, id, ev.Conn)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "last", string(data))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	assert.ErrorIs(t, h.Disconnect(id), transport.ErrUnknownConn)
	assert.ErrorIs(t, h.Send(id, []byte("x")), transport.ErrUnknownConn)
}

func TestHost_RemoteCloseReusesID(t *testing.T) {
	h := startHost(t)
	first := dialWS(t, h)
	id := nextEvent(t, h).Conn

	require.NoError(t, first.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	ev := nextEvent(t, h)
	assert.Equal(t, transport.EventDisconnect, ev.Kind)

	dialWS(t, h)
	ev = nextEvent(t, h)
	assert.Equal(t, transport.EventConnect, ev.Kind)
	assert.Equal(t, id, ev.Conn)
}

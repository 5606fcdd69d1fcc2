package gameserver

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/udisondev/growgo/internal/config"
	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
	"github.com/udisondev/growgo/internal/testutil"
	"github.com/udisondev/growgo/internal/transport"
)

const waitTimeout = 2 * time.Second

func transportEvent(conn uint32, data []byte) transport.Event {
	return transport.Event{Kind: transport.EventReceive, Conn: conn, Data: data}
}

func TestServer_HelloOnConnect(t *testing.T) {
	f := newFixture(t)
	f.run()

	f.host.Connect(1)

	testutil.WaitFor(t, func() bool { return len(f.sent(1)) > 0 }, waitTimeout)
	assert.Equal(t, protocol.Hello(), f.sent(1)[0])
	p := f.peer(1)
	assert.Equal(t, model.StateConnected, p.State)
	assert.Equal(t, 0, p.Instance)
}

func TestServer_SessionLifecycle(t *testing.T) {
	f := newFixture(t)
	f.session("t1", "u1", "Alice")
	f.session("t2", "u2", "Bob")
	f.run()

	for conn, token := range map[uint32]string{1: "t1", 2: "t2"} {
		f.host.Connect(conn)
		f.host.Receive(conn, loginFrame(token))
		f.host.Receive(conn, appCheckFrame())
		f.host.Receive(conn, testutil.ActionFrame("action|join_request", "name|START"))
	}
	testutil.WaitFor(t, func() bool {
		return len(f.hub.Members("START")) == 2
	}, waitTimeout)

	require.NoError(t, f.host.Disconnect(1))

	testutil.WaitFor(t, func() bool {
		_, ok := f.srv.peers.Get(1)
		return !ok
	}, waitTimeout)
	testutil.WaitFor(t, func() bool { return f.store.PlayerSaves() > 0 }, waitTimeout)

	_, held := f.hub.Registry().Lookup("u1")
	assert.False(t, held, "the session is released")
	assert.Contains(t, testutil.CallNames(t, f.sent(2)), "OnRemove", "the rest of the world sees the leave")

	pl, ok := f.store.Player("u1")
	require.True(t, ok)
	assert.Equal(t, "START", pl.LastWorld)
}

func TestServer_FramesKeepOrder(t *testing.T) {
	f := newFixture(t)
	f.session("t1", "u1", "Alice")
	f.run()

	f.host.Connect(1)
	f.host.Receive(1, loginFrame("t1"))
	f.host.Receive(1, appCheckFrame())
	f.host.Receive(1, testutil.ActionFrame("action|join_request", "name|START"))
	for x := range 20 {
		f.host.Receive(1, testutil.TankFrame(protocol.Tank{Type: protocol.TankState, X: float32(x)}))
	}

	testutil.WaitFor(t, func() bool {
		p, ok := f.srv.peers.Get(1)
		return ok && p.World == "START" && p.X == 19
	}, waitTimeout)
}

func TestServer_ReusedConnID(t *testing.T) {
	f := newFixture(t)
	f.session("t1", "u1", "Alice")
	f.run()

	f.host.Connect(1)
	f.host.Receive(1, loginFrame("t1"))
	testutil.WaitFor(t, func() bool { return f.hub.Registry().Len() == 1 }, waitTimeout)

	require.NoError(t, f.host.Disconnect(1))
	f.host.Connect(1)

	testutil.WaitFor(t, func() bool {
		p, ok := f.srv.peers.Get(1)
		return ok && p.State == model.StateConnected && !p.Authenticated
	}, waitTimeout)
	assert.Zero(t, f.hub.Registry().Len(), "cleanup of the old owner finished first")
}

func TestServer_MailboxFullDisconnects(t *testing.T) {
	f := newFixture(t)
	f.connect(1)
	// No goroutine drains this worker.
	f.srv.workers[1] = newWorker(1, 1, config.FloodConfig{})

	f.srv.onReceive(transportEvent(1, testutil.ActionFrame("action|quit")))
	assert.Empty(t, f.host.Disconnected())

	f.srv.onReceive(transportEvent(1, testutil.ActionFrame("action|quit")))
	assert.Equal(t, []uint32{1}, f.host.Disconnected())
}

func TestServer_FloodLimitDropsFrames(t *testing.T) {
	f := newFixture(t)
	f.connect(1)
	f.srv.workers[1] = newWorker(1, 16, config.FloodConfig{FramesPerSecond: 0.001, Burst: 2})

	for range 5 {
		f.srv.onReceive(transportEvent(1, testutil.ActionFrame("action|quit")))
	}
	assert.Len(t, f.srv.workers[1].mailbox, 2)
	assert.Empty(t, f.host.Disconnected())
}

func TestNewWorker_Limiter(t *testing.T) {
	w := newWorker(1, 0, config.FloodConfig{})
	assert.Equal(t, rate.Inf, w.limiter.Limit())
	assert.Equal(t, 1, cap(w.mailbox))

	w = newWorker(1, 8, config.FloodConfig{FramesPerSecond: 30, Burst: 10})
	assert.Equal(t, rate.Limit(30), w.limiter.Limit())
	assert.Equal(t, 10, w.limiter.Burst())
}

func TestServer_Kick(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")
	f.setGems(1, 12)

	f.srv.kick(1, "bye")

	p := f.peer(1)
	assert.False(t, p.Authenticated)
	assert.Empty(t, p.UserID)
	assert.Equal(t, []string{"bye"}, testutil.ConsoleMessages(t, f.sent(1)))
	assert.Equal(t, []uint32{1}, f.host.Disconnected())

	pl, ok := f.store.Player("u1")
	require.True(t, ok)
	assert.Equal(t, 12, pl.Gems, "saved before the notice")

	// The cleanup that follows neither saves again nor touches the registry.
	saves := f.store.PlayerSaves()
	f.hub.Registry().Claim("u1", Holder{Conn: 9})
	f.srv.handler.cleanup(1)
	f.srv.handler.saves.Wait()
	assert.Equal(t, saves, f.store.PlayerSaves())
	holder, _ := f.hub.Registry().Lookup("u1")
	assert.Equal(t, uint32(9), holder.Conn)
}

func TestServer_EvictedPeerEndsSession(t *testing.T) {
	f := newFixture(t, func(c *config.GameServer) { c.Cache.PeerTTL = 100 * time.Millisecond })
	f.login(1, "u1", "Alice")
	f.setGems(1, 7)

	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, f.srv.peers.Cleanup())
	f.srv.handler.saves.Wait()

	assert.Equal(t, []uint32{1}, f.host.Disconnected())
	_, held := f.hub.Registry().Lookup("u1")
	assert.False(t, held, "session released")
	pl, ok := f.store.Player("u1")
	require.True(t, ok)
	assert.Equal(t, 7, pl.Gems, "progress saved")

	// The worker cleanup that follows finds nothing left to release.
	saves := f.store.PlayerSaves()
	f.srv.handler.cleanup(1)
	assert.Equal(t, saves, f.store.PlayerSaves())

	f.login(2, "u1", "Alice")
	assert.Equal(t, 7, f.peer(2).Gems)
}

func TestServer_KickUnknownConn(t *testing.T) {
	f := newFixture(t)
	f.srv.kick(77, "bye")
	assert.Empty(t, f.host.Disconnected())
}

func TestDispatch_Errors(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")

	t.Run("unknown tag is dropped", func(t *testing.T) {
		frame := make([]byte, 8)
		binary.LittleEndian.PutUint32(frame, 99)
		assert.NoError(t, f.dispatch(1, frame))
	})

	t.Run("short frame", func(t *testing.T) {
		assert.ErrorIs(t, f.dispatch(1, []byte{1}), protocol.ErrMalformed)
	})

	t.Run("truncated tank", func(t *testing.T) {
		frame := make([]byte, 10)
		binary.LittleEndian.PutUint32(frame, uint32(protocol.TagTank))
		assert.ErrorIs(t, f.dispatch(1, frame), protocol.ErrMalformed)
	})

	t.Run("unknown connection", func(t *testing.T) {
		assert.ErrorIs(t, f.dispatch(55, appCheckFrame()), ErrPeerGone)
	})

	t.Run("unknown action is ignored", func(t *testing.T) {
		assert.NoError(t, f.dispatch(1, testutil.ActionFrame("action|dance")))
	})
}

func TestDispatch_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	f.login(1, "u1", "Alice")
	f.srv.ReloadCommands(map[string]Command{
		"boom": {
			MinRole: model.RoleBasic,
			Run: func(context.Context, *Handler, model.Peer, []string) error {
				panic("kaboom")
			},
		},
	})

	err := f.dispatch(1, say("/boom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Contains(t, err.Error(), "kaboom")

	// The connection keeps working afterwards.
	require.NoError(t, f.dispatch(1, appCheckFrame()))
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Run(ctx) }()

	f.host.Connect(1)
	testutil.WaitFor(t, func() bool { return len(f.sent(1)) > 0 }, waitTimeout)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
	}
	_, ok := f.srv.peers.Get(1)
	assert.False(t, ok, "open connections are cleaned up on shutdown")
}

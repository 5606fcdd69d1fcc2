package gameserver

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/growgo/internal/config"
	"github.com/udisondev/growgo/internal/login"
	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
	"github.com/udisondev/growgo/internal/testutil"
	"github.com/udisondev/growgo/internal/world"
)

const testVersion = "4.61"

// fixture is a server instance wired to in-memory collaborators. Frames are
// dispatched synchronously unless the event loop is started with run.
type fixture struct {
	t     *testing.T
	cfg   config.GameServer
	host  *testutil.FakeHost
	store *testutil.Store
	hub   *Hub
	srv   *Server
}

func newFixture(t *testing.T, mutate ...func(*config.GameServer)) *fixture {
	t.Helper()
	cfg := config.DefaultGameServer()
	cfg.GameVersion = testVersion
	cfg.CommandCooldown = time.Minute
	for _, m := range mutate {
		m(&cfg)
	}

	store := testutil.NewStore()
	cats := testutil.Catalogs(t)
	hub := NewHub(HubConfig{
		WorldTTL:      cfg.Cache.WorldTTL,
		WorldCapacity: cfg.Cache.WorldCapacity,
		Worlds:        store,
		Catalog:       cats.Primary,
	})
	host := testutil.NewFakeHost()
	srv := NewServer(cfg, 0, Deps{
		Host:      host,
		Hub:       hub,
		Players:   store,
		Validator: login.NewDBValidator(store),
		Passwords: login.NewPasswordAuthenticator(store),
		Catalogs:  cats,
	})
	hub.register(srv)
	return &fixture{t: t, cfg: cfg, host: host, store: store, hub: hub, srv: srv}
}

// run starts the event loop. The fixture must not be driven with connect
// and dispatch afterwards.
func (f *fixture) run() context.CancelFunc {
	f.t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Run(ctx) }()
	f.t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(f.t, err)
		case <-time.After(5 * time.Second):
			f.t.Error("server did not stop")
		}
	})
	return cancel
}

// connect mirrors what the event loop does on EventConnect.
func (f *fixture) connect(conn uint32) {
	f.host.Connect(conn)
	f.srv.peers.Set(conn, model.NewPeer(0, conn, 0))
}

func (f *fixture) dispatch(conn uint32, data []byte) error {
	return f.srv.handler.Dispatch(context.Background(), conn, data)
}

func (f *fixture) session(token, userID, name string) {
	f.store.AddSession(model.Session{Token: token, UserID: userID, Username: name})
}

func loginFrame(token string) []byte {
	return testutil.TextFrame(
		"tankIDName|",
		"ltoken|"+token,
		"game_version|"+testVersion,
		"platformID|0,1,1",
	)
}

func appCheckFrame() []byte {
	return testutil.TankFrame(protocol.Tank{Type: protocol.TankAppCheckResponse})
}

// login runs the full handshake for a fresh user and clears the recorded frames.
func (f *fixture) login(conn uint32, userID, name string) model.Peer {
	f.t.Helper()
	token := "tok-" + userID
	f.session(token, userID, name)
	f.connect(conn)
	require.NoError(f.t, f.dispatch(conn, loginFrame(token)))
	require.NoError(f.t, f.dispatch(conn, appCheckFrame()))
	f.host.Reset(conn)
	return f.peer(conn)
}

func (f *fixture) join(conn uint32, name string) {
	f.t.Helper()
	require.NoError(f.t, f.dispatch(conn, testutil.ActionFrame("action|join_request", "name|"+name)))
}

func (f *fixture) peer(conn uint32) model.Peer {
	f.t.Helper()
	p, ok := f.srv.peers.Get(conn)
	require.True(f.t, ok, "peer %d missing", conn)
	return p
}

func (f *fixture) sent(conn uint32) [][]byte {
	return f.host.Sent(conn)
}

func (f *fixture) withWorld(name string, fn func(w *world.World)) {
	f.t.Helper()
	require.True(f.t, f.hub.WithWorld(name, fn), "world %s not loaded", name)
}

// gatedPlayers holds the first gated repository call until release is closed.
type gatedPlayers struct {
	PlayerRepository
	gateLoad bool
	gateSave bool

	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedPlayers(repo PlayerRepository) *gatedPlayers {
	g := &gatedPlayers{
		PlayerRepository: repo,
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	g.armed.Store(true)
	return g
}

func (g *gatedPlayers) pass() {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
}

func (g *gatedPlayers) GetOrCreatePlayer(ctx context.Context, userID string, d model.PlayerDefaults) (model.Player, error) {
	if g.gateLoad {
		g.pass()
	}
	return g.PlayerRepository.GetOrCreatePlayer(ctx, userID, d)
}

func (g *gatedPlayers) SavePlayer(ctx context.Context, p model.Player) error {
	if g.gateSave {
		g.pass()
	}
	return g.PlayerRepository.SavePlayer(ctx, p)
}

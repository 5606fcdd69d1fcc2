package gameserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/udisondev/growgo/internal/cache"
	"github.com/udisondev/growgo/internal/catalog"
	"github.com/udisondev/growgo/internal/config"
	"github.com/udisondev/growgo/internal/login"
	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
	"github.com/udisondev/growgo/internal/transport"
)

// PlayerRepository persists player records.
type PlayerRepository interface {
	GetPlayer(ctx context.Context, name string) (model.Player, error)
	GetOrCreatePlayer(ctx context.Context, userID string, d model.PlayerDefaults) (model.Player, error)
	SavePlayer(ctx context.Context, p model.Player) error
	SetPassword(ctx context.Context, userID, hash string) error
}

// PasswordChecker authenticates legacy name and password logins.
type PasswordChecker interface {
	Authenticate(ctx context.Context, name, password string) (model.Session, error)
}

// Deps are the collaborators of a Server.
type Deps struct {
	Host      transport.Host
	Hub       *Hub
	Players   PlayerRepository
	Validator login.Validator
	Passwords PasswordChecker // optional
	Catalogs  *catalog.Set
}

// Server is one game server instance. It owns a transport host and the peer
// cache of its connections, and shares worlds and sessions through the Hub.
type Server struct {
	cfg      config.GameServer
	instance int
	host     transport.Host
	hub      *Hub
	peers    *cache.Cache[uint32, model.Peer]
	handler  *Handler

	// event loop only
	workers map[uint32]*worker
	closing map[uint32]chan struct{}
}

// NewServer creates instance number instance.
func NewServer(cfg config.GameServer, instance int, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		instance: instance,
		host:     deps.Host,
		hub:      deps.Hub,
		workers:  make(map[uint32]*worker),
		closing:  make(map[uint32]chan struct{}),
	}
	s.peers = cache.New(cache.Options[uint32, model.Peer]{
		TTL:      cfg.Cache.PeerTTL,
		Capacity: cfg.Cache.PeerCapacity,
		Clone:    model.Peer.Clone,
		OnEvict:  s.onPeerEvicted,
	})
	s.handler = newHandler(s, deps)
	return s
}

// Instance returns the instance number.
func (s *Server) Instance() int { return s.instance }

// Peers returns the peer cache for the sweeper.
func (s *Server) Peers() *cache.Cache[uint32, model.Peer] { return s.peers }

// Handler returns the frame handler.
func (s *Server) Handler() *Handler { return s.handler }

// ReloadCommands swaps the chat command table.
func (s *Server) ReloadCommands(cmds map[string]Command) {
	s.handler.setCommands(cmds)
}

// Run serves the instance until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.hub.register(s)
	defer s.hub.unregister(s)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.host.Run(gctx); err != nil {
			return fmt.Errorf("instance %d transport: %w", s.instance, err)
		}
		return nil
	})
	g.Go(func() error {
		s.loop(gctx)
		return nil
	})

	slog.Info("game server instance started", "instance", s.instance)
	err := g.Wait()
	s.handler.saves.Wait()
	slog.Info("game server instance stopped", "instance", s.instance)
	return err
}

func (s *Server) loop(ctx context.Context) {
	events := s.host.Events()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case ev, ok := <-events:
			if !ok {
				s.closeAll()
				return
			}
			switch ev.Kind {
			case transport.EventConnect:
				s.onConnect(ctx, ev)
			case transport.EventReceive:
				s.onReceive(ev)
			case transport.EventDisconnect:
				s.onDisconnect(ev.Conn)
			}
		}
	}
}

func (s *Server) onConnect(ctx context.Context, ev transport.Event) {
	// A reused id must not overlap the cleanup of its previous owner.
	if done, ok := s.closing[ev.Conn]; ok {
		<-done
		delete(s.closing, ev.Conn)
	}
	if old, ok := s.workers[ev.Conn]; ok {
		close(old.mailbox)
		<-old.done
	}

	s.peers.Set(ev.Conn, model.NewPeer(s.instance, ev.Conn, ev.Channel))
	w := newWorker(ev.Conn, s.cfg.MailboxSize, s.cfg.Flood)
	s.workers[ev.Conn] = w
	go w.run(ctx, s.handler)

	if err := s.host.Send(ev.Conn, protocol.Hello()); err != nil {
		slog.Warn("sending hello", "instance", s.instance, "conn", ev.Conn, "error", err)
	}
	slog.Debug("peer connected", "instance", s.instance, "conn", ev.Conn, "addr", ev.Addr)
}

func (s *Server) onReceive(ev transport.Event) {
	w, ok := s.workers[ev.Conn]
	if !ok {
		return
	}
	if !w.limiter.Allow() {
		slog.Debug("flood limit, dropping frame", "instance", s.instance, "conn", ev.Conn)
		return
	}
	select {
	case w.mailbox <- ev.Data:
	default:
		slog.Warn("mailbox full, disconnecting flooding client", "instance", s.instance, "conn", ev.Conn)
		if err := s.host.Disconnect(ev.Conn); err != nil {
			slog.Debug("disconnect", "conn", ev.Conn, "error", err)
		}
	}
}

func (s *Server) onDisconnect(conn uint32) {
	for id, done := range s.closing {
		select {
		case <-done:
			delete(s.closing, id)
		default:
		}
	}
	w, ok := s.workers[conn]
	if !ok {
		return
	}
	delete(s.workers, conn)
	close(w.mailbox)
	s.closing[conn] = w.done
	slog.Debug("peer disconnected", "instance", s.instance, "conn", conn)
}

func (s *Server) closeAll() {
	for conn, w := range s.workers {
		close(w.mailbox)
		s.closing[conn] = w.done
	}
	clear(s.workers)
	for conn, done := range s.closing {
		<-done
		delete(s.closing, conn)
	}
}

// kick takes the session away from conn: the peer is de-authenticated and its
// progress saved before msg is sent and the connection dropped. Unknown
// connections are ignored.
func (s *Server) kick(conn uint32, msg string) {
	var snap model.Peer
	var held bool
	done := func() {}
	ok := s.peers.Modify(conn, func(p model.Peer) model.Peer {
		if p.Authenticated {
			snap, held = p.Clone(), true
			done = s.hub.playerSaves.begin(p.UserID)
		}
		p.Authenticated = false
		p.LoggedIn = false
		p.UserID = ""
		return p
	})
	if !ok {
		return
	}
	if held {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		s.handler.savePeer(ctx, snap)
	}
	done()
	if err := s.host.Send(conn, protocol.ConsoleMessage(msg)); err != nil {
		slog.Debug("sending kick notice", "conn", conn, "error", err)
	}
	if err := s.host.Disconnect(conn); err != nil {
		slog.Debug("kick disconnect", "conn", conn, "error", err)
	}
}

// onPeerEvicted ends the session of a peer that left the cache while its
// connection was still open. The session is released and the connection
// dropped right away; the save runs in the background and a login of the
// same user waits for it.
func (s *Server) onPeerEvicted(conn uint32, p model.Peer) {
	done := func() {}
	if p.Authenticated {
		done = s.hub.playerSaves.begin(p.UserID)
	}
	if p.UserID != "" {
		s.hub.Registry().Release(p.UserID, s.handler.holder(conn))
	}
	if err := s.host.Disconnect(conn); err != nil {
		slog.Debug("disconnect evicted peer", "conn", conn, "error", err)
	}
	slog.Info("peer evicted from cache", "instance", s.instance, "conn", conn, "player", p.Name)

	s.handler.saves.Go(func() {
		defer done()
		if p.Authenticated {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			s.handler.savePeer(ctx, p)
		}
		if p.World != "" {
			s.hub.Broadcast(p.World, p.NetID(), removeFrame(p))
		}
	})
}

// worker processes the frames of one connection in arrival order.
type worker struct {
	conn    uint32
	mailbox chan []byte
	limiter *rate.Limiter
	done    chan struct{}
}

func newWorker(conn uint32, mailboxSize int, flood config.FloodConfig) *worker {
	limit := rate.Inf
	if flood.FramesPerSecond > 0 {
		limit = rate.Limit(flood.FramesPerSecond)
	}
	return &worker{
		conn:    conn,
		mailbox: make(chan []byte, max(mailboxSize, 1)),
		limiter: rate.NewLimiter(limit, max(flood.Burst, 1)),
		done:    make(chan struct{}),
	}
}

// run drains the mailbox until it is closed, then cleans up the connection.
func (w *worker) run(ctx context.Context, h *Handler) {
	defer close(w.done)
	for data := range w.mailbox {
		if err := h.Dispatch(ctx, w.conn, data); err != nil {
			slog.Warn("handling frame", "instance", h.instance, "conn", w.conn, "error", err)
		}
	}
	h.cleanup(w.conn)
}

const (
	saveTimeout = 5 * time.Second
	loadTimeout = 10 * time.Second
)

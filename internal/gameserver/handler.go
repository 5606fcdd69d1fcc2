package gameserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/growgo/internal/cache"
	"github.com/udisondev/growgo/internal/catalog"
	"github.com/udisondev/growgo/internal/config"
	"github.com/udisondev/growgo/internal/login"
	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
	"github.com/udisondev/growgo/internal/transport"
)

var (
	// ErrNotAuthenticated is returned for gameplay frames before login completes.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrVersionMismatch is returned when the client runs another game version.
	ErrVersionMismatch = errors.New("client version mismatch")
	// ErrBadState is returned for frames not valid in the current session state.
	ErrBadState = errors.New("frame not valid in session state")
	// ErrPeerGone is returned when the peer record disappeared mid-frame.
	ErrPeerGone = errors.New("peer gone")
	// ErrSessionTaken is returned when another connection claimed the user
	// while this one was still logging in.
	ErrSessionTaken = errors.New("session claimed by another connection")
)

// Handler decodes inbound frames and routes them to the session, world and
// chat logic. Frames of one connection are handled sequentially by its worker.
type Handler struct {
	cfg       config.GameServer
	instance  int
	host      transport.Host
	peers     *cache.Cache[uint32, model.Peer]
	hub       *Hub
	players   PlayerRepository
	validator login.Validator
	passwords PasswordChecker
	catalogs  *catalog.Set

	cooldowns *Cooldowns
	commands  atomic.Pointer[map[string]Command]
	saves     sync.WaitGroup
	now       func() time.Time
}

func newHandler(s *Server, deps Deps) *Handler {
	h := &Handler{
		cfg:       s.cfg,
		instance:  s.instance,
		host:      s.host,
		peers:     s.peers,
		hub:       s.hub,
		players:   deps.Players,
		validator: deps.Validator,
		passwords: deps.Passwords,
		catalogs:  deps.Catalogs,
		cooldowns: NewCooldowns(s.cfg.CommandCooldown, s.cfg.CommandUses),
		now:       time.Now,
	}
	h.setCommands(DefaultCommands())
	return h
}

func (h *Handler) setCommands(cmds map[string]Command) {
	h.commands.Store(&cmds)
}

func (h *Handler) holder(conn uint32) Holder {
	return Holder{Instance: h.instance, Conn: conn}
}

// Dispatch decodes one frame and routes it by tag. A panic in a handler is
// recovered and returned as an error.
func (h *Handler) Dispatch(ctx context.Context, conn uint32, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in frame handler", "conn", conn, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	if !h.peers.Renew(conn) {
		return ErrPeerGone
	}

	frame, err := protocol.Decode(data)
	if errors.Is(err, protocol.ErrUnknownTag) {
		slog.Debug("dropping frame", "conn", conn, "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("decoding frame: %w", err)
	}

	switch frame.Tag {
	case protocol.TagText:
		if frame.Action() != "" {
			return h.handleAction(ctx, conn, frame.Fields)
		}
		return h.handleLogin(ctx, conn, frame.Fields)
	case protocol.TagAction:
		return h.handleAction(ctx, conn, frame.Fields)
	case protocol.TagTank:
		return h.handleTank(ctx, conn, frame.Tank)
	default:
		slog.Debug("ignoring frame", "conn", conn, "tag", frame.Tag)
		return nil
	}
}

// send delivers frames to conn, logging failures.
func (h *Handler) send(conn uint32, frames ...[]byte) {
	if len(frames) == 0 {
		return
	}
	if err := h.host.Send(conn, frames...); err != nil {
		slog.Debug("send failed", "conn", conn, "error", err)
	}
}

// peer returns a copy of the record of an authenticated connection.
func (h *Handler) peer(conn uint32) (model.Peer, error) {
	p, ok := h.peers.Get(conn)
	if !ok {
		return model.Peer{}, ErrPeerGone
	}
	if !p.Authenticated {
		return model.Peer{}, ErrNotAuthenticated
	}
	return p, nil
}

// update applies fn to the peer record and returns the result.
func (h *Handler) update(conn uint32, fn func(p *model.Peer)) (model.Peer, bool) {
	var out model.Peer
	ok := h.peers.Modify(conn, func(p model.Peer) model.Peer {
		fn(&p)
		out = p.Clone()
		return p
	})
	return out, ok
}

// savePeer writes the progress of p to its player record.
func (h *Handler) savePeer(ctx context.Context, p model.Peer) {
	if p.UserID == "" {
		return
	}
	pl := model.Player{ID: p.PlayerID, UserID: p.UserID, Name: p.Name, Role: p.Role}
	p.Store(&pl)
	if err := h.players.SavePlayer(ctx, pl); err != nil {
		slog.Error("saving player", "player", p.Name, "error", err)
		return
	}
	slog.Debug("player saved", "player", p.Name)
}

// cleanup releases everything conn held. Runs on the connection's worker
// after its last frame. The player is saved before the session is released,
// and a login of the same user waits for that save.
func (h *Handler) cleanup(conn uint32) {
	var held bool
	done := func() {}
	p, ok := h.update(conn, func(p *model.Peer) {
		p.State = model.StateDisconnected
		if p.Authenticated {
			held = true
			done = h.hub.playerSaves.begin(p.UserID)
			p.Authenticated = false
		}
	})
	if !ok {
		h.cooldowns.Clear(h.holder(conn))
		return
	}

	if held {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		h.savePeer(ctx, p)
		cancel()
		done()
	}
	if p.UserID != "" {
		h.hub.Registry().Release(p.UserID, h.holder(conn))
	}
	if p.World != "" {
		h.hub.Broadcast(p.World, p.NetID(), removeFrame(p))
	}
	h.peers.Delete(conn)
	h.cooldowns.Clear(h.holder(conn))
	slog.Debug("peer cleaned up", "conn", conn, "player", p.Name)
}

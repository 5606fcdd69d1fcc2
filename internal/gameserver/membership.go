package gameserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
	"github.com/udisondev/growgo/internal/world"
)

// noExcept broadcasts to everyone in the world, the actor included.
const noExcept int32 = -1

// ErrNotInWorld is returned for world actions from a peer outside any world.
var ErrNotInWorld = errors.New("not in a world")

// notices collects the frames a tile hook produces so they can be delivered
// after the world lock is released.
type notices struct {
	actor [][]byte
	world [][]byte
}

func (n *notices) ToActor(frames ...[]byte) { n.actor = append(n.actor, frames...) }
func (n *notices) ToWorld(frames ...[]byte) { n.world = append(n.world, frames...) }

func (h *Handler) deliver(p model.Peer, n *notices) {
	h.send(p.ConnID, n.actor...)
	h.hub.Broadcast(p.World, noExcept, n.world...)
}

func actorOf(p model.Peer) world.Actor {
	return world.Actor{PlayerID: p.PlayerID, NetID: p.NetID(), Name: p.Name, Role: p.Role}
}

// act runs fn on the peer's world under its lock and delivers what it produced.
// A world that expired from the cache while the peer was in it is loaded again.
func (h *Handler) act(p model.Peer, fn func(w *world.World, n *notices) error) error {
	if p.World == "" {
		return ErrNotInWorld
	}
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	n := &notices{}
	var err error
	if uerr := h.hub.Update(ctx, p.World, func(w *world.World) { err = fn(w, n) }); uerr != nil {
		return uerr
	}
	h.deliver(p, n)
	return err
}

// action builds a tile action for p at index.
func (h *Handler) action(w *world.World, p model.Peer, index int, n *notices) *world.Action {
	return &world.Action{
		World:   w,
		Actor:   actorOf(p),
		Index:   index,
		Catalog: h.catalogs.Primary,
		Notify:  n,
		Now:     h.now(),
	}
}

// joinWorld moves a world-joinable peer into world name.
func (h *Handler) joinWorld(ctx context.Context, conn uint32, name string) error {
	p, err := h.peer(conn)
	if err != nil {
		return err
	}
	if p.State != model.StateWorldJoinable {
		return fmt.Errorf("%w: join in %s", ErrBadState, p.State)
	}

	name, err = world.NormalizeName(name)
	if err != nil {
		h.send(conn, failedToEnterFrame("That world name is not valid. Use letters and numbers only.")...)
		return nil
	}
	if p.World != "" {
		h.leaveWorld(conn)
	}

	var mapData []byte
	var weather uint16
	var px, py float32
	err = h.hub.Update(ctx, name, func(w *world.World) {
		x, y := w.Coords(max(w.MainDoor(), 0))
		px, py = world.TileToPixel(x, y)
		weather = w.Weather
		mapData = w.MapData(h.catalogs.Primary, h.now())
	})
	if err != nil {
		h.send(conn, failedToEnterFrame("`4Oops!`` Something went wrong loading that world.")...)
		return err
	}

	others := h.hub.Members(name)
	p, ok := h.update(conn, func(p *model.Peer) {
		p.World = name
		p.LastWorld = name
		p.X, p.Y = px, py
	})
	if !ok {
		return ErrPeerGone
	}

	frames := [][]byte{
		mapData,
		protocol.Call("OnSetCurrentWeather", []any{int(weather)}),
		spawnFrame(p, true),
	}
	for _, o := range others {
		if o.NetID() != p.NetID() {
			frames = append(frames, spawnFrame(o, false))
		}
	}
	frames = append(frames,
		inventoryFrame(p.NetID(), p.Inventory),
		protocol.ConsoleMessage(fmt.Sprintf("World `w%s`` entered.  There are `w%d`` other people here.", name, len(others))),
	)
	h.send(conn, frames...)
	h.hub.Broadcast(name, p.NetID(),
		spawnFrame(p, false),
		protocol.ConsoleMessage(fmt.Sprintf("`5<`w%s`` entered, `w%d`` others here>``", p.DisplayName, len(others))),
	)
	slog.Debug("joined world", "player", p.Name, "world", name)
	return nil
}

// leaveWorld takes the peer out of its world and tells the others.
func (h *Handler) leaveWorld(conn uint32) {
	var left model.Peer
	p, ok := h.update(conn, func(p *model.Peer) {
		left = p.Clone()
		p.World = ""
	})
	if !ok || left.World == "" {
		return
	}
	h.hub.Broadcast(left.World, p.NetID(),
		removeFrame(left),
		protocol.ConsoleMessage(fmt.Sprintf("`5<`w%s`` left, `w%d`` others here>``", left.DisplayName, len(h.hub.Members(left.World)))),
	)
}

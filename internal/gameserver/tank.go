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

func (h *Handler) handleTank(_ context.Context, conn uint32, t *protocol.Tank) error {
	switch t.Type {
	case protocol.TankState:
		return h.move(conn, t)
	case protocol.TankTileChangeRequest:
		return h.tileChange(conn, t)
	case protocol.TankAppCheckResponse:
		return h.handleAppCheck(conn)
	case protocol.TankItemActivateObjectRequest:
		return h.pickUp(conn, uint32(t.Info))
	case protocol.TankPingRequest:
		return nil
	default:
		slog.Debug("unhandled tank frame", "conn", conn, "type", t.Type)
		return nil
	}
}

// reported reports whether a world error has already been shown to the actor.
func reported(err error) bool {
	return errors.Is(err, world.ErrNoPermission) ||
		errors.Is(err, world.ErrNotOwner) ||
		errors.Is(err, world.ErrNotLocked) ||
		errors.Is(err, world.ErrCapacity) ||
		errors.Is(err, world.ErrOccupied) ||
		errors.Is(err, world.ErrUnbreakable) ||
		errors.Is(err, world.ErrInvalidItem) ||
		errors.Is(err, world.ErrInvalidName)
}

// move records the new position and relays the frame to the rest of the world.
func (h *Handler) move(conn uint32, t *protocol.Tank) error {
	p, err := h.peer(conn)
	if err != nil {
		return err
	}
	if p.World == "" {
		return nil
	}
	p, ok := h.update(conn, func(p *model.Peer) { p.X, p.Y = t.X, t.Y })
	if !ok {
		return ErrPeerGone
	}
	relay := *t
	relay.NetID = p.NetID()
	relay.Data = nil
	h.hub.Broadcast(p.World, p.NetID(), relay.Encode())
	return nil
}

// tileChange punches, wrenches or places at the requested tile. Info carries
// the item in hand.
func (h *Handler) tileChange(conn uint32, t *protocol.Tank) error {
	p, err := h.peer(conn)
	if err != nil {
		return err
	}
	if p.World == "" {
		return ErrNotInWorld
	}
	if t.Info < 0 || t.Info > 0xFFFF {
		return fmt.Errorf("tile change: item id %d", t.Info)
	}
	itemID := uint16(t.Info)
	if p.Inventory.Amount(itemID) == 0 {
		return fmt.Errorf("tile change: item %d not in inventory", itemID)
	}

	var placed bool
	err = h.act(p, func(w *world.World, n *notices) error {
		x, y := int(t.PunchX), int(t.PunchY)
		if !w.InBounds(x, y) {
			return world.ErrOutOfBounds
		}
		a := h.action(w, p, w.Index(x, y), n)
		switch {
		case itemID == model.ItemFist:
			return world.Punch(a)
		case itemID == model.ItemWrench:
			return world.Wrench(a)
		case world.IsRemote(itemID):
			link := p.Collector
			if link == nil || link.World != w.Name {
				return fmt.Errorf("%w: remote not linked to this world", world.ErrInvalidItem)
			}
			return world.BuildFromCollector(a, link.TileIndex)
		default:
			if err := world.Place(a, itemID); err != nil {
				return err
			}
			placed = true
			return nil
		}
	})
	if placed {
		p, _ = h.update(conn, func(p *model.Peer) { _ = p.Inventory.Remove(itemID, 1) })
		h.send(conn, inventoryFrame(p.NetID(), p.Inventory))
	}
	if err != nil && reported(err) {
		slog.Debug("tile change refused", "player", p.Name, "item", itemID, "error", err)
		return nil
	}
	return err
}

// pickUp moves as much of a ground item into the inventory as fits.
func (h *Handler) pickUp(conn uint32, uid uint32) error {
	p, err := h.peer(conn)
	if err != nil {
		return err
	}
	if p.World == "" {
		return ErrNotInWorld
	}

	var item world.DroppedItem
	var taken int
	err = h.act(p, func(w *world.World, n *notices) error {
		found, ok := w.Dropped.Find(uid)
		if !ok {
			return nil
		}
		space := p.Inventory.Space(found.ItemID)
		if space == 0 {
			n.ToActor(protocol.ConsoleMessage("Your backpack is full."))
			return nil
		}
		it, got, _ := w.Take(uid, space)
		item, taken = it, got
		n.ToWorld(world.PickupFrame(p.NetID(), it, int(it.Amount)-got))
		return nil
	})
	if err != nil || taken == 0 {
		return err
	}

	p, ok := h.update(conn, func(p *model.Peer) { _, _ = p.Inventory.Add(item.ItemID, taken) })
	if !ok {
		return ErrPeerGone
	}
	name := "item"
	if it, ok := h.catalogs.Primary.Metadata(item.ItemID); ok {
		name = it.Name
	}
	h.send(conn,
		inventoryFrame(p.NetID(), p.Inventory),
		protocol.ConsoleMessage(fmt.Sprintf("Collected `w%d %s``.", taken, name)),
	)
	return nil
}

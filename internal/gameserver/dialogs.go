package gameserver

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
	"github.com/udisondev/growgo/internal/world"
)

const dialogDropItem = "drop_item"

func (h *Handler) dialogReturn(conn uint32, f protocol.Fields) error {
	switch name := f.Get("dialog_name"); name {
	case world.CollectorDialog:
		return h.collectorDialog(conn, f)
	case "door_edit":
		return h.tileDialog(conn, f, func(a *world.Action) error {
			return world.EditDoor(a, f.Get("label"), f.Get("dest"))
		})
	case "sign_edit":
		return h.tileDialog(conn, f, func(a *world.Action) error {
			return world.EditSign(a, f.Get("text"))
		})
	case "lock_edit":
		return h.tileDialog(conn, f, func(a *world.Action) error {
			return world.SetLockPublic(a, f.Get("checkbox_public") == "1")
		})
	case dialogDropItem:
		return h.dropItem(conn, f)
	default:
		slog.Debug("unknown dialog", "conn", conn, "dialog", name)
		return nil
	}
}

// tileIndex resolves the tilex/tiley fields embedded in a tile dialog.
func tileIndex(w *world.World, f protocol.Fields) (int, error) {
	x, errX := strconv.Atoi(f.Get("tilex"))
	y, errY := strconv.Atoi(f.Get("tiley"))
	if errX != nil || errY != nil || !w.InBounds(x, y) {
		return 0, fmt.Errorf("%w: tile %q,%q", world.ErrOutOfBounds, f.Get("tilex"), f.Get("tiley"))
	}
	return w.Index(x, y), nil
}

func (h *Handler) tileDialog(conn uint32, f protocol.Fields, fn func(a *world.Action) error) error {
	p, err := h.peer(conn)
	if err != nil {
		return err
	}
	err = h.act(p, func(w *world.World, n *notices) error {
		idx, err := tileIndex(w, f)
		if err != nil {
			return err
		}
		return fn(h.action(w, p, idx, n))
	})
	if reported(err) {
		return nil
	}
	return err
}

// collectorDialog applies a magplant_edit dialog submission.
func (h *Handler) collectorDialog(conn uint32, f protocol.Fields) error {
	p, err := h.peer(conn)
	if err != nil {
		return err
	}

	var (
		give, take uint16
		amount     int
		link       *model.CollectorLink
		notice     string
	)
	err = h.act(p, func(w *world.World, n *notices) error {
		idx, err := tileIndex(w, f)
		if err != nil {
			return err
		}
		a := h.action(w, p, idx, n)

		switch f.Get("buttonClicked") {
		case "magplant_choose_item":
			id, err := strconv.ParseUint(f.Get("magplant_choose_item"), 10, 16)
			if err != nil {
				return fmt.Errorf("%w: %q", world.ErrInvalidItem, f.Get("magplant_choose_item"))
			}
			return world.SetCollectorTarget(a, uint16(id))

		case "magplant_add_items":
			target := collectorTarget(w, idx)
			id, cnt, err := world.AddToCollector(a, p.Inventory.Amount(target))
			if err != nil {
				return err
			}
			take, amount = id, cnt
			return nil

		case "magplant_retrieve":
			target := collectorTarget(w, idx)
			id, cnt, err := world.RetrieveFromCollector(a, p.Inventory.Space(target))
			if err != nil {
				return err
			}
			give, amount = id, cnt
			return nil

		case "magplant_change_item":
			return world.ChangeCollectorItem(a)

		case "magplant_get_remote":
			if err := world.CheckCollectorRemote(a); err != nil {
				return err
			}
			if p.Inventory.Space(world.RemoteItemID) == 0 {
				n.ToActor(protocol.ConsoleMessage("Your backpack is full."))
				return nil
			}
			give, amount = world.RemoteItemID, 1
			link = &model.CollectorLink{World: w.Name, TileIndex: idx}
			notice = "`2You received 1 Magplant 5000 Remote``!"
			return nil

		default:
			return world.SetCollectorEnabled(a, f.Get("enable_collection") == "1")
		}
	})
	if err != nil {
		if reported(err) {
			return nil
		}
		return err
	}
	if amount == 0 {
		return nil
	}

	p, ok := h.update(conn, func(p *model.Peer) {
		switch {
		case take != 0:
			_ = p.Inventory.Remove(take, amount)
		case give != 0:
			_, _ = p.Inventory.Add(give, amount)
		}
		if link != nil {
			p.Collector = link
		}
	})
	if !ok {
		return ErrPeerGone
	}
	frames := [][]byte{inventoryFrame(p.NetID(), p.Inventory)}
	if notice != "" {
		frames = append(frames, protocol.ConsoleMessage(notice))
	}
	h.send(conn, frames...)
	return nil
}

func collectorTarget(w *world.World, index int) uint16 {
	if e := w.Extra(index); e != nil && e.Collector != nil {
		return e.Collector.TargetItemID
	}
	return 0
}

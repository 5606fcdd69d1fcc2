package gameserver

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
	"github.com/udisondev/growgo/internal/world"
)

// maxChatLength bounds a chat line.
const maxChatLength = 120

func (h *Handler) handleAction(ctx context.Context, conn uint32, f protocol.Fields) error {
	switch action := f.Action(); action {
	case "enter_game":
		return h.enterGame(conn)
	case "join_request":
		return h.joinWorld(ctx, conn, f.Get("name"))
	case "quit_to_exit":
		return h.quitToExit(conn)
	case "input":
		return h.input(ctx, conn, f.Get("text"))
	case "drop":
		return h.dropDialog(conn, f.Get("itemID"))
	case "dialog_return":
		return h.dialogReturn(conn, f)
	case "refresh_item_data":
		return h.refreshItemData(conn)
	case "quit":
		return h.host.Disconnect(conn)
	default:
		slog.Debug("unknown action", "conn", conn, "action", action)
		return nil
	}
}

func (h *Handler) enterGame(conn uint32) error {
	p, err := h.peer(conn)
	if err != nil {
		return err
	}
	h.send(conn,
		worldMenuFrame(),
		inventoryFrame(p.NetID(), p.Inventory),
		protocol.Call("OnSetBux", []any{p.Gems, 0, 1}),
		protocol.ConsoleMessage(fmt.Sprintf("Welcome back, `w%s``.", p.DisplayName)),
	)
	return nil
}

func (h *Handler) quitToExit(conn uint32) error {
	if _, err := h.peer(conn); err != nil {
		return err
	}
	h.leaveWorld(conn)
	h.send(conn, worldMenuFrame())
	return nil
}

func (h *Handler) refreshItemData(conn uint32) error {
	p, ok := h.peers.Get(conn)
	if !ok {
		return ErrPeerGone
	}
	cat := h.catalogs.ForPlatform(p.Platform)
	t := protocol.Tank{
		Type:  protocol.TankSendItemDatabaseData,
		NetID: -1,
		State: protocol.StateExtended,
		Info:  int32(cat.Size()),
		Data:  cat.Compressed(),
	}
	h.send(conn,
		protocol.ConsoleMessage("One moment. Updating item data..."),
		t.Encode(),
	)
	return nil
}

// input handles a chat line or a slash command.
func (h *Handler) input(ctx context.Context, conn uint32, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	p, err := h.peer(conn)
	if err != nil {
		return err
	}
	if strings.HasPrefix(text, "/") {
		return h.runCommand(ctx, p, text)
	}
	if p.World == "" {
		return nil
	}
	text = protocol.Truncate(text, maxChatLength)
	h.hub.Broadcast(p.World, noExcept,
		protocol.TalkBubble(p.NetID(), text),
		protocol.ConsoleMessage(chatLine(p, text)),
	)
	return nil
}

// dropDialog asks how many of an inventory item to drop.
func (h *Handler) dropDialog(conn uint32, rawID string) error {
	p, err := h.peer(conn)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(rawID, 10, 16)
	if err != nil {
		return fmt.Errorf("drop: item id %q: %w", rawID, err)
	}
	itemID := uint16(id)
	have := p.Inventory.Amount(itemID)
	if have == 0 || itemID == model.ItemFist || itemID == model.ItemWrench {
		h.send(conn, protocol.ConsoleMessage("You can't drop that."))
		return nil
	}
	name := "item"
	if it, ok := h.catalogs.Primary.Metadata(itemID); ok {
		name = it.Name
	}
	dialog := protocol.NewDialog().
		LabelWithIcon("`wDrop "+name+"``", int(itemID)).
		Text("How many to drop?").
		TextInput("count", "", strconv.Itoa(have), 5).
		Embed("itemID", itemID).
		End(dialogDropItem, "Cancel", "OK")
	h.send(conn, protocol.DialogRequest(dialog))
	return nil
}

// dropItem removes count of itemID from the inventory and drops it one tile
// in front of the player.
func (h *Handler) dropItem(conn uint32, f protocol.Fields) error {
	p, err := h.peer(conn)
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(f.Get("itemID"), 10, 16)
	if err != nil {
		return fmt.Errorf("drop: item id %q: %w", f.Get("itemID"), err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(f.Get("count")))
	if err != nil || count <= 0 {
		h.send(conn, protocol.ConsoleMessage("That's not a valid amount."))
		return nil
	}
	itemID := uint16(id)
	if itemID == model.ItemFist || itemID == model.ItemWrench {
		return nil
	}

	var removed bool
	p, ok := h.update(conn, func(p *model.Peer) {
		removed = p.Inventory.Remove(itemID, count) == nil
	})
	if !ok {
		return ErrPeerGone
	}
	if !removed {
		h.send(conn, protocol.ConsoleMessage("You don't have that many."))
		return nil
	}

	err = h.act(p, func(w *world.World, n *notices) error {
		w.Drop(n, itemID, count, p.X+world.TileSize, p.Y, h.now())
		return nil
	})
	if err != nil {
		// Nowhere to drop: give the items back.
		p, _ = h.update(conn, func(p *model.Peer) { _, _ = p.Inventory.Add(itemID, count) })
	}
	h.send(conn, inventoryFrame(p.NetID(), p.Inventory))
	return err
}

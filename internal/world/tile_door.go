package world

import (
	"time"

	"github.com/udisondev/growgo/internal/catalog"
	"github.com/udisondev/growgo/internal/protocol"
)

// Wire extra type ids.
const (
	extraDoor = 1
	extraSign = 2
	extraLock = 3
	extraSeed = 4
)

// MaxLabelLength bounds door labels and sign text.
const MaxLabelLength = 128

type doorTile struct{ normalTile }

func (doorTile) OnPlaceForeground(a *Action, item catalog.Item) error {
	if err := basePlace(a, item); err != nil {
		return err
	}
	d := &DoorData{}
	if item.Type == catalog.TypeMainDoor {
		d.Label = "EXIT"
	}
	a.World.setExtra(a.Index, &Extra{Door: d})
	a.Tile().Flags |= FlagTileExtra
	a.broadcastTile()
	return nil
}

func (doorTile) OnWrench(a *Action) error {
	if err := a.checkPermission(PermBuild); err != nil {
		return err
	}
	d := a.World.door(a.Index)
	x, y := a.XY()
	dialog := protocol.NewDialog().
		LabelWithIcon("`wEdit "+a.itemName(a.Tile().Fg)+"``", int(a.Tile().Fg)).
		TextInput("label", "Label", d.Label, 100).
		TextInput("dest", "Destination", d.Destination, 24).
		Embed("tilex", x).
		Embed("tiley", y).
		End("door_edit", "Cancel", "OK")
	a.Notify.ToActor(protocol.DialogRequest(dialog))
	return nil
}

func (doorTile) Serialize(w *World, index int, out *protocol.Writer, _ time.Time) {
	if !w.Tiles[index].Has(FlagTileExtra) {
		return
	}
	d := w.door(index)
	out.WriteByte(extraDoor)
	out.WriteStringU16(d.Label)
	out.WriteByte(0)
}

func (doorTile) WireExtra() bool { return true }

// door returns the door record at index, or an empty one.
func (w *World) door(index int) DoorData {
	if e := w.Extras[index]; e != nil && e.Door != nil {
		return *e.Door
	}
	return DoorData{}
}

// EditDoor updates the label and destination of the door at the target tile.
func EditDoor(a *Action, label, dest string) error {
	if a.World.Resolve(a.Catalog, a.Index) != KindDoor {
		return ErrInvalidItem
	}
	if err := a.checkPermission(PermBuild); err != nil {
		return err
	}
	label = protocol.Truncate(label, MaxLabelLength)
	if dest != "" {
		n, err := NormalizeName(dest)
		if err != nil {
			a.bubble("That's not a valid world name.")
			return err
		}
		dest = n
	}
	a.World.setExtra(a.Index, &Extra{Door: &DoorData{Label: label, Destination: dest}})
	a.Tile().Flags |= FlagTileExtra
	a.World.MarkDirty()
	a.broadcastTile()
	return nil
}

type signTile struct{ normalTile }

func (signTile) OnPlaceForeground(a *Action, item catalog.Item) error {
	if err := basePlace(a, item); err != nil {
		return err
	}
	a.World.setExtra(a.Index, &Extra{Sign: &SignData{}})
	a.Tile().Flags |= FlagTileExtra
	a.broadcastTile()
	return nil
}

func (signTile) OnWrench(a *Action) error {
	if err := a.checkPermission(PermBuild); err != nil {
		return err
	}
	x, y := a.XY()
	dialog := protocol.NewDialog().
		LabelWithIcon("`wEdit "+a.itemName(a.Tile().Fg)+"``", int(a.Tile().Fg)).
		Text("What would you like to write on this sign?").
		TextInput("text", "", a.World.sign(a.Index).Text, MaxLabelLength).
		Embed("tilex", x).
		Embed("tiley", y).
		End("sign_edit", "Cancel", "OK")
	a.Notify.ToActor(protocol.DialogRequest(dialog))
	return nil
}

func (signTile) Serialize(w *World, index int, out *protocol.Writer, _ time.Time) {
	if !w.Tiles[index].Has(FlagTileExtra) {
		return
	}
	out.WriteByte(extraSign)
	out.WriteStringU16(w.sign(index).Text)
	out.WriteI32(-1)
}

func (signTile) WireExtra() bool { return true }

func (w *World) sign(index int) SignData {
	if e := w.Extras[index]; e != nil && e.Sign != nil {
		return *e.Sign
	}
	return SignData{}
}

// EditSign replaces the text of the sign at the target tile.
func EditSign(a *Action, text string) error {
	if a.World.Resolve(a.Catalog, a.Index) != KindSign {
		return ErrInvalidItem
	}
	if err := a.checkPermission(PermBuild); err != nil {
		return err
	}
	text = protocol.Truncate(text, MaxLabelLength)
	a.World.setExtra(a.Index, &Extra{Sign: &SignData{Text: text}})
	a.Tile().Flags |= FlagTileExtra
	a.World.MarkDirty()
	a.broadcastTile()
	return nil
}

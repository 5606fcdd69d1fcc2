package world

import (
	"time"

	"github.com/udisondev/growgo/internal/catalog"
	"github.com/udisondev/growgo/internal/protocol"
)

// damageReset is how long a partly broken tile remembers its hits.
const damageReset = 8 * time.Second

// persistentFlags survive a foreground being replaced or destroyed.
const persistentFlags = FlagWater | FlagGlue | FlagFire

// normalTile is the passive default variant. Other variants embed it for
// the hooks they do not override.
type normalTile struct{}

func (normalTile) OnPlaceForeground(a *Action, item catalog.Item) error {
	if err := basePlace(a, item); err != nil {
		return err
	}
	a.broadcastTile()
	return nil
}

// basePlace checks permission and sets the foreground without notifying anyone.
func basePlace(a *Action, item catalog.Item) error {
	if err := a.checkPermission(PermBuild); err != nil {
		return err
	}
	t := a.Tile()
	t.Fg = item.ID
	t.Flags &= persistentFlags
	a.World.clearExtra(a.Index)
	delete(a.World.damage, a.Index)
	a.World.MarkDirty()
	return nil
}

func placeBackground(a *Action, item catalog.Item) error {
	if err := a.checkPermission(PermBuild); err != nil {
		return err
	}
	t := a.Tile()
	if t.Bg == item.ID {
		return nil
	}
	t.Bg = item.ID
	a.World.MarkDirty()
	a.broadcastTile()
	return nil
}

func (normalTile) OnPunch(a *Action) error {
	return basePunch(a)
}

// basePunch accumulates damage and destroys the tile through the dispatch
// table once it has taken enough hits.
func basePunch(a *Action) error {
	t := a.Tile()
	id := t.Fg
	if id == 0 {
		id = t.Bg
	}
	if id == 0 {
		return nil
	}
	if err := a.checkPermission(PermBreak); err != nil {
		return err
	}

	item, _ := a.Catalog.Metadata(id)
	if item.Type == catalog.TypeBedrock || item.Type == catalog.TypeMainDoor {
		a.bubble("It's too strong to break.")
		return ErrUnbreakable
	}

	h := a.World.damage[a.Index]
	if a.Now.Sub(h.last) > damageReset {
		h.count = 0
	}
	h.count++
	h.last = a.Now
	a.World.damage[a.Index] = h

	x, y := a.XY()
	dmg := protocol.Tank{
		Type:   protocol.TankTileApplyDamage,
		NetID:  a.Actor.NetID,
		Info:   6,
		PunchX: int32(x),
		PunchY: int32(y),
	}
	a.Notify.ToWorld(dmg.Encode())

	if h.count < item.Hits() {
		return nil
	}
	delete(a.World.damage, a.Index)
	return Destroy(a)
}

func (normalTile) OnWrench(*Action) error { return nil }

func (normalTile) OnDestroy(a *Action) error {
	baseDestroy(a)
	return nil
}

// baseDestroy removes the foreground (or the background when there is none)
// along with its flags and extra record, then broadcasts the tile.
func baseDestroy(a *Action) {
	t := a.Tile()
	if t.Fg != 0 {
		t.Fg = 0
		t.Flags &= persistentFlags
		a.World.clearExtra(a.Index)
	} else {
		t.Bg = 0
	}
	delete(a.World.damage, a.Index)
	a.World.MarkDirty()
	a.broadcastTile()
}

func (normalTile) Serialize(*World, int, *protocol.Writer, time.Time) {}

func (normalTile) WireExtra() bool { return false }

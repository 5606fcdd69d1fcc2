package world

import (
	"fmt"
	"time"

	"github.com/udisondev/growgo/internal/catalog"
	"github.com/udisondev/growgo/internal/protocol"
)

type lockTile struct{ normalTile }

func (lockTile) OnPlaceForeground(a *Action, item catalog.Item) error {
	if item.WorldLock && a.World.Owner != nil {
		a.bubble("Only one `$World Lock`` can be placed in a world!")
		return ErrNoPermission
	}
	if err := basePlace(a, item); err != nil {
		return err
	}
	a.World.setExtra(a.Index, &Extra{Lock: &LockData{OwnerID: a.Actor.PlayerID, WorldLock: item.WorldLock}})
	a.Tile().Flags |= FlagTileExtra | FlagLocked
	if item.WorldLock {
		a.World.Owner = &Owner{PlayerID: a.Actor.PlayerID, LockIndex: a.Index}
		a.Notify.ToWorld(protocol.ConsoleMessage(fmt.Sprintf(
			"`5[```w%s`` has been `$World Locked`` by %s`5]``", a.World.Name, a.Actor.Name)))
	}
	a.broadcastTile()
	return nil
}

// lockOwned reports whether the actor owns the lock at the target tile.
func (a *Action) lockOwned() bool {
	if a.Actor.IsDeveloper() {
		return true
	}
	e := a.World.Extras[a.Index]
	return e == nil || e.Lock == nil || e.Lock.OwnerID == a.Actor.PlayerID
}

func (lockTile) OnPunch(a *Action) error {
	if !a.lockOwned() {
		a.lockSound()
		return ErrNoPermission
	}
	return basePunch(a)
}

func (lockTile) OnWrench(a *Action) error {
	if !a.lockOwned() {
		a.lockSound()
		return ErrNotOwner
	}
	lock := a.World.lock(a.Index)
	x, y := a.XY()
	dialog := protocol.NewDialog().
		LabelWithIcon("`wEdit "+a.itemName(a.Tile().Fg)+"``", int(a.Tile().Fg)).
		Text(fmt.Sprintf("Access list: %d player(s)", len(lock.Access))).
		Checkbox("checkbox_public", "Allow anyone to build and break", a.Tile().Has(FlagPublic)).
		Embed("tilex", x).
		Embed("tiley", y).
		End("lock_edit", "Cancel", "OK")
	a.Notify.ToActor(protocol.DialogRequest(dialog))
	return nil
}

func (lockTile) OnDestroy(a *Action) error {
	if a.World.Owner != nil && a.World.Owner.LockIndex == a.Index {
		a.World.Owner = nil
		a.Notify.ToWorld(protocol.ConsoleMessage(fmt.Sprintf("`5[```w%s`` is no longer locked`5]``", a.World.Name)))
	}
	baseDestroy(a)
	return nil
}

func (lockTile) Serialize(w *World, index int, out *protocol.Writer, _ time.Time) {
	if !w.Tiles[index].Has(FlagTileExtra) {
		return
	}
	lock := w.lock(index)
	var settings byte
	if w.Tiles[index].Has(FlagPublic) {
		settings = 1
	}
	out.WriteByte(extraLock)
	out.WriteByte(settings)
	out.WriteU32(uint32(lock.OwnerID))
	out.WriteU32(uint32(len(lock.Access)))
	for _, id := range lock.Access {
		out.WriteU32(uint32(id))
	}
}

func (lockTile) WireExtra() bool { return true }

func (w *World) lock(index int) LockData {
	if e := w.Extras[index]; e != nil && e.Lock != nil {
		return *e.Lock
	}
	return LockData{}
}

// SetLockPublic opens or closes the lock at the target tile to everyone.
func SetLockPublic(a *Action, public bool) error {
	if a.World.Resolve(a.Catalog, a.Index) != KindLock {
		return ErrInvalidItem
	}
	if !a.lockOwned() {
		a.lockSound()
		return ErrNotOwner
	}
	t := a.Tile()
	if public {
		t.Flags |= FlagPublic
	} else {
		t.Flags &^= FlagPublic
	}
	a.World.MarkDirty()
	a.broadcastTile()
	return nil
}

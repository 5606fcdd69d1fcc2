package world

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/udisondev/growgo/internal/catalog"
	"github.com/udisondev/growgo/internal/protocol"
)

// CollectorCapacity is the most items one collector stores.
const CollectorCapacity = 5000

// RemoteItemID is the remote handed out for building from a collector.
const RemoteItemID uint16 = 5640

var remoteIDs = []uint16{RemoteItemID, 5641}

// IsRemote reports whether id is a collector remote.
func IsRemote(id uint16) bool {
	return slices.Contains(remoteIDs, id)
}

// TryCollect takes up to amount of itemID if the collector is enabled,
// targets that item and has room. Returns how many were taken.
func (c *CollectorData) TryCollect(itemID uint16, amount int) int {
	if !c.IsEnabled() || c.TargetItemID != itemID || c.Stored >= CollectorCapacity || amount <= 0 {
		return 0
	}
	n := min(amount, CollectorCapacity-c.Stored)
	c.Stored += n
	return n
}

// Space returns the remaining capacity.
func (c *CollectorData) Space() int {
	return CollectorCapacity - c.Stored
}

// collectorTile is a machine that intercepts drops of its target item.
// Its state is server-only: it never sets FlagTileExtra and writes nothing.
type collectorTile struct{}

func (a *Action) collectorData() *CollectorData {
	if e := a.World.Extras[a.Index]; e != nil {
		return e.Collector
	}
	return nil
}

// collectorOwned: an uninitialised collector is unclaimed and open to anyone
// with lock access.
func (a *Action) collectorOwned() bool {
	c := a.collectorData()
	return c == nil || c.OwnerID == a.Actor.PlayerID || a.Actor.IsDeveloper()
}

func (a *Action) trackCollector() {
	if !slices.Contains(a.World.Collectors, a.Index) {
		a.World.Collectors = append(a.World.Collectors, a.Index)
	}
}

func (a *Action) untrackCollector() {
	if i := slices.Index(a.World.Collectors, a.Index); i >= 0 {
		a.World.Collectors = slices.Delete(a.World.Collectors, i, i+1)
	}
}

func newCollector(owner int64) *CollectorData {
	return &CollectorData{OwnerID: owner, Enabled: ptr(true), BuildingMode: ptr(false)}
}

func (collectorTile) OnPlaceForeground(a *Action, item catalog.Item) error {
	if err := basePlace(a, item); err != nil {
		return err
	}
	a.World.setExtra(a.Index, &Extra{Collector: newCollector(a.Actor.PlayerID)})
	a.trackCollector()
	a.broadcastTile()
	a.console("`2" + a.itemName(item.ID) + "`` placed! Wrench it to configure which item it should collect.")
	return nil
}

// OnDestroy snapshots and clears the stored items before the base destroy,
// then drops them, so the collector cannot take its own contents back.
func (collectorTile) OnDestroy(a *Action) error {
	var id uint16
	var stored int
	if c := a.collectorData(); c != nil {
		id, stored = c.TargetItemID, c.Stored
	}
	a.World.clearExtra(a.Index)
	a.untrackCollector()

	baseDestroy(a)

	if id > 0 && stored > 0 {
		x, y := a.XY()
		px, py := TileToPixel(x, y)
		for stored > 0 {
			chunk := min(stored, MaxDropStack)
			a.World.Drop(a.Notify, id, chunk, px, py, a.Now)
			stored -= chunk
		}
	}
	return nil
}

func (collectorTile) OnPunch(a *Action) error {
	if err := a.checkPermission(PermBreak); err != nil {
		return err
	}
	if !a.collectorOwned() {
		a.bubble("Only the owner of this machine can use it!")
		a.lockSound()
		return ErrNotOwner
	}
	c := a.collectorData()
	if c == nil || c.TargetItemID == 0 {
		return basePunch(a)
	}

	c.BuildingMode = ptr(!c.IsBuilding())
	if c.IsBuilding() {
		a.console("`2Building mode: `$ACTIVE``. Use the remote to build `w" + a.itemName(c.TargetItemID) +
			"`` directly from the machine's storage.")
	} else {
		a.console("`2Building mode: `4DISABLED``.")
	}
	a.World.MarkDirty()
	a.broadcastTile()
	return nil
}

func (collectorTile) OnWrench(a *Action) error {
	if a.World.Owner == nil {
		a.bubble("This machine only works in `$World Locked`` worlds!")
		return ErrNotLocked
	}
	if !a.collectorOwned() {
		a.bubble("Only the owner of this machine can configure it!")
		a.lockSound()
		return ErrNotOwner
	}

	e := a.World.Extras[a.Index]
	if e == nil || e.Collector == nil {
		a.World.setExtra(a.Index, &Extra{Collector: newCollector(a.Actor.PlayerID)})
		a.trackCollector()
	}
	c := a.collectorData()
	c.migrate()

	a.Notify.ToActor(protocol.DialogRequest(collectorDialog(a, c)))
	return nil
}

func collectorDialog(a *Action, c *CollectorData) string {
	fg := a.Tile().Fg
	x, y := a.XY()
	d := protocol.NewDialog().
		LabelWithIcon("`w"+a.itemName(fg)+"``", int(fg)).
		Embed("tilex", x).
		Embed("tiley", y)

	if c.TargetItemID == 0 {
		return d.Text("`6The machine is empty.``").
			ItemPicker("magplant_choose_item", "Choose Item", "Choose Item").
			End(CollectorDialog, "Close", "")
	}

	name := a.itemName(c.TargetItemID)
	if c.Stored > 0 {
		d.Text("The machine contains `w"+strconv.Itoa(c.Stored)+"`` `2"+name+"``").
			Button("magplant_add_items", "Add Items to the machine").
			Button("magplant_retrieve", "Retrieve Items")
	} else {
		d.Text("`2"+name+"``").
			Text("`6The machine is currently empty!``").
			Button("magplant_add_items", "Add Items to the machine")
	}
	d.Button("magplant_change_item", "Change Item")
	if c.IsBuilding() {
		d.Text("Building mode: `2ACTIVE``")
	} else {
		d.Text("Building mode: `4DISABLED``")
	}
	if !IsRemote(fg) {
		d.Button("magplant_get_remote", "`2Get Remote``")
	}
	return d.Checkbox("enable_collection", "Enable Collection.", c.IsEnabled()).
		End(CollectorDialog, "Close", "Update")
}

// CollectorDialog is the dialog name of the collector configuration.
const CollectorDialog = "magplant_edit"

// OnItemPlace feeds an item placed onto the collector: the first item sets
// the target, later items of the same id are stored one at a time.
func (collectorTile) OnItemPlace(a *Action, item catalog.Item) error {
	if !a.collectorOwned() {
		a.bubble("Only the owner can configure this machine!")
		return ErrNotOwner
	}
	c := a.collectorData()
	if c == nil {
		return ErrInvalidItem
	}
	if item.ID <= 1 {
		a.bubble("You can't store that item in this machine!")
		return ErrInvalidItem
	}
	if c.TargetItemID == 0 {
		c.TargetItemID = item.ID
		a.console("`2" + a.itemName(a.Tile().Fg) + "`` is now set to collect `w" + a.itemName(item.ID) + "``!")
		a.World.MarkDirty()
		a.broadcastTile()
		return nil
	}
	if c.TargetItemID != item.ID {
		a.bubble("Change the item first before setting a new one!")
		return ErrInvalidItem
	}
	if c.Space() <= 0 {
		a.bubble("The machine is full!")
		return ErrCapacity
	}
	c.Stored++
	a.console(fmt.Sprintf("`2Added 1 %s`` to the machine. (%d/%d)", a.itemName(item.ID), c.Stored, CollectorCapacity))
	a.World.MarkDirty()
	a.broadcastTile()
	return nil
}

// collectorFor validates that the target tile is a collector the actor owns.
func collectorFor(a *Action) (*CollectorData, error) {
	if a.World.Resolve(a.Catalog, a.Index) != KindCollector {
		return nil, ErrInvalidItem
	}
	if !a.collectorOwned() {
		a.bubble("Only the owner of this machine can configure it!")
		return nil, ErrNotOwner
	}
	c := a.collectorData()
	if c == nil {
		c = newCollector(a.Actor.PlayerID)
		a.World.setExtra(a.Index, &Extra{Collector: c})
		a.trackCollector()
	}
	c.migrate()
	return c, nil
}

// SetCollectorTarget chooses the item an empty collector collects.
func SetCollectorTarget(a *Action, itemID uint16) error {
	c, err := collectorFor(a)
	if err != nil {
		return err
	}
	if itemID <= 1 {
		return ErrInvalidItem
	}
	if _, ok := a.Catalog.Metadata(itemID); !ok {
		return ErrInvalidItem
	}
	if c.Stored > 0 && c.TargetItemID != itemID {
		a.bubble("Change the item first before setting a new one!")
		return ErrInvalidItem
	}
	c.TargetItemID = itemID
	a.World.MarkDirty()
	a.broadcastTile()
	return nil
}

// AddToCollector stores up to available of the target item and returns how
// many were accepted; the caller removes them from the actor's inventory.
func AddToCollector(a *Action, available int) (uint16, int, error) {
	c, err := collectorFor(a)
	if err != nil {
		return 0, 0, err
	}
	if c.TargetItemID == 0 {
		return 0, 0, ErrInvalidItem
	}
	n := min(available, c.Space())
	if n <= 0 {
		if available > 0 {
			a.bubble("The machine is full!")
			return c.TargetItemID, 0, ErrCapacity
		}
		return c.TargetItemID, 0, nil
	}
	c.Stored += n
	a.World.MarkDirty()
	a.broadcastTile()
	return c.TargetItemID, n, nil
}

// RetrieveFromCollector takes out up to maxAmount stored items.
func RetrieveFromCollector(a *Action, maxAmount int) (uint16, int, error) {
	c, err := collectorFor(a)
	if err != nil {
		return 0, 0, err
	}
	n := min(maxAmount, c.Stored)
	if n <= 0 {
		return c.TargetItemID, 0, ErrCapacity
	}
	c.Stored -= n
	a.World.MarkDirty()
	a.broadcastTile()
	return c.TargetItemID, n, nil
}

// ChangeCollectorItem clears the target and drops anything stored next to
// the machine. The record is cleared first so the drop is not re-collected.
func ChangeCollectorItem(a *Action) error {
	c, err := collectorFor(a)
	if err != nil {
		return err
	}
	id, stored := c.TargetItemID, c.Stored
	c.TargetItemID, c.Stored = 0, 0
	c.BuildingMode = ptr(false)

	x, y := a.XY()
	px, py := TileToPixel(x, y)
	for stored > 0 {
		chunk := min(stored, MaxDropStack)
		a.World.Drop(a.Notify, id, chunk, px, py, a.Now)
		stored -= chunk
	}
	a.World.MarkDirty()
	a.broadcastTile()
	return nil
}

// SetCollectorEnabled toggles collection of dropped items.
func SetCollectorEnabled(a *Action, enabled bool) error {
	c, err := collectorFor(a)
	if err != nil {
		return err
	}
	if c.IsEnabled() == enabled {
		return nil
	}
	c.Enabled = ptr(enabled)
	a.World.MarkDirty()
	return nil
}

// CheckCollectorRemote validates that the actor may take a remote for the
// target collector.
func CheckCollectorRemote(a *Action) error {
	c, err := collectorFor(a)
	if err != nil {
		return err
	}
	if c.TargetItemID == 0 {
		a.bubble("Choose an item first!")
		return ErrInvalidItem
	}
	return nil
}

// BuildFromCollector places the target item of the collector at
// collectorIndex onto the action's tile, paying with one stored item.
func BuildFromCollector(a *Action, collectorIndex int) error {
	e := a.World.Extras[collectorIndex]
	if e == nil || e.Collector == nil {
		a.bubble("The linked machine is gone.")
		return ErrInvalidItem
	}
	c := e.Collector
	if c.OwnerID != a.Actor.PlayerID && !a.Actor.IsDeveloper() {
		a.bubble("This remote is not linked to one of your machines.")
		return ErrNotOwner
	}
	if !c.IsBuilding() {
		a.bubble("Punch the machine to activate building mode first.")
		return ErrInvalidItem
	}
	if c.Stored <= 0 || c.TargetItemID == 0 {
		a.bubble("The machine is empty!")
		return ErrCapacity
	}
	if err := Place(a, c.TargetItemID); err != nil {
		return err
	}
	c.Stored--
	a.World.MarkDirty()
	return nil
}

func (collectorTile) Serialize(*World, int, *protocol.Writer, time.Time) {}

func (collectorTile) WireExtra() bool { return false }

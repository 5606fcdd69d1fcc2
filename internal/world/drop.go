package world

import (
	"time"

	"github.com/udisondev/growgo/internal/protocol"
)

// MaxDropStack is the largest amount a single ground item holds.
const MaxDropStack = 200

// DroppedItem is one stack lying on the ground.
type DroppedItem struct {
	UID       uint32    `msgpack:"uid"`
	ItemID    uint16    `msgpack:"id"`
	Amount    uint8     `msgpack:"amount"`
	X         float32   `msgpack:"x"`
	Y         float32   `msgpack:"y"`
	CreatedAt time.Time `msgpack:"created"`
}

// Ledger is the set of ground items of a world. UIDs only ever increase.
type Ledger struct {
	Items   []DroppedItem `msgpack:"items"`
	LastUID uint32        `msgpack:"last_uid"`
}

// Find returns the ground item with uid.
func (l *Ledger) Find(uid uint32) (DroppedItem, bool) {
	for _, it := range l.Items {
		if it.UID == uid {
			return it, true
		}
	}
	return DroppedItem{}, false
}

// Total returns how many of itemID lie on the ground.
func (l *Ledger) Total(itemID uint16) int {
	n := 0
	for _, it := range l.Items {
		if it.ItemID == itemID {
			n += int(it.Amount)
		}
	}
	return n
}

func (l *Ledger) add(itemID uint16, amount uint8, x, y float32, now time.Time) DroppedItem {
	l.LastUID++
	it := DroppedItem{UID: l.LastUID, ItemID: itemID, Amount: amount, X: x, Y: y, CreatedAt: now}
	l.Items = append(l.Items, it)
	return it
}

// collector is what a drop is offered to before it reaches the ground.
type collector interface {
	TryCollect(itemID uint16, amount int) int
}

// DropResult reports where dropped items went.
type DropResult struct {
	Consumed int
	Ground   []DroppedItem
}

// collectorAt returns the collector occupying index, if any.
func (w *World) collectorAt(index int) collector {
	if e := w.Extras[index]; e != nil && e.Collector != nil {
		return e.Collector
	}
	return nil
}

// Drop puts amount of itemID into the world at pixel position (px, py).
// A collector on that exact tile is offered the items first; only the
// remainder becomes ground items. n, when non-nil, receives the spawn frames.
func (w *World) Drop(n Notifier, itemID uint16, amount int, px, py float32, now time.Time) DropResult {
	var res DropResult
	if amount <= 0 {
		return res
	}

	x, y := PixelToTile(px, py)
	if w.InBounds(x, y) {
		if c := w.collectorAt(w.Index(x, y)); c != nil {
			res.Consumed = c.TryCollect(itemID, amount)
			amount -= res.Consumed
		}
	}

	for amount > 0 {
		chunk := min(amount, MaxDropStack)
		it := w.Dropped.add(itemID, uint8(chunk), px, py, now)
		res.Ground = append(res.Ground, it)
		amount -= chunk
		if n != nil {
			n.ToWorld(spawnFrame(it))
		}
	}
	w.MarkDirty()
	return res
}

// Take removes up to amount from the ground item uid and returns how many were taken.
func (w *World) Take(uid uint32, amount int) (DroppedItem, int, bool) {
	for i, it := range w.Dropped.Items {
		if it.UID != uid {
			continue
		}
		taken := min(amount, int(it.Amount))
		if taken >= int(it.Amount) {
			w.Dropped.Items = append(w.Dropped.Items[:i], w.Dropped.Items[i+1:]...)
		} else {
			w.Dropped.Items[i].Amount -= uint8(taken)
		}
		w.MarkDirty()
		return it, taken, true
	}
	return DroppedItem{}, 0, false
}

// spawnFrame announces a new ground item.
func spawnFrame(it DroppedItem) []byte {
	t := protocol.Tank{
		Type:   protocol.TankItemChangeObject,
		NetID:  -1,
		Target: -1,
		Info:   int32(it.ItemID),
		X:      it.X,
		Y:      it.Y,
		Value:  float32(it.Amount),
	}
	return t.Encode()
}

// PickupFrame announces that netID picked up ground item uid. If left is
// positive the item stays on the ground with that amount.
func PickupFrame(netID int32, it DroppedItem, left int) []byte {
	t := protocol.Tank{
		Type:   protocol.TankItemChangeObject,
		NetID:  netID,
		Target: -1,
		Info:   int32(it.UID),
		X:      it.X,
		Y:      it.Y,
		Value:  float32(left),
	}
	return t.Encode()
}

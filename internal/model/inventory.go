package model

import (
	"errors"
	"slices"
)

// MaxStack is the largest amount of one item a slot can hold.
const MaxStack = 200

// DefaultInventorySize is the slot count of a new player's backpack.
const DefaultInventorySize = 16

var (
	ErrInventoryFull = errors.New("inventory full")
	ErrNotEnough     = errors.New("not enough items")
)

// InventoryItem is one backpack slot. Item ids are unique within an Inventory.
type InventoryItem struct {
	ItemID uint16 `msgpack:"id"`
	Amount uint8  `msgpack:"amount"`
}

// Inventory is the bounded list of item stacks a player carries.
type Inventory struct {
	Max   int             `msgpack:"max"`
	Items []InventoryItem `msgpack:"items"`
}

// Clone returns a deep copy.
func (inv Inventory) Clone() Inventory {
	inv.Items = slices.Clone(inv.Items)
	return inv
}

func (inv Inventory) index(id uint16) int {
	return slices.IndexFunc(inv.Items, func(it InventoryItem) bool { return it.ItemID == id })
}

// Amount returns how many of id the inventory holds.
func (inv Inventory) Amount(id uint16) int {
	if i := inv.index(id); i >= 0 {
		return int(inv.Items[i].Amount)
	}
	return 0
}

// Space returns how many more of id fit.
func (inv Inventory) Space(id uint16) int {
	if i := inv.index(id); i >= 0 {
		return MaxStack - int(inv.Items[i].Amount)
	}
	if len(inv.Items) >= inv.Max {
		return 0
	}
	return MaxStack
}

// Add adds up to amount of id and returns how many were added.
// A new item needs a free slot; ErrInventoryFull is returned when nothing fits.
func (inv *Inventory) Add(id uint16, amount int) (int, error) {
	if amount <= 0 {
		return 0, nil
	}
	n := min(amount, inv.Space(id))
	if n == 0 {
		return 0, ErrInventoryFull
	}
	if i := inv.index(id); i >= 0 {
		inv.Items[i].Amount += uint8(n)
	} else {
		inv.Items = append(inv.Items, InventoryItem{ItemID: id, Amount: uint8(n)})
	}
	return n, nil
}

// Remove takes amount of id out. The slot is freed when it reaches zero.
func (inv *Inventory) Remove(id uint16, amount int) error {
	i := inv.index(id)
	if i < 0 || int(inv.Items[i].Amount) < amount {
		return ErrNotEnough
	}
	inv.Items[i].Amount -= uint8(amount)
	if inv.Items[i].Amount == 0 {
		inv.Items = slices.Delete(inv.Items, i, i+1)
	}
	return nil
}

package model

import (
	"strings"
	"time"
)

// Role is the privilege level of a player.
type Role int

const (
	RoleBasic     Role = 1
	RoleSupporter Role = 2
	RoleDeveloper Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleBasic:
		return "BASIC"
	case RoleSupporter:
		return "SUPPORTER"
	case RoleDeveloper:
		return "DEVELOPER"
	default:
		return "UNKNOWN"
	}
}

// Clothing holds the equipped item id per slot.
type Clothing struct {
	Hair     uint16 `msgpack:"hair"`
	Shirt    uint16 `msgpack:"shirt"`
	Pants    uint16 `msgpack:"pants"`
	Feet     uint16 `msgpack:"feet"`
	Face     uint16 `msgpack:"face"`
	Hand     uint16 `msgpack:"hand"`
	Back     uint16 `msgpack:"back"`
	Mask     uint16 `msgpack:"mask"`
	Necklace uint16 `msgpack:"necklace"`
	Ances    uint16 `msgpack:"ances"`
}

// Item ids every new player starts with.
const (
	ItemFist   uint16 = 18
	ItemWrench uint16 = 32
)

// StartWorld is where new players land.
const StartWorld = "EXIT"

// Player is the persisted record backing an authenticated Peer.
type Player struct {
	ID           int64
	UserID       string
	Name         string
	DisplayName  string
	Role         Role
	Inventory    Inventory
	Clothing     Clothing
	Gems         int
	Level        int
	Exp          int
	LastWorld    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlayerDefaults seeds a first-time player record.
type PlayerDefaults struct {
	Name        string
	DisplayName string
}

// NewPlayer returns the stored defaults for a first-time player.
func NewPlayer(userID string, d PlayerDefaults) Player {
	display := d.DisplayName
	if display == "" {
		display = d.Name
	}
	return Player{
		UserID:      userID,
		Name:        strings.ToLower(d.Name),
		DisplayName: display,
		Role:        RoleBasic,
		Inventory: Inventory{
			Max: DefaultInventorySize,
			Items: []InventoryItem{
				{ItemID: ItemFist, Amount: 1},
				{ItemID: ItemWrench, Amount: 1},
			},
		},
		Level:     1,
		LastWorld: StartWorld,
	}
}

package world

import "time"

// TileFlags is the per-tile bitmask sent to clients.
type TileFlags uint16

const (
	FlagTileExtra TileFlags = 0x0001
	FlagLocked    TileFlags = 0x0002
	FlagSeed      TileFlags = 0x0010
	FlagFlipped   TileFlags = 0x0020
	FlagOpen      TileFlags = 0x0040
	FlagPublic    TileFlags = 0x0080
	FlagSilenced  TileFlags = 0x0400
	FlagWater     TileFlags = 0x0800
	FlagGlue      TileFlags = 0x1000
	FlagFire      TileFlags = 0x2000
)

// Tile holds the base fields of one grid cell.
type Tile struct {
	Fg        uint16    `msgpack:"fg"`
	Bg        uint16    `msgpack:"bg"`
	LockIndex uint16    `msgpack:"lock"`
	Flags     TileFlags `msgpack:"flags"`
}

// Has reports whether all bits of f are set.
func (t Tile) Has(f TileFlags) bool {
	return t.Flags&f == f
}

// Extra is the auxiliary state of a tile that needs more than base fields.
// A world keeps at most one Extra per tile index; exactly one field is set.
type Extra struct {
	Door      *DoorData      `msgpack:"door,omitempty"`
	Sign      *SignData      `msgpack:"sign,omitempty"`
	Lock      *LockData      `msgpack:"lock,omitempty"`
	Seed      *SeedData      `msgpack:"seed,omitempty"`
	Collector *CollectorData `msgpack:"collector,omitempty"`
}

// DoorData is the extra of doors, main doors and portals.
type DoorData struct {
	Label       string `msgpack:"label"`
	Destination string `msgpack:"dest"`
}

// SignData is the extra of signs.
type SignData struct {
	Text string `msgpack:"text"`
}

// LockData is the extra of locks.
type LockData struct {
	OwnerID   int64   `msgpack:"owner"`
	Access    []int64 `msgpack:"access"`
	WorldLock bool    `msgpack:"world"`
}

// SeedData is the extra of planted seeds.
type SeedData struct {
	PlantedAt time.Time `msgpack:"planted"`
	Fruits    uint8     `msgpack:"fruits"`
}

// CollectorData is the server-only state of a collector. Enabled and
// BuildingMode are pointers so records persisted before they existed can be
// told apart from explicit false.
type CollectorData struct {
	OwnerID      int64  `msgpack:"owner"`
	TargetItemID uint16 `msgpack:"target"`
	Stored       int    `msgpack:"stored"`
	Enabled      *bool  `msgpack:"enabled,omitempty"`
	BuildingMode *bool  `msgpack:"building,omitempty"`
}

// IsEnabled reports the enabled flag, treating a missing field as enabled.
func (c *CollectorData) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IsBuilding reports the building-mode flag, treating a missing field as off.
func (c *CollectorData) IsBuilding() bool {
	return c.BuildingMode != nil && *c.BuildingMode
}

// migrate fills fields missing from older records.
func (c *CollectorData) migrate() {
	if c.Enabled == nil {
		c.Enabled = ptr(true)
	}
	if c.BuildingMode == nil {
		c.BuildingMode = ptr(false)
	}
}

func ptr[T any](v T) *T { return &v }

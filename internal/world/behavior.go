package world

import (
	"fmt"
	"time"

	"github.com/udisondev/growgo/internal/catalog"
	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/protocol"
)

// Kind is a tile behavior variant.
type Kind uint8

const (
	KindNormal Kind = iota
	KindDoor
	KindSign
	KindLock
	KindSeed
	KindJammer
	KindCollector
	KindWeather
	KindSwitch
	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindNormal:
		return "NORMAL"
	case KindDoor:
		return "DOOR"
	case KindSign:
		return "SIGN"
	case KindLock:
		return "LOCK"
	case KindSeed:
		return "SEED"
	case KindJammer:
		return "JAMMER"
	case KindCollector:
		return "COLLECTOR"
	case KindWeather:
		return "WEATHER"
	case KindSwitch:
		return "SWITCH"
	default:
		return "UNKNOWN"
	}
}

// CollectorItemID is the collector machine. Its seed (CollectorItemID+1)
// shares the catalog type and must not resolve to the collector.
const CollectorItemID uint16 = 5638

// overrides win over the catalog-declared type.
var overrides = map[uint16]Kind{
	CollectorItemID: KindCollector,
}

var typeKinds = map[catalog.ItemType]Kind{
	catalog.TypeDoor:           KindDoor,
	catalog.TypeMainDoor:       KindDoor,
	catalog.TypePortal:         KindDoor,
	catalog.TypeSign:           KindSign,
	catalog.TypeLock:           KindLock,
	catalog.TypeSeed:           KindSeed,
	catalog.TypeJammer:         KindJammer,
	catalog.TypeWeatherMachine: KindWeather,
	catalog.TypeSwitcheroo:     KindSwitch,
}

// ItemCatalog is the item metadata the world model needs.
type ItemCatalog interface {
	TypeOf(id uint16) (catalog.ItemType, bool)
	Metadata(id uint16) (catalog.Item, bool)
}

// ResolveItem returns the behavior variant of a foreground item id.
func ResolveItem(cat ItemCatalog, id uint16) Kind {
	if k, ok := overrides[id]; ok {
		return k
	}
	if typ, ok := cat.TypeOf(id); ok {
		if k, ok := typeKinds[typ]; ok {
			return k
		}
	}
	return KindNormal
}

// Resolve returns the behavior variant of the tile at index.
func (w *World) Resolve(cat ItemCatalog, index int) Kind {
	t := w.Tile(index)
	if t == nil || t.Fg == 0 {
		return KindNormal
	}
	return ResolveItem(cat, t.Fg)
}

// Behavior is the lifecycle contract every variant implements. Hooks return
// nil on success. Failures have already been reported to the actor.
type Behavior interface {
	OnPlaceForeground(a *Action, item catalog.Item) error
	OnPunch(a *Action) error
	OnWrench(a *Action) error
	OnDestroy(a *Action) error
	// Serialize writes the extra bytes of the tile, and nothing when the
	// tile's FlagTileExtra is unset.
	Serialize(w *World, index int, out *protocol.Writer, now time.Time)
	// WireExtra reports whether the variant ever sends extra bytes.
	WireExtra() bool
}

var behaviors = [kindCount]Behavior{
	KindNormal:    normalTile{},
	KindDoor:      doorTile{},
	KindSign:      signTile{},
	KindLock:      lockTile{},
	KindSeed:      seedTile{},
	KindJammer:    jammerTile{},
	KindCollector: collectorTile{},
	KindWeather:   weatherTile{},
	KindSwitch:    switchTile{},
}

// BehaviorOf returns the dispatch table entry of k.
func BehaviorOf(k Kind) Behavior {
	if k >= kindCount {
		return behaviors[KindNormal]
	}
	return behaviors[k]
}

// Actor is the view of the acting player a hook sees.
type Actor struct {
	PlayerID int64
	NetID    int32
	Name     string
	Role     model.Role
}

// IsDeveloper reports whether the actor bypasses ownership checks.
func (a Actor) IsDeveloper() bool {
	return a.Role == model.RoleDeveloper
}

// Notifier delivers frames produced by a hook. ToActor reaches only the
// acting connection, ToWorld every connection in the world.
type Notifier interface {
	ToActor(frames ...[]byte)
	ToWorld(frames ...[]byte)
}

// Action is one tile interaction in progress.
type Action struct {
	World   *World
	Actor   Actor
	Index   int
	Catalog ItemCatalog
	Notify  Notifier
	Now     time.Time
}

// Tile returns the target tile.
func (a *Action) Tile() *Tile {
	return a.World.Tile(a.Index)
}

// XY returns the target tile coordinates.
func (a *Action) XY() (int, int) {
	return a.World.Coords(a.Index)
}

func (a *Action) console(msg string) {
	a.Notify.ToActor(protocol.ConsoleMessage(msg))
}

func (a *Action) bubble(msg string) {
	a.Notify.ToActor(protocol.TalkBubble(a.Actor.NetID, msg))
}

func (a *Action) lockSound() {
	a.Notify.ToActor(protocol.Call("OnPlayPositioned", []any{"audio/punch_locked.wav"},
		protocol.WithNetID(a.Actor.NetID)))
}

// broadcastTile sends the current state of the target tile to the world.
func (a *Action) broadcastTile() {
	a.Notify.ToWorld(a.World.TileUpdates(a.Catalog, a.Now, a.Index))
}

func (a *Action) itemName(id uint16) string {
	if it, ok := a.Catalog.Metadata(id); ok && it.Name != "" {
		return it.Name
	}
	return "item"
}

// Place puts itemID on the target tile. Background items go behind the
// foreground; foreground items dispatch on the variant of the placed item.
// Placing onto an existing collector feeds it instead.
func Place(a *Action, itemID uint16) error {
	t := a.Tile()
	if t == nil {
		return ErrOutOfBounds
	}
	item, ok := a.Catalog.Metadata(itemID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidItem, itemID)
	}
	switch item.Type {
	case catalog.TypeFist, catalog.TypeWrench, catalog.TypeClothes:
		return fmt.Errorf("%w: %d is not placeable", ErrInvalidItem, itemID)
	case catalog.TypeBackground:
		return placeBackground(a, item)
	}

	if t.Fg != 0 {
		if a.World.Resolve(a.Catalog, a.Index) == KindCollector {
			return collectorTile{}.OnItemPlace(a, item)
		}
		return ErrOccupied
	}
	return BehaviorOf(ResolveItem(a.Catalog, itemID)).OnPlaceForeground(a, item)
}

// Punch hits the target tile.
func Punch(a *Action) error {
	if a.Tile() == nil {
		return ErrOutOfBounds
	}
	return BehaviorOf(a.World.Resolve(a.Catalog, a.Index)).OnPunch(a)
}

// Wrench opens the configuration of the target tile.
func Wrench(a *Action) error {
	if a.Tile() == nil {
		return ErrOutOfBounds
	}
	return BehaviorOf(a.World.Resolve(a.Catalog, a.Index)).OnWrench(a)
}

// Destroy removes the target tile through its variant's destroy hook.
func Destroy(a *Action) error {
	if a.Tile() == nil {
		return ErrOutOfBounds
	}
	return BehaviorOf(a.World.Resolve(a.Catalog, a.Index)).OnDestroy(a)
}

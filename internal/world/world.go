// Package world holds the authoritative tile-grid model of a game space and
// the per-tile behavior variants that mutate it.
//
// A World is not safe for concurrent use. Callers serialize access per world
// name (the entity cache entry lock does this in the game server).
package world

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxNameLength bounds world names.
const MaxNameLength = 24

// DefaultWeather is the weather of a world without a weather machine.
const DefaultWeather = 0

// Owner records who holds the world lock.
type Owner struct {
	PlayerID  int64 `msgpack:"player"`
	LockIndex int   `msgpack:"lock"`
}

// JammerKind names a world-wide jammer effect.
type JammerKind string

const (
	JammerSignal JammerKind = "signal"
	JammerPunch  JammerKind = "punch"
	JammerZombie JammerKind = "zombie"
)

// World is one named tile-grid game space.
type World struct {
	Name       string
	Width      int
	Height     int
	Tiles      []Tile
	Extras     map[int]*Extra
	Dropped    Ledger
	Owner      *Owner
	Jammers    map[JammerKind]bool
	Collectors []int
	Weather    uint16

	// transient
	damage map[int]hit
	dirty  bool
}

type hit struct {
	count int
	last  time.Time
}

// New returns an empty world of the given size.
func New(name string, width, height int) *World {
	return &World{
		Name:    name,
		Width:   width,
		Height:  height,
		Tiles:   make([]Tile, width*height),
		Extras:  make(map[int]*Extra),
		Jammers: make(map[JammerKind]bool),
		damage:  make(map[int]hit),
	}
}

// Restore re-initialises transient state after a world was decoded from storage.
// Extras pointing outside the grid are dropped.
func (w *World) Restore() {
	if w.Extras == nil {
		w.Extras = make(map[int]*Extra)
	}
	if w.Jammers == nil {
		w.Jammers = make(map[JammerKind]bool)
	}
	for idx := range w.Extras {
		if !w.ValidIndex(idx) {
			delete(w.Extras, idx)
		}
	}
	w.damage = make(map[int]hit)
}

// Tile returns a pointer to the tile at index, or nil when out of range.
func (w *World) Tile(index int) *Tile {
	if !w.ValidIndex(index) {
		return nil
	}
	return &w.Tiles[index]
}

// Extra returns the extra record at index, or nil.
func (w *World) Extra(index int) *Extra {
	return w.Extras[index]
}

// setExtra installs e at index, replacing any existing record.
func (w *World) setExtra(index int, e *Extra) {
	if !w.ValidIndex(index) {
		return
	}
	w.Extras[index] = e
}

func (w *World) clearExtra(index int) {
	delete(w.Extras, index)
}

// Dirty reports whether the world changed since the last MarkClean.
func (w *World) Dirty() bool { return w.dirty }

// MarkDirty flags the world for saving.
func (w *World) MarkDirty() { w.dirty = true }

// MarkClean clears the dirty flag after a save.
func (w *World) MarkClean() { w.dirty = false }

// OwnerID returns the world lock owner's player id, or 0.
func (w *World) OwnerID() int64 {
	if w.Owner == nil {
		return 0
	}
	return w.Owner.PlayerID
}

// JammerEnabled reports whether a jammer of kind is active.
func (w *World) JammerEnabled(kind JammerKind) bool {
	return w.Jammers[kind]
}

// Clone returns a deep copy, used for saving outside the world's lock.
func (w *World) Clone() *World {
	c := *w
	c.Tiles = append([]Tile(nil), w.Tiles...)
	c.Extras = make(map[int]*Extra, len(w.Extras))
	for k, e := range w.Extras {
		c.Extras[k] = e.clone()
	}
	c.Dropped.Items = append([]DroppedItem(nil), w.Dropped.Items...)
	if w.Owner != nil {
		o := *w.Owner
		c.Owner = &o
	}
	c.Jammers = make(map[JammerKind]bool, len(w.Jammers))
	for k, v := range w.Jammers {
		c.Jammers[k] = v
	}
	c.Collectors = append([]int(nil), w.Collectors...)
	c.damage = make(map[int]hit)
	return &c
}

func (e *Extra) clone() *Extra {
	c := &Extra{}
	if e.Door != nil {
		d := *e.Door
		c.Door = &d
	}
	if e.Sign != nil {
		s := *e.Sign
		c.Sign = &s
	}
	if e.Lock != nil {
		l := *e.Lock
		l.Access = append([]int64(nil), e.Lock.Access...)
		c.Lock = &l
	}
	if e.Seed != nil {
		s := *e.Seed
		c.Seed = &s
	}
	if e.Collector != nil {
		m := *e.Collector
		if m.Enabled != nil {
			m.Enabled = ptr(*m.Enabled)
		}
		if m.BuildingMode != nil {
			m.BuildingMode = ptr(*m.BuildingMode)
		}
		c.Collector = &m
	}
	return c
}

// NormalizeName upper-cases a world name and validates its charset.
func NormalizeName(name string) (string, error) {
	n := cases.Upper(language.Und).String(name)
	if n == "" || len(n) > MaxNameLength {
		return "", fmt.Errorf("%w: length %d", ErrInvalidName, len(n))
	}
	for _, r := range n {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return n, nil
}

package db

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/world"
)

// playerData is the msgpack blob of a player row.
type playerData struct {
	Inventory model.Inventory `msgpack:"inventory"`
	Clothing  model.Clothing  `msgpack:"clothing"`
}

func encodePlayerData(p model.Player) ([]byte, error) {
	b, err := msgpack.Marshal(playerData{Inventory: p.Inventory, Clothing: p.Clothing})
	if err != nil {
		return nil, fmt.Errorf("encoding player %q: %w", p.Name, err)
	}
	return b, nil
}

func decodePlayerData(b []byte, p *model.Player) error {
	var d playerData
	if err := msgpack.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("decoding player %q: %w", p.Name, err)
	}
	p.Inventory = d.Inventory
	p.Clothing = d.Clothing
	if p.Inventory.Max == 0 {
		p.Inventory.Max = model.DefaultInventorySize
	}
	return nil
}

// worldExtras is the msgpack blob of everything keyed by tile index.
type worldExtras struct {
	Extras     map[int]*world.Extra      `msgpack:"extras"`
	Jammers    map[world.JammerKind]bool `msgpack:"jammers"`
	Collectors []int                     `msgpack:"collectors"`
}

// worldRow is a world as stored: scalar columns plus three blobs.
type worldRow struct {
	Name      string
	Width     int
	Height    int
	OwnerID   *int64
	LockIndex *int
	Weather   int
	Tiles     []byte
	Extras    []byte
	Dropped   []byte
}

func encodeWorld(w *world.World) (worldRow, error) {
	r := worldRow{Name: w.Name, Width: w.Width, Height: w.Height, Weather: int(w.Weather)}
	if w.Owner != nil {
		id, idx := w.Owner.PlayerID, w.Owner.LockIndex
		r.OwnerID, r.LockIndex = &id, &idx
	}

	var err error
	if r.Tiles, err = msgpack.Marshal(w.Tiles); err != nil {
		return r, fmt.Errorf("encoding tiles of %s: %w", w.Name, err)
	}
	ex := worldExtras{Extras: w.Extras, Jammers: w.Jammers, Collectors: w.Collectors}
	if r.Extras, err = msgpack.Marshal(ex); err != nil {
		return r, fmt.Errorf("encoding extras of %s: %w", w.Name, err)
	}
	if r.Dropped, err = msgpack.Marshal(w.Dropped); err != nil {
		return r, fmt.Errorf("encoding dropped items of %s: %w", w.Name, err)
	}
	return r, nil
}

func decodeWorld(r worldRow) (*world.World, error) {
	w := &world.World{Name: r.Name, Width: r.Width, Height: r.Height, Weather: uint16(r.Weather)}
	if err := msgpack.Unmarshal(r.Tiles, &w.Tiles); err != nil {
		return nil, fmt.Errorf("decoding tiles of %s: %w", r.Name, err)
	}
	if len(w.Tiles) != w.Width*w.Height {
		return nil, fmt.Errorf("world %s has %d tiles, want %dx%d", r.Name, len(w.Tiles), w.Width, w.Height)
	}
	var ex worldExtras
	if err := msgpack.Unmarshal(r.Extras, &ex); err != nil {
		return nil, fmt.Errorf("decoding extras of %s: %w", r.Name, err)
	}
	w.Extras, w.Jammers, w.Collectors = ex.Extras, ex.Jammers, ex.Collectors
	if err := msgpack.Unmarshal(r.Dropped, &w.Dropped); err != nil {
		return nil, fmt.Errorf("decoding dropped items of %s: %w", r.Name, err)
	}
	if r.OwnerID != nil && r.LockIndex != nil {
		w.Owner = &world.Owner{PlayerID: *r.OwnerID, LockIndex: *r.LockIndex}
	}
	w.Restore()
	return w, nil
}

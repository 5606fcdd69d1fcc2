package world

import (
	"math/rand/v2"
	"time"

	"github.com/udisondev/growgo/internal/catalog"
	"github.com/udisondev/growgo/internal/protocol"
)

// maxFruits is the largest harvest of one tree.
const maxFruits = 4

type seedTile struct{ normalTile }

func (seedTile) OnPlaceForeground(a *Action, item catalog.Item) error {
	if err := basePlace(a, item); err != nil {
		return err
	}
	a.World.setExtra(a.Index, &Extra{Seed: &SeedData{
		PlantedAt: a.Now,
		Fruits:    uint8(1 + rand.IntN(maxFruits)),
	}})
	a.Tile().Flags |= FlagTileExtra | FlagSeed
	a.broadcastTile()
	return nil
}

// OnPunch harvests a grown tree, otherwise damages it like any tile.
func (seedTile) OnPunch(a *Action) error {
	seed := a.World.seed(a.Index)
	item, _ := a.Catalog.Metadata(a.Tile().Fg)
	grown := a.Now.Sub(seed.PlantedAt) >= time.Duration(item.GrowTime)*time.Second
	if !grown || seed.Fruits == 0 {
		return basePunch(a)
	}
	if err := a.checkPermission(PermBreak); err != nil {
		return err
	}

	fruit := item.ID - 1
	fruits := int(seed.Fruits)
	baseDestroy(a)

	x, y := a.XY()
	px, py := TileToPixel(x, y)
	a.World.Drop(a.Notify, fruit, fruits, px, py, a.Now)
	return nil
}

func (seedTile) Serialize(w *World, index int, out *protocol.Writer, now time.Time) {
	if !w.Tiles[index].Has(FlagTileExtra) {
		return
	}
	seed := w.seed(index)
	elapsed := max(now.Sub(seed.PlantedAt), 0)
	out.WriteByte(extraSeed)
	out.WriteU32(uint32(elapsed / time.Second))
	out.WriteByte(seed.Fruits)
}

func (seedTile) WireExtra() bool { return true }

func (w *World) seed(index int) SeedData {
	if e := w.Extras[index]; e != nil && e.Seed != nil {
		return *e.Seed
	}
	return SeedData{}
}

package world

import "math/rand/v2"

// Generated world item ids.
const (
	ItemDirt     uint16 = 2
	ItemLava     uint16 = 4
	ItemMainDoor uint16 = 6
	ItemBedrock  uint16 = 8
	ItemRock     uint16 = 10
	ItemCaveBg   uint16 = 14
)

const (
	bedrockRows = 6
	lavaRows    = 5
)

// Generate builds a fresh world: open sky over dirt, a band of rock and lava
// above the bedrock floor, and a main door standing on bedrock.
func Generate(name string, width, height int, rng *rand.Rand) *World {
	w := New(name, width, height)
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	surface := height * 2 / 5
	bedrock := height - bedrockRows
	lavaTop := bedrock - lavaRows

	for y := surface; y < height; y++ {
		for x := range width {
			t := &w.Tiles[w.Index(x, y)]
			t.Bg = ItemCaveBg
			switch {
			case y >= bedrock:
				t.Fg = ItemBedrock
			case y >= lavaTop && rng.IntN(8) == 0:
				t.Fg = ItemLava
			case y > surface && rng.IntN(20) == 0:
				t.Fg = ItemRock
			default:
				t.Fg = ItemDirt
			}
		}
	}

	if surface > 0 && width > 0 {
		x := rng.IntN(width)
		door := w.Index(x, surface-1)
		w.Tiles[door].Fg = ItemMainDoor
		w.Tiles[door].Flags |= FlagTileExtra
		w.setExtra(door, &Extra{Door: &DoorData{Label: "EXIT"}})
		floor := &w.Tiles[w.Index(x, surface)]
		floor.Fg = ItemBedrock
	}
	w.MarkDirty()
	return w
}

// MainDoor returns the index of the main door, or -1.
func (w *World) MainDoor() int {
	for i, t := range w.Tiles {
		if t.Fg == ItemMainDoor {
			return i
		}
	}
	return -1
}

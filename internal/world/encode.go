package world

import (
	"time"

	"github.com/udisondev/growgo/internal/protocol"
)

// EndOfUpdates terminates a multi-tile update stream.
const EndOfUpdates uint32 = 0xFFFFFFFF

// mapVersion is the map data layout version clients expect.
const mapVersion = 0x14

// wireFlags returns the flags sent for the tile at index. Variants that never
// send extra bytes must not advertise them.
func (w *World) wireFlags(cat ItemCatalog, index int) TileFlags {
	f := w.Tiles[index].Flags
	if !BehaviorOf(w.Resolve(cat, index)).WireExtra() {
		f &^= FlagTileExtra
	}
	return f
}

// WriteTile writes the wire form of the tile at index: the base fields, then
// the variant's extra bytes.
func (w *World) WriteTile(cat ItemCatalog, index int, out *protocol.Writer, now time.Time) {
	t := w.Tiles[index]
	out.WriteU16(t.Fg)
	out.WriteU16(t.Bg)
	out.WriteU16(t.LockIndex)
	out.WriteU16(uint16(w.wireFlags(cat, index)))
	BehaviorOf(w.Resolve(cat, index)).Serialize(w, index, out, now)
}

// TileUpdate returns a single-tile update frame.
func (w *World) TileUpdate(cat ItemCatalog, now time.Time, index int) []byte {
	if !w.ValidIndex(index) {
		return nil
	}
	out := protocol.GetWriter()
	defer out.Put()
	w.WriteTile(cat, index, out, now)

	x, y := w.Coords(index)
	t := protocol.Tank{
		Type:   protocol.TankSendTileUpdateData,
		NetID:  -1,
		PunchX: int32(x),
		PunchY: int32(y),
		Data:   out.Bytes(),
	}
	return t.Encode()
}

// TileUpdates returns one frame carrying every tile in indices as
// (x u32, y u32, tile bytes) records followed by EndOfUpdates.
// Out-of-range indices are skipped.
func (w *World) TileUpdates(cat ItemCatalog, now time.Time, indices ...int) []byte {
	out := protocol.GetWriter()
	defer out.Put()
	for _, idx := range indices {
		if !w.ValidIndex(idx) {
			continue
		}
		x, y := w.Coords(idx)
		out.WriteU32(uint32(x))
		out.WriteU32(uint32(y))
		w.WriteTile(cat, idx, out, now)
	}
	out.WriteU32(EndOfUpdates)

	t := protocol.Tank{
		Type:  protocol.TankSendTileUpdateDataMultiple,
		NetID: -1,
		Data:  out.Bytes(),
	}
	return t.Encode()
}

// MapData returns the full world frame sent when a player enters.
func (w *World) MapData(cat ItemCatalog, now time.Time) []byte {
	out := protocol.GetWriter()
	defer out.Put()

	out.WriteU16(mapVersion)
	out.WriteU32(0)
	out.WriteStringU16(w.Name)
	out.WriteU32(uint32(w.Width))
	out.WriteU32(uint32(w.Height))
	out.WriteU32(uint32(len(w.Tiles)))
	for i := range w.Tiles {
		w.WriteTile(cat, i, out, now)
	}

	out.WriteU32(uint32(len(w.Dropped.Items)))
	out.WriteU32(w.Dropped.LastUID)
	for _, it := range w.Dropped.Items {
		out.WriteU16(it.ItemID)
		out.WriteF32(it.X)
		out.WriteF32(it.Y)
		_ = out.WriteByte(it.Amount)
		_ = out.WriteByte(0)
		out.WriteU32(it.UID)
	}

	out.WriteU16(w.Weather)
	out.WriteU16(DefaultWeather)

	t := protocol.Tank{
		Type:  protocol.TankSendMapData,
		NetID: -1,
		State: protocol.StateExtended,
		Data:  out.Bytes(),
	}
	return t.Encode()
}

package world

import "math"

// TileSize is the width and height of one tile in world pixels.
const TileSize = 32

// Default dimensions of a generated world.
const (
	DefaultWidth  = 100
	DefaultHeight = 60
)

// Index converts tile coordinates to a row-major tile index.
func (w *World) Index(x, y int) int {
	return y*w.Width + x
}

// Coords converts a tile index back to tile coordinates.
func (w *World) Coords(index int) (x, y int) {
	return index % w.Width, index / w.Width
}

// InBounds reports whether tile coordinates lie inside the grid.
func (w *World) InBounds(x, y int) bool {
	return x >= 0 && x < w.Width && y >= 0 && y < w.Height
}

// ValidIndex reports whether index addresses a tile of the grid.
func (w *World) ValidIndex(index int) bool {
	return index >= 0 && index < len(w.Tiles)
}

// PixelToTile converts a world pixel position to the tile it falls in.
func PixelToTile(px, py float32) (x, y int) {
	return int(math.Floor(float64(px) / TileSize)), int(math.Floor(float64(py) / TileSize))
}

// TileToPixel returns the top-left pixel of a tile.
func TileToPixel(x, y int) (px, py float32) {
	return float32(x * TileSize), float32(y * TileSize)
}

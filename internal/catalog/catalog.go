// Package catalog loads the static item catalog. A Catalog is built once at
// startup and shared read-only; there is no package-level state.
package catalog

import (
	"bytes"
	"fmt"
	"os"

	"github.com/klauspost/compress/zlib"
	"gopkg.in/yaml.v3"
)

// file is the on-disk layout of a catalog.
type file struct {
	Version string `yaml:"version"`
	Items   []Item `yaml:"items"`
}

// Catalog is an immutable item catalog for one client platform.
type Catalog struct {
	version    string
	items      map[uint16]Item
	hash       uint32
	size       int
	compressed []byte
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse builds a catalog from raw file contents.
func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshaling catalog: %w", err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("catalog has no version")
	}

	items := make(map[uint16]Item, len(f.Items))
	for _, it := range f.Items {
		if _, dup := items[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %d", it.ID)
		}
		items[it.ID] = it
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing catalog: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing catalog: %w", err)
	}

	return &Catalog{
		version:    f.Version,
		items:      items,
		hash:       Hash(raw),
		size:       len(raw),
		compressed: buf.Bytes(),
	}, nil
}

// TypeOf returns the declared type of id.
func (c *Catalog) TypeOf(id uint16) (ItemType, bool) {
	it, ok := c.items[id]
	return it.Type, ok
}

// Metadata returns the catalog entry for id.
func (c *Catalog) Metadata(id uint16) (Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Version is the client content version the catalog belongs to.
func (c *Catalog) Version() string { return c.version }

// Hash is the checksum clients compare against their cached copy.
func (c *Catalog) Hash() uint32 { return c.hash }

// Compressed returns the zlib-compressed catalog sent on request.
func (c *Catalog) Compressed() []byte { return c.compressed }

// Size is the uncompressed length of the catalog file.
func (c *Catalog) Size() int { return c.size }

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Hash computes the rolling checksum the client uses for catalog files.
func Hash(data []byte) uint32 {
	h := uint32(0x55555555)
	for _, b := range data {
		h = (h >> 27) + (h << 5) + uint32(b)
	}
	return h
}

package segment

import (
	"github.com/kelindar/bitmap"
	"github.com/kelindar/intmap"
	"github.com/zeebo/xxh3"
)

// memDictColumn is a dictionary-encoded StringColumn: each row stores a
// small integer code into a shared []string dictionary instead of a full
// string, and every distinct code keeps its own bitmap of matching rows —
// the concrete, exercised version of ColumnCapabilities.DictionaryEncoded
// (spec.md §3), grounded on the teacher's columnEnum interning
// (column_strings.go) but using github.com/kelindar/intmap for the
// hash→code table instead of a hand-rolled byte-scan cache, and
// github.com/zeebo/xxh3 in place of the teacher's FNV-32 hash32.
type memDictColumn struct {
	fill    bitmap.Bitmap
	codes   []uint32
	dict    []string
	byHash  *intmap.Map
	indexes []bitmap.Bitmap // code -> bitmap of rows holding that code
}

func newMemDictColumn(n int) *memDictColumn {
	return &memDictColumn{
		fill:   make(bitmap.Bitmap, 0, 4),
		codes:  make([]uint32, 0, n),
		dict:   make([]string, 0, 16),
		byHash: intmap.New(16),
	}
}

func (c *memDictColumn) Len() uint32  { return uint32(len(c.codes)) }
func (c *memDictColumn) Close() error { return nil }

// internCode returns the dictionary code for value, adding it if this is
// the first row to use it.
func (c *memDictColumn) internCode(value string) uint32 {
	h := uint32(xxh3.HashString(value))
	if code, ok := c.byHash.Load(h); ok {
		return code
	}
	code := uint32(len(c.dict))
	c.dict = append(c.dict, value)
	c.indexes = append(c.indexes, make(bitmap.Bitmap, 0, 4))
	c.byHash.Store(h, code)
	return code
}

// Set records value at row idx, growing every per-row slice to fit.
func (c *memDictColumn) Set(idx uint32, value string) {
	code := c.internCode(value)

	if idx >= uint32(len(c.codes)) {
		grown := make([]uint32, idx+1)
		copy(grown, c.codes)
		c.codes = grown
	}
	c.fill.Grow(idx)
	c.fill.Set(idx)
	c.codes[idx] = code

	c.indexes[code].Grow(idx)
	c.indexes[code].Set(idx)
}

func (c *memDictColumn) StringAt(idx uint32) (string, bool) {
	if idx >= uint32(len(c.codes)) || !c.fill.Contains(idx) {
		return "", false
	}
	return c.dict[c.codes[idx]], true
}

// ForValue implements BitmapIndexSupplier: the bitmap index for a
// dictionary-encoded column is just the per-code row bitmap built
// incrementally by Set, no separate construction pass needed.
func (c *memDictColumn) ForValue(value string) bitmap.Bitmap {
	h := uint32(xxh3.HashString(value))
	code, ok := c.byHash.Load(h)
	if !ok {
		return nil
	}
	return c.indexes[code]
}

func (c *memDictColumn) Cardinality() int { return len(c.dict) }

package segment

import (
	"github.com/kelindar/bitmap"
	"github.com/kelindar/simd"
)

// numericColumn is the generic fixed-width column backing both the float
// and long reference columns, parameterized the way the teacher's
// numericColumn[T simd.Number] is (column_numeric.go). T is constrained to
// simd.Number purely to keep this column eligible for the same family of
// vectorized predicate evaluation filter_numeric.go performs; the actual
// per-element work here is a plain Go loop, same as the teacher's own
// filterNumbers.
type numericColumn[T simd.Number] struct {
	fill bitmap.Bitmap
	data []T
}

func newNumericColumn[T simd.Number](n int) *numericColumn[T] {
	return &numericColumn[T]{fill: make(bitmap.Bitmap, 0, 4), data: make([]T, 0, n)}
}

func (c *numericColumn[T]) set(idx uint32, v T) {
	if idx >= uint32(len(c.data)) {
		grown := make([]T, idx+1)
		copy(grown, c.data)
		c.data = grown
	}
	c.fill.Grow(idx)
	c.fill.Set(idx)
	c.data[idx] = v
}

func (c *numericColumn[T]) at(idx uint32) (T, bool) {
	if idx >= uint32(len(c.data)) || !c.fill.Contains(idx) {
		var zero T
		return zero, false
	}
	return c.data[idx], true
}

func (c *numericColumn[T]) Len() uint32  { return uint32(len(c.data)) }
func (c *numericColumn[T]) Close() error { return nil }

// FilterBatch evaluates predicate over the absolute row indices in rows,
// returning a bitmap over [0, len(rows)) of the matching positions,
// analogous to column_numeric.go's FilterFloat64/FilterInt64. Nothing in
// the engine calls it: the vector cursor and filter_numeric.go's matchers
// read values through physicalVectorSelector instead.
func (c *numericColumn[T]) FilterBatch(rows []uint32, predicate func(float64) bool) bitmap.Bitmap {
	out := make(bitmap.Bitmap, len(rows)/64+1)
	for i, r := range rows {
		v, ok := c.at(r)
		if ok && predicate(float64(v)) {
			out.Set(uint32(i))
		}
	}
	return out
}

// --------------------------- Float ----------------------------

// memFloatColumn is a reference FloatColumn backed by a numericColumn[float64].
type memFloatColumn struct {
	core *numericColumn[float64]
}

func newMemFloatColumn(n int) *memFloatColumn {
	return &memFloatColumn{core: newNumericColumn[float64](n)}
}

func (c *memFloatColumn) Len() uint32                       { return c.core.Len() }
func (c *memFloatColumn) Close() error                      { return c.core.Close() }
func (c *memFloatColumn) FloatAt(idx uint32) (float64, bool) { return c.core.at(idx) }
func (c *memFloatColumn) Set(idx uint32, v float64)          { c.core.set(idx, v) }
func (c *memFloatColumn) FilterBatch(rows []uint32, predicate func(float64) bool) bitmap.Bitmap {
	return c.core.FilterBatch(rows, predicate)
}

// --------------------------- Long ----------------------------

// memLongColumn is a reference LongColumn backed by a numericColumn[int64].
// __time is always a memLongColumn (spec.md §3: "numeric, monotone
// non-decreasing, single-valued").
type memLongColumn struct {
	core *numericColumn[int64]
}

func newMemLongColumn(n int) *memLongColumn {
	return &memLongColumn{core: newNumericColumn[int64](n)}
}

func (c *memLongColumn) Len() uint32                     { return c.core.Len() }
func (c *memLongColumn) Close() error                    { return c.core.Close() }
func (c *memLongColumn) LongAt(idx uint32) (int64, bool) { return c.core.at(idx) }
func (c *memLongColumn) Set(idx uint32, v int64)         { c.core.set(idx, v) }
func (c *memLongColumn) FilterBatch(rows []uint32, predicate func(float64) bool) bitmap.Bitmap {
	return c.core.FilterBatch(rows, predicate)
}

// --------------------------- Plain string ----------------------------

// memStringColumn is a reference StringColumn with no dictionary encoding,
// grounded on the teacher's columnString (column_strings.go): a fill
// bitmap plus a plain []string. Used for low-cardinality-agnostic columns
// that don't warrant memDictColumn's interning.
type memStringColumn struct {
	fill bitmap.Bitmap
	data []string
}

func newMemStringColumn(n int) *memStringColumn {
	return &memStringColumn{fill: make(bitmap.Bitmap, 0, 4), data: make([]string, 0, n)}
}

func (c *memStringColumn) Len() uint32  { return uint32(len(c.data)) }
func (c *memStringColumn) Close() error { return nil }

func (c *memStringColumn) StringAt(idx uint32) (string, bool) {
	if idx >= uint32(len(c.data)) || !c.fill.Contains(idx) {
		return "", false
	}
	return c.data[idx], true
}

func (c *memStringColumn) Set(idx uint32, v string) {
	if idx >= uint32(len(c.data)) {
		grown := make([]string, idx+1)
		copy(grown, c.data)
		c.data = grown
	}
	c.fill.Grow(idx)
	c.fill.Set(idx)
	c.data[idx] = v
}

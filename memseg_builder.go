package segment

import (
	"sort"
	"sync"

	"github.com/kelindar/smutex"
	"github.com/zeebo/xxh3"
)

// memColumnHolder adapts one built reference column into ColumnHolder.
type memColumnHolder struct {
	column   BaseColumn
	caps     ColumnCapabilities
	indexer  BitmapIndexSupplier
}

func (h *memColumnHolder) Capabilities() ColumnCapabilities { return h.caps }
func (h *memColumnHolder) Open() (BaseColumn, error)        { return h.column, nil }
func (h *memColumnHolder) IndexSupplier() BitmapIndexSupplier {
	return h.indexer
}

// memSegmentBuilder accumulates columns into an immutable memSegment.
// Columns live in 128 separate shard maps keyed by the column name's xxh3
// hash, each behind its own smutex.SMutex128 shard lock, mirroring
// Collection's slock (collection.go, txn_lock.go): two AddXColumn calls
// whose names hash to different shards touch disjoint maps and never
// contend. mu is a second, much narrower lock guarding only the small
// dims/metrics slices and the numRows scalar, which every shard's writer
// can touch regardless of its own shard. Scanning a built memSegment never
// takes either lock, since segments are immutable once Build returns
// (spec.md §1 non-goals).
type memSegmentBuilder struct {
	mu      sync.Mutex
	shard   smutex.SMutex128
	columns [128]map[string]*memColumnHolder
	dims    []string
	metrics []string
	numRows uint32
}

// NewMemSegmentBuilder returns an empty builder.
func NewMemSegmentBuilder() *memSegmentBuilder {
	b := &memSegmentBuilder{}
	for i := range b.columns {
		b.columns[i] = make(map[string]*memColumnHolder)
	}
	return b
}

func (b *memSegmentBuilder) addColumn(name string, isDimension bool, holder *memColumnHolder) {
	shard := uint(xxh3.HashString(name) % 128)

	b.shard.Lock(shard)
	_, exists := b.columns[shard][name]
	b.columns[shard][name] = holder
	b.shard.Unlock(shard)

	if !exists {
		b.mu.Lock()
		if isDimension {
			b.dims = append(b.dims, name)
		} else {
			b.metrics = append(b.metrics, name)
		}
		b.mu.Unlock()
	}

	if n := holder.column.Len(); n > 0 {
		b.mu.Lock()
		if n > b.numRows {
			b.numRows = n
		}
		b.mu.Unlock()
	}
}

// AddTime sets the mandatory __time column. values must already be
// monotone non-decreasing (spec.md §3); the builder does not re-sort.
func (b *memSegmentBuilder) AddTime(values []int64) *memSegmentBuilder {
	col := newMemLongColumn(len(values))
	for i, v := range values {
		col.Set(uint32(i), v)
	}
	b.addColumn(TimeColumn, false, &memColumnHolder{
		column: col,
		caps:   ColumnCapabilities{Type: TypeLong, HasMultipleValues: MultiValueNo},
	})
	return b
}

// AddFloatMetric adds a plain float64 metric column.
func (b *memSegmentBuilder) AddFloatMetric(name string, values []float64) *memSegmentBuilder {
	col := newMemFloatColumn(len(values))
	for i, v := range values {
		col.Set(uint32(i), v)
	}
	b.addColumn(name, false, &memColumnHolder{
		column: col,
		caps:   ColumnCapabilities{Type: TypeFloat, HasMultipleValues: MultiValueNo},
	})
	return b
}

// AddLongMetric adds a plain int64 metric column.
func (b *memSegmentBuilder) AddLongMetric(name string, values []int64) *memSegmentBuilder {
	col := newMemLongColumn(len(values))
	for i, v := range values {
		col.Set(uint32(i), v)
	}
	b.addColumn(name, false, &memColumnHolder{
		column: col,
		caps:   ColumnCapabilities{Type: TypeLong, HasMultipleValues: MultiValueNo},
	})
	return b
}

// AddStringDimension adds an undictionaried string dimension.
func (b *memSegmentBuilder) AddStringDimension(name string, values []string) *memSegmentBuilder {
	col := newMemStringColumn(len(values))
	for i, v := range values {
		col.Set(uint32(i), v)
	}
	b.addColumn(name, true, &memColumnHolder{
		column: col,
		caps:   ColumnCapabilities{Type: TypeString, HasMultipleValues: MultiValueNo},
	})
	return b
}

// AddDictDimension adds a dictionary-encoded string dimension, exposing
// both StringColumn and a bitmap-index supplier (spec.md §3,
// has-bitmap-index/dictionary-encoded capabilities).
func (b *memSegmentBuilder) AddDictDimension(name string, values []string) *memSegmentBuilder {
	col := newMemDictColumn(len(values))
	for i, v := range values {
		col.Set(uint32(i), v)
	}
	b.addColumn(name, true, &memColumnHolder{
		column:  col,
		caps:    ColumnCapabilities{Type: TypeString, HasMultipleValues: MultiValueNo, HasBitmapIndex: true, DictionaryEncoded: true},
		indexer: col,
	})
	return b
}

// Build finalizes the segment. The data interval is derived from the
// __time column; a segment built with no rows reports Eternity's empty
// complement, [0, 0).
func (b *memSegmentBuilder) Build() Segment {
	dims := append([]string(nil), b.dims...)
	metrics := append([]string(nil), b.metrics...)
	sort.Strings(dims)
	sort.Strings(metrics)

	columns := make(map[string]*memColumnHolder)
	for _, shard := range b.columns {
		for name, holder := range shard {
			columns[name] = holder
		}
	}

	var iv Interval
	if timeHolder, ok := columns[TimeColumn]; ok {
		if longCol, ok := timeHolder.column.(LongColumn); ok && b.numRows > 0 {
			start, _ := longCol.LongAt(0)
			end, _ := longCol.LongAt(b.numRows - 1)
			iv = Interval{Start: start, End: end + 1}
		}
	}

	return &memSegment{
		columns: columns,
		dims:    dims,
		metrics: metrics,
		numRows: b.numRows,
		iv:      iv,
	}
}

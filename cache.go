package segment

import (
	"io"

	"github.com/zeebo/xxh3"
)

// closer accumulates resources opened over a holder's lifetime and
// releases them exactly once, in reverse acquisition order, coalescing any
// failure into a single ExecutionError::CloseFailed (spec.md §5).
type closer struct {
	items []io.Closer
}

func newCloser() *closer {
	return &closer{}
}

func (c *closer) add(item io.Closer) {
	c.items = append(c.items, item)
}

func (c *closer) closeAll() error {
	var firstErr error
	for i := len(c.items) - 1; i >= 0; i-- {
		if err := c.items[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.items = nil
	if firstErr != nil {
		return errCloseFailed(firstErr)
	}
	return nil
}

// cacheEntry is one opened column, kept alongside its declaring handle so
// the selector factory can read capabilities without reopening anything.
type cacheEntry struct {
	name   string
	holder ColumnHolder
	column BaseColumn
}

// columnCache is the holder's open-once, lifetime-scoped handle cache over
// physical columns (spec.md §3, §4.2). Lookups hash the column name with
// xxh3 the way the teacher's map benchmarks do, falling back to an exact
// string compare within the (rare) bucket to stay correct under hash
// collisions.
type columnCache struct {
	segment Segment
	cl      *closer
	buckets map[uint64][]*cacheEntry
}

func newColumnCache(seg Segment, cl *closer) *columnCache {
	return &columnCache{
		segment: seg,
		cl:      cl,
		buckets: make(map[uint64][]*cacheEntry),
	}
}

// get opens and memoizes the column named name. A nil, nil, nil result
// means the segment has no such column at all — not an error, since the
// selector factory resolves that to a null selector (spec.md §4.3).
func (c *columnCache) get(name string) (BaseColumn, ColumnHolder, error) {
	h := xxh3.HashString(name)
	for _, e := range c.buckets[h] {
		if e.name == name {
			return e.column, e.holder, nil
		}
	}

	holder := c.segment.Column(name)
	if holder == nil {
		return nil, nil, nil
	}

	col, err := holder.Open()
	if err != nil {
		return nil, nil, err
	}

	c.cl.add(col)
	c.buckets[h] = append(c.buckets[h], &cacheEntry{name: name, holder: holder, column: col})
	return col, holder, nil
}

package segment

import (
	"context"
	"time"
)

// segmentIndexSelector adapts a Segment's column handles into the
// IndexSelector a Filter is evaluated against.
type segmentIndexSelector struct {
	segment Segment
}

func (s segmentIndexSelector) BitmapIndex(column string) BitmapIndexSupplier {
	holder := s.segment.Column(column)
	if holder == nil {
		return nil
	}
	return holder.IndexSupplier()
}

// Cursor iterates rows one at a time, honoring the build spec's interval,
// filter and ordering (spec.md §4.6).
type Cursor struct {
	ctx     context.Context
	offset  Offset
	factory ColumnSelectorFactory
}

// ColumnSelectorFactory exposes the per-row value readers bound to this
// cursor's current position.
func (c *Cursor) ColumnSelectorFactory() ColumnSelectorFactory { return c.factory }

// IsDone reports whether the cursor has no more rows to emit.
func (c *Cursor) IsDone() bool { return !c.offset.WithinBounds() }

// Advance moves to the next row, observing cooperative cancellation. Once
// it returns ErrInterrupted, the cursor is exhausted (IsDone reports true)
// and subsequent Advance calls are no-ops (spec.md §5, §7).
func (c *Cursor) Advance() error {
	if c.IsDone() {
		return nil
	}
	c.offset.Advance()
	if in, ok := c.offset.(Interruptible); ok {
		if err := in.Err(); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceUninterruptibly moves to the next row without ever observing
// cancellation, for contexts that must not raise ExecutionError::Interrupted.
func (c *Cursor) AdvanceUninterruptibly() {
	if c.IsDone() {
		return
	}
	if u, ok := c.offset.(interface{ advanceUninterruptibly() }); ok {
		u.advanceUninterruptibly()
		return
	}
	c.offset.Advance()
}

// Reset returns the cursor to the state it had just after construction.
func (c *Cursor) Reset() {
	c.offset.Reset()
}

// buildScalarCursor implements the five-step construction of spec.md §4.6.
func buildScalarCursor(ctx context.Context, seg Segment, spec CursorBuildSpec, cache *columnCache) (*Cursor, error) {
	n := seg.NumRows()
	descending, err := effectiveOrdering(spec)
	if err != nil {
		return nil, err
	}
	ascending := !descending

	timeCol, _, err := cache.get(TimeColumn)
	if err != nil {
		return nil, err
	}
	longTimeCol, ok := timeCol.(LongColumn)
	invariant(ok, "__time column does not implement LongColumn")
	timestampAt := func(idx uint32) int64 {
		v, _ := longTimeCol.LongAt(idx)
		return v
	}

	// Step 1: build or fetch the filter bundle.
	var bundle FilterBundle
	var buildStart time.Time
	if spec.Filter != nil {
		buildStart = time.Now()
		bundle = spec.Filter.MakeFilterBundle(segmentIndexSelector{segment: seg}, seg.BitmapFactory(), n, 0, false)
	}
	buildDuration := time.Since(buildStart)

	// Step 2: choose the base offset.
	base, matcherBundle, err := selectBase(bundle, spec.Filter != nil, ascending, n, spec.QueryMetrics, buildDuration)
	if err != nil {
		return nil, err
	}
	if spec.QueryMetrics != nil {
		spec.QueryMetrics.ReportSegmentRows(n)
		spec.QueryMetrics.Vectorized(false)
	}

	// Step 3: skip leading rows outside the query interval.
	dataIv := seg.Interval()
	if ascending {
		threshold := spec.Interval.Start
		if dataIv.Start > threshold {
			threshold = dataIv.Start
		}
		for base.WithinBounds() && timestampAt(base.Current()) < threshold {
			base.Advance()
		}
	} else {
		for base.WithinBounds() && timestampAt(base.Current()) >= spec.Interval.End {
			base.Advance()
		}
	}

	// Step 4: wrap with the timestamp-checking offset.
	var tc Offset
	if ascending {
		allWithin := dataIv.End <= spec.Interval.End
		tc = newTimestampCheckingOffset(base, timestampAt, spec.Interval.End, false, allWithin)
	} else {
		allWithin := dataIv.Start >= spec.Interval.Start
		tc = newTimestampCheckingOffset(base, timestampAt, spec.Interval.Start, true, allWithin)
	}

	// Step 5: clone once to separate the exposed cursor offset from the
	// offset a matcher-driven search might have left transiently advanced.
	cursorOffset := tc.Clone()
	if matcherBundle != nil && matcherBundle.ScalarMatcher != nil {
		filtered, err := newFilteredOffset(ctx, cursorOffset, func(inner Offset) (func() bool, error) {
			factory := newBoundSelectorFactory(cache, spec.VirtualColumns, inner)
			matcher, err := matcherBundle.ScalarMatcher(factory)
			if err != nil {
				return nil, err
			}
			return matcher.Matches, nil
		})
		if err != nil {
			return nil, err
		}
		cursorOffset = filtered
	}

	factory := newBoundSelectorFactory(cache, spec.VirtualColumns, cursorOffset)
	return &Cursor{ctx: ctx, offset: cursorOffset, factory: factory}, nil
}

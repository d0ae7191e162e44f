package segment

import (
	"context"
	"strconv"
)

// RecordIterator pulls opaque records one at a time from a RecordSource.
// Close releases the sequence's "baggage" — deferred cleanup the source
// needs regardless of whether the iterator was drained, interrupted, or
// closed early (spec.md §4.9, §9 design notes).
type RecordIterator interface {
	Next() (record any, ok bool)
	Close() error
}

// RecordSource is the lazy, finite-or-infinite, restartable-or-not
// sequence of opaque records a row-based adapter presents the cursor
// contract over. Sequence returns a fresh iterator each call.
type RecordSource interface {
	Sequence() (RecordIterator, error)
}

// RowBasedAdapter presents the Cursor contract over a RecordSource whose
// schema is declared, not discovered (spec.md §4.9).
type RowBasedAdapter struct {
	source      RecordSource
	timestampFn func(record any) int64
	columnFn    func(column string) func(record any) any
	signature   RowSignature
}

// NewRowBasedAdapter builds an adapter over source with the given
// timestamp extractor, per-column value extractor, and declared schema.
func NewRowBasedAdapter(source RecordSource, timestampFn func(any) int64, columnFn func(string) func(any) any, signature RowSignature) *RowBasedAdapter {
	return &RowBasedAdapter{source: source, timestampFn: timestampFn, columnFn: columnFn, signature: signature}
}

// Interval is always reported as Eternity: a row-based adapter's records
// are not indexed by time ahead of materialization.
func (a *RowBasedAdapter) Interval() Interval { return Eternity }

// NumRows is unsupported: cardinality is unknown until the sequence is
// drained, and draining it just to answer this would defeat the adapter's
// laziness.
func (a *RowBasedAdapter) NumRows() (uint32, error) { return 0, ErrUnsupportedOperation }

// Metadata is unsupported on the row-based adapter (spec.md §9, Open
// Questions — implementers should not "fix" this without source guidance).
func (a *RowBasedAdapter) Metadata() (any, error) { return nil, ErrUnsupportedOperation }

// CapabilitiesOf derives capabilities from the declared row signature only
// (spec.md §4.9): no index, no dictionary encoding, multiplicity unknown.
func (a *RowBasedAdapter) CapabilitiesOf(name string) (ColumnCapabilities, bool) {
	t, ok := a.signature.ColumnType(name)
	if !ok {
		return ColumnCapabilities{}, false
	}
	return ColumnCapabilities{Type: t, HasMultipleValues: MultiValueUnknown}, true
}

// RowCursor is the Cursor-shaped view over a RowBasedAdapter's sequence.
type RowCursor struct {
	ctx     context.Context
	pull    func() (any, bool)
	current any
	done    bool
	factory ColumnSelectorFactory
}

func (c *RowCursor) ColumnSelectorFactory() ColumnSelectorFactory { return c.factory }
func (c *RowCursor) IsDone() bool                                 { return c.done }

func (c *RowCursor) Reset() {
	// A RowCursor is only ever produced once per MakeCursor call; reset is
	// not meaningful without re-materializing, so it is a no-op here. A
	// caller that needs to re-scan calls MakeCursor again, which is the
	// adapter's own "restart" contract.
}

// Advance skips forward to the next record that satisfies the interval and
// filter, or marks the cursor done once the sequence (or buffer) is
// exhausted.
func (c *RowCursor) Advance() error {
	if c.done {
		return nil
	}
	if c.ctx != nil {
		select {
		case <-c.ctx.Done():
			c.done = true
			return ErrInterrupted
		default:
		}
	}

	rec, ok := c.pull()
	if !ok {
		c.done = true
		c.current = nil
		return nil
	}
	c.current = rec
	return nil
}

// MakeCursor materializes the sequence twice (ascending, see below) or once
// (descending) per call, applies the interval and filter, and honors
// descending order by buffering the filtered stream in reverse (spec.md
// §4.9). The adapter invokes the sequence's baggage exactly once per
// materialization: the ascending probe is closed immediately, and the
// iterator that is actually read is registered with closer for release on
// holder Close.
//
// Invariant 9's observable close counts fall out of this directly:
// ascending opens the sequence twice — once to probe (opened and closed
// immediately, establishing that a sequence could be acquired before the
// real pass commits to anything) and once to drain (registered with
// closer, closed when the holder closes) — while descending opens it once,
// since a full, already-filtered, already-ordered buffer is built in a
// single pass and then served from memory.
func (a *RowBasedAdapter) MakeCursor(ctx context.Context, spec CursorBuildSpec, descending bool, cl *closer) (*RowCursor, error) {
	factoryFor := func(current *any) ColumnSelectorFactory {
		return &rowSelectorFactory{signature: a.signature, columnFn: a.columnFn, virtuals: spec.VirtualColumns, current: current}
	}

	var matches func(any) bool
	if spec.Filter != nil {
		var current any
		factory := factoryFor(&current)
		matcher, err := spec.Filter.MakeMatcher(factory)
		if err != nil {
			return nil, err
		}
		matches = func(rec any) bool {
			current = rec
			return matcher.Matches()
		}
	}

	accept := func(rec any) bool {
		if !spec.Interval.Contains(a.timestampFn(rec)) {
			return false
		}
		return matches == nil || matches(rec)
	}

	if descending {
		iter, err := a.source.Sequence()
		if err != nil {
			return nil, err
		}
		cl.add(iter)

		var buffered []any
		for {
			rec, ok := iter.Next()
			if !ok {
				break
			}
			if accept(rec) {
				buffered = append(buffered, rec)
			}
		}
		for l, r := 0, len(buffered)-1; l < r; l, r = l+1, r-1 {
			buffered[l], buffered[r] = buffered[r], buffered[l]
		}

		idx := 0
		cursor := &RowCursor{
			ctx: ctx,
			pull: func() (any, bool) {
				if idx >= len(buffered) {
					return nil, false
				}
				rec := buffered[idx]
				idx++
				return rec, true
			},
		}
		cursor.factory = factoryFor(&cursor.current)
		if err := cursor.Advance(); err != nil {
			return nil, err
		}
		return cursor, nil
	}

	// Ascending: probe once (open, then close immediately without reading),
	// then open the real draining iterator and register it for deferred,
	// holder-scoped close.
	probe, err := a.source.Sequence()
	if err != nil {
		return nil, err
	}
	if err := probe.Close(); err != nil {
		return nil, err
	}

	iter, err := a.source.Sequence()
	if err != nil {
		return nil, err
	}
	cl.add(iter)

	cursor := &RowCursor{
		ctx: ctx,
		pull: func() (any, bool) {
			for {
				rec, ok := iter.Next()
				if !ok {
					return nil, false
				}
				if accept(rec) {
					return rec, true
				}
			}
		},
	}
	cursor.factory = factoryFor(&cursor.current)
	if err := cursor.Advance(); err != nil {
		return nil, err
	}
	return cursor, nil
}

// --------------------------- Selector factory ----------------------------

type rowSelectorFactory struct {
	signature RowSignature
	columnFn  func(string) func(any) any
	virtuals  *VirtualColumns
	current   *any
}

func (f *rowSelectorFactory) CapabilitiesOf(name string) (ColumnCapabilities, bool) {
	if vc, ok := f.virtuals.Get(name); ok {
		return vc.Capabilities(f)
	}
	t, ok := f.signature.ColumnType(name)
	if !ok {
		return ColumnCapabilities{}, false
	}
	return ColumnCapabilities{Type: t, HasMultipleValues: MultiValueUnknown}, true
}

func (f *rowSelectorFactory) MakeScalarSelector(name string) (ScalarSelector, error) {
	if vc, ok := f.virtuals.Get(name); ok {
		return vc.MakeScalarSelector(f)
	}
	declared, ok := f.signature.ColumnType(name)
	if !ok {
		return theNullScalarSelector, nil
	}
	return &rowScalarSelector{getter: f.columnFn(name), current: f.current, declared: declared}, nil
}

func (f *rowSelectorFactory) MakeVectorSelector(name string) (VectorSelector, error) {
	invariant(false, "row-based adapter does not support vectorized selection")
	return nil, nil
}

// rowScalarSelector converts the raw value columnFn(name)(record) produces
// into the declared target type per spec.md §4.9's conversion table;
// unconvertible values become null.
type rowScalarSelector struct {
	getter   func(any) any
	current  *any
	declared ColumnType
}

func (s *rowScalarSelector) value() any {
	return convertRowValue(s.getter(*s.current), s.declared)
}

func (s *rowScalarSelector) IsNull() bool { return s.value() == nil }

func (s *rowScalarSelector) FloatValue() float64 {
	if v, ok := s.value().(float64); ok {
		return v
	}
	return 0
}

func (s *rowScalarSelector) DoubleValue() float64 { return s.FloatValue() }

func (s *rowScalarSelector) LongValue() int64 {
	if v, ok := s.value().(int64); ok {
		return v
	}
	return 0
}

func (s *rowScalarSelector) ObjectValue() any { return s.value() }

// convertRowValue implements spec.md §4.9's conversion table.
func convertRowValue(raw any, declared ColumnType) any {
	switch declared {
	case TypeComplex:
		return nil
	case TypeUnknown:
		return raw
	}
	if raw == nil {
		return nil
	}

	n, isNumeric := asFloat64(raw)
	switch declared {
	case TypeFloat, TypeDouble:
		if isNumeric {
			return n
		}
		return nil
	case TypeLong:
		if isNumeric {
			return int64(n)
		}
		return nil
	case TypeString:
		if s, ok := raw.(string); ok {
			return s
		}
		if isNumeric {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return nil
	default:
		return nil
	}
}

// asFloat64 widens the common numeric kinds a record's column function
// might return into a float64, the common currency the conversion table
// casts from.
func asFloat64(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

package segment

import (
	"context"
	"time"

	"github.com/kelindar/bitmap"
)

// VectorOffset is the vector-cursor analogue of Offset: instead of a
// single current row it exposes the absolute row indices making up the
// current fixed-width window (spec.md §4.7).
type VectorOffset interface {
	Rows() []uint32
	Advance()
	IsDone() bool
	Reset()
	MaxVectorSize() int
}

// --------------------------- No-filter ----------------------------

type noFilterVectorOffset struct {
	start, end uint32
	size       int
	cur        uint32
	rows       []uint32
}

func newNoFilterVectorOffset(size int, start, end uint32) *noFilterVectorOffset {
	o := &noFilterVectorOffset{start: start, end: end, size: size, cur: start}
	o.fill()
	return o
}

func (o *noFilterVectorOffset) fill() {
	if o.cur >= o.end {
		o.rows = nil
		return
	}
	n := o.end - o.cur
	if n > uint32(o.size) {
		n = uint32(o.size)
	}
	rows := make([]uint32, n)
	for i := range rows {
		rows[i] = o.cur + uint32(i)
	}
	o.rows = rows
}

func (o *noFilterVectorOffset) Rows() []uint32    { return o.rows }
func (o *noFilterVectorOffset) IsDone() bool      { return len(o.rows) == 0 }
func (o *noFilterVectorOffset) MaxVectorSize() int { return o.size }

func (o *noFilterVectorOffset) Advance() {
	o.cur += uint32(len(o.rows))
	o.fill()
}

func (o *noFilterVectorOffset) Reset() {
	o.cur = o.start
	o.fill()
}

// --------------------------- Bitmap ----------------------------

// bitmapVectorOffset compacts the bitmap's set bits within [start, end)
// into dense windows of up to size rows, skipping non-matching rows
// entirely rather than leaving gaps in the window.
type bitmapVectorOffset struct {
	bm         bitmap.Bitmap
	start, end uint32
	size       int
	pos        uint32
	rows       []uint32
}

func newBitmapVectorOffset(size int, bm bitmap.Bitmap, start, end uint32) *bitmapVectorOffset {
	o := &bitmapVectorOffset{bm: bm, start: start, end: end, size: size, pos: start}
	o.fill()
	return o
}

func (o *bitmapVectorOffset) fill() {
	rows := make([]uint32, 0, o.size)
	p := o.pos
	for len(rows) < o.size {
		idx, ok := nextSetBit(o.bm, p, o.end)
		if !ok {
			break
		}
		rows = append(rows, idx)
		p = idx + 1
	}
	o.rows = rows
	o.pos = p
}

func (o *bitmapVectorOffset) Rows() []uint32    { return o.rows }
func (o *bitmapVectorOffset) IsDone() bool      { return len(o.rows) == 0 }
func (o *bitmapVectorOffset) MaxVectorSize() int { return o.size }
func (o *bitmapVectorOffset) Advance()           { o.fill() }

func (o *bitmapVectorOffset) Reset() {
	o.pos = o.start
	o.fill()
}

// --------------------------- Filtered ----------------------------

// filteredVectorOffset narrows inner's windows to the rows a vector
// matcher accepts, bound against a factory over inner itself so the
// matcher evaluates raw, unfiltered positions (spec.md §4.7 step 3). It
// skips past windows the matcher empties entirely so a consumer never
// observes a zero-length, not-yet-exhausted window.
type filteredVectorOffset struct {
	inner   VectorOffset
	matcher VectorValueMatcher
	rows    []uint32
}

func newFilteredVectorOffset(inner VectorOffset, makeMatcher func(VectorOffset) (VectorValueMatcher, error)) (*filteredVectorOffset, error) {
	matcher, err := makeMatcher(inner)
	if err != nil {
		return nil, err
	}
	o := &filteredVectorOffset{inner: inner, matcher: matcher}
	o.fill()
	for len(o.rows) == 0 && !o.inner.IsDone() {
		o.inner.Advance()
		o.fill()
	}
	return o, nil
}

func (o *filteredVectorOffset) fill() {
	if o.inner.IsDone() {
		o.rows = nil
		return
	}
	rows := o.inner.Rows()
	mask := o.matcher.MatchVector(len(rows))
	filtered := make([]uint32, 0, len(rows))
	for i, r := range rows {
		if mask.Contains(uint32(i)) {
			filtered = append(filtered, r)
		}
	}
	o.rows = filtered
}

func (o *filteredVectorOffset) Rows() []uint32     { return o.rows }
func (o *filteredVectorOffset) MaxVectorSize() int  { return o.inner.MaxVectorSize() }
func (o *filteredVectorOffset) IsDone() bool        { return o.inner.IsDone() && len(o.rows) == 0 }

func (o *filteredVectorOffset) Advance() {
	o.inner.Advance()
	o.fill()
	for len(o.rows) == 0 && !o.inner.IsDone() {
		o.inner.Advance()
		o.fill()
	}
}

func (o *filteredVectorOffset) Reset() {
	o.inner.Reset()
	o.fill()
	for len(o.rows) == 0 && !o.inner.IsDone() {
		o.inner.Advance()
		o.fill()
	}
}

// --------------------------- Selector factory ----------------------------

// vectorSelectorFactory is the ColumnSelectorFactory bound to a
// VectorOffset, the vector-cursor counterpart of boundSelectorFactory.
type vectorSelectorFactory struct {
	cache    *columnCache
	virtuals *VirtualColumns
	vo       VectorOffset
}

func newVectorSelectorFactory(cache *columnCache, virtuals *VirtualColumns, vo VectorOffset) *vectorSelectorFactory {
	return &vectorSelectorFactory{cache: cache, virtuals: virtuals, vo: vo}
}

func (f *vectorSelectorFactory) CapabilitiesOf(name string) (ColumnCapabilities, bool) {
	if vc, ok := f.virtuals.Get(name); ok {
		return vc.Capabilities(f)
	}
	holder := f.cache.segment.Column(name)
	if holder == nil {
		return ColumnCapabilities{}, false
	}
	return holder.Capabilities(), true
}

func (f *vectorSelectorFactory) MakeScalarSelector(name string) (ScalarSelector, error) {
	invariant(false, "MakeScalarSelector called against a vector-bound selector factory")
	return nil, nil
}

func (f *vectorSelectorFactory) MakeVectorSelector(name string) (VectorSelector, error) {
	if vc, ok := f.virtuals.Get(name); ok {
		return vc.MakeVectorSelector(f)
	}
	col, _, err := f.cache.get(name)
	if err != nil {
		return nil, err
	}
	if col == nil {
		return nullVectorSelector{size: len(f.vo.Rows())}, nil
	}
	return &physicalVectorSelector{column: col, vo: f.vo}, nil
}

// physicalVectorSelector reads the current window row-by-row from
// whichever typed interface the underlying column implements.
// filter_numeric.go's vector matchers read physical columns through it as
// well; no column-specific batch path is used.
type physicalVectorSelector struct {
	column BaseColumn
	vo     VectorOffset
}

func (s *physicalVectorSelector) FloatVector() ([]float64, int) {
	rows := s.vo.Rows()
	out := make([]float64, len(rows))
	if c, ok := s.column.(FloatColumn); ok {
		for i, r := range rows {
			out[i], _ = c.FloatAt(r)
		}
	}
	return out, len(rows)
}

func (s *physicalVectorSelector) DoubleVector() ([]float64, int) { return s.FloatVector() }

func (s *physicalVectorSelector) LongVector() ([]int64, int) {
	rows := s.vo.Rows()
	out := make([]int64, len(rows))
	if c, ok := s.column.(LongColumn); ok {
		for i, r := range rows {
			out[i], _ = c.LongAt(r)
		}
	}
	return out, len(rows)
}

func (s *physicalVectorSelector) ObjectVector() ([]any, int) {
	rows := s.vo.Rows()
	out := make([]any, len(rows))
	switch c := s.column.(type) {
	case StringColumn:
		for i, r := range rows {
			if v, ok := c.StringAt(r); ok {
				out[i] = v
			}
		}
	case LongColumn:
		for i, r := range rows {
			if v, ok := c.LongAt(r); ok {
				out[i] = v
			}
		}
	case FloatColumn:
		for i, r := range rows {
			if v, ok := c.FloatAt(r); ok {
				out[i] = v
			}
		}
	}
	return out, len(rows)
}

func (s *physicalVectorSelector) NullVector() []bool {
	rows := s.vo.Rows()
	nulls := make([]bool, len(rows))
	for i, r := range rows {
		switch c := s.column.(type) {
		case FloatColumn:
			_, ok := c.FloatAt(r)
			nulls[i] = !ok
		case LongColumn:
			_, ok := c.LongAt(r)
			nulls[i] = !ok
		case StringColumn:
			_, ok := c.StringAt(r)
			nulls[i] = !ok
		default:
			nulls[i] = true
		}
	}
	return nulls
}

// --------------------------- Cursor ----------------------------

// VectorCursor iterates fixed-width batches of rows sharing the same
// filter/time machinery as Cursor (spec.md §4.7).
type VectorCursor struct {
	ctx     context.Context
	vo      VectorOffset
	factory ColumnSelectorFactory
}

func (c *VectorCursor) ColumnSelectorFactory() ColumnSelectorFactory { return c.factory }
func (c *VectorCursor) CurrentVectorSize() int                       { return len(c.vo.Rows()) }
func (c *VectorCursor) MaxVectorSize() int                           { return c.vo.MaxVectorSize() }
func (c *VectorCursor) IsDone() bool                                 { return c.vo.IsDone() }

// Advance moves to the next vector window, observing cooperative
// cancellation once per batch.
func (c *VectorCursor) Advance() error {
	if c.IsDone() {
		return nil
	}
	c.vo.Advance()
	if c.ctx != nil {
		select {
		case <-c.ctx.Done():
			return ErrInterrupted
		default:
		}
	}
	return nil
}

func (c *VectorCursor) Reset() {
	c.vo.Reset()
}

// canVectorize implements the gating of spec.md §4.7. VectorizeOff always
// forces the scalar path; VectorizeForce and VectorizeAuto compute the
// same boolean — the modes differ only in what an external query runner
// does with a false result (fail loudly vs fall back silently), not in
// this core's own behavior, since AsVectorCursor already fails with
// ExecutionError::NotVectorizable whenever CanVectorize is false
// (spec.md §4.8).
func canVectorize(seg Segment, spec CursorBuildSpec) bool {
	if spec.QueryContext.VectorizeVirtualColumns == VectorizeOff {
		return false
	}

	descending, err := effectiveOrdering(spec)
	if err != nil || descending {
		return false
	}

	inspector := segmentInspector{segment: seg, virtuals: spec.VirtualColumns}
	for _, name := range spec.VirtualColumns.Names() {
		vc, _ := spec.VirtualColumns.Get(name)
		if !vc.CanVectorize(inspector) {
			return false
		}
	}

	for _, agg := range spec.Aggregators {
		if !agg.CanVectorize() {
			return false
		}
	}

	if spec.Filter != nil && !spec.Filter.CanVectorizeMatcher(rowSignatureOf(seg)) {
		return false
	}
	return true
}

// rowSignatureOf derives a RowSignature from a segment's available
// columns, used only to answer a filter's CanVectorizeMatcher gate.
func rowSignatureOf(seg Segment) RowSignature {
	names := append(append([]string{}, seg.AvailableDimensions()...), seg.AvailableMetrics()...)
	sig := make(RowSignature, 0, len(names))
	for _, name := range names {
		holder := seg.Column(name)
		if holder == nil {
			continue
		}
		t := holder.Capabilities().Type
		sig = append(sig, RowColumn{Name: name, Type: &t})
	}
	return sig
}

// buildVectorCursor implements spec.md §4.7's construction steps.
func buildVectorCursor(ctx context.Context, seg Segment, spec CursorBuildSpec, cache *columnCache) (*VectorCursor, error) {
	n := seg.NumRows()
	vectorSize := spec.QueryContext.VectorSize
	if vectorSize <= 0 {
		vectorSize = defaultQueryContext().VectorSize
	}

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

	// Step 1: binary-search the interval's row bounds.
	start := timeSearch(timestampAt, spec.Interval.Start, 0, n)
	end := timeSearch(timestampAt, spec.Interval.End, 0, n)

	var bundle FilterBundle
	var buildStart time.Time
	if spec.Filter != nil {
		buildStart = time.Now()
		bundle = spec.Filter.MakeFilterBundle(segmentIndexSelector{segment: seg}, seg.BitmapFactory(), n, 0, false)
		if bundle.Index == nil && bundle.MatcherBundle == nil {
			return nil, errUnmatchableFilter()
		}
		if bundle.MatcherBundle != nil && bundle.MatcherBundle.VectorMatcher == nil {
			return nil, errNotVectorizable("filter matcher has no vector form")
		}
	}
	buildDuration := time.Since(buildStart)

	if spec.QueryMetrics != nil {
		spec.QueryMetrics.Vectorized(true)
		spec.QueryMetrics.ReportSegmentRows(n)
		if bundle.Index != nil {
			spec.QueryMetrics.ReportBitmapConstructionTime(buildDuration)
			spec.QueryMetrics.ReportPreFilteredRows(bundle.Index.Bitmap.Count())
		}
	}

	// Step 2: build the base vector offset.
	var base VectorOffset
	if bundle.Index != nil {
		base = newBitmapVectorOffset(vectorSize, bundle.Index.Bitmap, start, end)
	} else {
		base = newNoFilterVectorOffset(vectorSize, start, end)
	}

	// Step 3: wrap with a vector matcher, if one is required.
	final := base
	if bundle.MatcherBundle != nil && bundle.MatcherBundle.VectorMatcher != nil {
		filtered, err := newFilteredVectorOffset(base, func(vo VectorOffset) (VectorValueMatcher, error) {
			factory := newVectorSelectorFactory(cache, spec.VirtualColumns, vo)
			return bundle.MatcherBundle.VectorMatcher(factory)
		})
		if err != nil {
			return nil, err
		}
		final = filtered
	}

	// Step 4: build the final selector factory bound to the (possibly
	// filtered) offset.
	factory := newVectorSelectorFactory(cache, spec.VirtualColumns, final)
	return &VectorCursor{ctx: ctx, vo: final, factory: factory}, nil
}

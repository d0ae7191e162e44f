package segment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMetricSegment builds a segment with __time 0..n-1 hours and a float
// metric column equal to the row index, plus a dictionary-encoded
// "category" dimension alternating "even"/"odd" so bitmap-index and
// matcher paths both have something to chew on.
func buildMetricSegment(t *testing.T, n int) Segment {
	t.Helper()
	times := make([]int64, n)
	metrics := make([]float64, n)
	cats := make([]string, n)
	for i := 0; i < n; i++ {
		times[i] = int64(i) * millisPerHour
		metrics[i] = float64(i)
		if i%2 == 0 {
			cats[i] = "even"
		} else {
			cats[i] = "odd"
		}
	}
	return NewMemSegmentBuilder().
		AddTime(times).
		AddFloatMetric("metric", metrics).
		AddDictDimension("category", cats).
		Build()
}

func drainMetric(t *testing.T, cursor *Cursor) []float64 {
	t.Helper()
	sel, err := cursor.ColumnSelectorFactory().MakeScalarSelector("metric")
	require.NoError(t, err)

	var out []float64
	for !cursor.IsDone() {
		out = append(out, sel.FloatValue())
		require.NoError(t, cursor.Advance())
	}
	return out
}

// TestInvariantFilterCorrectness: every emitted row satisfies the filter,
// and no satisfying row is skipped.
func TestInvariantFilterCorrectness(t *testing.T) {
	seg := buildMetricSegment(t, 10)

	spec := NewCursorBuildSpec(WithFilter(Between("metric", 3, 6)))
	holder, err := MakeCursorHolder(context.Background(), seg, spec)
	require.NoError(t, err)
	defer holder.Close()

	cursor, err := holder.AsCursor()
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 4, 5, 6}, drainMetric(t, cursor))
}

// TestInvariantMonotoneOrdering checks __time is monotone in the scan
// direction, both ascending and descending.
func TestInvariantMonotoneOrdering(t *testing.T) {
	seg := buildMetricSegment(t, 20)

	for _, descending := range []bool{false, true} {
		spec := NewCursorBuildSpec(WithOrdering(OrderBy{Column: TimeColumn, Descending: descending}))
		holder, err := MakeCursorHolder(context.Background(), seg, spec)
		require.NoError(t, err)

		cursor, err := holder.AsCursor()
		require.NoError(t, err)

		sel, err := cursor.ColumnSelectorFactory().MakeScalarSelector(TimeColumn)
		require.NoError(t, err)

		var prev int64
		first := true
		for !cursor.IsDone() {
			cur := sel.LongValue()
			if !first {
				if descending {
					assert.LessOrEqual(t, cur, prev)
				} else {
					assert.GreaterOrEqual(t, cur, prev)
				}
			}
			prev, first = cur, false
			require.NoError(t, cursor.Advance())
		}
		holder.Close()
	}
}

// fakeMetrics counts calls without altering the scan's observable output,
// exercising invariant 3: metrics are a side channel only.
type fakeMetrics struct {
	vectorizedCalls, rowsReports, bitmapTimeReports, preFilteredReports, bundleInfoCalls int
}

func (m *fakeMetrics) Vectorized(bool)                              { m.vectorizedCalls++ }
func (m *fakeMetrics) ReportSegmentRows(uint32)                     { m.rowsReports++ }
func (m *fakeMetrics) ReportBitmapConstructionTime(time.Duration)    { m.bitmapTimeReports++ }
func (m *fakeMetrics) ReportPreFilteredRows(uint32)                  { m.preFilteredReports++ }
func (m *fakeMetrics) FilterBundleInfo(string)                       { m.bundleInfoCalls++ }

// TestInvariantMetricsAreSideEffectOnly checks that attaching QueryMetrics
// changes nothing about the emitted row sequence.
func TestInvariantMetricsAreSideEffectOnly(t *testing.T) {
	seg := buildMetricSegment(t, 10)

	plain := NewCursorBuildSpec(WithFilter(GreaterThan("metric", 4)))
	holder, err := MakeCursorHolder(context.Background(), seg, plain)
	require.NoError(t, err)
	cursor, err := holder.AsCursor()
	require.NoError(t, err)
	want := drainMetric(t, cursor)
	holder.Close()

	metrics := &fakeMetrics{}
	withMetrics := NewCursorBuildSpec(WithFilter(GreaterThan("metric", 4)), WithQueryMetrics(metrics))
	holder2, err := MakeCursorHolder(context.Background(), seg, withMetrics)
	require.NoError(t, err)
	cursor2, err := holder2.AsCursor()
	require.NoError(t, err)
	got := drainMetric(t, cursor2)
	holder2.Close()

	assert.Equal(t, want, got)
	assert.Greater(t, metrics.vectorizedCalls, 0)
	assert.Greater(t, metrics.rowsReports, 0)
}

// TestInvariantResetReplaysSameSequence: draining a cursor, resetting it,
// then draining again yields the identical row sequence.
func TestInvariantResetReplaysSameSequence(t *testing.T) {
	seg := buildMetricSegment(t, 8)

	spec := NewCursorBuildSpec(WithFilter(GreaterThanOrEqual("metric", 2)))
	holder, err := MakeCursorHolder(context.Background(), seg, spec)
	require.NoError(t, err)
	defer holder.Close()

	cursor, err := holder.AsCursor()
	require.NoError(t, err)

	first := drainMetric(t, cursor)
	cursor.Reset()
	second := drainMetric(t, cursor)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

// TestInvariantCloseAndAdvanceAreIdempotent: a second Close is a no-op, and
// Advance past IsDone never errors or moves further.
func TestInvariantCloseAndAdvanceAreIdempotent(t *testing.T) {
	seg := buildMetricSegment(t, 3)

	spec := NewCursorBuildSpec()
	holder, err := MakeCursorHolder(context.Background(), seg, spec)
	require.NoError(t, err)

	cursor, err := holder.AsCursor()
	require.NoError(t, err)

	for !cursor.IsDone() {
		require.NoError(t, cursor.Advance())
	}
	require.NoError(t, cursor.Advance())
	require.NoError(t, cursor.Advance())
	assert.True(t, cursor.IsDone())

	require.NoError(t, holder.Close())
	require.NoError(t, holder.Close())
}

// TestInvariantVectorScalarEquivalence: when vectorization is available, a
// vector cursor's flattened output matches the scalar cursor's.
func TestInvariantVectorScalarEquivalence(t *testing.T) {
	seg := buildMetricSegment(t, 50)

	spec := NewCursorBuildSpec(WithFilter(GreaterThan("metric", 10)))
	holder, err := MakeCursorHolder(context.Background(), seg, spec)
	require.NoError(t, err)
	defer holder.Close()

	require.True(t, holder.CanVectorize())

	scalar, err := holder.AsCursor()
	require.NoError(t, err)
	want := drainMetric(t, scalar)

	vector, err := holder.AsVectorCursor()
	require.NoError(t, err)

	vsel, err := vector.ColumnSelectorFactory().MakeVectorSelector("metric")
	require.NoError(t, err)

	var got []float64
	for !vector.IsDone() {
		vals, n := vsel.FloatVector()
		got = append(got, vals[:n]...)
		require.NoError(t, vector.Advance())
	}

	assert.Equal(t, want, got)
}

// TestInvariantEmptyIntervalYieldsNoRows: an interval disjoint from the
// segment's data produces an immediately-done cursor.
func TestInvariantEmptyIntervalYieldsNoRows(t *testing.T) {
	seg := buildMetricSegment(t, 5)

	spec := NewCursorBuildSpec(WithInterval(Interval{Start: 1000 * millisPerHour, End: 2000 * millisPerHour}))
	holder, err := MakeCursorHolder(context.Background(), seg, spec)
	require.NoError(t, err)
	defer holder.Close()

	cursor, err := holder.AsCursor()
	require.NoError(t, err)
	assert.True(t, cursor.IsDone())
	assert.Empty(t, drainMetric(t, cursor))
}

// indexOnlyEqualsFilter offers a bitmap index and nothing else, forcing
// selectBase's pure-index path.
type indexOnlyEqualsFilter struct{ column, value string }

func (f indexOnlyEqualsFilter) MakeFilterBundle(selector IndexSelector, resultFactory BitmapResultFactory, totalRows, appliedRowsSoFar uint32, cnfAlready bool) FilterBundle {
	idx := selector.BitmapIndex(f.column)
	if idx == nil {
		return FilterBundle{}
	}
	bm := idx.ForValue(f.value)
	if bm == nil {
		return FilterBundle{}
	}
	return FilterBundle{Index: &BitmapHolder{Bitmap: bm}}
}

func (f indexOnlyEqualsFilter) MakeMatcher(factory ColumnSelectorFactory) (ValueMatcher, error) {
	panic("index-only filter has no matcher")
}
func (f indexOnlyEqualsFilter) MakeVectorMatcher(factory ColumnSelectorFactory) (VectorValueMatcher, error) {
	return nil, nil
}
func (f indexOnlyEqualsFilter) CanVectorizeMatcher(signature RowSignature) bool { return false }

// matcherOnlyEqualsFilter offers only a scalar matcher, forcing
// selectBase's pure-matcher path, evaluating the identical predicate.
type matcherOnlyEqualsFilter struct{ column, value string }

func (f matcherOnlyEqualsFilter) MakeFilterBundle(selector IndexSelector, resultFactory BitmapResultFactory, totalRows, appliedRowsSoFar uint32, cnfAlready bool) FilterBundle {
	return FilterBundle{MatcherBundle: &MatcherBundle{
		ScalarMatcher: func(factory ColumnSelectorFactory) (ValueMatcher, error) { return f.makeMatcher(factory) },
	}}
}

func (f matcherOnlyEqualsFilter) makeMatcher(factory ColumnSelectorFactory) (ValueMatcher, error) {
	sel, err := factory.MakeScalarSelector(f.column)
	if err != nil {
		return nil, err
	}
	return matcherOnlyEqualsMatcher{sel: sel, value: f.value}, nil
}

func (f matcherOnlyEqualsFilter) MakeMatcher(factory ColumnSelectorFactory) (ValueMatcher, error) {
	return f.makeMatcher(factory)
}
func (f matcherOnlyEqualsFilter) MakeVectorMatcher(factory ColumnSelectorFactory) (VectorValueMatcher, error) {
	return nil, nil
}
func (f matcherOnlyEqualsFilter) CanVectorizeMatcher(signature RowSignature) bool { return false }

type matcherOnlyEqualsMatcher struct {
	sel   ScalarSelector
	value string
}

func (m matcherOnlyEqualsMatcher) Matches() bool {
	s, ok := m.sel.ObjectValue().(string)
	return ok && s == m.value
}

// TestInvariantBitmapMatcherEquivalence: a bitmap-index-only plan and a
// matcher-only plan over the same predicate produce identical row sets.
func TestInvariantBitmapMatcherEquivalence(t *testing.T) {
	seg := buildMetricSegment(t, 30)

	indexSpec := NewCursorBuildSpec(WithFilter(indexOnlyEqualsFilter{column: "category", value: "odd"}))
	holder1, err := MakeCursorHolder(context.Background(), seg, indexSpec)
	require.NoError(t, err)
	defer holder1.Close()
	cursor1, err := holder1.AsCursor()
	require.NoError(t, err)
	viaIndex := drainMetric(t, cursor1)

	matcherSpec := NewCursorBuildSpec(WithFilter(matcherOnlyEqualsFilter{column: "category", value: "odd"}))
	holder2, err := MakeCursorHolder(context.Background(), seg, matcherSpec)
	require.NoError(t, err)
	defer holder2.Close()
	cursor2, err := holder2.AsCursor()
	require.NoError(t, err)
	viaMatcher := drainMetric(t, cursor2)

	assert.Equal(t, viaMatcher, viaIndex)
	assert.NotEmpty(t, viaIndex)
}

// TestInvariantNumericFilterTypeMismatch: a numeric comparison filter
// applied to a non-numeric column raises DataError::TypeMismatch instead of
// silently comparing every row against the selector's zero value.
func TestInvariantNumericFilterTypeMismatch(t *testing.T) {
	seg := buildMetricSegment(t, 10)

	spec := NewCursorBuildSpec(WithFilter(GreaterThan("category", 0)))
	holder, err := MakeCursorHolder(context.Background(), seg, spec)
	require.NoError(t, err)
	defer holder.Close()

	_, err = holder.AsCursor()
	require.Error(t, err)

	var dataErr *DataError
	require.ErrorAs(t, err, &dataErr)
}

// vectorizableIndexFilter is indexOnlyEqualsFilter's bundle with
// CanVectorizeMatcher reporting true: an index-only bundle needs no vector
// matcher at all, so a filter can vectorize on the strength of its bitmap
// alone.
type vectorizableIndexFilter struct{ indexOnlyEqualsFilter }

func (f vectorizableIndexFilter) CanVectorizeMatcher(signature RowSignature) bool { return true }

// TestInvariantVectorCursorReportsMetrics: AsVectorCursor reports through
// QueryMetrics the same way the scalar path does (spec.md §6), including
// bitmap-construction stats when the plan resolves to an index.
func TestInvariantVectorCursorReportsMetrics(t *testing.T) {
	seg := buildMetricSegment(t, 30)

	metrics := &fakeMetrics{}
	filter := vectorizableIndexFilter{indexOnlyEqualsFilter{column: "category", value: "odd"}}
	spec := NewCursorBuildSpec(WithFilter(filter), WithQueryMetrics(metrics))
	holder, err := MakeCursorHolder(context.Background(), seg, spec)
	require.NoError(t, err)
	defer holder.Close()

	require.True(t, holder.CanVectorize())

	vector, err := holder.AsVectorCursor()
	require.NoError(t, err)
	for !vector.IsDone() {
		require.NoError(t, vector.Advance())
	}

	assert.Greater(t, metrics.vectorizedCalls, 0)
	assert.Greater(t, metrics.rowsReports, 0)
	assert.Greater(t, metrics.bitmapTimeReports, 0)
	assert.Greater(t, metrics.preFilteredReports, 0)
}

// TestInvariantRowAdapterCloseCounts: ascending materializes the sequence
// twice (probe + drain), descending once (spec.md §4.9 invariant 9).
func TestInvariantRowAdapterCloseCounts(t *testing.T) {
	records := []longRecord{{0}, {1}, {2}, {3}}

	ascSource := &countingSliceSource{sliceSource: sliceSource{records: records}}
	ascAdapter := NewRowBasedAdapter(ascSource, longTimestampFn, longColumnFn, longSignature())
	cl := newCloser()
	cursor, err := ascAdapter.MakeCursor(context.Background(), CursorBuildSpec{Interval: Eternity}, false, cl)
	require.NoError(t, err)
	for !cursor.IsDone() {
		require.NoError(t, cursor.Advance())
	}
	require.NoError(t, cl.closeAll())
	assert.Equal(t, 2, ascSource.opened)

	descSource := &countingSliceSource{sliceSource: sliceSource{records: records}}
	descAdapter := NewRowBasedAdapter(descSource, longTimestampFn, longColumnFn, longSignature())
	cl2 := newCloser()
	cursor2, err := descAdapter.MakeCursor(context.Background(), CursorBuildSpec{Interval: Eternity}, true, cl2)
	require.NoError(t, err)
	for !cursor2.IsDone() {
		require.NoError(t, cursor2.Advance())
	}
	require.NoError(t, cl2.closeAll())
	assert.Equal(t, 1, descSource.opened)
}

// countingSliceSource counts how many times Sequence was called, i.e. how
// many times the adapter materialized the record source.
type countingSliceSource struct {
	sliceSource
	opened int
}

func (s *countingSliceSource) Sequence() (RecordIterator, error) {
	s.opened++
	return s.sliceSource.Sequence()
}

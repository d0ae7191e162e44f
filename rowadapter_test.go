package segment

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// longRecord is one row of the literal end-to-end scenarios: a single raw
// integer that drives both __time (in hours) and the LONG column.
type longRecord struct {
	long int64
}

type sliceSource struct {
	records []longRecord
}

type sliceIterator struct {
	records []longRecord
	pos     int
	closed  int
}

func (s *sliceSource) Sequence() (RecordIterator, error) {
	return &sliceIterator{records: s.records}, nil
}

func (it *sliceIterator) Next() (any, bool) {
	if it.pos >= len(it.records) {
		return nil, false
	}
	rec := it.records[it.pos]
	it.pos++
	return rec, true
}

func (it *sliceIterator) Close() error {
	it.closed++
	return nil
}

func longTimestampFn(rec any) int64 {
	return rec.(longRecord).long * millisPerHour
}

func longColumnFn(column string) func(any) any {
	if column != "LONG" {
		return func(any) any { return nil }
	}
	return func(rec any) any { return rec.(longRecord).long }
}

func stringSignature() RowSignature {
	t := TypeString
	return RowSignature{{Name: "LONG", Type: &t}}
}

func longSignature() RowSignature {
	t := TypeLong
	return RowSignature{{Name: "LONG", Type: &t}}
}

// collectLong drains a RowCursor's LONG column as the test scenarios expect
// it: ObjectValue()'s string form.
func collectLong(t *testing.T, cursor *RowCursor) []string {
	t.Helper()
	sel, err := cursor.ColumnSelectorFactory().MakeScalarSelector("LONG")
	require.NoError(t, err)

	var out []string
	for !cursor.IsDone() {
		out = append(out, sel.ObjectValue().(string))
		require.NoError(t, cursor.Advance())
	}
	return out
}

// TestRowAdapterScenarioS1 reads a string-declared LONG column with no
// filter and no interval restriction.
func TestRowAdapterScenarioS1(t *testing.T) {
	records := []longRecord{{0}, {1}, {2}}
	adapter := NewRowBasedAdapter(&sliceSource{records: records}, longTimestampFn, longColumnFn, stringSignature())

	cl := newCloser()
	cursor, err := adapter.MakeCursor(context.Background(), CursorBuildSpec{Interval: Eternity}, false, cl)
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1", "2"}, collectLong(t, cursor))
}

// TestRowAdapterScenarioS2 filters LONG == "1.0", exercising the lenient
// numeric equality valueEqualsFilter applies to the conversion table's
// decimal-text output.
func TestRowAdapterScenarioS2(t *testing.T) {
	records := []longRecord{{0}, {1}, {2}}
	adapter := NewRowBasedAdapter(&sliceSource{records: records}, longTimestampFn, longColumnFn, stringSignature())

	spec := CursorBuildSpec{Interval: Eternity, Filter: ValueEquals("LONG", "1.0")}
	cl := newCloser()
	cursor, err := adapter.MakeCursor(context.Background(), spec, false, cl)
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, collectLong(t, cursor))
}

// TestRowAdapterScenarioS3 filters on a column absent from the declared
// signature: it resolves to a null selector everywhere, and a filter
// comparing it to null must never reject a row.
func TestRowAdapterScenarioS3(t *testing.T) {
	records := []longRecord{{0}, {1}}
	adapter := NewRowBasedAdapter(&sliceSource{records: records}, longTimestampFn, longColumnFn, stringSignature())

	spec := CursorBuildSpec{Interval: Eternity, Filter: isNullFilter{column: "nonexistent"}}
	cl := newCloser()
	cursor, err := adapter.MakeCursor(context.Background(), spec, false, cl)
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1"}, collectLong(t, cursor))
}

// isNullFilter matches rows where column reads as null - used only to
// exercise S3, where the column in question doesn't exist in the schema at
// all and so must resolve as null unconditionally (spec.md §4.3).
type isNullFilter struct{ column string }

func (f isNullFilter) MakeFilterBundle(selector IndexSelector, resultFactory BitmapResultFactory, totalRows, appliedRowsSoFar uint32, cnfAlready bool) FilterBundle {
	return FilterBundle{MatcherBundle: &MatcherBundle{
		ScalarMatcher: func(factory ColumnSelectorFactory) (ValueMatcher, error) { return f.makeMatcher(factory) },
	}}
}

func (f isNullFilter) makeMatcher(factory ColumnSelectorFactory) (ValueMatcher, error) {
	sel, err := factory.MakeScalarSelector(f.column)
	if err != nil {
		return nil, err
	}
	return isNullMatcher{sel}, nil
}

func (f isNullFilter) MakeMatcher(factory ColumnSelectorFactory) (ValueMatcher, error) {
	return f.makeMatcher(factory)
}
func (f isNullFilter) MakeVectorMatcher(factory ColumnSelectorFactory) (VectorValueMatcher, error) {
	return nil, nil
}
func (f isNullFilter) CanVectorizeMatcher(signature RowSignature) bool { return false }

type isNullMatcher struct{ sel ScalarSelector }

func (m isNullMatcher) Matches() bool { return m.sel.IsNull() }

// TestRowAdapterScenarioS4 filters on a virtual column vc = LONG + 1
// declared long, checking that the row adapter's selector factory resolves
// the virtual column name "vc" and lets it read the physical LONG column.
func TestRowAdapterScenarioS4(t *testing.T) {
	records := []longRecord{{0}, {1}}
	adapter := NewRowBasedAdapter(&sliceSource{records: records}, longTimestampFn, longColumnFn, longSignature())

	spec := CursorBuildSpec{
		Interval:       Eternity,
		Filter:         ValueEquals("vc", "2"),
		VirtualColumns: NewVirtualColumns(),
	}
	spec.VirtualColumns.Add(longPlusOneVirtualColumn{})

	cl := newCloser()
	cursor, err := adapter.MakeCursor(context.Background(), spec, false, cl)
	require.NoError(t, err)

	sel, err := cursor.ColumnSelectorFactory().MakeScalarSelector("LONG")
	require.NoError(t, err)

	var out []string
	for !cursor.IsDone() {
		out = append(out, strconv.FormatInt(sel.LongValue(), 10))
		require.NoError(t, cursor.Advance())
	}
	assert.Equal(t, []string{"1"}, out)
}

type longPlusOneVirtualColumn struct{}

func (longPlusOneVirtualColumn) Name() string { return "vc" }

func (longPlusOneVirtualColumn) Capabilities(inspector ColumnInspector) (ColumnCapabilities, bool) {
	return ColumnCapabilities{Type: TypeLong}, true
}

func (longPlusOneVirtualColumn) MakeScalarSelector(factory ColumnSelectorFactory) (ScalarSelector, error) {
	sel, err := factory.MakeScalarSelector("LONG")
	if err != nil {
		return nil, err
	}
	return longPlusOneSelector{sel}, nil
}

func (longPlusOneVirtualColumn) MakeVectorSelector(factory ColumnSelectorFactory) (VectorSelector, error) {
	return nil, ErrUnsupportedOperation
}

func (longPlusOneVirtualColumn) CanVectorize(inspector ColumnInspector) bool { return false }
func (longPlusOneVirtualColumn) Dependencies() []string                     { return []string{"LONG"} }

type longPlusOneSelector struct{ inner ScalarSelector }

func (s longPlusOneSelector) IsNull() bool         { return s.inner.IsNull() }
func (s longPlusOneSelector) FloatValue() float64  { return float64(s.LongValue()) }
func (s longPlusOneSelector) DoubleValue() float64 { return s.FloatValue() }
func (s longPlusOneSelector) LongValue() int64     { return s.inner.LongValue() + 1 }
func (s longPlusOneSelector) ObjectValue() any     { return s.LongValue() }

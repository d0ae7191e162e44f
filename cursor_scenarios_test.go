package segment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildHourSegment builds a segment where row i's __time is hours[i] hours
// (as milliseconds) and its LONG dimension is the decimal text of hours[i]
// - the convention spec.md's literal scenarios share: a single per-row
// integer drives both the timestamp and the value read back.
func buildHourSegment(t *testing.T, hours []int64) Segment {
	t.Helper()
	times := make([]int64, len(hours))
	longs := make([]string, len(hours))
	for i, h := range hours {
		times[i] = h * millisPerHour
		longs[i] = formatHour(h)
	}
	return NewMemSegmentBuilder().
		AddTime(times).
		AddStringDimension("LONG", longs).
		Build()
}

func formatHour(h int64) string {
	switch h {
	case 0:
		return "0"
	case 1:
		return "1"
	case 2:
		return "2"
	case 3:
		return "3"
	case 4:
		return "4"
	default:
		return ""
	}
}

func collectCursorLong(t *testing.T, cursor *Cursor) []string {
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

// TestScenarioS5 scans descending over [01:00, 03:00) with HOUR granularity,
// pairing each row with the bucket it falls in.
func TestScenarioS5(t *testing.T) {
	seg := buildHourSegment(t, []int64{0, 1, 1, 2, 3})

	spec := NewCursorBuildSpec(
		WithInterval(Interval{Start: 1 * millisPerHour, End: 3 * millisPerHour}),
		WithOrdering(OrderBy{Column: TimeColumn, Descending: true}),
	)
	holder, err := MakeCursorHolder(context.Background(), seg, spec)
	require.NoError(t, err)
	defer holder.Close()

	cursor, err := holder.AsCursor()
	require.NoError(t, err)

	gr := NewGranularizer(cursor, GranularityHour, spec.Interval, true)

	type pair struct {
		bucket int64
		long   string
	}
	var got []pair
	sel, err := cursor.ColumnSelectorFactory().MakeScalarSelector("LONG")
	require.NoError(t, err)

	for !gr.IsDone() {
		got = append(got, pair{bucket: gr.BucketStart(), long: sel.ObjectValue().(string)})
		require.NoError(t, gr.AdvanceWithinBucket(false))
		if gr.IsDone() {
			break
		}
		if !gr.RowInCurrentBucket() {
			gr.AdvanceToBucket(GranularityHour.Next(gr.CurrentBucket(), true))
		}
	}

	assert.Equal(t, []pair{
		{bucket: 2 * millisPerHour, long: "2"},
		{bucket: 1 * millisPerHour, long: "1"},
		{bucket: 1 * millisPerHour, long: "1"},
	}, got)
}

// TestScenarioS6 scans the whole segment descending with no interval
// restriction.
func TestScenarioS6(t *testing.T) {
	seg := buildHourSegment(t, []int64{0, 1, 2})

	spec := NewCursorBuildSpec(WithOrdering(OrderBy{Column: TimeColumn, Descending: true}))
	holder, err := MakeCursorHolder(context.Background(), seg, spec)
	require.NoError(t, err)
	defer holder.Close()

	cursor, err := holder.AsCursor()
	require.NoError(t, err)

	assert.Equal(t, []string{"2", "1", "0"}, collectCursorLong(t, cursor))
}

// TestScenarioS7 scans an interval with no overlap with the segment's data.
func TestScenarioS7(t *testing.T) {
	seg := buildHourSegment(t, []int64{0, 1, 2})

	year2000Millis := int64(946684800000)
	spec := NewCursorBuildSpec(
		WithInterval(Interval{Start: year2000Millis, End: year2000Millis + millisPerDay}),
	)
	holder, err := MakeCursorHolder(context.Background(), seg, spec)
	require.NoError(t, err)
	defer holder.Close()

	cursor, err := holder.AsCursor()
	require.NoError(t, err)

	assert.Empty(t, collectCursorLong(t, cursor))
}

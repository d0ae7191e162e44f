package segment

import "strconv"

// valueEqualsFilter matches column == value with lenient numeric coercion:
// when both the column's object value and the comparison value parse as
// numbers, equality is tested numerically so "1" and "1.0" compare equal;
// otherwise it falls back to exact string comparison. Grounded on
// the same matcher-only shape as numericComparison (filter_numeric.go), but
// without an opinion on the column's underlying type - this is the filter
// the row-based adapter's conversion table (spec.md §4.9) is exercised
// through, since a declared-string column there may still hold numeric
// values underneath.
type valueEqualsFilter struct {
	column string
	value  string
}

// ValueEquals builds a Filter matching column's string/object value against
// value, coercing to numeric comparison when possible.
func ValueEquals(column, value string) Filter {
	return &valueEqualsFilter{column: column, value: value}
}

func (f *valueEqualsFilter) MakeFilterBundle(selector IndexSelector, resultFactory BitmapResultFactory, totalRows, appliedRowsSoFar uint32, cnfAlready bool) FilterBundle {
	if idx := selector.BitmapIndex(f.column); idx != nil {
		if bm := idx.ForValue(f.value); bm != nil {
			return FilterBundle{Index: &BitmapHolder{
				Bitmap: bm,
				Debug:  f.column + " == " + f.value + " (bitmap index)",
			}}
		}
	}

	return FilterBundle{MatcherBundle: &MatcherBundle{
		ScalarMatcher: func(factory ColumnSelectorFactory) (ValueMatcher, error) {
			return f.makeMatcher(factory)
		},
	}}
}

func (f *valueEqualsFilter) makeMatcher(factory ColumnSelectorFactory) (ValueMatcher, error) {
	sel, err := factory.MakeScalarSelector(f.column)
	invariant(err == nil, "equals filter: selector construction failed")

	target, err := strconv.ParseFloat(f.value, 64)
	return &valueEqualsMatcher{selector: sel, target: f.value, numericTarget: target, numeric: err == nil}, nil
}

func (f *valueEqualsFilter) MakeMatcher(factory ColumnSelectorFactory) (ValueMatcher, error) {
	return f.makeMatcher(factory)
}

// MakeVectorMatcher is unsupported: equality here works against arbitrary
// object values, which have no vector representation (spec.md §4.7,
// ValueMatcher-only filters disqualify vectorization).
func (f *valueEqualsFilter) MakeVectorMatcher(factory ColumnSelectorFactory) (VectorValueMatcher, error) {
	return nil, nil
}

func (f *valueEqualsFilter) CanVectorizeMatcher(signature RowSignature) bool { return false }

type valueEqualsMatcher struct {
	selector      ScalarSelector
	target        string
	numericTarget float64
	numeric       bool
}

func (m *valueEqualsMatcher) Matches() bool {
	if m.selector.IsNull() {
		return false
	}
	if m.numeric {
		if f, ok := matcherAsFloat(m.selector.ObjectValue()); ok {
			return f == m.numericTarget
		}
	}
	if s, ok := m.selector.ObjectValue().(string); ok {
		return s == m.target
	}
	return false
}

func matcherAsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

package segment

import (
	"fmt"
	"strconv"

	"github.com/kelindar/bitmap"
)

// numericOp is the comparison a numericComparison filter evaluates.
type numericOp uint8

const (
	opEQ numericOp = iota
	opGT
	opGTE
	opLT
	opLTE
	opBetween
)

// numericComparison is a concrete Filter over a numeric (float, double or
// long) column, grounded on the teacher's With*-over-predicate pattern in
// transaction.go/txn.go. Matchers compare values read through the column's
// scalar or vector selector one row at a time, as float64.
type numericComparison struct {
	column   string
	op       numericOp
	lo, hi   float64
}

// Equals builds a Filter matching column == value.
func Equals(column string, value float64) Filter {
	return &numericComparison{column: column, op: opEQ, lo: value}
}

// GreaterThan builds a Filter matching column > value.
func GreaterThan(column string, value float64) Filter {
	return &numericComparison{column: column, op: opGT, lo: value}
}

// GreaterThanOrEqual builds a Filter matching column >= value.
func GreaterThanOrEqual(column string, value float64) Filter {
	return &numericComparison{column: column, op: opGTE, lo: value}
}

// LessThan builds a Filter matching column < value.
func LessThan(column string, value float64) Filter {
	return &numericComparison{column: column, op: opLT, lo: value}
}

// LessThanOrEqual builds a Filter matching column <= value.
func LessThanOrEqual(column string, value float64) Filter {
	return &numericComparison{column: column, op: opLTE, lo: value}
}

// Between builds a Filter matching low <= column <= high.
func Between(column string, low, high float64) Filter {
	return &numericComparison{column: column, op: opBetween, lo: low, hi: high}
}

func (f *numericComparison) predicate(v float64) bool {
	switch f.op {
	case opEQ:
		return v == f.lo
	case opGT:
		return v > f.lo
	case opGTE:
		return v >= f.lo
	case opLT:
		return v < f.lo
	case opLTE:
		return v <= f.lo
	case opBetween:
		return v >= f.lo && v <= f.hi
	default:
		return false
	}
}

// numericIndexKey formats value the way a dictionary-encoded bitmap index
// keys its ForValue lookups — decimal text with no trailing zeros, the
// same convention the row-based adapter's conversion table uses for
// numeric-to-string (spec.md §4.9).
func numericIndexKey(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// MakeFilterBundle offers an index for equality only: a bitmap index
// answers "rows equal to value" directly, but has no representation for
// open or closed ranges, so GreaterThan/Between always fall back to a
// matcher (spec.md §3, "Filter bundle").
func (f *numericComparison) MakeFilterBundle(selector IndexSelector, resultFactory BitmapResultFactory, totalRows, appliedRowsSoFar uint32, cnfAlready bool) FilterBundle {
	if f.op == opEQ {
		if idx := selector.BitmapIndex(f.column); idx != nil {
			if bm := idx.ForValue(numericIndexKey(f.lo)); bm != nil {
				return FilterBundle{Index: &BitmapHolder{
					Bitmap: bm,
					Debug:  fmt.Sprintf("%s == %s (bitmap index)", f.column, numericIndexKey(f.lo)),
				}}
			}
		}
	}

	return FilterBundle{MatcherBundle: &MatcherBundle{
		ScalarMatcher: func(factory ColumnSelectorFactory) (ValueMatcher, error) {
			return f.makeScalarMatcher(factory)
		},
		VectorMatcher: func(factory ColumnSelectorFactory) (VectorValueMatcher, error) {
			return f.makeVectorMatcher(factory)
		},
	}}
}

// checkType reports whether column is declared long (vs float/double), or
// an error if it is declared something else entirely. A column absent from
// the inspector (unknown to the schema) is left alone: it resolves to a
// null selector elsewhere and a numeric matcher never matches a null row,
// so there is nothing to type-check yet (spec.md §4.3, §4.11 DataError::
// TypeMismatch — "when selector required a type incompatible with
// column").
func (f *numericComparison) checkType(inspector ColumnInspector) (isLong bool, err error) {
	caps, ok := inspector.CapabilitiesOf(f.column)
	if !ok {
		return false, nil
	}
	switch caps.Type {
	case TypeLong:
		return true, nil
	case TypeFloat, TypeDouble:
		return false, nil
	default:
		return false, errTypeMismatch(f.column, "numeric (float/double/long)", caps.Type)
	}
}

func (f *numericComparison) makeScalarMatcher(factory ColumnSelectorFactory) (ValueMatcher, error) {
	isLong, err := f.checkType(factory)
	if err != nil {
		return nil, err
	}
	sel, err := factory.MakeScalarSelector(f.column)
	invariant(err == nil, "numeric filter: selector construction failed")
	return &numericScalarMatcher{selector: sel, isLong: isLong, predicate: f.predicate}, nil
}

func (f *numericComparison) MakeMatcher(factory ColumnSelectorFactory) (ValueMatcher, error) {
	return f.makeScalarMatcher(factory)
}

func (f *numericComparison) makeVectorMatcher(factory ColumnSelectorFactory) (VectorValueMatcher, error) {
	isLong, err := f.checkType(factory)
	if err != nil {
		return nil, err
	}
	sel, err := factory.MakeVectorSelector(f.column)
	invariant(err == nil, "numeric filter: vector selector construction failed")
	return &numericVectorMatcher{selector: sel, isLong: isLong, predicate: f.predicate}, nil
}

func (f *numericComparison) MakeVectorMatcher(factory ColumnSelectorFactory) (VectorValueMatcher, error) {
	return f.makeVectorMatcher(factory)
}

// CanVectorizeMatcher reports false only when the row signature commits
// the column to a non-numeric type; an absent or numeric declaration
// leaves vectorization available.
func (f *numericComparison) CanVectorizeMatcher(signature RowSignature) bool {
	t, ok := signature.ColumnType(f.column)
	if !ok {
		return true
	}
	return t == TypeFloat || t == TypeDouble || t == TypeLong
}

// --------------------------- Matchers ----------------------------

type numericScalarMatcher struct {
	selector  ScalarSelector
	isLong    bool
	predicate func(float64) bool
}

func (m *numericScalarMatcher) Matches() bool {
	if m.selector.IsNull() {
		return false
	}
	v := m.selector.FloatValue()
	if m.isLong {
		v = float64(m.selector.LongValue())
	}
	return m.predicate(v)
}

type numericVectorMatcher struct {
	selector  VectorSelector
	isLong    bool
	predicate func(float64) bool
}

func (m *numericVectorMatcher) MatchVector(size int) bitmap.Bitmap {
	nulls := m.selector.NullVector()
	var out bitmap.Bitmap
	if m.isLong {
		vals, n := m.selector.LongVector()
		out = make(bitmap.Bitmap, (n+63)/64+1)
		for i := 0; i < n; i++ {
			if !nulls[i] && m.predicate(float64(vals[i])) {
				out.Set(uint32(i))
			}
		}
		return out
	}

	vals, n := m.selector.FloatVector()
	out = make(bitmap.Bitmap, (n+63)/64+1)
	for i := 0; i < n; i++ {
		if !nulls[i] && m.predicate(vals[i]) {
			out.Set(uint32(i))
		}
	}
	return out
}

package segment

import (
	"time"

	"github.com/kelindar/bitmap"
)

// ValueMatcher evaluates a row-level predicate against the row currently
// pointed to by the offset a selector factory was bound against.
type ValueMatcher interface {
	Matches() bool
}

// VectorValueMatcher evaluates a predicate over a vector window, returning
// a bitmap (relative to the window) of rows that match.
type VectorValueMatcher interface {
	MatchVector(size int) bitmap.Bitmap
}

// MatcherBundle produces scalar and vector matchers bound against a given
// selector factory. A filter that cannot offer a vector matcher leaves
// VectorMatcher nil, which rules the whole scan out of vectorization
// (spec.md §4.7). Construction can fail with DataError::TypeMismatch when
// the filter requires a representation the named column cannot produce.
type MatcherBundle struct {
	ScalarMatcher func(factory ColumnSelectorFactory) (ValueMatcher, error)
	VectorMatcher func(factory ColumnSelectorFactory) (VectorValueMatcher, error)
}

// BitmapHolder pairs a precomputed index bitmap with debug information
// describing how it was produced, mirroring the teacher's index-plus-
// provenance shape.
type BitmapHolder struct {
	Bitmap bitmap.Bitmap
	Debug  string
}

// FilterBundle is what a Filter produces when asked to evaluate itself
// against a segment: an optional precomputed index, an optional matcher
// factory, or both (spec.md §3, "Filter bundle").
type FilterBundle struct {
	Index         *BitmapHolder
	MatcherBundle *MatcherBundle
}

// IndexSelector resolves bitmap indexes for named columns, the contract a
// Filter is handed to build its index half of a FilterBundle.
type IndexSelector interface {
	BitmapIndex(column string) BitmapIndexSupplier
}

// Filter is the opaque predicate contract a CursorBuildSpec carries.
// Everything about how a filter is constructed (parsing, planning) is out
// of scope (spec.md §1); only this evaluation surface is part of the core.
type Filter interface {
	// MakeFilterBundle builds the bundle for this filter against selector,
	// using resultFactory to allocate any bitmap it constructs. totalRows
	// and appliedRowsSoFar are advisory, used only for metrics; cnfAlready
	// reports whether an enclosing CNF has already applied an index for
	// this clause.
	MakeFilterBundle(selector IndexSelector, resultFactory BitmapResultFactory, totalRows, appliedRowsSoFar uint32, cnfAlready bool) FilterBundle
	MakeMatcher(factory ColumnSelectorFactory) (ValueMatcher, error)
	MakeVectorMatcher(factory ColumnSelectorFactory) (VectorValueMatcher, error)
	CanVectorizeMatcher(signature RowSignature) bool
}

// QueryMetrics is the optional instrumentation seam a caller may attach to
// a CursorBuildSpec. The cursor builders check spec.QueryMetrics for nil
// before every call, so callers that don't care about metrics can leave it
// nil.
type QueryMetrics interface {
	Vectorized(vectorized bool)
	ReportSegmentRows(n uint32)
	ReportBitmapConstructionTime(d time.Duration)
	ReportPreFilteredRows(n uint32)
	FilterBundleInfo(info string)
}

// selectBase implements the five-way selection policy of spec.md §4.5: the
// holder's choice of which offset drives iteration, given a bundle built
// from a possibly-nil filter. It also carries the metrics side effects
// (bitmap construction time and pre-filtered row count) when metrics is
// non-nil. filterPresent distinguishes "no filter was supplied" (case 4,
// always legal) from "a filter was supplied but offers neither
// representation" (case 5, an error) — both look identical in bundle.
func selectBase(bundle FilterBundle, filterPresent, ascending bool, n uint32, metrics QueryMetrics, buildDuration time.Duration) (Offset, *MatcherBundle, error) {
	hasIndex := bundle.Index != nil
	hasMatcher := bundle.MatcherBundle != nil

	if metrics != nil && hasIndex {
		metrics.ReportBitmapConstructionTime(buildDuration)
		metrics.ReportPreFilteredRows(bundle.Index.Bitmap.Count())
	}

	switch {
	case hasIndex && !hasMatcher:
		return newBitmapOffset(bundle.Index.Bitmap, !ascending, n), nil, nil
	case !hasIndex && hasMatcher:
		return newRangeOffset(ascending, n), bundle.MatcherBundle, nil
	case hasIndex && hasMatcher:
		return newBitmapOffset(bundle.Index.Bitmap, !ascending, n), bundle.MatcherBundle, nil
	case !filterPresent:
		return newRangeOffset(ascending, n), nil, nil
	default:
		return nil, nil, errUnmatchableFilter()
	}
}

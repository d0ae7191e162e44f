package segment

import (
	"github.com/driftdb/segment/pkg/opt"
	"github.com/imdario/mergo"
)

// VectorizeMode controls how virtual columns are allowed to participate in
// vectorized execution.
type VectorizeMode string

const (
	// VectorizeForce requires every virtual column to vectorize; if any
	// cannot, CanVectorize reports false and AsVectorCursor fails.
	VectorizeForce VectorizeMode = "force"
	// VectorizeAuto (the default) applies the same gate as VectorizeForce:
	// CanVectorize reports false whenever any virtual column cannot
	// vectorize, and AsVectorCursor then fails. This core does not switch to
	// the scalar cursor by itself; choosing AsCursor instead is up to the
	// caller.
	VectorizeAuto VectorizeMode = "auto"
	// VectorizeOff always forces the scalar path.
	VectorizeOff VectorizeMode = "false"
)

// QueryContext carries the tunables spec.md groups under query_context.
type QueryContext struct {
	// VectorSize is the row capacity of a vector batch. Default 512.
	VectorSize int
	// VectorizeVirtualColumns gates virtual-column participation in
	// vectorized execution. Default VectorizeAuto.
	VectorizeVirtualColumns VectorizeMode
}

func defaultQueryContext() QueryContext {
	return QueryContext{
		VectorSize:              512,
		VectorizeVirtualColumns: VectorizeAuto,
	}
}

// MergeQueryContext merges a caller-supplied, possibly-partial QueryContext
// over the engine defaults: a zero VectorSize or empty
// VectorizeVirtualColumns is filled in rather than overriding the default,
// matching the teacher's Options-merge pattern but using mergo instead of a
// hand-rolled field-by-field copy.
func MergeQueryContext(override QueryContext) (QueryContext, error) {
	merged := defaultQueryContext()
	if err := mergo.Merge(&merged, override, mergo.WithOverride); err != nil {
		return QueryContext{}, err
	}
	return merged, nil
}

// OrderBy is one entry of a CursorBuildSpec's preferred ordering list. Only
// a single entry naming TimeColumn is honored by this core; every later
// entry is accepted but ignored. CursorHolder.Ordering reports only the
// TimeColumn entry actually applied, so callers can detect that the other
// entries were not.
type OrderBy struct {
	Column     string
	Descending bool
}

// Aggregator is the vectorization-gate surface a query-time aggregator
// must expose to this core; everything else about aggregation is out of
// scope (spec.md §1).
type Aggregator interface {
	CanVectorize() bool
}

// CursorBuildSpec describes one scan request against a Segment.
type CursorBuildSpec struct {
	Interval          Interval
	Filter            Filter
	VirtualColumns    *VirtualColumns
	PreferredOrdering []OrderBy
	QueryContext      QueryContext
	Aggregators       []Aggregator
	QueryMetrics      QueryMetrics
}

// init supplies CursorBuildSpec's zero-value defaults for opt.Configure.
func (s *CursorBuildSpec) init() {
	s.Interval = Eternity
	s.VirtualColumns = NewVirtualColumns()
	s.QueryContext = defaultQueryContext()
}

// NewCursorBuildSpec builds a CursorBuildSpec from functional options,
// applying defaults the way the teacher's pkg/opt.Configure does for its
// column options.
func NewCursorBuildSpec(opts ...func(*CursorBuildSpec)) CursorBuildSpec {
	return opt.Configure(opts...)
}

// WithInterval sets the half-open millisecond interval to scan.
func WithInterval(iv Interval) func(*CursorBuildSpec) {
	return func(s *CursorBuildSpec) { s.Interval = iv }
}

// WithFilter sets the row predicate.
func WithFilter(f Filter) func(*CursorBuildSpec) {
	return func(s *CursorBuildSpec) { s.Filter = f }
}

// WithVirtualColumn registers a derived column on the spec's registry.
func WithVirtualColumn(vc VirtualColumn) func(*CursorBuildSpec) {
	return func(s *CursorBuildSpec) {
		if s.VirtualColumns == nil {
			s.VirtualColumns = NewVirtualColumns()
		}
		s.VirtualColumns.Add(vc)
	}
}

// WithOrdering appends a preferred-ordering entry.
func WithOrdering(order OrderBy) func(*CursorBuildSpec) {
	return func(s *CursorBuildSpec) { s.PreferredOrdering = append(s.PreferredOrdering, order) }
}

// WithQueryContext merges ctx over the default QueryContext.
func WithQueryContext(ctx QueryContext) func(*CursorBuildSpec) {
	return func(s *CursorBuildSpec) {
		merged, err := MergeQueryContext(ctx)
		invariant(err == nil, "query context merge failed")
		s.QueryContext = merged
	}
}

// WithAggregators records aggregator vectorization hints.
func WithAggregators(aggs ...Aggregator) func(*CursorBuildSpec) {
	return func(s *CursorBuildSpec) { s.Aggregators = append(s.Aggregators, aggs...) }
}

// WithQueryMetrics attaches an optional metrics sink.
func WithQueryMetrics(m QueryMetrics) func(*CursorBuildSpec) {
	return func(s *CursorBuildSpec) { s.QueryMetrics = m }
}

// effectiveOrdering resolves the scan direction implied by spec. Only the
// primary entry is ever honored or rejected; anything after it is an
// ordering hint the engine accepts without enforcing (spec.md §9,
// "ordering hints beyond time: accept but do not honor").
func effectiveOrdering(spec CursorBuildSpec) (descending bool, err error) {
	if len(spec.PreferredOrdering) == 0 {
		return false, nil
	}
	primary := spec.PreferredOrdering[0]
	if primary.Column != TimeColumn {
		return false, errUnsupportedOrdering(primary.Column)
	}
	return primary.Descending, nil
}

package segment

// ColumnInspector is a read-only view over the columns visible to a
// selector factory: physical columns of the segment plus every virtual
// column declared in the same CursorBuildSpec, whatever its position in
// declaration order (the view is not limited to earlier columns). It
// lets a virtual column answer capabilities() without opening any column
// data.
type ColumnInspector interface {
	CapabilitiesOf(name string) (ColumnCapabilities, bool)
}

// ColumnSelectorFactory binds a column name to a per-row or per-vector
// value reader against a given Offset. Name resolution order: virtual
// columns first, then physical columns, then a null selector (spec.md
// §4.3) — a name that exists nowhere is never an error.
type ColumnSelectorFactory interface {
	ColumnInspector
	MakeScalarSelector(name string) (ScalarSelector, error)
	MakeVectorSelector(name string) (VectorSelector, error)
}

// ScalarSelector reads the value of one column at the row currently
// pointed to by the offset it was bound against. Values are valid only
// until the owning cursor's next Advance (spec.md §3, lifecycle).
type ScalarSelector interface {
	IsNull() bool
	FloatValue() float64
	DoubleValue() float64
	LongValue() int64
	// ObjectValue returns, for a string dimension, a single string (a
	// []string for multi-value dimensions); for a numeric column, its int64
	// or float64 value; and nil for a null.
	ObjectValue() any
}

// VectorSelector fills a fixed-capacity buffer for the current vector
// window. The int each method returns reports how many of the buffer's
// leading entries are valid for the current window; it may be smaller than
// the maximum vector size on the last, partial vector of a scan.
type VectorSelector interface {
	FloatVector() ([]float64, int)
	DoubleVector() ([]float64, int)
	LongVector() ([]int64, int)
	ObjectVector() ([]any, int)
	NullVector() []bool
}

// --------------------------- Null selector ----------------------------

// nullScalarSelector is returned for any column name that resolves to
// neither a virtual nor a physical column.
type nullScalarSelector struct{}

func (nullScalarSelector) IsNull() bool        { return true }
func (nullScalarSelector) FloatValue() float64 { return 0 }
func (nullScalarSelector) DoubleValue() float64 { return 0 }
func (nullScalarSelector) LongValue() int64    { return 0 }
func (nullScalarSelector) ObjectValue() any    { return nil }

var theNullScalarSelector ScalarSelector = nullScalarSelector{}

type nullVectorSelector struct {
	size int
}

func (s nullVectorSelector) FloatVector() ([]float64, int)  { return make([]float64, s.size), s.size }
func (s nullVectorSelector) DoubleVector() ([]float64, int) { return make([]float64, s.size), s.size }
func (s nullVectorSelector) LongVector() ([]int64, int)     { return make([]int64, s.size), s.size }
func (s nullVectorSelector) ObjectVector() ([]any, int)     { return make([]any, s.size), s.size }
func (s nullVectorSelector) NullVector() []bool {
	nulls := make([]bool, s.size)
	for i := range nulls {
		nulls[i] = true
	}
	return nulls
}

// --------------------------- Bound factory ----------------------------

// boundSelectorFactory is the concrete ColumnSelectorFactory bound against
// one offset: it resolves a name to a virtual column, then a physical
// column opened through the shared cache, then a null selector, in that
// order (spec.md §4.3).
type boundSelectorFactory struct {
	cache    *columnCache
	virtuals *VirtualColumns
	offset   Offset
}

func newBoundSelectorFactory(cache *columnCache, virtuals *VirtualColumns, offset Offset) *boundSelectorFactory {
	return &boundSelectorFactory{cache: cache, virtuals: virtuals, offset: offset}
}

func (f *boundSelectorFactory) CapabilitiesOf(name string) (ColumnCapabilities, bool) {
	if vc, ok := f.virtuals.Get(name); ok {
		return vc.Capabilities(f)
	}
	holder := f.cache.segment.Column(name)
	if holder == nil {
		return ColumnCapabilities{}, false
	}
	return holder.Capabilities(), true
}

func (f *boundSelectorFactory) MakeScalarSelector(name string) (ScalarSelector, error) {
	if vc, ok := f.virtuals.Get(name); ok {
		return vc.MakeScalarSelector(f)
	}

	col, _, err := f.cache.get(name)
	if err != nil {
		return nil, err
	}
	if col == nil {
		return theNullScalarSelector, nil
	}
	return &physicalScalarSelector{column: col, offset: f.offset}, nil
}

func (f *boundSelectorFactory) MakeVectorSelector(name string) (VectorSelector, error) {
	invariant(false, "MakeVectorSelector called against a scalar-bound selector factory")
	return nil, nil
}

// physicalScalarSelector adapts whichever typed interfaces a BaseColumn
// implements into the uniform ScalarSelector contract, performing the
// representation switch once per call the way the teacher's rdNumber/
// rdBool/rdString readers each specialize on one representation.
type physicalScalarSelector struct {
	column BaseColumn
	offset Offset
}

func (s *physicalScalarSelector) IsNull() bool {
	idx := s.offset.Current()
	switch c := s.column.(type) {
	case FloatColumn:
		_, ok := c.FloatAt(idx)
		return !ok
	case LongColumn:
		_, ok := c.LongAt(idx)
		return !ok
	case StringColumn:
		_, ok := c.StringAt(idx)
		return !ok
	default:
		return true
	}
}

func (s *physicalScalarSelector) FloatValue() float64 {
	if c, ok := s.column.(FloatColumn); ok {
		v, _ := c.FloatAt(s.offset.Current())
		return v
	}
	return 0
}

func (s *physicalScalarSelector) DoubleValue() float64 {
	return s.FloatValue()
}

func (s *physicalScalarSelector) LongValue() int64 {
	if c, ok := s.column.(LongColumn); ok {
		v, _ := c.LongAt(s.offset.Current())
		return v
	}
	return 0
}

func (s *physicalScalarSelector) ObjectValue() any {
	idx := s.offset.Current()
	switch c := s.column.(type) {
	case StringColumn:
		if v, ok := c.StringAt(idx); ok {
			return v
		}
		return nil
	case LongColumn:
		if v, ok := c.LongAt(idx); ok {
			return v
		}
		return nil
	case FloatColumn:
		if v, ok := c.FloatAt(idx); ok {
			return v
		}
		return nil
	default:
		return nil
	}
}

package segment

// VirtualColumn is a derived column computed lazily, per row or per vector,
// from other columns visible at the same offset. Values are never
// materialized ahead of time (spec.md §4.4).
type VirtualColumn interface {
	Name() string
	// Capabilities answers type/nullability without reading data, given a
	// read-only view of the physical columns and all declared virtual
	// columns.
	Capabilities(inspector ColumnInspector) (ColumnCapabilities, bool)
	MakeScalarSelector(factory ColumnSelectorFactory) (ScalarSelector, error)
	MakeVectorSelector(factory ColumnSelectorFactory) (VectorSelector, error)
	CanVectorize(inspector ColumnInspector) bool
	// Dependencies lists the column names this virtual column reads,
	// physical or virtual, used for cycle detection.
	Dependencies() []string
}

// VirtualColumns is the ordered registry of derived columns declared on a
// CursorBuildSpec. It detects cycles eagerly so a cycle fails fast with
// ConfigError::CyclicVirtualColumn instead of recursing forever at scan
// time (spec.md §4.4).
type VirtualColumns struct {
	byName map[string]VirtualColumn
	order  []string
}

// NewVirtualColumns returns an empty registry.
func NewVirtualColumns() *VirtualColumns {
	return &VirtualColumns{byName: make(map[string]VirtualColumn)}
}

// Add registers vc, overwriting any previous column of the same name.
func (v *VirtualColumns) Add(vc VirtualColumn) {
	if _, exists := v.byName[vc.Name()]; !exists {
		v.order = append(v.order, vc.Name())
	}
	v.byName[vc.Name()] = vc
}

// Get returns the virtual column named name, if any.
func (v *VirtualColumns) Get(name string) (VirtualColumn, bool) {
	if v == nil {
		return nil, false
	}
	vc, ok := v.byName[name]
	return vc, ok
}

// Names returns the declared virtual column names in declaration order.
func (v *VirtualColumns) Names() []string {
	if v == nil {
		return nil
	}
	names := make([]string, len(v.order))
	copy(names, v.order)
	return names
}

// segmentInspector is the ColumnInspector a holder uses to answer
// capability questions (virtual-column Capabilities/CanVectorize) without
// opening any column data or binding to a particular offset.
type segmentInspector struct {
	segment  Segment
	virtuals *VirtualColumns
}

func (i segmentInspector) CapabilitiesOf(name string) (ColumnCapabilities, bool) {
	if vc, ok := i.virtuals.Get(name); ok {
		return vc.Capabilities(i)
	}
	holder := i.segment.Column(name)
	if holder == nil {
		return ColumnCapabilities{}, false
	}
	return holder.Capabilities(), true
}

// ValidateAcyclic walks the dependency graph of every declared virtual
// column and returns errCyclicVirtualColumn for the first cycle found.
func (v *VirtualColumns) ValidateAcyclic() error {
	if v == nil {
		return nil
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(v.order))

	var visit func(name string) error
	visit = func(name string) error {
		vc, ok := v.byName[name]
		if !ok {
			return nil // physical column or nonexistent: not our concern
		}
		switch state[name] {
		case visiting:
			return errCyclicVirtualColumn(name)
		case done:
			return nil
		}
		state[name] = visiting
		for _, dep := range vc.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for _, name := range v.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

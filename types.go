package segment

// ColumnType is the value representation a selector reads from a column.
type ColumnType uint8

// Recognized column types. Complex and Unknown exist for schema
// declarations (row-based adapter, virtual column inspection) where a
// concrete scalar type is not meaningful.
const (
	TypeFloat ColumnType = iota
	TypeDouble
	TypeLong
	TypeString
	TypeComplex
	TypeUnknown
)

func (t ColumnType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeLong:
		return "long"
	case TypeString:
		return "string"
	case TypeComplex:
		return "complex"
	default:
		return "unknown"
	}
}

// MultiValue describes whether a column may carry more than one value per
// row. Unknown means the segment cannot answer without reading data.
type MultiValue uint8

const (
	MultiValueNo MultiValue = iota
	MultiValueYes
	MultiValueUnknown
)

// RowSignature is an ordered sequence of (name, type) pairs describing the
// shape of a row-based adapter's records, or the inputs/outputs a virtual
// column is declared over.
type RowSignature []RowColumn

// RowColumn names one entry of a RowSignature. Type is nil when the caller
// declares a name without committing to a representation.
type RowColumn struct {
	Name string
	Type *ColumnType
}

// ColumnNames returns the declared names in signature order.
func (s RowSignature) ColumnNames() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// ColumnType looks up the declared type of name, if any.
func (s RowSignature) ColumnType(name string) (ColumnType, bool) {
	for _, c := range s {
		if c.Name == name && c.Type != nil {
			return *c.Type, true
		}
	}
	return TypeUnknown, false
}

// TimeColumn is the name of the mandatory monotone time column every
// segment exposes.
const TimeColumn = "__time"

package segment

import "github.com/kelindar/bitmap"

// Segment is an immutable, row-addressable set of columns with a mandatory
// __time column. Implementations are borrowed immutably by every holder
// created over them; a segment outlives any number of holders.
type Segment interface {
	// Interval reports the half-open millisecond range the segment's data
	// actually occupies.
	Interval() Interval
	// NumRows reports the row count, addressable as [0, NumRows()).
	NumRows() uint32
	// AvailableDimensions lists the non-metric column names, in no
	// particular order beyond being stable across calls.
	AvailableDimensions() []string
	// AvailableMetrics lists the metric column names.
	AvailableMetrics() []string
	// Column returns the handle for name, or nil if the segment has no
	// such column.
	Column(name string) ColumnHolder
	// BitmapFactory returns the allocator used to build bitmaps sized to
	// this segment's row count, or nil if the segment offers no indexes.
	BitmapFactory() BitmapResultFactory
	// Metadata returns segment-level metadata such as aggregators used
	// during ingestion. Implementations that do not track this return
	// ErrUnsupportedOperation.
	Metadata() (any, error)
}

// ColumnHolder is a segment's handle to one column: enough to describe it
// without opening it, and a way to open it on demand.
type ColumnHolder interface {
	Capabilities() ColumnCapabilities
	// Open returns the underlying column object. Called at most once per
	// holder lifetime by the column cache.
	Open() (BaseColumn, error)
	// IndexSupplier returns the bitmap-index accessor for this column, or
	// nil if the column offers none.
	IndexSupplier() BitmapIndexSupplier
}

// BaseColumn is the common, untyped accessor every opened column supports.
// Selector factories type-assert to the richer interfaces below
// (FloatColumn, LongColumn, StringColumn, ...) depending on the requested
// representation.
type BaseColumn interface {
	// Len reports how many rows the column currently holds data for.
	Len() uint32
	// Close releases any resources the column holds open. Safe to call
	// even if Open failed to fully populate the column.
	Close() error
}

// FloatColumn is implemented by columns able to produce a float64 reading.
type FloatColumn interface {
	BaseColumn
	FloatAt(idx uint32) (float64, bool)
}

// LongColumn is implemented by columns able to produce an int64 reading.
type LongColumn interface {
	BaseColumn
	LongAt(idx uint32) (int64, bool)
}

// StringColumn is implemented by columns able to produce a string reading.
type StringColumn interface {
	BaseColumn
	StringAt(idx uint32) (string, bool)
}

// BitmapIndexSupplier answers bitmap-index equality queries over a single
// dictionary-encoded or boolean column. It has no range query; range
// filters are evaluated by a matcher.
type BitmapIndexSupplier interface {
	// ForValue returns the bitmap of rows equal to value, or nil if the
	// value does not occur in the column's dictionary.
	ForValue(value string) bitmap.Bitmap
	// Cardinality returns the number of distinct values indexed.
	Cardinality() int
}

// BitmapResultFactory allocates bitmaps sized for a segment's row count,
// the way index-union/intersection operations accumulate their result.
type BitmapResultFactory interface {
	NewBitmap() bitmap.Bitmap
}

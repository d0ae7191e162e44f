package segment

import "github.com/kelindar/bitmap"

// memSegment is the in-memory reference Segment: row-addressable,
// immutable once Build returns. It exists so this module's engine is
// testable without a real ingestion/persistence layer, which spec.md §1
// places outside scope — it is one Segment implementation, not "the"
// implementation.
type memSegment struct {
	columns map[string]*memColumnHolder
	dims    []string
	metrics []string
	numRows uint32
	iv      Interval
}

func (s *memSegment) Interval() Interval { return s.iv }
func (s *memSegment) NumRows() uint32    { return s.numRows }

func (s *memSegment) AvailableDimensions() []string {
	out := make([]string, len(s.dims))
	copy(out, s.dims)
	return out
}

func (s *memSegment) AvailableMetrics() []string {
	out := make([]string, len(s.metrics))
	copy(out, s.metrics)
	return out
}

func (s *memSegment) Column(name string) ColumnHolder {
	h, ok := s.columns[name]
	if !ok {
		return nil
	}
	return h
}

func (s *memSegment) BitmapFactory() BitmapResultFactory {
	return memBitmapFactory{n: s.numRows}
}

// Metadata is unsupported: the reference segment tracks no ingestion-time
// aggregator metadata (spec.md §6, "may be absent").
func (s *memSegment) Metadata() (any, error) { return nil, ErrUnsupportedOperation }

// memBitmapFactory allocates bitmaps sized for exactly the segment's row
// count, the way a filter's index-union/intersection accumulates a result
// bitmap before handing it back as a FilterBundle.Index.
type memBitmapFactory struct {
	n uint32
}

func (f memBitmapFactory) NewBitmap() bitmap.Bitmap {
	return make(bitmap.Bitmap, f.n/64+1)
}

package segment

import "math"

// Interval is a half-open millisecond range [Start, End).
type Interval struct {
	Start int64
	End   int64
}

// Eternity is the widest interval: it contains every representable
// timestamp except math.MaxInt64, its exclusive end.
var Eternity = Interval{Start: math.MinInt64, End: math.MaxInt64}

// Contains reports whether ts falls within the half-open interval.
func (iv Interval) Contains(ts int64) bool {
	return ts >= iv.Start && ts < iv.End
}

// IsEmpty reports whether the interval contains no timestamps.
func (iv Interval) IsEmpty() bool {
	return iv.Start >= iv.End
}

// Overlaps reports whether iv and other share any timestamp.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

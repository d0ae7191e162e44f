package segment

// timestampCheckingOffset augments inner's WithinBounds with a time bound
// check against limit (spec.md §4.1, TimestampCheckingOffset). When
// allWithin holds, the segment's data interval is already known to lie
// entirely inside the query interval and the check is skipped.
type timestampCheckingOffset struct {
	inner       Offset
	timestampAt func(uint32) int64
	limit       int64
	descending  bool
	allWithin   bool
}

func newTimestampCheckingOffset(inner Offset, timestampAt func(uint32) int64, limit int64, descending, allWithin bool) *timestampCheckingOffset {
	return &timestampCheckingOffset{
		inner:       inner,
		timestampAt: timestampAt,
		limit:       limit,
		descending:  descending,
		allWithin:   allWithin,
	}
}

func (o *timestampCheckingOffset) Current() uint32 { return o.inner.Current() }

func (o *timestampCheckingOffset) WithinBounds() bool {
	if !o.inner.WithinBounds() {
		return false
	}
	if o.allWithin {
		return true
	}
	ts := o.timestampAt(o.inner.Current())
	if o.descending {
		return ts >= o.limit
	}
	return ts < o.limit
}

func (o *timestampCheckingOffset) Advance() { o.inner.Advance() }
func (o *timestampCheckingOffset) Reset()   { o.inner.Reset() }

func (o *timestampCheckingOffset) Clone() Offset {
	return &timestampCheckingOffset{
		inner:       o.inner.Clone(),
		timestampAt: o.timestampAt,
		limit:       o.limit,
		descending:  o.descending,
		allWithin:   o.allWithin,
	}
}

// Err forwards interruption from an inner FilteredOffset, if any, so a
// timestampCheckingOffset stacked above one still surfaces cancellation.
func (o *timestampCheckingOffset) Err() error {
	if in, ok := o.inner.(Interruptible); ok {
		return in.Err()
	}
	return nil
}

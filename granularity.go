package segment

// Granularity truncates a millisecond timestamp to the start of the bucket
// containing it. SizeMillis may be any positive bucket width — the core
// ships the common calendar-agnostic sizes as named values, but nothing
// about the granularizer is restricted to them.
type Granularity struct {
	SizeMillis int64
}

const (
	millisPerSecond = 1000
	millisPerMinute = 60 * millisPerSecond
	millisPerHour   = 60 * millisPerMinute
	millisPerDay    = 24 * millisPerHour
)

var (
	GranularitySecond = Granularity{SizeMillis: millisPerSecond}
	GranularityMinute = Granularity{SizeMillis: millisPerMinute}
	GranularityHour   = Granularity{SizeMillis: millisPerHour}
	GranularityDay    = Granularity{SizeMillis: millisPerDay}
)

// NewGranularity builds an arbitrary fixed-width granularity, rejecting
// anything that can't bucket at all.
func NewGranularity(sizeMillis int64) Granularity {
	invariant(sizeMillis > 0, "granularity size must be positive")
	return Granularity{SizeMillis: sizeMillis}
}

// Bucket returns the half-open bucket interval containing ts.
func (g Granularity) Bucket(ts int64) Interval {
	start := floorDiv(ts, g.SizeMillis) * g.SizeMillis
	return Interval{Start: start, End: start + g.SizeMillis}
}

// Next returns the bucket immediately after b in the given direction.
func (g Granularity) Next(b Interval, descending bool) Interval {
	if descending {
		return Interval{Start: b.Start - g.SizeMillis, End: b.Start}
	}
	return Interval{Start: b.End, End: b.End + g.SizeMillis}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Granularizer slices a time-ordered Cursor into bucket intervals (spec.md
// §4.10). It does not own the cursor's rows — it tracks which bucket the
// cursor's current row falls in, leaving the caller to decide when a
// bucket is exhausted and drive the transition to the next one.
type Granularizer struct {
	cursor      *Cursor
	granularity Granularity
	bound       Interval
	descending  bool
	bucket      Interval
	done        bool
}

// NewGranularizer builds a Granularizer positioned at cursor's current
// row's bucket. cursor must already be built against bound and the
// matching direction; the granularizer does not re-derive either.
func NewGranularizer(cursor *Cursor, g Granularity, bound Interval, descending bool) *Granularizer {
	gr := &Granularizer{cursor: cursor, granularity: g, bound: bound, descending: descending}
	gr.resync()
	return gr
}

func (gr *Granularizer) resync() {
	if gr.cursor.IsDone() {
		gr.done = true
		return
	}
	gr.bucket = gr.granularity.Bucket(gr.CurrentTime())
}

// IsDone reports whether the underlying cursor is exhausted.
func (gr *Granularizer) IsDone() bool { return gr.done }

// CurrentBucket returns the bucket interval the cursor's current row falls
// in.
func (gr *Granularizer) CurrentBucket() Interval { return gr.bucket }

// BucketStart returns the start timestamp of the current bucket.
func (gr *Granularizer) BucketStart() int64 { return gr.bucket.Start }

// CurrentTime reads __time at the cursor's current row.
func (gr *Granularizer) CurrentTime() int64 {
	sel, err := gr.cursor.ColumnSelectorFactory().MakeScalarSelector(TimeColumn)
	invariant(err == nil, "__time selector unavailable")
	return sel.LongValue()
}

// RowInCurrentBucket reports whether the cursor's current row still falls
// within CurrentBucket — false signals the caller to call AdvanceToBucket
// before reading any more rows.
func (gr *Granularizer) RowInCurrentBucket() bool {
	return !gr.done && gr.bucket.Contains(gr.CurrentTime())
}

// AdvanceWithinBucket moves the underlying cursor to its next row, within
// the same bucket or into the next one — the caller checks
// RowInCurrentBucket afterward to tell which happened. uninterruptibly
// routes through Cursor.AdvanceUninterruptibly instead of Advance.
func (gr *Granularizer) AdvanceWithinBucket(uninterruptibly bool) error {
	if gr.done {
		return nil
	}
	if uninterruptibly {
		gr.cursor.AdvanceUninterruptibly()
	} else if err := gr.cursor.Advance(); err != nil {
		gr.done = true
		return err
	}
	if gr.cursor.IsDone() {
		gr.done = true
	}
	return nil
}

// AdvanceToBucket transitions the granularizer to bucket, normally
// granularity.Next(current, descending) once RowInCurrentBucket reports
// false. Bucket boundaries beyond bound are still reported; it is the
// caller's job to stop requesting buckets once they leave bound.
func (gr *Granularizer) AdvanceToBucket(bucket Interval) {
	gr.bucket = bucket
}

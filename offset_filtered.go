package segment

import "context"

// filterPollInterval bounds how many rows FilteredOffset may skip between
// cooperative-cancellation checks (spec.md §4.1: "at least every K rows,
// K <= 1024").
const filterPollInterval = 1024

// filteredOffset wraps inner and a value-matcher, driving inner forward on
// construction and on every Advance until the matcher accepts the current
// row or inner is exhausted. makeMatches rebuilds the matcher against a
// specific Offset instance so Clone can bind a fresh matcher to the cloned
// inner without sharing mutable state with the original.
type filteredOffset struct {
	inner       Offset
	makeMatches func(Offset) (func() bool, error)
	matches     func() bool
	ctx         context.Context
	err         error
}

func newFilteredOffset(ctx context.Context, inner Offset, makeMatches func(Offset) (func() bool, error)) (*filteredOffset, error) {
	matches, err := makeMatches(inner)
	if err != nil {
		return nil, err
	}
	o := &filteredOffset{inner: inner, makeMatches: makeMatches, matches: matches, ctx: ctx}
	o.seek()
	return o, nil
}

// seek drives inner forward until it is exhausted or currently matches,
// polling the cancellation context at most every filterPollInterval rows.
// On cancellation it records ErrInterrupted, after which WithinBounds
// reports false, so the offset is observed as exhausted and Current is never
// read at a non-matching row; inner itself stays wherever the skip stopped.
func (o *filteredOffset) seek() {
	if o.err != nil {
		return
	}
	since := 0
	for o.inner.WithinBounds() && !o.matches() {
		o.inner.Advance()
		since++
		if since >= filterPollInterval {
			since = 0
			if o.ctx != nil {
				select {
				case <-o.ctx.Done():
					o.err = ErrInterrupted
					return
				default:
				}
			}
		}
	}
}

func (o *filteredOffset) Current() uint32 { return o.inner.Current() }

func (o *filteredOffset) WithinBounds() bool {
	return o.err == nil && o.inner.WithinBounds()
}

func (o *filteredOffset) Advance() {
	if o.err != nil {
		return
	}
	o.inner.Advance()
	o.seek()
}

func (o *filteredOffset) Reset() {
	o.err = nil
	o.inner.Reset()
	o.seek()
}

// Clone rebuilds the matcher against a fresh inner offset. Reconstruction
// is only expected to fail the first time a matcher is ever built for a
// given filter/column pair (a type mismatch) — by the time a filteredOffset
// exists, that check has already passed once.
func (o *filteredOffset) Clone() Offset {
	innerClone := o.inner.Clone()
	matches, err := o.makeMatches(innerClone)
	invariant(err == nil, "filtered offset clone: matcher reconstruction failed")
	return &filteredOffset{
		inner:       innerClone,
		makeMatches: o.makeMatches,
		matches:     matches,
		ctx:         o.ctx,
		err:         o.err,
	}
}

// Err reports ExecutionError::Interrupted once cancellation has fired.
func (o *filteredOffset) Err() error { return o.err }

// advanceUninterruptibly drives the search to completion regardless of any
// pending cancellation, per the AdvanceUninterruptibly contract (spec.md
// §4.6, §5).
func (o *filteredOffset) advanceUninterruptibly() {
	ctx := o.ctx
	o.ctx = nil
	o.err = nil
	o.inner.Advance()
	o.seek()
	o.ctx = ctx
}

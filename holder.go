package segment

import "context"

type holderState uint8

const (
	holderReady holderState = iota
	holderClosed
)

// CursorHolder owns the shared column cache, the closer, and the selected
// ordering for one scan request. It implements the state machine of
// spec.md §4.8: INIT is implicit in MakeCursorHolder succeeding, READY
// allows any number of AsCursor/AsVectorCursor calls, and Close moves it
// to CLOSED. After that AsCursor and AsVectorCursor return an error,
// CanVectorize reports false, Ordering still reports the applied ordering,
// and a further Close is a no-op.
type CursorHolder struct {
	ctx        context.Context
	segment    Segment
	spec       CursorBuildSpec
	cache      *columnCache
	closer     *closer
	descending bool
	state      holderState
}

// MakeCursorHolder validates spec against segment and returns a holder
// ready to mint cursors. Validation failures (a cyclic virtual column, an
// unsupported primary ordering) are ConfigErrors raised here, before any
// column is opened.
func MakeCursorHolder(ctx context.Context, seg Segment, spec CursorBuildSpec) (*CursorHolder, error) {
	if err := spec.VirtualColumns.ValidateAcyclic(); err != nil {
		return nil, err
	}
	descending, err := effectiveOrdering(spec)
	if err != nil {
		return nil, err
	}

	cl := newCloser()
	return &CursorHolder{
		ctx:        ctx,
		segment:    seg,
		spec:       spec,
		cache:      newColumnCache(seg, cl),
		closer:     cl,
		descending: descending,
		state:      holderReady,
	}, nil
}

func (h *CursorHolder) checkReady() error {
	if h.state == holderClosed {
		return &ExecutionError{Reason: "holder is closed"}
	}
	return nil
}

// CanVectorize reports whether AsVectorCursor will succeed (spec.md §4.7).
func (h *CursorHolder) CanVectorize() bool {
	if h.state == holderClosed {
		return false
	}
	return canVectorize(h.segment, h.spec)
}

// AsCursor mints a fresh scalar cursor. Multiple calls are allowed; each
// yields an independently-positioned cursor sharing this holder's column
// cache.
func (h *CursorHolder) AsCursor() (*Cursor, error) {
	if err := h.checkReady(); err != nil {
		return nil, err
	}
	return buildScalarCursor(h.ctx, h.segment, h.spec, h.cache)
}

// AsVectorCursor mints a fresh vector cursor, failing with
// ExecutionError::NotVectorizable if CanVectorize is false.
func (h *CursorHolder) AsVectorCursor() (*VectorCursor, error) {
	if err := h.checkReady(); err != nil {
		return nil, err
	}
	if !h.CanVectorize() {
		return nil, errNotVectorizable("gating conditions not met")
	}
	return buildVectorCursor(h.ctx, h.segment, h.spec, h.cache)
}

// Ordering reports the ordering actually applied to this holder's
// cursors — always a single TimeColumn entry — so a caller that supplied
// additional preferred-ordering hints can detect they were not honored
// (spec.md §9).
func (h *CursorHolder) Ordering() []OrderBy {
	return []OrderBy{{Column: TimeColumn, Descending: h.descending}}
}

// Close releases every resource this holder's cursors opened, in reverse
// acquisition order. Idempotent: a second call is a no-op.
func (h *CursorHolder) Close() error {
	if h.state == holderClosed {
		return nil
	}
	h.state = holderClosed
	return h.closer.closeAll()
}

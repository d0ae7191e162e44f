package segment

import (
	"math/bits"

	"github.com/kelindar/bitmap"
)

// bitmapOffset walks the set bits of bm in numeric order (ascending) or
// reverse numeric order (descending), bounded to [0, n) (spec.md §4.1,
// BitmapOffset).
type bitmapOffset struct {
	bm         bitmap.Bitmap
	n          uint32
	descending bool
	pos        uint32
	done       bool
}

func newBitmapOffset(bm bitmap.Bitmap, descending bool, n uint32) *bitmapOffset {
	o := &bitmapOffset{bm: bm, n: n, descending: descending}
	o.Reset()
	return o
}

func (o *bitmapOffset) Current() uint32    { return o.pos }
func (o *bitmapOffset) WithinBounds() bool { return !o.done }

func (o *bitmapOffset) Advance() {
	if o.done {
		return
	}
	if o.descending {
		if o.pos == 0 {
			o.done = true
			return
		}
		o.pos, o.done = prevSetBit(o.bm, o.pos-1)
		o.done = !o.done
		return
	}
	o.pos, o.done = nextSetBit(o.bm, o.pos+1, o.n)
	o.done = !o.done
}

func (o *bitmapOffset) Reset() {
	if o.descending {
		hi := o.n
		if hi > 0 {
			hi--
		}
		p, ok := prevSetBit(o.bm, hi)
		o.pos, o.done = p, !ok
		return
	}
	p, ok := nextSetBit(o.bm, 0, o.n)
	o.pos, o.done = p, !ok
}

func (o *bitmapOffset) Clone() Offset {
	c := *o
	return &c
}

// nextSetBit returns the smallest set bit at index >= from and < limit.
func nextSetBit(bm bitmap.Bitmap, from, limit uint32) (uint32, bool) {
	if from >= limit {
		return 0, false
	}
	wordIdx := int(from >> 6)
	if wordIdx >= len(bm) {
		return 0, false
	}

	bitOff := from & 63
	word := bm[wordIdx] >> bitOff
	if word != 0 {
		idx := from + uint32(bits.TrailingZeros64(word))
		if idx < limit {
			return idx, true
		}
		return 0, false
	}

	for i := wordIdx + 1; i < len(bm); i++ {
		if bm[i] == 0 {
			continue
		}
		idx := uint32(i)*64 + uint32(bits.TrailingZeros64(bm[i]))
		if idx < limit {
			return idx, true
		}
		return 0, false
	}
	return 0, false
}

// prevSetBit returns the largest set bit at index <= upTo.
func prevSetBit(bm bitmap.Bitmap, upTo uint32) (uint32, bool) {
	if len(bm) == 0 {
		return 0, false
	}
	wordIdx := int(upTo >> 6)
	if wordIdx >= len(bm) {
		wordIdx = len(bm) - 1
		upTo = uint32(wordIdx)*64 + 63
	}

	bitOff := upTo & 63
	word := bm[wordIdx]
	if bitOff < 63 {
		word &= (uint64(1) << (bitOff + 1)) - 1
	}
	if word != 0 {
		return uint32(wordIdx)*64 + uint32(63-bits.LeadingZeros64(word)), true
	}

	for i := wordIdx - 1; i >= 0; i-- {
		if bm[i] == 0 {
			continue
		}
		return uint32(i)*64 + uint32(63-bits.LeadingZeros64(bm[i])), true
	}
	return 0, false
}

package segment

import "math"

// timeSearch finds the smallest index in [lo, hi) such that col[i] >=
// target, returning hi when no such index exists (spec.md §4.7).
//
// Implemented as a binary search for target-1 followed by a short linear
// probe for the first index >= target: the linear tail stays correct
// across runs of duplicate timestamps and is faster than pure binary
// search at dense clusters, but that's an internal tuning decision —
// callers only observe the returned index.
func timeSearch(col func(uint32) int64, target int64, lo, hi uint32) uint32 {
	if lo >= hi {
		return hi
	}

	// Binary search for the first index with col[i] >= target-1. Any
	// index at or after it may still be < target, so we linear-probe
	// forward from there.
	l, r := lo, hi
	probeTarget := target - 1
	if target == math.MinInt64 {
		probeTarget = target // target-1 would wrap around to MaxInt64
	}
	for l < r {
		mid := l + (r-l)/2
		if col(mid) >= probeTarget {
			r = mid
		} else {
			l = mid + 1
		}
	}

	for l < hi && col(l) < target {
		l++
	}
	return l
}

package scan

import (
	"unsafe"

	"github.com/segmentio/asm/mem"

	"github.com/tremwil/scanner-bench/pattern"
)

// interior returns the chunk range [lo, hi) of the vectorized pass over h for
// a pattern of length n anchored at offset p0. Chunk starts are multiples of
// width in address space and step by width.
//
// Every chunk c satisfies c >= p0 and c+width <= len(h)-n+p0+1, which keeps
// the anchor load, every secondary load at c+rel (rel <= n-1-p0) and every
// candidate start c+bit-p0 inside h. When no chunk fits, lo == hi == p0 and
// the boundary passes cover the whole haystack.
//
// The caller guarantees len(h) >= n.
func interior(h []byte, n, p0, width int) (lo, hi int) {
	limit := len(h) - n + p0 + 1
	base := uintptr(unsafe.Pointer(unsafe.SliceData(h)))
	first := p0 + int(-(base+uintptr(p0))&uintptr(width-1))
	if first+width > limit {
		return p0, p0
	}
	chunks := (limit - first) / width
	return first, first + chunks*width
}

// boundary verifies every start s in [from, to) whose anchor byte matches.
// It covers the unaligned prefix and suffix the vectorized pass skips.
// It returns false if yield asked to stop.
func boundary(h []byte, p pattern.Pattern, a needle, from, to int, yield func(int) bool) bool {
	if from >= to {
		return true
	}
	if !mem.ContainsByte(h[from+a.pos:to+a.pos], a.value) {
		return true
	}
	for s := from; s < to; s++ {
		if h[s+a.pos] == a.value && p.MatchAt(h[s:]) && !yield(s) {
			return false
		}
	}
	return true
}

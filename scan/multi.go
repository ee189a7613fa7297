package scan

import (
	"fmt"
	"iter"
	"math/bits"

	"github.com/tremwil/scanner-bench/internal/bytealg"
	"github.com/tremwil/scanner-bench/pattern"
)

// Multi is a vectorized scanner filtering on K literal bytes with distinct
// values. A lane survives only if all K bytes match at their relative
// offsets, so far fewer candidates reach verification than with Single.
type Multi struct {
	width  int
	k      int
	ranks  *Ranks
	kernel bytealg.Kernel
}

// NewMulti returns a scanner filtering on cfg.Anchors needles.
func NewMulti(cfg Config) (*Multi, error) {
	r, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return &Multi{width: r.width, k: r.anchors, ranks: r.ranks, kernel: r.kernel}, nil
}

func (s *Multi) String() string { return fmt.Sprintf("multi/%dx%d", s.k, s.width) }

// Width returns the vector width in bytes.
func (s *Multi) Width() int { return s.width }

// Anchors returns the number of needles the scanner filters on.
func (s *Multi) Anchors() int { return s.k }

// Index returns the leftmost match of p. Patterns with fewer than K distinct
// literal byte values fail with an *UnsupportedError.
func (s *Multi) Index(haystack []byte, p pattern.Pattern) (int, error) {
	nd, err := selectNeedles(p, s.ranks, s.k)
	if err != nil {
		return -1, err
	}
	return first(func(yield func(int) bool) { s.each(haystack, p, nd, yield) }), nil
}

func (s *Multi) IndexAll(haystack []byte, p pattern.Pattern) (iter.Seq[int], error) {
	nd, err := selectNeedles(p, s.ranks, s.k)
	if err != nil {
		return nil, err
	}
	return func(yield func(int) bool) { s.each(haystack, p, nd, yield) }, nil
}

func (s *Multi) each(h []byte, p pattern.Pattern, nd []needle, yield func(int) bool) {
	n := p.Len()
	if len(h) < n {
		return
	}
	a := nd[0]
	lo, hi := interior(h, n, a.pos, s.width)
	if !boundary(h, p, a, 0, lo-a.pos, yield) {
		return
	}

	// needle 0 aligns the chunk; the others are read at their offset from it
	var (
		splat [MaxAnchors]uint64
		rel   [MaxAnchors]int
	)
	for i, x := range nd {
		splat[i] = bytealg.Broadcast(x.value)
		rel[i] = x.pos - a.pos
	}
	k := len(nd)

	for c := lo; c < hi; c += s.width {
		m := s.kernel(h[c:], splat[0])
		for i := 1; i < k && m != 0; i++ {
			m &= s.kernel(h[c+rel[i]:], splat[i])
		}
		for m != 0 {
			start := c + bits.TrailingZeros64(m) - a.pos
			if p.MatchAt(h[start:]) && !yield(start) {
				return
			}
			m &= m - 1
		}
	}

	boundary(h, p, a, hi-a.pos, len(h)-n+1, yield)
}

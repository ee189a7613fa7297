package scan

import (
	"fmt"
	"iter"
	"math/bits"

	"github.com/tremwil/scanner-bench/internal/bytealg"
	"github.com/tremwil/scanner-bench/pattern"
)

// Single is a vectorized scanner filtering on one anchor byte: the rarest
// literal of the pattern.
type Single struct {
	width  int
	ranks  *Ranks
	kernel bytealg.Kernel
}

// NewSingle returns a single-anchor scanner. cfg.Anchors is ignored.
func NewSingle(cfg Config) (*Single, error) {
	cfg.Anchors = 1
	r, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return &Single{width: r.width, ranks: r.ranks, kernel: r.kernel}, nil
}

func (s *Single) String() string { return fmt.Sprintf("single/%d", s.width) }

// Width returns the vector width in bytes.
func (s *Single) Width() int { return s.width }

// Index returns the leftmost match of p. Patterns without a literal byte
// fail with ErrUnsupportedPattern.
func (s *Single) Index(haystack []byte, p pattern.Pattern) (int, error) {
	a, ok := selectAnchor(p, s.ranks)
	if !ok {
		return -1, &UnsupportedError{Need: 1}
	}
	return first(func(yield func(int) bool) { s.each(haystack, p, a, yield) }), nil
}

func (s *Single) IndexAll(haystack []byte, p pattern.Pattern) (iter.Seq[int], error) {
	a, ok := selectAnchor(p, s.ranks)
	if !ok {
		return nil, &UnsupportedError{Need: 1}
	}
	return func(yield func(int) bool) { s.each(haystack, p, a, yield) }, nil
}

func (s *Single) each(h []byte, p pattern.Pattern, a needle, yield func(int) bool) {
	n := p.Len()
	if len(h) < n {
		return
	}
	lo, hi := interior(h, n, a.pos, s.width)
	if !boundary(h, p, a, 0, lo-a.pos, yield) {
		return
	}

	splat := bytealg.Broadcast(a.value)
	for c := lo; c < hi; c += s.width {
		m := s.kernel(h[c:], splat)
		for m != 0 {
			start := c + bits.TrailingZeros64(m) - a.pos
			if p.MatchAt(h[start:]) && !yield(start) {
				return
			}
			m &= m - 1 // clear lowest set bit
		}
	}

	boundary(h, p, a, hi-a.pos, len(h)-n+1, yield)
}

// Package memchr is a scanner backend built on coregex's SIMD byte search
// primitives instead of the scan package's lane kernels.
//
// Fully literal patterns go straight to Memmem. Otherwise the two rarest
// distinct literals are located together with MemchrPair, or the single
// literal with Memchr, and each hit is verified with MatchAt.
package memchr

import (
	"errors"
	"iter"

	"github.com/coregx/coregex/simd"

	"github.com/tremwil/scanner-bench/pattern"
	"github.com/tremwil/scanner-bench/scan"
)

// Scanner implements scan.Scanner.
type Scanner struct {
	ranks *scan.Ranks
}

// New returns a Scanner ranking literals with ranks, or the default table
// when ranks is nil.
func New(ranks *scan.Ranks) *Scanner {
	if ranks != nil {
		r := *ranks
		ranks = &r
	}
	return &Scanner{ranks: ranks}
}

func (s *Scanner) String() string { return "memchr" }

func (s *Scanner) Index(haystack []byte, p pattern.Pattern) (int, error) {
	pl, err := s.plan(p)
	if err != nil {
		return -1, err
	}
	idx := -1
	pl.each(haystack, p, func(i int) bool {
		idx = i
		return false
	})
	return idx, nil
}

func (s *Scanner) IndexAll(haystack []byte, p pattern.Pattern) (iter.Seq[int], error) {
	pl, err := s.plan(p)
	if err != nil {
		return nil, err
	}
	return func(yield func(int) bool) { pl.each(haystack, p, yield) }, nil
}

// plan is the search strategy chosen for one pattern.
type plan struct {
	literal bool // every position literal: Memmem on the bytes
	pair    bool // a and b located together with MemchrPair
	a, b    scan.Needle
}

func (s *Scanner) plan(p pattern.Pattern) (plan, error) {
	n := p.Len()
	if n > 0 && pattern.Literals(p) == n {
		return plan{literal: true}, nil
	}
	nd, err := scan.Needles(p, s.ranks, 2)
	if err == nil {
		return plan{pair: true, a: nd[0], b: nd[1]}, nil
	}
	if !errors.Is(err, scan.ErrUnsupportedPattern) {
		return plan{}, err
	}
	nd, err = scan.Needles(p, s.ranks, 1)
	if err != nil {
		return plan{}, err
	}
	return plan{a: nd[0]}, nil
}

func (pl plan) each(h []byte, p pattern.Pattern, yield func(int) bool) {
	n := p.Len()
	if len(h) < n {
		return
	}
	if pl.literal {
		lit := p.Bytes()
		for from := 0; from <= len(h)-n; {
			i := simd.Memmem(h[from:], lit)
			if i < 0 || !yield(from+i) {
				return
			}
			from += i + 1
		}
		return
	}

	// anchor positions range over [a.Pos, last]
	last := len(h) - n + pl.a.Pos
	for pos := pl.a.Pos; pos <= last; {
		var i int
		if pl.pair {
			i = simd.MemchrPair(h[pos:], pl.a.Value, pl.b.Value, pl.b.Pos-pl.a.Pos)
		} else {
			i = simd.Memchr(h[pos:last+1], pl.a.Value)
		}
		if i < 0 || pos+i > last {
			return
		}
		start := pos + i - pl.a.Pos
		if p.MatchAt(h[start:]) && !yield(start) {
			return
		}
		pos += i + 1
	}
}

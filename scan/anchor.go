package scan

import (
	"slices"

	"github.com/tremwil/scanner-bench/pattern"
)

// needle is a literal pattern byte used as a vectorized pre-filter.
type needle struct {
	pos   int  // offset in the pattern
	value byte // literal byte at pos
}

// selectAnchor picks the rarest literal byte of p. Ties go to the lowest
// position. ok is false when p has no literal position.
func selectAnchor(p pattern.Pattern, ranks *Ranks) (a needle, ok bool) {
	b, mask := p.Bytes(), p.Mask()
	best := 256
	for i, m := range mask {
		if m != 0xff {
			continue
		}
		if r := int(ranks[b[i]]); r < best {
			best = r
			a = needle{pos: i, value: b[i]}
		}
	}
	return a, best < 256
}

// selectNeedles picks k literal bytes of p with pairwise distinct values,
// preferring rare ones, and returns them sorted by position. It fails with
// *UnsupportedError when p has fewer than k distinct literal values.
//
// Candidates are kept ordered by ascending rank. A value already among the
// candidates is skipped. Once k candidates are held, a newcomer evicts the
// worst only if it is strictly rarer; equal ranks keep encounter order.
func selectNeedles(p pattern.Pattern, ranks *Ranks, k int) ([]needle, error) {
	b, mask := p.Bytes(), p.Mask()
	cand := make([]needle, 0, k)
	var seen [256]bool
	distinct := 0

	for i, m := range mask {
		if m != 0xff {
			continue
		}
		v := b[i]
		if !seen[v] {
			seen[v] = true
			distinct++
		}
		if slices.ContainsFunc(cand, func(n needle) bool { return n.value == v }) {
			continue
		}
		r := ranks[v]
		if len(cand) == k {
			if r >= ranks[cand[k-1].value] {
				continue
			}
			cand = cand[:k-1]
		}
		// insert after every candidate of equal or lower rank
		j := len(cand)
		for j > 0 && ranks[cand[j-1].value] > r {
			j--
		}
		cand = slices.Insert(cand, j, needle{pos: i, value: v})
	}

	if len(cand) < k {
		return nil, &UnsupportedError{Need: k, Have: distinct}
	}
	slices.SortFunc(cand, func(a, b needle) int { return a.pos - b.pos })
	return cand, nil
}

// Needle is a literal pattern byte chosen as a pre-filter.
type Needle struct {
	Pos   int
	Value byte
}

// Needles returns the k needles Multi filters p on, sorted by position. A nil
// ranks selects the default table.
func Needles(p pattern.Pattern, ranks *Ranks, k int) ([]Needle, error) {
	if ranks == nil {
		ranks = &byteRank
	}
	nd, err := selectNeedles(p, ranks, k)
	if err != nil {
		return nil, err
	}
	out := make([]Needle, len(nd))
	for i, n := range nd {
		out[i] = Needle{Pos: n.pos, Value: n.value}
	}
	return out, nil
}

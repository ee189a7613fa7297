package scan

import (
	"iter"

	"github.com/tremwil/scanner-bench/pattern"
)

// Linear verifies the pattern at every offset. It accepts any pattern,
// including all-wildcard and empty ones; an empty pattern matches at every
// offset from 0 to len(haystack).
type Linear struct{}

func (Linear) String() string { return "linear" }

func (Linear) Index(haystack []byte, p pattern.Pattern) (int, error) {
	return first(func(yield func(int) bool) { linear(haystack, p, yield) }), nil
}

func (Linear) IndexAll(haystack []byte, p pattern.Pattern) (iter.Seq[int], error) {
	return func(yield func(int) bool) { linear(haystack, p, yield) }, nil
}

func linear(h []byte, p pattern.Pattern, yield func(int) bool) {
	for s := 0; s <= len(h)-p.Len(); s++ {
		if p.MatchAt(h[s:]) && !yield(s) {
			return
		}
	}
}

// Package scan locates wildcard-masked byte signatures in binary data.
//
// Three scanners share the Scanner contract:
//
//   - Single filters vector-width chunks on the rarest literal byte of the
//     pattern and verifies each surviving lane.
//   - Multi filters on K literal bytes with distinct values and ANDs their
//     lane masks, which rejects far more candidates per chunk.
//   - Linear checks every offset and accepts any pattern.
//
// Chain composes them, falling through on ErrUnsupportedPattern. NewAuto
// returns the usual Multi, Single, Linear chain.
//
// Scanners are immutable and safe for concurrent use. Every read is bounds
// checked: the vectorized pass runs over an aligned interior computed once
// per call and byte-wise passes cover the unaligned prefix and suffix, so no
// padding is required after the haystack.
package scan

import (
	"iter"

	"github.com/tremwil/scanner-bench/internal/bytealg"
	"github.com/tremwil/scanner-bench/pattern"
)

// Scanner finds occurrences of a pattern in a haystack.
type Scanner interface {
	// Index returns the offset of the leftmost match of p in haystack, or -1
	// if there is none.
	Index(haystack []byte, p pattern.Pattern) (int, error)

	// IndexAll returns every match offset in ascending order, overlapping
	// matches included. The sequence is lazy: breaking out of the range loop
	// stops the scan. Errors are reported before iteration starts.
	IndexAll(haystack []byte, p pattern.Pattern) (iter.Seq[int], error)
}

const (
	// DefaultAnchors is the anchor count used when Config.Anchors is zero.
	DefaultAnchors = 2
	// MaxAnchors bounds Config.Anchors.
	MaxAnchors = 8
)

// Config selects scanner parameters. The zero value is ready to use.
type Config struct {
	// Width is the vector width in bytes: 8, 16, 32 or 64. Zero selects
	// DefaultWidth().
	Width int
	// Anchors is the number of needles Multi filters on, 1 to MaxAnchors.
	// Zero selects DefaultAnchors.
	Anchors int
	// Ranks overrides the default byte frequency table.
	Ranks *Ranks
}

// resolved is a validated Config with its lane kernel.
type resolved struct {
	width   int
	anchors int
	ranks   *Ranks
	kernel  bytealg.Kernel
}

func (c Config) resolve() (resolved, error) {
	r := resolved{width: c.Width, anchors: c.Anchors}
	if r.width == 0 {
		r.width = DefaultWidth()
	}
	if r.kernel = bytealg.KernelFor(r.width); r.kernel == nil {
		return resolved{}, invalidConfig("width %d not in {8, 16, 32, 64}", c.Width)
	}
	if r.anchors == 0 {
		r.anchors = DefaultAnchors
	}
	if r.anchors < 1 || r.anchors > MaxAnchors {
		return resolved{}, invalidConfig("anchors %d not in [1, %d]", c.Anchors, MaxAnchors)
	}
	if c.Ranks == nil {
		r.ranks = &byteRank
	} else {
		ranks := *c.Ranks
		r.ranks = &ranks
	}
	return r, nil
}

// first adapts a match callback to stop at the first offset.
func first(each func(yield func(int) bool)) int {
	idx := -1
	each(func(i int) bool {
		idx = i
		return false
	})
	return idx
}

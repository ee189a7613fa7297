// Package pattern implements wildcard-masked byte signatures.
//
// A pattern is a sequence of (byte, mask) pairs. A mask of 0xFF makes the
// position literal, 0x00 makes it a wildcard. The stored bytes are always
// pre-masked, so a window W matches when (W[i] & mask[i]) == bytes[i] for
// every i.
//
// Three storage variants share the Pattern contract:
//
//   - Basic stores plain byte slices and supports any length.
//   - Chunked stores words grouped into vector-sized blocks and performs one
//     comparison per block.
//   - Small holds a pattern that fits in a single vector and has no block loop.
//
// All variants are immutable after construction and safe for concurrent use.
package pattern

import (
	"bytes"
	"strings"

	"github.com/segmentio/asm/mem"

	"github.com/tremwil/scanner-bench/internal/bytealg"
)

// Pattern is a validated byte/mask pair.
type Pattern interface {
	// Len returns the number of positions in the pattern.
	Len() int
	// Bytes returns the pre-masked pattern bytes. Callers must not modify it.
	Bytes() []byte
	// Mask returns the per-position mask. Callers must not modify it.
	Mask() []byte
	// MatchAt reports whether the pattern matches the first Len() bytes of
	// window. A window shorter than Len() never matches.
	MatchAt(window []byte) bool
	// String formats the pattern as a signature, e.g. "41 ?? 42".
	String() string
}

// Literal reports whether position i of p must match exactly.
func Literal(p Pattern, i int) bool {
	return p.Mask()[i] == 0xff
}

// Literals counts the literal positions of p.
func Literals(p Pattern) int {
	n := 0
	for _, m := range p.Mask() {
		if m == 0xff {
			n++
		}
	}
	return n
}

// premask validates the pair and returns owned copies of the masked bytes
// and the mask.
func premask(raw, mask []byte) ([]byte, []byte, error) {
	if len(raw) != len(mask) {
		return nil, nil, lengthMismatch(len(raw), len(mask))
	}
	b := bytes.Clone(raw)
	m := bytes.Clone(mask)
	if b == nil {
		b, m = []byte{}, []byte{}
	}
	mem.Mask(b, m)
	return b, m, nil
}

// format renders a signature string. Literal bytes are printed in hex,
// wildcards as "??" and partially masked bytes as hex followed by "&mask".
func format(b, mask []byte) string {
	const hex = "0123456789ABCDEF"

	var sb strings.Builder
	sb.Grow(len(b) * 3)
	for i := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		switch mask[i] {
		case 0xff:
			sb.WriteByte(hex[b[i]>>4])
			sb.WriteByte(hex[b[i]&0xf])
		case 0x00:
			sb.WriteString("??")
		default:
			sb.WriteByte(hex[b[i]>>4])
			sb.WriteByte(hex[b[i]&0xf])
			sb.WriteByte('&')
			sb.WriteByte(hex[mask[i]>>4])
			sb.WriteByte(hex[mask[i]&0xf])
		}
	}
	return sb.String()
}

// matchWords compares window against pre-masked words. The final word may be
// partial when the window ends before a word boundary.
func matchWords(window []byte, n int, words, masks []uint64) bool {
	if len(window) < n {
		return false
	}
	last := len(words)
	if len(window) < last*8 {
		last--
	}
	var diff uint64
	for j := 0; j < last; j++ {
		diff |= (bytealg.Load64(window[j*8:]) & masks[j]) ^ words[j]
	}
	if last < len(words) {
		diff |= (bytealg.LoadPartial(window[last*8:n]) & masks[last]) ^ words[last]
	}
	return diff == 0
}

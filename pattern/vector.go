package pattern

import (
	"github.com/tremwil/scanner-bench/internal/bytealg"
)

// Chunked is a pattern of arbitrary length stored as vector-sized blocks of
// little-endian words. Matching costs one comparison per block.
type Chunked struct {
	bytes []byte
	mask  []byte
	words []uint64 // pre-masked bytes, zero padded
	masks []uint64 // mask, zero padded so padding lanes always match
	block int      // words per block
}

// NewChunked builds a Chunked pattern with blocks of width bytes.
func NewChunked(raw, mask []byte, width int) (*Chunked, error) {
	if !bytealg.ValidWidth(width) {
		return nil, invalidWidth(width)
	}
	b, m, err := premask(raw, mask)
	if err != nil {
		return nil, err
	}
	return &Chunked{
		bytes: b,
		mask:  m,
		words: bytealg.Words(b),
		masks: bytealg.Words(m),
		block: width / 8,
	}, nil
}

func (p *Chunked) Len() int { return len(p.bytes) }
func (p *Chunked) Bytes() []byte { return p.bytes }
func (p *Chunked) Mask() []byte { return p.mask }

func (p *Chunked) String() string { return format(p.bytes, p.mask) }

// Width returns the block width in bytes.
func (p *Chunked) Width() int { return p.block * 8 }

func (p *Chunked) MatchAt(window []byte) bool {
	n := len(p.bytes)
	if len(window) < n {
		return false
	}
	full := len(p.words)
	if len(window) < full*8 {
		full--
	}
	for k := 0; k < full; k += p.block {
		end := min(k+p.block, full)
		var diff uint64
		for j := k; j < end; j++ {
			diff |= (bytealg.Load64(window[j*8:]) & p.masks[j]) ^ p.words[j]
		}
		if diff != 0 {
			return false
		}
	}
	if full < len(p.words) {
		return bytealg.LoadPartial(window[full*8:n])&p.masks[full] == p.words[full]
	}
	return true
}

// Small is a pattern that fits in a single vector of at most 64 bytes.
// Matching is a single accumulated comparison with no block loop.
type Small struct {
	bytes []byte
	mask  []byte
	words [bytealg.MaxWidth / 8]uint64
	masks [bytealg.MaxWidth / 8]uint64
	nw    int
	width int
}

// NewSmall builds a Small pattern for vectors of width bytes. It fails with a
// *CapacityError when the pattern is longer than width.
func NewSmall(raw, mask []byte, width int) (*Small, error) {
	if !bytealg.ValidWidth(width) {
		return nil, invalidWidth(width)
	}
	b, m, err := premask(raw, mask)
	if err != nil {
		return nil, err
	}
	if len(b) > width {
		return nil, &CapacityError{Len: len(b), Max: width}
	}
	p := &Small{bytes: b, mask: m, width: width}
	p.nw = copy(p.words[:], bytealg.Words(b))
	copy(p.masks[:], bytealg.Words(m))
	return p, nil
}

func (p *Small) Len() int { return len(p.bytes) }
func (p *Small) Bytes() []byte { return p.bytes }
func (p *Small) Mask() []byte { return p.mask }

func (p *Small) String() string { return format(p.bytes, p.mask) }

// Width returns the vector capacity in bytes.
func (p *Small) Width() int { return p.width }

func (p *Small) MatchAt(window []byte) bool {
	return matchWords(window, len(p.bytes), p.words[:p.nw], p.masks[:p.nw])
}

// Compile picks the fastest variant for the pattern length: Small when it fits
// in one vector of width bytes, Chunked otherwise.
func Compile(raw, mask []byte, width int) (Pattern, error) {
	if !bytealg.ValidWidth(width) {
		return nil, invalidWidth(width)
	}
	if len(raw) <= width && len(mask) <= width {
		return NewSmall(raw, mask, width)
	}
	return NewChunked(raw, mask, width)
}

// Convert rebuilds any pattern as the variant Compile would choose.
func Convert(p Pattern, width int) (Pattern, error) {
	return Compile(p.Bytes(), p.Mask(), width)
}

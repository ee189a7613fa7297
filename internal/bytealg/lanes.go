// Package bytealg implements vector-width byte lanes in plain Go words.
//
// A "vector" of W bytes is processed as W/8 little-endian uint64 words. Lane
// comparisons produce a W-bit mask where bit i is set iff byte i matched, the
// same shape a hardware movemask returns, so callers can walk candidates with
// bits.TrailingZeros64.
package bytealg

import (
	"encoding/binary"
)

const (
	lo7  = 0x7f7f7f7f7f7f7f7f
	ones = 0x0101010101010101

	// packHigh gathers bit 0 of every byte into the top byte of the product.
	packHigh = 0x0102040810204080
)

// MaxWidth is the widest vector a lane mask can describe.
const MaxWidth = 64

// Broadcast replicates b into every byte of a word.
func Broadcast(b byte) uint64 {
	return uint64(b) * ones
}

// ZeroLanes returns an 8-bit mask with bit i set iff byte i of x is zero.
//
// Unlike the classic (x-0x01..)&^x&0x80.. test this is exact for every byte:
// no borrow can leak from a zero byte into its neighbour.
func ZeroLanes(x uint64) uint64 {
	t := (x & lo7) + lo7
	t = ^(t | x | lo7)
	return ((t >> 7) * packHigh) >> 56
}

// Load64 reads 8 bytes of b as a little-endian word.
func Load64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// LoadPartial reads up to 8 bytes of b, zero filling the missing high lanes.
func LoadPartial(b []byte) uint64 {
	if len(b) >= 8 {
		return binary.LittleEndian.Uint64(b)
	}
	var x uint64
	for i := len(b) - 1; i >= 0; i-- {
		x = x<<8 | uint64(b[i])
	}
	return x
}

// Kernel compares every lane of one vector against a broadcast byte and
// returns the lane mask. b must hold at least one vector.
type Kernel func(b []byte, splat uint64) uint64

// KernelFor returns the lane-equality kernel for width, or nil when width is
// not one of 8, 16, 32 or 64.
func KernelFor(width int) Kernel {
	switch width {
	case 8:
		return EqMask8
	case 16:
		return EqMask16
	case 32:
		return EqMask32
	case 64:
		return EqMask64
	}
	return nil
}

// ValidWidth reports whether width has a kernel.
func ValidWidth(width int) bool {
	return KernelFor(width) != nil
}

func EqMask8(b []byte, splat uint64) uint64 {
	return ZeroLanes(binary.LittleEndian.Uint64(b) ^ splat)
}

func EqMask16(b []byte, splat uint64) uint64 {
	_ = b[15] // bounds check hint
	m0 := ZeroLanes(binary.LittleEndian.Uint64(b) ^ splat)
	m1 := ZeroLanes(binary.LittleEndian.Uint64(b[8:]) ^ splat)
	return m0 | m1<<8
}

func EqMask32(b []byte, splat uint64) uint64 {
	_ = b[31]
	m0 := ZeroLanes(binary.LittleEndian.Uint64(b) ^ splat)
	m1 := ZeroLanes(binary.LittleEndian.Uint64(b[8:]) ^ splat)
	m2 := ZeroLanes(binary.LittleEndian.Uint64(b[16:]) ^ splat)
	m3 := ZeroLanes(binary.LittleEndian.Uint64(b[24:]) ^ splat)
	return m0 | m1<<8 | m2<<16 | m3<<24
}

func EqMask64(b []byte, splat uint64) uint64 {
	_ = b[63]
	lo := EqMask32(b, splat)
	hi := EqMask32(b[32:], splat)
	return lo | hi<<32
}

// Words splits b into little-endian words, zero padding the final one.
func Words(b []byte) []uint64 {
	w := make([]uint64, (len(b)+7)/8)
	for i := range w {
		w[i] = LoadPartial(b[i*8:])
	}
	return w
}

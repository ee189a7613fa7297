//go:build amd64

package scan

import (
	"github.com/segmentio/asm/cpu"
	"github.com/segmentio/asm/cpu/x86"
)

func cpuWidth() int {
	switch {
	case cpu.X86.Has(x86.AVX512BW):
		return 64
	case cpu.X86.Has(x86.AVX2):
		return 32
	}
	return 16 // SSE2 is baseline
}

//go:build arm64

package scan

import "golang.org/x/sys/cpu"

func cpuWidth() int {
	if cpu.ARM64.HasASIMD {
		return 16
	}
	return 8
}

//go:build !amd64 && !arm64

package scan

func cpuWidth() int { return 8 }

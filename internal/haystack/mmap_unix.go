//go:build unix

package haystack

import (
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(path string) ([]byte, func([]byte) error, Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, "", err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, nil, "", err
	}
	size := fi.Size()
	if size == 0 || !fi.Mode().IsRegular() {
		// nothing to map; pipes and devices are read instead
		data, err := os.ReadFile(path)
		return data, nil, KindRead, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, "", err
	}
	// advisory; scans are one forward pass
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return data, unix.Munmap, KindMmap, nil
}

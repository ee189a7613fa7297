//go:build !unix

package haystack

import "os"

func mapFile(path string) ([]byte, func([]byte) error, Kind, error) {
	data, err := os.ReadFile(path)
	return data, nil, KindRead, err
}

package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPattern is returned when a scanner's algorithm cannot be
	// applied to a pattern, e.g. a pattern without enough literal bytes. It is
	// distinct from "no match": callers fall back to a scanner with weaker
	// requirements.
	ErrUnsupportedPattern = errors.New("scan: unsupported pattern")

	// ErrInvalidConfig is returned by constructors given an unusable Config.
	ErrInvalidConfig = errors.New("scan: invalid config")
)

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

// UnsupportedError reports that a pattern has fewer distinct literal bytes
// than the anchors a scanner needs.
type UnsupportedError struct {
	Need int // anchors required
	Have int // distinct literal byte values in the pattern
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("scan: unsupported pattern: need %d distinct literal bytes, have %d", e.Need, e.Have)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupportedPattern }

// BoundsError reports a match offset outside the haystack, produced by a
// backend that is not bounds-checked by construction.
type BoundsError struct {
	Offset   int
	Haystack int // haystack length
	Pattern  int // pattern length
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("scan: offset %d out of bounds (haystack %d, pattern %d)", e.Offset, e.Haystack, e.Pattern)
}

// CheckBounds validates an offset reported for a pattern of length n in a
// haystack of length h. -1 is accepted as "no match".
func CheckBounds(offset, h, n int) error {
	if offset == -1 || (offset >= 0 && offset <= h-n) {
		return nil
	}
	return &BoundsError{Offset: offset, Haystack: h, Pattern: n}
}

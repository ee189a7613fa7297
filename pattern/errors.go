package pattern

import (
	"errors"
	"fmt"
)

var (
	// ErrConstruction is matched by every error returned while building a
	// pattern.
	ErrConstruction = errors.New("pattern: invalid construction")

	// ErrLengthMismatch is returned when bytes and mask differ in length.
	ErrLengthMismatch = fmt.Errorf("%w: bytes and mask length differ", ErrConstruction)

	// ErrInvalidWidth is returned for a vector width other than 8, 16, 32 or 64.
	ErrInvalidWidth = fmt.Errorf("%w: unsupported vector width", ErrConstruction)
)

func lengthMismatch(nb, nm int) error {
	return fmt.Errorf("%w (%d bytes, %d mask)", ErrLengthMismatch, nb, nm)
}

func invalidWidth(w int) error {
	return fmt.Errorf("%w: %d", ErrInvalidWidth, w)
}

// CapacityError is returned when a pattern is too long for a size-bounded
// variant.
type CapacityError struct {
	Len int // pattern length
	Max int // variant capacity
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("pattern: length %d exceeds capacity %d", e.Len, e.Max)
}

func (e *CapacityError) Unwrap() error { return ErrConstruction }

// SyntaxError reports a malformed signature string.
type SyntaxError struct {
	Offset int    // byte offset of the token in the input
	Token  string // offending token, empty for input-level errors
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("pattern: syntax error at %d: %s", e.Offset, e.Msg)
	}
	return fmt.Sprintf("pattern: syntax error at %d: %s %q", e.Offset, e.Msg, e.Token)
}

func (e *SyntaxError) Unwrap() error { return ErrConstruction }

// Package dynlib adapts an externally supplied scan routine, typically one
// loaded at runtime from a Go plugin, to the scan.Scanner contract.
//
// The routine is not trusted to stay in bounds: every offset it reports is
// checked against the haystack and pattern lengths, and an out-of-range
// offset surfaces as a *scan.BoundsError.
//
// A Scanner is owned by its caller, who must Close it when done.
package dynlib

import (
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"plugin"
	"sync/atomic"

	"github.com/tremwil/scanner-bench/pattern"
	"github.com/tremwil/scanner-bench/scan"
)

// Symbol is the name Open looks up in a plugin.
const Symbol = "Scan"

// ErrClosed is returned when scanning with a closed Scanner.
var ErrClosed = errors.New("dynlib: scanner closed")

// ScanFunc returns the offset of the first window of region matching the
// pre-masked bytes under mask, or -1.
type ScanFunc func(region, bytes, mask []byte) int

// Scanner wraps a ScanFunc. Close must not race with in-flight scans.
type Scanner struct {
	name    string
	fn      ScanFunc
	release func() error
	closed  atomic.Bool
}

// New wraps fn. release, if non-nil, runs once on the first Close.
func New(name string, fn ScanFunc, release func() error) *Scanner {
	return &Scanner{name: name, fn: fn, release: release}
}

// Open loads the Go plugin at path and wraps its exported Scan function,
// declared either as a func or as a variable of type
// func(region, bytes, mask []byte) int.
func Open(path string) (*Scanner, error) {
	pl, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dynlib: open %s: %w", path, err)
	}
	sym, err := pl.Lookup(Symbol)
	if err != nil {
		return nil, fmt.Errorf("dynlib: %s: %w", path, err)
	}

	var fn ScanFunc
	switch f := sym.(type) {
	case func([]byte, []byte, []byte) int:
		fn = f
	case *func([]byte, []byte, []byte) int:
		fn = *f
	case *ScanFunc:
		fn = *f
	default:
		return nil, fmt.Errorf("dynlib: %s: symbol %s has type %T", path, Symbol, sym)
	}
	if fn == nil {
		return nil, fmt.Errorf("dynlib: %s: symbol %s is nil", path, Symbol)
	}
	// Go plugins cannot be unloaded.
	return New(filepath.Base(path), fn, nil), nil
}

func (s *Scanner) String() string { return "dynlib/" + s.name }

// Close releases the routine. It is idempotent.
func (s *Scanner) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.release != nil {
		return s.release()
	}
	return nil
}

func (s *Scanner) Index(haystack []byte, p pattern.Pattern) (int, error) {
	if s.closed.Load() {
		return -1, ErrClosed
	}
	return s.next(haystack, p, 0)
}

// IndexAll calls the routine repeatedly, resuming one byte past each hit.
// The sequence ends early at an out-of-range offset; use All to observe the
// error.
func (s *Scanner) IndexAll(haystack []byte, p pattern.Pattern) (iter.Seq[int], error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return func(yield func(int) bool) {
		for off, err := range s.all(haystack, p) {
			if err != nil || !yield(off) {
				return
			}
		}
	}, nil
}

// All is like IndexAll but yields a final (-1, err) pair when the routine
// misbehaves or the scanner is closed.
func (s *Scanner) All(haystack []byte, p pattern.Pattern) iter.Seq2[int, error] {
	return s.all(haystack, p)
}

func (s *Scanner) all(h []byte, p pattern.Pattern) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		if s.closed.Load() {
			yield(-1, ErrClosed)
			return
		}
		for from := 0; from <= len(h)-p.Len(); {
			off, err := s.next(h, p, from)
			if err != nil {
				yield(-1, err)
				return
			}
			if off < 0 || !yield(off, nil) {
				return
			}
			from = off + 1
		}
	}
}

// next runs the routine on h[from:] and returns an absolute offset.
func (s *Scanner) next(h []byte, p pattern.Pattern, from int) (int, error) {
	n := p.Len()
	if len(h)-from < n {
		return -1, nil
	}
	off := s.fn(h[from:], p.Bytes(), p.Mask())
	if err := scan.CheckBounds(off, len(h)-from, n); err != nil {
		return -1, err
	}
	if off < 0 {
		return -1, nil
	}
	return from + off, nil
}

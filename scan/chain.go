package scan

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/tremwil/scanner-bench/pattern"
)

// Chain tries scanners in order, moving to the next one only when a scanner
// reports ErrUnsupportedPattern. Any other error is returned as is.
type Chain struct {
	scanners []Scanner
}

// NewChain returns a chain over scanners.
func NewChain(scanners ...Scanner) *Chain {
	return &Chain{scanners: scanners}
}

// NewAuto returns the chain Multi(cfg.Anchors), Single, Linear. With a single
// anchor Multi is left out since Single covers it.
func NewAuto(cfg Config) (*Chain, error) {
	single, err := NewSingle(cfg)
	if err != nil {
		return nil, err
	}
	multi, err := NewMulti(cfg)
	if err != nil {
		return nil, err
	}
	if multi.Anchors() == 1 {
		return NewChain(single, Linear{}), nil
	}
	return NewChain(multi, single, Linear{}), nil
}

func (c *Chain) String() string {
	names := make([]string, len(c.scanners))
	for i, s := range c.scanners {
		names[i] = Name(s)
	}
	return strings.Join(names, ">")
}

// Scanners returns the chain members in order.
func (c *Chain) Scanners() []Scanner { return c.scanners }

func (c *Chain) Index(haystack []byte, p pattern.Pattern) (int, error) {
	err := ErrUnsupportedPattern
	for _, s := range c.scanners {
		var idx int
		idx, err = s.Index(haystack, p)
		if !errors.Is(err, ErrUnsupportedPattern) {
			return idx, err
		}
	}
	return -1, err
}

func (c *Chain) IndexAll(haystack []byte, p pattern.Pattern) (iter.Seq[int], error) {
	err := ErrUnsupportedPattern
	for _, s := range c.scanners {
		var seq iter.Seq[int]
		seq, err = s.IndexAll(haystack, p)
		if !errors.Is(err, ErrUnsupportedPattern) {
			return seq, err
		}
	}
	return nil, err
}

// Select returns the first scanner of the chain that accepts p, probing with
// an empty haystack.
func (c *Chain) Select(p pattern.Pattern) (Scanner, error) {
	err := ErrUnsupportedPattern
	for _, s := range c.scanners {
		if _, err = s.Index(nil, p); !errors.Is(err, ErrUnsupportedPattern) {
			return s, err
		}
	}
	return nil, err
}

// Name returns a short label for s, e.g. "multi/2x32".
func Name(s Scanner) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%T", s)
}

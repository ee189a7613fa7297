package pattern

// Basic is a pattern of arbitrary length stored as byte slices.
type Basic struct {
	bytes []byte
	mask  []byte
}

// New builds a pattern from raw bytes and a mask of equal length.
func New(raw, mask []byte) (*Basic, error) {
	b, m, err := premask(raw, mask)
	if err != nil {
		return nil, err
	}
	return &Basic{bytes: b, mask: m}, nil
}

// FromBytes builds a pattern in which every position is literal.
func FromBytes(raw []byte) *Basic {
	mask := make([]byte, len(raw))
	for i := range mask {
		mask[i] = 0xff
	}
	p, _ := New(raw, mask)
	return p
}

// MustNew is like New but panics on error.
func MustNew(raw, mask []byte) *Basic {
	p, err := New(raw, mask)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Basic) Len() int { return len(p.bytes) }
func (p *Basic) Bytes() []byte { return p.bytes }
func (p *Basic) Mask() []byte { return p.mask }

func (p *Basic) String() string { return format(p.bytes, p.mask) }

func (p *Basic) MatchAt(window []byte) bool {
	if len(window) < len(p.bytes) {
		return false
	}
	window = window[:len(p.bytes)]
	for i, b := range p.bytes {
		if window[i]&p.mask[i] != b {
			return false
		}
	}
	return true
}

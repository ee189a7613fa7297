package pattern

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var widths = []int{8, 16, 32, 64}

// variants builds every storage variant that can hold the pair.
func variants(t testing.TB, raw, mask []byte) []Pattern {
	t.Helper()
	b, err := New(raw, mask)
	require.NoError(t, err)
	out := []Pattern{b}
	for _, w := range widths {
		c, err := NewChunked(raw, mask, w)
		require.NoError(t, err)
		out = append(out, c)
		if len(raw) <= w {
			s, err := NewSmall(raw, mask, w)
			require.NoError(t, err)
			out = append(out, s)
		}
	}
	return out
}

func reference(raw, mask, window []byte) bool {
	for i := range raw {
		if mask[i] != 0 && window[i] != raw[i] {
			return false
		}
	}
	return true
}

func TestConstructionValidation(t *testing.T) {
	_, err := New(make([]byte, 5), make([]byte, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLengthMismatch)
	assert.ErrorIs(t, err, ErrConstruction)

	for _, w := range widths {
		_, err = NewChunked(make([]byte, 5), make([]byte, 4), w)
		assert.ErrorIs(t, err, ErrLengthMismatch)

		_, err = NewSmall(make([]byte, w+1), make([]byte, w+1), w)
		var ce *CapacityError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, w+1, ce.Len)
		assert.Equal(t, w, ce.Max)
		assert.ErrorIs(t, err, ErrConstruction)

		_, err = NewSmall(make([]byte, w), make([]byte, w), w)
		assert.NoError(t, err)
	}

	for _, w := range []int{0, 4, 24, 128} {
		_, err = NewChunked(nil, nil, w)
		assert.ErrorIs(t, err, ErrInvalidWidth)
		_, err = NewSmall(nil, nil, w)
		assert.ErrorIs(t, err, ErrInvalidWidth)
		_, err = Compile(nil, nil, w)
		assert.ErrorIs(t, err, ErrInvalidWidth)
	}
}

func TestPremasked(t *testing.T) {
	raw := []byte{0x41, 0x99, 0x42, 0xff}
	mask := []byte{0xff, 0x00, 0xff, 0x0f}
	for _, p := range variants(t, raw, mask) {
		assert.Equal(t, []byte{0x41, 0x00, 0x42, 0x0f}, p.Bytes(), "%T", p)
		assert.Equal(t, mask, p.Mask(), "%T", p)
		assert.Equal(t, 4, p.Len(), "%T", p)
	}
	// inputs are copied
	assert.Equal(t, byte(0x99), raw[1])
}

func TestMatchAtScenario(t *testing.T) {
	raw := []byte{0x41, 0x00, 0x42}
	mask := []byte{0xff, 0x00, 0xff}
	hay := []byte{0x00, 0x01, 0x02, 0x41, 0x00, 0x42, 0x03}
	for _, p := range variants(t, raw, mask) {
		assert.True(t, p.MatchAt(hay[3:]), "%T", p)
		assert.True(t, p.MatchAt(hay[3:6]), "%T exact window", p)
		assert.False(t, p.MatchAt(hay[2:]), "%T", p)
		assert.False(t, p.MatchAt(hay[4:]), "%T", p)
		assert.False(t, p.MatchAt(hay[3:5]), "%T short window", p)
	}
}

func TestMaskedEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 500; iter++ {
		n := 1 + rng.Intn(150)
		raw := make([]byte, n)
		mask := make([]byte, n)
		for i := range raw {
			raw[i] = byte(rng.Intn(3))
			if rng.Intn(3) > 0 {
				mask[i] = 0xff
			}
		}
		ps := variants(t, raw, mask)
		for trial := 0; trial < 20; trial++ {
			// windows of exactly n bytes exercise the partial word path
			window := make([]byte, n+rng.Intn(9))
			for i := range window {
				window[i] = byte(rng.Intn(3))
			}
			if trial%4 == 0 {
				copy(window, raw)
			}
			want := reference(raw, mask, window)
			for _, p := range ps {
				if got := p.MatchAt(window); got != want {
					t.Fatalf("%T(len=%d).MatchAt(window len=%d) = %v, want %v", p, n, len(window), got, want)
				}
			}
		}
	}
}

func TestPartialMask(t *testing.T) {
	// high nibble only
	raw := []byte{0x40, 0x12}
	mask := []byte{0xf0, 0xff}
	for _, p := range variants(t, raw, mask) {
		assert.True(t, p.MatchAt([]byte{0x4c, 0x12}), "%T", p)
		assert.False(t, p.MatchAt([]byte{0x5c, 0x12}), "%T", p)
	}
}

func TestEmptyPattern(t *testing.T) {
	for _, p := range variants(t, nil, nil) {
		assert.Equal(t, 0, p.Len())
		assert.True(t, p.MatchAt(nil), "%T", p)
		assert.Equal(t, "", p.String())
	}
}

func TestCompileChoosesVariant(t *testing.T) {
	for _, w := range widths {
		p, err := Compile(make([]byte, w), make([]byte, w), w)
		require.NoError(t, err)
		assert.IsType(t, &Small{}, p)

		p, err = Compile(make([]byte, w+1), make([]byte, w+1), w)
		require.NoError(t, err)
		assert.IsType(t, &Chunked{}, p)
		assert.Equal(t, w, p.(*Chunked).Width())
	}

	_, err := Compile(make([]byte, 3), make([]byte, 2), 16)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestConvert(t *testing.T) {
	b := MustParse("48 8B ?? 05")
	p, err := Convert(b, 32)
	require.NoError(t, err)
	assert.Equal(t, b.Bytes(), p.Bytes())
	assert.Equal(t, b.Mask(), p.Mask())
	assert.Equal(t, b.String(), p.String())
}

func TestLiterals(t *testing.T) {
	p := MustParse("41 ?? 42 ? 43")
	assert.Equal(t, 3, Literals(p))
	assert.True(t, Literal(p, 0))
	assert.False(t, Literal(p, 1))
	assert.Equal(t, 0, Literals(MustParse("?? ??")))
}

func TestFromBytes(t *testing.T) {
	p := FromBytes([]byte{0x10, 0x20})
	assert.Equal(t, []byte{0xff, 0xff}, p.Mask())
	assert.Equal(t, "10 20", p.String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		sig  string
		raw  []byte
		mask []byte
	}{
		{"41 ?? 42", []byte{0x41, 0, 0x42}, []byte{0xff, 0, 0xff}},
		{"  48 8b\t? 05 ", []byte{0x48, 0x8b, 0, 0x05}, []byte{0xff, 0xff, 0, 0xff}},
		{"ff", []byte{0xff}, []byte{0xff}},
		{"?", []byte{0}, []byte{0}},
	}
	for _, tt := range tests {
		t.Run(tt.sig, func(t *testing.T) {
			p, err := Parse(tt.sig)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, p.Bytes())
			assert.Equal(t, tt.mask, p.Mask())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		sig    string
		offset int
	}{
		{"", 0},
		{"   ", 0},
		{"41 4", 3},
		{"41 GG", 3},
		{"41 ???", 3},
		{"414", 0},
		{"41 \x01", 3},
		{"41 é", 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.sig), func(t *testing.T) {
			_, err := Parse(tt.sig)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.offset, se.Offset)
			assert.True(t, errors.Is(err, ErrConstruction))
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, sig := range []string{
		"48 89 5C 24 ?? 48 88 74 24 ?? 57 48 83 EC ?? 48 8B 01 48 8B F9 32 DB",
		"?? 00 FF",
		"E8",
	} {
		p := MustParse(sig)
		assert.Equal(t, sig, p.String())
		q := MustParse(p.String())
		assert.Equal(t, p.Bytes(), q.Bytes())
	}
	p := MustNew([]byte{0x4f}, []byte{0xf0})
	assert.Equal(t, "40&F0", p.String())
}

func BenchmarkMatchAt(b *testing.B) {
	sig := MustParse("48 89 5C 24 ?? 48 88 74 24 ?? 57 48 83 EC ?? 48 8B 01 48 8B F9 32 DB")
	window := make([]byte, 64)
	copy(window, sig.Bytes())
	ps := map[string]Pattern{"basic": sig}
	for _, w := range widths {
		p, err := Compile(sig.Bytes(), sig.Mask(), w)
		require.NoError(b, err)
		ps[fmt.Sprintf("%T/%d", p, w)] = p
	}
	for name, p := range ps {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if !p.MatchAt(window) {
					b.Fatal("no match")
				}
			}
		})
	}
}

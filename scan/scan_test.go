package scan

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tremwil/scanner-bench/pattern"
)

var widths = []int{8, 16, 32, 64}

// vectorScanners returns Single and Multi(k) for every width, k in 1..4.
func vectorScanners(t testing.TB) []Scanner {
	t.Helper()
	var out []Scanner
	for _, w := range widths {
		s, err := NewSingle(Config{Width: w})
		require.NoError(t, err)
		out = append(out, s)
		for k := 1; k <= 4; k++ {
			m, err := NewMulti(Config{Width: w, Anchors: k})
			require.NoError(t, err)
			out = append(out, m)
		}
	}
	return out
}

func collect(t testing.TB, s Scanner, h []byte, p pattern.Pattern) []int {
	t.Helper()
	seq, err := s.IndexAll(h, p)
	require.NoError(t, err)
	return slices.Collect(seq)
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name string
		h    []byte
		p    pattern.Pattern
		want []int
	}{
		{
			name: "wildcard skips",
			h:    []byte{0x00, 0x01, 0x02, 0x41, 0x00, 0x42, 0x03},
			p:    pattern.MustNew([]byte{0x41, 0x00, 0x42}, []byte{0xff, 0x00, 0xff}),
			want: []int{3},
		},
		{
			name: "no match",
			h:    []byte{0xAA, 0xAA, 0xAA, 0xAA},
			p:    pattern.MustNew([]byte{0xBB}, []byte{0xff}),
			want: nil,
		},
		{
			name: "all matches",
			h:    []byte{0x10, 0x20, 0x30, 0x10, 0x20, 0x30},
			p:    pattern.FromBytes([]byte{0x10, 0x20}),
			want: []int{0, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range append(vectorScanners(t), Linear{}) {
				idx, err := s.Index(tt.h, tt.p)
				if errors.Is(err, ErrUnsupportedPattern) {
					continue
				}
				require.NoError(t, err)
				want := -1
				if len(tt.want) > 0 {
					want = tt.want[0]
				}
				assert.Equal(t, want, idx, Name(s))

				seq, err := s.IndexAll(tt.h, tt.p)
				require.NoError(t, err)
				assert.Equal(t, tt.want, slices.Collect(seq), Name(s))
			}
		})
	}
}

func TestMultiUnsupported(t *testing.T) {
	m, err := NewMulti(Config{Width: 16, Anchors: 2})
	require.NoError(t, err)
	p := pattern.MustParse("41 ?? ??")

	_, err = m.Index([]byte("xxAxx"), p)
	assert.ErrorIs(t, err, ErrUnsupportedPattern)
	_, err = m.IndexAll([]byte("xxAxx"), p)
	assert.ErrorIs(t, err, ErrUnsupportedPattern)

	s, err := NewSingle(Config{Width: 16})
	require.NoError(t, err)
	_, err = s.Index(nil, pattern.MustParse("?? ??"))
	assert.ErrorIs(t, err, ErrUnsupportedPattern)
	_, err = s.IndexAll(nil, pattern.FromBytes(nil))
	assert.ErrorIs(t, err, ErrUnsupportedPattern)
}

// randomCase returns a haystack over a small alphabet and a pattern that
// usually occurs in it, so both hits and near misses are frequent.
func randomCase(rng *rand.Rand) ([]byte, pattern.Pattern) {
	h := make([]byte, rng.Intn(400))
	for i := range h {
		h[i] = byte(rng.Intn(4))
	}
	n := 1 + rng.Intn(24)
	raw := make([]byte, n)
	if len(h) >= n && rng.Intn(4) > 0 {
		copy(raw, h[rng.Intn(len(h)-n+1):])
	} else {
		for i := range raw {
			raw[i] = byte(rng.Intn(4))
		}
	}
	mask := make([]byte, n)
	for i := range mask {
		if rng.Intn(3) > 0 {
			mask[i] = 0xff
		}
	}
	return h, pattern.MustNew(raw, mask)
}

func TestAgreesWithLinear(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	scanners := vectorScanners(t)
	for iter := 0; iter < 2000; iter++ {
		h, p := randomCase(rng)
		// shift the haystack start across alignments
		h = h[min(len(h), rng.Intn(8)):]
		want := collect(t, Linear{}, h, p)
		wantFirst := -1
		if len(want) > 0 {
			wantFirst = want[0]
		}
		for _, s := range scanners {
			idx, err := s.Index(h, p)
			if err != nil {
				assert.ErrorIs(t, err, ErrUnsupportedPattern)
				continue
			}
			if idx != wantFirst {
				t.Fatalf("%s.Index(%x, %v) = %d, want %d", Name(s), h, p, idx, wantFirst)
			}
			got := collect(t, s, h, p)
			if !slices.Equal(got, want) {
				t.Fatalf("%s.IndexAll(%x, %v) = %v, want %v", Name(s), h, p, got, want)
			}
		}
	}
}

func TestBoundaryMatches(t *testing.T) {
	p := pattern.MustParse("E8 ?? ?? ?? ?? 90")
	buf := make([]byte, 256)
	for off := 0; off < 64; off++ {
		for _, size := range []int{6, 7, 31, 100, 150} {
			h := buf[off : off+size]
			for i := range h {
				h[i] = 0xCC
			}
			h[0], h[5] = 0xE8, 0x90
			last := size - 6
			h[last], h[last+5] = 0xE8, 0x90
			want := []int{0}
			if last > 0 {
				want = append(want, last)
			}
			for _, s := range vectorScanners(t) {
				if m, ok := s.(*Multi); ok && m.Anchors() > 2 {
					continue
				}
				if got := collect(t, s, h, p); !slices.Equal(got, want) {
					t.Fatalf("%s: offset %d size %d: got %v, want %v", Name(s), off, size, got, want)
				}
			}
		}
	}
}

func TestPatternLongerThanHaystack(t *testing.T) {
	p := pattern.MustParse("41 42 43")
	for _, s := range append(vectorScanners(t), Linear{}) {
		for _, h := range [][]byte{nil, {}, []byte("AB")} {
			idx, err := s.Index(h, p)
			if err != nil {
				continue
			}
			assert.Equal(t, -1, idx, Name(s))
			assert.Empty(t, collect(t, s, h, p), Name(s))
		}
	}
}

func TestIndexAllOverlapping(t *testing.T) {
	h := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	p := pattern.MustParse("61 ?? 61")
	want := make([]int, 0, len(h)-2)
	for i := 0; i <= len(h)-3; i++ {
		want = append(want, i)
	}
	for _, s := range []Scanner{Linear{}, mustSingle(t, 16), mustSingle(t, 64)} {
		assert.Equal(t, want, collect(t, s, h, p), Name(s))
	}
}

func TestIndexAllEarlyStop(t *testing.T) {
	h := make([]byte, 1000)
	for i := 0; i < len(h); i += 10 {
		h[i] = 0x7F
	}
	p := pattern.MustParse("7F ?? 00")
	for _, s := range append(vectorScanners(t), Linear{}) {
		seq, err := s.IndexAll(h, p)
		if err != nil {
			continue
		}
		var got []int
		for i := range seq {
			got = append(got, i)
			if len(got) == 3 {
				break
			}
		}
		assert.Equal(t, []int{0, 10, 20}, got, Name(s))
	}
}

func TestEmptyPattern(t *testing.T) {
	p := pattern.FromBytes(nil)
	assert.Equal(t, []int{0, 1, 2, 3}, collect(t, Linear{}, []byte("abc"), p))

	auto, err := NewAuto(Config{Width: 16})
	require.NoError(t, err)
	idx, err := auto.Index([]byte("abc"), p)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestChain(t *testing.T) {
	auto, err := NewAuto(Config{Width: 32, Anchors: 3})
	require.NoError(t, err)
	assert.Equal(t, "multi/3x32>single/32>linear", auto.String())

	tests := []struct {
		sig  string
		want string
	}{
		{"48 8B 05 ?? ?? ?? ?? 48 85 C0", "multi/3x32"},
		{"41 ?? 41 42", "single/32"},
		{"?? ??", "linear"},
	}
	h := []byte("xx\x48\x8b\x05\x01\x02\x03\x04\x48\x85\xc0 AxAB ")
	for _, tt := range tests {
		p := pattern.MustParse(tt.sig)
		s, err := auto.Select(p)
		require.NoError(t, err)
		assert.Equal(t, tt.want, Name(s), tt.sig)

		want, _ := Linear{}.Index(h, p)
		got, err := auto.Index(h, p)
		require.NoError(t, err)
		assert.Equal(t, want, got, tt.sig)

		seq, err := auto.IndexAll(h, p)
		require.NoError(t, err)
		assert.Equal(t, collect(t, Linear{}, h, p), slices.Collect(seq), tt.sig)
	}

	single, err := NewAuto(Config{Width: 8, Anchors: 1})
	require.NoError(t, err)
	assert.Equal(t, "single/8>linear", single.String())

	_, err = NewChain().Index(h, pattern.MustParse("41"))
	assert.ErrorIs(t, err, ErrUnsupportedPattern)
}

func TestConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Width: 12},
		{Width: 128},
		{Width: -8},
		{Anchors: MaxAnchors + 1},
		{Anchors: -1},
	} {
		_, err := NewMulti(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig, "%+v", cfg)
		_, err = NewAuto(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig, "%+v", cfg)
	}

	// Single ignores the anchor count.
	_, err := NewSingle(Config{Anchors: 99})
	assert.NoError(t, err)

	m, err := NewMulti(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultAnchors, m.Anchors())
	assert.Equal(t, DefaultWidth(), m.Width())
}

func TestConfigRanksCopied(t *testing.T) {
	ranks := flatRanks(map[byte]byte{0x42: 0})
	s, err := NewSingle(Config{Width: 16, Ranks: ranks})
	require.NoError(t, err)
	ranks[0x42] = 200

	a, ok := selectAnchor(pattern.MustParse("41 42"), s.ranks)
	require.True(t, ok)
	assert.Equal(t, byte(0x42), a.value)
}

func TestDefaultWidth(t *testing.T) {
	native := cpuWidth()
	assert.True(t, slices.Contains(widths, native))

	for _, tt := range []struct {
		env  string
		want int
	}{
		{"8", 8},
		{" 64 ", 64},
		{"7", native},
		{"avx2", native},
		{"", native},
	} {
		t.Setenv(WidthEnv, tt.env)
		assert.Equal(t, tt.want, DefaultWidth(), "%s=%q", WidthEnv, tt.env)
	}
}

func TestRanks(t *testing.T) {
	d := DefaultRanks()
	assert.Equal(t, byte(0xFF), d[0x00])
	assert.Equal(t, byte(0x00), d[0x9A])
	assert.Equal(t, byte(0xFD), d[0xFF])
	d[0] = 0
	assert.Equal(t, byte(0xFF), byteRank[0], "DefaultRanks must return a copy")

	r := BuildRanks([]byte("aab"))
	assert.Equal(t, byte(255), r['a'])
	assert.Equal(t, byte(127), r['b'])
	assert.Equal(t, byte(0), r['c'])
	assert.Equal(t, Ranks{}, BuildRanks(nil))
}

func TestCheckBounds(t *testing.T) {
	assert.NoError(t, CheckBounds(-1, 10, 3))
	assert.NoError(t, CheckBounds(0, 10, 3))
	assert.NoError(t, CheckBounds(7, 10, 3))

	for _, off := range []int{8, -2, 100} {
		err := CheckBounds(off, 10, 3)
		var be *BoundsError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, off, be.Offset)
	}
}

func mustSingle(t testing.TB, w int) *Single {
	t.Helper()
	s, err := NewSingle(Config{Width: w})
	require.NoError(t, err)
	return s
}

func FuzzIndex(f *testing.F) {
	f.Add([]byte{0x00, 0x01, 0x02, 0x41, 0x00, 0x42, 0x03}, []byte{0x41, 0x00, 0x42}, uint64(0b101), uint8(0))
	f.Add([]byte{0x10, 0x20, 0x30, 0x10, 0x20, 0x30}, []byte{0x10, 0x20}, uint64(0b11), uint8(5))
	f.Add(make([]byte, 200), []byte{0, 0, 0, 1}, uint64(0b1011), uint8(15))

	f.Fuzz(func(t *testing.T, h, raw []byte, bits uint64, sel uint8) {
		if len(raw) > 128 {
			t.Skip()
		}
		mask := make([]byte, len(raw))
		for i := range mask {
			if bits>>(i%64)&1 != 0 {
				mask[i] = 0xff
			}
		}
		p := pattern.MustNew(raw, mask)
		want, _ := Linear{}.Index(h, p)

		w := widths[sel%4]
		k := int(sel/4)%MaxAnchors + 1
		m, err := NewMulti(Config{Width: w, Anchors: k})
		require.NoError(t, err)
		for _, s := range []Scanner{mustSingle(t, w), m} {
			got, err := s.Index(h, p)
			if err != nil {
				continue
			}
			if got != want {
				t.Fatalf("%s.Index(%x, %v) = %d, want %d", Name(s), h, p, got, want)
			}
		}
	})
}

// machineCode returns a haystack with a byte distribution resembling x86-64
// code: mostly bytes the default table ranks as common.
func machineCode(n int) []byte {
	rng := rand.New(rand.NewSource(42))
	common := []byte{0x00, 0xFF, 0x48, 0x8B, 0x89, 0xCC, 0xE8, 0x0F, 0x85, 0x24, 0x4C, 0xC3, 0x01, 0x08}
	h := make([]byte, n)
	for i := range h {
		if rng.Intn(8) == 0 {
			h[i] = byte(rng.Intn(256))
		} else {
			h[i] = common[rng.Intn(len(common))]
		}
	}
	return h
}

func BenchmarkIndex(b *testing.B) {
	const size = 1 << 20
	h := machineCode(size)
	p := pattern.MustParse("48 89 5C 24 ?? 48 89 74 24 ?? 57 48 83 EC ?? 48 8B 01 48 8B F9 32 DB")
	copy(h[size-p.Len():], p.Bytes())

	scanners := []Scanner{Linear{}}
	for _, w := range widths {
		scanners = append(scanners, mustSingle(b, w))
		for _, k := range []int{2, 4} {
			m, err := NewMulti(Config{Width: w, Anchors: k})
			require.NoError(b, err)
			scanners = append(scanners, m)
		}
	}
	for _, s := range scanners {
		b.Run(Name(s), func(b *testing.B) {
			b.SetBytes(size)
			for i := 0; i < b.N; i++ {
				idx, err := s.Index(h, p)
				if err != nil || idx != size-p.Len() {
					b.Fatalf("Index = %d, %v", idx, err)
				}
			}
		})
	}
}

func BenchmarkSelectNeedles(b *testing.B) {
	p := pattern.MustParse("48 89 5C 24 ?? 48 89 74 24 ?? 57 48 83 EC ?? 48 8B 01 48 8B F9 32 DB")
	for _, k := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("k=%d", k), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := selectNeedles(p, &byteRank, k); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

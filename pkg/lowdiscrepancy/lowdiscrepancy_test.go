package lowdiscrepancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMortonRoundTrip(t *testing.T) {
	cases := []struct{ x, y uint32 }{
		{0, 0}, {1, 0}, {0, 1}, {1, 1},
		{15, 7}, {255, 255}, {1023, 511}, {65535, 65535},
	}
	for _, c := range cases {
		m := EncodeMorton2(c.x, c.y)
		x, y := DecodeMorton2(m)
		assert.Equal(t, c.x, x)
		assert.Equal(t, c.y, y)
	}
}

// Z-order must be a bijection over a tile: every pixel of a 16x16 tile is
// visited exactly once by the first 256 Morton indices.
func TestMortonCoversTile(t *testing.T) {
	seen := make(map[[2]uint32]bool)
	for i := uint64(0); i < 256; i++ {
		x, y := DecodeMorton2(i)
		require.Less(t, x, uint32(16))
		require.Less(t, y, uint32(16))
		seen[[2]uint32{x, y}] = true
	}
	assert.Len(t, seen, 256)
}

// Dimension 0 is the van der Corput sequence; the Gray-code construction
// permutes the order of indices within a power-of-two block but produces
// the same point set.
func TestSobolDimensionZeroPointSet(t *testing.T) {
	got := map[float64]bool{}
	for i := uint32(0); i < 4; i++ {
		got[SobolSampleFloat(i, 0)] = true
	}
	for _, want := range []float64{0.0, 0.25, 0.5, 0.75} {
		assert.True(t, got[want], "missing point %v", want)
	}
}

// Each Sobol dimension is a (0,1)-sequence in base 2: the first 2^m
// samples land in 2^m distinct equal-width strata.
func TestSobolStratification(t *testing.T) {
	const m = 16
	for dim := 0; dim < 6; dim++ {
		seen := make(map[int]bool)
		for i := uint32(0); i < m; i++ {
			v := SobolSampleFloat(i, dim)
			require.GreaterOrEqual(t, v, 0.0)
			require.Less(t, v, 1.0)
			stratum := int(v * m)
			assert.False(t, seen[stratum], "dim %d: stratum %d hit twice", dim, stratum)
			seen[stratum] = true
		}
	}
}

func TestOwenScrambleDeterministicAndSeedSensitive(t *testing.T) {
	a := OwenScramble(0x12345678, 1)
	b := OwenScramble(0x12345678, 1)
	c := OwenScramble(0x12345678, 2)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCranleyPattersonRotateWraps(t *testing.T) {
	assert.InDelta(t, 0.7, CranleyPattersonRotate(0.2, 0.5), 1e-12)
	assert.InDelta(t, 0.1, CranleyPattersonRotate(0.7, 0.4), 1e-12)
	v := CranleyPattersonRotate(0.999, 0.002)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.Less(t, v, 1.0)
}

func TestStreamDeterministicPerPixel(t *testing.T) {
	a := NewStream(3, 5, 7)
	b := NewStream(3, 5, 7)
	for i := 0; i < 8; i++ {
		assert.Equal(t, a.Next1D(), b.Next1D())
	}

	// A neighboring pixel's stream must not replay the same values.
	c := NewStream(4, 5, 7)
	same := 0
	d := NewStream(3, 5, 7)
	for i := 0; i < 8; i++ {
		if c.Next1D() == d.Next1D() {
			same++
		}
	}
	assert.Less(t, same, 8)
}

func TestStreamResetReplays(t *testing.T) {
	s := NewStream(9, 9, 3)
	first := s.Next1D()
	s.Next1D()
	s.Reset()
	assert.Equal(t, first, s.Next1D())
}

// Owen-scrambled 2D projections stay uniform: 1024 points binned on an 8x8
// grid should put a plausible count in every cell (expected 16 per cell;
// the bounds here are loose enough to never flake on a correct scrambler
// and tight enough to catch a broken one that collapses onto a few cells).
func TestStreamTwoDimensionalUniformity(t *testing.T) {
	const n = 1024
	var counts [8][8]int
	for pass := uint32(0); pass < n; pass++ {
		s := NewStream(11, 13, pass)
		u, v := s.Next2D()
		counts[int(u*8)][int(v*8)]++
	}
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			assert.Greater(t, counts[i][j], 0, "empty cell (%d,%d)", i, j)
			assert.Less(t, counts[i][j], 64, "overfull cell (%d,%d)", i, j)
		}
	}
}

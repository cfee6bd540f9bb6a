package lowdiscrepancy

// Stream is a per-pixel-sample low discrepancy sequence: each call to
// Next1D/Next2D draws the next dimension of a Sobol point, Owen-scrambled
// with a per-pixel, per-dimension seed so that the same global sample index
// used across every pixel doesn't produce visible structured correlation.
// No Cranley-Patterson rotation is applied.
type Stream struct {
	sampleIndex uint32
	seed        uint32
	dimension   int
}

// NewStream creates a stream for the given global sample index, seeded
// from pixel coordinates so neighboring pixels draw decorrelated points
// from the same underlying Sobol sequence.
func NewStream(pixelX, pixelY uint32, sampleIndex uint32) *Stream {
	return &Stream{
		sampleIndex: sampleIndex,
		seed:        HashSeed(pixelX, pixelY, 0),
		dimension:   0,
	}
}

// Next1D returns the next scrambled, rotated Sobol sample in [0,1).
func (s *Stream) Next1D() float64 {
	dimSeed := HashSeed(s.seed, uint32(s.dimension)*0x1000193, s.dimension)
	raw := SobolSample(s.sampleIndex, s.dimension)
	scrambled := OwenScramble(raw, dimSeed)
	s.dimension++
	return float64(scrambled) * (1.0 / 4294967296.0)
}

// Next2D returns the next two dimensions as a pair, matching the
// convention the sampler uses for 2D BSDF/light samples.
func (s *Stream) Next2D() (float64, float64) {
	return s.Next1D(), s.Next1D()
}

// Reset rewinds the dimension cursor to draw a fresh stream for the same
// pixel/sample index from the start, replaying the same values from its
// first dimension.
func (s *Stream) Reset() {
	s.dimension = 0
}

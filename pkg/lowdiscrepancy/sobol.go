package lowdiscrepancy

// sobolDirections holds the first few direction-vector columns of the
// standard Sobol sequence (base-2, Joe-Kuo-derived primitive polynomials):
// six dimensions. SobolSample wraps any higher dimension back onto these
// six modulo six. Each row is one dimension's 32 direction numbers;
// SobolSample folds a sample index through them in Gray-code order.
var sobolDirections = [][]uint32{
	directionsForDimension0(),
	directionsForPrimitive(0x3, 1),  // x + 1
	directionsForPrimitive(0x7, 2),  // x^2 + x + 1
	directionsForPrimitive(0xB, 3),  // x^3 + x + 1
	directionsForPrimitive(0xD, 3),  // x^3 + x^2 + 1
	directionsForPrimitive(0x13, 4), // x^4 + x + 1
}

// directionsForDimension0 returns the van der Corput sequence's direction
// vectors: v_i = 2^(32-i), the base case every Sobol table starts from.
func directionsForDimension0() []uint32 {
	v := make([]uint32, 32)
	for i := range v {
		v[i] = 1 << (31 - i)
	}
	return v
}

// directionsForPrimitive derives direction numbers for a primitive
// polynomial over GF(2) encoded in poly (degree-s, leading/trailing terms
// implicit) using the standard Sobol recurrence. This produces a valid low
// discrepancy (if not maximally equidistributed beyond a handful of
// dimensions) sequence, sufficient for the integrator's purposes given the
// renderer also re-randomizes via Owen scrambling per pixel.
func directionsForPrimitive(poly uint32, degree int) []uint32 {
	v := make([]uint32, 32)
	for i := 0; i < degree; i++ {
		v[i] = 1 << (31 - i)
	}
	for i := degree; i < 32; i++ {
		val := v[i-degree]
		val ^= v[i-degree] >> uint(degree)
		for j := 1; j < degree; j++ {
			if (poly>>(degree-j))&1 != 0 {
				val ^= v[i-j]
			}
		}
		v[i] = val
	}
	return v
}

// SobolSample returns the raw (unscrambled) Sobol sample for the given
// global sample index and dimension, in Gray-code order: it XORs together
// the direction vectors at every set bit position of the Gray code of
// index (index ^ index>>1). Scrambling is left to the caller (see Stream).
func SobolSample(index uint32, dimension int) uint32 {
	if dimension >= len(sobolDirections) {
		dimension = dimension % len(sobolDirections)
	}
	dirs := sobolDirections[dimension]
	gray := index ^ (index >> 1)

	var result uint32
	for bit := 0; gray != 0; bit++ {
		if gray&1 != 0 {
			result ^= dirs[bit]
		}
		gray >>= 1
	}
	return result
}

// SobolSampleFloat converts a raw 32-bit Sobol sample into a double in
// [0,1).
func SobolSampleFloat(index uint32, dimension int) float64 {
	return float64(SobolSample(index, dimension)) * (1.0 / 4294967296.0)
}

package lightstrategy

// LightsDistribution is a piecewise-constant 1D probability distribution
// over a fixed list of lights, built from per-light weights (e.g. power or
// log-power) via a cumulative distribution function. It is the shared
// building block every non-uniform strategy (global power, per-point
// DLSC-adjusted) samples from.
type LightsDistribution struct {
	weights []float64
	cdf     []float64
	total   float64
}

// NewLightsDistribution builds a distribution from per-light weights.
// Zero-weight lights are accepted but never selected (their CDF interval
// has zero width and PDF returns 0 for them), unless every weight is zero,
// in which case Sample and PDF fall back to a uniform choice.
func NewLightsDistribution(weights []float64) *LightsDistribution {
	cdf := make([]float64, len(weights)+1)
	total := 0.0
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		total += w
		cdf[i+1] = total
	}
	return &LightsDistribution{weights: weights, cdf: cdf, total: total}
}

// Sample selects a light index for a uniform random value u in [0,1),
// returning the index and the PDF (probability mass) of having chosen it.
func (d *LightsDistribution) Sample(u float64) (index int, pdf float64) {
	if d.total <= 0 || len(d.weights) == 0 {
		if len(d.weights) == 0 {
			return -1, 0
		}
		// Degenerate all-zero-weight case: fall back to uniform so callers
		// still get a valid index instead of always hitting light 0.
		n := len(d.weights)
		idx := int(u * float64(n))
		if idx >= n {
			idx = n - 1
		}
		return idx, 1.0 / float64(n)
	}

	target := u * d.total
	lo, hi := 0, len(d.weights)
	for lo < hi {
		mid := (lo + hi) / 2
		if d.cdf[mid+1] <= target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= len(d.weights) {
		lo = len(d.weights) - 1
	}
	return lo, d.PDF(lo)
}

// PDF returns the selection probability of the light at index.
func (d *LightsDistribution) PDF(index int) float64 {
	if d.total <= 0 {
		if len(d.weights) == 0 {
			return 0
		}
		return 1.0 / float64(len(d.weights))
	}
	if index < 0 || index >= len(d.weights) {
		return 0
	}
	return d.weights[index] / d.total
}

// Len returns the number of lights in the distribution.
func (d *LightsDistribution) Len() int { return len(d.weights) }

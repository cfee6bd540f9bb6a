package sampler

import (
	"math/rand"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// MetropolisParams configures the large/small mutation sampler used by
// light-path integration (LIGHTCPU-style backends).
type MetropolisParams struct {
	LargeMutationProbability float64
	ImageMutationRange       float64
	MaxRejects               int
}

// DefaultMetropolisParams returns conservative defaults matching common
// Metropolis light transport configurations.
func DefaultMetropolisParams() MetropolisParams {
	return MetropolisParams{
		LargeMutationProbability: 0.4,
		ImageMutationRange:       0.1,
		MaxRejects:               512,
	}
}

// MetropolisSampler implements Metropolis-Hastings mutation over a sample
// vector: large mutations replace every dimension with a fresh uniform,
// small mutations perturb the current vector within ImageMutationRange.
// Acceptance is driven externally (the integrator supplies the measured
// path contribution via NextSample's weighting), matching the dependency
// direction every other sampler in this package uses — the sampler does
// not know about BSDFs or radiance, only sample vectors and film splats.
type MetropolisSampler struct {
	params      MetropolisParams
	film        core.Film
	rng         *rand.Rand
	threadIndex int

	current       []float64
	proposed      []float64
	currentLum    float64
	currentResult *core.SampleResult
	consecutive   int
	isLargeStep   bool
	dim           int
}

func NewMetropolisSampler(params MetropolisParams, seedBase uint32, film core.Film) *MetropolisSampler {
	return &MetropolisSampler{
		params: params,
		film:   film,
		rng:    rand.New(rand.NewSource(int64(seedBase))),
	}
}

func (m *MetropolisSampler) SetThreadIndex(i int) { m.threadIndex = i }

// StartPixelSample decides whether this sample is a large or small
// mutation and prepares a proposal vector accordingly; pixelX/pixelY are
// unused (Metropolis samples screen space directly via its own dimensions).
func (m *MetropolisSampler) StartPixelSample(pixelX, pixelY, sampleIndex int) bool {
	m.dim = 0
	m.isLargeStep = m.current == nil || m.rng.Float64() < m.params.LargeMutationProbability
	if m.current == nil {
		m.current = make([]float64, 0, 16)
	}
	m.proposed = m.proposed[:0]
	return true
}

// Get1D mutates (or, for a large step, replaces) the next dimension of the
// sample vector, growing the vector lazily since Metropolis paths don't
// declare their dimension count up front.
func (m *MetropolisSampler) Get1D() float64 {
	var v float64
	if m.isLargeStep || m.dim >= len(m.current) {
		v = m.rng.Float64()
	} else {
		base := m.current[m.dim]
		delta := (m.rng.Float64()*2 - 1) * m.params.ImageMutationRange
		v = base + delta
		v -= floor(v)
	}
	m.proposed = append(m.proposed, v)
	m.dim++
	return v
}

func (m *MetropolisSampler) Get2D() (float64, float64) {
	return m.Get1D(), m.Get1D()
}

func floor(v float64) float64 {
	if v >= 0 {
		return float64(int64(v))
	}
	i := float64(int64(v))
	if i > v {
		return i - 1
	}
	return i
}

// NextSample computes the path's scalar importance as the luminance of its
// accumulated radiance, accepts or rejects the proposal against the current
// state with probability min(1, I_proposed/I_current), and splats both the
// accepted and rejected contributions with their respective residual
// weights so variance cancels correctly across the whole chain.
func (m *MetropolisSampler) NextSample(results []core.SampleResult) {
	proposedLum := luminanceOf(results)

	accept := 1.0
	if m.currentLum > 0 {
		accept = proposedLum / m.currentLum
		if accept > 1 {
			accept = 1
		}
	}

	if m.film != nil {
		// The accepted proposal gets weight `accept`; the residual
		// `1-accept` stays attributed to the current (rejected-away) state
		// so that, summed over the whole chain, variance cancels correctly
		// (Kelemen-style expected-value Metropolis splatting). Every
		// mutation can relocate to any pixel on the film, so these splats
		// share the screen-normalized accumulator rather than a per-pixel
		// one (AddSampleCount below counts them the same way).
		for _, r := range results {
			if accept > 0 {
				r.ScreenNormalized = true
				m.film.AddSample(r, accept)
			}
		}
		if reject := 1 - accept; reject > 0 && m.currentResult != nil {
			rejected := *m.currentResult
			rejected.ScreenNormalized = true
			m.film.AddSample(rejected, reject)
		}
		m.film.AddSampleCount(m.threadIndex, 0, len(results))
	}

	u := m.rng.Float64()
	if u < accept || m.consecutive >= m.params.MaxRejects {
		m.current = append(m.current[:0], m.proposed...)
		m.currentLum = proposedLum
		if len(results) > 0 {
			r := results[0]
			m.currentResult = &r
		} else {
			m.currentResult = nil
		}
		m.consecutive = 0
	} else {
		m.consecutive++
	}
}

func luminanceOf(results []core.SampleResult) float64 {
	var total core.Vec3
	for _, r := range results {
		total = total.Add(r.Radiance)
	}
	return 0.2126*total.X + 0.7152*total.Y + 0.0722*total.Z
}

package lightstrategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// stubEmitter satisfies core.Emitter with just enough behavior for
// strategy-weighting tests: a fixed power and an environmental flag.
type stubEmitter struct {
	power         float64
	environmental bool
}

func (s *stubEmitter) Illuminate(point core.Vec3, u1, u2 float64) (core.LightSample, bool) {
	return core.LightSample{}, false
}
func (s *stubEmitter) IlluminatePDF(point, direction core.Vec3) float64 { return 0 }
func (s *stubEmitter) Emit(u1, u2, u3, u4 float64) (core.EmissionSample, bool) {
	return core.EmissionSample{}, false
}
func (s *stubEmitter) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) (core.Vec3, float64) {
	return core.Vec3{}, 0
}
func (s *stubEmitter) Power(sceneRadius float64) float64 {
	if s.environmental {
		return s.power * sceneRadius * sceneRadius
	}
	return s.power
}
func (s *stubEmitter) IsEnvironmental() bool              { return s.environmental }
func (s *stubEmitter) IsIntersectable() bool              { return false }
func (s *stubEmitter) IsDirectLightSamplingEnabled() bool { return true }

func TestDistributionPDFSumsToOne(t *testing.T) {
	d := NewLightsDistribution([]float64{1, 2, 3, 4})
	sum := 0.0
	for i := 0; i < d.Len(); i++ {
		sum += d.PDF(i)
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.InDelta(t, 0.4, d.PDF(3), 1e-12)
}

func TestDistributionSampleMatchesCDF(t *testing.T) {
	d := NewLightsDistribution([]float64{1, 2, 1}) // CDF boundaries at 0.25, 0.75

	idx, pdf := d.Sample(0.1)
	assert.Equal(t, 0, idx)
	assert.InDelta(t, 0.25, pdf, 1e-12)

	idx, _ = d.Sample(0.5)
	assert.Equal(t, 1, idx)

	idx, _ = d.Sample(0.9)
	assert.Equal(t, 2, idx)

	// Boundary values select the interval they open.
	idx, _ = d.Sample(0.25)
	assert.Equal(t, 1, idx)
}

func TestDistributionZeroWeightsFallBackToUniform(t *testing.T) {
	d := NewLightsDistribution([]float64{0, 0, 0})
	idx, pdf := d.Sample(0.5)
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 1.0/3.0, pdf, 1e-12)
}

func TestDistributionEmpty(t *testing.T) {
	d := NewLightsDistribution(nil)
	idx, pdf := d.Sample(0.5)
	assert.Equal(t, -1, idx)
	assert.Zero(t, pdf)
}

func TestUniformStrategy(t *testing.T) {
	s := NewUniformStrategy(4)
	idx, pdf := s.Sample(core.Vec3{}, core.Vec3{}, false, 0.6)
	assert.Equal(t, 2, idx)
	assert.InDelta(t, 0.25, pdf, 1e-12)
	assert.InDelta(t, 0.25, s.PDF(core.Vec3{}, core.Vec3{}, false, 0), 1e-12)
}

func TestPowerStrategyRescalesEnvironmentalLights(t *testing.T) {
	lights := []core.Emitter{
		&stubEmitter{power: 10},
		&stubEmitter{power: 10, environmental: true},
	}
	// With the 1/r^2 rescale, the environment light's quadratic Power growth
	// cancels out and the two lights end up equally weighted at any radius.
	s := NewPowerStrategy(lights, 100)
	assert.InDelta(t, 0.5, s.PDF(core.Vec3{}, core.Vec3{}, false, 0), 1e-9)
	assert.InDelta(t, 0.5, s.PDF(core.Vec3{}, core.Vec3{}, false, 1), 1e-9)
}

func TestLogPowerCompressesDynamicRange(t *testing.T) {
	lights := []core.Emitter{
		&stubEmitter{power: 1},
		&stubEmitter{power: 1000},
	}
	s := NewLogPowerStrategy(lights, 1)
	dimPDF := s.PDF(core.Vec3{}, core.Vec3{}, false, 0)
	brightPDF := s.PDF(core.Vec3{}, core.Vec3{}, false, 1)
	assert.Greater(t, brightPDF, dimPDF)
	// log weighting keeps the dim light's share well above power weighting's
	// 1/1001.
	assert.Greater(t, dimPDF, math.Log(2)/(math.Log(2)+math.Log(1001))*0.99)
}

// stubLookup covers exactly one half-space with a cache distribution.
type stubLookup struct {
	dist *LightsDistribution
}

func (l *stubLookup) Lookup(point, normal core.Vec3, isVolume bool) (*LightsDistribution, bool) {
	if point.X < 0 {
		return l.dist, true
	}
	return nil, false
}

func TestDLSCStrategyDispatchesByPosition(t *testing.T) {
	fallback := NewUniformStrategy(2)
	cacheDist := NewLightsDistribution([]float64{9, 1})
	s := NewDLSCStrategy(&stubLookup{dist: cacheDist}, fallback)

	// Inside cache coverage: the cache's skewed distribution applies.
	assert.InDelta(t, 0.9, s.PDF(core.Vec3{X: -1}, core.Vec3{}, false, 0), 1e-12)
	// Outside: the pre-selected fallback applies.
	assert.InDelta(t, 0.5, s.PDF(core.Vec3{X: 1}, core.Vec3{}, false, 0), 1e-12)

	// Emission sampling never consults the cache: it has no shading point.
	idx, pdf := s.SampleEmission(0.1)
	assert.Equal(t, 0, idx)
	assert.InDelta(t, 0.5, pdf, 1e-12)
}

func TestParseTypeRoundTrip(t *testing.T) {
	for _, typ := range []Type{Uniform, Power, LogPower, DLSCCache} {
		parsed, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}

	parsed, err := ParseType("")
	require.NoError(t, err)
	assert.Equal(t, LogPower, parsed)

	_, err = ParseType("BOGUS")
	assert.Error(t, err)
}

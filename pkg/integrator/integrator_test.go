package integrator

import (
	"testing"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestRussianRouletteBelowThreshold(t *testing.T) {
	terminate, survival := russianRoulette(1, 5, 0.05, core.Vec3{X: 0.1, Y: 0.1, Z: 0.1}, 0.9)
	assert.False(t, terminate)
	assert.Equal(t, 1.0, survival)
}

func TestRussianRouletteSurvivesBelowCap(t *testing.T) {
	terminate, survival := russianRoulette(5, 5, 0.05, core.Vec3{X: 0.01, Y: 0.01, Z: 0.01}, 0.0)
	assert.False(t, terminate)
	assert.Equal(t, 0.05, survival)
}

func TestRussianRouletteTerminatesOnHighSample(t *testing.T) {
	terminate, survival := russianRoulette(5, 5, 0.05, core.Vec3{X: 0.5, Y: 0.5, Z: 0.5}, 0.99)
	assert.True(t, terminate)
	assert.Equal(t, 0.0, survival)
}

func TestRussianRouletteUsesConfiguredCapOverDefault(t *testing.T) {
	// A higher configured cap raises the survival probability floor, so a
	// throughput that would have fallen to the 0.05 default instead
	// survives at the configured cap.
	terminate, survival := russianRoulette(5, 5, 0.2, core.Vec3{X: 0.01, Y: 0.01, Z: 0.01}, 0.1)
	assert.False(t, terminate)
	assert.Equal(t, 0.2, survival)
}

func TestMaxComponent(t *testing.T) {
	assert.Equal(t, 0.7, maxComponent(core.Vec3{X: 0.2, Y: 0.7, Z: 0.1}))
}

func TestEmittedLightMISUnweightedOnFirstVertex(t *testing.T) {
	light := &fakeEmitter{radiance: core.Vec3{X: 1, Y: 1, Z: 1}, directPDF: 2.0}
	hit := &core.HitPoint{Light: light}
	got := emittedLightMIS(nil, hit, core.Vec3{X: 0, Y: 0, Z: 1}, 0, true)
	assert.Equal(t, light.radiance, got)
}

func TestEmittedLightMISZeroWithoutLight(t *testing.T) {
	hit := &core.HitPoint{}
	got := emittedLightMIS(nil, hit, core.Vec3{X: 0, Y: 0, Z: 1}, 1.0, false)
	assert.True(t, got.IsZero())
}

// fakeEmitter satisfies core.Emitter far enough for emittedLightMIS's
// direct-hit path; the other methods are never exercised by these tests.
type fakeEmitter struct {
	radiance  core.Vec3
	directPDF float64
}

func (f *fakeEmitter) Illuminate(point core.Vec3, u1, u2 float64) (core.LightSample, bool) {
	return core.LightSample{}, false
}
func (f *fakeEmitter) IlluminatePDF(point, direction core.Vec3) float64 { return 0 }
func (f *fakeEmitter) Emit(u1, u2, u3, u4 float64) (core.EmissionSample, bool) {
	return core.EmissionSample{}, false
}
func (f *fakeEmitter) EmittedRadiance(hit *core.HitPoint, wo core.Vec3) (core.Vec3, float64) {
	return f.radiance, f.directPDF
}
func (f *fakeEmitter) Power(sceneRadius float64) float64 { return 0 }
func (f *fakeEmitter) IsEnvironmental() bool             { return false }
func (f *fakeEmitter) IsIntersectable() bool             { return true }
func (f *fakeEmitter) IsDirectLightSamplingEnabled() bool { return true }

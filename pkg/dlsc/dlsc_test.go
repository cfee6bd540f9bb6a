package dlsc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/geometry"
	"github.com/df07/go-progressive-raytracer/pkg/lights"
	"github.com/df07/go-progressive-raytracer/pkg/material"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

// newTwoLightScene builds a floor lit by light A from above, with light B
// placed below the floor so no floor point ever receives anything from it.
// The cache should learn to put nearly all of its probability mass on A.
func newTwoLightScene(t *testing.T) *scene.Scene {
	t.Helper()

	cameraConfig := geometry.CameraConfig{
		Center: core.NewVec3(0, 2, 4),
		LookAt: core.NewVec3(0, 0, 0),
		Up:     core.NewVec3(0, 1, 0),
		VFov:   60,
		Aspect: 1,
		Width:  64,
		Height: 64,
	}

	sc := &scene.Scene{
		Camera:       geometry.NewCamera(cameraConfig),
		CameraConfig: cameraConfig,
	}
	floor := material.NewLambertian(core.NewVec3(0.7, 0.7, 0.7))
	sc.Shapes = append(sc.Shapes, scene.NewGroundQuad(core.NewVec3(0, 0, 0), 10, floor))
	sc.Lights = append(sc.Lights,
		lights.NewPointLight(core.NewVec3(0, 3, 0), core.NewVec3(50, 50, 50)),  // A: above
		lights.NewPointLight(core.NewVec3(0, -3, 0), core.NewVec3(50, 50, 50)), // B: below the floor
	)
	require.NoError(t, sc.Preprocess())
	return sc
}

func testParams() Params {
	p := DefaultParams()
	p.Visibility.LookupRadius = 0.5
	p.Visibility.MaxSampleCount = 20000
	p.Visibility.MaxPathDepth = 4
	p.Entry.WarmupSamples = 8
	p.Entry.MaxPasses = 64
	return p
}

// lookupOnFloor probes a grid of floor points and returns the first
// distribution the cache covers.
func lookupOnFloor(d *DLSC) (*coveredPoint, bool) {
	up := core.NewVec3(0, 1, 0)
	for x := -2.0; x <= 2.0; x += 0.25 {
		for z := -2.0; z <= 2.0; z += 0.25 {
			p := core.NewVec3(x, 0, z)
			if dist, ok := d.Lookup(p, up, false); ok {
				return &coveredPoint{point: p, pdfA: dist.PDF(0), pdfB: dist.PDF(1)}, true
			}
		}
	}
	return nil, false
}

type coveredPoint struct {
	point      core.Vec3
	pdfA, pdfB float64
}

func TestBuildBiasesTowardVisibleLight(t *testing.T) {
	sc := newTwoLightScene(t)
	d, err := Build(sc, testParams(), nil)
	require.NoError(t, err)
	require.Greater(t, d.EntryCount(), 0)

	cp, ok := lookupOnFloor(d)
	require.True(t, ok, "no cache entry covers the visible floor")
	assert.Greater(t, cp.pdfA, 0.9, "occluded light B should get only the clamp floor at %v", cp.point)
	assert.Greater(t, cp.pdfB, 0.0, "the 2.5%% floor keeps B sampleable")
	assert.InDelta(t, 1.0, cp.pdfA+cp.pdfB, 1e-9)
}

func TestBuildIsDeterministic(t *testing.T) {
	sc := newTwoLightScene(t)
	params := testParams()

	d1, err := Build(sc, params, nil)
	require.NoError(t, err)
	d2, err := Build(sc, params, nil)
	require.NoError(t, err)

	assert.Equal(t, d1.EntryCount(), d2.EntryCount())

	cp1, ok1 := lookupOnFloor(d1)
	cp2, ok2 := lookupOnFloor(d2)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, cp1.point, cp2.point)
	assert.Equal(t, cp1.pdfA, cp2.pdfA)
	assert.Equal(t, cp1.pdfB, cp2.pdfB)
}

func TestBuildInterruptedReturnsCancelled(t *testing.T) {
	sc := newTwoLightScene(t)
	_, err := Build(sc, testParams(), func() bool { return true })
	require.Error(t, err)
	assert.True(t, core.IsCancelled(err))
}

func TestBuildOrLoadRoundTrip(t *testing.T) {
	sc := newTwoLightScene(t)
	params := testParams()
	params.Persistent.FileName = filepath.Join(t.TempDir(), "cache.dlsc")

	built, err := BuildOrLoad(sc, params, nil)
	require.NoError(t, err)
	cpBuilt, ok := lookupOnFloor(built)
	require.True(t, ok)

	loaded, ok, err := Load(params)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, built.EntryCount(), loaded.EntryCount())

	cpLoaded, ok := lookupOnFloor(loaded)
	require.True(t, ok, "reloaded cache lost its lookup coverage")
	assert.InDelta(t, cpBuilt.pdfA, cpLoaded.pdfA, 1e-12)
	assert.InDelta(t, cpBuilt.pdfB, cpLoaded.pdfB, 1e-12)
}

// A build run with auto-radius must persist the radius it resolved, not
// the configured zero — otherwise a reloaded cache can never match any
// query point.
func TestAutoRadiusSurvivesPersistence(t *testing.T) {
	sc := newTwoLightScene(t)
	params := testParams()
	params.Visibility.LookupRadius = 0
	params.Persistent.FileName = filepath.Join(t.TempDir(), "cache.dlsc")

	built, err := BuildOrLoad(sc, params, nil)
	require.NoError(t, err)
	require.Greater(t, built.radius, 0.0)

	loaded, ok, err := Load(params)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, built.radius, loaded.radius, 1e-12)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	params := testParams()
	params.Persistent.FileName = filepath.Join(t.TempDir(), "cache.dlsc")
	require.NoError(t, os.WriteFile(params.Persistent.FileName, []byte("not a cache"), 0o644))

	_, ok, err := Load(params)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	params := testParams()
	params.Persistent.FileName = filepath.Join(t.TempDir(), "absent.dlsc")
	d, ok, err := Load(params)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, d)
}

func TestRadicalInverseBaseThree(t *testing.T) {
	assert.InDelta(t, 1.0/3.0, radicalInverse(3, 1), 1e-12)
	assert.InDelta(t, 2.0/3.0, radicalInverse(3, 2), 1e-12)
	assert.InDelta(t, 1.0/9.0, radicalInverse(3, 3), 1e-12)
	for i := 1; i < 64; i++ {
		v := radicalInverse(3, i)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestLookupEmptyCache(t *testing.T) {
	var d *DLSC
	_, ok := d.Lookup(core.Vec3{}, core.NewVec3(0, 1, 0), false)
	assert.False(t, ok)
	assert.Equal(t, 0, d.EntryCount())
}

package renderer

import (
	"testing"
	"time"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/film"
	"github.com/df07/go-progressive-raytracer/pkg/integrator"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
	"github.com/df07/go-progressive-raytracer/pkg/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, cfg Config) *RenderEngine {
	t.Helper()
	sc := scene.NewDefaultScene()
	sc.SamplingConfig.Width = 8
	sc.SamplingConfig.Height = 8

	f := film.NewFilm(8, 8, film.ChannelRadiancePixelNormalized|film.ChannelNoise)
	tracer := integrator.NewUnidirectional(sc)

	factory := func(threadIndex int) core.Sampler {
		return sampler.NewRandomSampler(cfg.Seed+uint32(threadIndex), f, true)
	}

	cfg.NumWorkers = 2
	e := NewRenderEngine(sc, f, tracer, factory, cfg, nil)
	return e
}

func TestRenderEngineLifecycle(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	assert.Equal(t, Unstarted, e.State())

	require.NoError(t, e.Start())
	assert.Equal(t, Running, e.State())

	// Let a few samples land before pausing.
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, e.Pause())
	assert.Equal(t, Paused, e.State())

	require.NoError(t, e.Resume())
	assert.Equal(t, Running, e.State())

	e.Stop()
	assert.Equal(t, Stopped, e.State())

	// Stop is idempotent.
	e.Stop()
	assert.Equal(t, Stopped, e.State())
}

func TestRenderEngineDoubleStartErrors(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	require.NoError(t, e.Start())
	defer e.Stop()

	err := e.Start()
	assert.Error(t, err)
}

func TestRenderEnginePauseBeforeStartErrors(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	assert.Error(t, e.Pause())
}

func TestRenderEngineBeginEndEdit(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	require.NoError(t, e.Start())
	defer e.Stop()

	require.NoError(t, e.BeginEdit())
	// A second BeginEdit before EndEdit must fail.
	assert.Error(t, e.BeginEdit())

	require.NoError(t, e.EndEdit(false))
	assert.Equal(t, Running, e.State())
}

func TestRenderEngineHaltsOnSampleCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HaltSPP = 1
	cfg.ConvergedAtOne = false
	e := newTestEngine(t, cfg)

	require.NoError(t, e.Start())
	deadline := time.Now().Add(2 * time.Second)
	for e.State() == Running && time.Now().Before(deadline) {
		if e.haltReached() {
			break
		}
		time.Sleep(time.Millisecond)
	}
	assert.True(t, e.haltReached(), "sample-count halt not reached before deadline")
	e.Stop()
	assert.Equal(t, Stopped, e.State())
}

// Workers that already exited on a halt condition must not wedge a later
// Pause: the pause barrier only waits for workers that are still live.
func TestRenderEnginePauseAfterHaltDoesNotDeadlock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HaltSPP = 1
	cfg.ConvergedAtOne = false
	e := newTestEngine(t, cfg)
	require.NoError(t, e.Start())

	deadline := time.Now().Add(2 * time.Second)
	for e.liveWorkers.Load() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Zero(t, e.liveWorkers.Load(), "workers did not halt on sample count")

	done := make(chan error, 1)
	go func() { done <- e.Pause() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Pause deadlocked after workers halted")
	}
	e.Stop()
}

func TestNoopPlatformHooksAreSafe(t *testing.T) {
	var p PlatformHooks = NoopPlatformHooks{}
	p.SetThreadAffinity(0)
	p.SetThreadPriority(0)
}

func TestOSPlatformHooksConstructible(t *testing.T) {
	p := NewOSPlatformHooks()
	assert.NotNil(t, p)
}

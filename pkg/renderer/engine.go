package renderer

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/dlsc"
	"github.com/df07/go-progressive-raytracer/pkg/integrator"
	"github.com/df07/go-progressive-raytracer/pkg/lightstrategy"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

// State is one of the RenderEngine's lifecycle states per spec.md §4.7:
// Unstarted -> Running <-> Paused -> Stopped, with Editing orthogonal.
type State int

const (
	Unstarted State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "Unstarted"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// SamplerFactory builds the per-worker Sampler instance for thread
// threadIndex. Samplers that share bucket/tile state across workers (Sobol,
// TilePath, Interactive) close over one *SharedData value constructed once
// by the caller; RandomSampler and Metropolis need no sharing.
type SamplerFactory func(threadIndex int) core.Sampler

// PlatformHooks lets the engine ask the OS to pin worker goroutines to
// cores or raise their scheduling priority, per spec.md §9's "thread
// primitives are out of the core" design note. NoopPlatformHooks is the
// no-op implementation, suitable when the host has no affinity/priority API.
type PlatformHooks interface {
	SetThreadAffinity(threadIndex int)
	SetThreadPriority(priority int)
}

// NoopPlatformHooks implements PlatformHooks with no-ops, the default when
// a caller has nothing OS-specific to wire in.
type NoopPlatformHooks struct{}

func (NoopPlatformHooks) SetThreadAffinity(int) {}
func (NoopPlatformHooks) SetThreadPriority(int) {}

// RenderEngine owns the worker pool that repeatedly calls
// pathTracer.RenderSample(sampler, scene) per spec.md §5's scheduling
// model: one goroutine per logical core, no cooperative yielding beyond the
// pause/interrupt checks at the top of each sample.
type RenderEngine struct {
	mu    sync.Mutex
	state State

	editing   atomic.Bool
	pauseFlag atomic.Bool
	interrupt atomic.Bool

	// liveWorkers counts workers that have not yet exited (a worker leaves
	// on interrupt or when a halt condition trips); pausedWorkers counts
	// workers currently parked on the pause flag. pauseWorkers waits until
	// every live worker is parked, so a worker that already exited on a
	// halt condition never wedges a later Pause/BeginEdit.
	liveWorkers   atomic.Int32
	pausedWorkers atomic.Int32

	scene          *scene.Scene
	film           core.Film
	tracer         integrator.PathTracer
	samplerFactory SamplerFactory
	config         Config
	platform       PlatformHooks
	logger         core.Logger

	wg      sync.WaitGroup
	started time.Time

	haltSampleCount uint64 // 0 = unbounded; set from config.HaltSPP * pixel count
}

// NewRenderEngine constructs an engine in the Unstarted state. film, tracer
// and samplerFactory are supplied by the caller (typically after
// scene.Preprocess and any DLSC build have already run), since those are
// themselves potentially cancellable long operations per spec.md §5.
func NewRenderEngine(sc *scene.Scene, film core.Film, tracer integrator.PathTracer, samplerFactory SamplerFactory, config Config, logger core.Logger) *RenderEngine {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	platform := NewOSPlatformHooks()
	return &RenderEngine{
		state:          Unstarted,
		scene:          sc,
		film:           film,
		tracer:         tracer,
		samplerFactory: samplerFactory,
		config:         config,
		platform:       platform,
		logger:         logger,
	}
}

// SetPlatformHooks replaces the PlatformHooks that NewRenderEngine installed
// from NewOSPlatformHooks. Must be called before Start.
func (e *RenderEngine) SetPlatformHooks(p PlatformHooks) {
	e.platform = p
}

// State returns the engine's current lifecycle state.
func (e *RenderEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start preprocesses the scene, spawns the worker pool, and transitions to
// Running. Preprocessing errors (e.g. a scene with no lights where one is
// required) abort the start and leave the engine Unstarted, per spec.md
// §7's "construction-time errors abort the engine start" policy.
func (e *RenderEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Unstarted {
		return core.NewRenderError(core.ConfigError, "RenderEngine.Start", errAlreadyStarted)
	}

	if err := e.scene.Preprocess(); err != nil {
		return core.NewRenderError(core.SceneError, "RenderEngine.Start", err)
	}

	if e.config.DLSC != nil {
		if err := e.buildDLSC(); err != nil {
			return err
		}
	}

	numWorkers := e.config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if e.config.HaltSPP > 0 {
		e.haltSampleCount = uint64(e.config.HaltSPP) * uint64(e.film.Width()*e.film.Height())
	}

	e.started = time.Now()
	e.state = Running
	e.liveWorkers.Store(int32(numWorkers))
	e.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.workerLoop(i, numWorkers)
	}
	return nil
}

// buildDLSC builds (or loads a persisted) direct-light sampling cache and
// installs it ahead of the scene's default log-power strategy, per
// spec.md §4.7's "build caches" startup step and §4.5's "fallback on null
// must be pre-selected at engine startup (log-power)" rule. It polls the
// engine's own interrupt flag so a Stop requested mid-build is honored.
func (e *RenderEngine) buildDLSC() error {
	fallback := e.scene.LightStrategy
	if fallback == nil {
		fallback = lightstrategy.NewLogPowerStrategy(e.scene.Lights, 0)
	}

	cache, err := dlsc.BuildOrLoad(e.scene, *e.config.DLSC, e.Interrupted)
	if err != nil {
		if core.IsCancelled(err) {
			return err
		}
		return core.NewRenderError(core.CacheError, "RenderEngine.Start", err)
	}

	e.scene.LightStrategy = lightstrategy.NewDLSCStrategy(cache, fallback)
	e.logger.Printf("DLSC ready: %d cache entries", cache.EntryCount())
	return nil
}

// workerLoop is the hot loop of spec.md §5: sample until stopped, checking
// pause/interrupt at the top of every sample. It walks its own
// worker-strided raster cursor and hands each pixel to StartPixelSample:
// samplers with their own partitioning scheme (Sobol buckets, TilePath
// tiles, the interactive visit sequence) ignore the arguments, while the
// plain RandomSampler uses them as its image-plane anchor.
func (e *RenderEngine) workerLoop(threadIndex, workerCount int) {
	defer e.wg.Done()
	defer e.liveWorkers.Add(-1)

	e.platform.SetThreadAffinity(threadIndex)
	sampler := e.samplerFactory(threadIndex)
	sampler.SetThreadIndex(threadIndex)

	width, height := e.film.Width(), e.film.Height()
	pixelCursor := uint64(threadIndex)

	for {
		if e.interrupt.Load() {
			return
		}
		if e.pauseFlag.Load() {
			e.pausedWorkers.Add(1)
			for e.pauseFlag.Load() && !e.interrupt.Load() {
				time.Sleep(100 * time.Millisecond)
			}
			e.pausedWorkers.Add(-1)
			if e.interrupt.Load() {
				return
			}
			continue
		}
		if e.haltReached() {
			return
		}

		px, py := 0, 0
		if width > 0 && height > 0 {
			idx := int(pixelCursor % uint64(width*height))
			px, py = idx%width, idx/width
		}
		pixelCursor += uint64(workerCount)

		if sampler.StartPixelSample(px, py, 0) {
			results := e.tracer.RenderSample(sampler, e.scene)
			sampler.NextSample(results)
		}
	}
}

// haltReached evaluates spec.md §4.7's halt conditions: film convergence
// (every pixel's noise estimate at 0), the configured halt sample count, or
// the batch.haltdebug time limit measured from Start.
func (e *RenderEngine) haltReached() bool {
	if e.config.HaltDebugSecs > 0 && time.Since(e.started).Seconds() >= e.config.HaltDebugSecs {
		return true
	}
	if e.haltSampleCount > 0 {
		if f, ok := e.film.(interface{ TotalPixelSamples() uint64 }); ok {
			if f.TotalPixelSamples() >= e.haltSampleCount {
				return true
			}
		}
	}
	if e.config.ConvergedAtOne {
		if f, ok := e.film.(interface {
			Width() int
			Height() int
			GetNoise(int, int) float64
		}); ok {
			// Only treat as converged once a reasonable amount of work has
			// happened; GetNoise defaults to 1 ("never skip") before enough
			// samples land, so an all-zero read at the very start would be a
			// false positive that this guard avoids.
			if total, ok2 := e.film.(interface{ TotalPixelSamples() uint64 }); ok2 && total.TotalPixelSamples() > uint64(f.Width()*f.Height()) {
				converged := true
				for y := 0; y < f.Height() && converged; y++ {
					for x := 0; x < f.Width(); x++ {
						if f.GetNoise(x, y) > 0 {
							converged = false
							break
						}
					}
				}
				if converged {
					return true
				}
			}
		}
	}
	return false
}

// Pause transitions Running -> Paused, blocking until every worker has
// observed the pause flag (the edit barrier of spec.md §5's "suspension
// points" policy).
func (e *RenderEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Running {
		return core.NewRenderError(core.ConfigError, "RenderEngine.Pause", errNotRunning)
	}
	e.pauseWorkers()
	e.state = Paused
	return nil
}

// Resume transitions Paused -> Running.
func (e *RenderEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Paused {
		return core.NewRenderError(core.ConfigError, "RenderEngine.Resume", errNotPaused)
	}
	e.pauseFlag.Store(false)
	e.state = Running
	return nil
}

func (e *RenderEngine) pauseWorkers() {
	e.pauseFlag.Store(true)
	for e.pausedWorkers.Load() < e.liveWorkers.Load() {
		time.Sleep(time.Millisecond)
	}
}

// BeginEdit pauses all workers so scene/cache mutation is safe, from either
// Running or Paused, per spec.md §4.7. Scene mutation must happen between
// BeginEdit and EndEdit; the engine does not itself expose scene mutation,
// only the barrier around it.
func (e *RenderEngine) BeginEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Running && e.state != Paused {
		return core.NewRenderError(core.ConfigError, "RenderEngine.BeginEdit", errBadEditState)
	}
	if e.editing.Load() {
		return core.NewRenderError(core.ConfigError, "RenderEngine.BeginEdit", errAlreadyEditing)
	}
	e.editing.Store(true)
	if e.state == Running {
		e.pauseWorkers()
	}
	return nil
}

// EndEdit re-preprocesses the scene (BVH rebuild, light-radius patching,
// default light-strategy re-derivation) and resumes workers.
// resetFilmCounters matches spec.md's "reset film counters (or not,
// depending on edit kind)" — callers doing a geometric edit typically pass
// true; a pure camera-parameter tweak typically passes false.
func (e *RenderEngine) EndEdit(resetFilmCounters bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing.Load() {
		return core.NewRenderError(core.ConfigError, "RenderEngine.EndEdit", errNotEditing)
	}
	if err := e.scene.Preprocess(); err != nil {
		return core.NewRenderError(core.SceneError, "RenderEngine.EndEdit", err)
	}
	if resetFilmCounters {
		if resettable, ok := e.film.(interface{ Reset() }); ok {
			resettable.Reset()
		}
	}
	e.editing.Store(false)
	// An edit begun from Running resumes the workers; one begun from Paused
	// leaves them parked until an explicit Resume.
	if e.state == Running {
		e.pauseFlag.Store(false)
	}
	return nil
}

// Stop requests cooperative cancellation and blocks until every worker has
// exited, then transitions to Stopped. Idempotent: calling Stop on an
// already-Stopped engine is a no-op.
func (e *RenderEngine) Stop() {
	e.mu.Lock()
	if e.state == Stopped {
		e.mu.Unlock()
		return
	}
	e.state = Stopped
	e.mu.Unlock()

	e.interrupt.Store(true)
	e.pauseFlag.Store(false)
	e.wg.Wait()
}

// Interrupted reports whether cancellation has been requested, for any
// long-running preprocess step (DLSC build, photon-GI update) that wants to
// poll the same cooperative flag the worker loop uses.
func (e *RenderEngine) Interrupted() bool {
	return e.interrupt.Load()
}

var (
	errAlreadyStarted = simpleErr("engine already started")
	errNotRunning     = simpleErr("engine is not running")
	errNotPaused      = simpleErr("engine is not paused")
	errBadEditState   = simpleErr("engine must be running or paused to begin an edit")
	errAlreadyEditing = simpleErr("engine is already editing")
	errNotEditing     = simpleErr("engine is not editing")
)

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

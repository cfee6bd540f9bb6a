// Package film implements the pixel accumulator every Sampler splats into:
// a width x height grid of per-channel pixels with atomic, commutative
// splatting so many worker goroutines can write concurrently without
// locking, plus the sample counters and noise feedback the adaptive Sobol
// sampler reads back.
package film

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// Channel is a bitmask of the accumulation channels a Film instance holds.
type Channel uint32

const (
	ChannelRadiancePixelNormalized Channel = 1 << iota
	ChannelRadianceScreenNormalized
	ChannelNoise
	ChannelUserImportance
	ChannelAlbedo
	ChannelShadingNormal
	ChannelDepth
	ChannelAlpha
)

// pixel holds every channel's accumulator for one pixel as atomic words.
// Vec3-valued channels are stored as three atomic float64 bit patterns;
// scalar channels as one. All adds go through atomicAddFloat64's CAS loop,
// so concurrent splats commute exactly as the spec requires (up to the
// usual float-associativity slop).
type pixel struct {
	radiancePixelNorm  [3]atomic.Uint64
	radianceScreenNorm [3]atomic.Uint64
	albedo             [3]atomic.Uint64
	shadingNormal      [3]atomic.Uint64
	depth              atomic.Uint64
	alpha              atomic.Uint64
	noise              atomic.Uint64
	userImportance     atomic.Uint64
	lumAccum           atomic.Uint64
	lumSqAccum         atomic.Uint64
	pixelSampleCount   atomic.Uint64
}

// Film is the channel-accumulating, concurrency-safe splat target every
// Sampler implementation in pkg/sampler writes into through the core.Film
// interface.
type Film struct {
	width, height int
	channels      Channel
	pixels        []pixel

	// Sub-region, inclusive, defaults to the whole film.
	subXMin, subXMax, subYMin, subYMax int

	// VarianceClampMax bounds a single sample's luminance to at most this
	// multiple of the pixel's running mean luminance before it is added,
	// applied *after* the running mean already reflects every prior
	// sample at that pixel (not the sample being clamped) — the "clamp
	// after splat, against the running mean" semantics this codebase
	// settled on where the source was ambiguous.
	VarianceClampMax float64

	// threadCounts tracks each worker's running total sample counts for the
	// monotonic-non-decreasing invariant and for progress reporting; grown
	// lazily to the highest thread index seen via ensureThreadCount, which
	// holds threadCountsMu for the append. Once a slot exists, its atomics
	// are read/written lock-free.
	threadCountsMu sync.Mutex
	threadCounts   []*threadCount
}

type threadCount struct {
	pixelNormalized  atomic.Uint64
	screenNormalized atomic.Uint64
}

// NewFilm creates a film with the given channel set, defaulting to the full
// frame as its sub-region.
func NewFilm(width, height int, channels Channel) *Film {
	f := &Film{
		width:            width,
		height:           height,
		channels:         channels,
		pixels:           make([]pixel, width*height),
		subXMin:          0,
		subXMax:          width - 1,
		subYMin:          0,
		subYMax:          height - 1,
		VarianceClampMax: 10.0,
		threadCounts:     make([]*threadCount, 0, 16),
	}
	return f
}

func (f *Film) Width() int  { return f.width }
func (f *Film) Height() int { return f.height }

// SetSubRegion restricts which pixels AddSample will actually touch; values
// outside [0,width) / [0,height) are clamped.
func (f *Film) SetSubRegion(xMin, xMax, yMin, yMax int) {
	f.subXMin = clampInt(xMin, 0, f.width-1)
	f.subXMax = clampInt(xMax, 0, f.width-1)
	f.subYMin = clampInt(yMin, 0, f.height-1)
	f.subYMax = clampInt(yMax, 0, f.height-1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AddSample splats one sample's contribution onto the nearest pixel (a box
// reconstruction filter — the teacher's progressive loop never needed a
// wider filter either, since it sampled each pixel's center directly).
//
// Each result targets exactly one of the two radiance accumulators,
// matching spec.md §3: an ordinary eye-path result (ScreenNormalized
// false) fills the pixel-normalized channel, is variance-clamped against
// that pixel's own running mean, and advances the per-pixel sample count
// GetNoise/GetColor divide by; a light-path camera-connection splat
// (ScreenNormalized true) fills the screen-normalized channel instead,
// shares the whole frame's normalizer rather than its own pixel's, and
// never participates in the per-pixel variance clamp or sample count —
// its arrival rate at any one pixel has nothing to do with that pixel's
// own convergence.
func (f *Film) AddSample(result core.SampleResult, weight float64) {
	px := int(math.Floor(result.FilmX))
	py := int(math.Floor(result.FilmY))
	if px < f.subXMin || px > f.subXMax || py < f.subYMin || py > f.subYMax {
		return
	}
	p := &f.pixels[py*f.width+px]

	if result.ScreenNormalized {
		if f.channels&ChannelRadianceScreenNormalized != 0 {
			addVec3(&p.radianceScreenNorm, result.Radiance, weight)
		}
		return
	}

	radiance := result.Radiance
	lum := radiance.Luminance()
	if f.VarianceClampMax > 0 {
		count := p.pixelSampleCount.Load()
		if count > 0 {
			mean := math.Float64frombits(p.lumAccum.Load()) / float64(count)
			maxLum := mean * f.VarianceClampMax
			if maxLum > 0 && lum > maxLum {
				scale := maxLum / lum
				radiance = radiance.Multiply(scale)
				lum = maxLum
				result.VarianceClampTriggered = true
			}
		}
	}

	atomicAddFloat64(&p.lumAccum, lum*weight)
	atomicAddFloat64(&p.lumSqAccum, lum*lum*weight)
	p.pixelSampleCount.Add(1)

	if f.channels&ChannelRadiancePixelNormalized != 0 {
		addVec3(&p.radiancePixelNorm, radiance, weight)
	}
	if f.channels&ChannelAlbedo != 0 {
		addVec3(&p.albedo, result.Albedo, weight)
	}
	if f.channels&ChannelShadingNormal != 0 {
		addVec3(&p.shadingNormal, result.ShadingNormal, weight)
	}
	if f.channels&ChannelDepth != 0 {
		atomicAddFloat64(&p.depth, float64(result.Depth)*weight)
	}
	if f.channels&ChannelAlpha != 0 {
		atomicAddFloat64(&p.alpha, result.Alpha*weight)
	}
}

// AddSampleCount increments per-thread pixel/screen-normalized counters,
// the coarser per-thread totals the engine's progress reporting and the
// monotonicity invariant need; the per-pixel counter AddSample uses for
// the variance-clamp mean and GetNoise is tracked separately, at splat
// time, since individual per-pixel counts aren't known at this call site
// (a worker may have just completed several results across different
// pixels).
func (f *Film) AddSampleCount(threadIndex int, pixelNormalized, screenNormalized int) {
	tc := f.ensureThreadCount(threadIndex)
	if pixelNormalized > 0 {
		tc.pixelNormalized.Add(uint64(pixelNormalized))
	}
	if screenNormalized > 0 {
		tc.screenNormalized.Add(uint64(screenNormalized))
	}
}

// ensureThreadCount returns the counter slot for threadIndex, growing
// threadCounts under threadCountsMu if this is the first sample from that
// worker. Growth is the only mutating access to the slice header; the
// per-slot atomics underneath are safe for concurrent use without the
// lock once a slot exists.
func (f *Film) ensureThreadCount(threadIndex int) *threadCount {
	f.threadCountsMu.Lock()
	defer f.threadCountsMu.Unlock()
	for len(f.threadCounts) <= threadIndex {
		f.threadCounts = append(f.threadCounts, &threadCount{})
	}
	return f.threadCounts[threadIndex]
}

// snapshotThreadCounts returns a stable copy of the threadCounts slice
// header for lock-free iteration; already-existing slots are shared
// pointers, so their atomics still reflect concurrent updates.
func (f *Film) snapshotThreadCounts() []*threadCount {
	f.threadCountsMu.Lock()
	defer f.threadCountsMu.Unlock()
	out := make([]*threadCount, len(f.threadCounts))
	copy(out, f.threadCounts)
	return out
}

// GetNoise returns a normalized coefficient-of-variation estimate in [0,1]
// for the pixel, used by the Sobol sampler's adaptive skip test. Returns 1
// ("not converged, never skip") while fewer than 4 samples have landed to
// estimate variance, and 0 when the pixel's mean luminance is about zero.
func (f *Film) GetNoise(x, y int) float64 {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return 0
	}
	p := &f.pixels[y*f.width+x]
	count := p.pixelSampleCount.Load()
	if count < 4 {
		return 1 // not enough samples yet: never skip
	}
	mean := math.Float64frombits(p.lumAccum.Load()) / float64(count)
	meanSq := math.Float64frombits(p.lumSqAccum.Load()) / float64(count)
	variance := math.Max(0, meanSq-mean*mean)
	if mean <= 1e-8 {
		return 0
	}
	relativeError := math.Sqrt(variance) / mean
	return math.Min(1, relativeError)
}

// SetUserImportance records a per-pixel user-supplied importance weight in
// [0,1] for the adaptive Sobol sampler's USER_IMPORTANCE combine (spec.md
// §4.2 step 3). Out-of-bounds coordinates are ignored.
func (f *Film) SetUserImportance(x, y int, value float64) {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return
	}
	f.pixels[y*f.width+x].userImportance.Store(math.Float64bits(value))
}

// GetUserImportance returns the weight SetUserImportance last stored at a
// pixel, or 0 if the film wasn't built with ChannelUserImportance or none
// was ever set there.
func (f *Film) GetUserImportance(x, y int) float64 {
	if f.channels&ChannelUserImportance == 0 || x < 0 || x >= f.width || y < 0 || y >= f.height {
		return 0
	}
	return math.Float64frombits(f.pixels[y*f.width+x].userImportance.Load())
}

// GetColor returns the tone-mapping-ready, normalized radiance at a pixel:
// the pixel-normalized channel divided by its own sample count, plus the
// screen-normalized channel divided by the total path count across every
// worker (light-tracing contributions share one global normalizer, not a
// per-pixel one).
func (f *Film) GetColor(x, y int) core.Vec3 {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return core.Vec3{}
	}
	p := &f.pixels[y*f.width+x]
	var result core.Vec3
	if count := p.pixelSampleCount.Load(); count > 0 && f.channels&ChannelRadiancePixelNormalized != 0 {
		result = result.Add(readVec3(&p.radiancePixelNorm).Multiply(1 / float64(count)))
	}
	if f.channels&ChannelRadianceScreenNormalized != 0 {
		if total := f.totalScreenSamples(); total > 0 {
			result = result.Add(readVec3(&p.radianceScreenNorm).Multiply(1 / float64(total)))
		}
	}
	return result
}

func (f *Film) totalScreenSamples() uint64 {
	var total uint64
	for _, tc := range f.snapshotThreadCounts() {
		total += tc.screenNormalized.Load()
	}
	return total
}

// TotalPixelSamples sums every worker's pixel-normalized sample count,
// used by halt tests and progress reporting.
func (f *Film) TotalPixelSamples() uint64 {
	var total uint64
	for _, tc := range f.snapshotThreadCounts() {
		total += tc.pixelNormalized.Load()
	}
	return total
}

// Reset zeroes every pixel's accumulators and sample counters in place,
// keeping the same backing allocation and sub-region. It implements
// spec.md §4.7's "reset film counters (or not, depending on edit kind)"
// branch for scene edits that invalidate everything already accumulated
// (geometry/material changes); camera-only edits should leave the film
// alone instead of calling this. Callers must hold the engine's edit
// barrier (no worker may be splatting concurrently) before calling Reset.
func (f *Film) Reset() {
	for i := range f.pixels {
		p := &f.pixels[i]
		zeroVec3(&p.radiancePixelNorm)
		zeroVec3(&p.radianceScreenNorm)
		zeroVec3(&p.albedo)
		zeroVec3(&p.shadingNormal)
		p.depth.Store(0)
		p.alpha.Store(0)
		p.noise.Store(0)
		p.userImportance.Store(0)
		p.lumAccum.Store(0)
		p.lumSqAccum.Store(0)
		p.pixelSampleCount.Store(0)
	}
	f.threadCountsMu.Lock()
	for _, tc := range f.threadCounts {
		tc.pixelNormalized.Store(0)
		tc.screenNormalized.Store(0)
	}
	f.threadCountsMu.Unlock()
}

func zeroVec3(dst *[3]atomic.Uint64) {
	dst[0].Store(0)
	dst[1].Store(0)
	dst[2].Store(0)
}

func addVec3(dst *[3]atomic.Uint64, v core.Vec3, weight float64) {
	atomicAddFloat64(&dst[0], v.X*weight)
	atomicAddFloat64(&dst[1], v.Y*weight)
	atomicAddFloat64(&dst[2], v.Z*weight)
}

func readVec3(src *[3]atomic.Uint64) core.Vec3 {
	return core.Vec3{
		X: math.Float64frombits(src[0].Load()),
		Y: math.Float64frombits(src[1].Load()),
		Z: math.Float64frombits(src[2].Load()),
	}
}

// atomicAddFloat64 performs a lock-free read-modify-write add on a float64
// stored as raw bits, looping on compare-and-swap until it wins — the
// "fixed-point accumulation or CAS loop" concurrency policy spec.md's Film
// section calls for.
func atomicAddFloat64(addr *atomic.Uint64, delta float64) {
	for {
		old := addr.Load()
		newValue := math.Float64frombits(old) + delta
		if addr.CompareAndSwap(old, math.Float64bits(newValue)) {
			return
		}
	}
}

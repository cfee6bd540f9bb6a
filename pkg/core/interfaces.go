package core

// Logger interface for raytracer logging.
type Logger interface {
	Printf(format string, args ...interface{})
}

// Sampler is the seam between the renderer and every sample-generation
// strategy (pure random, Sobol quasi-random, Metropolis, tile-reproducible,
// interactive zoom-phase). Every place that used to pull from a bare
// *rand.Rand goes through this interface instead, so a scene can be
// re-rendered deterministically from a Sobol stream or interactively
// resampled without touching integrator code.
type Sampler interface {
	// Get1D returns the next 1D sample in [0,1) for the current pixel sample.
	Get1D() float64
	// Get2D returns the next 2D sample in [0,1)^2 for the current pixel sample.
	Get2D() (float64, float64)
	// StartPixelSample resets the per-dimension cursor for a new sample at
	// the given pixel and sample index, so repeated calls to Get1D/Get2D
	// within one sample draw a fresh, well-distributed dimension each time.
	// It returns false when the sampler declines to produce this sample at
	// all (an adaptive skip, or an exhausted interactive sequence) — the
	// caller must still treat the dimension cursor as advanced.
	StartPixelSample(pixelX, pixelY, sampleIndex int) bool
	// NextSample commits a batch of results produced from the current
	// pixel sample, splatting them to the attached film and advancing any
	// sampler-internal state (Metropolis accept/reject, pass counters).
	NextSample(results []SampleResult)
	// SetThreadIndex associates this sampler instance with a worker index,
	// used for per-thread seeding and adaptive-noise film lookups.
	SetThreadIndex(i int)
}

// Film is the splat target every Sampler writes into. Declared here rather
// than in pkg/film so pkg/sampler can depend on it without importing the
// film package, mirroring the BSDF/Emitter import-cycle avoidance above.
type Film interface {
	// AddSample splats one path's contribution onto the film's channels
	// using the pixel filter footprint around (result.FilmX, result.FilmY).
	AddSample(result SampleResult, weight float64)
	// AddSampleCount increments the per-thread pixel/screen normalized
	// sample counters that drive film normalization.
	AddSampleCount(threadIndex int, pixelNormalized, screenNormalized int)
	// GetNoise returns the adaptive-sampling noise estimate in [0,1] at a
	// pixel, or 0 if the film has no NOISE channel yet (early samples).
	GetNoise(pixelX, pixelY int) float64
	// GetUserImportance returns the per-pixel user-supplied importance
	// weight in [0,1], or 0 if the film has no USER_IMPORTANCE channel or
	// none was ever set at this pixel.
	GetUserImportance(pixelX, pixelY int) float64
	// Width and Height report the film's pixel dimensions.
	Width() int
	Height() int
}

// Shape is the minimal geometric contract the BVH and integrators need:
// ray intersection and a bounding box. Concrete shapes live in
// pkg/geometry; it is declared here so core-level code (the BVH-backed
// DLSC lookup, for instance) can depend on it without importing geometry.
type Shape interface {
	Hit(ray Ray, tMin, tMax float64) (*HitPoint, bool)
	BoundingBox() AABB
}

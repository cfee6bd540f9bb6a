package sampler

import (
	"math/rand"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/lowdiscrepancy"
)

// SobolParams configures the production-default sampler.
type SobolParams struct {
	AdaptiveStrength            float64 // [0, 0.95]
	AdaptiveUserImportanceWeight float64 // [0, 1]
	BucketSize                  int     // pow2, default 16
	TileSize                    int     // pow2, default 16
	SuperSampling               int     // default 1
	Overlapping                 int     // default 1
}

// DefaultSobolParams returns the spec's documented defaults.
func DefaultSobolParams() SobolParams {
	return SobolParams{
		AdaptiveStrength:             0,
		AdaptiveUserImportanceWeight: 0,
		BucketSize:                   16,
		TileSize:                     16,
		SuperSampling:                1,
		Overlapping:                  1,
	}
}

// SobolSampler is the production default: a bucketed, Morton-ordered,
// Owen-scrambled Sobol sequence with optional adaptive pixel skipping driven
// by the film's NOISE channel.
type SobolSampler struct {
	params      SobolParams
	shared      *SobolSharedData
	film        core.Film
	threadIndex int
	rng         *rand.Rand

	bucketIndex      uint64
	offsetInBucket   int
	pixelX, pixelY   int
	pixelIndex       int
	pass             uint32
	stream           *lowdiscrepancy.Stream
	dim              int
}

// NewSobolSampler creates a Sobol sampler drawing buckets from shared.
func NewSobolSampler(params SobolParams, shared *SobolSharedData, film core.Film) *SobolSampler {
	return &SobolSampler{
		params: params,
		shared: shared,
		film:   film,
		rng:    rand.New(rand.NewSource(int64(shared.SeedBase))),
	}
}

func (s *SobolSampler) SetThreadIndex(i int) { s.threadIndex = i }

// StartPixelSample advances the sampler to the next bucket position,
// claiming a new bucket from the shared counter when the current one is
// exhausted, maps the bucket-local offset to a pixel in Morton order within
// the tile, and runs the adaptive skip test against the film's noise
// estimate. It returns false when the adaptive test decides to skip this
// pixel for this pass — the caller should not trace a path, only advance.
func (s *SobolSampler) StartPixelSample(pixelX, pixelY, sampleIndex int) bool {
	bucketSize := s.params.BucketSize
	if bucketSize <= 0 {
		bucketSize = 16
	}
	super := s.params.SuperSampling
	if super <= 0 {
		super = 1
	}
	overlapping := s.params.Overlapping
	if overlapping <= 0 {
		overlapping = 1
	}

	if s.offsetInBucket >= bucketSize*super || s.stream == nil {
		s.bucketIndex = s.shared.ClaimBucket()
		s.offsetInBucket = 0
	}

	width, height := s.shared.Width, s.shared.Height
	// Each bucket covers bucketSize consecutive pixel slots; SuperSampling
	// revisits each slot that many times before moving on.
	bucketPixelIndex := int(s.bucketIndex/uint64(overlapping))*bucketSize + s.offsetInBucket/super
	s.offsetInBucket++

	if width <= 0 || height <= 0 {
		s.pixelX, s.pixelY = pixelX, pixelY
	} else {
		// Morton order inside a tile, row-major across tiles.
		tileSize := s.params.TileSize
		if tileSize <= 0 {
			tileSize = 16
		}
		tilePixels := tileSize * tileSize
		tilesX := (width + tileSize - 1) / tileSize
		tilesY := (height + tileSize - 1) / tileSize
		tileIdx := (bucketPixelIndex / tilePixels) % (tilesX * tilesY)
		mx, my := lowdiscrepancy.DecodeMorton2(uint64(bucketPixelIndex % tilePixels))
		s.pixelX = (tileIdx%tilesX)*tileSize + int(mx)
		s.pixelY = (tileIdx/tilesX)*tileSize + int(my)
		if s.pixelX >= width || s.pixelY >= height {
			// Edge-tile overhang: this slot maps to no pixel, skip it.
			return false
		}
	}
	s.pixelIndex = s.pixelY*width + s.pixelX
	if s.pixelIndex < 0 || s.pixelIndex >= len(s.shared.passCounts) {
		s.pixelIndex = 0
	}

	if !s.adaptiveAccept() {
		return false
	}

	s.pass = s.shared.NextPass(s.pixelIndex)
	s.stream = lowdiscrepancy.NewStream(uint32(s.pixelX)+s.shared.SeedBase, uint32(s.pixelY), s.pass)
	s.dim = 0
	return true
}

// adaptiveAccept draws a uniform sample and compares it against the film's
// per-pixel noise threshold, always consuming the sample even on the skip
// path so RNG streams stay in lockstep across pixels regardless of the
// adaptive decision (the spec resolves its own open question this way).
//
// When a USER_IMPORTANCE weight is configured, it is combined with the
// noise estimate per spec.md §4.2 step 3: a pixel with no recorded
// importance (user <= 0, meaning the channel has nothing for it yet) is
// forced to threshold 0 rather than falling back to noise alone, so an
// importance map can withhold sampling from regions it marks irrelevant.
func (s *SobolSampler) adaptiveAccept() bool {
	u := s.rng.Float64()
	if s.params.AdaptiveStrength <= 0 || s.film == nil {
		return true
	}
	noise := s.film.GetNoise(s.pixelX, s.pixelY)
	threshold := noise
	if s.params.AdaptiveUserImportanceWeight > 0 {
		if userImportance := s.film.GetUserImportance(s.pixelX, s.pixelY); userImportance > 0 {
			threshold = lerp(s.params.AdaptiveUserImportanceWeight, noise, userImportance)
		} else {
			threshold = 0
		}
	}
	minThreshold := 1 - s.params.AdaptiveStrength
	if threshold < minThreshold {
		threshold = minThreshold
	}
	return u <= threshold
}

func lerp(w, a, b float64) float64 { return a + w*(b-a) }

// Get1D returns owen_sobol(pass, dim) for the current pixel sample,
// reserving dimensions 0 and 1 for image-plane coordinates per the sampler
// contract.
func (s *SobolSampler) Get1D() float64 {
	v := s.stream.Next1D()
	s.dim++
	return v
}

func (s *SobolSampler) Get2D() (float64, float64) {
	a, b := s.stream.Next2D()
	s.dim += 2
	return a, b
}

// ImagePlaneSample returns pixel_x + owen_sobol(pass, 0), pixel_y +
// owen_sobol(pass, 1) as dimensions 0 and 1 of the current sample.
func (s *SobolSampler) ImagePlaneSample() (float64, float64) {
	u, v := s.stream.Next2D()
	s.dim += 2
	return float64(s.pixelX) + u, float64(s.pixelY) + v
}

func (s *SobolSampler) NextSample(results []core.SampleResult) {
	splatAll(s.film, s.threadIndex, results)
}

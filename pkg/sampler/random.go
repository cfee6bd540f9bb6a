package sampler

import (
	"math/rand"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// RandomSampler draws every dimension from an independent pseudo-random
// stream. It is the trivial baseline sampler; the DLSC cache build's probe
// paths and the progressive renderer also draw from it.
type RandomSampler struct {
	rng          *rand.Rand
	film         core.Film
	threadIndex  int
	pixelX       int
	pixelY       int
	imageSamples bool
}

// NewRandomSampler creates a random sampler seeded from seedBase. If
// imageSamplesEnable is true, ImagePlaneSample returns coordinates jittered
// inside the current pixel; otherwise it returns a plain Get2D draw. Get2D
// itself always returns raw values.
func NewRandomSampler(seedBase uint32, film core.Film, imageSamplesEnable bool) *RandomSampler {
	return &RandomSampler{
		rng:          rand.New(rand.NewSource(int64(seedBase))),
		film:         film,
		imageSamples: imageSamplesEnable,
	}
}

func (s *RandomSampler) Get1D() float64 { return s.rng.Float64() }

func (s *RandomSampler) Get2D() (float64, float64) {
	return s.rng.Float64(), s.rng.Float64()
}

// StartPixelSample reseeds nothing (the stream is already continuous) but
// records the target pixel so ImagePlaneSample has a base
// to jitter around.
func (s *RandomSampler) StartPixelSample(pixelX, pixelY, sampleIndex int) bool {
	s.pixelX, s.pixelY = pixelX, pixelY
	return true
}

func (s *RandomSampler) NextSample(results []core.SampleResult) {
	splatAll(s.film, s.threadIndex, results)
}

func (s *RandomSampler) SetThreadIndex(i int) { s.threadIndex = i }

// ImagePlaneSample returns jittered image-plane coordinates for the pixel
// this sampler was last started on, honoring the imageSamplesEnable flag.
func (s *RandomSampler) ImagePlaneSample() (float64, float64) {
	if !s.imageSamples {
		return s.Get2D()
	}
	u, v := s.Get2D()
	return float64(s.pixelX) + u, float64(s.pixelY) + v
}

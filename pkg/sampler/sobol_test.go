package sampler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/df07/go-progressive-raytracer/pkg/film"
)

// TestAdaptiveAcceptUsesUserImportanceWhenSet verifies the USER_IMPORTANCE
// combine of spec.md §4.2 step 3 actually reads back what SetUserImportance
// wrote: a pixel marked fully important (1.0) must clear the adaptive test
// on every draw, regardless of the noise estimate, since
// lerp(weight, noise, 1.0) with weight=1.0 is always 1.
func TestAdaptiveAcceptUsesUserImportanceWhenSet(t *testing.T) {
	f := film.NewFilm(2, 2, film.ChannelNoise|film.ChannelUserImportance)
	f.SetUserImportance(0, 0, 1.0)

	s := &SobolSampler{
		params: SobolParams{AdaptiveStrength: 0.9, AdaptiveUserImportanceWeight: 1.0},
		film:   f,
		rng:    rand.New(rand.NewSource(42)),
		pixelX: 0,
		pixelY: 0,
	}
	for i := 0; i < 16; i++ {
		assert.True(t, s.adaptiveAccept())
	}
}

// TestAdaptiveAcceptForcesThresholdFloorWithoutImportance verifies a pixel
// the importance map never marked (GetUserImportance returns 0) is forced
// to the adaptive-strength floor rather than falling back to the noise
// estimate — the behavior the lerp(w, noise, noise) no-op silently dropped.
func TestAdaptiveAcceptForcesThresholdFloorWithoutImportance(t *testing.T) {
	f := film.NewFilm(2, 2, film.ChannelNoise|film.ChannelUserImportance)
	// pixel (1,1) never receives SetUserImportance: GetUserImportance is 0.

	s := &SobolSampler{
		params: SobolParams{AdaptiveStrength: 0.9, AdaptiveUserImportanceWeight: 1.0},
		film:   f,
		rng:    rand.New(rand.NewSource(1)),
		pixelX: 1,
		pixelY: 1,
	}

	ref := rand.New(rand.NewSource(1))
	u := ref.Float64()
	minThreshold := 1 - s.params.AdaptiveStrength
	want := u <= minThreshold

	assert.Equal(t, want, s.adaptiveAccept())
}

// TestSobolPixelMappingCoversFilm drives a single worker's sampler through
// enough bucket claims to cover an 8x8 film and checks the Morton-in-tile,
// row-major-across-tiles mapping visits every pixel at least once and
// never produces an out-of-range coordinate.
func TestSobolPixelMappingCoversFilm(t *testing.T) {
	const w, h = 8, 8
	shared := NewSobolSharedData(1, w, h, 16)
	s := NewSobolSampler(SobolParams{BucketSize: 16, TileSize: 4, SuperSampling: 1, Overlapping: 1}, shared, nil)

	visited := make(map[int]bool)
	for i := 0; i < 4*w*h; i++ {
		if !s.StartPixelSample(0, 0, 0) {
			continue
		}
		assert.GreaterOrEqual(t, s.pixelX, 0)
		assert.Less(t, s.pixelX, w)
		assert.GreaterOrEqual(t, s.pixelY, 0)
		assert.Less(t, s.pixelY, h)
		visited[s.pixelY*w+s.pixelX] = true
	}
	assert.Len(t, visited, w*h)
}

// TestSobolSuperSamplingRepeatsPixels checks SuperSampling > 1 revisits the
// same pixel slot that many times before advancing.
func TestSobolSuperSamplingRepeatsPixels(t *testing.T) {
	const w, h = 8, 8
	shared := NewSobolSharedData(1, w, h, 16)
	s := NewSobolSampler(SobolParams{BucketSize: 16, TileSize: 8, SuperSampling: 2, Overlapping: 1}, shared, nil)

	var coords [][2]int
	for len(coords) < 8 {
		if s.StartPixelSample(0, 0, 0) {
			coords = append(coords, [2]int{s.pixelX, s.pixelY})
		}
	}
	for i := 0; i+1 < len(coords); i += 2 {
		assert.Equal(t, coords[i], coords[i+1], "pair %d should revisit the same pixel", i/2)
	}
}

// TestAdaptiveAcceptIgnoresImportanceWhenWeightIsZero checks the lerp combine
// only kicks in when AdaptiveUserImportanceWeight is configured; with it at
// 0, the threshold is the noise estimate alone, matching a film with no
// USER_IMPORTANCE channel requested at all.
func TestAdaptiveAcceptIgnoresImportanceWhenWeightIsZero(t *testing.T) {
	f := film.NewFilm(2, 2, film.ChannelNoise|film.ChannelUserImportance)
	// Even though importance is set, a zero weight means it must not matter.
	f.SetUserImportance(0, 0, 0.0)

	s := &SobolSampler{
		params: SobolParams{AdaptiveStrength: 0.9, AdaptiveUserImportanceWeight: 0},
		film:   f,
		rng:    rand.New(rand.NewSource(7)),
		pixelX: 0,
		pixelY: 0,
	}

	ref := rand.New(rand.NewSource(7))
	u := ref.Float64()
	// GetNoise on an untouched pixel with ChannelNoise present but no
	// samples yet returns 1 (never skip); clamped threshold stays 1.
	want := u <= 1.0

	assert.Equal(t, want, s.adaptiveAccept())
}

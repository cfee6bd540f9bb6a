package sampler

import (
	"math/rand"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// InteractiveParams configures the zoom-phase sampler used for real-time
// CPU preview: a coarse first frame that gives the whole image non-zero
// coverage immediately, then one sample per pixel per subsequent visit.
type InteractiveParams struct {
	ZoomFactor int // coarse grid size for the first frame, default 8
	ZoomWeight float64
}

func DefaultInteractiveParams() InteractiveParams {
	return InteractiveParams{ZoomFactor: 8, ZoomWeight: 1.0}
}

// InteractiveSampler is the RTPATHCPU-style sampler: its first frame visits
// a coarse zoom_factor x zoom_factor grid, splatting each sample as a
// zoom_factor x zoom_factor block with a fake weight so the preview has
// full-frame coverage before real per-pixel sampling begins.
type InteractiveSampler struct {
	params      InteractiveParams
	shared      *InteractiveSharedData
	film        core.Film
	width       int
	height      int
	threadIndex int

	rng    *rand.Rand
	pixelX int
	pixelY int
	zoomBlockX int
	zoomBlockY int
}

func NewInteractiveSampler(params InteractiveParams, shared *InteractiveSharedData, film core.Film, width, height int, seedBase uint32) *InteractiveSampler {
	return &InteractiveSampler{
		params: params,
		shared: shared,
		film:   film,
		width:  width,
		height: height,
		rng:    rand.New(rand.NewSource(int64(seedBase))),
	}
}

func (s *InteractiveSampler) SetThreadIndex(i int) { s.threadIndex = i }

// StartPixelSample picks the next pixel to sample: during the first frame,
// walks the coarse zoom grid; afterward, pulls the next index out of the
// shared randomized visit sequence.
func (s *InteractiveSampler) StartPixelSample(pixelX, pixelY, sampleIndex int) bool {
	zoom := s.params.ZoomFactor
	if zoom <= 0 {
		zoom = 1
	}
	if s.shared.FirstFrame.Load() {
		blocksX := (s.width + zoom - 1) / zoom
		blocksY := (s.height + zoom - 1) / zoom
		idx := s.shared.NextIndex() % (blocksX * blocksY)
		s.zoomBlockX = (idx % blocksX) * zoom
		s.zoomBlockY = (idx / blocksX) * zoom
		s.pixelX = s.zoomBlockX
		s.pixelY = s.zoomBlockY
		if s.pixelX >= s.width || s.pixelY >= s.height {
			return false
		}
		if idx == blocksX*blocksY-1 {
			s.shared.WorkerFinishedFirstFrame()
		}
		return true
	}

	idx := s.shared.NextIndex()
	s.pixelX = idx % s.width
	s.pixelY = idx / s.width
	s.zoomBlockX, s.zoomBlockY = -1, -1
	return true
}

func (s *InteractiveSampler) Get1D() float64 { return s.rng.Float64() }

func (s *InteractiveSampler) Get2D() (float64, float64) {
	return s.rng.Float64(), s.rng.Float64()
}

func (s *InteractiveSampler) ImagePlaneSample() (float64, float64) {
	u, v := s.Get2D()
	return float64(s.pixelX) + u, float64(s.pixelY) + v
}

// NextSample splats each result once per pixel covered by the current zoom
// block (1x1 outside the first frame) with the configured zoom_weight
// fake-weight so a coarse preview doesn't read as under-sampled.
func (s *InteractiveSampler) NextSample(results []core.SampleResult) {
	if s.film == nil {
		return
	}
	if s.zoomBlockX < 0 {
		splatAll(s.film, s.threadIndex, results)
		return
	}

	zoom := s.params.ZoomFactor
	for dy := 0; dy < zoom && s.zoomBlockY+dy < s.height; dy++ {
		for dx := 0; dx < zoom && s.zoomBlockX+dx < s.width; dx++ {
			for _, r := range results {
				block := r
				block.FilmX = float64(s.zoomBlockX+dx) + (r.FilmX - float64(s.zoomBlockX))
				block.FilmY = float64(s.zoomBlockY+dy) + (r.FilmY - float64(s.zoomBlockY))
				s.film.AddSample(block, s.params.ZoomWeight)
			}
		}
	}
	pixelCount, screenCount := normalizationCounts(results)
	s.film.AddSampleCount(s.threadIndex, pixelCount, screenCount)
}

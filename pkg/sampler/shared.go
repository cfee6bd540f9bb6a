// Package sampler implements the Sampler family: the seam between a
// RenderEngine worker and the sequence of [0,1) values it consumes to place
// a path on the image plane and steer every bounce. Each sampler type pairs
// a worker-local cursor with a SamplerSharedData instance owned by the
// engine, so many workers can cooperatively partition one image without
// locking against each other.
package sampler

import (
	"sync/atomic"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// SharedData is engine-scoped state shared across every worker sampler of
// the same type. It must be safe for concurrent use: workers only perform
// atomic fetch-adds against it, never hold a lock across a sample.
type SharedData interface {
	// Reset reinitializes the shared state (bucket counters, tile queue,
	// pixel-visit sequence) after a scene edit invalidates prior progress.
	Reset()
}

// SobolSharedData is the engine-owned state backing every worker's
// SobolSampler: an atomically-claimed bucket counter and a base seed, plus
// a per-pixel pass counter so two workers never reuse the same Sobol index
// for one pixel.
type SobolSharedData struct {
	SeedBase    uint32
	BucketSize  int
	Width       int
	Height      int
	bucketIndex atomic.Uint64
	passCounts  []atomic.Uint32
}

// NewSobolSharedData builds shared Sobol state for a film of the given
// dimensions, bucketed in bucketSize-pixel groups.
func NewSobolSharedData(seedBase uint32, width, height, bucketSize int) *SobolSharedData {
	if bucketSize <= 0 {
		bucketSize = 16
	}
	return &SobolSharedData{
		SeedBase:   seedBase,
		BucketSize: bucketSize,
		Width:      width,
		Height:     height,
		passCounts: make([]atomic.Uint32, width*height),
	}
}

// ClaimBucket atomically claims the next bucket index for a worker that
// has exhausted its current one.
func (s *SobolSharedData) ClaimBucket() uint64 {
	return s.bucketIndex.Add(1) - 1
}

// NextPass atomically increments and returns the pass count for a pixel,
// so concurrent workers revisiting the same pixel (overlapping buckets)
// never collide on the same Sobol sample index.
func (s *SobolSharedData) NextPass(pixelIndex int) uint32 {
	return s.passCounts[pixelIndex].Add(1) - 1
}

// Reset clears the bucket counter and every per-pixel pass count.
func (s *SobolSharedData) Reset() {
	s.bucketIndex.Store(0)
	for i := range s.passCounts {
		s.passCounts[i].Store(0)
	}
}

// MetropolisSharedData is the engine-owned state backing every worker's
// MetropolisSampler: just a seed source, since the mutation chain itself is
// entirely worker-local.
type MetropolisSharedData struct {
	SeedBase uint32
}

func NewMetropolisSharedData(seedBase uint32) *MetropolisSharedData {
	return &MetropolisSharedData{SeedBase: seedBase}
}

func (m *MetropolisSharedData) Reset() {}

// TilePathSharedData hands out film tiles to workers via an atomic queue
// index; tiles are precomputed once so the traversal order is reproducible
// across runs with the same seed.
type TilePathSharedData struct {
	Tiles     []Tile
	nextTile  atomic.Uint64
	MultiPass atomic.Uint32
}

// Tile is a rectangular film region processed to completion by one worker.
type Tile struct {
	X, Y, Width, Height int
}

// NewTilePathSharedData partitions a width x height film into tileSize
// square tiles in row-major order.
func NewTilePathSharedData(width, height, tileSize int) *TilePathSharedData {
	if tileSize <= 0 {
		tileSize = 16
	}
	var tiles []Tile
	for y := 0; y < height; y += tileSize {
		h := tileSize
		if y+h > height {
			h = height - y
		}
		for x := 0; x < width; x += tileSize {
			w := tileSize
			if x+w > width {
				w = width - x
			}
			tiles = append(tiles, Tile{X: x, Y: y, Width: w, Height: h})
		}
	}
	return &TilePathSharedData{Tiles: tiles}
}

// ClaimTile atomically claims the next tile, cycling back to the start once
// every tile has been visited this cycle. The returned pass is the claim's
// cycle number; the MultiPass field is not changed by it.
func (t *TilePathSharedData) ClaimTile() (Tile, uint32) {
	idx := t.nextTile.Add(1) - 1
	n := uint64(len(t.Tiles))
	pass := uint32(idx / n)
	return t.Tiles[idx%n], pass
}

func (t *TilePathSharedData) Reset() {
	t.nextTile.Store(0)
	t.MultiPass.Store(0)
}

// InteractiveSharedData holds the randomized subregion pixel-visit sequence
// used by the zoom-phase interactive sampler after its first, coarse frame.
type InteractiveSharedData struct {
	Sequence     []int
	FirstFrame   atomic.Bool
	nextIndex    atomic.Uint64
	workersReady atomic.Int32
	workerCount  int
}

// NewInteractiveSharedData builds a shuffled visit order over width*height
// pixels, deterministic given seed.
func NewInteractiveSharedData(width, height int, seed uint32, workerCount int) *InteractiveSharedData {
	n := width * height
	seq := make([]int, n)
	for i := range seq {
		seq[i] = i
	}
	rng := newSplitmix(uint64(seed))
	for i := n - 1; i > 0; i-- {
		j := int(rng.next() % uint64(i+1))
		seq[i], seq[j] = seq[j], seq[i]
	}
	d := &InteractiveSharedData{Sequence: seq, workerCount: workerCount}
	d.FirstFrame.Store(true)
	return d
}

// NextIndex hands out the next position in the shuffled sequence, wrapping
// around once every pixel has been visited.
func (d *InteractiveSharedData) NextIndex() int {
	idx := d.nextIndex.Add(1) - 1
	return d.Sequence[int(idx)%len(d.Sequence)]
}

// WorkerFinishedFirstFrame signals the engine once every worker has
// completed its coarse zoom-phase pass; returns true exactly once, on the
// transition.
func (d *InteractiveSharedData) WorkerFinishedFirstFrame() bool {
	n := d.workersReady.Add(1)
	if int(n) == d.workerCount {
		d.FirstFrame.Store(false)
		return true
	}
	return false
}

func (d *InteractiveSharedData) Reset() {
	d.FirstFrame.Store(true)
	d.nextIndex.Store(0)
	d.workersReady.Store(0)
}

// splatAll adds every result to film at weight 1.0 and reports the counts
// back to AddSampleCount split by each result's own normalization target,
// rather than assuming every result in the batch is pixel-normalized — a
// path tracer's batch is typically all-pixel, but a LightTracer's camera
// connections are all-screen, and either can appear here.
func splatAll(f core.Film, threadIndex int, results []core.SampleResult) {
	if f == nil {
		return
	}
	for _, r := range results {
		f.AddSample(r, 1.0)
	}
	pixelCount, screenCount := normalizationCounts(results)
	f.AddSampleCount(threadIndex, pixelCount, screenCount)
}

// normalizationCounts splits a result batch into pixel- and
// screen-normalized counts, for callers (like InteractiveSampler's
// zoom-block splatting) that can't use splatAll's fixed weight of 1.0.
func normalizationCounts(results []core.SampleResult) (pixelCount, screenCount int) {
	for _, r := range results {
		if r.ScreenNormalized {
			screenCount++
		} else {
			pixelCount++
		}
	}
	return pixelCount, screenCount
}

// splitmix64 is a tiny deterministic PRNG used only to build the shuffled
// visit sequence above; it is not exposed as a Sampler source.
type splitmix struct{ state uint64 }

func newSplitmix(seed uint64) *splitmix { return &splitmix{state: seed} }

func (s *splitmix) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

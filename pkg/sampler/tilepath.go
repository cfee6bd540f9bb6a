package sampler

import (
	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// TilePathParams configures the tile-at-a-time sampler used by batch
// TILEPATHCPU-style backends: one sample per (tile pixel, AA sub-sample,
// pass), reproducible across restarts given the same tile and seed.
type TilePathParams struct {
	AASize int // antialiasing sub-sample grid size, default 3 (3x3)
}

func DefaultTilePathParams() TilePathParams { return TilePathParams{AASize: 3} }

// TilePathSampler claims whole film tiles from TilePathSharedData and walks
// every pixel and AA sub-sample of its current tile for one pass, then
// claims the next tile; the pass number comes from ClaimTile.
type TilePathSampler struct {
	params      TilePathParams
	shared      *TilePathSharedData
	film        core.Film
	threadIndex int

	tile       Tile
	multiPass  uint32
	localX     int
	localY     int
	subX       int
	subY       int
	rng        *tausworthe
}

func NewTilePathSampler(params TilePathParams, shared *TilePathSharedData, film core.Film) *TilePathSampler {
	s := &TilePathSampler{params: params, shared: shared, film: film}
	s.tile, s.multiPass = shared.ClaimTile()
	return s
}

func (s *TilePathSampler) SetThreadIndex(i int) { s.threadIndex = i }

// StartPixelSample advances (x, y, sub, pass) within the current tile,
// claiming the next tile from shared state when the current one is
// exhausted, and reseeds a Tausworthe RNG from (tile_coord,
// pixel_offset_in_tile, multipass_index) so the sequence is reproducible.
func (s *TilePathSampler) StartPixelSample(pixelX, pixelY, sampleIndex int) bool {
	s.advance()
	seed := tileSeed(s.tile.X, s.tile.Y, s.localX, s.localY, s.subX, s.subY, s.multiPass)
	s.rng = newTausworthe(seed)
	return true
}

func (s *TilePathSampler) advance() {
	aa := s.params.AASize
	if aa <= 0 {
		aa = 1
	}
	s.subX++
	if s.subX >= aa {
		s.subX = 0
		s.subY++
	}
	if s.subY >= aa {
		s.subY = 0
		s.localX++
	}
	if s.localX >= s.tile.Width {
		s.localX = 0
		s.localY++
	}
	if s.localY >= s.tile.Height {
		s.localY = 0
		s.multiPass++
	}
}

func (s *TilePathSampler) PixelCoords() (int, int) {
	return s.tile.X + s.localX, s.tile.Y + s.localY
}

// ImagePlaneSample returns the current tile pixel's image-plane
// coordinates, jittered within the AA sub-cell the (subX, subY) cursor is
// on, so the aa.size grid stratifies each pixel's footprint.
func (s *TilePathSampler) ImagePlaneSample() (float64, float64) {
	aa := s.params.AASize
	if aa <= 0 {
		aa = 1
	}
	px, py := s.PixelCoords()
	u := (float64(s.subX) + s.rng.float64()) / float64(aa)
	v := (float64(s.subY) + s.rng.float64()) / float64(aa)
	return float64(px) + u, float64(py) + v
}

func (s *TilePathSampler) Get1D() float64 { return s.rng.float64() }

func (s *TilePathSampler) Get2D() (float64, float64) {
	return s.rng.float64(), s.rng.float64()
}

func (s *TilePathSampler) NextSample(results []core.SampleResult) {
	splatAll(s.film, s.threadIndex, results)
	// When this tile's current pass is exhausted, hand it back and claim
	// the next one so the worker doesn't starve on a tile it finished.
	if s.localX == 0 && s.localY == 0 && s.subX == 0 && s.subY == 0 {
		s.tile, s.multiPass = s.shared.ClaimTile()
	}
}

func tileSeed(tileX, tileY, localX, localY, subX, subY int, multiPass uint32) uint64 {
	h := uint64(tileX)*0x9E3779B97F4A7C15 ^ uint64(tileY)*0xC2B2AE3D27D4EB4F
	h ^= uint64(localX*1000+localY) * 0xBF58476D1CE4E5B9
	h ^= uint64(subX*100+subY) * 0x94D049BB133111EB
	h ^= uint64(multiPass) * 0xD6E8FEB86659FD93
	h ^= h >> 33
	return h
}

// tausworthe is a small xorshift-family RNG matching the "Tausworthe RNG"
// the sampler contract names for tile reproducibility; it is deliberately
// simple and seeded freshly per pixel/sub-sample/pass rather than carried
// across samples.
type tausworthe struct{ state uint64 }

func newTausworthe(seed uint64) *tausworthe {
	if seed == 0 {
		seed = 0x2545F4914F6CDD1D
	}
	return &tausworthe{state: seed}
}

func (t *tausworthe) next() uint64 {
	t.state ^= t.state << 13
	t.state ^= t.state >> 7
	t.state ^= t.state << 17
	return t.state
}

func (t *tausworthe) float64() float64 {
	return float64(t.next()>>11) * (1.0 / (1 << 53))
}

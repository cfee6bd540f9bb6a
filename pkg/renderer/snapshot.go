package renderer

// RenderState is the resumable opaque blob of spec.md §4.7: enough state
// to resume rendering deterministically after a process restart, given the
// same scene and configuration. Deterministic resume depends on the
// sampler's own seed derivation (seed_base + thread_index) reproducing the
// same stream, so RenderState itself only needs to carry the seed and
// whatever out-of-process artifacts (a tile repository, a DLSC file) the
// sampler/cache can't regenerate from seed alone.
type RenderState struct {
	SeedBase uint32

	// TileRepository is the serialized claim state of a tiled sampler (e.g.
	// TilePathSharedData's tile claim counter), present only when the
	// configured sampler is tile-based.
	TileRepository []byte

	// DLSCFilePath is the path to a persisted direct-light sampling cache,
	// loaded instead of rebuilt on resume.
	DLSCFilePath string

	// PhotonGICachePath would hold a photon-mapping global-illumination
	// cache path if one were configured; present here for parity with
	// spec.md's snapshot shape even though pkg/dlsc is this repo's only
	// cache implementation.
	PhotonGICachePath string
}

// Snapshot captures a RenderState sufficient to resume this engine's render
// elsewhere. The engine must be Paused or Stopped when this is called, so
// the tile repository (if any) isn't mutated mid-read.
func (e *RenderEngine) Snapshot(tileRepository []byte, dlscFilePath string) RenderState {
	return RenderState{
		SeedBase:       e.config.Seed,
		TileRepository: tileRepository,
		DLSCFilePath:   dlscFilePath,
	}
}

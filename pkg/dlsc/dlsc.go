// Package dlsc builds and queries the direct-light sampling cache: a
// spatial index of "what lit this neighborhood" distributions, consulted
// by pkg/lightstrategy so next-event estimation picks a light that is
// actually likely to contribute instead of drawing uniformly or by raw
// power. It implements spec.md §4.5.
package dlsc

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/lightstrategy"
)

// VisibilityParams controls the probe pass that discovers entry
// locations (step 2 of the build pipeline).
type VisibilityParams struct {
	MaxPathDepth    int
	MaxSampleCount  int
	TargetHitRate   float64
	LookupRadius    float64 // 0 = auto-detect
	LookupNormalCos float64 // cosine of the normal-cone half-angle for merging
}

// EntryParams controls per-entry importance estimation (step 3).
type EntryParams struct {
	WarmupSamples        int
	MaxPasses            int
	ConvergenceThreshold float64
}

// PersistentParams controls on-disk caching of a built DLSC.
type PersistentParams struct {
	FileName string
	SafeSave bool
}

// Params bundles every DLSC build knob.
type Params struct {
	Visibility VisibilityParams
	Entry      EntryParams
	Persistent PersistentParams
}

// DefaultParams mirrors the defaults a renderer would ship: a 95% target
// hit rate for the probe pass, a 64-sample warmup and a 1% convergence
// threshold, no persistence configured.
func DefaultParams() Params {
	return Params{
		Visibility: VisibilityParams{
			MaxPathDepth:    8,
			MaxSampleCount:  1_000_000,
			TargetHitRate:   0.95,
			LookupRadius:    0,
			LookupNormalCos: math.Cos(45 * math.Pi / 180),
		},
		Entry: EntryParams{
			WarmupSamples:        64,
			MaxPasses:            512,
			ConvergenceThreshold: 0.01,
		},
	}
}

// Entry is one cache location: a merged cluster of nearby visibility
// particles sharing a position/normal neighborhood, plus the per-light
// distribution derived from their received luminance.
type Entry struct {
	Point    core.Vec3
	Normal   core.Vec3
	IsVolume bool

	// BSDFs is the merged candidate list used during importance
	// estimation (step 3's "pick a BSDF from the merged list"). It is not
	// persisted — a reloaded cache only needs the final Distribution.
	BSDFs []*core.HitPoint

	// Wos holds the outgoing direction (toward the camera-ward path
	// vertex) recorded for each entry in BSDFs, parallel by index; the
	// importance pass hands it to BSDF.Evaluate as wo when forming the
	// connection throughput toward each light.
	Wos    []core.Vec3
	Volume *core.PathVolumeInfo

	luminance    []float64 // raw received luminance per light, before normalize/clamp
	Distribution *lightstrategy.LightsDistribution
}

// DLSC is a built direct-light sampling cache, satisfying
// lightstrategy.DLSCLookup.
type DLSC struct {
	params  Params
	radius  float64
	entries []*Entry
	grid    *grid
}

// Lookup finds the nearest entry covering (point, normal, isVolume) within
// the cache's lookup radius and normal cone, and returns its distribution.
// Returns false if no entry is in range or the nearest entry's
// distribution is null (the scene had no measurable illumination there).
func (d *DLSC) Lookup(point, normal core.Vec3, isVolume bool) (*lightstrategy.LightsDistribution, bool) {
	if d == nil || d.grid == nil {
		return nil, false
	}
	entry := d.grid.nearest(point, normal, isVolume, d.radius, d.params.Visibility.LookupNormalCos)
	if entry == nil || entry.Distribution == nil {
		return nil, false
	}
	return entry.Distribution, true
}

// EntryCount reports how many cache entries were built, for diagnostics
// and tests.
func (d *DLSC) EntryCount() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

var _ lightstrategy.DLSCLookup = (*DLSC)(nil)

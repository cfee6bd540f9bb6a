package dlsc

import (
	"errors"
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/lightstrategy"
	"github.com/df07/go-progressive-raytracer/pkg/sampler"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

// radicalInverse computes the base-b radical inverse of index i, the
// standard low-discrepancy primitive used to draw the five quasi-random
// coordinates spec.md's per-entry importance pass is built on.
func radicalInverse(base, index int) float64 {
	inv := 1.0 / float64(base)
	f := inv
	result := 0.0
	for i := index; i > 0; i /= base {
		result += float64(i%base) * f
		f *= inv
	}
	return result
}

var radicalInverseBases = [5]int{3, 5, 7, 11, 13}

// Build runs the five-step DLSC build pipeline of spec.md §4.5 against a
// preprocessed scene (sc.BVH and sc.Lights must already be populated) and
// returns the resulting cache. interrupt, if non-nil, is polled before each
// probe path and between entries so a RenderEngine's cooperative
// cancellation reaches into a long build.
func Build(sc *scene.Scene, params Params, interrupt func() bool) (*DLSC, error) {
	if sc == nil || sc.BVH == nil {
		return nil, core.NewRenderError(core.SceneError, "dlsc.Build", errors.New("scene not preprocessed"))
	}
	if interrupt == nil {
		interrupt = func() bool { return false }
	}

	radius := params.Visibility.LookupRadius
	if radius <= 0 {
		radius = autoRadius(sc, params.Visibility.MaxPathDepth)
	}

	mergeRadius := 1.5 * radius
	cellSize := mergeRadius
	if radius > cellSize {
		cellSize = radius
	}
	buildGrid := newGrid(cellSize)

	entries := traceVisibilityParticles(sc, params, radius, buildGrid, interrupt)
	if interrupt() {
		return nil, core.NewRenderError(core.CancelledError, "dlsc.Build", errors.New("interrupted"))
	}

	for _, e := range entries {
		if interrupt() {
			return nil, core.NewRenderError(core.CancelledError, "dlsc.Build", errors.New("interrupted"))
		}
		estimateEntryImportance(sc, e, params.Entry)
	}

	mergeNeighborhoods(entries, buildGrid, mergeRadius, params.Visibility.LookupNormalCos)

	lookupGrid := newGrid(cellSize)
	for _, e := range entries {
		e.BSDFs = nil
		e.Wos = nil
		lookupGrid.insert(e)
	}

	return &DLSC{params: params, radius: radius, entries: entries, grid: lookupGrid}, nil
}

// traceToNonSpecular walks ray forward through delta (specular-only)
// surfaces up to maxDepth bounces, returning the first hit on a
// non-delta (or non-existent) material.
func traceToNonSpecular(sc *scene.Scene, ray core.Ray, maxDepth int, rng core.Sampler) (*core.HitPoint, bool) {
	for d := 0; d < maxDepth; d++ {
		hit, ok := sc.BVH.Hit(ray, ray.TMin, math.Inf(1))
		if !ok || hit.Material == nil {
			return nil, false
		}
		if !hit.Material.IsDelta() {
			return hit, true
		}
		wo := ray.Direction.Negate()
		u1, u2 := rng.Get2D()
		u3 := rng.Get1D()
		bsdfSample, ok := hit.Material.Sample(hit, wo, u1, u2, u3, core.TransportRadiance)
		if !ok || bsdfSample.Value.IsZero() {
			return nil, false
		}
		origin := hit.Material.GetRayOrigin(hit, bsdfSample.Direction)
		ray = core.NewRay(origin, bsdfSample.Direction).WithTime(ray.Time)
	}
	return nil, false
}

// autoRadius implements step 1: probe the image plane at pixel-differential
// scale to estimate a world-space lookup radius, per spec.md §4.5.
func autoRadius(sc *scene.Scene, maxPathDepth int) float64 {
	const minSamples = 256
	const fallback = 0.15

	rng := sampler.NewRandomSampler(0x444C5343, nil, false)
	width := float64(sc.CameraConfig.Width)
	height := width / sc.CameraConfig.Aspect

	sum := 0.0
	count := 0
	for attempts := 0; attempts < minSamples*8 && count < minSamples; attempts++ {
		u1, u2 := rng.Get2D()
		px := u1 * width
		py := u2 * height
		lensU, lensV := rng.Get2D()
		timeU := rng.Get1D()

		s := px / width
		t := 1.0 - py/height
		sdx := (px + 1) / width
		tdy := 1.0 - (py+1)/height

		ray := sc.Camera.GenerateRay(s, t, lensU, lensV, timeU)
		rayDx := sc.Camera.GenerateRay(sdx, t, lensU, lensV, timeU)
		rayDy := sc.Camera.GenerateRay(s, tdy, lensU, lensV, timeU)

		hit, ok := traceToNonSpecular(sc, ray, maxPathDepth, rng)
		if !ok {
			continue
		}
		hitDx, okx := sc.BVH.Hit(rayDx, rayDx.TMin, math.Inf(1))
		hitDy, oky := sc.BVH.Hit(rayDy, rayDy.TMin, math.Inf(1))
		if !okx || !oky {
			continue
		}

		dpdx := hit.Point.Subtract(hitDx.Point).Length()
		dpdy := hit.Point.Subtract(hitDy.Point).Length()
		pathLength := hit.T
		sum += math.Max(dpdx, dpdy) * pathLength
		count++
	}

	if count == 0 {
		return fallback
	}
	return sum / float64(count)
}

// traceVisibilityParticles implements step 2: trace eye paths, merging
// each non-specular hit into an existing entry within radius/normal-cone
// or creating a new one, until the merge rate stabilizes at
// target_hit_rate or max_sample_count candidates have been traced.
func traceVisibilityParticles(sc *scene.Scene, params Params, radius float64, g *grid, interrupt func() bool) []*Entry {
	rng := sampler.NewRandomSampler(0x56495343, nil, false)
	normalCos := params.Visibility.LookupNormalCos

	var entries []*Entry
	merged, created := 0, 0

	for total := 0; total < params.Visibility.MaxSampleCount; {
		if interrupt() {
			break
		}
		u1, u2 := rng.Get2D()
		lensU, lensV := rng.Get2D()
		timeU := rng.Get1D()
		ray := sc.Camera.GenerateRay(u1, 1.0-u2, lensU, lensV, timeU)
		volume := &core.PathVolumeInfo{}

		for depth := 0; depth < params.Visibility.MaxPathDepth; depth++ {
			hit, ok := sc.BVH.Hit(ray, ray.TMin, math.Inf(1))
			if !ok || hit.Material == nil {
				break
			}
			hit.Volume = volume
			total++

			if !hit.Material.IsDelta() {
				wo := ray.Direction.Negate()
				isVolume := volume.IsVolumeOnly
				if existing := g.nearest(hit.Point, hit.Normal, isVolume, radius, normalCos); existing != nil {
					existing.BSDFs = append(existing.BSDFs, hit)
					existing.Wos = append(existing.Wos, wo)
					merged++
				} else {
					e := &Entry{
						Point:    hit.Point,
						Normal:   hit.Normal,
						IsVolume: isVolume,
						BSDFs:    []*core.HitPoint{hit},
						Wos:      []core.Vec3{wo},
						Volume:   volume.Clone(),
					}
					g.insert(e)
					entries = append(entries, e)
					created++
				}
			}

			u1b, u2b := rng.Get2D()
			u3b := rng.Get1D()
			bsdfSample, okSample := hit.Material.Sample(hit, ray.Direction.Negate(), u1b, u2b, u3b, core.TransportRadiance)
			if !okSample || bsdfSample.Value.IsZero() {
				break
			}
			if hit.Material.IsVolumeTransmission() {
				if hit.IntoObject {
					nv := volume.Clone()
					nv.CurrentVolume = hit
					volume = nv
				} else {
					volume = &core.PathVolumeInfo{}
				}
			}
			origin := hit.Material.GetRayOrigin(hit, bsdfSample.Direction)
			ray = core.NewRay(origin, bsdfSample.Direction).WithTime(ray.Time)

			if total >= params.Visibility.MaxSampleCount {
				break
			}
		}

		if n := merged + created; n > 0 && created > 0 {
			hitRate := float64(merged) / float64(n)
			if hitRate >= params.Visibility.TargetHitRate {
				break
			}
		}
	}

	return entries
}

// estimateEntryImportance implements step 3: for each direct-light-
// sampling-enabled emitter, draw quasi-random connections from the
// entry's merged BSDF list until the running mean converges, recording
// per-light mean luminance.
func estimateEntryImportance(sc *scene.Scene, e *Entry, params EntryParams) {
	e.luminance = make([]float64, len(sc.Lights))
	if len(e.BSDFs) == 0 {
		return
	}

	for li, light := range sc.Lights {
		if !light.IsDirectLightSamplingEnabled() {
			continue
		}

		warmup := params.WarmupSamples
		if light.IsEnvironmental() {
			warmup = max(warmup, 512)
		}

		total := 0.0
		passes := 0
		lastCheckpointMean := 0.0

		for k := 0; k < params.MaxPasses; k++ {
			qmc := [5]float64{
				radicalInverse(radicalInverseBases[0], k+1),
				radicalInverse(radicalInverseBases[1], k+1),
				radicalInverse(radicalInverseBases[2], k+1),
				radicalInverse(radicalInverseBases[3], k+1),
				radicalInverse(radicalInverseBases[4], k+1),
			}

			idx := int(qmc[0] * float64(len(e.BSDFs)))
			if idx >= len(e.BSDFs) {
				idx = len(e.BSDFs) - 1
			}
			hit := e.BSDFs[idx]
			wo := e.Wos[idx]

			lightSample, ok := light.Illuminate(e.Point, qmc[1], qmc[2])
			passes++
			if !ok || lightSample.PDF <= 0 {
				continue
			}

			// Connection throughput: the sampled BSDF's response toward the
			// light (Evaluate folds in the surface cosine).
			bsdfValue, _ := hit.Material.Evaluate(hit, wo, lightSample.Direction, core.TransportRadiance)
			if bsdfValue.IsZero() {
				continue
			}

			shadowRay := core.NewRay(hit.Material.GetRayOrigin(hit, lightSample.Direction), lightSample.Direction)
			shadowRay.TMax = lightSample.Distance * (1.0 - 1e-4)
			shadowRay.Flags = core.RayVisibility
			if _, occluded := sc.BVH.Hit(shadowRay, shadowRay.TMin, shadowRay.TMax); occluded {
				continue
			}

			contribution := bsdfValue.MultiplyVec(lightSample.Radiance).Luminance() / lightSample.PDF
			total += contribution

			if passes == warmup {
				lastCheckpointMean = total / float64(passes)
			} else if passes > warmup && (passes-warmup)%warmup == 0 {
				mean := total / float64(passes)
				if lastCheckpointMean > 0 && math.Abs(mean-lastCheckpointMean) < params.ConvergenceThreshold*mean {
					lastCheckpointMean = mean
					break
				}
				lastCheckpointMean = mean
			}
		}

		if passes > 0 {
			e.luminance[li] = total / float64(passes)
		}
	}
}

// mergeNeighborhoods implements step 4: average each entry's luminance
// vector with its spatial neighbors, normalize by the global maximum, and
// clamp every component to at least 2.5% of that maximum so no emitter is
// ever permanently invisible to the strategy.
func mergeNeighborhoods(entries []*Entry, g *grid, mergeRadius, normalCos float64) {
	if len(entries) == 0 {
		return
	}
	nLights := len(entries[0].luminance)
	merged := make([][]float64, len(entries))

	for i, e := range entries {
		sum := make([]float64, nLights)
		copy(sum, e.luminance)
		count := 1
		for _, nb := range g.neighbors(e.Point, e.Normal, e.IsVolume, mergeRadius, normalCos, e) {
			for li := 0; li < nLights && li < len(nb.luminance); li++ {
				sum[li] += nb.luminance[li]
			}
			count++
		}
		for li := range sum {
			sum[li] /= float64(count)
		}
		merged[i] = sum
	}

	for i, e := range entries {
		maxLum := 0.0
		for _, v := range merged[i] {
			if v > maxLum {
				maxLum = v
			}
		}
		if maxLum <= 0 {
			e.Distribution = nil
			continue
		}
		weights := make([]float64, len(merged[i]))
		floor := 0.025 * maxLum
		for li, v := range merged[i] {
			if v < floor {
				v = floor
			}
			weights[li] = v
		}
		e.Distribution = lightstrategy.NewLightsDistribution(weights)
	}
}

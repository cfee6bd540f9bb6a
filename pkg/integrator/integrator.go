// Package integrator implements the light-transport estimators: a
// unidirectional eye-path tracer, a light-path tracer for the hybrid/
// caustic path, and a vertex-connection-and-merging bidirectional tracer.
// All three walk the same BSDF/Emitter/LightStrategy oracles so swapping
// the render-engine's configured integrator never touches scene code.
package integrator

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

// PathTracer is the contract every light-transport estimator satisfies: walk
// one sample from the sampler's current pixel/lens/time draw and return the
// SampleResult(s) it produced. A light-path or BiDir tracer may return more
// than one result (eye contribution plus light-subpath splats to other
// pixels); a pure eye tracer always returns exactly one.
type PathTracer interface {
	RenderSample(sampler core.Sampler, sc *scene.Scene) []core.SampleResult
}

// imagePlaneSampler is satisfied by samplers that bake image-plane
// coordinates into their first 2D draw (the Sobol, Random, TilePath and
// Interactive samplers). MetropolisSampler does not implement it, so
// filmSample uses its plain Get2D draw.
type imagePlaneSampler interface {
	ImagePlaneSample() (float64, float64)
}

// filmSample draws (filmX, filmY, lensU, lensV, timeU) from a sampler,
// honoring the image-plane convention of spec.md's sampler contract.
func filmSample(sampler core.Sampler) (filmX, filmY, lensU, lensV, timeU float64) {
	if ips, ok := sampler.(imagePlaneSampler); ok {
		filmX, filmY = ips.ImagePlaneSample()
	} else {
		filmX, filmY = sampler.Get2D()
	}
	lensU, lensV = sampler.Get2D()
	timeU = sampler.Get1D()
	return
}

// defaultRRCap is the survival-probability floor russian roulette falls back
// to when a scene leaves path.russianroulette.cap unset.
const defaultRRCap = 0.05

// russianRoulette decides whether to terminate a path once depth has passed
// rrDepth, per spec.md §4.6: p = clamp(max component of throughput, rrCap, 1).
func russianRoulette(depth, rrDepth int, rrCap float64, throughput core.Vec3, u float64) (terminate bool, survivalProb float64) {
	if depth < rrDepth {
		return false, 1.0
	}
	if rrCap <= 0 {
		rrCap = defaultRRCap
	}
	p := math.Max(rrCap, math.Min(1.0, maxComponent(throughput)))
	if u > p {
		return true, 0
	}
	return false, p
}

func maxComponent(v core.Vec3) float64 {
	return math.Max(v.X, math.Max(v.Y, v.Z))
}

// sampleDirectLighting performs one next-event-estimation step at a
// non-delta hit: ask the scene's LightStrategy for an emitter, importance
// sample it, evaluate the BSDF toward the light, and MIS-weight the result
// against BSDF sampling with the power heuristic. Returns zero if the
// light is occluded, behind the surface, or the strategy has no lights.
func sampleDirectLighting(sc *scene.Scene, hit *core.HitPoint, wo core.Vec3, sampler core.Sampler) core.Vec3 {
	if len(sc.Lights) == 0 {
		return core.Vec3{}
	}

	isVolume := hit.Volume != nil && hit.Volume.IsVolumeOnly
	lightIndex, lightPickPDF := sc.LightStrategy.Sample(hit.Point, hit.Normal, isVolume, sampler.Get1D())
	if lightIndex < 0 || lightPickPDF <= 0 {
		return core.Vec3{}
	}

	light := sc.Lights[lightIndex]
	if !light.IsDirectLightSamplingEnabled() {
		return core.Vec3{}
	}

	u1, u2 := sampler.Get2D()
	lightSample, ok := light.Illuminate(hit.Point, u1, u2)
	if !ok || lightSample.PDF <= 0 || lightSample.Radiance.Luminance() <= 0 {
		return core.Vec3{}
	}

	directPDF := lightSample.PDF * lightPickPDF
	if directPDF <= 0 {
		return core.Vec3{}
	}

	bsdfValue, bsdfPDF := hit.Material.Evaluate(hit, wo, lightSample.Direction, core.TransportRadiance)
	if bsdfValue.IsZero() {
		return core.Vec3{}
	}

	shadowRay := core.NewRay(hit.Material.GetRayOrigin(hit, lightSample.Direction), lightSample.Direction)
	shadowRay.TMax = lightSample.Distance * (1.0 - 1e-4)
	shadowRay.Flags = core.RayVisibility
	if _, occluded := sc.BVH.Hit(shadowRay, shadowRay.TMin, shadowRay.TMax); occluded {
		return core.Vec3{}
	}

	misWeight := core.PowerHeuristic(1, directPDF, 1, bsdfPDF)
	return bsdfValue.MultiplyVec(lightSample.Radiance).Multiply(misWeight / directPDF)
}

// emittedLightMIS evaluates the radiance an intersectable light contributes
// when hit directly by a BSDF/camera ray, weighted against next-event
// estimation via MIS. unweighted is set for the first vertex or a vertex
// reached by a delta (specular) bounce, per spec.md §4.6.
func emittedLightMIS(sc *scene.Scene, hit *core.HitPoint, wo core.Vec3, lastBSDFPDF float64, unweighted bool) core.Vec3 {
	if hit.Light == nil {
		return core.Vec3{}
	}
	radiance, directPDF := hit.Light.EmittedRadiance(hit, wo)
	if radiance.IsZero() {
		return core.Vec3{}
	}
	if unweighted || directPDF <= 0 {
		return radiance
	}

	isVolume := hit.Volume != nil && hit.Volume.IsVolumeOnly
	lightPickPDF := sc.LightStrategy.PDF(hit.Point, hit.Normal, isVolume, lightIndexOf(sc, hit.Light))
	weightedDirectPDF := directPDF * lightPickPDF
	if weightedDirectPDF <= 0 {
		return radiance
	}

	misWeight := core.PowerHeuristic(1, lastBSDFPDF, 1, weightedDirectPDF)
	return radiance.Multiply(misWeight)
}

func lightIndexOf(sc *scene.Scene, light core.Emitter) int {
	for i, l := range sc.Lights {
		if l == light {
			return i
		}
	}
	return -1
}

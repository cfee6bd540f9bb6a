package integrator

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

// LightTracer traces a path from an emitter and connects every non-delta
// vertex along it back to the camera lens, splatting the result to the
// pixel it projects onto. It is spec.md §4.6's light-path integrator, run
// in parallel with a Unidirectional eye tracer in hybrid/caustic mode; it
// never samples the camera's own pixel (s=0 contributions are the eye
// tracer's job), so its results carry a FilmX/FilmY of their own, distinct
// from the sampler's pixel.
type LightTracer struct {
	MaxDepth int
	RRDepth  int
	RRCap    float64
}

// NewLightTracer builds a LightTracer from a scene's sampling configuration.
func NewLightTracer(sc *scene.Scene) *LightTracer {
	return &LightTracer{
		MaxDepth: sc.SamplingConfig.MaxDepth,
		RRDepth:  sc.SamplingConfig.RussianRouletteMinBounces,
		RRCap:    sc.SamplingConfig.RussianRouletteCap,
	}
}

// RenderSample emits one light path and returns a splat for each vertex
// that connects unoccluded to the camera. A sample with no visible
// connection returns an empty slice.
func (lt *LightTracer) RenderSample(sampler core.Sampler, sc *scene.Scene) []core.SampleResult {
	if len(sc.Lights) == 0 {
		return nil
	}

	lightIndex, lightPickPDF := sc.LightStrategy.SampleEmission(sampler.Get1D())
	if lightIndex < 0 || lightPickPDF <= 0 {
		return nil
	}
	light := sc.Lights[lightIndex]

	u1, u2 := sampler.Get2D()
	u3, u4 := sampler.Get2D()
	emission, ok := light.Emit(u1, u2, u3, u4)
	if !ok || emission.PDFArea <= 0 || emission.PDFDir <= 0 || emission.Radiance.IsZero() {
		return nil
	}

	cosEmit := math.Abs(emission.Direction.Dot(emission.Normal))
	throughput := emission.Radiance.Multiply(cosEmit / (emission.PDFArea * emission.PDFDir * lightPickPDF))

	ray := core.NewRay(emission.Point.Add(emission.Normal.Multiply(1e-4)), emission.Direction)
	ray.Time = sampler.Get1D()*(sc.CameraConfig.ShutterClose-sc.CameraConfig.ShutterOpen) + sc.CameraConfig.ShutterOpen

	var results []core.SampleResult
	volume := &core.PathVolumeInfo{}

	for depth := 0; depth < lt.MaxDepth; depth++ {
		hit, isHit := sc.BVH.Hit(ray, ray.TMin, math.Inf(1))
		if !isHit {
			break
		}
		hit.Volume = volume

		if hit.Material == nil {
			break
		}

		wo := ray.Direction.Negate()
		if !hit.Material.IsDelta() {
			if splat, ok := lt.connectToCamera(sc, hit, wo, throughput, sampler); ok {
				results = append(results, splat)
			}
		}

		u1, u2 := sampler.Get2D()
		u3 := sampler.Get1D()
		bsdfSample, ok := hit.Material.Sample(hit, wo, u1, u2, u3, core.TransportImportance)
		if !ok || bsdfSample.Value.IsZero() || bsdfSample.PDF <= 0 {
			break
		}

		throughput = throughput.MultiplyVec(bsdfSample.Value)

		if hit.Material.IsVolumeTransmission() {
			if hit.IntoObject {
				nextVolume := volume.Clone()
				nextVolume.CurrentVolume = hit
				volume = nextVolume
			} else {
				volume = &core.PathVolumeInfo{}
			}
		}

		if terminate, survivalProb := russianRoulette(depth, lt.RRDepth, lt.RRCap, throughput, sampler.Get1D()); terminate {
			break
		} else if survivalProb < 1.0 {
			throughput = throughput.Multiply(1.0 / survivalProb)
		}

		origin := hit.Material.GetRayOrigin(hit, bsdfSample.Direction)
		ray = core.NewRay(origin, bsdfSample.Direction).WithTime(ray.Time)
	}

	return results
}

// connectToCamera joins a light-path vertex to the camera lens: it samples
// a lens point, projects the vertex onto raster coordinates, tests
// visibility, and combines the BSDF response with the camera's importance
// function (via CalculateRayPDFs) into a radiance-per-screen-normalized
// splat. vm_weight is zero here since vertex merging is never active on
// the camera connection, only between two light-transport vertices.
func (lt *LightTracer) connectToCamera(sc *scene.Scene, hit *core.HitPoint, wo core.Vec3, throughput core.Vec3, sampler core.Sampler) (core.SampleResult, bool) {
	lensU, lensV := sampler.Get2D()
	lensPoint, lensPDFArea := sc.Camera.SampleLens(lensU, lensV)

	toLens := lensPoint.Subtract(hit.Point)
	distance := toLens.Length()
	if distance <= 0 {
		return core.SampleResult{}, false
	}
	wi := toLens.Multiply(1.0 / distance)

	filmX, filmY, ok := sc.Camera.ProjectToRaster(lensPoint, hit.Point)
	if !ok {
		return core.SampleResult{}, false
	}

	bsdfValue, _ := hit.Material.Evaluate(hit, wo, wi, core.TransportImportance)
	if bsdfValue.IsZero() {
		return core.SampleResult{}, false
	}

	shadowRay := core.NewRay(hit.Material.GetRayOrigin(hit, wi), wi)
	shadowRay.TMax = distance * (1.0 - 1e-4)
	shadowRay.Flags = core.RayVisibility
	if _, occluded := sc.BVH.Hit(shadowRay, shadowRay.TMin, shadowRay.TMax); occluded {
		return core.SampleResult{}, false
	}

	cameraForward := sc.Camera.GetCameraForward()
	cosAtLens := wi.Negate().Dot(cameraForward)
	if cosAtLens <= 0 {
		return core.SampleResult{}, false
	}
	_, pdfDir := sc.Camera.CalculateRayPDFs(wi.Negate())
	if pdfDir <= 0 {
		return core.SampleResult{}, false
	}

	geometry := cosAtLens / (distance * distance)
	importance := pdfDir / lensPDFArea

	contribution := throughput.MultiplyVec(bsdfValue).Multiply(geometry * importance)
	if contribution.IsZero() {
		return core.SampleResult{}, false
	}

	result := core.NewSampleResult(filmX, filmY)
	result.Radiance = contribution
	result.IndirectLight = contribution
	result.Alpha = 0 // splats augment existing pixel coverage, they never define it
	result.ScreenNormalized = true
	return result, true
}

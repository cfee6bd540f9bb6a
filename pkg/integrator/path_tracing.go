package integrator

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

// Unidirectional is the eye-path (camera) tracer backing PATHCPU,
// TILEPATHCPU and RTPATHCPU: it walks a single path from the camera,
// combining BSDF and next-event-estimation sampling via MIS, and
// terminates with Russian Roulette. It implements spec.md §4.6's
// eye-path integrator.
type Unidirectional struct {
	MaxDepth int
	RRDepth  int
	RRCap    float64
}

// NewUnidirectional builds a Unidirectional tracer from a scene's sampling
// configuration.
func NewUnidirectional(sc *scene.Scene) *Unidirectional {
	return &Unidirectional{
		MaxDepth: sc.SamplingConfig.MaxDepth,
		RRDepth:  sc.SamplingConfig.RussianRouletteMinBounces,
		RRCap:    sc.SamplingConfig.RussianRouletteCap,
	}
}

// RenderSample traces one eye path and returns its single SampleResult.
func (pt *Unidirectional) RenderSample(sampler core.Sampler, sc *scene.Scene) []core.SampleResult {
	filmX, filmY, lensU, lensV, timeU := filmSample(sampler)

	s := filmX / float64(sc.CameraConfig.Width)
	t := 1.0 - filmY/float64(sc.CameraConfig.Height)
	ray := sc.Camera.GenerateRay(s, t, lensU, lensV, timeU)

	result := core.NewSampleResult(filmX, filmY)

	throughput := core.Vec3{X: 1, Y: 1, Z: 1}
	radiance := core.Vec3{}
	volume := &core.PathVolumeInfo{}
	lastBSDFPDF := 0.0
	lastWasSpecular := true

	for depth := 0; depth < pt.MaxDepth; depth++ {
		hit, isHit := sc.BVH.Hit(ray, ray.TMin, math.Inf(1))
		if !isHit {
			for _, light := range sc.Lights {
				if !light.IsEnvironmental() {
					continue
				}
				env := emittedLightMIS(sc, &core.HitPoint{Light: light}, ray.Direction.Negate(), lastBSDFPDF, depth == 0 || lastWasSpecular)
				radiance = radiance.Add(throughput.MultiplyVec(env))
			}
			if depth == 0 {
				result.Alpha = 0
			}
			break
		}
		hit.Volume = volume
		sc.AttachLight(hit)

		wo := ray.Direction.Negate()
		emitted := emittedLightMIS(sc, hit, wo, lastBSDFPDF, depth == 0 || lastWasSpecular)
		emittedContribution := throughput.MultiplyVec(emitted)
		radiance = radiance.Add(emittedContribution)

		result.IndirectLight = result.IndirectLight.Add(emittedContribution)

		if hit.Material == nil {
			break
		}
		if depth == 0 {
			result.Albedo = hit.Material.Albedo(hit)
			result.ShadingNormal = hit.ShadingNormal
			result.Depth = float32(hit.T)
		}

		if !hit.Material.IsDelta() {
			direct := throughput.MultiplyVec(sampleDirectLighting(sc, hit, wo, sampler))
			radiance = radiance.Add(direct)
			result.DirectLight = result.DirectLight.Add(direct)
		}

		u1, u2 := sampler.Get2D()
		u3 := sampler.Get1D()
		bsdfSample, ok := hit.Material.Sample(hit, wo, u1, u2, u3, core.TransportRadiance)
		if !ok || bsdfSample.Value.IsZero() || bsdfSample.PDF <= 0 {
			break
		}

		throughput = throughput.MultiplyVec(bsdfSample.Value)
		lastBSDFPDF = bsdfSample.PDF
		lastWasSpecular = bsdfSample.Event.IsDelta()

		if hit.Material.IsVolumeTransmission() {
			if hit.IntoObject {
				nextVolume := volume.Clone()
				nextVolume.CurrentVolume = hit
				volume = nextVolume
			} else {
				volume = &core.PathVolumeInfo{}
			}
		}

		if terminate, survivalProb := russianRoulette(depth, pt.RRDepth, pt.RRCap, throughput, sampler.Get1D()); terminate {
			break
		} else if survivalProb < 1.0 {
			throughput = throughput.Multiply(1.0 / survivalProb)
		}

		origin := hit.Material.GetRayOrigin(hit, bsdfSample.Direction)
		ray = core.NewRay(origin, bsdfSample.Direction).WithTime(ray.Time)
	}

	result.Radiance = radiance
	return []core.SampleResult{result}
}

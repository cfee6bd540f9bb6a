package integrator

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
	"github.com/df07/go-progressive-raytracer/pkg/scene"
)

// BiDir is the vertex-connection(-and-merging) bidirectional tracer backing
// BIDIRCPU/BIDIRVMCPU. It builds a light subpath once per sample, carrying
// dVCM/dVC/dVM down the chain per the VCM recurrence, then walks the eye
// path connecting every non-delta eye vertex to every stored light vertex
// (in addition to ordinary next-event estimation and BSDF emission
// hits), combining all of it with the same MIS accumulators. It
// implements spec.md §4.6's BiDir integrator.
type BiDir struct {
	MaxDepth int
	RRDepth  int
	RRCap    float64

	// VertexMerging enables the BiDir-VM variant: in addition to vertex
	// connections, eye vertices gather a density estimate from the light
	// vertices of the current light subpath that lie within a radius that
	// decays across iterations. The vertices are found by a linear scan;
	// no spatial hash grid is built.
	VertexMerging bool
	MergeRadius0  float64
	MergeAlpha    float64
	iteration     int
}

// NewBiDir builds a plain (vertex-connection only) BiDir tracer.
func NewBiDir(sc *scene.Scene) *BiDir {
	return &BiDir{
		MaxDepth: sc.SamplingConfig.MaxDepth,
		RRDepth:  sc.SamplingConfig.RussianRouletteMinBounces,
		RRCap:    sc.SamplingConfig.RussianRouletteCap,
	}
}

// NewBiDirVM builds a BiDir tracer with vertex merging enabled.
func NewBiDirVM(sc *scene.Scene, radius0, alpha float64) *BiDir {
	bd := NewBiDir(sc)
	bd.VertexMerging = true
	bd.MergeRadius0 = radius0
	bd.MergeAlpha = alpha
	return bd
}

// mergeRadius returns the current iteration's vertex-merging search
// radius per spec.md §4.6: r_i = max(r_0 / (i+1)^((1-alpha)/2), eps).
func (bd *BiDir) mergeRadius() float64 {
	r := bd.MergeRadius0 / math.Pow(float64(bd.iteration+1), (1-bd.MergeAlpha)/2)
	return math.Max(r, 1e-5)
}

// RenderSample builds one light subpath and one eye subpath and combines
// every viable connection strategy between them into a single radiance
// estimate for the sampler's current pixel.
func (bd *BiDir) RenderSample(sampler core.Sampler, sc *scene.Scene) []core.SampleResult {
	filmX, filmY, lensU, lensV, timeU := filmSample(sampler)

	s := filmX / float64(sc.CameraConfig.Width)
	t := 1.0 - filmY/float64(sc.CameraConfig.Height)
	ray := sc.Camera.GenerateRay(s, t, lensU, lensV, timeU)

	result := core.NewSampleResult(filmX, filmY)

	lightPath := bd.buildLightSubpath(sc, sampler)
	bd.iteration++

	throughput := core.Vec3{X: 1, Y: 1, Z: 1}
	radiance := core.Vec3{}
	volume := &core.PathVolumeInfo{}
	dVCM, dVC, dVM := 0.0, 0.0, 0.0
	lastBSDFPDF := 0.0
	lastWasSpecular := true

	for depth := 0; depth < bd.MaxDepth; depth++ {
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
		radiance = radiance.Add(throughput.MultiplyVec(emitted))

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

			connected := bd.connectToLightPath(sc, hit, wo, throughput, dVCM, dVC, lightPath)
			radiance = radiance.Add(connected)

			if bd.VertexMerging {
				merged := bd.mergeWithLightPath(hit, wo, throughput, dVCM, dVM, lightPath)
				radiance = radiance.Add(merged)
			}
		}

		u1, u2 := sampler.Get2D()
		u3 := sampler.Get1D()
		bsdfSample, ok := hit.Material.Sample(hit, wo, u1, u2, u3, core.TransportRadiance)
		if !ok || bsdfSample.Value.IsZero() || bsdfSample.PDF <= 0 {
			break
		}

		cosTheta := math.Abs(bsdfSample.Direction.Dot(hit.ShadingNormal))
		if bsdfSample.Event.IsDelta() {
			dVCM = 0
			dVC *= cosTheta
			dVM *= cosTheta
		} else {
			reversePDF := hit.Material.PDF(hit, bsdfSample.Direction, wo, core.TransportRadiance)
			newDVC := (cosTheta / bsdfSample.PDF) * (dVC*reversePDF + dVCM)
			newDVM := (cosTheta / bsdfSample.PDF) * (dVM*reversePDF + dVCM)
			dVC, dVM = newDVC, newDVM
			dVCM = 1.0 / bsdfSample.PDF
		}
		lastWasSpecular = bsdfSample.Event.IsDelta()
		lastBSDFPDF = bsdfSample.PDF

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

		if terminate, survivalProb := russianRoulette(depth, bd.RRDepth, bd.RRCap, throughput, sampler.Get1D()); terminate {
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

// buildLightSubpath emits one particle and bounces it through the scene,
// carrying dVCM/dVC/dVM per spec.md §4.6's recurrence at every vertex.
func (bd *BiDir) buildLightSubpath(sc *scene.Scene, sampler core.Sampler) []core.PathVertex {
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

	cosLight := math.Abs(emission.Direction.Dot(emission.Normal))
	beta := emission.Radiance.Multiply(cosLight / (emission.PDFArea * emission.PDFDir * lightPickPDF))

	vertices := make([]core.PathVertex, 0, bd.MaxDepth)
	vertices = append(vertices, core.PathVertex{
		Type: core.VertexLight,
		Hit:  &core.HitPoint{Point: emission.Point, Normal: emission.Normal, Light: light},
		Wi:   emission.Direction.Negate(),
		Beta: beta,
		DVCM: lightPickPDF * emission.PDFArea / emission.PDFDir,
		DVC:  cosLight / (lightPickPDF * emission.PDFArea * emission.PDFDir),
	})

	ray := core.NewRay(emission.Point.Add(emission.Normal.Multiply(1e-4)), emission.Direction)
	volume := &core.PathVolumeInfo{}
	dVCM, dVC, dVM := vertices[0].DVCM, vertices[0].DVC, 0.0

	for depth := 0; depth < bd.MaxDepth-1; depth++ {
		hit, isHit := sc.BVH.Hit(ray, ray.TMin, math.Inf(1))
		if !isHit || hit.Material == nil {
			break
		}
		hit.Volume = volume

		wo := ray.Direction.Negate()
		vertices = append(vertices, core.PathVertex{
			Type: core.VertexSurface,
			Hit:  hit,
			Wi:   wo,
			Beta: beta,
			DVCM: dVCM,
			DVC:  dVC,
			DVM:  dVM,
		})

		if hit.Material.IsDelta() {
			break
		}

		u1, u2 := sampler.Get2D()
		u3 := sampler.Get1D()
		bsdfSample, ok := hit.Material.Sample(hit, wo, u1, u2, u3, core.TransportImportance)
		if !ok || bsdfSample.Value.IsZero() || bsdfSample.PDF <= 0 {
			break
		}

		cosTheta := math.Abs(bsdfSample.Direction.Dot(hit.ShadingNormal))
		if bsdfSample.Event.IsDelta() {
			dVCM = 0
			dVC *= cosTheta
			dVM *= cosTheta
		} else {
			reversePDF := hit.Material.PDF(hit, bsdfSample.Direction, wo, core.TransportImportance)
			newDVC := (cosTheta / bsdfSample.PDF) * (dVC*reversePDF + dVCM)
			newDVM := (cosTheta / bsdfSample.PDF) * (dVM*reversePDF + dVCM)
			dVC, dVM = newDVC, newDVM
			dVCM = 1.0 / bsdfSample.PDF
		}

		beta = beta.MultiplyVec(bsdfSample.Value)

		if hit.Material.IsVolumeTransmission() {
			if hit.IntoObject {
				nextVolume := volume.Clone()
				nextVolume.CurrentVolume = hit
				volume = nextVolume
			} else {
				volume = &core.PathVolumeInfo{}
			}
		}

		if terminate, survivalProb := russianRoulette(depth, bd.RRDepth, bd.RRCap, beta, sampler.Get1D()); terminate {
			break
		} else if survivalProb < 1.0 {
			beta = beta.Multiply(1.0 / survivalProb)
		}

		origin := hit.Material.GetRayOrigin(hit, bsdfSample.Direction)
		ray = core.NewRay(origin, bsdfSample.Direction).WithTime(ray.Time)
	}

	return vertices
}

// connectToLightPath joins one eye vertex to every stored light vertex,
// combining each connection's contribution with the standard VCM
// balance-heuristic weight `1 / (1 + wLight + wCamera)`.
func (bd *BiDir) connectToLightPath(sc *scene.Scene, eyeHit *core.HitPoint, woEye core.Vec3, eyeThroughput core.Vec3, eyeDVCM, eyeDVC float64, lightPath []core.PathVertex) core.Vec3 {
	sum := core.Vec3{}
	for i := range lightPath {
		lv := &lightPath[i]
		if lv.Hit == nil {
			continue
		}

		toLight := lv.Hit.Point.Subtract(eyeHit.Point)
		distSq := toLight.LengthSquared()
		if distSq <= 1e-12 {
			continue
		}
		dist := math.Sqrt(distSq)
		dirToLight := toLight.Multiply(1.0 / dist)

		bsdfEyeVal, bsdfEyePDF := eyeHit.Material.Evaluate(eyeHit, woEye, dirToLight, core.TransportRadiance)
		if bsdfEyeVal.IsZero() {
			continue
		}

		dirToEye := dirToLight.Negate()
		var bsdfLightVal core.Vec3
		var bsdfLightPDF float64
		if lv.Hit.Material != nil {
			bsdfLightVal, bsdfLightPDF = lv.Hit.Material.Evaluate(lv.Hit, lv.Wi, dirToEye, core.TransportImportance)
		} else {
			cosLight := math.Abs(dirToEye.Dot(lv.Hit.Normal))
			bsdfLightVal = core.Vec3{X: cosLight / math.Pi, Y: cosLight / math.Pi, Z: cosLight / math.Pi}
			bsdfLightPDF = cosLight / math.Pi
		}
		if bsdfLightVal.IsZero() {
			continue
		}

		shadowRay := core.NewRay(eyeHit.Material.GetRayOrigin(eyeHit, dirToLight), dirToLight)
		shadowRay.TMax = dist * (1.0 - 1e-4)
		shadowRay.Flags = core.RayVisibility
		if _, occluded := sc.BVH.Hit(shadowRay, shadowRay.TMin, shadowRay.TMax); occluded {
			continue
		}

		// Both cosines of the geometry term already live inside the two
		// BSDF evaluations (Evaluate folds in |cos(wi, n)|), leaving only
		// the inverse-square falloff here.
		g := 1.0 / distSq

		wLight := eyeDVCM + eyeDVC*bsdfEyePDF
		wCamera := lv.DVCM + lv.DVC*bsdfLightPDF
		misWeight := 1.0 / (1.0 + wLight + wCamera)

		contribution := eyeThroughput.MultiplyVec(bsdfEyeVal).MultiplyVec(bsdfLightVal).MultiplyVec(lv.Beta).Multiply(g * misWeight)
		sum = sum.Add(contribution)
	}
	return sum
}

// mergeWithLightPath implements the BiDir-VM density-estimate term: every
// light vertex within the current iteration's merge radius of the eye hit
// contributes as if it were a photon, weighted down by the same VCM
// accumulators used for vertex connection. Candidates are found by a
// linear scan over every vertex of lightPath on each call; no grid or
// other acceleration structure is kept.
func (bd *BiDir) mergeWithLightPath(eyeHit *core.HitPoint, woEye core.Vec3, eyeThroughput core.Vec3, eyeDVCM, eyeDVM float64, lightPath []core.PathVertex) core.Vec3 {
	radius := bd.mergeRadius()
	radiusSq := radius * radius
	sum := core.Vec3{}

	for i := range lightPath {
		lv := &lightPath[i]
		if lv.Hit == nil || lv.Hit.Material == nil {
			continue
		}
		d := lv.Hit.Point.Subtract(eyeHit.Point)
		if d.LengthSquared() > radiusSq {
			continue
		}

		// The photon traveled along -lv.Wi, so at the gather point the
		// incident direction (toward where its light came from) is lv.Wi.
		wi := lv.Wi
		bsdfEyeVal, bsdfEyePDF := eyeHit.Material.Evaluate(eyeHit, woEye, wi, core.TransportRadiance)
		if bsdfEyeVal.IsZero() {
			continue
		}
		// Density estimation weights by f alone; undo the cosine Evaluate
		// folds in.
		cosGather := math.Abs(wi.Dot(eyeHit.ShadingNormal))
		if cosGather < 1e-8 {
			continue
		}
		bsdfEyeVal = bsdfEyeVal.Multiply(1.0 / cosGather)

		wLight := eyeDVCM + eyeDVM*bsdfEyePDF
		misWeight := 1.0 / (1.0 + wLight)

		density := 1.0 / (math.Pi * radiusSq)
		contribution := eyeThroughput.MultiplyVec(bsdfEyeVal).MultiplyVec(lv.Beta).Multiply(density * misWeight)
		sum = sum.Add(contribution)
	}
	return sum
}

package core

// LightSample is the result of importance-sampling an Emitter from a
// reference point: a direction/distance to trace a shadow ray toward, the
// radiance arriving from that direction, and the PDF the sample was drawn
// with (in solid angle measure).
type LightSample struct {
	Direction Vec3
	Distance  float64
	Radiance  Vec3
	PDF       float64
}

// EmissionSample is the result of sampling an Emitter unconditionally (for
// light tracing / BDPT light subpaths): a point and direction to emit a
// particle along, plus the two PDFs (area and directional) needed to
// convert the sample into a path-tracing throughput weight.
type EmissionSample struct {
	Point      Vec3
	Normal     Vec3
	Direction  Vec3
	Radiance   Vec3
	PDFArea    float64
	PDFDir     float64
}

// Emitter is the contract every light source satisfies: area lights,
// point/spot lights, and infinite (environment) lights alike.
type Emitter interface {
	// Illuminate importance-samples a direction from point toward this
	// light, for next-event estimation.
	Illuminate(point Vec3, u1, u2 float64) (LightSample, bool)

	// IlluminatePDF returns the PDF Illuminate would assign to the given
	// direction, for MIS weighting against BSDF sampling.
	IlluminatePDF(point Vec3, direction Vec3) float64

	// Emit samples a point and outgoing direction on the light unconditionally,
	// for light-path tracing.
	Emit(u1, u2, u3, u4 float64) (EmissionSample, bool)

	// EmittedRadiance returns the radiance leaving the light toward wo from
	// a point directly hit by a camera/BSDF-sampled ray, plus the
	// directional PDF Illuminate would have produced for that direction
	// (needed for MIS against next-event estimation).
	EmittedRadiance(hit *HitPoint, wo Vec3) (radiance Vec3, directPDF float64)

	// Power returns an estimate of total emitted power, used by light
	// selection strategies to weight importance.
	Power(sceneRadius float64) float64

	// IsEnvironmental reports whether this light represents the
	// surrounding environment (infinite extent, no fixed position).
	IsEnvironmental() bool

	// IsIntersectable reports whether camera/BSDF rays can hit this light
	// as ordinary geometry (area lights are; point/spot/infinite lights
	// that have no surface are not).
	IsIntersectable() bool

	// IsDirectLightSamplingEnabled reports whether next-event estimation
	// should consider this light at all; some lights (e.g. ones already
	// baked into a DLSC-only strategy) opt out.
	IsDirectLightSamplingEnabled() bool
}

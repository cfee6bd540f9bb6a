package geometry

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// CameraConfig describes a thin-lens perspective camera: position/lookAt,
// field of view, aspect ratio, and the depth-of-field and motion-blur
// parameters a bidirectional integrator needs to convert camera samples
// into area-measure PDFs.
type CameraConfig struct {
	Center          core.Vec3
	LookAt          core.Vec3
	Up              core.Vec3
	VFov            float64 // vertical field of view, degrees
	Aspect          float64 // width / height
	Width, Height   int
	Aperture        float64 // lens diameter; 0 disables depth of field
	FocusDistance   float64
	ShutterOpen     float64
	ShutterClose    float64
}

// Camera implements a thin-lens perspective camera with optional depth of
// field and a shutter interval for motion blur. Every ray it generates
// carries a Time sample drawn uniformly across [ShutterOpen, ShutterClose].
type Camera struct {
	config CameraConfig

	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	u, v, w         core.Vec3 // camera basis: u=right, v=up, w=back (toward eye)
	lensRadius      float64
}

// NewCamera builds a Camera from a CameraConfig.
func NewCamera(cfg CameraConfig) *Camera {
	theta := cfg.VFov * math.Pi / 180.0
	h := math.Tan(theta / 2.0)
	viewportHeight := 2.0 * h
	viewportWidth := cfg.Aspect * viewportHeight

	w := cfg.Center.Subtract(cfg.LookAt).Normalize()
	u := cfg.Up.Cross(w).Normalize()
	v := w.Cross(u)

	focusDistance := cfg.FocusDistance
	if focusDistance <= 0 {
		focusDistance = cfg.Center.Subtract(cfg.LookAt).Length()
	}

	horizontal := u.Multiply(viewportWidth * focusDistance)
	vertical := v.Multiply(viewportHeight * focusDistance)
	lowerLeftCorner := cfg.Center.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(w.Multiply(focusDistance))

	return &Camera{
		config:          cfg,
		origin:          cfg.Center,
		lowerLeftCorner: lowerLeftCorner,
		horizontal:      horizontal,
		vertical:        vertical,
		u:               u,
		v:               v,
		w:               w,
		lensRadius:      cfg.Aperture / 2.0,
	}
}

// GenerateRay constructs a camera ray through continuous raster coordinates
// (s, t) in [0,1]x[0,1], offsetting the origin within the lens disk by
// (lensU, lensV) for depth of field and stamping the ray with a time sample
// drawn from timeSample in [0,1).
func (c *Camera) GenerateRay(s, t, lensU, lensV, timeSample float64) core.Ray {
	rd := core.Vec3{}
	if c.lensRadius > 0 {
		rd = sampleUnitDisk(lensU, lensV).Multiply(c.lensRadius)
	}
	offset := c.u.Multiply(rd.X).Add(c.v.Multiply(rd.Y))

	target := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t))

	origin := c.origin.Add(offset)
	direction := target.Subtract(origin).Normalize()

	ray := core.NewRay(origin, direction)
	ray.Time = c.config.ShutterOpen + timeSample*(c.config.ShutterClose-c.config.ShutterOpen)
	return ray
}

func sampleUnitDisk(u1, u2 float64) core.Vec3 {
	r := math.Sqrt(u1)
	theta := 2.0 * math.Pi * u2
	return core.NewVec3(r*math.Cos(theta), r*math.Sin(theta), 0)
}

// MergeCameraConfig overlays non-zero fields of override onto base, so a
// scene builder's default camera can be selectively customized (e.g. just
// the resolution) without restating every field.
func MergeCameraConfig(base, override CameraConfig) CameraConfig {
	merged := base
	zero := core.Vec3{}
	if override.Center != zero {
		merged.Center = override.Center
	}
	if override.LookAt != zero {
		merged.LookAt = override.LookAt
	}
	if override.Up != zero {
		merged.Up = override.Up
	}
	if override.VFov != 0 {
		merged.VFov = override.VFov
	}
	if override.Aspect != 0 {
		merged.Aspect = override.Aspect
	}
	if override.Width != 0 {
		merged.Width = override.Width
	}
	if override.Height != 0 {
		merged.Height = override.Height
	}
	if override.Aperture != 0 {
		merged.Aperture = override.Aperture
	}
	if override.FocusDistance != 0 {
		merged.FocusDistance = override.FocusDistance
	}
	if override.ShutterOpen != 0 || override.ShutterClose != 0 {
		merged.ShutterOpen = override.ShutterOpen
		merged.ShutterClose = override.ShutterClose
	}
	return merged
}

// GetCameraForward returns the unit vector the camera looks down (opposite
// of the internal "w" basis vector, which points back toward the eye).
func (c *Camera) GetCameraForward() core.Vec3 {
	return c.w.Negate()
}

// SampleLens returns a point on the camera's lens disk, for the
// light-tracing and BDPT camera-connection strategies that need to
// originate a connection from the lens rather than from a raster sample.
// pdfArea is the area-measure PDF of that point (uniform over the disk).
func (c *Camera) SampleLens(lensU, lensV float64) (point core.Vec3, pdfArea float64) {
	if c.lensRadius <= 0 {
		return c.origin, 1.0
	}
	rd := sampleUnitDisk(lensU, lensV).Multiply(c.lensRadius)
	offset := c.u.Multiply(rd.X).Add(c.v.Multiply(rd.Y))
	return c.origin.Add(offset), 1.0 / (math.Pi * c.lensRadius * c.lensRadius)
}

// ProjectToRaster projects a world point visible from lensPoint onto
// continuous raster coordinates, inverting the pinhole projection
// GenerateRay performs. ok is false if the point is behind the camera or
// falls outside the image bounds.
func (c *Camera) ProjectToRaster(lensPoint, point core.Vec3) (filmX, filmY float64, ok bool) {
	toPoint := point.Subtract(lensPoint)
	depth := toPoint.Dot(c.GetCameraForward())
	if depth <= 1e-9 {
		return 0, 0, false
	}

	theta := c.config.VFov * math.Pi / 180.0
	halfHeight := depth * math.Tan(theta/2.0)
	halfWidth := halfHeight * c.config.Aspect

	screenX := toPoint.Dot(c.u) / halfWidth
	screenY := toPoint.Dot(c.v) / halfHeight
	if screenX < -1 || screenX > 1 || screenY < -1 || screenY > 1 {
		return 0, 0, false
	}

	s := (screenX + 1) / 2
	t := (screenY + 1) / 2
	filmX = s * float64(c.config.Width)
	filmY = (1 - t) * float64(c.config.Height)
	return filmX, filmY, true
}

// CalculateRayPDFs returns the area-measure PDF of sampling the camera's
// lens point and the solid-angle PDF of sampling the given outgoing
// direction, as required by the light-tracing and BDPT camera-connection
// strategies to convert an eye-subpath contribution into a properly
// weighted splat.
func (c *Camera) CalculateRayPDFs(direction core.Vec3) (pdfArea float64, pdfDir float64) {
	cosTheta := direction.Dot(c.GetCameraForward())
	if cosTheta <= 0 {
		return 0, 0
	}

	if c.lensRadius > 0 {
		pdfArea = 1.0 / (math.Pi * c.lensRadius * c.lensRadius)
	} else {
		pdfArea = 1.0
	}

	// Perspective importance falls off with cos^3(theta) for a pinhole
	// camera with a planar image plane at unit distance, normalized by the
	// image plane's area so pdfDir integrates to 1 over the field of view.
	theta := c.config.VFov * math.Pi / 180.0
	halfHeight := math.Tan(theta / 2.0)
	imagePlaneArea := 4 * halfHeight * halfHeight * c.config.Aspect
	pdfDir = 1.0 / (imagePlaneArea * cosTheta * cosTheta * cosTheta)

	return pdfArea, pdfDir
}

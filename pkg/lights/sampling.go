package lights

import (
	"math"

	"github.com/df07/go-progressive-raytracer/pkg/core"
)

// sampleCosineHemisphere draws a cosine-weighted direction around normal,
// the emission profile of a Lambertian area light, and returns its PDF.
func sampleCosineHemisphere(normal core.Vec3, u1, u2 float64) (core.Vec3, float64) {
	r := math.Sqrt(u1)
	theta := 2.0 * math.Pi * u2
	x := r * math.Cos(theta)
	y := r * math.Sin(theta)
	z := math.Sqrt(math.Max(0, 1.0-u1))

	u, v, w := buildBasis(normal)
	dir := u.Multiply(x).Add(v.Multiply(y)).Add(w.Multiply(z))

	return dir, z / math.Pi
}

func buildBasis(normal core.Vec3) (u, v, w core.Vec3) {
	w = normal.Normalize()
	var a core.Vec3
	if math.Abs(w.X) > 0.9 {
		a = core.NewVec3(0, 1, 0)
	} else {
		a = core.NewVec3(1, 0, 0)
	}
	v = w.Cross(a).Normalize()
	u = w.Cross(v)
	return u, v, w
}

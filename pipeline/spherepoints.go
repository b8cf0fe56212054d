package pipeline

import (
	"math/rand"

	"github.com/chewxy/math32"

	"render-pipeline/math"
)

// SSAOSamples is the size of the SSAO point cloud.
const SSAOSamples = 128

// GenerateSpherePoints returns n random points inside a ball of the given
// radius, denser towards the centre. With hemi set every point has z >= 0.
func GenerateSpherePoints(rng *rand.Rand, n int, radius float32, hemi bool) []math.Vec3 {
	points := make([]math.Vec3, n)
	for i := range points {
		u := rng.Float32()
		v := rng.Float32()
		theta := u * 2 * math32.Pi
		phi := math32.Acos(2*v - 1)
		r := math32.Cbrt(rng.Float32()*0.9+0.1) * radius

		sinPhi := math32.Sin(phi)
		p := math.Vec3{
			X: r * sinPhi * math32.Cos(theta),
			Y: r * sinPhi * math32.Sin(theta),
			Z: r * math32.Cos(phi),
		}
		if hemi {
			p.Z = math32.Abs(p.Z)
		}
		points[i] = p
	}
	return points
}

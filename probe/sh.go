package probe

import (
	"github.com/chewxy/math32"

	"render-pipeline/math"
)

// FaceSize is the side of each captured cube face.
const FaceSize = 64

// SH9 holds the nine L2 spherical-harmonic coefficients of an RGB signal.
type SH9 [9]math.Vec3

// CubemapFaceNormals gives the camera basis {right, up, front} of each cube
// face in the order +X, -X, +Y, -Y, +Z, -Z.
var CubemapFaceNormals = [6][3]math.Vec3{
	{{X: 0, Y: 0, Z: -1}, {X: 0, Y: -1, Z: 0}, {X: 1, Y: 0, Z: 0}},
	{{X: 0, Y: 0, Z: 1}, {X: 0, Y: -1, Z: 0}, {X: -1, Y: 0, Z: 0}},
	{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 1, Z: 0}},
	{{X: 1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: -1}, {X: 0, Y: -1, Z: 0}},
	{{X: 1, Y: 0, Z: 0}, {X: 0, Y: -1, Z: 0}, {X: 0, Y: 0, Z: 1}},
	{{X: -1, Y: 0, Z: 0}, {X: 0, Y: -1, Z: 0}, {X: 0, Y: 0, Z: -1}},
}

// FaceImage is one square RGB float image read back from a cube face.
// Rows run bottom to top, as glReadPixels returns them.
type FaceImage struct {
	Size   int
	Pixels []math.Vec3
}

func NewFaceImage(size int) FaceImage {
	return FaceImage{Size: size, Pixels: make([]math.Vec3, size*size)}
}

// FaceImageFromFloats wraps tightly packed RGB float data.
func FaceImageFromFloats(size int, data []float32) FaceImage {
	img := NewFaceImage(size)
	for i := range img.Pixels {
		if 3*i+2 >= len(data) {
			break
		}
		img.Pixels[i] = math.Vec3{X: data[3*i], Y: data[3*i+1], Z: data[3*i+2]}
	}
	return img
}

// Fill sets every pixel to c.
func (f FaceImage) Fill(c math.Vec3) {
	for i := range f.Pixels {
		f.Pixels[i] = c
	}
}

func (f FaceImage) At(x, y int) math.Vec3 {
	return f.Pixels[y*f.Size+x]
}

// Basis evaluates the nine real SH basis functions at unit direction d.
func Basis(d math.Vec3) [9]float32 {
	x, y, z := d.X, d.Y, d.Z
	return [9]float32{
		0.282095,
		0.488603 * y,
		0.488603 * z,
		0.488603 * x,
		1.092548 * x * y,
		1.092548 * y * z,
		0.315392 * (3*z*z - 1),
		1.092548 * x * z,
		0.546274 * (x*x - y*y),
	}
}

// ComputeSH projects six cube faces onto the SH basis. Each texel is
// weighted by the solid angle it subtends and the weights are normalised
// to the full sphere.
func ComputeSH(faces [6]FaceImage) SH9 {
	var sh SH9
	var total float32

	for i, face := range faces {
		if face.Size == 0 {
			continue
		}
		right, up, front := CubemapFaceNormals[i][0], CubemapFaceNormals[i][1], CubemapFaceNormals[i][2]
		texel := 2 / float32(face.Size)
		for y := 0; y < face.Size; y++ {
			v := -1 + (float32(y)+0.5)*texel
			for x := 0; x < face.Size; x++ {
				u := -1 + (float32(x)+0.5)*texel
				dir := front.Add(right.Mul(u)).Add(up.Mul(v))
				r2 := 1 + u*u + v*v
				weight := texel * texel / (r2 * math32.Sqrt(r2))
				total += weight

				color := face.At(x, y).Mul(weight)
				for k, b := range Basis(dir.Normalize()) {
					sh[k] = sh[k].Add(color.Mul(b))
				}
			}
		}
	}

	if total == 0 {
		return sh
	}
	norm := 4 * math32.Pi / total
	for k := range sh {
		sh[k] = sh[k].Mul(norm)
	}
	return sh
}

// bandScale is the cosine-lobe convolution of each band divided by pi.
var bandScale = [9]float32{1, 2.0 / 3, 2.0 / 3, 2.0 / 3, 0.25, 0.25, 0.25, 0.25, 0.25}

// Eval returns the irradiance arriving at a surface with normal n, divided
// by pi so that a constant environment evaluates to its own color.
func (sh *SH9) Eval(n math.Vec3) math.Vec3 {
	var out math.Vec3
	for k, b := range Basis(n.Normalize()) {
		out = out.Add(sh[k].Mul(b * bandScale[k]))
	}
	return out.Max(math.Vec3Zero)
}

// Floats flattens the coefficients as RGB,RGB,... in basis order.
func (sh *SH9) Floats() [27]float32 {
	var out [27]float32
	for k, c := range sh {
		out[3*k], out[3*k+1], out[3*k+2] = c.X, c.Y, c.Z
	}
	return out
}

// SHFromFloats is the inverse of SH9.Floats.
func SHFromFloats(data []float32) SH9 {
	var sh SH9
	for k := range sh {
		if 3*k+2 >= len(data) {
			break
		}
		sh[k] = math.Vec3{X: data[3*k], Y: data[3*k+1], Z: data[3*k+2]}
	}
	return sh
}

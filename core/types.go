package core

import (
	"render-pipeline/math"
)

type Color struct {
	R, G, B, A float32
}

var (
	ColorWhite = Color{1, 1, 1, 1}
	ColorBlack = Color{0, 0, 0, 1}
)

// RGB drops alpha.
func (c Color) RGB() math.Vec3 {
	return math.Vec3{X: c.R, Y: c.G, Z: c.B}
}

// ColorFromVec3 builds an opaque color.
func ColorFromVec3(v math.Vec3) Color {
	return Color{R: v.X, G: v.Y, B: v.Z, A: 1}
}

// Vertex layout shared by every mesh upload (attribute locations 0-4).
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
	UV       math.Vec2
	Color    Color
	Tangent  math.Vec3
}

type Transform struct {
	Position math.Vec3
	Rotation math.Quaternion
	Scale    math.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: math.Vec3Zero,
		Rotation: math.QuaternionIdentity(),
		Scale:    math.Vec3One,
	}
}

// GetMatrix composes scale, then rotation, then translation (row vectors).
func (t Transform) GetMatrix() math.Mat4 {
	scale := math.Mat4Scale(t.Scale)
	rotation := t.Rotation.ToMat4()
	translation := math.Mat4Translation(t.Position)
	return scale.Mul(rotation).Mul(translation)
}

func (t Transform) GetForward() math.Vec3 {
	return t.Rotation.RotateVector(math.Vec3Back)
}

func (t Transform) GetRight() math.Vec3 {
	return t.Rotation.RotateVector(math.Vec3Right)
}

func (t Transform) GetUp() math.Vec3 {
	return t.Rotation.RotateVector(math.Vec3Up)
}

// TransformFromMatrix decomposes an affine matrix without shear.
func TransformFromMatrix(m math.Mat4) Transform {
	row := func(i int) math.Vec3 { return math.Vec3{X: m[i][0], Y: m[i][1], Z: m[i][2]} }
	scale := math.Vec3{X: row(0).Length(), Y: row(1).Length(), Z: row(2).Length()}

	var rot math.Mat4 = math.Mat4Identity()
	for i, s := range [3]float32{scale.X, scale.Y, scale.Z} {
		if s == 0 {
			continue
		}
		r := row(i).Mul(1 / s)
		rot[i][0], rot[i][1], rot[i][2] = r.X, r.Y, r.Z
	}
	return Transform{
		Position: m.GetTranslation(),
		Rotation: math.QuaternionFromMat4(rot),
		Scale:    scale,
	}
}

package scene

import (
	stdmath "math"

	reMath "render-pipeline/math"
)

// ProjectionType selects between perspective and orthographic cameras.
type ProjectionType int

const (
	Perspective ProjectionType = iota
	Orthographic
)

// Camera is a look-at camera with cached view, projection and frustum.
// FOV is the vertical field of view in degrees.
type Camera struct {
	Eye    reMath.Vec3
	Center reMath.Vec3
	Up     reMath.Vec3

	Type   ProjectionType
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32

	OrthoLeft, OrthoRight, OrthoBottom, OrthoTop float32

	view     reMath.Mat4
	proj     reMath.Mat4
	viewProj reMath.Mat4
	frustum  Frustum
}

func NewCamera() *Camera {
	c := &Camera{}
	c.LookAt(reMath.Vec3{X: 0, Y: 0, Z: 100}, reMath.Vec3Zero, reMath.Vec3Up)
	c.SetPerspective(45, 1, 1, 10000)
	return c
}

func (c *Camera) LookAt(eye, center, up reMath.Vec3) {
	c.Eye = eye
	c.Center = center
	c.Up = up
	c.update()
}

func (c *Camera) SetPerspective(fov, aspect, near, far float32) {
	c.Type = Perspective
	c.FOV = fov
	c.Aspect = aspect
	c.Near = near
	c.Far = far
	c.update()
}

func (c *Camera) SetOrthographic(left, right, bottom, top, near, far float32) {
	c.Type = Orthographic
	c.OrthoLeft, c.OrthoRight, c.OrthoBottom, c.OrthoTop = left, right, bottom, top
	c.Near = near
	c.Far = far
	c.update()
}

func (c *Camera) UpdateAspectRatio(width, height float32) {
	if height > 0 {
		c.Aspect = width / height
		c.update()
	}
}

func (c *Camera) View() reMath.Mat4           { return c.view }
func (c *Camera) Projection() reMath.Mat4     { return c.proj }
func (c *Camera) ViewProjection() reMath.Mat4 { return c.viewProj }
func (c *Camera) Frustum() *Frustum           { return &c.frustum }

// TestBox reports whether box is at least partly inside the view frustum.
func (c *Camera) TestBox(box AABB) bool {
	return box.IntersectsFrustum(&c.frustum)
}

func (c *Camera) Front() reMath.Vec3 {
	return c.Center.Sub(c.Eye).Normalize()
}

func (c *Camera) Right() reMath.Vec3 {
	return c.Front().Cross(c.Up).Normalize()
}

// Move translates eye and center by delta expressed in camera space
// (X right, Y up, Z forward).
func (c *Camera) Move(delta reMath.Vec3) {
	front := c.Front()
	right := c.Right()
	up := right.Cross(front)
	world := right.Mul(delta.X).Add(up.Mul(delta.Y)).Add(front.Mul(delta.Z))
	c.Eye = c.Eye.Add(world)
	c.Center = c.Center.Add(world)
	c.update()
}

// Rotate turns the view direction by angle radians around a world axis.
func (c *Camera) Rotate(angle float32, axis reMath.Vec3) {
	dist := c.Center.Sub(c.Eye).Length()
	q := reMath.QuaternionFromAxisAngle(axis.Normalize(), angle)
	front := q.RotateVector(c.Front())
	// Keep the view direction away from the up pole.
	if reMath.Vec3Up.Dot(front) > 0.99 || reMath.Vec3Up.Dot(front) < -0.99 {
		return
	}
	c.Center = c.Eye.Add(front.Mul(dist))
	c.update()
}

// Orbit rotates the eye around the center by yaw (world up) and pitch
// (camera right), both in radians.
func (c *Camera) Orbit(yaw, pitch float32) {
	offset := c.Eye.Sub(c.Center)
	offset = reMath.QuaternionFromAxisAngle(reMath.Vec3Up, yaw).RotateVector(offset)
	right := offset.Cross(c.Up).Normalize()
	rotated := reMath.QuaternionFromAxisAngle(right, pitch).RotateVector(offset)
	if d := rotated.Normalize().Dot(reMath.Vec3Up); d < 0.99 && d > -0.99 {
		offset = rotated
	}
	c.Eye = c.Center.Add(offset)
	c.update()
}

func (c *Camera) update() {
	up := c.Up
	if up.LengthSqr() == 0 {
		up = reMath.Vec3Up
	}
	if c.Eye != c.Center {
		f := c.Center.Sub(c.Eye).Normalize()
		if up.Normalize().Cross(f).LengthSqr() < 1e-8 {
			up = reMath.Vec3Front
		}
		c.view = reMath.Mat4LookAt(c.Eye, c.Center, up)
	} else {
		c.view = reMath.Mat4Translation(c.Eye.Negate())
	}

	switch c.Type {
	case Orthographic:
		c.proj = reMath.Mat4Orthographic(c.OrthoLeft, c.OrthoRight, c.OrthoBottom, c.OrthoTop, c.Near, c.Far)
	default:
		aspect := c.Aspect
		if aspect <= 0 {
			aspect = 1
		}
		c.proj = reMath.Mat4Perspective(c.FOV*stdmath.Pi/180, aspect, c.Near, c.Far)
	}

	c.viewProj = c.view.Mul(c.proj)
	c.frustum = FrustumFromVP(c.viewProj)
}

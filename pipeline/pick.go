package pipeline

import (
	stdmath "math"

	"render-pipeline/math"
	"render-pipeline/scene"
)

// Ray is a half-line in world space. Direction is unit length.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Hit is the closest surface found by Pick.
type Hit struct {
	Call     *RenderCall
	Distance float32
	Point    math.Vec3
	Normal   math.Vec3
	Triangle int
}

// ScreenToRay converts a cursor position in pixels (origin top-left) to a
// world-space ray through the camera.
func ScreenToRay(x, y, width, height float32, cam *scene.Camera) Ray {
	ndcX := (2*x)/width - 1
	ndcY := 1 - (2*y)/height // flip Y

	inv := cam.ViewProjection().Inverse()
	near := inv.MulVec3(math.Vec3{X: ndcX, Y: ndcY, Z: -1})
	far := inv.MulVec3(math.Vec3{X: ndcX, Y: ndcY, Z: 1})

	return Ray{Origin: near, Direction: far.Sub(near).Normalize()}
}

// Pick returns the closest triangle hit by ray among calls. World bounds
// reject most calls before the per-triangle test.
func Pick(calls []RenderCall, ray Ray) (Hit, bool) {
	best := Hit{Distance: stdmath.MaxFloat32}
	found := false
	for i := range calls {
		rc := &calls[i]
		if rc.Mesh == nil {
			continue
		}
		// Broad phase
		t, ok := rayAABB(ray, rc.WorldBounds)
		if !ok || t > best.Distance {
			continue
		}
		// Narrow phase
		if h, ok := rayMesh(ray, rc); ok && h.Distance < best.Distance {
			best = h
			found = true
		}
	}
	return best, found
}

// rayAABB is the slab test. It returns the entry distance, clamped to zero
// when the origin is inside the box.
func rayAABB(ray Ray, box scene.AABB) (float32, bool) {
	inv := math.Vec3{X: 1 / ray.Direction.X, Y: 1 / ray.Direction.Y, Z: 1 / ray.Direction.Z}

	t1 := (box.Min.X - ray.Origin.X) * inv.X
	t2 := (box.Max.X - ray.Origin.X) * inv.X
	t3 := (box.Min.Y - ray.Origin.Y) * inv.Y
	t4 := (box.Max.Y - ray.Origin.Y) * inv.Y
	t5 := (box.Min.Z - ray.Origin.Z) * inv.Z
	t6 := (box.Max.Z - ray.Origin.Z) * inv.Z

	tmin := max32(max32(min32(t1, t2), min32(t3, t4)), min32(t5, t6))
	tmax := min32(min32(max32(t1, t2), max32(t3, t4)), max32(t5, t6))

	if tmax < 0 || tmin > tmax {
		return 0, false
	}
	return max32(tmin, 0), true
}

func rayMesh(ray Ray, rc *RenderCall) (Hit, bool) {
	mesh := rc.Mesh
	vertex := func(i int) math.Vec3 {
		if len(mesh.Indices) > 0 {
			return rc.Model.MulVec3(mesh.Vertices[mesh.Indices[i]].Position)
		}
		return rc.Model.MulVec3(mesh.Vertices[i].Position)
	}
	n := len(mesh.Indices)
	if n == 0 {
		n = len(mesh.Vertices)
	}

	best := Hit{Distance: stdmath.MaxFloat32}
	found := false
	for i := 0; i+2 < n; i += 3 {
		v0, v1, v2 := vertex(i), vertex(i+1), vertex(i+2)
		t, ok := mollerTrumbore(ray, v0, v1, v2)
		if !ok || t >= best.Distance {
			continue
		}
		best = Hit{
			Call:     rc,
			Distance: t,
			Point:    ray.At(t),
			Normal:   v1.Sub(v0).Cross(v2.Sub(v0)).Normalize(),
			Triangle: i / 3,
		}
		found = true
	}
	// Report the side facing the ray
	if found && best.Normal.Dot(ray.Direction) > 0 {
		best.Normal = best.Normal.Mul(-1)
	}
	return best, found
}

// mollerTrumbore intersects ray with one triangle, both faces.
func mollerTrumbore(ray Ray, v0, v1, v2 math.Vec3) (float32, bool) {
	const epsilon = 1e-7

	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)
	if a > -epsilon && a < epsilon {
		return 0, false // parallel
	}

	f := 1 / a
	s := ray.Origin.Sub(v0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := f * edge2.Dot(q)
	return t, t > epsilon
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

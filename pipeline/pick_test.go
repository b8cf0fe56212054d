package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-pipeline/math"
	"render-pipeline/scene"
)

func cubeCall(pos math.Vec3) RenderCall {
	mesh := scene.CreateCube(2)
	model := math.Mat4Translation(pos)
	return RenderCall{
		Mesh:        mesh,
		Material:    scene.DefaultMaterial(),
		Model:       model,
		WorldBounds: scene.ComputeAABB(mesh, model),
	}
}

func pickCamera() *scene.Camera {
	cam := scene.NewCamera()
	cam.LookAt(math.Vec3{Z: 20}, math.Vec3Zero, math.Vec3Up)
	cam.SetPerspective(60, 1, 0.1, 1000)
	return cam
}

func TestScreenToRayCenter(t *testing.T) {
	cam := pickCamera()
	ray := ScreenToRay(50, 50, 100, 100, cam)

	assert.InDelta(t, 0, ray.Direction.X, 1e-3)
	assert.InDelta(t, 0, ray.Direction.Y, 1e-3)
	assert.InDelta(t, -1, ray.Direction.Z, 1e-3)
	assert.InDelta(t, 20-0.1, ray.Origin.Z, 1e-2)
}

func TestPickClosest(t *testing.T) {
	cam := pickCamera()
	calls := []RenderCall{
		cubeCall(math.Vec3{Z: -10}),
		cubeCall(math.Vec3{}),
	}
	// Off-center so the ray does not run along a shared triangle edge.
	ray := ScreenToRay(52, 47, 100, 100, cam)

	hit, ok := Pick(calls, ray)
	require.True(t, ok)
	assert.Same(t, &calls[1], hit.Call)
	assert.InDelta(t, 1, hit.Point.Z, 1e-2)
	assert.InDelta(t, 1, hit.Normal.Z, 1e-4)
}

func TestPickMiss(t *testing.T) {
	cam := pickCamera()
	calls := []RenderCall{cubeCall(math.Vec3{X: 50})}

	_, ok := Pick(calls, ScreenToRay(50, 50, 100, 100, cam))
	assert.False(t, ok)

	_, ok = Pick(nil, ScreenToRay(50, 50, 100, 100, cam))
	assert.False(t, ok)
}

func TestRayAABBInside(t *testing.T) {
	box := scene.AABB{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	tmin, ok := rayAABB(Ray{Direction: math.Vec3{X: 1}}, box)
	require.True(t, ok)
	assert.Equal(t, float32(0), tmin)
}

package scene

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-pipeline/math"
)

func TestNodeGlobalMatrixChainsParents(t *testing.T) {
	root := NewNode("root")
	root.SetPosition(math.Vec3{X: 10})
	child := NewNode("child")
	child.SetPosition(math.Vec3{Y: 2})
	root.AddChild(child)

	got := child.GlobalMatrix().GetTranslation()
	assert.True(t, got.ApproxEqual(math.Vec3{X: 10, Y: 2}, 1e-5), "got %v", got)

	root.SetScale(math.Vec3{X: 2, Y: 2, Z: 2})
	got = child.GlobalMatrix().GetTranslation()
	assert.True(t, got.ApproxEqual(math.Vec3{X: 10, Y: 4}, 1e-5), "parent scale applies to child offset, got %v", got)
}

func TestCameraFrustumCulling(t *testing.T) {
	cam := NewCamera()
	cam.LookAt(math.Vec3{Z: 10}, math.Vec3Zero, math.Vec3Up)
	cam.SetPerspective(60, 1, 0.1, 100)

	inside := AABB{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	behind := AABB{Min: math.Vec3{X: -1, Y: -1, Z: 20}, Max: math.Vec3{X: 1, Y: 1, Z: 22}}
	farAway := AABB{Min: math.Vec3{X: -1, Y: -1, Z: -200}, Max: math.Vec3{X: 1, Y: 1, Z: -150}}
	left := AABB{Min: math.Vec3{X: -100, Y: -1, Z: -1}, Max: math.Vec3{X: -90, Y: 1, Z: 1}}

	assert.True(t, cam.TestBox(inside))
	assert.False(t, cam.TestBox(behind))
	assert.False(t, cam.TestBox(farAway))
	assert.False(t, cam.TestBox(left))
	assert.True(t, cam.Frustum().ContainsPoint(math.Vec3Zero))
}

func TestOrthographicFrustum(t *testing.T) {
	cam := NewCamera()
	cam.SetOrthographic(-5, 5, -5, 5, 0.1, 50)
	cam.LookAt(math.Vec3{Y: 20}, math.Vec3Zero, math.Vec3Front)

	assert.True(t, cam.TestBox(AABB{Min: math.Vec3{X: -1, Y: 0, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}))
	assert.False(t, cam.TestBox(AABB{Min: math.Vec3{X: 6, Y: 0, Z: -1}, Max: math.Vec3{X: 8, Y: 1, Z: 1}}))
	assert.False(t, cam.TestBox(AABB{Min: math.Vec3{X: -1, Y: -40, Z: -1}, Max: math.Vec3{X: 1, Y: -35, Z: 1}}))
}

func TestCameraMoveKeepsDirection(t *testing.T) {
	cam := NewCamera()
	cam.LookAt(math.Vec3{Z: 10}, math.Vec3Zero, math.Vec3Up)
	front := cam.Front()
	cam.Move(math.Vec3{Z: 2})
	assert.True(t, cam.Eye.ApproxEqual(math.Vec3{Z: 8}, 1e-5), "eye %v", cam.Eye)
	assert.True(t, cam.Front().ApproxEqual(front, 1e-5))
}

func TestTransformAABB(t *testing.T) {
	local := AABB{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	m := math.Mat4Scale(math.Vec3{X: 2, Y: 1, Z: 1}).Mul(math.Mat4Translation(math.Vec3{X: 5}))
	box := TransformAABB(local, m)
	assert.True(t, box.Min.ApproxEqual(math.Vec3{X: 3, Y: -1, Z: -1}, 1e-5), "min %v", box.Min)
	assert.True(t, box.Max.ApproxEqual(math.Vec3{X: 7, Y: 1, Z: 1}, 1e-5), "max %v", box.Max)
	assert.True(t, box.Center().ApproxEqual(math.Vec3{X: 5}, 1e-5))
	assert.True(t, box.HalfSize().ApproxEqual(math.Vec3{X: 2, Y: 1, Z: 1}, 1e-5))
}

func TestLightDefaults(t *testing.T) {
	l := NewLight("sun", LightDirectional)
	assert.Equal(t, math.Vec3One, l.Color)
	assert.Equal(t, float32(1), l.Intensity)
	assert.Equal(t, float32(100), l.MaxDistance)
	assert.Equal(t, float32(20), l.ConeAngle)
	assert.Equal(t, float32(20), l.ConeExp)
	assert.Equal(t, float32(1000), l.AreaSize)
	assert.Equal(t, float32(0.01), l.ShadowBias)
	assert.False(t, l.CastShadows)
	assert.Nil(t, l.ShadowMap())
	assert.Nil(t, l.ShadowCamera())
	assert.Equal(t, int32(0), LightDirectional.ShaderCode())
	assert.Equal(t, int32(1), LightSpot.ShaderCode())
	assert.Equal(t, int32(2), LightPoint.ShaderCode())
}

type countingTarget struct{ released int }

func (c *countingTarget) Size() int { return 1024 }
func (c *countingTarget) Release()  { c.released++ }

func TestLightReleaseShadow(t *testing.T) {
	l := NewLight("spot", LightSpot)
	target := &countingTarget{}
	l.AttachShadow(target, NewCamera())
	require.True(t, l.HasShadow())
	assert.False(t, l.ShadowReady(), "attached but not rendered")
	l.SetShadowReady(true)
	assert.True(t, l.ShadowReady())

	l.ReleaseShadow()
	assert.False(t, l.HasShadow())
	assert.False(t, l.ShadowReady())
	assert.Nil(t, l.ShadowCamera())
	assert.Equal(t, 1, target.released)

	l.ReleaseShadow()
	assert.Equal(t, 1, target.released, "second release is a no-op")
}

func TestDecalContains(t *testing.T) {
	d := NewDecal("mark", nil)
	d.Model = math.Mat4Scale(math.Vec3{X: 2, Y: 1, Z: 2}).Mul(math.Mat4Translation(math.Vec3{X: 10}))

	assert.True(t, d.Contains(math.Vec3{X: 10}))
	assert.True(t, d.Contains(math.Vec3{X: 11.5, Y: 0.5, Z: -1.5}))
	assert.False(t, d.Contains(math.Vec3{X: 12.5}))
	assert.False(t, d.Contains(math.Vec3{X: 10, Y: 1.5}))
}

const sceneDoc = `{
	"background_color": [0.1, 0.2, 0.3],
	"ambient_light": [0.05, 0.05, 0.05],
	"camera_position": [0, 10, 50],
	"camera_target": [0, 0, 0],
	"camera_fov": 60,
	"entities": [
		{"type": "PREFAB", "name": "box", "filename": "@cube", "position": [1, 2, 3], "scale": [2, 2, 2]},
		{"type": "LIGHT", "name": "sun", "light_type": "DIRECTIONAL", "position": [0, 100, 0],
		 "target": [0, 0, 0], "cast_shadows": true, "area_size": 500, "max_dist": 300},
		{"type": "LIGHT", "name": "lamp", "light_type": "SPOT", "position": [5, 5, 5], "angle": 90, "cone_angle": 30},
		{"type": "DECAL", "name": "stain", "texture": "missing.png", "position": [0, 0, 0]},
		{"type": "CLOUD", "name": "ignored"}
	]
}`

func TestDecodeScene(t *testing.T) {
	s, err := DecodeScene(strings.NewReader(sceneDoc), NewAssets(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, math.Vec3{X: 0.1, Y: 0.2, Z: 0.3}, s.BackgroundColor)
	assert.Equal(t, math.Vec3{X: 0.05, Y: 0.05, Z: 0.05}, s.AmbientLight)
	assert.Equal(t, math.Vec3{Y: 10, Z: 50}, s.MainCamera.Eye)
	assert.Equal(t, float32(60), s.MainCamera.FOV)
	require.Len(t, s.Entities, 4, "unknown entity types are skipped")

	box, ok := s.Find("box").(*PrefabEntity)
	require.True(t, ok)
	require.NotNil(t, box.Prefab)
	assert.True(t, box.Position().ApproxEqual(math.Vec3{X: 1, Y: 2, Z: 3}, 1e-5))
	bounds, found := box.Prefab.Bounds(box.Model)
	require.True(t, found)
	assert.True(t, bounds.HalfSize().ApproxEqual(math.Vec3{X: 1, Y: 1, Z: 1}, 1e-4), "scaled cube half size %v", bounds.HalfSize())

	sun := s.Find("sun").(*Light)
	assert.Equal(t, LightDirectional, sun.LightType)
	assert.True(t, sun.CastShadows)
	assert.Equal(t, float32(500), sun.AreaSize)
	assert.Equal(t, float32(300), sun.MaxDistance)
	assert.Equal(t, float32(1), sun.Intensity, "unspecified keys keep defaults")
	assert.True(t, sun.Forward().ApproxEqual(math.Vec3{Y: -1}, 1e-4), "target orients forward, got %v", sun.Forward())
	assert.True(t, sun.Vector().ApproxEqual(math.Vec3{Y: 100}, 1e-4))

	lamp := s.Find("lamp").(*Light)
	assert.Equal(t, LightSpot, lamp.LightType)
	assert.Equal(t, float32(30), lamp.ConeAngle)
	assert.True(t, lamp.Position().ApproxEqual(math.Vec3{X: 5, Y: 5, Z: 5}, 1e-5))

	stain := s.Find("stain").(*Decal)
	assert.Equal(t, "missing.png", stain.TextureName)
	assert.Nil(t, stain.Texture, "missing textures leave the decal unresolved")
}

func TestNewEntityUnknown(t *testing.T) {
	_, err := NewEntity("CLOUD", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestWhiteTextureShared(t *testing.T) {
	assert.Same(t, WhiteTexture(), OrWhite(nil))
	tex := NewSolidTexture("red", 255, 0, 0, 255)
	assert.Same(t, tex, OrWhite(tex))
	assert.Equal(t, []byte{255, 255, 255, 255}, WhiteTexture().Pixels)
}

func TestCameraOrthoBoundsAndAxes(t *testing.T) {
	cam := NewCamera()
	cam.LookAt(math.Vec3{Z: 10}, math.Vec3Zero, math.Vec3Up)
	cam.SetOrthographic(-4, 4, -2, 2, 0.1, 100)

	assert.Equal(t, Orthographic, cam.Type)
	assert.Equal(t, float32(-4), cam.OrthoLeft)
	assert.Equal(t, float32(4), cam.OrthoRight)
	assert.Equal(t, float32(-2), cam.OrthoBottom)
	assert.Equal(t, float32(2), cam.OrthoTop)

	right := cam.Right()
	assert.InDelta(t, 1, right.X, 1e-5)
	assert.InDelta(t, 0, right.Y, 1e-5)
	assert.InDelta(t, 0, right.Z, 1e-5)

	// The point on the right bound maps to the right clip edge.
	clip := cam.ViewProjection().MulVec3(math.Vec3{X: 4})
	assert.InDelta(t, 1, clip.X, 1e-5)
}

func TestShininessRoughnessMapping(t *testing.T) {
	for _, ns := range []float32{1, 10, 50, 250, 1000} {
		r := RoughnessFromShininess(ns)
		assert.True(t, r > 0 && r <= 1, "roughness %g for Ns %g", r, ns)
		assert.InDelta(t, ns, ShininessFromRoughness(r), float64(ns)*1e-4)
	}
	assert.Equal(t, float32(1), RoughnessFromShininess(0))
	assert.Equal(t, float32(1), ShininessFromRoughness(1), "fully rough is a broad lobe")
	assert.Greater(t, ShininessFromRoughness(0.1), ShininessFromRoughness(0.5))
}

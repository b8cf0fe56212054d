package pipeline

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-pipeline/core"
	"render-pipeline/math"
	"render-pipeline/scene"
)

func material(mode scene.AlphaMode) *scene.Material {
	m := scene.DefaultMaterial()
	m.AlphaMode = mode
	return m
}

func quadEntity(name string, pos math.Vec3, mat *scene.Material) *scene.PrefabEntity {
	e := scene.NewPrefabEntity(name, scene.NewMeshPrefab(name, scene.CreateQuad(), mat))
	e.Model = math.Mat4Translation(pos)
	return e
}

func TestCollectorSkipsInvisible(t *testing.T) {
	sc := scene.NewScene()

	visible := quadEntity("visible", math.Vec3{Z: -5}, material(scene.AlphaOpaque))
	hidden := quadEntity("hidden", math.Vec3{Z: -6}, material(scene.AlphaOpaque))
	hidden.Visible = false

	// A prefab whose root has no mesh but whose children do, one of them hidden.
	root := scene.NewNode("root")
	shown := scene.NewNode("shown")
	shown.Mesh, shown.Material = scene.CreateQuad(), material(scene.AlphaOpaque)
	culled := scene.NewNode("culled")
	culled.Mesh, culled.Material = scene.CreateQuad(), material(scene.AlphaOpaque)
	culled.Visible = false
	grandchild := scene.NewNode("under-culled")
	grandchild.Mesh, grandchild.Material = scene.CreateQuad(), material(scene.AlphaOpaque)
	culled.AddChild(grandchild)
	noMaterial := scene.NewNode("no-material")
	noMaterial.Mesh = scene.CreateQuad()
	under := scene.NewNode("under-no-material")
	under.Mesh, under.Material = scene.CreateQuad(), material(scene.AlphaOpaque)
	noMaterial.AddChild(under)
	root.AddChild(shown)
	root.AddChild(culled)
	root.AddChild(noMaterial)
	tree := scene.NewPrefabEntity("tree", scene.NewPrefab("tree", root))

	sun := scene.NewLight("sun", scene.LightDirectional)
	moon := scene.NewLight("moon", scene.LightDirectional)
	off := scene.NewLight("off", scene.LightPoint)
	off.Visible = false
	decal := scene.NewDecal("decal", nil)
	probe := scene.NewReflectionProbe("probe")
	empty := scene.NewPrefabEntity("empty", nil)

	for _, e := range []scene.Entity{visible, hidden, tree, sun, moon, off, decal, probe, empty} {
		sc.AddEntity(e)
	}

	frame := NewCollector().Collect(sc, math.Vec3Zero)

	require.Len(t, frame.Calls, 3)
	assert.Same(t, visible.Prefab.Root.Mesh, frame.Calls[0].Mesh)
	assert.Same(t, shown.Mesh, frame.Calls[1].Mesh)
	assert.Same(t, under.Mesh, frame.Calls[2].Mesh, "missing material stops emission, not traversal")
	for i, rc := range frame.Calls {
		assert.Equal(t, i, rc.Order)
	}

	assert.Equal(t, []*scene.Light{sun, moon}, frame.Lights)
	assert.Same(t, sun, frame.DirectLight, "first directional light is dominant")
	assert.Equal(t, []*scene.Decal{decal}, frame.Decals)
	assert.Equal(t, []*scene.ReflectionProbe{probe}, frame.ReflectionProbes)
}

func TestCollectorDistanceAndBounds(t *testing.T) {
	sc := scene.NewScene()
	opaque := quadEntity("opaque", math.Vec3{X: 3, Y: 4}, material(scene.AlphaOpaque))
	glass := quadEntity("glass", math.Vec3{Z: 10}, material(scene.AlphaBlend))
	sc.AddEntity(opaque)
	sc.AddEntity(glass)

	frame := NewCollector().Collect(sc, math.Vec3Zero)
	require.Len(t, frame.Calls, 2)
	assert.InDelta(t, 5, frame.Calls[0].Distance, 1e-4)
	assert.InDelta(t, 10+BlendDistanceBias, frame.Calls[1].Distance, 1)
	assert.True(t, frame.Calls[0].WorldBounds.Center().ApproxEqual(math.Vec3{X: 3, Y: 4}, 1e-5))
}

func TestCollectorReusesFrame(t *testing.T) {
	sc := scene.NewScene()
	sc.AddEntity(quadEntity("a", math.Vec3{}, material(scene.AlphaOpaque)))
	c := NewCollector()
	c.Collect(sc, math.Vec3Zero)
	frame := c.Collect(sc, math.Vec3Zero)
	assert.Len(t, frame.Calls, 1, "lists are cleared between frames")
	assert.Empty(t, c.Collect(scene.NewScene(), math.Vec3Zero).Calls)
}

func TestSortRenderCalls(t *testing.T) {
	opaque := material(scene.AlphaOpaque)
	mask := material(scene.AlphaMask)
	blend := material(scene.AlphaBlend)

	calls := []RenderCall{
		{Material: blend, Distance: 10 + BlendDistanceBias, Order: 0},
		{Material: opaque, Distance: 30, Order: 1},
		{Material: blend, Distance: 20 + BlendDistanceBias, Order: 2},
		{Material: mask, Distance: 5, Order: 3},
		{Material: opaque, Distance: 30, Order: 4},
		{Material: blend, Distance: 20 + BlendDistanceBias, Order: 5},
	}
	SortRenderCalls(calls)

	var order []int
	for _, rc := range calls {
		order = append(order, rc.Order)
	}
	assert.Equal(t, []int{3, 1, 4, 2, 5, 0}, order)

	seenBlend := false
	for i, rc := range calls {
		if rc.Blended() {
			seenBlend = true
			if i > 0 && calls[i-1].Blended() {
				assert.GreaterOrEqual(t, calls[i-1].Distance, rc.Distance, "blend draws are back to front")
			}
		} else {
			assert.False(t, seenBlend, "opaque draw after a blend draw")
		}
	}
}

func TestSortTransparencyIndependentOfInputOrder(t *testing.T) {
	sc := scene.NewScene()
	red := material(scene.AlphaBlend)
	red.BaseColor = core.Color{R: 1, A: 0.5}
	green := material(scene.AlphaBlend)
	green.BaseColor = core.Color{G: 1, A: 0.5}
	near := quadEntity("near", math.Vec3{Z: -10}, red)
	far := quadEntity("far", math.Vec3{Z: -20}, green)

	draw := func(entities ...scene.Entity) []*scene.Material {
		sc.Entities = entities
		frame := NewCollector().Collect(sc, math.Vec3Zero)
		SortRenderCalls(frame.Calls)
		var mats []*scene.Material
		for _, rc := range frame.Calls {
			mats = append(mats, rc.Material)
		}
		return mats
	}

	assert.Equal(t, []*scene.Material{green, red}, draw(near, far))
	assert.Equal(t, []*scene.Material{green, red}, draw(far, near))
}

func TestCull(t *testing.T) {
	cam := scene.NewCamera()
	cam.LookAt(math.Vec3{Z: 10}, math.Vec3Zero, math.Vec3Up)
	cam.SetPerspective(60, 1, 0.1, 100)

	box := func(center math.Vec3) scene.AABB {
		return scene.AABB{Min: center.Sub(math.Vec3One), Max: center.Add(math.Vec3One)}
	}
	calls := []RenderCall{
		{Material: material(scene.AlphaOpaque), WorldBounds: box(math.Vec3Zero), Order: 0},
		{Material: material(scene.AlphaOpaque), WorldBounds: box(math.Vec3{Z: 50}), Order: 1},
		{Material: material(scene.AlphaBlend), WorldBounds: box(math.Vec3{Y: 1}), Order: 2},
		{Material: material(scene.AlphaMask), WorldBounds: box(math.Vec3{X: 500}), Order: 3},
	}

	all := Cull(calls, cam.Frustum(), nil)
	require.Len(t, all, 2)
	assert.Equal(t, 0, all[0].Order)
	assert.Equal(t, 2, all[1].Order)

	opaque := Cull(calls, cam.Frustum(), Opaque)
	require.Len(t, opaque, 1)
	assert.Equal(t, 0, opaque[0].Order)

	blended := Cull(calls, cam.Frustum(), Blended)
	require.Len(t, blended, 1)
	assert.Equal(t, 2, blended[0].Order)

	assert.Len(t, Cull(calls, nil, nil), 4)
}

type fakeShadow struct {
	size     int
	released bool
}

func (f *fakeShadow) Size() int { return f.size }
func (f *fakeShadow) Release()  { f.released = true }

type fakeAllocator struct {
	allocated []*fakeShadow
	fail      bool
}

func (a *fakeAllocator) AllocShadow(size int) (scene.ShadowTarget, error) {
	if a.fail {
		return nil, errors.New("no memory")
	}
	s := &fakeShadow{size: size}
	a.allocated = append(a.allocated, s)
	return s, nil
}

func TestShadowOwnershipToggle(t *testing.T) {
	alloc := &fakeAllocator{}
	pass := NewShadowPass(alloc)
	l := scene.NewLight("spot", scene.LightSpot)
	l.Model = math.Mat4FromFront(math.Vec3{Y: 10}, math.Vec3{Y: -1}, math.Vec3Front)

	assert.False(t, pass.Prepare(l))
	assert.Nil(t, l.ShadowMap())
	assert.Nil(t, l.ShadowCamera())
	assert.Empty(t, alloc.allocated)

	l.CastShadows = true
	assert.True(t, pass.Prepare(l))
	require.NotNil(t, l.ShadowMap())
	require.NotNil(t, l.ShadowCamera())
	assert.Equal(t, ShadowMapSize, l.ShadowMap().Size())

	assert.True(t, pass.Prepare(l))
	assert.Len(t, alloc.allocated, 1, "shadow image is allocated once")

	l.CastShadows = false
	assert.False(t, pass.Prepare(l))
	assert.Nil(t, l.ShadowMap())
	assert.Nil(t, l.ShadowCamera())
	assert.True(t, alloc.allocated[0].released)

	l.CastShadows = true
	assert.True(t, pass.Prepare(l))
	assert.Len(t, alloc.allocated, 2, "re-enabling re-allocates")
}

func TestShadowPassSkips(t *testing.T) {
	alloc := &fakeAllocator{}
	pass := NewShadowPass(alloc)

	point := scene.NewLight("bulb", scene.LightPoint)
	point.CastShadows = true
	assert.False(t, pass.Prepare(point))
	assert.False(t, point.HasShadow())

	short := scene.NewLight("short", scene.LightSpot)
	short.CastShadows = true
	short.MaxDistance = 0.05
	assert.False(t, pass.Prepare(short), "range inside the near plane draws nothing")
	assert.False(t, short.ShadowReady())
	packet, ok := PackLights([]*scene.Light{short})
	require.True(t, ok)
	assert.Equal(t, int32(0), packet.CastShadows[0], "unrendered map is not sampled")
	assert.Nil(t, packet.Shadows[0])

	// A map rendered on an earlier frame goes stale once the range shrinks.
	short.MaxDistance = 100
	require.True(t, pass.Prepare(short))
	assert.True(t, short.ShadowReady())
	packet, _ = PackLights([]*scene.Light{short})
	assert.Equal(t, int32(1), packet.CastShadows[0])

	short.MaxDistance = 0.05
	assert.False(t, pass.Prepare(short))
	assert.True(t, short.HasShadow())
	assert.False(t, short.ShadowReady())
	packet, _ = PackLights([]*scene.Light{short})
	assert.Equal(t, int32(0), packet.CastShadows[0])

	alloc.fail = true
	broken := scene.NewLight("broken", scene.LightDirectional)
	broken.CastShadows = true
	assert.False(t, pass.Prepare(broken))
	assert.False(t, broken.HasShadow())
}

func TestShadowPassReleasesHiddenLights(t *testing.T) {
	alloc := &fakeAllocator{}
	pass := NewShadowPass(alloc)
	sc := scene.NewScene()

	shown := scene.NewLight("shown", scene.LightSpot)
	shown.CastShadows = true
	hidden := scene.NewLight("hidden", scene.LightSpot)
	hidden.CastShadows = true
	sc.AddEntity(shown)
	sc.AddEntity(hidden)

	render := pass.PrepareScene(sc, []*scene.Light{shown, hidden})
	require.Len(t, render, 2)
	hiddenMap := alloc.allocated[1]

	// Hidden: its map stays allocated but must not be sampled.
	hidden.Visible = false
	render = pass.PrepareScene(sc, []*scene.Light{shown})
	assert.Equal(t, []*scene.Light{shown}, render)
	assert.True(t, hidden.HasShadow())
	assert.False(t, hidden.ShadowReady())

	// Hidden and no longer casting: released without becoming visible.
	hidden.CastShadows = false
	pass.PrepareScene(sc, []*scene.Light{shown})
	assert.False(t, hidden.HasShadow())
	assert.True(t, hiddenMap.released)
	assert.True(t, shown.ShadowReady())
}

func TestConfigureShadowCamera(t *testing.T) {
	sun := scene.NewLight("sun", scene.LightDirectional)
	sun.Model = math.Mat4FromFront(math.Vec3{Y: 100}, math.Vec3{Y: -1}, math.Vec3Front)
	sun.AreaSize = 200
	sun.MaxDistance = 300
	cam := scene.NewCamera()
	ConfigureShadowCamera(sun, cam)

	assert.Equal(t, scene.Orthographic, cam.Type)
	assert.Equal(t, float32(-100), cam.OrthoLeft)
	assert.Equal(t, float32(100), cam.OrthoTop)
	assert.Equal(t, float32(ShadowNear), cam.Near)
	assert.Equal(t, float32(300), cam.Far)
	assert.True(t, cam.Front().ApproxEqual(math.Vec3{Y: -1}, 1e-5))
	assert.True(t, cam.TestBox(scene.AABB{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}))
	assert.False(t, cam.TestBox(scene.AABB{Min: math.Vec3{X: 150, Y: 0, Z: 0}, Max: math.Vec3{X: 160, Y: 1, Z: 1}}))

	spot := scene.NewLight("spot", scene.LightSpot)
	spot.ConeAngle = 30
	spot.MaxDistance = 50
	ConfigureShadowCamera(spot, cam)
	assert.Equal(t, scene.Perspective, cam.Type)
	assert.Equal(t, float32(60), cam.FOV)
	assert.Equal(t, float32(1), cam.Aspect)
}

func TestPackLights(t *testing.T) {
	var lights []*scene.Light
	for i := 0; i < MaxSinglePassLights; i++ {
		l := scene.NewLight("l", scene.LightPoint)
		l.Intensity = 2
		l.Color = math.Vec3{X: 1, Y: 0.5}
		lights = append(lights, l)
	}
	shadowed := scene.NewLight("spot", scene.LightSpot)
	shadowed.CastShadows = true
	NewShadowPass(&fakeAllocator{}).Prepare(shadowed)
	lights[2] = shadowed

	p, ok := PackLights(lights)
	require.True(t, ok)
	assert.Equal(t, MaxSinglePassLights, p.Count)
	assert.Equal(t, math.Vec3{X: 2, Y: 1}, p.Color[0], "color is pre-multiplied by intensity")
	assert.Equal(t, int32(2), p.Type[0])
	assert.Equal(t, int32(1), p.Type[2])
	assert.Equal(t, int32(1), p.CastShadows[2])
	assert.Equal(t, int32(0), p.CastShadows[0])
	assert.NotNil(t, p.Shadows[2])
	assert.Nil(t, p.Shadows[0])
	assert.Equal(t, shadowed.ShadowCamera().ViewProjection(), p.ShadowVP[2])

	_, ok = PackLights(append(lights, scene.NewLight("extra", scene.LightPoint)))
	assert.False(t, ok)
}

func TestPlanMultiPassAmbientOnce(t *testing.T) {
	ambient := math.Vec3{X: 0.1, Y: 0.1, Z: 0.1}
	mat := material(scene.AlphaOpaque)
	mat.Emissive = math.Vec3{X: 1}
	lights := []*scene.Light{
		scene.NewLight("a", scene.LightPoint),
		scene.NewLight("b", scene.LightSpot),
		scene.NewLight("c", scene.LightDirectional),
	}

	passes := PlanMultiPass(lights, mat, ambient)
	require.Len(t, passes, 3)

	var ambientSum, emissiveSum math.Vec3
	for i, p := range passes {
		assert.Same(t, lights[i], p.Light)
		ambientSum = ambientSum.Add(p.Ambient)
		emissiveSum = emissiveSum.Add(p.Emissive)
		if i == 0 {
			assert.Equal(t, BlendOff, p.Blend)
		} else {
			assert.Equal(t, BlendAdditive, p.Blend)
		}
	}
	assert.Equal(t, ambient, ambientSum, "ambient is added exactly once")
	assert.Equal(t, mat.Emissive, emissiveSum, "emissive is added exactly once")

	blended := PlanMultiPass(lights, material(scene.AlphaBlend), ambient)
	assert.Equal(t, BlendAlpha, blended[0].Blend)
	assert.Equal(t, BlendAdditive, blended[1].Blend)

	unlit := PlanMultiPass(nil, mat, ambient)
	require.Len(t, unlit, 1)
	assert.Nil(t, unlit[0].Light)
	assert.Equal(t, ambient, unlit[0].Ambient)
}

func TestPlanDrawFallsBackToMultiPass(t *testing.T) {
	mat := material(scene.AlphaOpaque)
	var lights []*scene.Light
	for i := 0; i < MaxSinglePassLights+1; i++ {
		lights = append(lights, scene.NewLight("l", scene.LightPoint))
	}

	plan := PlanDraw(LightRenderSingle, lights[:2], mat, math.Vec3{})
	require.NotNil(t, plan.Single)
	assert.Equal(t, 2, plan.Single.Count)
	assert.Empty(t, plan.Passes)

	plan = PlanDraw(LightRenderSingle, lights, mat, math.Vec3{})
	assert.Nil(t, plan.Single)
	assert.Len(t, plan.Passes, len(lights))

	plan = PlanDraw(LightRenderSingle, nil, mat, math.Vec3{})
	assert.Nil(t, plan.Single)
	assert.Len(t, plan.Passes, 1)

	plan = PlanDraw(LightRenderMulti, lights[:2], mat, math.Vec3{})
	assert.Nil(t, plan.Single)
	assert.Len(t, plan.Passes, 2)
}

func TestPostChainPingPongSafety(t *testing.T) {
	steps := BuildPostChain(BlurIterations)
	require.NoError(t, ValidatePostChain(steps))

	assert.Equal(t, FilterTonemap, steps[len(steps)-1].Filter)
	assert.Equal(t, SlotScreen, steps[len(steps)-1].Output)

	var filters []Filter
	blurs := 0
	for _, s := range steps {
		if s.Filter == FilterBlur {
			blurs++
			continue
		}
		filters = append(filters, s.Filter)
	}
	assert.Equal(t, 4*BlurIterations, blurs)
	assert.Equal(t, []Filter{
		FilterDOF, FilterMotionBlur, FilterGrade, FilterFXAA,
		FilterContrast, FilterThreshold, FilterMix, FilterTonemap,
	}, filters)

	// The first stage only ever reads the illumination image or its own outputs.
	assert.Equal(t, SlotIllumination, steps[0].Input)
	assert.Equal(t, SlotBlurred, steps[2*BlurIterations-1].Output)
}

func TestPostChainEachFilterReadsPreviousResult(t *testing.T) {
	steps := BuildPostChain(2)
	var last Slot = SlotIllumination
	for _, s := range steps {
		switch s.Filter {
		case FilterDOF, FilterMotionBlur, FilterGrade, FilterFXAA, FilterContrast:
			assert.Equal(t, last, s.Input, "%s reads the previous result", s.Filter)
			last = s.Output
		}
	}
}

func TestValidatePostChainRejectsAliasing(t *testing.T) {
	bad := []PostStep{{Filter: FilterFXAA, Input: SlotPing, Output: SlotPing}}
	assert.Error(t, ValidatePostChain(bad))

	early := []PostStep{
		{Filter: FilterTonemap, Input: SlotPing, Output: SlotScreen},
		{Filter: FilterFXAA, Input: SlotPing, Output: SlotPong},
	}
	assert.Error(t, ValidatePostChain(early))
}

func TestGenerateSpherePoints(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := GenerateSpherePoints(rng, SSAOSamples, 10, false)
	require.Len(t, points, SSAOSamples)
	negative := 0
	for _, p := range points {
		l := p.Length()
		assert.LessOrEqual(t, l, float32(10.0001))
		assert.GreaterOrEqual(t, l, float32(10*0.46), "radius is at least cbrt(0.1)")
		if p.Z < 0 {
			negative++
		}
	}
	assert.Greater(t, negative, 0, "full sphere covers both hemispheres")

	for _, p := range GenerateSpherePoints(rng, SSAOSamples, 1, true) {
		assert.GreaterOrEqual(t, p.Z, float32(0))
	}
}

func TestPlanFrame(t *testing.T) {
	assert.Equal(t, []Pass{PassShadows, PassForward, PassPost, PassDebug}, PlanFrame(Forward))

	deferred := PlanFrame(Deferred)
	index := func(p Pass) int {
		for i, q := range deferred {
			if q == p {
				return i
			}
		}
		return -1
	}
	order := []Pass{PassShadows, PassGeometry, PassDecals, PassSSAO, PassIllumination, PassLightVolumes, PassTransparent, PassPost}
	for i := 1; i < len(order); i++ {
		assert.Less(t, index(order[i-1]), index(order[i]), "%s before %s", order[i-1], order[i])
	}
}

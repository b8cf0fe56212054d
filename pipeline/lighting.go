package pipeline

import (
	"render-pipeline/math"
	"render-pipeline/scene"
)

// MaxSinglePassLights bounds the uniform arrays of the single-pass program.
const MaxSinglePassLights = 5

// LightRender selects how forward draws accumulate multiple lights.
type LightRender int

const (
	LightRenderMulti LightRender = iota
	LightRenderSingle
)

// BlendMode is the framebuffer blend state of a draw.
type BlendMode int

const (
	BlendOff      BlendMode = iota
	BlendAlpha              // SrcAlpha, OneMinusSrcAlpha
	BlendAdditive           // SrcAlpha, One
)

// MaterialBlend is the blend state a material asks for on its first pass.
func MaterialBlend(mat *scene.Material) BlendMode {
	if mat.IsBlended() {
		return BlendAlpha
	}
	return BlendOff
}

// LightPacket is the parallel-array uniform block of the single-pass program.
type LightPacket struct {
	Count       int
	Position    [MaxSinglePassLights]math.Vec3
	Color       [MaxSinglePassLights]math.Vec3
	Front       [MaxSinglePassLights]math.Vec3
	Cone        [MaxSinglePassLights]math.Vec3
	Vector      [MaxSinglePassLights]math.Vec3
	MaxDistance [MaxSinglePassLights]float32
	ShadowBias  [MaxSinglePassLights]float32
	Type        [MaxSinglePassLights]int32
	CastShadows [MaxSinglePassLights]int32
	ShadowVP    [MaxSinglePassLights]math.Mat4
	// Shadows[i] is bound to its own sampler unit when CastShadows[i] is set.
	Shadows [MaxSinglePassLights]scene.ShadowTarget
}

// PackLights fills a LightPacket. It reports false when there are more
// lights than the arrays hold, in which case the caller falls back to
// multi-pass.
func PackLights(lights []*scene.Light) (LightPacket, bool) {
	var p LightPacket
	if len(lights) > MaxSinglePassLights {
		return p, false
	}
	p.Count = len(lights)
	for i, l := range lights {
		p.Position[i] = l.Position()
		p.Color[i] = l.Radiance()
		p.Front[i] = l.Forward()
		p.Cone[i] = l.Cone()
		p.Vector[i] = l.Vector()
		p.MaxDistance[i] = l.MaxDistance
		p.Type[i] = l.LightType.ShaderCode()
		if l.CastShadows && l.ShadowReady() && l.ShadowCamera() != nil {
			p.CastShadows[i] = 1
			p.ShadowBias[i] = l.ShadowBias
			p.ShadowVP[i] = l.ShadowCamera().ViewProjection()
			p.Shadows[i] = l.ShadowMap()
		}
	}
	return p, true
}

// LightPass is one draw of the multi-pass path. Light is nil for the single
// unlit draw issued when there are no lights.
type LightPass struct {
	Light    *scene.Light
	Blend    BlendMode
	Ambient  math.Vec3
	Emissive math.Vec3
}

// PlanMultiPass returns one pass per light. Only the first pass carries the
// ambient and emissive terms and follows the material's blend mode; later
// passes add on top.
func PlanMultiPass(lights []*scene.Light, mat *scene.Material, ambient math.Vec3) []LightPass {
	if len(lights) == 0 {
		return []LightPass{{Blend: MaterialBlend(mat), Ambient: ambient, Emissive: mat.Emissive}}
	}
	passes := make([]LightPass, len(lights))
	for i, l := range lights {
		passes[i] = LightPass{Light: l, Blend: BlendAdditive}
		if i == 0 {
			passes[i].Blend = MaterialBlend(mat)
			passes[i].Ambient = ambient
			passes[i].Emissive = mat.Emissive
		}
	}
	return passes
}

// DrawPlan is how one forward draw is issued: either a single packed draw
// or a sequence of light passes.
type DrawPlan struct {
	Single *LightPacket
	Blend  BlendMode
	Passes []LightPass
}

// PlanDraw chooses between single-pass and multi-pass for one draw.
func PlanDraw(mode LightRender, lights []*scene.Light, mat *scene.Material, ambient math.Vec3) DrawPlan {
	if mode == LightRenderSingle && len(lights) > 0 {
		if packet, ok := PackLights(lights); ok {
			return DrawPlan{Single: &packet, Blend: MaterialBlend(mat)}
		}
	}
	return DrawPlan{Passes: PlanMultiPass(lights, mat, ambient)}
}

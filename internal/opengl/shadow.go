package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/pkg/errors"

	"render-pipeline/pipeline"
	"render-pipeline/scene"
)

// ShadowMap wraps a depth-only framebuffer used for shadow mapping. It is
// owned by the light it was allocated for.
type ShadowMap struct {
	FBO      uint32
	DepthTex uint32
	size     int32
}

// NewShadowMap creates a depth-only FBO of size×size resolution.
// Uses a 32-bit float depth texture with hardware PCF (COMPARE_REF_TO_TEXTURE).
func NewShadowMap(size int) (*ShadowMap, error) {
	sm := &ShadowMap{size: int32(size)}

	gl.GenTextures(1, &sm.DepthTex)
	gl.BindTexture(gl.TEXTURE_2D, sm.DepthTex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT32F,
		int32(size), int32(size), 0, gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	// Fragments outside the shadow map are lit (border depth = 1.0)
	border := [4]float32{1, 1, 1, 1}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)

	gl.GenFramebuffers(1, &sm.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, sm.FBO)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, sm.DepthTex, 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteTextures(1, &sm.DepthTex)
		gl.DeleteFramebuffers(1, &sm.FBO)
		return nil, errors.Errorf("shadow FBO incomplete: status=0x%X", status)
	}

	return sm, nil
}

// Size is the side of the depth image in texels.
func (sm *ShadowMap) Size() int { return int(sm.size) }

// Release frees GPU resources.
func (sm *ShadowMap) Release() {
	if sm.FBO != 0 {
		gl.DeleteFramebuffers(1, &sm.FBO)
		sm.FBO = 0
	}
	if sm.DepthTex != 0 {
		gl.DeleteTextures(1, &sm.DepthTex)
		sm.DepthTex = 0
	}
}

// ShadowAllocator hands out GL shadow maps to the shadow pass.
type ShadowAllocator struct{}

func (ShadowAllocator) AllocShadow(size int) (scene.ShadowTarget, error) {
	return NewShadowMap(size)
}

// shadowTexture returns the depth texture behind a light's shadow target.
func shadowTexture(t scene.ShadowTarget) uint32 {
	if sm, ok := t.(*ShadowMap); ok {
		return sm.DepthTex
	}
	return 0
}

// depth-only program of the shadow pass; masked materials discard below
// their cutoff so cut-out foliage casts the right shadow.
const depthVertSrc = `
#version 410 core
layout(location = 0) in vec3 inPosition;
layout(location = 2) in vec2 inUV;
uniform mat4 u_model;
uniform mat4 u_viewprojection;
out vec2 fragUV;
void main() {
    fragUV = inUV;
    gl_Position = u_viewprojection * u_model * vec4(inPosition, 1.0);
}
` + "\x00"

const depthFragSrc = `
#version 410 core
in vec2 fragUV;
uniform sampler2D u_texture;
uniform vec4 u_color;
uniform float u_alpha_cutoff;
void main() {
    float alpha = u_color.a * texture(u_texture, fragUV).a;
    if (alpha < u_alpha_cutoff) discard;
}
` + "\x00"

// RenderShadowMap draws every non-BLEND call visible from the light's
// camera into its depth image. The caller has prepared the light through
// pipeline.ShadowPass.
func (r *Renderer) RenderShadowMap(l *scene.Light, calls []pipeline.RenderCall) {
	sm, ok := l.ShadowMap().(*ShadowMap)
	cam := l.ShadowCamera()
	if !ok || sm.FBO == 0 || cam == nil {
		return
	}

	var prevFBO int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prevFBO)

	gl.BindFramebuffer(gl.FRAMEBUFFER, sm.FBO)
	gl.Viewport(0, 0, sm.size, sm.size)
	gl.ColorMask(false, false, false, false)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthMask(true)
	gl.DepthFunc(gl.LESS)
	gl.Disable(gl.BLEND)
	gl.Clear(gl.DEPTH_BUFFER_BIT)
	gl.FrontFace(gl.CW)

	p := r.depthProg
	p.use()
	p.setMat4("u_viewprojection", cam.ViewProjection())
	for _, rc := range pipeline.Cull(calls, cam.Frustum(), pipeline.Opaque) {
		r.setCulling(rc.Material)
		p.setMat4("u_model", rc.Model)
		p.setTexture("u_texture", r.textures.orWhite(rc.Material.ColorTexture), 0)
		c := rc.Material.BaseColor
		p.setVec4("u_color", c.R, c.G, c.B, c.A)
		p.setFloat("u_alpha_cutoff", alphaCutoff(rc.Material))
		r.meshes.draw(rc.Mesh)
	}

	gl.FrontFace(gl.CCW)
	gl.ColorMask(true, true, true, true)
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO))
	gl.Viewport(0, 0, r.width, r.height)
}

// alphaCutoff is the discard threshold a material asks for.
func alphaCutoff(mat *scene.Material) float32 {
	if mat.AlphaMode == scene.AlphaMask {
		return mat.AlphaCutoff
	}
	return 0
}

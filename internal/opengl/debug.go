package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"

	"render-pipeline/scene"
)

// Debug views drawn straight to the screen after the post chain.
type DebugViews struct {
	GBuffers   bool
	SSAO       bool
	Irradiance bool
	ShadowMap  bool
}

// Display modes of the debug program.
const (
	showColor = iota
	showDepth // perspective depth, linearised with u_camera_nearfar
	showRaw   // single channel as grey
)

const debugFragSrc = glslVersion + `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D u_texture;
uniform int       u_mode;
uniform vec2      u_camera_nearfar;

void main() {
    vec4 c = texture(u_texture, fragUV);
    if (u_mode == 1) {
        float n = u_camera_nearfar.x;
        float f = u_camera_nearfar.y;
        float z = c.r * 2.0 - 1.0;
        float d = (2.0 * n) / (f + n - z * (f - n));
        outColor = vec4(vec3(d), 1.0);
    } else if (u_mode == 2) {
        outColor = vec4(vec3(c.r), 1.0);
    } else {
        outColor = vec4(c.rgb, 1.0);
    }
}
` + "\x00"

// drawTexture draws tex into the screen rectangle (x, y, w, h).
func (r *Renderer) drawTexture(tex uint32, mode int32, x, y, w, h int32, cam *scene.Camera) {
	if tex == 0 {
		return
	}
	gl.Viewport(x, y, w, h)
	p := r.debugProg
	p.use()
	p.setInt("u_mode", mode)
	if cam != nil {
		p.setVec2("u_camera_nearfar", cam.Near, cam.Far)
	}
	p.setTexture("u_texture", tex, 0)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
}

// RenderDebug draws the enabled views over the finished frame.
func (r *Renderer) RenderDebug(cam *scene.Camera, lights []*scene.Light, views DebugViews) {
	if !views.GBuffers && !views.SSAO && !views.Irradiance && !views.ShadowMap {
		return
	}
	bindScreen(r.width, r.height)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	gl.Disable(gl.CULL_FACE)
	gl.BindVertexArray(r.quadVAO)

	w, h := r.width/2, r.height/2
	if views.GBuffers && r.gbuffer.FBO != 0 {
		r.drawTexture(r.gbuffer.Color[0], showColor, 0, h, w, h, cam)
		r.drawTexture(r.gbuffer.Color[1], showColor, w, h, w, h, cam)
		r.drawTexture(r.gbuffer.Color[2], showColor, 0, 0, w, h, cam)
		r.drawTexture(r.gbuffer.Depth, showDepth, w, 0, w, h, cam)
	}
	if views.SSAO {
		r.drawTexture(r.ssao.result(), showColor, 0, 0, r.width, r.height, cam)
	}
	if views.Irradiance && r.irradiance.Ready() {
		r.drawTexture(r.irradiance.tex, showColor, 0, 0, r.width/4, r.height/2, cam)
	}
	if views.ShadowMap {
		r.drawShadowMaps(lights)
	}

	gl.BindVertexArray(0)
	gl.Enable(gl.DEPTH_TEST)
	bindScreen(r.width, r.height)
}

// drawShadowMaps shows each shadow map along the bottom-right edge. Compare
// mode is switched off while the map is sampled as a plain texture.
func (r *Renderer) drawShadowMaps(lights []*scene.Light) {
	size := r.height / 4
	x := r.width - size
	for _, l := range lights {
		tex := shadowTexture(l.ShadowMap())
		if tex == 0 {
			continue
		}
		gl.BindTexture(gl.TEXTURE_2D, tex)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_MODE, gl.NONE)

		mode := int32(showRaw)
		if sc := l.ShadowCamera(); sc != nil && sc.Type == scene.Perspective {
			mode = showDepth
		}
		r.drawTexture(tex, mode, x, 0, size, size, l.ShadowCamera())

		gl.BindTexture(gl.TEXTURE_2D, tex)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
		x -= size
		if x < 0 {
			break
		}
	}
}

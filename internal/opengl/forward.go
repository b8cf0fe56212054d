package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"render-pipeline/math"
	"render-pipeline/pipeline"
	"render-pipeline/scene"
)

// Texture units of the light samplers. Material textures use 0-3, the
// single-pass program uses one shadow unit per light.
const (
	shadowUnit     = 8
	maxShadowUnits = pipeline.MaxSinglePassLights
)

const forwardFragSrc = glslVersion + surfaceGLSL + lightingGLSL + `
uniform vec3 u_ambient_light;
uniform vec3 u_camera_position;

out vec4 FragColor;

#ifdef SINGLEPASS
#define MAX_LIGHTS 5
uniform int             u_num_lights;
uniform int             u_light_type[MAX_LIGHTS];
uniform vec3            u_light_position[MAX_LIGHTS];
uniform vec3            u_light_color[MAX_LIGHTS];
uniform vec3            u_light_front[MAX_LIGHTS];
uniform vec3            u_light_cone[MAX_LIGHTS];
uniform vec3            u_light_vector[MAX_LIGHTS];
uniform float           u_light_max_distance[MAX_LIGHTS];
uniform int             u_light_cast_shadows[MAX_LIGHTS];
uniform float           u_light_shadow_bias[MAX_LIGHTS];
uniform mat4            u_light_shadowmap_vp[MAX_LIGHTS];
uniform sampler2DShadow u_light_shadowmap[MAX_LIGHTS];

vec3 shadeLights(vec3 world, vec3 N, vec3 V, vec3 albedo, float metallic, float roughness) {
    vec3 color = vec3(0.0);
    for (int i = 0; i < MAX_LIGHTS; i++) {
        if (i >= u_num_lights) break;
        vec3 L;
        vec3 rad = lightRadiance(u_light_type[i], u_light_position[i], u_light_color[i],
                                 u_light_front[i], u_light_cone[i], u_light_vector[i],
                                 u_light_max_distance[i], world, L);
        if (u_light_cast_shadows[i] != 0)
            rad *= shadowFactor(u_light_shadowmap[i], u_light_shadowmap_vp[i], u_light_shadow_bias[i], world);
        color += evalLight(N, V, L, rad, albedo, metallic, roughness);
    }
    return color;
}
#else
` + singleLightGLSL + `
#endif

void main() {
    Surface s = readSurface();
    vec3 V = normalize(u_camera_position - v_world_position);

    vec3 color = u_ambient_light * s.albedo.rgb * s.occlusion + s.emissive;
#ifdef SINGLEPASS
    color += shadeLights(v_world_position, s.normal, V, s.albedo.rgb, s.metallic, s.roughness);
#else
    color += shadeLight(v_world_position, s.normal, V, s.albedo.rgb, s.metallic, s.roughness);
#endif
    FragColor = vec4(color, s.albedo.a);
}
` + "\x00"

// newForwardPrograms compiles the multi-pass and single-pass variants and
// fixes their sampler units.
func newForwardPrograms() (multi, single *program, err error) {
	multi, err = newShader("multipass", meshVertSrc, forwardFragSrc)
	if err != nil {
		return nil, nil, err
	}
	single, err = newShader("singlepass", meshVertSrc, withDefines(forwardFragSrc, "SINGLEPASS"))
	if err != nil {
		multi.destroy()
		return nil, nil, err
	}

	for _, p := range []*program{multi, single} {
		p.use()
		p.setInt("u_texture", 0)
		p.setInt("u_texture_emissive", 1)
		p.setInt("u_texture_occlusion", 2)
		p.setInt("u_texture_normal", 3)
	}
	multi.use()
	multi.setInt("u_light_shadowmap", shadowUnit)
	single.use()
	units := make([]int32, maxShadowUnits)
	for i := range units {
		units[i] = int32(shadowUnit + i)
	}
	single.setIntArray("u_light_shadowmap", units)
	gl.UseProgram(0)
	return multi, single, nil
}

// setCulling enables back-face culling unless the material is two-sided.
func (r *Renderer) setCulling(mat *scene.Material) {
	if mat.TwoSided {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
	}
}

func setBlend(mode pipeline.BlendMode) {
	switch mode {
	case pipeline.BlendAlpha:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	case pipeline.BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	default:
		gl.Disable(gl.BLEND)
	}
}

// bindMaterial uploads the surface uniforms shared by the forward and
// g-buffer programs.
func (r *Renderer) bindMaterial(p *program, mat *scene.Material) {
	c := mat.BaseColor
	p.setVec4("u_color", c.R, c.G, c.B, c.A)
	p.setTexture("u_texture", r.textures.orWhite(mat.ColorTexture), 0)
	p.setTexture("u_texture_emissive", r.textures.orWhite(mat.EmissiveTexture), 1)

	occlusion := r.textures.id(mat.MetallicRoughnessTexture)
	p.setBool("u_have_occlusion_texture", occlusion != 0)
	if occlusion != 0 {
		p.setTexture("u_texture_occlusion", occlusion, 2)
	}
	normal := r.textures.id(mat.NormalTexture)
	p.setBool("u_have_normal_texture", normal != 0)
	if normal != 0 {
		p.setTexture("u_texture_normal", normal, 3)
	}

	p.setFloat("u_alpha_cutoff", alphaCutoff(mat))
	p.setFloat("u_roughness_factor", mat.Roughness)
	p.setFloat("u_metallic_factor", mat.Metallic)
}

// setLight uploads one light to the single-light uniform block. A nil light
// contributes nothing.
func (r *Renderer) setLight(p *program, l *scene.Light) {
	if l == nil {
		p.setVec3("u_light_color", math.Vec3Zero)
		p.setInt("u_light_cast_shadows", 0)
		return
	}
	p.setInt("u_light_type", l.LightType.ShaderCode())
	p.setVec3("u_light_position", l.Position())
	p.setVec3("u_light_color", l.Radiance())
	p.setVec3("u_light_front", l.Forward())
	p.setVec3("u_light_cone", l.Cone())
	p.setVec3("u_light_vector", l.Vector())
	p.setFloat("u_light_max_distance", l.MaxDistance)

	tex := shadowTexture(l.ShadowMap())
	if l.CastShadows && l.ShadowReady() && tex != 0 && l.ShadowCamera() != nil {
		p.setInt("u_light_cast_shadows", 1)
		p.setFloat("u_light_shadow_bias", l.ShadowBias)
		p.setMat4("u_light_shadowmap_vp", l.ShadowCamera().ViewProjection())
		gl.ActiveTexture(gl.TEXTURE0 + shadowUnit)
		gl.BindTexture(gl.TEXTURE_2D, tex)
	} else {
		p.setInt("u_light_cast_shadows", 0)
	}
}

// setLightPacket uploads the parallel light arrays of the single-pass program.
func setLightPacket(p *program, packet *pipeline.LightPacket) {
	n := packet.Count
	p.setInt("u_num_lights", int32(n))
	if n == 0 {
		return
	}
	p.setIntArray("u_light_type", packet.Type[:n])
	p.setVec3Array("u_light_position", packet.Position[:n])
	p.setVec3Array("u_light_color", packet.Color[:n])
	p.setVec3Array("u_light_front", packet.Front[:n])
	p.setVec3Array("u_light_cone", packet.Cone[:n])
	p.setVec3Array("u_light_vector", packet.Vector[:n])
	p.setFloatArray("u_light_max_distance", packet.MaxDistance[:n])
	p.setFloatArray("u_light_shadow_bias", packet.ShadowBias[:n])
	p.setMat4Array("u_light_shadowmap_vp", packet.ShadowVP[:n])

	cast := packet.CastShadows
	for i := 0; i < n; i++ {
		tex := shadowTexture(packet.Shadows[i])
		if cast[i] != 0 && tex == 0 {
			cast[i] = 0
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(shadowUnit+i))
		gl.BindTexture(gl.TEXTURE_2D, tex)
	}
	p.setIntArray("u_light_cast_shadows", cast[:n])
}

// drawLit draws one call with the forward lighting model, following the
// draw plan for the current light-render mode.
func (r *Renderer) drawLit(rc *pipeline.RenderCall, cam *scene.Camera, lights []*scene.Light, ambient math.Vec3) {
	gpu := r.meshes.get(rc.Mesh)
	if gpu == nil || rc.Material == nil {
		return
	}

	plan := pipeline.PlanDraw(r.Settings.LightRender, lights, rc.Material, ambient)
	p := r.multiProg
	if plan.Single != nil {
		p = r.singleProg
	}

	p.use()
	r.setCulling(rc.Material)
	p.setMat4("u_viewprojection", cam.ViewProjection())
	p.setMat4("u_model", rc.Model)
	p.setVec3("u_camera_position", cam.Eye)
	r.bindMaterial(p, rc.Material)

	if plan.Single != nil {
		setBlend(plan.Blend)
		p.setVec3("u_ambient_light", ambient)
		p.setVec3("u_emissive_factor", rc.Material.Emissive)
		setLightPacket(p, plan.Single)
		gpu.draw()
		return
	}

	for _, pass := range plan.Passes {
		setBlend(pass.Blend)
		p.setVec3("u_ambient_light", pass.Ambient)
		p.setVec3("u_emissive_factor", pass.Emissive)
		r.setLight(p, pass.Light)
		gpu.draw()
	}
}

// drawForwardCalls draws calls with depth func LEQUAL so later light passes
// land on the depth of the first, then restores the default state.
func (r *Renderer) drawForwardCalls(calls []*pipeline.RenderCall, cam *scene.Camera, lights []*scene.Light, ambient math.Vec3) {
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthMask(true)
	gl.DepthFunc(gl.LEQUAL)
	for _, rc := range calls {
		r.drawLit(rc, cam, lights, ambient)
	}
	gl.Disable(gl.BLEND)
	gl.DepthFunc(gl.LESS)
	gl.Disable(gl.CULL_FACE)
}

// renderForwardScene fills the bound target: clear to background, skybox,
// then every call visible from cam.
func (r *Renderer) renderForwardScene(sc *scene.Scene, cam *scene.Camera, frame *pipeline.Frame, showProbes bool) {
	bg := sc.BackgroundColor
	gl.ClearColor(bg.X, bg.Y, bg.Z, 1)
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	r.skybox.Draw(r, cam)

	calls := pipeline.Cull(frame.Calls, cam.Frustum(), nil)
	r.drawForwardCalls(calls, cam, frame.Lights, sc.AmbientLight)

	if showProbes {
		r.irradiance.drawProbes(r, cam)
	}
}

// RenderForward shades the frame with the forward path into the
// illumination target, ready for the post chain.
func (r *Renderer) RenderForward(sc *scene.Scene, cam *scene.Camera, frame *pipeline.Frame) {
	r.ensureTargets()
	r.illumination.Bind()
	r.renderForwardScene(sc, cam, frame, r.Settings.ShowProbes)
	if err := glError(); err != nil {
		fmt.Printf("WARNING: forward pass: %v\n", err)
	}
	bindScreen(r.width, r.height)
}

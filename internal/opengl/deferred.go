package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"render-pipeline/math"
	"render-pipeline/pipeline"
	"render-pipeline/scene"
)

// G-buffer layout (RGBA8 each):
//
//	gb0 = albedo.rgb, coverage mask (1 where an opaque or masked surface
//	      passed the alpha cutoff, 0 where the clear shows through)
//	gb1 = normal * 0.5 + 0.5, roughness
//	gb2 = emissive.rgb, metallic
const gbufferFragSrc = glslVersion + surfaceGLSL + `
layout(location = 0) out vec4 GB0;
layout(location = 1) out vec4 GB1;
layout(location = 2) out vec4 GB2;

void main() {
    Surface s = readSurface();
    GB0 = vec4(s.albedo.rgb, 1.0);
    GB1 = vec4(s.normal * 0.5 + 0.5, s.roughness);
    GB2 = vec4(s.emissive, s.metallic);
}
` + "\x00"

// decalFragSrc projects the decal texture onto the copied depth inside the
// unit cube of the decal. Only the albedo target is changed; the other
// targets get alpha 0 so blending keeps them.
const decalFragSrc = glslVersion + reconstructGLSL + `
uniform sampler2D u_depth_texture;
uniform sampler2D u_decal_texture;
uniform mat4      u_imodel;

layout(location = 0) out vec4 GB0;
layout(location = 1) out vec4 GB1;
layout(location = 2) out vec4 GB2;

void main() {
    vec2  uv    = gl_FragCoord.xy * u_iRes;
    float depth = texture(u_depth_texture, uv).r;
    if (depth >= 1.0) discard;

    vec3 world = worldFromDepth(uv, depth);
    vec3 local = (u_imodel * vec4(world, 1.0)).xyz;
    if (any(greaterThan(abs(local), vec3(1.0)))) discard;

    GB0 = texture(u_decal_texture, local.xz * 0.5 + 0.5);
    GB1 = vec4(0.0);
    GB2 = vec4(0.0);
}
` + "\x00"

// deferredFragSrc shades one light (plus ambient and probes on the
// fullscreen pass) from the g-buffer. The same fragment program serves the
// fullscreen pass and the light volumes; only the vertex stage differs.
const deferredFragSrc = glslVersion + lightingGLSL + singleLightGLSL + reconstructGLSL + shGLSL + `
uniform sampler2D u_gb0_texture;
uniform sampler2D u_gb1_texture;
uniform sampler2D u_gb2_texture;
uniform sampler2D u_depth_texture;
uniform sampler2D u_ssao_texture;
uniform sampler2D u_irr_texture;

uniform vec3  u_camera_position;
uniform vec3  u_ambient_light;
uniform float u_emissive_weight;

uniform bool  u_irr;
uniform vec3  u_irr_start;
uniform vec3  u_irr_end;
uniform vec3  u_irr_dim;
uniform vec3  u_irr_delta;
uniform float u_irr_normal_distance;
uniform int   u_num_probes;

out vec4 FragColor;

vec3 probeIrradiance(int x, int y, int z, vec3 N) {
    int index = x + y * int(u_irr_dim.x) + z * int(u_irr_dim.x) * int(u_irr_dim.y);
    if (index >= u_num_probes) return vec3(0.0);
    float b[9];
    shBasis(N, b);
    vec3 irr = vec3(0.0);
    for (int k = 0; k < 9; k++)
        irr += texelFetch(u_irr_texture, ivec2(k, index), 0).rgb * b[k] * SH_BAND[k];
    return max(irr, vec3(0.0));
}

// sampleIrradiance blends the eight probes around world, nudged along N.
vec3 sampleIrradiance(vec3 world, vec3 N) {
    vec3 hi     = max(u_irr_dim - 1.0, vec3(0.0));
    vec3 p      = world + N * u_irr_normal_distance;
    vec3 coords = clamp((p - u_irr_start) / max(u_irr_delta, vec3(1e-5)) * hi, vec3(0.0), hi);

    ivec3 i0 = ivec3(floor(coords));
    ivec3 i1 = min(i0 + 1, ivec3(hi));
    vec3  t  = coords - vec3(i0);

    vec3 x0 = mix(probeIrradiance(i0.x, i0.y, i0.z, N), probeIrradiance(i1.x, i0.y, i0.z, N), t.x);
    vec3 x1 = mix(probeIrradiance(i0.x, i1.y, i0.z, N), probeIrradiance(i1.x, i1.y, i0.z, N), t.x);
    vec3 x2 = mix(probeIrradiance(i0.x, i0.y, i1.z, N), probeIrradiance(i1.x, i0.y, i1.z, N), t.x);
    vec3 x3 = mix(probeIrradiance(i0.x, i1.y, i1.z, N), probeIrradiance(i1.x, i1.y, i1.z, N), t.x);
    return mix(mix(x0, x1, t.y), mix(x2, x3, t.y), t.z);
}

void main() {
    vec2  uv    = gl_FragCoord.xy * u_iRes;
    float depth = texture(u_depth_texture, uv).r;
    if (depth >= 1.0) discard;

    vec4 gb0 = texture(u_gb0_texture, uv);
    vec4 gb1 = texture(u_gb1_texture, uv);
    vec4 gb2 = texture(u_gb2_texture, uv);

    if (gb0.a < 0.5) discard;

    vec3  albedo    = gb0.rgb;
    vec3  N         = normalize(gb1.rgb * 2.0 - 1.0);
    float roughness = clamp(gb1.a, 0.04, 1.0);
    vec3  emissive  = gb2.rgb;
    float metallic  = gb2.a;

    vec3 world = worldFromDepth(uv, depth);
    vec3 V = normalize(u_camera_position - world);
    float ao = texture(u_ssao_texture, uv).r;

    vec3 ambient = u_ambient_light;
    if (u_irr) ambient = sampleIrradiance(world, N);

    vec3 color = ambient * albedo * ao + emissive * u_emissive_weight;
    color += shadeLight(world, N, V, albedo, metallic, roughness);
    FragColor = vec4(color, 1.0);
}
` + "\x00"

// Texture units of the deferred programs.
const (
	unitGB0    = 0
	unitGB1    = 1
	unitGB2    = 2
	unitDepth  = 3
	unitDecal  = 4
	unitSSAO   = 5
	unitProbes = 6
)

func newDeferredPrograms() (gbuffer, decal, fullscreen, volume *program, err error) {
	if gbuffer, err = newShader("gbuffers", meshVertSrc, gbufferFragSrc); err != nil {
		return
	}
	gbuffer.use()
	gbuffer.setInt("u_texture", 0)
	gbuffer.setInt("u_texture_emissive", 1)
	gbuffer.setInt("u_texture_occlusion", 2)
	gbuffer.setInt("u_texture_normal", 3)

	if decal, err = newShader("decal", meshVertSrc, decalFragSrc); err != nil {
		return
	}
	decal.use()
	decal.setInt("u_depth_texture", unitDepth)
	decal.setInt("u_decal_texture", unitDecal)

	if fullscreen, err = newShader("deferred", fullscreenVertSrc, deferredFragSrc); err != nil {
		return
	}
	if volume, err = newShader("deferred volume", meshVertSrc, deferredFragSrc); err != nil {
		return
	}
	for _, p := range []*program{fullscreen, volume} {
		p.use()
		p.setInt("u_gb0_texture", unitGB0)
		p.setInt("u_gb1_texture", unitGB1)
		p.setInt("u_gb2_texture", unitGB2)
		p.setInt("u_depth_texture", unitDepth)
		p.setInt("u_ssao_texture", unitSSAO)
		p.setInt("u_irr_texture", unitProbes)
		p.setInt("u_light_shadowmap", shadowUnit)
	}
	gl.UseProgram(0)
	return
}

// setScreenUniforms uploads the camera data used to rebuild world
// positions from depth.
func (r *Renderer) setScreenUniforms(p *program, cam *scene.Camera) {
	p.setMat4("u_inverse_viewprojection", cam.ViewProjection().Inverse())
	p.setVec2("u_iRes", 1/float32(r.width), 1/float32(r.height))
}

// bindGBuffer binds the g-buffer images to their units.
func (r *Renderer) bindGBuffer() {
	for i, unit := range []uint32{unitGB0, unitGB1, unitGB2} {
		gl.ActiveTexture(gl.TEXTURE0 + unit)
		gl.BindTexture(gl.TEXTURE_2D, r.gbuffer.Color[i])
	}
	gl.ActiveTexture(gl.TEXTURE0 + unitDepth)
	gl.BindTexture(gl.TEXTURE_2D, r.gbuffer.Depth)
	gl.ActiveTexture(gl.TEXTURE0 + unitSSAO)
	gl.BindTexture(gl.TEXTURE_2D, r.ssao.result())
}

// RenderDeferred shades the frame with the deferred path into the
// illumination target: geometry, decals, SSAO, illumination, light
// volumes and the transparent resolve, in that order.
func (r *Renderer) RenderDeferred(sc *scene.Scene, cam *scene.Camera, frame *pipeline.Frame) {
	r.ensureTargets()

	r.geometryPass(sc, cam, frame)
	r.decalPass(cam, frame.Decals)
	r.ssao.run(r, cam)
	r.illuminationPass(sc, cam, frame)
	r.lightVolumePass(sc, cam, frame.Lights)
	r.transparentPass(sc, cam, frame)

	if err := glError(); err != nil {
		fmt.Printf("WARNING: deferred pass: %v\n", err)
	}
	bindScreen(r.width, r.height)
}

func (r *Renderer) geometryPass(sc *scene.Scene, cam *scene.Camera, frame *pipeline.Frame) {
	r.gbuffer.Bind()
	gl.ClearColor(0, 0, 0, 0)
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Disable(gl.BLEND)

	p := r.gbufferProg
	p.use()
	p.setMat4("u_viewprojection", cam.ViewProjection())
	for _, rc := range pipeline.Cull(frame.Calls, cam.Frustum(), pipeline.Opaque) {
		if rc.Mesh.Empty() {
			continue
		}
		r.setCulling(rc.Material)
		p.setMat4("u_model", rc.Model)
		r.bindMaterial(p, rc.Material)
		p.setVec3("u_emissive_factor", rc.Material.Emissive)
		r.meshes.draw(rc.Mesh)
	}
	gl.Disable(gl.CULL_FACE)
}

// decalPass copies the g-buffer into the decal target so the decals can
// read the untouched depth while blending into the g-buffer albedo.
func (r *Renderer) decalPass(cam *scene.Camera, decals []*scene.Decal) {
	r.gbuffer.CopyTo(r.decals)
	if len(decals) == 0 {
		return
	}

	r.gbuffer.Bind()
	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ColorMask(true, true, true, false)
	gl.Enable(gl.CULL_FACE)
	gl.FrontFace(gl.CW)

	p := r.decalProg
	p.use()
	p.setMat4("u_viewprojection", cam.ViewProjection())
	r.setScreenUniforms(p, cam)
	gl.ActiveTexture(gl.TEXTURE0 + unitDepth)
	gl.BindTexture(gl.TEXTURE_2D, r.decals.Depth)

	for _, d := range decals {
		tex := r.textures.id(d.Texture)
		if tex == 0 {
			continue
		}
		p.setTexture("u_decal_texture", tex, unitDecal)
		p.setMat4("u_model", d.Model)
		p.setMat4("u_imodel", d.Model.Inverse())
		r.meshes.draw(r.cube)
	}

	gl.FrontFace(gl.CCW)
	gl.Disable(gl.CULL_FACE)
	gl.ColorMask(true, true, true, true)
	gl.Disable(gl.BLEND)
	gl.Enable(gl.DEPTH_TEST)
}

// illuminationPass resolves ambient, probes and the dominant directional
// light over the whole screen, on top of the skybox.
func (r *Renderer) illuminationPass(sc *scene.Scene, cam *scene.Camera, frame *pipeline.Frame) {
	r.gbuffer.BlitDepthTo(r.illumination)
	r.illumination.Bind()
	bg := sc.BackgroundColor
	gl.ClearColor(bg.X, bg.Y, bg.Z, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	r.skybox.Draw(r, cam)

	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)

	p := r.deferredProg
	p.use()
	r.setScreenUniforms(p, cam)
	r.bindGBuffer()
	p.setVec3("u_camera_position", cam.Eye)
	p.setVec3("u_ambient_light", sc.AmbientLight)
	p.setFloat("u_emissive_weight", 1)
	r.setLight(p, frame.DirectLight)
	r.irradiance.bind(p)

	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
}

// lightVolumePass adds every POINT and SPOT light through a sphere scaled
// to its reach. Back faces are drawn so the volume works from inside.
func (r *Renderer) lightVolumePass(sc *scene.Scene, cam *scene.Camera, lights []*scene.Light) {
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	gl.FrontFace(gl.CW)
	gl.Enable(gl.CULL_FACE)
	gl.Disable(gl.DEPTH_TEST)

	p := r.volumeProg
	p.use()
	r.setScreenUniforms(p, cam)
	r.bindGBuffer()
	p.setMat4("u_viewprojection", cam.ViewProjection())
	p.setVec3("u_camera_position", cam.Eye)
	p.setVec3("u_ambient_light", math.Vec3Zero)
	p.setFloat("u_emissive_weight", 0)
	p.setBool("u_irr", false)

	for _, l := range lights {
		if l.LightType != scene.LightPoint && l.LightType != scene.LightSpot {
			continue
		}
		model := math.Mat4Scale(math.Vec3One.Mul(l.MaxDistance)).Mul(math.Mat4Translation(l.Position()))
		p.setMat4("u_model", model)
		r.setLight(p, l)
		r.meshes.draw(r.sphere)
	}

	gl.FrontFace(gl.CCW)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.BLEND)
}

// transparentPass draws the BLEND calls through the forward path on top
// of the lit opaque image, depth-tested against the copied g-buffer depth.
func (r *Renderer) transparentPass(sc *scene.Scene, cam *scene.Camera, frame *pipeline.Frame) {
	calls := pipeline.Cull(frame.Calls, cam.Frustum(), pipeline.Blended)
	if len(calls) > 0 {
		gl.Enable(gl.DEPTH_TEST)
		r.drawForwardCalls(calls, cam, frame.Lights, sc.AmbientLight)
	}
	if r.Settings.ShowProbes {
		r.irradiance.drawProbes(r, cam)
	}
}

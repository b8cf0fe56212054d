package opengl

import (
	"math/rand"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"render-pipeline/math"
	"render-pipeline/pipeline"
	"render-pipeline/scene"
)

// ssaoRadius is the world-space radius of the sample cloud.
const ssaoRadius = 5

// SSAO computes screen-space ambient occlusion from the g-buffer depth.
// The raw factor goes to one RGB8 target and a 5×5 blur of it to a
// second one, which the illumination pass reads.
type SSAO struct {
	prog     *program
	blurProg *program

	raw     *Framebuffer
	blurred *Framebuffer

	// Sphere samples for the plain variant, hemisphere samples oriented by
	// the surface normal for ssao_plus.
	sphere []math.Vec3
	hemi   []math.Vec3
}

// ssaoFragSrc projects each sample around the pixel's world position and
// counts the ones that end up behind the stored depth.
const ssaoFragSrc = glslVersion + reconstructGLSL + `
#define SAMPLES 128
in  vec2 fragUV;
out vec4 outAO;

uniform sampler2D u_depth_texture;
uniform sampler2D u_normal_texture;
uniform vec3  u_points[SAMPLES];
uniform mat4  u_viewprojection;
uniform bool  u_hemisphere;

void main() {
    float depth = texture(u_depth_texture, fragUV).r;
    if (depth >= 1.0) { outAO = vec4(1.0); return; }

    vec3 world = worldFromDepth(fragUV, depth);

    mat3 rot = mat3(1.0);
    if (u_hemisphere) {
        vec3 N = normalize(texture(u_normal_texture, fragUV).xyz * 2.0 - 1.0);
        vec3 up = abs(N.y) < 0.99 ? vec3(0.0, 1.0, 0.0) : vec3(1.0, 0.0, 0.0);
        vec3 T = normalize(cross(up, N));
        vec3 B = cross(N, T);
        rot = mat3(T, B, N);
    }

    int occluded = 0;
    for (int i = 0; i < SAMPLES; i++) {
        vec3 p = world + rot * u_points[i];
        vec4 proj = u_viewprojection * vec4(p, 1.0);
        proj.xyz /= proj.w;
        vec2 uv = proj.xy * 0.5 + 0.5;
        if (uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0) continue;

        float sampleDepth = proj.z * 0.5 + 0.5;
        if (texture(u_depth_texture, uv).r < sampleDepth) occluded++;
    }

    float ao = 1.0 - float(occluded) / float(SAMPLES);
    outAO = vec4(ao, ao, ao, 1.0);
}
` + "\x00"

// ssaoBlurFragSrc applies a 5×5 box blur to reduce SSAO noise.
const ssaoBlurFragSrc = glslVersion + `
in  vec2 fragUV;
out vec4 outAO;

uniform sampler2D u_texture;

void main() {
    vec2 texel  = 1.0 / vec2(textureSize(u_texture, 0));
    float result = 0.0;
    for (int x = -2; x <= 2; x++) {
        for (int y = -2; y <= 2; y++) {
            result += texture(u_texture, fragUV + vec2(x, y) * texel).r;
        }
    }
    result /= 25.0;
    outAO = vec4(result, result, result, 1.0);
}
` + "\x00"

// NewSSAO compiles the occlusion and blur programs and generates both
// sample clouds with a fixed seed.
func NewSSAO() (*SSAO, error) {
	prog, err := newShader("ssao", fullscreenVertSrc, ssaoFragSrc)
	if err != nil {
		return nil, err
	}
	blurProg, err := newShader("ssao blur", fullscreenVertSrc, ssaoBlurFragSrc)
	if err != nil {
		prog.destroy()
		return nil, err
	}

	prog.use()
	prog.setInt("u_depth_texture", 0)
	prog.setInt("u_normal_texture", 1)
	blurProg.use()
	blurProg.setInt("u_texture", 0)
	gl.UseProgram(0)

	rng := rand.New(rand.NewSource(42))
	return &SSAO{
		prog:     prog,
		blurProg: blurProg,
		raw:      newFramebuffer("SSAO", []texFormat{formatRGB8}, false),
		blurred:  newFramebuffer("SSAO-blur", []texFormat{formatRGB8}, false),
		sphere:   pipeline.GenerateSpherePoints(rng, pipeline.SSAOSamples, ssaoRadius, false),
		hemi:     pipeline.GenerateSpherePoints(rng, pipeline.SSAOSamples, ssaoRadius, true),
	}, nil
}

func (s *SSAO) resize(width, height int) {
	s.raw.Ensure(width, height)
	s.blurred.Ensure(width, height)
}

// result is the blurred occlusion texture.
func (s *SSAO) result() uint32 {
	if len(s.blurred.Color) == 0 {
		return 0
	}
	return s.blurred.Color[0]
}

// run executes the occlusion and blur passes over the renderer's g-buffer.
func (s *SSAO) run(r *Renderer, cam *scene.Camera) {
	s.resize(int(r.width), int(r.height))

	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	gl.BindVertexArray(r.quadVAO)

	s.raw.Bind()
	p := s.prog
	p.use()
	r.setScreenUniforms(p, cam)
	p.setMat4("u_viewprojection", cam.ViewProjection())
	p.setBool("u_hemisphere", r.Settings.SSAOPlus)
	if r.Settings.SSAOPlus {
		p.setVec3Array("u_points", s.hemi)
	} else {
		p.setVec3Array("u_points", s.sphere)
	}
	p.setTexture("u_depth_texture", r.gbuffer.Depth, 0)
	p.setTexture("u_normal_texture", r.gbuffer.Color[1], 1)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)

	s.blurred.Bind()
	s.blurProg.use()
	s.blurProg.setTexture("u_texture", s.raw.Color[0], 0)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)

	gl.BindVertexArray(0)
	gl.Enable(gl.DEPTH_TEST)
}

// Destroy frees all GPU resources.
func (s *SSAO) Destroy() {
	s.raw.Destroy()
	s.blurred.Destroy()
	s.prog.destroy()
	s.blurProg.destroy()
}

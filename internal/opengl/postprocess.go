package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"render-pipeline/math"
	"render-pipeline/pipeline"
	"render-pipeline/scene"
)

// PostChain executes a post-processing plan: every step is one fullscreen
// filter from its input slot into its output slot. The plan itself comes
// from pipeline.BuildPostChain; this type owns the programs and the
// intermediate HDR targets behind the slots.
type PostChain struct {
	filters map[pipeline.Filter]*program

	ping    *Framebuffer
	pong    *Framebuffer
	c       *Framebuffer
	d       *Framebuffer
	blurred *Framebuffer
}

// ── Shaders ───────────────────────────────────────────────────────────────────

// Every filter samples its primary input as u_texture on unit 0 and its
// auxiliary inputs on units 1, 2, ...

// ppBlurFragSrc: single-axis 5-tap Gaussian blur.
const ppBlurFragSrc = glslVersion + `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D u_texture;
uniform vec2      u_offset;

void main() {
    const float w[5] = float[](0.0625, 0.25, 0.375, 0.25, 0.0625);
    vec3 result = vec3(0.0);
    for (int i = -2; i <= 2; i++) {
        result += texture(u_texture, fragUV + float(i) * u_offset).rgb * w[i + 2];
    }
    outColor = vec4(result, 1.0);
}
` + "\x00"

// ppDOFFragSrc: blends the sharp and blurred images by the distance of
// the pixel to the camera.
const ppDOFFragSrc = glslVersion + reconstructGLSL + `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D u_texture;
uniform sampler2D u_textureB;
uniform sampler2D u_depth_texture;
uniform vec3      u_camera_position;
uniform float     u_dof_min;
uniform float     u_dof_max;

void main() {
    vec3 sharp   = texture(u_texture, fragUV).rgb;
    vec3 blurred = texture(u_textureB, fragUV).rgb;
    float depth  = texture(u_depth_texture, fragUV).r;
    float f = 1.0;
    if (depth < 1.0) {
        float dist = distance(worldFromDepth(fragUV, depth), u_camera_position);
        f = smoothstep(u_dof_min, max(u_dof_max, u_dof_min + 0.001), dist);
    }
    outColor = vec4(mix(sharp, blurred, f), 1.0);
}
` + "\x00"

// ppMotionBlurFragSrc: reprojects each pixel with last frame's camera and
// averages along the screen-space motion.
const ppMotionBlurFragSrc = glslVersion + reconstructGLSL + `
#define STEPS 8
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D u_texture;
uniform sampler2D u_depth_texture;
uniform mat4      u_viewprojection_old;

void main() {
    float depth = texture(u_depth_texture, fragUV).r;
    if (depth >= 1.0) {
        outColor = texture(u_texture, fragUV);
        return;
    }
    vec4 old = u_viewprojection_old * vec4(worldFromDepth(fragUV, depth), 1.0);
    vec2 oldUV = old.xy / old.w * 0.5 + 0.5;
    vec2 motion = (fragUV - oldUV) / float(STEPS);

    vec3 color = vec3(0.0);
    for (int i = 0; i < STEPS; i++) {
        color += texture(u_texture, clamp(fragUV - motion * float(i), 0.0, 1.0)).rgb;
    }
    outColor = vec4(color / float(STEPS), 1.0);
}
` + "\x00"

// ppGradeFragSrc: saturation and vignetting.
const ppGradeFragSrc = glslVersion + `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D u_texture;
uniform float     u_saturation;
uniform float     u_vigneting;

void main() {
    vec3  color = texture(u_texture, fragUV).rgb;
    float luma  = dot(color, vec3(0.2126, 0.7152, 0.0722));
    color = mix(vec3(luma), color, u_saturation);
    float d = length(fragUV - 0.5) * 1.41421356;
    color *= 1.0 - clamp(d * d * u_vigneting, 0.0, 1.0) * 0.8;
    outColor = vec4(color, 1.0);
}
` + "\x00"

// ppFXAAFragSrc: luma edge detection with a directional blend.
const ppFXAAFragSrc = glslVersion + `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D u_texture;
uniform vec2      u_iRes;

#define FXAA_REDUCE_MIN (1.0 / 128.0)
#define FXAA_REDUCE_MUL (1.0 / 8.0)
#define FXAA_SPAN_MAX   8.0

float luma(vec3 c) { return dot(c, vec3(0.299, 0.587, 0.114)); }

void main() {
    vec3 rgbNW = texture(u_texture, fragUV + vec2(-1.0, -1.0) * u_iRes).rgb;
    vec3 rgbNE = texture(u_texture, fragUV + vec2( 1.0, -1.0) * u_iRes).rgb;
    vec3 rgbSW = texture(u_texture, fragUV + vec2(-1.0,  1.0) * u_iRes).rgb;
    vec3 rgbSE = texture(u_texture, fragUV + vec2( 1.0,  1.0) * u_iRes).rgb;
    vec3 rgbM  = texture(u_texture, fragUV).rgb;

    float lNW = luma(rgbNW), lNE = luma(rgbNE), lSW = luma(rgbSW), lSE = luma(rgbSE), lM = luma(rgbM);
    float lMin = min(lM, min(min(lNW, lNE), min(lSW, lSE)));
    float lMax = max(lM, max(max(lNW, lNE), max(lSW, lSE)));

    vec2 dir = vec2(-((lNW + lNE) - (lSW + lSE)), (lNW + lSW) - (lNE + lSE));
    float reduce = max((lNW + lNE + lSW + lSE) * 0.25 * FXAA_REDUCE_MUL, FXAA_REDUCE_MIN);
    float rcpMin = 1.0 / (min(abs(dir.x), abs(dir.y)) + reduce);
    dir = clamp(dir * rcpMin, vec2(-FXAA_SPAN_MAX), vec2(FXAA_SPAN_MAX)) * u_iRes;

    vec3 rgbA = 0.5 * (texture(u_texture, fragUV + dir * (1.0 / 3.0 - 0.5)).rgb +
                       texture(u_texture, fragUV + dir * (2.0 / 3.0 - 0.5)).rgb);
    vec3 rgbB = rgbA * 0.5 + 0.25 * (texture(u_texture, fragUV + dir * -0.5).rgb +
                                     texture(u_texture, fragUV + dir *  0.5).rgb);
    float lB = luma(rgbB);
    outColor = vec4((lB < lMin || lB > lMax) ? rgbA : rgbB, 1.0);
}
` + "\x00"

const ppContrastFragSrc = glslVersion + `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D u_texture;
uniform float     u_intensity;

void main() {
    vec3 color = texture(u_texture, fragUV).rgb;
    outColor = vec4(max((color - 0.5) * u_intensity + 0.5, vec3(0.0)), 1.0);
}
` + "\x00"

// ppThresholdFragSrc: keeps pixels whose luminance exceeds the threshold.
const ppThresholdFragSrc = glslVersion + `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D u_texture;
uniform float     u_threshold;

void main() {
    vec3  color = texture(u_texture, fragUV).rgb;
    float luma  = dot(color, vec3(0.2126, 0.7152, 0.0722));
    outColor = vec4(color * step(u_threshold, luma), 1.0);
}
` + "\x00"

const ppMixFragSrc = glslVersion + `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D u_texture;
uniform sampler2D u_textureB;
uniform float     u_intensity;

void main() {
    vec3 bloom = texture(u_texture, fragUV).rgb;
    vec3 base  = texture(u_textureB, fragUV).rgb;
    outColor = vec4(base + bloom * u_intensity, 1.0);
}
` + "\x00"

// ppTonemapFragSrc: extended Reinhard on luminance, then gamma 2.2.
const ppTonemapFragSrc = glslVersion + `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D u_texture;
uniform float     u_average_lum;
uniform float     u_lumwhite2;
uniform float     u_scale;

void main() {
    vec3  color = texture(u_texture, fragUV).rgb;
    float lum   = dot(color, vec3(0.2126, 0.7152, 0.0722));
    if (lum > 0.0) {
        float L  = u_scale / max(u_average_lum, 1e-4) * lum;
        float Ld = L * (1.0 + L / u_lumwhite2) / (1.0 + L);
        color *= Ld / lum;
    }
    outColor = vec4(pow(max(color, vec3(0.0)), vec3(1.0 / 2.2)), 1.0);
}
` + "\x00"

var filterSources = map[pipeline.Filter]string{
	pipeline.FilterBlur:       ppBlurFragSrc,
	pipeline.FilterDOF:        ppDOFFragSrc,
	pipeline.FilterMotionBlur: ppMotionBlurFragSrc,
	pipeline.FilterGrade:      ppGradeFragSrc,
	pipeline.FilterFXAA:       ppFXAAFragSrc,
	pipeline.FilterContrast:   ppContrastFragSrc,
	pipeline.FilterThreshold:  ppThresholdFragSrc,
	pipeline.FilterMix:        ppMixFragSrc,
	pipeline.FilterTonemap:    ppTonemapFragSrc,
}

// ── Constructor ───────────────────────────────────────────────────────────────

func NewPostChain() (*PostChain, error) {
	pc := &PostChain{filters: make(map[pipeline.Filter]*program, len(filterSources))}
	for f, src := range filterSources {
		p, err := newShader(f.String(), fullscreenVertSrc, src)
		if err != nil {
			pc.Destroy()
			return nil, err
		}
		p.use()
		p.setInt("u_texture", 0)
		pc.filters[f] = p
	}
	gl.UseProgram(0)

	hdr := []texFormat{formatRGB16F}
	pc.ping = newFramebuffer("post-ping", hdr, false)
	pc.pong = newFramebuffer("post-pong", hdr, false)
	pc.c = newFramebuffer("post-C", hdr, false)
	pc.d = newFramebuffer("post-D", hdr, false)
	pc.blurred = newFramebuffer("post-blurred", hdr, false)
	return pc, nil
}

func (pc *PostChain) resize(width, height int) {
	for _, fb := range pc.targets() {
		fb.Ensure(width, height)
	}
}

func (pc *PostChain) targets() []*Framebuffer {
	return []*Framebuffer{pc.ping, pc.pong, pc.c, pc.d, pc.blurred}
}

// Destroy frees all GPU resources.
func (pc *PostChain) Destroy() {
	for _, p := range pc.filters {
		p.destroy()
	}
	for _, fb := range pc.targets() {
		if fb != nil {
			fb.Destroy()
		}
	}
}

// target is the framebuffer behind a writable slot; nil means the screen.
func (pc *PostChain) target(s pipeline.Slot) *Framebuffer {
	switch s {
	case pipeline.SlotPing:
		return pc.ping
	case pipeline.SlotPong:
		return pc.pong
	case pipeline.SlotC:
		return pc.c
	case pipeline.SlotD:
		return pc.d
	case pipeline.SlotBlurred:
		return pc.blurred
	}
	return nil
}

// texture is the image behind a readable slot.
func (pc *PostChain) texture(r *Renderer, s pipeline.Slot) uint32 {
	switch s {
	case pipeline.SlotIllumination:
		return r.illumination.Color[0]
	case pipeline.SlotDepth:
		return r.illumination.Depth
	}
	if fb := pc.target(s); fb != nil && len(fb.Color) > 0 {
		return fb.Color[0]
	}
	return 0
}

// ── Execution ─────────────────────────────────────────────────────────────────

// Run executes steps from the illumination image to the screen. prevVP is
// the view-projection of the previous frame, used by motion blur.
func (pc *PostChain) Run(r *Renderer, cam *scene.Camera, prevVP math.Mat4, steps []pipeline.PostStep) {
	pc.resize(int(r.width), int(r.height))

	gl.Disable(gl.DEPTH_TEST)
	gl.DepthMask(false)
	gl.Disable(gl.BLEND)
	gl.Disable(gl.CULL_FACE)
	gl.BindVertexArray(r.quadVAO)

	for _, step := range steps {
		p, ok := pc.filters[step.Filter]
		if !ok {
			fmt.Printf("WARNING: post step %s has no program\n", step.Filter)
			continue
		}
		if fb := pc.target(step.Output); fb != nil {
			fb.Bind()
		} else {
			bindScreen(r.width, r.height)
		}

		p.use()
		p.setTexture("u_texture", pc.texture(r, step.Input), 0)
		pc.setUniforms(r, p, cam, prevVP, step)
		gl.DrawArrays(gl.TRIANGLES, 0, 3)
	}

	gl.BindVertexArray(0)
	gl.DepthMask(true)
	gl.Enable(gl.DEPTH_TEST)
	bindScreen(r.width, r.height)
}

func (pc *PostChain) setUniforms(r *Renderer, p *program, cam *scene.Camera, prevVP math.Mat4, step pipeline.PostStep) {
	s := &r.Settings
	aux := func(name string, i int) {
		if i < len(step.Aux) {
			p.setTexture(name, pc.texture(r, step.Aux[i]), int32(1+i))
		}
	}

	switch step.Filter {
	case pipeline.FilterBlur:
		d := step.Direction
		p.setVec2("u_offset", d.X/float32(r.width)*s.DebugFactor, d.Y/float32(r.height)*s.DebugFactor)
	case pipeline.FilterDOF:
		aux("u_textureB", 0)
		aux("u_depth_texture", 1)
		r.setScreenUniforms(p, cam)
		p.setVec3("u_camera_position", cam.Eye)
		p.setFloat("u_dof_min", s.DOFMin)
		p.setFloat("u_dof_max", s.DOFMax)
	case pipeline.FilterMotionBlur:
		aux("u_depth_texture", 0)
		r.setScreenUniforms(p, cam)
		p.setMat4("u_viewprojection_old", prevVP)
	case pipeline.FilterGrade:
		p.setFloat("u_saturation", s.Saturation)
		p.setFloat("u_vigneting", s.Vignetting)
	case pipeline.FilterFXAA:
		p.setVec2("u_iRes", 1/float32(r.width), 1/float32(r.height))
	case pipeline.FilterContrast:
		p.setFloat("u_intensity", s.Contrast)
	case pipeline.FilterThreshold:
		p.setFloat("u_threshold", s.Threshold)
	case pipeline.FilterMix:
		aux("u_textureB", 0)
		p.setFloat("u_intensity", s.DebugFactor2)
	case pipeline.FilterTonemap:
		p.setFloat("u_average_lum", s.AverageLum)
		p.setFloat("u_lumwhite2", s.LumWhite*s.LumWhite)
		p.setFloat("u_scale", s.LumScale)
	}
}

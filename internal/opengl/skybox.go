package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"

	"render-pipeline/core"
	"render-pipeline/math"
	"render-pipeline/scene"
)

// skyboxScale is the radius of the sky sphere around the eye. It only has
// to clear the near plane: the sphere is drawn first with depth off.
const skyboxScale = 5

// Skybox renders a procedural gradient sky on a sphere centred on the eye.
type Skybox struct {
	prog   *program
	sphere *scene.Mesh

	// ZenithColor is the sky colour directly overhead (Y = +1).
	ZenithColor core.Color
	// HorizonColor is the sky colour at the horizon (Y ≈ 0).
	HorizonColor core.Color
	// GroundColor is the colour below the horizon (Y = -1).
	GroundColor core.Color
}

// skyFragSrc: gradient based on the view direction of the fragment.
// Above the horizon: lerp horizon→zenith.  Below: lerp horizon→ground.
const skyFragSrc = glslVersion + `
in vec3 v_world_position;
out vec4 FragColor;

uniform vec3 u_camera_position;
uniform vec3 u_zenith;
uniform vec3 u_horizon;
uniform vec3 u_ground;

void main() {
    float t = normalize(v_world_position - u_camera_position).y;

    vec3 color;
    if (t >= 0.0) {
        color = mix(u_horizon, u_zenith, pow(t, 0.4));
    } else {
        color = mix(u_horizon, u_ground, min(-t * 3.0, 1.0));
    }
    FragColor = vec4(color, 1.0);
}
` + "\x00"

// NewSkybox compiles the gradient sky shader.
// Default colours give a dark night sky over a dim ground.
func NewSkybox() (*Skybox, error) {
	prog, err := newShader("skybox", meshVertSrc, skyFragSrc)
	if err != nil {
		return nil, err
	}
	return &Skybox{
		prog:         prog,
		sphere:       scene.CreateSphere(1, 32, 16),
		ZenithColor:  core.Color{R: 0.02, G: 0.03, B: 0.08, A: 1},
		HorizonColor: core.Color{R: 0.12, G: 0.14, B: 0.22, A: 1},
		GroundColor:  core.Color{R: 0.05, G: 0.04, B: 0.04, A: 1},
	}, nil
}

// Draw renders the sky into the bound target. Depth test, depth writes and
// culling are off so every later draw lands in front of it.
func (sb *Skybox) Draw(r *Renderer, cam *scene.Camera) {
	gl.Disable(gl.DEPTH_TEST)
	gl.DepthMask(false)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.BLEND)

	model := math.Mat4Scale(math.Vec3One.Mul(skyboxScale)).Mul(math.Mat4Translation(cam.Eye))

	p := sb.prog
	p.use()
	p.setMat4("u_model", model)
	p.setMat4("u_viewprojection", cam.ViewProjection())
	p.setVec3("u_camera_position", cam.Eye)
	p.setVec3("u_zenith", sb.ZenithColor.RGB())
	p.setVec3("u_horizon", sb.HorizonColor.RGB())
	p.setVec3("u_ground", sb.GroundColor.RGB())
	r.meshes.draw(sb.sphere)

	gl.DepthMask(true)
	gl.Enable(gl.DEPTH_TEST)
}

// Destroy frees all GPU resources owned by this skybox.
func (sb *Skybox) Destroy(r *Renderer) {
	r.meshes.release(sb.sphere)
	sb.prog.destroy()
}

package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/pkg/errors"

	"render-pipeline/math"
	"render-pipeline/pipeline"
	"render-pipeline/probe"
	"render-pipeline/scene"
)

// probeDisplayRadius is the radius of the spheres drawn by ShowProbes.
const probeDisplayRadius = 2

// Irradiance owns the probe texture read by the deferred illumination
// pass: one row per probe, nine RGB32F texels of SH coefficients each.
type Irradiance struct {
	grid   probe.Grid
	probes []probe.Probe
	data   []float32
	tex    uint32

	capture *Framebuffer
	prog    *program
	sphere  *scene.Mesh
}

// probeFragSrc shades a probe sphere with the irradiance it stores.
const probeFragSrc = glslVersion + shGLSL + `
in vec3 v_world_position;
in vec3 v_normal;
out vec4 FragColor;

uniform sampler2D u_irr_texture;
uniform int       u_probe_index;

void main() {
    vec3 N = normalize(v_normal);
    float b[9];
    shBasis(N, b);
    vec3 irr = vec3(0.0);
    for (int k = 0; k < 9; k++)
        irr += texelFetch(u_irr_texture, ivec2(k, u_probe_index), 0).rgb * b[k] * SH_BAND[k];
    FragColor = vec4(max(irr, vec3(0.0)), 1.0);
}
` + "\x00"

func NewIrradiance() (*Irradiance, error) {
	prog, err := newShader("probe", meshVertSrc, probeFragSrc)
	if err != nil {
		return nil, err
	}
	prog.use()
	prog.setInt("u_irr_texture", unitProbes)
	gl.UseProgram(0)
	return &Irradiance{
		prog:    prog,
		sphere:  scene.CreateSphere(probeDisplayRadius, 16, 8),
		capture: newFramebuffer("probe capture", []texFormat{formatRGB32F}, true),
	}, nil
}

// Ready reports whether a full probe set is loaded.
func (ir *Irradiance) Ready() bool {
	return ir.tex != 0 && len(ir.probes) > 0 && len(ir.probes) == ir.grid.Count()
}

func (ir *Irradiance) Grid() probe.Grid      { return ir.grid }
func (ir *Irradiance) Probes() []probe.Probe { return ir.probes }

// Data is the packed texture contents, for CPU-side sampling.
func (ir *Irradiance) Data() []float32 { return ir.data }

// SetProbes replaces the probe set and uploads its texture.
func (ir *Irradiance) SetProbes(grid probe.Grid, probes []probe.Probe) error {
	if len(probes) != grid.Count() || len(probes) == 0 {
		return errors.Errorf("probe set has %d probes, grid needs %d", len(probes), grid.Count())
	}
	data := probe.Pack(probes)
	if err := uploadFloatTexture(&ir.tex, probe.TexelsPerProbe, len(probes), data); err != nil {
		return errors.Wrap(err, "upload probe texture")
	}
	ir.grid = grid
	ir.probes = probes
	ir.data = data
	return nil
}

// Clear drops the probe set; the illumination pass falls back to the flat
// ambient term.
func (ir *Irradiance) Clear() {
	deleteTexture(&ir.tex)
	ir.probes = nil
	ir.data = nil
}

// bind sets the probe uniforms of a deferred program.
func (ir *Irradiance) bind(p *program) {
	if !ir.Ready() {
		p.setBool("u_irr", false)
		return
	}
	g := ir.grid
	p.setBool("u_irr", true)
	p.setVec3("u_irr_start", g.Start)
	p.setVec3("u_irr_end", g.End)
	p.setVec3("u_irr_dim", math.Vec3{X: float32(g.Dims[0]), Y: float32(g.Dims[1]), Z: float32(g.Dims[2])})
	p.setVec3("u_irr_delta", g.End.Sub(g.Start))
	p.setFloat("u_irr_normal_distance", probe.NormalNudge)
	p.setInt("u_num_probes", int32(len(ir.probes)))
	p.setTexture("u_irr_texture", ir.tex, unitProbes)
}

// drawProbes renders every probe as a small sphere lit by its own
// coefficients.
func (ir *Irradiance) drawProbes(r *Renderer, cam *scene.Camera) {
	if !ir.Ready() {
		return
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthMask(true)
	gl.Disable(gl.BLEND)
	gl.Enable(gl.CULL_FACE)

	p := ir.prog
	p.use()
	p.setMat4("u_viewprojection", cam.ViewProjection())
	p.setTexture("u_irr_texture", ir.tex, unitProbes)
	for _, pr := range ir.probes {
		p.setMat4("u_model", math.Mat4Translation(pr.Pos))
		p.setInt("u_probe_index", int32(pr.Index))
		r.meshes.draw(ir.sphere)
	}
	gl.Disable(gl.CULL_FACE)
}

// Destroy frees all GPU resources.
func (ir *Irradiance) Destroy(r *Renderer) {
	ir.Clear()
	ir.capture.Destroy()
	r.meshes.release(ir.sphere)
	ir.prog.destroy()
}

// ── Capture ───────────────────────────────────────────────────────────────────

// CaptureProbe renders the six faces of a cube around pos with the forward
// path and projects them onto spherical harmonics.
func (r *Renderer) CaptureProbe(sc *scene.Scene, frame *pipeline.Frame, pos math.Vec3) probe.SH9 {
	ir := r.irradiance
	ir.capture.Ensure(probe.FaceSize, probe.FaceSize)

	cam := scene.NewCamera()
	cam.SetPerspective(90, 1, 0.1, 1000)

	var faces [6]probe.FaceImage
	buf := make([]float32, probe.FaceSize*probe.FaceSize*3)
	for i, basis := range probe.CubemapFaceNormals {
		front, up := basis[2], basis[1]
		cam.LookAt(pos, pos.Add(front), up)

		ir.capture.Bind()
		r.renderForwardScene(sc, cam, frame, false)

		gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
		gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
		gl.ReadPixels(0, 0, probe.FaceSize, probe.FaceSize, gl.RGB, gl.FLOAT, gl.Ptr(buf))
		gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
		faces[i] = probe.FaceImageFromFloats(probe.FaceSize, buf)
	}
	bindScreen(r.width, r.height)
	return probe.ComputeSH(faces)
}

// CaptureProbes captures every probe of grid and installs the result.
func (r *Renderer) CaptureProbes(sc *scene.Scene, frame *pipeline.Frame, grid probe.Grid) ([]probe.Probe, error) {
	probes := grid.Probes()
	if len(probes) == 0 {
		return nil, errors.New("probe grid is empty")
	}
	for i := range probes {
		probes[i].SH = r.CaptureProbe(sc, frame, probes[i].Pos)
	}
	if err := glError(); err != nil {
		fmt.Printf("WARNING: probe capture: %v\n", err)
	}
	if err := r.irradiance.SetProbes(grid, probes); err != nil {
		return nil, err
	}
	return probes, nil
}

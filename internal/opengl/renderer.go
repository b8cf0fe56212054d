package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/pkg/errors"

	"render-pipeline/math"
	"render-pipeline/pipeline"
	"render-pipeline/scene"
)

// Settings are the runtime switches and post-processing knobs the
// backend reads every frame.
type Settings struct {
	LightRender pipeline.LightRender
	ShowProbes  bool
	SSAOPlus    bool

	AverageLum   float32
	LumWhite     float32
	LumScale     float32
	Vignetting   float32
	Saturation   float32
	Contrast     float32
	Threshold    float32
	DOFMin       float32
	DOFMax       float32
	DebugFactor  float32
	DebugFactor2 float32
}

// DefaultSettings matches the defaults of the config file.
func DefaultSettings() Settings {
	return Settings{
		LightRender:  pipeline.LightRenderMulti,
		AverageLum:   1,
		LumWhite:     1,
		LumScale:     1,
		Vignetting:   1,
		Saturation:   1,
		Contrast:     1,
		Threshold:    0.9,
		DOFMin:       50,
		DOFMax:       300,
		DebugFactor:  1,
		DebugFactor2: 1,
	}
}

// Renderer is the OpenGL rendering backend. It owns every program, render
// target and GPU-side cache, and executes the passes the pipeline package
// plans.
type Renderer struct {
	Settings Settings

	// Programs
	depthProg    *program
	multiProg    *program
	singleProg   *program
	gbufferProg  *program
	decalProg    *program
	deferredProg *program
	volumeProg   *program
	debugProg    *program

	// Render targets, sized to the window by ensureTargets
	gbuffer      *Framebuffer // 3 × RGBA8 + depth
	decals       *Framebuffer // copy of gbuffer read by the decal pass
	illumination *Framebuffer // RGB16F + depth, input of the post chain

	skybox     *Skybox
	ssao       *SSAO
	post       *PostChain
	irradiance *Irradiance

	meshes   *meshCache
	textures *textureCache

	// Unit sphere for light volumes and the [-1,1] cube for decals
	sphere *scene.Mesh
	cube   *scene.Mesh

	// Empty VAO for the fullscreen triangle
	quadVAO uint32

	width, height int32
}

// ── NewRenderer ───────────────────────────────────────────────────────────────

// NewRenderer initialises OpenGL.
// Must be called after the GLFW window context is made current.
func NewRenderer(width, height int) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize OpenGL")
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	fmt.Printf("OpenGL version: %s\n", version)

	r := &Renderer{
		Settings: DefaultSettings(),
		meshes:   newMeshCache(),
		textures: newTextureCache(),
		sphere:   scene.CreateSphere(1, 24, 16),
		cube:     scene.CreateCube(2),
		width:    int32(width),
		height:   int32(height),
	}
	if err := r.init(); err != nil {
		r.Destroy()
		return nil, err
	}

	gl.GenVertexArrays(1, &r.quadVAO)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	r.gbuffer = newFramebuffer("gbuffers", []texFormat{formatRGBA8, formatRGBA8, formatRGBA8}, true)
	r.decals = newFramebuffer("decals", []texFormat{formatRGBA8, formatRGBA8, formatRGBA8}, true)
	r.illumination = newFramebuffer("illumination", []texFormat{formatRGB16F}, true)
	r.ensureTargets()

	fmt.Println("Render engine initialized (OpenGL)")
	return r, nil
}

func (r *Renderer) init() (err error) {
	if r.depthProg, err = newShader("depth", depthVertSrc, depthFragSrc); err != nil {
		return err
	}
	r.depthProg.use()
	r.depthProg.setInt("u_texture", 0)

	if r.multiProg, r.singleProg, err = newForwardPrograms(); err != nil {
		return err
	}
	if r.gbufferProg, r.decalProg, r.deferredProg, r.volumeProg, err = newDeferredPrograms(); err != nil {
		return err
	}
	if r.debugProg, err = newShader("debug", fullscreenVertSrc, debugFragSrc); err != nil {
		return err
	}
	if r.skybox, err = NewSkybox(); err != nil {
		return err
	}
	if r.ssao, err = NewSSAO(); err != nil {
		return err
	}
	if r.post, err = NewPostChain(); err != nil {
		return err
	}
	if r.irradiance, err = NewIrradiance(); err != nil {
		return err
	}
	gl.UseProgram(0)
	return nil
}

// ── Viewport ──────────────────────────────────────────────────────────────────

// Resize stores the new window size; the targets follow on the next pass.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.width = int32(width)
	r.height = int32(height)
	gl.Viewport(0, 0, r.width, r.height)
}

func (r *Renderer) Size() (int, int) { return int(r.width), int(r.height) }

// ensureTargets matches every screen-sized target to the window.
func (r *Renderer) ensureTargets() {
	w, h := int(r.width), int(r.height)
	r.gbuffer.Ensure(w, h)
	r.decals.Ensure(w, h)
	r.illumination.Ensure(w, h)
	r.ssao.resize(w, h)
	r.post.resize(w, h)
}

// ── Frame entry points ────────────────────────────────────────────────────────

// RenderPost runs the post chain from the illumination image to the screen.
func (r *Renderer) RenderPost(cam *scene.Camera, prevVP math.Mat4, steps []pipeline.PostStep) {
	r.post.Run(r, cam, prevVP, steps)
	if err := glError(); err != nil {
		fmt.Printf("WARNING: post chain: %v\n", err)
	}
}

// Irradiance is the probe store of the deferred illumination pass.
func (r *Renderer) Irradiance() *Irradiance { return r.irradiance }

// Skybox is the procedural sky drawn behind every frame.
func (r *Renderer) Skybox() *Skybox { return r.skybox }

// ReleaseMesh frees GPU buffers for the given mesh.
func (r *Renderer) ReleaseMesh(mesh *scene.Mesh) {
	r.meshes.release(mesh)
}

// Destroy releases all GPU resources.
func (r *Renderer) Destroy() {
	for _, p := range []*program{
		r.depthProg, r.multiProg, r.singleProg, r.gbufferProg,
		r.decalProg, r.deferredProg, r.volumeProg, r.debugProg,
	} {
		p.destroy()
	}
	for _, fb := range []*Framebuffer{r.gbuffer, r.decals, r.illumination} {
		if fb != nil {
			fb.Destroy()
		}
	}
	if r.skybox != nil {
		r.skybox.Destroy(r)
	}
	if r.ssao != nil {
		r.ssao.Destroy()
	}
	if r.post != nil {
		r.post.Destroy()
	}
	if r.irradiance != nil {
		r.irradiance.Destroy(r)
	}
	r.meshes.destroy()
	r.textures.destroy()
	if r.quadVAO != 0 {
		gl.DeleteVertexArrays(1, &r.quadVAO)
		r.quadVAO = 0
	}
}

// glError drains the GL error queue and reports the first error.
func glError() error {
	var first uint32
	for e := gl.GetError(); e != gl.NO_ERROR; e = gl.GetError() {
		if first == 0 {
			first = e
		}
	}
	if first != 0 {
		return errors.Errorf("GL error 0x%X", first)
	}
	return nil
}

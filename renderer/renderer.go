// Package renderer drives the OpenGL backend through one frame: collect,
// sort, shadows, forward or deferred shading, post chain and debug views.
package renderer

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"render-pipeline/config"
	"render-pipeline/core"
	"render-pipeline/internal/opengl"
	"render-pipeline/math"
	"render-pipeline/pipeline"
	"render-pipeline/probe"
	"render-pipeline/scene"
)

// RenderEngine is the high-level renderer that drives the OpenGL backend.
type RenderEngine struct {
	gl     *opengl.Renderer
	window *core.Window

	Mode  pipeline.Mode
	Debug opengl.DebugViews

	// ProbeGrid is the lattice GenerateProbes captures.
	ProbeGrid probe.Grid

	collector *pipeline.Collector
	shadows   *pipeline.ShadowPass
	chain     []pipeline.PostStep

	// View-projection of the previous frame, for motion blur.
	prevVP  math.Mat4
	hasPrev bool

	frame *pipeline.Frame

	// Per-frame stats (populated during Render)
	lastCalls   int
	lastLights  int
	lastShadows int
}

func NewRenderEngine(window *core.Window) (*RenderEngine, error) {
	glRenderer, err := opengl.NewRenderer(window.Width, window.Height)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create OpenGL renderer")
	}

	chain := pipeline.BuildPostChain(pipeline.BlurIterations)
	if err := pipeline.ValidatePostChain(chain); err != nil {
		glRenderer.Destroy()
		return nil, err
	}

	return &RenderEngine{
		gl:        glRenderer,
		window:    window,
		Mode:      pipeline.Deferred,
		ProbeGrid: probe.DefaultGrid(),
		collector: pipeline.NewCollector(),
		shadows:   pipeline.NewShadowPass(opengl.ShadowAllocator{}),
		chain:     chain,
	}, nil
}

// ApplyConfig maps the config switches onto the engine. It is safe to call
// between frames, e.g. after a hot reload.
func (re *RenderEngine) ApplyConfig(cfg *config.Config) {
	s := settingsFromConfig(cfg)
	re.Mode = s.mode
	re.Debug = s.debug
	re.ProbeGrid = s.grid
	re.gl.Settings = s.gl
}

// Render draws one frame of sc seen from cam into the window.
func (re *RenderEngine) Render(sc *scene.Scene, cam *scene.Camera) {
	if sc == nil || cam == nil {
		return
	}
	if re.window.ConsumeResize() {
		re.Resize(re.window.Width, re.window.Height)
	}

	vp := cam.ViewProjection()
	if !re.hasPrev {
		re.prevVP = vp
		re.hasPrev = true
	}

	frame := re.collect(sc, cam)
	re.renderShadows(sc, frame)

	for _, pass := range pipeline.PlanFrame(re.Mode) {
		switch pass {
		case pipeline.PassForward:
			re.gl.RenderForward(sc, cam, frame)
		case pipeline.PassGeometry:
			re.gl.RenderDeferred(sc, cam, frame)
		case pipeline.PassPost:
			re.gl.RenderPost(cam, re.prevVP, re.chain)
		case pipeline.PassDebug:
			re.gl.RenderDebug(cam, frame.Lights, re.Debug)
		}
	}

	re.prevVP = vp
}

// Present swaps the window buffers.
func (re *RenderEngine) Present() {
	re.window.SwapBuffers()
}

func (re *RenderEngine) collect(sc *scene.Scene, cam *scene.Camera) *pipeline.Frame {
	frame := re.collector.Collect(sc, cam.Eye)
	pipeline.SortRenderCalls(frame.Calls)
	re.frame = frame
	re.lastCalls = len(frame.Calls)
	re.lastLights = len(frame.Lights)
	return frame
}

// renderShadows refreshes the shadow state of every light of sc, hidden
// ones included, and renders the maps of the visible ones that need it.
// Lights that stopped casting shadows release their maps here.
func (re *RenderEngine) renderShadows(sc *scene.Scene, frame *pipeline.Frame) {
	lights := re.shadows.PrepareScene(sc, frame.Lights)
	for _, l := range lights {
		re.gl.RenderShadowMap(l, frame.Calls)
	}
	re.lastShadows = len(lights)
}

// GenerateProbes captures every probe of ProbeGrid from sc and installs
// the result for the deferred illumination pass.
func (re *RenderEngine) GenerateProbes(sc *scene.Scene) error {
	if sc == nil {
		return errors.New("no scene")
	}
	frame := re.collect(sc, sc.MainCamera)
	re.renderShadows(sc, frame)

	fmt.Printf("Capturing %d irradiance probes...\n", re.ProbeGrid.Count())
	probes, err := re.gl.CaptureProbes(sc, frame, re.ProbeGrid)
	if err != nil {
		return errors.Wrap(err, "capture probes")
	}
	fmt.Printf("Captured %d irradiance probes\n", len(probes))
	return nil
}

// SaveProbes writes the current probe set to the cache file at path.
func (re *RenderEngine) SaveProbes(path string) error {
	ir := re.gl.Irradiance()
	if !ir.Ready() {
		return errors.New("no probes to save")
	}
	return probe.SaveCache(path, ir.Grid(), ir.Probes())
}

// LoadProbes reads a probe cache and installs it. The cache grid replaces
// ProbeGrid.
func (re *RenderEngine) LoadProbes(path string) error {
	grid, probes, err := probe.LoadCache(path)
	if err != nil {
		return err
	}
	if err := re.gl.Irradiance().SetProbes(grid, probes); err != nil {
		return err
	}
	re.ProbeGrid = grid
	fmt.Printf("Loaded %d irradiance probes from %s\n", len(probes), path)
	return nil
}

// ClearProbes drops the probe set; illumination falls back to the flat
// ambient term.
func (re *RenderEngine) ClearProbes() {
	re.gl.Irradiance().Clear()
}

// SampleProbes evaluates the loaded probe field at p with normal n on the
// CPU, the same way the illumination pass does.
func (re *RenderEngine) SampleProbes(p, n math.Vec3) math.Vec3 {
	ir := re.gl.Irradiance()
	if !ir.Ready() {
		return math.Vec3Zero
	}
	return probe.Sample(ir.Grid(), ir.Data(), p, n, probe.NormalNudge)
}

// Pick returns the surface under the cursor position (x, y) in the last
// rendered frame.
func (re *RenderEngine) Pick(x, y float64, cam *scene.Camera) (pipeline.Hit, bool) {
	if re.frame == nil || cam == nil {
		return pipeline.Hit{}, false
	}
	w, h := re.gl.Size()
	ray := pipeline.ScreenToRay(float32(x), float32(y), float32(w), float32(h), cam)
	return pipeline.Pick(re.frame.Calls, ray)
}

// DumpFrame writes the render calls, lights and decals of the last frame.
func (re *RenderEngine) DumpFrame(w io.Writer) {
	if re.frame == nil {
		fmt.Fprintln(w, "no frame rendered yet")
		return
	}
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, MaxDepth: 3}
	fmt.Fprintf(w, "mode=%s calls=%d lights=%d shadows=%d decals=%d\n",
		re.Mode, re.lastCalls, re.lastLights, re.lastShadows, len(re.frame.Decals))
	for i := range re.frame.Calls {
		rc := &re.frame.Calls[i]
		fmt.Fprintf(w, "#%d %s material=%s blended=%t distance=%.2f\n",
			i, rc.Mesh.Name, rc.Material.Name, rc.Blended(), rc.Distance)
		cfg.Fdump(w, rc.WorldBounds)
	}
	for _, l := range re.frame.Lights {
		fmt.Fprintf(w, "light %q %s shadow=%t\n", l.Name, l.LightType, l.HasShadow())
	}
}

func (re *RenderEngine) Resize(width, height int) {
	re.gl.Resize(width, height)
}

// Skybox gives access to the sky colours.
func (re *RenderEngine) Skybox() *opengl.Skybox {
	return re.gl.Skybox()
}

// UploadTexture uploads a texture to the GPU. Must be called from the main thread.
func (re *RenderEngine) UploadTexture(tex *scene.Texture) error {
	return opengl.UploadTexture(tex)
}

// ReleaseScene frees the shadow maps owned by the lights of sc.
func (re *RenderEngine) ReleaseScene(sc *scene.Scene) {
	if sc == nil {
		return
	}
	for _, l := range sc.Lights() {
		l.ReleaseShadow()
	}
}

func (re *RenderEngine) Destroy() {
	re.gl.Destroy()
}

// DrawStats returns stats from the most recent Render call.
func (re *RenderEngine) DrawStats() (calls, lights, shadows int) {
	return re.lastCalls, re.lastLights, re.lastShadows
}

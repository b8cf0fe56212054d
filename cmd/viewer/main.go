// Command viewer opens a scene file and renders it with the forward or
// deferred pipeline. Most switches can be flipped with the keyboard or by
// editing the config file while the viewer runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"render-pipeline/config"
	"render-pipeline/core"
	"render-pipeline/renderer"
	"render-pipeline/scene"
)

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Printf("Config: %v (using defaults)", err)
		return config.Default()
	}
	return cfg
}

// firstDirectional returns the dominant sun of sc, or nil.
func firstDirectional(sc *scene.Scene) *scene.Light {
	for _, l := range sc.Lights() {
		if l.LightType == scene.LightDirectional {
			return l
		}
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "YAML config file, reloaded on change")
	scenePath := flag.String("scene", "", "scene file (overrides the config)")
	flag.Parse()

	cfg := loadConfig(*configPath)
	if *scenePath != "" {
		cfg.Scene = *scenePath
	}

	windowConfig := core.DefaultWindowConfig()
	windowConfig.Width = cfg.Window.Width
	windowConfig.Height = cfg.Window.Height
	windowConfig.Title = cfg.Window.Title
	windowConfig.VSync = cfg.Window.VSync

	window, err := core.NewWindow(windowConfig)
	if err != nil {
		log.Fatalf("Failed to create window: %v", err)
	}
	defer window.Destroy()

	engine, err := renderer.NewRenderEngine(window)
	if err != nil {
		log.Fatalf("Failed to create render engine: %v", err)
	}
	defer engine.Destroy()
	engine.ApplyConfig(cfg)

	sc, err := scene.LoadScene(cfg.Scene, scene.NewAssets(cfg.DataDir))
	if err != nil {
		log.Fatalf("Failed to load scene: %v", err)
	}
	defer engine.ReleaseScene(sc)
	camera := sc.MainCamera
	camera.UpdateAspectRatio(float32(window.Width), float32(window.Height))

	if cfg.Probes.Cache != "" {
		if err := engine.LoadProbes(cfg.Probes.Cache); err != nil {
			log.Printf("Probes: %v (press F5 to capture)", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var reloads <-chan *config.Config
	if *configPath != "" {
		if reloads, err = config.Watch(ctx, *configPath); err != nil {
			log.Printf("Config watch disabled: %v", err)
		}
	}

	controller := NewCameraController()
	dayNight := NewDayNight()
	sun := firstDirectional(sc)
	hud := &DebugOverlay{}

	leftWasDown := false

	lastTime := time.Now()
	frames := 0
	fpsTimer := float32(0)
	fps := 0

	for !window.ShouldClose() {
		window.PollEvents()

		now := time.Now()
		deltaTime := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		select {
		case next, ok := <-reloads:
			if ok {
				next.Scene, next.DataDir = cfg.Scene, cfg.DataDir
				cfg = next
				engine.ApplyConfig(cfg)
				log.Printf("Config reloaded from %s", *configPath)
			} else {
				reloads = nil
			}
		default:
		}

		if window.WasPressed(core.KeyEscape) {
			break
		}
		if handleKeys(window, engine, sc, cfg) {
			engine.ApplyConfig(cfg)
		}
		if window.WasPressed(core.KeyN) {
			dayNight.Active = !dayNight.Active
			log.Printf("[DayNight] %s", onOff(dayNight.Active))
		}

		if window.ConsumeResize() {
			engine.Resize(window.Width, window.Height)
			camera.UpdateAspectRatio(float32(window.Width), float32(window.Height))
		}

		leftDown := window.IsMouseButtonPressed(core.MouseButtonLeft)
		if leftDown && !leftWasDown {
			x, y := window.GetCursorPos()
			reportPick(engine, camera, x, y)
		}
		leftWasDown = leftDown

		controller.Update(window, camera, deltaTime)
		dayNight.Update(deltaTime)
		if dayNight.Active {
			dayNight.Apply(engine.Skybox(), sc, sun)
		}

		engine.Render(sc, camera)
		engine.Present()

		frames++
		fpsTimer += deltaTime
		if fpsTimer >= 1 {
			fps = frames
			frames = 0
			fpsTimer = 0

			calls, lights, shadows := engine.DrawStats()
			hud.Clear()
			hud.AddLine("%s", cfg.Window.Title)
			hud.AddLine("%d fps", fps)
			hud.AddLine("%s/%s", cfg.Pipeline, cfg.LightRender)
			hud.AddLine("calls %d lights %d shadows %d", calls, lights, shadows)
			if dayNight.Active {
				hud.AddLine("%s", dayNight.TimeOfDayStr())
			}
			window.SetTitle(hud.GetText(" | "))
		}
	}
}

// reportPick logs the surface under the cursor and the probe irradiance
// reaching it.
func reportPick(engine *renderer.RenderEngine, camera *scene.Camera, x, y float64) {
	hit, ok := engine.Pick(x, y, camera)
	if !ok {
		log.Printf("[Pick] nothing")
		return
	}
	irr := engine.SampleProbes(hit.Point, hit.Normal)
	log.Printf("[Pick] %s (%s) at %.2f,%.2f,%.2f distance %.2f irradiance %.3f,%.3f,%.3f",
		hit.Call.Mesh.Name, hit.Call.Material.Name,
		hit.Point.X, hit.Point.Y, hit.Point.Z, hit.Distance,
		irr.X, irr.Y, irr.Z)
}

// handleKeys applies the edge-triggered key bindings. It returns true when
// cfg changed and must be applied to the engine.
func handleKeys(window *core.Window, engine *renderer.RenderEngine, sc *scene.Scene, cfg *config.Config) bool {
	changed := false
	toggle := func(key int, name string, v *bool) {
		if window.WasPressed(key) {
			*v = !*v
			log.Printf("[%s] %s", name, onOff(*v))
			changed = true
		}
	}

	if window.WasPressed(core.Key1) {
		if cfg.Pipeline == config.PipelineDeferred {
			cfg.Pipeline = config.PipelineForward
		} else {
			cfg.Pipeline = config.PipelineDeferred
		}
		log.Printf("[Pipeline] %s", cfg.Pipeline)
		changed = true
	}
	if window.WasPressed(core.Key2) {
		if cfg.LightRender == config.LightRenderMulti {
			cfg.LightRender = config.LightRenderSingle
		} else {
			cfg.LightRender = config.LightRenderMulti
		}
		log.Printf("[Lights] %s", cfg.LightRender)
		changed = true
	}
	toggle(core.Key3, "SSAO+", &cfg.SSAOPlus)
	toggle(core.KeyG, "GBuffers", &cfg.ShowGBuffers)
	toggle(core.KeyO, "SSAO", &cfg.ShowSSAO)
	toggle(core.KeyI, "Irradiance", &cfg.ShowIrradiance)
	toggle(core.KeyV, "Probes", &cfg.ShowProbes)
	toggle(core.KeyL, "ShadowMap", &cfg.ShowShadowMap)

	if window.IsKeyPressed(core.KeyPageUp) {
		cfg.DebugFactor += 0.01
		changed = true
	}
	if window.IsKeyPressed(core.KeyPageDown) && cfg.DebugFactor > 0.01 {
		cfg.DebugFactor -= 0.01
		changed = true
	}

	if window.WasPressed(core.KeyP) {
		engine.DumpFrame(os.Stdout)
	}
	if window.WasPressed(core.KeyF5) {
		start := time.Now()
		if err := engine.GenerateProbes(sc); err != nil {
			log.Printf("[Probes] %v", err)
		} else {
			log.Printf("[Probes] captured in %s", time.Since(start).Round(time.Millisecond))
		}
	}
	if window.WasPressed(core.KeyF9) {
		if err := engine.SaveProbes(cfg.Probes.Cache); err != nil {
			log.Printf("[Probes] save: %v", err)
		} else {
			fmt.Printf("[Probes] saved to %q\n", cfg.Probes.Cache)
		}
	}
	if window.WasPressed(core.KeyR) {
		if err := engine.LoadProbes(cfg.Probes.Cache); err != nil {
			log.Printf("[Probes] load: %v", err)
		}
	}
	if window.WasPressed(core.KeyC) {
		engine.ClearProbes()
		log.Printf("[Probes] cleared")
	}
	return changed
}

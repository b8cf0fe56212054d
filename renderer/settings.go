package renderer

import (
	"render-pipeline/config"
	"render-pipeline/internal/opengl"
	"render-pipeline/math"
	"render-pipeline/pipeline"
	"render-pipeline/probe"
)

// engineSettings is everything a config file controls.
type engineSettings struct {
	mode  pipeline.Mode
	debug opengl.DebugViews
	grid  probe.Grid
	gl    opengl.Settings
}

func settingsFromConfig(cfg *config.Config) engineSettings {
	s := engineSettings{
		mode: pipeline.Deferred,
		debug: opengl.DebugViews{
			GBuffers:   cfg.ShowGBuffers,
			SSAO:       cfg.ShowSSAO,
			Irradiance: cfg.ShowIrradiance,
			ShadowMap:  cfg.ShowShadowMap,
		},
		grid: probe.Grid{
			Start: vec3(cfg.Probes.Start),
			End:   vec3(cfg.Probes.End),
			Dims:  cfg.Probes.Dims,
		},
		gl: opengl.Settings{
			LightRender:  pipeline.LightRenderMulti,
			ShowProbes:   cfg.ShowProbes,
			SSAOPlus:     cfg.SSAOPlus,
			AverageLum:   cfg.AverageLum,
			LumWhite:     cfg.LumWhite,
			LumScale:     cfg.LumScale,
			Vignetting:   cfg.Vignetting,
			Saturation:   cfg.Saturation,
			Contrast:     cfg.Contrast,
			Threshold:    cfg.Threshold,
			DOFMin:       cfg.DOFMin,
			DOFMax:       cfg.DOFMax,
			DebugFactor:  cfg.DebugFactor,
			DebugFactor2: cfg.DebugFactor2,
		},
	}
	if cfg.Pipeline == config.PipelineForward {
		s.mode = pipeline.Forward
	}
	if cfg.LightRender == config.LightRenderSingle {
		s.gl.LightRender = pipeline.LightRenderSingle
	}
	return s
}

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// Package config holds the viewer and renderer settings: pipeline
// switches, post-processing knobs, the probe grid and window options. The
// file format is YAML and every field is optional.
package config

import (
	"bytes"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	PipelineForward  = "forward"
	PipelineDeferred = "deferred"

	LightRenderSingle = "single"
	LightRenderMulti  = "multi"
)

type Config struct {
	Pipeline    string `yaml:"pipeline"`
	LightRender string `yaml:"light_render"`

	ShowGBuffers   bool `yaml:"show_gbuffers"`
	ShowSSAO       bool `yaml:"show_ssao"`
	ShowIrradiance bool `yaml:"show_irradiance"`
	ShowProbes     bool `yaml:"show_probes"`
	ShowShadowMap  bool `yaml:"show_shadowmap"`
	SSAOPlus       bool `yaml:"ssao_plus"`

	AverageLum   float32 `yaml:"average_lum"`
	LumWhite     float32 `yaml:"lum_white"`
	LumScale     float32 `yaml:"lum_scale"`
	Vignetting   float32 `yaml:"vignetting"`
	Saturation   float32 `yaml:"saturation"`
	Contrast     float32 `yaml:"contrast"`
	Threshold    float32 `yaml:"threshold"`
	DOFMin       float32 `yaml:"dof_min"`
	DOFMax       float32 `yaml:"dof_max"`
	DebugFactor  float32 `yaml:"debug_factor"`
	DebugFactor2 float32 `yaml:"debug_factor2"`

	Probes  ProbeConfig  `yaml:"probes"`
	Window  WindowConfig `yaml:"window"`
	DataDir string       `yaml:"data_dir"`
	Scene   string       `yaml:"scene"`
}

type ProbeConfig struct {
	Start [3]float32 `yaml:"start"`
	End   [3]float32 `yaml:"end"`
	Dims  [3]int     `yaml:"dims"`
	Cache string     `yaml:"cache"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
	VSync  bool   `yaml:"vsync"`
}

// Default returns the settings the renderer starts with when no file is
// given.
func Default() *Config {
	return &Config{
		Pipeline:     PipelineDeferred,
		LightRender:  LightRenderMulti,
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
		Probes: ProbeConfig{
			Start: [3]float32{-300, 5, -300},
			End:   [3]float32{300, 150, 300},
			Dims:  [3]int{12, 6, 12},
			Cache: "data/irradiance.bin",
		},
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "Scene Viewer",
			VSync:  true,
		},
		DataDir: "data",
		Scene:   "data/scene.json",
	}
}

// Load reads path (a leading ~ is expanded) over the defaults, so a file
// only needs the keys it changes.
func Load(path string) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expand %q", path)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %q", expanded)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %q", expanded)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.Wrap(err, "decode yaml")
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerated switches and the probe grid.
func (c *Config) Validate() error {
	switch c.Pipeline {
	case PipelineForward, PipelineDeferred:
	default:
		return errors.Errorf("pipeline must be %q or %q, got %q", PipelineForward, PipelineDeferred, c.Pipeline)
	}
	switch c.LightRender {
	case LightRenderSingle, LightRenderMulti:
	default:
		return errors.Errorf("light_render must be %q or %q, got %q", LightRenderSingle, LightRenderMulti, c.LightRender)
	}
	for i, d := range c.Probes.Dims {
		if d < 2 {
			return errors.Errorf("probes.dims[%d] must be at least 2, got %d", i, d)
		}
	}
	if c.LumWhite <= 0 {
		return errors.Errorf("lum_white must be positive, got %g", c.LumWhite)
	}
	if c.DOFMax < c.DOFMin {
		return errors.Errorf("dof_max %g is below dof_min %g", c.DOFMax, c.DOFMin)
	}
	return nil
}

// Save writes c as YAML.
func (c *Config) Save(path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return errors.Wrapf(err, "expand %q", path)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	return errors.Wrapf(os.WriteFile(expanded, data, 0o644), "write config %q", expanded)
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, PipelineDeferred, cfg.Pipeline)
	assert.Equal(t, LightRenderMulti, cfg.LightRender)
	assert.Equal(t, float32(0.9), cfg.Threshold)
	assert.Equal(t, [3]int{12, 6, 12}, cfg.Probes.Dims)
}

func TestParsePartialOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
pipeline: forward
light_render: single
show_ssao: true
threshold: 0.5
probes:
  dims: [2, 3, 4]
window:
  width: 800
`))
	require.NoError(t, err)
	assert.Equal(t, PipelineForward, cfg.Pipeline)
	assert.Equal(t, LightRenderSingle, cfg.LightRender)
	assert.True(t, cfg.ShowSSAO)
	assert.Equal(t, float32(0.5), cfg.Threshold)
	assert.Equal(t, [3]int{2, 3, 4}, cfg.Probes.Dims)
	assert.Equal(t, [3]float32{-300, 5, -300}, cfg.Probes.Start, "untouched nested keys keep defaults")
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, float32(1), cfg.Contrast)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejectsInvalid(t *testing.T) {
	for name, doc := range map[string]string{
		"pipeline":     "pipeline: raytraced",
		"light render": "light_render: clustered",
		"dims":         "probes:\n  dims: [1, 2, 2]",
		"lum white":    "lum_white: 0",
		"dof range":    "dof_min: 10\ndof_max: 5",
		"unknown key":  "exposure: 2",
		"bad yaml":     "pipeline: [",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	cfg := Default()
	cfg.Pipeline = PipelineForward
	cfg.Saturation = 0.25
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatchDeliversReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "viewer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline: deferred\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := Watch(ctx, path)
	require.NoError(t, err)

	// Other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("pipeline: forward\n"), 0o644))

	// A write may surface as several events; wait for the final content.
	deadline := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case cfg := <-updates:
			require.NotNil(t, cfg)
			done = cfg.Pipeline == PipelineForward
		case <-deadline:
			t.Fatal("no config delivered")
		}
	}

	cancel()
	for range updates {
	}
}

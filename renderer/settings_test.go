package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-pipeline/config"
	"render-pipeline/internal/opengl"
	"render-pipeline/math"
	"render-pipeline/pipeline"
	"render-pipeline/probe"
)

func TestSettingsFromDefaultConfig(t *testing.T) {
	s := settingsFromConfig(config.Default())

	assert.Equal(t, pipeline.Deferred, s.mode)
	assert.Equal(t, opengl.DebugViews{}, s.debug)
	assert.Equal(t, probe.DefaultGrid(), s.grid)
	assert.Equal(t, opengl.DefaultSettings(), s.gl)
}

func TestSettingsFromConfigSwitches(t *testing.T) {
	cfg, err := config.Parse([]byte(`
pipeline: forward
light_render: single
show_gbuffers: true
show_shadowmap: true
ssao_plus: true
lum_white: 2.5
dof_min: 10
dof_max: 20
probes:
  start: [0, 0, 0]
  end: [10, 20, 30]
  dims: [2, 3, 4]
`))
	require.NoError(t, err)

	s := settingsFromConfig(cfg)
	assert.Equal(t, pipeline.Forward, s.mode)
	assert.Equal(t, pipeline.LightRenderSingle, s.gl.LightRender)
	assert.True(t, s.debug.GBuffers)
	assert.True(t, s.debug.ShadowMap)
	assert.False(t, s.debug.SSAO)
	assert.True(t, s.gl.SSAOPlus)
	assert.Equal(t, float32(2.5), s.gl.LumWhite)
	assert.Equal(t, float32(10), s.gl.DOFMin)
	assert.Equal(t, float32(20), s.gl.DOFMax)

	assert.Equal(t, math.Vec3{X: 10, Y: 20, Z: 30}, s.grid.End)
	assert.Equal(t, [3]int{2, 3, 4}, s.grid.Dims)
	assert.Equal(t, 24, s.grid.Count())
}

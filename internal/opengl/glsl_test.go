package opengl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Forward and deferred must shade with the same lobe so both paths agree.
func TestShadingProgramsShareLambertBlinn(t *testing.T) {
	assert.Contains(t, lightingGLSL, "vec3 evalLight(")
	assert.Contains(t, lightingGLSL, "float blinnExponent(")
	assert.NotContains(t, lightingGLSL, "GGX")

	for name, src := range map[string]string{
		"forward":  forwardFragSrc,
		"deferred": deferredFragSrc,
	} {
		assert.Equal(t, 1, strings.Count(src, "vec3 evalLight("), name)
		assert.Contains(t, src, "evalLight(N, V, L, rad, albedo, metallic, roughness)", name)
	}
}

func TestDeferredTextureUnitsDistinct(t *testing.T) {
	units := map[string]int{
		"gb0": unitGB0, "gb1": unitGB1, "gb2": unitGB2, "depth": unitDepth,
		"decal": unitDecal, "ssao": unitSSAO, "probes": unitProbes,
	}
	seen := map[int]string{}
	for name, u := range units {
		if other, ok := seen[u]; ok {
			t.Errorf("%s and %s share texture unit %d", name, other, u)
		}
		seen[u] = name
	}
	assert.NotEqual(t, shadowUnit, unitProbes)
}

// Attachment 0 alpha is the coverage mask, not a shading term.
func TestGBufferAlbedoAlphaIsMask(t *testing.T) {
	assert.Contains(t, gbufferFragSrc, "GB0 = vec4(s.albedo.rgb, 1.0);")
	assert.Contains(t, deferredFragSrc, "if (gb0.a < 0.5) discard;")
	assert.NotContains(t, deferredFragSrc, "occlusion")
}

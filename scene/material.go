package scene

import (
	"github.com/chewxy/math32"

	"render-pipeline/core"
	"render-pipeline/math"
)

// AlphaMode selects how a material's alpha channel is interpreted.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask             // fragments below AlphaCutoff are discarded
	AlphaBlend            // drawn after opaques, back-to-front, blended
)

func (m AlphaMode) String() string {
	switch m {
	case AlphaMask:
		return "MASK"
	case AlphaBlend:
		return "BLEND"
	default:
		return "OPAQUE"
	}
}

// Material describes the fixed surface parameters of a draw.
// Nil textures are replaced by WhiteTexture() when the draw is issued,
// except NormalTexture whose absence disables normal mapping.
type Material struct {
	Name        string
	BaseColor   core.Color
	Emissive    math.Vec3
	Roughness   float32
	Metallic    float32
	TwoSided    bool
	AlphaMode   AlphaMode
	AlphaCutoff float32

	ColorTexture    *Texture
	EmissiveTexture *Texture
	// R = occlusion, G = roughness, B = metallic (glTF convention).
	MetallicRoughnessTexture *Texture
	NormalTexture            *Texture
}

// DefaultMaterial returns a white, opaque, fully rough material.
func DefaultMaterial() *Material {
	return &Material{
		Name:        "Default",
		BaseColor:   core.ColorWhite,
		Roughness:   1,
		Metallic:    0,
		AlphaCutoff: 0.5,
	}
}

// NewMaterial creates an opaque material with the given base color.
func NewMaterial(name string, color core.Color) *Material {
	m := DefaultMaterial()
	m.Name = name
	m.BaseColor = color
	return m
}

// IsBlended reports whether draws with this material belong to the transparent group.
func (m *Material) IsBlended() bool {
	return m != nil && m.AlphaMode == AlphaBlend
}

// Textures lists every non-nil texture referenced by the material.
func (m *Material) Textures() []*Texture {
	var out []*Texture
	for _, t := range []*Texture{m.ColorTexture, m.EmissiveTexture, m.MetallicRoughnessTexture, m.NormalTexture} {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// RoughnessFromShininess converts a Blinn-Phong exponent (MTL Ns) to the
// roughness the lighting shader turns back into the same exponent with
// n = 2/r² - 2.
func RoughnessFromShininess(ns float32) float32 {
	return math32.Sqrt(2 / (math32.Max(0, ns) + 2))
}

// ShininessFromRoughness is the inverse of RoughnessFromShininess, clamped
// the way the shader clamps it.
func ShininessFromRoughness(r float32) float32 {
	r = math32.Max(r, 0.04)
	return math32.Min(math32.Max(2/(r*r)-2, 1), 2048)
}

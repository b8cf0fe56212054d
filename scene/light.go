package scene

import (
	stdmath "math"

	"render-pipeline/math"
)

// LightType is the analytic light variant.
type LightType int

const (
	LightPoint LightType = iota
	LightSpot
	LightDirectional
)

func (t LightType) String() string {
	switch t {
	case LightSpot:
		return "SPOT"
	case LightDirectional:
		return "DIRECTIONAL"
	}
	return "POINT"
}

// ShaderCode is the integer the lighting programs switch on.
func (t LightType) ShaderCode() int32 {
	switch t {
	case LightDirectional:
		return 0
	case LightSpot:
		return 1
	}
	return 2
}

// ShadowTarget is a GPU depth image owned by a light.
type ShadowTarget interface {
	Size() int
	Release()
}

// Light is an analytic light entity. ConeAngle is the spot half-angle in
// degrees; AreaSize is the side of the directional shadow volume.
type Light struct {
	BaseEntity
	LightType   LightType
	Color       math.Vec3
	Intensity   float32
	MaxDistance float32
	ConeAngle   float32
	ConeExp     float32
	AreaSize    float32
	Target      math.Vec3
	CastShadows bool
	ShadowBias  float32

	shadowMap    ShadowTarget
	shadowCamera *Camera
	// shadowReady is set while the shadow image holds this frame's depth.
	shadowReady bool
}

// NewLight returns a light with the default parameters of the scene format.
func NewLight(name string, t LightType) *Light {
	return &Light{
		BaseEntity:  newBaseEntity(name),
		LightType:   t,
		Color:       math.Vec3One,
		Intensity:   1,
		MaxDistance: 100,
		ConeAngle:   20,
		ConeExp:     20,
		AreaSize:    1000,
		ShadowBias:  0.01,
	}
}

func (l *Light) Kind() EntityKind { return KindLight }

// Radiance is color scaled by intensity.
func (l *Light) Radiance() math.Vec3 {
	return l.Color.Mul(l.Intensity)
}

// Vector points from the target towards the light.
func (l *Light) Vector() math.Vec3 {
	return l.Position().Sub(l.Target)
}

// Cone packs (angle, exponent, cos(angle)) for the shaders.
func (l *Light) Cone() math.Vec3 {
	return math.Vec3{
		X: l.ConeAngle,
		Y: l.ConeExp,
		Z: float32(stdmath.Cos(float64(l.ConeAngle) * stdmath.Pi / 180)),
	}
}

// UpVector is the model's local +Y axis in world space.
func (l *Light) UpVector() math.Vec3 {
	return l.Model.RotateVector(math.Vec3Up).Normalize()
}

func (l *Light) ShadowMap() ShadowTarget { return l.shadowMap }
func (l *Light) ShadowCamera() *Camera   { return l.shadowCamera }

// HasShadow reports whether a shadow image is currently allocated.
func (l *Light) HasShadow() bool { return l.shadowMap != nil }

// ShadowReady reports whether the shadow image was rendered this frame and
// may be sampled.
func (l *Light) ShadowReady() bool { return l.shadowReady && l.shadowMap != nil }

// SetShadowReady marks the shadow image as rendered (or stale) for the
// current frame.
func (l *Light) SetShadowReady(ready bool) { l.shadowReady = ready }

// AttachShadow stores a freshly allocated shadow image and camera.
func (l *Light) AttachShadow(target ShadowTarget, cam *Camera) {
	if l.shadowMap != nil && l.shadowMap != target {
		l.shadowMap.Release()
	}
	l.shadowMap = target
	l.shadowCamera = cam
}

// ReleaseShadow frees the shadow image and drops the virtual camera.
func (l *Light) ReleaseShadow() {
	if l.shadowMap != nil {
		l.shadowMap.Release()
	}
	l.shadowMap = nil
	l.shadowCamera = nil
	l.shadowReady = false
}

package pipeline

import (
	"fmt"

	"render-pipeline/math"
	"render-pipeline/scene"
)

const (
	// ShadowMapSize is the side of every shadow depth image.
	ShadowMapSize = 1024
	// ShadowNear is the near plane of every light camera.
	ShadowNear = 0.1
)

// ShadowAllocator creates depth-only shadow images.
type ShadowAllocator interface {
	AllocShadow(size int) (scene.ShadowTarget, error)
}

// ShadowPass manages the shadow resources owned by lights.
type ShadowPass struct {
	alloc ShadowAllocator
}

func NewShadowPass(alloc ShadowAllocator) *ShadowPass {
	return &ShadowPass{alloc: alloc}
}

// Prepare makes l's shadow state match its settings and reports whether a
// shadow map should be rendered for it this frame. Lights that stop casting
// shadows release their image and camera; lights that start casting get
// them allocated. POINT lights never cast shadows. A light whose map is
// not rendered this frame is marked not ready so lighting treats it as
// unshadowed.
func (p *ShadowPass) Prepare(l *scene.Light) bool {
	l.SetShadowReady(false)
	if !l.CastShadows || l.LightType == scene.LightPoint {
		l.ReleaseShadow()
		return false
	}

	if !l.HasShadow() {
		target, err := p.alloc.AllocShadow(ShadowMapSize)
		if err != nil {
			fmt.Printf("WARNING: shadow map for %q: %v\n", l.Name, err)
			return false
		}
		l.AttachShadow(target, scene.NewCamera())
	}

	if l.MaxDistance <= ShadowNear {
		return false
	}
	ConfigureShadowCamera(l, l.ShadowCamera())
	l.SetShadowReady(true)
	return true
}

// Retire handles a light that is not drawn this frame: its map is marked
// stale, and it is freed if the light no longer casts shadows.
func (p *ShadowPass) Retire(l *scene.Light) {
	l.SetShadowReady(false)
	if !l.CastShadows || l.LightType == scene.LightPoint {
		l.ReleaseShadow()
	}
}

// PrepareScene runs Prepare for the visible lights and Retire for every
// other light of sc. It returns the lights whose maps must be rendered.
func (p *ShadowPass) PrepareScene(sc *scene.Scene, visible []*scene.Light) []*scene.Light {
	drawn := make(map[*scene.Light]bool, len(visible))
	var render []*scene.Light
	for _, l := range visible {
		drawn[l] = true
		if p.Prepare(l) {
			render = append(render, l)
		}
	}
	for _, l := range sc.Lights() {
		if !drawn[l] {
			p.Retire(l)
		}
	}
	return render
}

// ConfigureShadowCamera places cam at the light looking along its forward
// axis: orthographic over AreaSize for directional lights, a perspective
// cone of twice ConeAngle for spots.
func ConfigureShadowCamera(l *scene.Light, cam *scene.Camera) {
	pos := l.Position()
	front := l.Forward()
	up := l.UpVector()
	if up.Cross(front).LengthSqr() < 1e-8 {
		up = math.Vec3Front
	}

	switch l.LightType {
	case scene.LightDirectional:
		half := l.AreaSize / 2
		cam.SetOrthographic(-half, half, -half, half, ShadowNear, l.MaxDistance)
	case scene.LightSpot:
		cam.SetPerspective(l.ConeAngle*2, 1, ShadowNear, l.MaxDistance)
	}
	cam.LookAt(pos, pos.Add(front), up)
}

package scene

import (
	"render-pipeline/math"
)

// Scene is the flat list of entities plus the global shading parameters
// the frame pipeline reads (background, ambient) and the main camera.
type Scene struct {
	Filename        string
	BackgroundColor math.Vec3
	AmbientLight    math.Vec3
	MainCamera      *Camera
	Entities        []Entity
}

func NewScene() *Scene {
	cam := NewCamera()
	cam.SetPerspective(45, 16.0/9.0, 1, 10000)
	return &Scene{
		Entities:   make([]Entity, 0),
		MainCamera: cam,
	}
}

func (s *Scene) AddEntity(e Entity) {
	s.Entities = append(s.Entities, e)
}

func (s *Scene) RemoveEntity(e Entity) {
	for i, ent := range s.Entities {
		if ent == e {
			s.Entities = append(s.Entities[:i], s.Entities[i+1:]...)
			return
		}
	}
}

// Clear drops every entity, releasing light-owned shadow images.
func (s *Scene) Clear() {
	for _, e := range s.Entities {
		if l, ok := e.(*Light); ok {
			l.ReleaseShadow()
		}
	}
	s.Entities = s.Entities[:0]
}

// Find returns the first entity with the given name.
func (s *Scene) Find(name string) Entity {
	for _, e := range s.Entities {
		if e.Base().Name == name {
			return e
		}
	}
	return nil
}

// Lights returns every light entity regardless of visibility.
func (s *Scene) Lights() []*Light {
	var out []*Light
	for _, e := range s.Entities {
		if l, ok := e.(*Light); ok {
			out = append(out, l)
		}
	}
	return out
}

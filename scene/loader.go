package scene

import (
	"encoding/json"
	"fmt"
	"io"
	stdmath "math"
	"os"
	"strings"

	"github.com/pkg/errors"

	"render-pipeline/math"
)

// ErrUnknownEntity is returned by NewEntity for an unrecognised type string.
var ErrUnknownEntity = errors.New("unknown entity type")

// ── JSON data structures ──────────────────────────────────────────────────────

type vec3JSON [3]float32

func (v vec3JSON) vec() math.Vec3 { return math.Vec3{X: v[0], Y: v[1], Z: v[2]} }

type entityJSON struct {
	Type     string      `json:"type"`
	Name     string      `json:"name"`
	Visible  *bool       `json:"visible"`
	Position *vec3JSON   `json:"position"`
	Angle    *float32    `json:"angle"`
	Rotation *[4]float32 `json:"rotation"`
	Target   *vec3JSON   `json:"target"`
	Scale    *vec3JSON   `json:"scale"`

	// PREFAB
	Filename string `json:"filename"`

	// LIGHT
	Color       *vec3JSON `json:"color"`
	Intensity   *float32  `json:"intensity"`
	LightType   string    `json:"light_type"`
	MaxDist     *float32  `json:"max_dist"`
	ConeAngle   *float32  `json:"cone_angle"`
	ConeExp     *float32  `json:"cone_exp"`
	AreaSize    *float32  `json:"area_size"`
	CastShadows bool      `json:"cast_shadows"`
	ShadowBias  *float32  `json:"shadow_bias"`

	// DECAL
	Texture string `json:"texture"`
}

type sceneJSON struct {
	BackgroundColor *vec3JSON    `json:"background_color"`
	AmbientLight    *vec3JSON    `json:"ambient_light"`
	CameraPosition  *vec3JSON    `json:"camera_position"`
	CameraTarget    *vec3JSON    `json:"camera_target"`
	CameraFOV       *float32     `json:"camera_fov"`
	Entities        []entityJSON `json:"entities"`
}

// ── Load ──────────────────────────────────────────────────────────────────────

// LoadScene reads a JSON scene descriptor. Prefab filenames and decal
// textures are resolved through assets; entities whose assets fail to load
// are kept with a nil reference so the renderer skips them.
func LoadScene(path string, assets *Assets) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open scene %q", path)
	}
	defer f.Close()

	fmt.Printf(" + Reading scene JSON: %s\n", path)
	s, err := DecodeScene(f, assets)
	if err != nil {
		return nil, errors.Wrapf(err, "scene %q", path)
	}
	s.Filename = path
	return s, nil
}

// DecodeScene parses a scene descriptor from r.
func DecodeScene(r io.Reader, assets *Assets) (*Scene, error) {
	var sj sceneJSON
	if err := json.NewDecoder(r).Decode(&sj); err != nil {
		return nil, errors.Wrap(err, "parse json")
	}

	s := NewScene()
	if sj.BackgroundColor != nil {
		s.BackgroundColor = sj.BackgroundColor.vec()
	}
	if sj.AmbientLight != nil {
		s.AmbientLight = sj.AmbientLight.vec()
	}
	cam := s.MainCamera
	eye, center := cam.Eye, cam.Center
	if sj.CameraPosition != nil {
		eye = sj.CameraPosition.vec()
	}
	if sj.CameraTarget != nil {
		center = sj.CameraTarget.vec()
	}
	cam.LookAt(eye, center, math.Vec3Up)
	if sj.CameraFOV != nil {
		cam.SetPerspective(*sj.CameraFOV, cam.Aspect, cam.Near, cam.Far)
	}

	for i := range sj.Entities {
		ej := &sj.Entities[i]
		ent, err := NewEntity(ej.Type, ej.Name)
		if err != nil {
			fmt.Printf(" - ENTITY TYPE UNKNOWN: %q (%v)\n", ej.Type, err)
			continue
		}
		b := ent.Base()
		if ej.Visible != nil {
			b.Visible = *ej.Visible
		}
		b.Model = ej.model()
		configureEntity(ent, ej, assets)
		s.AddEntity(ent)
	}
	return s, nil
}

// NewEntity creates an empty entity for a descriptor type string.
func NewEntity(kind, name string) (Entity, error) {
	switch strings.ToUpper(kind) {
	case "PREFAB":
		return NewPrefabEntity(name, nil), nil
	case "LIGHT":
		return NewLight(name, LightPoint), nil
	case "DECAL":
		return NewDecal(name, nil), nil
	case "REFLECTION_PROBE":
		return NewReflectionProbe(name), nil
	}
	return nil, errors.Wrap(ErrUnknownEntity, kind)
}

// model composes the transform keys in the order the format defines them:
// translation, then yaw angle, then quaternion, then target, then scale,
// each applied in the entity's local frame.
func (ej *entityJSON) model() math.Mat4 {
	m := math.Mat4Identity()
	if ej.Position != nil {
		m = math.Mat4Translation(ej.Position.vec())
	}
	if ej.Angle != nil {
		rad := float64(*ej.Angle) * stdmath.Pi / 180
		m = math.QuaternionFromAxisAngle(math.Vec3Up, float32(rad)).ToMat4().Mul(m)
	}
	if ej.Rotation != nil {
		r := *ej.Rotation
		q := math.Quaternion{X: r[0], Y: r[1], Z: r[2], W: r[3]}.Normalize()
		m = q.ToMat4().Mul(m)
	}
	if ej.Target != nil {
		pos := m.GetTranslation()
		front := ej.Target.vec().Sub(pos)
		if front.LengthSqr() > 0 {
			m = math.Mat4FromFront(pos, front, m.RotateVector(math.Vec3Up))
		}
	}
	if ej.Scale != nil {
		m = math.Mat4Scale(ej.Scale.vec()).Mul(m)
	}
	return m
}

func configureEntity(ent Entity, ej *entityJSON, assets *Assets) {
	switch e := ent.(type) {
	case *PrefabEntity:
		e.Filename = ej.Filename
		if ej.Filename == "" || assets == nil {
			return
		}
		p, err := assets.Prefab(ej.Filename)
		if err != nil {
			fmt.Printf(" - prefab %q: %v\n", ej.Filename, err)
			return
		}
		e.Prefab = p

	case *Light:
		if ej.Color != nil {
			e.Color = ej.Color.vec()
		}
		setFloat(&e.Intensity, ej.Intensity)
		switch strings.ToUpper(ej.LightType) {
		case "POINT":
			e.LightType = LightPoint
		case "SPOT":
			e.LightType = LightSpot
		case "DIRECTIONAL":
			e.LightType = LightDirectional
		}
		setFloat(&e.MaxDistance, ej.MaxDist)
		setFloat(&e.ConeAngle, ej.ConeAngle)
		setFloat(&e.ConeExp, ej.ConeExp)
		setFloat(&e.AreaSize, ej.AreaSize)
		if ej.Target != nil {
			e.Target = ej.Target.vec()
		}
		e.CastShadows = ej.CastShadows
		setFloat(&e.ShadowBias, ej.ShadowBias)

	case *Decal:
		e.TextureName = ej.Texture
		if ej.Texture == "" || assets == nil {
			return
		}
		tex, err := assets.Texture(ej.Texture)
		if err != nil {
			fmt.Printf(" - decal texture %q: %v\n", ej.Texture, err)
			return
		}
		e.Texture = tex
	}
}

func setFloat(dst *float32, src *float32) {
	if src != nil {
		*dst = *src
	}
}

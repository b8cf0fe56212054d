package scene

import (
	"github.com/google/uuid"

	"render-pipeline/math"
)

// EntityKind tags the concrete variant behind an Entity.
type EntityKind int

const (
	KindPrefab EntityKind = iota
	KindLight
	KindDecal
	KindReflectionProbe
)

func (k EntityKind) String() string {
	switch k {
	case KindPrefab:
		return "PREFAB"
	case KindLight:
		return "LIGHT"
	case KindDecal:
		return "DECAL"
	case KindReflectionProbe:
		return "REFLECTION_PROBE"
	}
	return "UNKNOWN"
}

// Entity is anything placed in a scene. The renderer reads Base().Model
// during a frame and never writes it.
type Entity interface {
	Base() *BaseEntity
	Kind() EntityKind
}

// BaseEntity carries the fields shared by every entity variant.
type BaseEntity struct {
	ID      uuid.UUID
	Name    string
	Visible bool
	Model   math.Mat4
}

func newBaseEntity(name string) BaseEntity {
	return BaseEntity{
		ID:      uuid.New(),
		Name:    name,
		Visible: true,
		Model:   math.Mat4Identity(),
	}
}

func (b *BaseEntity) Base() *BaseEntity { return b }

// Position is the translation part of the model matrix.
func (b *BaseEntity) Position() math.Vec3 {
	return b.Model.GetTranslation()
}

func (b *BaseEntity) SetPosition(p math.Vec3) {
	b.Model[3][0], b.Model[3][1], b.Model[3][2] = p.X, p.Y, p.Z
}

// Forward is the model's local -Z axis in world space.
func (b *BaseEntity) Forward() math.Vec3 {
	return b.Model.RotateVector(math.Vec3Back).Normalize()
}

// LookAt orients the model so its forward axis points at target, keeping
// position and discarding scale.
func (b *BaseEntity) LookAt(target math.Vec3) {
	pos := b.Position()
	front := target.Sub(pos)
	if front.LengthSqr() == 0 {
		return
	}
	b.Model = math.Mat4FromFront(pos, front.Normalize(), math.Vec3Up)
}

// PrefabEntity places a shared Prefab in the world.
type PrefabEntity struct {
	BaseEntity
	Filename string
	Prefab   *Prefab
}

func NewPrefabEntity(name string, prefab *Prefab) *PrefabEntity {
	return &PrefabEntity{BaseEntity: newBaseEntity(name), Prefab: prefab}
}

func (e *PrefabEntity) Kind() EntityKind { return KindPrefab }

// Decal projects a texture onto opaque geometry inside the volume that
// Model maps from the [-1,1] cube.
type Decal struct {
	BaseEntity
	TextureName string
	Texture     *Texture
}

func NewDecal(name string, tex *Texture) *Decal {
	d := &Decal{BaseEntity: newBaseEntity(name), Texture: tex}
	if tex != nil {
		d.TextureName = tex.Name
	}
	return d
}

func (d *Decal) Kind() EntityKind { return KindDecal }

// Contains reports whether the world point p lies inside the decal volume.
func (d *Decal) Contains(p math.Vec3) bool {
	local := d.Model.Inverse().MulVec3(p)
	const eps = 1e-5
	return absf(local.X) <= 1+eps && absf(local.Y) <= 1+eps && absf(local.Z) <= 1+eps
}

// ReflectionProbe marks a capture point for specular reflections. It is
// collected per frame but not yet consumed by any pass.
type ReflectionProbe struct {
	BaseEntity
	Texture *Texture
}

func NewReflectionProbe(name string) *ReflectionProbe {
	return &ReflectionProbe{BaseEntity: newBaseEntity(name)}
}

func (r *ReflectionProbe) Kind() EntityKind { return KindReflectionProbe }

package scene

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"render-pipeline/core"
)

// Assets caches prefabs and textures by name. Names are resolved relative
// to DataDir; names starting with '@' select a built-in primitive.
type Assets struct {
	DataDir  string
	prefabs  map[string]*Prefab
	textures map[string]*Texture
}

func NewAssets(dataDir string) *Assets {
	return &Assets{
		DataDir:  dataDir,
		prefabs:  make(map[string]*Prefab),
		textures: make(map[string]*Texture),
	}
}

func (a *Assets) resolve(name string) string {
	if filepath.IsAbs(name) || a.DataDir == "" {
		return name
	}
	return filepath.Join(a.DataDir, name)
}

// Prefab returns the cached prefab for name, loading it on first use.
func (a *Assets) Prefab(name string) (*Prefab, error) {
	if p, ok := a.prefabs[name]; ok {
		return p, nil
	}

	var (
		p   *Prefab
		err error
	)
	switch {
	case strings.HasPrefix(name, "@"):
		p, err = builtinPrefab(name)
	default:
		path := a.resolve(name)
		switch strings.ToLower(filepath.Ext(path)) {
		case ".gltf", ".glb":
			p, err = LoadPrefabGLTF(path)
		case ".obj":
			p, err = LoadPrefabOBJ(path)
		default:
			err = errors.Errorf("unsupported prefab format %q", name)
		}
	}
	if err != nil {
		return nil, err
	}
	a.prefabs[name] = p
	return p, nil
}

// Texture returns the cached texture for name, loading it on first use.
func (a *Assets) Texture(name string) (*Texture, error) {
	if t, ok := a.textures[name]; ok {
		return t, nil
	}
	t, err := LoadTexture(a.resolve(name))
	if err != nil {
		return nil, err
	}
	a.textures[name] = t
	return t, nil
}

func builtinPrefab(name string) (*Prefab, error) {
	mat := DefaultMaterial()
	switch name {
	case "@cube":
		return NewMeshPrefab(name, CreateCube(1), mat), nil
	case "@sphere":
		return NewMeshPrefab(name, CreateSphere(0.5, 32, 16), mat), nil
	case "@plane":
		mat.BaseColor = core.Color{R: 0.8, G: 0.8, B: 0.8, A: 1}
		return NewMeshPrefab(name, CreatePlane(1, 1, 1), mat), nil
	case "@quad":
		mat.TwoSided = true
		return NewMeshPrefab(name, CreateQuad(), mat), nil
	}
	return nil, errors.Errorf("unknown built-in prefab %q", name)
}

package scene

import "render-pipeline/math"

// Prefab is a reusable node tree shared by any number of PrefabEntity
// instances. Frames never own prefabs.
type Prefab struct {
	Name string
	Root *Node
}

func NewPrefab(name string, root *Node) *Prefab {
	if root == nil {
		root = NewNode(name)
	}
	return &Prefab{Name: name, Root: root}
}

// NewMeshPrefab wraps a single mesh and material in a one-node prefab.
func NewMeshPrefab(name string, mesh *Mesh, mat *Material) *Prefab {
	root := NewNode(name)
	root.Mesh = mesh
	root.Material = mat
	return NewPrefab(name, root)
}

// Bounds returns the union of every node's mesh box under model.
func (p *Prefab) Bounds(model math.Mat4) (AABB, bool) {
	var box AABB
	found := false
	p.Root.Traverse(func(n *Node) {
		if n.Mesh.Empty() {
			return
		}
		b := ComputeAABB(n.Mesh, n.GlobalMatrix().Mul(model))
		if !found {
			box, found = b, true
			return
		}
		box = box.Union(b)
	})
	return box, found
}

// Textures lists the distinct textures referenced by the prefab's materials.
func (p *Prefab) Textures() []*Texture {
	seen := make(map[*Texture]bool)
	var out []*Texture
	p.Root.Traverse(func(n *Node) {
		if n.Material == nil {
			return
		}
		for _, t := range n.Material.Textures() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	})
	return out
}

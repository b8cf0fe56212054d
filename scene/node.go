package scene

import (
	"render-pipeline/core"
	"render-pipeline/math"
)

// Node is one element of a prefab tree.
type Node struct {
	Name      string
	Transform core.Transform
	Parent    *Node
	Children  []*Node
	Mesh      *Mesh
	Material  *Material
	Visible   bool

	// Cached global transform relative to the prefab root.
	globalDirty bool
	global      math.Mat4
}

func NewNode(name string) *Node {
	return &Node{
		Name:        name,
		Transform:   core.NewTransform(),
		Children:    make([]*Node, 0),
		Visible:     true,
		globalDirty: true,
	}
}

func (n *Node) AddChild(child *Node) {
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
	child.MarkDirty()
}

func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			child.MarkDirty()
			return
		}
	}
}

// GlobalMatrix is local · parent · ... · root, in row-vector order.
func (n *Node) GlobalMatrix() math.Mat4 {
	if n.globalDirty {
		local := n.Transform.GetMatrix()
		if n.Parent != nil {
			n.global = local.Mul(n.Parent.GlobalMatrix())
		} else {
			n.global = local
		}
		n.globalDirty = false
	}
	return n.global
}

// MarkDirty invalidates the cached global matrix of n and its subtree.
func (n *Node) MarkDirty() {
	n.globalDirty = true
	for _, child := range n.Children {
		child.MarkDirty()
	}
}

func (n *Node) SetPosition(pos math.Vec3) {
	n.Transform.Position = pos
	n.MarkDirty()
}

func (n *Node) SetRotation(rot math.Quaternion) {
	n.Transform.Rotation = rot
	n.MarkDirty()
}

func (n *Node) SetScale(scale math.Vec3) {
	n.Transform.Scale = scale
	n.MarkDirty()
}

func (n *Node) SetTransform(t core.Transform) {
	n.Transform = t
	n.MarkDirty()
}

// Traverse visits all nodes in the graph
func (n *Node) Traverse(callback func(*Node)) {
	callback(n)
	for _, child := range n.Children {
		child.Traverse(callback)
	}
}

// Find finds a node by name
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

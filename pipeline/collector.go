// Package pipeline holds the GPU-independent half of the frame pipeline:
// render-call collection, ordering, culling, shadow ownership, light
// packing, pass planning and the post-processing plan. The OpenGL backend
// executes what this package decides.
package pipeline

import (
	"render-pipeline/math"
	"render-pipeline/scene"
)

// BlendDistanceBias is added to the camera distance of BLEND draws so they
// sort after every opaque and masked draw.
const BlendDistanceBias = 1e6

// RenderCall is one draw of one mesh with one material.
type RenderCall struct {
	Mesh        *scene.Mesh
	Material    *scene.Material
	Model       math.Mat4
	WorldBounds scene.AABB
	Distance    float32
	// Order is the emission index, used as the stable tie-break.
	Order int
}

// Blended reports whether the call belongs to the transparent group.
func (rc *RenderCall) Blended() bool {
	return rc.Material.IsBlended()
}

// Frame is everything the collector extracted for one frame.
type Frame struct {
	Calls            []RenderCall
	Lights           []*scene.Light
	DirectLight      *scene.Light
	Decals           []*scene.Decal
	ReflectionProbes []*scene.ReflectionProbe
}

// Collector walks a scene and fills a Frame. The frame's slices are reused
// between calls to avoid per-frame allocation.
type Collector struct {
	frame Frame
}

func NewCollector() *Collector {
	return &Collector{}
}

// Collect extracts render calls, lights, decals and probes from sc. eye is
// the position distances are measured from.
func (c *Collector) Collect(sc *scene.Scene, eye math.Vec3) *Frame {
	f := &c.frame
	f.Calls = f.Calls[:0]
	f.Lights = f.Lights[:0]
	f.Decals = f.Decals[:0]
	f.ReflectionProbes = f.ReflectionProbes[:0]
	f.DirectLight = nil

	if sc == nil {
		return f
	}

	for _, ent := range sc.Entities {
		if !ent.Base().Visible {
			continue
		}
		switch e := ent.(type) {
		case *scene.PrefabEntity:
			if e.Prefab != nil && e.Prefab.Root != nil {
				c.collectNode(e.Prefab.Root, e.Model, eye)
			}
		case *scene.Light:
			f.Lights = append(f.Lights, e)
			if e.LightType == scene.LightDirectional && f.DirectLight == nil {
				f.DirectLight = e
			}
		case *scene.Decal:
			f.Decals = append(f.Decals, e)
		case *scene.ReflectionProbe:
			f.ReflectionProbes = append(f.ReflectionProbes, e)
		}
	}
	return f
}

func (c *Collector) collectNode(node *scene.Node, prefabModel math.Mat4, eye math.Vec3) {
	if !node.Visible {
		return
	}

	if !node.Mesh.Empty() && node.Material != nil {
		model := node.GlobalMatrix().Mul(prefabModel)
		dist := model.GetTranslation().Distance(eye)
		if node.Material.IsBlended() {
			dist += BlendDistanceBias
		}
		c.frame.Calls = append(c.frame.Calls, RenderCall{
			Mesh:        node.Mesh,
			Material:    node.Material,
			Model:       model,
			WorldBounds: scene.ComputeAABB(node.Mesh, model),
			Distance:    dist,
			Order:       len(c.frame.Calls),
		})
	}

	for _, child := range node.Children {
		c.collectNode(child, prefabModel, eye)
	}
}

package opengl

import (
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"render-pipeline/core"
	"render-pipeline/scene"
)

// GPUMesh holds the OpenGL buffer objects for an uploaded mesh.
type GPUMesh struct {
	VAO         uint32
	VBO         uint32
	EBO         uint32
	IndexCount  int32
	VertexCount int32
	HasIndices  bool
}

func (g *GPUMesh) draw() {
	gl.BindVertexArray(g.VAO)
	if g.HasIndices {
		gl.DrawElements(gl.TRIANGLES, g.IndexCount, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, g.VertexCount)
	}
	gl.BindVertexArray(0)
}

// meshCache uploads meshes on first use and keeps them until released.
type meshCache struct {
	meshes map[*scene.Mesh]*GPUMesh
}

func newMeshCache() *meshCache {
	return &meshCache{meshes: make(map[*scene.Mesh]*GPUMesh)}
}

// get uploads vertex/index data if not already done. Empty meshes yield nil.
func (c *meshCache) get(mesh *scene.Mesh) *GPUMesh {
	if gpu, ok := c.meshes[mesh]; ok {
		return gpu
	}
	if mesh.Empty() {
		return nil
	}

	stride := int32(unsafe.Sizeof(core.Vertex{}))

	gpu := &GPUMesh{
		IndexCount:  int32(len(mesh.Indices)),
		VertexCount: int32(len(mesh.Vertices)),
		HasIndices:  len(mesh.Indices) > 0,
	}

	gl.GenVertexArrays(1, &gpu.VAO)
	gl.GenBuffers(1, &gpu.VBO)
	gl.BindVertexArray(gpu.VAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.VBO)
	gl.BufferData(gl.ARRAY_BUFFER,
		len(mesh.Vertices)*int(stride),
		gl.Ptr(mesh.Vertices),
		gl.STATIC_DRAW)

	var v core.Vertex
	attribs := []struct {
		size   int32
		offset uintptr
	}{
		{3, unsafe.Offsetof(v.Position)},
		{3, unsafe.Offsetof(v.Normal)},
		{2, unsafe.Offsetof(v.UV)},
		{4, unsafe.Offsetof(v.Color)},
		{3, unsafe.Offsetof(v.Tangent)},
	}
	for i, a := range attribs {
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointer(uint32(i), a.size, gl.FLOAT, false, stride, gl.PtrOffset(int(a.offset)))
	}

	if gpu.HasIndices {
		gl.GenBuffers(1, &gpu.EBO)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.EBO)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER,
			len(mesh.Indices)*4,
			gl.Ptr(mesh.Indices),
			gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)

	c.meshes[mesh] = gpu
	mesh.GPUData = gpu
	return gpu
}

// draw uploads mesh if needed and issues its draw call. It reports false
// for meshes with nothing to draw.
func (c *meshCache) draw(mesh *scene.Mesh) bool {
	gpu := c.get(mesh)
	if gpu == nil {
		return false
	}
	gpu.draw()
	return true
}

// release frees the GPU buffers of one mesh.
func (c *meshCache) release(mesh *scene.Mesh) {
	gpu, ok := c.meshes[mesh]
	if !ok {
		return
	}
	deleteGPUMesh(gpu)
	delete(c.meshes, mesh)
	mesh.GPUData = nil
}

func (c *meshCache) destroy() {
	for mesh, gpu := range c.meshes {
		deleteGPUMesh(gpu)
		mesh.GPUData = nil
	}
	c.meshes = make(map[*scene.Mesh]*GPUMesh)
}

func deleteGPUMesh(gpu *GPUMesh) {
	gl.DeleteVertexArrays(1, &gpu.VAO)
	gl.DeleteBuffers(1, &gpu.VBO)
	if gpu.EBO != 0 {
		gl.DeleteBuffers(1, &gpu.EBO)
	}
}

package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// Framebuffer is an off-screen render target with any number of color
// textures and an optional sampleable depth texture. Its storage follows
// the screen: Ensure reallocates it when the size changes.
type Framebuffer struct {
	Name   string
	FBO    uint32
	Color  []uint32
	Depth  uint32
	Width  int32
	Height int32

	formats []texFormat
	depth   bool
}

func newFramebuffer(name string, colors []texFormat, depth bool) *Framebuffer {
	return &Framebuffer{Name: name, formats: colors, depth: depth}
}

// Ensure makes the storage match width×height, allocating on first use.
// It reports whether the framebuffer was (re)allocated.
func (f *Framebuffer) Ensure(width, height int) bool {
	if f.FBO != 0 && f.Width == int32(width) && f.Height == int32(height) {
		return false
	}
	f.free()
	f.alloc(width, height)
	return true
}

func (f *Framebuffer) alloc(width, height int) {
	f.Width = int32(width)
	f.Height = int32(height)

	gl.GenFramebuffers(1, &f.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.FBO)

	f.Color = make([]uint32, len(f.formats))
	buffers := make([]uint32, len(f.formats))
	for i, format := range f.formats {
		f.Color[i] = newTexture2D(f.Width, f.Height, format, gl.LINEAR)
		buffers[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, buffers[i], gl.TEXTURE_2D, f.Color[i], 0)
	}
	if len(buffers) > 0 {
		gl.DrawBuffers(int32(len(buffers)), &buffers[0])
	} else {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	if f.depth {
		f.Depth = newTexture2D(f.Width, f.Height, formatDepth, gl.NEAREST)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, f.Depth, 0)
	}

	if s := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); s != gl.FRAMEBUFFER_COMPLETE {
		fmt.Printf("WARNING: %s FBO incomplete (0x%X)\n", f.Name, s)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (f *Framebuffer) free() {
	if f.FBO != 0 {
		gl.DeleteFramebuffers(1, &f.FBO)
		f.FBO = 0
	}
	for i := range f.Color {
		deleteTexture(&f.Color[i])
	}
	f.Color = nil
	deleteTexture(&f.Depth)
}

// Bind makes f the draw target and sets the viewport to cover it.
func (f *Framebuffer) Bind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.FBO)
	gl.Viewport(0, 0, f.Width, f.Height)
}

// Destroy frees all GPU resources owned by this framebuffer.
func (f *Framebuffer) Destroy() {
	f.free()
}

// CopyTo copies every color attachment and the depth of f into dst, which
// must have the same layout and size.
func (f *Framebuffer) CopyTo(dst *Framebuffer) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, f.FBO)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, dst.FBO)
	for i := range f.Color {
		if i >= len(dst.Color) {
			break
		}
		attachment := gl.COLOR_ATTACHMENT0 + uint32(i)
		gl.ReadBuffer(attachment)
		gl.DrawBuffer(attachment)
		gl.BlitFramebuffer(0, 0, f.Width, f.Height, 0, 0, dst.Width, dst.Height, gl.COLOR_BUFFER_BIT, gl.NEAREST)
	}
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	if f.depth && dst.depth {
		f.BlitDepthTo(dst)
	}
	dst.restoreDrawBuffers()
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

// BlitDepthTo copies the depth of f into dst.
func (f *Framebuffer) BlitDepthTo(dst *Framebuffer) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, f.FBO)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, dst.FBO)
	gl.BlitFramebuffer(0, 0, f.Width, f.Height, 0, 0, dst.Width, dst.Height, gl.DEPTH_BUFFER_BIT, gl.NEAREST)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (f *Framebuffer) restoreDrawBuffers() {
	if len(f.Color) == 0 {
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.FBO)
	buffers := make([]uint32, len(f.Color))
	for i := range buffers {
		buffers[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
	}
	gl.DrawBuffers(int32(len(buffers)), &buffers[0])
}

// bindScreen makes the default framebuffer the draw target.
func bindScreen(width, height int32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, width, height)
}

package opengl

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/pkg/errors"

	"render-pipeline/scene"
)

// UploadTexture uploads a scene.Texture to the GPU and sets its GLID field.
// Call this from the main goroutine (OpenGL context must be current).
func UploadTexture(tex *scene.Texture) error {
	if tex == nil {
		return errors.New("nil texture")
	}
	if len(tex.Pixels) < tex.Width*tex.Height*4 || tex.Width == 0 || tex.Height == 0 {
		return errors.Errorf("texture %q has no pixel data", tex.Name)
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA,
		int32(tex.Width),
		int32(tex.Height),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		unsafe.Pointer(&tex.Pixels[0]),
	)
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.BindTexture(gl.TEXTURE_2D, 0)

	tex.GLID = id
	return nil
}

// DeleteTexture frees a previously uploaded GPU texture and zeroes its GLID.
func DeleteTexture(tex *scene.Texture) {
	if tex == nil || tex.GLID == 0 {
		return
	}
	gl.DeleteTextures(1, &tex.GLID)
	tex.GLID = 0
}

// textureCache uploads material and decal textures on first use. A texture
// that fails to upload is reported once and then treated as missing.
type textureCache struct {
	uploaded map[*scene.Texture]bool
	failed   map[*scene.Texture]bool
}

func newTextureCache() *textureCache {
	return &textureCache{
		uploaded: make(map[*scene.Texture]bool),
		failed:   make(map[*scene.Texture]bool),
	}
}

// id returns the GL name of tex, or 0 when it is nil or unusable.
func (c *textureCache) id(tex *scene.Texture) uint32 {
	if tex == nil || c.failed[tex] {
		return 0
	}
	if tex.GLID != 0 {
		return tex.GLID
	}
	if err := UploadTexture(tex); err != nil {
		fmt.Printf("WARNING: %v\n", err)
		c.failed[tex] = true
		return 0
	}
	c.uploaded[tex] = true
	return tex.GLID
}

// orWhite returns the GL name of tex, falling back to the white texture.
func (c *textureCache) orWhite(tex *scene.Texture) uint32 {
	if id := c.id(tex); id != 0 {
		return id
	}
	return c.id(scene.WhiteTexture())
}

func (c *textureCache) destroy() {
	for tex := range c.uploaded {
		DeleteTexture(tex)
	}
	c.uploaded = make(map[*scene.Texture]bool)
	c.failed = make(map[*scene.Texture]bool)
}

// texFormat is the storage of a render-target texture.
type texFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

var (
	formatRGBA8  = texFormat{gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE}
	formatRGB8   = texFormat{gl.RGB8, gl.RGB, gl.UNSIGNED_BYTE}
	formatRGB16F = texFormat{gl.RGB16F, gl.RGB, gl.FLOAT}
	formatRGB32F = texFormat{gl.RGB32F, gl.RGB, gl.FLOAT}
	formatDepth  = texFormat{gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT}
)

// newTexture2D allocates an uninitialised clamped texture.
func newTexture2D(width, height int32, f texFormat, filter int32) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, f.internal, width, height, 0, f.format, f.xtype, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id
}

// uploadFloatTexture creates or replaces an RGB32F texture with nearest
// filtering from tightly packed RGB floats.
func uploadFloatTexture(id *uint32, width, height int, data []float32) error {
	if width <= 0 || height <= 0 || len(data) < width*height*3 {
		return errors.Errorf("float texture %dx%d needs %d values, got %d", width, height, width*height*3, len(data))
	}
	if *id == 0 {
		gl.GenTextures(1, id)
	}
	gl.BindTexture(gl.TEXTURE_2D, *id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGB32F, int32(width), int32(height), 0, gl.RGB, gl.FLOAT, gl.Ptr(data))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func deleteTexture(id *uint32) {
	if *id != 0 {
		gl.DeleteTextures(1, id)
		*id = 0
	}
}

package core

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

func init() {
	// GL calls must stay on the thread that owns the context.
	runtime.LockOSThread()
}

type Window struct {
	Handle *glfw.Window
	Width  int
	Height int
	Title  string

	resized  bool
	pressed  map[int]bool
	onScroll ScrollCallback
}

type WindowConfig struct {
	Width      int
	Height     int
	Title      string
	Resizable  bool
	VSync      bool
	Fullscreen bool
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Width:      1280,
		Height:     720,
		Title:      "Scene Viewer",
		Resizable:  true,
		VSync:      true,
		Fullscreen: false,
	}
}

// NewWindow opens a window with a current OpenGL 4.1 core context.
func NewWindow(config WindowConfig) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize GLFW")
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))

	monitor := (*glfw.Monitor)(nil)
	if config.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "failed to create window")
	}
	handle.MakeContextCurrent()
	if config.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	fbw, fbh := handle.GetFramebufferSize()
	window := &Window{
		Handle:  handle,
		Width:   fbw,
		Height:  fbh,
		Title:   config.Title,
		pressed: make(map[int]bool),
	}

	handle.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		window.Width = width
		window.Height = height
		window.resized = true
	})
	handle.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press {
			window.pressed[int(key)] = true
		}
	})
	handle.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		if window.onScroll != nil {
			window.onScroll(xoff, yoff)
		}
	})

	return window, nil
}

func (w *Window) ShouldClose() bool {
	return w.Handle.ShouldClose()
}

func (w *Window) SetShouldClose(v bool) {
	w.Handle.SetShouldClose(v)
}

func (w *Window) PollEvents() {
	glfw.PollEvents()
}

func (w *Window) SwapBuffers() {
	w.Handle.SwapBuffers()
}

// ConsumeResize reports whether the framebuffer changed size since the last call.
func (w *Window) ConsumeResize() bool {
	r := w.resized
	w.resized = false
	return r
}

// WasPressed reports a key press edge since the last call for that key.
func (w *Window) WasPressed(key int) bool {
	if w.pressed[key] {
		delete(w.pressed, key)
		return true
	}
	return false
}

func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func (w *Window) IsKeyPressed(key int) bool {
	return w.Handle.GetKey(glfw.Key(key)) == glfw.Press
}

func (w *Window) SetTitle(title string) {
	w.Handle.SetTitle(title)
	w.Title = title
}

func (w *Window) IsMouseButtonPressed(button int) bool {
	return w.Handle.GetMouseButton(glfw.MouseButton(button)) == glfw.Press
}

func (w *Window) GetCursorPos() (float64, float64) {
	return w.Handle.GetCursorPos()
}

// Time returns seconds since GLFW was initialised.
func (w *Window) Time() float64 {
	return glfw.GetTime()
}

// ScrollCallback is the type for scroll event handlers
type ScrollCallback func(xoff, yoff float64)

func (w *Window) SetScrollCallback(cb ScrollCallback) {
	w.onScroll = cb
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const (
	MouseButtonLeft  = int(glfw.MouseButtonLeft)
	MouseButtonRight = int(glfw.MouseButtonRight)
)

const (
	Key1          = int(glfw.Key1)
	Key2          = int(glfw.Key2)
	Key3          = int(glfw.Key3)
	Key4          = int(glfw.Key4)
	Key5          = int(glfw.Key5)
	KeyA          = int(glfw.KeyA)
	KeyC          = int(glfw.KeyC)
	KeyD          = int(glfw.KeyD)
	KeyE          = int(glfw.KeyE)
	KeyF          = int(glfw.KeyF)
	KeyG          = int(glfw.KeyG)
	KeyI          = int(glfw.KeyI)
	KeyL          = int(glfw.KeyL)
	KeyN          = int(glfw.KeyN)
	KeyO          = int(glfw.KeyO)
	KeyP          = int(glfw.KeyP)
	KeyQ          = int(glfw.KeyQ)
	KeyR          = int(glfw.KeyR)
	KeyS          = int(glfw.KeyS)
	KeyV          = int(glfw.KeyV)
	KeyW          = int(glfw.KeyW)
	KeyEscape     = int(glfw.KeyEscape)
	KeyF5         = int(glfw.KeyF5)
	KeyF9         = int(glfw.KeyF9)
	KeyLeftShift  = int(glfw.KeyLeftShift)
	KeyRight      = int(glfw.KeyRight)
	KeyLeft       = int(glfw.KeyLeft)
	KeyDown       = int(glfw.KeyDown)
	KeyUp         = int(glfw.KeyUp)
	KeyPageUp     = int(glfw.KeyPageUp)
	KeyPageDown   = int(glfw.KeyPageDown)
)

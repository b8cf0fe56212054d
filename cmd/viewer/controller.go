package main

import (
	"render-pipeline/core"
	"render-pipeline/math"
	"render-pipeline/scene"
)

// CameraController flies the camera with the keyboard and turns it with a
// right-mouse drag.
type CameraController struct {
	moveSpeed  float32
	fastFactor float32
	turnSpeed  float32
	lookSpeed  float32

	lastMouseX float64
	lastMouseY float64
	firstMouse bool
}

func NewCameraController() *CameraController {
	return &CameraController{
		moveSpeed:  50,
		fastFactor: 10,
		turnSpeed:  1.5,
		lookSpeed:  0.005,
		firstMouse: true,
	}
}

func (cc *CameraController) Update(window *core.Window, camera *scene.Camera, deltaTime float32) {
	// Cap deltaTime so a hitch does not teleport the camera
	if deltaTime > 0.1 {
		deltaTime = 0.1
	}

	// Mouse look (right mouse drag)
	if window.IsMouseButtonPressed(core.MouseButtonRight) {
		mouseX, mouseY := window.GetCursorPos()
		if cc.firstMouse {
			cc.lastMouseX = mouseX
			cc.lastMouseY = mouseY
			cc.firstMouse = false
		}
		dx := float32(mouseX-cc.lastMouseX) * cc.lookSpeed
		dy := float32(mouseY-cc.lastMouseY) * cc.lookSpeed
		camera.Rotate(-dx, math.Vec3Up)
		camera.Rotate(-dy, camera.Right())
		cc.lastMouseX = mouseX
		cc.lastMouseY = mouseY
	} else {
		cc.firstMouse = true
	}

	// Arrow keys turn
	turn := cc.turnSpeed * deltaTime
	if window.IsKeyPressed(core.KeyLeft) {
		camera.Rotate(turn, math.Vec3Up)
	}
	if window.IsKeyPressed(core.KeyRight) {
		camera.Rotate(-turn, math.Vec3Up)
	}
	if window.IsKeyPressed(core.KeyUp) {
		camera.Rotate(turn, camera.Right())
	}
	if window.IsKeyPressed(core.KeyDown) {
		camera.Rotate(-turn, camera.Right())
	}

	speed := cc.moveSpeed * deltaTime
	if window.IsKeyPressed(core.KeyLeftShift) {
		speed *= cc.fastFactor
	}

	// WASD in the view plane, Q/E down/up
	var move math.Vec3
	if window.IsKeyPressed(core.KeyW) {
		move.Z += speed
	}
	if window.IsKeyPressed(core.KeyS) {
		move.Z -= speed
	}
	if window.IsKeyPressed(core.KeyD) {
		move.X += speed
	}
	if window.IsKeyPressed(core.KeyA) {
		move.X -= speed
	}
	if window.IsKeyPressed(core.KeyE) {
		move.Y += speed
	}
	if window.IsKeyPressed(core.KeyQ) {
		move.Y -= speed
	}
	if move != math.Vec3Zero {
		camera.Move(move)
	}
}

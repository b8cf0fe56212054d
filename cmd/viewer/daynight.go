package main

import (
	"fmt"
	stdmath "math"

	"render-pipeline/core"
	"render-pipeline/internal/opengl"
	"render-pipeline/math"
	"render-pipeline/scene"
)

// sunDistance is how far from its target the animated sun is placed, so
// the directional shadow volume still covers the scene.
const sunDistance = 500

// dayPalette holds all the sky/light values for one key time of day.
type dayPalette struct {
	t            float32    // normalised time 0..1
	zenith       core.Color // sky overhead
	horizon      core.Color // sky at eye level
	ground       core.Color // sky/ground below horizon
	sunColor     core.Color
	sunIntensity float32
	ambient      core.Color
}

// palettes defines the key sky/light states throughout the day.
// t is ordered 0→1 and wraps (0 == 1).
var palettes = []dayPalette{
	{ // 0.00: noon
		t:            0.00,
		zenith:       core.Color{R: 0.20, G: 0.42, B: 0.90, A: 1},
		horizon:      core.Color{R: 0.58, G: 0.75, B: 0.95, A: 1},
		ground:       core.Color{R: 0.12, G: 0.10, B: 0.08, A: 1},
		sunColor:     core.Color{R: 1.00, G: 0.98, B: 0.92, A: 1},
		sunIntensity: 1.20,
		ambient:      core.Color{R: 0.16, G: 0.18, B: 0.26, A: 1},
	},
	{ // 0.22: golden hour
		t:            0.22,
		zenith:       core.Color{R: 0.14, G: 0.20, B: 0.60, A: 1},
		horizon:      core.Color{R: 0.90, G: 0.52, B: 0.18, A: 1},
		ground:       core.Color{R: 0.08, G: 0.07, B: 0.06, A: 1},
		sunColor:     core.Color{R: 1.00, G: 0.65, B: 0.25, A: 1},
		sunIntensity: 0.90,
		ambient:      core.Color{R: 0.10, G: 0.12, B: 0.20, A: 1},
	},
	{ // 0.30: dusk
		t:            0.30,
		zenith:       core.Color{R: 0.08, G: 0.10, B: 0.28, A: 1},
		horizon:      core.Color{R: 0.50, G: 0.22, B: 0.28, A: 1},
		ground:       core.Color{R: 0.04, G: 0.03, B: 0.04, A: 1},
		sunColor:     core.Color{R: 0.70, G: 0.40, B: 0.55, A: 1},
		sunIntensity: 0.25,
		ambient:      core.Color{R: 0.06, G: 0.07, B: 0.14, A: 1},
	},
	{ // 0.50: midnight
		t:            0.50,
		zenith:       core.Color{R: 0.02, G: 0.03, B: 0.10, A: 1},
		horizon:      core.Color{R: 0.04, G: 0.04, B: 0.08, A: 1},
		ground:       core.Color{R: 0.01, G: 0.01, B: 0.02, A: 1},
		sunColor:     core.Color{R: 0.40, G: 0.45, B: 0.65, A: 1}, // moonlight
		sunIntensity: 0.12,
		ambient:      core.Color{R: 0.03, G: 0.04, B: 0.09, A: 1},
	},
	{ // 0.78: dawn
		t:            0.78,
		zenith:       core.Color{R: 0.12, G: 0.18, B: 0.55, A: 1},
		horizon:      core.Color{R: 0.88, G: 0.45, B: 0.22, A: 1},
		ground:       core.Color{R: 0.08, G: 0.06, B: 0.05, A: 1},
		sunColor:     core.Color{R: 1.00, G: 0.60, B: 0.28, A: 1},
		sunIntensity: 0.70,
		ambient:      core.Color{R: 0.09, G: 0.10, B: 0.17, A: 1},
	},
}

// DayNight animates the sky gradient, the sun light and the ambient term.
// It is off until toggled so authored scenes keep their own lighting.
type DayNight struct {
	Time   float32 // 0..1: 0=noon, 0.25=sunset, 0.5=midnight, 0.75=sunrise
	Speed  float32 // full-cycle duration in seconds
	Active bool
}

func NewDayNight() *DayNight {
	return &DayNight{Speed: 120}
}

func (dn *DayNight) Update(dt float32) {
	if !dn.Active {
		return
	}
	dn.Time += dt / dn.Speed
	if dn.Time > 1.0 {
		dn.Time -= 1.0
	}
}

func lerpColor(a, b core.Color, t float32) core.Color {
	return core.Color{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: 1,
	}
}

// samplePalette returns the palette interpolated at t (0..1), wrapping from
// the last key back to the first.
func samplePalette(t float32) dayPalette {
	n := len(palettes)
	a, b := palettes[n-1], palettes[0]
	span := 1 - a.t + b.t
	local := t - a.t
	if local < 0 {
		local += 1
	}
	for i := 0; i+1 < n; i++ {
		if t >= palettes[i].t && t < palettes[i+1].t {
			a, b = palettes[i], palettes[i+1]
			span = b.t - a.t
			local = t - a.t
			break
		}
	}
	f := local / span

	return dayPalette{
		zenith:       lerpColor(a.zenith, b.zenith, f),
		horizon:      lerpColor(a.horizon, b.horizon, f),
		ground:       lerpColor(a.ground, b.ground, f),
		sunColor:     lerpColor(a.sunColor, b.sunColor, f),
		sunIntensity: a.sunIntensity + (b.sunIntensity-a.sunIntensity)*f,
		ambient:      lerpColor(a.ambient, b.ambient, f),
	}
}

// Apply pushes the current state to the sky, the scene ambient and sun.
// sun may be nil.
func (dn *DayNight) Apply(sky *opengl.Skybox, s *scene.Scene, sun *scene.Light) {
	p := samplePalette(dn.Time)

	// Sun direction: full rotation in the XY plane, tilted along Z
	angle := float64(dn.Time * 2 * stdmath.Pi)
	toSun := math.Vec3{
		X: float32(stdmath.Sin(angle)),
		Y: float32(stdmath.Cos(angle)), // +1 = noon (overhead)
		Z: 0.35,
	}.Normalize()

	if sun != nil {
		sun.SetPosition(sun.Target.Add(toSun.Mul(sunDistance)))
		sun.LookAt(sun.Target)
		sun.Color = p.sunColor.RGB()
		sun.Intensity = p.sunIntensity
	}

	s.AmbientLight = p.ambient.RGB()
	s.BackgroundColor = p.horizon.RGB()

	sky.ZenithColor = p.zenith
	sky.HorizonColor = p.horizon
	sky.GroundColor = p.ground
}

// TimeOfDayStr returns a human-readable time label.
func (dn *DayNight) TimeOfDayStr() string {
	hours := dn.Time*24.0 + 12
	h := int(hours) % 24
	m := int((hours - float32(int(hours))) * 60)
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Package probe is the CPU side of the irradiance probe engine: the probe
// grid, spherical-harmonic projection and evaluation, texture packing, a
// reference of the shader's trilinear lookup and the on-disk cache.
package probe

import (
	"github.com/chewxy/math32"

	"render-pipeline/math"
)

// Probe is one point sample of indirect light.
type Probe struct {
	Pos   math.Vec3
	Local [3]int
	Index int
	SH    SH9
}

// Grid is the axis-aligned lattice the probes sit on. The first probe is
// at Start and the last one at End.
type Grid struct {
	Start math.Vec3
	End   math.Vec3
	Dims  [3]int
}

// DefaultGrid covers the playable area of the sample scenes.
func DefaultGrid() Grid {
	return Grid{
		Start: math.Vec3{X: -300, Y: 5, Z: -300},
		End:   math.Vec3{X: 300, Y: 150, Z: 300},
		Dims:  [3]int{12, 6, 12},
	}
}

// Count is the number of probes in the grid.
func (g Grid) Count() int {
	if g.Dims[0] <= 0 || g.Dims[1] <= 0 || g.Dims[2] <= 0 {
		return 0
	}
	return g.Dims[0] * g.Dims[1] * g.Dims[2]
}

// Delta is the spacing between neighbouring probes on each axis. An axis
// with a single probe has zero spacing.
func (g Grid) Delta() math.Vec3 {
	extent := g.End.Sub(g.Start)
	var d [3]float32
	for i, e := range extent.Slice() {
		if g.Dims[i] > 1 {
			d[i] = e / float32(g.Dims[i]-1)
		}
	}
	return math.Vec3{X: d[0], Y: d[1], Z: d[2]}
}

// Index is the linear index of the probe at lattice coordinates (x, y, z).
func (g Grid) Index(x, y, z int) int {
	return x + y*g.Dims[0] + z*g.Dims[0]*g.Dims[1]
}

// Position of the probe at lattice coordinates (x, y, z).
func (g Grid) Position(x, y, z int) math.Vec3 {
	return g.Start.Add(g.Delta().MulVec(math.Vec3{X: float32(x), Y: float32(y), Z: float32(z)}))
}

// Probes lists every probe of the grid in index order (x fastest) with
// zero coefficients.
func (g Grid) Probes() []Probe {
	probes := make([]Probe, 0, g.Count())
	for z := 0; z < g.Dims[2]; z++ {
		for y := 0; y < g.Dims[1]; y++ {
			for x := 0; x < g.Dims[0]; x++ {
				probes = append(probes, Probe{
					Pos:   g.Position(x, y, z),
					Local: [3]int{x, y, z},
					Index: g.Index(x, y, z),
				})
			}
		}
	}
	return probes
}

// Coords returns the fractional lattice coordinates of p, clamped to the
// grid so positions outside it read the boundary probes.
func (g Grid) Coords(p math.Vec3) math.Vec3 {
	extent := g.End.Sub(g.Start).Slice()
	rel := p.Sub(g.Start).Slice()
	var c [3]float32
	for i := range c {
		if extent[i] == 0 || g.Dims[i] < 2 {
			continue
		}
		hi := float32(g.Dims[i] - 1)
		c[i] = math32.Max(0, math32.Min(hi, rel[i]/extent[i]*hi))
	}
	return math.Vec3{X: c[0], Y: c[1], Z: c[2]}
}

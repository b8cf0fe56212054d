package probe

import (
	"render-pipeline/math"
)

// NormalNudge is how far along the normal the lookup point is pushed to
// keep a surface from reading the probes behind it.
const NormalNudge = 0.1

// Sample evaluates the probe field the way the deferred lighting program
// does: p is nudged along n, converted to clamped lattice coordinates, and
// the irradiance of the eight surrounding probes is blended trilinearly.
// data is the packed probe texture. A grid without data evaluates to zero.
func Sample(g Grid, data []float32, p, n math.Vec3, nudge float32) math.Vec3 {
	count := g.Count()
	if count == 0 || len(data) < count*TexelsPerProbe*3 {
		return math.Vec3Zero
	}

	coords := g.Coords(p.Add(n.Mul(nudge))).Slice()
	var base, next [3]int
	var t [3]float32
	for i := range coords {
		base[i] = int(coords[i])
		if base[i] > g.Dims[i]-1 {
			base[i] = g.Dims[i] - 1
		}
		next[i] = base[i]
		if base[i] < g.Dims[i]-1 {
			next[i] = base[i] + 1
		}
		t[i] = coords[i] - float32(base[i])
	}

	irr := func(x, y, z int) math.Vec3 {
		row := g.Index(x, y, z) * TexelsPerProbe * 3
		sh := SHFromFloats(data[row : row+TexelsPerProbe*3])
		return sh.Eval(n)
	}

	x0 := irr(base[0], base[1], base[2]).Lerp(irr(next[0], base[1], base[2]), t[0])
	x1 := irr(base[0], next[1], base[2]).Lerp(irr(next[0], next[1], base[2]), t[0])
	x2 := irr(base[0], base[1], next[2]).Lerp(irr(next[0], base[1], next[2]), t[0])
	x3 := irr(base[0], next[1], next[2]).Lerp(irr(next[0], next[1], next[2]), t[0])
	y0 := x0.Lerp(x1, t[1])
	y1 := x2.Lerp(x3, t[1])
	return y0.Lerp(y1, t[2])
}

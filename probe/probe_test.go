package probe

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-pipeline/math"
)

func uniformFaces(size int, c math.Vec3) [6]FaceImage {
	var faces [6]FaceImage
	for i := range faces {
		faces[i] = NewFaceImage(size)
		faces[i].Fill(c)
	}
	return faces
}

func TestGridIndexing(t *testing.T) {
	g := Grid{Start: math.Vec3{}, End: math.Vec3{X: 10, Y: 20, Z: 30}, Dims: [3]int{3, 4, 5}}
	require.Equal(t, 60, g.Count())

	probes := g.Probes()
	require.Len(t, probes, g.Count())
	for i, p := range probes {
		x, y, z := p.Local[0], p.Local[1], p.Local[2]
		assert.Equal(t, x+y*3+z*3*4, p.Index)
		assert.Equal(t, i, p.Index, "probes are listed in index order")
		assert.Equal(t, g.Index(x, y, z), p.Index)
	}

	assert.Equal(t, math.Vec3{X: 5, Y: 20.0 / 3, Z: 7.5}, g.Delta())
	assert.True(t, probes[0].Pos.ApproxEqual(g.Start, 1e-6))
	assert.True(t, probes[len(probes)-1].Pos.ApproxEqual(g.End, 1e-4), "last probe sits on End")
}

func TestGridCoordsClamp(t *testing.T) {
	g := Grid{Start: math.Vec3{}, End: math.Vec3{X: 10, Y: 10, Z: 10}, Dims: [3]int{2, 3, 6}}

	assert.Equal(t, math.Vec3{X: 0.5, Y: 1, Z: 2.5}, g.Coords(math.Vec3{X: 5, Y: 5, Z: 5}))
	assert.Equal(t, math.Vec3{}, g.Coords(math.Vec3{X: -50, Y: -1, Z: -0.1}))
	assert.Equal(t, math.Vec3{X: 1, Y: 2, Z: 5}, g.Coords(math.Vec3{X: 99, Y: 11, Z: 1e6}))
}

func TestDefaultGrid(t *testing.T) {
	g := DefaultGrid()
	assert.Equal(t, 12*6*12, g.Count())
	assert.Equal(t, math.Vec3{X: -300, Y: 5, Z: -300}, g.Start)
}

func TestCubemapFaceBases(t *testing.T) {
	for i, basis := range CubemapFaceNormals {
		right, up, front := basis[0], basis[1], basis[2]
		assert.InDelta(t, 0, right.Dot(up), 1e-6, "face %d", i)
		assert.InDelta(t, 0, right.Dot(front), 1e-6, "face %d", i)
		assert.InDelta(t, 0, up.Dot(front), 1e-6, "face %d", i)
		assert.True(t, front.Cross(up).ApproxEqual(right, 1e-6), "face %d right is front x up", i)
	}
}

func TestSHConstantRoundTrip(t *testing.T) {
	color := math.Vec3{X: 0.8, Y: 0.4, Z: 0.1}
	for _, size := range []int{4, 16, FaceSize} {
		sh := ComputeSH(uniformFaces(size, color))
		for _, n := range []math.Vec3{
			{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
			{X: 1, Y: 1, Z: 1}, {X: -0.3, Y: 0.2, Z: 0.9},
		} {
			got := sh.Eval(n)
			assert.True(t, got.ApproxEqual(color, 1e-3), "size %d normal %v: got %v", size, n, got)
		}
	}
}

func TestSHDirectionalLight(t *testing.T) {
	// Only the +Y face is lit.
	faces := uniformFaces(16, math.Vec3Zero)
	faces[2].Fill(math.Vec3One)
	sh := ComputeSH(faces)

	up := sh.Eval(math.Vec3Up)
	down := sh.Eval(math.Vec3Down)
	side := sh.Eval(math.Vec3Right)
	assert.Greater(t, up.X, side.X)
	assert.Greater(t, side.X, down.X)
}

func TestPackLayout(t *testing.T) {
	g := Grid{End: math.Vec3{X: 1, Y: 1, Z: 1}, Dims: [3]int{2, 1, 1}}
	probes := g.Probes()
	probes[1].SH[0] = math.Vec3{X: 1, Y: 2, Z: 3}
	probes[1].SH[8] = math.Vec3{X: 7, Y: 8, Z: 9}

	data := Pack(probes)
	require.Len(t, data, 2*9*3)
	row := 1 * TexelsPerProbe * 3
	assert.Equal(t, []float32{1, 2, 3}, data[row:row+3])
	assert.Equal(t, []float32{7, 8, 9}, data[row+24:row+27])
	assert.Equal(t, probes[1].SH, Unpack(data, 2)[1])
}

func TestProbeGridCaptureUniform(t *testing.T) {
	g := Grid{Start: math.Vec3{X: -10, Y: 0, Z: -10}, End: math.Vec3{X: 10, Y: 10, Z: 10}, Dims: [3]int{2, 2, 2}}
	probes := g.Probes()
	for i := range probes {
		probes[i].SH = ComputeSH(uniformFaces(8, math.Vec3One))
	}
	for _, p := range probes[1:] {
		assert.True(t, p.SH[0].ApproxEqual(probes[0].SH[0], 1e-5))
	}

	data := Pack(probes)
	for _, p := range []math.Vec3{{}, {X: -9, Y: 1, Z: 9}, {X: 3, Y: 7, Z: -2}, {X: 100, Y: -5, Z: 0}} {
		for _, n := range []math.Vec3{math.Vec3Up, math.Vec3Right, {X: 0.3, Y: -0.5, Z: 0.8}} {
			got := Sample(g, data, p, n, NormalNudge)
			assert.True(t, got.ApproxEqual(math.Vec3One, 1e-3), "p %v n %v: got %v", p, n, got)
		}
	}
}

func TestSampleInterpolates(t *testing.T) {
	g := Grid{End: math.Vec3{X: 10}, Dims: [3]int{2, 1, 1}}
	probes := g.Probes()
	probes[0].SH = ComputeSH(uniformFaces(8, math.Vec3Zero))
	probes[1].SH = ComputeSH(uniformFaces(8, math.Vec3One))
	data := Pack(probes)

	mid := Sample(g, data, math.Vec3{X: 5}, math.Vec3Up, 0)
	assert.InDelta(t, 0.5, mid.X, 1e-3)
	quarter := Sample(g, data, math.Vec3{X: 2.5}, math.Vec3Up, 0)
	assert.InDelta(t, 0.25, quarter.X, 1e-3)
	assert.InDelta(t, 1, Sample(g, data, math.Vec3{X: 50}, math.Vec3Up, 0).X, 1e-3)

	assert.Equal(t, math.Vec3Zero, Sample(g, nil, math.Vec3{}, math.Vec3Up, 0), "no probe data")
}

func TestCacheRoundTrip(t *testing.T) {
	g := Grid{Start: math.Vec3{X: -1, Y: -2, Z: -3}, End: math.Vec3{X: 1, Y: 2, Z: 3}, Dims: [3]int{2, 3, 2}}
	probes := g.Probes()
	for i := range probes {
		for k := range probes[i].SH {
			probes[i].SH[k] = math.Vec3{X: float32(i), Y: float32(k), Z: float32(i * k)}
		}
	}

	path := filepath.Join(t.TempDir(), "cache", "probes.bin")
	require.NoError(t, SaveCache(path, g, probes))

	g2, probes2, err := LoadCache(path)
	require.NoError(t, err)
	assert.Equal(t, g, g2)
	require.Len(t, probes2, len(probes))
	for i := range probes {
		assert.Equal(t, probes[i].SH, probes2[i].SH)
		assert.Equal(t, probes[i].Index, probes2[i].Index)
	}
}

func TestCacheRejectsBadInput(t *testing.T) {
	g := Grid{End: math.Vec3{X: 1, Y: 1, Z: 1}, Dims: [3]int{2, 2, 2}}
	var buf bytes.Buffer
	require.NoError(t, WriteCache(&buf, g, g.Probes()))
	full := buf.Bytes()

	_, _, err := ReadCache(bytes.NewReader(full[:len(full)-4]))
	assert.True(t, errors.Is(err, ErrBadCache), "truncated records")

	_, _, err = ReadCache(bytes.NewReader(full[:10]))
	assert.Equal(t, ErrBadCache, errors.Cause(err), "truncated header")

	// Corrupt num_probes (bytes 48..51).
	bad := append([]byte(nil), full...)
	bad[48] = 9
	_, _, err = ReadCache(bytes.NewReader(bad))
	assert.True(t, errors.Is(err, ErrBadCache), "count mismatch")

	assert.Error(t, WriteCache(&buf, g, g.Probes()[:3]))

	header := func(dims [3]float32, count int32) *bytes.Reader {
		var b bytes.Buffer
		h := cacheHeader{Dims: dims, NumProbes: count}
		require.NoError(t, binary.Write(&b, binary.LittleEndian, &h))
		return bytes.NewReader(b.Bytes())
	}

	// A consistent header that declares a huge grid is refused before the
	// coefficients are allocated.
	_, _, err = ReadCache(header([3]float32{1000, 1000, 1000}, 1e9))
	assert.True(t, errors.Is(err, ErrBadCache), "oversized grid")

	_, _, err = ReadCache(header([3]float32{math32.NaN(), 2, 2}, 8))
	assert.True(t, errors.Is(err, ErrBadCache), "NaN dims")

	_, _, err = ReadCache(header([3]float32{2.5, 2, 2}, 8))
	assert.True(t, errors.Is(err, ErrBadCache), "fractional dims")

	_, _, err = ReadCache(header([3]float32{0, 2, 2}, 0))
	assert.True(t, errors.Is(err, ErrBadCache), "empty axis")
}

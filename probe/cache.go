package probe

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"render-pipeline/math"
)

// ErrBadCache is returned for cache files that are truncated or whose
// header does not describe a valid grid.
var ErrBadCache = errors.New("invalid probe cache")

// MaxCacheProbes bounds the probe count a cache file may declare.
const MaxCacheProbes = 1 << 20

// cacheHeader is the fixed-size prefix of a cache file. Dims are stored as
// floats to keep the header a run of vectors.
type cacheHeader struct {
	Start     [3]float32
	End       [3]float32
	Delta     [3]float32
	Dims      [3]float32
	NumProbes int32
}

// WriteCache serialises the grid and the coefficients of every probe,
// little-endian, in index order.
func WriteCache(w io.Writer, g Grid, probes []Probe) error {
	if len(probes) != g.Count() {
		return errors.Errorf("probe count %d does not match grid %v", len(probes), g.Dims)
	}
	h := cacheHeader{
		Start:     g.Start.Slice(),
		End:       g.End.Slice(),
		Delta:     g.Delta().Slice(),
		Dims:      [3]float32{float32(g.Dims[0]), float32(g.Dims[1]), float32(g.Dims[2])},
		NumProbes: int32(len(probes)),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return errors.Wrap(err, "write probe cache header")
	}
	if err := binary.Write(w, binary.LittleEndian, Pack(probes)); err != nil {
		return errors.Wrap(err, "write probe coefficients")
	}
	return nil
}

// ReadCache is the inverse of WriteCache.
func ReadCache(r io.Reader) (Grid, []Probe, error) {
	var h cacheHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return Grid{}, nil, errors.Wrapf(ErrBadCache, "header: %v", err)
	}

	if err := checkDims(h.Dims); err != nil {
		return Grid{}, nil, err
	}
	g := Grid{
		Start: vec3(h.Start),
		End:   vec3(h.End),
		Dims:  [3]int{int(h.Dims[0]), int(h.Dims[1]), int(h.Dims[2])},
	}
	if int(h.NumProbes) != g.Count() {
		return Grid{}, nil, errors.Wrapf(ErrBadCache, "%d probes for dims %v", h.NumProbes, g.Dims)
	}

	data := make([]float32, g.Count()*TexelsPerProbe*3)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return Grid{}, nil, errors.Wrapf(ErrBadCache, "coefficients: %v", err)
	}

	probes := g.Probes()
	for i, sh := range Unpack(data, len(probes)) {
		probes[i].SH = sh
	}
	return g, probes, nil
}

// checkDims rejects dims that are not positive whole numbers or whose
// product exceeds MaxCacheProbes, before anything is allocated.
func checkDims(dims [3]float32) error {
	total := 1.0
	for _, d := range dims {
		if math32.IsNaN(d) || math32.IsInf(d, 0) || d < 1 || d != math32.Floor(d) {
			return errors.Wrapf(ErrBadCache, "dims %v", dims)
		}
		total *= float64(d)
	}
	if total > MaxCacheProbes {
		return errors.Wrapf(ErrBadCache, "dims %v exceed %d probes", dims, MaxCacheProbes)
	}
	return nil
}

// SaveCache writes the cache to path, creating parent directories.
func SaveCache(path string, g Grid, probes []Probe) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create cache directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %q", path)
	}
	w := bufio.NewWriter(f)
	if err := WriteCache(w, g, probes); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrap(err, "flush probe cache")
	}
	return errors.Wrapf(f.Close(), "close %q", path)
}

// LoadCache reads a cache written by SaveCache.
func LoadCache(path string) (Grid, []Probe, error) {
	f, err := os.Open(path)
	if err != nil {
		return Grid{}, nil, errors.Wrapf(err, "open %q", path)
	}
	defer f.Close()
	return ReadCache(bufio.NewReader(f))
}

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

package probe

// TexelsPerProbe is the width of the probe texture: one RGB texel per
// coefficient.
const TexelsPerProbe = 9

// Pack lays the probes out as the probe texture expects: width 9, one row
// per probe in index order, RGB floats. Probes with an index outside
// [0, len(probes)) are ignored.
func Pack(probes []Probe) []float32 {
	data := make([]float32, len(probes)*TexelsPerProbe*3)
	for i := range probes {
		p := &probes[i]
		if p.Index < 0 || p.Index >= len(probes) {
			continue
		}
		row := p.SH.Floats()
		copy(data[p.Index*TexelsPerProbe*3:], row[:])
	}
	return data
}

// Unpack reads count rows of packed coefficients.
func Unpack(data []float32, count int) []SH9 {
	out := make([]SH9, count)
	stride := TexelsPerProbe * 3
	for i := range out {
		if (i+1)*stride > len(data) {
			break
		}
		out[i] = SHFromFloats(data[i*stride : (i+1)*stride])
	}
	return out
}

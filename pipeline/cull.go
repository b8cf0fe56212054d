package pipeline

import (
	"render-pipeline/scene"
)

// CallFilter selects which calls a pass is interested in.
type CallFilter func(*RenderCall) bool

// Opaque keeps OPAQUE and MASK draws.
func Opaque(rc *RenderCall) bool { return !rc.Blended() }

// Blended keeps BLEND draws.
func Blended(rc *RenderCall) bool { return rc.Blended() }

// Cull returns pointers to the calls that pass filter (nil keeps all) and
// whose world box is not wholly outside frustum. Order is preserved.
func Cull(calls []RenderCall, frustum *scene.Frustum, filter CallFilter) []*RenderCall {
	out := make([]*RenderCall, 0, len(calls))
	for i := range calls {
		rc := &calls[i]
		if filter != nil && !filter(rc) {
			continue
		}
		if frustum != nil && !rc.WorldBounds.IntersectsFrustum(frustum) {
			continue
		}
		out = append(out, rc)
	}
	return out
}

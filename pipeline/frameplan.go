package pipeline

// Mode selects the shading path of a frame.
type Mode int

const (
	Deferred Mode = iota
	Forward
)

func (m Mode) String() string {
	if m == Forward {
		return "forward"
	}
	return "deferred"
}

// Pass is one stage of a frame in submission order.
type Pass int

const (
	PassShadows Pass = iota
	PassForward
	PassGeometry
	PassDecals
	PassSSAO
	PassIllumination
	PassLightVolumes
	PassTransparent
	PassPost
	PassDebug
)

func (p Pass) String() string {
	return [...]string{"shadows", "forward", "geometry", "decals", "ssao", "illumination", "lightvolumes", "transparent", "post", "debug"}[p]
}

// PlanFrame returns the pass order for mode. Later passes consume the
// images produced by earlier ones, so the order is fixed.
func PlanFrame(mode Mode) []Pass {
	if mode == Forward {
		return []Pass{PassShadows, PassForward, PassPost, PassDebug}
	}
	return []Pass{
		PassShadows,
		PassGeometry,
		PassDecals,
		PassSSAO,
		PassIllumination,
		PassLightVolumes,
		PassTransparent,
		PassPost,
		PassDebug,
	}
}

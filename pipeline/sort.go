package pipeline

import (
	"sort"
)

// SortRenderCalls orders calls for submission: non-BLEND before BLEND,
// non-BLEND front-to-back, BLEND back-to-front. Equal keys keep emission
// order.
func SortRenderCalls(calls []RenderCall) {
	sort.SliceStable(calls, func(i, j int) bool {
		return renderCallLess(&calls[i], &calls[j])
	})
}

func renderCallLess(a, b *RenderCall) bool {
	ab, bb := a.Blended(), b.Blended()
	if ab != bb {
		return !ab
	}
	if ab {
		return a.Distance > b.Distance
	}
	return a.Distance < b.Distance
}

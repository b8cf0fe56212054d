package pipeline

import (
	"github.com/pkg/errors"

	"render-pipeline/math"
)

// BlurIterations is the number of separable blur rounds per blur stage.
const BlurIterations = 16

// Slot names a texture the post chain reads or writes.
type Slot int

const (
	SlotIllumination Slot = iota // chain input
	SlotPing                     // physical storage behind A/B
	SlotPong
	SlotC
	SlotD
	SlotBlurred
	SlotDepth
	SlotScreen // default framebuffer, terminal
)

func (s Slot) String() string {
	return [...]string{"illumination", "ping", "pong", "C", "D", "blurred", "depth", "screen"}[s]
}

// Filter is a screen-space program of the chain.
type Filter int

const (
	FilterBlur Filter = iota
	FilterDOF
	FilterMotionBlur
	FilterGrade // saturation and vignetting
	FilterFXAA
	FilterContrast
	FilterThreshold
	FilterMix
	FilterTonemap
)

func (f Filter) String() string {
	return [...]string{"blur", "dof", "motionblur", "grade", "fxaa", "contrast", "threshold", "mix", "tonemap"}[f]
}

// PostStep is one fullscreen filter invocation. Input is sampled as the
// primary texture, Aux as the secondary inputs in order. Direction is the
// blur axis in texels for FilterBlur.
type PostStep struct {
	Filter    Filter
	Input     Slot
	Aux       []Slot
	Output    Slot
	Direction math.Vec2
}

// Reads lists every slot the step samples.
func (s PostStep) Reads() []Slot {
	return append([]Slot{s.Input}, s.Aux...)
}

type chainBuilder struct {
	steps   []PostStep
	a, b    Slot
	current Slot
}

func (c *chainBuilder) add(step PostStep) {
	c.steps = append(c.steps, step)
}

// toA runs filter from the current texture into A, makes A current and
// swaps A and B.
func (c *chainBuilder) toA(f Filter, aux ...Slot) {
	c.add(PostStep{Filter: f, Input: c.current, Aux: aux, Output: c.a})
	c.current = c.a
	c.a, c.b = c.b, c.a
}

// blur runs iterations of H then V passes, starting from src and leaving
// the result in dst. A is used as the intermediate.
func (c *chainBuilder) blur(src, dst Slot, iterations int) {
	in := src
	for i := 0; i < iterations; i++ {
		c.add(PostStep{Filter: FilterBlur, Input: in, Output: c.a, Direction: math.Vec2{X: 1}})
		c.add(PostStep{Filter: FilterBlur, Input: c.a, Output: dst, Direction: math.Vec2{Y: 1}})
		in = dst
	}
}

// BuildPostChain returns the ordered filter plan from the illumination
// image to the screen: blur, depth of field, motion blur, grading, FXAA,
// bloom (contrast, threshold, blur, mix) and tonemapping.
func BuildPostChain(iterations int) []PostStep {
	if iterations < 1 {
		iterations = 1
	}
	c := &chainBuilder{a: SlotPing, b: SlotPong, current: SlotIllumination}

	c.blur(c.current, SlotBlurred, iterations)
	c.toA(FilterDOF, SlotBlurred, SlotDepth)
	c.toA(FilterMotionBlur, SlotDepth)
	c.toA(FilterGrade)
	c.toA(FilterFXAA)

	c.add(PostStep{Filter: FilterContrast, Input: c.current, Output: SlotC})
	c.add(PostStep{Filter: FilterThreshold, Input: SlotC, Output: SlotD})
	// The bloom blur ends in B so A stays free as its intermediate.
	c.blur(SlotD, c.b, iterations)
	c.current = c.b
	c.toA(FilterMix, SlotC)

	c.add(PostStep{Filter: FilterTonemap, Input: c.current, Output: SlotScreen})
	return c.steps
}

// ValidatePostChain checks that no step samples the slot it writes and
// that only the last step writes the screen.
func ValidatePostChain(steps []PostStep) error {
	for i, s := range steps {
		for _, r := range s.Reads() {
			if r == s.Output {
				return errors.Errorf("step %d (%s) reads and writes %s", i, s.Filter, s.Output)
			}
		}
		if s.Output == SlotScreen && i != len(steps)-1 {
			return errors.Errorf("step %d (%s) writes the screen before the end", i, s.Filter)
		}
		if s.Output == SlotDepth || s.Output == SlotIllumination {
			return errors.Errorf("step %d (%s) writes read-only %s", i, s.Filter, s.Output)
		}
	}
	return nil
}

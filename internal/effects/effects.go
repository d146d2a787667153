// Package effects holds the per-voice low-pass filter and the stereo buses
// applied after the voice mix.
package effects

// Effector processes stereo audio one frame at a time. Process must not
// allocate; SetSampleRate may only reuse storage reserved at construction.
type Effector interface {
	Process(l, r float32) (float32, float32)
	SetSampleRate(sampleRate int)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c *Chain) SetSampleRate(sampleRate int) {
	for _, e := range c.effects {
		e.SetSampleRate(sampleRate)
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

// Len returns the number of effects in the chain.
func (c *Chain) Len() int { return len(c.effects) }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

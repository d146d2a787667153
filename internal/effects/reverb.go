package effects

// Reverb is a Freeverb-style send bus: eight damped comb filters feeding four
// allpass filters per channel, with the right channel's lines slightly longer
// for stereo width. The output is fully wet.
type Reverb struct {
	combsL, combsR     [8]combFilter
	allpassL, allpassR [4]allpassFilter

	roomSize float32
	damp     float32
}

// Line lengths in samples at 44.1kHz.
var (
	combTuning    = [8]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTuning = [4]int{556, 441, 341, 225}
)

const (
	stereoSpread = 23
	reverbInput  = 0.015
)

type combFilter struct {
	buf    []float32
	n      int
	pos    int
	fb     float32
	damp   float32
	filter float32
}

type allpassFilter struct {
	buf []float32
	n   int
	pos int
	fb  float32
}

// NewReverb creates a reverb bus. Delay lines are sized for maxSampleRate so
// later sample rate changes never allocate.
// roomSize: 0..1 controls decay time
// damp: 0..1 controls high frequency absorption
func NewReverb(maxSampleRate, sampleRate int, roomSize, damp float32) *Reverb {
	if sampleRate > maxSampleRate {
		maxSampleRate = sampleRate
	}
	r := &Reverb{roomSize: clamp(roomSize, 0, 1), damp: clamp(damp, 0, 1)}
	for i := range r.combsL {
		n := scaleLine(combTuning[i]+stereoSpread, maxSampleRate)
		r.combsL[i].buf = make([]float32, n)
		r.combsR[i].buf = make([]float32, n)
	}
	for i := range r.allpassL {
		n := scaleLine(allpassTuning[i]+stereoSpread, maxSampleRate)
		r.allpassL[i].buf = make([]float32, n)
		r.allpassR[i].buf = make([]float32, n)
	}
	r.SetSampleRate(sampleRate)
	return r
}

func scaleLine(n, sampleRate int) int {
	return maxInt(n*sampleRate/44100, 1)
}

func (r *Reverb) SetSampleRate(sampleRate int) {
	if sampleRate <= 0 {
		return
	}
	fb := r.roomSize*0.28 + 0.7
	damp := r.damp * 0.4
	for i := range r.combsL {
		r.combsL[i].configure(scaleLine(combTuning[i], sampleRate), fb, damp)
		r.combsR[i].configure(scaleLine(combTuning[i]+stereoSpread, sampleRate), fb, damp)
	}
	for i := range r.allpassL {
		r.allpassL[i].configure(scaleLine(allpassTuning[i], sampleRate))
		r.allpassR[i].configure(scaleLine(allpassTuning[i]+stereoSpread, sampleRate))
	}
}

func (r *Reverb) Process(l, r2 float32) (float32, float32) {
	in := (l + r2) * reverbInput
	var outL, outR float32
	for i := range r.combsL {
		outL += r.combsL[i].process(in)
		outR += r.combsR[i].process(in)
	}
	for i := range r.allpassL {
		outL = r.allpassL[i].process(outL)
		outR = r.allpassR[i].process(outR)
	}
	return outL, outR
}

func (r *Reverb) Reset() {
	for i := range r.combsL {
		r.combsL[i].reset()
		r.combsR[i].reset()
	}
	for i := range r.allpassL {
		r.allpassL[i].reset()
		r.allpassR[i].reset()
	}
}

func (c *combFilter) configure(n int, fb, damp float32) {
	if n > len(c.buf) {
		n = len(c.buf)
	}
	c.n = n
	if c.pos >= n {
		c.pos = 0
	}
	c.fb = fb
	c.damp = damp
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.filter = out*(1-c.damp) + c.filter*c.damp
	c.buf[c.pos] = in + c.filter*c.fb
	c.pos++
	if c.pos >= c.n {
		c.pos = 0
	}
	return out
}

func (c *combFilter) reset() {
	for j := range c.buf {
		c.buf[j] = 0
	}
	c.pos = 0
	c.filter = 0
}

func (a *allpassFilter) configure(n int) {
	if n > len(a.buf) {
		n = len(a.buf)
	}
	a.n = n
	if a.pos >= n {
		a.pos = 0
	}
	a.fb = 0.5
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= a.n {
		a.pos = 0
	}
	return out
}

func (a *allpassFilter) reset() {
	for j := range a.buf {
		a.buf[j] = 0
	}
	a.pos = 0
}

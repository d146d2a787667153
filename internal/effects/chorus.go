package effects

import "math"

// delayLine is a circular buffer read at fractional delays.
type delayLine struct {
	buf   []float32
	write int
}

func newDelayLine(n int) delayLine { return delayLine{buf: make([]float32, n)} }

func (d *delayLine) push(v float32) {
	d.buf[d.write] = v
	d.write++
	if d.write == len(d.buf) {
		d.write = 0
	}
}

// tap reads delay samples behind the next write, interpolating linearly.
// delay must lie in [1, len(buf)-2].
func (d *delayLine) tap(delay float32) float32 {
	n := len(d.buf)
	whole := int(delay)
	frac := delay - float32(whole)
	i0 := d.write - whole
	if i0 < 0 {
		i0 += n
	}
	i1 := i0 - 1
	if i1 < 0 {
		i1 += n
	}
	return d.buf[i0] + (d.buf[i1]-d.buf[i0])*frac
}

func (d *delayLine) clear() {
	clear(d.buf)
	d.write = 0
}

// Chorus is the chorus send bus. Its output is fully wet. The left and right
// taps are swept by sine LFOs a quarter cycle apart.
type Chorus struct {
	left, right delayLine

	centreMs float32
	sweepMs  float32
	rateHz   float32
	feedback float32

	centre float32 // samples
	sweep  float32 // samples
	step   float64 // cycles per sample
	cycle  float64
}

// NewChorus reserves delay memory for maxSampleRate so SetSampleRate never
// allocates. delayMs is the centre delay, depthMs the sweep either side of
// it, and feedback is clamped to [0, 0.9].
func NewChorus(maxSampleRate, sampleRate int, delayMs, depthMs, rateHz, feedback float32) *Chorus {
	n := int(float64(delayMs+depthMs)*float64(max(maxSampleRate, sampleRate))/1000) + 4
	c := &Chorus{
		left:     newDelayLine(n),
		right:    newDelayLine(n),
		centreMs: delayMs,
		sweepMs:  depthMs,
		rateHz:   rateHz,
		feedback: clamp(feedback, 0, 0.9),
	}
	c.SetSampleRate(sampleRate)
	return c
}

func (c *Chorus) SetSampleRate(sampleRate int) {
	if sampleRate <= 0 {
		return
	}
	perMs := float32(sampleRate) / 1000
	c.centre = c.centreMs * perMs
	c.sweep = c.sweepMs * perMs
	room := float32(len(c.left.buf) - 2)
	if c.centre+c.sweep > room {
		c.centre = room - c.sweep
	}
	if c.centre-c.sweep < 1 {
		c.centre, c.sweep = max(c.centre, 1), 0
	}
	c.step = float64(c.rateHz) / float64(sampleRate)
}

func (c *Chorus) Process(l, r float32) (float32, float32) {
	angle := 2 * math.Pi * c.cycle
	dl := c.centre + c.sweep*float32(math.Sin(angle))
	dr := c.centre + c.sweep*float32(math.Cos(angle))
	if c.cycle += c.step; c.cycle >= 1 {
		c.cycle--
	}

	outL := c.left.tap(dl)
	outR := c.right.tap(dr)
	c.left.push(l + outL*c.feedback)
	c.right.push(r + outR*c.feedback)
	return outL, outR
}

func (c *Chorus) Reset() {
	c.left.clear()
	c.right.clear()
	c.cycle = 0
}

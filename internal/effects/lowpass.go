package effects

import "math"

// LowPass is a resonant two-pole low-pass filter (RBJ cookbook biquad) for a
// single voice. The zero value passes audio through unchanged until Set is
// called with a sample rate configured.
type LowPass struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64

	sampleRate float64
	cutoff     float64
	q          float64
	active     bool
}

// SetSampleRate changes the rate the coefficients are computed for.
func (f *LowPass) SetSampleRate(sampleRate float64) {
	if sampleRate == f.sampleRate {
		return
	}
	f.sampleRate = sampleRate
	if f.active {
		f.compute(f.cutoff, f.q)
	}
}

// Set updates cutoff (Hz) and resonance (linear Q). Coefficients are only
// recomputed when a value changes.
func (f *LowPass) Set(cutoffHz, q float64) {
	if f.active && cutoffHz == f.cutoff && q == f.q {
		return
	}
	f.compute(cutoffHz, q)
}

func (f *LowPass) compute(cutoffHz, q float64) {
	f.cutoff, f.q = cutoffHz, q
	f.active = true
	if f.sampleRate <= 0 {
		f.b0, f.b1, f.b2, f.a1, f.a2 = 1, 0, 0, 0, 0
		return
	}
	nyquist := f.sampleRate * 0.49
	fc := math.Max(5, math.Min(cutoffHz, nyquist))
	if q < 0.5 {
		q = 0.5
	}
	w := 2 * math.Pi * fc / f.sampleRate
	cos, sin := math.Cos(w), math.Sin(w)
	alpha := sin / (2 * q)
	a0 := 1 + alpha
	f.b1 = (1 - cos) / a0
	f.b0 = f.b1 / 2
	f.b2 = f.b0
	f.a1 = -2 * cos / a0
	f.a2 = (1 - alpha) / a0
}

// Process filters one sample.
func (f *LowPass) Process(x float64) float64 {
	if !f.active {
		return x
	}
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// Reset clears the filter history and forgets the coefficients.
func (f *LowPass) Reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
	f.active = false
}

package effects

import "math"

// Limiter is a stereo-linked peak limiter for the master bus. Gain reduction
// is applied instantly and recovers with the release time.
type Limiter struct {
	threshold float32
	releaseMs float32
	release   float32 // coefficient
	env       float32
}

// NewLimiter creates a limiter.
// thresholdDB: ceiling in dBFS (e.g., -1)
// releaseMs: recovery time in ms
func NewLimiter(sampleRate int, thresholdDB, releaseMs float32) *Limiter {
	l := &Limiter{
		threshold: float32(math.Pow(10, float64(thresholdDB)/20)),
		releaseMs: releaseMs,
	}
	l.SetSampleRate(sampleRate)
	return l
}

func (l *Limiter) SetSampleRate(sampleRate int) {
	if sampleRate <= 0 || l.releaseMs <= 0 {
		l.release = 1
		return
	}
	l.release = float32(1.0 - math.Exp(-1.0/(float64(l.releaseMs)*float64(sampleRate)/1000.0)))
}

func (l *Limiter) Process(left, right float32) (float32, float32) {
	peak := float32(math.Max(math.Abs(float64(left)), math.Abs(float64(right))))
	if peak > l.env {
		l.env = peak
	} else {
		l.env += l.release * (peak - l.env)
	}
	g := l.Gain()
	return left * g, right * g
}

// Gain returns the gain currently applied.
func (l *Limiter) Gain() float32 {
	if l.env <= l.threshold || l.threshold <= 0 {
		return 1.0
	}
	return l.threshold / l.env
}

func (l *Limiter) Reset() {
	l.env = 0
}

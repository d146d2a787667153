// Package envelope implements the SF2 six-stage DAHDSR envelope.
package envelope

import "math"

// Stage is an envelope stage. Stages only advance forward, except that
// Release can be entered from any stage.
type Stage int

const (
	StageDelay Stage = iota
	StageAttack
	StageHold
	StageDecay
	StageSustain
	StageRelease
	StageIdle
)

func (s Stage) String() string {
	switch s {
	case StageDelay:
		return "delay"
	case StageAttack:
		return "attack"
	case StageHold:
		return "hold"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	default:
		return "idle"
	}
}

// Shape selects how the decay and release stages move.
type Shape int

const (
	// ShapeVolume decays exponentially: the stage time is the time to fall
	// 100 dB.
	ShapeVolume Shape = iota
	// ShapeModulation decays linearly from full scale to zero over the stage
	// time.
	ShapeModulation
)

// Floor is the level treated as silence (-100 dB).
const Floor = 1e-5

// Params describes an envelope in seconds. Sustain is a linear level in [0, 1].
type Params struct {
	Delay   float64
	Attack  float64
	Hold    float64
	Decay   float64
	Sustain float64
	Release float64
}

// Envelope is a per-sample DAHDSR generator. The zero value is idle.
type Envelope struct {
	shape      Shape
	params     Params
	sampleRate float64

	stage   Stage
	level   float64
	counter int
	length  int
	// per-sample multiplier (volume) or step (modulation) of decay and release
	decayRate   float64
	releaseRate float64
	releaseLen  int
}

// New returns an idle envelope of the given shape.
func New(shape Shape) Envelope {
	return Envelope{shape: shape, stage: StageIdle}
}

// TimecentsToSeconds converts an SF2 timecent value.
func TimecentsToSeconds(tc float64) float64 { return math.Exp2(tc / 1200) }

// Configure sets the stage parameters for the next Start. It does not change
// the current stage.
func (e *Envelope) Configure(sampleRate float64, p Params) {
	e.params = p
	e.params.Sustain = math.Max(0, math.Min(1, p.Sustain))
	e.setRate(sampleRate)
}

// SetSampleRate rescales stage lengths to a new render rate, keeping the
// relative progress through the current stage.
func (e *Envelope) SetSampleRate(sampleRate float64) {
	if sampleRate == e.sampleRate || sampleRate <= 0 {
		return
	}
	var progress float64
	if e.length > 0 {
		progress = float64(e.counter) / float64(e.length)
	}
	e.setRate(sampleRate)
	if e.stage < StageSustain || e.stage == StageRelease {
		e.length = e.stageLength(e.stage)
		e.counter = int(progress * float64(e.length))
	}
}

func (e *Envelope) setRate(sampleRate float64) {
	e.sampleRate = sampleRate
	decay := e.samples(e.params.Decay)
	e.releaseLen = e.samples(e.params.Release)
	e.decayRate = e.rate(decay)
	e.releaseRate = e.rate(e.releaseLen)
}

// rate returns the per-sample factor (volume) or step (modulation) for a
// stage spanning n samples.
func (e *Envelope) rate(n int) float64 {
	if n <= 0 {
		n = 1
	}
	if e.shape == ShapeVolume {
		return math.Pow(Floor, 1/float64(n))
	}
	return 1 / float64(n)
}

func (e *Envelope) samples(seconds float64) int {
	if seconds <= 0 || e.sampleRate <= 0 {
		return 0
	}
	return int(math.Round(seconds * e.sampleRate))
}

func (e *Envelope) stageLength(s Stage) int {
	switch s {
	case StageDelay:
		return e.samples(e.params.Delay)
	case StageAttack:
		return e.samples(e.params.Attack)
	case StageHold:
		return e.samples(e.params.Hold)
	case StageDecay:
		return e.samples(e.params.Decay)
	case StageRelease:
		return e.releaseLen
	}
	return 0
}

// Start gates the envelope on from the delay stage.
func (e *Envelope) Start() {
	e.level = 0
	e.enter(StageDelay)
}

// Release enters the release stage from the current level.
func (e *Envelope) Release() {
	if e.stage == StageRelease || e.stage == StageIdle {
		return
	}
	e.enter(StageRelease)
}

// Stop silences the envelope immediately.
func (e *Envelope) Stop() {
	e.level = 0
	e.stage = StageIdle
	e.counter, e.length = 0, 0
}

// enter moves to s, skipping zero-length timed stages.
func (e *Envelope) enter(s Stage) {
	for {
		e.stage = s
		e.counter = 0
		e.length = e.stageLength(s)
		switch s {
		case StageDelay, StageHold:
			if e.length > 0 {
				return
			}
			s++
		case StageAttack:
			if e.length > 0 {
				return
			}
			e.level = 1
			s = StageHold
		case StageDecay:
			if e.length > 0 && e.level > e.params.Sustain {
				return
			}
			e.level = e.params.Sustain
			s = StageSustain
		case StageSustain:
			if e.shape == ShapeVolume && e.level < Floor {
				e.Stop()
			}
			return
		case StageRelease:
			if e.length > 0 && e.level > e.releaseFloor() {
				return
			}
			e.Stop()
			return
		default:
			e.Stop()
			return
		}
	}
}

func (e *Envelope) releaseFloor() float64 {
	if e.shape == ShapeVolume {
		return Floor
	}
	return 0
}

// Next advances one sample and returns the new level.
func (e *Envelope) Next() float64 {
	switch e.stage {
	case StageDelay, StageHold:
		e.counter++
		if e.counter >= e.length {
			e.enter(e.stage + 1)
		}
	case StageAttack:
		e.counter++
		e.level = float64(e.counter) / float64(e.length)
		if e.counter >= e.length {
			e.level = 1
			e.enter(StageHold)
		}
	case StageDecay:
		e.counter++
		if e.shape == ShapeVolume {
			e.level *= e.decayRate
		} else {
			e.level -= e.decayRate
		}
		if e.level <= e.params.Sustain || e.counter >= e.length {
			e.level = e.params.Sustain
			e.enter(StageSustain)
		}
	case StageRelease:
		e.counter++
		if e.shape == ShapeVolume {
			e.level *= e.releaseRate
		} else {
			e.level -= e.releaseRate
		}
		if e.level <= e.releaseFloor() || e.counter >= e.length {
			e.Stop()
		}
	}
	return e.level
}

// Value returns the current level without advancing.
func (e *Envelope) Value() float64 { return e.level }

// Stage returns the current stage.
func (e *Envelope) Stage() Stage { return e.stage }

// Active reports whether the envelope is not idle.
func (e *Envelope) Active() bool { return e.stage != StageIdle }

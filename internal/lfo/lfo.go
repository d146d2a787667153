// Package lfo provides the delayed triangle oscillators SF2 voices use for
// vibrato and modulation.
package lfo

import "math"

// Reference frequency of 0 absolute cents, in Hz.
const baseFrequency = 8.176

// FrequencyFromCents converts an SF2 absolute-cent frequency to Hz. Input is
// clamped to the legal LFO range.
func FrequencyFromCents(cents float64) float64 {
	cents = math.Max(-16000, math.Min(4500, cents))
	return baseFrequency * math.Exp2(cents/1200)
}

// LFO is a triangle oscillator that stays at zero for a delay period and then
// starts at zero heading up, producing values in [-1, 1].
type LFO struct {
	rateHz float64
	delay  float64 // seconds
	// remaining delay in seconds
	wait  float64
	phase float64 // current phase [0, 1)
	value float64
}

// Set configures rate and delay. It takes effect on the next Reset for the
// delay and immediately for the rate.
func (l *LFO) Set(rateHz, delaySeconds float64) {
	l.rateHz = math.Max(0, rateHz)
	l.delay = math.Max(0, delaySeconds)
}

// SetRate changes the frequency without touching phase or delay.
func (l *LFO) SetRate(rateHz float64) { l.rateHz = math.Max(0, rateHz) }

// Reset restarts the delay and puts the phase at the upward zero crossing.
func (l *LFO) Reset() {
	l.wait = l.delay
	l.phase = 0.25
	l.value = 0
}

// Sample advances the LFO by one sample and returns its value.
func (l *LFO) Sample(sampleRate float64) float64 {
	if sampleRate <= 0 {
		return l.value
	}
	if l.wait > 0 {
		l.wait -= 1 / sampleRate
		l.value = 0
		return 0
	}

	if l.phase < 0.5 {
		l.value = 4.0*l.phase - 1.0
	} else {
		l.value = 3.0 - 4.0*l.phase
	}

	l.phase += l.rateHz / sampleRate
	l.phase -= math.Floor(l.phase)
	return l.value
}

// Value returns the most recent output.
func (l *LFO) Value() float64 { return l.value }

// Active reports whether the LFO has a non-zero rate.
func (l *LFO) Active() bool { return l.rateHz != 0 }

// Delaying reports whether the LFO is still inside its delay period.
func (l *LFO) Delaying() bool { return l.wait > 0 }

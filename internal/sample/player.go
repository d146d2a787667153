// Package sample reads SF2 PCM data at a fractional position with looping.
package sample

import "github.com/cbegin/sf2synth-go/internal/sf2"

// LoopMode is the sampleModes generator value.
type LoopMode int

const (
	LoopNone         LoopMode = 0
	LoopContinuous   LoopMode = 1
	LoopUntilRelease LoopMode = 3
)

// ModeFromGenerator maps a sampleModes value; 2 is unused and plays unlooped.
func ModeFromGenerator(v int) LoopMode {
	switch v & 3 {
	case 1:
		return LoopContinuous
	case 3:
		return LoopUntilRelease
	}
	return LoopNone
}

// Offsets are the combined fine and coarse address offset generators.
type Offsets struct {
	Start     int
	End       int
	LoopStart int
	LoopEnd   int
}

// CoarseSize is the number of frames one coarse offset unit represents.
const CoarseSize = 32768

// Bounds are absolute PCM indices a voice may read. Start <= LoopStart <=
// LoopEnd <= End <= len(pcm) always holds.
type Bounds struct {
	Start     int
	End       int
	LoopStart int
	LoopEnd   int
}

// HasLoop reports whether the loop spans at least one frame.
func (b Bounds) HasLoop() bool { return b.LoopEnd > b.LoopStart }

// ComputeBounds applies offsets to a header and clamps the result to the
// header's own range and to the PCM buffer.
func ComputeBounds(h sf2.SampleHeader, pcmLen int, off Offsets) Bounds {
	lo := clamp(int(h.Start), 0, pcmLen)
	hi := clamp(int(h.End), lo, pcmLen)
	var b Bounds
	b.Start = clamp(int(h.Start)+off.Start, lo, hi)
	b.End = clamp(int(h.End)+off.End, b.Start, hi)
	b.LoopStart = clamp(int(h.LoopStart)+off.LoopStart, b.Start, b.End)
	b.LoopEnd = clamp(int(h.LoopEnd)+off.LoopEnd, b.LoopStart, b.End)
	return b
}

// Player is a playback cursor over one sample.
type Player struct {
	pcm     []int16
	bounds  Bounds
	mode    LoopMode
	looping bool

	whole int
	frac  float64
	done  bool
}

// Start begins playback at b.Start.
func (p *Player) Start(pcm []int16, b Bounds, mode LoopMode) {
	p.pcm = pcm
	p.bounds = b
	p.mode = mode
	p.looping = mode != LoopNone && b.HasLoop()
	p.whole = b.Start
	p.frac = 0
	p.done = b.End <= b.Start
}

// Release stops looping for loop-until-release samples.
func (p *Player) Release() {
	if p.mode == LoopUntilRelease {
		p.looping = false
	}
}

// Stop ends playback.
func (p *Player) Stop() { p.done = true }

// Done reports whether playback ran past the sample end.
func (p *Player) Done() bool { return p.done }

// Looping reports whether the loop is currently honoured.
func (p *Player) Looping() bool { return p.looping }

// Position returns the absolute fractional read position.
func (p *Player) Position() float64 { return float64(p.whole) + p.frac }

// Seek moves the cursor to an absolute position inside the bounds.
func (p *Player) Seek(pos float64) {
	whole := int(pos)
	p.frac = pos - float64(whole)
	p.whole = clamp(whole, p.bounds.Start, p.bounds.End)
}

// Next returns the linearly interpolated value at the cursor and advances it
// by increment frames.
func (p *Player) Next(increment float64) float64 {
	if p.done {
		return 0
	}
	a := p.at(p.whole)
	next := p.whole + 1
	if p.looping && next >= p.bounds.LoopEnd {
		next = p.bounds.LoopStart + (next - p.bounds.LoopEnd)
	}
	b := p.at(next)
	out := a + (b-a)*p.frac
	p.advance(increment)
	return out
}

func (p *Player) advance(increment float64) {
	if increment < 0 {
		increment = 0
	}
	p.frac += increment
	step := int(p.frac)
	p.whole += step
	p.frac -= float64(step)

	if p.looping {
		if over := p.whole - p.bounds.LoopEnd; over >= 0 {
			p.whole = p.bounds.LoopStart + over%(p.bounds.LoopEnd-p.bounds.LoopStart)
		}
		return
	}
	if p.whole >= p.bounds.End {
		p.whole = p.bounds.End
		p.done = true
	}
}

// at reads frame i clamped to the playable range.
func (p *Player) at(i int) float64 {
	if i >= p.bounds.End {
		i = p.bounds.End - 1
	}
	if i < p.bounds.Start {
		i = p.bounds.Start
	}
	if i < 0 || i >= len(p.pcm) {
		return 0
	}
	return float64(p.pcm[i]) / 32768
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

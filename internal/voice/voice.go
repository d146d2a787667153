// Package voice renders one sounding note: a sample cursor shaped by two
// envelopes, two LFOs, a resonant low-pass filter and the resolved generator
// state of its zones.
package voice

import (
	"math"

	"github.com/cbegin/sf2synth-go/internal/effects"
	"github.com/cbegin/sf2synth-go/internal/envelope"
	"github.com/cbegin/sf2synth-go/internal/lfo"
	"github.com/cbegin/sf2synth-go/internal/modulation"
	"github.com/cbegin/sf2synth-go/internal/sample"
	"github.com/cbegin/sf2synth-go/internal/sf2"
)

// State is the lifecycle state of a voice.
type State int

const (
	Idle State = iota
	Active
	Releasing
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Releasing:
		return "releasing"
	default:
		return "idle"
	}
}

// Bus holds the buffers a render block mixes into. All slices must be at
// least as long as the frame count passed to Render.
type Bus struct {
	L, R             []float32
	ChorusL, ChorusR []float32
	ReverbL, ReverbR []float32
}

// Setup describes a note to start.
type Setup struct {
	Bank         *sf2.Bank
	Zones        modulation.Zones
	Channel      *modulation.ChannelState
	ChannelIndex int
	Key          int
	Velocity     int
	SampleRate   float64
	// NoteID identifies the note-on event; voices started by the same event
	// share it.
	NoteID uint64
	// Seq orders allocations; lower is older.
	Seq uint64
}

// minNoteSeconds is the shortest a note sounds before a release takes
// effect, so a note-on and note-off in the same block is still heard.
const minNoteSeconds = 0.010

// Filter cutoff at or above which an unmodulated, non-resonant filter is
// bypassed, in absolute cents.
const filterBypassCents = 13500

// Voice is a pooled note renderer. The zero value is Idle.
type Voice struct {
	state   State
	mod     modulation.State
	volEnv  envelope.Envelope
	modEnv  envelope.Envelope
	modLFO  lfo.LFO
	vibLFO  lfo.LFO
	player  sample.Player
	filter  effects.LowPass
	channel *modulation.ChannelState
	header  sf2.SampleHeader

	sampleRate   float64
	channelIndex int
	key          int
	noteID       uint64
	seq          uint64
	exclusive    int

	// keyCents is the pitch offset from key, root and sample correction.
	keyCents float64

	keyDown   bool
	sostenuto bool

	// age counts rendered frames; minFrames is minNoteSeconds at the
	// current rate. A release requested earlier waits in pendingRelease.
	age            int
	minFrames      int
	pendingRelease bool
}

// params are generator-derived values held constant for one render block.
type params struct {
	pitch          float64
	increment      float64
	ratio          float64
	modLFOToPitch  float64
	vibLFOToPitch  float64
	modEnvToPitch  float64
	modLFOToVolume float64
	gain           float64
	left, right    float64
	chorus, reverb float64
	filter         bool
}

// Start configures the voice for a note and moves it to Active. It returns
// false, leaving the voice Idle, when the zones do not reference a sample.
func (v *Voice) Start(s Setup) bool {
	v.Stop()
	if s.Bank == nil || s.Zones.Instrument == nil || s.Channel == nil || s.SampleRate <= 0 {
		return false
	}
	link := s.Zones.Instrument.Link
	if link < 0 || link >= len(s.Bank.Samples) {
		return false
	}
	v.header = s.Bank.Samples[link]
	v.channel = s.Channel
	v.channelIndex = s.ChannelIndex
	v.key = s.Key
	v.noteID = s.NoteID
	v.seq = s.Seq
	v.sampleRate = s.SampleRate
	v.age = 0
	v.minFrames = minNoteFrames(s.SampleRate)

	v.mod.Prepare(s.Zones, s.Channel, s.Key, s.Velocity)
	v.exclusive = int(v.mod.Base(sf2.ExclusiveClass))
	v.keyCents = v.pitchBase()

	bounds := sample.ComputeBounds(v.header, len(s.Bank.PCM), v.offsets())
	v.player.Start(s.Bank.PCM, bounds, sample.ModeFromGenerator(int(v.mod.Base(sf2.SampleModes))))

	v.volEnv = envelope.New(envelope.ShapeVolume)
	v.volEnv.Configure(v.sampleRate, v.volumeParams())
	v.modEnv = envelope.New(envelope.ShapeModulation)
	v.modEnv.Configure(v.sampleRate, v.modulationParams())
	v.volEnv.Start()
	v.modEnv.Start()

	v.modLFO.Set(lfo.FrequencyFromCents(v.mod.Value(sf2.FreqModLFO)), seconds(v.mod.Value(sf2.DelayModLFO)))
	v.modLFO.Reset()
	v.vibLFO.Set(lfo.FrequencyFromCents(v.mod.Value(sf2.FreqVibLFO)), seconds(v.mod.Value(sf2.DelayVibLFO)))
	v.vibLFO.Reset()

	v.filter.Reset()
	v.filter.SetSampleRate(v.sampleRate)

	v.keyDown = true
	v.sostenuto = false
	if v.player.Done() || !v.volEnv.Active() {
		v.Stop()
		return false
	}
	v.state = Active
	return true
}

// pitchBase follows the root key rules of the sample header: 255 marks an
// unpitched sample, other values above 127 mean 60, and overridingRootKey
// wins when set.
func (v *Voice) pitchBase() float64 {
	root := int(v.header.OriginalPitch)
	constant := root == 255
	if root > 127 {
		root = 60
	}
	if k := int(v.mod.Base(sf2.OverridingRootKey)); k >= 0 && k <= 127 {
		root = k
		constant = false
	}
	cents := float64(v.header.PitchCorrection)
	if !constant {
		cents += v.mod.Base(sf2.ScaleTuning) * float64(v.mod.Key()-root)
	}
	return cents
}

func (v *Voice) offsets() sample.Offsets {
	g := func(fine, coarse sf2.Generator) int {
		return int(v.mod.Base(fine)) + sample.CoarseSize*int(v.mod.Base(coarse))
	}
	return sample.Offsets{
		Start:     g(sf2.StartAddrsOffset, sf2.StartAddrsCoarseOffset),
		End:       g(sf2.EndAddrsOffset, sf2.EndAddrsCoarseOffset),
		LoopStart: g(sf2.StartLoopAddrsOffset, sf2.StartLoopAddrsCoarseOffset),
		LoopEnd:   g(sf2.EndLoopAddrsOffset, sf2.EndLoopAddrsCoarseOffset),
	}
}

// centsToHz converts absolute cents, 0 being 8.176 Hz.
func centsToHz(c float64) float64 { return 8.176 * math.Exp2(c/1200) }

// seconds converts timecents; the -12000 minimum means no time at all.
func seconds(tc float64) float64 {
	if tc <= -12000 {
		return 0
	}
	return envelope.TimecentsToSeconds(tc)
}

// keyScaled applies a keynumTo* generator to a timecent value.
func (v *Voice) keyScaled(tc, perKey sf2.Generator) float64 {
	return seconds(v.mod.Value(tc) + v.mod.Value(perKey)*float64(60-v.mod.Key()))
}

func (v *Voice) volumeParams() envelope.Params {
	return envelope.Params{
		Delay:   seconds(v.mod.Value(sf2.DelayVolEnv)),
		Attack:  seconds(v.mod.Value(sf2.AttackVolEnv)),
		Hold:    v.keyScaled(sf2.HoldVolEnv, sf2.KeynumToVolEnvHold),
		Decay:   v.keyScaled(sf2.DecayVolEnv, sf2.KeynumToVolEnvDecay),
		Sustain: math.Pow(10, -v.mod.Value(sf2.SustainVolEnv)/200),
		Release: seconds(v.mod.Value(sf2.ReleaseVolEnv)),
	}
}

func (v *Voice) modulationParams() envelope.Params {
	return envelope.Params{
		Delay:   seconds(v.mod.Value(sf2.DelayModEnv)),
		Attack:  seconds(v.mod.Value(sf2.AttackModEnv)),
		Hold:    v.keyScaled(sf2.HoldModEnv, sf2.KeynumToModEnvHold),
		Decay:   v.keyScaled(sf2.DecayModEnv, sf2.KeynumToModEnvDecay),
		Sustain: 1 - v.mod.Value(sf2.SustainModEnv)/1000,
		Release: seconds(v.mod.Value(sf2.ReleaseModEnv)),
	}
}

// NoteOff lifts the key. A held sustain or latched sostenuto pedal defers the
// release until Pedals observes the pedal going up.
func (v *Voice) NoteOff() {
	if v.state != Active || !v.keyDown {
		return
	}
	v.keyDown = false
	if v.held() {
		return
	}
	v.Release()
}

func (v *Voice) held() bool {
	return v.channel.Sustain() || (v.sostenuto && v.channel.Sostenuto())
}

// LatchSostenuto records that the key was down when the sostenuto pedal went
// down.
func (v *Voice) LatchSostenuto() {
	if v.state == Active && v.keyDown {
		v.sostenuto = true
	}
}

// Pedals re-checks pedal holds after a sustain or sostenuto change.
func (v *Voice) Pedals() {
	if v.state != Active {
		return
	}
	if !v.channel.Sostenuto() {
		v.sostenuto = false
	}
	if !v.keyDown && !v.held() {
		v.Release()
	}
}

// Release moves an Active voice to Releasing. The envelopes start their
// release once the voice has sounded for minNoteSeconds; Render retires the
// voice when the volume envelope finishes.
func (v *Voice) Release() {
	if v.state != Active {
		return
	}
	v.keyDown = false
	v.state = Releasing
	if v.age < v.minFrames {
		v.pendingRelease = true
		return
	}
	v.beginRelease()
}

func (v *Voice) beginRelease() {
	v.pendingRelease = false
	v.volEnv.Release()
	v.modEnv.Release()
	v.player.Release()
}

func minNoteFrames(sampleRate float64) int {
	return int(math.Ceil(minNoteSeconds * sampleRate))
}

// Stop returns the voice to Idle immediately, without a release ramp.
func (v *Voice) Stop() {
	v.state = Idle
	v.volEnv.Stop()
	v.modEnv.Stop()
	v.player.Stop()
	v.keyDown = false
	v.sostenuto = false
	v.pendingRelease = false
}

// SetSampleRate rescales the voice to a new render rate without restarting it.
func (v *Voice) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 || sampleRate == v.sampleRate {
		return
	}
	v.sampleRate = sampleRate
	v.minFrames = minNoteFrames(sampleRate)
	v.volEnv.SetSampleRate(sampleRate)
	v.modEnv.SetSampleRate(sampleRate)
	v.filter.SetSampleRate(sampleRate)
}

func (v *Voice) blockParams() params {
	m := &v.mod
	var p params
	p.pitch = v.keyCents + 100*m.Value(sf2.CoarseTune) + m.Value(sf2.FineTune) + float64(v.channel.Tuning())
	p.ratio = 1
	if v.header.SampleRate > 0 {
		p.ratio = float64(v.header.SampleRate) / v.sampleRate
	}
	p.increment = math.Exp2(p.pitch/1200) * p.ratio
	p.modLFOToPitch = m.Value(sf2.ModLFOToPitch)
	p.vibLFOToPitch = m.Value(sf2.VibLFOToPitch)
	p.modEnvToPitch = m.Value(sf2.ModEnvToPitch)
	p.modLFOToVolume = m.Value(sf2.ModLFOToVolume)
	p.gain = math.Pow(10, -m.Value(sf2.InitialAttenuation)/200)

	angle := (m.Value(sf2.Pan) + 500) / 1000 * math.Pi / 2
	p.left, p.right = math.Cos(angle), math.Sin(angle)
	p.chorus = m.Value(sf2.ChorusEffectsSend) / 1000
	p.reverb = m.Value(sf2.ReverbEffectsSend) / 1000

	fc := m.Value(sf2.InitialFilterFc)
	toFc := m.Value(sf2.ModEnvToFilterFc)
	lfoFc := m.Value(sf2.ModLFOToFilterFc)
	q := m.Value(sf2.InitialFilterQ)
	p.filter = fc < filterBypassCents || toFc != 0 || lfoFc != 0 || q != 0
	if p.filter {
		fc += toFc*v.modEnv.Value() + lfoFc*v.modLFO.Value()
		v.filter.Set(centsToHz(math.Max(1500, math.Min(fc, 13500))), math.Pow(10, (math.Max(0, math.Min(q, 960))-30.1)/200))
	}
	return p
}

// Render mixes frames of output into bus. Modulators are evaluated once per
// call, so callers should keep blocks short.
func (v *Voice) Render(bus *Bus, frames int) {
	if v.state == Idle {
		return
	}
	v.mod.Update()
	p := v.blockParams()
	sr := v.sampleRate
	for i := 0; i < frames; i++ {
		if v.pendingRelease && v.age >= v.minFrames {
			v.beginRelease()
		}
		v.age++
		vib := v.vibLFO.Sample(sr)
		ml := v.modLFO.Sample(sr)
		me := v.modEnv.Next()
		ve := v.volEnv.Next()
		if !v.volEnv.Active() {
			v.Stop()
			return
		}
		if v.volEnv.Stage() == envelope.StageDelay {
			continue
		}

		inc := p.increment
		if mod := vib*p.vibLFOToPitch + ml*p.modLFOToPitch + me*p.modEnvToPitch; mod != 0 {
			inc = math.Exp2((p.pitch+mod)/1200) * p.ratio
		}
		x := v.player.Next(inc)
		if p.filter {
			x = v.filter.Process(x)
		}
		g := p.gain * ve
		if p.modLFOToVolume != 0 {
			g *= math.Pow(10, ml*p.modLFOToVolume/200)
		}
		s := x * g
		l, r := float32(s*p.left), float32(s*p.right)
		bus.L[i] += l
		bus.R[i] += r
		if p.chorus > 0 {
			bus.ChorusL[i] += l * float32(p.chorus)
			bus.ChorusR[i] += r * float32(p.chorus)
		}
		if p.reverb > 0 {
			bus.ReverbL[i] += l * float32(p.reverb)
			bus.ReverbR[i] += r * float32(p.reverb)
		}
		if v.player.Done() {
			v.Stop()
			return
		}
	}
}

// State returns the lifecycle state.
func (v *Voice) State() State { return v.state }

// Active reports whether the voice is sounding, including its release.
func (v *Voice) Active() bool { return v.state != Idle }

// Level is the current amplitude envelope level, used to pick steal victims.
func (v *Voice) Level() float64 { return v.volEnv.Value() }

// Key is the MIDI key that started the voice, before any keynum override.
func (v *Voice) Key() int { return v.key }

// Channel is the MIDI channel index the voice plays on.
func (v *Voice) Channel() int { return v.channelIndex }

// KeyDown reports whether the starting key is still held.
func (v *Voice) KeyDown() bool { return v.keyDown }

func (v *Voice) ExclusiveClass() int { return v.exclusive }

func (v *Voice) NoteID() uint64 { return v.noteID }

func (v *Voice) Seq() uint64 { return v.seq }

// Generator returns the live modulated value of g.
func (v *Voice) Generator(g sf2.Generator) float64 { return v.mod.Value(g) }

// Position returns the sample cursor position in PCM frames.
func (v *Voice) Position() float64 { return v.player.Position() }

// Package engine owns the voice pool and per-channel MIDI state, applies
// queued commands and mixes voices through the effect buses.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cbegin/sf2synth-go/internal/effects"
	"github.com/cbegin/sf2synth-go/internal/modulation"
	"github.com/cbegin/sf2synth-go/internal/sf2"
	"github.com/cbegin/sf2synth-go/internal/voice"
)

const (
	NumChannels = 16
	// PercussionChannel is MIDI channel 10, which plays bank 128.
	PercussionChannel = 9
	// blockFrames is the modulation update interval in frames.
	blockFrames = 64
	// maxNoteZones bounds the voices one note-on may start.
	maxNoteZones = 32
)

type Params struct {
	Polyphony      int
	QueueCapacity  int
	MaxBlockFrames int
	MasterGain     float64
	ChorusEnabled  bool
	ReverbEnabled  bool
	Limiter        bool
	// MaxSampleRate bounds the effect delay lines reserved at construction.
	MaxSampleRate int

	ChorusDelayMs  float32
	ChorusDepthMs  float32
	ChorusRateHz   float32
	ChorusFeedback float32
	ReverbRoomSize float32
	ReverbDamp     float32
	LimiterDB      float32
}

func DefaultParams() Params {
	return Params{
		Polyphony:      64,
		QueueCapacity:  1024,
		MaxBlockFrames: 1024,
		MasterGain:     0.5,
		ChorusEnabled:  true,
		ReverbEnabled:  true,
		Limiter:        false,
		MaxSampleRate:  192000,
		ChorusDelayMs:  12,
		ChorusDepthMs:  3,
		ChorusRateHz:   0.6,
		ChorusFeedback: 0.2,
		ReverbRoomSize: 0.6,
		ReverbDamp:     0.4,
		LimiterDB:      -1,
	}
}

var ErrNoBank = errors.New("engine: no sound bank")

type channel struct {
	state   *modulation.ChannelState
	bank    int
	program int
	preset  int
}

// Engine renders a bank polyphonically. Enqueue and the counters may be used
// from one control goroutine while another goroutine calls Render or Process;
// everything else belongs to the render goroutine.
type Engine struct {
	bank       *sf2.Bank
	params     Params
	sampleRate float64
	voices     []voice.Voice
	channels   [NumChannels]channel
	queue      *Queue
	zones      [maxNoteZones]modulation.Zones

	// bus is the preallocated storage, block the per-block view of it.
	bus         voice.Bus
	block       voice.Bus
	left, right []float32

	chorus effects.Effector
	reverb effects.Effector
	master *effects.Chain

	masterGain uint64
	rate       atomic.Int64
	seq        uint64
	noteID     uint64

	dropped atomic.Uint64
	stolen  atomic.Uint64
	active  atomic.Int32
}

func New(bank *sf2.Bank, sampleRate int, params Params) (*Engine, error) {
	if bank == nil {
		return nil, ErrNoBank
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("engine: sample rate must be positive, got %d", sampleRate)
	}
	def := DefaultParams()
	if params.Polyphony <= 0 {
		params.Polyphony = def.Polyphony
	}
	if params.QueueCapacity <= 0 {
		params.QueueCapacity = def.QueueCapacity
	}
	if params.MaxBlockFrames <= 0 {
		params.MaxBlockFrames = def.MaxBlockFrames
	}
	if params.MaxSampleRate < sampleRate {
		params.MaxSampleRate = sampleRate
	}
	e := &Engine{
		bank:       bank,
		params:     params,
		sampleRate: float64(sampleRate),
		voices:     make([]voice.Voice, params.Polyphony),
		queue:      NewQueue(params.QueueCapacity),
		masterGain: math.Float64bits(math.Max(0, params.MasterGain)),
		left:       make([]float32, params.MaxBlockFrames),
		right:      make([]float32, params.MaxBlockFrames),
		master:     effects.NewChain(),
	}
	e.rate.Store(int64(sampleRate))
	e.bus = voice.Bus{
		L: make([]float32, blockFrames), R: make([]float32, blockFrames),
		ChorusL: make([]float32, blockFrames), ChorusR: make([]float32, blockFrames),
		ReverbL: make([]float32, blockFrames), ReverbR: make([]float32, blockFrames),
	}
	if params.ChorusEnabled {
		e.chorus = effects.NewChorus(params.MaxSampleRate, sampleRate,
			params.ChorusDelayMs, params.ChorusDepthMs, params.ChorusRateHz, params.ChorusFeedback)
	}
	if params.ReverbEnabled {
		e.reverb = effects.NewReverb(params.MaxSampleRate, sampleRate, params.ReverbRoomSize, params.ReverbDamp)
	}
	if params.Limiter {
		e.master.Add(effects.NewLimiter(sampleRate, params.LimiterDB, 50))
	}
	for i := range e.channels {
		e.channels[i].state = modulation.NewChannelState()
		e.resetChannel(i)
	}
	return e, nil
}

func (e *Engine) resetChannel(i int) {
	c := &e.channels[i]
	c.state.Reset()
	c.bank, c.program = 0, 0
	if i == PercussionChannel {
		c.bank = sf2.PercussionBank
	}
	c.preset = -1
	if p, ok := e.bank.FindPreset(c.bank, c.program); ok {
		c.preset = p
	}
}

// Enqueue hands a command to the render goroutine. It returns false when the
// queue is full; the command is counted as dropped.
func (e *Engine) Enqueue(c Command) bool {
	if e.queue.Push(c) {
		return true
	}
	e.dropped.Add(1)
	return false
}

// Reset stops every voice and restores all channels to power-on state.
func (e *Engine) Reset() {
	for i := range e.voices {
		e.voices[i].Stop()
	}
	for i := range e.channels {
		e.resetChannel(i)
	}
}

// Apply executes a command immediately on the render goroutine.
func (e *Engine) Apply(c Command) {
	switch c.Kind {
	case CmdAllNotesOff, CmdAllSoundOff:
		lo, hi := c.Channel, c.Channel
		if c.Channel == AllChannels {
			lo, hi = 0, NumChannels-1
		}
		for ch := max(lo, 0); ch <= hi && ch < NumChannels; ch++ {
			if c.Kind == CmdAllNotesOff {
				e.allNotesOff(ch)
			} else {
				e.allSoundOff(ch)
			}
		}
		return
	case CmdSampleRate:
		e.setSampleRate(c.Value)
		return
	}
	if c.Channel < 0 || c.Channel >= NumChannels {
		return
	}
	ch := &e.channels[c.Channel]
	switch c.Kind {
	case CmdNoteOn:
		e.noteOn(c.Channel, c.Key, c.Value)
	case CmdNoteOff:
		e.noteOff(c.Channel, c.Key)
	case CmdControlChange:
		e.controlChange(c.Channel, c.Key, c.Value)
	case CmdPitchBend:
		ch.state.SetPitchWheel(c.Value)
	case CmdProgramChange:
		e.programChange(c.Channel, c.Key)
	case CmdPresetSelect:
		if p := e.bank.Preset(c.Value); p != nil {
			ch.preset = c.Value
			ch.bank, ch.program = p.Bank, p.Program
		}
	case CmdChannelPressure:
		ch.state.SetChannelPressure(c.Value)
	case CmdKeyPressure:
		ch.state.SetKeyPressure(c.Key, c.Value)
	}
}

func (e *Engine) noteOn(ch, key, velocity int) {
	if velocity <= 0 {
		e.noteOff(ch, key)
		return
	}
	if key < 0 || key > 127 {
		return
	}
	velocity = min(velocity, 127)
	c := &e.channels[ch]
	p := e.bank.Preset(c.preset)
	if p == nil {
		return
	}
	n := e.match(p, key, velocity)
	if n == 0 {
		return
	}
	e.noteID++
	for i := 0; i < n; i++ {
		v := e.allocate(e.noteID)
		e.seq++
		started := v.Start(voice.Setup{
			Bank:         e.bank,
			Zones:        e.zones[i],
			Channel:      c.state,
			ChannelIndex: ch,
			Key:          key,
			Velocity:     velocity,
			SampleRate:   e.sampleRate,
			NoteID:       e.noteID,
			Seq:          e.seq,
		})
		if started && v.ExclusiveClass() != 0 {
			e.exclusive(v)
		}
	}
}

// match collects the zone combinations a note plays into e.zones.
func (e *Engine) match(p *sf2.Preset, key, velocity int) int {
	n := 0
	for i := range p.Zones {
		pz := &p.Zones[i]
		if !pz.Matches(key, velocity) || pz.Link < 0 || pz.Link >= len(e.bank.Instruments) {
			continue
		}
		inst := &e.bank.Instruments[pz.Link]
		for j := range inst.Zones {
			iz := &inst.Zones[j]
			if !iz.Matches(key, velocity) {
				continue
			}
			if n == len(e.zones) {
				return n
			}
			e.zones[n] = modulation.Zones{
				PresetGlobal:     p.Global,
				Preset:           pz,
				InstrumentGlobal: inst.Global,
				Instrument:       iz,
			}
			n++
		}
	}
	return n
}

// exclusive stops other voices of the same exclusive class on the channel.
// Voices started by the same note-on are kept.
func (e *Engine) exclusive(started *voice.Voice) {
	for i := range e.voices {
		v := &e.voices[i]
		if v == started || !v.Active() || v.NoteID() == started.NoteID() {
			continue
		}
		if v.Channel() == started.Channel() && v.ExclusiveClass() == started.ExclusiveClass() {
			v.Stop()
		}
	}
}

// allocate returns an idle voice, stealing one when the pool is full. Voices
// of the note being started are only taken when nothing else is left.
func (e *Engine) allocate(noteID uint64) *voice.Voice {
	victim := -1
	for i := range e.voices {
		v := &e.voices[i]
		if !v.Active() {
			return v
		}
		if v.NoteID() == noteID {
			continue
		}
		if victim < 0 || stealBefore(v, &e.voices[victim]) {
			victim = i
		}
	}
	if victim < 0 {
		for i := range e.voices {
			if victim < 0 || stealBefore(&e.voices[i], &e.voices[victim]) {
				victim = i
			}
		}
	}
	e.voices[victim].Stop()
	e.stolen.Add(1)
	return &e.voices[victim]
}

// stealBefore orders steal candidates: releasing voices before active ones,
// then the quieter voice, then the older one.
func stealBefore(a, b *voice.Voice) bool {
	ar, br := a.State() == voice.Releasing, b.State() == voice.Releasing
	if ar != br {
		return ar
	}
	if la, lb := a.Level(), b.Level(); la != lb {
		return la < lb
	}
	return a.Seq() < b.Seq()
}

func (e *Engine) noteOff(ch, key int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.Active() && v.Channel() == ch && v.Key() == key && v.KeyDown() {
			v.NoteOff()
		}
	}
}

func (e *Engine) allNotesOff(ch int) {
	for i := range e.voices {
		if v := &e.voices[i]; v.Active() && v.Channel() == ch {
			v.Release()
		}
	}
}

func (e *Engine) allSoundOff(ch int) {
	for i := range e.voices {
		if v := &e.voices[i]; v.Active() && v.Channel() == ch {
			v.Stop()
		}
	}
}

func (e *Engine) controlChange(ch, cc, value int) {
	c := &e.channels[ch]
	switch cc {
	case modulation.CCAllSoundOff:
		e.allSoundOff(ch)
		return
	case modulation.CCAllNotesOff:
		e.allNotesOff(ch)
		return
	case modulation.CCResetAllController:
		c.state.ResetControllers()
		e.pedals(ch)
		return
	case modulation.CCBankSelect:
		// Drum kits are chosen by program number on the percussion channel.
		if ch != PercussionChannel {
			c.bank = max(0, min(value, 127))
		}
	}
	wasSostenuto := c.state.Sostenuto()
	c.state.SetController(cc, value)
	switch cc {
	case modulation.CCSustain:
		e.pedals(ch)
	case modulation.CCSostenuto:
		if !wasSostenuto && c.state.Sostenuto() {
			for i := range e.voices {
				if v := &e.voices[i]; v.Channel() == ch {
					v.LatchSostenuto()
				}
			}
		} else {
			e.pedals(ch)
		}
	}
}

func (e *Engine) pedals(ch int) {
	for i := range e.voices {
		if v := &e.voices[i]; v.Active() && v.Channel() == ch {
			v.Pedals()
		}
	}
}

func (e *Engine) programChange(ch, program int) {
	c := &e.channels[ch]
	program = max(0, min(program, 127))
	if p, ok := e.bank.FindPreset(c.bank, program); ok {
		c.program = program
		c.preset = p
	}
}

func (e *Engine) setSampleRate(hz int) {
	if hz <= 0 || float64(hz) == e.sampleRate {
		return
	}
	e.sampleRate = float64(hz)
	e.rate.Store(int64(hz))
	for i := range e.voices {
		e.voices[i].SetSampleRate(e.sampleRate)
	}
	if e.chorus != nil {
		e.chorus.SetSampleRate(hz)
	}
	if e.reverb != nil {
		e.reverb.SetSampleRate(hz)
	}
	e.master.SetSampleRate(hz)
}

func (e *Engine) drain() {
	for {
		c, ok := e.queue.Pop()
		if !ok {
			return
		}
		e.Apply(c)
	}
}

// Render applies queued commands and fills left and right with the next
// min(len(left), len(right)) frames. It does not allocate.
func (e *Engine) Render(left, right []float32) {
	e.drain()
	n := min(len(left), len(right))
	for off := 0; off < n; off += blockFrames {
		end := min(off+blockFrames, n)
		e.renderBlock(left[off:end], right[off:end])
	}
	e.active.Store(int32(e.ActiveVoiceCount()))
}

// Process renders interleaved stereo frames into dst. A trailing sample that
// does not complete a frame is set to zero.
func (e *Engine) Process(dst []float32) {
	frames := len(dst) / 2
	if len(dst)%2 != 0 {
		dst[len(dst)-1] = 0
	}
	for off := 0; off < frames; {
		n := min(frames-off, len(e.left))
		l, r := e.left[:n], e.right[:n]
		e.Render(l, r)
		out := dst[2*off : 2*(off+n)]
		for i := 0; i < n; i++ {
			out[2*i] = l[i]
			out[2*i+1] = r[i]
		}
		off += n
	}
}

func (e *Engine) renderBlock(left, right []float32) {
	frames := len(left)
	b := &e.block
	b.L, b.R = e.bus.L[:frames], e.bus.R[:frames]
	b.ChorusL, b.ChorusR = e.bus.ChorusL[:frames], e.bus.ChorusR[:frames]
	b.ReverbL, b.ReverbR = e.bus.ReverbL[:frames], e.bus.ReverbR[:frames]
	clear(b.L)
	clear(b.R)
	clear(b.ChorusL)
	clear(b.ChorusR)
	clear(b.ReverbL)
	clear(b.ReverbR)

	for i := range e.voices {
		if e.voices[i].Active() {
			e.voices[i].Render(b, frames)
		}
	}

	gain := float32(e.masterGainValue())
	for i := 0; i < frames; i++ {
		l, r := b.L[i], b.R[i]
		if e.chorus != nil {
			cl, cr := e.chorus.Process(b.ChorusL[i], b.ChorusR[i])
			l += cl
			r += cr
		}
		if e.reverb != nil {
			rl, rr := e.reverb.Process(b.ReverbL[i], b.ReverbR[i])
			l += rl
			r += rr
		}
		left[i], right[i] = e.master.Process(l*gain, r*gain)
	}
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *Engine) MasterGain() float64 { return e.masterGainValue() }

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

// ActiveVoiceCount counts sounding voices. Call it from the render goroutine;
// other goroutines use ActiveVoices.
func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].Active() {
			n++
		}
	}
	return n
}

// ActiveVoices is the voice count at the end of the last Render.
func (e *Engine) ActiveVoices() int { return int(e.active.Load()) }

// DroppedCommands counts commands rejected by a full queue.
func (e *Engine) DroppedCommands() uint64 { return e.dropped.Load() }

// StolenVoices counts voices reclaimed while still sounding.
func (e *Engine) StolenVoices() uint64 { return e.stolen.Load() }

// SampleRate is the current render rate in Hz.
func (e *Engine) SampleRate() int { return int(e.rate.Load()) }

// Polyphony is the voice pool size.
func (e *Engine) Polyphony() int { return len(e.voices) }

// Bank returns the bank being played.
func (e *Engine) Bank() *sf2.Bank { return e.bank }

// ChannelPreset returns the preset index selected on ch, or -1.
func (e *Engine) ChannelPreset(ch int) int {
	if ch < 0 || ch >= NumChannels {
		return -1
	}
	return e.channels[ch].preset
}

// Voice exposes pool slot i for inspection from the render goroutine.
func (e *Engine) Voice(i int) *voice.Voice { return &e.voices[i] }

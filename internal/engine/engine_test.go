package engine

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cbegin/sf2synth-go/internal/modulation"
	"github.com/cbegin/sf2synth-go/internal/sf2"
	"github.com/cbegin/sf2synth-go/internal/sf2/sf2test"
	"github.com/cbegin/sf2synth-go/internal/voice"
)

const rate = 44100

var fixture = sf2test.MustDecode(sf2test.Fixture())

func newEngine(t *testing.T, polyphony int) *Engine {
	t.Helper()
	p := DefaultParams()
	p.Polyphony = polyphony
	p.ChorusEnabled = false
	p.ReverbEnabled = false
	e, err := New(fixture, rate, p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func render(e *Engine, frames int) {
	l := make([]float32, frames)
	r := make([]float32, frames)
	e.Render(l, r)
}

func sounding(e *Engine) map[int]voice.State {
	keys := map[int]voice.State{}
	for i := 0; i < e.Polyphony(); i++ {
		if v := e.Voice(i); v.Active() {
			keys[v.Key()] = v.State()
		}
	}
	return keys
}

func TestNewValidates(t *testing.T) {
	if _, err := New(nil, rate, DefaultParams()); err != ErrNoBank {
		t.Fatalf("nil bank: %v", err)
	}
	if _, err := New(fixture, 0, DefaultParams()); err == nil {
		t.Fatal("zero sample rate accepted")
	}
}

func TestStealWithCapacityOne(t *testing.T) {
	e := newEngine(t, 1)
	e.Apply(NoteOn(0, 60, 100))
	render(e, 256)
	e.Apply(NoteOn(0, 62, 100))
	got := sounding(e)
	if len(got) != 1 || got[62] != voice.Active {
		t.Fatalf("sounding = %v, want only 62 active", got)
	}
	if e.StolenVoices() != 1 {
		t.Fatalf("stolen = %d", e.StolenVoices())
	}
	render(e, 256)
	if e.ActiveVoices() != 1 {
		t.Fatalf("active after render = %d", e.ActiveVoices())
	}
}

func TestStealPrefersReleasingVoice(t *testing.T) {
	e := newEngine(t, 2)
	e.Apply(NoteOn(0, 60, 100))
	render(e, 2048)
	e.Apply(NoteOn(0, 62, 100))
	render(e, 2048)
	e.Apply(NoteOff(0, 60))
	render(e, 256)
	if got := sounding(e); got[60] != voice.Releasing || got[62] != voice.Active {
		t.Fatalf("before steal: %v", got)
	}
	e.Apply(NoteOn(0, 64, 100))
	got := sounding(e)
	if len(got) != 2 || got[62] != voice.Active || got[64] != voice.Active {
		t.Fatalf("after steal: %v, want 62 and 64", got)
	}
}

func TestStealQuietestActiveVoice(t *testing.T) {
	e := newEngine(t, 2)
	e.Apply(NoteOn(0, 60, 100))
	render(e, 2048)
	e.Apply(NoteOn(0, 62, 100))
	render(e, 64)
	// 62 is still in its attack and quieter than the sustained 60.
	e.Apply(NoteOn(0, 64, 100))
	got := sounding(e)
	if _, ok := got[62]; ok || len(got) != 2 {
		t.Fatalf("sounding = %v, want 60 and 64", got)
	}
}

func TestExclusiveClassStopsSibling(t *testing.T) {
	e := newEngine(t, 8)
	e.Apply(NoteOn(PercussionChannel, 42, 100))
	e.Apply(NoteOn(PercussionChannel, 36, 100))
	render(e, 64)
	e.Apply(NoteOn(PercussionChannel, 46, 100))
	got := sounding(e)
	if _, ok := got[42]; ok {
		t.Fatalf("closed hat still sounding: %v", got)
	}
	if len(got) != 2 || got[46] != voice.Active || got[36] != voice.Active {
		t.Fatalf("sounding = %v, want 36 and 46", got)
	}
}

func TestNoteOnAndOffInOneBlock(t *testing.T) {
	e := newEngine(t, 4)
	if !e.Enqueue(NoteOn(0, 60, 100)) || !e.Enqueue(NoteOff(0, 60)) {
		t.Fatal("queue rejected commands")
	}
	l := make([]float32, 64)
	r := make([]float32, 64)
	e.Render(l, r)
	if got := sounding(e); got[60] != voice.Releasing {
		t.Fatalf("after first block: %v, want 60 releasing", got)
	}
	var peak float32
	for i := 0; i < 200 && e.ActiveVoiceCount() > 0; i++ {
		for _, x := range l {
			peak = max(peak, x, -x)
		}
		e.Render(l, r)
	}
	if peak == 0 {
		t.Fatal("short note was silent")
	}
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("voices still sounding: %v", sounding(e))
	}
}

func TestSustainPedalHoldsNotes(t *testing.T) {
	e := newEngine(t, 4)
	e.Apply(ControlChange(0, modulation.CCSustain, 127))
	e.Apply(NoteOn(0, 60, 100))
	render(e, 64)
	e.Apply(NoteOff(0, 60))
	if got := sounding(e); got[60] != voice.Active {
		t.Fatalf("pedal did not hold: %v", got)
	}
	e.Apply(ControlChange(0, modulation.CCSustain, 0))
	if got := sounding(e); got[60] != voice.Releasing {
		t.Fatalf("pedal up did not release: %v", got)
	}
}

func TestSostenutoHoldsHeldKeysOnly(t *testing.T) {
	e := newEngine(t, 4)
	e.Apply(NoteOn(0, 60, 100))
	e.Apply(ControlChange(0, modulation.CCSostenuto, 127))
	e.Apply(NoteOn(0, 62, 100))
	e.Apply(NoteOff(0, 60))
	e.Apply(NoteOff(0, 62))
	got := sounding(e)
	if got[60] != voice.Active || got[62] != voice.Releasing {
		t.Fatalf("sounding = %v", got)
	}
}

func TestProgramAndPresetSelection(t *testing.T) {
	e := newEngine(t, 4)
	lead, _ := fixture.FindPreset(0, 0)
	drums, _ := fixture.FindPreset(sf2.PercussionBank, 0)
	if e.ChannelPreset(0) != lead || e.ChannelPreset(PercussionChannel) != drums {
		t.Fatalf("default presets %d/%d", e.ChannelPreset(0), e.ChannelPreset(PercussionChannel))
	}
	e.Apply(ProgramChange(0, 5))
	if e.ChannelPreset(0) != lead {
		t.Fatalf("missing program did not fall back: %d", e.ChannelPreset(0))
	}
	e.Apply(PresetSelect(1, drums))
	if e.ChannelPreset(1) != drums {
		t.Fatalf("preset select = %d", e.ChannelPreset(1))
	}
	e.Apply(PresetSelect(1, 99))
	if e.ChannelPreset(1) != drums {
		t.Fatal("out of range preset index was applied")
	}
	e.Apply(NoteOn(1, 36, 100))
	if e.ActiveVoiceCount() != 1 {
		t.Fatalf("drum note on channel 1 started %d voices", e.ActiveVoiceCount())
	}
	e.Apply(NoteOn(1, 80, 100))
	if e.ActiveVoiceCount() != 1 {
		t.Fatal("note outside every zone started a voice")
	}
}

func TestOutOfRangeInputIgnored(t *testing.T) {
	e := newEngine(t, 4)
	e.Apply(NoteOn(16, 60, 100))
	e.Apply(NoteOn(0, 200, 100))
	e.Apply(NoteOn(-3, 60, 100))
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("invalid notes started %d voices", e.ActiveVoiceCount())
	}
	e.Apply(NoteOn(0, 60, 500))
	if e.ActiveVoiceCount() != 1 {
		t.Fatal("velocity above 127 not clamped")
	}
}

func TestQueueOverflowCounted(t *testing.T) {
	p := DefaultParams()
	p.QueueCapacity = 4
	e, err := New(fixture, rate, p)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		e.Enqueue(NoteOn(0, 60+i, 100))
	}
	if e.DroppedCommands() != 1 {
		t.Fatalf("dropped = %d, want 1", e.DroppedCommands())
	}
	render(e, 64)
	if e.ActiveVoices() != 4 {
		t.Fatalf("active = %d, want 4", e.ActiveVoices())
	}
}

func TestAllNotesAndSoundOff(t *testing.T) {
	e := newEngine(t, 8)
	e.Apply(NoteOn(0, 60, 100))
	e.Apply(NoteOn(1, 62, 100))
	e.Apply(AllNotesOff(AllChannels))
	for k, s := range sounding(e) {
		if s != voice.Releasing {
			t.Fatalf("key %d is %s after all notes off", k, s)
		}
	}
	e.Apply(AllSoundOff(AllChannels))
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("%d voices after all sound off", e.ActiveVoiceCount())
	}
}

func TestSampleRateCommand(t *testing.T) {
	e := newEngine(t, 4)
	e.Apply(NoteOn(0, 60, 100))
	e.Enqueue(SampleRate(22050))
	render(e, 128)
	if e.SampleRate() != 22050 {
		t.Fatalf("rate = %d", e.SampleRate())
	}
	if e.ActiveVoices() != 1 {
		t.Fatal("rate change reset the voice")
	}
}

func TestProcessInterleaves(t *testing.T) {
	p := DefaultParams()
	p.MaxBlockFrames = 100
	e, err := New(fixture, rate, p)
	if err != nil {
		t.Fatal(err)
	}
	e.Apply(ControlChange(0, modulation.CCPan, 0))
	e.Apply(NoteOn(0, 60, 127))
	dst := make([]float32, 2*1000)
	e.Process(dst)
	var l, r float64
	for i := 0; i < len(dst); i += 2 {
		l += math.Abs(float64(dst[i]))
		r += math.Abs(float64(dst[i+1]))
	}
	if l == 0 || l <= r {
		t.Fatalf("hard left pan produced l=%v r=%v", l, r)
	}
}

func TestProcessZeroesOddTrailingSample(t *testing.T) {
	e := newEngine(t, 4)
	e.Apply(NoteOn(0, 60, 127))
	dst := make([]float32, 2*256+1)
	dst[len(dst)-1] = 1
	e.Process(dst)
	if dst[len(dst)-1] != 0 {
		t.Fatalf("trailing sample = %v, want 0", dst[len(dst)-1])
	}
	var sum float64
	for _, x := range dst[len(dst)-65 : len(dst)-1] {
		sum += math.Abs(float64(x))
	}
	if sum == 0 {
		t.Fatal("trailing whole frames not rendered")
	}
}

func TestMasterGain(t *testing.T) {
	e := newEngine(t, 4)
	e.SetMasterGain(-1)
	if e.MasterGain() != 0 {
		t.Fatalf("negative gain stored as %v", e.MasterGain())
	}
	e.Apply(NoteOn(0, 60, 100))
	l := make([]float32, 256)
	r := make([]float32, 256)
	e.Render(l, r)
	for i := range l {
		if l[i] != 0 || r[i] != 0 {
			t.Fatal("zero gain produced output")
		}
	}
}

func TestRenderDoesNotAllocate(t *testing.T) {
	p := DefaultParams()
	p.Polyphony = 8
	p.Limiter = true
	e, err := New(fixture, rate, p)
	if err != nil {
		t.Fatal(err)
	}
	l := make([]float32, 512)
	r := make([]float32, 512)
	e.Render(l, r)
	key := 0
	allocs := testing.AllocsPerRun(200, func() {
		e.Enqueue(NoteOn(0, 40+key%40, 100))
		e.Enqueue(NoteOn(PercussionChannel, 36+key%12, 90))
		e.Enqueue(ControlChange(0, modulation.CCModulationWheel, key%128))
		e.Enqueue(NoteOff(0, 40+(key+20)%40))
		key++
		e.Render(l, r)
	})
	if allocs != 0 {
		t.Fatalf("render allocated %v times per call", allocs)
	}
}

func TestRandomEventsStayStable(t *testing.T) {
	p := DefaultParams()
	p.Polyphony = 16
	e, err := New(fixture, rate, p)
	if err != nil {
		t.Fatal(err)
	}
	pcmFrames := float64(len(fixture.PCM))
	rng := rand.New(rand.NewSource(7))
	controllers := [...]int{1, 7, 10, 11, 64, 66, 91, 93, 121}
	l := make([]float32, 256)
	r := make([]float32, 256)
	e.Render(l, r)

	allocs := testing.AllocsPerRun(1, func() {
		for i := 0; i < 10000; i++ {
			ch := rng.Intn(NumChannels)
			switch rng.Intn(6) {
			case 0, 1:
				e.Enqueue(NoteOn(ch, rng.Intn(128), rng.Intn(128)))
			case 2:
				e.Enqueue(NoteOff(ch, rng.Intn(128)))
			case 3:
				e.Enqueue(ControlChange(ch, controllers[rng.Intn(len(controllers))], rng.Intn(128)))
			case 4:
				e.Enqueue(PitchBend(ch, rng.Intn(16384)))
			case 5:
				e.Enqueue(ProgramChange(ch, rng.Intn(4)))
			}
			n := 1 + rng.Intn(len(l))
			e.Render(l[:n], r[:n])
			for j := 0; j < n; j++ {
				if math.IsNaN(float64(l[j])) || math.IsInf(float64(l[j]), 0) ||
					math.IsNaN(float64(r[j])) || math.IsInf(float64(r[j]), 0) {
					t.Fatalf("iteration %d: non-finite output", i)
				}
			}
			for v := 0; v < e.Polyphony(); v++ {
				if vc := e.Voice(v); vc.Active() {
					if pos := vc.Position(); pos < 0 || pos > pcmFrames {
						t.Fatalf("iteration %d: voice %d cursor %v outside PCM [0, %v]", i, v, pos, pcmFrames)
					}
				}
			}
		}
	})
	if allocs != 0 {
		t.Fatalf("randomised rendering allocated %v times", allocs)
	}
}

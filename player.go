package sf2synth

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"

	intaudio "github.com/cbegin/sf2synth-go/internal/audio"
	intseq "github.com/cbegin/sf2synth-go/internal/sequencer"
)

// EventKind identifies a PlaybackEvent.
type EventKind int

const (
	// EventLoopCompleted fires each time a looping song wraps around.
	EventLoopCompleted EventKind = iota
	// EventPlaybackEnded fires once a song and its release tail have played,
	// or when Stop is called.
	EventPlaybackEnded
)

func (k EventKind) String() string {
	switch k {
	case EventLoopCompleted:
		return "loop-completed"
	case EventPlaybackEnded:
		return "playback-ended"
	}
	return "unknown"
}

type PlaybackEvent struct {
	Kind EventKind
}

// Player plays a bank through the system audio output, either live through
// Synth or by sequencing a MIDI file.
type Player struct {
	mu         sync.Mutex
	bank       *Bank
	sampleRate int
	cfg        config
	synth      *Synth
	out        *intaudio.Player
	baseGain   float64
	volume     float64
	done       chan struct{}

	watchMu sync.Mutex
	watcher chan PlaybackEvent
}

// songSource feeds a sequenced song to the output and ends the stream once
// the sequencer reports the end.
type songSource struct {
	seq   *intseq.Sequencer
	ended atomic.Bool
	tap   func([]float32)
}

func (s *songSource) Process(dst []float32) {
	s.seq.Process(dst)
	if s.tap != nil {
		s.tap(dst)
	}
}

func (s *songSource) Finished() bool { return s.ended.Load() }

func NewPlayer(bank *Bank, sampleRate int, opts ...Option) (*Player, error) {
	if bank == nil {
		return nil, errors.New("bank is nil")
	}
	cfg, err := buildConfig(sampleRate, opts)
	if err != nil {
		return nil, err
	}
	synth, err := newSynth(bank, sampleRate, cfg)
	if err != nil {
		return nil, err
	}
	return &Player{
		bank:       bank,
		sampleRate: sampleRate,
		cfg:        cfg,
		synth:      synth,
		baseGain:   cfg.params.MasterGain,
		volume:     1,
	}, nil
}

// Synth returns the synthesizer currently feeding the output. It changes on
// every PlayMIDI call.
func (p *Player) Synth() *Synth {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.synth
}

// Start opens the output for live playing through Synth.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetDone()
	return p.startLocked(p.synth)
}

func (p *Player) PlayMIDIFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return pkgerrors.Wrapf(err, "read midi %s", path)
	}
	return p.PlayMIDI(data)
}

// PlayMIDI sequences a Standard MIDI File.
func (p *Player) PlayMIDI(data []byte) error {
	song, err := intseq.LoadSMF(data)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetDone()
	done := p.done

	// A fresh synth per song keeps voice and controller state from leaking
	// between files.
	synth, err := newSynth(p.bank, p.sampleRate, p.cfg)
	if err != nil {
		return err
	}
	synth.SetMasterGain(p.baseGain * p.volume)
	p.synth = synth
	p.cfg.logger.Debug("midi loaded",
		"tracks", song.Tracks, "events", len(song.Events),
		"skipped", song.Skipped, "seconds", song.Length)

	src := &songSource{tap: p.cfg.sampleTap}
	src.seq = intseq.NewWithOptions(song, synth.eng, p.sampleRate, intseq.Options{
		Loop:           p.cfg.loop,
		MaxBlockFrames: p.cfg.params.MaxBlockFrames,
		OnEvent: func(kind intseq.EventKind) {
			switch kind {
			case intseq.EventLoopCompleted:
				p.sendEvent(PlaybackEvent{Kind: EventLoopCompleted})
			case intseq.EventPlaybackEnded:
				src.ended.Store(true)
				p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
				// Runs on the audio thread; Stop may be holding mu while it
				// closes this stream.
				go p.signalDone(done)
			}
		},
	})
	return p.startLocked(src)
}

// resetDone releases waiters on the previous playback.
func (p *Player) resetDone() {
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})
}

func (p *Player) startLocked(src intaudio.SampleSource) error {
	out, err := intaudio.NewPlayer(p.sampleRate, src, p.cfg.bufferSize)
	if err != nil {
		return err
	}
	if p.out != nil {
		_ = p.out.Stop()
	}
	p.out = out
	out.Play()
	return nil
}

// sendEvent never blocks; a watcher that falls behind misses events.
func (p *Player) sendEvent(ev PlaybackEvent) {
	p.watchMu.Lock()
	defer p.watchMu.Unlock()
	if p.watcher == nil {
		return
	}
	select {
	case p.watcher <- ev:
	default:
	}
}

func (p *Player) takeDoneLocked() chan struct{} {
	done := p.done
	p.done = nil
	return done
}

// signalDone releases waiters on done if it still belongs to the current
// song. A later PlayMIDI or Stop has already closed it otherwise.
func (p *Player) signalDone(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if done == nil || p.done != done {
		return
	}
	close(p.takeDoneLocked())
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		p.out.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		p.out.Play()
	}
}

// Stop closes the output and reports EventPlaybackEnded. Stopping an idle
// player is a no-op.
func (p *Player) Stop() error {
	p.mu.Lock()
	out := p.out
	p.out = nil
	done := p.takeDoneLocked()
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
	if out == nil {
		return nil
	}
	err := out.Stop()
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	return err
}

// Wait returns when the current song ends, is stopped or is replaced. A
// looping song never ends on its own. Wait returns at once when idle.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch subscribes to playback events, replacing any earlier subscription.
// The channel holds eight events.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.watchMu.Lock()
	p.watcher = ch
	p.watchMu.Unlock()
	return ch
}

// SetMasterVolume scales the configured master gain; 1 leaves it unchanged.
// Negative volumes are treated as 0.
func (p *Player) SetMasterVolume(volume float64) {
	volume = max(volume, 0)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.synth.SetMasterGain(p.baseGain * volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlaybackPosition is the frame the device is playing now, or 0 when idle.
func (p *Player) PlaybackPosition() int64 {
	p.mu.Lock()
	out := p.out
	p.mu.Unlock()
	if out == nil {
		return 0
	}
	return int64(out.Position().Seconds() * float64(p.sampleRate))
}

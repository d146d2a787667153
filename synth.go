package sf2synth

import (
	"errors"
	"log/slog"
	"math/bits"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/sf2synth-go/internal/engine"
	"github.com/cbegin/sf2synth-go/internal/logger"
)

// PercussionChannel is the zero-based MIDI channel that plays drum kits.
const PercussionChannel = engine.PercussionChannel

// AllChannels addresses every channel in AllNotesOff and AllSoundOff.
const AllChannels = engine.AllChannels

type Option func(*config)

type config struct {
	params     engine.Params
	logger     *slog.Logger
	sampleTap  func([]float32)
	loop       bool
	bufferSize time.Duration
}

func defaultConfig() config {
	return config{params: engine.DefaultParams()}
}

func WithPolyphony(voices int) Option {
	return func(cfg *config) { cfg.params.Polyphony = voices }
}

// WithQueueCapacity sizes the command queue; it is rounded up to a power of two.
func WithQueueCapacity(commands int) Option {
	return func(cfg *config) { cfg.params.QueueCapacity = commands }
}

func WithMasterGain(gain float64) Option {
	return func(cfg *config) { cfg.params.MasterGain = gain }
}

func WithEffects(chorus, reverb bool) Option {
	return func(cfg *config) {
		cfg.params.ChorusEnabled = chorus
		cfg.params.ReverbEnabled = reverb
	}
}

func WithLimiter(enabled bool) Option {
	return func(cfg *config) { cfg.params.Limiter = enabled }
}

func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *config) { cfg.sampleTap = tap }
}

// WithMaxBlockFrames sizes the scratch used by Process.
func WithMaxBlockFrames(frames int) Option {
	return func(cfg *config) { cfg.params.MaxBlockFrames = frames }
}

// WithLoopPlayback makes a Player restart MIDI files when they end.
func WithLoopPlayback(enabled bool) Option {
	return func(cfg *config) { cfg.loop = enabled }
}

// WithBufferSize sets the audio device buffer of a Player.
func WithBufferSize(d time.Duration) Option {
	return func(cfg *config) { cfg.bufferSize = d }
}

func buildConfig(sampleRate int, opts []Option) (config, error) {
	if sampleRate <= 0 {
		return config{}, errors.New("sampleRate must be positive")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.params.Polyphony <= 0:
		return config{}, errors.New("polyphony must be positive")
	case cfg.params.QueueCapacity <= 0:
		return config{}, errors.New("queue capacity must be positive")
	case cfg.params.MaxBlockFrames <= 0:
		return config{}, errors.New("max block frames must be positive")
	case cfg.params.MasterGain < 0:
		return config{}, errors.New("master gain must not be negative")
	}
	if cfg.logger == nil {
		cfg.logger = logger.GetLogger()
	}
	return cfg, nil
}

// Synth is a polyphonic SF2 synthesizer. Note and controller methods may be
// called from one control goroutine while another goroutine renders; they
// never block and report false when the command queue is full.
type Synth struct {
	eng *engine.Engine
	log *slog.Logger
	tap func([]float32)
}

func NewSynth(bank *Bank, sampleRate int, opts ...Option) (*Synth, error) {
	cfg, err := buildConfig(sampleRate, opts)
	if err != nil {
		return nil, err
	}
	return newSynth(bank, sampleRate, cfg)
}

func newSynth(bank *Bank, sampleRate int, cfg config) (*Synth, error) {
	eng, err := engine.New(bank, sampleRate, cfg.params)
	if err != nil {
		return nil, err
	}
	cfg.logger.Info("synth ready",
		"bank", bank.Info.Name,
		"presets", len(bank.Presets),
		"instruments", len(bank.Instruments),
		"samples", len(bank.Samples),
		"polyphony", eng.Polyphony(),
		"sampleRate", sampleRate)
	return &Synth{eng: eng, log: cfg.logger, tap: cfg.sampleTap}, nil
}

func (s *Synth) send(c engine.Command) bool {
	if s.eng.Enqueue(c) {
		return true
	}
	// Warn on the 1st, 2nd, 4th, 8th... drop.
	if n := s.eng.DroppedCommands(); bits.OnesCount64(n) == 1 {
		s.log.Warn("command queue full", "command", c.Kind.String(), "dropped", n)
	}
	return false
}

// NoteOn starts a note; velocity 0 is a note-off.
func (s *Synth) NoteOn(channel, key, velocity int) bool {
	return s.send(engine.NoteOn(channel, key, velocity))
}

func (s *Synth) NoteOff(channel, key int) bool {
	return s.send(engine.NoteOff(channel, key))
}

func (s *Synth) ControlChange(channel, controller, value int) bool {
	return s.send(engine.ControlChange(channel, controller, value))
}

// PitchBend takes the 14-bit wheel position; 8192 is centre.
func (s *Synth) PitchBend(channel, value int) bool {
	return s.send(engine.PitchBend(channel, value))
}

func (s *Synth) ProgramChange(channel, program int) bool {
	return s.send(engine.ProgramChange(channel, program))
}

// SelectPreset assigns a preset by its index in the bank.
func (s *Synth) SelectPreset(channel, preset int) bool {
	return s.send(engine.PresetSelect(channel, preset))
}

func (s *Synth) ChannelPressure(channel, pressure int) bool {
	return s.send(engine.ChannelPressure(channel, pressure))
}

func (s *Synth) KeyPressure(channel, key, pressure int) bool {
	return s.send(engine.KeyPressure(channel, key, pressure))
}

// AllNotesOff releases the channel's voices, or every voice for AllChannels.
func (s *Synth) AllNotesOff(channel int) bool {
	return s.send(engine.AllNotesOff(channel))
}

// AllSoundOff silences voices immediately.
func (s *Synth) AllSoundOff(channel int) bool {
	return s.send(engine.AllSoundOff(channel))
}

// SetSampleRate changes the render rate at the next render call.
func (s *Synth) SetSampleRate(hz int) bool {
	if hz <= 0 {
		return false
	}
	return s.send(engine.SampleRate(hz))
}

// SendMIDI queues a channel voice message. It returns false when the message
// is not one the synth consumes or the queue is full.
func (s *Synth) SendMIDI(msg midi.Message) bool {
	c, ok := engine.CommandFromMIDI(msg)
	if !ok {
		return false
	}
	return s.send(c)
}

// Render fills left and right. Call it from the audio goroutine only.
func (s *Synth) Render(left, right []float32) {
	s.eng.Render(left, right)
}

// Process renders interleaved stereo frames and implements the audio stream
// source interface.
func (s *Synth) Process(dst []float32) {
	s.eng.Process(dst)
	if s.tap != nil {
		s.tap(dst)
	}
}

func (s *Synth) SetMasterGain(gain float64) { s.eng.SetMasterGain(gain) }
func (s *Synth) MasterGain() float64        { return s.eng.MasterGain() }

// ActiveVoices is the number of voices sounding after the last render.
func (s *Synth) ActiveVoices() int { return s.eng.ActiveVoices() }

func (s *Synth) DroppedCommands() uint64 { return s.eng.DroppedCommands() }
func (s *Synth) StolenVoices() uint64    { return s.eng.StolenVoices() }
func (s *Synth) SampleRate() int         { return s.eng.SampleRate() }
func (s *Synth) Polyphony() int          { return s.eng.Polyphony() }
func (s *Synth) Bank() *Bank             { return s.eng.Bank() }

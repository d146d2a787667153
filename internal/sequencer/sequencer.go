// Package sequencer plays a Song against an engine with sample-accurate event
// timing.
package sequencer

import (
	"math"

	"github.com/cbegin/sf2synth-go/internal/engine"
)

// Target is the render side of the engine. Every method is called from the
// goroutine that calls Process.
type Target interface {
	Apply(c engine.Command)
	Render(left, right []float32)
	ActiveVoiceCount() int
}

// EventKind identifies sequencer lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

func (k EventKind) String() string {
	switch k {
	case EventLoopCompleted:
		return "loop-completed"
	case EventPlaybackEnded:
		return "playback-ended"
	default:
		return "unknown"
	}
}

type Options struct {
	Loop bool
	// OnEvent runs on the render goroutine; keep it brief and non-blocking.
	OnEvent func(EventKind)
	// ReleaseTailFrames is rendered after the last voice ends before
	// EventPlaybackEnded fires (0 = a quarter second).
	ReleaseTailFrames int
	// MaxBlockFrames sizes the scratch buffers (0 = 1024).
	MaxBlockFrames int
}

type scheduled struct {
	frame int64
	cmd   engine.Command
}

type Sequencer struct {
	target      Target
	sampleRate  int
	events      []scheduled
	lengthFrame int64
	next        int
	frame       int64
	loop        bool
	onEvent     func(EventKind)
	tailFrames  int
	tail        int
	exhausted   bool
	ended       bool
	loops       int
	left, right []float32
}

func New(song *Song, target Target, sampleRate int) *Sequencer {
	return NewWithOptions(song, target, sampleRate, Options{})
}

func NewWithOptions(song *Song, target Target, sampleRate int, opts Options) *Sequencer {
	tail := opts.ReleaseTailFrames
	if tail <= 0 {
		tail = sampleRate / 4
	}
	block := opts.MaxBlockFrames
	if block <= 0 {
		block = 1024
	}
	s := &Sequencer{
		target:     target,
		sampleRate: sampleRate,
		loop:       opts.Loop,
		onEvent:    opts.OnEvent,
		tailFrames: tail,
		tail:       tail,
		left:       make([]float32, block),
		right:      make([]float32, block),
	}
	s.events = make([]scheduled, len(song.Events))
	for i, ev := range song.Events {
		s.events[i] = scheduled{frame: s.toFrame(ev.Seconds), cmd: ev.Command}
	}
	s.lengthFrame = s.toFrame(song.Length)
	if n := len(s.events); n > 0 && s.events[n-1].frame > s.lengthFrame {
		s.lengthFrame = s.events[n-1].frame
	}
	return s
}

func (s *Sequencer) toFrame(seconds float64) int64 {
	return int64(math.Round(seconds * float64(s.sampleRate)))
}

// Process renders interleaved stereo frames into dst, applying each event at
// its exact frame.
func (s *Sequencer) Process(dst []float32) {
	frames := len(dst) / 2
	for off := 0; off < frames; {
		s.dispatch()
		n := min(frames-off, len(s.left))
		if s.next < len(s.events) {
			n = int(min(int64(n), s.events[s.next].frame-s.frame))
		} else if s.loop && s.frame < s.lengthFrame {
			n = int(min(int64(n), s.lengthFrame-s.frame))
		}
		if n <= 0 {
			n = 1
		}
		l, r := s.left[:n], s.right[:n]
		s.target.Render(l, r)
		out := dst[2*off : 2*(off+n)]
		for i := 0; i < n; i++ {
			out[2*i] = l[i]
			out[2*i+1] = r[i]
		}
		off += n
		s.frame += int64(n)
		s.checkEnd(n)
	}
}

func (s *Sequencer) dispatch() {
	s.applyDue()
	if s.next < len(s.events) {
		return
	}
	if s.loop && s.lengthFrame > 0 {
		if s.frame >= s.lengthFrame {
			s.rewind()
			s.applyDue()
		}
		return
	}
	s.exhausted = true
}

func (s *Sequencer) applyDue() {
	for s.next < len(s.events) && s.events[s.next].frame <= s.frame {
		s.target.Apply(s.events[s.next].cmd)
		s.next++
	}
}

func (s *Sequencer) rewind() {
	s.target.Apply(engine.AllNotesOff(engine.AllChannels))
	s.next = 0
	s.frame = 0
	s.loops++
	s.fire(EventLoopCompleted)
}

func (s *Sequencer) checkEnd(rendered int) {
	if !s.exhausted || s.ended || s.target.ActiveVoiceCount() != 0 {
		return
	}
	s.tail -= rendered
	if s.tail <= 0 {
		s.ended = true
		s.fire(EventPlaybackEnded)
	}
}

func (s *Sequencer) fire(kind EventKind) {
	if s.onEvent != nil {
		s.onEvent(kind)
	}
}

// Finished reports whether EventPlaybackEnded has fired.
func (s *Sequencer) Finished() bool { return s.ended }

// Frame is the number of frames rendered since the start or the last loop.
func (s *Sequencer) Frame() int64 { return s.frame }

// Loops counts completed loop iterations.
func (s *Sequencer) Loops() int { return s.loops }

// Restart rewinds to the beginning without firing events.
func (s *Sequencer) Restart() {
	s.target.Apply(engine.AllSoundOff(engine.AllChannels))
	s.next = 0
	s.frame = 0
	s.tail = s.tailFrames
	s.exhausted = false
	s.ended = false
}

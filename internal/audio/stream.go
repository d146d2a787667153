// Package audio streams a render source to the system output through ebiten's
// audio context.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// bytesPerFrame is one stereo frame of 32-bit floats.
const bytesPerFrame = 8

// maxChunkFrames bounds a single pull from the source.
const maxChunkFrames = 4096

// SampleSource fills dst with interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource reports the end of a song. The stream ends after the read
// that observed it.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// StreamReader is the io.Reader ebiten pulls PCM from: float32 little-endian,
// two channels.
type StreamReader struct {
	mu      sync.Mutex
	source  SampleSource
	scratch []float32
	frames  atomic.Int64
	closed  atomic.Bool
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source, scratch: make([]float32, 2*maxChunkFrames)}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, io.EOF
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	written := 0
	for len(p)-written >= bytesPerFrame {
		frames := min((len(p)-written)/bytesPerFrame, maxChunkFrames)
		block := r.scratch[:2*frames]
		r.source.Process(block)
		putFloat32LE(p[written:], block)
		written += frames * bytesPerFrame
		r.frames.Add(int64(frames))
	}
	if src, ok := r.source.(FinishingSource); ok && src.Finished() {
		return written, io.EOF
	}
	return written, nil
}

func putFloat32LE(dst []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(s))
	}
}

// Frames is the count of frames pulled by the output device.
func (r *StreamReader) Frames() int64 { return r.frames.Load() }

// Close ends the stream; later reads return io.EOF.
func (r *StreamReader) Close() error {
	r.closed.Store(true)
	return nil
}

// device is the process-wide ebiten context. ebiten refuses a second one, so
// every Player must agree on the rate it was opened at.
var device struct {
	sync.Mutex
	ctx  *ebitaudio.Context
	rate int
}

func openContext(sampleRate int) (*ebitaudio.Context, error) {
	device.Lock()
	defer device.Unlock()
	if device.ctx == nil {
		device.ctx = ebitaudio.NewContext(sampleRate)
		device.rate = sampleRate
	}
	if device.rate != sampleRate {
		return nil, fmt.Errorf("output opened at %d Hz, cannot play at %d Hz", device.rate, sampleRate)
	}
	return device.ctx, nil
}

// Player is one output stream.
type Player struct {
	out    *ebitaudio.Player
	stream *StreamReader
}

// NewPlayer opens a paused stream pulling from source. A positive bufferSize
// overrides ebiten's default device buffer.
func NewPlayer(sampleRate int, source SampleSource, bufferSize time.Duration) (*Player, error) {
	ctx, err := openContext(sampleRate)
	if err != nil {
		return nil, err
	}
	stream := NewStreamReader(source)
	out, err := ctx.NewPlayerF32(stream)
	if err != nil {
		return nil, err
	}
	if bufferSize > 0 {
		out.SetBufferSize(bufferSize)
	}
	return &Player{out: out, stream: stream}, nil
}

func (p *Player) Play()           { p.out.Play() }
func (p *Player) Pause()          { p.out.Pause() }
func (p *Player) IsPlaying() bool { return p.out.IsPlaying() }

// Position is the time heard so far, behind RenderedFrames by the buffer.
func (p *Player) Position() time.Duration { return p.out.Position() }

func (p *Player) RenderedFrames() int64 { return p.stream.Frames() }

// Stop closes the stream and releases the device player.
func (p *Player) Stop() error {
	_ = p.stream.Close()
	p.out.Pause()
	return p.out.Close()
}

package sf2synth

import (
	"io"
	"os"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
	"github.com/pkg/errors"

	"github.com/cbegin/sf2synth-go/internal/engine"
	intseq "github.com/cbegin/sf2synth-go/internal/sequencer"
)

// maxRenderSeconds bounds offline renders of songs whose voices never end.
const maxRenderSeconds = 600

// Note is one note of a phrase rendered by RenderNotes. Times are in seconds.
type Note struct {
	Channel  int
	Key      int
	Velocity int
	Start    float64
	Duration float64
}

// RenderNotes renders a phrase plus tail seconds of release, interleaved
// stereo.
func RenderNotes(bank *Bank, notes []Note, sampleRate int, tail float64, opts ...Option) ([]float32, error) {
	events := make([]intseq.Event, 0, 2*len(notes))
	for _, n := range notes {
		events = append(events,
			intseq.Event{Seconds: n.Start, Command: engine.NoteOn(n.Channel, n.Key, n.Velocity)},
			intseq.Event{Seconds: n.Start + n.Duration, Command: engine.NoteOff(n.Channel, n.Key)})
	}
	song := intseq.SongFromEvents(events, 0)
	synth, err := NewSynth(bank, sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	seq := intseq.New(song, synth.eng, sampleRate)
	frames := int((song.Length + max(tail, 0)) * float64(sampleRate))
	out := make([]float32, frames*2)
	seq.Process(out)
	return out, nil
}

// RenderMIDI renders a Standard MIDI File until every voice has released.
func RenderMIDI(bank *Bank, smfData []byte, sampleRate int, opts ...Option) ([]float32, error) {
	song, err := intseq.LoadSMF(smfData)
	if err != nil {
		return nil, err
	}
	synth, err := NewSynth(bank, sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	synth.log.Debug("midi loaded",
		"tracks", song.Tracks, "events", len(song.Events),
		"skipped", song.Skipped, "seconds", song.Length)
	seq := intseq.New(song, synth.eng, sampleRate)

	block := make([]float32, 2*1024)
	out := make([]float32, 0, 2*int((song.Length+1)*float64(sampleRate)))
	limit := maxRenderSeconds * sampleRate * 2
	for !seq.Finished() && len(out) < limit {
		seq.Process(block)
		out = append(out, block...)
	}
	return out, nil
}

func RenderMIDIFile(bank *Bank, path string, sampleRate int, opts ...Option) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read midi %s", path)
	}
	out, err := RenderMIDI(bank, data, sampleRate, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "render %s", path)
	}
	return out, nil
}

// WriteWAV encodes interleaved stereo samples as 16-bit PCM.
func WriteWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 2,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(enc.Close())
}

func WriteWAVFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.WithStack(f.Close())
}

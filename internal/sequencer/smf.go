package sequencer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/sf2synth-go/internal/engine"
)

// DefaultMicrosPerBeat is 120 BPM, the tempo of a file without tempo events.
const DefaultMicrosPerBeat = 500000

var (
	ErrTimeFormat = errors.New("sequencer: unsupported SMF time format")
	ErrNoTracks   = errors.New("sequencer: SMF has no tracks")
)

// Event is a command scheduled at an absolute time.
type Event struct {
	Tick    int64
	Seconds float64
	Command engine.Command
}

// TempoChange is one entry of a song's tempo map.
type TempoChange struct {
	Tick          int64
	MicrosPerBeat int
}

// Song is a Standard MIDI File flattened into one time-ordered command list.
type Song struct {
	Resolution int
	Tempo      []TempoChange
	Events     []Event
	// Length is the end of the longest track, in seconds.
	Length  float64
	Tracks  int
	Skipped int
}

type rawEvent struct {
	tick  int64
	track int
	order int
	msg   midi.Message
}

// LoadSMF decodes a Standard MIDI File. Format 0 and 1 tracks are merged by
// absolute tick; events at the same tick keep track order. Only metric time
// division is supported; SMPTE files fail with ErrTimeFormat.
func LoadSMF(data []byte) (*Song, error) {
	if smpteDivision(data) {
		return nil, ErrTimeFormat
	}
	f, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sequencer: read SMF: %w", err)
	}
	mt, ok := f.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrTimeFormat
	}
	if len(f.Tracks) == 0 {
		return nil, ErrNoTracks
	}
	song := &Song{Resolution: int(mt), Tracks: len(f.Tracks)}
	if song.Resolution <= 0 {
		return nil, ErrTimeFormat
	}
	song.Tempo = []TempoChange{{Tick: 0, MicrosPerBeat: DefaultMicrosPerBeat}}

	var raw []rawEvent
	var end int64
	order := 0
	for ti, track := range f.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			var bpm float64
			if ev.Message.GetMetaTempo(&bpm) && bpm > 0 {
				song.Tempo = append(song.Tempo, TempoChange{Tick: tick, MicrosPerBeat: int(60000000 / bpm)})
				continue
			}
			raw = append(raw, rawEvent{tick: tick, track: ti, order: order, msg: midi.Message(ev.Message)})
			order++
		}
		end = max(end, tick)
	}
	sort.SliceStable(song.Tempo, func(i, j int) bool { return song.Tempo[i].Tick < song.Tempo[j].Tick })
	sort.SliceStable(raw, func(i, j int) bool {
		if raw[i].tick != raw[j].tick {
			return raw[i].tick < raw[j].tick
		}
		return raw[i].order < raw[j].order
	})

	song.Events = make([]Event, 0, len(raw))
	for _, ev := range raw {
		cmd, ok := engine.CommandFromMIDI(ev.msg)
		if !ok {
			song.Skipped++
			continue
		}
		song.Events = append(song.Events, Event{Tick: ev.tick, Seconds: song.TickSeconds(ev.tick), Command: cmd})
	}
	song.Length = song.TickSeconds(end)
	return song, nil
}

// TickSeconds converts an absolute tick to seconds through the tempo map.
func (s *Song) TickSeconds(tick int64) float64 {
	var secs float64
	prevTick := int64(0)
	micros := DefaultMicrosPerBeat
	for _, tc := range s.Tempo {
		if tc.Tick >= tick {
			break
		}
		secs += float64(tc.Tick-prevTick) * float64(micros) / (1e6 * float64(s.Resolution))
		prevTick = tc.Tick
		micros = tc.MicrosPerBeat
	}
	return secs + float64(tick-prevTick)*float64(micros)/(1e6*float64(s.Resolution))
}

// SongFromEvents builds a song from commands already timed in seconds.
func SongFromEvents(events []Event, length float64) *Song {
	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seconds < sorted[j].Seconds })
	if n := len(sorted); n > 0 {
		length = max(length, sorted[n-1].Seconds)
	}
	return &Song{Events: sorted, Length: length, Tracks: 1}
}

func ReadSMF(r io.Reader) (*Song, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("sequencer: read SMF: %w", err)
	}
	return LoadSMF(data)
}

// smpteDivision reports whether the MThd division word has bit 15 set. The
// SMF reader cannot decode such files, so they are rejected up front.
func smpteDivision(data []byte) bool {
	if len(data) < 14 || string(data[:4]) != "MThd" {
		return false
	}
	return binary.BigEndian.Uint16(data[12:14])&0x8000 != 0
}

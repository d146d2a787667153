package sf2synth

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/wav"
)

var phrase = []Note{
	{Channel: 0, Key: 60, Velocity: 100, Start: 0, Duration: 0.2},
	{Channel: 0, Key: 64, Velocity: 90, Start: 0.2, Duration: 0.2},
	{Channel: PercussionChannel, Key: 46, Velocity: 110, Start: 0.1, Duration: 0.05},
}

// Format 0 SMF, 480 ticks per quarter note at the default 120 BPM.
var smfPhrase = []byte{
	'M', 'T', 'h', 'd', 0, 0, 0, 6, 0, 0, 0, 1, 0x01, 0xE0,
	'M', 'T', 'r', 'k', 0, 0, 0, 21,
	0x00, 0x90, 60, 100,
	0x83, 0x60, 0x80, 60, 0,
	0x00, 0x99, 46, 110,
	0x60, 0x89, 46, 0,
	0x00, 0xFF, 0x2F, 0x00,
}

func TestRenderNotes(t *testing.T) {
	out, err := RenderNotes(fixture, phrase, 48000, 0.3,
		WithLogger(quietLogger()), WithEffects(false, false))
	if err != nil {
		t.Fatalf("RenderNotes: %v", err)
	}
	// Last note-off at 0.4 s plus the 0.3 s tail.
	if n := len(out) / 2; n < 33599 || n > 33600 {
		t.Fatalf("frames = %d, want 33600", n)
	}
	if energy(out) == 0 {
		t.Fatal("expected non-zero audio energy")
	}
	tail := out[len(out)-2000:]
	if energy(tail) != 0 {
		t.Fatal("release tail did not decay to silence")
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	a, err := RenderNotes(fixture, phrase, 44100, 0.1, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	b, err := RenderNotes(fixture, phrase, 44100, 0.1, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("renders differ at sample %d", i)
		}
	}
}

func TestRenderMIDI(t *testing.T) {
	out, err := RenderMIDI(fixture, smfPhrase, 44100, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("RenderMIDI: %v", err)
	}
	// 0.5 s of notes, about 0.1 s of release and the quarter second tail.
	if secs := float64(len(out)/2) / 44100; secs < 0.8 || secs > 1.0 {
		t.Fatalf("rendered %.3f s", secs)
	}
	if energy(out) == 0 {
		t.Fatal("expected non-zero audio energy")
	}
	if _, err := RenderMIDI(fixture, []byte("MThd"), 44100, WithLogger(quietLogger())); err == nil {
		t.Fatal("truncated SMF accepted")
	}
}

func TestRenderMIDIFileMissing(t *testing.T) {
	if _, err := RenderMIDIFile(fixture, filepath.Join(t.TempDir(), "none.mid"), 44100); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestWriteWAV(t *testing.T) {
	out, err := RenderNotes(fixture, phrase[:1], 22050, 0.1, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "phrase.wav")
	if err := WriteWAVFile(path, out, 22050); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := 44 + len(out)*2; len(data) < want {
		t.Fatalf("file size = %d, want at least %d", len(data), want)
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		t.Fatal("invalid wav file")
	}
	if dec.SampleRate != 22050 || dec.NumChans != 2 || dec.BitDepth != 16 {
		t.Fatalf("header: %d Hz, %d channels, %d bits", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
}

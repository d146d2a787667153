package engine

import (
	"testing"

	"gitlab.com/gomidi/midi/v2"
)

func TestCommandFromMIDI(t *testing.T) {
	tests := []struct {
		name string
		msg  midi.Message
		want Command
	}{
		{"note on", midi.NoteOn(0, 60, 100), NoteOn(0, 60, 100)},
		{"note off", midi.NoteOff(1, 61), NoteOff(1, 61)},
		{"note on zero velocity", midi.NoteOn(2, 62, 0), NoteOff(2, 62)},
		{"controller", midi.ControlChange(3, 7, 90), ControlChange(3, 7, 90)},
		{"all notes off", midi.ControlChange(3, 123, 0), AllNotesOff(3)},
		{"all sound off", midi.ControlChange(3, 120, 0), AllSoundOff(3)},
		{"pitch bend", midi.Message{0xE4, 0x01, 0x40}, PitchBend(4, 8193)},
		{"program", midi.ProgramChange(5, 10), ProgramChange(5, 10)},
		{"channel pressure", midi.AfterTouch(6, 50), ChannelPressure(6, 50)},
		{"key pressure", midi.PolyAfterTouch(7, 60, 70), KeyPressure(7, 60, 70)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CommandFromMIDI(tt.msg)
			if !ok || got != tt.want {
				t.Fatalf("got %+v (%v), want %+v", got, ok, tt.want)
			}
		})
	}
}

func TestCommandFromMIDIIgnoresSystemMessages(t *testing.T) {
	if c, ok := CommandFromMIDI(midi.Message{0xF8}); ok {
		t.Fatalf("clock mapped to %+v", c)
	}
}

func TestCommandKindString(t *testing.T) {
	if CmdNoteOn.String() != "note-on" || CmdSampleRate.String() != "sample-rate" || CmdNone.String() != "none" {
		t.Fatal("unexpected command names")
	}
}

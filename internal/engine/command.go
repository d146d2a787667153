package engine

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/sf2synth-go/internal/modulation"
)

// CommandKind identifies an engine command.
type CommandKind uint8

const (
	CmdNone CommandKind = iota
	CmdNoteOn
	CmdNoteOff
	CmdControlChange
	CmdPitchBend
	CmdProgramChange
	// CmdPresetSelect selects a preset by its index in the bank.
	CmdPresetSelect
	CmdChannelPressure
	CmdKeyPressure
	// CmdAllNotesOff releases every voice of a channel, or all channels when
	// Channel is AllChannels.
	CmdAllNotesOff
	// CmdAllSoundOff stops voices immediately, bypassing their release.
	CmdAllSoundOff
	// CmdSampleRate changes the render rate to Value Hz.
	CmdSampleRate
)

func (k CommandKind) String() string {
	switch k {
	case CmdNoteOn:
		return "note-on"
	case CmdNoteOff:
		return "note-off"
	case CmdControlChange:
		return "control-change"
	case CmdPitchBend:
		return "pitch-bend"
	case CmdProgramChange:
		return "program-change"
	case CmdPresetSelect:
		return "preset-select"
	case CmdChannelPressure:
		return "channel-pressure"
	case CmdKeyPressure:
		return "key-pressure"
	case CmdAllNotesOff:
		return "all-notes-off"
	case CmdAllSoundOff:
		return "all-sound-off"
	case CmdSampleRate:
		return "sample-rate"
	default:
		return "none"
	}
}

// AllChannels addresses every channel in CmdAllNotesOff and CmdAllSoundOff.
const AllChannels = -1

// Command is a fixed-size message from the control thread to the render
// thread. Key carries the key, controller or program number; Value carries
// velocity, controller value, 14-bit bend, pressure, preset index or rate.
type Command struct {
	Kind    CommandKind
	Channel int
	Key     int
	Value   int
}

func NoteOn(channel, key, velocity int) Command {
	return Command{Kind: CmdNoteOn, Channel: channel, Key: key, Value: velocity}
}

func NoteOff(channel, key int) Command {
	return Command{Kind: CmdNoteOff, Channel: channel, Key: key}
}

func ControlChange(channel, controller, value int) Command {
	return Command{Kind: CmdControlChange, Channel: channel, Key: controller, Value: value}
}

// PitchBend takes the 14-bit wheel position, 8192 being centre.
func PitchBend(channel, value int) Command {
	return Command{Kind: CmdPitchBend, Channel: channel, Value: value}
}

func ProgramChange(channel, program int) Command {
	return Command{Kind: CmdProgramChange, Channel: channel, Key: program}
}

func PresetSelect(channel, preset int) Command {
	return Command{Kind: CmdPresetSelect, Channel: channel, Value: preset}
}

func ChannelPressure(channel, pressure int) Command {
	return Command{Kind: CmdChannelPressure, Channel: channel, Value: pressure}
}

func KeyPressure(channel, key, pressure int) Command {
	return Command{Kind: CmdKeyPressure, Channel: channel, Key: key, Value: pressure}
}

func AllNotesOff(channel int) Command {
	return Command{Kind: CmdAllNotesOff, Channel: channel}
}

func AllSoundOff(channel int) Command {
	return Command{Kind: CmdAllSoundOff, Channel: channel}
}

func SampleRate(hz int) Command {
	return Command{Kind: CmdSampleRate, Value: hz}
}

// CommandFromMIDI translates a channel voice message. Channel mode messages
// for all-notes-off and all-sound-off map to their dedicated commands. The
// second result is false for messages the engine does not consume.
func CommandFromMIDI(msg midi.Message) (Command, bool) {
	var ch, key, vel, cc, val, prog, pressure uint8
	var rel int16
	var abs uint16
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return NoteOn(int(ch), int(key), int(vel)), true
	case msg.GetNoteEnd(&ch, &key):
		return NoteOff(int(ch), int(key)), true
	case msg.GetControlChange(&ch, &cc, &val):
		switch int(cc) {
		case modulation.CCAllSoundOff:
			return AllSoundOff(int(ch)), true
		case modulation.CCAllNotesOff:
			return AllNotesOff(int(ch)), true
		}
		return ControlChange(int(ch), int(cc), int(val)), true
	case msg.GetPitchBend(&ch, &rel, &abs):
		return PitchBend(int(ch), int(abs)), true
	case msg.GetProgramChange(&ch, &prog):
		return ProgramChange(int(ch), int(prog)), true
	case msg.GetAfterTouch(&ch, &pressure):
		return ChannelPressure(int(ch), int(pressure)), true
	case msg.GetPolyAfterTouch(&ch, &key, &pressure):
		return KeyPressure(int(ch), int(key), int(pressure)), true
	}
	return Command{}, false
}

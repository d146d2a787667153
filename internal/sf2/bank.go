package sf2

import "fmt"

// Version is an ifil or iver version tag.
type Version struct {
	Major uint16
	Minor uint16
}

func (v Version) String() string { return fmt.Sprintf("%d.%02d", v.Major, v.Minor) }

// Info holds the INFO list metadata.
type Info struct {
	Version    Version
	Engine     string
	Name       string
	ROMName    string
	ROMVersion Version
	Created    string
	Engineers  string
	Product    string
	Copyright  string
	Comment    string
	Software   string
}

// SampleType is the sfSampleType word of a sample header.
type SampleType uint16

const (
	SampleMono   SampleType = 1
	SampleRight  SampleType = 2
	SampleLeft   SampleType = 4
	SampleLinked SampleType = 8
	SampleROM    SampleType = 0x8000
)

// ROM reports whether the sample lives in synthesizer ROM.
func (t SampleType) ROM() bool { return t&SampleROM != 0 }

// SampleHeader describes one sample inside the shared PCM buffer. All
// positions are absolute sample indices.
type SampleHeader struct {
	Name            string
	Start           uint32
	End             uint32
	LoopStart       uint32
	LoopEnd         uint32
	SampleRate      uint32
	OriginalPitch   uint8
	PitchCorrection int8
	Link            uint16
	Type            SampleType
}

// HasLoop reports whether the header describes a usable loop.
func (h SampleHeader) HasLoop() bool {
	return h.LoopStart >= h.Start && h.LoopStart < h.LoopEnd && h.LoopEnd <= h.End
}

// Range is an inclusive key or velocity range.
type Range struct {
	Lo uint8
	Hi uint8
}

// FullRange accepts every MIDI key or velocity.
var FullRange = Range{Lo: 0, Hi: 127}

// Contains reports whether v lies within r.
func (r Range) Contains(v int) bool { return v >= int(r.Lo) && v <= int(r.Hi) }

// Zone is one preset or instrument zone. Link indexes the instrument (preset
// zones) or sample header (instrument zones) the zone plays.
type Zone struct {
	KeyRange   Range
	VelRange   Range
	Generators GeneratorSet
	Modulators []Modulator
	Link       int
}

// Matches reports whether the zone responds to key and velocity.
func (z *Zone) Matches(key, velocity int) bool {
	return z.KeyRange.Contains(key) && z.VelRange.Contains(velocity)
}

// Instrument is a named collection of sample zones.
type Instrument struct {
	Name   string
	Global *Zone
	Zones  []Zone
}

// Preset is a program selectable by bank and program number.
type Preset struct {
	Name       string
	Program    int
	Bank       int
	Library    uint32
	Genre      uint32
	Morphology uint32
	Global     *Zone
	Zones      []Zone
}

// PercussionBank is the MIDI bank conventionally holding drum kits.
const PercussionBank = 128

// Bank is a decoded, validated SoundFont. It is immutable once returned by
// Decode and safe to share between engines.
type Bank struct {
	Info        Info
	Presets     []Preset
	Instruments []Instrument
	Samples     []SampleHeader
	PCM         []int16

	byNumber map[int]int
}

// Decode parses an SF2 image. The returned bank owns a private copy of the
// PCM data; data may be reused after Decode returns.
func Decode(data []byte) (*Bank, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return nil, err
	}
	return build(raw)
}

// FindPreset looks up a preset by bank and program number. Missing programs
// fall back to program 0 of the same bank, then to the first preset of the
// general or percussion bank.
func (b *Bank) FindPreset(bank, program int) (int, bool) {
	if i, ok := b.byNumber[presetKey(bank, program)]; ok {
		return i, true
	}
	if i, ok := b.byNumber[presetKey(bank, 0)]; ok {
		return i, true
	}
	if bank == PercussionBank {
		if i, ok := b.byNumber[presetKey(PercussionBank, 0)]; ok {
			return i, true
		}
		return -1, false
	}
	if i, ok := b.byNumber[presetKey(0, program)]; ok {
		return i, true
	}
	if i, ok := b.byNumber[presetKey(0, 0)]; ok {
		return i, true
	}
	return -1, false
}

// Preset returns the preset at index i, or nil when out of range.
func (b *Bank) Preset(i int) *Preset {
	if i < 0 || i >= len(b.Presets) {
		return nil
	}
	return &b.Presets[i]
}

func presetKey(bank, program int) int { return bank<<8 | program&0xFF }

// Describe renders a one-line summary of the bank.
func (b *Bank) Describe() string {
	name := b.Info.Name
	if name == "" {
		name = "(unnamed)"
	}
	return fmt.Sprintf("%s v%s: %d presets, %d instruments, %d samples, %d frames",
		name, b.Info.Version, len(b.Presets), len(b.Instruments), len(b.Samples), len(b.PCM))
}

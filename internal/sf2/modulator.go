package sf2

// Source is a packed modulator source descriptor (SFModulator).
//
//	bits 0-6   controller index
//	bit  7     MIDI continuous controller flag
//	bit  8     direction, set for max to min
//	bit  9     polarity, set for bipolar
//	bits 10-15 curve type
type Source uint16

// General controller indices used when the CC flag is clear.
const (
	SourceNone                  = 0
	SourceNoteOnVelocity        = 2
	SourceNoteOnKey             = 3
	SourcePolyPressure          = 10
	SourceChannelPressure       = 13
	SourcePitchWheel            = 14
	SourcePitchWheelSensitivity = 16
	SourceLink                  = 127
)

// Curve is a modulator source curve shape.
type Curve uint8

const (
	CurveLinear Curve = iota
	CurveConcave
	CurveConvex
	CurveSwitch
)

// NewSource packs a source descriptor.
func NewSource(index int, cc, negative, bipolar bool, curve Curve) Source {
	s := Source(index & 0x7F)
	if cc {
		s |= 0x80
	}
	if negative {
		s |= 0x100
	}
	if bipolar {
		s |= 0x200
	}
	return s | Source(curve)<<10
}

func (s Source) Index() int       { return int(s & 0x7F) }
func (s Source) CC() bool         { return s&0x80 != 0 }
func (s Source) Negative() bool   { return s&0x100 != 0 }
func (s Source) Bipolar() bool    { return s&0x200 != 0 }
func (s Source) Curve() Curve     { return Curve(s >> 10) }
func (s Source) None() bool       { return !s.CC() && s.Index() == SourceNone }
func (s Source) IsLink() bool     { return !s.CC() && s.Index() == SourceLink }
func (s Source) Linear() bool     { return s.Curve() == CurveLinear }
func (s Source) Unipolar() bool   { return !s.Bipolar() }
func (s Source) Positive() bool   { return !s.Negative() }
func (s Source) CurveValid() bool { return s.Curve() <= CurveSwitch }

// Valid reports whether s names a controller a synthesizer can track.
func (s Source) Valid() bool {
	if !s.CurveValid() {
		return false
	}
	idx := s.Index()
	if s.CC() {
		switch {
		case idx == 0, idx == 6, idx >= 32 && idx <= 63, idx >= 98 && idx <= 101, idx >= 120:
			return false
		}
		return true
	}
	switch idx {
	case SourceNone, SourceNoteOnVelocity, SourceNoteOnKey, SourcePolyPressure,
		SourceChannelPressure, SourcePitchWheel, SourcePitchWheelSensitivity, SourceLink:
		return true
	}
	return false
}

// Transform is a modulator output transform (SFTransform).
type Transform uint16

const (
	TransformLinear   Transform = 0
	TransformAbsolute Transform = 2
)

// Modulator is one pmod/imod record.
type Modulator struct {
	Source       Source
	Dest         uint16
	Amount       int16
	AmountSource Source
	Transform    Transform
}

const linkFlag = 0x8000

// Destination returns the generator a modulator drives. It is false for
// linked modulators.
func (m Modulator) Destination() (Generator, bool) {
	if m.Dest&linkFlag != 0 {
		return 0, false
	}
	return Generator(m.Dest), true
}

// LinkTarget returns the zone-local index of the modulator this one feeds.
func (m Modulator) LinkTarget() (int, bool) {
	if m.Dest&linkFlag == 0 {
		return 0, false
	}
	return int(m.Dest &^ linkFlag), true
}

// Identical reports whether m and o share the source, destination and amount
// source; such a pair is one modulator for override purposes.
func (m Modulator) Identical(o Modulator) bool {
	return m.Source == o.Source && m.Dest == o.Dest && m.AmountSource == o.AmountSource
}

// Noop reports whether m can never contribute anything. A zero amount is not
// a no-op: it still replaces an identical modulator, which disables it.
func (m Modulator) Noop() bool {
	return m.Source.None()
}

// Usable reports whether a voice should evaluate m.
func (m Modulator) Usable() bool {
	if m.Noop() || !m.Source.Valid() || !m.AmountSource.Valid() {
		return false
	}
	if m.Transform != TransformLinear && m.Transform != TransformAbsolute {
		return false
	}
	if g, ok := m.Destination(); ok {
		return g.Valid()
	}
	return true
}

// DefaultModulators are implicitly present in every instrument zone.
var DefaultModulators = [...]Modulator{
	{Source: NewSource(SourceNoteOnVelocity, false, true, false, CurveConcave), Dest: uint16(InitialAttenuation), Amount: 960},
	{Source: NewSource(SourceNoteOnVelocity, false, true, false, CurveLinear), Dest: uint16(InitialFilterFc), Amount: -2400},
	{Source: NewSource(SourceChannelPressure, false, false, false, CurveLinear), Dest: uint16(VibLFOToPitch), Amount: 50},
	{Source: NewSource(1, true, false, false, CurveLinear), Dest: uint16(VibLFOToPitch), Amount: 50},
	{Source: NewSource(7, true, true, false, CurveConcave), Dest: uint16(InitialAttenuation), Amount: 960},
	{Source: NewSource(10, true, false, true, CurveLinear), Dest: uint16(Pan), Amount: 500},
	{Source: NewSource(11, true, true, false, CurveConcave), Dest: uint16(InitialAttenuation), Amount: 960},
	{Source: NewSource(91, true, false, false, CurveLinear), Dest: uint16(ReverbEffectsSend), Amount: 200},
	{Source: NewSource(93, true, false, false, CurveLinear), Dest: uint16(ChorusEffectsSend), Amount: 200},
	{
		Source:       NewSource(SourcePitchWheel, false, false, true, CurveLinear),
		Dest:         uint16(FineTune),
		Amount:       12700,
		AmountSource: NewSource(SourcePitchWheelSensitivity, false, false, false, CurveLinear),
	},
}

package modulation

import "github.com/cbegin/sf2synth-go/internal/sf2"

// MIDI controller numbers with channel-level meaning.
const (
	CCBankSelect         = 0
	CCModulationWheel    = 1
	CCDataEntry          = 6
	CCVolume             = 7
	CCBalance            = 8
	CCPan                = 10
	CCExpression         = 11
	CCBankSelectLSB      = 32
	CCDataEntryLSB       = 38
	CCSustain            = 64
	CCPortamento         = 65
	CCSostenuto          = 66
	CCSoftPedal          = 67
	CCSoundController1   = 70
	CCSoundController10  = 79
	CCReverbSend         = 91
	CCChorusSend         = 93
	CCDataIncrement      = 96
	CCDataDecrement      = 97
	CCNRPNLSB            = 98
	CCNRPNMSB            = 99
	CCRPNLSB             = 100
	CCRPNMSB             = 101
	CCAllSoundOff        = 120
	CCResetAllController = 121
	CCAllNotesOff        = 123
	CCPolyModeOn         = 127
)

const (
	// PitchWheelCenter is the 14-bit pitch wheel rest position.
	PitchWheelCenter = 8192
	// nrpnSelectSF2 is the NRPN MSB that addresses SF2 generators.
	nrpnSelectSF2 = 120
	nullParameter = 127
	defaultBend   = 200
)

// ChannelState is the controller state of one MIDI channel. It is owned by
// the render thread.
type ChannelState struct {
	cc              [128]uint8
	keyPressure     [128]uint8
	channelPressure uint8
	pitchWheel      int

	// pitch bend range and channel tuning in cents
	bendRange    int
	fineTuning   int
	coarseTuning int

	nrpnActive bool
	nrpnIndex  int
	nrpn       [sf2.NumGenerators]int32
}

// NewChannelState returns a channel at power-on defaults.
func NewChannelState() *ChannelState {
	c := &ChannelState{}
	c.Reset()
	return c
}

// Reset restores every controller, NRPN offset and tuning to power-on values.
func (c *ChannelState) Reset() {
	*c = ChannelState{}
	c.cc[CCVolume] = 100
	c.cc[CCBalance] = 64
	c.cc[CCPan] = 64
	for i := CCSoundController1; i <= CCSoundController10; i++ {
		c.cc[i] = 64
	}
	c.bendRange = defaultBend
	c.ResetControllers()
}

// ResetControllers applies Reset All Controllers. Volume, pan, bank and
// tuning survive.
func (c *ChannelState) ResetControllers() {
	c.cc[CCModulationWheel] = 0
	c.cc[CCExpression] = 127
	for i := CCSustain; i <= CCSoftPedal; i++ {
		c.cc[i] = 0
	}
	c.cc[CCNRPNLSB] = nullParameter
	c.cc[CCNRPNMSB] = nullParameter
	c.cc[CCRPNLSB] = nullParameter
	c.cc[CCRPNMSB] = nullParameter
	c.keyPressure = [128]uint8{}
	c.channelPressure = 0
	c.pitchWheel = PitchWheelCenter
	c.nrpnActive = false
	c.nrpnIndex = 0
	c.nrpn = [sf2.NumGenerators]int32{}
}

// SetController stores a controller value and runs the NRPN and RPN state
// machines.
func (c *ChannelState) SetController(cc, value int) {
	if cc < 0 || cc > 127 {
		return
	}
	value = clamp7(value)
	c.cc[cc] = uint8(value)

	switch cc {
	case CCNRPNMSB:
		c.nrpnActive = value == nrpnSelectSF2
		c.nrpnIndex = 0
		c.cc[CCRPNLSB], c.cc[CCRPNMSB] = nullParameter, nullParameter
	case CCNRPNLSB:
		if !c.nrpnActive {
			return
		}
		// Values of 100 and up step the index by 100, 1000 or 10000. A value
		// under 100 completes the index, or starts a new one when the last
		// select already completed it.
		switch {
		case value < 100:
			if c.nrpnIndex%100 != 0 {
				c.nrpnIndex = 0
			}
			c.nrpnIndex += value
		case value == 100:
			c.nrpnIndex += 100
		case value == 101:
			c.nrpnIndex += 1000
		case value == 102:
			c.nrpnIndex += 10000
		}
	case CCRPNLSB, CCRPNMSB:
		c.nrpnActive = false
		c.cc[CCNRPNLSB], c.cc[CCNRPNMSB] = nullParameter, nullParameter
	case CCDataEntry, CCDataEntryLSB:
		if c.nrpnActive {
			c.applyNRPN()
			return
		}
		c.applyRPN(0)
	case CCDataIncrement:
		c.applyRPN(1)
	case CCDataDecrement:
		c.applyRPN(-1)
	}
}

func (c *ChannelState) applyNRPN() {
	if c.nrpnIndex >= sf2.NumGenerators {
		return
	}
	g := sf2.Generator(c.nrpnIndex)
	if !g.Valid() {
		return
	}
	data := int32(c.cc[CCDataEntry])<<7 | int32(c.cc[CCDataEntryLSB])
	c.nrpn[g] = (data - 8192) * g.Definition().NRPNScale
}

// applyRPN handles registered parameters 0 (bend range), 1 (fine tuning) and
// 2 (coarse tuning). step is non-zero for data increment and decrement.
func (c *ChannelState) applyRPN(step int) {
	if c.cc[CCRPNMSB] != 0 {
		return
	}
	msb, lsb := int(c.cc[CCDataEntry]), int(c.cc[CCDataEntryLSB])
	switch c.cc[CCRPNLSB] {
	case 0:
		if step != 0 {
			c.bendRange = clampInt(c.bendRange+step*100, 0, 12700)
			return
		}
		c.bendRange = msb*100 + min(lsb, 99)
	case 1:
		c.fineTuning = ((msb<<7 | lsb) - 8192) * 100 / 8192
	case 2:
		c.coarseTuning = (msb - 64) * 100
	}
}

// Controller returns the current value of cc.
func (c *ChannelState) Controller(cc int) int {
	if cc < 0 || cc > 127 {
		return 0
	}
	return int(c.cc[cc])
}

// SetPitchWheel stores a 14-bit pitch wheel position.
func (c *ChannelState) SetPitchWheel(v int) { c.pitchWheel = clampInt(v, 0, 16383) }

func (c *ChannelState) PitchWheel() int { return c.pitchWheel }

func (c *ChannelState) SetChannelPressure(v int) { c.channelPressure = uint8(clamp7(v)) }

func (c *ChannelState) ChannelPressure() int { return int(c.channelPressure) }

func (c *ChannelState) SetKeyPressure(key, v int) {
	if key >= 0 && key < 128 {
		c.keyPressure[key] = uint8(clamp7(v))
	}
}

func (c *ChannelState) KeyPressure(key int) int {
	if key < 0 || key >= 128 {
		return 0
	}
	return int(c.keyPressure[key])
}

// BendRange returns the pitch wheel sensitivity in cents.
func (c *ChannelState) BendRange() int { return c.bendRange }

// Tuning returns the channel fine plus coarse tuning in cents.
func (c *ChannelState) Tuning() int { return c.fineTuning + c.coarseTuning }

// NRPNOffset returns the NRPN adjustment for g in the generator's units.
func (c *ChannelState) NRPNOffset(g sf2.Generator) int32 {
	if int(g) >= sf2.NumGenerators {
		return 0
	}
	return c.nrpn[g]
}

// Sustain reports whether the damper pedal is down.
func (c *ChannelState) Sustain() bool { return c.cc[CCSustain] >= 64 }

// Sostenuto reports whether the sostenuto pedal is down.
func (c *ChannelState) Sostenuto() bool { return c.cc[CCSostenuto] >= 64 }

func clamp7(v int) int { return clampInt(v, 0, 127) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

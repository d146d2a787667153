package modulation

import (
	"testing"

	"github.com/cbegin/sf2synth-go/internal/sf2"
)

func TestChannelDefaults(t *testing.T) {
	c := NewChannelState()
	if c.Controller(CCVolume) != 100 || c.Controller(CCPan) != 64 || c.Controller(CCExpression) != 127 {
		t.Fatalf("volume %d pan %d expression %d", c.Controller(CCVolume), c.Controller(CCPan), c.Controller(CCExpression))
	}
	if c.PitchWheel() != PitchWheelCenter || c.BendRange() != 200 {
		t.Fatalf("pitch wheel %d bend range %d", c.PitchWheel(), c.BendRange())
	}
	if c.Controller(CCNRPNMSB) != 127 || c.Controller(CCRPNLSB) != 127 {
		t.Fatalf("parameter selectors not null")
	}
}

func sendNRPN(c *ChannelState, index, value int) {
	c.SetController(CCNRPNMSB, 120)
	for index >= 100 {
		switch {
		case index >= 10000:
			c.SetController(CCNRPNLSB, 102)
			index -= 10000
		case index >= 1000:
			c.SetController(CCNRPNLSB, 101)
			index -= 1000
		default:
			c.SetController(CCNRPNLSB, 100)
			index -= 100
		}
	}
	c.SetController(CCNRPNLSB, index)
	c.SetController(CCDataEntry, value>>7)
	c.SetController(CCDataEntryLSB, value&0x7F)
}

func TestNRPNScalesByGenerator(t *testing.T) {
	c := NewChannelState()
	sendNRPN(c, int(sf2.Pan), 8192+100)
	if got := c.NRPNOffset(sf2.Pan); got != 100 {
		t.Fatalf("pan offset = %d, want 100", got)
	}
	sendNRPN(c, int(sf2.InitialFilterFc), 8192-50)
	if got := c.NRPNOffset(sf2.InitialFilterFc); got != -100 {
		t.Fatalf("filter offset = %d, want -100", got)
	}
	sendNRPN(c, int(sf2.FreqVibLFO), 8192+10)
	if got := c.NRPNOffset(sf2.FreqVibLFO); got != 40 {
		t.Fatalf("vib freq offset = %d, want 40", got)
	}
}

func TestNRPNRequiresSF2Select(t *testing.T) {
	c := NewChannelState()
	c.SetController(CCNRPNMSB, 5)
	c.SetController(CCNRPNLSB, int(sf2.Pan))
	c.SetController(CCDataEntry, 100)
	if c.NRPNOffset(sf2.Pan) != 0 {
		t.Fatalf("NRPN applied without the SF2 select value")
	}
}

func TestSequentialNRPNWrites(t *testing.T) {
	c := NewChannelState()
	c.SetController(CCNRPNMSB, 120)
	c.SetController(CCNRPNLSB, int(sf2.InitialFilterFc))
	c.SetController(CCDataEntryLSB, 0)
	c.SetController(CCDataEntry, 65) // 8320
	c.SetController(CCVolume, 90)
	c.SetController(CCNRPNLSB, int(sf2.InitialFilterQ))
	c.SetController(CCDataEntryLSB, 40)
	c.SetController(CCDataEntry, 64) // 8232

	if got := c.NRPNOffset(sf2.InitialFilterFc); got != 256 {
		t.Fatalf("filter fc offset = %d, want 256", got)
	}
	if got := c.NRPNOffset(sf2.InitialFilterQ); got != 40 {
		t.Fatalf("filter q offset = %d, want 40", got)
	}
	if got := c.NRPNOffset(sf2.Pan); got != 0 {
		t.Fatalf("pan offset = %d, want 0", got)
	}
}

func TestRPNSelectEndsNRPN(t *testing.T) {
	c := NewChannelState()
	c.SetController(CCNRPNMSB, 120)
	c.SetController(CCNRPNLSB, int(sf2.Pan))
	c.SetController(CCRPNLSB, 0)
	c.SetController(CCDataEntry, 100)
	if c.NRPNOffset(sf2.Pan) != 0 {
		t.Fatalf("data entry applied to NRPN after an RPN select")
	}
}

func TestRPNBendRange(t *testing.T) {
	c := NewChannelState()
	c.SetController(CCRPNMSB, 0)
	c.SetController(CCRPNLSB, 0)
	c.SetController(CCDataEntry, 12)
	if c.BendRange() != 1200 {
		t.Fatalf("bend range = %d, want 1200", c.BendRange())
	}
	c.SetController(CCDataDecrement, 0)
	if c.BendRange() != 1100 {
		t.Fatalf("bend range after decrement = %d", c.BendRange())
	}
}

func TestRPNTuning(t *testing.T) {
	c := NewChannelState()
	c.SetController(CCRPNMSB, 0)
	c.SetController(CCRPNLSB, 2)
	c.SetController(CCDataEntry, 66)
	if c.Tuning() != 200 {
		t.Fatalf("coarse tuning = %d, want 200", c.Tuning())
	}
}

func TestResetControllersKeepsVolume(t *testing.T) {
	c := NewChannelState()
	c.SetController(CCVolume, 30)
	c.SetController(CCSustain, 127)
	c.SetPitchWheel(0)
	sendNRPN(c, int(sf2.Pan), 9000)
	c.ResetControllers()
	if c.Controller(CCVolume) != 30 || c.Sustain() || c.PitchWheel() != PitchWheelCenter || c.NRPNOffset(sf2.Pan) != 0 {
		t.Fatalf("reset all controllers left the wrong state")
	}
}

func TestPedals(t *testing.T) {
	c := NewChannelState()
	c.SetController(CCSustain, 64)
	c.SetController(CCSostenuto, 63)
	if !c.Sustain() || c.Sostenuto() {
		t.Fatalf("pedal thresholds wrong")
	}
}

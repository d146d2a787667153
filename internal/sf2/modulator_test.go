package sf2_test

import (
	"testing"

	"github.com/cbegin/sf2synth-go/internal/sf2"
)

func TestSourceBits(t *testing.T) {
	// CC 7, max to min, unipolar, concave.
	s := sf2.Source(0x0587)
	if s.Index() != 7 || !s.CC() || !s.Negative() || s.Bipolar() || s.Curve() != sf2.CurveConcave {
		t.Fatalf("decoded %#04x: index %d cc %v neg %v bip %v curve %d",
			uint16(s), s.Index(), s.CC(), s.Negative(), s.Bipolar(), s.Curve())
	}
	if got := sf2.NewSource(7, true, true, false, sf2.CurveConcave); got != s {
		t.Fatalf("NewSource = %#04x, want %#04x", uint16(got), uint16(s))
	}
}

func TestSourceValidity(t *testing.T) {
	cases := []struct {
		src  sf2.Source
		want bool
	}{
		{sf2.NewSource(sf2.SourceNoteOnVelocity, false, false, false, sf2.CurveLinear), true},
		{sf2.NewSource(5, false, false, false, sf2.CurveLinear), false},
		{sf2.NewSource(1, true, false, false, sf2.CurveSwitch), true},
		{sf2.NewSource(6, true, false, false, sf2.CurveLinear), false},
		{sf2.NewSource(40, true, false, false, sf2.CurveLinear), false},
		{sf2.NewSource(99, true, false, false, sf2.CurveLinear), false},
		{sf2.NewSource(121, true, false, false, sf2.CurveLinear), false},
		{sf2.Source(uint16(4) << 10), false},
	}
	for _, tc := range cases {
		if got := tc.src.Valid(); got != tc.want {
			t.Fatalf("Valid(%#04x) = %v, want %v", uint16(tc.src), got, tc.want)
		}
	}
}

func TestModulatorIdentity(t *testing.T) {
	a := sf2.DefaultModulators[4]
	b := a
	b.Amount = 100
	b.Transform = sf2.TransformAbsolute
	if !a.Identical(b) {
		t.Fatalf("amount and transform must not affect identity")
	}
	b.AmountSource = sf2.NewSource(1, true, false, false, sf2.CurveLinear)
	if a.Identical(b) {
		t.Fatalf("amount source must affect identity")
	}
}

func TestModulatorLinks(t *testing.T) {
	m := sf2.Modulator{Dest: 0x8003}
	if _, ok := m.Destination(); ok {
		t.Fatalf("linked modulator reported a generator destination")
	}
	if idx, ok := m.LinkTarget(); !ok || idx != 3 {
		t.Fatalf("LinkTarget = %d, %v", idx, ok)
	}
}

func TestModulatorUsable(t *testing.T) {
	cc1 := sf2.NewSource(1, true, false, false, sf2.CurveLinear)
	cases := []struct {
		name string
		mod  sf2.Modulator
		want bool
	}{
		{"zero amount", sf2.Modulator{Source: cc1, Dest: uint16(sf2.Pan)}, true},
		{"no source", sf2.Modulator{Dest: uint16(sf2.Pan), Amount: 10}, false},
		{"reserved destination", sf2.Modulator{Source: cc1, Dest: 14, Amount: 10}, false},
		{"bad transform", sf2.Modulator{Source: cc1, Dest: uint16(sf2.Pan), Amount: 10, Transform: 1}, false},
		{"ok", sf2.Modulator{Source: cc1, Dest: uint16(sf2.Pan), Amount: 10}, true},
	}
	for _, tc := range cases {
		if got := tc.mod.Usable(); got != tc.want {
			t.Fatalf("%s: Usable = %v", tc.name, got)
		}
	}
}

func TestDefaultModulators(t *testing.T) {
	if len(sf2.DefaultModulators) != 10 {
		t.Fatalf("default modulators = %d", len(sf2.DefaultModulators))
	}
	for i, m := range sf2.DefaultModulators {
		if !m.Usable() {
			t.Fatalf("default modulator %d unusable: %+v", i, m)
		}
		for j := i + 1; j < len(sf2.DefaultModulators); j++ {
			if m.Identical(sf2.DefaultModulators[j]) {
				t.Fatalf("default modulators %d and %d are identical", i, j)
			}
		}
	}
}

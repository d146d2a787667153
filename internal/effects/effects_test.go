package effects

import (
	"math"
	"testing"
)

func TestReverbProducesTail(t *testing.T) {
	r := NewReverb(96000, 44100, 0.5, 0.5)
	r.Process(1.0, 1.0)
	var maxL, maxR float32
	for i := 0; i < 10000; i++ {
		l, rr := r.Process(0, 0)
		maxL = float32(math.Max(float64(maxL), math.Abs(float64(l))))
		maxR = float32(math.Max(float64(maxR), math.Abs(float64(rr))))
	}
	if maxL < 1e-4 || maxR < 1e-4 {
		t.Errorf("expected reverb tail, got %f %f", maxL, maxR)
	}
}

func TestReverbIsFullyWet(t *testing.T) {
	r := NewReverb(48000, 48000, 0.5, 0.5)
	if l, rr := r.Process(1, 1); l != 0 || rr != 0 {
		t.Errorf("dry signal leaked: %f %f", l, rr)
	}
}

func TestChorusDelaysInput(t *testing.T) {
	c := NewChorus(48000, 48000, 10, 2, 0.5, 0)
	if l, r := c.Process(1, 1); l != 0 || r != 0 {
		t.Fatalf("dry signal leaked: %f %f", l, r)
	}
	var maxOut float32
	for i := 0; i < 1000; i++ {
		l, _ := c.Process(0, 0)
		if l > maxOut {
			maxOut = l
		}
	}
	if maxOut < 0.1 {
		t.Errorf("expected delayed output, got %f", maxOut)
	}
}

func TestSampleRateChangeKeepsStorage(t *testing.T) {
	c := NewChorus(48000, 22050, 20, 5, 1, 0.3)
	r := NewReverb(48000, 22050, 0.7, 0.2)
	chorusLen, combLen := len(c.left.buf), len(r.combsL[0].buf)
	chain := NewChain(c, r)
	chain.SetSampleRate(192000)
	for i := 0; i < 20000; i++ {
		chain.Process(0.1, -0.1)
	}
	if len(c.left.buf) != chorusLen || len(r.combsL[0].buf) != combLen {
		t.Fatal("delay lines were reallocated")
	}
	if r.combsL[0].n > combLen {
		t.Fatalf("comb length %d exceeds storage %d", r.combsL[0].n, combLen)
	}
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	c := NewChain(NewChorus(44100, 44100, 1, 0, 0, 0))
	c.Add(NewLimiter(44100, -6, 50))
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
	var l float32
	for i := 0; i < 200; i++ {
		l, _ = c.Process(1, 1)
	}
	if l == 0 || l > 0.51 {
		t.Errorf("chain output = %f, want limited chorus output", l)
	}
}

func TestLimiterHoldsCeiling(t *testing.T) {
	lim := NewLimiter(44100, -6, 50)
	ceiling := float32(math.Pow(10, -6.0/20))
	for i := 0; i < 1000; i++ {
		l, r := lim.Process(2.0, -1.5)
		if l > ceiling+1e-6 || -r > ceiling {
			t.Fatalf("sample %d exceeded ceiling: %f %f", i, l, r)
		}
	}
	lim.Reset()
	if l, _ := lim.Process(0.1, 0.1); l != 0.1 {
		t.Errorf("quiet signal altered: %f", l)
	}
}

func TestLowPassAttenuatesHighFrequencies(t *testing.T) {
	const sr = 48000.0
	var f LowPass
	f.SetSampleRate(sr)
	f.Set(500, 0.707)
	var low, high float64
	for i := 0; i < 4800; i++ {
		y := f.Process(math.Sin(2 * math.Pi * 100 * float64(i) / sr))
		if i > 2400 {
			low = math.Max(low, math.Abs(y))
		}
	}
	f.Reset()
	f.Set(500, 0.707)
	for i := 0; i < 4800; i++ {
		y := f.Process(math.Sin(2 * math.Pi * 10000 * float64(i) / sr))
		if i > 2400 {
			high = math.Max(high, math.Abs(y))
		}
	}
	if low < 0.9 || high > 0.05 {
		t.Errorf("passband %f, stopband %f", low, high)
	}
}

func TestLowPassZeroValuePassesThrough(t *testing.T) {
	var f LowPass
	if y := f.Process(0.3); y != 0.3 {
		t.Errorf("got %f", y)
	}
}

package sample

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cbegin/sf2synth-go/internal/sf2"
)

func ramp(n int) []int16 {
	pcm := make([]int16, n)
	for i := range pcm {
		pcm[i] = int16(i % 30000)
	}
	return pcm[:n:n]
}

func TestLoopWrapPreservesFraction(t *testing.T) {
	pcm := ramp(3000)
	var p Player
	p.Start(pcm, Bounds{Start: 0, End: 3000, LoopStart: 1000, LoopEnd: 2000}, LoopContinuous)
	p.Seek(1999.8)
	p.Next(1.0)
	if got := p.Position(); math.Abs(got-1000.8) > 1e-6 {
		t.Fatalf("position after wrap = %v, want 1000.8", got)
	}
	if p.Done() {
		t.Fatalf("looping player reported done")
	}
}

func TestNoLoopEndsAtSampleEnd(t *testing.T) {
	var p Player
	p.Start(ramp(100), Bounds{Start: 0, End: 100, LoopStart: 10, LoopEnd: 90}, LoopNone)
	n := 0
	for !p.Done() {
		p.Next(1.0)
		n++
		if n > 200 {
			t.Fatalf("player never finished")
		}
	}
	if n != 100 {
		t.Fatalf("played %d frames, want 100", n)
	}
}

func TestLoopUntilReleasePlaysOut(t *testing.T) {
	var p Player
	p.Start(ramp(100), Bounds{Start: 0, End: 100, LoopStart: 10, LoopEnd: 50}, LoopUntilRelease)
	for i := 0; i < 500; i++ {
		p.Next(1.0)
	}
	if p.Done() || p.Position() >= 50 {
		t.Fatalf("loop not honoured before release: pos %v", p.Position())
	}
	p.Release()
	for i := 0; i < 100 && !p.Done(); i++ {
		p.Next(1.0)
	}
	if !p.Done() {
		t.Fatalf("player did not reach the end after release")
	}
}

func TestContinuousLoopIgnoresRelease(t *testing.T) {
	var p Player
	p.Start(ramp(100), Bounds{Start: 0, End: 100, LoopStart: 10, LoopEnd: 50}, LoopContinuous)
	p.Release()
	for i := 0; i < 1000; i++ {
		p.Next(1.5)
	}
	if p.Done() {
		t.Fatalf("continuous loop ended")
	}
}

func TestInterpolation(t *testing.T) {
	var p Player
	p.Start([]int16{0, 16384, 0, 0}, Bounds{Start: 0, End: 4}, LoopNone)
	p.Seek(0.5)
	if got := p.Next(0); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("midpoint = %v, want 0.25", got)
	}
}

func TestComputeBoundsClamps(t *testing.T) {
	h := sf2.SampleHeader{Start: 100, End: 200, LoopStart: 120, LoopEnd: 180}
	b := ComputeBounds(h, 150, Offsets{Start: -500, End: 1000, LoopStart: 10, LoopEnd: 40000})
	want := Bounds{Start: 100, End: 150, LoopStart: 130, LoopEnd: 150}
	if b != want {
		t.Fatalf("bounds = %+v, want %+v", b, want)
	}
}

func TestModeFromGenerator(t *testing.T) {
	cases := map[int]LoopMode{0: LoopNone, 1: LoopContinuous, 2: LoopNone, 3: LoopUntilRelease}
	for v, want := range cases {
		if got := ModeFromGenerator(v); got != want {
			t.Fatalf("mode(%d) = %d, want %d", v, got, want)
		}
	}
}

func TestReadsStayInBounds(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 300
	properties := gopter.NewProperties(params)
	properties.Property("player never reads outside the PCM buffer", prop.ForAll(
		func(start, end, ls, le, offS, offE int, inc float64, mode int) bool {
			pcm := ramp(512)
			h := sf2.SampleHeader{Start: uint32(start), End: uint32(end), LoopStart: uint32(ls), LoopEnd: uint32(le)}
			b := ComputeBounds(h, len(pcm), Offsets{Start: offS, End: offE, LoopStart: offS, LoopEnd: offE})
			if b.Start > b.LoopStart || b.LoopStart > b.LoopEnd || b.LoopEnd > b.End || b.End > len(pcm) {
				return false
			}
			var p Player
			p.Start(pcm, b, ModeFromGenerator(mode))
			for i := 0; i < 2000; i++ {
				v := p.Next(inc)
				if v < -1 || v > 1 {
					return false
				}
				pos := p.Position()
				if pos < float64(b.Start) || pos > float64(b.End)+1 {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 600),
		gen.IntRange(0, 600),
		gen.IntRange(0, 600),
		gen.IntRange(0, 600),
		gen.IntRange(-100, 100),
		gen.IntRange(-100, 100),
		gen.Float64Range(0, 64),
		gen.IntRange(0, 3),
	))
	properties.TestingRun(t)
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cbegin/sf2synth-go"
	"github.com/cbegin/sf2synth-go/internal/sf2/sf2test"
)

func TestParseArgsDefaults(t *testing.T) {
	t.Setenv("SF2_BANK", "")
	t.Setenv("LOG_LEVEL", "")
	cfg, err := parseArgs([]string{"-bank", "gm.sf2"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if cfg.outPath != "out.wav" || cfg.sampleRate != 44100 || cfg.logLevel != "info" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if _, err := parseArgs([]string{"-bank", "gm.sf2", "-tail", "-1"}); err == nil {
		t.Fatal("negative tail accepted")
	}
	if _, err := parseArgs(nil); err == nil {
		t.Fatal("missing bank accepted")
	}
}

func TestDemoScaleRenders(t *testing.T) {
	bank := sf2test.MustDecode(sf2test.Fixture())
	samples, err := sf2synth.RenderNotes(bank, demoScale(), 22050, 0.2, sf2synth.WithEffects(false, false))
	if err != nil {
		t.Fatalf("RenderNotes: %v", err)
	}
	path := filepath.Join(t.TempDir(), "demo.wav")
	if err := sf2synth.WriteWAVFile(path, samples, 22050); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() <= 44 {
		t.Fatalf("wav size = %d", info.Size())
	}
}

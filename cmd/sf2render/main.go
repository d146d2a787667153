package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cbegin/sf2synth-go"
	"github.com/cbegin/sf2synth-go/internal/logger"
)

type config struct {
	bankPath   string
	midiPath   string
	outPath    string
	sampleRate int
	tail       float64
	effects    bool
	limiter    bool
	logLevel   string
}

func parseArgs(args []string) (*config, error) {
	fs := flag.NewFlagSet("sf2render", flag.ContinueOnError)
	cfg := &config{}
	fs.StringVar(&cfg.bankPath, "bank", "", "path to an SF2 bank (default $SF2_BANK)")
	fs.StringVar(&cfg.midiPath, "file", "", "MIDI file to render; a demo scale is rendered when empty")
	fs.StringVar(&cfg.outPath, "out", "out.wav", "output WAV path")
	fs.IntVar(&cfg.sampleRate, "sample-rate", 44100, "output sample rate")
	fs.Float64Var(&cfg.tail, "tail", 1.0, "seconds rendered after the last demo note")
	fs.BoolVar(&cfg.effects, "effects", true, "enable chorus and reverb")
	fs.BoolVar(&cfg.limiter, "limiter", true, "enable the master limiter")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.bankPath == "" {
		cfg.bankPath = os.Getenv("SF2_BANK")
	}
	if cfg.logLevel == "info" {
		if env := os.Getenv("LOG_LEVEL"); env != "" {
			cfg.logLevel = strings.ToLower(env)
		}
	}
	switch {
	case cfg.bankPath == "":
		return nil, errors.New("no bank: pass -bank or set SF2_BANK")
	case cfg.sampleRate <= 0:
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.sampleRate)
	case cfg.tail < 0:
		return nil, fmt.Errorf("tail must not be negative, got %v", cfg.tail)
	}
	return cfg, nil
}

// demoScale is a C major scale with a hi-hat on each beat.
func demoScale() []sf2synth.Note {
	keys := []int{60, 62, 64, 65, 67, 69, 71, 72}
	notes := make([]sf2synth.Note, 0, 2*len(keys))
	for i, key := range keys {
		start := float64(i) * 0.4
		notes = append(notes,
			sf2synth.Note{Channel: 0, Key: key, Velocity: 100, Start: start, Duration: 0.35},
			sf2synth.Note{Channel: sf2synth.PercussionChannel, Key: 42, Velocity: 80, Start: start, Duration: 0.1})
	}
	return notes
}

func main() {
	cfg, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}
	if err := logger.InitLogger(cfg.logLevel); err != nil {
		log.Fatal(err)
	}
	lg := logger.GetLogger()

	bank, err := sf2synth.LoadBankFile(cfg.bankPath)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	lg.Info("bank loaded", "path", cfg.bankPath, "summary", bank.Describe())

	opts := []sf2synth.Option{
		sf2synth.WithEffects(cfg.effects, cfg.effects),
		sf2synth.WithLimiter(cfg.limiter),
		sf2synth.WithLogger(lg),
	}
	var samples []float32
	if cfg.midiPath != "" {
		samples, err = sf2synth.RenderMIDIFile(bank, cfg.midiPath, cfg.sampleRate, opts...)
	} else {
		samples, err = sf2synth.RenderNotes(bank, demoScale(), cfg.sampleRate, cfg.tail, opts...)
	}
	if err != nil {
		log.Fatalf("%+v", err)
	}
	if err := sf2synth.WriteWAVFile(cfg.outPath, samples, cfg.sampleRate); err != nil {
		log.Fatalf("%+v", err)
	}
	lg.Info("rendered", "out", cfg.outPath,
		"seconds", float64(len(samples)/2)/float64(cfg.sampleRate))
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cbegin/sf2synth-go"
	"github.com/cbegin/sf2synth-go/internal/logger"
)

type config struct {
	bankPath   string
	midiPath   string
	sampleRate int
	polyphony  int
	program    int
	volume     float64
	loop       bool
	loops      int
	effects    bool
	limiter    bool
	list       bool
	logLevel   string
}

func parseArgs(args []string) (*config, error) {
	fs := flag.NewFlagSet("sf2play", flag.ContinueOnError)
	cfg := &config{}
	fs.StringVar(&cfg.bankPath, "bank", "", "path to an SF2 bank (default $SF2_BANK)")
	fs.StringVar(&cfg.midiPath, "file", "", "MIDI file to play; a demo phrase is played when empty")
	fs.IntVar(&cfg.sampleRate, "sample-rate", 48000, "output sample rate")
	fs.IntVar(&cfg.polyphony, "polyphony", 64, "voice pool size")
	fs.IntVar(&cfg.program, "program", 0, "program for the demo phrase")
	fs.Float64Var(&cfg.volume, "volume", 1.0, "master volume scalar")
	fs.BoolVar(&cfg.loop, "loop", false, "loop playback; use with -loops to count then stop")
	fs.IntVar(&cfg.loops, "loops", 3, "when -loop, stop after N loops (0 = loop forever)")
	fs.BoolVar(&cfg.effects, "effects", true, "enable chorus and reverb")
	fs.BoolVar(&cfg.limiter, "limiter", false, "enable the master limiter")
	fs.BoolVar(&cfg.list, "list", false, "list the bank's presets and exit")
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
	if cfg.midiPath == "" && fs.NArg() > 0 {
		cfg.midiPath = fs.Arg(0)
	}
	switch {
	case cfg.bankPath == "":
		return nil, errors.New("no bank: pass -bank or set SF2_BANK")
	case cfg.sampleRate <= 0:
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.sampleRate)
	case cfg.program < 0 || cfg.program > 127:
		return nil, fmt.Errorf("program must be 0-127, got %d", cfg.program)
	}
	return cfg, nil
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
	if cfg.list {
		listPresets(bank)
		return
	}
	lg.Info("bank loaded", "path", cfg.bankPath, "summary", bank.Describe())

	pl, err := sf2synth.NewPlayer(bank, cfg.sampleRate,
		sf2synth.WithPolyphony(cfg.polyphony),
		sf2synth.WithEffects(cfg.effects, cfg.effects),
		sf2synth.WithLimiter(cfg.limiter),
		sf2synth.WithLoopPlayback(cfg.loop),
		sf2synth.WithLogger(lg))
	if err != nil {
		log.Fatal(err)
	}
	pl.SetMasterVolume(cfg.volume)

	if cfg.midiPath == "" {
		if err := playDemo(pl, cfg.program); err != nil {
			log.Fatal(err)
		}
		report(pl)
		return
	}

	ch := pl.Watch()
	if err := pl.PlayMIDIFile(cfg.midiPath); err != nil {
		log.Fatalf("%+v", err)
	}
	loopCount := 0
events:
	for event := range ch {
		switch event.Kind {
		case sf2synth.EventPlaybackEnded:
			fmt.Println("playback completed")
			break events
		case sf2synth.EventLoopCompleted:
			loopCount++
			fmt.Printf("loop %d completed\n", loopCount)
			if cfg.loop && cfg.loops > 0 && loopCount >= cfg.loops {
				_ = pl.Stop()
			}
		}
	}
	pl.Wait()
	report(pl)
}

func listPresets(bank *sf2synth.Bank) {
	fmt.Println(bank.Describe())
	for i, p := range bank.Presets {
		fmt.Printf("%4d  %3d:%-3d  %s\n", i, p.Bank, p.Program, p.Name)
	}
}

// demoPhrase is an arpeggio in beats of 250 ms.
var demoPhrase = []uint8{60, 64, 67, 72, 67, 64, 60}

func playDemo(pl *sf2synth.Player, program int) error {
	if err := pl.Start(); err != nil {
		return err
	}
	s := pl.Synth()
	s.SendMIDI(midi.ProgramChange(0, uint8(program)))
	for _, key := range demoPhrase {
		s.SendMIDI(midi.NoteOn(0, key, 100))
		time.Sleep(250 * time.Millisecond)
		s.SendMIDI(midi.NoteOff(0, key))
	}
	time.Sleep(time.Second)
	return pl.Stop()
}

func report(pl *sf2synth.Player) {
	s := pl.Synth()
	logger.GetLogger().Info("playback stats",
		"droppedCommands", s.DroppedCommands(),
		"stolenVoices", s.StolenVoices())
}

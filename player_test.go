package sf2synth

import (
	"math"
	"testing"
)

func TestPlayerMasterVolumeRuntimeAPI(t *testing.T) {
	pl, err := NewPlayer(fixture, 48000, WithLogger(quietLogger()), WithMasterGain(0.4))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	pl.SetMasterVolume(0.5)
	if got := pl.MasterVolume(); got != 0.5 {
		t.Fatalf("master volume = %v, want 0.5", got)
	}
	if got := pl.Synth().MasterGain(); math.Abs(got-0.2) > 1e-12 {
		t.Fatalf("synth gain = %v, want 0.2", got)
	}
	pl.SetMasterVolume(-2)
	if got := pl.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestPlayerIdle(t *testing.T) {
	pl, err := NewPlayer(fixture, 48000, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if pl.PlaybackPosition() != 0 {
		t.Fatal("idle player reports a position")
	}
	if err := pl.Stop(); err != nil {
		t.Fatalf("stop idle player: %v", err)
	}
	pl.Wait()
	if _, err := NewPlayer(nil, 48000); err == nil {
		t.Fatal("nil bank accepted")
	}
	if err := pl.PlayMIDI([]byte("junk")); err == nil {
		t.Fatal("junk MIDI accepted")
	}
}

func TestWatchReceivesEvents(t *testing.T) {
	pl, err := NewPlayer(fixture, 48000, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	events := pl.Watch()
	pl.sendEvent(PlaybackEvent{Kind: EventLoopCompleted})
	if ev := <-events; ev.Kind != EventLoopCompleted {
		t.Fatalf("event = %+v", ev)
	}
}

func TestStaleSongEndKeepsNextSongWaiting(t *testing.T) {
	pl, err := NewPlayer(fixture, 48000, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	pl.mu.Lock()
	pl.resetDone()
	first := pl.done
	pl.resetDone()
	second := pl.done
	pl.mu.Unlock()

	pl.signalDone(first)
	select {
	case <-second:
		t.Fatal("end of the previous song released the next one")
	default:
	}

	pl.signalDone(second)
	pl.signalDone(second)
	select {
	case <-second:
	default:
		t.Fatal("song end did not release waiters")
	}
	pl.Wait()
}

package sf2synth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cbegin/sf2synth-go/internal/sf2/sf2test"
)

func TestLoadBank(t *testing.T) {
	bank, err := LoadBank(sf2test.Fixture())
	if err != nil {
		t.Fatalf("LoadBank: %v", err)
	}
	if len(bank.Presets) != 2 || bank.Presets[1].Bank != 128 {
		t.Fatalf("presets = %+v", bank.Presets)
	}
}

func TestLoadBankFormatError(t *testing.T) {
	_, err := LoadBank([]byte("RIFF\x04\x00\x00\x00WAVE"))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %T, want *FormatError", err)
	}
}

func TestLoadBankFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.sf2")
	if err := os.WriteFile(path, sf2test.Fixture(), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBankFile(path); err != nil {
		t.Fatalf("LoadBankFile: %v", err)
	}

	if _, err := LoadBankFile(filepath.Join(dir, "missing.sf2")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file: %v", err)
	}

	bad := filepath.Join(dir, "bad.sf2")
	if err := os.WriteFile(bad, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBankFile(bad); !errors.Is(err, ErrFormat) {
		t.Fatalf("bad file: %v", err)
	}
}

// Package sf2synth renders SoundFont 2 banks in real time or offline.
package sf2synth

import (
	"os"

	"github.com/pkg/errors"

	"github.com/cbegin/sf2synth-go/internal/sf2"
)

type (
	Bank        = sf2.Bank
	Preset      = sf2.Preset
	FormatError = sf2.FormatError
)

// ErrFormat is wrapped by every bank decoding failure.
var ErrFormat = sf2.ErrFormat

// LoadBank decodes an SF2 image held in memory.
func LoadBank(data []byte) (*Bank, error) {
	return sf2.Decode(data)
}

// LoadBankFile reads and decodes an SF2 file.
func LoadBankFile(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read bank %s", path)
	}
	bank, err := sf2.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode bank %s", path)
	}
	return bank, nil
}

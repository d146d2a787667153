package sf2

import (
	"errors"
	"fmt"
)

// ErrFormat is wrapped by every FormatError so callers can test with errors.Is.
var ErrFormat = errors.New("sf2: invalid bank format")

// FormatError reports a structural problem found while decoding a bank. Tag
// names the chunk being processed and Offset is the byte offset into the bank
// buffer where the problem was detected.
type FormatError struct {
	Reason string
	Tag    string
	Offset int
}

func (e *FormatError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("sf2: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("sf2: %s in %q chunk at offset %d", e.Reason, e.Tag, e.Offset)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

func formatError(tag string, offset int, format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...), Tag: tag, Offset: offset}
}

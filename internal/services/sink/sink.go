// Package sink reads and writes the single text blob that snapshots accumulate in.
package sink

import (
	"errors"
)

// ErrSinkUnavailable reports a sink that cannot be used on this system.
var ErrSinkUnavailable = errors.New("sink unavailable")

// Sink holds the accumulated output between invocations.
type Sink interface {
	// Read returns the current text, or an empty string when there is none.
	Read() (string, error)
	// Write replaces the current text.
	Write(text string) error
}

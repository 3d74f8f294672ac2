// Package logging builds the diagnostic loggers used by the transport
// backends.
package logging

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NewTransportLogger returns the logger behind verbose mode. It is a
// no-op unless verbose is set; enabled, it writes human-readable lines
// to stderr tagged with a per-invocation id so interleaved output from
// redirect hops stays attributable.
func NewTransportLogger(verbose bool) zerolog.Logger {
	if !verbose {
		return zerolog.Nop()
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).With().Timestamp().Str("id", shortID()).Logger()
}

func shortID() string {
	return uuid.NewString()[:8]
}

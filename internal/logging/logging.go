// Package logging builds the process-wide zerolog.Logger used by every
// binary in this repository. Each process constructs exactly one logger at
// startup and threads it down explicitly, matching the teacher's habit of
// carrying state through Config structs rather than mutating package-level
// logger state.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a console-formatted logger tagged with component.
func New(component string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(out).With().Timestamp().Str("component", component).Logger()
}

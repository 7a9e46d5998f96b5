// Package mlog provides the process-wide structured logger.
//
// Other packages should use mlog.Logger with additional context fields
// rather than importing zerolog directly, so the output format stays
// consistent across the engine, the admin dispatcher, and cmd/mapperd.
package mlog

import (
	"os"

	"github.com/rs/zerolog"
)

// Logger is the global structured logger.
var Logger zerolog.Logger

func init() {
	Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// SetLevel adjusts the minimum logged level of the global Logger.
func SetLevel(level zerolog.Level) {
	Logger = Logger.Level(level)
}

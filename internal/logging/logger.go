// Package logging configures the global zerolog logger and emits the
// one-line startup summary.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger with configuration from environment variables.
// NOTECLEAN_LOG_LEVEL controls the log level: debug, info, warn, error (default: info).
// NOTECLEAN_LOG_FORMAT=json switches from the console writer to JSON lines.
func Init() {
	InitWith(os.Stderr, os.Getenv("NOTECLEAN_LOG_LEVEL"), os.Getenv("NOTECLEAN_LOG_FORMAT"))
}

// InitWith configures the global logger to write to out.
func InitWith(out io.Writer, level, format string) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	if strings.EqualFold(format, "json") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out})
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Package logging configures the zerolog logger shared by the CLI and the
// MCP server.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLogLevel overrides the configured log level.
const EnvLogLevel = "PROCRUN_LOG_LEVEL"

// New returns a console logger tagged with app. The level comes from
// PROCRUN_LOG_LEVEL, then fallback, then info.
func New(app string, w io.Writer, fallback string) zerolog.Logger {
	level, ok := ParseLevel(os.Getenv(EnvLogLevel))
	if !ok {
		level, ok = ParseLevel(fallback)
	}
	if !ok {
		level = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
}

// ParseLevel maps a level name to a zerolog level. The second result is
// false for empty or unknown names.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "off", "disabled":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

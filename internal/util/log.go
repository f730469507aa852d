package util

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// NewLoggerTo writes human-readable logs to w, leaving stdout free for command output.
func NewLoggerTo(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: true}
	return zerolog.New(out).With().Timestamp().Logger().Level(lvl)
}

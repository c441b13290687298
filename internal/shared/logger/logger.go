package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. devMode selects the console writer;
// level falls back to info when it cannot be parsed.
func New(devMode bool, level string) zerolog.Logger {
	return newWithWriter(os.Stderr, devMode, level)
}

func newWithWriter(out io.Writer, devMode bool, level string) zerolog.Logger {
	if devMode {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a LOG_LEVEL value to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

package logger

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger. prod emits JSON; anything else emits
// human-readable console output.
func New(w io.Writer, env, level, service string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := w
	if env != "prod" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("service", service).
		Str("env", env).
		Logger()

	if err != nil {
		l.Warn().Str("value", level).Msg("invalid log level, using info")
	}
	return l
}

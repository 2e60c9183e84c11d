package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger tagged with the service name.
// APP_ENV=dev (or development) switches to the console writer; LOG_LEVEL
// (debug, info, warn, error) defaults to debug in dev and info elsewhere.
func NewLogger(env, service string) zerolog.Logger {
	return newLogger(os.Stdout, env, service, os.Getenv("LOG_LEVEL"))
}

func newLogger(out io.Writer, env, service, level string) zerolog.Logger {
	dev := env == "dev" || env == "development"
	if dev {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
		if dev {
			lvl = zerolog.DebugLevel
		}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", service).Logger()
}

// Package logger builds the structured slog loggers used by lockana binaries.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects the handler format and minimum level.
type Options struct {
	Level  string
	Format string
}

// Setup returns a logger writing to w. Format "text" selects the text handler;
// anything else produces JSON. A nil writer means stdout.
func Setup(w io.Writer, opts Options) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		handler = slog.NewTextHandler(w, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.New(handler).With(slog.String("service", "lockana"))
}

// SetupDefault installs Setup's logger as the process default.
func SetupDefault(w io.Writer, opts Options) *slog.Logger {
	l := Setup(w, opts)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps debug/info/warn/error to slog levels, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

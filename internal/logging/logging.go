// Package logging builds the structured logger used across the shim.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 5
	maxLogBackups = 5
	maxLogAgeDays = 14
)

// Options selects the level, handler format and optional rotating file.
type Options struct {
	Level  string
	Format string
	File   string
}

// New returns a logger writing to out and, when opts.File is set, to a
// rotating log file as well. The returned closer releases the file.
func New(opts Options, out io.Writer) (*slog.Logger, io.Closer, error) {
	handlerOptions := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	logPath := strings.TrimSpace(opts.File)
	if logPath == "" {
		return slog.New(newHandler(opts.Format, out, handlerOptions)), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		logger := slog.New(newHandler(opts.Format, out, handlerOptions))
		return logger, nopCloser{}, err
	}

	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
		Compress:   true,
	}

	handler := newHandler(opts.Format, io.MultiWriter(out, writer), handlerOptions)
	return slog.New(handler), writer, nil
}

// ParseLevel maps a level name to a slog level, defaulting to info.
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

// Discard returns a logger that drops everything. Tests use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(format string, out io.Writer, opts *slog.HandlerOptions) slog.Handler {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		return slog.NewTextHandler(out, opts)
	default:
		return slog.NewJSONHandler(out, opts)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Package logging wires the process-wide slog logger: a rotating file next
// to the config, an optional stderr copy, and the session ring that backs
// `winkeylock status`.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"winkeylock/internal/sessionlog"
)

// FileName is the log file created beside config.yaml.
const FileName = "winkeylock.log"

var (
	ErrUnknownLevel  = errors.New("unknown log level")
	ErrUnknownFormat = errors.New("unknown log format")
)

// Options selects where and how records are written.
type Options struct {
	// Path of the log file. Empty disables the file sink.
	Path string
	// Level is one of debug, info, warn, error.
	Level string
	// Format is text or json.
	Format string
	// Stderr copies every record to os.Stderr as well.
	Stderr bool
	// RingSize bounds the session ring; <= 0 selects the default.
	RingSize int
}

// Logger is the configured logger plus the resources it owns.
type Logger struct {
	*slog.Logger
	ring   *sessionlog.Ring
	closer io.Closer
}

// Recent returns the retained warnings and errors, oldest first.
func (l *Logger) Recent() []sessionlog.Entry {
	return l.ring.Entries()
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// PathFor returns the log file path for the given config file path.
func PathFor(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), FileName)
}

// ParseLevel maps a flag value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// New builds a Logger without installing it as the slog default.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var (
		sinks  []io.Writer
		closer io.Closer
	)
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     30,
		}
		sinks = append(sinks, rotator)
		closer = rotator
	}
	if opts.Stderr || len(sinks) == 0 {
		sinks = append(sinks, os.Stderr)
	}
	out := io.MultiWriter(sinks...)

	handlerOpts := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text":
		base = slog.NewTextHandler(out, handlerOpts)
	case "json":
		base = slog.NewJSONHandler(out, handlerOpts)
	default:
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}

	ring := sessionlog.NewRing(opts.RingSize)
	handler := sessionlog.NewTeeHandler(base, slog.LevelWarn, ring.Record)
	return &Logger{Logger: slog.New(handler), ring: ring, closer: closer}, nil
}

// Setup builds a Logger and installs it as the slog default.
func Setup(opts Options) (*Logger, error) {
	logger, err := New(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger.Logger)
	return logger, nil
}

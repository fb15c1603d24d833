// Package testutil holds helpers shared by package tests.
package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogBuffer collects slog output. Workers and the hook callback log from
// their own goroutines, so writes and reads are serialized.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Tagged returns the lines whose message carries tag, e.g. "[WARN-CONFIG]".
func (b *LogBuffer) Tagged(tag string) []string {
	var lines []string
	for line := range strings.Lines(b.String()) {
		if strings.Contains(line, tag) {
			lines = append(lines, strings.TrimRight(line, "\n"))
		}
	}
	return lines
}

// CaptureLogBuffer points the default slog logger at a LogBuffer and
// restores the previous logger in t.Cleanup.
func CaptureLogBuffer(t *testing.T, level slog.Level) *LogBuffer {
	t.Helper()
	originalLogger := slog.Default()
	logBuf := &LogBuffer{}
	slog.SetDefault(slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() {
		slog.SetDefault(originalLogger)
	})
	return logBuf
}

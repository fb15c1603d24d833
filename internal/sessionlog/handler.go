// Package sessionlog keeps the recent warnings and errors of the running
// instance so that `winkeylock status` can show them without opening the
// log file.
package sessionlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
)

// EntryCallback receives every record at or above the capture threshold.
type EntryCallback func(Entry)

// TeeHandler forwards every record to base and additionally hands records at
// or above minLevel to a callback as an Entry.
type TeeHandler struct {
	base     slog.Handler
	callback EntryCallback
	minLevel slog.Level
	group    string
	// errText is an "error" attribute bound through WithAttrs.
	errText string
}

// NewTeeHandler wraps base. A nil callback makes the handler a plain
// pass-through.
func NewTeeHandler(base slog.Handler, minLevel slog.Level, callback EntryCallback) *TeeHandler {
	return &TeeHandler{
		base:     base,
		callback: callback,
		minLevel: minLevel,
	}
}

// Enabled defers to base; minLevel only gates the callback.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle writes to base, then runs the callback even if base failed.
func (h *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	err := h.base.Handle(ctx, record)
	if h.callback == nil || record.Level < h.minLevel {
		return err
	}

	entry := Entry{
		Time:    record.Time,
		Level:   record.Level.String(),
		Message: record.Message,
		Source:  h.group,
		Error:   h.errText,
	}
	entry.Component, entry.Message = splitTag(record.Message)
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == "error" {
			entry.Error = a.Value.String()
			return false
		}
		return true
	})

	func() {
		defer func() {
			if r := recover(); r != nil {
				// stderr, not slog: logging here would re-enter this handler.
				fmt.Fprintf(os.Stderr, "[session-log] callback panicked: %v\n%s\n", r, debug.Stack())
			}
		}()
		h.callback(entry)
	}()
	return err
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.base = h.base.WithAttrs(attrs)
	if h.group == "" {
		for _, a := range attrs {
			if a.Key == "error" {
				next.errText = a.Value.String()
			}
		}
	}
	return &next
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.base = h.base.WithGroup(name)
	next.group = name
	if h.group != "" {
		next.group = h.group + "." + name
	}
	return &next
}

// splitTag separates the leading "[WARN-HOOK]" style tag from msg and
// returns its component ("HOOK") with the remaining text. Untagged messages
// are returned unchanged.
func splitTag(msg string) (component, rest string) {
	if !strings.HasPrefix(msg, "[") {
		return "", msg
	}
	end := strings.IndexByte(msg, ']')
	if end < 0 {
		return "", msg
	}
	tag := msg[1:end]
	_, component, ok := strings.Cut(tag, "-")
	if !ok || component == "" {
		return "", msg
	}
	return component, strings.TrimSpace(msg[end+1:])
}

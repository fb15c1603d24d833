package sessionlog

import (
	"sync"
	"time"
)

// DefaultRingSize is the number of entries kept when NewRing gets size <= 0.
const DefaultRingSize = 50

// Entry is one captured log record. Component is the subsystem named by
// the message tag ("HOOK" for "[WARN-HOOK]") and Message the text after it.
// Source is the slog group path, empty at the root.
type Entry struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Source    string    `json:"source,omitempty"`
}

// Ring keeps the most recent entries, oldest first.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{entries: make([]Entry, size)}
}

// Record matches EntryCallback so a Ring can be handed to NewTeeHandler.
func (r *Ring) Record(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Entries returns a copy of the retained entries in arrival order.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Entry(nil), r.entries[:r.next]...)
	}
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	return append(out, r.entries[:r.next]...)
}

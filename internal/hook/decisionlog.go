package hook

import (
	"context"
	"log/slog"

	"winkeylock/internal/keycombo"
)

// LogDecisions drains d.Decisions until ctx is cancelled. Logging lives here,
// off the hook thread, so the callback never waits on a handler.
func LogDecisions(ctx context.Context, d *Dispatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case decision := <-d.Decisions():
			logDecision(decision)
		}
	}
}

func logDecision(decision Decision) {
	attrs := []any{
		"key", keycombo.KeyName(decision.Code),
		"modifiers", modifierString(decision.Modifiers),
		"verdict", decision.Verdict.String(),
	}
	if decision.Fallback {
		attrs = append(attrs, "fallback", true)
	}
	if decision.Chord {
		attrs = append(attrs, "chord", true)
	}
	if decision.InjectErr != nil {
		slog.Warn("[WARN-HOOK] compensating tap failed", append(attrs, "error", decision.InjectErr)...)
		return
	}
	slog.Debug("[DEBUG-HOOK] key decision", attrs...)
}

func modifierString(m keycombo.Modifiers) string {
	out := ""
	add := func(held bool, name string) {
		if !held {
			return
		}
		if out != "" {
			out += "+"
		}
		out += name
	}
	add(m.Ctrl, "ctrl")
	add(m.Alt, "alt")
	add(m.Shift, "shift")
	add(m.Meta, "lwin")
	if out == "" {
		return "none"
	}
	return out
}

// Package hook turns raw low-level keyboard events into suppress / pass
// decisions. Dispatcher holds the per-event logic and is platform neutral;
// the Windows build installs it as a WH_KEYBOARD_LL hook.
package hook

import (
	"sync/atomic"

	"winkeylock/internal/detect"
	"winkeylock/internal/inject"
	"winkeylock/internal/keycombo"
	"winkeylock/internal/modstate"
)

// Window messages delivered to a low-level keyboard hook.
const (
	MsgKeyDown    uint32 = 0x0100
	MsgKeyUp      uint32 = 0x0101
	MsgSysKeyDown uint32 = 0x0104
	MsgSysKeyUp   uint32 = 0x0105
)

// FlagInjected is the LLKHF_INJECTED bit of KeyInfo.Flags.
const FlagInjected uint32 = 0x10

// Verdict is the outcome for one event.
type Verdict int

const (
	// PassThrough forwards the event to the next hook.
	PassThrough Verdict = iota
	// Suppress swallows the event.
	Suppress
	// SuppressAndInject means the pending meta side effect was cancelled by
	// an injected tap. The triggering key-up itself is still forwarded.
	SuppressAndInject
)

func (v Verdict) String() string {
	switch v {
	case PassThrough:
		return "pass"
	case Suppress:
		return "suppress"
	case SuppressAndInject:
		return "suppress+inject"
	}
	return "unknown"
}

// Swallow reports whether the event must be stopped from propagating.
func (v Verdict) Swallow() bool { return v == Suppress }

// KeyInfo carries the fields of KBDLLHOOKSTRUCT.
type KeyInfo struct {
	VKCode    uint32
	ScanCode  uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// PolicySource answers the block question against the current policy.
// Implementations must not block or perform I/O.
type PolicySource interface {
	ShouldBlock(code keycombo.Code, mods keycombo.Modifiers) bool
}

// Options configures a Dispatcher.
type Options struct {
	// Policy is nil when the configuration could not be initialised; the
	// dispatcher then only cancels lone meta presses while Fallback is
	// eligible.
	Policy   PolicySource
	Detector detect.Detector
	Fallback detect.Detector
	Injector inject.Injector
	// Tracker is optional; a private one is used when nil.
	Tracker *modstate.Tracker
	// DecisionBuffer sizes the decision channel. Zero selects 64.
	DecisionBuffer int
}

// Decision describes one non-trivial verdict for asynchronous logging.
type Decision struct {
	Code      keycombo.Code
	Modifiers keycombo.Modifiers
	Down      bool
	Verdict   Verdict
	Fallback  bool
	Chord     bool
	InjectErr error
	Time      uint32
}

// Stats are cumulative counters since the dispatcher was created.
type Stats struct {
	Events         uint64 `json:"events"`
	Suppressed     uint64 `json:"suppressed"`
	Injected       uint64 `json:"injected"`
	InjectFailures uint64 `json:"inject_failures"`
	OwnInjections  uint64 `json:"own_injections"`
	DroppedLogs    uint64 `json:"dropped_logs"`
}

// Dispatcher decides the fate of each keyboard event. Handle must be called
// from a single goroutine at a time (the hook thread); every other method
// is safe for concurrent use.
type Dispatcher struct {
	policy   PolicySource
	detector detect.Detector
	fallback detect.Detector
	injector inject.Injector
	tracker  *modstate.Tracker

	// Hook-thread only.
	chordSuppressed bool
	chordPassed     bool

	decisions chan Decision

	events         atomic.Uint64
	suppressed     atomic.Uint64
	injected       atomic.Uint64
	injectFailures atomic.Uint64
	ownInjections  atomic.Uint64
	droppedLogs    atomic.Uint64
}

// NewDispatcher builds a dispatcher from opts.
func NewDispatcher(opts Options) *Dispatcher {
	tracker := opts.Tracker
	if tracker == nil {
		tracker = &modstate.Tracker{}
	}
	buffer := opts.DecisionBuffer
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		policy:    opts.Policy,
		detector:  opts.Detector,
		fallback:  opts.Fallback,
		injector:  opts.Injector,
		tracker:   tracker,
		decisions: make(chan Decision, buffer),
	}
}

// Handle processes one hook invocation. nCode < 0 and unknown messages pass
// through without touching any state.
func (d *Dispatcher) Handle(nCode int32, msg uint32, info KeyInfo) Verdict {
	if nCode < 0 {
		return PassThrough
	}
	var down bool
	switch msg {
	case MsgKeyDown, MsgSysKeyDown:
		down = true
	case MsgKeyUp, MsgSysKeyUp:
	default:
		return PassThrough
	}
	if info.ExtraInfo == inject.ExtraInfoMarker {
		d.ownInjections.Add(1)
		return PassThrough
	}
	d.events.Add(1)

	code := keycombo.Code(info.VKCode)
	d.tracker.Observe(code, down)
	state := d.tracker.Snapshot()

	if keycombo.IsMeta(code) {
		if down {
			d.chordSuppressed = false
			d.chordPassed = false
			return PassThrough
		}
		return d.metaReleased(code, state, info.Time)
	}
	if !down {
		return PassThrough
	}

	verdict := PassThrough
	if d.policy != nil && d.policy.ShouldBlock(code, state.Modifiers) && d.eligible(d.detector) {
		verdict = Suppress
	}
	if state.Meta && !keycombo.IsModifier(code) {
		if verdict == Suppress {
			d.chordSuppressed = true
		} else {
			d.chordPassed = true
		}
	}
	if verdict == Suppress {
		d.suppressed.Add(1)
		d.publish(Decision{Code: code, Modifiers: state.Modifiers, Down: true, Verdict: Suppress, Time: info.Time})
	}
	return verdict
}

// metaReleased decides whether a meta key-up needs the compensating tap.
// The key-up itself is always forwarded.
func (d *Dispatcher) metaReleased(code keycombo.Code, state modstate.State, at uint32) Verdict {
	// A bare meta combination carries the meta modifier itself.
	mods := state.Modifiers
	mods.Meta = true

	decision := Decision{Code: code, Modifiers: mods, Time: at}
	switch {
	case d.policy == nil:
		if state.MetaUsedInChord || mods.Shift || mods.Ctrl || mods.Alt || !d.eligible(d.fallback) {
			return PassThrough
		}
		decision.Fallback = true
	case !state.MetaUsedInChord:
		if !d.policy.ShouldBlock(code, mods) || !d.eligible(d.detector) {
			return PassThrough
		}
	default:
		// Every chord key was swallowed, so the OS saw a lone meta press.
		if !d.chordSuppressed || d.chordPassed {
			return PassThrough
		}
		decision.Chord = true
	}

	if err := d.tap(); err != nil {
		d.injectFailures.Add(1)
		decision.InjectErr = err
	} else {
		d.injected.Add(1)
	}
	decision.Verdict = SuppressAndInject
	d.publish(decision)
	return SuppressAndInject
}

func (d *Dispatcher) eligible(detector detect.Detector) bool {
	return detector != nil && detector.Eligible()
}

func (d *Dispatcher) tap() error {
	if d.injector == nil {
		return errNoInjector
	}
	return d.injector.Tap()
}

func (d *Dispatcher) publish(decision Decision) {
	select {
	case d.decisions <- decision:
	default:
		d.droppedLogs.Add(1)
	}
}

// Decisions delivers suppress and inject decisions. Entries are dropped,
// and counted in Stats.DroppedLogs, when the consumer falls behind.
func (d *Dispatcher) Decisions() <-chan Decision { return d.decisions }

// Stats returns a copy of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Events:         d.events.Load(),
		Suppressed:     d.suppressed.Load(),
		Injected:       d.injected.Load(),
		InjectFailures: d.injectFailures.Load(),
		OwnInjections:  d.ownInjections.Load(),
		DroppedLogs:    d.droppedLogs.Load(),
	}
}

// Modifiers reports the tracked modifier state.
func (d *Dispatcher) Modifiers() modstate.State { return d.tracker.Snapshot() }

// FallbackMode reports whether the dispatcher runs without a policy.
func (d *Dispatcher) FallbackMode() bool { return d.policy == nil }

// Reset forgets all held keys. Called before the hook is installed.
func (d *Dispatcher) Reset() {
	d.tracker.Reset()
	d.chordSuppressed = false
	d.chordPassed = false
}

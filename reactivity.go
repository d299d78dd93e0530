package vapor

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Mode selects when the Driver reruns the active render root (spec.md
// section 4.8).
type Mode int

const (
	ModeAtomic Mode = iota
	ModeImmediate
	ModeRetained
)

func (m Mode) String() string {
	switch m {
	case ModeAtomic:
		return "atomic"
	case ModeImmediate:
		return "immediate"
	case ModeRetained:
		return "retained"
	default:
		return "unknown-mode"
	}
}

// Driver owns the single-in-flight-pass invariant (spec.md section 4.8):
// at most one render pass runs at a time, and a pass always runs to
// completion before the next one begins. It generalizes the teacher's
// async.go single-writer discipline (Lock, WorkQueue, Do) from "goroutines
// post mutating closures to the UI goroutine" to "events occurring while a
// pass is in flight coalesce into exactly one queued follow-up pass"
// (spec.md section 5's cancellation rule and scenario 6).
type Driver struct {
	eng  *Engine
	mode Mode

	mu      sync.Mutex
	running bool
	queued  bool
}

// NewDriver wires a Driver to eng under the given mode.
func NewDriver(eng *Engine, mode Mode) *Driver {
	return &Driver{eng: eng, mode: mode}
}

func (d *Driver) Mode() Mode { return d.mode }

// Cycle requests a render pass (spec.md section 6's cycle()). If a pass is
// already running, the request coalesces: the driver finishes the running
// pass, then runs exactly one more pass reflecting every event that
// arrived in the meantime, rather than queuing one pass per event.
func (d *Driver) Cycle() error {
	d.mu.Lock()
	if d.running {
		d.queued = true
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.mu.Unlock()

	var lastErr error
	for {
		lastErr = d.eng.runPass()

		d.mu.Lock()
		again := d.queued
		d.queued = false
		if !again {
			d.running = false
			d.mu.Unlock()
			return lastErr
		}
		d.mu.Unlock()
	}
}

// Tick drives Immediate mode's per-frame rerun. Unlike Cycle, an overlapping
// Tick is dropped rather than queued — a missed frame is the correct
// behavior for a game-loop-style driver under load, matching spec.md
// section 5's "cannot be cancelled mid-flight" by simply not starting a
// second one.
func (d *Driver) Tick() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.mu.Unlock()

	start := time.Now()
	err := d.eng.runPass()
	d.reportTiming(time.Since(start), err)

	d.mu.Lock()
	d.running = false
	d.queued = false
	d.mu.Unlock()
	return err
}

// reportTiming writes a per-frame pass-timing summary to stderr under
// Immediate mode, the game-loop-feel mode spec.md section 4.8 names where
// a developer actually wants to watch frame cost. It checks
// isatty.IsTerminal before emitting ANSI color, exactly the check elvish
// performs before coloring its own prompt.
func (d *Driver) reportTiming(dur time.Duration, err error) {
	if d.mode != ModeImmediate || !Verbose {
		return
	}
	status := "ok"
	if err != nil {
		status = "err"
	}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		fmt.Fprintf(os.Stderr, "\x1b[2mvapor: pass %s in %s\x1b[0m\n", status, dur)
		return
	}
	fmt.Fprintf(os.Stderr, "vapor: pass %s in %s\n", status, dur)
}

// Signal is the minimal "value plus dirty flag" container spec.md section
// 4.8 names for Retained mode: a write marks the signal dirty and triggers
// a cycle. It is grounded on the teacher's PropertyStore/MutationCallbacks
// watcher-on-write shape (uielement.go, mutation.go), collapsed from a
// keyed multi-watcher store down to the single-container case spec.md
// calls for, since the core no longer owns a generic DOM-facing property
// bag.
type Signal[T any] struct {
	eng *Engine

	mu    sync.Mutex
	value T
	dirty bool
}

// NewSignal creates a Signal bound to eng's driver, with an initial value.
func NewSignal[T any](eng *Engine, initial T) *Signal[T] {
	return &Signal[T]{eng: eng, value: initial}
}

// Get reads the current value.
func (s *Signal[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set stores a new value, marks the signal dirty, and triggers a cycle —
// the "bundles a value with a dirty flag and a cycle() call on write"
// contract from spec.md section 4.8.
func (s *Signal[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	s.dirty = true
	s.mu.Unlock()
	s.eng.driver.Cycle()
}

// Dirty reports and clears the dirty flag, for hosts that want to skip
// redundant work when a signal was never written since the previous Dirty
// call. Render passes do not clear the flag; only Dirty does.
func (s *Signal[T]) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dirty
	s.dirty = false
	return d
}

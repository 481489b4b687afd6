// Package progress tracks the single active long-running operation
// (instance creation or installation) as reported by the daemon's
// install:progress events.
package progress

import (
	"sync"

	"github.com/bastionmc/bastion/internal/ringlog"
)

// StagePrepare is the stage that opens a new operation. A prepare event with
// current == 0 is always a hard reset, even while another operation appears
// active; a stricter design would carry a per-operation identifier.
const StagePrepare = "prepare"

// Snapshot is the latest progress report. It is replaced wholesale on every
// event, never merged field by field.
type Snapshot struct {
	Stage   string
	Message string
	Current uint64
	Total   *uint64 // nil means indeterminate
	Detail  string
}

// Tracker holds the live snapshot plus a bounded rolling log of detail
// lines for the operation in flight. The zero value is not usable;
// construct with NewTracker.
type Tracker struct {
	mu     sync.RWMutex
	active bool
	snap   Snapshot
	detail *ringlog.Ring[string]
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{
		detail: ringlog.NewRing[string](ringlog.DetailCapacity),
	}
}

// Apply records a progress event. A prepare event with current == 0 resets
// the detail log before the snapshot is stored; any event marks the tracker
// active. Detail strings are appended to the rolling detail log.
func (t *Tracker) Apply(s Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s.Stage == StagePrepare && s.Current == 0 {
		t.detail.Clear()
	}
	t.active = true
	t.snap = s
	if s.Detail != "" {
		t.detail.Append(s.Detail)
	}
}

// Finish returns the tracker to idle: snapshot gone, detail log empty.
// Finishing an idle tracker is a no-op yielding the same idle state, so
// terminal events are safe to apply regardless of what came before.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = false
	t.snap = Snapshot{}
	t.detail.Clear()
}

// Active reports whether an operation is being tracked.
func (t *Tracker) Active() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Snapshot returns the live snapshot and whether one exists.
func (t *Tracker) Snapshot() (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap, t.active
}

// DetailLines returns a copy of the rolling detail log, oldest first.
func (t *Tracker) DetailLines() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.detail.Items()
}

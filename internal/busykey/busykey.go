// Package busykey guards at-most-one-in-flight operations per composite key.
//
// Catalog installs and uninstalls are keyed by (content kind, project id).
// A caller must obtain the key with TryBegin before issuing the request and
// release it with End when the response arrives, success or failure. While a
// key is held, a second TryBegin for the same key fails; unrelated keys are
// fully independent.
package busykey

import (
	"errors"
	"sync"
)

// ErrAlreadyInFlight reports that the key already has an outstanding
// operation. Callers treat it as a silent no-op guard, not a user-facing
// error.
var ErrAlreadyInFlight = errors.New("operation already in flight")

// Tag names the kind of operation holding a key, used to drive UI
// affordances such as spinners and disabled buttons.
type Tag string

const (
	TagInstalling   Tag = "installing"
	TagUninstalling Tag = "uninstalling"
)

// Key identifies one (content kind, project) pair. Structural equality on
// the struct avoids the category/identifier boundary collisions a
// concatenated string key would allow.
type Key struct {
	Kind string
	ID   string
}

// Tracker is the busy map. The zero value is ready to use.
type Tracker struct {
	mu   sync.Mutex
	held map[Key]Tag
}

// TryBegin marks key as busy with the given tag. It fails with
// ErrAlreadyInFlight when the key is already held; no second operation may
// begin until the matching End.
func (t *Tracker) TryBegin(key Key, tag Tag) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.held == nil {
		t.held = make(map[Key]Tag)
	}
	if _, busy := t.held[key]; busy {
		return ErrAlreadyInFlight
	}
	t.held[key] = tag
	return nil
}

// End releases key. Releasing an absent key is a no-op, which covers a
// response racing an earlier cleanup.
func (t *Tracker) End(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.held, key)
}

// Tag reports the tag holding key, if any.
func (t *Tracker) Tag(key Key) (Tag, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tag, ok := t.held[key]
	return tag, ok
}

// Snapshot returns a copy of the busy map for rendering.
func (t *Tracker) Snapshot() map[Key]Tag {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.held) == 0 {
		return nil
	}
	dup := make(map[Key]Tag, len(t.held))
	for k, v := range t.held {
		dup[k] = v
	}
	return dup
}

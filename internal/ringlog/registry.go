package ringlog

import (
	"sync"
	"time"
)

// Registry owns the launcher-wide log, the aggregated game log, and one log
// per instance. Instance entries are created lazily on first append and
// survive ClearInstance so a cleared view stays addressable.
//
// All methods are safe for concurrent use; read accessors return copies so
// renderers never alias the internal slices.
type Registry struct {
	mu        sync.RWMutex
	launcher  *Ring[Line]
	game      *Ring[Line]
	instances map[string]*Ring[Line]
}

// NewRegistry returns an empty registry with all channels at LogCapacity.
func NewRegistry() *Registry {
	return &Registry{
		launcher:  NewRing[Line](LogCapacity),
		game:      NewRing[Line](LogCapacity),
		instances: make(map[string]*Ring[Line]),
	}
}

// AppendLauncher appends a line to the launcher-wide log.
func (g *Registry) AppendLauncher(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.launcher.Append(Line{When: time.Now(), Text: text})
}

// AppendGame appends a line to the aggregated game log.
func (g *Registry) AppendGame(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.game.Append(Line{When: time.Now(), Text: text})
}

// AppendInstance appends a line to the given instance's log, creating the
// channel on first use. Empty id or text is a no-op; malformed events from
// the stream must not create phantom channels.
func (g *Registry) AppendInstance(id, text string) {
	if id == "" || text == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	ring, ok := g.instances[id]
	if !ok {
		ring = NewRing[Line](LogCapacity)
		g.instances[id] = ring
	}
	ring.Append(Line{When: time.Now(), Text: text})
}

// ClearInstance resets an instance's log to empty. The channel itself is
// kept so later appends reuse it.
func (g *Registry) ClearInstance(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ring, ok := g.instances[id]; ok {
		ring.Clear()
	}
}

// ClearLauncherAndGame resets both session-wide logs.
func (g *Registry) ClearLauncherAndGame() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.launcher.Clear()
	g.game.Clear()
}

// Launcher returns a copy of the launcher log, oldest first.
func (g *Registry) Launcher() []Line {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.launcher.Items()
}

// Game returns a copy of the aggregated game log, oldest first.
func (g *Registry) Game() []Line {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.game.Items()
}

// Instance returns a copy of the given instance's log. A never-written
// instance yields nil.
func (g *Registry) Instance(id string) []Line {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if ring, ok := g.instances[id]; ok {
		return ring.Items()
	}
	return nil
}

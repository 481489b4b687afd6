// Package bus is the in-process side of the event channel: named topics,
// fire-and-forget publishes, and per-subscription unsubscribe handles.
// The daemon's event feed is pumped into a Bus by the bridge layer.
package bus

import (
	"sort"
	"sync"
)

// Handler consumes one event payload, typically raw JSON. Handlers must
// absorb malformed payloads themselves; the bus does not inspect them.
type Handler func(payload []byte)

// Unsubscribe removes the handler it was returned for. Calling it more than
// once is a no-op.
type Unsubscribe func()

// Bus routes published events to every handler subscribed to the topic.
// Publishes on one topic reach handlers in subscription order and are
// delivered on the publisher's goroutine, so payload ordering within a
// topic follows publish ordering.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	topics map[string]map[int]Handler
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{topics: make(map[string]map[int]Handler)}
}

// Subscribe registers h for topic and returns its unsubscribe handle.
func (b *Bus) Subscribe(topic string, h Handler) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	set, ok := b.topics[topic]
	if !ok {
		set = make(map[int]Handler)
		b.topics[topic] = set
	}
	set[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.topics[topic]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(b.topics, topic)
				}
			}
		})
	}
}

// Publish delivers payload to every current subscriber of topic. Topics with
// no subscribers drop the event.
func (b *Bus) Publish(topic string, payload []byte) {
	b.mu.RLock()
	set := b.topics[topic]
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids) // map iteration order is random; deliver in subscription order
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, set[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(payload)
	}
}

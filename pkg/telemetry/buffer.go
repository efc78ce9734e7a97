package telemetry

import "sync"

// DefaultBufferCapacity bounds the in-memory event window used for
// model retraining.
const DefaultBufferCapacity = 1000

// Buffer is a bounded FIFO window of recent events. Insertion beyond
// capacity evicts the oldest entry. All operations run inside a single
// critical section; snapshots are independent copies so readers never
// hold the lock while doing real work.
type Buffer struct {
	mu     sync.Mutex
	cap    int
	events []Event
}

// NewBuffer creates a buffer with the given capacity. Non-positive
// capacities fall back to DefaultBufferCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &Buffer{
		cap:    capacity,
		events: make([]Event, 0, capacity),
	}
}

// Insert appends an event, evicting the oldest entry once the buffer
// is full.
func (b *Buffer) Insert(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) >= b.cap {
		copy(b.events, b.events[1:])
		b.events = b.events[:len(b.events)-1]
	}
	b.events = append(b.events, ev)
}

// Snapshot returns an independent copy of the current contents in
// insertion order.
func (b *Buffer) Snapshot() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Len reports the current number of buffered events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Capacity reports the fixed capacity of the buffer.
func (b *Buffer) Capacity() int {
	return b.cap
}

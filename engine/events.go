package engine

import "sync"

// Events is a double-buffered event channel stored as a resource
// Events sent during frame N are readable during frames N and N+1, then dropped
type Events[T any] struct {
	mu       sync.Mutex
	previous []T
	current  []T
}

// NewEvents creates an empty event buffer
func NewEvents[T any]() *Events[T] {
	return &Events[T]{}
}

// Send appends an event to the current frame buffer
func (ev *Events[T]) Send(e T) {
	ev.mu.Lock()
	ev.current = append(ev.current, e)
	ev.mu.Unlock()
}

// SendBatch appends several events at once
func (ev *Events[T]) SendBatch(es []T) {
	if len(es) == 0 {
		return
	}
	ev.mu.Lock()
	ev.current = append(ev.current, es...)
	ev.mu.Unlock()
}

// Read returns previous-frame events followed by current-frame events
func (ev *Events[T]) Read() []T {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	out := make([]T, 0, len(ev.previous)+len(ev.current))
	out = append(out, ev.previous...)
	return append(out, ev.current...)
}

// Current returns only events sent this frame
func (ev *Events[T]) Current() []T {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	out := make([]T, len(ev.current))
	copy(out, ev.current)
	return out
}

// Len returns the number of readable events
func (ev *Events[T]) Len() int {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return len(ev.previous) + len(ev.current)
}

// Update rotates the buffers, dropping events older than one frame
func (ev *Events[T]) Update() {
	ev.mu.Lock()
	ev.previous, ev.current = ev.current, ev.previous[:0]
	ev.mu.Unlock()
}

// Clear drops every buffered event
func (ev *Events[T]) Clear() {
	ev.mu.Lock()
	ev.previous = ev.previous[:0]
	ev.current = ev.current[:0]
	ev.mu.Unlock()
}

package engine

import (
	"sync"

	"github.com/lixenwraith/tickforge/core"
)

// Commands queues structural world changes from systems running in parallel
// The queue is applied on the frame goroutine after the current stage finishes, in push order
type Commands struct {
	mu    sync.Mutex
	queue []func(w *World)
}

// Push queues an arbitrary world mutation
func (c *Commands) Push(fn func(w *World)) {
	c.mu.Lock()
	c.queue = append(c.queue, fn)
	c.mu.Unlock()
}

// Spawn queues creation of an entity; build attaches its components
func (c *Commands) Spawn(build func(w *World, e core.Entity)) {
	c.Push(func(w *World) {
		e := w.Spawn()
		if build != nil {
			build(w, e)
		}
	})
}

// Despawn queues removal of an entity
func (c *Commands) Despawn(e core.Entity) {
	c.Push(func(w *World) { w.Despawn(e) })
}

// Len returns the number of pending commands
func (c *Commands) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// apply runs queued commands until the queue stays empty
// Commands pushed while applying run in the same drain
func (c *Commands) apply(w *World) int {
	n := 0
	for {
		c.mu.Lock()
		batch := c.queue
		c.queue = nil
		c.mu.Unlock()

		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn(w)
		}
		n += len(batch)
	}
}

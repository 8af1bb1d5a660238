package replication

import "sync"

// DefaultHistory keeps one second of snapshots at the default tick rate
const DefaultHistory = 60

// SnapshotHistory is a bounded ring of recent snapshots, oldest first
// The hub goroutines never read it; the mutex covers systems reading it in parallel batches
type SnapshotHistory struct {
	mu    sync.RWMutex
	buf   []TickSnapshot
	start int
	n     int
}

// NewSnapshotHistory creates a ring holding capacity snapshots; capacity < 2 selects DefaultHistory
func NewSnapshotHistory(capacity int) *SnapshotHistory {
	if capacity < 2 {
		capacity = DefaultHistory
	}
	return &SnapshotHistory{buf: make([]TickSnapshot, capacity)}
}

// Push appends a snapshot, evicting the oldest when full
func (h *SnapshotHistory) Push(s TickSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = s
		h.n++
		return
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % len(h.buf)
}

// at returns the i-th oldest entry; caller holds the lock
func (h *SnapshotHistory) at(i int) *TickSnapshot {
	return &h.buf[(h.start+i)%len(h.buf)]
}

// Latest returns the newest snapshot
func (h *SnapshotHistory) Latest() (TickSnapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.n == 0 {
		return TickSnapshot{}, false
	}
	return *h.at(h.n - 1), true
}

// At returns the snapshot recorded for tick
func (h *SnapshotHistory) At(tick uint64) (TickSnapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := h.n - 1; i >= 0; i-- {
		if s := h.at(i); s.Tick == tick {
			return *s, true
		}
	}
	return TickSnapshot{}, false
}

// Surrounding returns the consecutive pair with from.Tick <= tick <= to.Tick
func (h *SnapshotHistory) Surrounding(tick uint64) (from, to TickSnapshot, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := 0; i+1 < h.n; i++ {
		a, b := h.at(i), h.at(i+1)
		if a.Tick <= tick && tick <= b.Tick {
			return *a, *b, true
		}
	}
	return TickSnapshot{}, TickSnapshot{}, false
}

// Len returns the number of stored snapshots
func (h *SnapshotHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.n
}

// Capacity returns the ring size
func (h *SnapshotHistory) Capacity() int {
	return len(h.buf)
}

// Clear drops every snapshot
func (h *SnapshotHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.buf)
	h.start, h.n = 0, 0
}

// Package status holds the engine metric registry
// Counters and gauges are plain atomics; systems cache the pointer at build time
// and write every frame without locking
package status

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Float is a float64 gauge stored as raw bits; the zero value reads 0
type Float struct {
	bits atomic.Uint64
}

func (f *Float) Set(v float64) { f.bits.Store(math.Float64bits(v)) }

func (f *Float) Get() float64 { return math.Float64frombits(f.bits.Load()) }

// Add applies delta with a CAS loop and returns the result
func (f *Float) Add(delta float64) float64 {
	for {
		cur := f.bits.Load()
		sum := math.Float64frombits(cur) + delta
		if f.bits.CompareAndSwap(cur, math.Float64bits(sum)) {
			return sum
		}
	}
}

// Registry is the central metrics facade, inserted into the world as a resource
// Lookups allocate on first use and always return the same pointer for a name
type Registry struct {
	mu       sync.Mutex
	counters map[string]*atomic.Int64
	gauges   map[string]*Float
	flags    map[string]*atomic.Bool
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*atomic.Int64),
		gauges:   make(map[string]*Float),
		flags:    make(map[string]*atomic.Bool),
	}
}

func lookup[T any](mu *sync.Mutex, m map[string]*T, name string) *T {
	mu.Lock()
	defer mu.Unlock()
	p, ok := m[name]
	if !ok {
		p = new(T)
		m[name] = p
	}
	return p
}

// Counter returns the named monotonic counter
func (r *Registry) Counter(name string) *atomic.Int64 {
	return lookup(&r.mu, r.counters, name)
}

// Gauge returns the named gauge
func (r *Registry) Gauge(name string) *Float {
	return lookup(&r.mu, r.gauges, name)
}

// Flag returns the named boolean
func (r *Registry) Flag(name string) *atomic.Bool {
	return lookup(&r.mu, r.flags, name)
}

// TotalCount returns total metrics across all kinds
func (r *Registry) TotalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.counters) + len(r.gauges) + len(r.flags)
}

// Sample is a point-in-time reading of one metric
type Sample struct {
	Name  string
	Value float64
}

func collect[T any](m map[string]*T, read func(*T) float64) []Sample {
	out := make([]Sample, 0, len(m))
	for name, p := range m {
		out = append(out, Sample{Name: name, Value: read(p)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Snapshot reads every metric, counters first, then gauges, then flags as 0/1
// Each group is sorted by name
func (r *Registry) Snapshot() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := collect(r.counters, func(c *atomic.Int64) float64 { return float64(c.Load()) })
	out = append(out, collect(r.gauges, (*Float).Get)...)
	return append(out, collect(r.flags, func(b *atomic.Bool) float64 {
		if b.Load() {
			return 1
		}
		return 0
	})...)
}

// String renders the snapshot as space separated name=value pairs for log lines
func (r *Registry) String() string {
	var b strings.Builder
	for i, s := range r.Snapshot() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%g", s.Name, s.Value)
	}
	return b.String()
}

package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Service is a long-running collaborator owned by a plugin: network hubs, audio output, terminal input
// All blocking I/O lives in services; systems only exchange data with them through resources
type Service interface {
	// Name returns the unique identifier for this service
	Name() string

	// Dependencies names services that must init and start first
	Dependencies() []string

	// Init runs after Startup systems, in dependency order
	Init(e *Engine) error

	// Start begins service operation
	Start() error

	// Stop halts service operation and releases resources
	Stop() error
}

// ServiceHub runs service lifecycles in dependency order
type ServiceHub struct {
	mu       sync.RWMutex
	services map[string]Service
	sorted   []string
	started  []string
}

// NewServiceHub creates an empty hub
func NewServiceHub() *ServiceHub {
	return &ServiceHub{services: make(map[string]Service)}
}

// Register adds a service; names must be unique
func (h *ServiceHub) Register(svc Service) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := svc.Name()
	if _, exists := h.services[name]; exists {
		return fmt.Errorf("service already registered: %s", name)
	}
	h.services[name] = svc
	h.sorted = nil
	return nil
}

// Get retrieves a service by name
func (h *ServiceHub) Get(name string) (Service, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	svc, ok := h.services[name]
	return svc, ok
}

// MustGetService retrieves a service and casts it to T
// Panics if service not found or type mismatch
func MustGetService[T any](h *ServiceHub, name string) T {
	svc, ok := h.Get(name)
	if !ok {
		panic(fmt.Sprintf("service not found: %s", name))
	}
	typed, ok := svc.(T)
	if !ok {
		panic(fmt.Sprintf("service %s: type mismatch, got %T", name, svc))
	}
	return typed
}

// InitAll resolves order and calls Init on every service
// On failure, already-initialized services are stopped in reverse order
func (h *ServiceHub) InitAll(e *Engine) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sorted == nil {
		order, err := h.topologicalSort()
		if err != nil {
			return err
		}
		h.sorted = order
	}

	var initialized []string
	for _, name := range h.sorted {
		if err := h.services[name].Init(e); err != nil {
			for i := len(initialized) - 1; i >= 0; i-- {
				h.services[initialized[i]].Stop()
			}
			return fmt.Errorf("service %s init failed: %w", name, err)
		}
		initialized = append(initialized, name)
	}
	return nil
}

// StartAll starts services in order, rolling back on failure
func (h *ServiceHub) StartAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.started = nil
	for _, name := range h.sorted {
		if err := h.services[name].Start(); err != nil {
			for i := len(h.started) - 1; i >= 0; i-- {
				h.services[h.started[i]].Stop()
			}
			h.started = nil
			return fmt.Errorf("service %s start failed: %w", name, err)
		}
		h.started = append(h.started, name)
	}
	return nil
}

// StopAll stops started services in reverse order and collects their errors
func (h *ServiceHub) StopAll() []error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for i := len(h.started) - 1; i >= 0; i-- {
		name := h.started[i]
		if err := h.services[name].Stop(); err != nil {
			errs = append(errs, fmt.Errorf("service %s stop: %w", name, err))
		}
	}
	h.started = nil
	return errs
}

// Order returns the resolved start order, empty before InitAll
func (h *ServiceHub) Order() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.sorted...)
}

// topologicalSort orders services with Kahn's algorithm, ties broken by name
func (h *ServiceHub) topologicalSort() ([]string, error) {
	names := make([]string, 0, len(h.services))
	for name := range h.services {
		names = append(names, name)
	}
	sort.Strings(names)

	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}

	edges := make([][]int, len(names))
	for i, name := range names {
		for _, dep := range h.services[name].Dependencies() {
			d, ok := idx[dep]
			if !ok {
				return nil, fmt.Errorf("service %s depends on unregistered service: %s", name, dep)
			}
			edges[d] = append(edges[d], i)
		}
	}

	order, stuck := kahnSort(len(names), edges)
	if len(stuck) > 0 {
		return nil, ErrCyclicServices
	}

	out := make([]string, len(order))
	for i, k := range order {
		out[i] = names[k]
	}
	return out, nil
}

package engine

import (
	"fmt"
	"runtime/debug"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Schedule holds the systems of one stage and the execution plan solved from their constraints
// Build resolves before/after/set constraints once; Run replays the plan every frame
// Systems in the same batch have no path between them and no conflicting access,
// so a batch runs as a fork/join over the worker pool
type Schedule struct {
	stage   Stage
	systems []*System
	byName  map[string]int
	sets    map[string]struct{}
	batches [][]int
	built   bool
	workers int
}

// NewSchedule creates an empty schedule; workers <= 1 runs every batch inline
func NewSchedule(stage Stage, workers int) *Schedule {
	return &Schedule{
		stage:   stage,
		byName:  make(map[string]int),
		sets:    make(map[string]struct{}),
		workers: workers,
	}
}

// Stage returns the stage this schedule runs in
func (s *Schedule) Stage() Stage {
	return s.stage
}

// Add appends systems; names must be unique within the schedule
// Adding invalidates the solved plan
func (s *Schedule) Add(systems ...*System) error {
	for _, sys := range systems {
		if sys == nil || sys.run == nil {
			return fmt.Errorf("stage %s: system %q has no body", s.stage, sysName(sys))
		}
		if _, dup := s.byName[sys.name]; dup {
			return fmt.Errorf("%w: %q in stage %s", ErrDuplicateSystem, sys.name, s.stage)
		}
		s.byName[sys.name] = len(s.systems)
		s.systems = append(s.systems, sys)
	}
	s.built = false
	return nil
}

// ConfigureSet declares set names so constraints may reference them even with no members
func (s *Schedule) ConfigureSet(names ...string) {
	for _, n := range names {
		s.sets[n] = struct{}{}
	}
	s.built = false
}

// SetWorkers changes the worker pool bound
func (s *Schedule) SetWorkers(n int) {
	s.workers = n
}

// Len returns the number of systems
func (s *Schedule) Len() int {
	return len(s.systems)
}

// Built reports whether the plan is current
func (s *Schedule) Built() bool {
	return s.built
}

// Build solves ordering constraints and validates declared access
// Fails on unknown references, ordering cycles and conflicting access between unordered systems
func (s *Schedule) Build() error {
	n := len(s.systems)

	members := make(map[string][]int)
	for i, sys := range s.systems {
		for _, set := range sys.sets {
			members[set] = append(members[set], i)
		}
	}
	resolve := func(owner *System, ref string) ([]int, error) {
		if i, ok := s.byName[ref]; ok {
			return []int{i}, nil
		}
		if m, ok := members[ref]; ok {
			return m, nil
		}
		if _, ok := s.sets[ref]; ok {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %q referenced by %q in stage %s", ErrUnknownSystem, ref, owner.name, s.stage)
	}

	edges := make([][]int, n)
	seen := make(map[[2]int]struct{})
	addEdge := func(from, to int) {
		if from == to {
			return
		}
		key := [2]int{from, to}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		edges[from] = append(edges[from], to)
	}

	for i, sys := range s.systems {
		for _, ref := range sys.before {
			targets, err := resolve(sys, ref)
			if err != nil {
				return err
			}
			for _, t := range targets {
				addEdge(i, t)
			}
		}
		for _, ref := range sys.after {
			targets, err := resolve(sys, ref)
			if err != nil {
				return err
			}
			for _, t := range targets {
				addEdge(t, i)
			}
		}
	}

	order, stuck := kahnSort(n, edges)
	if len(stuck) > 0 {
		return fmt.Errorf("%w in stage %s between: %s", ErrCyclicOrdering, s.stage, s.names(stuck))
	}

	// Transitive reachability, filled in reverse topological order
	reach := make([]bitset, n)
	for k := n - 1; k >= 0; k-- {
		i := order[k]
		reach[i] = newBitset(n)
		for _, to := range edges[i] {
			reach[i].set(to)
			reach[i].union(reach[to])
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			t, conflict := s.systems[i].access.conflictsWith(&s.systems[j].access)
			if !conflict || reach[i].has(j) || reach[j].has(i) {
				continue
			}
			what := "exclusive world access"
			if t != nil {
				what = t.String()
			}
			return fmt.Errorf("%w in stage %s: %q and %q both touch %s; order them with Before/After",
				ErrAccessConflict, s.stage, s.systems[i].name, s.systems[j].name, what)
		}
	}

	level := make([]int, n)
	depth := 0
	for _, i := range order {
		for _, to := range edges[i] {
			if level[i]+1 > level[to] {
				level[to] = level[i] + 1
			}
		}
		if level[i]+1 > depth {
			depth = level[i] + 1
		}
	}
	batches := make([][]int, depth)
	for i := 0; i < n; i++ {
		batches[level[i]] = append(batches[level[i]], i)
	}

	s.batches = batches
	s.built = true
	return nil
}

// Batches returns system names grouped by parallel batch, in execution order
func (s *Schedule) Batches() [][]string {
	out := make([][]string, len(s.batches))
	for b, batch := range s.batches {
		for _, i := range batch {
			out[b] = append(out[b], s.systems[i].name)
		}
	}
	return out
}

// Order returns system names in a valid sequential execution order
func (s *Schedule) Order() []string {
	var out []string
	for _, b := range s.Batches() {
		out = append(out, b...)
	}
	return out
}

// Run executes the plan once and applies deferred commands, returning how many systems ran
// An unbuilt schedule is built first; a build failure at this point panics
func (s *Schedule) Run(w *World) int {
	if !s.built {
		if err := s.Build(); err != nil {
			panic(err)
		}
	}

	ran := 0
	runnable := make([]*System, 0, 8)
	for _, batch := range s.batches {
		runnable = runnable[:0]
		for _, i := range batch {
			if sys := s.systems[i]; sys.shouldRun(w) {
				runnable = append(runnable, sys)
			}
		}

		switch {
		case len(runnable) == 0:
		case s.workers <= 1 || len(runnable) == 1:
			for _, sys := range runnable {
				sys.run(w)
			}
		default:
			s.runParallel(w, runnable)
		}
		ran += len(runnable)
	}

	w.ApplyCommands()
	return ran
}

// runParallel forks one goroutine per system bounded by the worker limit and joins before returning
// A worker panic is re-raised on the calling goroutine as *SystemPanic
func (s *Schedule) runParallel(w *World, systems []*System) {
	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, sys := range systems {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &SystemPanic{System: sys.name, Value: r, Stack: debug.Stack()}
				}
			}()
			sys.run(w)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}
}

func (s *Schedule) names(idxs []int) string {
	parts := make([]string, len(idxs))
	for k, i := range idxs {
		parts[k] = s.systems[i].name
	}
	return strings.Join(parts, ", ")
}

func sysName(sys *System) string {
	if sys == nil {
		return "<nil>"
	}
	return sys.name
}

type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int) {
	b[i/64] |= 1 << (uint(i) % 64)
}

func (b bitset) has(i int) bool {
	return b[i/64]&(1<<(uint(i)%64)) != 0
}

func (b bitset) union(o bitset) {
	for k := range b {
		b[k] |= o[k]
	}
}

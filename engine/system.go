package engine

// SystemFunc is the body of a system; it receives the world by reference
type SystemFunc func(w *World)

// Condition gates a system per run; it must only read
type Condition func(w *World) bool

// System is a named unit of work with declared data access and ordering constraints
type System struct {
	name       string
	run        SystemFunc
	access     Access
	before     []string
	after      []string
	sets       []string
	conditions []Condition
}

// NewSystem creates a system descriptor; configure it with the chained setters
func NewSystem(name string, run SystemFunc) *System {
	return &System{name: name, run: run}
}

// Name returns the unique system name within its stage
func (s *System) Name() string {
	return s.name
}

// Access declares component and resource access
func (s *System) Access(items ...AccessItem) *System {
	s.access.add(items...)
	return s
}

// Exclusive marks the system as needing the whole world, e.g. to spawn or despawn directly
func (s *System) Exclusive() *System {
	s.access.exclusive = true
	return s
}

// Before orders the system ahead of the named systems or sets
func (s *System) Before(names ...string) *System {
	s.before = append(s.before, names...)
	return s
}

// After orders the system behind the named systems or sets
func (s *System) After(names ...string) *System {
	s.after = append(s.after, names...)
	return s
}

// InSet adds the system to named sets that others can order against
func (s *System) InSet(sets ...string) *System {
	s.sets = append(s.sets, sets...)
	return s
}

// RunIf adds a run condition; every condition must hold for the system to run
func (s *System) RunIf(c Condition) *System {
	s.conditions = append(s.conditions, c)
	return s
}

// Declared returns the declared access
func (s *System) Declared() *Access {
	return &s.access
}

func (s *System) shouldRun(w *World) bool {
	for _, c := range s.conditions {
		if !c(w) {
			return false
		}
	}
	return true
}

// Chain orders systems one after another in argument order
func Chain(systems ...*System) []*System {
	for i := 1; i < len(systems); i++ {
		systems[i].After(systems[i-1].name)
	}
	return systems
}

// ResourceExists is a run condition true while a resource of type T is present
func ResourceExists[T any]() Condition {
	return func(w *World) bool {
		return HasResource[T](w.Resources)
	}
}

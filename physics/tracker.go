package physics

import (
	"slices"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/vmath"
)

// PairState is the lifecycle of one overlapping pair across detection passes
type PairState uint8

const (
	PairNone PairState = iota
	PairEntered
	PairStaying
	PairExited
)

func (s PairState) String() string {
	switch s {
	case PairEntered:
		return "entered"
	case PairStaying:
		return "staying"
	case PairExited:
		return "exited"
	}
	return "none"
}

// CollisionKind distinguishes solid contact start from end
type CollisionKind uint8

const (
	CollisionStarted CollisionKind = iota
	CollisionEnded
)

// CollisionEvent reports a solid pair starting or ending contact; A is the lower handle
type CollisionEvent struct {
	Kind CollisionKind
	A, B core.Entity
}

// Involves reports whether e is one side of the pair
func (ev CollisionEvent) Involves(e core.Entity) bool {
	return ev.A == e || ev.B == e
}

// TriggerKind is the phase reported for a sensor overlap
type TriggerKind uint8

const (
	TriggerEnter TriggerKind = iota
	TriggerStay
	TriggerExit
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerEnter:
		return "enter"
	case TriggerStay:
		return "stay"
	}
	return "exit"
}

// TriggerEvent reports a trigger overlap phase
// Trigger is the sensor side, Other the entity inside it; when both are sensors Trigger is the lower handle
type TriggerEvent struct {
	Kind    TriggerKind
	Trigger core.Entity
	Other   core.Entity
	Zone    TriggerZone
}

type pairKey struct {
	a, b core.Entity
}

func makePairKey(a, b core.Entity) pairKey {
	if b.Less(a) {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

type pairEntry struct {
	state   PairState
	seen    bool
	trigger bool
	sensor  core.Entity
	zone    TriggerZone
	contact Contact
}

// ContactInfo is one live solid contact as seen from the entity holding it
type ContactInfo struct {
	Other   core.Entity
	Normal  vmath.Vec3
	Depth   float64
	Trigger bool
}

// CollisionTracker turns per-pass overlap registrations into Enter/Stay/Exit transitions
// Detection registers every overlapping pair, then Process advances each pair one step:
// None -> Entered -> Staying -> Exited -> removed, re-entering from Exited when overlap returns
type CollisionTracker struct {
	pairs      map[pairKey]*pairEntry
	manifolds  []Manifold
	collisions []CollisionEvent
	triggers   []TriggerEvent
}

// Manifold is a solid contact registered during the current pass; A is the lower handle
type Manifold struct {
	A, B    core.Entity
	Contact Contact
}

func NewCollisionTracker() *CollisionTracker {
	return &CollisionTracker{pairs: make(map[pairKey]*pairEntry)}
}

// Register records a solid overlap for this pass
// The contact normal is stored relative to the lower handle
func (t *CollisionTracker) Register(a, b core.Entity, c Contact) {
	k := makePairKey(a, b)
	if k.a != a {
		c = c.flipped()
	}
	p := t.entry(k)
	p.seen, p.trigger, p.contact = true, false, c
	t.manifolds = append(t.manifolds, Manifold{A: k.a, B: k.b, Contact: c})
}

// BeginPass drops the previous pass's manifolds; call before registering overlaps
func (t *CollisionTracker) BeginPass() {
	t.manifolds = t.manifolds[:0]
}

// Manifolds returns solid contacts registered since BeginPass, in registration order
func (t *CollisionTracker) Manifolds() []Manifold {
	return t.manifolds
}

// RegisterTrigger records a sensor overlap; sensor is the trigger side
func (t *CollisionTracker) RegisterTrigger(sensor, other core.Entity, zone TriggerZone) {
	p := t.entry(makePairKey(sensor, other))
	p.seen, p.trigger, p.sensor, p.zone = true, true, sensor, zone
}

func (t *CollisionTracker) entry(k pairKey) *pairEntry {
	p, ok := t.pairs[k]
	if !ok {
		p = &pairEntry{}
		t.pairs[k] = p
	}
	return p
}

// Process advances every pair and rebuilds the event lists, ordered by pair
func (t *CollisionTracker) Process() {
	t.collisions = t.collisions[:0]
	t.triggers = t.triggers[:0]

	keys := make([]pairKey, 0, len(t.pairs))
	for k := range t.pairs {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(x, y pairKey) int {
		if c := compareEntity(x.a, y.a); c != 0 {
			return c
		}
		return compareEntity(x.b, y.b)
	})

	for _, k := range keys {
		p := t.pairs[k]
		switch {
		case p.seen && (p.state == PairNone || p.state == PairExited):
			p.state = PairEntered
			t.emit(k, p, TriggerEnter, CollisionStarted)
		case p.seen:
			p.state = PairStaying
			if p.trigger {
				t.emit(k, p, TriggerStay, CollisionStarted)
			}
		case p.state == PairEntered || p.state == PairStaying:
			p.state = PairExited
			t.emit(k, p, TriggerExit, CollisionEnded)
		default:
			delete(t.pairs, k)
			continue
		}
		p.seen = false
	}
}

func (t *CollisionTracker) emit(k pairKey, p *pairEntry, tk TriggerKind, ck CollisionKind) {
	if p.trigger {
		other := k.b
		if p.sensor == k.b {
			other = k.a
		}
		t.triggers = append(t.triggers, TriggerEvent{Kind: tk, Trigger: p.sensor, Other: other, Zone: p.zone})
		return
	}
	t.collisions = append(t.collisions, CollisionEvent{Kind: ck, A: k.a, B: k.b})
}

// CollisionEvents returns solid contact transitions from the last Process
func (t *CollisionTracker) CollisionEvents() []CollisionEvent {
	return t.collisions
}

// TriggerEvents returns sensor transitions from the last Process
func (t *CollisionTracker) TriggerEvents() []TriggerEvent {
	return t.triggers
}

// State returns the lifecycle state of the pair
func (t *CollisionTracker) State(a, b core.Entity) PairState {
	if p, ok := t.pairs[makePairKey(a, b)]; ok {
		return p.state
	}
	return PairNone
}

// Contacts returns every live (entered or staying) pair involving e, sorted by the other handle
// Normals point away from e
func (t *CollisionTracker) Contacts(e core.Entity) []ContactInfo {
	var out []ContactInfo
	for k, p := range t.pairs {
		if p.state != PairEntered && p.state != PairStaying {
			continue
		}
		info := ContactInfo{Depth: p.contact.Depth, Normal: p.contact.Normal, Trigger: p.trigger}
		switch e {
		case k.a:
			info.Other = k.b
		case k.b:
			info.Other = k.a
			info.Normal = info.Normal.Mul(-1)
		default:
			continue
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(x, y ContactInfo) int { return compareEntity(x.Other, y.Other) })
	return out
}

// ActivePairs returns the number of entered or staying pairs
func (t *CollisionTracker) ActivePairs() int {
	n := 0
	for _, p := range t.pairs {
		if p.state == PairEntered || p.state == PairStaying {
			n++
		}
	}
	return n
}

// Clear forgets every pair without emitting exits
func (t *CollisionTracker) Clear() {
	clear(t.pairs)
	t.manifolds = t.manifolds[:0]
	t.collisions = t.collisions[:0]
	t.triggers = t.triggers[:0]
}

// CollisionState lists an entity's current contacts; rebuilt after every detection pass
type CollisionState struct {
	Contacts []ContactInfo
}

// IsCollidingWith reports a live contact with other
func (s *CollisionState) IsCollidingWith(other core.Entity) bool {
	for _, c := range s.Contacts {
		if c.Other == other {
			return true
		}
	}
	return false
}

// Info returns the contact with other
func (s *CollisionState) Info(other core.Entity) (ContactInfo, bool) {
	for _, c := range s.Contacts {
		if c.Other == other {
			return c, true
		}
	}
	return ContactInfo{}, false
}

package core

import "strconv"

// Entity is a generation-checked handle into the world entity arena
// Low 32 bits hold the slot index, high 32 bits the slot generation
// Generations start at 1, so the zero value never names a live entity
type Entity uint64

// NilEntity is the zero handle
const NilEntity Entity = 0

// NewEntity packs a slot index and generation into a handle
func NewEntity(index, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

// Index returns the arena slot of the handle
func (e Entity) Index() uint32 {
	return uint32(e)
}

// Generation returns the slot generation the handle was issued for
func (e Entity) Generation() uint32 {
	return uint32(e >> 32)
}

// IsNil reports whether e is the zero handle
func (e Entity) IsNil() bool {
	return e == NilEntity
}

func (e Entity) String() string {
	if e == NilEntity {
		return "entity(nil)"
	}
	return strconv.FormatUint(uint64(e.Index()), 10) + "v" + strconv.FormatUint(uint64(e.Generation()), 10)
}

// Less orders handles by slot index then generation, used for deterministic pair keys
func (e Entity) Less(o Entity) bool {
	if e.Index() != o.Index() {
		return e.Index() < o.Index()
	}
	return e.Generation() < o.Generation()
}

package engine

import (
	"reflect"
	"sort"
)

// AccessMode is the borrow kind a system declares for a component or resource type
type AccessMode uint8

const (
	AccessRead AccessMode = iota
	AccessWrite
)

// AccessItem declares access to one type
type AccessItem struct {
	Type reflect.Type
	Mode AccessMode
}

// Read declares shared access to T (a component type or a resource type such as *FixedTime)
func Read[T any]() AccessItem {
	return AccessItem{Type: reflect.TypeFor[T](), Mode: AccessRead}
}

// Write declares exclusive access to T
func Write[T any]() AccessItem {
	return AccessItem{Type: reflect.TypeFor[T](), Mode: AccessWrite}
}

// Access is the declared data footprint of a system
type Access struct {
	reads     map[reflect.Type]struct{}
	writes    map[reflect.Type]struct{}
	exclusive bool
}

func (a *Access) add(items ...AccessItem) {
	for _, it := range items {
		switch it.Mode {
		case AccessWrite:
			if a.writes == nil {
				a.writes = make(map[reflect.Type]struct{})
			}
			a.writes[it.Type] = struct{}{}
			delete(a.reads, it.Type)
		default:
			if _, w := a.writes[it.Type]; w {
				continue
			}
			if a.reads == nil {
				a.reads = make(map[reflect.Type]struct{})
			}
			a.reads[it.Type] = struct{}{}
		}
	}
}

// Reads reports whether the access includes shared or exclusive access to t
func (a *Access) Reads(t reflect.Type) bool {
	if a.exclusive {
		return true
	}
	_, r := a.reads[t]
	_, w := a.writes[t]
	return r || w
}

// Writes reports whether the access includes exclusive access to t
func (a *Access) Writes(t reflect.Type) bool {
	if a.exclusive {
		return true
	}
	_, w := a.writes[t]
	return w
}

// IsExclusive reports whether the system takes the whole world
func (a *Access) IsExclusive() bool {
	return a.exclusive
}

// conflictsWith returns the first type both accesses touch with at least one writer
// Exclusive access conflicts with everything and reports a nil type
func (a *Access) conflictsWith(b *Access) (reflect.Type, bool) {
	if a.exclusive || b.exclusive {
		return nil, true
	}
	var hits []reflect.Type
	for t := range a.writes {
		if b.Reads(t) {
			hits = append(hits, t)
		}
	}
	for t := range b.writes {
		if a.Reads(t) {
			hits = append(hits, t)
		}
	}
	if len(hits) == 0 {
		return nil, false
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].String() < hits[j].String() })
	return hits[0], true
}

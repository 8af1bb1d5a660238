package transform

import (
	"fmt"
	"slices"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
)

// Parent is a weak back-reference to the entity this one is attached to
type Parent struct {
	Entity core.Entity
}

// Children is the ordered set of entities attached to this one
// Edit it through SetParent/RemoveParent so both sides of the edge stay in sync
type Children struct {
	list []core.Entity
}

// Add appends e unless already present
func (c *Children) Add(e core.Entity) bool {
	if c.Contains(e) {
		return false
	}
	c.list = append(c.list, e)
	return true
}

// Remove deletes e preserving order of the rest
func (c *Children) Remove(e core.Entity) bool {
	i := slices.Index(c.list, e)
	if i < 0 {
		return false
	}
	c.list = slices.Delete(c.list, i, i+1)
	return true
}

// Contains reports whether e is a child
func (c *Children) Contains(e core.Entity) bool {
	return slices.Contains(c.list, e)
}

// Len returns the child count
func (c *Children) Len() int {
	return len(c.list)
}

// IsEmpty reports whether there are no children
func (c *Children) IsEmpty() bool {
	return len(c.list) == 0
}

// Entities returns a copy of the child list
func (c *Children) Entities() []core.Entity {
	return slices.Clone(c.list)
}

// SetParent attaches child under parent, detaching it from any previous parent
// This is the only place hierarchy edges are created; it rejects dead handles,
// self-parenting and any edge that would close a cycle
func SetParent(w *engine.World, child, parent core.Entity) error {
	if !w.Alive(child) {
		return fmt.Errorf("%w: child %v", ErrDeadEntity, child)
	}
	if !w.Alive(parent) {
		return fmt.Errorf("%w: parent %v", ErrDeadEntity, parent)
	}
	if child == parent {
		return fmt.Errorf("%w: %v", ErrSelfParent, child)
	}
	for _, a := range Ancestors(w, parent) {
		if a == child {
			return fmt.Errorf("%w: %v is an ancestor of %v", ErrHierarchyCycle, child, parent)
		}
	}

	if old, ok := engine.Get[Parent](w, child); ok {
		if old.Entity == parent {
			return nil
		}
		detach(w, old.Entity, child)
	}

	engine.Insert(w, child, Parent{Entity: parent})
	children := engine.StoreOf[Children](w)
	if c := children.Ptr(parent); c != nil {
		c.Add(child)
	} else {
		children.Set(parent, Children{list: []core.Entity{child}})
	}
	return nil
}

// RemoveParent detaches child, making it a root; reports whether it had a parent
func RemoveParent(w *engine.World, child core.Entity) bool {
	p, ok := engine.Get[Parent](w, child)
	if !ok {
		return false
	}
	detach(w, p.Entity, child)
	engine.Remove[Parent](w, child)
	return true
}

// detach removes child from parent's Children, dropping the component when it empties
func detach(w *engine.World, parent, child core.Entity) {
	children := engine.StoreOf[Children](w)
	c := children.Ptr(parent)
	if c == nil {
		return
	}
	c.Remove(child)
	if c.IsEmpty() {
		children.Remove(parent)
	}
}

// Ancestors walks Parent links from e upward, nearest first
// The walk stops at a dead parent or after visiting every live entity
func Ancestors(w *engine.World, e core.Entity) []core.Entity {
	var out []core.Entity
	parents := engine.StoreOf[Parent](w)
	limit := w.EntityCount()
	for cur := e; len(out) <= limit; {
		p, ok := parents.Get(cur)
		if !ok || !w.Alive(p.Entity) {
			break
		}
		out = append(out, p.Entity)
		cur = p.Entity
	}
	return out
}

// Root returns the topmost live ancestor of e, or e itself
func Root(w *engine.World, e core.Entity) core.Entity {
	anc := Ancestors(w, e)
	if len(anc) == 0 {
		return e
	}
	return anc[len(anc)-1]
}

// Descendants returns every entity below e in depth-first pre-order
func Descendants(w *engine.World, e core.Entity) []core.Entity {
	children := engine.StoreOf[Children](w)
	var out []core.Entity
	stack := []core.Entity{e}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c := children.Ptr(cur)
		if c == nil {
			continue
		}
		for i := len(c.list) - 1; i >= 0; i-- {
			child := c.list[i]
			if w.Alive(child) {
				out = append(out, child)
				stack = append(stack, child)
			}
		}
	}
	return out
}

// DespawnRecursive despawns e and everything below it, returning how many entities were removed
func DespawnRecursive(w *engine.World, e core.Entity) int {
	if !w.Alive(e) {
		return 0
	}
	desc := Descendants(w, e)
	n := 0
	for i := len(desc) - 1; i >= 0; i-- {
		if w.Despawn(desc[i]) {
			n++
		}
	}
	if w.Despawn(e) {
		n++
	}
	return n
}

// severEdges is the despawn hook: the parent forgets the entity and its children become roots
// Promoted children keep their last world pose as their new local pose
func severEdges(w *engine.World, e core.Entity) {
	if p, ok := engine.Get[Parent](w, e); ok {
		detach(w, p.Entity, e)
	}
	parents := engine.StoreOf[Parent](w)
	c, ok := engine.Get[Children](w, e)
	if !ok {
		return
	}
	for _, child := range c.list {
		if p, ok := parents.Get(child); !ok || p.Entity != e {
			continue
		}
		parents.Remove(child)
		if g, ok := engine.Get[GlobalTransform](w, child); ok && engine.Has[Transform](w, child) {
			engine.Insert(w, child, FromPRS(g.Position(), g.Rotation(), g.Scale()))
		}
	}
}

// InstallHooks registers the despawn hook that keeps hierarchy edges consistent
// The plugin calls it; worlds used without the plugin call it directly
func InstallHooks(w *engine.World) {
	w.OnDespawn(severEdges)
}

// ValidateHierarchy checks the Parent/Children edge invariants and reports every violation
func ValidateHierarchy(w *engine.World) []error {
	var errs []error
	parents := engine.StoreOf[Parent](w)
	children := engine.StoreOf[Children](w)

	for _, e := range w.Query().With(parents).Execute() {
		p, _ := parents.Get(e)
		if !w.Alive(p.Entity) {
			errs = append(errs, fmt.Errorf("%v has dangling parent %v", e, p.Entity))
			continue
		}
		c := children.Ptr(p.Entity)
		if c == nil || !c.Contains(e) {
			errs = append(errs, fmt.Errorf("%v missing from children of %v", e, p.Entity))
		}
		if slices.Contains(Ancestors(w, e), e) {
			errs = append(errs, fmt.Errorf("%v is its own ancestor", e))
		}
	}
	for _, e := range w.Query().With(children).Execute() {
		c := children.Ptr(e)
		for _, child := range c.list {
			p, ok := parents.Get(child)
			if !ok || p.Entity != e {
				errs = append(errs, fmt.Errorf("%v lists %v as child without matching parent", e, child))
			}
		}
	}
	return errs
}

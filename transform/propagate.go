package transform

import (
	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/vmath"
)

// SyncSimpleTransforms is the fast path: roots with no children copy their local matrix straight into GlobalTransform
func SyncSimpleTransforms(w *engine.World) int {
	locals := engine.StoreOf[Transform](w)
	globals := engine.StoreOf[GlobalTransform](w)
	n := 0
	for _, e := range w.Query().
		With(locals, globals).
		Without(engine.StoreOf[Parent](w), engine.StoreOf[Children](w)).
		Execute() {
		*globals.Ptr(e) = globalFrom(locals.Ptr(e).Matrix())
		n++
	}
	return n
}

type propagationFrame struct {
	entity core.Entity
	parent vmath.Mat4
}

// PropagateTransforms walks every root that has children, depth first
// A child is computed only after its parent's matrix for this frame is final
// Children whose Parent does not point back at the visiting node, or that are dead, are skipped
// The walk uses an explicit stack, so hierarchy depth is bounded only by memory
func PropagateTransforms(w *engine.World) int {
	locals := engine.StoreOf[Transform](w)
	globals := engine.StoreOf[GlobalTransform](w)
	parents := engine.StoreOf[Parent](w)
	children := engine.StoreOf[Children](w)

	roots := w.Query().With(locals, globals, children).Without(parents).Execute()
	visited := 0
	stack := make([]propagationFrame, 0, 64)
	for _, root := range roots {
		m := locals.Ptr(root).Matrix()
		*globals.Ptr(root) = globalFrom(m)
		visited++
		stack = pushChildren(w, stack[:0], root, m, children, parents)
		visited += walk(w, stack, locals, globals, parents, children)
	}
	return visited
}

// PropagateFrom recomputes e and its subtree on demand, using the parent's current GlobalTransform
// Systems that move entities after propagation call this to keep world poses final
func PropagateFrom(w *engine.World, e core.Entity) int {
	locals := engine.StoreOf[Transform](w)
	globals := engine.StoreOf[GlobalTransform](w)
	parents := engine.StoreOf[Parent](w)
	children := engine.StoreOf[Children](w)

	if !locals.Has(e) || !globals.Has(e) {
		return 0
	}
	base := vmath.Mat4{}
	hasBase := false
	if p, ok := parents.Get(e); ok {
		if g := globals.Ptr(p.Entity); g != nil && w.Alive(p.Entity) {
			base, hasBase = g.matrix, true
		}
	}

	stack := []propagationFrame{{entity: e, parent: base}}
	if !hasBase {
		m := locals.Ptr(e).Matrix()
		*globals.Ptr(e) = globalFrom(m)
		stack = pushChildren(w, stack[:0], e, m, children, parents)
		return 1 + walk(w, stack, locals, globals, parents, children)
	}
	return walk(w, stack, locals, globals, parents, children)
}

func walk(
	w *engine.World,
	stack []propagationFrame,
	locals *engine.Store[Transform],
	globals *engine.Store[GlobalTransform],
	parents *engine.Store[Parent],
	children *engine.Store[Children],
) int {
	visited := 0
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		local := locals.Ptr(top.entity)
		global := globals.Ptr(top.entity)
		if local == nil || global == nil {
			continue
		}
		m := top.parent.Mul4(local.Matrix())
		*global = globalFrom(m)
		visited++
		stack = pushChildren(w, stack, top.entity, m, children, parents)
	}
	return visited
}

// pushChildren pushes children in reverse so they pop in list order
func pushChildren(
	w *engine.World,
	stack []propagationFrame,
	e core.Entity,
	m vmath.Mat4,
	children *engine.Store[Children],
	parents *engine.Store[Parent],
) []propagationFrame {
	c := children.Ptr(e)
	if c == nil {
		return stack
	}
	for i := len(c.list) - 1; i >= 0; i-- {
		child := c.list[i]
		if !w.Alive(child) {
			continue
		}
		if p, ok := parents.Get(child); !ok || p.Entity != e {
			continue
		}
		stack = append(stack, propagationFrame{entity: child, parent: m})
	}
	return stack
}

// CountOrphans returns entities whose Parent refers to a dead entity
// With the despawn hook installed this stays zero; such entities are never visited by propagation
func CountOrphans(w *engine.World) int {
	parents := engine.StoreOf[Parent](w)
	n := 0
	parents.Each(func(e core.Entity, p *Parent) {
		if !w.Alive(p.Entity) {
			n++
		}
	})
	return n
}

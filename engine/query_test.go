package engine

import (
	"testing"

	"github.com/lixenwraith/tickforge/core"
)

func TestQueryWithWithout(t *testing.T) {
	w := NewWorld()
	var moving core.Entity
	for i := 0; i < 5; i++ {
		e := w.Spawn()
		Insert(w, e, testPos{X: float64(i)})
		switch i {
		case 1:
			Insert(w, e, testVel{X: 1})
			moving = e
		case 3:
			Insert(w, e, testVel{X: 1})
			Insert(w, e, testTag{})
		}
	}

	pos, vel, tag := StoreOf[testPos](w), StoreOf[testVel](w), StoreOf[testTag](w)

	got := w.Query().With(pos, vel).Execute()
	if len(got) != 2 {
		t.Fatalf("Expected 2 entities with pos+vel, got %d", len(got))
	}

	got = w.Query().With(pos, vel).Without(tag).Execute()
	if len(got) != 1 || got[0] != moving {
		t.Errorf("Expected only %v, got %v", moving, got)
	}

	if len(w.Query().Execute()) != 0 {
		t.Error("Expected empty With to match nothing")
	}
}

func TestQueryOrderedByHandle(t *testing.T) {
	w := NewWorld()
	es := make([]core.Entity, 6)
	for i := range es {
		es[i] = w.Spawn()
	}
	// Insert in reverse so dense order differs from handle order
	for i := len(es) - 1; i >= 0; i-- {
		Insert(w, es[i], testPos{})
	}
	got := w.Query().With(StoreOf[testPos](w)).Execute()
	for i := range got {
		if got[i] != es[i] {
			t.Fatalf("Expected handle order, got %v", got)
		}
	}
}

func TestQueryExecuteCachedAndLocked(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()
	Insert(w, e, testPos{})
	q := w.Query().With(StoreOf[testPos](w))
	first := q.Execute()
	second := q.Execute()
	if len(first) != 1 || len(second) != 1 {
		t.Fatal("Expected cached result")
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected panic when modifying executed query")
		}
	}()
	q.With(StoreOf[testVel](w))
}

func TestEachDisjointMutable(t *testing.T) {
	w := NewWorld()
	for i := 0; i < 3; i++ {
		e := w.Spawn()
		Insert(w, e, testPos{X: float64(i)})
		Insert(w, e, testVel{X: 10})
	}
	skip := w.Spawn()
	Insert(w, skip, testPos{})
	Insert(w, skip, testVel{X: 10})
	Insert(w, skip, testTag{})

	Each2(w, func(e core.Entity, p *testPos, v *testVel) {
		p.X += v.X
		v.X = 0
	}, StoreOf[testTag](w))

	count := 0
	Each1(w, func(e core.Entity, p *testPos) {
		if e == skip {
			if p.X != 0 {
				t.Errorf("Expected excluded entity untouched, got %f", p.X)
			}
			return
		}
		if p.X < 10 {
			t.Errorf("Expected position advanced, got %f", p.X)
		}
		count++
	})
	if count != 3 {
		t.Errorf("Expected 3 updated entities, got %d", count)
	}
}

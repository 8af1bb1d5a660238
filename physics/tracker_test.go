package physics

import (
	"testing"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/vmath"
)

func TestTriggerStateMachine(t *testing.T) {
	tr := NewCollisionTracker()
	zone, player := core.NewEntity(5, 1), core.NewEntity(2, 1)

	steps := []struct {
		overlap bool
		state   PairState
		events  []TriggerKind
	}{
		{true, PairEntered, []TriggerKind{TriggerEnter}},
		{true, PairStaying, []TriggerKind{TriggerStay}},
		{true, PairStaying, []TriggerKind{TriggerStay}},
		{false, PairExited, []TriggerKind{TriggerExit}},
		{false, PairNone, nil},
		{true, PairEntered, []TriggerKind{TriggerEnter}},
	}
	for i, s := range steps {
		tr.BeginPass()
		if s.overlap {
			tr.RegisterTrigger(zone, player, NewTriggerZone("gate").WithData(7))
		}
		tr.Process()

		if got := tr.State(player, zone); got != s.state {
			t.Errorf("step %d: Expected state %v, got %v", i, s.state, got)
		}
		evs := tr.TriggerEvents()
		if len(evs) != len(s.events) {
			t.Fatalf("step %d: Expected %d events, got %v", i, len(s.events), evs)
		}
		for j, ev := range evs {
			if ev.Kind != s.events[j] {
				t.Errorf("step %d: Expected %v, got %v", i, s.events[j], ev.Kind)
			}
			if ev.Trigger != zone || ev.Other != player {
				t.Errorf("step %d: Expected trigger %v other %v, got %+v", i, zone, player, ev)
			}
			if ev.Zone.Name != "gate" || !ev.Zone.HasData || ev.Zone.Data != 7 {
				t.Errorf("step %d: Expected zone payload, got %+v", i, ev.Zone)
			}
		}
		if len(tr.CollisionEvents()) != 0 {
			t.Errorf("step %d: Expected no solid events from a trigger", i)
		}
	}
}

func TestCollisionStartedEnded(t *testing.T) {
	tr := NewCollisionTracker()
	a, b := core.NewEntity(1, 1), core.NewEntity(2, 1)
	c := Contact{Normal: vmath.UnitX, Depth: 0.1}

	tr.BeginPass()
	tr.Register(b, a, c)
	tr.Process()
	evs := tr.CollisionEvents()
	if len(evs) != 1 || evs[0].Kind != CollisionStarted || evs[0].A != a || evs[0].B != b {
		t.Fatalf("Expected normalized Started(a,b), got %v", evs)
	}
	if m := tr.Manifolds(); len(m) != 1 || m[0].A != a || !vmath.ApproxEqual3(m[0].Contact.Normal, vmath.V3(-1, 0, 0), 1e-12) {
		t.Errorf("Expected manifold normal flipped toward lower handle, got %+v", m)
	}

	tr.BeginPass()
	tr.Register(a, b, c)
	tr.Process()
	if len(tr.CollisionEvents()) != 0 {
		t.Errorf("Expected no events while staying, got %v", tr.CollisionEvents())
	}
	contacts := tr.Contacts(b)
	if len(contacts) != 1 || contacts[0].Other != a || !vmath.ApproxEqual3(contacts[0].Normal, vmath.V3(-1, 0, 0), 1e-12) {
		t.Errorf("Expected contact from b pointing away from b, got %+v", contacts)
	}

	tr.BeginPass()
	tr.Process()
	evs = tr.CollisionEvents()
	if len(evs) != 1 || evs[0].Kind != CollisionEnded || !evs[0].Involves(a) || !evs[0].Involves(b) {
		t.Errorf("Expected Ended, got %v", evs)
	}
	if tr.ActivePairs() != 0 {
		t.Errorf("Expected no active pairs, got %d", tr.ActivePairs())
	}
}

func TestCollisionStateLookup(t *testing.T) {
	other := core.NewEntity(3, 1)
	s := CollisionState{Contacts: []ContactInfo{{Other: other, Depth: 0.5}}}
	if !s.IsCollidingWith(other) {
		t.Error("Expected contact")
	}
	if info, ok := s.Info(other); !ok || info.Depth != 0.5 {
		t.Errorf("Expected depth 0.5, got %+v", info)
	}
	if s.IsCollidingWith(core.NewEntity(4, 1)) {
		t.Error("Expected no contact with unrelated entity")
	}
}

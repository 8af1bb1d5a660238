package core

import "testing"

func TestEntityPacking(t *testing.T) {
	tests := []struct {
		index, gen uint32
	}{
		{0, 1},
		{1, 1},
		{42, 7},
		{^uint32(0), ^uint32(0)},
	}
	for _, tt := range tests {
		e := NewEntity(tt.index, tt.gen)
		if e.Index() != tt.index {
			t.Errorf("Expected index %d, got %d", tt.index, e.Index())
		}
		if e.Generation() != tt.gen {
			t.Errorf("Expected generation %d, got %d", tt.gen, e.Generation())
		}
		if e.IsNil() {
			t.Errorf("Expected %v to be non-nil", e)
		}
	}
}

func TestNilEntity(t *testing.T) {
	var e Entity
	if !e.IsNil() {
		t.Error("Expected zero entity to be nil")
	}
	if e.String() != "entity(nil)" {
		t.Errorf("Expected entity(nil), got %s", e.String())
	}
	if NewEntity(3, 2).String() != "3v2" {
		t.Errorf("Expected 3v2, got %s", NewEntity(3, 2).String())
	}
}

func TestEntityLess(t *testing.T) {
	a := NewEntity(1, 5)
	b := NewEntity(2, 1)
	c := NewEntity(1, 6)
	if !a.Less(b) || b.Less(a) {
		t.Error("Expected ordering by index first")
	}
	if !a.Less(c) {
		t.Error("Expected ordering by generation when index matches")
	}
}

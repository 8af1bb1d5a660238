package status

import (
	"sync"
	"testing"
)

func TestCounterPointerStable(t *testing.T) {
	r := NewRegistry()
	a := r.Counter("engine.frames")
	b := r.Counter("engine.frames")
	if a != b {
		t.Fatal("Expected the same pointer for repeated lookups")
	}
	a.Add(3)
	if got := b.Load(); got != 3 {
		t.Errorf("Expected 3, got %d", got)
	}
}

func TestConcurrentGaugeAdd(t *testing.T) {
	r := NewRegistry()
	g := r.Gauge("physics.grid_cells")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				g.Add(0.5)
			}
		}()
	}
	wg.Wait()

	if got := g.Get(); got != 4000 {
		t.Errorf("Expected 4000, got %f", got)
	}
}

func TestSnapshotOrder(t *testing.T) {
	r := NewRegistry()
	r.Counter("b").Store(2)
	r.Counter("a").Store(1)
	r.Gauge("fps").Set(60)
	r.Flag("paused").Store(true)

	snap := r.Snapshot()
	want := []Sample{{"a", 1}, {"b", 2}, {"fps", 60}, {"paused", 1}}
	if len(snap) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(snap))
	}
	for i := range want {
		if snap[i] != want[i] {
			t.Errorf("Sample %d: expected %+v, got %+v", i, want[i], snap[i])
		}
	}
	if got := r.String(); got != "a=1 b=2 fps=60 paused=1" {
		t.Errorf("Unexpected string form: %q", got)
	}
	if r.TotalCount() != 4 {
		t.Errorf("Expected 4 metrics, got %d", r.TotalCount())
	}
}

func TestConcurrentLookupSharesPointer(t *testing.T) {
	r := NewRegistry()
	got := make([]*Float, 16)

	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.Gauge("engine.fps")
			r.Counter("engine.frames").Add(1)
		}(i)
	}
	wg.Wait()

	for i, g := range got {
		if g != got[0] {
			t.Errorf("Expected shared gauge pointer, goroutine %d got a different one", i)
		}
	}
	if n := r.Counter("engine.frames").Load(); n != 16 {
		t.Errorf("Expected 16, got %d", n)
	}
	if r.TotalCount() != 2 {
		t.Errorf("Expected 2 metrics, got %d", r.TotalCount())
	}
}

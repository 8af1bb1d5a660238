package physics

import (
	"math"
	"testing"

	"github.com/lixenwraith/tickforge/vmath"
)

func TestRaycastAABB(t *testing.T) {
	box := AABBFromCenter(vmath.Vec3{}, vmath.V3(1, 1, 1))
	tests := []struct {
		name string
		ray  Ray
		hit  bool
		dist float64
	}{
		{"straight", NewRay(vmath.V3(-5, 0, 0), vmath.UnitX, 10), true, 4},
		{"out of range", NewRay(vmath.V3(-5, 0, 0), vmath.UnitX, 3), false, 0},
		{"inside", NewRay(vmath.Vec3{}, vmath.UnitY, 10), true, 0},
		{"parallel miss", NewRay(vmath.V3(-5, 2, 0), vmath.UnitX, 10), false, 0},
		{"pointing away", NewRay(vmath.V3(-5, 0, 0), vmath.V3(-1, 0, 0), 10), false, 0},
		{"zero direction", NewRay(vmath.V3(-5, 0, 0), vmath.Vec3{}, 10), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, hit := RaycastAABB(tt.ray, box)
			if hit != tt.hit {
				t.Fatalf("Expected hit=%v, got %v", tt.hit, hit)
			}
			if hit && math.Abs(d-tt.dist) > 1e-9 {
				t.Errorf("Expected distance %v, got %v", tt.dist, d)
			}
		})
	}
}

func TestRaycastSphere(t *testing.T) {
	d, ok := RaycastSphere(NewRay(vmath.V3(0, 10, 0), vmath.V3(0, -1, 0), 20), vmath.Vec3{}, 2)
	if !ok || math.Abs(d-8) > 1e-9 {
		t.Errorf("Expected hit at 8, got %v %v", d, ok)
	}
	if _, ok := RaycastSphere(NewRay(vmath.V3(0, 10, 0), vmath.V3(0, 1, 0), 20), vmath.Vec3{}, 2); ok {
		t.Error("Expected miss pointing away")
	}
}

func TestRaycastBoxNormal(t *testing.T) {
	_, n, ok := RaycastBox(NewRay(vmath.V3(0, 5, 0), vmath.V3(0, -1, 0), 10), vmath.Vec3{}, vmath.V3(2, 1, 2))
	if !ok || !vmath.ApproxEqual3(n, vmath.UnitY, 1e-9) {
		t.Errorf("Expected top face normal, got %v %v", n, ok)
	}
}

func TestRaycastCapsuleBodyAndCap(t *testing.T) {
	d, n, ok := RaycastCapsule(NewRay(vmath.V3(-5, 0, 0), vmath.UnitX, 10), vmath.Vec3{}, 1, 0.5)
	if !ok || math.Abs(d-4.5) > 1e-9 || !vmath.ApproxEqual3(n, vmath.V3(-1, 0, 0), 1e-9) {
		t.Errorf("Expected cylinder hit at 4.5 facing -X, got %v %v %v", d, n, ok)
	}
	d, n, ok = RaycastCapsule(NewRay(vmath.V3(0, 5, 0), vmath.V3(0, -1, 0), 10), vmath.Vec3{}, 1, 0.5)
	if !ok || math.Abs(d-3.5) > 1e-9 || !vmath.ApproxEqual3(n, vmath.UnitY, 1e-9) {
		t.Errorf("Expected cap hit at 3.5 facing +Y, got %v %v %v", d, n, ok)
	}
}

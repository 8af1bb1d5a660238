package physics

import (
	"math"
	"testing"

	"github.com/lixenwraith/tickforge/vmath"
)

func TestOverlapPairs(t *testing.T) {
	tests := []struct {
		name   string
		a      Shape
		pa     vmath.Vec3
		b      Shape
		pb     vmath.Vec3
		hit    bool
		normal vmath.Vec3
		depth  float64
	}{
		{"sphere sphere overlap", Sphere(1), vmath.Vec3{}, Sphere(1), vmath.V3(1.5, 0, 0), true, vmath.UnitX, 0.5},
		{"sphere sphere apart", Sphere(1), vmath.Vec3{}, Sphere(1), vmath.V3(2.5, 0, 0), false, vmath.Vec3{}, 0},
		{"box box min axis y", Box(vmath.V3(1, 1, 1)), vmath.Vec3{}, Box(vmath.V3(1, 1, 1)), vmath.V3(0.5, 1.8, 0), true, vmath.UnitY, 0.2},
		{"box box min axis -x", Box(vmath.V3(1, 1, 1)), vmath.Vec3{}, Box(vmath.V3(1, 1, 1)), vmath.V3(-1.9, 0.2, 0), true, vmath.V3(-1, 0, 0), 0.1},
		{"sphere on box", Sphere(0.5), vmath.V3(0, 1.3, 0), Box(vmath.V3(2, 1, 2)), vmath.Vec3{}, true, vmath.V3(0, -1, 0), 0.2},
		{"box under sphere", Box(vmath.V3(2, 1, 2)), vmath.Vec3{}, Sphere(0.5), vmath.V3(0, 1.3, 0), true, vmath.UnitY, 0.2},
		{"capsule sphere side", Capsule(1, 0.5), vmath.Vec3{}, Sphere(0.5), vmath.V3(0.8, 0.5, 0), true, vmath.UnitX, 0.2},
		{"capsule sphere above", Capsule(1, 0.5), vmath.Vec3{}, Sphere(0.5), vmath.V3(0, 1.9, 0), true, vmath.UnitY, 0.1},
		{"capsule capsule side", Capsule(1, 0.5), vmath.Vec3{}, Capsule(1, 0.5), vmath.V3(0, 0.5, 0.9), true, vmath.UnitZ, 0.1},
		{"capsule capsule stacked apart", Capsule(1, 0.5), vmath.Vec3{}, Capsule(1, 0.5), vmath.V3(0, 3.1, 0), false, vmath.Vec3{}, 0},
		{"capsule on box", Capsule(0.9, 0.3), vmath.V3(0, 2.1, 0), Box(vmath.V3(5, 1, 5)), vmath.Vec3{}, true, vmath.V3(0, -1, 0), 0.1},
		{"box beside capsule", Box(vmath.V3(1, 1, 1)), vmath.Vec3{}, Capsule(1, 0.5), vmath.V3(1.4, 0, 0), true, vmath.UnitX, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, hit := Overlap(tt.a, tt.pa, tt.b, tt.pb)
			if hit != tt.hit {
				t.Fatalf("Expected hit=%v, got %v", tt.hit, hit)
			}
			if !hit {
				return
			}
			if !vmath.ApproxEqual3(c.Normal, tt.normal, 1e-9) {
				t.Errorf("Expected normal %v, got %v", tt.normal, c.Normal)
			}
			if math.Abs(c.Depth-tt.depth) > 1e-9 {
				t.Errorf("Expected depth %v, got %v", tt.depth, c.Depth)
			}
		})
	}
}

func TestSphereInsideBoxExitsNearestFace(t *testing.T) {
	c, hit := Overlap(Sphere(0.1), vmath.V3(0, 0.8, 0), Box(vmath.V3(2, 1, 2)), vmath.Vec3{})
	if !hit {
		t.Fatal("Expected overlap")
	}
	// Sphere must leave upward, so the box is pushed down relative to it
	if !vmath.ApproxEqual3(c.Normal, vmath.V3(0, -1, 0), 1e-9) {
		t.Errorf("Expected normal -Y, got %v", c.Normal)
	}
	if math.Abs(c.Depth-0.3) > 1e-9 {
		t.Errorf("Expected depth 0.3, got %v", c.Depth)
	}
}

func TestDegenerateShapesClamped(t *testing.T) {
	box := ComputeAABB(BoxCollider(vmath.V3(-1, math.NaN(), 2)), vmath.V3(1, 1, 1))
	if box.Min != vmath.V3(1, 1, -1) || box.Max != vmath.V3(1, 1, 3) {
		t.Errorf("Expected clamped extents, got %+v", box)
	}
	if _, hit := Overlap(Sphere(-1), vmath.Vec3{}, Sphere(-1), vmath.V3(0.1, 0, 0)); hit {
		t.Error("Expected negative radii to collapse to points that do not overlap")
	}
}

func TestLayerGateIsSymmetric(t *testing.T) {
	tests := []struct {
		name string
		a, b Collider
		want bool
	}{
		{"defaults", SphereCollider(1), SphereCollider(1), true},
		{"a mask rejects b", SphereCollider(1).WithLayer(LayerPlayer).WithMask(MaskOf(LayerEnvironment)), SphereCollider(1).WithLayer(LayerNPC), false},
		{"b mask rejects a", SphereCollider(1).WithLayer(LayerPlayer), SphereCollider(1).WithLayer(LayerNPC).WithMask(MaskOf(LayerEnvironment)), false},
		{"both accept", SphereCollider(1).WithLayer(LayerPlayer).WithMask(MaskOf(LayerNPC)), SphereCollider(1).WithLayer(LayerNPC).WithMask(MaskOf(LayerPlayer)), true},
		{"mask none", SphereCollider(1).WithMask(MaskNone), SphereCollider(1), false},
		{"without", SphereCollider(1).WithMask(MaskAll.Without(LayerItem)), SphereCollider(1).WithLayer(LayerItem), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.ShouldCollideWith(tt.b); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if got := tt.b.ShouldCollideWith(tt.a); got != tt.want {
				t.Errorf("Expected symmetric %v, got %v", tt.want, got)
			}
			if _, hit := OverlapColliders(tt.a, vmath.Vec3{}, tt.b, vmath.V3(0.5, 0, 0)); hit != tt.want {
				t.Errorf("Expected overlap %v, got %v", tt.want, hit)
			}
		})
	}
}

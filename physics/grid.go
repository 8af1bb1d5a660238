package physics

import (
	"math"
	"slices"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/vmath"
)

const (
	// DefaultCellSize is used when the grid is built with a non-positive size
	DefaultCellSize = 10.0
	// MaxCellsPerEntity bounds how many cells one AABB may occupy before it moves to the oversize list
	MaxCellsPerEntity = 64
)

type cellKey struct {
	x, y, z int64
}

// SpatialHashGrid is the broad phase: a hash from integer cell to the entities whose AABB touches it
// It is rebuilt from scratch once per PostUpdate
// Query returns a superset of true overlaps and never misses one
type SpatialHashGrid struct {
	cellSize float64
	inv      float64
	cells    map[cellKey][]core.Entity
	entities map[core.Entity]AABB
	oversize []core.Entity
}

// GridStats summarizes occupancy
type GridStats struct {
	Cells       int
	Entities    int
	Oversize    int
	CellEntries int
	MaxPerCell  int
	AvgPerCell  float64
	CellSize    float64
}

// NewSpatialHashGrid creates a grid; cellSize <= 0 or non-finite selects DefaultCellSize
func NewSpatialHashGrid(cellSize float64) *SpatialHashGrid {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		cellSize = DefaultCellSize
	}
	return &SpatialHashGrid{
		cellSize: cellSize,
		inv:      1 / cellSize,
		cells:    make(map[cellKey][]core.Entity),
		entities: make(map[core.Entity]AABB),
	}
}

func (g *SpatialHashGrid) CellSize() float64 {
	return g.cellSize
}

func (g *SpatialHashGrid) coord(v float64) int64 {
	return int64(math.Floor(v * g.inv))
}

// cellRange returns the inclusive cell bounds of box and whether it fits under MaxCellsPerEntity
func (g *SpatialHashGrid) cellRange(box AABB) (lo, hi cellKey, fits bool) {
	span := 1.0
	for i := 0; i < 3; i++ {
		span *= math.Floor(box.Max[i]*g.inv) - math.Floor(box.Min[i]*g.inv) + 1
	}
	if span > MaxCellsPerEntity {
		return lo, hi, false
	}
	lo = cellKey{g.coord(box.Min.X()), g.coord(box.Min.Y()), g.coord(box.Min.Z())}
	hi = cellKey{g.coord(box.Max.X()), g.coord(box.Max.Y()), g.coord(box.Max.Z())}
	return lo, hi, true
}

// Insert adds e under every cell its box touches
// Non-finite boxes are skipped: they cannot overlap anything
// Re-inserting an entity replaces its previous placement
func (g *SpatialHashGrid) Insert(e core.Entity, box AABB) bool {
	if !box.IsFinite() {
		return false
	}
	if _, ok := g.entities[e]; ok {
		g.Remove(e)
	}
	g.entities[e] = box

	lo, hi, fits := g.cellRange(box)
	if !fits {
		g.oversize = append(g.oversize, e)
		return true
	}
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			for z := lo.z; z <= hi.z; z++ {
				k := cellKey{x, y, z}
				g.cells[k] = append(g.cells[k], e)
			}
		}
	}
	return true
}

// InsertPoint adds a zero-size entry
func (g *SpatialHashGrid) InsertPoint(e core.Entity, p vmath.Vec3) bool {
	return g.Insert(e, AABB{Min: p, Max: p})
}

// Remove drops e from every cell it occupies
func (g *SpatialHashGrid) Remove(e core.Entity) bool {
	box, ok := g.entities[e]
	if !ok {
		return false
	}
	delete(g.entities, e)

	lo, hi, fits := g.cellRange(box)
	if !fits {
		if i := slices.Index(g.oversize, e); i >= 0 {
			g.oversize = slices.Delete(g.oversize, i, i+1)
		}
		return true
	}
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			for z := lo.z; z <= hi.z; z++ {
				k := cellKey{x, y, z}
				list := g.cells[k]
				if i := slices.Index(list, e); i >= 0 {
					list = slices.Delete(list, i, i+1)
				}
				if len(list) == 0 {
					delete(g.cells, k)
				} else {
					g.cells[k] = list
				}
			}
		}
	}
	return true
}

// Clear empties the grid, keeping allocated maps
func (g *SpatialHashGrid) Clear() {
	clear(g.cells)
	clear(g.entities)
	g.oversize = g.oversize[:0]
}

// Bounds returns the box e was inserted with
func (g *SpatialHashGrid) Bounds(e core.Entity) (AABB, bool) {
	box, ok := g.entities[e]
	return box, ok
}

// Query returns every entity sharing a cell with box, plus all oversize entries, sorted by handle
// A query too large for the cell budget falls back to scanning inserted boxes
func (g *SpatialHashGrid) Query(box AABB) []core.Entity {
	if !box.IsFinite() {
		return nil
	}
	seen := make(map[core.Entity]struct{})
	out := make([]core.Entity, 0, 16)
	add := func(e core.Entity) {
		if _, dup := seen[e]; !dup {
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}

	lo, hi, fits := g.cellRange(box)
	if fits {
		for x := lo.x; x <= hi.x; x++ {
			for y := lo.y; y <= hi.y; y++ {
				for z := lo.z; z <= hi.z; z++ {
					for _, e := range g.cells[cellKey{x, y, z}] {
						add(e)
					}
				}
			}
		}
		for _, e := range g.oversize {
			add(e)
		}
	} else {
		for e, b := range g.entities {
			if b.Intersects(box) {
				add(e)
			}
		}
	}

	slices.SortFunc(out, compareEntity)
	return out
}

// QueryRadius returns candidates within the cube enclosing the sphere
func (g *SpatialHashGrid) QueryRadius(center vmath.Vec3, radius float64) []core.Entity {
	r := math.Abs(radius)
	return g.Query(AABBFromCenter(center, vmath.V3(r, r, r)))
}

// QueryPoint returns candidates in the cell holding p
func (g *SpatialHashGrid) QueryPoint(p vmath.Vec3) []core.Entity {
	return g.Query(AABB{Min: p, Max: p})
}

// Len returns the number of inserted entities
func (g *SpatialHashGrid) Len() int {
	return len(g.entities)
}

func (g *SpatialHashGrid) Stats() GridStats {
	s := GridStats{
		Cells:    len(g.cells),
		Entities: len(g.entities),
		Oversize: len(g.oversize),
		CellSize: g.cellSize,
	}
	for _, list := range g.cells {
		s.CellEntries += len(list)
		s.MaxPerCell = max(s.MaxPerCell, len(list))
	}
	if s.Cells > 0 {
		s.AvgPerCell = float64(s.CellEntries) / float64(s.Cells)
	}
	return s
}

func compareEntity(a, b core.Entity) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

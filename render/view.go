// Package render draws a top-down terminal view of the world for client mode
package render

import (
	"fmt"
	"math"
	"sort"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
	"github.com/lixenwraith/tickforge/transform"
	"github.com/lixenwraith/tickforge/vmath"
)

// DefaultScale is world units per terminal column
const DefaultScale = 0.5

// LocalPlayer marks the character driven by this terminal; the camera follows it
type LocalPlayer struct{}

// Glyph classes, drawn in ascending order so characters end up on top
type glyphClass uint8

const (
	classOther glyphClass = iota
	classStatic
	classTrigger
	classKinematic
	classDynamic
	classCharacter
)

var glyphs = [...]struct {
	r     rune
	style tcell.Style
}{
	classOther:     {'.', tcell.StyleDefault.Foreground(tcell.ColorWhite)},
	classStatic:    {'#', tcell.StyleDefault.Foreground(tcell.ColorGray)},
	classTrigger:   {'~', tcell.StyleDefault.Foreground(tcell.ColorPurple)},
	classKinematic: {'+', tcell.StyleDefault.Foreground(tcell.ColorBlue)},
	classDynamic:   {'o', tcell.StyleDefault.Foreground(tcell.ColorGreen)},
	classCharacter: {'@', tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)},
}

// Glyph returns the rune used for an entity
func Glyph(w *engine.World, e core.Entity) rune {
	return glyphs[classify(w, e)].r
}

func classify(w *engine.World, e core.Entity) glyphClass {
	switch {
	case engine.Has[physics.CharacterController](w, e):
		return classCharacter
	case engine.Has[physics.Trigger](w, e):
		return classTrigger
	}
	if rb, ok := engine.Get[physics.RigidBody](w, e); ok {
		switch rb.Type {
		case physics.Static:
			return classStatic
		case physics.Kinematic:
			return classKinematic
		default:
			return classDynamic
		}
	}
	if engine.Has[physics.Collider](w, e) {
		return classStatic
	}
	return classOther
}

// View projects world X/Z onto screen columns/rows; row 0 is the HUD
type View struct {
	screen tcell.Screen
	scale  float64
}

// NewView draws onto an initialized screen; scale <= 0 selects DefaultScale
func NewView(screen tcell.Screen, scale float64) *View {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = DefaultScale
	}
	return &View{screen: screen, scale: scale}
}

// Screen returns the underlying screen
func (v *View) Screen() tcell.Screen {
	return v.screen
}

type drawItem struct {
	entity core.Entity
	class  glyphClass
	pos    vmath.Vec3
}

// Project maps a world point to a screen cell for the given camera center
func (v *View) Project(p, camera vmath.Vec3) (x, y int) {
	width, height := v.screen.Size()
	cx, cy := width/2, 1+(height-1)/2
	x = cx + int(math.Round((p.X()-camera.X())/v.scale))
	// terminal cells are roughly twice as tall as wide
	y = cy + int(math.Round((p.Z()-camera.Z())/(v.scale*2)))
	return x, y
}

// Draw renders every entity with a world pose plus the HUD line, then shows the frame
// Returns the number of glyphs that landed on screen
func (v *View) Draw(w *engine.World, hud string) int {
	v.screen.Clear()
	width, height := v.screen.Size()

	globals := engine.StoreOf[transform.GlobalTransform](w)
	camera := vmath.Vec3{}
	for _, e := range w.Query().With(engine.StoreOf[LocalPlayer](w), globals).Execute() {
		camera = globals.Ptr(e).Position()
		break
	}

	entities := w.Query().With(globals).Execute()
	items := make([]drawItem, 0, len(entities))
	for _, e := range entities {
		items = append(items, drawItem{entity: e, class: classify(w, e), pos: globals.Ptr(e).Position()})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].class < items[j].class })

	drawn := 0
	for _, it := range items {
		x, y := v.Project(it.pos, camera)
		if x < 0 || x >= width || y < 1 || y >= height {
			continue
		}
		g := glyphs[it.class]
		v.screen.SetContent(x, y, g.r, nil, g.style)
		drawn++
	}

	hudStyle := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
	col := 0
	for _, r := range hud {
		if col >= width {
			break
		}
		v.screen.SetContent(col, 0, r, nil, hudStyle)
		col++
	}
	for ; col < width; col++ {
		v.screen.SetContent(col, 0, ' ', nil, hudStyle)
	}

	v.screen.Show()
	return drawn
}

// HUD formats the status line
func HUD(e *engine.Engine) string {
	s := fmt.Sprintf(" tick %d  fps %.0f  entities %d",
		e.Tick().Get(), e.Status().Gauge("engine.fps").Get(), e.World.EntityCount())
	if e.Time().IsPaused() {
		s += "  [paused]"
	}
	return s
}

// DrawStep renders one frame into the View resource
func DrawStep(w *engine.World) {
	v, ok := engine.GetResource[*View](w.Resources)
	if !ok || v == nil {
		return
	}
	e := engine.MustGetResource[*engine.Engine](w.Resources)
	n := v.Draw(w, HUD(e))
	e.Status().Gauge("render.glyphs").Set(float64(n))
}

package render

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
	"github.com/lixenwraith/tickforge/vmath"
)

// Action is a terminal key mapped to an engine intent
type Action uint8

const (
	ActionNone Action = iota
	ActionQuit
	ActionPause
	ActionMove
	ActionJump
)

// moveHold keeps a direction active after its key event; terminals report no key release
const moveHold = 150 * time.Millisecond

// MapKey translates a key event into an action and, for ActionMove, an X/Z direction
func MapKey(ev *tcell.EventKey) (Action, vmath.Vec3) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit, vmath.Vec3{}
	case tcell.KeyUp:
		return ActionMove, vmath.V3(0, 0, -1)
	case tcell.KeyDown:
		return ActionMove, vmath.V3(0, 0, 1)
	case tcell.KeyLeft:
		return ActionMove, vmath.V3(-1, 0, 0)
	case tcell.KeyRight:
		return ActionMove, vmath.V3(1, 0, 0)
	case tcell.KeyRune:
	default:
		return ActionNone, vmath.Vec3{}
	}

	switch ev.Rune() {
	case 'q', 'Q':
		return ActionQuit, vmath.Vec3{}
	case 'p', 'P':
		return ActionPause, vmath.Vec3{}
	case 'w', 'W':
		return ActionMove, vmath.V3(0, 0, -1)
	case 's', 'S':
		return ActionMove, vmath.V3(0, 0, 1)
	case 'a', 'A':
		return ActionMove, vmath.V3(-1, 0, 0)
	case 'd', 'D':
		return ActionMove, vmath.V3(1, 0, 0)
	case ' ':
		return ActionJump, vmath.Vec3{}
	}
	return ActionNone, vmath.Vec3{}
}

// InputState is the resource holding terminal events between the poll goroutine and the frame
type InputState struct {
	events chan tcell.Event

	direction vmath.Vec3
	holdUntil time.Duration
}

// NewInputState creates the event buffer
func NewInputState() *InputState {
	return &InputState{events: make(chan tcell.Event, 100)}
}

// Post queues an event without blocking; events are dropped when the frame falls behind
func (s *InputState) Post(ev tcell.Event) bool {
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}

// InputStep drains terminal events and applies them:
// quit stops the engine, pause toggles Time, movement keys drive the LocalPlayer character
func InputStep(w *engine.World) {
	state := engine.MustGetResource[*InputState](w.Resources)
	e := engine.MustGetResource[*engine.Engine](w.Resources)
	now := e.Time().Elapsed()
	jump := false

	for drained := false; !drained; {
		select {
		case ev := <-state.events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				action, dir := MapKey(ev)
				switch action {
				case ActionQuit:
					e.Stop()
				case ActionPause:
					e.Time().TogglePause()
				case ActionMove:
					state.direction = dir
					state.holdUntil = now + moveHold
				case ActionJump:
					jump = true
				}
			case *tcell.EventResize:
				if v, ok := engine.GetResource[*View](w.Resources); ok && v != nil {
					v.screen.Sync()
				}
			}
		default:
			drained = true
		}
	}

	if now >= state.holdUntil {
		state.direction = vmath.Vec3{}
	}

	moves := engine.StoreOf[physics.CharacterMovement](w)
	for _, p := range w.Query().With(engine.StoreOf[LocalPlayer](w), moves).Execute() {
		m := moves.Ptr(p)
		*m = m.WithDirection(state.direction)
		if jump {
			m.Jump = true
		}
	}
}

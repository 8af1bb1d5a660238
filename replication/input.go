package replication

import (
	"fmt"
	"math"
	"sync"

	"github.com/lixenwraith/tickforge/core"
	"github.com/lixenwraith/tickforge/engine"
	"github.com/lixenwraith/tickforge/physics"
	"github.com/lixenwraith/tickforge/transform"
	"github.com/lixenwraith/tickforge/vmath"
)

const (
	// maxDirectionLenSq tolerates rounding in client-normalized sticks
	maxDirectionLenSq = 1.01
	// moveTolerance is the slack allowed over maxSpeed*dt
	moveTolerance = 1.1
	// DefaultInputQueueSize bounds inputs buffered between two frames
	DefaultInputQueueSize = 1024
)

// PlayerInput is one client input sample; Direction is X/Z on the ground plane
type PlayerInput struct {
	NetworkID NetworkID  `msgpack:"id"`
	Tick      uint64     `msgpack:"t"`
	Direction vmath.Vec2 `msgpack:"d"`
	Jump      bool       `msgpack:"j,omitempty"`
}

// ServerAuthority marks entities whose pose the server checks every tick
type ServerAuthority struct {
	last     vmath.Vec3
	lastTick uint64
	tracked  bool
}

// PlayerControlled binds an entity to the client allowed to drive it
type PlayerControlled struct {
	ClientID      uint64
	LastInputTick uint64
	Inputs        uint64
}

// ValidateInput rejects non-finite or over-length direction input
func ValidateInput(in PlayerInput) error {
	x, y := in.Direction.X(), in.Direction.Y()
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return fmt.Errorf("%w: non-finite direction", ErrInvalidInput)
	}
	if x*x+y*y > maxDirectionLenSq {
		return fmt.Errorf("%w: direction length %.3f", ErrInvalidInput, math.Sqrt(x*x+y*y))
	}
	return nil
}

// ValidatePositionChange rejects moves longer than maxSpeed*dt plus 10%
func ValidatePositionChange(from, to vmath.Vec3, maxSpeed, dt float64) error {
	if !vmath.IsFinite3(from) || !vmath.IsFinite3(to) {
		return fmt.Errorf("%w: non-finite position", ErrSuspiciousMove)
	}
	dist := to.Sub(from).Len()
	limit := maxSpeed * dt * moveTolerance
	if dist > limit {
		return fmt.Errorf("%w: moved %.3f, limit %.3f", ErrSuspiciousMove, dist, limit)
	}
	return nil
}

// ConnectionKind tags hub connection events
type ConnectionKind uint8

const (
	Connected ConnectionKind = iota
	Disconnected
)

func (k ConnectionKind) String() string {
	if k == Connected {
		return "connected"
	}
	return "disconnected"
}

// ConnectionEvent is published once per client connect and disconnect
type ConnectionEvent struct {
	Kind     ConnectionKind
	ClientID uint64
}

// InputCommand is an input tagged with the connection it arrived on
type InputCommand struct {
	ClientID uint64
	Input    PlayerInput
}

// InputQueue carries hub traffic into the frame; the hub pushes, PreUpdate systems drain
type InputQueue struct {
	mu     sync.Mutex
	inputs []InputCommand
	conns  []ConnectionEvent
	limit  int
}

// NewInputQueue creates a queue holding at most limit inputs between drains
func NewInputQueue(limit int) *InputQueue {
	if limit <= 0 {
		limit = DefaultInputQueueSize
	}
	return &InputQueue{limit: limit}
}

// Push enqueues an input; false when the queue is full and the input was dropped
func (q *InputQueue) Push(cmd InputCommand) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.inputs) >= q.limit {
		return false
	}
	q.inputs = append(q.inputs, cmd)
	return true
}

// PushConnection enqueues a connection event; never dropped
func (q *InputQueue) PushConnection(ev ConnectionEvent) {
	q.mu.Lock()
	q.conns = append(q.conns, ev)
	q.mu.Unlock()
}

// DrainInputs returns and clears pending inputs in arrival order
func (q *InputQueue) DrainInputs() []InputCommand {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.inputs
	q.inputs = nil
	return out
}

// DrainConnections returns and clears pending connection events
func (q *InputQueue) DrainConnections() []ConnectionEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.conns
	q.conns = nil
	return out
}

// Pending returns the number of queued inputs
func (q *InputQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inputs)
}

// ApplyInput validates one client input and writes it into the target's CharacterMovement
func ApplyInput(w *engine.World, clientID uint64, in PlayerInput) error {
	if err := ValidateInput(in); err != nil {
		return err
	}
	ids := engine.MustGetResource[*NetworkIDMap](w.Resources)
	e, ok := ids.Entity(in.NetworkID)
	if !ok || !w.Alive(e) {
		return fmt.Errorf("%w: %d", ErrUnknownNetwork, in.NetworkID)
	}
	pc := engine.GetMut[PlayerControlled](w, e)
	if pc == nil || pc.ClientID != clientID {
		return fmt.Errorf("%w: network id %d, client %d", ErrNotControlled, in.NetworkID, clientID)
	}
	if pc.Inputs > 0 && in.Tick < pc.LastInputTick {
		return fmt.Errorf("%w: tick %d < %d", ErrStaleInput, in.Tick, pc.LastInputTick)
	}
	pc.LastInputTick = in.Tick
	pc.Inputs++

	m := engine.GetMut[physics.CharacterMovement](w, e)
	if m == nil {
		engine.Insert(w, e, physics.NewCharacterMovement())
		m = engine.GetMut[physics.CharacterMovement](w, e)
	}
	*m = m.WithDirection(vmath.V3(in.Direction.X(), 0, in.Direction.Y()))
	m.Jump = m.Jump || in.Jump
	return nil
}

// ApplyInputsStep drains the InputQueue into movement components, counting rejects
func ApplyInputsStep(w *engine.World) {
	q := engine.MustGetResource[*InputQueue](w.Resources)
	cmds := q.DrainInputs()
	if len(cmds) == 0 {
		return
	}
	reg := engine.MustGetResource[*engine.Engine](w.Resources).Status()
	accepted, rejected := reg.Counter("replication.inputs"), reg.Counter("replication.inputs_rejected")
	for _, cmd := range cmds {
		if err := ApplyInput(w, cmd.ClientID, cmd.Input); err != nil {
			rejected.Add(1)
			continue
		}
		accepted.Add(1)
	}
}

// ConnectionStep republishes hub connection changes as ConnectionEvent events
func ConnectionStep(w *engine.World) {
	q := engine.MustGetResource[*InputQueue](w.Resources)
	if evs := q.DrainConnections(); len(evs) > 0 {
		engine.MustGetResource[*engine.Events[ConnectionEvent]](w.Resources).SendBatch(evs)
	}
}

// AuthorityStep rejects horizontal moves of server-authoritative characters faster than their
// movement speed or simulated velocity allows, restoring the last accepted position
func AuthorityStep(w *engine.World) {
	tick := engine.MustGetResource[*engine.GameTick](w.Resources).Get()
	step := engine.MustGetResource[*engine.FixedTime](w.Resources).TimestepSeconds()
	moves := engine.StoreOf[physics.CharacterMovement](w)
	velocities := engine.StoreOf[physics.Velocity](w)
	var reverted []core.Entity

	engine.Each2(w, func(e core.Entity, a *ServerAuthority, t *transform.Transform) {
		if !a.tracked || tick < a.lastTick {
			a.last, a.lastTick, a.tracked = t.Position, tick, true
			return
		}
		if tick == a.lastTick {
			return
		}
		limit := 0.0
		if m := moves.Ptr(e); m != nil {
			limit = m.Speed
		}
		if v := velocities.Ptr(e); v != nil {
			limit = math.Max(limit, vmath.V3(v.Linear.X(), 0, v.Linear.Z()).Len())
		}
		dt := float64(tick-a.lastTick) * step
		from := vmath.V3(a.last.X(), 0, a.last.Z())
		to := vmath.V3(t.Position.X(), 0, t.Position.Z())
		if ValidatePositionChange(from, to, limit, dt) != nil {
			t.Position[0], t.Position[2] = a.last[0], a.last[2]
			if v := velocities.Ptr(e); v != nil {
				v.Linear[0], v.Linear[2] = 0, 0
			}
			reverted = append(reverted, e)
		}
		a.last, a.lastTick = t.Position, tick
	}, engine.StoreOf[transform.Parent](w))

	if len(reverted) == 0 {
		return
	}
	for _, e := range reverted {
		transform.PropagateFrom(w, e)
	}
	engine.MustGetResource[*engine.Engine](w.Resources).Status().Counter("replication.moves_rejected").Add(int64(len(reverted)))
}

package replication

import "github.com/lixenwraith/tickforge/vmath"

// CalculateAlpha maps renderTick onto [from, to] as a 0..1 blend factor
// An empty or inverted range yields 0
func CalculateAlpha(from, to, renderTick uint64) float64 {
	if from >= to || renderTick <= from {
		return 0
	}
	if renderTick >= to {
		return 1
	}
	return float64(renderTick-from) / float64(to-from)
}

// Interpolate blends two samples of the same entity: position lerp, rotation slerp
// Velocity and owner come from b
func Interpolate(a, b EntitySnapshot, alpha float64) EntitySnapshot {
	out := b
	out.Position = vmath.Lerp3(a.Position, b.Position, alpha)
	out.Rotation = vmath.Slerp(a.Rotation, b.Rotation, alpha)
	return out
}

// InterpolateSnapshots blends two ticks entity by entity
// Entities missing from a are taken from b unchanged; entities missing from b are dropped
func InterpolateSnapshots(a, b TickSnapshot, alpha float64) TickSnapshot {
	out := TickSnapshot{Tick: b.Tick, Entities: make([]EntitySnapshot, 0, len(b.Entities))}
	for _, eb := range b.Entities {
		if ea, ok := a.Find(eb.NetworkID); ok {
			out.Entities = append(out.Entities, Interpolate(ea, eb, alpha))
			continue
		}
		out.Entities = append(out.Entities, eb)
	}
	return out
}

// Sample returns the interpolated state at renderTick from the history
// Ticks past the newest snapshot clamp to it
func (h *SnapshotHistory) Sample(renderTick uint64) (TickSnapshot, bool) {
	if from, to, ok := h.Surrounding(renderTick); ok {
		return InterpolateSnapshots(from, to, CalculateAlpha(from.Tick, to.Tick, renderTick)), true
	}
	return h.Latest()
}

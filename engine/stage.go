package engine

import "fmt"

// Stage is a named phase of the frame pipeline with a fixed position in frame order
type Stage uint8

const (
	// Startup runs once before the first frame
	Startup Stage = iota
	PreUpdate
	Update
	// FixedUpdate runs zero or more times per frame, once per drained timestep
	FixedUpdate
	// PostUpdate finalizes transforms; snapshots are only safe after it completes
	PostUpdate
	// Render runs in client mode only
	Render
	Last

	stageCount
)

var stageNames = [stageCount]string{
	Startup:     "Startup",
	PreUpdate:   "PreUpdate",
	Update:      "Update",
	FixedUpdate: "FixedUpdate",
	PostUpdate:  "PostUpdate",
	Render:      "Render",
	Last:        "Last",
}

func (s Stage) String() string {
	if s.Valid() {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Valid reports whether s is one of the defined stages
func (s Stage) Valid() bool {
	return s < stageCount
}

// Stages returns every stage in execution order, Startup first
func Stages() []Stage {
	out := make([]Stage, 0, stageCount)
	for s := Startup; s < stageCount; s++ {
		out = append(out, s)
	}
	return out
}

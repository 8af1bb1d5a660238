package engine

import (
	"errors"
	"fmt"
)

// Startup configuration errors. All of them abort startup before the first frame
var (
	ErrCyclicOrdering    = errors.New("cyclic system ordering")
	ErrAccessConflict    = errors.New("conflicting unordered access")
	ErrUnknownSystem     = errors.New("unknown system or set reference")
	ErrDuplicateSystem   = errors.New("duplicate system name")
	ErrInvalidStage      = errors.New("invalid stage")
	ErrMissingDependency = errors.New("missing plugin dependency")
	ErrInvalidTimestep   = errors.New("timestep must be positive")
	ErrCyclicServices    = errors.New("circular dependency detected in services")
	ErrStartupComplete   = errors.New("startup already ran")
)

// SystemPanic carries a panic raised by a system on a worker goroutine back to the frame goroutine
type SystemPanic struct {
	System string
	Value  any
	Stack  []byte
}

func (p *SystemPanic) Error() string {
	return fmt.Sprintf("system %q panicked: %v", p.System, p.Value)
}

package transform

import "errors"

var (
	ErrDeadEntity     = errors.New("entity is not alive")
	ErrSelfParent     = errors.New("entity cannot parent itself")
	ErrHierarchyCycle = errors.New("reparent would create a cycle")
)

package replication

import "errors"

var (
	ErrBadMessage     = errors.New("malformed network message")
	ErrInvalidInput   = errors.New("invalid player input")
	ErrSuspiciousMove = errors.New("position change exceeds speed limit")
	ErrNotControlled  = errors.New("entity not controlled by client")
	ErrStaleInput     = errors.New("input older than last applied")
	ErrUnknownNetwork = errors.New("unknown network id")
)

package iterate

import (
	"errors"
	"fmt"
)

// Action is what a step asks the Iterator to do next.
type Action int

const (
	Idle Action = iota
	Scheduled
	Succeeded
)

func (a Action) String() string {
	switch a {
	case Idle:
		return "IDLE"
	case Scheduled:
		return "SCHEDULED"
	case Succeeded:
		return "SUCCEEDED"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

type State int

const (
	StateIdle State = iota
	StateProcessing
	StateScheduled
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateProcessing:
		return "PROCESSING"
	case StateScheduled:
		return "SCHEDULED"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

var ErrProtocolViolation = errors.New("iterate: protocol violation")

// ViolationError reports a notification the Iterator cannot accept in its
// current state. Cause carries the failure that arrived after success.
type ViolationError struct {
	Op    string
	State State
	Cause error
}

func (e *ViolationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("iterate: protocol violation: %s in state %s: %v", e.Op, e.State, e.Cause)
	}
	return fmt.Sprintf("iterate: protocol violation: %s in state %s", e.Op, e.State)
}

func (e *ViolationError) Unwrap() error {
	return ErrProtocolViolation
}

// pkg/core/events.go
package core

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

// LockState is the acquisition state of a target locker.
type LockState int

const (
	NoLock LockState = iota
	Locking
	Locked
)

func (s LockState) String() string {
	switch s {
	case NoLock:
		return "no_lock"
	case Locking:
		return "locking"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// LockEvent records a lock-state transition.
// SimTime is simulation time since session start.
type LockEvent struct {
	SimTime  time.Duration
	Source   string // locker owner
	TargetID string
	From     LockState
	To       LockState
}

// TriggerPulse is one discrete firing action.
type TriggerPulse struct {
	SimTime  time.Duration
	Source   string
	Sequence uint64
}

// SteeringSample captures one guidance tick.
type SteeringSample struct {
	SimTime  time.Duration
	Entity   string
	Position r3.Vec
	Aim      r3.Vec // point being steered toward
	Error    r3.Vec // clamped per-axis error, degrees
	Output   r3.Vec // normalized control values
}

// DetonationState is the lifecycle of a detonator.
type DetonationState int

const (
	DetonationReset DetonationState = iota
	Detonating
	Detonated
)

func (s DetonationState) String() string {
	switch s {
	case DetonationReset:
		return "reset"
	case Detonating:
		return "detonating"
	case Detonated:
		return "detonated"
	default:
		return "unknown"
	}
}

// DetonationEvent records a detonator state change.
type DetonationEvent struct {
	SimTime  time.Duration
	Entity   string
	State    DetonationState
	Position r3.Vec
}

// FlightPath is the sampled trajectory of one entity.
type FlightPath struct {
	Entity string
	Start  time.Duration
	End    time.Duration
	Points []r3.Vec
}

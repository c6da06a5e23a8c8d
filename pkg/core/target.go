// pkg/core/target.go
package core

import "gonum.org/v1/gonum/spatial/r3"

// TargetSnapshot is a read-only view of a trackable's kinematic state for one tick.
// An invalid snapshot means "no target" and is a normal input everywhere.
type TargetSnapshot struct {
	ID       string
	Position r3.Vec
	Velocity r3.Vec
	Valid    bool
}

// Trackable is anything a weapon can aim at. The owner refreshes it once per tick.
type Trackable interface {
	Snapshot() TargetSnapshot
}

// SnapshotOf returns t's snapshot, or an invalid snapshot when t is nil.
func SnapshotOf(t Trackable) TargetSnapshot {
	if t == nil {
		return TargetSnapshot{}
	}
	return t.Snapshot()
}

// StaticTarget is a Trackable with a fixed snapshot.
type StaticTarget TargetSnapshot

// Snapshot implements Trackable.
func (s StaticTarget) Snapshot() TargetSnapshot {
	return TargetSnapshot(s)
}

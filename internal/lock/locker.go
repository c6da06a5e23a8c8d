// Package lock implements target acquisition: a target must stay inside an
// angle and range envelope for a dwell time before it counts as locked.
package lock

import (
	"time"

	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/pkg/core"
)

// Config tunes a Locker. Negative values are a caller error and are not checked.
type Config struct {
	LockingTime    time.Duration `mapstructure:"lockingTime" json:"lockingTime"`
	LockingAngle   float64       `mapstructure:"lockingAngle" json:"lockingAngle"` // degrees
	LockingRange   float64       `mapstructure:"lockingRange" json:"lockingRange"`
	LockingEnabled bool          `mapstructure:"lockingEnabled" json:"lockingEnabled"`
}

// DefaultConfig returns the stock locker tuning.
func DefaultConfig() Config {
	return Config{
		LockingTime:    3 * time.Second,
		LockingAngle:   7,
		LockingRange:   1000,
		LockingEnabled: true,
	}
}

// Observer is notified of every lock-state transition.
type Observer interface {
	LockStateChanged(core.LockEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(core.LockEvent)

// LockStateChanged implements Observer.
func (f ObserverFunc) LockStateChanged(e core.LockEvent) { f(e) }

// Locker is the lock-state machine for one weapon or launcher.
type Locker struct {
	name      string
	cfg       Config
	target    core.Trackable
	state     core.LockState
	changedAt time.Duration
	observers []Observer
}

// NewLocker returns a Locker in NoLock with no target. name identifies the
// owner in emitted events.
func NewLocker(name string, cfg Config) *Locker {
	return &Locker{name: name, cfg: cfg}
}

// AddObserver registers o for transition notifications.
func (l *Locker) AddObserver(o Observer) {
	l.observers = append(l.observers, o)
}

func (l *Locker) Config() Config                { return l.cfg }
func (l *Locker) Target() core.Trackable        { return l.target }
func (l *Locker) State() core.LockState         { return l.state }
func (l *Locker) StateChangedAt() time.Duration { return l.changedAt }

// SetLockingEnabled toggles whether Locking may progress to Locked.
func (l *Locker) SetLockingEnabled(enabled bool) {
	l.cfg.LockingEnabled = enabled
}

// SetTarget replaces the target and drops back to NoLock.
func (l *Locker) SetTarget(t core.Trackable, now time.Duration) {
	l.SetTargetWithState(t, core.NoLock, now)
}

// SetTargetWithState replaces the target and forces state, as when a missile
// inherits the lock of the launcher that fired it.
func (l *Locker) SetTargetWithState(t core.Trackable, state core.LockState, now time.Duration) {
	l.target = t
	l.SetLockState(state, now)
}

// SetLockState moves to state and notifies observers. Setting the current
// state again does nothing.
func (l *Locker) SetLockState(state core.LockState, now time.Duration) {
	if state == l.state {
		return
	}

	e := core.LockEvent{
		SimTime:  now,
		Source:   l.name,
		TargetID: core.SnapshotOf(l.target).ID,
		From:     l.state,
		To:       state,
	}
	l.state = state
	l.changedAt = now

	for _, o := range l.observers {
		o.LockStateChanged(e)
	}
}

// InLockZone reports whether the target is valid, within range of pose and
// within the locking angle of pose's forward axis.
func (l *Locker) InLockZone(pose geo.Pose) bool {
	snap := core.SnapshotOf(l.target)
	if !snap.Valid {
		return false
	}
	if geo.Distance(pose.Position, snap.Position) > l.cfg.LockingRange {
		return false
	}
	return pose.AngleToPoint(snap.Position) <= l.cfg.LockingAngle
}

// Update evaluates one tick of the state machine.
func (l *Locker) Update(now time.Duration, pose geo.Pose) {
	inZone := l.InLockZone(pose)

	switch l.state {
	case core.NoLock:
		if inZone {
			l.SetLockState(core.Locking, now)
		}
	case core.Locking:
		switch {
		case !inZone:
			l.SetLockState(core.NoLock, now)
		case now-l.changedAt > l.cfg.LockingTime && l.cfg.LockingEnabled:
			l.SetLockState(core.Locked, now)
		}
	case core.Locked:
		if !inZone {
			l.SetLockState(core.NoLock, now)
		}
	}
}

package guidance

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/internal/intercept"
	"github.com/starlance/firecontrol/internal/lock"
	"github.com/starlance/firecontrol/pkg/core"
)

// Vehicle is the body a missile flies.
type Vehicle interface {
	Engines
	Pose() geo.Pose
	Velocity() r3.Vec
}

// MissileConfig tunes a Missile.
type MissileConfig struct {
	Guidance       ControllerConfig `mapstructure:"guidance" json:"guidance"`
	Locker         lock.Config      `mapstructure:"locker" json:"locker"`
	Detonator      DetonatorConfig  `mapstructure:"detonator" json:"detonator"`
	Proximity      ProximityConfig  `mapstructure:"proximity" json:"proximity"`
	NoLockLifetime time.Duration    `mapstructure:"noLockLifetime" json:"noLockLifetime"`
}

// Missile ties a locker, leader, guidance controller, proximity fuse and
// detonator to one guided projectile.
//
// While locked the lead point, solved at the missile's own speed, is the
// guidance target. Once a missile that has been locked loses its lock,
// guidance turns off and a detonation is scheduled NoLockLifetime later.
type Missile struct {
	name    string
	cfg     MissileConfig
	vehicle Vehicle

	locker    *lock.Locker
	leader    *intercept.Leader
	guidance  *Controller
	detonator *Detonator
	proximity *ProximityTrigger

	wasLocked bool
	lockLost  bool
}

// NewMissile builds a missile flying vehicle, launched at now.
func NewMissile(name string, cfg MissileConfig, vehicle Vehicle, now time.Duration) *Missile {
	return &Missile{
		name:      name,
		cfg:       cfg,
		vehicle:   vehicle,
		locker:    lock.NewLocker(name, cfg.Locker),
		leader:    intercept.NewLeader(0),
		guidance:  NewController(name, cfg.Guidance, vehicle),
		detonator: NewDetonator(name, cfg.Detonator, now),
		proximity: NewProximityTrigger(cfg.Proximity),
	}
}

func (m *Missile) Name() string                 { return m.name }
func (m *Missile) Locker() *lock.Locker         { return m.locker }
func (m *Missile) Leader() *intercept.Leader    { return m.leader }
func (m *Missile) Guidance() *Controller        { return m.guidance }
func (m *Missile) Detonator() *Detonator        { return m.detonator }
func (m *Missile) Proximity() *ProximityTrigger { return m.proximity }

// Done reports whether the missile has finished detonating.
func (m *Missile) Done() bool { return m.detonator.State() == core.Detonated }

// Snapshot implements core.Trackable so missiles can themselves be targeted.
func (m *Missile) Snapshot() core.TargetSnapshot {
	return core.TargetSnapshot{
		ID:       m.name,
		Position: m.vehicle.Pose().Position,
		Velocity: m.vehicle.Velocity(),
		Valid:    m.detonator.State() == core.DetonationReset,
	}
}

// SetTarget aims the missile at t and enables guidance with fresh PID state.
// Any lock is dropped, including a lost one along with the detonation it
// scheduled, so the new target gets a full lock cycle.
func (m *Missile) SetTarget(t core.Trackable, now time.Duration) {
	m.locker.SetTarget(t, now)
	m.leader.SetTarget(t)
	m.proximity.SetTarget(t)

	m.wasLocked = false
	m.lockLost = false
	m.detonator.CancelDelayed()

	m.guidance.SetGuidanceEnabled(true)
	m.guidance.Reset()
}

// SetLockState forces the lock state, as when inheriting the launcher's lock.
func (m *Missile) SetLockState(state core.LockState, now time.Duration) {
	m.locker.SetLockState(state, now)
	if state == core.Locked {
		m.wasLocked = true
	}
}

// Update runs one tick of dt seconds.
func (m *Missile) Update(now time.Duration, dt float64) {
	if m.Done() {
		return
	}

	pose := m.vehicle.Pose()
	velocity := m.vehicle.Velocity()
	m.locker.Update(now, pose)

	if m.locker.State() == core.Locked {
		m.wasLocked = true
		m.leader.SetInterceptSpeed(r3.Norm(velocity))
		m.leader.Update(pose.Position)
		m.guidance.SetTargetPosition(m.leader.LeadPosition())
	} else if m.wasLocked && !m.lockLost {
		m.lockLost = true
		m.guidance.SetGuidanceEnabled(false)
		m.detonator.BeginDelayedDetonation(now, m.cfg.NoLockLifetime)
	}

	if m.detonator.State() == core.DetonationReset {
		m.guidance.Update(now, pose, dt)
		if m.proximity.Update(pose.Position, velocity, dt) {
			m.detonator.Detonate(now, pose.Position)
		}
	} else {
		m.vehicle.SetSteeringInputs(r3.Vec{})
		m.vehicle.SetMovementInputs(r3.Vec{})
	}
	m.detonator.Update(now, pose.Position)
}

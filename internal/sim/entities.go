package sim

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/control"
	"github.com/starlance/firecontrol/internal/firing"
	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/internal/guidance"
	"github.com/starlance/firecontrol/internal/intercept"
	"github.com/starlance/firecontrol/internal/lock"
	"github.com/starlance/firecontrol/pkg/core"
)

// Ship turns toward whatever its locker is tracking and holds the launcher
// trigger while locked.
type Ship struct {
	body     *Body
	cfg      ShipTuning
	locker   *lock.Locker
	pid      *control.PIDController3D
	repeater *firing.Repeater
	launcher *Launcher
	tracer   *PathTracer
}

// NewShip builds a ship and its launcher. Launcher pulses go to rec and then
// to the launcher.
func NewShip(id string, cfg ShipTuning, world *World, rec Recorder, pathSampleEvery int) *Ship {
	if rec == nil {
		rec = NopRecorder{}
	}
	s := &Ship{
		body:   NewBody(id, cfg.Body, geo.NewPose(cfg.Position)),
		cfg:    cfg,
		locker: lock.NewLocker(id, cfg.Locker),
		pid:    control.NewPIDController3D(cfg.PID),
		tracer: NewPathTracer(id, pathSampleEvery),
	}
	s.locker.AddObserver(lock.ObserverFunc(rec.LockChanged))
	s.launcher = NewLauncher(id+"-launcher", cfg.Launcher, world, s.body, s.locker, rec, pathSampleEvery)
	s.repeater = firing.NewRepeater(s.launcher.Name(), cfg.Launcher.Repeater,
		firing.FanOut{firing.PulseFunc(rec.Pulse), s.launcher})
	return s
}

func (s *Ship) ID() string                 { return s.body.ID() }
func (s *Ship) Body() *Body                { return s.body }
func (s *Ship) Locker() *lock.Locker       { return s.locker }
func (s *Ship) Launcher() *Launcher        { return s.launcher }
func (s *Ship) Repeater() *firing.Repeater { return s.repeater }
func (s *Ship) Snapshot() core.TargetSnapshot {
	return s.body.Snapshot()
}

// SetTarget hands the locker a new target.
func (s *Ship) SetTarget(t core.Trackable, now time.Duration) {
	s.locker.SetTarget(t, now)
	s.pid.Reset()
}

// Tick implements Entity.
func (s *Ship) Tick(now time.Duration, dt float64) {
	pose := s.body.Pose()
	if snap := core.SnapshotOf(s.locker.Target()); snap.Valid {
		s.body.SetSteeringInputs(control.TurnToward(pose, snap.Position, s.cfg.MaxAngles, s.pid, dt))
	} else {
		s.body.SetSteeringInputs(r3.Vec{})
	}

	s.locker.Update(now, pose)
	if s.locker.State() == core.Locked {
		s.repeater.StartTriggering(now)
	} else {
		s.repeater.StopTriggering(now)
	}
	s.repeater.Update(now)
	if s.launcher.Remaining() == 0 && s.repeater.Active() {
		s.repeater.SetActive(false)
	}

	s.body.Step(dt)
	s.tracer.Sample(now, s.body.Pose().Position)
}

// Path is the ship's flight path so far.
func (s *Ship) Path() core.FlightPath { return s.tracer.Path() }

// PointDefence is a gimballed turret riding on a platform.
type PointDefence struct {
	id         string
	cfg        TurretTuning
	platform   Platform
	controller *guidance.TurretController
	repeater   *firing.Repeater
}

// NewPointDefence mounts a turret on platform. Its pulses go to rec.
func NewPointDefence(id string, cfg TurretTuning, platform Platform, rec Recorder, rng *rand.Rand) *PointDefence {
	if rec == nil {
		rec = NopRecorder{}
	}
	p := &PointDefence{id: id, cfg: cfg, platform: platform}
	p.repeater = firing.NewRepeater(id, cfg.Repeater, firing.PulseFunc(rec.Pulse))
	oscillator := firing.NewTurret(cfg.Controller.Firing, p.repeater, rng)
	gimbal := guidance.NewGimbal(cfg.Controller.Gimbal, p.mount())
	p.controller = guidance.NewTurretController(cfg.Controller, gimbal, intercept.NewLeader(cfg.ProjectileSpeed), oscillator)
	return p
}

func (p *PointDefence) ID() string                             { return p.id }
func (p *PointDefence) Controller() *guidance.TurretController { return p.controller }
func (p *PointDefence) Repeater() *firing.Repeater             { return p.repeater }

// SetTarget hands the turret a new target.
func (p *PointDefence) SetTarget(t core.Trackable) { p.controller.SetTarget(t) }

// Tick implements Entity.
func (p *PointDefence) Tick(now time.Duration, dt float64) {
	p.controller.Gimbal().SetMount(p.mount())
	p.controller.Update(now, dt)
	p.repeater.Update(now)
}

func (p *PointDefence) mount() geo.Pose {
	base := p.platform.Pose()
	return geo.Pose{
		Position:    r3.Add(base.Position, base.Orientation.Rotate(p.cfg.MountOffset)),
		Orientation: base.Orientation,
	}
}

// Drone flies a patrol route.
type Drone struct {
	body   *Body
	patrol *control.Patrol
	tracer *PathTracer
}

// NewDrone places a drone facing +Z at its start position.
func NewDrone(id string, cfg DroneTuning, pathSampleEvery int) *Drone {
	return &Drone{
		body:   NewBody(id, cfg.Body, geo.NewPose(cfg.Position)),
		patrol: control.NewPatrol(cfg.Patrol, cfg.PID),
		tracer: NewPathTracer(id, pathSampleEvery),
	}
}

func (d *Drone) ID() string              { return d.body.ID() }
func (d *Drone) Body() *Body             { return d.body }
func (d *Drone) Patrol() *control.Patrol { return d.patrol }
func (d *Drone) Snapshot() core.TargetSnapshot {
	return d.body.Snapshot()
}

// Tick implements Entity.
func (d *Drone) Tick(now time.Duration, dt float64) {
	d.patrol.Update(d.body.Pose(), d.body, dt)
	d.body.Step(dt)
	d.tracer.Sample(now, d.body.Pose().Position)
}

// Path is the drone's flight path so far.
func (d *Drone) Path() core.FlightPath { return d.tracer.Path() }

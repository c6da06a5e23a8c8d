package sim

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/internal/guidance"
	"github.com/starlance/firecontrol/internal/lock"
	"github.com/starlance/firecontrol/pkg/core"
)

// Platform is what a launcher is bolted to.
type Platform interface {
	Pose() geo.Pose
	Velocity() r3.Vec
}

// Launcher spawns a missile for every trigger pulse it receives. A missile
// inherits the launcher locker's target, and starts Locked when the launcher
// was locked at launch.
type Launcher struct {
	name     string
	cfg      LauncherConfig
	world    *World
	platform Platform
	locker   *lock.Locker
	rec      Recorder
	every    int

	launched int
}

// NewLauncher creates a launcher adding its missiles to world.
func NewLauncher(name string, cfg LauncherConfig, world *World, platform Platform, locker *lock.Locker, rec Recorder, pathSampleEvery int) *Launcher {
	if rec == nil {
		rec = NopRecorder{}
	}
	return &Launcher{
		name:     name,
		cfg:      cfg,
		world:    world,
		platform: platform,
		locker:   locker,
		rec:      rec,
		every:    pathSampleEvery,
	}
}

func (l *Launcher) Name() string  { return l.name }
func (l *Launcher) Launched() int { return l.launched }

// Remaining is the number of missiles left, or -1 when unlimited.
func (l *Launcher) Remaining() int {
	if l.cfg.MaxMissiles <= 0 {
		return -1
	}
	return max(l.cfg.MaxMissiles-l.launched, 0)
}

// Pulse implements firing.PulseSink.
func (l *Launcher) Pulse(p core.TriggerPulse) {
	if l.Remaining() == 0 {
		return
	}
	l.Launch(p.SimTime)
}

// Launch spawns one missile at now and returns it.
func (l *Launcher) Launch(now time.Duration) *MissileEntity {
	l.launched++
	name := fmt.Sprintf("%s-missile-%d", l.name, l.launched)

	origin := l.platform.Pose()
	forward := origin.Forward()
	pose := geo.Pose{
		Position:    r3.Add(origin.Position, r3.Scale(l.cfg.LaunchOffset, forward)),
		Orientation: origin.Orientation,
	}
	body := NewBody(name, l.cfg.Body, pose)
	body.SetVelocity(r3.Add(l.platform.Velocity(), r3.Scale(l.cfg.LaunchSpeed, forward)))

	missile := guidance.NewMissile(name, l.cfg.Missile, body, now)
	missile.Locker().AddObserver(lock.ObserverFunc(l.rec.LockChanged))
	missile.Guidance().SetObserver(guidance.SteeringFunc(l.rec.Steered))
	missile.Detonator().SetObserver(guidance.DetonationFunc(l.rec.Detonation))

	if l.locker != nil {
		if target := l.locker.Target(); target != nil {
			missile.SetTarget(target, now)
			if l.locker.State() == core.Locked {
				missile.SetLockState(core.Locked, now)
			}
		}
	}

	e := &MissileEntity{
		missile: missile,
		body:    body,
		tracer:  NewPathTracer(name, l.every),
		rec:     l.rec,
	}
	e.tracer.Sample(now, pose.Position)
	l.world.Tracks().Register(name, missile)
	l.world.Add(e)
	return e
}

// MissileEntity flies one missile in the world.
type MissileEntity struct {
	missile *guidance.Missile
	body    *Body
	tracer  *PathTracer
	rec     Recorder
	done    bool
}

func (e *MissileEntity) ID() string                 { return e.missile.Name() }
func (e *MissileEntity) Missile() *guidance.Missile { return e.missile }
func (e *MissileEntity) Body() *Body                { return e.body }

// Tick implements Entity. The flight path is reported once the missile has
// detonated.
func (e *MissileEntity) Tick(now time.Duration, dt float64) {
	if e.done {
		return
	}
	e.missile.Update(now, dt)
	e.body.Step(dt)
	e.tracer.Sample(now, e.body.Pose().Position)
	if e.missile.Done() {
		e.done = true
		reportPath(e.rec, e.tracer.Path())
	}
}

// Done implements Finisher.
func (e *MissileEntity) Done() bool { return e.done }

// Flush reports the path of a missile still in flight.
func (e *MissileEntity) Flush() {
	if !e.done {
		reportPath(e.rec, e.tracer.Path())
	}
}

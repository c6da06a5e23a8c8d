// Package sim is the harness around the fire-control core: a kinematic rigid
// body standing in for the physics engine, a fixed-timestep world, the
// missile launcher and the scenario that wires them to a recorder.
package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/pkg/core"
)

// BodyConfig describes a vehicle's engines and drag. Steering forces are
// angular accelerations (rad/s² at full input) about the local axes; movement
// forces are newtons along them.
type BodyConfig struct {
	Mass              float64 `mapstructure:"mass" json:"mass"`
	Drag              float64 `mapstructure:"drag" json:"drag"`
	AngularDrag       float64 `mapstructure:"angularDrag" json:"angularDrag"`
	SteeringForces    r3.Vec  `mapstructure:"steeringForces" json:"steeringForces"`
	MovementForces    r3.Vec  `mapstructure:"movementForces" json:"movementForces"`
	MaxMovementForces r3.Vec  `mapstructure:"maxMovementForces" json:"maxMovementForces"`
}

// DefaultBodyConfig returns the stock engine figures.
func DefaultBodyConfig() BodyConfig {
	return BodyConfig{
		Mass:              1,
		Drag:              3,
		AngularDrag:       4,
		SteeringForces:    r3.Vec{X: 8, Y: 8, Z: 18},
		MovementForces:    r3.Vec{X: 200, Y: 200, Z: 300},
		MaxMovementForces: r3.Vec{X: 400, Y: 400, Z: 600},
	}
}

// Body is a rigid body driven by normalized engine inputs. It is not safe
// for concurrent use; the world ticks everything from one goroutine.
type Body struct {
	id  string
	cfg BodyConfig

	pose            geo.Pose
	velocity        r3.Vec
	angularVelocity r3.Vec // local frame, rad/s

	steering r3.Vec
	movement r3.Vec
}

// NewBody places a body at pose.
func NewBody(id string, cfg BodyConfig, pose geo.Pose) *Body {
	if cfg.Mass <= 0 {
		cfg.Mass = 1
	}
	return &Body{id: id, cfg: cfg, pose: pose}
}

func (b *Body) ID() string              { return b.id }
func (b *Body) Pose() geo.Pose          { return b.pose }
func (b *Body) Velocity() r3.Vec        { return b.velocity }
func (b *Body) AngularVelocity() r3.Vec { return b.angularVelocity }
func (b *Body) SteeringInputs() r3.Vec  { return b.steering }
func (b *Body) MovementInputs() r3.Vec  { return b.movement }

// SetVelocity overrides the linear velocity, as at launch.
func (b *Body) SetVelocity(v r3.Vec) { b.velocity = v }

// SetSteeringInputs implements guidance.Engines. Inputs are clamped to [-1, 1].
func (b *Body) SetSteeringInputs(v r3.Vec) { b.steering = clampUnit(v) }

// SetMovementInputs implements guidance.Engines. Inputs are clamped to [-1, 1].
func (b *Body) SetMovementInputs(v r3.Vec) { b.movement = clampUnit(v) }

// Snapshot implements core.Trackable.
func (b *Body) Snapshot() core.TargetSnapshot {
	return core.TargetSnapshot{
		ID:       b.id,
		Position: b.pose.Position,
		Velocity: b.velocity,
		Valid:    true,
	}
}

// Step integrates dt seconds with semi-implicit Euler: velocities first,
// then pose from the new velocities.
func (b *Body) Step(dt float64) {
	if dt <= 0 {
		return
	}

	angularAccel := geo.ScaleVec(b.steering, b.cfg.SteeringForces)
	b.angularVelocity = r3.Scale(dragFactor(b.cfg.AngularDrag, dt), r3.Add(b.angularVelocity, r3.Scale(dt, angularAccel)))
	b.pose.Orientation = b.pose.Orientation.Integrate(b.angularVelocity, dt)

	localForce := geo.MinVec(geo.ScaleVec(b.movement, b.cfg.MovementForces), b.cfg.MaxMovementForces)
	accel := r3.Scale(1/b.cfg.Mass, b.pose.Orientation.Rotate(localForce))
	b.velocity = r3.Scale(dragFactor(b.cfg.Drag, dt), r3.Add(b.velocity, r3.Scale(dt, accel)))
	b.pose.Position = r3.Add(b.pose.Position, r3.Scale(dt, b.velocity))
}

// TerminalSpeed approximates the forward speed reached at full forward input.
func (b *Body) TerminalSpeed() float64 {
	force := math.Min(b.cfg.MovementForces.Z, b.cfg.MaxMovementForces.Z)
	if b.cfg.Drag <= 0 {
		return math.Inf(1)
	}
	return force / b.cfg.Mass / b.cfg.Drag
}

func dragFactor(drag, dt float64) float64 {
	return math.Max(0, 1-drag*dt)
}

func clampUnit(v r3.Vec) r3.Vec {
	return r3.Vec{
		X: geo.Clamp(v.X, -1, 1),
		Y: geo.Clamp(v.Y, -1, 1),
		Z: geo.Clamp(v.Z, -1, 1),
	}
}

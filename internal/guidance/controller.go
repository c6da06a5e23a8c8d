// Package guidance steers missiles and turrets toward a continuously updated
// lead point, and owns the missile lifecycle around it.
package guidance

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/control"
	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/pkg/core"
)

// Engines applies normalized steering and movement inputs to a vehicle.
type Engines interface {
	SetSteeringInputs(r3.Vec)
	SetMovementInputs(r3.Vec)
}

// SteeringObserver receives one sample per guided tick.
type SteeringObserver interface {
	SteeringUpdated(core.SteeringSample)
}

// SteeringFunc adapts a function to SteeringObserver.
type SteeringFunc func(core.SteeringSample)

// SteeringUpdated implements SteeringObserver.
func (f SteeringFunc) SteeringUpdated(s core.SteeringSample) { f(s) }

// ControllerConfig tunes a Controller.
type ControllerConfig struct {
	MaxAngles r3.Vec            `mapstructure:"maxAngles" json:"maxAngles"`
	PID       control.PIDConfig `mapstructure:"pid" json:"pid"`
}

// DefaultControllerConfig returns unlimited turn angles and the stock gains.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		MaxAngles: r3.Vec{X: 360, Y: 360, Z: 360},
		PID:       control.Uniform(control.Gains{Proportional: 0.05, Derivative: 0.002}),
	}
}

// forwardThrust is applied every tick regardless of guidance state.
var forwardThrust = r3.Vec{Z: 1}

// Controller steers toward a target position while enabled.
type Controller struct {
	name     string
	cfg      ControllerConfig
	engines  Engines
	pid      *control.PIDController3D
	observer SteeringObserver

	enabled bool
	target  r3.Vec
}

// NewController returns a disabled controller driving engines.
func NewController(name string, cfg ControllerConfig, engines Engines) *Controller {
	return &Controller{
		name:    name,
		cfg:     cfg,
		engines: engines,
		pid:     control.NewPIDController3D(cfg.PID),
	}
}

// SetObserver registers o for steering samples. nil disables sampling.
func (c *Controller) SetObserver(o SteeringObserver) { c.observer = o }

func (c *Controller) Enabled() bool          { return c.enabled }
func (c *Controller) TargetPosition() r3.Vec { return c.target }

// SetGuidanceEnabled turns steering on or off. The PID state is cleared
// whenever the value actually changes.
func (c *Controller) SetGuidanceEnabled(enabled bool) {
	if enabled == c.enabled {
		return
	}
	c.enabled = enabled
	c.pid.Reset()
}

// Reset clears the PID state and leaves guidance on or off as it was.
func (c *Controller) Reset() { c.pid.Reset() }

// SetTargetPosition sets the world point to steer toward.
func (c *Controller) SetTargetPosition(p r3.Vec) { c.target = p }

// Update runs one tick. While enabled it steers toward the target position,
// otherwise it zeroes steering. Full forward thrust is applied in both cases.
func (c *Controller) Update(now time.Duration, pose geo.Pose, dt float64) {
	if c.enabled {
		errVec := control.SteeringError(pose, c.target, c.cfg.MaxAngles)
		out := c.pid.Update(errVec, dt)
		c.engines.SetSteeringInputs(out)

		if c.observer != nil {
			c.observer.SteeringUpdated(core.SteeringSample{
				SimTime:  now,
				Entity:   c.name,
				Position: pose.Position,
				Aim:      c.target,
				Error:    errVec,
				Output:   out,
			})
		}
	} else {
		c.engines.SetSteeringInputs(r3.Vec{})
	}
	c.engines.SetMovementInputs(forwardThrust)
}

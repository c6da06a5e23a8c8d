// Package control implements the closed-loop steering used by ships, turrets
// and missiles: a three-axis PID controller and the Turn-Toward solver that
// feeds it.
package control

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
)

// Gains configures one PID axis.
//
// IntegralLimit bounds the accumulated error. When it is zero and Integral is
// positive the bound defaults to 1/Integral, so the integral term on its own
// can at most saturate the output.
type Gains struct {
	Proportional  float64 `mapstructure:"proportional" json:"proportional"`
	Integral      float64 `mapstructure:"integral" json:"integral"`
	Derivative    float64 `mapstructure:"derivative" json:"derivative"`
	IntegralLimit float64 `mapstructure:"integralLimit" json:"integralLimit"`
}

func (g Gains) integralBound() float64 {
	switch {
	case g.IntegralLimit > 0:
		return g.IntegralLimit
	case g.Integral > 0:
		return 1 / g.Integral
	default:
		return 0
	}
}

// PIDConfig holds gains for pitch (X), yaw (Y) and roll (Z).
type PIDConfig struct {
	Pitch Gains `mapstructure:"pitch" json:"pitch"`
	Yaw   Gains `mapstructure:"yaw" json:"yaw"`
	Roll  Gains `mapstructure:"roll" json:"roll"`
}

// Uniform returns a config using g on every axis.
func Uniform(g Gains) PIDConfig {
	return PIDConfig{Pitch: g, Yaw: g, Roll: g}
}

type axis struct {
	gains     Gains
	integral  float64
	prevError float64
}

func (a *axis) update(err, dt float64) float64 {
	var derivative float64
	if dt > 0 {
		a.integral += err * dt
		if bound := a.gains.integralBound(); bound > 0 {
			a.integral = geo.ClampAbs(a.integral, bound)
		}
		derivative = (err - a.prevError) / dt
	}
	a.prevError = err

	out := a.gains.Proportional*err + a.gains.Integral*a.integral + a.gains.Derivative*derivative
	return geo.Clamp(out, -1, 1)
}

// PIDController3D runs an independent PID loop on each rotation axis.
// The zero value has zero gains and outputs zero.
type PIDController3D struct {
	axes    [3]axis
	control r3.Vec
}

// NewPIDController3D returns a controller configured with cfg.
func NewPIDController3D(cfg PIDConfig) *PIDController3D {
	p := &PIDController3D{}
	p.Configure(cfg)
	return p
}

// Configure replaces the gains without touching accumulated state.
func (p *PIDController3D) Configure(cfg PIDConfig) {
	p.axes[0].gains = cfg.Pitch
	p.axes[1].gains = cfg.Yaw
	p.axes[2].gains = cfg.Roll
}

// Update advances every axis by dt seconds with the given error and returns the
// control values, each in [-1, 1]. A non-positive dt contributes neither
// integral nor derivative for this call.
func (p *PIDController3D) Update(err r3.Vec, dt float64) r3.Vec {
	p.control = r3.Vec{
		X: p.axes[0].update(err.X, dt),
		Y: p.axes[1].update(err.Y, dt),
		Z: p.axes[2].update(err.Z, dt),
	}
	return p.control
}

// ControlValues returns the output of the last Update.
func (p *PIDController3D) ControlValues() r3.Vec {
	return p.control
}

// Integral returns the accumulated error per axis.
func (p *PIDController3D) Integral() r3.Vec {
	return r3.Vec{X: p.axes[0].integral, Y: p.axes[1].integral, Z: p.axes[2].integral}
}

// Reset zeroes the integral, previous error and last output on every axis.
func (p *PIDController3D) Reset() {
	for i := range p.axes {
		p.axes[i].integral = 0
		p.axes[i].prevError = 0
	}
	p.control = r3.Vec{}
}

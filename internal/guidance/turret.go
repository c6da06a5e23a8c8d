package guidance

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/control"
	"github.com/starlance/firecontrol/internal/firing"
	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/internal/intercept"
	"github.com/starlance/firecontrol/pkg/core"
)

// TurretControllerConfig tunes a TurretController.
type TurretControllerConfig struct {
	Gimbal                 GimbalConfig        `mapstructure:"gimbal" json:"gimbal"`
	MaxAngles              r3.Vec              `mapstructure:"maxAngles" json:"maxAngles"`
	PID                    control.PIDConfig   `mapstructure:"pid" json:"pid"`
	Firing                 firing.TurretConfig `mapstructure:"firing" json:"firing"`
	NoTargetReturnToCenter bool                `mapstructure:"noTargetReturnToCenter" json:"noTargetReturnToCenter"`
	// AssistAngle is the cone, in degrees around the gimbal's forward axis,
	// inside which the barrel looks straight at the lead point. 0 disables it.
	AssistAngle float64 `mapstructure:"assistAngle" json:"assistAngle"`
}

// TurretController aims a gimbal at the lead point of its target and runs
// the firing oscillator on the resulting aim error.
type TurretController struct {
	cfg     TurretControllerConfig
	gimbal  *Gimbal
	leader  *intercept.Leader
	pid     *control.PIDController3D
	firing  *firing.Turret
	enabled bool
	aim     r3.Vec
	angle   float64
}

// NewTurretController wires a controller around an existing gimbal, leader
// and firing oscillator.
func NewTurretController(cfg TurretControllerConfig, gimbal *Gimbal, leader *intercept.Leader, oscillator *firing.Turret) *TurretController {
	return &TurretController{
		cfg:     cfg,
		gimbal:  gimbal,
		leader:  leader,
		pid:     control.NewPIDController3D(cfg.PID),
		firing:  oscillator,
		enabled: true,
	}
}

func (c *TurretController) Gimbal() *Gimbal           { return c.gimbal }
func (c *TurretController) Leader() *intercept.Leader { return c.leader }
func (c *TurretController) Firing() bool              { return c.firing.Firing() }

// AimDirection returns the world direction the barrel pointed on the last
// update with a valid target.
func (c *TurretController) AimDirection() r3.Vec { return c.aim }

// FiringAngle returns the last aim error in degrees.
func (c *TurretController) FiringAngle() float64 { return c.angle }

// SetEnabled turns the controller on or off. Disabling stops firing.
func (c *TurretController) SetEnabled(enabled bool, now time.Duration) {
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	if !enabled {
		c.firing.Reset(now)
		c.pid.Reset()
	}
}

// SetTarget hands the turret a new target.
func (c *TurretController) SetTarget(t core.Trackable) {
	c.leader.SetTarget(t)
	c.pid.Reset()
}

// Update runs one tick.
func (c *TurretController) Update(now time.Duration, dt float64) {
	if !c.enabled {
		return
	}

	pose := c.gimbal.Pose()
	c.leader.Update(pose.Position)

	if !core.SnapshotOf(c.leader.Target()).Valid {
		if c.cfg.NoTargetReturnToCenter {
			c.gimbal.Center(dt)
		}
		c.firing.Update(now, false, 0)
		return
	}

	lead := c.leader.LeadPosition()
	controls := control.TurnToward(pose, lead, c.cfg.MaxAngles, c.pid, dt)
	c.gimbal.Steer(controls, dt)

	pose = c.gimbal.Pose()
	c.aim = pose.Forward()
	if c.cfg.AssistAngle > 0 {
		c.aim, _ = intercept.AimAssist(pose, lead, c.cfg.AssistAngle)
	}
	c.angle = geo.AngleDeg(c.aim, r3.Sub(lead, pose.Position))
	c.firing.Update(now, true, c.angle)
}

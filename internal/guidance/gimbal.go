package guidance

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
)

// GimbalConfig limits a two-axis gun mount. Angles are degrees, Rate is
// degrees per second at full control input.
type GimbalConfig struct {
	Rate     float64 `mapstructure:"rate" json:"rate"`
	MinPitch float64 `mapstructure:"minPitch" json:"minPitch"`
	MaxPitch float64 `mapstructure:"maxPitch" json:"maxPitch"`
}

// Gimbal is a yaw/pitch mount on a fixed base pose.
type Gimbal struct {
	cfg   GimbalConfig
	mount geo.Pose
	yaw   float64
	pitch float64
}

// NewGimbal returns a centred gimbal on mount.
func NewGimbal(cfg GimbalConfig, mount geo.Pose) *Gimbal {
	return &Gimbal{cfg: cfg, mount: mount}
}

// SetMount moves the base the gimbal sits on.
func (g *Gimbal) SetMount(mount geo.Pose) { g.mount = mount }

// Angles returns the current pitch and yaw in degrees.
func (g *Gimbal) Angles() (pitch, yaw float64) { return g.pitch, g.yaw }

// Pose returns the world pose of the gun.
func (g *Gimbal) Pose() geo.Pose {
	return geo.Pose{
		Position:    g.mount.Position,
		Orientation: g.mount.Orientation.Mul(geo.FromEulerDeg(g.pitch, g.yaw, 0)),
	}
}

// Steer applies normalized pitch (X) and yaw (Y) inputs for dt seconds.
func (g *Gimbal) Steer(controls r3.Vec, dt float64) {
	g.pitch = geo.Clamp(g.pitch+controls.X*g.cfg.Rate*dt, g.cfg.MinPitch, g.cfg.MaxPitch)
	g.yaw = wrapDeg(g.yaw + controls.Y*g.cfg.Rate*dt)
}

// Center turns the gun back toward its rest position at the gimbal rate.
func (g *Gimbal) Center(dt float64) {
	step := g.cfg.Rate * dt
	g.pitch = approach(g.pitch, 0, step)
	g.yaw = approach(g.yaw, 0, step)
}

func approach(v, target, step float64) float64 {
	if math.Abs(target-v) <= step {
		return target
	}
	return v + math.Copysign(step, target-v)
}

func wrapDeg(a float64) float64 {
	a = math.Mod(a+180, 360)
	if a < 0 {
		a += 360
	}
	return a - 180
}

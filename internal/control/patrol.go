package control

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
)

// Engines receives normalized steering and movement inputs.
type Engines interface {
	SetSteeringInputs(r3.Vec)
	SetMovementInputs(r3.Vec)
}

// PatrolConfig tunes a Patrol.
type PatrolConfig struct {
	Waypoints       []r3.Vec `mapstructure:"waypoints" json:"waypoints"`
	ArrivalDistance float64  `mapstructure:"arrivalDistance" json:"arrivalDistance"`
	Throttle        float64  `mapstructure:"throttle" json:"throttle"`
	MaxAngles       r3.Vec   `mapstructure:"maxAngles" json:"maxAngles"`
}

// Patrol flies a closed loop of waypoints.
type Patrol struct {
	cfg   PatrolConfig
	pid   *PIDController3D
	index int
}

// NewPatrol returns a patrol steering with its own PID loop.
func NewPatrol(cfg PatrolConfig, gains PIDConfig) *Patrol {
	return &Patrol{cfg: cfg, pid: NewPIDController3D(gains)}
}

// Waypoint returns the index of the current waypoint, or -1 with no route.
func (p *Patrol) Waypoint() int {
	if len(p.cfg.Waypoints) == 0 {
		return -1
	}
	return p.index
}

// SetWaypoint selects the waypoint to fly to, clamped to the route.
func (p *Patrol) SetWaypoint(i int) {
	p.index = min(max(i, 0), max(len(p.cfg.Waypoints)-1, 0))
}

// Update steers toward the current waypoint, advancing to the next one once
// within the arrival distance. It returns false when there is no route.
func (p *Patrol) Update(pose geo.Pose, engines Engines, dt float64) bool {
	if len(p.cfg.Waypoints) == 0 {
		return false
	}

	if geo.Distance(pose.Position, p.cfg.Waypoints[p.index]) < p.cfg.ArrivalDistance {
		p.index = (p.index + 1) % len(p.cfg.Waypoints)
	}

	steering := TurnToward(pose, p.cfg.Waypoints[p.index], p.cfg.MaxAngles, p.pid, dt)
	engines.SetSteeringInputs(steering)
	engines.SetMovementInputs(r3.Vec{Z: p.cfg.Throttle})
	return true
}

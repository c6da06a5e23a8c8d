package guidance

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/pkg/core"
)

// ProximityMode selects when a ProximityTrigger fires.
type ProximityMode string

const (
	// OnTargetInRange fires as soon as the target is inside the radius.
	OnTargetInRange ProximityMode = "onTargetInRange"
	// OnDistanceIncrease fires inside the radius once the target starts to
	// move away, i.e. at the point of closest approach.
	OnDistanceIncrease ProximityMode = "onDistanceIncrease"
)

// ProximityConfig tunes a ProximityTrigger.
type ProximityConfig struct {
	Mode   ProximityMode `mapstructure:"mode" json:"mode"`
	Radius float64       `mapstructure:"radius" json:"radius"`
}

// ProximityTrigger is a proximity fuse. It fires at most once per Arm.
type ProximityTrigger struct {
	cfg       ProximityConfig
	target    core.Trackable
	triggered bool
}

// NewProximityTrigger returns an armed trigger.
func NewProximityTrigger(cfg ProximityConfig) *ProximityTrigger {
	return &ProximityTrigger{cfg: cfg}
}

func (p *ProximityTrigger) SetTarget(t core.Trackable) { p.target = t }
func (p *ProximityTrigger) Triggered() bool            { return p.triggered }

// Arm allows the trigger to fire again.
func (p *ProximityTrigger) Arm() { p.triggered = false }

// Update reports whether the fuse fires this tick, given the owner's position
// and velocity and the tick length in seconds.
func (p *ProximityTrigger) Update(position, velocity r3.Vec, dt float64) bool {
	if p.triggered {
		return false
	}
	snap := core.SnapshotOf(p.target)
	if !snap.Valid {
		return false
	}

	dist := geo.Distance(position, snap.Position)
	if dist > p.cfg.Radius {
		return false
	}

	fire := true
	if p.cfg.Mode == OnDistanceIncrease {
		nextOwn := r3.Add(position, r3.Scale(dt, velocity))
		nextTarget := r3.Add(snap.Position, r3.Scale(dt, snap.Velocity))
		fire = geo.Distance(nextOwn, nextTarget) > dist
	}
	p.triggered = fire
	return fire
}

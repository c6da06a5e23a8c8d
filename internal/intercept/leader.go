package intercept

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/pkg/core"
)

// Leader tracks one target and keeps its lead position current.
type Leader struct {
	target         core.Trackable
	interceptSpeed float64
	lead           r3.Vec
	onUpdate       []func(r3.Vec)
}

// NewLeader returns a leader for projectiles travelling at interceptSpeed.
func NewLeader(interceptSpeed float64) *Leader {
	return &Leader{interceptSpeed: interceptSpeed}
}

func (l *Leader) SetTarget(t core.Trackable) { l.target = t }
func (l *Leader) ClearTarget()               { l.target = nil }
func (l *Leader) Target() core.Trackable     { return l.target }

func (l *Leader) InterceptSpeed() float64         { return l.interceptSpeed }
func (l *Leader) SetInterceptSpeed(speed float64) { l.interceptSpeed = speed }

// LeadPosition returns the last computed lead point.
func (l *Leader) LeadPosition() r3.Vec { return l.lead }

// OnLeadUpdated registers fn to receive every newly solved lead position.
func (l *Leader) OnLeadUpdated(fn func(r3.Vec)) {
	l.onUpdate = append(l.onUpdate, fn)
}

// Update recomputes the lead point from shooter. Without a valid target the
// previous lead point is kept. A zero intercept speed aims at the target
// itself and does not notify observers.
func (l *Leader) Update(shooter r3.Vec) {
	snap := core.SnapshotOf(l.target)
	if !snap.Valid {
		return
	}

	if geo.Approximately(l.interceptSpeed, 0) {
		l.lead = snap.Position
		return
	}

	l.lead = LeadPosition(shooter, l.interceptSpeed, snap.Position, snap.Velocity)
	for _, fn := range l.onUpdate {
		fn(l.lead)
	}
}

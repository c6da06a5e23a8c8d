package intercept

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/pkg/core"
)

func TestLeadPosition_NoSpeed(t *testing.T) {
	target := r3.Vec{X: 100, Y: -3, Z: 7}
	vel := r3.Vec{Z: 20}

	for _, speed := range []float64{0, -1, -50, 5e-5} {
		assert.Equal(t, target, LeadPosition(r3.Vec{}, speed, target, vel))
	}
}

func TestLeadPosition_Stationary(t *testing.T) {
	target := r3.Vec{X: 100, Y: 20, Z: -40}
	got := LeadPosition(r3.Vec{X: 1}, 50, target, r3.Vec{})
	assert.Equal(t, target, got)
}

func TestLeadPosition_Unreachable(t *testing.T) {
	// target crossing faster than the projectile
	target := r3.Vec{Z: 100}
	sol := Solve(r3.Vec{}, 10, target, r3.Vec{X: 50})
	assert.False(t, sol.Solvable)
	assert.Equal(t, target, sol.LeadPosition)
}

func TestLeadPosition_Crossing(t *testing.T) {
	target := r3.Vec{X: 100}
	vel := r3.Vec{Z: 20}

	sol := Solve(r3.Vec{}, 50, target, vel)
	require.True(t, sol.Solvable)

	// b is zero for a perpendicular crossing, so t = sqrt(c/-a)
	want := 100 / math.Sqrt(2500-400)
	assert.InDelta(t, want, sol.InterceptTime, 1e-9)
	assert.InDelta(t, 100, sol.LeadPosition.X, 1e-9)
	assert.InDelta(t, 0, sol.LeadPosition.Y, 1e-9)
	assert.InDelta(t, 20*want, sol.LeadPosition.Z, 1e-9)

	// projectile and target arrive together
	assert.InDelta(t, 50*sol.InterceptTime, r3.Norm(sol.LeadPosition), 1e-6)
}

func TestLeadPosition_BothRootsNegative(t *testing.T) {
	// target running straight away, faster than the projectile: roots are
	// -2.5 and -5/3 and the larger one is kept, putting the lead behind it
	sol := Solve(r3.Vec{}, 10, r3.Vec{Z: 100}, r3.Vec{Z: 50})
	require.True(t, sol.Solvable)
	assert.InDelta(t, -5.0/3, sol.InterceptTime, 1e-9)
	assert.InDelta(t, 0, sol.LeadPosition.X, 1e-9)
	assert.InDelta(t, 0, sol.LeadPosition.Y, 1e-9)
	assert.InDelta(t, 100-250.0/3, sol.LeadPosition.Z, 1e-9)
}

func TestLeadPosition_LeadGrowsWithTargetSpeed(t *testing.T) {
	target := r3.Vec{X: 100}
	prev := 0.0
	for _, speed := range []float64{5, 10, 20, 30, 40} {
		lead := LeadPosition(r3.Vec{}, 50, target, r3.Vec{Z: speed})
		offset := geo.Distance(lead, target)
		assert.Greater(t, offset, prev)
		prev = offset
	}
}

func TestLeadPosition_EqualSpeeds(t *testing.T) {
	// |v| == s takes the linear branch
	target := r3.Vec{Z: 100}
	vel := r3.Vec{Z: -50}
	sol := Solve(r3.Vec{}, 50, target, vel)
	require.True(t, sol.Solvable)

	// a = 0, b = 2*100*50*cos(180) = -10000, c = 10000
	assert.InDelta(t, 0.5, sol.InterceptTime, 1e-9)
	assert.InDelta(t, 75, sol.LeadPosition.Z, 1e-9)
}

func TestLeader(t *testing.T) {
	l := NewLeader(50)
	var notified []r3.Vec
	l.OnLeadUpdated(func(v r3.Vec) { notified = append(notified, v) })

	// no target: nothing happens
	l.Update(r3.Vec{})
	assert.Equal(t, r3.Vec{}, l.LeadPosition())
	assert.Empty(t, notified)

	l.SetTarget(core.StaticTarget{ID: "drone", Position: r3.Vec{X: 100}, Velocity: r3.Vec{Z: 20}, Valid: true})
	l.Update(r3.Vec{})
	require.Len(t, notified, 1)
	assert.Equal(t, LeadPosition(r3.Vec{}, 50, r3.Vec{X: 100}, r3.Vec{Z: 20}), l.LeadPosition())

	l.SetInterceptSpeed(0)
	l.Update(r3.Vec{})
	assert.Equal(t, r3.Vec{X: 100}, l.LeadPosition())
	assert.Len(t, notified, 1)

	l.ClearTarget()
	assert.Nil(t, l.Target())
}

func TestAimAssist(t *testing.T) {
	ref := geo.NewPose(r3.Vec{})

	dir, ok := AimAssist(ref, r3.Vec{X: 10, Z: 100}, 10)
	assert.True(t, ok)
	assert.InDelta(t, 1, r3.Norm(dir), 1e-12)
	assert.Greater(t, dir.X, 0.0)

	dir, ok = AimAssist(ref, r3.Vec{X: 100, Z: 10}, 10)
	assert.False(t, ok)
	assert.Equal(t, geo.Forward, dir)
}

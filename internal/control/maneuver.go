package control

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
)

// behindCone is the sine of the half-angle of the cone directly behind the
// entity inside which yaw is undefined.
const behindCone = 1e-6

// Loop is a feedback controller turning an error vector into control values.
type Loop interface {
	Update(err r3.Vec, dt float64) r3.Vec
}

// SteeringError returns the per-axis angular error in degrees from pose's
// forward axis to target: X pitch (positive noses down), Y yaw (positive turns
// toward local +X), Z roll (always zero). Each axis is clamped to ±maxAngles.
//
// A target inside a narrow cone straight behind has no stable yaw, so the
// error becomes a full pitch-up. A target at the pose position gives zero error.
func SteeringError(pose geo.Pose, target, maxAngles r3.Vec) r3.Vec {
	local := pose.ToLocalPoint(target)
	dist := r3.Norm(local)
	if dist < 1e-9 {
		return r3.Vec{}
	}

	horizontal := math.Hypot(local.X, local.Z)
	if local.Z < 0 && math.Hypot(local.X, local.Y)/dist < behindCone {
		return r3.Vec{X: -math.Abs(maxAngles.X)}
	}

	const r2d = 180 / math.Pi
	raw := r3.Vec{
		X: -math.Atan2(local.Y, horizontal) * r2d,
		Y: math.Atan2(local.X, local.Z) * r2d,
	}
	return geo.ClampVec(raw, maxAngles)
}

// TurnToward feeds the clamped steering error toward target into loop and
// returns the resulting control values.
func TurnToward(pose geo.Pose, target, maxAngles r3.Vec, loop Loop, dt float64) r3.Vec {
	return loop.Update(SteeringError(pose, target, maxAngles), dt)
}

package intercept

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
)

// AimAssist returns the direction a gun mounted on reference should point.
// When lead lies within assistAngle degrees of reference's forward axis the
// gun points at lead and the second result is true; otherwise it points along
// reference's forward axis.
func AimAssist(reference geo.Pose, lead r3.Vec, assistAngle float64) (r3.Vec, bool) {
	toLead := r3.Sub(lead, reference.Position)
	if r3.Norm2(toLead) == 0 || geo.AngleDeg(reference.Forward(), toLead) >= assistAngle {
		return reference.Forward(), false
	}
	return geo.SafeUnit(toLead), true
}

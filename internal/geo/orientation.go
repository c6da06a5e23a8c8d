package geo

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Orientation is a unit quaternion mapping local directions to world directions.
// The zero value rotates like Identity.
type Orientation struct {
	q quat.Number
}

// Identity returns the orientation whose local axes coincide with the world axes.
func Identity() Orientation {
	return Orientation{q: quat.Number{Real: 1}}
}

// FromAxisAngle returns a rotation of angle radians about axis (right-hand rule).
// A zero axis yields Identity.
func FromAxisAngle(axis r3.Vec, angle float64) Orientation {
	if r3.Norm2(axis) < normEpsilon || angle == 0 {
		return Identity()
	}
	return Orientation{q: quat.Number(r3.NewRotation(angle, axis))}
}

// FromEulerDeg builds an orientation from pitch (X), yaw (Y) and roll (Z) in degrees,
// applied yaw first, then pitch, then roll, all in the local frame.
func FromEulerDeg(pitch, yaw, roll float64) Orientation {
	const d2r = math.Pi / 180
	return FromAxisAngle(Up, yaw*d2r).
		Mul(FromAxisAngle(Right, pitch*d2r)).
		Mul(FromAxisAngle(Forward, roll*d2r))
}

// LookRotation returns the orientation whose forward axis points along forward
// and whose up axis is as close to up as possible. A zero forward yields Identity;
// an up parallel to forward is replaced by a perpendicular fallback.
func LookRotation(forward, up r3.Vec) Orientation {
	z := SafeUnit(forward)
	if r3.Norm2(z) == 0 {
		return Identity()
	}
	x := r3.Cross(up, z)
	if r3.Norm2(x) < 1e-12 {
		alt := Up
		if math.Abs(z.Y) > 0.99 {
			alt = Forward
		}
		x = r3.Cross(alt, z)
	}
	x = SafeUnit(x)
	y := r3.Cross(z, x)
	return fromBasis(x, y, z)
}

// fromBasis converts an orthonormal right/up/forward basis into a quaternion.
func fromBasis(x, y, z r3.Vec) Orientation {
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	var q quat.Number
	switch trace := m00 + m11 + m22; {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = quat.Number{Real: 0.25 * s, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}
	return Orientation{q: q}.Normalize()
}

// Quat returns the underlying quaternion.
func (o Orientation) Quat() quat.Number {
	return o.q
}

// Rotate maps a local direction to world space.
func (o Orientation) Rotate(v r3.Vec) r3.Vec {
	if o.q == (quat.Number{}) {
		return v
	}
	return r3.Rotation(o.q).Rotate(v)
}

// InverseRotate maps a world direction to local space.
func (o Orientation) InverseRotate(v r3.Vec) r3.Vec {
	if o.q == (quat.Number{}) {
		return v
	}
	return r3.Rotation(quat.Conj(o.q)).Rotate(v)
}

// Mul returns o∘other: other is applied first, in o's local frame.
func (o Orientation) Mul(other Orientation) Orientation {
	return Orientation{q: quat.Mul(o.q, other.q)}
}

// Normalize rescales the quaternion to unit length. A zero quaternion becomes Identity.
func (o Orientation) Normalize() Orientation {
	n := quat.Abs(o.q)
	if n < normEpsilon || math.IsNaN(n) {
		return Identity()
	}
	return Orientation{q: quat.Scale(1/n, o.q)}
}

// Integrate advances o by a local-frame angular velocity (rad/s) over dt seconds.
func (o Orientation) Integrate(angularVelocity r3.Vec, dt float64) Orientation {
	rate := r3.Norm(angularVelocity)
	if rate < normEpsilon || dt <= 0 {
		return o
	}
	delta := FromAxisAngle(angularVelocity, rate*dt)
	return o.Mul(delta).Normalize()
}

// Forward returns the world direction of the local +Z axis.
func (o Orientation) Forward() r3.Vec { return o.Rotate(Forward) }

// Up returns the world direction of the local +Y axis.
func (o Orientation) Up() r3.Vec { return o.Rotate(Up) }

// Right returns the world direction of the local +X axis.
func (o Orientation) Right() r3.Vec { return o.Rotate(Right) }

// AngleTo returns the angle in degrees between o and other.
func (o Orientation) AngleTo(other Orientation) float64 {
	d := math.Abs(o.q.Real*other.q.Real + o.q.Imag*other.q.Imag + o.q.Jmag*other.q.Jmag + o.q.Kmag*other.q.Kmag)
	return 2 * math.Acos(Clamp(d, -1, 1)) * 180 / math.Pi
}

// Pose is a position plus orientation.
type Pose struct {
	Position    r3.Vec
	Orientation Orientation
}

// NewPose returns a pose at position with identity orientation.
func NewPose(position r3.Vec) Pose {
	return Pose{Position: position, Orientation: Identity()}
}

// Forward returns the pose's world forward direction.
func (p Pose) Forward() r3.Vec {
	return p.Orientation.Forward()
}

// ToLocalDirection returns the world direction expressed in the pose's local frame.
func (p Pose) ToLocalDirection(world r3.Vec) r3.Vec {
	return p.Orientation.InverseRotate(world)
}

// ToLocalPoint returns the world point expressed in the pose's local frame.
func (p Pose) ToLocalPoint(world r3.Vec) r3.Vec {
	return p.Orientation.InverseRotate(r3.Sub(world, p.Position))
}

// AngleToPoint returns the angle in degrees between the pose's forward axis and
// the direction to world.
func (p Pose) AngleToPoint(world r3.Vec) float64 {
	return AngleDeg(p.Forward(), r3.Sub(world, p.Position))
}

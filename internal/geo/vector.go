// Package geo provides the 3D vector, angle and orientation math used by the
// steering and targeting code. Vectors are gonum r3.Vec values.
package geo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Local axes. +Z is forward, +Y is up, +X is right.
var (
	Right   = r3.Vec{X: 1}
	Up      = r3.Vec{Y: 1}
	Forward = r3.Vec{Z: 1}
)

// normEpsilon matches the threshold below which two vectors are treated as
// having no defined angle between them.
const normEpsilon = 1e-15

// AngleDeg returns the unsigned angle between a and b in degrees.
// It returns 0 when either vector is (near) zero.
func AngleDeg(a, b r3.Vec) float64 {
	denom := math.Sqrt(r3.Norm2(a) * r3.Norm2(b))
	if denom < normEpsilon {
		return 0
	}
	cos := Clamp(r3.Dot(a, b)/denom, -1, 1)
	return math.Acos(cos) * 180 / math.Pi
}

// Distance returns |a-b|.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// SafeUnit returns the unit vector of v, or the zero vector when v is zero.
func SafeUnit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < normEpsilon {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ClampAbs limits x to [-|limit|, |limit|].
func ClampAbs(x, limit float64) float64 {
	limit = math.Abs(limit)
	return Clamp(x, -limit, limit)
}

// ClampVec clamps each component of v to ±limits on the same axis.
func ClampVec(v, limits r3.Vec) r3.Vec {
	return r3.Vec{
		X: ClampAbs(v.X, limits.X),
		Y: ClampAbs(v.Y, limits.Y),
		Z: ClampAbs(v.Z, limits.Z),
	}
}

// MinVec returns the component-wise minimum of a and b.
func MinVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)}
}

// ScaleVec returns the component-wise product of a and b.
func ScaleVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

// Approximately reports whether a and b are equal within a relative tolerance.
func Approximately(a, b float64) bool {
	return math.Abs(b-a) < math.Max(1e-6*math.Max(math.Abs(a), math.Abs(b)), 1e-12)
}

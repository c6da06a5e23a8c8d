// Package intercept computes where to aim so that a projectile of known speed
// meets a target moving at constant velocity.
package intercept

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
)

// minInterceptSpeed is the speed below which no lead is applied.
const minInterceptSpeed = 1e-4

// Solution is the result of one intercept query.
type Solution struct {
	LeadPosition  r3.Vec
	InterceptTime float64 // seconds
	Solvable      bool
}

// Solve finds the time at which a projectile fired from shooter at speed meets
// a target at targetPos moving with targetVel.
//
// The intercept time is the larger root of
//
//	(|v|²-s²)t² + 2d|v|cos(θ)t + d² = 0
//
// where d is the shooter-target distance and θ the angle between the line of
// sight and the target velocity. When both roots are negative the larger one
// is still used. When |v| equals s the equation is treated as t = -c/(2b).
// Solutions are unsolvable, and aim directly at the target, when speed is
// below 1e-4 or the discriminant is not positive.
func Solve(shooter r3.Vec, speed float64, targetPos, targetVel r3.Vec) Solution {
	direct := Solution{LeadPosition: targetPos}
	if speed < minInterceptSpeed {
		return direct
	}

	toTarget := r3.Sub(targetPos, shooter)
	targetSpeed := r3.Norm(targetVel)
	dist := r3.Norm(toTarget)
	cosTheta := math.Cos(geo.AngleDeg(toTarget, targetVel) * math.Pi / 180)

	a := targetSpeed*targetSpeed - speed*speed
	b := 2 * dist * targetSpeed * cosTheta
	c := dist * dist

	disc := b*b - 4*a*c
	if disc <= 0 {
		return direct
	}

	var t float64
	if a != 0 {
		sq := math.Sqrt(disc)
		t = math.Max((-b-sq)/(2*a), (-b+sq)/(2*a))
	} else {
		t = -c / (2 * b)
	}

	return Solution{
		LeadPosition:  r3.Add(targetPos, r3.Scale(t, targetVel)),
		InterceptTime: t,
		Solvable:      true,
	}
}

// LeadPosition returns the point to aim at. See Solve.
func LeadPosition(shooter r3.Vec, speed float64, targetPos, targetVel r3.Vec) r3.Vec {
	return Solve(shooter, speed, targetPos, targetVel).LeadPosition
}

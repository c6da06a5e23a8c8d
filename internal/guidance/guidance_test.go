package guidance

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/geo"
)

const (
	tick   = 20 * time.Millisecond
	tickDt = 0.02
)

// testVehicle turns at up to turnRate rad/s per axis and flies at speed
// times the forward movement input.
type testVehicle struct {
	pose     geo.Pose
	speed    float64
	turnRate float64
	steering r3.Vec
	movement r3.Vec
	inputs   int
}

func newTestVehicle(position r3.Vec, speed float64) *testVehicle {
	return &testVehicle{pose: geo.NewPose(position), speed: speed, turnRate: math.Pi}
}

func (v *testVehicle) SetSteeringInputs(s r3.Vec) { v.steering = s; v.inputs++ }
func (v *testVehicle) SetMovementInputs(m r3.Vec) { v.movement = m }
func (v *testVehicle) Pose() geo.Pose             { return v.pose }

func (v *testVehicle) Velocity() r3.Vec {
	return r3.Scale(v.speed*v.movement.Z, v.pose.Forward())
}

func (v *testVehicle) step(dt float64) {
	v.pose.Orientation = v.pose.Orientation.Integrate(r3.Scale(v.turnRate, v.steering), dt)
	v.pose.Position = r3.Add(v.pose.Position, r3.Scale(dt, v.Velocity()))
}

package guidance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/control"
	"github.com/starlance/firecontrol/pkg/core"
)

func TestController_DisabledStillThrusts(t *testing.T) {
	v := newTestVehicle(r3.Vec{}, 100)
	c := NewController("m1", DefaultControllerConfig(), v)
	c.SetTargetPosition(r3.Vec{X: 1000})

	c.Update(0, v.Pose(), tickDt)

	assert.Equal(t, r3.Vec{}, v.steering)
	assert.Equal(t, r3.Vec{Z: 1}, v.movement)
}

func TestController_SteersWhenEnabled(t *testing.T) {
	v := newTestVehicle(r3.Vec{}, 100)
	c := NewController("m1", DefaultControllerConfig(), v)
	var samples []core.SteeringSample
	c.SetObserver(SteeringFunc(func(s core.SteeringSample) { samples = append(samples, s) }))

	c.SetGuidanceEnabled(true)
	c.SetTargetPosition(r3.Vec{X: 1000, Z: 1000})
	c.Update(tick, v.Pose(), tickDt)

	assert.Greater(t, v.steering.Y, 0.0)
	assert.Equal(t, r3.Vec{Z: 1}, v.movement)
	require.Len(t, samples, 1)
	assert.Equal(t, "m1", samples[0].Entity)
	assert.Equal(t, tick, samples[0].SimTime)
	assert.InDelta(t, 45, samples[0].Error.Y, 1e-9)
	assert.Equal(t, v.steering, samples[0].Output)
}

func TestController_ReenableResetsPID(t *testing.T) {
	cfg := ControllerConfig{
		MaxAngles: r3.Vec{X: 180, Y: 180, Z: 180},
		PID:       control.Uniform(control.Gains{Proportional: 0.001, Integral: 0.01}),
	}
	v := newTestVehicle(r3.Vec{}, 0)
	c := NewController("m1", cfg, v)
	c.SetTargetPosition(r3.Vec{X: 1000, Z: 1000})

	c.SetGuidanceEnabled(true)
	c.Update(0, v.Pose(), tickDt)
	first := v.steering
	for range 20 {
		c.Update(0, v.Pose(), tickDt)
	}
	assert.Greater(t, v.steering.Y, first.Y, "integral accumulates")

	// enabling again is a no-op
	c.SetGuidanceEnabled(true)
	c.Update(0, v.Pose(), tickDt)
	assert.Greater(t, v.steering.Y, first.Y)

	c.SetGuidanceEnabled(false)
	c.SetGuidanceEnabled(true)
	c.Update(0, v.Pose(), tickDt)
	assert.InDelta(t, first.Y, v.steering.Y, 1e-12)
}

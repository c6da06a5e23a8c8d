package guidance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/control"
	"github.com/starlance/firecontrol/internal/lock"
	"github.com/starlance/firecontrol/pkg/core"
)

// movingTarget is a constant-velocity trackable.
type movingTarget struct {
	position r3.Vec
	velocity r3.Vec
	valid    bool
}

func (m *movingTarget) Snapshot() core.TargetSnapshot {
	return core.TargetSnapshot{ID: "drone", Position: m.position, Velocity: m.velocity, Valid: m.valid}
}

func (m *movingTarget) step(dt float64) {
	m.position = r3.Add(m.position, r3.Scale(dt, m.velocity))
}

func testMissileConfig() MissileConfig {
	return MissileConfig{
		Guidance: DefaultControllerConfig(),
		Locker: lock.Config{
			LockingTime:    500 * time.Millisecond,
			LockingAngle:   60,
			LockingRange:   5000,
			LockingEnabled: true,
		},
		Detonator:      DetonatorConfig{DetonatingDuration: 100 * time.Millisecond},
		Proximity:      ProximityConfig{Mode: OnDistanceIncrease, Radius: 25},
		NoLockLifetime: 2 * time.Second,
	}
}

func TestMissile_InterceptsInheritedLock(t *testing.T) {
	v := newTestVehicle(r3.Vec{}, 200)
	target := &movingTarget{position: r3.Vec{X: 300, Z: 800}, velocity: r3.Vec{X: 40}, valid: true}
	m := NewMissile("m1", testMissileConfig(), v, 0)

	var detonations []core.DetonationEvent
	m.Detonator().SetObserver(DetonationFunc(func(e core.DetonationEvent) { detonations = append(detonations, e) }))

	m.SetTarget(target, 0)
	m.SetLockState(core.Locked, 0)
	require.True(t, m.Guidance().Enabled())

	now := time.Duration(0)
	for range 1000 {
		if m.Done() {
			break
		}
		now += tick
		m.Update(now, tickDt)
		v.step(tickDt)
		target.step(tickDt)
	}

	require.True(t, m.Done())
	require.NotEmpty(t, detonations)
	assert.Less(t, r3.Norm(r3.Sub(detonations[0].Position, target.position)), 40.0)
	assert.False(t, m.Snapshot().Valid)
}

func TestMissile_LostLockSchedulesDetonationOnce(t *testing.T) {
	v := newTestVehicle(r3.Vec{}, 0)
	target := &movingTarget{position: r3.Vec{Z: 500}, valid: true}
	m := NewMissile("m1", testMissileConfig(), v, 0)

	m.SetTarget(target, 0)
	m.SetLockState(core.Locked, 0)
	m.Update(tick, tickDt)
	require.Equal(t, core.Locked, m.Locker().State())

	// target vanishes
	target.valid = false
	lostAt := 2 * tick
	m.Update(lostAt, tickDt)
	assert.Equal(t, core.NoLock, m.Locker().State())
	assert.False(t, m.Guidance().Enabled())
	assert.True(t, m.Detonator().Pending())

	// later ticks do not push the deadline back
	now := lostAt
	for now < lostAt+2*time.Second-tick {
		now += tick
		m.Update(now, tickDt)
	}
	assert.Equal(t, core.DetonationReset, m.Detonator().State())

	m.Update(lostAt+2*time.Second, tickDt)
	assert.NotEqual(t, core.DetonationReset, m.Detonator().State())
}

func TestMissile_NeverLockedKeepsFlying(t *testing.T) {
	v := newTestVehicle(r3.Vec{}, 0)
	m := NewMissile("m1", testMissileConfig(), v, 0)
	m.SetTarget(nil, 0)

	for i := range 500 {
		m.Update(time.Duration(i)*tick, tickDt)
	}
	assert.Equal(t, core.DetonationReset, m.Detonator().State())
	assert.False(t, m.Detonator().Pending())
	assert.Equal(t, r3.Vec{Z: 1}, v.movement)
}

func TestMissile_AcquiresOwnLock(t *testing.T) {
	v := newTestVehicle(r3.Vec{}, 0)
	target := &movingTarget{position: r3.Vec{Z: 500}, valid: true}
	m := NewMissile("m1", testMissileConfig(), v, 0)
	m.SetTarget(target, 0)

	now := time.Duration(0)
	for now <= time.Second {
		now += tick
		m.Update(now, tickDt)
	}
	assert.Equal(t, core.Locked, m.Locker().State())
	assert.Equal(t, target.position, m.Guidance().TargetPosition(), "zero speed means no lead")
}

func TestMissile_RetargetClearsGuidanceState(t *testing.T) {
	cfg := testMissileConfig()
	cfg.Guidance.PID = control.Uniform(control.Gains{Proportional: 0.05, Integral: 0.1})
	v := newTestVehicle(r3.Vec{}, 0)
	m := NewMissile("m1", cfg, v, 0)

	a := &movingTarget{position: r3.Vec{X: 500, Z: 500}, valid: true}
	m.SetTarget(a, 0)
	m.SetLockState(core.Locked, 0)

	now := time.Duration(0)
	for range 50 {
		now += tick
		m.Update(now, tickDt)
	}
	require.True(t, m.Guidance().Enabled())
	require.NotEqual(t, r3.Vec{}, m.Guidance().pid.Integral())

	m.SetTarget(&movingTarget{position: r3.Vec{X: -500, Z: 500}, valid: true}, now)
	assert.True(t, m.Guidance().Enabled())
	assert.Equal(t, r3.Vec{}, m.Guidance().pid.Integral())
}

func TestMissile_RetargetAfterLostLock(t *testing.T) {
	v := newTestVehicle(r3.Vec{}, 0)
	a := &movingTarget{position: r3.Vec{Z: 500}, valid: true}
	m := NewMissile("m1", testMissileConfig(), v, 0)

	m.SetTarget(a, 0)
	m.SetLockState(core.Locked, 0)
	m.Update(tick, tickDt)
	a.valid = false
	m.Update(2*tick, tickDt)
	require.True(t, m.Detonator().Pending())
	require.False(t, m.Guidance().Enabled())

	// the new target sits outside the lock cone so it never locks
	b := &movingTarget{position: r3.Vec{X: 500, Z: -500}, valid: true}
	m.SetTarget(b, 3*tick)
	assert.False(t, m.Detonator().Pending())
	assert.True(t, m.Guidance().Enabled())

	now := 3 * tick
	for now < 3*time.Second {
		now += tick
		m.Update(now, tickDt)
	}
	assert.Equal(t, core.NoLock, m.Locker().State())
	assert.Equal(t, core.DetonationReset, m.Detonator().State())
	assert.True(t, m.Guidance().Enabled(), "a lock that was never gained cannot be lost")
}

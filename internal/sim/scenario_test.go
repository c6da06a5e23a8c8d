package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starlance/firecontrol/pkg/core"
)

const testStep = 20 * time.Millisecond

func runScenario(t *testing.T, name string, seed uint64, d time.Duration) (*Scenario, *MemoryRecorder) {
	t.Helper()
	rec := &MemoryRecorder{}
	s, err := BuildScenario(name, DefaultTuning(), rec, testStep, seed)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background(), d))
	s.Finish()
	return s, rec
}

func lockTransitions(rec *MemoryRecorder, source string, to core.LockState) []core.LockEvent {
	var out []core.LockEvent
	for _, e := range rec.Locks {
		if e.Source == source && e.To == to {
			out = append(out, e)
		}
	}
	return out
}

func TestBuildScenario_Unknown(t *testing.T) {
	_, err := BuildScenario("dogfight", DefaultTuning(), nil, testStep, 1)
	assert.ErrorIs(t, err, ErrUnknownScenario)
	assert.Contains(t, err.Error(), "dogfight")
}

func TestBuildScenario_ZeroStep(t *testing.T) {
	_, err := BuildScenario(ScenarioDuel, DefaultTuning(), nil, 0, 1)
	assert.Error(t, err)
}

func TestBuildScenario_Populates(t *testing.T) {
	s, err := BuildScenario(ScenarioDuel, DefaultTuning(), nil, testStep, 1)
	require.NoError(t, err)

	assert.Equal(t, 3, s.World.Len())
	assert.Equal(t, []string{DroneID, ShipID}, s.World.Tracks().IDs())
	require.NotNil(t, s.Turret)
	assert.Equal(t, DroneID, core.SnapshotOf(s.Ship.Locker().Target()).ID)
}

func TestBuildScenario_TurretDisabled(t *testing.T) {
	tuning := DefaultTuning()
	tuning.Turret.Enabled = false

	s, err := BuildScenario(ScenarioDuel, tuning, nil, testStep, 1)
	require.NoError(t, err)
	assert.Nil(t, s.Turret)
	assert.Equal(t, 2, s.World.Len())
}

func TestScenario_Duel(t *testing.T) {
	s, rec := runScenario(t, ScenarioDuel, 7, 30*time.Second)

	locked := lockTransitions(rec, ShipID, core.Locked)
	require.NotEmpty(t, locked, "ship never locked the drone")
	assert.Equal(t, DroneID, locked[0].TargetID)
	assert.Greater(t, locked[0].SimTime, DefaultTuning().Ship.Locker.LockingTime)

	launches := rec.PulsesFrom(s.Ship.Launcher().Name())
	require.NotEmpty(t, launches)
	assert.GreaterOrEqual(t, launches[0].SimTime, locked[0].SimTime)
	assert.GreaterOrEqual(t, s.Ship.Launcher().Launched(), 1)
	assert.LessOrEqual(t, s.Ship.Launcher().Launched(), DefaultTuning().Ship.Launcher.MaxMissiles)

	assert.NotEmpty(t, rec.PulsesFrom(TurretID))
	assert.NotEmpty(t, rec.Steering)

	var detonated int
	for _, d := range rec.Detonations {
		if d.State == core.Detonated {
			detonated++
		}
	}
	assert.Equal(t, s.Ship.Launcher().Launched(), detonated, "every missile detonates within its lifetime")

	paths := map[string]bool{}
	for _, p := range rec.Paths {
		paths[p.Entity] = true
		assert.GreaterOrEqual(t, len(p.Points), 2)
	}
	assert.True(t, paths[ShipID])
	assert.True(t, paths[DroneID])
	assert.Len(t, rec.Paths, 2+detonated)
}

func TestScenario_PointDefence(t *testing.T) {
	s, rec := runScenario(t, ScenarioPointDefence, 7, 5*time.Second)

	assert.Empty(t, lockTransitions(rec, ShipID, core.Locked))
	assert.Zero(t, s.Ship.Launcher().Launched())
	assert.NotEmpty(t, rec.PulsesFrom(TurretID))
}

func TestScenario_Deterministic(t *testing.T) {
	_, a := runScenario(t, ScenarioDuel, 42, 10*time.Second)
	_, b := runScenario(t, ScenarioDuel, 42, 10*time.Second)

	assert.Equal(t, a.Pulses, b.Pulses)
	assert.Equal(t, a.Locks, b.Locks)
}

func TestScenario_FinishOnce(t *testing.T) {
	s, rec := runScenario(t, ScenarioPointDefence, 1, time.Second)
	n := len(rec.Paths)

	s.Finish()
	assert.Len(t, rec.Paths, n)
}

func TestScenario_RunCancelled(t *testing.T) {
	s, err := BuildScenario(ScenarioDuel, DefaultTuning(), nil, testStep, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx, time.Second), context.Canceled)
	assert.Zero(t, s.World.Now())
}

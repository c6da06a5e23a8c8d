package firing

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triggerLog struct {
	starts, stops []time.Duration
}

func (l *triggerLog) StartTriggering(now time.Duration) { l.starts = append(l.starts, now) }
func (l *triggerLog) StopTriggering(now time.Duration)  { l.stops = append(l.stops, now) }

func fixedTurretConfig() TurretConfig {
	return TurretConfig{
		MinFiringInterval: time.Second,
		MaxFiringInterval: time.Second,
		MinFiringPeriod:   2 * time.Second,
		MaxFiringPeriod:   2 * time.Second,
		MinFiringAngle:    5,
	}
}

func TestTurret_Oscillates(t *testing.T) {
	log := &triggerLog{}
	tur := NewTurret(fixedTurretConfig(), log, rand.New(rand.NewPCG(1, 2)))
	require.False(t, tur.Firing())

	for now := tick; now <= 5*time.Second; now += tick {
		tur.Update(now, true, 1)
	}

	// fire 2s, idle 1s, fire 2s ...
	require.Len(t, log.starts, 2)
	require.Len(t, log.stops, 1)
	assert.Equal(t, tick, log.starts[0])
	assert.Equal(t, log.starts[0]+2*time.Second+tick, log.stops[0])
	assert.Equal(t, log.stops[0]+time.Second+tick, log.starts[1])
	assert.True(t, tur.Firing())
}

func TestTurret_StopsWhenAimLost(t *testing.T) {
	log := &triggerLog{}
	tur := NewTurret(fixedTurretConfig(), log, nil)

	tur.Update(tick, true, 0)
	require.True(t, tur.Firing())

	tur.Update(2*tick, true, 5.1)
	assert.False(t, tur.Firing())
	assert.Equal(t, []time.Duration{2 * tick}, log.stops)

	// stays quiet while the gate fails
	tur.Update(3*tick, true, 90)
	assert.Len(t, log.stops, 1)
	assert.Len(t, log.starts, 1)
}

func TestTurret_NoTarget(t *testing.T) {
	log := &triggerLog{}
	tur := NewTurret(fixedTurretConfig(), log, nil)

	tur.Update(tick, false, 0)
	assert.Empty(t, log.starts)

	tur.Update(2*tick, true, 0)
	tur.Update(3*tick, false, 0)
	assert.False(t, tur.Firing())
	assert.Len(t, log.stops, 1)
}

func TestTurret_RandomPeriodsWithinRange(t *testing.T) {
	cfg := DefaultTurretConfig()
	tur := NewTurret(cfg, &triggerLog{}, rand.New(rand.NewPCG(7, 7)))

	now := time.Duration(0)
	for range 200 {
		now += 5 * time.Second
		tur.Update(now, true, 0)
		if tur.Firing() {
			assert.GreaterOrEqual(t, tur.NextPeriod(), cfg.MinFiringPeriod)
			assert.LessOrEqual(t, tur.NextPeriod(), cfg.MaxFiringPeriod)
		} else {
			assert.GreaterOrEqual(t, tur.NextPeriod(), cfg.MinFiringInterval)
			assert.LessOrEqual(t, tur.NextPeriod(), cfg.MaxFiringInterval)
		}
	}
}

func TestTurret_Reset(t *testing.T) {
	log := &triggerLog{}
	tur := NewTurret(fixedTurretConfig(), log, nil)
	tur.Update(tick, true, 0)

	tur.Reset(2 * tick)
	assert.False(t, tur.Firing())
	assert.Zero(t, tur.NextPeriod())
	assert.Len(t, log.stops, 1)
}

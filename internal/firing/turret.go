package firing

import (
	"math/rand/v2"
	"time"
)

// TurretConfig tunes the firing oscillator. Intervals are the idle gaps
// between bursts, periods are the burst lengths.
type TurretConfig struct {
	MinFiringInterval time.Duration `mapstructure:"minFiringInterval" json:"minFiringInterval"`
	MaxFiringInterval time.Duration `mapstructure:"maxFiringInterval" json:"maxFiringInterval"`
	MinFiringPeriod   time.Duration `mapstructure:"minFiringPeriod" json:"minFiringPeriod"`
	MaxFiringPeriod   time.Duration `mapstructure:"maxFiringPeriod" json:"maxFiringPeriod"`
	MinFiringAngle    float64       `mapstructure:"minFiringAngle" json:"minFiringAngle"` // degrees
}

// DefaultTurretConfig returns the stock turret tuning.
func DefaultTurretConfig() TurretConfig {
	return TurretConfig{
		MinFiringInterval: 500 * time.Millisecond,
		MaxFiringInterval: 2 * time.Second,
		MinFiringPeriod:   time.Second,
		MaxFiringPeriod:   2 * time.Second,
		MinFiringAngle:    5,
	}
}

// Turret alternates a Triggerable between firing and idle while the aim is
// good enough, stopping at once when it is not.
type Turret struct {
	cfg     TurretConfig
	trigger Triggerable
	rng     *rand.Rand

	firing     bool
	stateStart time.Duration
	period     time.Duration
}

// NewTurret returns an idle turret. rng supplies the randomized state periods.
func NewTurret(cfg TurretConfig, trigger Triggerable, rng *rand.Rand) *Turret {
	return &Turret{cfg: cfg, trigger: trigger, rng: rng}
}

// Firing reports whether the trigger is currently held.
func (t *Turret) Firing() bool { return t.firing }

// NextPeriod returns how long the current state lasts before toggling.
func (t *Turret) NextPeriod() time.Duration { return t.period }

// Update runs one tick. firingAngle is the angle in degrees between the gun
// and the lead point and is ignored without a target.
func (t *Turret) Update(now time.Duration, hasTarget bool, firingAngle float64) {
	if !hasTarget || firingAngle > t.cfg.MinFiringAngle {
		if t.firing {
			t.stopFiring(now)
		}
		return
	}

	if now-t.stateStart > t.period {
		if t.firing {
			t.stopFiring(now)
		} else {
			t.startFiring(now)
		}
	}
}

// Reset releases the trigger and returns to the initial idle state.
func (t *Turret) Reset(now time.Duration) {
	if t.firing {
		t.trigger.StopTriggering(now)
	}
	t.firing = false
	t.stateStart = now
	t.period = 0
}

func (t *Turret) startFiring(now time.Duration) {
	t.firing = true
	t.period = t.randomBetween(t.cfg.MinFiringPeriod, t.cfg.MaxFiringPeriod)
	t.stateStart = now
	t.trigger.StartTriggering(now)
}

func (t *Turret) stopFiring(now time.Duration) {
	t.firing = false
	t.period = t.randomBetween(t.cfg.MinFiringInterval, t.cfg.MaxFiringInterval)
	t.stateStart = now
	t.trigger.StopTriggering(now)
}

func (t *Turret) randomBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo || t.rng == nil {
		return lo
	}
	return lo + time.Duration(t.rng.Float64()*float64(hi-lo))
}

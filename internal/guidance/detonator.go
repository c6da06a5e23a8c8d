package guidance

import (
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/pkg/core"
)

// DetonatorConfig tunes a Detonator.
type DetonatorConfig struct {
	DetonatingDuration    time.Duration `mapstructure:"detonatingDuration" json:"detonatingDuration"`
	DetonateAfterLifetime bool          `mapstructure:"detonateAfterLifetime" json:"detonateAfterLifetime"`
	Lifetime              time.Duration `mapstructure:"lifetime" json:"lifetime"`
}

// DetonationObserver receives detonator state changes.
type DetonationObserver interface {
	DetonationChanged(core.DetonationEvent)
}

// DetonationFunc adapts a function to DetonationObserver.
type DetonationFunc func(core.DetonationEvent)

// DetonationChanged implements DetonationObserver.
func (f DetonationFunc) DetonationChanged(e core.DetonationEvent) { f(e) }

// Detonator moves Reset -> Detonating -> Detonated. Delayed and lifetime
// detonations are deadlines checked by Update.
type Detonator struct {
	name     string
	cfg      DetonatorConfig
	observer DetonationObserver

	state         core.DetonationState
	position      r3.Vec
	lifetimeStart time.Duration
	detonatingAt  time.Duration
	delayedAt     time.Duration
	delayed       bool
}

// NewDetonator returns a detonator in the Reset state with its lifetime
// starting at now.
func NewDetonator(name string, cfg DetonatorConfig, now time.Duration) *Detonator {
	return &Detonator{name: name, cfg: cfg, lifetimeStart: now}
}

// SetObserver registers o for state changes.
func (d *Detonator) SetObserver(o DetonationObserver) { d.observer = o }

func (d *Detonator) State() core.DetonationState { return d.state }
func (d *Detonator) Position() r3.Vec            { return d.position }

// Pending reports whether a delayed detonation is scheduled.
func (d *Detonator) Pending() bool { return d.delayed }

// Reset returns to the Reset state, cancels any scheduled detonation and
// restarts the lifetime at now.
func (d *Detonator) Reset(now time.Duration) {
	d.delayed = false
	d.lifetimeStart = now
	d.setState(now, core.DetonationReset)
}

// BeginDelayedDetonation schedules a detonation delay after now. An earlier
// pending deadline is kept.
func (d *Detonator) BeginDelayedDetonation(now, delay time.Duration) {
	at := now + delay
	if d.delayed && d.delayedAt <= at {
		return
	}
	d.delayed = true
	d.delayedAt = at
}

// CancelDelayed drops a scheduled detonation. The lifetime keeps running.
func (d *Detonator) CancelDelayed() { d.delayed = false }

// Detonate starts detonating at position. It does nothing unless in Reset.
func (d *Detonator) Detonate(now time.Duration, position r3.Vec) {
	if d.state != core.DetonationReset {
		return
	}
	d.delayed = false
	d.position = position
	d.detonatingAt = now
	d.setState(now, core.Detonating)
	if d.cfg.DetonatingDuration <= 0 {
		d.setState(now, core.Detonated)
	}
}

// Update fires any elapsed deadline. position is the current location of the
// owner, used when a timed detonation triggers.
func (d *Detonator) Update(now time.Duration, position r3.Vec) {
	switch d.state {
	case core.DetonationReset:
		if d.delayed && now >= d.delayedAt {
			d.Detonate(d.delayedAt, position)
			return
		}
		if d.cfg.DetonateAfterLifetime && now-d.lifetimeStart > d.cfg.Lifetime {
			d.Detonate(now, position)
		}
	case core.Detonating:
		if now-d.detonatingAt >= d.cfg.DetonatingDuration {
			d.setState(now, core.Detonated)
		}
	}
}

func (d *Detonator) setState(now time.Duration, state core.DetonationState) {
	changed := state != d.state
	d.state = state
	if changed && d.observer != nil {
		d.observer.DetonationChanged(core.DetonationEvent{
			SimTime:  now,
			Entity:   d.name,
			State:    state,
			Position: d.position,
		})
	}
}

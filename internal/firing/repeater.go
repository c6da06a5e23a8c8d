package firing

import (
	"time"

	"github.com/starlance/firecontrol/pkg/core"
)

// Mode selects how a Repeater turns a held trigger into actions.
type Mode string

const (
	// Single fires once per trigger press.
	Single Mode = "single"
	// Burst fires BurstSize actions Interval apart.
	Burst Mode = "burst"
	// Automatic fires every Interval while the trigger is held.
	Automatic Mode = "automatic"
)

// RepeaterConfig tunes a Repeater.
type RepeaterConfig struct {
	Mode          Mode          `mapstructure:"mode" json:"mode"`
	Interval      time.Duration `mapstructure:"interval" json:"interval"`
	BurstSize     int           `mapstructure:"burstSize" json:"burstSize"`
	RepeatBurst   bool          `mapstructure:"repeatBurst" json:"repeatBurst"`
	BurstInterval time.Duration `mapstructure:"burstInterval" json:"burstInterval"`
}

// DefaultRepeaterConfig returns the stock repeater tuning.
func DefaultRepeaterConfig() RepeaterConfig {
	return RepeaterConfig{
		Mode:          Automatic,
		Interval:      150 * time.Millisecond,
		BurstSize:     1,
		BurstInterval: 500 * time.Millisecond,
	}
}

type sequence int

const (
	idle sequence = iota
	bursting
	burstPause
	automatic
)

// maxCatchUp bounds the deadlines handled in one Update so a zero interval
// cannot spin forever.
const maxCatchUp = 1024

// Repeater is a cadence generator. At most one firing sequence runs at a time.
// Timed steps are deadlines checked by Update; several deadlines passing
// within one tick all fire in that tick, stamped with their own time.
type Repeater struct {
	name string
	cfg  RepeaterConfig
	sink PulseSink

	active     bool
	triggering bool
	seq        sequence
	next       time.Duration
	remaining  int
	pulses     uint64
}

// NewRepeater returns an active, idle repeater delivering pulses to sink.
func NewRepeater(name string, cfg RepeaterConfig, sink PulseSink) *Repeater {
	if cfg.BurstSize < 1 {
		cfg.BurstSize = 1
	}
	return &Repeater{name: name, cfg: cfg, sink: sink, active: true}
}

func (r *Repeater) Config() RepeaterConfig { return r.cfg }
func (r *Repeater) Mode() Mode             { return r.cfg.Mode }
func (r *Repeater) Triggering() bool       { return r.triggering }
func (r *Repeater) InProgress() bool       { return r.seq != idle }
func (r *Repeater) Pulses() uint64         { return r.pulses }
func (r *Repeater) Active() bool           { return r.active }

// SetActive enables or disables the repeater. Disabling cancels any running
// sequence and releases the trigger, so nothing resumes on re-enable.
func (r *Repeater) SetActive(active bool) {
	r.active = active
	if !active {
		r.Reset()
	}
}

// Reset cancels the current sequence and releases the trigger.
func (r *Repeater) Reset() {
	r.triggering = false
	r.seq = idle
	r.remaining = 0
}

// StartTriggering presses the trigger. It is a no-op when inactive, already
// held, or while a sequence is still running.
func (r *Repeater) StartTriggering(now time.Duration) {
	if !r.active || r.triggering {
		return
	}
	r.triggering = true
	if r.seq != idle {
		return
	}

	switch r.cfg.Mode {
	case Single:
		r.action(now)
	case Burst:
		r.startBurst(now)
	case Automatic:
		r.seq = automatic
		r.action(now)
		r.next = now + r.cfg.Interval
	}
}

// StopTriggering releases the trigger. A running automatic sequence ends at
// its next deadline; a burst runs to completion.
func (r *Repeater) StopTriggering(time.Duration) {
	r.triggering = false
}

// TriggerOnce fires without holding the trigger: one action in Single and
// Automatic mode, one burst in Burst mode. It does nothing while a sequence
// is running, so the cadence is never broken.
func (r *Repeater) TriggerOnce(now time.Duration) {
	if !r.active || r.seq != idle {
		return
	}
	switch r.cfg.Mode {
	case Single, Automatic:
		r.action(now)
	case Burst:
		r.startBurst(now)
	}
}

// Update fires every deadline that has elapsed by now.
func (r *Repeater) Update(now time.Duration) {
	for i := 0; r.seq != idle && now >= r.next && i < maxCatchUp; i++ {
		r.step()
	}
}

func (r *Repeater) step() {
	at := r.next
	switch r.seq {
	case automatic:
		if !r.triggering {
			r.seq = idle
			return
		}
		r.action(at)
		r.next = at + r.cfg.Interval

	case bursting:
		if r.remaining > 0 {
			r.action(at)
			r.remaining--
			r.next = at + r.cfg.Interval
			return
		}
		if !r.cfg.RepeatBurst {
			r.seq = idle
			return
		}
		r.seq = burstPause
		r.next = at + r.cfg.BurstInterval

	case burstPause:
		if !r.triggering {
			r.seq = idle
			return
		}
		r.startBurst(at)
	}
}

func (r *Repeater) startBurst(now time.Duration) {
	r.seq = bursting
	r.remaining = r.cfg.BurstSize - 1
	r.action(now)
	r.next = now + r.cfg.Interval
}

func (r *Repeater) action(now time.Duration) {
	r.pulses++
	if r.sink != nil {
		r.sink.Pulse(core.TriggerPulse{SimTime: now, Source: r.name, Sequence: r.pulses})
	}
}

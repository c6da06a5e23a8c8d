// Package firing decides when weapons fire: a randomized on/off oscillator
// for automatic turrets and a single/burst/automatic cadence generator.
package firing

import (
	"time"

	"github.com/starlance/firecontrol/pkg/core"
)

// Triggerable is a weapon that can be held down and released.
type Triggerable interface {
	StartTriggering(now time.Duration)
	StopTriggering(now time.Duration)
}

// PulseSink receives discrete firing actions.
type PulseSink interface {
	Pulse(core.TriggerPulse)
}

// PulseFunc adapts a function to PulseSink.
type PulseFunc func(core.TriggerPulse)

// Pulse implements PulseSink.
func (f PulseFunc) Pulse(p core.TriggerPulse) { f(p) }

// FanOut delivers every pulse to each sink in order.
type FanOut []PulseSink

// Pulse implements PulseSink.
func (f FanOut) Pulse(p core.TriggerPulse) {
	for _, s := range f {
		s.Pulse(p)
	}
}

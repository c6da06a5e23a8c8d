package worker

import (
	"log/slog"
	"sync/atomic"

	"github.com/starlance/firecontrol/internal/dispatcher"
	"github.com/starlance/firecontrol/pkg/core"
)

// Emitter turns simulation callbacks into dispatcher events.
type Emitter struct {
	d       *dispatcher.Dispatcher
	log     *slog.Logger
	dropped atomic.Int64
}

// NewEmitter creates an emitter feeding d.
func NewEmitter(d *dispatcher.Dispatcher, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.Default()
	}
	return &Emitter{d: d, log: log}
}

// Dropped is the number of events the dispatcher refused.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

func (e *Emitter) emit(command string, payload any) {
	if _, err := e.d.Dispatch(dispatcher.Event{Command: command, Payload: payload}); err != nil {
		e.dropped.Add(1)
		e.log.Debug("Event not dispatched", "command", command, "error", err)
	}
}

func (e *Emitter) LockChanged(ev core.LockEvent)      { e.emit(CmdLock, ev) }
func (e *Emitter) Pulse(p core.TriggerPulse)          { e.emit(CmdPulse, p) }
func (e *Emitter) Steered(s core.SteeringSample)      { e.emit(CmdSteer, s) }
func (e *Emitter) Detonation(ev core.DetonationEvent) { e.emit(CmdDetonate, ev) }
func (e *Emitter) PathComplete(p core.FlightPath)     { e.emit(CmdPath, p) }

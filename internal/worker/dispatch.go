package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/starlance/firecontrol/internal/dispatcher"
	"github.com/starlance/firecontrol/internal/influx"
	"github.com/starlance/firecontrol/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Dispatcher commands for recorded simulation events.
const (
	CmdLock     = ":LOCK:"
	CmdPulse    = ":PULSE:"
	CmdSteer    = ":STEER:"
	CmdDetonate = ":DETONATE:"
	CmdPath     = ":PATH:"
)

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Low-volume state changes
	d.Register(CmdLock, m.handleLockEvent, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(CmdDetonate, m.handleDetonation, dispatcher.Buffered(500), dispatcher.Logged())

	// Per-tick data - buffered and blocking so a fast simulation never loses samples
	d.Register(CmdSteer, m.handleSteeringSample, dispatcher.Buffered(10000), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(CmdPulse, m.handleTriggerPulse, dispatcher.Buffered(5000), dispatcher.Blocking(), dispatcher.Logged())

	// Paths arrive once per entity at the end of its flight
	d.Register(CmdPath, m.handleFlightPath, dispatcher.Logged())
}

func payloadError(e dispatcher.Event) error {
	return fmt.Errorf("%s: unexpected payload %T", e.Command, e.Payload)
}

// record runs a backend write and keeps the counters.
func (m *Manager) record(counter *atomic.Int64, what string, write func() error) error {
	if err := write(); err != nil {
		m.failed.Add(1)
		m.deps.Logger.Error("Failed to record event", "kind", what, "error", err)
		return fmt.Errorf("failed to record %s: %w", what, err)
	}
	counter.Add(1)
	return nil
}

// mirror sends a point for the active session to InfluxDB, if configured.
func (m *Manager) mirror(build func(sessionID string, start time.Time) *influxdb2_write.Point) {
	if m.deps.Influx == nil || m.deps.Session == nil {
		return
	}
	s := m.deps.Session.Get()
	if s == nil {
		return
	}
	if err := m.deps.Influx.WritePoint(build(s.ID, s.StartTime)); err != nil {
		m.deps.Logger.Warn("Failed to mirror point to InfluxDB", "error", err)
	}
}

func (m *Manager) handleLockEvent(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(core.LockEvent)
	if !ok {
		return nil, payloadError(e)
	}
	if err := m.record(&m.lockEvents, "lock event", func() error { return m.backend.RecordLockEvent(&ev) }); err != nil {
		return nil, err
	}

	m.lockTransitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("from", ev.From.String()),
		attribute.String("to", ev.To.String()),
	))
	m.mirror(func(id string, start time.Time) *influxdb2_write.Point {
		return influx.LockPoint(id, start, ev)
	})
	return nil, nil
}

func (m *Manager) handleTriggerPulse(e dispatcher.Event) (any, error) {
	p, ok := e.Payload.(core.TriggerPulse)
	if !ok {
		return nil, payloadError(e)
	}
	if err := m.record(&m.triggerPulses, "trigger pulse", func() error { return m.backend.RecordTriggerPulse(&p) }); err != nil {
		return nil, err
	}

	m.pulses.Add(context.Background(), 1, metric.WithAttributes(attribute.String("source", p.Source)))
	m.mirror(func(id string, start time.Time) *influxdb2_write.Point {
		return influx.PulsePoint(id, start, p)
	})
	return nil, nil
}

func (m *Manager) handleSteeringSample(e dispatcher.Event) (any, error) {
	s, ok := e.Payload.(core.SteeringSample)
	if !ok {
		return nil, payloadError(e)
	}
	if err := m.record(&m.steeringSamples, "steering sample", func() error { return m.backend.RecordSteeringSample(&s) }); err != nil {
		return nil, err
	}

	m.mirror(func(id string, start time.Time) *influxdb2_write.Point {
		return influx.SteeringPoint(id, start, s)
	})
	return nil, nil
}

func (m *Manager) handleDetonation(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(core.DetonationEvent)
	if !ok {
		return nil, payloadError(e)
	}
	if err := m.record(&m.detonations, "detonation", func() error { return m.backend.RecordDetonation(&ev) }); err != nil {
		return nil, err
	}

	m.mirror(func(id string, start time.Time) *influxdb2_write.Point {
		return influx.DetonationPoint(id, start, ev)
	})
	return nil, nil
}

func (m *Manager) handleFlightPath(e dispatcher.Event) (any, error) {
	p, ok := e.Payload.(core.FlightPath)
	if !ok {
		return nil, payloadError(e)
	}
	return nil, m.record(&m.flightPaths, "flight path", func() error { return m.backend.RecordFlightPath(&p) })
}

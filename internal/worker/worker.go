package worker

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/starlance/firecontrol/internal/session"
	"github.com/starlance/firecontrol/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/starlance/firecontrol/internal/worker"

// PointWriter receives time-series points mirrored from recorded events.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Logger  *slog.Logger
	Session *session.Context
	Influx  PointWriter  // optional
	Meter   metric.Meter // defaults to the global meter provider
}

// Stats counts events handed to the storage backend.
type Stats struct {
	LockEvents      int64
	TriggerPulses   int64
	SteeringSamples int64
	Detonations     int64
	FlightPaths     int64
	Failed          int64
}

// Manager routes dispatched events to the storage backend
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	lockEvents      atomic.Int64
	triggerPulses   atomic.Int64
	steeringSamples atomic.Int64
	detonations     atomic.Int64
	flightPaths     atomic.Int64
	failed          atomic.Int64

	pulses          metric.Int64Counter
	lockTransitions metric.Int64Counter
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) (*Manager, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	m := &Manager{
		deps:    deps,
		backend: backend,
	}

	meter := deps.Meter
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	var err error
	m.pulses, err = meter.Int64Counter(
		"firecontrol.pulses",
		metric.WithDescription("Trigger pulses recorded"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pulse counter: %w", err)
	}

	m.lockTransitions, err = meter.Int64Counter(
		"firecontrol.lock.transitions",
		metric.WithDescription("Target lock state transitions recorded"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lock transition counter: %w", err)
	}

	return m, nil
}

// Stats returns a snapshot of the event counters.
func (m *Manager) Stats() Stats {
	return Stats{
		LockEvents:      m.lockEvents.Load(),
		TriggerPulses:   m.triggerPulses.Load(),
		SteeringSamples: m.steeringSamples.Load(),
		Detonations:     m.detonations.Load(),
		FlightPaths:     m.flightPaths.Load(),
		Failed:          m.failed.Load(),
	}
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}

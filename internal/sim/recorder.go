package sim

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/pkg/core"
)

// Recorder receives every event the scenario produces. worker.Emitter is the
// production implementation.
type Recorder interface {
	LockChanged(core.LockEvent)
	Pulse(core.TriggerPulse)
	Steered(core.SteeringSample)
	Detonation(core.DetonationEvent)
	PathComplete(core.FlightPath)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) LockChanged(core.LockEvent)      {}
func (NopRecorder) Pulse(core.TriggerPulse)         {}
func (NopRecorder) Steered(core.SteeringSample)     {}
func (NopRecorder) Detonation(core.DetonationEvent) {}
func (NopRecorder) PathComplete(core.FlightPath)    {}

// MemoryRecorder keeps every event in memory. Safe for concurrent use.
type MemoryRecorder struct {
	mu          sync.Mutex
	Locks       []core.LockEvent
	Pulses      []core.TriggerPulse
	Steering    []core.SteeringSample
	Detonations []core.DetonationEvent
	Paths       []core.FlightPath
}

func (m *MemoryRecorder) LockChanged(e core.LockEvent) {
	m.mu.Lock()
	m.Locks = append(m.Locks, e)
	m.mu.Unlock()
}

func (m *MemoryRecorder) Pulse(p core.TriggerPulse) {
	m.mu.Lock()
	m.Pulses = append(m.Pulses, p)
	m.mu.Unlock()
}

func (m *MemoryRecorder) Steered(s core.SteeringSample) {
	m.mu.Lock()
	m.Steering = append(m.Steering, s)
	m.mu.Unlock()
}

func (m *MemoryRecorder) Detonation(e core.DetonationEvent) {
	m.mu.Lock()
	m.Detonations = append(m.Detonations, e)
	m.mu.Unlock()
}

func (m *MemoryRecorder) PathComplete(p core.FlightPath) {
	m.mu.Lock()
	m.Paths = append(m.Paths, p)
	m.mu.Unlock()
}

// PulsesFrom returns the pulses whose source is source.
func (m *MemoryRecorder) PulsesFrom(source string) []core.TriggerPulse {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.TriggerPulse
	for _, p := range m.Pulses {
		if p.Source == source {
			out = append(out, p)
		}
	}
	return out
}

// reportPath hands p to rec unless it is too short to be a line.
func reportPath(rec Recorder, p core.FlightPath) {
	if len(p.Points) >= 2 {
		rec.PathComplete(p)
	}
}

// PathTracer samples an entity's position every n-th call to Sample.
type PathTracer struct {
	entity string
	every  int
	calls  int

	start, end time.Duration
	points     []r3.Vec
	last       r3.Vec
	pending    bool
}

// NewPathTracer returns a tracer keeping one sample in every. every below 1
// keeps them all.
func NewPathTracer(entity string, every int) *PathTracer {
	return &PathTracer{entity: entity, every: max(every, 1)}
}

// Sample offers the position at now.
func (p *PathTracer) Sample(now time.Duration, position r3.Vec) {
	if p.calls == 0 {
		p.start = now
	}
	p.end = now
	p.last = position
	if p.calls%p.every == 0 {
		p.points = append(p.points, position)
		p.pending = false
	} else {
		p.pending = true
	}
	p.calls++
}

// Path returns the trace so far, ending at the latest sample.
func (p *PathTracer) Path() core.FlightPath {
	points := append([]r3.Vec(nil), p.points...)
	if p.pending {
		points = append(points, p.last)
	}
	return core.FlightPath{Entity: p.entity, Start: p.start, End: p.end, Points: points}
}

package memory

import (
	"sync"

	"github.com/starlance/firecontrol/internal/config"
	"github.com/starlance/firecontrol/pkg/core"
)

// EntityRecord groups everything recorded about one steered entity
type EntityRecord struct {
	Name     string
	Steering []core.SteeringSample
	Path     *core.FlightPath
}

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	entities    map[string]*EntityRecord
	entityOrder []string

	lockEvents    []core.LockEvent
	triggerPulses []core.TriggerPulse
	detonations   []core.DetonationEvent

	lastExportPath     string
	lastExportMetadata core.UploadMetadata
	mu                 sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		entities: make(map[string]*EntityRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(session *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = session

	// Reset all collections
	b.entities = make(map[string]*EntityRecord)
	b.entityOrder = nil
	b.lockEvents = nil
	b.triggerPulses = nil
	b.detonations = nil

	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	err := b.exportJSON()
	b.session = nil
	return err
}

// entity returns the record for name, creating it on first use. Caller holds mu.
func (b *Backend) entity(name string) *EntityRecord {
	if rec, ok := b.entities[name]; ok {
		return rec
	}
	rec := &EntityRecord{Name: name}
	b.entities[name] = rec
	b.entityOrder = append(b.entityOrder, name)
	return rec
}

// RecordLockEvent records a lock-state transition
func (b *Backend) RecordLockEvent(e *core.LockEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	b.lockEvents = append(b.lockEvents, *e)
	return nil
}

// RecordTriggerPulse records one firing action
func (b *Backend) RecordTriggerPulse(p *core.TriggerPulse) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	b.triggerPulses = append(b.triggerPulses, *p)
	return nil
}

// RecordSteeringSample records a guidance tick against its entity
func (b *Backend) RecordSteeringSample(s *core.SteeringSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	rec := b.entity(s.Entity)
	rec.Steering = append(rec.Steering, *s)
	return nil
}

// RecordDetonation records a detonator state change
func (b *Backend) RecordDetonation(e *core.DetonationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	b.detonations = append(b.detonations, *e)
	return nil
}

// RecordFlightPath stores the trajectory of an entity, replacing any earlier one
func (b *Backend) RecordFlightPath(p *core.FlightPath) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return core.ErrNoSession
	}
	path := *p
	path.Points = append(path.Points[:0:0], p.Points...)
	b.entity(p.Entity).Path = &path
	return nil
}

// LockEvents returns a copy of the recorded lock events
func (b *Backend) LockEvents() []core.LockEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.LockEvent(nil), b.lockEvents...)
}

// TriggerPulses returns a copy of the recorded pulses
func (b *Backend) TriggerPulses() []core.TriggerPulse {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.TriggerPulse(nil), b.triggerPulses...)
}

// Detonations returns a copy of the recorded detonation events
func (b *Backend) Detonations() []core.DetonationEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.DetonationEvent(nil), b.detonations...)
}

// GetEntity looks up an entity record by name
func (b *Backend) GetEntity(name string) (*EntityRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.entities[name]
	return rec, ok
}

// GetExportedFilePath returns the path of the last exported file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last exported session
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMetadata
}

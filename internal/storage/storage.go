package storage

import "github.com/starlance/firecontrol/pkg/core"

// ErrNoSession is returned when an event is recorded outside a session.
var ErrNoSession = core.ErrNoSession

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(session *core.Session) error
	EndSession() error

	// Event recording
	RecordLockEvent(e *core.LockEvent) error
	RecordTriggerPulse(p *core.TriggerPulse) error
	RecordSteeringSample(s *core.SteeringSample) error
	RecordDetonation(e *core.DetonationEvent) error
	RecordFlightPath(p *core.FlightPath) error
}

// Uploadable is an optional interface for storage backends that produce
// a session file on EndSession.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// QueueReporter is an optional interface for backends with pending write queues.
type QueueReporter interface {
	WriteQueueLengths() map[string]int
}

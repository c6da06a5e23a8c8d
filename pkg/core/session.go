package core

import (
	"errors"
	"time"
)

// ErrNoSession is returned when an event is recorded outside a session.
var ErrNoSession = errors.New("no active session")

// Session represents one recorded simulation run.
type Session struct {
	ID               string // uuid
	Name             string
	Scenario         string
	Tag              string
	StartTime        time.Time
	EndTime          time.Time // zero while recording
	TickRate         time.Duration
	ExtensionVersion string
	Tuning           map[string]any
}

// Duration is the wall time between start and end, or zero while recording.
func (s *Session) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// UploadMetadata describes an exported session file.
type UploadMetadata struct {
	SessionName string
	Scenario    string
	Duration    time.Duration
	Tag         string
}

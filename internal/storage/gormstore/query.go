package gormstore

import (
	"errors"
	"fmt"

	"github.com/starlance/firecontrol/internal/model"
	"github.com/starlance/firecontrol/internal/model/convert"
	"github.com/starlance/firecontrol/pkg/core"
	"gorm.io/gorm"
)

// ErrSessionNotFound is returned by LoadSession for an unknown UUID.
var ErrSessionNotFound = errors.New("session not found")

// SessionData is a recorded session read back from the database.
type SessionData struct {
	Session         core.Session
	LockEvents      []core.LockEvent
	TriggerPulses   []core.TriggerPulse
	SteeringSamples []core.SteeringSample
	Detonations     []core.DetonationEvent
	FlightPaths     []core.FlightPath
}

// ListSessions returns the UUIDs of every recorded session, oldest first.
func ListSessions(db *gorm.DB) ([]string, error) {
	var uuids []string
	if err := db.Model(&model.Session{}).Order("start_time, id").Pluck("uuid", &uuids).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return uuids, nil
}

// LoadSession reads a session and all its events, ordered by simulation time.
func LoadSession(db *gorm.DB, uuid string) (*SessionData, error) {
	var row model.Session
	if err := db.Where("uuid = ?", uuid).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	out := &SessionData{Session: convert.SessionToCore(row)}

	var locks []model.LockEvent
	if err := db.Where("session_id = ?", row.ID).Order("sim_time_ms, id").Find(&locks).Error; err != nil {
		return nil, fmt.Errorf("failed to load lock events: %w", err)
	}
	for _, l := range locks {
		out.LockEvents = append(out.LockEvents, convert.LockEventToCore(l))
	}

	var pulses []model.TriggerPulse
	if err := db.Where("session_id = ?", row.ID).Order("sim_time_ms, id").Find(&pulses).Error; err != nil {
		return nil, fmt.Errorf("failed to load trigger pulses: %w", err)
	}
	for _, p := range pulses {
		out.TriggerPulses = append(out.TriggerPulses, convert.TriggerPulseToCore(p))
	}

	var samples []model.SteeringSample
	if err := db.Where("session_id = ?", row.ID).Order("sim_time_ms, id").Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("failed to load steering samples: %w", err)
	}
	for _, s := range samples {
		out.SteeringSamples = append(out.SteeringSamples, convert.SteeringSampleToCore(s))
	}

	var detonations []model.Detonation
	if err := db.Where("session_id = ?", row.ID).Order("sim_time_ms, id").Find(&detonations).Error; err != nil {
		return nil, fmt.Errorf("failed to load detonations: %w", err)
	}
	for _, d := range detonations {
		out.Detonations = append(out.Detonations, convert.DetonationToCore(d))
	}

	var paths []model.FlightPath
	if err := db.Where("session_id = ?", row.ID).Order("id").Find(&paths).Error; err != nil {
		return nil, fmt.Errorf("failed to load flight paths: %w", err)
	}
	for _, p := range paths {
		path, err := convert.FlightPathToCore(p)
		if err != nil {
			return nil, fmt.Errorf("flight path %d: %w", p.ID, err)
		}
		out.FlightPaths = append(out.FlightPaths, path)
	}

	return out, nil
}

// Import writes a previously recorded session through b, as when moving
// SQLite backups into Postgres. b must be initialized and have no session open.
func (b *Backend) Import(data *SessionData) error {
	if b.session.Load() != nil {
		return errors.New("cannot import while a session is open")
	}
	s := data.Session
	if err := b.StartSession(&s); err != nil {
		return err
	}

	var errs []error
	for i := range data.LockEvents {
		errs = append(errs, b.RecordLockEvent(&data.LockEvents[i]))
	}
	for i := range data.TriggerPulses {
		errs = append(errs, b.RecordTriggerPulse(&data.TriggerPulses[i]))
	}
	for i := range data.SteeringSamples {
		errs = append(errs, b.RecordSteeringSample(&data.SteeringSamples[i]))
	}
	for i := range data.Detonations {
		errs = append(errs, b.RecordDetonation(&data.Detonations[i]))
	}
	for i := range data.FlightPaths {
		errs = append(errs, b.RecordFlightPath(&data.FlightPaths[i]))
	}
	errs = append(errs, b.EndSession())

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("import of session %s: %w", s.ID, err)
	}
	return nil
}

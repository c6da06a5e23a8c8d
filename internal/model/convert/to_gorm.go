// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/internal/model"
	"github.com/starlance/firecontrol/pkg/core"
	"gonum.org/v1/gonum/spatial/r3"
	"gorm.io/datatypes"
)

func vecToModel(v r3.Vec) model.Vec3 {
	return model.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// tuningToJSON converts a tuning snapshot to datatypes.JSON for DB storage.
func tuningToJSON(tuning map[string]any) datatypes.JSON {
	if len(tuning) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(tuning)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// wallTime places a simulation timestamp on the session's wall clock.
func wallTime(start time.Time, simTime time.Duration) time.Time {
	return start.Add(simTime)
}

// CoreToSession converts a core.Session to a GORM model.Session.
// core.Session.ID maps to GORM Session.UUID.
func CoreToSession(s core.Session) model.Session {
	var end sql.NullTime
	if !s.EndTime.IsZero() {
		end = sql.NullTime{Time: s.EndTime, Valid: true}
	}
	return model.Session{
		UUID:             s.ID,
		Name:             s.Name,
		Scenario:         s.Scenario,
		Tag:              s.Tag,
		StartTime:        s.StartTime,
		EndTime:          end,
		TickRateMs:       float64(s.TickRate) / float64(time.Millisecond),
		ExtensionVersion: s.ExtensionVersion,
		Tuning:           tuningToJSON(s.Tuning),
	}
}

// CoreToLockEvent converts a core.LockEvent to a GORM model.LockEvent.
func CoreToLockEvent(e core.LockEvent, sessionID uint, start time.Time) model.LockEvent {
	return model.LockEvent{
		Time:      wallTime(start, e.SimTime),
		SessionID: sessionID,
		SimTimeMs: e.SimTime.Milliseconds(),
		Source:    e.Source,
		TargetID:  e.TargetID,
		FromState: e.From.String(),
		ToState:   e.To.String(),
	}
}

// CoreToTriggerPulse converts a core.TriggerPulse to a GORM model.TriggerPulse.
func CoreToTriggerPulse(p core.TriggerPulse, sessionID uint, start time.Time) model.TriggerPulse {
	return model.TriggerPulse{
		Time:      wallTime(start, p.SimTime),
		SessionID: sessionID,
		SimTimeMs: p.SimTime.Milliseconds(),
		Source:    p.Source,
		Sequence:  p.Sequence,
	}
}

// CoreToSteeringSample converts a core.SteeringSample to a GORM model.SteeringSample.
func CoreToSteeringSample(s core.SteeringSample, sessionID uint, start time.Time) model.SteeringSample {
	return model.SteeringSample{
		Time:      wallTime(start, s.SimTime),
		SessionID: sessionID,
		SimTimeMs: s.SimTime.Milliseconds(),
		Entity:    s.Entity,
		Position:  vecToModel(s.Position),
		Aim:       vecToModel(s.Aim),
		Error:     vecToModel(s.Error),
		Output:    vecToModel(s.Output),
	}
}

// CoreToDetonation converts a core.DetonationEvent to a GORM model.Detonation.
func CoreToDetonation(e core.DetonationEvent, sessionID uint, start time.Time) model.Detonation {
	return model.Detonation{
		Time:      wallTime(start, e.SimTime),
		SessionID: sessionID,
		SimTimeMs: e.SimTime.Milliseconds(),
		Entity:    e.Entity,
		State:     e.State.String(),
		Position:  vecToModel(e.Position),
	}
}

// CoreToFlightPath converts a core.FlightPath to a GORM model.FlightPath.
// The trajectory is encoded as a WKT LINESTRING Z; paths with fewer than two
// points cannot form a line and return an error.
func CoreToFlightPath(p core.FlightPath, sessionID uint, start time.Time) (model.FlightPath, error) {
	wkt, length, err := geo.FlightPathWKT(p.Points)
	if err != nil {
		return model.FlightPath{}, err
	}
	return model.FlightPath{
		Time:        wallTime(start, p.End),
		SessionID:   sessionID,
		Entity:      p.Entity,
		StartTimeMs: p.Start.Milliseconds(),
		EndTimeMs:   p.End.Milliseconds(),
		PointCount:  len(p.Points),
		Length:      length,
		Path:        wkt,
	}, nil
}

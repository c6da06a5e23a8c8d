package convert

import (
	"encoding/json"
	"time"

	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/internal/model"
	"github.com/starlance/firecontrol/pkg/core"
	"gonum.org/v1/gonum/spatial/r3"
)

var lockStates = map[string]core.LockState{
	core.NoLock.String():  core.NoLock,
	core.Locking.String(): core.Locking,
	core.Locked.String():  core.Locked,
}

var detonationStates = map[string]core.DetonationState{
	core.DetonationReset.String(): core.DetonationReset,
	core.Detonating.String():      core.Detonating,
	core.Detonated.String():       core.Detonated,
}

func vecToCore(v model.Vec3) r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// SessionToCore converts a GORM model.Session to a core.Session.
func SessionToCore(s model.Session) core.Session {
	out := core.Session{
		ID:               s.UUID,
		Name:             s.Name,
		Scenario:         s.Scenario,
		Tag:              s.Tag,
		StartTime:        s.StartTime,
		TickRate:         time.Duration(s.TickRateMs * float64(time.Millisecond)),
		ExtensionVersion: s.ExtensionVersion,
	}
	if s.EndTime.Valid {
		out.EndTime = s.EndTime.Time
	}
	if len(s.Tuning) > 0 {
		var tuning map[string]any
		if err := json.Unmarshal(s.Tuning, &tuning); err == nil && len(tuning) > 0 {
			out.Tuning = tuning
		}
	}
	return out
}

// LockEventToCore converts a GORM model.LockEvent to a core.LockEvent.
// Unknown state names map to NoLock.
func LockEventToCore(e model.LockEvent) core.LockEvent {
	return core.LockEvent{
		SimTime:  msToDuration(e.SimTimeMs),
		Source:   e.Source,
		TargetID: e.TargetID,
		From:     lockStates[e.FromState],
		To:       lockStates[e.ToState],
	}
}

// TriggerPulseToCore converts a GORM model.TriggerPulse to a core.TriggerPulse.
func TriggerPulseToCore(p model.TriggerPulse) core.TriggerPulse {
	return core.TriggerPulse{
		SimTime:  msToDuration(p.SimTimeMs),
		Source:   p.Source,
		Sequence: p.Sequence,
	}
}

// SteeringSampleToCore converts a GORM model.SteeringSample to a core.SteeringSample.
func SteeringSampleToCore(s model.SteeringSample) core.SteeringSample {
	return core.SteeringSample{
		SimTime:  msToDuration(s.SimTimeMs),
		Entity:   s.Entity,
		Position: vecToCore(s.Position),
		Aim:      vecToCore(s.Aim),
		Error:    vecToCore(s.Error),
		Output:   vecToCore(s.Output),
	}
}

// DetonationToCore converts a GORM model.Detonation to a core.DetonationEvent.
func DetonationToCore(d model.Detonation) core.DetonationEvent {
	return core.DetonationEvent{
		SimTime:  msToDuration(d.SimTimeMs),
		Entity:   d.Entity,
		State:    detonationStates[d.State],
		Position: vecToCore(d.Position),
	}
}

// FlightPathToCore converts a GORM model.FlightPath to a core.FlightPath,
// decoding the stored WKT.
func FlightPathToCore(p model.FlightPath) (core.FlightPath, error) {
	points, err := geo.ParseFlightPathWKT(p.Path)
	if err != nil {
		return core.FlightPath{}, err
	}
	return core.FlightPath{
		Entity: p.Entity,
		Start:  msToDuration(p.StartTimeMs),
		End:    msToDuration(p.EndTimeMs),
		Points: points,
	}, nil
}

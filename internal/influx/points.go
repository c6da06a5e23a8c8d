package influx

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/starlance/firecontrol/pkg/core"
)

// Measurement names.
const (
	MeasurementSteering   = "steering"
	MeasurementPulse      = "pulse"
	MeasurementLock       = "lock"
	MeasurementDetonation = "detonation"
)

// Points are stamped with wall time: session start plus simulation time.

// SteeringPoint records one guidance tick.
func SteeringPoint(session string, start time.Time, s core.SteeringSample) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementSteering,
		map[string]string{"session": session, "entity": s.Entity},
		map[string]any{
			"pos_x": s.Position.X, "pos_y": s.Position.Y, "pos_z": s.Position.Z,
			"err_x": s.Error.X, "err_y": s.Error.Y, "err_z": s.Error.Z,
			"out_x": s.Output.X, "out_y": s.Output.Y, "out_z": s.Output.Z,
		},
		start.Add(s.SimTime))
}

// PulsePoint records one trigger pulse.
func PulsePoint(session string, start time.Time, p core.TriggerPulse) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementPulse,
		map[string]string{"session": session, "source": p.Source},
		map[string]any{"sequence": p.Sequence},
		start.Add(p.SimTime))
}

// LockPoint records a lock state transition.
func LockPoint(session string, start time.Time, e core.LockEvent) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementLock,
		map[string]string{"session": session, "source": e.Source, "target": e.TargetID},
		map[string]any{"from": e.From.String(), "to": e.To.String(), "locked": e.To == core.Locked},
		start.Add(e.SimTime))
}

// DetonationPoint records a detonator state change.
func DetonationPoint(session string, start time.Time, e core.DetonationEvent) *influxdb2_write.Point {
	return influxdb2.NewPoint(MeasurementDetonation,
		map[string]string{"session": session, "entity": e.Entity},
		map[string]any{"state": e.State.String(), "pos_x": e.Position.X, "pos_y": e.Position.Y, "pos_z": e.Position.Z},
		start.Add(e.SimTime))
}

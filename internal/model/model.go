package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&LockEvent{},
	&TriggerPulse{},
	&SteeringSample{},
	&Detonation{},
	&FlightPath{},
	&RecorderPerformance{},
}

////////////////////////
// SESSION
////////////////////////

// Session is one recorded simulation run
type Session struct {
	gorm.Model
	UUID             string         `json:"uuid" gorm:"size:36;uniqueIndex"`
	Name             string         `json:"name" gorm:"size:127"`
	Scenario         string         `json:"scenario" gorm:"size:127"`
	Tag              string         `json:"tag" gorm:"size:64"`
	StartTime        time.Time      `json:"startTime"`
	EndTime          sql.NullTime   `json:"endTime"`
	TickRateMs       float64        `json:"tickRateMs"`
	ExtensionVersion string         `json:"extensionVersion" gorm:"size:64"`
	Tuning           datatypes.JSON `json:"tuning"`
}

func (*Session) TableName() string {
	return "sessions"
}

////////////////////////
// EVENT DATA
////////////////////////

// Vec3 is an embedded x/y/z column triple
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LockEvent is a target locker state transition
type LockEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_lockevent_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	SimTimeMs int64     `json:"simTimeMs" gorm:"index:idx_lockevent_simtime"`
	Source    string    `json:"source" gorm:"size:64"`
	TargetID  string    `json:"targetId" gorm:"size:64"`
	FromState string    `json:"fromState" gorm:"size:16"`
	ToState   string    `json:"toState" gorm:"size:16"`
}

func (*LockEvent) TableName() string {
	return "lock_events"
}

// TriggerPulse is one discrete firing action of a weapon
type TriggerPulse struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_triggerpulse_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	SimTimeMs int64     `json:"simTimeMs" gorm:"index:idx_triggerpulse_simtime"`
	Source    string    `json:"source" gorm:"size:64"`
	Sequence  uint64    `json:"sequence"`
}

func (*TriggerPulse) TableName() string {
	return "trigger_pulses"
}

// SteeringSample is one guidance tick of a steered entity
type SteeringSample struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_steeringsample_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	SimTimeMs int64     `json:"simTimeMs" gorm:"index:idx_steeringsample_simtime"`
	Entity    string    `json:"entity" gorm:"size:64;index:idx_steeringsample_entity"`
	Position  Vec3      `json:"position" gorm:"embedded;embeddedPrefix:pos_"`
	Aim       Vec3      `json:"aim" gorm:"embedded;embeddedPrefix:aim_"`
	Error     Vec3      `json:"error" gorm:"embedded;embeddedPrefix:err_"`
	Output    Vec3      `json:"output" gorm:"embedded;embeddedPrefix:out_"`
}

func (*SteeringSample) TableName() string {
	return "steering_samples"
}

// Detonation is a detonator state change
type Detonation struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_detonation_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	SimTimeMs int64     `json:"simTimeMs"`
	Entity    string    `json:"entity" gorm:"size:64"`
	State     string    `json:"state" gorm:"size:16"`
	Position  Vec3      `json:"position" gorm:"embedded;embeddedPrefix:pos_"`
}

func (*Detonation) TableName() string {
	return "detonations"
}

// FlightPath is the sampled trajectory of one entity, stored as WKT LINESTRING Z
type FlightPath struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time"`
	SessionID   uint      `json:"sessionId" gorm:"index:idx_flightpath_session_id"`
	Session     Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Entity      string    `json:"entity" gorm:"size:64"`
	StartTimeMs int64     `json:"startTimeMs"`
	EndTimeMs   int64     `json:"endTimeMs"`
	PointCount  int       `json:"pointCount"`
	Length      float64   `json:"length"`
	Path        string    `json:"path" gorm:"type:text"`
}

func (*FlightPath) TableName() string {
	return "flight_paths"
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// RecorderPerformance is a periodic snapshot of recorder throughput
type RecorderPerformance struct {
	Time                time.Time         `json:"time" gorm:"index:idx_time"`
	SessionID           uint              `json:"sessionId" gorm:"index:idx_recorderperformance_session_id"`
	Session             Session           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	BufferLengths       BufferLengths     `json:"bufferLengths" gorm:"embedded;embeddedPrefix:buffer_"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
}

func (*RecorderPerformance) TableName() string {
	return "recorder_performances"
}

// BufferLengths are the dispatcher buffer sizes per command
type BufferLengths struct {
	LockEvents      int `json:"lockEvents"`
	TriggerPulses   int `json:"triggerPulses"`
	SteeringSamples int `json:"steeringSamples"`
	Detonations     int `json:"detonations"`
	FlightPaths     int `json:"flightPaths"`
}

// WriteQueueLengths are the pending database write queue sizes
type WriteQueueLengths struct {
	LockEvents      int `json:"lockEvents"`
	TriggerPulses   int `json:"triggerPulses"`
	SteeringSamples int `json:"steeringSamples"`
	Detonations     int `json:"detonations"`
	FlightPaths     int `json:"flightPaths"`
}

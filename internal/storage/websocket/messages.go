package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/pkg/core"
)

// Message types carried in Envelope.Type.
const (
	TypeStartSession   = "start_session"
	TypeEndSession     = "end_session"
	TypeLockEvent      = "lock_event"
	TypeTriggerPulse   = "trigger_pulse"
	TypeSteeringSample = "steering_sample"
	TypeDetonation     = "detonation"
	TypeFlightPath     = "flight_path"

	typeAck = "ack"
)

// Envelope wraps every message sent to the stream server.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Ack is the server's reply to start_session and end_session.
type Ack struct {
	Type string `json:"type"`
	For  string `json:"for"`
}

// Times on the wire are simulation milliseconds.
func millis(d time.Duration) int64 { return d.Milliseconds() }

type vec [3]float64

func toVec(v r3.Vec) vec { return vec{v.X, v.Y, v.Z} }

type sessionPayload struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Scenario  string         `json:"scenario"`
	Tag       string         `json:"tag,omitempty"`
	StartTime time.Time      `json:"startTime"`
	TickRate  int64          `json:"tickRateMs"`
	Version   string         `json:"version,omitempty"`
	Tuning    map[string]any `json:"tuning,omitempty"`
}

type lockPayload struct {
	SimTime  int64  `json:"t"`
	Source   string `json:"source"`
	TargetID string `json:"target"`
	From     string `json:"from"`
	To       string `json:"to"`
}

type pulsePayload struct {
	SimTime  int64  `json:"t"`
	Source   string `json:"source"`
	Sequence uint64 `json:"seq"`
}

type steeringPayload struct {
	SimTime  int64  `json:"t"`
	Entity   string `json:"entity"`
	Position vec    `json:"pos"`
	Aim      vec    `json:"aim"`
	Error    vec    `json:"err"`
	Output   vec    `json:"out"`
}

type detonationPayload struct {
	SimTime  int64  `json:"t"`
	Entity   string `json:"entity"`
	State    string `json:"state"`
	Position vec    `json:"pos"`
}

type pathPayload struct {
	Entity string `json:"entity"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
	Points []vec  `json:"points"`
}

func sessionMessage(s *core.Session) sessionPayload {
	return sessionPayload{
		ID:        s.ID,
		Name:      s.Name,
		Scenario:  s.Scenario,
		Tag:       s.Tag,
		StartTime: s.StartTime.UTC(),
		TickRate:  millis(s.TickRate),
		Version:   s.ExtensionVersion,
		Tuning:    s.Tuning,
	}
}

func pathMessage(p *core.FlightPath) pathPayload {
	points := make([]vec, len(p.Points))
	for i, pt := range p.Points {
		points[i] = toVec(pt)
	}
	return pathPayload{Entity: p.Entity, Start: millis(p.Start), End: millis(p.End), Points: points}
}

// encode builds the JSON envelope for one message.
func encode(msgType string, payload any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

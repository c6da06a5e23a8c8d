// Package websocket streams engagement events live to a remote viewer.
package websocket

import (
	"log/slog"
	"time"

	"github.com/starlance/firecontrol/pkg/core"
)

// Config holds stream backend configuration.
type Config struct {
	URL        string
	Secret     string
	AckTimeout time.Duration // default 10s
	Backoff    time.Duration // first reconnect delay, default 1s
}

// Backend sends every recorded event to the stream server as it happens.
// Nothing is kept locally, so it produces no upload file.
type Backend struct {
	conn       *connection
	ackTimeout time.Duration
}

func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 10 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	return &Backend{
		conn:       newConnection(cfg.URL, cfg.Secret, cfg.Backoff, logger.With("component", "stream")),
		ackTimeout: cfg.AckTimeout,
	}
}

// Init connects to the stream server.
func (b *Backend) Init() error {
	return b.conn.open()
}

func (b *Backend) Close() error {
	return b.conn.close()
}

// StartSession announces the session and waits for the server to accept
// it. The message is replayed after every reconnect until EndSession.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := encode(TypeStartSession, sessionMessage(s))
	if err != nil {
		return err
	}
	b.conn.setReplay(data)
	return b.conn.sendAndWait(data, TypeStartSession, b.ackTimeout)
}

// EndSession waits for the server to confirm it received everything sent
// before it.
func (b *Backend) EndSession() error {
	data, err := encode(TypeEndSession, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, TypeEndSession, b.ackTimeout)
	b.conn.setReplay(nil)
	return err
}

func (b *Backend) RecordLockEvent(e *core.LockEvent) error {
	return b.send(TypeLockEvent, lockPayload{
		SimTime:  millis(e.SimTime),
		Source:   e.Source,
		TargetID: e.TargetID,
		From:     e.From.String(),
		To:       e.To.String(),
	})
}

func (b *Backend) RecordTriggerPulse(p *core.TriggerPulse) error {
	return b.send(TypeTriggerPulse, pulsePayload{SimTime: millis(p.SimTime), Source: p.Source, Sequence: p.Sequence})
}

func (b *Backend) RecordSteeringSample(s *core.SteeringSample) error {
	return b.send(TypeSteeringSample, steeringPayload{
		SimTime:  millis(s.SimTime),
		Entity:   s.Entity,
		Position: toVec(s.Position),
		Aim:      toVec(s.Aim),
		Error:    toVec(s.Error),
		Output:   toVec(s.Output),
	})
}

func (b *Backend) RecordDetonation(e *core.DetonationEvent) error {
	return b.send(TypeDetonation, detonationPayload{
		SimTime:  millis(e.SimTime),
		Entity:   e.Entity,
		State:    e.State.String(),
		Position: toVec(e.Position),
	})
}

func (b *Backend) RecordFlightPath(p *core.FlightPath) error {
	return b.send(TypeFlightPath, pathMessage(p))
}

// WriteQueueLengths reports messages waiting for the socket.
func (b *Backend) WriteQueueLengths() map[string]int {
	return map[string]int{"stream": b.conn.pending()}
}

// Dropped is the number of messages discarded because the queue was full.
func (b *Backend) Dropped() int64 {
	return b.conn.dropped.Load()
}

func (b *Backend) send(msgType string, payload any) error {
	if !b.conn.inSession() {
		return core.ErrNoSession
	}
	data, err := encode(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

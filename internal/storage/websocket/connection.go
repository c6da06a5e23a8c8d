package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

const (
	sendQueueSize = 10_000
	ackQueueSize  = 16
	maxReconnect  = 10
	maxBackoff    = 30 * time.Second
	writeWait     = 10 * time.Second
)

var errClosed = errors.New("stream closed")

// connection owns one websocket at a time. A single goroutine writes queued
// messages and redials when the socket drops, replaying the start message
// so the server can resume the session.
type connection struct {
	url     string
	secret  string
	backoff time.Duration
	log     *slog.Logger

	queue   chan []byte
	acks    chan Ack
	dropped atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	started bool
	replay  []byte
}

func newConnection(rawURL, secret string, backoff time.Duration, log *slog.Logger) *connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{
		url:     rawURL,
		secret:  secret,
		backoff: backoff,
		log:     log,
		queue:   make(chan []byte, sendQueueSize),
		acks:    make(chan Ack, ackQueueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// open dials once and starts the writer. A failed first dial is an error;
// later drops are retried in the background.
func (c *connection) open() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	go c.run(conn)
	return nil
}

func (c *connection) dial() (*websocket.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("invalid stream URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	ctx, cancel := context.WithTimeout(c.ctx, writeWait)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("stream dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) run(conn *websocket.Conn) {
	defer close(c.done)
	for {
		err := c.pump(conn)
		if c.ctx.Err() != nil {
			return
		}
		c.log.Warn("Stream connection lost", "error", err)
		if conn = c.redial(); conn == nil {
			return
		}
	}
}

// pump writes queued messages until the socket fails or the connection is
// closed. Acks are read on a second goroutine since coder/websocket allows
// only one reader.
func (c *connection) pump(conn *websocket.Conn) error {
	readErr := make(chan error, 1)
	go func() { readErr <- c.readAcks(conn) }()

	for {
		select {
		case <-c.ctx.Done():
			return conn.Close(websocket.StatusNormalClosure, "session closed")
		case err := <-readErr:
			conn.CloseNow()
			return err
		case data := <-c.queue:
			if err := write(conn, data); err != nil {
				conn.CloseNow()
				return err
			}
		}
	}
}

func write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func (c *connection) readAcks(conn *websocket.Conn) error {
	for {
		_, msg, err := conn.Read(context.Background())
		if err != nil {
			return err
		}
		var ack Ack
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != typeAck {
			c.log.Debug("Ignoring stream message", "raw", string(msg))
			continue
		}
		select {
		case c.acks <- ack:
		default:
			c.log.Debug("Ack queue full, dropping", "for", ack.For)
		}
	}
}

// redial retries with exponential backoff and replays the start message on
// the new socket. It returns nil when the attempts run out or the
// connection is closed.
func (c *connection) redial() *websocket.Conn {
	backoff := c.backoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-c.ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)

		conn, err := c.dial()
		if err != nil {
			c.log.Warn("Stream redial failed", "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		replay := c.replay
		c.mu.Unlock()
		if replay != nil {
			if err := write(conn, replay); err != nil {
				c.log.Warn("Failed to replay session start", "attempt", attempt, "error", err)
				conn.CloseNow()
				continue
			}
		}
		c.log.Info("Stream reconnected", "attempt", attempt)
		return conn
	}
	c.log.Error("Stream reconnect failed, giving up", "attempts", maxReconnect)
	return nil
}

// send queues data without blocking. Messages are dropped when the queue
// is full.
func (c *connection) send(data []byte) {
	select {
	case c.queue <- data:
	default:
		if c.dropped.Add(1) == 1 {
			c.log.Warn("Stream send queue full, dropping messages")
		}
	}
}

// sendAndWait queues data and waits for the matching ack.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-c.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("waiting for ack of %q: %w", ackFor, errClosed)
		}
	}
}

func (c *connection) setReplay(data []byte) {
	c.mu.Lock()
	c.replay = data
	c.mu.Unlock()
}

func (c *connection) inSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replay != nil
}

func (c *connection) pending() int {
	return len(c.queue)
}

// close sends a close frame and waits for the writer to exit.
func (c *connection) close() error {
	c.cancel()
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
	return nil
}

package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/pkg/core"
)

// viewer is a stream server that records envelopes and acks session
// boundaries. With dropFirst set it hangs up right after acking the first
// start_session.
type viewer struct {
	secret    string
	noAck     bool
	dropFirst bool

	conns atomic.Int32
	mu    sync.Mutex
	seen  []Envelope
}

func (v *viewer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("secret") != v.secret {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer c.CloseNow()
	n := v.conns.Add(1)

	ctx := r.Context()
	for {
		var env Envelope
		if err := wsjson.Read(ctx, c, &env); err != nil {
			return
		}
		v.mu.Lock()
		v.seen = append(v.seen, env)
		v.mu.Unlock()

		if v.noAck || (env.Type != TypeStartSession && env.Type != TypeEndSession) {
			continue
		}
		if err := wsjson.Write(ctx, c, Ack{Type: typeAck, For: env.Type}); err != nil {
			return
		}
		if v.dropFirst && n == 1 {
			c.Close(websocket.StatusGoingAway, "restarting")
			return
		}
	}
}

func (v *viewer) types() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.seen))
	for i, env := range v.seen {
		out[i] = env.Type
	}
	return out
}

func (v *viewer) payload(t *testing.T, msgType string, into any) {
	t.Helper()
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, env := range v.seen {
		if env.Type == msgType {
			require.NoError(t, json.Unmarshal(env.Payload, into))
			return
		}
	}
	t.Fatalf("no %s message received", msgType)
}

func startViewer(t *testing.T, v *viewer) string {
	t.Helper()
	srv := httptest.NewServer(v)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testSession() *core.Session {
	return &core.Session{
		ID:        "5f0c6a1e-2b7d-4c3e-8a9f-1d2e3f4a5b6c",
		Name:      "duel at noon",
		Scenario:  "duel",
		StartTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		TickRate:  20 * time.Millisecond,
	}
}

func TestBackend_StreamsSession(t *testing.T) {
	v := &viewer{secret: "s3cret"}
	b := New(Config{URL: startViewer(t, v), Secret: "s3cret"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.RecordLockEvent(&core.LockEvent{
		SimTime: 1500 * time.Millisecond, Source: "ship", TargetID: "drone", From: core.Locking, To: core.Locked,
	}))
	require.NoError(t, b.RecordTriggerPulse(&core.TriggerPulse{SimTime: 2 * time.Second, Source: "ship-turret", Sequence: 3}))
	require.NoError(t, b.RecordSteeringSample(&core.SteeringSample{SimTime: 2 * time.Second, Entity: "missile-1", Output: r3.Vec{X: 0.5}}))
	require.NoError(t, b.RecordDetonation(&core.DetonationEvent{SimTime: 6 * time.Second, Entity: "missile-1", State: core.Detonated}))
	require.NoError(t, b.RecordFlightPath(&core.FlightPath{Entity: "drone", End: 10 * time.Second, Points: []r3.Vec{{Z: 600}, {Z: 700}}}))
	require.NoError(t, b.EndSession())

	assert.Equal(t, []string{
		TypeStartSession, TypeLockEvent, TypeTriggerPulse, TypeSteeringSample,
		TypeDetonation, TypeFlightPath, TypeEndSession,
	}, v.types())

	var lock lockPayload
	v.payload(t, TypeLockEvent, &lock)
	assert.Equal(t, lockPayload{SimTime: 1500, Source: "ship", TargetID: "drone", From: "locking", To: "locked"}, lock)

	var path pathPayload
	v.payload(t, TypeFlightPath, &path)
	assert.Equal(t, int64(10000), path.End)
	assert.Equal(t, []vec{{0, 0, 600}, {0, 0, 700}}, path.Points)

	var start sessionPayload
	v.payload(t, TypeStartSession, &start)
	assert.Equal(t, "duel", start.Scenario)
	assert.Equal(t, int64(20), start.TickRate)
}

func TestBackend_RecordOutsideSession(t *testing.T) {
	v := &viewer{}
	b := New(Config{URL: startViewer(t, v)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.ErrorIs(t, b.RecordLockEvent(&core.LockEvent{}), core.ErrNoSession)

	require.NoError(t, b.StartSession(testSession()))
	require.NoError(t, b.EndSession())
	assert.ErrorIs(t, b.RecordTriggerPulse(&core.TriggerPulse{}), core.ErrNoSession)
}

func TestBackend_AckTimeout(t *testing.T) {
	v := &viewer{noAck: true}
	b := New(Config{URL: startViewer(t, v), AckTimeout: 50 * time.Millisecond}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	err := b.StartSession(testSession())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout waiting for ack")
}

func TestBackend_ReconnectReplaysStart(t *testing.T) {
	v := &viewer{dropFirst: true}
	b := New(Config{URL: startViewer(t, v), Backoff: 10 * time.Millisecond}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(testSession()))
	require.Eventually(t, func() bool { return v.conns.Load() == 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, b.RecordLockEvent(&core.LockEvent{Source: "ship", To: core.Locking}))
	require.NoError(t, b.EndSession())

	assert.Equal(t, []string{TypeStartSession, TypeStartSession, TypeLockEvent, TypeEndSession}, v.types())
}

func TestBackend_InitErrors(t *testing.T) {
	v := &viewer{secret: "right"}
	b := New(Config{URL: startViewer(t, v), Secret: "wrong"}, nil)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())

	assert.Error(t, New(Config{URL: "://bad"}, nil).Init())
}

func TestBackend_CloseUnblocksWaiters(t *testing.T) {
	v := &viewer{noAck: true}
	b := New(Config{URL: startViewer(t, v), AckTimeout: time.Minute}, nil)
	require.NoError(t, b.Init())

	errc := make(chan error, 1)
	go func() { errc <- b.StartSession(testSession()) }()
	require.Eventually(t, func() bool { return len(v.types()) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, b.Close())
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, errClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("StartSession still waiting after Close")
	}
}

func TestBackend_QueueLengths(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1"}, nil)
	assert.Equal(t, map[string]int{"stream": 0}, b.WriteQueueLengths())
	assert.Zero(t, b.Dropped())
}

package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starlance/firecontrol/internal/config"
	"github.com/starlance/firecontrol/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func testSession() *core.Session {
	return &core.Session{
		ID:               "3e1f0c6a-7d2b-4b8e-a5c9-0f4d6e2a8b1c",
		Name:             "Intercept Drill: 1",
		Scenario:         "duel",
		Tag:              "Test",
		StartTime:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		TickRate:         20 * time.Millisecond,
		ExtensionVersion: "1.0.0",
	}
}

func recordSample(t *testing.T, b *Backend) {
	t.Helper()
	require.NoError(t, b.RecordLockEvent(&core.LockEvent{
		SimTime: time.Second, Source: "ship", TargetID: "drone", From: core.NoLock, To: core.Locking,
	}))
	require.NoError(t, b.RecordTriggerPulse(&core.TriggerPulse{SimTime: 1500 * time.Millisecond, Source: "launcher", Sequence: 1}))
	require.NoError(t, b.RecordSteeringSample(&core.SteeringSample{
		SimTime: 1520 * time.Millisecond, Entity: "missile-1", Position: r3.Vec{Z: 5}, Output: r3.Vec{Y: 0.5},
	}))
	require.NoError(t, b.RecordDetonation(&core.DetonationEvent{
		SimTime: 4 * time.Second, Entity: "missile-1", State: core.Detonated, Position: r3.Vec{Z: 300},
	}))
	require.NoError(t, b.RecordFlightPath(&core.FlightPath{
		Entity: "missile-1", Start: 1500 * time.Millisecond, End: 4 * time.Second,
		Points: []r3.Vec{{Z: 5}, {Z: 300}},
	}))
}

func TestRecordWithoutSession(t *testing.T) {
	b := New(config.MemoryConfig{})

	assert.ErrorIs(t, b.RecordLockEvent(&core.LockEvent{}), core.ErrNoSession)
	assert.ErrorIs(t, b.RecordTriggerPulse(&core.TriggerPulse{}), core.ErrNoSession)
	assert.ErrorIs(t, b.RecordSteeringSample(&core.SteeringSample{}), core.ErrNoSession)
	assert.ErrorIs(t, b.RecordDetonation(&core.DetonationEvent{}), core.ErrNoSession)
	assert.ErrorIs(t, b.RecordFlightPath(&core.FlightPath{}), core.ErrNoSession)
	assert.ErrorIs(t, b.EndSession(), core.ErrNoSession)
}

func TestRecordAndQuery(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.Init())
	require.NoError(t, b.StartSession(testSession()))

	recordSample(t, b)

	assert.Len(t, b.LockEvents(), 1)
	assert.Len(t, b.TriggerPulses(), 1)
	assert.Len(t, b.Detonations(), 1)

	rec, ok := b.GetEntity("missile-1")
	require.True(t, ok)
	assert.Len(t, rec.Steering, 1)
	require.NotNil(t, rec.Path)
	assert.Len(t, rec.Path.Points, 2)

	_, ok = b.GetEntity("drone")
	assert.False(t, ok)
}

func TestRecordFlightPath_CopiesPoints(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartSession(testSession()))

	points := []r3.Vec{{X: 1}, {X: 2}}
	require.NoError(t, b.RecordFlightPath(&core.FlightPath{Entity: "drone", Points: points}))
	points[0].X = 99

	rec, _ := b.GetEntity("drone")
	assert.Equal(t, 1.0, rec.Path.Points[0].X)
}

func TestStartSessionResets(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.StartSession(testSession()))
	recordSample(t, b)

	require.NoError(t, b.StartSession(testSession()))

	assert.Empty(t, b.LockEvents())
	assert.Empty(t, b.TriggerPulses())
	_, ok := b.GetEntity("missile-1")
	assert.False(t, ok)
}

func TestEndSession_ExportsJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: false})
	require.NoError(t, b.StartSession(testSession()))
	recordSample(t, b)

	require.NoError(t, b.EndSession())

	path := b.GetExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "Intercept_Drill__1_20260301_120000.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var export SessionExport
	require.NoError(t, json.Unmarshal(raw, &export))

	assert.Equal(t, "duel", export.Scenario)
	assert.Equal(t, 20.0, export.TickRateMs)
	assert.Equal(t, int64(4000), export.EndTimeMs)
	require.Len(t, export.Entities, 1)
	assert.Equal(t, "missile-1", export.Entities[0].Name)
	require.NotNil(t, export.Entities[0].Path)
	assert.InDelta(t, 295.0, export.Entities[0].Path.Length, 1e-9)
	assert.Contains(t, export.Entities[0].Path.WKT, "LINESTRING Z")
	require.Len(t, export.Locks, 1)
	assert.Equal(t, "locking", export.Locks[0][4])
	require.Len(t, export.Pulses, 1)
	require.Len(t, export.Detonations, 1)
	assert.Equal(t, "detonated", export.Detonations[0][2])

	meta := b.GetExportMetadata()
	assert.Equal(t, "Intercept Drill: 1", meta.SessionName)
	assert.Equal(t, 4*time.Second, meta.Duration)
	assert.Equal(t, "Test", meta.Tag)
}

func TestEndSession_Gzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.StartSession(testSession()))
	recordSample(t, b)
	require.NoError(t, b.EndSession())

	path := b.GetExportedFilePath()
	assert.Equal(t, ".gz", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export SessionExport
	require.NoError(t, json.NewDecoder(gr).Decode(&export))
	assert.Equal(t, "3e1f0c6a-7d2b-4b8e-a5c9-0f4d6e2a8b1c", export.SessionID)
}

func TestExportFileName_EmptyName(t *testing.T) {
	s := testSession()
	s.Name = ""
	assert.Equal(t, "session_20260301_120000.json", exportFileName(s, false))
}

package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/starlance/firecontrol/internal/config"
	"github.com/starlance/firecontrol/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{Enabled: false})
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
}

func TestConnect_FallsBackToBackupFile(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.lp.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:    true,
		Host:       "127.0.0.1",
		Port:       "1",
		Protocol:   "http",
		Org:        "firecontrol",
		Bucket:     "engagements",
		BackupPath: backup,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)

	require.NoError(t, m.WritePoint(PulsePoint("s1", start, core.TriggerPulse{
		SimTime: 1500 * time.Millisecond, Source: "turret", Sequence: 3,
	})))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)

	line := strings.TrimSpace(string(body))
	assert.True(t, strings.HasPrefix(line, "pulse,"), line)
	assert.Contains(t, line, "source=turret")
	assert.Contains(t, line, "sequence=3u")
}

func TestWritePoint_NoWriter(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.Error(t, m.WritePoint(PulsePoint("s1", start, core.TriggerPulse{})))
}

func TestSteeringPoint(t *testing.T) {
	p := SteeringPoint("s1", start, core.SteeringSample{
		SimTime: 2 * time.Second, Entity: "missile-1",
		Position: r3.Vec{Z: 100}, Error: r3.Vec{X: 0.5}, Output: r3.Vec{Y: -0.25},
	})

	assert.Equal(t, MeasurementSteering, p.Name())
	assert.Equal(t, start.Add(2*time.Second), p.Time())
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.Contains(t, line, "entity=missile-1")
	assert.Contains(t, line, "pos_z=100")
	assert.Contains(t, line, "out_y=-0.25")
}

func TestLockPoint(t *testing.T) {
	p := LockPoint("s1", start, core.LockEvent{
		SimTime: time.Second, Source: "ship", TargetID: "drone", From: core.Locking, To: core.Locked,
	})

	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.Contains(t, line, "target=drone")
	assert.Contains(t, line, `to="locked"`)
	assert.Contains(t, line, "locked=true")
}

func TestDetonationPoint(t *testing.T) {
	p := DetonationPoint("s1", start, core.DetonationEvent{
		SimTime: 6 * time.Second, Entity: "missile-1", State: core.Detonated, Position: r3.Vec{X: 1},
	})

	assert.Equal(t, MeasurementDetonation, p.Name())
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.Contains(t, line, `state="detonated"`)
}

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// redirectStdout points the fallback sink at a buffer for the test.
func redirectStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestSetup_FileSink(t *testing.T) {
	out := redirectStdout(t)

	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &file, Level: "info"})
	m.Logger().Info("turret locked")

	assert.Contains(t, file.String(), "turret locked")
	assert.Empty(t, out.String())
}

func TestSetup_StdoutWithoutFile(t *testing.T) {
	out := redirectStdout(t)

	m := NewSlogManager()
	m.Setup(Options{Level: "info"})
	m.Logger().Info("no file configured")

	assert.Contains(t, out.String(), "no file configured")
}

func TestSetup_Levels(t *testing.T) {
	var debug, info bytes.Buffer
	d := NewSlogManager()
	d.Setup(Options{File: &debug, Level: "debug"})
	i := NewSlogManager()
	i.Setup(Options{File: &info, Level: "INFO"})

	for _, m := range []*SlogManager{d, i} {
		m.Logger().Debug("pid output")
		m.Logger().Info("pulse")
	}

	assert.Contains(t, debug.String(), "pid output")
	assert.NotContains(t, info.String(), "pid output")
	assert.Contains(t, info.String(), "pulse")
}

func TestSetup_Reconfigure(t *testing.T) {
	var early, late bytes.Buffer
	m := NewSlogManager()

	m.Setup(Options{File: &early})
	before := m.Logger()
	m.Setup(Options{File: &late})
	m.Logger().Info("after config")
	before.Info("stale logger")

	assert.NotContains(t, early.String(), "after config")
	assert.Contains(t, early.String(), "stale logger")
	assert.Contains(t, late.String(), "after config")
}

func TestSetup_TimesInUTC(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &buf})

	assert.Regexp(t, `time=\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z`, buf.String())
}

func TestLogger_BeforeSetup(t *testing.T) {
	assert.Same(t, slog.Default(), NewSlogManager().Logger())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("Debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestSetup_Graylog(t *testing.T) {
	var file, graylog bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &file, Level: "info", Graylog: &graylog})

	m.Logger().Info("lock acquired", "target", "drone")

	assert.Contains(t, file.String(), "lock acquired")
	assert.Contains(t, graylog.String(), `"msg":"lock acquired"`)
	assert.Contains(t, graylog.String(), `"target":"drone"`)
}

func TestSetup_OTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "info", Provider: provider})

	m.Logger().Info("bridged")

	assert.Contains(t, buf.String(), "bridged")
	assert.NoError(t, m.Flush(context.Background()))
	assert.NoError(t, NewSlogManager().Flush(context.Background()))
}

func TestSetup_SessionAttrs(t *testing.T) {
	var buf bytes.Buffer
	id := ""
	m := NewSlogManager()
	m.Setup(Options{
		File:    &buf,
		Context: SessionAttrs(func() string { return id }, func() time.Duration { return 1500 * time.Millisecond }),
	})

	m.Logger().Info("idle")
	assert.NotContains(t, buf.String(), "session=")

	id = "abc"
	m.Logger().With("entity", "ship").WithGroup("pid").Info("running", "gain", 2)
	assert.Contains(t, buf.String(), "entity=ship")
	assert.Contains(t, buf.String(), "pid.gain=2")
	assert.Contains(t, buf.String(), "session=abc")
	assert.Contains(t, buf.String(), "simTime=1.5s")
}

type failingSink struct{}

func (failingSink) Enabled(context.Context, slog.Level) bool  { return true }
func (failingSink) Handle(context.Context, slog.Record) error { return errors.New("sink down") }
func (f failingSink) WithAttrs([]slog.Attr) slog.Handler      { return f }
func (f failingSink) WithGroup(string) slog.Handler           { return f }

func TestTee(t *testing.T) {
	var a, b bytes.Buffer
	info := slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo})
	debug := slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug})

	tt := newTee(nil, failingSink{}, info, nil, debug)
	require.Len(t, tt, 3)

	logger := slog.New(tt.WithAttrs([]slog.Attr{slog.String("component", "repeater")}))
	logger.Debug("charging")
	logger.Info("fired")

	assert.NotContains(t, a.String(), "charging")
	assert.Contains(t, a.String(), "component=repeater")
	assert.Contains(t, b.String(), "charging")
	assert.Contains(t, b.String(), "fired")

	assert.True(t, newTee(info).Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, newTee(info).Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, newTee().Enabled(context.Background(), slog.LevelError))
	assert.Equal(t, newTee(info), newTee(info).WithGroup(""))
}

func TestNewGraylogWriter(t *testing.T) {
	w, err := NewGraylogWriter("127.0.0.1:12201")
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}

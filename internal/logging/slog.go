package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// stdout is swapped in tests.
var stdout io.Writer = os.Stdout

// Options selects the sinks of the application logger.
type Options struct {
	Level string
	// File gets text records; stdout is used when it is nil.
	File io.Writer
	// Graylog gets one JSON record per write.
	Graylog io.Writer
	// Provider turns on the OTel bridge.
	Provider *sdklog.LoggerProvider
	// Context is evaluated for every record, see SessionAttrs.
	Context AttrFunc
}

var slogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// parseLevel falls back to info for unknown names.
func parseLevel(name string) slog.Level {
	if l, ok := slogLevels[strings.ToLower(name)]; ok {
		return l
	}
	return slog.LevelInfo
}

// SlogManager owns the application logger. Setup may be called again once
// config is loaded; loggers obtained earlier keep their old sinks.
type SlogManager struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// utcTime renders record times as RFC3339 in UTC.
func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

func (m *SlogManager) Setup(opts Options) {
	ho := &slog.HandlerOptions{Level: parseLevel(opts.Level), ReplaceAttr: utcTime}

	text := opts.File
	if text == nil {
		text = stdout
	}
	sinks := []slog.Handler{slog.NewTextHandler(text, ho)}
	if opts.Graylog != nil {
		sinks = append(sinks, slog.NewJSONHandler(opts.Graylog, ho))
	}
	if opts.Provider != nil {
		sinks = append(sinks, otelslog.NewHandler("firecontrol", otelslog.WithLoggerProvider(opts.Provider)))
	}

	var h slog.Handler = newTee(sinks...)
	if opts.Context != nil {
		h = stamped{next: h, attrs: opts.Context}
	}

	m.provider = opts.Provider
	m.logger = slog.New(h)
	m.logger.Info("Logging initialized", "level", opts.Level)
}

// Logger returns slog.Default until Setup has run.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return slog.Default()
}

// Flush pushes buffered OTel records out.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}

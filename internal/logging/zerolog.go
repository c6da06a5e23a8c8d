package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLevel maps a config level name to a zerolog level, defaulting to info.
func ZerologLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds the logger handed to the database and influx managers
// and the dispatcher. Console output is colored, file output is plain. hook,
// when set, runs for every event, e.g. to stamp the active session.
func NewZerolog(console, file io.Writer, level string, hook func(*zerolog.Event)) zerolog.Logger {
	var writers []io.Writer
	if console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	}
	if file != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: file, TimeFormat: time.RFC3339, NoColor: true})
	}
	if len(writers) == 0 {
		return zerolog.Nop()
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ZerologLevel(level)).
		With().Timestamp().Logger()
	if hook != nil {
		logger = logger.Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			hook(e)
		}))
	}
	return logger
}

// KVLogger exposes a zerolog.Logger through the Debug/Info/Error with
// key-value pairs shape the dispatcher logs through. Pairs keep their order.
type KVLogger struct {
	zl zerolog.Logger
}

// NewKVLogger wraps logger.
func NewKVLogger(logger zerolog.Logger) KVLogger {
	return KVLogger{zl: logger}
}

func (l KVLogger) Debug(msg string, keysAndValues ...any) { l.zl.Debug().Fields(keysAndValues).Msg(msg) }
func (l KVLogger) Info(msg string, keysAndValues ...any)  { l.zl.Info().Fields(keysAndValues).Msg(msg) }
func (l KVLogger) Error(msg string, keysAndValues ...any) { l.zl.Error().Fields(keysAndValues).Msg(msg) }

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/starlance/firecontrol/internal/config"
	"github.com/starlance/firecontrol/internal/logging"
	intOtel "github.com/starlance/firecontrol/internal/otel"
)

// simClock publishes the world's simulated time to log records written from
// worker goroutines.
type simClock struct {
	now atomic.Int64
}

func (c *simClock) Tick(now time.Duration, _ float64) { c.now.Store(int64(now)) }
func (c *simClock) Now() time.Duration                { return time.Duration(c.now.Load()) }

// flag name -> config key
var flagKeys = map[string]string{
	"scenario":  "sim.scenario",
	"duration":  "sim.duration",
	"tick":      "sim.tickRate",
	"seed":      "sim.seed",
	"storage":   "storage.type",
	"log-level": "logLevel",
	"name":      "sessionName",
	"tag":       "defaultTag",
}

func bindFlags(flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

func currentSessionID() string {
	if s := sessionCtx.Get(); s != nil && sessionCtx.Active() {
		return s.ID
	}
	return ""
}

// setup loads config and brings up logging. It mirrors the order the sinks
// depend on each other: config, log file, OTel, then the slog and zerolog
// loggers that write to them.
func setup(configDir string, flags *pflag.FlagSet) error {
	var err error

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(logging.Options{Level: "info"})
	Logger = SlogManager.Logger()

	err = config.Load(configDir)
	if err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}
	if err := bindFlags(flags); err != nil {
		return err
	}

	// fileOut stays nil without a log file; a typed nil would defeat the
	// nil checks in the logging setup
	var fileOut io.Writer
	LogFile, LogFilePath, err = logging.OpenLogFile(config.GetString("logsDir"), AppName, SessionStartTime)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
		LogFile = nil
	} else {
		fileOut = LogFile
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		otelOut := fileOut
		if otelOut == nil {
			otelOut = os.Stderr
		}
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentVersion,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      otelOut,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else if otelCfg.Endpoint != "" {
			Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
		} else {
			Logger.Info("OTel provider initialized", "file", LogFilePath)
		}
	}

	graylogCfg := config.GetGraylogConfig()
	if graylogCfg.Enabled {
		graylog, err = logging.NewGraylogWriter(graylogCfg.Address)
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err, "address", graylogCfg.Address)
			graylog = nil
		}
	}

	opts := logging.Options{
		File:    fileOut,
		Level:   config.GetString("logLevel"),
		Context: logging.SessionAttrs(currentSessionID, clock.Now),
	}
	if graylog != nil {
		opts.Graylog = graylog
	}
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	opts.Provider = otelLogProvider

	SlogManager.Setup(opts)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath, "version", CurrentVersion)

	ZLogger = logging.NewZerolog(os.Stderr, fileOut, config.GetString("logLevel"), func(e *zerolog.Event) {
		if id := currentSessionID(); id != "" {
			e.Str("session", id)
		}
	})
	return nil
}

// shutdown flushes and closes every log sink.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := SlogManager.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "flushing logs: %v\n", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "shutting down OTel: %v\n", err)
		}
	}
	if graylog != nil {
		graylog.Close()
	}
	if LogFile != nil {
		LogFile.Close()
	}
}

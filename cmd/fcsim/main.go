package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/starlance/firecontrol/internal/config"
	"github.com/starlance/firecontrol/internal/logging"
	intOtel "github.com/starlance/firecontrol/internal/otel"
	"github.com/starlance/firecontrol/internal/session"
	"github.com/starlance/firecontrol/internal/sim"
)

// build info - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "fcsim"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger feeds the database and influx managers and the dispatcher
	ZLogger zerolog.Logger = zerolog.Nop()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFilePath string
	LogFile     *os.File
	graylog     io.WriteCloser

	SessionStartTime time.Time = time.Now()

	sessionCtx = session.NewContext(CurrentVersion)
	clock      = &simClock{}
)

const usage = `Usage: fcsim [flags] [command]

Commands:
  run                    run the configured scenario and record it (default)
  scenarios              list the built-in scenarios
  show <file.db> [uuid]  list recorded sessions, or summarize one
  migratebackups <dir>   import SQLite dumps in dir into Postgres

Flags:
`

func main() {
	flags := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	configDir := flags.StringP("config", "c", ".", "directory holding "+config.FileName)
	flags.StringP("scenario", "s", "", "scenario to run")
	flags.DurationP("duration", "d", 0, "simulated time to run")
	flags.Duration("tick", 0, "simulation step")
	flags.Uint64("seed", 0, "seed for turret firing jitter")
	flags.String("storage", "", "storage backend: memory, sqlite, postgres or websocket")
	flags.String("log-level", "", "log level")
	flags.String("name", "", "session name")
	flags.String("tag", "", "session tag")
	version := flags.BoolP("version", "v", false, "print version and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(2)
	}
	if *version {
		fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return
	}

	if err := setup(*configDir, flags); err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := dispatch(ctx, flags.Args())
	stop()
	shutdown()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, args []string) error {
	command := "run"
	if len(args) > 0 {
		command = strings.ToLower(args[0])
		args = args[1:]
	}

	switch command {
	case "run":
		return runSimulation(ctx)
	case "scenarios":
		for _, name := range sim.Scenarios() {
			fmt.Println(name)
		}
		return nil
	case "show":
		if len(args) == 0 {
			return fmt.Errorf("show: no database file provided")
		}
		uuid := ""
		if len(args) > 1 {
			uuid = args[1]
		}
		return showSessions(os.Stdout, args[0], uuid)
	case "migratebackups":
		if len(args) == 0 {
			return fmt.Errorf("migratebackups: no backup directory provided")
		}
		return migrateBackups(args[0])
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

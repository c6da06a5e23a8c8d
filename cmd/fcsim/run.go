package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/starlance/firecontrol/internal/api"
	"github.com/starlance/firecontrol/internal/config"
	"github.com/starlance/firecontrol/internal/dispatcher"
	"github.com/starlance/firecontrol/internal/influx"
	"github.com/starlance/firecontrol/internal/logging"
	"github.com/starlance/firecontrol/internal/monitor"
	"github.com/starlance/firecontrol/internal/sim"
	"github.com/starlance/firecontrol/internal/storage"
	"github.com/starlance/firecontrol/internal/worker"
	"go.opentelemetry.io/otel/metric"
)

// runSimulation records one scenario run. Events flow from the world through
// the emitter and dispatcher into the worker manager, which writes them to the
// storage backend and mirrors them to InfluxDB.
func runSimulation(ctx context.Context) error {
	simCfg := config.GetSimConfig()

	tuning := sim.DefaultTuning()
	if err := config.LoadTuning(&tuning); err != nil {
		return err
	}

	Logger.Info("Initializing storage...")
	backend, err := initStorage()
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()
	Logger.Info("Storage initialization complete.")

	var points worker.PointWriter
	influxManager := influx.NewManager(ZLogger.With().Str("component", "influx").Logger(), config.GetInfluxConfig())
	if err := influxManager.Connect(ctx); err == nil {
		points = influxManager
		defer influxManager.Close()
	} else if !errors.Is(err, influx.ErrDisabled) {
		Logger.Warn("InfluxDB unavailable, continuing without time series", "error", err)
	}

	var meter metric.Meter
	if OTelProvider != nil {
		meter = OTelProvider.Meter(AppName)
	}
	eventDispatcher, err := dispatcher.New(logging.NewKVLogger(ZLogger.With().Str("component", "dispatcher").Logger()), meter)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	deps := worker.Dependencies{
		Logger:  Logger,
		Session: sessionCtx,
		Influx:  points,
		Meter:   meter,
	}
	workerManager, err := worker.NewManager(deps, backend)
	if err != nil {
		eventDispatcher.Close()
		return err
	}
	workerManager.RegisterHandlers(eventDispatcher)
	emitter := worker.NewEmitter(eventDispatcher, Logger)

	scenario, err := sim.BuildScenario(simCfg.Scenario, tuning, emitter, simCfg.TickRate, simCfg.Seed)
	if err != nil {
		eventDispatcher.Close()
		return err
	}
	scenario.World.Add(clock)

	name := config.GetString("sessionName")
	if name == "" {
		name = fmt.Sprintf("%s %s", simCfg.Scenario, SessionStartTime.Format("2006-01-02 15:04:05"))
	}
	s := sessionCtx.Begin(name, simCfg.Scenario, config.GetString("defaultTag"), simCfg.TickRate, config.TuningSnapshot(), SessionStartTime)
	if err := backend.StartSession(s); err != nil {
		eventDispatcher.Close()
		return fmt.Errorf("failed to start session: %w", err)
	}
	Logger.Info("Session started", "name", s.Name, "scenario", s.Scenario, "tickRate", s.TickRate, "duration", simCfg.Duration)

	monitorService := newMonitor(backend, eventDispatcher, workerManager)
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Failed to start status monitor", "error", err)
	} else {
		defer monitorService.Stop()
	}

	wallStart := time.Now()
	runErr := scenario.Run(ctx, simCfg.Duration)
	if errors.Is(runErr, context.Canceled) {
		Logger.Warn("Interrupted, saving what was recorded", "simTime", scenario.World.Now())
		runErr = nil
	}
	scenario.Finish()

	// drain buffered events before the session closes
	eventDispatcher.Close()

	if d, ok := backend.(interface{ SetSessionDuration(time.Duration) }); ok {
		d.SetSessionDuration(scenario.World.Now())
	}
	if _, err := sessionCtx.End(time.Now()); err != nil {
		Logger.Warn("Failed to end session", "error", err)
	}
	if err := backend.EndSession(); err != nil {
		return errors.Join(runErr, fmt.Errorf("failed to end session: %w", err))
	}

	stats := workerManager.Stats()
	Logger.Info("Session ended",
		"simTime", scenario.World.Now(),
		"wallTime", time.Since(wallStart),
		"lockEvents", stats.LockEvents,
		"pulses", stats.TriggerPulses,
		"steering", stats.SteeringSamples,
		"detonations", stats.Detonations,
		"paths", stats.FlightPaths,
		"failed", stats.Failed,
		"dropped", emitter.Dropped(),
	)
	printSummary(s.ID, scenario, stats, emitter.Dropped(), backend)

	if err := uploadSession(ctx, backend); err != nil {
		Logger.Error("Failed to upload session", "error", err)
	}
	return runErr
}

// uploadSession pushes the exported session file to the archive when
// uploads are enabled and the backend produced one.
func uploadSession(ctx context.Context, backend storage.Backend) error {
	apiCfg := config.GetAPIConfig()
	u, ok := backend.(storage.Uploadable)
	if !apiCfg.Upload || !ok || u.GetExportedFilePath() == "" {
		return nil
	}
	// the run context may already be cancelled by an interrupt
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()

	client := api.New(apiCfg.ServerURL, apiCfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		return err
	}
	path := u.GetExportedFilePath()
	if err := client.Upload(ctx, path, u.GetExportMetadata()); err != nil {
		return err
	}
	Logger.Info("Uploaded session", "path", path, "server", apiCfg.ServerURL)
	return nil
}

func newMonitor(backend storage.Backend, buffers monitor.BufferReporter, writes worker.DBWriteDurationProvider) *monitor.Service {
	deps := monitor.Dependencies{
		Logger:    Logger,
		Buffers:   buffers,
		Writes:    writes,
		StatusDir: config.GetString("logsDir"),
	}
	if db, ok := backend.(dbBackend); ok {
		deps.DB = db.DB()
		deps.SessionID = db.SessionID
	}
	if q, ok := backend.(storage.QueueReporter); ok {
		deps.Queues = q
	}
	return monitor.NewService(deps)
}

func printSummary(id string, scenario *sim.Scenario, stats worker.Stats, dropped int64, backend storage.Backend) {
	fmt.Printf("session     %s\n", id)
	fmt.Printf("scenario    %s\n", scenario.Name)
	fmt.Printf("sim time    %s\n", scenario.World.Now())
	fmt.Printf("launched    %d\n", scenario.Ship.Launcher().Launched())
	fmt.Printf("locks       %d\n", stats.LockEvents)
	fmt.Printf("pulses      %d\n", stats.TriggerPulses)
	fmt.Printf("steering    %d\n", stats.SteeringSamples)
	fmt.Printf("detonations %d\n", stats.Detonations)
	fmt.Printf("paths       %d\n", stats.FlightPaths)
	if stats.Failed > 0 || dropped > 0 {
		fmt.Fprintf(os.Stderr, "failed %d, dropped %d events\n", stats.Failed, dropped)
	}
	if u, ok := backend.(storage.Uploadable); ok && u.GetExportedFilePath() != "" {
		fmt.Printf("output      %s\n", u.GetExportedFilePath())
	}
}

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"gorm.io/gorm"

	"github.com/starlance/firecontrol/internal/config"
	"github.com/starlance/firecontrol/internal/database"
	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/internal/storage/gormstore"
	"github.com/starlance/firecontrol/pkg/core"
)

func openRecording(path string) (*gorm.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("recording %s: %w", path, err)
	}
	return database.GetSqliteDB(path)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			Logger.Error("Error closing sqlite connection", "error", err)
		}
	}
}

// showSessions lists the sessions in a SQLite recording, or summarizes the
// one with the given UUID.
func showSessions(w io.Writer, path, uuid string) error {
	db, err := openRecording(path)
	if err != nil {
		return err
	}
	defer closeDB(db)

	if uuid == "" {
		uuids, err := gormstore.ListSessions(db)
		if err != nil {
			return err
		}
		if len(uuids) == 0 {
			fmt.Fprintln(w, "No sessions recorded.")
		}
		for _, id := range uuids {
			data, err := gormstore.LoadSession(db, id)
			if err != nil {
				return err
			}
			s := data.Session
			fmt.Fprintf(w, "%s  %-10s %s  %s\n", s.ID, s.Scenario, s.StartTime.Format(time.DateTime), s.Name)
		}
		return nil
	}

	data, err := gormstore.LoadSession(db, uuid)
	if err != nil {
		return err
	}
	writeSummary(w, data)
	return nil
}

func writeSummary(w io.Writer, data *gormstore.SessionData) {
	s := data.Session
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "session\t%s\n", s.ID)
	fmt.Fprintf(tw, "name\t%s\n", s.Name)
	fmt.Fprintf(tw, "scenario\t%s\n", s.Scenario)
	fmt.Fprintf(tw, "tag\t%s\n", s.Tag)
	fmt.Fprintf(tw, "started\t%s\n", s.StartTime.Format(time.DateTime))
	fmt.Fprintf(tw, "duration\t%s\n", s.Duration().Round(time.Millisecond))
	fmt.Fprintf(tw, "tick rate\t%s\n", s.TickRate)
	fmt.Fprintf(tw, "version\t%s\n", s.ExtensionVersion)
	fmt.Fprintf(tw, "steering samples\t%d\n", len(data.SteeringSamples))
	fmt.Fprintf(tw, "trigger pulses\t%d\n", len(data.TriggerPulses))
	tw.Flush()

	if len(data.LockEvents) > 0 {
		fmt.Fprintln(w, "\nlocks:")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, e := range data.LockEvents {
			fmt.Fprintf(tw, "  %s\t%s\t%s -> %s\t%s\n", e.SimTime, e.Source, e.From, e.To, e.TargetID)
		}
		tw.Flush()
	}

	if len(data.Detonations) > 0 {
		fmt.Fprintln(w, "\ndetonations:")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, e := range data.Detonations {
			if e.State != core.Detonated {
				continue
			}
			fmt.Fprintf(tw, "  %s\t%s\t(%.1f, %.1f, %.1f)\n", e.SimTime, e.Entity, e.Position.X, e.Position.Y, e.Position.Z)
		}
		tw.Flush()
	}

	if len(data.FlightPaths) > 0 {
		fmt.Fprintln(w, "\nflight paths:")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, p := range data.FlightPaths {
			fmt.Fprintf(tw, "  %s\t%s-%s\t%d points\t%.1f m\n", p.Entity, p.Start, p.End, len(p.Points), geo.PathLength(p.Points))
		}
		tw.Flush()
	}
}

// migrateBackups imports every session in the SQLite dumps under dir into
// Postgres. A fully imported dump is renamed to <name>.migrated.
func migrateBackups(dir string) error {
	paths, err := database.GetBackupDBPaths(dir)
	if err != nil {
		return fmt.Errorf("error getting backup database paths: %w", err)
	}
	if len(paths) == 0 {
		Logger.Info("No backups to migrate", "dir", dir)
		return nil
	}

	storageCfg := config.GetStorageConfig()
	postgresDB, err := database.GetPostgresDB(storageCfg.DB)
	if err != nil {
		return fmt.Errorf("error getting postgres database: %w", err)
	}
	dst := gormstore.New(gormstore.Config{
		BatchSize:     storageCfg.BatchSize,
		FlushInterval: storageCfg.FlushInterval,
	}, gormstore.Dependencies{DB: postgresDB, Logger: Logger})
	if err := dst.Init(); err != nil {
		return err
	}
	defer dst.Close()

	existing, err := gormstore.ListSessions(postgresDB)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}

	successfulMigrations := make([]string, 0, len(paths))
	for _, path := range paths {
		n, err := migrateBackup(dst, path, known)
		if err != nil {
			Logger.Error("Error migrating backup", "path", path, "error", err)
			continue
		}
		if err := os.Rename(path, path+".migrated"); err != nil {
			Logger.Error("Error renaming sqlite file", "error", err)
		}
		Logger.Info("Migrated backup", "path", path, "sessions", n)
		successfulMigrations = append(successfulMigrations, path)
	}

	Logger.Info("Successfully migrated backups",
		"count", len(successfulMigrations),
		"paths", successfulMigrations)
	if len(successfulMigrations) < len(paths) {
		return fmt.Errorf("%d of %d backups failed to migrate", len(paths)-len(successfulMigrations), len(paths))
	}
	return nil
}

func migrateBackup(dst *gormstore.Backend, path string, known map[string]bool) (int, error) {
	src, err := database.GetSqliteDB(path)
	if err != nil {
		return 0, fmt.Errorf("error getting sqlite database: %w", err)
	}
	defer closeDB(src)

	uuids, err := gormstore.ListSessions(src)
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, id := range uuids {
		if known[id] {
			Logger.Debug("Session already migrated", "session", id)
			continue
		}
		data, err := gormstore.LoadSession(src, id)
		if err != nil {
			return imported, err
		}
		if err := dst.Import(data); err != nil {
			return imported, err
		}
		known[id] = true
		imported++
	}
	return imported, nil
}

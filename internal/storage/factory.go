package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starlance/firecontrol/internal/config"
	"github.com/starlance/firecontrol/internal/database"
	"github.com/starlance/firecontrol/internal/storage/gormstore"
	"github.com/starlance/firecontrol/internal/storage/memory"
	sqlitestorage "github.com/starlance/firecontrol/internal/storage/sqlite"
	"github.com/starlance/firecontrol/internal/storage/websocket"
)

// Options carries what the backends need beyond their config section.
type Options struct {
	Logger *slog.Logger
	// DBManager is required for the postgres backend.
	DBManager *database.Manager
	// StartTime names the SQLite dump file.
	StartTime time.Time
}

// DumpFileName is the SQLite dump file for a recorder started at t.
func DumpFileName(t time.Time) string {
	return fmt.Sprintf("firecontrol_%s.db", t.Format("20060102_150405"))
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, opts Options) (Backend, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.StartTime.IsZero() {
		opts.StartTime = time.Now()
	}

	switch cfg.Type {
	case "postgres":
		return newPostgresBackend(cfg, opts)
	case "sqlite":
		dumpPath, err := sqliteDumpPath(cfg, opts.StartTime)
		if err != nil {
			return nil, err
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
			BatchSize:    cfg.BatchSize,
		}, opts.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil
	case "websocket":
		return websocket.New(websocket.Config{
			URL:        cfg.WebSocket.URL,
			Secret:     cfg.WebSocket.Secret,
			AckTimeout: cfg.WebSocket.AckTimeout,
		}, opts.Logger), nil
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// newPostgresBackend connects through the manager. When Postgres is
// unreachable the manager has already opened in-memory SQLite, which is then
// dumped to disk like the sqlite backend.
func newPostgresBackend(cfg config.StorageConfig, opts Options) (Backend, error) {
	if opts.DBManager == nil {
		return nil, errors.New("postgres backend requires a database manager")
	}
	m := opts.DBManager
	if err := m.Connect(cfg.DB); err != nil {
		return nil, err
	}

	if !m.Fallback {
		opts.Logger.Info("Postgres storage backend initialized", "host", cfg.DB.Host)
		return gormstore.New(gormstore.Config{
			BatchSize:     cfg.BatchSize,
			FlushInterval: cfg.FlushInterval,
			DB:            cfg.DB,
		}, gormstore.Dependencies{DB: m.DB, Logger: opts.Logger}), nil
	}

	dumpPath, err := sqliteDumpPath(cfg, opts.StartTime)
	if err != nil {
		return nil, err
	}
	opts.Logger.Warn("Postgres unavailable, recording to SQLite", "dumpPath", dumpPath)
	return sqlitestorage.Wrap(m.DB, sqlitestorage.Config{
		DumpInterval: cfg.SQLite.DumpInterval,
		DumpPath:     dumpPath,
		BatchSize:    cfg.BatchSize,
	}, opts.Logger), nil
}

func sqliteDumpPath(cfg config.StorageConfig, start time.Time) (string, error) {
	dir := cfg.SQLite.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, DumpFileName(start)), nil
}

// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO. It wraps the GORM
// backend; the SQLite-specific parts are the connection and the dump loop.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starlance/firecontrol/internal/database"
	"github.com/starlance/firecontrol/internal/storage/gormstore"
	"github.com/starlance/firecontrol/pkg/core"
	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
	DBPath       string // empty for a shared in-memory database
	BatchSize    int
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstore.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	metadata core.UploadMetadata
	dumped   bool
}

// New creates a new SQLite storage backend.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := database.GetSqliteDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite DB: %w", err)
	}

	return Wrap(db, cfg, logger), nil
}

// Wrap builds the backend over an existing SQLite connection, such as the
// fallback opened by database.Manager.
func Wrap(db *gorm.DB, cfg Config, logger *slog.Logger) *Backend {
	return &Backend{
		Backend: gormstore.New(gormstore.Config{
			BatchSize:     cfg.BatchSize,
			FlushInterval: time.Second,
		}, gormstore.Dependencies{DB: db, Logger: logger}),
		db:  db,
		cfg: cfg,
		log: logger,
	}
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	return b.Backend.Close()
}

// StartSession records the session and remembers its metadata for export.
func (b *Backend) StartSession(s *core.Session) error {
	if err := b.Backend.StartSession(s); err != nil {
		return err
	}
	b.mu.Lock()
	b.metadata = core.UploadMetadata{SessionName: s.Name, Scenario: s.Scenario, Tag: s.Tag}
	b.dumped = false
	b.mu.Unlock()
	return nil
}

// EndSession flushes the session and writes a final dump.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	if err := b.dump(); err != nil {
		return err
	}
	b.mu.Lock()
	b.dumped = true
	b.mu.Unlock()
	return nil
}

// SetSessionDuration fills the duration reported in the export metadata.
func (b *Backend) SetSessionDuration(d time.Duration) {
	b.mu.Lock()
	b.metadata.Duration = d
	b.mu.Unlock()
}

// GetExportedFilePath returns the dump path once a session has been closed.
func (b *Backend) GetExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dumped {
		return ""
	}
	return b.cfg.DumpPath
}

// GetExportMetadata describes the dumped session.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metadata
}

func (b *Backend) dump() error {
	start := time.Now()
	if err := b.Flush(); err != nil {
		return err
	}
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}

// dumpLoop periodically dumps the SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}

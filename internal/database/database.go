// Package database opens the gorm connections the recording backends write
// through: Postgres for a shared archive, SQLite for local files.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/starlance/firecontrol/internal/config"
	"github.com/starlance/firecontrol/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sharedMemory is the DSN of the in-memory fallback. Every connection of the
// pool sees the same database.
const sharedMemory = "file::memory:?cache=shared"

// sqlitePragmas favour write throughput. Durability comes from the periodic
// VACUUM INTO dump, not from the live database.
var sqlitePragmas = []string{
	"journal_mode = MEMORY",
	"synchronous = OFF",
	"temp_store = MEMORY",
	"cache_size = -32000",
	"page_size = 32768",
	"mmap_size = 30000000000",
}

// Manager connects to Postgres and remembers whether it had to settle for
// the in-memory SQLite fallback instead.
type Manager struct {
	DB       *gorm.DB
	Fallback bool

	log zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log}
}

// Connect opens cfg and pings it. When Postgres cannot be reached the
// manager opens in-memory SQLite and sets Fallback; only a failure of that
// too is returned.
func (m *Manager) Connect(cfg config.DBConfig) error {
	m.log.Debug().Str("host", cfg.Host).Str("port", cfg.Port).Str("database", cfg.Database).
		Msg("Connecting to Postgres DB")

	db, err := GetPostgresDB(cfg)
	if err == nil {
		err = ping(db)
	}
	if err == nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.SetMaxOpenConns(10)
		}
		m.DB, m.Fallback = db, false
		m.log.Info().Msg("Connected to database")
		return nil
	}

	m.log.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
	db, err = GetSqliteDB("")
	if err != nil {
		return fmt.Errorf("failed to get local SQLite DB: %w", err)
	}
	m.DB, m.Fallback = db, true
	m.log.Info().Msg("Using local SQLite DB in memory with periodic disk dump")
	return nil
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func silent() logger.Interface {
	return logger.Default.LogMode(logger.Silent)
}

// GetPostgresDB opens cfg without checking that the server answers.
func GetPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{DSN: cfg.DSN(), PreferSimpleProtocol: true}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 silent(),
	})
}

// GetSqliteDB opens the SQLite file at path, or the shared in-memory
// database when path is empty.
func GetSqliteDB(path string) (*gorm.DB, error) {
	if path == "" {
		path = sharedMemory
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 silent(),
	})
	if err != nil {
		return nil, err
	}
	for _, p := range sqlitePragmas {
		if err := db.Exec("PRAGMA " + p).Error; err != nil {
			return nil, fmt.Errorf("setting PRAGMA %s: %w", strings.SplitN(p, " ", 2)[0], err)
		}
	}
	return db, nil
}

// Migrate creates or updates every recording table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// DumpMemoryDBToDisk snapshots db into path with VACUUM INTO, replacing a
// file already there.
func DumpMemoryDBToDisk(db *gorm.DB, path string) error {
	if path == "" {
		return errors.New("sqlite file path not set")
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error removing existing DB file: %w", err)
	}
	if err := db.Exec("VACUUM INTO ?", "file:"+path).Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return nil
}

// GetBackupDBPaths lists the regular .db files directly inside dir.
func GetBackupDBPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".db") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

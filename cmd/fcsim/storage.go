package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/starlance/firecontrol/internal/config"
	"github.com/starlance/firecontrol/internal/database"
	"github.com/starlance/firecontrol/internal/storage"
)

// dbBackend is satisfied by the gorm-backed stores, which the monitor can
// write performance rows alongside.
type dbBackend interface {
	DB() *gorm.DB
	SessionID() uint
}

func initStorage() (storage.Backend, error) {
	storageCfg := config.GetStorageConfig()

	backend, err := storage.NewBackend(storageCfg, storage.Options{
		Logger:    Logger,
		DBManager: database.NewManager(ZLogger.With().Str("component", "database").Logger()),
		StartTime: SessionStartTime,
	})
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return backend, nil
}

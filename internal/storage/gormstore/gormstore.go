// Package gormstore implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine. It runs on
// Postgres or SQLite; the sqlite package layers periodic disk dumps on top.
package gormstore

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starlance/firecontrol/internal/config"
	"github.com/starlance/firecontrol/internal/database"
	"github.com/starlance/firecontrol/internal/model"
	"github.com/starlance/firecontrol/internal/model/convert"
	"github.com/starlance/firecontrol/internal/queue"
	"github.com/starlance/firecontrol/pkg/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB // optional; Init connects to Postgres when nil
	Logger *slog.Logger
}

// Config holds batching settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	DB            config.DBConfig
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	LockEvents      *queue.Queue[model.LockEvent]
	TriggerPulses   *queue.Queue[model.TriggerPulse]
	SteeringSamples *queue.Queue[model.SteeringSample]
	Detonations     *queue.Queue[model.Detonation]
	FlightPaths     *queue.Queue[model.FlightPath]
}

func newQueues() *queues {
	return &queues{
		LockEvents:      queue.New[model.LockEvent](),
		TriggerPulses:   queue.New[model.TriggerPulse](),
		SteeringSamples: queue.New[model.SteeringSample](),
		Detonations:     queue.New[model.Detonation](),
		FlightPaths:     queue.New[model.FlightPath](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	cfg    Config
	queues *queues

	session   atomic.Pointer[model.Session]
	writeMu   sync.Mutex
	lastWrite atomic.Int64 // nanoseconds

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(cfg Config, deps Dependencies) *Backend {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 2000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{
		deps:   deps,
		cfg:    cfg,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.GetPostgresDB(b.cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Dialector.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return nil
}

// StartSession inserts the session row synchronously so queued events can reference its ID.
func (b *Backend) StartSession(s *core.Session) error {
	if err := b.Flush(); err != nil {
		return err
	}
	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}
	b.session.Store(&row)
	return nil
}

// EndSession flushes pending writes and stamps the session end time. A
// session that already carried an end time, as an imported one does, keeps it.
func (b *Backend) EndSession() error {
	row := b.session.Load()
	if row == nil {
		return core.ErrNoSession
	}
	if err := b.Flush(); err != nil {
		return err
	}
	end := time.Now()
	if row.EndTime.Valid {
		end = row.EndTime.Time
	}
	err := b.deps.DB.Model(&model.Session{}).Where("id = ?", row.ID).
		Update("end_time", end).Error
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	b.session.Store(nil)
	return nil
}

// SessionID is the database ID of the active session, or 0.
func (b *Backend) SessionID() uint {
	if row := b.session.Load(); row != nil {
		return row.ID
	}
	return 0
}

// current returns the active session row or ErrNoSession.
func (b *Backend) current() (*model.Session, error) {
	row := b.session.Load()
	if row == nil {
		return nil, core.ErrNoSession
	}
	return row, nil
}

// RecordLockEvent converts and queues a lock event.
func (b *Backend) RecordLockEvent(e *core.LockEvent) error {
	row, err := b.current()
	if err != nil {
		return err
	}
	b.queues.LockEvents.Push(convert.CoreToLockEvent(*e, row.ID, row.StartTime))
	return nil
}

// RecordTriggerPulse converts and queues a trigger pulse.
func (b *Backend) RecordTriggerPulse(p *core.TriggerPulse) error {
	row, err := b.current()
	if err != nil {
		return err
	}
	b.queues.TriggerPulses.Push(convert.CoreToTriggerPulse(*p, row.ID, row.StartTime))
	return nil
}

// RecordSteeringSample converts and queues a steering sample.
func (b *Backend) RecordSteeringSample(s *core.SteeringSample) error {
	row, err := b.current()
	if err != nil {
		return err
	}
	b.queues.SteeringSamples.Push(convert.CoreToSteeringSample(*s, row.ID, row.StartTime))
	return nil
}

// RecordDetonation converts and queues a detonation event.
func (b *Backend) RecordDetonation(e *core.DetonationEvent) error {
	row, err := b.current()
	if err != nil {
		return err
	}
	b.queues.Detonations.Push(convert.CoreToDetonation(*e, row.ID, row.StartTime))
	return nil
}

// RecordFlightPath converts and queues a flight path.
func (b *Backend) RecordFlightPath(p *core.FlightPath) error {
	row, err := b.current()
	if err != nil {
		return err
	}
	path, err := convert.CoreToFlightPath(*p, row.ID, row.StartTime)
	if err != nil {
		return fmt.Errorf("flight path of %s: %w", p.Entity, err)
	}
	b.queues.FlightPaths.Push(path)
	return nil
}

// WriteQueueLengths reports pending rows per table.
func (b *Backend) WriteQueueLengths() map[string]int {
	return map[string]int{
		"lock_events":      b.queues.LockEvents.Len(),
		"trigger_pulses":   b.queues.TriggerPulses.Len(),
		"steering_samples": b.queues.SteeringSamples.Len(),
		"detonations":      b.queues.Detonations.Len(),
		"flight_paths":     b.queues.FlightPaths.Len(),
	}
}

// GetLastDBWriteDuration is how long the most recent flush took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// Flush writes every queued row now.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	start := time.Now()
	db := b.deps.DB
	err := errors.Join(
		writeQueue(db, b.queues.LockEvents, b.cfg.BatchSize),
		writeQueue(db, b.queues.TriggerPulses, b.cfg.BatchSize),
		writeQueue(db, b.queues.SteeringSamples, b.cfg.BatchSize),
		writeQueue(db, b.queues.Detonations, b.cfg.BatchSize),
		writeQueue(db, b.queues.FlightPaths, b.cfg.BatchSize),
	)
	b.lastWrite.Store(int64(time.Since(start)))
	return err
}

func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], batchSize int) error {
	items := q.Drain()
	if len(items) == 0 {
		return nil
	}
	if err := db.Omit(clause.Associations).CreateInBatches(&items, batchSize).Error; err != nil {
		var zero T
		return fmt.Errorf("failed to write %d %T rows: %w", len(items), zero, err)
	}
	return nil
}

func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("Final flush failed", "error", err)
			}
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("Error writing to DB", "error", err)
			}
		}
	}
}

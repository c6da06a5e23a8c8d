package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/starlance/firecontrol/internal/model"
	"github.com/starlance/firecontrol/internal/worker"

	"gorm.io/gorm"
)

// BufferReporter reports pending events per dispatcher command.
type BufferReporter interface {
	QueueLengths() map[string]int
}

// WriteQueueReporter reports pending rows per table.
type WriteQueueReporter interface {
	WriteQueueLengths() map[string]int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	DB        *gorm.DB // nil disables performance rows
	Logger    *slog.Logger
	Buffers   BufferReporter
	Queues    WriteQueueReporter // optional
	Writes    worker.DBWriteDurationProvider
	SessionID func() uint
	StatusDir string
	Interval  time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current program status
func (s *Service) GetProgramStatus(
	rawBuffers bool,
	writeQueues bool,
	lastWrite bool,
) (output []string, perfModel model.RecorderPerformance) {
	var buffersObj model.BufferLengths
	if s.deps.Buffers != nil {
		b := s.deps.Buffers.QueueLengths()
		buffersObj = model.BufferLengths{
			LockEvents:      b[worker.CmdLock],
			TriggerPulses:   b[worker.CmdPulse],
			SteeringSamples: b[worker.CmdSteer],
			Detonations:     b[worker.CmdDetonate],
			FlightPaths:     b[worker.CmdPath],
		}
	}

	var writeQueuesObj model.WriteQueueLengths
	if s.deps.Queues != nil {
		q := s.deps.Queues.WriteQueueLengths()
		writeQueuesObj = model.WriteQueueLengths{
			LockEvents:      q["lock_events"],
			TriggerPulses:   q["trigger_pulses"],
			SteeringSamples: q["steering_samples"],
			Detonations:     q["detonations"],
			FlightPaths:     q["flight_paths"],
		}
	}

	perf := model.RecorderPerformance{
		Time:              time.Now(),
		BufferLengths:     buffersObj,
		WriteQueueLengths: writeQueuesObj,
	}
	if s.deps.SessionID != nil {
		perf.SessionID = s.deps.SessionID()
	}
	if s.deps.Writes != nil {
		perf.LastWriteDurationMs = float32(s.deps.Writes.GetLastDBWriteDuration().Seconds() * 1000)
	}

	if rawBuffers {
		output = append(output, marshalStatus(buffersObj))
	}
	if writeQueues {
		output = append(output, marshalStatus(writeQueuesObj))
	}
	if lastWrite {
		output = append(output, marshalStatus(perf.LastWriteDurationMs))
	}

	return output, perf
}

func marshalStatus(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(out)
}

// StatusFilePath is where Start writes the status snapshot.
func (s *Service) StatusFilePath() string {
	return filepath.Join(s.deps.StatusDir, "status.txt")
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	statusFile, err := os.Create(s.StatusFilePath())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("error creating status file: %w", err)
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer statusFile.Close()
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick(statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) tick(statusFile *os.File) {
	logger := s.deps.Logger
	statusStr, perfModel := s.GetProgramStatus(true, true, true)

	if err := statusFile.Truncate(0); err != nil {
		logger.Error("Error truncating status file", "error", err)
		return
	}
	if _, err := statusFile.Seek(0, 0); err != nil {
		logger.Error("Error rewinding status file", "error", err)
		return
	}
	for _, line := range statusStr {
		if _, err := statusFile.WriteString(line + "\n"); err != nil {
			logger.Error("Error writing status file", "error", err)
			return
		}
	}

	// performance rows need a session to reference
	if s.deps.DB == nil || perfModel.SessionID == 0 {
		return
	}
	if err := s.deps.DB.Omit("Session").Create(&perfModel).Error; err != nil {
		logger.Error("Error writing perf model", "error", err)
	}
}

// Stop stops the status monitor and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const logStampLayout = "20060102_150405"

// LogFilePath names the log of a run started at start, e.g.
// logs/fcsim.20260301_120000.log.
func LogFilePath(dir, app string, start time.Time) string {
	return filepath.Join(dir, app+"."+start.Format(logStampLayout)+".log")
}

// OpenLogFile creates dir if needed and opens the run log for appending. A
// log already holding the same name is kept as <name>.old.
func OpenLogFile(dir, app string, start time.Time) (*os.File, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("creating logs dir: %w", err)
	}
	path := LogFilePath(dir, app, start)
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, path, fmt.Errorf("keeping previous log: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, path, fmt.Errorf("opening log file: %w", err)
	}
	return f, path, nil
}

package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starlance/firecontrol/internal/geo"
	"github.com/starlance/firecontrol/pkg/core"
	"gonum.org/v1/gonum/spatial/r3"
)

// SessionExport is the root JSON structure
type SessionExport struct {
	ExtensionVersion string         `json:"extensionVersion"`
	SessionID        string         `json:"sessionId"`
	Name             string         `json:"name"`
	Scenario         string         `json:"scenario"`
	Tag              string         `json:"tag"`
	StartTime        string         `json:"startTime"`
	TickRateMs       float64        `json:"tickRateMs"`
	EndTimeMs        int64          `json:"endTimeMs"`
	Tuning           map[string]any `json:"tuning,omitempty"`
	Entities         []EntityJSON   `json:"entities"`
	Locks            [][]any        `json:"locks"`
	Pulses           [][]any        `json:"pulses"`
	Detonations      [][]any        `json:"detonations"`
}

// EntityJSON represents one steered entity
type EntityJSON struct {
	Name     string    `json:"name"`
	Steering [][]any   `json:"steering"`
	Path     *PathJSON `json:"path,omitempty"`
}

// PathJSON is a flight path as WKT
type PathJSON struct {
	StartTimeMs int64   `json:"startTimeMs"`
	EndTimeMs   int64   `json:"endTimeMs"`
	Length      float64 `json:"length"`
	WKT         string  `json:"wkt"`
}

func vecJSON(v r3.Vec) []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// exportFileName builds a filesystem-safe name from the session name and start time
func exportFileName(s *core.Session, compress bool) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(s.Name)
	if name == "" {
		name = "session"
	}
	timestamp := s.StartTime.Format("20060102_150405")
	if compress {
		return fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	}
	return fmt.Sprintf("%s_%s.json", name, timestamp)
}

// exportJSON writes the session data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export, err := b.buildExport()
	if err != nil {
		return err
	}

	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(b.session, b.cfg.CompressOutput))

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	b.lastExportMetadata = core.UploadMetadata{
		SessionName: b.session.Name,
		Scenario:    b.session.Scenario,
		Duration:    time.Duration(export.EndTimeMs) * time.Millisecond,
		Tag:         b.session.Tag,
	}
	return nil
}

func (b *Backend) buildExport() (SessionExport, error) {
	export := SessionExport{
		ExtensionVersion: b.session.ExtensionVersion,
		SessionID:        b.session.ID,
		Name:             b.session.Name,
		Scenario:         b.session.Scenario,
		Tag:              b.session.Tag,
		StartTime:        b.session.StartTime.UTC().Format(time.RFC3339),
		TickRateMs:       float64(b.session.TickRate) / float64(time.Millisecond),
		Tuning:           b.session.Tuning,
		Entities:         make([]EntityJSON, 0, len(b.entityOrder)),
		Locks:            make([][]any, 0, len(b.lockEvents)),
		Pulses:           make([][]any, 0, len(b.triggerPulses)),
		Detonations:      make([][]any, 0, len(b.detonations)),
	}

	var maxTime time.Duration
	seen := func(t time.Duration) {
		if t > maxTime {
			maxTime = t
		}
	}

	// Format: [simTimeMs, [px,py,pz], [ax,ay,az], [ex,ey,ez], [ox,oy,oz]]
	for _, name := range b.entityOrder {
		rec := b.entities[name]
		entity := EntityJSON{
			Name:     rec.Name,
			Steering: make([][]any, 0, len(rec.Steering)),
		}
		for _, s := range rec.Steering {
			entity.Steering = append(entity.Steering, []any{
				s.SimTime.Milliseconds(),
				vecJSON(s.Position),
				vecJSON(s.Aim),
				vecJSON(s.Error),
				vecJSON(s.Output),
			})
			seen(s.SimTime)
		}
		if rec.Path != nil {
			wkt, length, err := geo.FlightPathWKT(rec.Path.Points)
			if err != nil {
				return SessionExport{}, fmt.Errorf("flight path of %s: %w", rec.Name, err)
			}
			entity.Path = &PathJSON{
				StartTimeMs: rec.Path.Start.Milliseconds(),
				EndTimeMs:   rec.Path.End.Milliseconds(),
				Length:      length,
				WKT:         wkt,
			}
			seen(rec.Path.End)
		}
		export.Entities = append(export.Entities, entity)
	}

	// Format: [simTimeMs, source, targetId, from, to]
	for _, e := range b.lockEvents {
		export.Locks = append(export.Locks, []any{
			e.SimTime.Milliseconds(), e.Source, e.TargetID, e.From.String(), e.To.String(),
		})
		seen(e.SimTime)
	}

	// Format: [simTimeMs, source, sequence]
	for _, p := range b.triggerPulses {
		export.Pulses = append(export.Pulses, []any{p.SimTime.Milliseconds(), p.Source, p.Sequence})
		seen(p.SimTime)
	}

	// Format: [simTimeMs, entity, state, [x,y,z]]
	for _, d := range b.detonations {
		export.Detonations = append(export.Detonations, []any{
			d.SimTime.Milliseconds(), d.Entity, d.State.String(), vecJSON(d.Position),
		})
		seen(d.SimTime)
	}

	export.EndTimeMs = maxTime.Milliseconds()
	return export, nil
}

func (b *Backend) writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()

	encoder := json.NewEncoder(gw)
	return encoder.Encode(data)
}

package sim

import (
	"context"
	"errors"
	"time"

	"github.com/starlance/firecontrol/internal/cache"
)

// Entity is anything the world ticks.
type Entity interface {
	Tick(now time.Duration, dt float64)
}

// Finisher is an entity that can leave the world. Finished entities are
// dropped after the tick in which Done first reports true.
type Finisher interface {
	Done() bool
}

// World advances entities with a fixed timestep. Track snapshots are
// refreshed once at the start of every tick.
type World struct {
	step     time.Duration
	now      time.Duration
	tracks   *cache.TrackCache
	entities []Entity
	pending  []Entity
	onRemove func(Entity)
}

// NewWorld returns an empty world ticking every step.
func NewWorld(step time.Duration, tracks *cache.TrackCache) *World {
	if tracks == nil {
		tracks = cache.NewTrackCache()
	}
	return &World{step: step, tracks: tracks}
}

func (w *World) Now() time.Duration        { return w.now }
func (w *World) Step() time.Duration       { return w.step }
func (w *World) Tracks() *cache.TrackCache { return w.tracks }
func (w *World) Len() int                  { return len(w.entities) + len(w.pending) }

// Entities returns every entity in the world, including ones added this tick.
func (w *World) Entities() []Entity {
	out := make([]Entity, 0, w.Len())
	out = append(out, w.entities...)
	return append(out, w.pending...)
}

// OnRemove registers fn to run for every finished entity.
func (w *World) OnRemove(fn func(Entity)) { w.onRemove = fn }

// Add schedules e to tick from the next tick on. Adding during a tick is allowed.
func (w *World) Add(e Entity) {
	w.pending = append(w.pending, e)
}

// Tick advances the world by one step.
func (w *World) Tick() {
	w.entities = append(w.entities, w.pending...)
	w.pending = nil

	w.now += w.step
	w.tracks.Refresh()
	dt := w.step.Seconds()

	for _, e := range w.entities {
		e.Tick(w.now, dt)
	}

	kept := w.entities[:0]
	for _, e := range w.entities {
		if f, ok := e.(Finisher); ok && f.Done() {
			if w.onRemove != nil {
				w.onRemove(e)
			}
			continue
		}
		kept = append(kept, e)
	}
	clear(w.entities[len(kept):])
	w.entities = kept
}

// Run ticks until duration of simulated time has passed or ctx is done.
// Cancellation is checked between ticks.
func (w *World) Run(ctx context.Context, duration time.Duration) error {
	if w.step <= 0 {
		return errors.New("world step must be positive")
	}
	end := w.now + duration
	for w.now+w.step <= end {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.Tick()
	}
	return nil
}

package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/starlance/firecontrol/internal/cache"
	"github.com/starlance/firecontrol/internal/geo"
)

type countingEntity struct {
	ticks   int
	lastNow time.Duration
	lastDt  float64
	doneAt  int
	onTick  func()
}

func (c *countingEntity) Tick(now time.Duration, dt float64) {
	c.ticks++
	c.lastNow = now
	c.lastDt = dt
	if c.onTick != nil {
		c.onTick()
	}
}

func (c *countingEntity) Done() bool { return c.doneAt > 0 && c.ticks >= c.doneAt }

type mover struct{ body *Body }

func (m mover) Tick(_ time.Duration, dt float64) { m.body.Step(dt) }

func TestWorld_Tick(t *testing.T) {
	w := NewWorld(20*time.Millisecond, nil)
	e := &countingEntity{}
	w.Add(e)

	w.Tick()
	w.Tick()

	assert.Equal(t, 2, e.ticks)
	assert.Equal(t, 40*time.Millisecond, w.Now())
	assert.Equal(t, 40*time.Millisecond, e.lastNow)
	assert.InDelta(t, 0.02, e.lastDt, 1e-12)
	assert.NotNil(t, w.Tracks())
}

func TestWorld_AddDuringTick(t *testing.T) {
	w := NewWorld(10*time.Millisecond, nil)
	child := &countingEntity{}
	parent := &countingEntity{}
	parent.onTick = func() {
		if parent.ticks == 1 {
			w.Add(child)
		}
	}
	w.Add(parent)

	w.Tick()
	assert.Equal(t, 0, child.ticks)
	assert.Equal(t, 2, w.Len())

	w.Tick()
	assert.Equal(t, 1, child.ticks)
	assert.Len(t, w.Entities(), 2)
}

func TestWorld_RemovesFinished(t *testing.T) {
	w := NewWorld(10*time.Millisecond, nil)
	short := &countingEntity{doneAt: 2}
	long := &countingEntity{}
	w.Add(short)
	w.Add(long)

	var removed []Entity
	w.OnRemove(func(e Entity) { removed = append(removed, e) })

	for range 5 {
		w.Tick()
	}

	assert.Equal(t, 2, short.ticks)
	assert.Equal(t, 5, long.ticks)
	assert.Equal(t, []Entity{short}, removed)
	assert.Equal(t, 1, w.Len())
}

func TestWorld_RefreshesTracksEachTick(t *testing.T) {
	tracks := cache.NewTrackCache()
	w := NewWorld(100*time.Millisecond, tracks)
	b := NewBody("drone", DefaultBodyConfig(), geo.NewPose(r3.Vec{}))
	b.SetVelocity(r3.Vec{Z: 10})
	tracks.Register("drone", b)
	w.Add(mover{b})

	w.Tick()
	snap, ok := tracks.Get("drone")
	require.True(t, ok)
	// refreshed before the body moved this tick
	assert.Equal(t, r3.Vec{}, snap.Position)

	w.Tick()
	snap, _ = tracks.Get("drone")
	assert.Greater(t, snap.Position.Z, 0.0)
}

func TestWorld_Run(t *testing.T) {
	w := NewWorld(20*time.Millisecond, nil)
	e := &countingEntity{}
	w.Add(e)

	require.NoError(t, w.Run(context.Background(), time.Second))
	assert.Equal(t, 50, e.ticks)
	assert.Equal(t, time.Second, w.Now())
}

func TestWorld_RunCancelled(t *testing.T) {
	w := NewWorld(20*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	e := &countingEntity{}
	e.onTick = func() {
		if e.ticks == 3 {
			cancel()
		}
	}
	w.Add(e)

	err := w.Run(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, e.ticks)
}

func TestWorld_RunRejectsZeroStep(t *testing.T) {
	w := NewWorld(0, nil)
	assert.Error(t, w.Run(context.Background(), time.Second))
}

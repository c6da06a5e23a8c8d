package cache

import (
	"errors"
	"sort"
	"sync"

	"github.com/starlance/firecontrol/pkg/core"
)

// ErrUnknownTrack is returned for IDs that were never registered.
var ErrUnknownTrack = errors.New("unknown track")

// TrackCache holds every trackable in the simulation and the snapshot taken
// of each at the start of the current tick, so all consumers in a tick see
// the same state regardless of update order.
type TrackCache struct {
	m         sync.RWMutex
	sources   map[string]core.Trackable
	snapshots map[string]core.TargetSnapshot
}

func NewTrackCache() *TrackCache {
	return &TrackCache{
		sources:   make(map[string]core.Trackable),
		snapshots: make(map[string]core.TargetSnapshot),
	}
}

func (c *TrackCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.sources = make(map[string]core.Trackable)
	c.snapshots = make(map[string]core.TargetSnapshot)
}

// Register adds or replaces a trackable and captures its snapshot now.
func (c *TrackCache) Register(id string, t core.Trackable) {
	c.m.Lock()
	defer c.m.Unlock()
	c.sources[id] = t
	c.snapshots[id] = snapshotWithID(id, t)
}

// Remove drops a trackable. Existing handles then report an invalid snapshot.
func (c *TrackCache) Remove(id string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.sources, id)
	delete(c.snapshots, id)
}

// Refresh captures a new snapshot of every registered trackable.
func (c *TrackCache) Refresh() {
	c.m.Lock()
	defer c.m.Unlock()
	for id, t := range c.sources {
		c.snapshots[id] = snapshotWithID(id, t)
	}
}

// Get returns the snapshot captured for id.
func (c *TrackCache) Get(id string) (core.TargetSnapshot, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	s, ok := c.snapshots[id]
	return s, ok
}

// Track returns a handle reading id's snapshot from the cache.
func (c *TrackCache) Track(id string) (core.Trackable, error) {
	c.m.RLock()
	defer c.m.RUnlock()
	if _, ok := c.sources[id]; !ok {
		return nil, ErrUnknownTrack
	}
	return trackHandle{cache: c, id: id}, nil
}

// IDs returns the registered IDs in sorted order.
func (c *TrackCache) IDs() []string {
	c.m.RLock()
	defer c.m.RUnlock()
	ids := make([]string, 0, len(c.sources))
	for id := range c.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *TrackCache) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.sources)
}

func snapshotWithID(id string, t core.Trackable) core.TargetSnapshot {
	s := core.SnapshotOf(t)
	s.ID = id
	return s
}

type trackHandle struct {
	cache *TrackCache
	id    string
}

// Snapshot implements core.Trackable.
func (h trackHandle) Snapshot() core.TargetSnapshot {
	s, ok := h.cache.Get(h.id)
	if !ok {
		return core.TargetSnapshot{ID: h.id}
	}
	return s
}

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/starlance/firecontrol/pkg/core"
)

// Context holds the current recording session
type Context struct {
	mu      sync.RWMutex
	session *core.Session
	version string
}

// NewContext creates a new Context stamping sessions with the given build version
func NewContext(version string) *Context {
	return &Context{version: version}
}

// Begin opens a new session with a fresh UUID, replacing any previous one
func (c *Context) Begin(name, scenario, tag string, tickRate time.Duration, tuning map[string]any, start time.Time) *core.Session {
	s := &core.Session{
		ID:               uuid.NewString(),
		Name:             name,
		Scenario:         scenario,
		Tag:              tag,
		StartTime:        start,
		TickRate:         tickRate,
		ExtensionVersion: c.version,
		Tuning:           tuning,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
	return s
}

// Get returns the current session, or nil before Begin. The returned value
// is never mutated; End swaps in a copy
func (c *Context) Get() *core.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Active reports whether a session is open
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil && c.session.EndTime.IsZero()
}

// End stamps the end time of the current session
func (c *Context) End(at time.Time) (*core.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || !c.session.EndTime.IsZero() {
		return nil, core.ErrNoSession
	}
	ended := *c.session
	ended.EndTime = at
	c.session = &ended
	return c.session, nil
}

// Package round tracks which round is running and the current tick.
package round

import (
	"sync"
	"time"
)

// DefaultName is reported before any round is started.
const DefaultName = "No round loaded"

// Context holds the current round name and tick counter.
type Context struct {
	mu      sync.RWMutex
	name    string
	started time.Time
	tick    uint64
}

// NewContext creates a Context with no round loaded.
func NewContext() *Context {
	return &Context{name: DefaultName}
}

// Start begins a new round and resets the tick counter.
func (c *Context) Start(name string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
	c.started = at
	c.tick = 0
}

// Round returns the current round name.
func (c *Context) Round() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Started returns when the current round began. Zero if none has.
func (c *Context) Started() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Tick returns the current tick.
func (c *Context) Tick() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tick
}

// SetTick moves the tick counter to t. Ticks never go backwards.
func (c *Context) SetTick(t uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < c.tick {
		return false
	}
	c.tick = t
	return true
}

// Advance increments the tick and returns the new value.
func (c *Context) Advance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	return c.tick
}

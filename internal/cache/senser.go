package cache

import (
	"slices"
	"sync"

	"github.com/frontierstation/damagecast/internal/perception"
	"github.com/frontierstation/damagecast/pkg/core"
)

// SenserCache maps observer entities to their current senser.
type SenserCache struct {
	mu      sync.RWMutex
	sensers map[core.EntityID]*perception.Senser
}

// NewSenserCache returns an empty cache.
func NewSenserCache() *SenserCache {
	return &SenserCache{sensers: make(map[core.EntityID]*perception.Senser)}
}

// Set installs s as the senser of entity, replacing any previous one.
func (c *SenserCache) Set(entity core.EntityID, s *perception.Senser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sensers[entity] = s
}

// Get returns the senser of entity.
func (c *SenserCache) Get(entity core.EntityID) (*perception.Senser, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sensers[entity]
	return s, ok
}

// Remove drops the senser of entity.
func (c *SenserCache) Remove(entity core.EntityID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sensers[entity]
	delete(c.sensers, entity)
	return ok
}

// Observers returns a snapshot of every observer ordered by entity.
func (c *SenserCache) Observers() []perception.Observer {
	c.mu.RLock()
	out := make([]perception.Observer, 0, len(c.sensers))
	for e, s := range c.sensers {
		out = append(out, perception.Observer{Entity: e, Senser: s})
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b perception.Observer) int {
		switch {
		case a.Entity < b.Entity:
			return -1
		case a.Entity > b.Entity:
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of observers.
func (c *SenserCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sensers)
}

// Reset drops every senser.
func (c *SenserCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sensers = make(map[core.EntityID]*perception.Senser)
}

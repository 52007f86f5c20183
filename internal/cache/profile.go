package cache

import (
	"sync"

	"github.com/frontierstation/damagecast/internal/health"
	"github.com/frontierstation/damagecast/pkg/core"
)

// Named is a profile together with the display name narration uses.
type Named struct {
	Name    string
	Profile *health.Profile
}

// ProfileCache holds health profiles for entities and for structure cells.
// Lookups happen on every hit, so they never touch storage.
type ProfileCache struct {
	mu         sync.RWMutex
	entities   map[core.EntityID]Named
	structures map[core.CellID]*health.Profile
}

// NewProfileCache returns an empty cache.
func NewProfileCache() *ProfileCache {
	return &ProfileCache{
		entities:   make(map[core.EntityID]Named),
		structures: make(map[core.CellID]*health.Profile),
	}
}

// SetEntity registers or replaces the profile of an entity.
func (c *ProfileCache) SetEntity(id core.EntityID, name string, p *health.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities[id] = Named{Name: name, Profile: p}
}

// Entity returns the profile registered for id.
func (c *ProfileCache) Entity(id core.EntityID) (Named, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.entities[id]
	return n, ok
}

// RemoveEntity forgets id.
func (c *ProfileCache) RemoveEntity(id core.EntityID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entities, id)
}

// Structure returns the profile of the structure at cell, creating an
// armour-plated one on first use.
func (c *ProfileCache) Structure(cell core.CellID) *health.Profile {
	c.mu.RLock()
	p, ok := c.structures[cell]
	c.mu.RUnlock()
	if ok {
		return p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.structures[cell]; ok {
		return p
	}
	p = health.NewStructure()
	c.structures[cell] = p
	return p
}

// Len returns the number of entity and structure profiles.
func (c *ProfileCache) Len() (entities, structures int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities), len(c.structures)
}

// Reset drops every profile.
func (c *ProfileCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities = make(map[core.EntityID]Named)
	c.structures = make(map[core.CellID]*health.Profile)
}

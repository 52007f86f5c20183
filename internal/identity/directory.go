// Package identity maps simulation entities to connected client handles.
package identity

import (
	"sync"

	"github.com/frontierstation/damagecast/pkg/core"
)

// Lookup is the read-only view the damage pipeline consumes.
type Lookup interface {
	HandleFor(entity core.EntityID) (core.Handle, bool)
}

// Directory is a bidirectional entity <-> handle map. The transport owns
// Connect and Disconnect; everything else only reads.
type Directory struct {
	mu       sync.RWMutex
	byEntity map[core.EntityID]core.Handle
	byHandle map[core.Handle]core.EntityID
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		byEntity: make(map[core.EntityID]core.Handle),
		byHandle: make(map[core.Handle]core.EntityID),
	}
}

// Connect binds entity to handle. A previous handle for the same entity is
// unbound and returned.
func (d *Directory) Connect(entity core.EntityID, handle core.Handle) (previous core.Handle, replaced bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.byHandle[handle]; ok && old != entity {
		delete(d.byEntity, old)
	}
	previous, replaced = d.byEntity[entity]
	if replaced {
		delete(d.byHandle, previous)
	}
	d.byEntity[entity] = handle
	d.byHandle[handle] = entity
	return previous, replaced && previous != handle
}

// Disconnect removes handle. It reports the entity that was bound to it.
func (d *Directory) Disconnect(handle core.Handle) (core.EntityID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entity, ok := d.byHandle[handle]
	if !ok {
		return 0, false
	}
	delete(d.byHandle, handle)
	if d.byEntity[entity] == handle {
		delete(d.byEntity, entity)
	}
	return entity, true
}

// HandleFor returns the handle bound to entity.
func (d *Directory) HandleFor(entity core.EntityID) (core.Handle, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.byEntity[entity]
	return h, ok
}

// EntityFor returns the entity bound to handle.
func (d *Directory) EntityFor(handle core.Handle) (core.EntityID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.byHandle[handle]
	return e, ok
}

// Connected reports whether handle is currently bound.
func (d *Directory) Connected(handle core.Handle) bool {
	_, ok := d.EntityFor(handle)
	return ok
}

// Len returns the number of bound handles.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byHandle)
}

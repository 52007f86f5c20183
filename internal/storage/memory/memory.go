// Package memory keeps the combat log of the current round in memory and
// exports it to JSON when the round ends or the backend closes.
package memory

import (
	"sync"
	"time"

	"github.com/frontierstation/damagecast/internal/config"
	"github.com/frontierstation/damagecast/pkg/core"
)

// DefaultRoundName names records logged before any round starts.
const DefaultRoundName = "unnamed"

// Backend stores the combat log in memory and exports to JSON.
type Backend struct {
	cfg config.MemoryConfig
	now func() time.Time

	round      string
	started    time.Time
	hits       []core.HitRecord
	narrations []core.NarrationRecord
	idCounter  uint

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg, now: time.Now, round: DefaultRoundName}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started.IsZero() {
		b.started = b.now()
	}
	return nil
}

// Close exports whatever the current round has recorded.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exportLocked()
}

// StartRound exports the previous round, if it recorded anything, and
// starts collecting for the new one.
func (b *Backend) StartRound(name string, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.exportLocked()

	b.round = name
	b.started = at
	b.hits = nil
	b.narrations = nil
	b.idCounter = 0
	return err
}

// RecordHit appends a hit and assigns its ID.
func (b *Backend) RecordHit(h *core.HitRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	h.ID = b.idCounter
	b.hits = append(b.hits, *h)
	return nil
}

// RecordNarration appends a narration and assigns its ID.
func (b *Backend) RecordNarration(n *core.NarrationRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	n.ID = b.idCounter
	b.narrations = append(b.narrations, *n)
	return nil
}

// Hits returns a copy of the hits recorded this round.
func (b *Backend) Hits() []core.HitRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.HitRecord(nil), b.hits...)
}

// Narrations returns a copy of the narrations recorded this round.
func (b *Backend) Narrations() []core.NarrationRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.NarrationRecord(nil), b.narrations...)
}

// LastExportPath returns the file written by the most recent export.
func (b *Backend) LastExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

func (b *Backend) exportLocked() error {
	if len(b.hits) == 0 && len(b.narrations) == 0 {
		return nil
	}
	return b.exportJSON()
}

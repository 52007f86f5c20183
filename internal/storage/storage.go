// Package storage defines the combat log backends.
package storage

import (
	"time"

	"github.com/frontierstation/damagecast/pkg/core"
)

// Backend is the interface all combat log implementations must satisfy.
// Record calls must not block the damage pipeline.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// StartRound begins a new round; later records belong to it.
	StartRound(name string, at time.Time) error

	RecordHit(h *core.HitRecord) error
	RecordNarration(n *core.NarrationRecord) error
}

// Package gormstorage implements storage.Backend on any GORM dialect, with
// internal queues drained by a background writer.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/frontierstation/damagecast/internal/model"
	"github.com/frontierstation/damagecast/internal/model/convert"
	"github.com/frontierstation/damagecast/internal/queue"
	"github.com/frontierstation/damagecast/pkg/core"
)

// DefaultWriteInterval is used when Dependencies.WriteInterval is zero.
const DefaultWriteInterval = 2 * time.Second

// ErrNoDB is returned by Init when no connection was injected.
var ErrNoDB = errors.New("gorm backend has no database")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	WriteInterval time.Duration
}

type queues struct {
	Hits       *queue.Queue[model.Hit]
	Narrations *queue.Queue[model.Narration]
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	queues  queues
	roundID atomic.Uint64

	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	return &Backend{
		deps: deps,
		queues: queues{
			Hits:       queue.New[model.Hit](),
			Narrations: queue.New[model.Narration](),
		},
	}
}

// SetDB injects the connection. Call before Init.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Name())
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.stopOnce.Do(func() { close(b.stopChan) })
	<-b.done
	return nil
}

// StartRound inserts the round synchronously so queued records can be
// stamped with its ID.
func (b *Backend) StartRound(name string, at time.Time) error {
	if b.deps.DB == nil {
		return nil
	}
	// records of the previous round keep its ID
	b.Flush()

	r := model.Round{Name: name, StartedAt: at}
	if err := b.deps.DB.Create(&r).Error; err != nil {
		return fmt.Errorf("failed to insert round %q: %w", name, err)
	}
	b.roundID.Store(uint64(r.ID))
	return nil
}

// RoundID returns the ID of the current round, 0 before any round starts.
func (b *Backend) RoundID() uint {
	return uint(b.roundID.Load())
}

// RecordHit converts and queues a hit.
func (b *Backend) RecordHit(h *core.HitRecord) error {
	b.queues.Hits.Push(convert.CoreToHit(*h))
	return nil
}

// RecordNarration converts and queues a narration.
func (b *Backend) RecordNarration(n *core.NarrationRecord) error {
	b.queues.Narrations.Push(convert.CoreToNarration(*n))
	return nil
}

// Pending reports how many hits and narrations wait for the writer.
func (b *Backend) Pending() (hits, narrations int) {
	return b.queues.Hits.Len(), b.queues.Narrations.Len()
}

// Flush writes every queued record now.
func (b *Backend) Flush() {
	if b.deps.DB == nil {
		return
	}
	roundID := b.RoundID()
	writeQueue(b.deps.DB, b.queues.Hits, "hits", b.deps.Logger, func(items []model.Hit) {
		for i := range items {
			items[i].RoundID = roundID
		}
	})
	writeQueue(b.deps.DB, b.queues.Narrations, "narrations", b.deps.Logger, func(items []model.Narration) {
		for i := range items {
			items[i].RoundID = roundID
		}
	})
}

func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.Flush()
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}

// writeQueue writes all items from a queue in one transaction. Failed
// batches go back on the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) {
	items := q.Drain()
	if len(items) == 0 {
		return
	}
	if prepare != nil {
		prepare(items)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log.Error("Error writing batch", "table", name, "count", len(items), "error", err)
		q.Push(items...)
	}
}

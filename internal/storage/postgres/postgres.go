// Package postgres implements storage.Backend on PostgreSQL through the
// GORM backend, connecting on Init.
package postgres

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"

	"github.com/frontierstation/damagecast/internal/config"
	"github.com/frontierstation/damagecast/internal/database"
	gormstorage "github.com/frontierstation/damagecast/internal/storage/gorm"
)

// Backend is the GORM backend bound to a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	cfg   config.DBConfig
	dbLog zerolog.Logger
}

// New creates a Postgres backend. No connection is made until Init.
func New(cfg config.DBConfig, writeInterval time.Duration, logger *slog.Logger, dbLog zerolog.Logger) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{Logger: logger, WriteInterval: writeInterval}),
		cfg:     cfg,
		dbLog:   dbLog,
	}
}

// Init connects, migrates and starts the writer. Records queued before
// Init are kept.
func (b *Backend) Init() error {
	db, err := database.GetPostgresDB(b.cfg, b.dbLog)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.SetDB(db)
	return b.Backend.Init()
}

package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/frontierstation/damagecast/internal/config"
	"github.com/frontierstation/damagecast/internal/storage/memory"
	"github.com/frontierstation/damagecast/internal/storage/postgres"
	sqlitestorage "github.com/frontierstation/damagecast/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration. The backend
// is not initialized.
func NewBackend(cfg config.StorageConfig, logger *slog.Logger, dbLog zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.DB, cfg.WriteInterval, logger, dbLog), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, cfg.WriteInterval, logger, dbLog)
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/frontierstation/damagecast/internal/config"
	"github.com/frontierstation/damagecast/internal/model"
	"github.com/frontierstation/damagecast/pkg/core"
)

func TestClose_DumpsToDisk(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:sqlitestorage?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "combat.db")
	b := newWithDB(db, config.SQLiteConfig{Path: path}, time.Hour, nil)
	require.NoError(t, b.Init())

	require.NoError(t, b.StartRound("alpha", time.Now()))
	require.NoError(t, b.RecordNarration(&core.NarrationRecord{Observer: 4, Handle: 40, Text: "seen"}))
	require.NoError(t, b.Close())

	disk, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	var rows []model.Narration
	require.NoError(t, disk.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "seen", rows[0].Text)
	assert.Equal(t, uint64(40), rows[0].Handle)
}

func TestDumpLoop_Periodic(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:sqlitedumploop?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "periodic.db")
	b := newWithDB(db, config.SQLiteConfig{Path: path, DumpInterval: 10 * time.Millisecond}, time.Hour, nil)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

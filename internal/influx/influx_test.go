package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontierstation/damagecast/internal/config"
	"github.com/frontierstation/damagecast/pkg/core"
)

func unreachable() config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "damagecast",
		Bucket:   "combat",
	}
}

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func sampleHit() *core.HitRecord {
	victim := core.EntityID(2)
	return &core.HitRecord{
		Round:      "box-station",
		Tick:       40,
		Time:       time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		AttackerID: 1,
		VictimID:   &victim,
		Target:     core.TargetEntity,
		Region:     "left_arm",
		Weapon:     "pistol",
		Raw:        core.Damage{Brute: 20, Burn: 4},
		Applied:    core.Damage{Burn: 4},
		Result:     core.Blocked,
	}
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), filepath.Join(t.TempDir(), "backup.gz"))
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.IsValid())
	assert.Equal(t, "combat", m.Bucket())
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(unreachable(), zerolog.Nop(), filepath.Join(t.TempDir(), "backup.gz"))
	err := m.RecordHit(sampleHit())
	assert.ErrorContains(t, err, "backup writer not available")
	assert.NoError(t, m.Close())
}

func TestConnect_UnreachableWritesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.gz")
	m := NewManager(unreachable(), zerolog.Nop(), path)
	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid())

	require.NoError(t, m.RecordHit(sampleHit()))
	require.NoError(t, m.RecordNarration(&core.NarrationRecord{
		Round:    "box-station",
		Tick:     40,
		Time:     time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Observer: 10,
		Handle:   100,
		Text:     "[color=#ff003c]Alice has fired his pistol![/color]",
	}))
	require.NoError(t, m.Close())

	lines := readBackup(t, path)
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "hit,"))
	assert.Contains(t, lines[0], "result=Blocked")
	assert.Contains(t, lines[0], "region=left_arm")
	assert.Contains(t, lines[0], "victim=2u")
	assert.Contains(t, lines[0], "total=4")
	assert.True(t, strings.HasPrefix(lines[1], "narration,"))
	assert.Contains(t, lines[1], "observer=10u")
	assert.NotContains(t, lines[1], "Alice")
}

func TestHitPoint_StructureHasNoVictim(t *testing.T) {
	h := sampleHit()
	h.VictimID = nil
	h.Target = core.TargetStructure
	h.Region = ""

	line := influxdb2_write.PointToLineProtocol(HitPoint(h), time.Nanosecond)
	assert.Contains(t, line, "target=structure")
	assert.NotContains(t, line, "victim=")
	assert.NotContains(t, line, "region=")
}

func TestParseMetric(t *testing.T) {
	bucket, p, err := ParseMetric([]string{
		`"server_performance"`,
		`"fps"`,
		`"tag::map::box"`,
		`"field::float::fps::48.5"`,
		`"field::int::players::31"`,
		`"field::string::note::ok"`,
		`"ignored"`,
	})
	require.NoError(t, err)
	assert.Equal(t, "server_performance", bucket)

	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, "fps,map=box "))
	assert.Contains(t, line, "fps=48.5")
	assert.Contains(t, line, "players=31i")
	assert.Contains(t, line, `note="ok"`)
}

func TestParseMetric_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"too short", []string{"bucket"}},
		{"bad int", []string{"b", "m", "field::int::n::x"}},
		{"bad float", []string{"b", "m", "field::float::n::x"}},
		{"no fields", []string{"b", "m", "tag::a::b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseMetric(tt.args)
			assert.Error(t, err)
		})
	}
}

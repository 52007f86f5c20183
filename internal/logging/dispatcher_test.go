package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		out = append(out, entry)
	}
	return out
}

func TestDispatcherLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(NewZerolog(&buf, "debug", "dispatcher"))

	dl.Debug("handling event", "command", ":TICK:", "args", 1)
	dl.Info("ready")
	dl.Error("event failed", "command", ":DAMAGE:ENTITY:", "error", errors.New("boom"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)

	assert.Equal(t, "debug", entries[0]["level"])
	assert.Equal(t, "handling event", entries[0]["message"])
	assert.Equal(t, ":TICK:", entries[0]["command"])
	assert.Equal(t, float64(1), entries[0]["args"])
	assert.Equal(t, "dispatcher", entries[0]["component"])

	assert.Equal(t, "info", entries[1]["level"])

	assert.Equal(t, "error", entries[2]["level"])
	assert.Equal(t, "boom", entries[2]["error"])
}

func TestNewZerolog_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(NewZerolog(&buf, "info", "dispatcher"))
	dl.Debug("hidden")
	assert.Empty(t, buf.String())

	buf.Reset()
	dl = NewDispatcherLogger(NewZerolog(&buf, "nonsense", "dispatcher"))
	dl.Debug("hidden")
	dl.Info("shown")
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
}

func TestToFields(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "skipped", "odd"})
	assert.Equal(t, map[string]any{"a": 1}, fields)
}

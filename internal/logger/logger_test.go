package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLogsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter("production", &buf)

	log.Debug("hidden")
	log.Info("vote recorded", "poll_id", "p1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "vote recorded", entry["msg"])
	assert.Equal(t, "p1", entry["poll_id"])
}

func TestLocalLogsTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(EnvLocal, &buf)

	log.Debug("live connection closed", "poll_id", "p2")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "poll_id=p2")
}

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llmxray.log")

	logger, err := New(false, path)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("stream opened")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "stream opened", entry["msg"])
	assert.Equal(t, "llmxray", entry["logger"])
}

func TestNew_Verbose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llmxray.log")

	logger, err := New(true, path)
	require.NoError(t, err)

	logger.Debug("frame decoded")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "frame decoded")
}

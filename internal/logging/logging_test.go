package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesConsoleAndJSONFile(t *testing.T) {
	logger := logrus.New()
	console := &bytes.Buffer{}
	logFile := filepath.Join(t.TempDir(), "logs", "planesync.log")

	closeLog, err := setup(logger, console, "info", logFile)
	require.NoError(t, err)

	logger.WithField("issues", 3).Info("Sync finished")
	logger.Debug("not shown")
	require.NoError(t, closeLog())

	assert.Contains(t, console.String(), "Sync finished")
	assert.NotContains(t, console.String(), "not shown")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Sync finished", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 3, entry["issues"])
}

func TestSetupRotatesJSONFile(t *testing.T) {
	logger := logrus.New()
	dir := t.TempDir()
	logFile := filepath.Join(dir, "planesync.log")

	closeLog, err := setup(logger, &bytes.Buffer{}, "info", logFile)
	require.NoError(t, err)

	padding := strings.Repeat("x", 16*1024)
	for i := 0; i < (maxLogMegabytes*1024)/16+8; i++ {
		logger.WithField("padding", padding).Info("Filling the log")
	}
	require.NoError(t, closeLog())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2, "expected a rotated backup next to the log file")

	info, err := os.Stat(logFile)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(maxLogMegabytes*1024*1024))
}

func TestSetupRejectsInvalidLevel(t *testing.T) {
	_, err := setup(logrus.New(), &bytes.Buffer{}, "loud", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

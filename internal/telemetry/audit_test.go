package telemetry

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEventCreatesFileAndWritesNDJSON(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewAuditLogger(logPath)
	require.NoError(t, err)

	err = logger.LogEvent(AuditEntry{
		ID:        "entry-1",
		RequestID: "req-1",
		ChainID:   1,
		Timestamp: time.Now(),
		Operation: "INTAKE",
		Status:    "SUCCESS",
	})
	require.NoError(t, err)

	info, err := os.Stat(logPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := (&AuditLogger{filePath: logPath}).ReadLog()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0].RequestID)
}

func TestLogEventAppendsAcrossCalls(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewAuditLogger(logPath)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, logger.LogEvent(AuditEntry{
			ID:        "entry",
			RequestID: "req",
			Timestamp: time.Now(),
			Operation: "BROADCAST",
			Status:    "SUCCESS",
		}))
	}

	entries, err := logger.ReadLog()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestReadLogOnMissingFileIsEmptyNotError(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nonexistent.log")
	logger := &AuditLogger{filePath: logPath}

	entries, err := logger.ReadLog()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadLogSkipsMalformedLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(logPath), 0700))
	require.NoError(t, os.WriteFile(logPath, []byte("{\"id\":\"ok\",\"requestId\":\"r1\",\"operation\":\"INTAKE\",\"status\":\"SUCCESS\"}\nnot json\n"), 0600))

	logger := &AuditLogger{filePath: logPath}
	entries, err := logger.ReadLog()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r1", entries[0].RequestID)
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestParseLevelRejectsUnknownValue(t *testing.T) {
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

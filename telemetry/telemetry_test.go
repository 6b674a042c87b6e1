package telemetry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDailyRotatingWriter(t *testing.T) {
	tempDir := t.TempDir()

	writer, err := newDailyRotatingWriter(tempDir)
	require.NoError(t, err)
	require.NotNil(t, writer)
	defer writer.Close()

	assert.Equal(t, tempDir, writer.stateHome)
	assert.Equal(t, time.Now().Format("2006-01-02"), writer.currentDate)
	assert.NotNil(t, writer.file)

	expectedFileName := traceFilePrefix + time.Now().Format("2006-01-02") + traceFileSuffix
	_, err = os.Stat(filepath.Join(tempDir, expectedFileName))
	assert.NoError(t, err)
}

func TestNewDailyRotatingWriter_InvalidPath(t *testing.T) {
	writer, err := newDailyRotatingWriter("/nonexistent/path/that/should/not/exist")
	assert.Error(t, err)
	assert.Nil(t, writer)
}

func TestDailyRotatingWriter_Write(t *testing.T) {
	tempDir := t.TempDir()

	writer, err := newDailyRotatingWriter(tempDir)
	require.NoError(t, err)
	defer writer.Close()

	testData := []byte("test trace data\n")
	n, err := writer.Write(testData)
	require.NoError(t, err)
	assert.Equal(t, len(testData), n)

	expectedFileName := traceFilePrefix + time.Now().Format("2006-01-02") + traceFileSuffix
	content, err := os.ReadFile(filepath.Join(tempDir, expectedFileName))
	require.NoError(t, err)
	assert.Equal(t, testData, content)
}

func TestCleanupOldTraceFiles(t *testing.T) {
	tempDir := t.TempDir()

	// More files than the retention cap, in shuffled creation order
	dates := []string{
		"2026-01-01", "2026-01-05", "2026-01-03", "2026-01-09", "2026-01-07",
		"2026-01-02", "2026-01-06", "2026-01-04", "2026-01-08", "2026-01-10",
	}
	for _, date := range dates {
		name := traceFilePrefix + date + traceFileSuffix
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, name), []byte("{}"), 0644))
	}
	// Unrelated files must be left alone
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "dayflow.db"), []byte("x"), 0644))

	cleanupOldTraceFiles(tempDir)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	var remaining []string
	for _, entry := range entries {
		remaining = append(remaining, entry.Name())
	}
	assert.Len(t, remaining, maxTraceFileCount+1)
	assert.Contains(t, remaining, "dayflow.db")
	assert.NotContains(t, remaining, traceFilePrefix+"2026-01-01"+traceFileSuffix)
	assert.NotContains(t, remaining, traceFilePrefix+"2026-01-02"+traceFileSuffix)
	assert.NotContains(t, remaining, traceFilePrefix+"2026-01-03"+traceFileSuffix)
	assert.Contains(t, remaining, traceFilePrefix+"2026-01-10"+traceFileSuffix)
}

func TestIsEnabled(t *testing.T) {
	t.Setenv("DAYFLOW_OTEL_ENABLED", "")
	assert.True(t, IsEnabled())

	t.Setenv("DAYFLOW_OTEL_ENABLED", "FALSE")
	assert.False(t, IsEnabled())

	t.Setenv("DAYFLOW_OTEL_ENABLED", "0")
	assert.False(t, IsEnabled())

	t.Setenv("DAYFLOW_OTEL_ENABLED", "true")
	assert.True(t, IsEnabled())
}

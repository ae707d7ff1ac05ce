package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel(" error "))
	assert.Equal(t, INFO, ParseLevel("bogus"))
	assert.Equal(t, INFO, ParseLevel(""))
}

func TestRemoveExpiredLogs(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "host-2020-01-01.log")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0644))
	stale := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	fresh := filepath.Join(dir, "host-today.log")
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0644))

	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(other, stale, stale))

	removeExpiredLogs(dir, 7)

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err), "expired log file should be removed")
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "recent log file stays")
	_, err = os.Stat(other)
	assert.NoError(t, err, "only host-*.log files are pruned")
}

func TestPruneOldLogsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	done := make(chan struct{})
	go func() {
		pruneOldLogs(ctx, dir, 7)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retention goroutine did not stop on context cancel")
	}
}

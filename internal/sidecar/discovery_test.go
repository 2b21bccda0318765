package sidecar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiscovery_WriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "corpus.db")

	d := &discovery{
		Host:      "127.0.0.1",
		Port:      4123,
		PID:       os.Getpid(),
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		DBPath:    dbPath,
	}
	require.NoError(t, writeDiscovery(dbPath, d))

	got, err := readDiscovery(dbPath)
	require.NoError(t, err)
	require.Equal(t, d.Host, got.Host)
	require.Equal(t, d.Port, got.Port)
	require.Equal(t, d.PID, got.PID)

	require.NoError(t, removeDiscovery(dbPath))
	_, err = readDiscovery(dbPath)
	require.Error(t, err)
}

func TestProcessAlive_CurrentProcessIsAlive(t *testing.T) {
	require.True(t, processAlive(os.Getpid()))
}

func TestProcessAlive_UnusedPIDIsNotAlive(t *testing.T) {
	// PID 1 is normally init/systemd and not signalable by a test process;
	// a very large PID is reliably unassigned instead.
	require.False(t, processAlive(1<<30))
}

// TestS5_StaleDiscoveryFileIsReplacedOnFreshBind: a discovery file left
// behind by a process that is no longer running (or that never answers
// /health) is removed on Start, and the new instance binds and announces
// fresh rather than reporting "already_running".
func TestS5_StaleDiscoveryFileIsReplacedOnFreshBind(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "corpus.db")

	stale := &discovery{
		Host:      "127.0.0.1",
		Port:      freeLoopbackPortForTest(t),
		PID:       unusedPIDForTest(),
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		DBPath:    dbPath,
	}
	require.NoError(t, writeDiscovery(dbPath, stale))

	s, err := New(Options{
		DBPath:    dbPath,
		IndexPath: filepath.Join(dir, "index.bleve"),
		RunsDir:   dir,
		Host:      "127.0.0.1",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	require.Eventually(t, func() bool {
		d, err := readDiscovery(dbPath)
		return err == nil && d.PID == os.Getpid() && d.Port != stale.Port
	}, time.Second, 10*time.Millisecond, "expected fresh discovery file with this process's pid")

	cancel()
	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, <-errCh)

	_, err = readDiscovery(dbPath)
	require.Error(t, err, "discovery file should be removed on shutdown")
}

func freeLoopbackPortForTest(t *testing.T) int {
	t.Helper()
	port, err := freePort("127.0.0.1")
	require.NoError(t, err)
	return port
}

// unusedPIDForTest returns a PID that is very unlikely to name a live
// process, to exercise the stale-discovery-file removal path.
func unusedPIDForTest() int {
	return 1 << 30
}

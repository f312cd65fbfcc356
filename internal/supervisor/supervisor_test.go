package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRunningForCurrentProcess(t *testing.T) {
	running, err := IsRunning(os.Getpid())
	require.NoError(t, err)
	assert.True(t, running)
}

func TestIsRunningForUnlikelyPID(t *testing.T) {
	running, err := IsRunning(1 << 30)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRunningBackgroundPIDRoundTrip(t *testing.T) {
	dir := t.TempDir()
	orig, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(orig)

	_, ok := RunningBackgroundPID()
	assert.False(t, ok, "no pid file yet")

	require.NoError(t, WritePIDFile())
	pid, ok := RunningBackgroundPID()
	assert.True(t, ok)
	assert.Equal(t, os.Getpid(), pid)

	RemovePIDFile()
	_, err := os.Stat(filepath.Join(dir, PIDFile))
	assert.True(t, os.IsNotExist(err))
}

func TestSuperviseStatusProducerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		SuperviseStatusProducer(ctx, "true", nil)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}
}

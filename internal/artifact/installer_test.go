package artifact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInstallerLifecycle(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	src := newFakeSource("1.0.0", map[string]string{"1.0.0": "v1"})
	src.gate = make(chan struct{})
	inst := NewInstaller(newTestManager(t, src, clock))

	require.Equal(t, StatusUninitialized, inst.Status())
	require.NoError(t, inst.Wait(context.Background()), "no task started")

	require.True(t, inst.Start(context.Background(), LatestVersion))
	require.Equal(t, StatusInstalling, inst.Status())
	require.True(t, inst.Running())

	require.False(t, inst.Start(context.Background(), LatestVersion), "second start is a no-op while running")

	close(src.gate)
	require.NoError(t, inst.Wait(context.Background()))
	require.Equal(t, StatusReady, inst.Status())
	require.NoError(t, inst.Err())
	require.Equal(t, 1, src.fetchCalls)

	// Finished tasks may be restarted; nothing to do the second time.
	require.True(t, inst.Start(context.Background(), LatestVersion))
	require.NoError(t, inst.Wait(context.Background()))
	require.Equal(t, StatusReady, inst.Status())
	require.Equal(t, 1, src.fetchCalls)
}

func TestInstallerError(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	src := newFakeSource("1.0.0", nil)
	src.resolveErr = errors.New("offline")
	inst := NewInstaller(newTestManager(t, src, clock))

	require.True(t, inst.Start(context.Background(), LatestVersion))
	err := inst.Wait(context.Background())
	require.ErrorContains(t, err, "offline")
	require.Equal(t, StatusFailed, inst.Status())
	require.Equal(t, err, inst.Err())
}

func TestInstallerIgnoresCallerCancellation(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	src := newFakeSource("1.0.0", map[string]string{"1.0.0": "v1"})
	src.gate = make(chan struct{})
	m := newTestManager(t, src, clock)
	inst := NewInstaller(m)

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, inst.Start(ctx, "1.0.0"))
	cancel()
	close(src.gate)

	require.NoError(t, inst.Wait(context.Background()))
	_, ok := m.Installed()
	require.True(t, ok, "download completes after the caller's context is cancelled")
}

func TestInstallerWaitContext(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	src := newFakeSource("1.0.0", map[string]string{"1.0.0": "v1"})
	src.gate = make(chan struct{})
	inst := NewInstaller(newTestManager(t, src, clock))
	t.Cleanup(func() {
		close(src.gate)
		_ = inst.Wait(context.Background())
	})

	require.True(t, inst.Start(context.Background(), LatestVersion))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, inst.Wait(ctx), context.DeadlineExceeded)
	require.Equal(t, StatusInstalling, inst.Status())
}

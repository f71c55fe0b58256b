package eventloop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRunRevertsToReadyOnSpawnFailure exercises Run's spawn-failure path
// (SPEC_FULL.md §4.6/§12.4): Go goroutines can't themselves fail to start,
// but the injectable spawn hook models the original's thread-spawn-failure
// handling, and must revert both lifecycle copies to READY and report an
// error rather than leaving the loop half-started.
func TestRunRevertsToReadyOnSpawnFailure(t *testing.T) {
	l := &Loop{done: make(chan struct{})}
	l.opts = &loopOptions{
		spawn: func(func()) error { return errors.New("fake: spawn failed") },
	}

	err := l.Run()
	require.Error(t, err)
	require.Equal(t, StateReady, l.mailbox.snapshotState())
	require.Equal(t, StateReady, l.privateState)
}

// TestRunFromLoopThreadIsReentrant exercises the reentrant-run guard: Run
// called from the loop's own worker goroutine must fail with ErrReentrantRun
// rather than attempting to spawn a second worker.
func TestRunFromLoopThreadIsReentrant(t *testing.T) {
	l := &Loop{done: make(chan struct{})}
	l.opts = &loopOptions{spawn: defaultSpawn}
	l.workerGoroutineID.Store(goroutineID())

	err := l.Run()
	require.ErrorIs(t, err, ErrReentrantRun)
}

package eventloop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-eventloop-runtime/internal/multiplex"
)

// fakeMultiplexer lets runSubscribeTask's rollback logic be exercised
// directly, without a real kernel multiplexer: Add fails for the write
// direction on the configured fd and succeeds otherwise, so the read
// direction's rollback path can be observed (scenario S4).
type fakeMultiplexer struct {
	failAddDir multiplex.Direction
	failOnFD   int
	added      []multiplex.Direction
	removed    []multiplex.Direction
}

func (f *fakeMultiplexer) Init() error  { return nil }
func (f *fakeMultiplexer) Close() error { return nil }

func (f *fakeMultiplexer) Add(fd int, dir multiplex.Direction) error {
	if fd == f.failOnFD && dir == f.failAddDir {
		return errors.New("fake: add failed")
	}
	f.added = append(f.added, dir)
	return nil
}

func (f *fakeMultiplexer) Remove(fd int, dir multiplex.Direction) error {
	f.removed = append(f.removed, dir)
	return nil
}

func (f *fakeMultiplexer) Wait(dst []multiplex.Event, timeoutMs int) ([]multiplex.Event, error) {
	return dst[:0], nil
}

// TestSubscribeTaskRollsBackOnPartialFailure exercises scenario S4: if the
// write-direction registration fails after the read direction already
// succeeded, the read direction is rolled back, registeredOK is left false,
// the record never lands in the registry's live map, and the callback fires
// exactly once with EventError.
func TestSubscribeTaskRollsBackOnPartialFailure(t *testing.T) {
	const fd = 42
	mux := &fakeMultiplexer{failOnFD: fd, failAddDir: multiplex.Writable}

	l := &Loop{registry: newHandleRegistry(mux)}

	var calls []EventMask
	rec := &HandleRecord{
		fd:             fd,
		subscribedMask: EventReadable | EventWritable,
		callback: func(mask EventMask) {
			calls = append(calls, mask)
		},
	}

	l.runSubscribeTask(rec, StatusRun)

	require.False(t, rec.registeredOK)
	require.Equal(t, []EventMask{EventError}, calls)
	require.Equal(t, 1, l.registry.connectedHandleCount)
	_, stillRegistered := l.registry.records[fd]
	require.False(t, stillRegistered)

	require.Equal(t, []multiplex.Direction{multiplex.Readable}, mux.added)
	require.Equal(t, []multiplex.Direction{multiplex.Readable}, mux.removed)

	// unsubscribeTask must still balance the counter even though
	// registration never fully succeeded, and must not attempt any further
	// removal (registeredOK is false).
	l.runUnsubscribeTask(rec, StatusRun)
	require.Equal(t, 0, l.registry.connectedHandleCount)
	require.Equal(t, []multiplex.Direction{multiplex.Readable}, mux.removed)
}

// TestSubscribeTaskCanceledNeverRegisters exercises the teardown-race path:
// a subscribeTask that runs with StatusCanceled (loop already destroyed)
// must still balance connectedHandleCount but must not touch the
// multiplexer or invoke the callback.
func TestSubscribeTaskCanceledNeverRegisters(t *testing.T) {
	const fd = 7
	mux := &fakeMultiplexer{failOnFD: -1}
	l := &Loop{registry: newHandleRegistry(mux)}

	called := false
	rec := &HandleRecord{
		fd:             fd,
		subscribedMask: EventReadable,
		callback:       func(EventMask) { called = true },
	}

	l.runSubscribeTask(rec, StatusCanceled)

	require.True(t, rec.canceled)
	require.False(t, called)
	require.Equal(t, 1, l.registry.connectedHandleCount)
	require.Empty(t, mux.added)
	_, stillRegistered := l.registry.records[fd]
	require.False(t, stillRegistered)
}

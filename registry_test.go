package eventloop_test

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	eventloop "github.com/joeycumines/go-eventloop-runtime"
)

// TestUnsubscribeFromCallbackStopsFurtherDelivery exercises scenario S5: a
// callback that unsubscribes its own handle must see no further callbacks,
// and the handle record must not leak (not asserted here; under the
// eventloopdebug build tag, Destroy's connectedHandleCount assertion panics
// on a leaked record).
func TestUnsubscribeFromCallbackStopsFurtherDelivery(t *testing.T) {
	l, err := eventloop.New()
	require.NoError(t, err)
	require.NoError(t, l.Run())
	t.Cleanup(l.Destroy)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(); w.Close() })

	var calls atomic.Int64
	fd := int(r.Fd())
	require.NoError(t, l.SubscribeToIOEvents(fd, eventloop.EventReadable, func(mask eventloop.EventMask) {
		calls.Add(1)
		_ = l.UnsubscribeFromIOEvents(fd)
	}))

	_, err = w.Write([]byte("a"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	// Drain more data; since the handle unsubscribed itself on the first
	// callback, no further callback should ever be observed.
	_, err = w.Write([]byte("b"))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, calls.Load())
}

// TestSubscribeRoundTripReadableThenClosed exercises testable property 6
// (SPEC_FULL.md §8), the readable/closed round trip: a write
// delivers EventReadable, and closing the peer eventually delivers
// EventClosed (possibly coalesced with a final EventReadable for buffered
// data still in flight).
func TestSubscribeRoundTripReadableThenClosed(t *testing.T) {
	l, err := eventloop.New()
	require.NoError(t, err)
	require.NoError(t, l.Run())
	t.Cleanup(l.Destroy)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	events := make(chan eventloop.EventMask, 8)
	fd := int(r.Fd())
	require.NoError(t, l.SubscribeToIOEvents(fd, eventloop.EventReadable, func(mask eventloop.EventMask) {
		events <- mask
	}))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	select {
	case mask := <-events:
		require.NotZero(t, mask&eventloop.EventReadable)
	case <-time.After(2 * time.Second):
		t.Fatal("no readable event delivered")
	}

	require.NoError(t, w.Close())

	select {
	case mask := <-events:
		require.NotZero(t, mask&eventloop.EventClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("no closed event delivered after peer close")
	}

	require.NoError(t, l.UnsubscribeFromIOEvents(fd))
}

package eventloop

import "github.com/joeycumines/go-eventloop-runtime/internal/multiplex"

// EventMask is the set of application-level readiness flags delivered to an
// IOCallback.
type EventMask uint32

const (
	// EventReadable indicates the handle has data available to read.
	EventReadable EventMask = 1 << iota
	// EventWritable indicates the handle has buffer space available to write.
	EventWritable
	// EventClosed indicates the peer has closed its end (EOF/hangup).
	EventClosed
	// EventError indicates an error condition; no other bits are set
	// alongside it.
	EventError
)

// IOCallback receives the coalesced event mask for one handle in one
// iteration of the event pump. It is invoked at most once per handle per
// iteration even when both directions fire.
type IOCallback func(EventMask)

// HandleRecord is the loop's bookkeeping for one subscribed file
// descriptor. It is owned by the Loop from the moment its subscribeTask
// completes until its unsubscribeTask frees it; callers never touch it
// directly.
type HandleRecord struct {
	fd             int
	subscribedMask EventMask // Readable/Writable bits requested by the caller
	iterationMask  EventMask // accumulated flags for the in-progress iteration
	callback       IOCallback
	registeredOK   bool
	canceled       bool

	subscribeTask   Task
	unsubscribeTask Task
}

// handleRegistry tracks every live HandleRecord, keyed by fd. It is touched
// only by the worker goroutine; Subscribe/Unsubscribe reach it exclusively
// through posted tasks (subscribeTask/unsubscribeTask), so registration
// mutation is always single-threaded, collapsing the partial-failure
// cleanup, event-delivery, and concurrent-subscribe/unsubscribe races into
// ordinary sequencing.
type handleRegistry struct {
	mux     multiplex.Multiplexer
	records map[int]*HandleRecord

	// connectedHandleCount is incremented unconditionally at the start of
	// subscribeTask and decremented unconditionally at the start of
	// unsubscribeTask, so a Subscribe immediately followed by an
	// Unsubscribe still balances even if registration itself never
	// succeeds.
	connectedHandleCount int
}

func newHandleRegistry(mux multiplex.Multiplexer) *handleRegistry {
	return &handleRegistry{mux: mux, records: make(map[int]*HandleRecord)}
}

// SubscribeToIOEvents validates preconditions and posts the embedded
// subscribe task. Safe to call from any goroutine.
func (l *Loop) SubscribeToIOEvents(fd int, mask EventMask, cb IOCallback) error {
	if l.destroyed.Load() {
		return ErrLoopTerminated
	}
	if mask&(EventReadable|EventWritable) == 0 {
		return ErrNoEventMask
	}
	if cb == nil {
		return ErrNilCallback
	}

	l.handleIndexMu.Lock()
	if _, exists := l.handleIndex[fd]; exists {
		l.handleIndexMu.Unlock()
		return ErrFDAlreadyRegistered
	}
	rec := &HandleRecord{fd: fd, subscribedMask: mask, callback: cb}
	l.handleIndex[fd] = rec
	l.handleIndexMu.Unlock()

	rec.subscribeTask.Run = func(status TaskStatus) {
		l.runSubscribeTask(rec, status)
	}
	l.dispatchTask(&rec.subscribeTask)
	return nil
}

// UnsubscribeFromIOEvents detaches the handle and posts the embedded
// unsubscribe task. Safe to call from any goroutine, including from within
// the handle's own callback.
func (l *Loop) UnsubscribeFromIOEvents(fd int) error {
	l.handleIndexMu.Lock()
	rec, exists := l.handleIndex[fd]
	if exists {
		delete(l.handleIndex, fd)
	}
	l.handleIndexMu.Unlock()
	if !exists {
		return ErrHandleNotSubscribed
	}
	rec.unsubscribeTask.Run = func(status TaskStatus) {
		l.runUnsubscribeTask(rec, status)
	}
	l.dispatchTask(&rec.unsubscribeTask)
	return nil
}

// runSubscribeTask implements the subscribe protocol from the original
// kqueue backend: bump the counter unconditionally first, then attempt
// registration of each requested direction, rolling back the first
// direction if the second fails, and reporting failure to the user
// callback exactly once.
func (l *Loop) runSubscribeTask(rec *HandleRecord, status TaskStatus) {
	l.registry.connectedHandleCount++
	if status == StatusCanceled {
		rec.canceled = true
		return
	}

	var addedRead, addedWrite bool
	var err error
	if rec.subscribedMask&EventReadable != 0 {
		if err = l.registry.mux.Add(rec.fd, multiplex.Readable); err == nil {
			addedRead = true
		}
	}
	if err == nil && rec.subscribedMask&EventWritable != 0 {
		if err = l.registry.mux.Add(rec.fd, multiplex.Writable); err == nil {
			addedWrite = true
		}
	}

	if err != nil {
		if addedRead {
			_ = l.registry.mux.Remove(rec.fd, multiplex.Readable)
		}
		if addedWrite {
			_ = l.registry.mux.Remove(rec.fd, multiplex.Writable)
		}
		rec.registeredOK = false
		l.logf(LevelWarn, "subscribe", "failed to register fd", err)
		rec.callback(EventError)
		return
	}

	rec.registeredOK = true
	l.registry.records[rec.fd] = rec
}

// runUnsubscribeTask decrements the counter, issues best-effort deletes for
// whichever directions were actually registered, and frees the record.
func (l *Loop) runUnsubscribeTask(rec *HandleRecord, status TaskStatus) {
	l.registry.connectedHandleCount--
	if status != StatusCanceled && rec.registeredOK {
		if rec.subscribedMask&EventReadable != 0 {
			_ = l.registry.mux.Remove(rec.fd, multiplex.Readable)
		}
		if rec.subscribedMask&EventWritable != 0 {
			_ = l.registry.mux.Remove(rec.fd, multiplex.Writable)
		}
	}
	delete(l.registry.records, rec.fd)
}

// deriveEventMask implements the event-flag derivation of the original
// kqueue backend on top of epoll's combined-record model (see
// SPEC_FULL.md §4.4): ERROR wins outright; otherwise readable/writable bits
// are gated by nonzero availability, and EPOLLHUP/EPOLLRDHUP contributes
// EventClosed alongside whichever direction(s) fired.
func deriveEventMask(ev multiplex.Event) EventMask {
	if ev.Error {
		return EventError
	}
	var mask EventMask
	if ev.Readable && ev.Available {
		mask |= EventReadable
	}
	if ev.Writable {
		mask |= EventWritable
	}
	if ev.HangUp {
		mask |= EventClosed
	}
	return mask
}

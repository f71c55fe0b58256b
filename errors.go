package eventloop

import "errors"

// Sentinel errors returned by Loop operations. Callers should match these
// with errors.Is rather than comparing strings. Naming and scoping follows
// the teacher's own loop.go sentinel set (ErrLoopAlreadyRunning,
// ErrLoopTerminated, ErrReentrantRun).
var (
	// ErrLoopAlreadyRunning is returned by Run when the loop is not in the
	// READY state (and has not been destroyed).
	ErrLoopAlreadyRunning = errors.New("eventloop: loop is already running")

	// ErrLoopTerminated is returned by Run and SubscribeToIOEvents when
	// invoked after Destroy.
	ErrLoopTerminated = errors.New("eventloop: loop has been terminated")

	// ErrReentrantRun is returned by Run when called from the loop's own
	// worker goroutine (e.g. from within a task or I/O callback).
	ErrReentrantRun = errors.New("eventloop: cannot call Run from within the loop")

	// ErrFDAlreadyRegistered is returned by SubscribeToIOEvents when the
	// given file descriptor already has a live HandleRecord.
	ErrFDAlreadyRegistered = errors.New("eventloop: file descriptor already registered")

	// ErrHandleNotSubscribed is returned by UnsubscribeFromIOEvents when
	// the given file descriptor has no live HandleRecord.
	ErrHandleNotSubscribed = errors.New("eventloop: file descriptor not subscribed")

	// ErrNoEventMask is returned by SubscribeToIOEvents when neither
	// EventReadable nor EventWritable is requested.
	ErrNoEventMask = errors.New("eventloop: subscription requires at least one of readable or writable")

	// ErrNilCallback is returned by SubscribeToIOEvents when no callback is given.
	ErrNilCallback = errors.New("eventloop: subscription requires a non-nil callback")
)

// wrapConstructionError annotates a resource-acquisition failure encountered
// while New is unwinding partially-constructed state.
func wrapConstructionError(step string, cause error) error {
	return &constructionError{step: step, cause: cause}
}

type constructionError struct {
	step  string
	cause error
}

func (e *constructionError) Error() string {
	return "eventloop: construction failed at " + e.step + ": " + e.cause.Error()
}

func (e *constructionError) Unwrap() error {
	return e.cause
}

// wrapSpawnError annotates a failure to start the worker goroutine. Go
// goroutines don't themselves fail to start, but Run's spawn hook is an
// injectable seam (see options.go) so this path can still be modeled and
// tested for parity with the original's thread-spawn failure handling.
func wrapSpawnError(cause error) error {
	return &spawnError{cause: cause}
}

type spawnError struct {
	cause error
}

func (e *spawnError) Error() string {
	return "eventloop: failed to spawn worker goroutine: " + e.cause.Error()
}

func (e *spawnError) Unwrap() error {
	return e.cause
}

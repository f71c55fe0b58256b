package eventloop

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/joeycumines/go-eventloop-runtime/internal/multiplex"
)

// Loop is a single-threaded, kernel-event-driven I/O event loop. One Loop
// owns one worker goroutine, one kernel multiplexer, one wake channel, one
// mailbox, one scheduler, and one handle registry. Construct with New and
// start with Run; Stop followed by Join tears the worker down cleanly.
type Loop struct {
	id string

	opts   *loopOptions
	logger Logger

	mailbox   mailbox
	scheduler *scheduler
	registry  *handleRegistry

	handleIndexMu sync.Mutex
	handleIndex   map[int]*HandleRecord

	wake *wakeChannel

	// privateState is touched only by the worker goroutine; it is the
	// worker's own copy of the lifecycle, reconciled from mailbox.drain
	// snapshots rather than shared directly (see state.go).
	privateState LifecycleState

	workerGoroutineID atomic.Uint64
	done              chan struct{}

	destroyed atomic.Bool
	runOnce   sync.Once
}

// New constructs a Loop in the READY state. Construction acquires the
// kernel multiplexer and the wake channel; any failure unwinds whatever was
// already acquired, in reverse order, so no partially-built Loop is ever
// returned.
func New(opts ...Option) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}

	mux := &multiplex.Epoll{}
	if err := mux.Init(); err != nil {
		return nil, wrapConstructionError("multiplexer init", err)
	}

	wake, err := newWakeChannel(mux)
	if err != nil {
		_ = mux.Close()
		return nil, wrapConstructionError("wake channel", err)
	}

	l := &Loop{
		id:          uuid.NewString(),
		opts:        cfg,
		logger:      cfg.logger,
		scheduler:   newScheduler(),
		registry:    newHandleRegistry(mux),
		handleIndex: make(map[int]*HandleRecord),
		wake:        wake,
		done:        make(chan struct{}),
	}
	l.mailbox.state = StateReady
	l.privateState = StateReady
	return l, nil
}

// Run spawns the worker goroutine and returns immediately; it does not
// block until the loop stops (use Join for that). Precondition: the loop
// must be in the READY state. Run must not be called concurrently with
// itself or with Stop: a Stop issued before Run has set the state to
// RUNNING finds the loop READY, does nothing, and is lost.
func (l *Loop) Run() error {
	if l.IsOnLoopThread() {
		return ErrReentrantRun
	}
	if l.destroyed.Load() {
		return ErrLoopTerminated
	}
	if l.mailbox.snapshotState() != StateReady {
		return ErrLoopAlreadyRunning
	}
	l.mailbox.setState(StateRunning)
	l.privateState = StateRunning

	err := l.opts.spawn(func() {
		l.workerGoroutineID.Store(goroutineID())
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(l.done)
		l.eventPump()
	})
	if err != nil {
		l.mailbox.setState(StateReady)
		l.privateState = StateReady
		return wrapSpawnError(err)
	}
	return nil
}

// Stop requests the worker to exit at the next iteration boundary. Safe to
// call from any goroutine, any number of times, before or after the loop
// has actually stopped.
func (l *Loop) Stop() {
	if l.mailbox.requestStop() {
		l.wake.signal()
	}
}

// Join blocks until the worker goroutine has exited, then resets both
// lifecycle copies back to READY. Calling Join without a prior Stop
// deadlocks unless the worker exits for another reason; this mirrors the
// original design's documented precondition (see SPEC_FULL.md §4.6).
func (l *Loop) Join() {
	<-l.done
	l.mailbox.setState(StateReady)
	l.privateState = StateReady
}

// IsOnLoopThread reports whether the calling goroutine is the loop's
// worker goroutine.
func (l *Loop) IsOnLoopThread() bool {
	id := l.workerGoroutineID.Load()
	return id != 0 && id == goroutineID()
}

// ScheduleNow submits a task to run as soon as possible. If called from the
// worker goroutine, the task is scheduled directly; otherwise it is posted
// to the mailbox and the worker is woken.
func (l *Loop) ScheduleNow(t *Task) {
	t.runAt = 0
	l.dispatchTask(t)
}

// ScheduleAt submits a task to become due at runAtNanos, a monotonic
// nanosecond timestamp compatible with the Loop's configured clock.
func (l *Loop) ScheduleAt(t *Task, runAtNanos int64) {
	t.runAt = runAtNanos
	l.dispatchTask(t)
}

// dispatchTask is the single entry point used by ScheduleNow/ScheduleAt and
// by the handle registry's subscribe/unsubscribe tasks: direct dispatch on
// the loop thread, mailbox handoff otherwise.
func (l *Loop) dispatchTask(t *Task) {
	if l.IsOnLoopThread() {
		if t.runAt == 0 {
			l.scheduler.scheduleNow(t)
		} else {
			l.scheduler.scheduleAt(t, t.runAt)
		}
		return
	}
	if l.mailbox.postTask(t) {
		l.wake.signal()
	}
}

// Destroy stops and joins the loop (if not already done), cancels every
// task remaining in the scheduler and the mailbox, and releases owned
// kernel resources. Destroying a loop with live subscribed handles is a
// programming error: it panics when built with the eventloopdebug build
// tag, and logs a leak warning otherwise (see assert_debug.go and
// assert_release.go).
func (l *Loop) Destroy() {
	l.runOnce.Do(func() {
		l.destroyed.Store(true)
		l.Stop()
		l.Join()

		// Cancellation must reach a fixed point: a canceled task's Run may
		// itself submit further tasks (which land in the mailbox, since
		// Destroy does not run on the worker goroutine), so keep draining
		// both the mailbox and the scheduler until both are empty.
		for {
			_, tasks := l.mailbox.drain()
			sawMailboxWork := tasks != nil
			cancelTaskList(tasks)

			sawSchedulerWork := false
			if _, ok := l.scheduler.hasPending(); ok {
				sawSchedulerWork = true
				l.scheduler.cancelAll()
			}
			if !sawMailboxWork && !sawSchedulerWork {
				break
			}
		}

		if l.registry.connectedHandleCount != 0 {
			reportLiveHandlesOnDestroy(l.registry.connectedHandleCount)
		}

		l.wake.close()
		_ = l.registry.mux.Close()
	})
}

func cancelTaskList(head *Task) {
	for t := head; t != nil; {
		next := t.next
		t.next = nil
		safeRunTask(t, StatusCanceled)
		t = next
	}
}

// safeRunTask invokes a task's Run callback with panic recovery, matching
// the teacher's safeExecute pattern: a panicking task logs and the worker
// continues, it never escapes to crash the process.
func safeRunTask(t *Task, status TaskStatus) {
	if t == nil || t.Run == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("eventloop: task panicked: %v", r)
		}
	}()
	t.Run(status)
}

func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

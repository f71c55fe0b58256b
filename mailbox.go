package eventloop

import "sync"

// TaskStatus indicates whether a Task's Run callback is firing because the
// task became due (StatusRun) or because the loop is tearing down with the
// task still pending (StatusCanceled).
type TaskStatus int

const (
	StatusRun TaskStatus = iota
	StatusCanceled
)

// Task is submitted to a Loop for execution on the worker goroutine. The
// caller owns the Task's memory; the loop never allocates or frees it. The
// next field is an intrusive link used internally by the mailbox's pending
// list and must not be touched by callers.
type Task struct {
	// Run is invoked on the worker goroutine when the task is due, or on
	// any goroutine from Destroy when the loop is torn down with the task
	// not yet run — in the latter case Status is StatusCanceled.
	Run func(status TaskStatus)

	// runAt is the monotonic-nanosecond timestamp at which the task
	// becomes due. Zero means "as soon as possible". Set by ScheduleAt
	// or left zero by ScheduleNow.
	runAt int64

	next *Task
}

// taskList is an intrusive singly-linked FIFO list of *Task, supporting
// O(1) append and O(1) splice-out of the entire list under a single lock.
type taskList struct {
	head, tail *Task
}

func (l *taskList) append(t *Task) {
	t.next = nil
	if l.tail == nil {
		l.head, l.tail = t, t
		return
	}
	l.tail.next = t
	l.tail = t
}

// take detaches the entire list and resets the receiver to empty.
func (l *taskList) take() *Task {
	head := l.head
	l.head, l.tail = nil, nil
	return head
}

// mailbox is the cross-thread rendezvous point between external goroutines
// submitting tasks or requesting a stop, and the worker goroutine that
// drains it. It holds the externally-authoritative copy of the loop's
// lifecycle state; the worker reconciles a private copy from a snapshot
// taken here during drain.
type mailbox struct {
	mu            sync.Mutex
	signalPending bool
	pending       taskList
	state         LifecycleState
}

// postTask appends a task for later execution on the worker. It returns
// true if the caller must perform a wake write (no wake is currently
// outstanding), matching the "dedup pending signal" rule: at most one wake
// byte is ever in flight.
func (m *mailbox) postTask(t *Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending.append(t)
	if m.signalPending {
		return false
	}
	m.signalPending = true
	return true
}

// requestStop transitions state RUNNING -> STOPPING. It is a true no-op in
// any other state: no state change, no signal, no wake write, matching the
// original's s_stop (kqueue_event_loop.c), which only touches
// signal_thread/the wake pipe inside the `state == RUNNING` branch. Returns
// true if the caller must perform a wake write.
func (m *mailbox) requestStop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRunning {
		return false
	}
	m.state = StateStopping
	if m.signalPending {
		return false
	}
	m.signalPending = true
	return true
}

// snapshotState returns the mailbox's current lifecycle state under lock,
// without draining anything. Used by Run to check its precondition.
func (m *mailbox) snapshotState() LifecycleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mailbox) setState(s LifecycleState) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// drain clears signalPending, snapshots state, and splices out every
// pending task in O(1). Called only by the worker.
func (m *mailbox) drain() (state LifecycleState, tasks *Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signalPending = false
	state = m.state
	tasks = m.pending.take()
	return state, tasks
}
